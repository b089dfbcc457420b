package scoring

// #region imports
import (
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/czhharrison/MerchantChat/internal/audience"
	"github.com/czhharrison/MerchantChat/internal/config"
	"github.com/czhharrison/MerchantChat/internal/tokenize"
)

// #endregion

// #region weights

const (
	baseScore      = 0.4
	coverageWeight = 0.3
	lengthWeight   = 0.1
	symbolWeight   = 0.1
	urgencyWeight  = 0.1

	symbolBase    = 0.7
	symbolBonus   = 0.15
	urgencyStep   = 0.2
	urgencyCap    = 0.6
	idealLenMin   = 20
	idealLenMax   = 30
	okLenMin      = 15
	okLenMax      = 35
	lengthIdeal   = 1.0
	lengthOK      = 0.8
	lengthPoor    = 0.5
	maxVocabHints = 3
)

// #endregion

// #region report

// Report is the full scoring breakdown for one title.
type Report struct {
	Title           string   `json:"title"`
	Score           float64  `json:"score"`
	Percentage      string   `json:"percentage"`
	Coverage        float64  `json:"coverage"`
	LengthFitness   float64  `json:"length_fitness"`
	SymbolScore     float64  `json:"symbol_score"`
	UrgencyScore    float64  `json:"urgency_score"`
	TitleLength     int      `json:"title_length"`
	UrgencyCount    int      `json:"urgency_count"`
	HasEmoji        bool     `json:"has_emoji"`
	HasBracket      bool     `json:"has_bracket"`
	CoveredKeywords []string `json:"covered_keywords"`
	TargetKeywords  []string `json:"target_keywords"`
	Audience        string   `json:"audience,omitempty"`
	AudienceMatched bool     `json:"audience_matched"`
	Issues          []string `json:"issues"`
	Recommendations []string `json:"recommendations"`
}

// Missing returns the target keywords the title does not cover, in order.
func (r Report) Missing() []string {
	covered := make(map[string]bool, len(r.CoveredKeywords))
	for _, k := range r.CoveredKeywords {
		covered[k] = true
	}
	var out []string
	for _, k := range r.TargetKeywords {
		if !covered[k] {
			out = append(out, k)
		}
	}
	return out
}

// Percentage renders score as a one-decimal percentage string.
func Percentage(score float64) string {
	pct := math.Round(score*1000) / 10
	return strconv.FormatFloat(pct, 'f', 1, 64) + "%"
}

// #endregion report

// #region engine

// Engine scores titles. It holds only immutable tables, so Score is pure and
// safe for concurrent use.
type Engine struct {
	urgency       []string
	emoji         map[rune]bool
	brackets      map[rune]bool
	coverageFloor float64
	lengthFloor   float64
	tok           tokenize.Tokenizer
	stop          map[string]bool
	audiences     *audience.Resolver
}

// NewEngine builds an engine. audiences may be nil, which disables the
// audience-vocabulary diagnostic.
func NewEngine(cfg config.Scoring, stopwords []string, tok tokenize.Tokenizer, audiences *audience.Resolver) *Engine {
	return &Engine{
		urgency:       append([]string(nil), cfg.UrgencyWords...),
		emoji:         runeSet(cfg.EmojiSet),
		brackets:      runeSet(cfg.BracketSet),
		coverageFloor: cfg.CoverageFloor,
		lengthFloor:   cfg.LengthFloor,
		tok:           tok,
		stop:          tokenize.StopSet(stopwords),
		audiences:     audiences,
	}
}

// Score evaluates title against keywords. A nil keyword list means "absent"
// and is derived from the title itself; an empty non-nil list yields zero
// coverage. audienceTag may be empty.
func (e *Engine) Score(title string, keywords []string, audienceTag string) Report {
	if keywords == nil {
		keywords = e.deriveKeywords(title)
	}
	r := Report{
		Title:           title,
		TargetKeywords:  append([]string{}, keywords...),
		CoveredKeywords: []string{},
	}

	lower := strings.ToLower(title)
	for _, k := range keywords {
		if k != "" && strings.Contains(lower, strings.ToLower(k)) {
			r.CoveredKeywords = append(r.CoveredKeywords, k)
		}
	}
	if len(keywords) > 0 {
		r.Coverage = float64(len(r.CoveredKeywords)) / float64(len(keywords))
	}

	r.TitleLength = utf8.RuneCountInString(title)
	r.LengthFitness = lengthFitness(r.TitleLength)

	for _, c := range title {
		if e.emoji[c] {
			r.HasEmoji = true
		}
		if e.brackets[c] {
			r.HasBracket = true
		}
	}
	r.SymbolScore = symbolBase
	if r.HasEmoji {
		r.SymbolScore += symbolBonus
	}
	if r.HasBracket {
		r.SymbolScore += symbolBonus
	}
	r.SymbolScore = math.Min(r.SymbolScore, 1.0)

	for _, w := range e.urgency {
		if w != "" && strings.Contains(title, w) {
			r.UrgencyCount++
		}
	}
	r.UrgencyScore = math.Min(float64(r.UrgencyCount)*urgencyStep, urgencyCap)

	composite := baseScore +
		coverageWeight*r.Coverage +
		lengthWeight*r.LengthFitness +
		symbolWeight*r.SymbolScore +
		urgencyWeight*r.UrgencyScore
	composite = math.Min(composite, 1.0)

	r.Score = round3(composite)
	r.Percentage = Percentage(composite)
	r.Coverage = round3(r.Coverage)
	r.SymbolScore = round3(r.SymbolScore)
	r.UrgencyScore = round3(r.UrgencyScore)

	var vocab []string
	if e.audiences != nil && strings.TrimSpace(audienceTag) != "" {
		p := e.audiences.Resolve(audienceTag)
		r.Audience = p.Tag
		if !p.IsGeneric() {
			vocab = p.Vocabulary
			r.AudienceMatched = containsAny(title, vocab)
		}
	}
	r.Issues, r.Recommendations = e.diagnose(r, vocab)
	return r
}

func (e *Engine) deriveKeywords(title string) []string {
	if e.tok == nil {
		return []string{}
	}
	kw := tokenize.Keywords(e.tok.Tokenize(title), e.stop)
	if kw == nil {
		return []string{}
	}
	return kw
}

func lengthFitness(n int) float64 {
	switch {
	case n >= idealLenMin && n <= idealLenMax:
		return lengthIdeal
	case n >= okLenMin && n <= okLenMax:
		return lengthOK
	default:
		return lengthPoor
	}
}

// #endregion engine

// #region diagnostics

const goodQuality = "标题质量良好，可考虑A/B测试不同版本"

// diagnose applies the rule table in fixed order.
func (e *Engine) diagnose(r Report, vocab []string) ([]string, []string) {
	issues := []string{}
	recs := []string{}
	add := func(issue, rec string) {
		issues = append(issues, issue)
		recs = append(recs, rec)
	}

	if r.Coverage < e.coverageFloor {
		add("关键词覆盖率偏低", "建议增加更多目标关键词以提升搜索匹配度")
	}
	if r.LengthFitness < e.lengthFloor {
		add("标题长度不在理想区间", "标题长度建议控制在20-30字符之间")
	}
	if !r.HasEmoji {
		add("缺少表情符号", "可以适当添加表情符号增加标题吸引力")
	}
	if !r.HasBracket {
		add("缺少括号突出重点", "使用【】等括号突出重点信息")
	}
	if r.UrgencyCount == 0 {
		add("缺少紧急词汇", "添加'限时'、'特惠'等紧急词汇提升点击欲望")
	}
	if len(vocab) > 0 && !r.AudienceMatched {
		hints := vocab
		if len(hints) > maxVocabHints {
			hints = hints[:maxVocabHints]
		}
		add("未使用目标人群偏好词汇", "可加入"+r.Audience+"常用词汇，如："+strings.Join(hints, "、"))
	}

	if len(recs) == 0 {
		recs = append(recs, goodQuality)
	}
	return issues, recs
}

// #endregion diagnostics

// #region helpers
func runeSet(items []string) map[rune]bool {
	set := make(map[rune]bool)
	for _, s := range items {
		for _, r := range s {
			set[r] = true
		}
	}
	return set
}

func containsAny(title string, words []string) bool {
	lower := strings.ToLower(title)
	for _, w := range words {
		if w != "" && strings.Contains(lower, strings.ToLower(w)) {
			return true
		}
	}
	return false
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// #endregion helpers
