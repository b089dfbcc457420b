package assistant

// #region imports
import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// #endregion

// #region types

// Intent is the operation a chat turn asks for.
type Intent string

const (
	IntentTitle      Intent = "title"
	IntentScore      Intent = "score"
	IntentCompetitor Intent = "competitor"
	IntentStrategy   Intent = "strategy"
	IntentSolution   Intent = "solution"
	IntentChat       Intent = "chat"
)

// Classification is the keyword-heuristic reading of one chat turn.
type Classification struct {
	Intent Intent `json:"intent"`
	Style  string `json:"style,omitempty"`
	Budget string `json:"budget,omitempty"`
	// Quoted is the title the turn refers to, when one is quoted or follows
	// a colon.
	Quoted string `json:"quoted,omitempty"`
}

// #endregion types

// #region keywords

var solutionKeywords = []string{
	"完整方案", "解决方案", "全套方案", "一整套", "solution",
}

var competitorKeywords = []string{
	"竞品", "对手", "同行", "competitor",
}

var scoreKeywords = []string{
	"ctr", "评估", "评分", "打分", "点击率", "score",
}

var strategyKeywords = []string{
	"策略", "营销", "推广", "投放", "strategy",
}

var titleKeywords = []string{
	"标题", "起名", "文案", "title",
}

// followUpPrefixes start short turns that continue the previous request.
var followUpPrefixes = []string{
	"再", "换", "那", "还有", "继续", "还是", "又",
	"again", "another", "more",
}

// #endregion keywords

// #region patterns
var (
	quotedRe = regexp.MustCompile(`[「“"《『]([^」”"》』]+)[」”"》』]`)
	budgetRe = regexp.MustCompile(`预算\s*[:：]?\s*(低|中等|高)|(低|中等|高)预算`)
)

const followUpMaxRunes = 12

// #endregion

// #region classify

// ClassifyIntent classifies a chat turn via keyword heuristics. No model
// call. prev carries the previous turn's classification; short follow-ups
// inherit its intent and style.
func ClassifyIntent(prompt string, styles []string, prev ...Classification) Classification {
	trimmed := strings.TrimSpace(prompt)
	lower := strings.ToLower(trimmed)

	c := Classification{
		Intent: classifyIntent(lower),
		Style:  findStyle(trimmed, styles),
		Budget: findBudget(trimmed),
		Quoted: findQuoted(trimmed),
	}

	if len(prev) > 0 && c.Intent == IntentChat && isFollowUp(lower) {
		p := prev[0]
		if p.Intent != IntentChat {
			c.Intent = p.Intent
			if c.Style == "" {
				c.Style = p.Style
			}
			if c.Budget == "" {
				c.Budget = p.Budget
			}
		}
	}
	return c
}

func classifyIntent(lower string) Intent {
	// Solution before the rest: a full plan names titles and strategy too.
	if containsAny(lower, solutionKeywords) {
		return IntentSolution
	}
	// Competitor before score and title: "竞品标题" is about the competitor.
	if containsAny(lower, competitorKeywords) {
		return IntentCompetitor
	}
	if containsAny(lower, scoreKeywords) {
		return IntentScore
	}
	if containsAny(lower, strategyKeywords) {
		return IntentStrategy
	}
	if containsAny(lower, titleKeywords) {
		return IntentTitle
	}
	return IntentChat
}

// #endregion classify

// #region extraction

func findStyle(text string, styles []string) string {
	best, at := "", -1
	for _, s := range styles {
		if s == "" {
			continue
		}
		if i := strings.Index(text, s); i >= 0 && (at < 0 || i < at) {
			best, at = s, i
		}
	}
	return best
}

func findBudget(text string) string {
	m := budgetRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	if m[1] != "" {
		return m[1]
	}
	return m[2]
}

func findQuoted(text string) string {
	if m := quotedRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	if i := strings.LastIndexAny(text, ":："); i >= 0 {
		_, size := utf8.DecodeRuneInString(text[i:])
		return strings.TrimSpace(text[i+size:])
	}
	return ""
}

func isFollowUp(lower string) bool {
	if utf8.RuneCountInString(lower) > followUpMaxRunes {
		return false
	}
	for _, p := range followUpPrefixes {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return false
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// #endregion extraction
