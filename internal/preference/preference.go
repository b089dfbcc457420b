package preference

// #region imports
import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/czhharrison/MerchantChat/internal/config"
	"github.com/czhharrison/MerchantChat/internal/conversation"
	"github.com/czhharrison/MerchantChat/internal/tokenize"
)

// #endregion

// #region snapshot

// Snapshot is the advisory preference summary of a conversation window.
type Snapshot struct {
	PreferredStyles []string `json:"preferred_styles"`
	Audiences       []string `json:"audiences"`
	Disliked        []string `json:"disliked"`
	TurnsScanned    int      `json:"turns_scanned"`
}

// Empty reports whether the snapshot carries no signal.
func (s Snapshot) Empty() bool {
	return len(s.PreferredStyles) == 0 && len(s.Audiences) == 0 && len(s.Disliked) == 0
}

// TopStyle returns the highest-ranked preferred style, if any.
func (s Snapshot) TopStyle() (string, bool) {
	if len(s.PreferredStyles) == 0 {
		return "", false
	}
	return s.PreferredStyles[0], true
}

// TopAudience returns the most mentioned audience tag, if any.
func (s Snapshot) TopAudience() (string, bool) {
	if len(s.Audiences) == 0 {
		return "", false
	}
	return s.Audiences[0], true
}

// Dislikes reports whether fragment contains a disliked token.
func (s Snapshot) Dislikes(fragment string) bool {
	lower := strings.ToLower(fragment)
	for _, d := range s.Disliked {
		if d != "" && strings.Contains(lower, strings.ToLower(d)) {
			return true
		}
	}
	return false
}

// Advisory renders the snapshot as a one-line hint for prompts. It returns
// "" for an empty snapshot.
func (s Snapshot) Advisory() string {
	var parts []string
	if len(s.PreferredStyles) > 0 {
		parts = append(parts, "偏好风格："+strings.Join(s.PreferredStyles, "、"))
	}
	if len(s.Audiences) > 0 {
		parts = append(parts, "关注人群："+strings.Join(s.Audiences, "、"))
	}
	if len(s.Disliked) > 0 {
		parts = append(parts, "避免使用："+strings.Join(s.Disliked, "、"))
	}
	return strings.Join(parts, "；")
}

// #endregion snapshot

// #region extractor

const (
	likedWeight   = 2
	mentionWeight = 1
)

// Extractor derives Snapshots from conversation history. It never writes
// anything; the snapshot is recomputed on every read.
type Extractor struct {
	window   int
	topN     int
	styles   []string
	positive []string
	negative []string
	mentions map[string]string
	mention  *tokenize.Lexicon
	tok      tokenize.Tokenizer
	stop     map[string]bool
}

// NewExtractor builds an extractor. mentions maps every audience tag and
// alias to its canonical tag.
func NewExtractor(cfg config.Preference, styles []string, mentions map[string]string, tok tokenize.Tokenizer, stopwords []string) *Extractor {
	e := &Extractor{
		window:   cfg.Window,
		topN:     cfg.TopN,
		styles:   append([]string(nil), styles...),
		positive: lowerAll(cfg.PositiveMarkers),
		negative: lowerAll(cfg.NegativeMarkers),
		mentions: make(map[string]string, len(mentions)),
		tok:      tok,
		stop:     tokenize.StopSet(stopwords),
	}
	if e.window < 1 {
		e.window = 10
	}
	if e.topN < 1 {
		e.topN = 3
	}
	keys := make([]string, 0, len(mentions))
	for k, v := range mentions {
		k = strings.ToLower(k)
		e.mentions[k] = v
		keys = append(keys, k)
	}
	e.mention = tokenize.NewLexicon(keys)
	// longest markers first so "不喜欢" is claimed before "喜欢"
	sort.SliceStable(e.negative, func(i, j int) bool {
		return utf8.RuneCountInString(e.negative[i]) > utf8.RuneCountInString(e.negative[j])
	})
	for _, m := range e.positive {
		e.stop[m] = true
	}
	for _, m := range e.negative {
		e.stop[m] = true
	}
	return e
}

// Window returns the number of trailing turns read.
func (e *Extractor) Window() int {
	return e.window
}

// Extract scans the trailing window of turns. Only user turns contribute.
func (e *Extractor) Extract(turns []conversation.Turn) Snapshot {
	if len(turns) > e.window {
		turns = turns[len(turns)-e.window:]
	}
	styles := newTally()
	audiences := newTally()
	disliked := newTally()
	scanned := 0

	for _, t := range turns {
		if t.Role != conversation.RoleUser {
			continue
		}
		scanned++
		for _, clause := range splitClauses(t.Text) {
			e.scanClause(clause, styles, audiences, disliked)
		}
	}

	return Snapshot{
		PreferredStyles: styles.top(e.topN),
		Audiences:       audiences.top(e.topN),
		Disliked:        disliked.top(e.topN),
		TurnsScanned:    scanned,
	}
}

func (e *Extractor) scanClause(clause string, styles, audiences, disliked *tally) {
	lower := strings.ToLower(clause)
	negs := findAll(lower, e.negative)

	masked := []byte(lower)
	for _, n := range negs {
		for i := n.start; i < n.end; i++ {
			masked[i] = ' '
		}
	}
	pos := findAll(string(masked), e.positive)

	for _, style := range e.styles {
		at := strings.Index(lower, strings.ToLower(style))
		if at < 0 {
			continue
		}
		switch {
		case negatedBefore(negs, pos, at):
			disliked.add(style, 1)
			styles.add(style, -likedWeight)
		case len(pos) > 0:
			styles.add(style, likedWeight)
		default:
			styles.add(style, mentionWeight)
		}
	}

	for _, tok := range e.mention.Tokenize(lower) {
		if canon, ok := e.mentions[strings.ToLower(tok)]; ok {
			audiences.add(canon, 1)
		}
	}

	for _, s := range negs {
		if tok, ok := e.dislikedNear(lower, s, pos); ok {
			disliked.add(tok, 1)
		}
	}
}

// dislikedNear picks the keyword nearest before the marker, falling back to
// the first keyword after it. Keywords before the marker that follow a
// positive marker are liked, so those clauses look after the marker first.
func (e *Extractor) dislikedNear(clause string, s span, pos []span) (string, bool) {
	if e.tok == nil {
		return "", false
	}
	var before []string
	if !positiveBefore(pos, s.start) {
		before = tokenize.Keywords(e.tok.Tokenize(clause[:s.start]), e.stop)
	}
	if n := len(before); n > 0 {
		return before[n-1], true
	}
	after := tokenize.Keywords(e.tok.Tokenize(clause[s.end:]), e.stop)
	if len(after) > 0 {
		return after[0], true
	}
	return "", false
}

// #endregion extractor

// #region helpers

type span struct{ start, end int }

// findAll returns non-overlapping occurrences of markers in text, earlier
// markers in the list claiming their bytes first.
func findAll(text string, markers []string) []span {
	claimed := make([]bool, len(text))
	var out []span
	for _, m := range markers {
		if m == "" {
			continue
		}
		for off := 0; off < len(text); {
			i := strings.Index(text[off:], m)
			if i < 0 {
				break
			}
			s := span{off + i, off + i + len(m)}
			free := true
			for j := s.start; j < s.end; j++ {
				if claimed[j] {
					free = false
					break
				}
			}
			if free {
				for j := s.start; j < s.end; j++ {
					claimed[j] = true
				}
				out = append(out, s)
			}
			off = s.end
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].start < out[j].start })
	return out
}

// negatedBefore reports whether the nearest negative marker before at still
// governs it, i.e. no positive marker sits between the two.
func negatedBefore(negs, pos []span, at int) bool {
	last := -1
	for i, n := range negs {
		if n.end <= at {
			last = i
		}
	}
	if last < 0 {
		return false
	}
	for _, p := range pos {
		if p.start >= negs[last].end && p.end <= at {
			return false
		}
	}
	return true
}

func positiveBefore(pos []span, at int) bool {
	for _, p := range pos {
		if p.end <= at {
			return true
		}
	}
	return false
}

func splitClauses(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		if unicode.IsSpace(r) {
			return true
		}
		switch r {
		case '，', ',', '。', '.', '！', '!', '？', '?', '；', ';', '～', '~':
			return true
		}
		return false
	})
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// tally counts items and remembers first appearance for tie-breaking.
type tally struct {
	counts map[string]int
	order  []string
}

func newTally() *tally {
	return &tally{counts: make(map[string]int)}
}

func (t *tally) add(item string, n int) {
	if _, ok := t.counts[item]; !ok {
		t.order = append(t.order, item)
	}
	t.counts[item] += n
}

// top returns up to n items with a positive count, highest first, ties in
// order of first appearance.
func (t *tally) top(n int) []string {
	items := make([]string, 0, len(t.order))
	for _, it := range t.order {
		if t.counts[it] > 0 {
			items = append(items, it)
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		return t.counts[items[i]] > t.counts[items[j]]
	})
	if len(items) > n {
		items = items[:n]
	}
	return items
}

// #endregion helpers
