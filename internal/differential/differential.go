// Package differential compares a competitor title against the merchant's own
// keywords and derives differentiation suggestions.
package differential

// #region imports
import (
	"fmt"
	"strings"

	"github.com/czhharrison/MerchantChat/internal/scoring"
	"github.com/czhharrison/MerchantChat/internal/tokenize"
)

// #endregion

// #region types

const (
	maxSuggestions   = 3
	maxListed        = 3
	strongCompetitor = 0.7
)

// Report is the result of one competitor analysis. All keyword sets are
// lower-cased and ordered by first appearance.
type Report struct {
	CompetitorTitle    string         `json:"competitor_title"`
	Competitor         scoring.Report `json:"competitor_report"`
	CompetitorKeywords []string       `json:"competitor_keywords"`
	OwnKeywords        []string       `json:"own_keywords"`
	OwnDerived         bool           `json:"own_derived"`
	Common             []string       `json:"common_keywords"`
	CompetitorUnique   []string       `json:"competitor_unique_keywords"`
	OwnUnique          []string       `json:"own_unique_keywords"`
	Overlap            float64        `json:"overlap"`
	Suggestions        []string       `json:"suggestions"`
}

// #endregion

// #region analyzer

// Analyzer runs competitor analyses. It is stateless after construction.
type Analyzer struct {
	scorer *scoring.Engine
	tok    tokenize.Tokenizer
	stop   map[string]bool
	limit  int
}

// NewAnalyzer builds an analyzer. limit bounds the own-keyword fallback.
func NewAnalyzer(scorer *scoring.Engine, tok tokenize.Tokenizer, stopwords []string, limit int) *Analyzer {
	if limit < 1 {
		limit = 5
	}
	return &Analyzer{scorer: scorer, tok: tok, stop: tokenize.StopSet(stopwords), limit: limit}
}

// Analyze compares title against own. When own has no usable entries the
// competitor's first keywords stand in for it.
func (a *Analyzer) Analyze(title string, own []string) Report {
	competitor := lowerUnique(tokenize.Keywords(a.tok.Tokenize(title), a.stop))
	r := Report{
		CompetitorTitle:    title,
		CompetitorKeywords: competitor,
		OwnKeywords:        lowerUnique(own),
	}
	if len(r.OwnKeywords) == 0 {
		n := len(competitor)
		if n > a.limit {
			n = a.limit
		}
		r.OwnKeywords = append([]string{}, competitor[:n]...)
		r.OwnDerived = true
	}

	r.Common = intersect(r.OwnKeywords, competitor)
	r.CompetitorUnique = subtract(competitor, r.OwnKeywords)
	r.OwnUnique = subtract(r.OwnKeywords, competitor)
	if len(r.OwnKeywords) > 0 {
		r.Overlap = float64(tokenize.Shared(competitor, r.OwnKeywords)) / float64(len(r.OwnKeywords))
	}

	r.Competitor = a.scorer.Score(title, competitor, "")
	r.Suggestions = suggest(r)
	return r
}

// #endregion analyzer

// #region suggestions

func suggest(r Report) []string {
	var out []string
	if len(r.CompetitorUnique) > 0 {
		out = append(out, fmt.Sprintf("竞品强调了：%s，我们可以考虑突出其他卖点", strings.Join(head(r.CompetitorUnique), ", ")))
	}
	if len(r.OwnUnique) > 0 {
		out = append(out, fmt.Sprintf("我们的优势关键词：%s，应该重点突出", strings.Join(head(r.OwnUnique), ", ")))
	}
	if r.Competitor.Score > strongCompetitor {
		out = append(out, "竞品标题质量较高，建议学习其标题结构但要突出差异化")
	} else {
		out = append(out, "竞品标题有优化空间，我们可以在此基础上提升")
	}
	if len(out) > maxSuggestions {
		out = out[:maxSuggestions]
	}
	return out
}

func head(items []string) []string {
	if len(items) > maxListed {
		return items[:maxListed]
	}
	return items
}

// #endregion suggestions

// #region sets

// lowerUnique lower-cases and trims items, dropping blanks and duplicates.
// The result is never nil.
func lowerUnique(items []string) []string {
	out := []string{}
	seen := make(map[string]bool, len(items))
	for _, it := range items {
		k := strings.ToLower(strings.TrimSpace(it))
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}

func intersect(a, b []string) []string {
	in := toSet(b)
	out := []string{}
	for _, x := range a {
		if in[x] {
			out = append(out, x)
		}
	}
	return out
}

func subtract(a, b []string) []string {
	in := toSet(b)
	out := []string{}
	for _, x := range a {
		if !in[x] {
			out = append(out, x)
		}
	}
	return out
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, x := range items {
		set[x] = true
	}
	return set
}

// #endregion sets
