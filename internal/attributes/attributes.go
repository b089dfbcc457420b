package attributes

// #region imports
import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/czhharrison/MerchantChat/internal/config"
	"github.com/czhharrison/MerchantChat/internal/tokenize"
)

// #endregion

// #region types

// CategoryUnknown is the category of text that matches no dictionary entry.
const CategoryUnknown = "unknown"

// PriceTier is one of five ordered price buckets.
type PriceTier string

const (
	TierUnknown PriceTier = "unknown"
	TierEntry   PriceTier = "entry"
	TierValue   PriceTier = "value"
	TierMid     PriceTier = "mid"
	TierUpper   PriceTier = "upper"
	TierLuxury  PriceTier = "luxury"
)

// Descriptor is the structured view of one free-text product description.
type Descriptor struct {
	Raw       string    `json:"raw"`
	Category  string    `json:"category"`
	Product   string    `json:"product,omitempty"`
	Color     string    `json:"color,omitempty"`
	Season    string    `json:"season,omitempty"`
	Price     *float64  `json:"price,omitempty"`
	PriceTier PriceTier `json:"price_tier"`
	Features  []string  `json:"features"`
	Keywords  []string  `json:"keywords"`
}

// HasProduct reports whether a category noun was found.
func (d Descriptor) HasProduct() bool {
	return d.Product != ""
}

// TargetKeywords lists the terms a title for this product should cover:
// product, color, features, then segmented keywords, de-duplicated and
// capped at limit. The result is never nil.
func (d Descriptor) TargetKeywords(limit int) []string {
	out := []string{}
	seen := make(map[string]bool)
	add := func(w string) {
		key := strings.ToLower(strings.TrimSpace(w))
		if key == "" || seen[key] || (limit > 0 && len(out) >= limit) {
			return
		}
		seen[key] = true
		out = append(out, w)
	}
	add(d.Product)
	add(d.Color)
	for _, f := range d.Features {
		add(f)
	}
	for _, k := range d.Keywords {
		add(k)
	}
	return out
}

// #endregion types

// #region extractor

type termKind int

const (
	kindCategory termKind = iota
	kindColor
	kindSeason
	kindFeature
)

type term struct {
	kind      termKind
	canonical string
}

var (
	unitPrice   = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:元|块|rmb|RMB)`)
	prefixPrice = regexp.MustCompile(`[¥￥]\s*(\d+(?:\.\d+)?)`)
)

// Extractor turns raw descriptions into Descriptors. It is safe for
// concurrent use once constructed.
type Extractor struct {
	terms  map[string]term
	maxLen int
	tiers  []float64
	tok    tokenize.Tokenizer
	stop   map[string]bool
}

// NewExtractor builds an extractor over the dictionary tables. When a
// surface term appears in more than one table the first table wins, in the
// order categories, colors, seasons, features.
func NewExtractor(dict config.Dictionary, tok tokenize.Tokenizer) *Extractor {
	e := &Extractor{
		terms: make(map[string]term),
		tiers: dict.PriceTiers,
		tok:   tok,
		stop:  tokenize.StopSet(dict.Stopwords),
	}
	for _, c := range dict.Categories {
		for _, k := range c.Keywords {
			e.add(k, term{kindCategory, c.Name})
		}
	}
	for _, c := range dict.Colors {
		e.add(c, term{kindColor, c})
	}
	for _, s := range dict.Seasons {
		for _, k := range s.Keywords {
			e.add(k, term{kindSeason, s.Name})
		}
	}
	for _, f := range dict.Features {
		e.add(f, term{kindFeature, f})
	}
	return e
}

func (e *Extractor) add(surface string, t term) {
	key := strings.ToLower(strings.TrimSpace(surface))
	if key == "" {
		return
	}
	if _, exists := e.terms[key]; exists {
		return
	}
	e.terms[key] = t
	if n := utf8.RuneCountInString(key); n > e.maxLen {
		e.maxLen = n
	}
}

// Extract never fails: absent attributes stay empty and the category falls
// back to CategoryUnknown.
func (e *Extractor) Extract(text string) Descriptor {
	d := Descriptor{
		Raw:       text,
		Category:  CategoryUnknown,
		PriceTier: TierUnknown,
		Features:  []string{},
		Keywords:  []string{},
	}

	runes := []rune(text)
	lower := []rune(strings.ToLower(text))
	if len(lower) != len(runes) {
		lower = runes
	}
	seenFeature := make(map[string]bool)

	for i := 0; i < len(lower); {
		n, t := e.longestMatch(lower, i)
		if n == 0 {
			i++
			continue
		}
		surface := string(runes[i : i+n])
		switch t.kind {
		case kindCategory:
			if d.Category == CategoryUnknown {
				d.Category = t.canonical
				d.Product = surface
			}
		case kindColor:
			if d.Color == "" {
				d.Color = t.canonical
			}
		case kindSeason:
			if d.Season == "" {
				d.Season = t.canonical
			}
		case kindFeature:
			if !seenFeature[t.canonical] {
				seenFeature[t.canonical] = true
				d.Features = append(d.Features, t.canonical)
			}
		}
		i += n
	}

	if p, ok := parsePrice(text); ok {
		d.Price = &p
		d.PriceTier = Tier(p, e.tiers)
	}

	if e.tok != nil {
		if kw := tokenize.Keywords(e.tok.Tokenize(text), e.stop); kw != nil {
			d.Keywords = kw
		}
	}
	return d
}

func (e *Extractor) longestMatch(lower []rune, start int) (int, term) {
	limit := e.maxLen
	if rest := len(lower) - start; rest < limit {
		limit = rest
	}
	for n := limit; n > 0; n-- {
		if t, ok := e.terms[string(lower[start:start+n])]; ok {
			return n, t
		}
	}
	return 0, term{}
}

// #endregion extractor

// #region price

// parsePrice returns the earliest price mention in text.
func parsePrice(text string) (float64, bool) {
	best := -1
	var raw string
	for _, re := range []*regexp.Regexp{unitPrice, prefixPrice} {
		m := re.FindStringSubmatchIndex(text)
		if m == nil {
			continue
		}
		if best == -1 || m[0] < best {
			best = m[0]
			raw = text[m[2]:m[3]]
		}
	}
	if best == -1 {
		return 0, false
	}
	p, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return p, true
}

// Tier buckets price against four ascending thresholds.
func Tier(price float64, thresholds []float64) PriceTier {
	order := []PriceTier{TierEntry, TierValue, TierMid, TierUpper}
	for i, limit := range thresholds {
		if i >= len(order) {
			break
		}
		if price < limit {
			return order[i]
		}
	}
	return TierLuxury
}

// #endregion price
