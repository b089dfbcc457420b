package generate

// #region imports
import (
	"strings"
	"unicode/utf8"

	"github.com/czhharrison/MerchantChat/internal/attributes"
	"github.com/czhharrison/MerchantChat/internal/config"
	"github.com/czhharrison/MerchantChat/internal/preference"
)

// #endregion

// #region constants

const (
	ruleBurst      = "burst"
	ruleMinimal    = "minimal"
	ruleCeremonial = "ceremonial"

	bandMin = 20
	bandMax = 30
)

// #endregion

// #region compose

// compose builds a first draft from the style's fragment table.
func (g *Generator) compose(req Request, style config.StyleSpec) string {
	hints := req.Hints
	product := productPhrase(req.Descriptor, g.gen.DefaultProduct)
	features := strings.Join(g.features(req), " ")

	prefix := g.pick(style.Prefixes, hints)
	modifier := g.pick(style.Modifiers, hints)
	suffix := g.pick(style.Suffixes, hints)

	switch style.Rule {
	case ruleMinimal:
		return strings.TrimSpace(modifier + product + " " + features)
	case ruleCeremonial:
		head := ""
		if prefix != "" {
			head = "【" + prefix + "】"
		}
		return head + modifier + product + "｜" + features + suffix
	default:
		return strings.TrimSpace(prefix+modifier+" "+product+" "+features) + suffix
	}
}

// features lists the descriptor's feature tags (bounded), then one word from
// the audience vocabulary for non-generic audiences.
func (g *Generator) features(req Request) []string {
	limit := g.gen.FeatureLimit
	if limit < 1 {
		limit = 1
	}
	var out []string
	for _, f := range req.Descriptor.Features {
		if len(out) == limit {
			break
		}
		if !disliked(req.Hints, f) {
			out = append(out, f)
		}
	}
	if !req.Audience.IsGeneric() {
		var vocab []string
		for _, w := range req.Audience.Vocabulary {
			if !containsFold(out, w) {
				vocab = append(vocab, w)
			}
		}
		if w := g.pick(vocab, req.Hints); w != "" {
			out = append(out, w)
		}
	}
	if len(out) == 0 {
		out = append(out, g.gen.DefaultFeature)
	}
	return out
}

func productPhrase(d attributes.Descriptor, fallback string) string {
	product := d.Product
	if product == "" {
		product = fallback
	}
	if d.Color != "" && !strings.Contains(product, d.Color) {
		return d.Color + product
	}
	return product
}

// #endregion compose

// #region revise

// revise applies rule-based fixes keyed on the previous report, in order:
// missing keywords, brackets, urgency, emoji, then the length band.
func (g *Generator) revise(req Request, style config.StyleSpec) string {
	rep := req.Revision.Report
	hints := req.Hints
	title := strings.TrimSpace(req.Revision.Previous)
	if title == "" {
		return g.compose(req, style)
	}

	var add []string
	for _, k := range rep.Missing() {
		if !disliked(hints, k) && !strings.Contains(strings.ToLower(title), strings.ToLower(k)) {
			add = append(add, k)
		}
	}
	if len(add) > 0 {
		title += " " + strings.Join(add, " ")
	}

	if !rep.HasBracket {
		word := style.Name
		if disliked(hints, word) {
			word = ""
		}
		if rep.UrgencyCount == 0 {
			if u := g.pickUrgency(title, hints); u != "" {
				word = u
			}
		}
		if word != "" {
			title = "【" + word + "】" + title
		}
	} else if rep.UrgencyCount == 0 {
		if u := g.pickUrgency(title, hints); u != "" {
			title = insertAfterBracket(title, u)
		}
	}

	if !rep.HasEmoji {
		if e := g.pick(g.emoji, hints); e != "" {
			title = e + title
		}
	}

	return g.fitBand(title, req)
}

func (g *Generator) pickUrgency(title string, hints *preference.Snapshot) string {
	var options []string
	for _, u := range g.urgency {
		if !strings.Contains(title, u) {
			options = append(options, u)
		}
	}
	return g.pick(options, hints)
}

// fitBand drops trailing segments without target keywords while the title
// is over the band, and appends filler tags while it is under.
func (g *Generator) fitBand(title string, req Request) string {
	var targets []string
	if req.Revision != nil {
		targets = req.Revision.Report.TargetKeywords
	}

	for runeLen(title) > bandMax {
		idx := lastSeparator(title)
		if idx <= 0 {
			break
		}
		head, tail := title[:idx], title[idx:]
		if runeLen(head) < bandMin || containsAnyFold(tail, targets) {
			break
		}
		title = head
	}

	if runeLen(title) < bandMin {
		var fillers []string
		fillers = append(fillers, req.Descriptor.Features...)
		fillers = append(fillers, req.Audience.Vocabulary...)
		fillers = append(fillers, g.gen.DefaultFeature)
		for _, f := range fillers {
			if runeLen(title) >= bandMin {
				break
			}
			if f == "" || disliked(req.Hints, f) || strings.Contains(title, f) {
				continue
			}
			if runeLen(title)+1+runeLen(f) > bandMax {
				continue
			}
			title += " " + f
		}
	}
	return title
}

// #endregion revise

// #region helpers

// pick selects one option not containing a disliked token, or "" if none
// survive.
func (g *Generator) pick(options []string, hints *preference.Snapshot) string {
	var ok []string
	for _, o := range options {
		if o != "" && !disliked(hints, o) {
			ok = append(ok, o)
		}
	}
	if len(ok) == 0 {
		return ""
	}
	i := g.sel.Pick(len(ok))
	if i < 0 || i >= len(ok) {
		i = 0
	}
	return ok[i]
}

func disliked(hints *preference.Snapshot, fragment string) bool {
	return hints != nil && hints.Dislikes(fragment)
}

func insertAfterBracket(title, word string) string {
	if i := strings.Index(title, "】"); i >= 0 && runeLen(title[:i]) <= 8 {
		at := i + len("】")
		return title[:at] + word + title[at:]
	}
	return word + title
}

func lastSeparator(s string) int {
	best := -1
	for _, sep := range []string{" ", "，", "｜"} {
		if i := strings.LastIndex(s, sep); i > best {
			best = i
		}
	}
	return best
}

func containsAnyFold(s string, words []string) bool {
	lower := strings.ToLower(s)
	for _, w := range words {
		if w != "" && strings.Contains(lower, strings.ToLower(w)) {
			return true
		}
	}
	return false
}

func containsFold(list []string, w string) bool {
	for _, x := range list {
		if strings.EqualFold(x, w) {
			return true
		}
	}
	return false
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

// #endregion helpers
