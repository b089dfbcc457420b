package audience

// #region imports
import (
	"strings"

	"github.com/czhharrison/MerchantChat/internal/config"
)

// #endregion

// #region types

// GenericTag is the tag of the guaranteed fallback profile.
const GenericTag = "通用"

// Sensitivity is an audience's price sensitivity.
type Sensitivity string

const (
	SensitivityLow    Sensitivity = "low"
	SensitivityMedium Sensitivity = "medium"
	SensitivityHigh   Sensitivity = "high"
)

// Profile describes one target audience.
type Profile struct {
	Tag              string      `json:"tag"`
	AgeRange         string      `json:"age_range"`
	Traits           string      `json:"traits"`
	Tone             string      `json:"tone"`
	Vocabulary       []string    `json:"vocabulary"`
	Motivation       string      `json:"motivation"`
	PriceSensitivity Sensitivity `json:"price_sensitivity"`
}

// IsGeneric reports whether p is the fallback profile.
func (p Profile) IsGeneric() bool {
	return p.Tag == GenericTag
}

// #endregion types

// #region resolver

// Resolver looks up audience profiles by tag or alias. Lookups never fail.
type Resolver struct {
	profiles map[string]Profile
	aliases  map[string]string
	order    []string
	generic  Profile
}

// NewResolver builds a resolver from the audience table. A generic profile is
// synthesized if the table does not define one.
func NewResolver(specs []config.AudienceSpec) *Resolver {
	r := &Resolver{
		profiles: make(map[string]Profile, len(specs)),
		aliases:  make(map[string]string),
	}
	for _, s := range specs {
		p := Profile{
			Tag:              s.Tag,
			AgeRange:         s.AgeRange,
			Traits:           s.Traits,
			Tone:             s.Tone,
			Vocabulary:       append([]string(nil), s.Vocabulary...),
			Motivation:       s.Motivation,
			PriceSensitivity: normalizeSensitivity(s.PriceSensitivity),
		}
		if _, dup := r.profiles[s.Tag]; dup {
			continue
		}
		r.profiles[s.Tag] = p
		r.order = append(r.order, s.Tag)
		for _, a := range s.Aliases {
			key := strings.ToLower(strings.TrimSpace(a))
			if _, taken := r.aliases[key]; !taken && key != "" {
				r.aliases[key] = s.Tag
			}
		}
	}
	g, ok := r.profiles[GenericTag]
	if !ok {
		g = Profile{Tag: GenericTag, PriceSensitivity: SensitivityMedium}
		r.profiles[GenericTag] = g
		r.order = append(r.order, GenericTag)
	}
	if _, taken := r.aliases["generic"]; !taken {
		r.aliases["generic"] = GenericTag
	}
	r.generic = g
	return r
}

// Resolve returns the profile for tag; unknown or empty tags resolve to the
// generic profile.
func (r *Resolver) Resolve(tag string) Profile {
	if p, ok := r.Lookup(tag); ok {
		return p
	}
	return r.generic
}

// Lookup is Resolve without the fallback.
func (r *Resolver) Lookup(tag string) (Profile, bool) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return Profile{}, false
	}
	if p, ok := r.profiles[tag]; ok {
		return p, true
	}
	if canon, ok := r.aliases[strings.ToLower(tag)]; ok {
		return r.profiles[canon], true
	}
	return Profile{}, false
}

// Canonical maps a tag or alias to its canonical tag.
func (r *Resolver) Canonical(tag string) (string, bool) {
	p, ok := r.Lookup(tag)
	return p.Tag, ok
}

// Tags returns canonical tags in table order.
func (r *Resolver) Tags() []string {
	return append([]string(nil), r.order...)
}

// Mentions returns every tag and alias paired with its canonical tag, for
// scanning free text.
func (r *Resolver) Mentions() map[string]string {
	out := make(map[string]string, len(r.order)+len(r.aliases))
	for _, t := range r.order {
		out[t] = t
	}
	for a, t := range r.aliases {
		out[a] = t
	}
	return out
}

func normalizeSensitivity(s string) Sensitivity {
	switch Sensitivity(strings.ToLower(s)) {
	case SensitivityLow:
		return SensitivityLow
	case SensitivityHigh:
		return SensitivityHigh
	default:
		return SensitivityMedium
	}
}

// #endregion resolver
