package generate

// #region imports
import (
	"context"
	"strings"

	"github.com/czhharrison/MerchantChat/internal/attributes"
	"github.com/czhharrison/MerchantChat/internal/audience"
	"github.com/czhharrison/MerchantChat/internal/collab"
	"github.com/czhharrison/MerchantChat/internal/config"
	"github.com/czhharrison/MerchantChat/internal/preference"
	"github.com/czhharrison/MerchantChat/internal/scoring"
)

// #endregion

// #region types

// Provenance records whether a title is a first draft or a revision.
type Provenance string

const (
	ProvenanceGenerated Provenance = "generated"
	ProvenanceRevised   Provenance = "revised"
)

// Source records which path produced a title.
type Source string

const (
	SourceCollaborator Source = "collaborator"
	SourceTemplate     Source = "template"
)

// ReasonUnparseable marks collaborator output that cleaned down to nothing.
const ReasonUnparseable = "unparseable"

// Candidate is one generated title.
type Candidate struct {
	Title      string     `json:"title"`
	Style      string     `json:"style"`
	Audience   string     `json:"audience"`
	Provenance Provenance `json:"provenance"`
	Source     Source     `json:"source"`
	// FallbackReason is set when the collaborator was present but its output
	// was not used. It is a diagnostic, never an error.
	FallbackReason string `json:"fallback_reason,omitempty"`
}

// Revision carries the previous draft and its report into a revision pass.
type Revision struct {
	Previous string
	Report   scoring.Report
}

// Request is everything the generator needs for one title.
type Request struct {
	Descriptor attributes.Descriptor
	Style      string
	Audience   audience.Profile
	Hints      *preference.Snapshot
	Revision   *Revision
}

// #endregion types

// #region generator

// Generator produces titles through the collaborator when one is present,
// and from fragment tables otherwise.
type Generator struct {
	styles       map[string]config.StyleSpec
	defaultStyle string
	gen          config.Generation
	urgency      []string
	emoji        []string
	collab       collab.Handle
	sel          Selector
}

// NewGenerator builds a generator. A nil selector means FirstSelector.
func NewGenerator(cfg config.Config, handle collab.Handle, sel Selector) *Generator {
	if sel == nil {
		sel = FirstSelector{}
	}
	styles := make(map[string]config.StyleSpec, len(cfg.Styles))
	for _, s := range cfg.Styles {
		styles[s.Name] = s
	}
	return &Generator{
		styles:       styles,
		defaultStyle: cfg.DefaultStyle,
		gen:          cfg.Generation,
		urgency:      cfg.Scoring.UrgencyWords,
		emoji:        cfg.Scoring.EmojiSet,
		collab:       handle,
		sel:          sel,
	}
}

// CollaboratorAvailable reports whether titles go through the collaborator.
func (g *Generator) CollaboratorAvailable() bool {
	return g.collab.Available()
}

// ResolveStyle maps unknown styles to the default style.
func (g *Generator) ResolveStyle(name string) config.StyleSpec {
	if s, ok := g.styles[strings.TrimSpace(name)]; ok {
		return s
	}
	return g.styles[g.defaultStyle]
}

// Generate never fails: collaborator errors fall back to the fragment
// tables and are reported in Candidate.FallbackReason.
func (g *Generator) Generate(ctx context.Context, req Request) Candidate {
	style := g.ResolveStyle(req.Style)
	c := Candidate{
		Style:      style.Name,
		Audience:   req.Audience.Tag,
		Provenance: ProvenanceGenerated,
	}
	if req.Revision != nil {
		c.Provenance = ProvenanceRevised
	}

	if g.collab.Available() {
		text, err := g.collab.Call(ctx, BuildPrompt(req, style.Name))
		if err == nil {
			if title := CleanTitle(text, g.gen.MaxTitleRunes); title != "" {
				c.Title = title
				c.Source = SourceCollaborator
				return c
			}
			c.FallbackReason = ReasonUnparseable
		} else {
			c.FallbackReason = collab.Reason(err)
			if c.FallbackReason == "" {
				c.FallbackReason = collab.ReasonError
			}
		}
	}

	c.Source = SourceTemplate
	if req.Revision != nil {
		c.Title = g.revise(req, style)
	} else {
		c.Title = g.compose(req, style)
	}
	return c
}

// #endregion generator
