package orchestrator

// #region imports
import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/czhharrison/MerchantChat/internal/config"
	"github.com/czhharrison/MerchantChat/internal/generate"
	"github.com/czhharrison/MerchantChat/internal/logging"
	"github.com/czhharrison/MerchantChat/internal/metrics"
	"github.com/czhharrison/MerchantChat/internal/preference"
	"github.com/czhharrison/MerchantChat/internal/scoring"
)

// #endregion

// #region refiner-struct

// Refiner runs the generate, evaluate, revise loop around the generator and
// the scoring engine.
type Refiner struct {
	gen          *generate.Generator
	scorer       *scoring.Engine
	policy       RevisionPolicy
	keywordLimit int
	selector     *StyleSelector
	memory       *StyleMemory
	db           *sql.DB
	metrics      *metrics.Metrics
	log          zerolog.Logger
}

// Options carries the optional collaborators of a Refiner. Every field may
// be nil.
type Options struct {
	Memory  *StyleMemory // learned style outcomes
	DB      *sql.DB      // refinement_log provenance
	Metrics *metrics.Metrics
	Logger  *zerolog.Logger
}

// #endregion

// #region constructor

// NewRefiner creates a refiner. When opts.DB is set the refinement_log table
// is created if missing.
func NewRefiner(cfg config.Config, gen *generate.Generator, scorer *scoring.Engine, opts Options) (*Refiner, error) {
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = logging.Component(*opts.Logger, "refine")
	}
	if opts.DB != nil {
		if err := logging.EnsureSchema(opts.DB); err != nil {
			return nil, err
		}
	}
	limit := cfg.Refine.KeywordLimit
	if limit < 1 {
		limit = 5
	}
	return &Refiner{
		gen:          gen,
		scorer:       scorer,
		policy:       NewRevisionPolicy(cfg.Refine.AcceptThreshold),
		keywordLimit: limit,
		selector:     NewStyleSelector(opts.Memory, cfg.StyleNames()),
		memory:       opts.Memory,
		db:           opts.DB,
		metrics:      opts.Metrics,
		log:          log,
	}, nil
}

// Threshold returns the acceptance threshold in use.
func (r *Refiner) Threshold() float64 {
	return r.policy.Threshold()
}

// StyleOrder returns the style trial order for a product and audience.
func (r *Refiner) StyleOrder(category, audience string, hints *preference.Snapshot) []string {
	return r.selector.Order(category, audience, hints)
}

// #endregion

// #region refine

// Refine runs one bounded refinement. It never fails: collaborator problems
// fall back inside the generator and a non-improving revision keeps the
// original candidate.
func (r *Refiner) Refine(ctx context.Context, req RefineRequest) Outcome {
	out := Outcome{RunID: uuid.NewString()}
	keywords := req.Keywords
	if keywords == nil {
		keywords = req.Descriptor.TargetKeywords(r.keywordLimit)
	}

	greq := generate.Request{
		Descriptor: req.Descriptor,
		Style:      req.Style,
		Audience:   req.Audience,
		Hints:      req.Hints,
	}
	first := r.generate(ctx, greq)
	out.enter(StateGenerated)

	rep := r.scorer.Score(first.Title, keywords, req.Audience.Tag)
	out.enter(StateEvaluated)
	out.Attempts = []Attempt{{Candidate: first, Report: rep}}
	out.Candidate, out.Report, out.Provenance = first, rep, generate.ProvenanceGenerated
	out.Decision = DecisionAccepted

	if r.policy.ShouldRevise(rep, 0) {
		out.enter(StateNeedsRevision)
		greq.Style = first.Style
		greq.Revision = &generate.Revision{Previous: first.Title, Report: rep}
		second := r.generate(ctx, greq)
		out.enter(StateRevised)

		if strings.TrimSpace(second.Title) == "" {
			out.Decision = DecisionRevisionEmpty
		} else {
			rep2 := r.scorer.Score(second.Title, keywords, req.Audience.Tag)
			out.enter(StateEvaluated2)
			out.Attempts = append(out.Attempts, Attempt{Candidate: second, Report: rep2})
			if r.policy.PreferRevision(rep, rep2) {
				out.Candidate, out.Report, out.Provenance = second, rep2, generate.ProvenanceRevised
				out.Decision = DecisionRevised
			} else {
				out.Decision = DecisionKeptOriginal
			}
		}
	}
	out.enter(StateAccepted)

	r.record(req, keywords, out)
	return out
}

func (r *Refiner) generate(ctx context.Context, req generate.Request) generate.Candidate {
	c := r.gen.Generate(ctx, req)
	r.metrics.RecordGeneration(string(c.Source), c.Style, c.FallbackReason)
	if c.FallbackReason != "" {
		r.log.Warn().
			Str("style", c.Style).
			Str("reason", c.FallbackReason).
			Msg("collaborator unavailable, using template")
	}
	return c
}

// #endregion

// #region record

// record writes metrics, logs, style memory and provenance for a finished
// run. Persistence errors are logged and never returned.
func (r *Refiner) record(req RefineRequest, keywords []string, out Outcome) {
	initial := out.Attempts[0].Report.Score
	final := out.Report.Score
	style := out.Candidate.Style

	r.metrics.RecordRefinement(string(out.Decision), style, final)
	r.log.Info().
		Str("run_id", out.RunID).
		Str("session_id", req.SessionID).
		Str("style", style).
		Str("audience", req.Audience.Tag).
		Str("decision", string(out.Decision)).
		Float64("initial_score", initial).
		Float64("final_score", final).
		Msg("refinement complete")

	if r.memory != nil {
		acceptedIdx := 0
		if out.Decision == DecisionRevised {
			acceptedIdx = 1
		}
		for i, a := range out.Attempts {
			rec := OutcomeRecord{
				RunID:      out.RunID,
				Category:   req.Descriptor.Category,
				Audience:   req.Audience.Tag,
				Style:      a.Candidate.Style,
				AttemptNum: i,
				Score:      a.Report.Score,
				Source:     string(a.Candidate.Source),
				Accepted:   i == acceptedIdx,
			}
			if err := r.memory.RecordOutcome(rec); err != nil {
				r.log.Warn().Err(err).Str("run_id", out.RunID).Msg("failed to record style outcome")
			}
		}
	}

	if r.db != nil {
		entry := logging.Entry{
			RunID:        out.RunID,
			SessionID:    req.SessionID,
			Style:        style,
			Audience:     req.Audience.Tag,
			Decision:     string(out.Decision),
			Reason:       r.reason(out),
			InitialScore: initial,
			FinalScore:   final,
			RecordJSON:   r.recordJSON(req, keywords, out),
		}
		if err := logging.LogDecision(r.db, entry); err != nil {
			r.log.Warn().Err(err).Str("run_id", out.RunID).Msg("failed to log decision")
		}
	}
}

func (r *Refiner) reason(out Outcome) string {
	initial := out.Attempts[0].Report.Score
	switch out.Decision {
	case DecisionAccepted:
		return fmt.Sprintf("score %.3f >= threshold %.2f", initial, r.policy.Threshold())
	case DecisionRevised:
		return fmt.Sprintf("revision %.3f > original %.3f", out.Report.Score, initial)
	case DecisionKeptOriginal:
		return fmt.Sprintf("revision %.3f <= original %.3f", out.Attempts[len(out.Attempts)-1].Report.Score, initial)
	case DecisionRevisionEmpty:
		return "revision produced no title"
	}
	return ""
}

func (r *Refiner) recordJSON(req RefineRequest, keywords []string, out Outcome) string {
	rec := logging.RefinementRecord{
		RunID:     out.RunID,
		Category:  req.Descriptor.Category,
		Keywords:  keywords,
		Threshold: r.policy.Threshold(),
	}
	for _, a := range out.Attempts {
		rec.Attempts = append(rec.Attempts, logging.RecordAttempt{
			Title:          a.Candidate.Title,
			Source:         string(a.Candidate.Source),
			FallbackReason: a.Candidate.FallbackReason,
			Score:          a.Report.Score,
			Issues:         a.Report.Issues,
		})
	}
	for _, s := range out.Trace {
		rec.Trace = append(rec.Trace, string(s))
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return ""
	}
	return string(data)
}

// #endregion
