package orchestrator

// #region imports
import (
	"time"

	"github.com/czhharrison/MerchantChat/internal/attributes"
	"github.com/czhharrison/MerchantChat/internal/audience"
	"github.com/czhharrison/MerchantChat/internal/generate"
	"github.com/czhharrison/MerchantChat/internal/preference"
	"github.com/czhharrison/MerchantChat/internal/scoring"
)

// #endregion

// #region state

// State is one step of a refinement run.
type State string

const (
	StateGenerated     State = "generated"
	StateEvaluated     State = "evaluated"
	StateAccepted      State = "accepted"
	StateNeedsRevision State = "needs_revision"
	StateRevised       State = "revised"
	StateEvaluated2    State = "evaluated2"
)

// #endregion

// #region decision

// Decision records how a run ended.
type Decision string

const (
	// DecisionAccepted: the first candidate met the threshold.
	DecisionAccepted Decision = "accepted"
	// DecisionRevised: the revision scored strictly higher and replaced it.
	DecisionRevised Decision = "revised"
	// DecisionKeptOriginal: the revision did not improve on the original.
	DecisionKeptOriginal Decision = "kept_original"
	// DecisionRevisionEmpty: the revision produced no title.
	DecisionRevisionEmpty Decision = "revision_empty"
)

// #endregion

// #region attempt

// Attempt records one scored candidate within a run.
type Attempt struct {
	Candidate generate.Candidate `json:"candidate"`
	Report    scoring.Report     `json:"report"`
}

// #endregion

// #region request

// RefineRequest is the input of one refinement run. A nil Keywords list means
// the descriptor's target keywords are used.
type RefineRequest struct {
	SessionID  string
	Descriptor attributes.Descriptor
	Style      string
	Audience   audience.Profile
	Hints      *preference.Snapshot
	Keywords   []string
}

// #endregion

// #region outcome

// Outcome is the result of one refinement run.
type Outcome struct {
	RunID      string              `json:"run_id"`
	Candidate  generate.Candidate  `json:"candidate"`
	Report     scoring.Report      `json:"report"`
	Provenance generate.Provenance `json:"provenance"`
	Decision   Decision            `json:"decision"`
	Attempts   []Attempt           `json:"attempts"`
	Trace      []State             `json:"trace"`
}

// Revisions returns the number of revision passes performed.
func (o Outcome) Revisions() int {
	if len(o.Attempts) == 0 {
		return 0
	}
	return len(o.Attempts) - 1
}

func (o *Outcome) enter(s State) {
	o.Trace = append(o.Trace, s)
}

// #endregion

// #region outcome-record

// OutcomeRecord is a single row for style_outcomes.
type OutcomeRecord struct {
	RunID      string
	Category   string
	Audience   string
	Style      string
	AttemptNum int
	Score      float64
	Source     string
	Accepted   bool
	CreatedAt  time.Time
}

// #endregion
