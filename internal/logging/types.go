package logging

import "time"

// #region decision-entry
// Entry is a single row in the refinement_log table.
type Entry struct {
	RunID        string
	SessionID    string
	Style        string
	Audience     string
	Decision     string // "accepted" | "revised" | "kept_original" | "revision_empty"
	Reason       string
	InitialScore float64
	FinalScore   float64
	RecordJSON   string
	CreatedAt    time.Time
}
// #endregion decision-entry

// #region refinement-record
// RefinementRecord captures the full inputs and outputs of one refinement run.
// Serialized as JSON into refinement_log.record_json so a run can be inspected
// later without re-running the engine.
type RefinementRecord struct {
	RunID     string   `json:"run_id"`
	Category  string   `json:"category"`
	Keywords  []string `json:"keywords"`
	Threshold float64  `json:"threshold"`

	Attempts []RecordAttempt `json:"attempts"`

	// States visited, in order
	Trace []string `json:"trace"`
}

// RecordAttempt is one scored candidate within a run.
type RecordAttempt struct {
	Title          string   `json:"title"`
	Source         string   `json:"source"`
	FallbackReason string   `json:"fallback_reason,omitempty"`
	Score          float64  `json:"score"`
	Issues         []string `json:"issues,omitempty"`
}
// #endregion refinement-record
