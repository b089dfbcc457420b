package orchestrator

import "github.com/czhharrison/MerchantChat/internal/scoring"

// #region constants

// MaxRevisions bounds the refinement loop to a single revision pass.
const MaxRevisions = 1

// DefaultThreshold is the acceptance threshold used when none is configured.
const DefaultThreshold = 0.75

// #endregion

// #region policy

// RevisionPolicy decides whether a candidate needs revision and which of two
// candidates to keep.
type RevisionPolicy struct {
	threshold float64
}

// NewRevisionPolicy creates a policy. Thresholds outside [0,1] fall back to
// DefaultThreshold.
func NewRevisionPolicy(threshold float64) RevisionPolicy {
	if threshold < 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	return RevisionPolicy{threshold: threshold}
}

// Threshold returns the acceptance threshold.
func (p RevisionPolicy) Threshold() float64 {
	return p.threshold
}

// #endregion

// #region should-revise

// ShouldRevise reports whether another revision pass is allowed for a report
// after the given number of revisions.
func (p RevisionPolicy) ShouldRevise(rep scoring.Report, revisions int) bool {
	if revisions >= MaxRevisions {
		return false
	}
	return rep.Score < p.threshold
}

// PreferRevision reports whether the revised report replaces the original.
// Ties keep the original.
func (p RevisionPolicy) PreferRevision(original, revised scoring.Report) bool {
	return revised.Score > original.Score
}

// #endregion
