package orchestrator

import (
	"github.com/czhharrison/MerchantChat/internal/preference"
)

// #region selector

// StyleSelector orders style trials from preference hints, learned outcomes,
// and the configured table order.
type StyleSelector struct {
	memory *StyleMemory // nil = no learning
	styles []string
}

// NewStyleSelector creates a selector over the configured styles with
// optional memory backing.
func NewStyleSelector(memory *StyleMemory, styles []string) *StyleSelector {
	return &StyleSelector{memory: memory, styles: append([]string(nil), styles...)}
}

// #endregion

// #region order

// Order returns every configured style exactly once: snapshot-preferred
// styles first, then the learned best style, then table order. Styles the
// snapshot marks as disliked move to the end.
func (s *StyleSelector) Order(category, audience string, hints *preference.Snapshot) []string {
	known := make(map[string]bool, len(s.styles))
	for _, st := range s.styles {
		known[st] = true
	}
	seen := make(map[string]bool, len(s.styles))
	out := make([]string, 0, len(s.styles))
	var disliked []string

	add := func(st string) {
		if !known[st] || seen[st] {
			return
		}
		seen[st] = true
		if hints != nil && hints.Dislikes(st) {
			disliked = append(disliked, st)
			return
		}
		out = append(out, st)
	}

	if hints != nil {
		for _, st := range hints.PreferredStyles {
			add(st)
		}
	}
	if learned := s.Learned(category, audience); learned != "" {
		add(learned)
	}
	for _, st := range s.styles {
		add(st)
	}
	return append(out, disliked...)
}

// Learned returns the memory's best style for (category, audience), or "".
func (s *StyleSelector) Learned(category, audience string) string {
	if s.memory == nil {
		return ""
	}
	best, _, err := s.memory.BestStyle(category, audience)
	if err != nil {
		return ""
	}
	return best
}

// #endregion
