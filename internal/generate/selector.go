package generate

import (
	"math/rand"
	"sync"
)

// Selector picks one of n fragment options. Implementations must return a
// value in [0, n) for n > 0.
type Selector interface {
	Pick(n int) int
}

// FirstSelector always picks the first option. Output is fully reproducible.
type FirstSelector struct{}

// Pick implements Selector.
func (FirstSelector) Pick(int) int { return 0 }

// RandSelector picks uniformly from a seeded source. Safe for concurrent use.
type RandSelector struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandSelector returns a selector seeded with seed.
func NewRandSelector(seed int64) *RandSelector {
	return &RandSelector{rng: rand.New(rand.NewSource(seed))}
}

// Pick implements Selector.
func (s *RandSelector) Pick(n int) int {
	if n <= 1 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(n)
}
