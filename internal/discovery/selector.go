package discovery

import (
	"math/rand/v2"
	"sync"
)

// Selector picks one replica base URL out of a set.
type Selector interface {
	Choose(replicas []string) (string, bool)
}

// RandomSelector picks uniformly at random. It has no notion of replica health
// or load; a stateless client has no view of either.
type RandomSelector struct {
	mu  sync.Mutex
	rng *rand.Rand // nil => package-level generator
}

// NewRandomSelector uses rng when given (tests pass a seeded one).
func NewRandomSelector(rng *rand.Rand) *RandomSelector {
	return &RandomSelector{rng: rng}
}

// Choose returns false for an empty set.
func (s *RandomSelector) Choose(replicas []string) (string, bool) {
	if len(replicas) == 0 {
		return "", false
	}
	return replicas[s.intN(len(replicas))], true
}

func (s *RandomSelector) intN(n int) int {
	if s.rng == nil {
		return rand.IntN(n)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}
