package telemetry

import (
	"math/rand"
	"sync"
)

// Sampler makes the per-emission recording decision. One uniform draw per
// span-open or tracked event; a draw above the configured rate denies the
// emission. Sampling is a cost optimization, not a correctness mechanism:
// denied emissions simply never enter the pipeline.
type Sampler struct {
	mu   sync.Mutex
	rate float64
	rnd  *rand.Rand
}

// NewSampler creates a sampler recording the given fraction of emissions.
// Rate is clamped to [0, 1].
func NewSampler(rate float64) *Sampler {
	return newSampler(rate, rand.Int63())
}

// newSampler with a fixed seed backs deterministic tests.
func newSampler(rate float64, seed int64) *Sampler {
	if rate < 0 {
		rate = 0
	}
	if rate > 1 {
		rate = 1
	}
	return &Sampler{
		rate: rate,
		rnd:  rand.New(rand.NewSource(seed)),
	}
}

// Sample reports whether this emission should be recorded.
func (s *Sampler) Sample() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rate >= 1 {
		return true
	}
	if s.rate <= 0 {
		return false
	}
	return s.rnd.Float64() < s.rate
}

// Rate returns the configured sampling rate.
func (s *Sampler) Rate() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rate
}
