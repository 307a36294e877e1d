package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSamplerClampsRate(t *testing.T) {
	tests := []struct {
		name string
		rate float64
		want float64
	}{
		{"negative clamps to zero", -0.5, 0},
		{"zero stays zero", 0, 0},
		{"fraction unchanged", 0.25, 0.25},
		{"one stays one", 1, 1},
		{"above one clamps to one", 1.5, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSampler(tt.rate)
			assert.Equal(t, tt.want, s.Rate())
		})
	}
}

func TestSamplerBoundaryRates(t *testing.T) {
	always := NewSampler(1)
	never := NewSampler(0)

	for i := 0; i < 100; i++ {
		assert.True(t, always.Sample())
		assert.False(t, never.Sample())
	}
}

func TestSamplerFractionalRate(t *testing.T) {
	s := newSampler(0.5, 42)

	recorded := 0
	const draws = 10000
	for i := 0; i < draws; i++ {
		if s.Sample() {
			recorded++
		}
	}

	ratio := float64(recorded) / draws
	assert.InDelta(t, 0.5, ratio, 0.05)
}
