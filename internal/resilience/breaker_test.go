package resilience

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreakerStateTransitions(t *testing.T) {
	tests := []struct {
		name          string
		settings      Settings
		attempts      []bool // true = success, false = failure
		expectedState State
	}{
		{
			name: "stays closed on successes",
			settings: Settings{
				MaxProbes: 1,
				Interval:  time.Minute,
				Timeout:   time.Minute,
			},
			attempts:      []bool{true, true, true},
			expectedState: StateClosed,
		},
		{
			name: "opens after consecutive failures",
			settings: Settings{
				MaxProbes: 1,
				Interval:  time.Minute,
				Timeout:   time.Minute,
				ReadyToTrip: func(counts Counts) bool {
					return counts.ConsecutiveFailures >= 3
				},
			},
			attempts:      []bool{false, false, false},
			expectedState: StateOpen,
		},
		{
			name: "success resets the failure streak",
			settings: Settings{
				MaxProbes: 1,
				Interval:  time.Minute,
				Timeout:   time.Minute,
				ReadyToTrip: func(counts Counts) bool {
					return counts.ConsecutiveFailures >= 3
				},
			},
			attempts:      []bool{false, false, true, false, false},
			expectedState: StateClosed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			breaker := New("collector", tt.settings)

			for _, success := range tt.attempts {
				_ = breaker.Execute(func() error {
					if success {
						return nil
					}
					return errors.New("transmission failed")
				})
			}

			assert.Equal(t, tt.expectedState, breaker.State())
		})
	}
}

func TestBreakerRejectsWhileOpen(t *testing.T) {
	breaker := New("collector", Settings{
		Timeout: time.Minute,
		ReadyToTrip: func(counts Counts) bool {
			return counts.ConsecutiveFailures >= 1
		},
	})

	require.Error(t, breaker.Execute(func() error {
		return errors.New("collector down")
	}))
	require.Equal(t, StateOpen, breaker.State())

	called := false
	err := breaker.Execute(func() error {
		called = true
		return nil
	})

	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called, "open breaker must not attempt transmission")
}

func TestBreakerHalfOpenRecovery(t *testing.T) {
	breaker := New("collector", Settings{
		MaxProbes: 1,
		Timeout:   10 * time.Millisecond,
		ReadyToTrip: func(counts Counts) bool {
			return counts.ConsecutiveFailures >= 1
		},
	})

	require.Error(t, breaker.Execute(func() error {
		return errors.New("collector down")
	}))
	require.Equal(t, StateOpen, breaker.State())

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, StateHalfOpen, breaker.State())

	// A successful probe closes the breaker again.
	require.NoError(t, breaker.Execute(func() error {
		return nil
	}))
	assert.Equal(t, StateClosed, breaker.State())
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	breaker := New("collector", Settings{
		MaxProbes: 1,
		Timeout:   10 * time.Millisecond,
		ReadyToTrip: func(counts Counts) bool {
			return counts.ConsecutiveFailures >= 1
		},
	})

	require.Error(t, breaker.Execute(func() error {
		return errors.New("collector down")
	}))

	time.Sleep(20 * time.Millisecond)

	require.Error(t, breaker.Execute(func() error {
		return errors.New("still down")
	}))
	assert.Equal(t, StateOpen, breaker.State())
}

func TestBreakerStateChangeCallback(t *testing.T) {
	var transitions []string

	breaker := New("collector", Settings{
		Timeout: time.Minute,
		ReadyToTrip: func(counts Counts) bool {
			return counts.ConsecutiveFailures >= 1
		},
		OnStateChange: func(name string, from, to State) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})

	_ = breaker.Execute(func() error {
		return errors.New("transmission failed")
	})

	require.Len(t, transitions, 1)
	assert.Equal(t, "closed->open", transitions[0])
}

func TestBreakerCounts(t *testing.T) {
	breaker := New("collector", Settings{Interval: time.Minute})

	_ = breaker.Execute(func() error { return nil })
	_ = breaker.Execute(func() error { return nil })
	_ = breaker.Execute(func() error { return errors.New("failed") })

	counts := breaker.Counts()
	assert.Equal(t, uint32(3), counts.Attempts)
	assert.Equal(t, uint32(2), counts.TotalSuccesses)
	assert.Equal(t, uint32(1), counts.TotalFailures)
	assert.Equal(t, uint32(1), counts.ConsecutiveFailures)
}
