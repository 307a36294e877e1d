package instrument

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/GriffinCanCode/telemetry/internal/config"
	"github.com/GriffinCanCode/telemetry/internal/logging"
	"github.com/GriffinCanCode/telemetry/internal/monitoring"
	"github.com/GriffinCanCode/telemetry/internal/telemetry"
	"github.com/GriffinCanCode/telemetry/internal/telemetry/report"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// manualSource hands signals to subscribers on demand.
type manualSource struct {
	mu  sync.Mutex
	fns map[int]func(Signal)
	n   int
}

func newManualSource() *manualSource {
	return &manualSource{fns: make(map[int]func(Signal))}
}

func (s *manualSource) Subscribe(fn func(Signal)) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	subID := s.n
	s.n++
	s.fns[subID] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.fns, subID)
	}
}

func (s *manualSource) emit(sig Signal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, fn := range s.fns {
		fn(sig)
	}
}

func TestPerfAdapterTimedSignalsBecomeSpans(t *testing.T) {
	tracer := newInstrumentTracer(1)
	src := newManualSource()
	cancel := NewPerfAdapter(tracer).Attach(src)
	defer cancel()

	started := time.Now().Add(-250 * time.Millisecond)
	src.emit(Signal{
		Type:       SignalNavigation,
		Name:       "page_load",
		Start:      started,
		Attributes: map[string]any{"path": "/checkout"},
	})
	src.emit(Signal{
		Type:  SignalResource,
		Name:  "script.js",
		Start: time.Now().Add(-40 * time.Millisecond),
	})

	spans := tracer.Spans()
	require.Len(t, spans, 2)

	nav := spans[0]
	assert.Equal(t, "page_load", nav.Name)
	assert.Equal(t, telemetry.KindNavigation, nav.Kind)
	assert.Equal(t, "/checkout", nav.Attributes["path"])
	// Retro-dated to the observed start, so the duration covers the
	// operation rather than the callback delivery.
	assert.GreaterOrEqual(t, nav.Duration, 250*time.Millisecond)

	assert.Equal(t, telemetry.KindResource, spans[1].Kind)
}

func TestPerfAdapterUntimedSignalsBecomeEvents(t *testing.T) {
	tracer := newInstrumentTracer(1)
	src := newManualSource()
	cancel := NewPerfAdapter(tracer).Attach(src)
	defer cancel()

	src.emit(Signal{Type: SignalHeap, Name: "alloc", Value: 4096})

	require.Empty(t, tracer.Spans())
	events := tracer.Events()
	require.Len(t, events, 1)
	assert.Equal(t, telemetry.EventPerformance, events[0].Type)
	assert.Equal(t, "heap.alloc", events[0].Name)
	assert.Equal(t, float64(4096), events[0].Data["value"])
}

func TestPerfAdapterDetach(t *testing.T) {
	tracer := newInstrumentTracer(1)
	src := newManualSource()
	cancel := NewPerfAdapter(tracer).Attach(src)

	cancel()
	src.emit(Signal{Type: SignalNavigation, Name: "ignored", Start: time.Now()})

	assert.Empty(t, tracer.Spans())
}

func TestRuntimeSourcePublishesHeapSignals(t *testing.T) {
	src := NewRuntimeSource(5 * time.Millisecond)

	var mu sync.Mutex
	var got []Signal
	cancel := src.Subscribe(func(sig Signal) {
		mu.Lock()
		got = append(got, sig)
		mu.Unlock()
	})
	defer cancel()

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) > 0
	}, time.Second, time.Millisecond)

	mu.Lock()
	first := got[0]
	mu.Unlock()
	assert.Equal(t, SignalHeap, first.Type)
	assert.Equal(t, "alloc", first.Name)
	assert.Greater(t, first.Value, float64(0))
}

func TestRuntimeSourceStopsAfterLastUnsubscribe(t *testing.T) {
	src := NewRuntimeSource(5 * time.Millisecond)

	var count int
	var mu sync.Mutex
	cancel := src.Subscribe(func(Signal) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return count > 0
	}, time.Second, time.Millisecond)

	cancel()
	// Let any in-flight delivery settle before snapshotting.
	time.Sleep(15 * time.Millisecond)
	mu.Lock()
	after := count
	mu.Unlock()

	time.Sleep(30 * time.Millisecond)
	mu.Lock()
	final := count
	mu.Unlock()
	assert.Equal(t, after, final)
}

func TestCapturePanicReportsToReporter(t *testing.T) {
	tracer := newInstrumentTracer(1)
	reporter := report.New(config.Default().Report, tracer, logging.NewNop(), monitoring.New(prometheus.NewRegistry()))
	defer reporter.Close()

	func() {
		defer CapturePanic(reporter)
		panic(errors.New("slice index out of range"))
	}()

	// The panic surfaced as a classified error span, and the caller kept
	// running.
	spans := tracer.Spans()
	require.Len(t, spans, 1)
	assert.Equal(t, telemetry.StatusError, spans[0].Status)
	assert.Contains(t, spans[0].Attributes["error.message"], "slice index out of range")
}

func TestGoCapturesGoroutinePanic(t *testing.T) {
	tracer := newInstrumentTracer(1)
	reporter := report.New(config.Default().Report, tracer, logging.NewNop(), monitoring.New(prometheus.NewRegistry()))
	defer reporter.Close()

	Go(reporter, func() { panic("background worker died") })

	assert.Eventually(t, func() bool {
		return len(tracer.Spans()) == 1
	}, time.Second, time.Millisecond)
}
