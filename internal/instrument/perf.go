package instrument

import (
	"runtime"
	"sync"
	"time"

	"github.com/GriffinCanCode/telemetry/internal/telemetry"
)

// SignalType names a performance signal class.
type SignalType string

const (
	SignalNavigation  SignalType = "navigation"
	SignalResource    SignalType = "resource"
	SignalPaint       SignalType = "paint"
	SignalLCP         SignalType = "largest-contentful-paint"
	SignalFirstInput  SignalType = "first-input"
	SignalLayoutShift SignalType = "layout-shift"
	SignalHeap        SignalType = "heap"
	SignalGC          SignalType = "gc"
)

// Signal is one asynchronous performance observation.
type Signal struct {
	Type       SignalType
	Name       string
	Start      time.Time
	Duration   time.Duration
	Value      float64
	Attributes map[string]any
}

// SignalSource delivers performance signals asynchronously. Subscribe
// returns a cancel function; after cancel returns no further callbacks run.
type SignalSource interface {
	Subscribe(fn func(Signal)) (cancel func())
}

// PerfAdapter bridges async performance callbacks into the synchronous
// tracer API: timed signals (navigation, resource) become short spans,
// everything else becomes a telemetry event.
type PerfAdapter struct {
	tracer *telemetry.Tracer
}

// NewPerfAdapter creates the adapter over the shared tracer.
func NewPerfAdapter(tracer *telemetry.Tracer) *PerfAdapter {
	return &PerfAdapter{tracer: tracer}
}

// Attach subscribes the adapter to a source. The returned cancel detaches.
func (a *PerfAdapter) Attach(src SignalSource) (cancel func()) {
	return src.Subscribe(a.handle)
}

func (a *PerfAdapter) handle(sig Signal) {
	switch sig.Type {
	case SignalNavigation, SignalResource:
		a.recordSpan(sig)
	default:
		a.recordEvent(sig)
	}
}

// recordSpan converts a timed signal into a closed span. The span is
// retro-dated to the signal's start so its duration reflects the observed
// operation, not the delivery lag.
func (a *PerfAdapter) recordSpan(sig Signal) {
	kind := telemetry.KindNavigation
	if sig.Type == SignalResource {
		kind = telemetry.KindResource
	}

	span := a.tracer.StartSpan(sig.Name, kind, sig.Attributes)
	if !span.IsNoop() && !sig.Start.IsZero() {
		span.StartTime = sig.Start
	}
	a.tracer.EndSpan(span.ID, telemetry.StatusOk, nil)
}

func (a *PerfAdapter) recordEvent(sig Signal) {
	data := map[string]any{"value": sig.Value}
	for k, v := range sig.Attributes {
		data[k] = v
	}
	a.tracer.Track(telemetry.EventPerformance, string(sig.Type)+"."+sig.Name, data, nil)
}

// ============================================================================
// Runtime source
// ============================================================================

// RuntimeSource polls Go runtime memory and GC statistics and publishes
// them as performance signals. It is the process-native analog of the host
// environment's performance observer.
type RuntimeSource struct {
	interval time.Duration

	mu     sync.Mutex
	subs   map[int]func(Signal)
	nextID int
	stop   chan struct{}
	lastGC uint32
}

// NewRuntimeSource creates a source polling at the given interval.
func NewRuntimeSource(interval time.Duration) *RuntimeSource {
	return &RuntimeSource{
		interval: interval,
		subs:     make(map[int]func(Signal)),
	}
}

// Subscribe registers a callback. The first subscriber starts the poller.
func (s *RuntimeSource) Subscribe(fn func(Signal)) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	subID := s.nextID
	s.nextID++
	s.subs[subID] = fn

	if s.stop == nil {
		s.stop = make(chan struct{})
		go s.poll(s.stop)
	}

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, subID)
		if len(s.subs) == 0 && s.stop != nil {
			close(s.stop)
			s.stop = nil
		}
	}
}

func (s *RuntimeSource) poll(stop chan struct{}) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.sample()
		}
	}
}

func (s *RuntimeSource) sample() {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	now := time.Now()

	s.publish(Signal{
		Type:  SignalHeap,
		Name:  "alloc",
		Start: now,
		Value: float64(stats.HeapAlloc),
		Attributes: map[string]any{
			"heap_objects": stats.HeapObjects,
			"goroutines":   runtime.NumGoroutine(),
		},
	})

	s.mu.Lock()
	gcDelta := stats.NumGC - s.lastGC
	s.lastGC = stats.NumGC
	s.mu.Unlock()

	if gcDelta > 0 {
		s.publish(Signal{
			Type:  SignalGC,
			Name:  "pause",
			Start: now,
			Value: float64(stats.PauseNs[(stats.NumGC+255)%256]),
			Attributes: map[string]any{
				"collections": gcDelta,
			},
		})
	}
}

func (s *RuntimeSource) publish(sig Signal) {
	s.mu.Lock()
	subs := make([]func(Signal), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(sig)
	}
}
