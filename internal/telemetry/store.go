package telemetry

import (
	"sync"

	"github.com/GriffinCanCode/telemetry/internal/monitoring"
	"github.com/GriffinCanCode/telemetry/internal/shared/id"
)

// Store is the bounded in-memory buffer behind the pipeline: an
// append-ordered sequence of finished spans and tracked events, plus the map
// of still-open spans.
//
// The ordered buffers double as the export FIFO; the exporter consumes them
// destructively from the front. Appends beyond the configured caps evict the
// oldest buffered entry first. Evicted-but-not-yet-exported telemetry is
// permanently lost (at-most-once delivery).
//
// Only the Tracer mutates the open-span map and only the Tracer and the
// exporter mutate the ordered buffers.
type Store struct {
	mu sync.Mutex

	spans  []*Span
	events []*Event
	open   map[id.SpanID]*Span

	maxSpans  int
	maxEvents int

	metrics *monitoring.Metrics
}

// NewStore creates a store with the given capacity caps. Caps of zero or
// below fall back to 1 so the buffer can always hold the newest entry.
func NewStore(maxSpans, maxEvents int, metrics *monitoring.Metrics) *Store {
	if maxSpans <= 0 {
		maxSpans = 1
	}
	if maxEvents <= 0 {
		maxEvents = 1
	}
	return &Store{
		open:      make(map[id.SpanID]*Span),
		maxSpans:  maxSpans,
		maxEvents: maxEvents,
		metrics:   metrics,
	}
}

// ============================================================================
// Open-span map
// ============================================================================

// PutOpen registers a newly started span as open.
func (s *Store) PutOpen(span *Span) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open[span.ID] = span
}

// RemoveOpen deletes and returns the open span, if any. After removal the
// caller owns the span exclusively.
func (s *Store) RemoveOpen(spanID id.SpanID) (*Span, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	span, ok := s.open[spanID]
	if ok {
		delete(s.open, spanID)
	}
	return span, ok
}

// AddOpenEvent appends a span event to an open span. Returns false if the
// span is not currently open (already closed or never tracked).
func (s *Store) AddOpenEvent(spanID id.SpanID, event SpanEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	span, ok := s.open[spanID]
	if !ok {
		return false
	}
	span.Events = append(span.Events, event)
	return true
}

// ParentOfOpen returns the parent ID of an open span. Returns false if the
// span is not currently open.
func (s *Store) ParentOfOpen(spanID id.SpanID) (id.SpanID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	span, ok := s.open[spanID]
	if !ok {
		return "", false
	}
	return span.ParentID, true
}

// OpenCount returns the number of currently open spans.
func (s *Store) OpenCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.open)
}

// OpenSnapshot returns deep copies of all open spans.
func (s *Store) OpenSnapshot() []*Span {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Span, 0, len(s.open))
	for _, span := range s.open {
		out = append(out, span.clone())
	}
	return out
}

// ============================================================================
// Ordered buffers
// ============================================================================

// AppendSpan appends a finished span, evicting the oldest buffered span when
// the cap is exceeded.
func (s *Store) AppendSpan(span *Span) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spans = append(s.spans, span)
	if evicted := len(s.spans) - s.maxSpans; evicted > 0 {
		s.spans = append([]*Span(nil), s.spans[evicted:]...)
		s.metrics.SpansEvicted.Add(float64(evicted))
	}
}

// AppendEvent appends a tracked event, evicting the oldest buffered event
// when the cap is exceeded.
func (s *Store) AppendEvent(event *Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	if evicted := len(s.events) - s.maxEvents; evicted > 0 {
		s.events = append([]*Event(nil), s.events[evicted:]...)
		s.metrics.EventsEvicted.Add(float64(evicted))
	}
}

// SpanCount returns the number of buffered (finished, unexported) spans.
func (s *Store) SpanCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.spans)
}

// EventCount returns the number of buffered (unexported) events.
func (s *Store) EventCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

// SpanSnapshot returns deep copies of the buffered spans in append order.
func (s *Store) SpanSnapshot() []*Span {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Span, len(s.spans))
	for i, span := range s.spans {
		out[i] = span.clone()
	}
	return out
}

// EventSnapshot returns deep copies of the buffered events in append order.
func (s *Store) EventSnapshot() []*Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Event, len(s.events))
	for i, ev := range s.events {
		out[i] = ev.clone()
	}
	return out
}

// ============================================================================
// Export FIFO
// ============================================================================

// DrainSpans removes and returns up to n spans from the front of the buffer.
func (s *Store) DrainSpans(n int) []*Span {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n > len(s.spans) {
		n = len(s.spans)
	}
	if n == 0 {
		return nil
	}
	batch := s.spans[:n]
	s.spans = append([]*Span(nil), s.spans[n:]...)
	return batch
}

// DrainEvents removes and returns up to n events from the front of the buffer.
func (s *Store) DrainEvents(n int) []*Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n > len(s.events) {
		n = len(s.events)
	}
	if n == 0 {
		return nil
	}
	batch := s.events[:n]
	s.events = append([]*Event(nil), s.events[n:]...)
	return batch
}

// RequeueSpans re-inserts a failed batch at the FRONT of the buffer so the
// collector still observes spans in temporal order. The cap is re-applied
// afterwards, evicting from the front if the requeue overflows it.
func (s *Store) RequeueSpans(batch []*Span) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spans = append(append([]*Span(nil), batch...), s.spans...)
	if evicted := len(s.spans) - s.maxSpans; evicted > 0 {
		s.spans = append([]*Span(nil), s.spans[evicted:]...)
		s.metrics.SpansEvicted.Add(float64(evicted))
	}
}

// RequeueEvents re-inserts a failed event batch at the front of the buffer.
func (s *Store) RequeueEvents(batch []*Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(append([]*Event(nil), batch...), s.events...)
	if evicted := len(s.events) - s.maxEvents; evicted > 0 {
		s.events = append([]*Event(nil), s.events[evicted:]...)
		s.metrics.EventsEvicted.Add(float64(evicted))
	}
}

// Clear empties the ordered buffers. Open spans are left untouched.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spans = nil
	s.events = nil
}
