package telemetry

import (
	"time"

	"github.com/GriffinCanCode/telemetry/internal/shared/id"
)

// Status represents the final outcome of a span.
type Status string

const (
	StatusUnset Status = "unset"
	StatusOk    Status = "ok"
	StatusError Status = "error"
)

// Kind categorizes what a span measures.
type Kind string

const (
	KindInternal   Kind = "internal"
	KindHTTP       Kind = "http"
	KindNavigation Kind = "navigation"
	KindResource   Kind = "resource"
	KindFunc       Kind = "function"
)

// SpanContext carries the ambient identity attached to a span at creation.
type SpanContext struct {
	UserID    string       `json:"user_id,omitempty"`
	SessionID id.SessionID `json:"session_id"`
	RequestID string       `json:"request_id,omitempty"`
	URL       string       `json:"url,omitempty"`
	Agent     string       `json:"agent,omitempty"`
}

// Span represents a named, timed unit of work with a status and nested events.
//
// While open, a span is owned by the Tracer and mutated only through it.
// Once ended it is immutable; query accessors hand out deep copies.
type Span struct {
	ID         id.SpanID      `json:"id"`
	TraceID    id.TraceID     `json:"trace_id"`
	ParentID   id.SpanID      `json:"parent_id,omitempty"`
	Name       string         `json:"name"`
	Kind       Kind           `json:"kind"`
	StartTime  time.Time      `json:"start_time"`
	EndTime    time.Time      `json:"end_time,omitempty"`
	Duration   time.Duration  `json:"duration_ns,omitempty"`
	Status     Status         `json:"status"`
	Attributes map[string]any `json:"attributes,omitempty"`
	Events     []SpanEvent    `json:"events,omitempty"`
	Context    SpanContext    `json:"context"`

	// noop marks a span denied by sampling or the global disable switch.
	// All mutators on a noop span are safe no-ops and the span is never
	// buffered or exported.
	noop bool
}

// SpanEvent is a timestamped annotation nested inside exactly one span.
type SpanEvent struct {
	ID         id.EventID     `json:"id"`
	Name       string         `json:"name"`
	Timestamp  time.Time      `json:"timestamp"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// TraceContext is a read-only projection of the current position in the
// trace tree, recomputed whenever a span opens or closes.
type TraceContext struct {
	TraceID   id.TraceID   `json:"trace_id"`
	SpanID    id.SpanID    `json:"span_id"`
	ParentID  id.SpanID    `json:"parent_id,omitempty"`
	UserID    string       `json:"user_id,omitempty"`
	SessionID id.SessionID `json:"session_id"`
	RequestID string       `json:"request_id,omitempty"`
}

// IsNoop reports whether the span was denied by sampling or the disable
// switch. Call sites never need to branch on this; it exists for tests and
// diagnostics.
func (s *Span) IsNoop() bool {
	return s.noop
}

// Ended reports whether the span has been closed.
func (s *Span) Ended() bool {
	return !s.EndTime.IsZero()
}

// newNoopSpan returns the inert placeholder handed to denied callers. It has
// a valid shape (non-empty IDs) so downstream attribute access stays safe.
func newNoopSpan(name string, kind Kind) *Span {
	return &Span{
		ID:      id.NewSpanID(),
		TraceID: "",
		Name:    name,
		Kind:    kind,
		Status:  StatusUnset,
		noop:    true,
	}
}

// clone returns a deep copy of the span. Accessors return clones so callers
// cannot mutate pipeline-internal state.
func (s *Span) clone() *Span {
	c := *s
	if s.Attributes != nil {
		c.Attributes = make(map[string]any, len(s.Attributes))
		for k, v := range s.Attributes {
			c.Attributes[k] = v
		}
	}
	if s.Events != nil {
		c.Events = make([]SpanEvent, len(s.Events))
		for i, ev := range s.Events {
			c.Events[i] = ev.clone()
		}
	}
	return &c
}

func (e SpanEvent) clone() SpanEvent {
	c := e
	if e.Attributes != nil {
		c.Attributes = make(map[string]any, len(e.Attributes))
		for k, v := range e.Attributes {
			c.Attributes[k] = v
		}
	}
	return c
}
