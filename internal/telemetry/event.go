package telemetry

import (
	"time"

	"github.com/GriffinCanCode/telemetry/internal/shared/id"
)

// EventType categorizes point-in-time telemetry events.
type EventType string

const (
	EventUsage       EventType = "usage"
	EventInteraction EventType = "interaction"
	EventSystem      EventType = "system"
	EventPerformance EventType = "performance"
	EventError       EventType = "error"
)

// EventMeta carries service identity attached to every tracked event.
type EventMeta struct {
	Version     string   `json:"version"`
	Environment string   `json:"environment"`
	Tags        []string `json:"tags,omitempty"`
}

// Event represents a point-in-time fact, structurally independent of spans.
type Event struct {
	ID        id.EventID     `json:"id"`
	Type      EventType      `json:"type"`
	Name      string         `json:"name"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
	Context   SpanContext    `json:"context"`
	Meta      EventMeta      `json:"meta"`

	noop bool
}

// IsNoop reports whether the event was denied by sampling.
func (e *Event) IsNoop() bool {
	return e.noop
}

func (e *Event) clone() *Event {
	c := *e
	if e.Data != nil {
		c.Data = make(map[string]any, len(e.Data))
		for k, v := range e.Data {
			c.Data[k] = v
		}
	}
	if e.Meta.Tags != nil {
		c.Meta.Tags = append([]string(nil), e.Meta.Tags...)
	}
	return &c
}
