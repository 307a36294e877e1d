package telemetry

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/GriffinCanCode/telemetry/internal/config"
	"github.com/GriffinCanCode/telemetry/internal/logging"
	"github.com/GriffinCanCode/telemetry/internal/monitoring"
	"github.com/GriffinCanCode/telemetry/internal/shared/id"
	"go.uber.org/zap"
)

// Flusher is poked by the tracer whenever new telemetry is buffered, so the
// export pipeline can run its batch-threshold check. Implemented by
// export.Exporter.
type Flusher interface {
	Poke()
}

// Tracer is the span lifecycle controller and the public emit/query surface
// of the pipeline.
//
// StartSpan pushes the current-span pointer; EndSpan pops it back to the
// ended span's parent. The open-span map plus the single current pointer
// encode a call stack: parent pointers only ever reference spans opened
// strictly earlier, so the structure cannot form cycles. The push/pop
// discipline is the tracer's responsibility, not the type system's, and is
// pinned by the tests in this package.
type Tracer struct {
	cfg     *config.Config
	store   *Store
	sampler *Sampler
	logger  *logging.Logger
	metrics *monitoring.Metrics

	// mu (inside Store) guards buffer state; the context mutex below guards
	// only the current trace/span pointers.
	ctx tracerContext

	flusher Flusher

	userID string
	agent  string
	url    string
}

// NewTracer creates the lifecycle controller.
func NewTracer(cfg *config.Config, store *Store, logger *logging.Logger, metrics *monitoring.Metrics) *Tracer {
	host, _ := os.Hostname()
	return &Tracer{
		cfg:     cfg,
		store:   store,
		sampler: NewSampler(cfg.Sampling.Rate),
		logger:  logger.Component("tracer"),
		metrics: metrics,
		agent:   "go/" + runtime.Version(),
		url:     host,
	}
}

// SetFlusher wires the export pipeline. Must be called before emission
// starts; the tracer works without one (nothing is ever exported).
func (t *Tracer) SetFlusher(f Flusher) {
	t.flusher = f
}

// SetUser attaches a user identity to subsequently created spans and events.
func (t *Tracer) SetUser(userID string) {
	t.ctx.mu.Lock()
	defer t.ctx.mu.Unlock()
	t.userID = userID
}

// StartSpan opens a span, nesting it under the currently open span.
//
// If telemetry is globally disabled or the sampling gate denies the
// emission, the returned span is an inert noop: EndSpan and AddSpanEvent on
// it are safe no-ops and it never appears in Spans().
func (t *Tracer) StartSpan(name string, kind Kind, attributes map[string]any) *Span {
	if !t.cfg.Sampling.Enabled {
		return newNoopSpan(name, kind)
	}
	if !t.sampler.Sample() {
		t.metrics.SpansSampled.Inc()
		return newNoopSpan(name, kind)
	}

	t.ctx.mu.Lock()
	if t.ctx.traceID == "" {
		t.ctx.traceID = id.NewTraceID()
	}
	span := &Span{
		ID:         id.NewSpanID(),
		TraceID:    t.ctx.traceID,
		ParentID:   t.ctx.spanID,
		Name:       name,
		Kind:       kind,
		StartTime:  time.Now(),
		Status:     StatusUnset,
		Attributes: copyAttrs(attributes),
		Context: SpanContext{
			UserID:    t.userID,
			SessionID: id.Session(),
			RequestID: t.ctx.requestID,
			URL:       t.url,
			Agent:     t.agent,
		},
	}
	// Push: this span becomes the parent of whatever opens next.
	t.ctx.spanID = span.ID
	t.ctx.mu.Unlock()

	t.store.PutOpen(span)
	t.metrics.SpansStarted.Inc()
	t.metrics.SpansOpen.Inc()

	t.logger.Debug("span started",
		zap.String("span_id", span.ID.String()),
		zap.String("trace_id", span.TraceID.String()),
		zap.String("name", name),
	)
	return span
}

// AddSpanEvent appends a timestamped event to an open span. No-op if the
// span is closed, never tracked, or a noop span.
func (t *Tracer) AddSpanEvent(spanID id.SpanID, name string, attributes map[string]any) {
	event := SpanEvent{
		ID:         id.NewEventID(),
		Name:       name,
		Timestamp:  time.Now(),
		Attributes: copyAttrs(attributes),
	}
	t.store.AddOpenEvent(spanID, event)
}

// EndSpan closes an open span: records end time and duration, merges final
// attributes, moves the span into the ordered buffer, and restores the
// current-span pointer to this span's parent. No-op if the span is not open.
// Pokes the export pipeline afterwards.
func (t *Tracer) EndSpan(spanID id.SpanID, status Status, attributes map[string]any) {
	span, ok := t.store.RemoveOpen(spanID)
	if !ok {
		return
	}

	span.EndTime = time.Now()
	span.Duration = span.EndTime.Sub(span.StartTime)
	span.Status = status
	if len(attributes) > 0 {
		if span.Attributes == nil {
			span.Attributes = make(map[string]any, len(attributes))
		}
		for k, v := range attributes {
			span.Attributes[k] = v
		}
	}

	// Pop: restore the current pointer to the parent.
	t.ctx.mu.Lock()
	t.ctx.spanID = span.ParentID
	t.ctx.mu.Unlock()

	t.store.AppendSpan(span)
	t.metrics.RecordSpanEnd(string(status), span.Duration)

	t.logger.Debug("span ended",
		zap.String("span_id", span.ID.String()),
		zap.String("status", string(status)),
		zap.Duration("duration", span.Duration),
	)

	if t.flusher != nil {
		t.flusher.Poke()
	}
}

// Track records a point-in-time telemetry event. Subject to the same global
// disable switch and sampling gate as spans; a denied call returns an inert
// event that is never buffered.
func (t *Tracer) Track(eventType EventType, name string, data map[string]any, tags []string) *Event {
	event := &Event{
		ID:        id.NewEventID(),
		Type:      eventType,
		Name:      name,
		Timestamp: time.Now(),
		Data:      copyAttrs(data),
		Meta: EventMeta{
			Version:     t.cfg.Service.Version,
			Environment: t.cfg.Service.Environment,
			Tags:        append([]string(nil), tags...),
		},
	}

	if !t.cfg.Sampling.Enabled || !t.sampler.Sample() {
		event.noop = true
		return event
	}

	t.ctx.mu.Lock()
	event.Context = SpanContext{
		UserID:    t.userID,
		SessionID: id.Session(),
		RequestID: t.ctx.requestID,
		URL:       t.url,
		Agent:     t.agent,
	}
	t.ctx.mu.Unlock()

	t.store.AppendEvent(event)
	t.metrics.EventsTracked.WithLabelValues(string(eventType)).Inc()

	if t.flusher != nil {
		t.flusher.Poke()
	}
	return event
}

// TraceFunc runs fn inside a span, closing it on every exit path. A normal
// return closes with StatusOk, an error return with StatusError and the
// error message, and a panic closes with StatusError before re-panicking.
func (t *Tracer) TraceFunc(name string, kind Kind, fn func(span *Span) error) error {
	span := t.StartSpan(name, kind, nil)
	defer func() {
		if r := recover(); r != nil {
			t.EndSpan(span.ID, StatusError, map[string]any{"panic": fmt.Sprint(r)})
			panic(r)
		}
	}()

	if err := fn(span); err != nil {
		t.EndSpan(span.ID, StatusError, map[string]any{"error": err.Error()})
		return err
	}
	t.EndSpan(span.ID, StatusOk, nil)
	return nil
}

// TraceFuncCtx is TraceFunc with context propagation: fn receives a context
// carrying the span's trace position, for handing to outbound calls.
func (t *Tracer) TraceFuncCtx(ctx context.Context, name string, kind Kind, fn func(ctx context.Context, span *Span) error) error {
	span := t.StartSpan(name, kind, nil)
	ctx = ContextWithSpan(ctx, span)
	defer func() {
		if r := recover(); r != nil {
			t.EndSpan(span.ID, StatusError, map[string]any{"panic": fmt.Sprint(r)})
			panic(r)
		}
	}()

	if err := fn(ctx, span); err != nil {
		t.EndSpan(span.ID, StatusError, map[string]any{"error": err.Error()})
		return err
	}
	t.EndSpan(span.ID, StatusOk, nil)
	return nil
}

// ============================================================================
// Query surface (snapshots only)
// ============================================================================

// Spans returns deep copies of the finished, not-yet-exported spans.
func (t *Tracer) Spans() []*Span {
	return t.store.SpanSnapshot()
}

// ActiveSpans returns deep copies of the currently open spans.
func (t *Tracer) ActiveSpans() []*Span {
	return t.store.OpenSnapshot()
}

// SpansByTraceID returns buffered spans belonging to the given trace.
func (t *Tracer) SpansByTraceID(traceID id.TraceID) []*Span {
	var out []*Span
	for _, span := range t.store.SpanSnapshot() {
		if span.TraceID == traceID {
			out = append(out, span)
		}
	}
	return out
}

// SpansByKind returns buffered spans of the given kind.
func (t *Tracer) SpansByKind(kind Kind) []*Span {
	var out []*Span
	for _, span := range t.store.SpanSnapshot() {
		if span.Kind == kind {
			out = append(out, span)
		}
	}
	return out
}

// Events returns deep copies of the buffered telemetry events.
func (t *Tracer) Events() []*Event {
	return t.store.EventSnapshot()
}

// CurrentContext returns the current position in the trace tree. The zero
// TraceContext (empty trace ID) means no span has opened yet this session.
func (t *Tracer) CurrentContext() TraceContext {
	t.ctx.mu.Lock()
	defer t.ctx.mu.Unlock()
	parentID, _ := t.store.ParentOfOpen(t.ctx.spanID)
	return TraceContext{
		TraceID:   t.ctx.traceID,
		SpanID:    t.ctx.spanID,
		ParentID:  parentID,
		UserID:    t.userID,
		SessionID: id.Session(),
		RequestID: t.ctx.requestID,
	}
}

// Teardown clears the current trace context and the cached session ID.
// Buffered telemetry is left in place for a final Flush by the exporter.
func (t *Tracer) Teardown() {
	t.ctx.mu.Lock()
	t.ctx.traceID = ""
	t.ctx.spanID = ""
	t.ctx.requestID = ""
	t.ctx.mu.Unlock()
	id.ResetSession()
}

func copyAttrs(attrs map[string]any) map[string]any {
	if attrs == nil {
		return nil
	}
	out := make(map[string]any, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}
	return out
}
