package telemetry

import (
	"context"
	"sync"

	"github.com/GriffinCanCode/telemetry/internal/shared/id"
)

// tracerContext holds the process-wide "current position in the trace tree".
// Created at the first span, spanID restored to the parent on every close,
// cleared at session teardown.
type tracerContext struct {
	mu        sync.Mutex
	traceID   id.TraceID
	spanID    id.SpanID
	requestID string
}

// Context keys for trace propagation
type contextKey string

const (
	traceIDKey contextKey = "trace_id"
	spanIDKey  contextKey = "span_id"
)

// Propagation headers understood by instrumented HTTP clients and devsink.
const (
	HeaderTraceID   = "X-Trace-ID"
	HeaderSpanID    = "X-Span-ID"
	HeaderRequestID = "X-Request-ID"
)

// ContextWithSpan returns a context carrying the span's trace position.
func ContextWithSpan(ctx context.Context, span *Span) context.Context {
	if span == nil || span.IsNoop() {
		return ctx
	}
	ctx = context.WithValue(ctx, traceIDKey, span.TraceID)
	return context.WithValue(ctx, spanIDKey, span.ID)
}

// TraceIDFromContext retrieves the trace ID from context.
func TraceIDFromContext(ctx context.Context) id.TraceID {
	if traceID, ok := ctx.Value(traceIDKey).(id.TraceID); ok {
		return traceID
	}
	return ""
}

// SpanIDFromContext retrieves the span ID from context.
func SpanIDFromContext(ctx context.Context) id.SpanID {
	if spanID, ok := ctx.Value(spanIDKey).(id.SpanID); ok {
		return spanID
	}
	return ""
}

// InjectTraceHeaders injects the context's trace position into headers.
func InjectTraceHeaders(ctx context.Context, headers map[string]string) {
	if traceID := TraceIDFromContext(ctx); traceID != "" {
		headers[HeaderTraceID] = traceID.String()
	}
	if spanID := SpanIDFromContext(ctx); spanID != "" {
		headers[HeaderSpanID] = spanID.String()
	}
}

// ExtractTraceHeaders reads a trace position from inbound headers.
func ExtractTraceHeaders(headers map[string]string) (id.TraceID, id.SpanID) {
	return id.TraceID(headers[HeaderTraceID]), id.SpanID(headers[HeaderSpanID])
}
