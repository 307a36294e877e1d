package instrument

import (
	"context"
	"net/http"

	"github.com/GriffinCanCode/telemetry/internal/shared/id"
	"github.com/GriffinCanCode/telemetry/internal/telemetry"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

// Transport is an http.RoundTripper that traces every outbound request.
// Wrap any client with it:
//
//	client := &http.Client{Transport: instrument.NewTransport(nil, tracer)}
type Transport struct {
	base   http.RoundTripper
	tracer *telemetry.Tracer
}

// NewTransport wraps base (http.DefaultTransport when nil).
func NewTransport(base http.RoundTripper, tracer *telemetry.Tracer) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Transport{base: base, tracer: tracer}
}

// RoundTrip opens a span for the request, forwards it with trace headers
// injected, and closes the span from the outcome. The request error is
// always returned unchanged; tracing never alters call behavior.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	span := t.tracer.StartSpan("http."+req.Method, telemetry.KindHTTP, map[string]any{
		"http.method": req.Method,
		"http.url":    req.URL.String(),
		"http.host":   req.URL.Host,
	})

	req = req.Clone(req.Context())
	injectHeaders(req.Header, span)

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		t.tracer.AddSpanEvent(span.ID, "error occurred", map[string]any{"error": err.Error()})
		t.tracer.EndSpan(span.ID, telemetry.StatusError, map[string]any{"error": err.Error()})
		return nil, err
	}

	t.tracer.AddSpanEvent(span.ID, "response received", map[string]any{
		"http.status_code": resp.StatusCode,
	})
	t.tracer.EndSpan(span.ID, statusFor(resp.StatusCode), map[string]any{
		"http.status_code":   resp.StatusCode,
		"http.response_size": resp.ContentLength,
	})
	return resp, nil
}

// spanIDCtxKey carries the open span across resty's request/response hooks.
type spanIDCtxKey struct{}

// Resty instruments a resty client in place. Every request made through the
// client opens a span on start and closes it when the response settles.
func Resty(client *resty.Client, tracer *telemetry.Tracer) *resty.Client {
	client.OnBeforeRequest(func(c *resty.Client, req *resty.Request) error {
		span := tracer.StartSpan("http."+req.Method, telemetry.KindHTTP, map[string]any{
			"http.method": req.Method,
			"http.url":    req.URL,
		})
		req.SetContext(context.WithValue(req.Context(), spanIDCtxKey{}, span.ID))

		headers := make(map[string]string)
		injectHeaderMap(headers, span)
		req.SetHeaders(headers)
		return nil
	})

	client.OnAfterResponse(func(c *resty.Client, resp *resty.Response) error {
		spanID, ok := resp.Request.Context().Value(spanIDCtxKey{}).(id.SpanID)
		if !ok {
			return nil
		}
		tracer.AddSpanEvent(spanID, "response received", map[string]any{
			"http.status_code": resp.StatusCode(),
		})
		tracer.EndSpan(spanID, statusFor(resp.StatusCode()), map[string]any{
			"http.status_code": resp.StatusCode(),
		})
		return nil
	})

	client.OnError(func(req *resty.Request, err error) {
		spanID, ok := req.Context().Value(spanIDCtxKey{}).(id.SpanID)
		if !ok {
			return
		}
		tracer.AddSpanEvent(spanID, "error occurred", map[string]any{"error": err.Error()})
		tracer.EndSpan(spanID, telemetry.StatusError, map[string]any{"error": err.Error()})
	})

	return client
}

func statusFor(code int) telemetry.Status {
	if code >= 400 {
		return telemetry.StatusError
	}
	return telemetry.StatusOk
}

func injectHeaders(h http.Header, span *telemetry.Span) {
	if !span.IsNoop() {
		h.Set(telemetry.HeaderTraceID, span.TraceID.String())
		h.Set(telemetry.HeaderSpanID, span.ID.String())
	}
	h.Set(telemetry.HeaderRequestID, uuid.NewString())
}

func injectHeaderMap(h map[string]string, span *telemetry.Span) {
	if !span.IsNoop() {
		h[telemetry.HeaderTraceID] = span.TraceID.String()
		h[telemetry.HeaderSpanID] = span.ID.String()
	}
	h[telemetry.HeaderRequestID] = uuid.NewString()
}
