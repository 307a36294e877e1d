/*
Package instrument wraps existing call sites so they emit telemetry without
caller involvement.

# Adapters

  - HTTP: a resty middleware (modern client) and an http.RoundTripper
    wrapper (plain net/http callers). Both open a span when the call starts,
    record a "response received" or "error occurred" span event when it
    settles, and close the span with the matching status. Trace headers are
    injected so downstream services can stitch the trace together.
  - Performance: a SignalSource delivers asynchronous performance signals;
    the adapter bridges them into the synchronous tracer API. Timed signals
    (navigation, resource) become short spans, sampled values become
    telemetry events. RuntimeSource is the built-in source, polling Go
    runtime memory and GC statistics.
  - Panics: CapturePanic and Go forward uncaught panics to the error
    reporter, not directly to span creation, so classification stays
    centralized in one place.
*/
package instrument
