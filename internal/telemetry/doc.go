/*
Package telemetry implements the client-side span and event pipeline.

# Overview

This package captures spans and point-in-time telemetry events inside a
running service, buffers them under bounded memory, and hands them to the
export pipeline (see the export subpackage) for delivery to a collector.
Emission is fire-and-forget: no failure in buffering or export is ever
surfaced to the caller that emitted the telemetry.

# Components

  - Tracer: span lifecycle controller and the public emit/query surface
  - Store: bounded append-ordered buffer plus the open-span map
  - Sampler: per-emission probabilistic recording decision

# Span lifecycle

A span is owned by the Tracer while open, tracked in the open-span map keyed
by ID. EndSpan moves it into the append-only ordered buffer and deletes the
open entry: ownership transfers from "mutable, keyed" to "immutable, ordered".
Parent/child links encode the same nesting a call stack would; StartSpan
pushes the current-span pointer and EndSpan pops it back to the ended span's
parent. The push/pop discipline is enforced by the Tracer, not the type
system, and is pinned down by the tests in tracer_test.go.

# Sampling

A denied emission returns an inert noop span instead of nil, so call sites
never need nil checks. Noop spans accept every mutator as a safe no-op and
never reach the buffer or the exporter.

# Usage

	tracer := telemetry.NewTracer(cfg, store, logger, metrics)

	span := tracer.StartSpan("checkout", telemetry.KindInternal, nil)
	tracer.AddSpanEvent(span.ID, "cart validated", nil)
	tracer.EndSpan(span.ID, telemetry.StatusOk, nil)

	// Scoped form, closed on every exit path including panic:
	err := tracer.TraceFunc("charge", telemetry.KindInternal, func(span *telemetry.Span) error {
		return chargeCard()
	})

# Delivery guarantees

Buffers are bounded; append beyond capacity evicts the oldest entry first.
Evicted-but-not-yet-exported telemetry is permanently lost. This is an
explicit at-most-once, best-effort contract: bounded memory wins over
guaranteed delivery.
*/
package telemetry
