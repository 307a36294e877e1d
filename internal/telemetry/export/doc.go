/*
Package export drains the telemetry store in fixed-size batches and ships
them to a remote collector.

# Pipeline

The exporter watches the store's FIFO buffers. When a buffer reaches the
configured batch size a flush runs immediately; otherwise a single timer is
armed for the batch timeout. A boolean in-flight guard makes the batch cycle
single-flight: however many triggers fire concurrently (threshold crossings,
the timer, an explicit Flush), at most one transmission is in progress at any
moment, and every other trigger is a no-op until it completes.

# Failure recovery

A failed batch is re-inserted at the FRONT of the queue, keeping the order
collectors observe temporal. After any cycle that leaves the queue non-empty,
a retry is scheduled after a fixed delay rather than looping immediately, so
a down collector is not busy-spun against. Transmission failures are logged
and recovered locally; they are never surfaced to the code that emitted the
telemetry.

# Transport

Batches go out as an HTTP POST with a JSON body
{spans|events, serviceName, serviceVersion, timestamp}; any non-2xx response
counts as failure. Bodies are gzip-compressed when configured. A circuit
breaker wraps transmissions so a known-down collector fails fast, and each
exported batch is mirrored best-effort into a bounded local cache file for
crash-survival inspection.
*/
package export
