package export

import (
	"context"
	"sync"
	"time"

	"github.com/GriffinCanCode/telemetry/internal/config"
	"github.com/GriffinCanCode/telemetry/internal/logging"
	"github.com/GriffinCanCode/telemetry/internal/monitoring"
	"github.com/GriffinCanCode/telemetry/internal/telemetry"
	"go.uber.org/zap"
)

// Transport ships a drained batch to the collector. Implementations must
// treat any non-2xx response as an error.
type Transport interface {
	SendSpans(ctx context.Context, spans []*telemetry.Span) error
	SendEvents(ctx context.Context, events []*telemetry.Event) error
}

// Exporter is the batch export pipeline: a FIFO queue (the store, consumed
// destructively), one scheduled-flush timer, and the in-flight guard.
type Exporter struct {
	cfg       config.ExportConfig
	store     *telemetry.Store
	transport Transport
	logger    *logging.Logger
	metrics   *monitoring.Metrics

	mu         sync.Mutex
	processing bool
	timer      *time.Timer
	closed     bool
}

// New creates the export pipeline over the given store and transport.
func New(cfg config.ExportConfig, store *telemetry.Store, transport Transport, logger *logging.Logger, metrics *monitoring.Metrics) *Exporter {
	return &Exporter{
		cfg:       cfg,
		store:     store,
		transport: transport,
		logger:    logger.Component("exporter"),
		metrics:   metrics,
	}
}

// Poke runs the batch-threshold check. Called by the tracer after every
// append: a full batch flushes immediately, otherwise a single timer is
// armed for the batch timeout.
func (e *Exporter) Poke() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}

	spanCount := e.store.SpanCount()
	eventCount := e.store.EventCount()
	e.metrics.QueueDepth.WithLabelValues("spans").Set(float64(spanCount))
	e.metrics.QueueDepth.WithLabelValues("events").Set(float64(eventCount))

	if spanCount >= e.cfg.BatchSize || eventCount >= e.cfg.BatchSize {
		e.mu.Unlock()
		go e.ProcessBatch()
		return
	}

	if e.timer == nil && (spanCount > 0 || eventCount > 0) {
		e.timer = time.AfterFunc(e.cfg.BatchTimeout, func() {
			e.clearTimer()
			e.ProcessBatch()
		})
	}
	e.mu.Unlock()
}

// ProcessBatch drains up to one batch of spans and one of events and ships
// them. Reentrancy guard: if a cycle is already in flight, or the queue is
// empty, the call returns immediately; at most one transmission is in
// flight at a time no matter how many triggers race.
func (e *Exporter) ProcessBatch() {
	e.mu.Lock()
	if e.processing || e.closed || (e.store.SpanCount() == 0 && e.store.EventCount() == 0) {
		e.mu.Unlock()
		return
	}
	e.processing = true
	e.stopTimerLocked()
	e.mu.Unlock()

	e.runCycle()

	e.mu.Lock()
	e.processing = false
	remaining := e.store.SpanCount() + e.store.EventCount()
	e.metrics.QueueDepth.WithLabelValues("spans").Set(float64(e.store.SpanCount()))
	e.metrics.QueueDepth.WithLabelValues("events").Set(float64(e.store.EventCount()))
	if remaining > 0 && !e.closed && e.timer == nil {
		// Fixed delay before the next cycle; an immediate loop would
		// busy-spin against a down collector.
		e.timer = time.AfterFunc(e.cfg.RetryDelay, func() {
			e.clearTimer()
			e.ProcessBatch()
		})
	}
	e.mu.Unlock()
}

// runCycle performs one transmission attempt per non-empty buffer. Failed
// batches are re-inserted at the front so temporal ordering survives.
func (e *Exporter) runCycle() {
	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.RequestTimeout)
	defer cancel()

	if spans := e.store.DrainSpans(e.cfg.BatchSize); len(spans) > 0 {
		start := time.Now()
		err := e.transport.SendSpans(ctx, spans)
		e.metrics.RecordBatch("spans", len(spans), time.Since(start), err)
		if err != nil {
			e.store.RequeueSpans(spans)
			e.logger.Warn("span batch transmission failed, requeued",
				zap.Int("batch_size", len(spans)),
				zap.Error(err),
			)
		} else {
			e.logger.Debug("span batch exported", zap.Int("batch_size", len(spans)))
		}
	}

	if events := e.store.DrainEvents(e.cfg.BatchSize); len(events) > 0 {
		start := time.Now()
		err := e.transport.SendEvents(ctx, events)
		e.metrics.RecordBatch("events", len(events), time.Since(start), err)
		if err != nil {
			e.store.RequeueEvents(events)
			e.logger.Warn("event batch transmission failed, requeued",
				zap.Int("batch_size", len(events)),
				zap.Error(err),
			)
		} else {
			e.logger.Debug("event batch exported", zap.Int("batch_size", len(events)))
		}
	}
}

// Flush drains the queue as far as the collector allows, for page-teardown
// and shutdown hooks. Cycles run back to back until the queue empties or a
// transmission fails; best effort, the remaining queue is left intact.
func (e *Exporter) Flush() {
	for {
		e.mu.Lock()
		if e.closed {
			e.mu.Unlock()
			return
		}
		if e.processing {
			// An in-flight cycle is already draining; nothing to add.
			e.mu.Unlock()
			return
		}
		if e.store.SpanCount() == 0 && e.store.EventCount() == 0 {
			e.stopTimerLocked()
			e.mu.Unlock()
			return
		}
		before := e.store.SpanCount() + e.store.EventCount()
		e.processing = true
		e.stopTimerLocked()
		e.mu.Unlock()

		e.runCycle()

		e.mu.Lock()
		e.processing = false
		after := e.store.SpanCount() + e.store.EventCount()
		e.mu.Unlock()

		// No progress means the collector is rejecting; stop rather than
		// spinning inside a shutdown hook.
		if after >= before {
			return
		}
	}
}

// Close flushes once and stops the pipeline. Pokes after Close are ignored.
func (e *Exporter) Close() {
	e.Flush()
	e.mu.Lock()
	e.closed = true
	e.stopTimerLocked()
	e.mu.Unlock()
}

func (e *Exporter) clearTimer() {
	e.mu.Lock()
	e.timer = nil
	e.mu.Unlock()
}

func (e *Exporter) stopTimerLocked() {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}
