package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the pipeline.
type Metrics struct {
	// Span lifecycle metrics
	SpansStarted  prometheus.Counter
	SpansEnded    *prometheus.CounterVec
	SpansSampled  prometheus.Counter
	SpansOpen     prometheus.Gauge
	SpanDurations prometheus.Histogram

	// Buffer metrics
	SpansEvicted  prometheus.Counter
	EventsEvicted prometheus.Counter
	EventsTracked *prometheus.CounterVec

	// Export metrics
	BatchesSent    *prometheus.CounterVec
	BatchesFailed  *prometheus.CounterVec
	ItemsExported  *prometheus.CounterVec
	ExportDuration prometheus.Histogram
	QueueDepth     *prometheus.GaugeVec

	// Error reporter metrics
	ErrorsReported *prometheus.CounterVec
	ErrorRetries   prometheus.Counter
}

// New creates a metrics collector registered against the given registry.
// Tests pass a fresh prometheus.NewRegistry so collectors never collide.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		SpansStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "telemetry_spans_started_total",
			Help: "Total number of spans opened",
		}),
		SpansEnded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "telemetry_spans_ended_total",
				Help: "Total number of spans closed, by status",
			},
			[]string{"status"},
		),
		SpansSampled: factory.NewCounter(prometheus.CounterOpts{
			Name: "telemetry_spans_sampled_out_total",
			Help: "Total number of emissions denied by the sampling gate",
		}),
		SpansOpen: factory.NewGauge(prometheus.GaugeOpts{
			Name: "telemetry_spans_open",
			Help: "Number of spans currently open",
		}),
		SpanDurations: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "telemetry_span_duration_seconds",
			Help:    "Closed span durations in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		SpansEvicted: factory.NewCounter(prometheus.CounterOpts{
			Name: "telemetry_spans_evicted_total",
			Help: "Spans dropped oldest-first under buffer pressure",
		}),
		EventsEvicted: factory.NewCounter(prometheus.CounterOpts{
			Name: "telemetry_events_evicted_total",
			Help: "Events dropped oldest-first under buffer pressure",
		}),
		EventsTracked: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "telemetry_events_tracked_total",
				Help: "Telemetry events recorded, by type",
			},
			[]string{"type"},
		),
		BatchesSent: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "telemetry_batches_sent_total",
				Help: "Export batches delivered to the collector, by payload",
			},
			[]string{"payload"},
		),
		BatchesFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "telemetry_batches_failed_total",
				Help: "Export batch transmission failures, by payload",
			},
			[]string{"payload"},
		),
		ItemsExported: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "telemetry_items_exported_total",
				Help: "Spans and events delivered to the collector, by payload",
			},
			[]string{"payload"},
		),
		ExportDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "telemetry_export_duration_seconds",
			Help:    "Batch transmission duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}),
		QueueDepth: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "telemetry_queue_depth",
				Help: "Items buffered and awaiting export, by payload",
			},
			[]string{"payload"},
		),
		ErrorsReported: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "telemetry_errors_reported_total",
				Help: "Application errors classified by the reporter, by kind and severity",
			},
			[]string{"kind", "severity"},
		),
		ErrorRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "telemetry_error_retries_total",
			Help: "Retry attempts scheduled by the error reporter",
		}),
	}
}

// RecordSpanEnd records a span close with its final status and duration.
func (m *Metrics) RecordSpanEnd(status string, duration time.Duration) {
	m.SpansEnded.WithLabelValues(status).Inc()
	m.SpansOpen.Dec()
	m.SpanDurations.Observe(duration.Seconds())
}

// RecordBatch records a transmission outcome for a batch of n items.
func (m *Metrics) RecordBatch(payload string, n int, duration time.Duration, err error) {
	m.ExportDuration.Observe(duration.Seconds())
	if err != nil {
		m.BatchesFailed.WithLabelValues(payload).Inc()
		return
	}
	m.BatchesSent.WithLabelValues(payload).Inc()
	m.ItemsExported.WithLabelValues(payload).Add(float64(n))
}
