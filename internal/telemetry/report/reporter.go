package report

import (
	"sync"
	"time"

	"github.com/GriffinCanCode/telemetry/internal/config"
	"github.com/GriffinCanCode/telemetry/internal/logging"
	"github.com/GriffinCanCode/telemetry/internal/monitoring"
	"github.com/GriffinCanCode/telemetry/internal/shared/id"
	"github.com/GriffinCanCode/telemetry/internal/telemetry"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Notifier receives user-facing error notifications. Blocking reports
// whether the notice should interrupt the user (critical errors only).
type Notifier interface {
	Notify(severity Severity, message string, blocking bool)
}

// Reporter classifies raw errors, emits trace-correlated error spans, and
// runs the retry/notification state machine.
type Reporter struct {
	cfg      config.ReportConfig
	tracer   *telemetry.Tracer
	logger   *logging.Logger
	metrics  *monitoring.Metrics
	notifier Notifier
	limiter  *rate.Limiter
	restart  func()

	mu      sync.Mutex
	pending map[id.ErrorID]*time.Timer
	closed  bool
}

// Option configures optional reporter collaborators.
type Option func(*Reporter)

// WithNotifier wires user-facing notifications. Without one, high and
// critical errors are logged only.
func WithNotifier(n Notifier) Option {
	return func(r *Reporter) { r.notifier = n }
}

// WithRestart wires the forced-restart hook fired after the grace period for
// critical server errors.
func WithRestart(fn func()) Option {
	return func(r *Reporter) { r.restart = fn }
}

// New creates an error reporter bound to the shared tracer.
func New(cfg config.ReportConfig, tracer *telemetry.Tracer, logger *logging.Logger, metrics *monitoring.Metrics, opts ...Option) *Reporter {
	r := &Reporter{
		cfg:     cfg,
		tracer:  tracer,
		logger:  logger.Component("reporter"),
		metrics: metrics,
		limiter: rate.NewLimiter(rate.Limit(cfg.NotifyRate), cfg.NotifyBurst),
		pending: make(map[id.ErrorID]*time.Timer),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Report classifies err, logs it at a level proportional to severity, emits
// an error span on the shared tracer, and dispatches severity-gated side
// effects. The returned StructuredError carries the classification.
func (r *Reporter) Report(err error, context map[string]any) *StructuredError {
	structured := r.wrap(err, context)
	r.dispatch(structured)
	return structured
}

// ReportWithRetry is Report plus recovery: if the error is retryable, op is
// rescheduled with exponential backoff until it succeeds or the retry budget
// is exhausted. Per error ID at most one timer is ever pending.
func (r *Reporter) ReportWithRetry(err error, context map[string]any, op func() error) *StructuredError {
	structured := r.wrap(err, context)
	r.dispatch(structured)
	if structured.Retryable && op != nil {
		r.scheduleRetry(structured, op)
	}
	return structured
}

func (r *Reporter) wrap(err error, context map[string]any) *StructuredError {
	kind, severity, retryable := Classify(err)
	message := "unknown error"
	if err != nil {
		message = err.Error()
	}
	return &StructuredError{
		ID:         id.NewErrorID(),
		Kind:       kind,
		Severity:   severity,
		Message:    message,
		Context:    context,
		Retryable:  retryable,
		MaxRetries: r.cfg.MaxRetries,
	}
}

func (r *Reporter) dispatch(structured *StructuredError) {
	r.metrics.ErrorsReported.WithLabelValues(string(structured.Kind), string(structured.Severity)).Inc()
	r.log(structured)
	r.traceError(structured)

	switch structured.Severity {
	case SeverityLow:
		// Silent.
	case SeverityMedium:
		// Report only; already logged and traced.
	case SeverityHigh:
		r.notify(structured, false)
	case SeverityCritical:
		r.notify(structured, true)
		if structured.Kind == KindServer && r.restart != nil {
			r.scheduleRestart(structured)
		}
	}
}

func (r *Reporter) log(structured *StructuredError) {
	fields := []zap.Field{
		zap.String("error_id", structured.ID.String()),
		zap.String("kind", string(structured.Kind)),
		zap.Bool("retryable", structured.Retryable),
	}
	switch structured.Severity {
	case SeverityLow:
		r.logger.Debug(structured.Message, fields...)
	case SeverityMedium:
		r.logger.Warn(structured.Message, fields...)
	default:
		r.logger.Error(structured.Message, fields...)
	}
}

// traceError emits a closed error-status span so the error is correlated
// with the surrounding trace.
func (r *Reporter) traceError(structured *StructuredError) {
	span := r.tracer.StartSpan("error."+string(structured.Kind), telemetry.KindInternal, map[string]any{
		"error.id":       structured.ID.String(),
		"error.severity": string(structured.Severity),
		"error.message":  structured.Message,
	})
	r.tracer.EndSpan(span.ID, telemetry.StatusError, nil)
}

// notify forwards to the Notifier under the throttle. Dropped notifications
// lose only the user-facing side effect; the report itself already happened.
func (r *Reporter) notify(structured *StructuredError, blocking bool) {
	if r.notifier == nil {
		return
	}
	if !r.limiter.Allow() {
		r.logger.Debug("notification throttled", zap.String("error_id", structured.ID.String()))
		return
	}
	r.notifier.Notify(structured.Severity, structured.Message, blocking)
}

func (r *Reporter) scheduleRestart(structured *StructuredError) {
	r.logger.Error("critical server error, restart scheduled",
		zap.String("error_id", structured.ID.String()),
		zap.Duration("grace", r.cfg.ReloadGrace),
	)
	time.AfterFunc(r.cfg.ReloadGrace, r.restart)
}

// scheduleRetry arms the backoff timer for this error ID. The side map
// guarantees a given ID can never have two timers pending.
func (r *Reporter) scheduleRetry(structured *StructuredError, op func() error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	if structured.RetryCount >= structured.MaxRetries {
		r.logger.Warn("retry budget exhausted",
			zap.String("error_id", structured.ID.String()),
			zap.Int("retries", structured.RetryCount),
		)
		return
	}
	if _, exists := r.pending[structured.ID]; exists {
		return
	}

	delay := r.cfg.BaseDelay * (1 << structured.RetryCount)
	r.metrics.ErrorRetries.Inc()

	r.pending[structured.ID] = time.AfterFunc(delay, func() {
		r.mu.Lock()
		delete(r.pending, structured.ID)
		closed := r.closed
		r.mu.Unlock()
		if closed {
			return
		}

		structured.RetryCount++
		if err := op(); err != nil {
			r.logger.Debug("retry failed",
				zap.String("error_id", structured.ID.String()),
				zap.Int("attempt", structured.RetryCount),
				zap.Error(err),
			)
			r.scheduleRetry(structured, op)
			return
		}
		r.logger.Info("retry succeeded",
			zap.String("error_id", structured.ID.String()),
			zap.Int("attempt", structured.RetryCount),
		)
	})
}

// PendingRetries returns the number of errors with a retry timer armed.
func (r *Reporter) PendingRetries() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// Close cancels all pending retry timers.
func (r *Reporter) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	for errID, timer := range r.pending {
		timer.Stop()
		delete(r.pending, errID)
	}
}
