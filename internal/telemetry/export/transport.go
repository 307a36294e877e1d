package export

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/GriffinCanCode/telemetry/internal/config"
	"github.com/GriffinCanCode/telemetry/internal/logging"
	"github.com/GriffinCanCode/telemetry/internal/resilience"
	"github.com/GriffinCanCode/telemetry/internal/shared/id"
	"github.com/GriffinCanCode/telemetry/internal/telemetry"
	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"
)

// spanPayload is the wire body for a span batch.
type spanPayload struct {
	Spans          []*telemetry.Span `json:"spans"`
	ServiceName    string            `json:"serviceName"`
	ServiceVersion string            `json:"serviceVersion"`
	Timestamp      time.Time         `json:"timestamp"`
}

// eventPayload is the wire body for an event batch.
type eventPayload struct {
	Events         []*telemetry.Event `json:"events"`
	ServiceName    string             `json:"serviceName"`
	ServiceVersion string             `json:"serviceVersion"`
	Timestamp      time.Time          `json:"timestamp"`
}

// HTTPTransport posts batches to the collector endpoint as JSON, optionally
// gzip-compressed, behind a circuit breaker. Exported batches are mirrored
// best-effort into the local cache.
type HTTPTransport struct {
	client   *resty.Client
	endpoint string
	service  config.ServiceConfig
	compress bool
	breaker  *resilience.Breaker
	cache    *Cache
	logger   *logging.Logger
}

// NewHTTPTransport builds the production transport: resty over a
// retryable HTTP client (transport-level retries for transient network
// faults; batch-level requeueing stays with the exporter).
func NewHTTPTransport(exportCfg config.ExportConfig, service config.ServiceConfig, cache *Cache, logger *logging.Logger) *HTTPTransport {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 2
	retryClient.RetryWaitMin = 200 * time.Millisecond
	retryClient.RetryWaitMax = 2 * time.Second
	retryClient.Logger = nil

	client := resty.NewWithClient(retryClient.StandardClient()).
		SetTimeout(exportCfg.RequestTimeout).
		SetHeader("User-Agent", "telemetry-export/"+service.Version).
		SetHeader("Content-Type", "application/json")

	log := logger.Component("transport")

	breaker := resilience.New("collector", resilience.Settings{
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to resilience.State) {
			log.Warn("collector breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &HTTPTransport{
		client:   client,
		endpoint: exportCfg.Endpoint,
		service:  service,
		compress: exportCfg.Compress,
		breaker:  breaker,
		cache:    cache,
		logger:   log,
	}
}

// SendSpans posts a span batch to <endpoint>/v1/traces.
func (t *HTTPTransport) SendSpans(ctx context.Context, spans []*telemetry.Span) error {
	payload := spanPayload{
		Spans:          spans,
		ServiceName:    t.service.Name,
		ServiceVersion: t.service.Version,
		Timestamp:      time.Now(),
	}
	// Mirror before the attempt so a crash mid-transmission still leaves
	// the batch inspectable locally.
	t.cache.MirrorSpans(spans)
	return t.post(ctx, t.endpoint+"/v1/traces", payload)
}

// SendEvents posts an event batch to <endpoint>/v1/events.
func (t *HTTPTransport) SendEvents(ctx context.Context, events []*telemetry.Event) error {
	payload := eventPayload{
		Events:         events,
		ServiceName:    t.service.Name,
		ServiceVersion: t.service.Version,
		Timestamp:      time.Now(),
	}
	return t.post(ctx, t.endpoint+"/v1/events", payload)
}

func (t *HTTPTransport) post(ctx context.Context, url string, payload any) error {
	body, err := sonic.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode batch: %w", err)
	}

	req := t.client.R().
		SetContext(ctx).
		SetHeader("X-Batch-ID", id.NewBatchID().String())

	if t.compress {
		compressed, err := gzipBody(body)
		if err != nil {
			return fmt.Errorf("failed to compress batch: %w", err)
		}
		req.SetHeader("Content-Encoding", "gzip")
		body = compressed
	}
	req.SetBody(body)

	return t.breaker.Execute(func() error {
		resp, err := req.Post(url)
		if err != nil {
			return fmt.Errorf("batch transmission failed: %w", err)
		}
		if resp.IsError() {
			return fmt.Errorf("collector rejected batch: %s", resp.Status())
		}
		return nil
	})
}

func gzipBody(body []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(body); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
