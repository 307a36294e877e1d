// Command emitter is a demo client: it wires the full pipeline (tracer,
// exporter, error reporter, auto-instrumentation) and emits synthetic
// traffic against a running devsink, for development and manual testing.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GriffinCanCode/telemetry/internal/config"
	"github.com/GriffinCanCode/telemetry/internal/instrument"
	"github.com/GriffinCanCode/telemetry/internal/logging"
	"github.com/GriffinCanCode/telemetry/internal/monitoring"
	"github.com/GriffinCanCode/telemetry/internal/telemetry"
	"github.com/GriffinCanCode/telemetry/internal/telemetry/export"
	"github.com/GriffinCanCode/telemetry/internal/telemetry/report"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	endpoint := flag.String("endpoint", "", "Collector endpoint (overrides config)")
	interval := flag.Duration("interval", 200*time.Millisecond, "Emission interval")
	flag.Parse()

	cfg := config.LoadOrDefault()
	if *endpoint != "" {
		cfg.Export.Endpoint = *endpoint
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	metrics := monitoring.New(prometheus.NewRegistry())
	store := telemetry.NewStore(cfg.Buffer.MaxSpansInMemory, cfg.Buffer.MaxEventsInMemory, metrics)
	tracer := telemetry.NewTracer(cfg, store, logger, metrics)

	cache := export.NewCache(cfg.Export.CachePath, cfg.Buffer.MaxSpansInMemory, logger)
	transport := export.NewHTTPTransport(cfg.Export, cfg.Service, cache, logger)
	exporter := export.New(cfg.Export, store, transport, logger, metrics)
	tracer.SetFlusher(exporter)

	reporter := report.New(cfg.Report, tracer, logger, metrics, report.WithNotifier(consoleNotifier{}))
	defer reporter.Close()

	// Runtime performance signals feed the tracer automatically.
	perf := instrument.NewPerfAdapter(tracer)
	runtimeSrc := instrument.NewRuntimeSource(5 * time.Second)
	detach := perf.Attach(runtimeSrc)
	defer detach()

	// All outbound HTTP through this client is traced transparently.
	httpClient := &http.Client{
		Transport: instrument.NewTransport(nil, tracer),
		Timeout:   5 * time.Second,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	logger.Sugar().Infof("emitting against %s", cfg.Export.Endpoint)

	for {
		select {
		case <-sigChan:
			logger.Info("flushing and shutting down")
			tracer.Teardown()
			exporter.Close()
			return
		case <-ticker.C:
			emit(tracer, reporter, httpClient, cfg.Export.Endpoint)
		}
	}
}

// emit produces one round of synthetic telemetry: a nested span pair, a
// tracked event, an occasional classified error, and a traced HTTP call.
func emit(tracer *telemetry.Tracer, reporter *report.Reporter, client *http.Client, endpoint string) {
	_ = tracer.TraceFunc("handle_request", telemetry.KindInternal, func(parent *telemetry.Span) error {
		child := tracer.StartSpan("load_profile", telemetry.KindFunc, map[string]any{
			"user": fmt.Sprintf("user-%d", rand.Intn(100)),
		})
		tracer.AddSpanEvent(child.ID, "cache miss", nil)
		time.Sleep(time.Duration(rand.Intn(5)) * time.Millisecond)
		tracer.EndSpan(child.ID, telemetry.StatusOk, nil)
		return nil
	})

	tracer.Track(telemetry.EventUsage, "page_view", map[string]any{
		"page": fmt.Sprintf("/item/%d", rand.Intn(1000)),
	}, []string{"demo"})

	if rand.Intn(20) == 0 {
		reporter.Report(errors.New("connection refused by upstream"), map[string]any{
			"upstream": "inventory",
		})
	}

	if resp, err := client.Get(endpoint + "/health"); err == nil {
		resp.Body.Close()
	}
}

type consoleNotifier struct{}

func (consoleNotifier) Notify(severity report.Severity, message string, blocking bool) {
	fmt.Printf("[%s] %s (blocking=%v)\n", severity, message, blocking)
}
