package main

import (
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/GriffinCanCode/telemetry/internal/config"
	"github.com/GriffinCanCode/telemetry/internal/devsink"
	"github.com/GriffinCanCode/telemetry/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	configPath := flag.String("config", "", "Optional YAML config file")
	port := flag.String("port", "", "Listen port (overrides config)")
	flag.Parse()

	cfg := loadConfig(*configPath)
	if *port != "" {
		cfg.Sink.Port = *port
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	registry := prometheus.NewRegistry()
	handler := devsink.NewHandler(cfg.Sink.RingSize, logger, registry)
	router := handler.Router(registry)

	addr := cfg.Sink.Host + ":" + cfg.Sink.Port
	server := &http.Server{Addr: addr, Handler: router}

	errChan := make(chan error, 1)
	go func() {
		logger.Sugar().Infof("devsink listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info("shutting down")
		if err := server.Close(); err != nil {
			logger.Sugar().Warnf("shutdown error: %v", err)
		}
	case err := <-errChan:
		log.Fatalf("Server error: %v", err)
	}
}

func loadConfig(path string) *config.Config {
	if path == "" {
		return config.LoadOrDefault()
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		log.Fatalf("Failed to load config file: %v", err)
	}
	return cfg
}
