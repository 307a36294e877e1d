package config

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all telemetry pipeline configuration.
type Config struct {
	Service  ServiceConfig
	Sampling SamplingConfig
	Buffer   BufferConfig
	Export   ExportConfig
	Report   ReportConfig
	Logging  LogConfig
	Sink     SinkConfig
}

// ServiceConfig identifies the instrumented service in exported payloads.
type ServiceConfig struct {
	Name        string `envconfig:"SERVICE_NAME" yaml:"name"`
	Version     string `envconfig:"SERVICE_VERSION" yaml:"version"`
	Environment string `envconfig:"SERVICE_ENV" yaml:"environment"`
}

// SamplingConfig controls the sampling gate.
type SamplingConfig struct {
	Rate    float64 `envconfig:"SAMPLING_RATE" yaml:"rate"`
	Enabled bool    `envconfig:"TELEMETRY_ENABLED" yaml:"enabled"`
}

// BufferConfig bounds in-memory retention. Appends beyond these caps evict
// the oldest buffered entries.
type BufferConfig struct {
	MaxSpansInMemory  int `envconfig:"MAX_SPANS_IN_MEMORY" yaml:"max_spans_in_memory"`
	MaxEventsInMemory int `envconfig:"MAX_EVENTS_IN_MEMORY" yaml:"max_events_in_memory"`
}

// ExportConfig holds batch export pipeline configuration.
type ExportConfig struct {
	Endpoint       string        `envconfig:"EXPORT_ENDPOINT" yaml:"endpoint"`
	BatchSize      int           `envconfig:"EXPORT_BATCH_SIZE" yaml:"batch_size"`
	BatchTimeout   time.Duration `envconfig:"EXPORT_BATCH_TIMEOUT" yaml:"batch_timeout"`
	RetryDelay     time.Duration `envconfig:"EXPORT_RETRY_DELAY" yaml:"retry_delay"`
	RequestTimeout time.Duration `envconfig:"EXPORT_REQUEST_TIMEOUT" yaml:"request_timeout"`
	Compress       bool          `envconfig:"EXPORT_COMPRESS" yaml:"compress"`
	CachePath      string        `envconfig:"EXPORT_CACHE_PATH" yaml:"cache_path"`
}

// ReportConfig holds error reporter policy.
type ReportConfig struct {
	MaxRetries  int           `envconfig:"REPORT_MAX_RETRIES" yaml:"max_retries"`
	BaseDelay   time.Duration `envconfig:"REPORT_BASE_DELAY" yaml:"base_delay"`
	NotifyRate  float64       `envconfig:"REPORT_NOTIFY_RATE" yaml:"notify_rate"`
	NotifyBurst int           `envconfig:"REPORT_NOTIFY_BURST" yaml:"notify_burst"`
	ReloadGrace time.Duration `envconfig:"REPORT_RELOAD_GRACE" yaml:"reload_grace"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" yaml:"level"`
	Development bool   `envconfig:"LOG_DEV" yaml:"development"`
}

// SinkConfig holds devsink collector configuration.
type SinkConfig struct {
	Port     string `envconfig:"SINK_PORT" yaml:"port"`
	Host     string `envconfig:"SINK_HOST" yaml:"host"`
	RingSize int    `envconfig:"SINK_RING_SIZE" yaml:"ring_size"`
}

// Load loads configuration from environment variables on top of defaults.
// Variables that are unset leave the default value untouched.
func Load() (*Config, error) {
	cfg := Default()
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// LoadFile loads configuration from a YAML file, then applies environment
// variables on top. Environment variables win over file values.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}
	return cfg, nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:        "telemetry-client",
			Version:     "0.1.0",
			Environment: "development",
		},
		Sampling: SamplingConfig{
			Rate:    1.0,
			Enabled: true,
		},
		Buffer: BufferConfig{
			MaxSpansInMemory:  1000,
			MaxEventsInMemory: 1000,
		},
		Export: ExportConfig{
			Endpoint:       "http://localhost:9411",
			BatchSize:      50,
			BatchTimeout:   5 * time.Second,
			RetryDelay:     time.Second,
			RequestTimeout: 10 * time.Second,
			Compress:       true,
		},
		Report: ReportConfig{
			MaxRetries:  3,
			BaseDelay:   time.Second,
			NotifyRate:  1,
			NotifyBurst: 5,
			ReloadGrace: 5 * time.Second,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		Sink: SinkConfig{
			Port:     "9411",
			Host:     "0.0.0.0",
			RingSize: 256,
		},
	}
}
