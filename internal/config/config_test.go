package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Service config
	assert.Equal(t, "telemetry-client", cfg.Service.Name)
	assert.Equal(t, "development", cfg.Service.Environment)

	// Sampling config
	assert.Equal(t, 1.0, cfg.Sampling.Rate)
	assert.True(t, cfg.Sampling.Enabled)

	// Buffer config
	assert.Equal(t, 1000, cfg.Buffer.MaxSpansInMemory)
	assert.Equal(t, 1000, cfg.Buffer.MaxEventsInMemory)

	// Export config
	assert.Equal(t, "http://localhost:9411", cfg.Export.Endpoint)
	assert.Equal(t, 50, cfg.Export.BatchSize)
	assert.Equal(t, 5*time.Second, cfg.Export.BatchTimeout)
	assert.Equal(t, time.Second, cfg.Export.RetryDelay)
	assert.True(t, cfg.Export.Compress)

	// Report config
	assert.Equal(t, 3, cfg.Report.MaxRetries)
	assert.Equal(t, time.Second, cfg.Report.BaseDelay)

	// Logging config
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Development)
}

func TestLoadOrDefault(t *testing.T) {
	// Should return default when no env vars set
	cfg := LoadOrDefault()

	assert.NotNil(t, cfg)
	assert.Equal(t, 50, cfg.Export.BatchSize)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	envVars := map[string]string{
		"SERVICE_NAME":        "checkout",
		"SERVICE_ENV":         "production",
		"SAMPLING_RATE":       "0.25",
		"TELEMETRY_ENABLED":   "false",
		"MAX_SPANS_IN_MEMORY": "500",
		"EXPORT_ENDPOINT":     "https://collector.internal/v1/traces",
		"EXPORT_BATCH_SIZE":   "100",
		"EXPORT_RETRY_DELAY":  "2s",
		"REPORT_MAX_RETRIES":  "5",
		"LOG_LEVEL":           "debug",
		"LOG_DEV":             "true",
	}

	for key, value := range envVars {
		os.Setenv(key, value)
	}
	defer func() {
		for key := range envVars {
			os.Unsetenv(key)
		}
	}()

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "checkout", cfg.Service.Name)
	assert.Equal(t, "production", cfg.Service.Environment)
	assert.Equal(t, 0.25, cfg.Sampling.Rate)
	assert.False(t, cfg.Sampling.Enabled)
	assert.Equal(t, 500, cfg.Buffer.MaxSpansInMemory)
	assert.Equal(t, "https://collector.internal/v1/traces", cfg.Export.Endpoint)
	assert.Equal(t, 100, cfg.Export.BatchSize)
	assert.Equal(t, 2*time.Second, cfg.Export.RetryDelay)
	assert.Equal(t, 5, cfg.Report.MaxRetries)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Development)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "telemetry.yaml")

	content := []byte(`
service:
  name: search
  environment: staging
export:
  batch_size: 25
  endpoint: http://sink:9411
sampling:
  rate: 0.5
`)
	require.NoError(t, os.WriteFile(path, content, 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "search", cfg.Service.Name)
	assert.Equal(t, "staging", cfg.Service.Environment)
	assert.Equal(t, 25, cfg.Export.BatchSize)
	assert.Equal(t, "http://sink:9411", cfg.Export.Endpoint)
	assert.Equal(t, 0.5, cfg.Sampling.Rate)

	// Untouched values keep defaults
	assert.Equal(t, 1000, cfg.Buffer.MaxSpansInMemory)
}

func TestLoadFileEnvironmentWins(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "telemetry.yaml")

	require.NoError(t, os.WriteFile(path, []byte("export:\n  batch_size: 25\n"), 0o644))

	os.Setenv("EXPORT_BATCH_SIZE", "75")
	defer os.Unsetenv("EXPORT_BATCH_SIZE")

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 75, cfg.Export.BatchSize)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile("/nonexistent/telemetry.yaml")
	assert.Error(t, err)
}
