// Package config provides 12-factor configuration management for the
// telemetry pipeline.
//
// Configuration is loaded from environment variables with sensible defaults.
// An optional YAML file can overlay values for development setups; environment
// variables win over the file.
//
// Configuration Sections:
//   - Service: identity attached to every exported payload
//   - Sampling: probabilistic recording rate and the global enable switch
//   - Buffer: in-memory span/event caps (drop-oldest beyond these)
//   - Export: collector endpoint, batch sizing, retry cadence
//   - Report: error reporter retry and notification policy
//   - Logging: log level and output format
//   - Sink: the devsink development collector
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Exporting to %s in batches of %d\n", cfg.Export.Endpoint, cfg.Export.BatchSize)
package config
