/*
Package monitoring provides Prometheus self-metrics for the telemetry pipeline.

# Overview

The pipeline instruments itself: span lifecycle counts, buffer pressure,
export batch outcomes, and error reporter activity are all exposed as
Prometheus metrics. Pipeline failures are never user-visible; these metrics
(plus logs) are the only window into them.

# Usage

	// Create a metrics collector bound to a registry
	metrics := monitoring.New(prometheus.NewRegistry())

	// Record pipeline activity
	metrics.SpansStarted.Inc()
	metrics.RecordSpanEnd("ok", duration)
	metrics.RecordBatch("spans", 50, elapsed, err)

# Metrics Endpoint

The devsink binary exposes the standard Prometheus endpoint:

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
*/
package monitoring
