/*
Package devsink implements the development collector: an HTTP endpoint that
receives exported telemetry batches and keeps the most recent ones in memory
for inspection.

Nothing here persists and nothing is queryable beyond the recent ring; this
is a development aid for watching the pipeline, not trace storage.

# Endpoints

	POST /v1/traces   receive a span batch (gzip-aware)
	POST /v1/events   receive an event batch (gzip-aware)
	GET  /v1/recent   the bounded ring of recently received batches
	GET  /ws          websocket live tail of incoming batches
	GET  /health      liveness
	GET  /metrics     Prometheus exposition
*/
package devsink
