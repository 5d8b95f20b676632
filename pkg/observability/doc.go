// Package observability bundles the service's operational concerns:
// structured logging, Prometheus metrics, health checks, OpenTelemetry
// tracing, and graceful shutdown.
//
// The pieces are independent; main wires together only what the
// deployment needs. Health endpoints and the metrics endpoint are served
// on a separate listener from the API so probes keep working while the
// API drains.
package observability
