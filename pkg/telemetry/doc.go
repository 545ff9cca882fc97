// Package telemetry groups the observability packages of quotad.
//
//   - logging: slog handler chain with request IDs and address redaction
//   - metrics: Prometheus registry, HTTP metrics and the /metrics handler
//   - tracing: OpenTelemetry tracer with OTLP export
//   - health: liveness and readiness probes
//
// Quota engine metrics live in package quota and register on the registry
// owned by metrics.Collector.
package telemetry
