// Package tracing configures OpenTelemetry tracing for quotad.
//
// When tracing is disabled New returns a Tracer backed by the no-op
// provider, so callers can start spans unconditionally. When enabled, spans
// are batched to an OTLP gRPC collector and the W3C trace context and
// baggage propagators are installed globally, which lets the gateway
// continue traces from clients and forward them to the upstream.
package tracing
