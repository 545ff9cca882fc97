package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Span names.
const (
	SpanAdmission = "quota.admission"
	SpanConsume   = "quota.consume"
)

// Attribute keys for quota spans. Client addresses are never attached.
const (
	AttrAllowed     = attribute.Key("quota.allowed")
	AttrWhitelisted = attribute.Key("quota.whitelisted")
	AttrRemaining   = attribute.Key("quota.remaining")
	AttrCharged     = attribute.Key("quota.charged_seconds")
	AttrMethod      = attribute.Key("quota.ipaddr_method")
	AttrFailOpen    = attribute.Key("quota.fail_open")
)

// SetAdmissionAttributes records an admission decision on span.
func SetAdmissionAttributes(span trace.Span, allowed, whitelisted bool) {
	span.SetAttributes(
		AttrAllowed.Bool(allowed),
		AttrWhitelisted.Bool(whitelisted),
	)
}

// SetConsumeAttributes records a charge and the resulting minimum budget.
func SetConsumeAttributes(span trace.Span, chargedSeconds, remaining float64) {
	span.SetAttributes(
		AttrCharged.Float64(chargedSeconds),
		AttrRemaining.Float64(remaining),
	)
}
