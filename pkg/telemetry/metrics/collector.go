package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Route labels. They are fixed so that request paths never become labels.
const (
	RouteProxy   = "proxy"
	RouteSummary = "summary"
)

// DefaultDurationBuckets cover proxied request latencies from 5ms to 60s.
var DefaultDurationBuckets = []float64{0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

// Collector owns the registry and the HTTP metrics.
type Collector struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	inFlight        prometheus.Gauge
	upstreamErrors  prometheus.Counter
}

// NewCollector creates a registry with the Go runtime and process
// collectors and the gateway's HTTP metrics registered.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(registry)
	return &Collector{
		registry: registry,

		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quotad_http_requests_total",
				Help: "Total number of HTTP requests served by the gateway",
			},
			[]string{"route", "code", "method"},
		),

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quotad_http_request_duration_seconds",
				Help:    "Duration of HTTP requests served by the gateway in seconds",
				Buckets: DefaultDurationBuckets,
			},
			[]string{"route", "code", "method"},
		),

		inFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "quotad_http_requests_in_flight",
				Help: "Number of HTTP requests currently being served",
			},
		),

		upstreamErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "quotad_upstream_errors_total",
				Help: "Total number of proxied requests that failed to reach the upstream",
			},
		),
	}
}

// Registry returns the registry components register their metrics with.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// InstrumentHandler wraps next with request count, duration and in-flight
// instrumentation under the given route label.
func (c *Collector) InstrumentHandler(route string, next http.Handler) http.Handler {
	labels := prometheus.Labels{"route": route}
	return promhttp.InstrumentHandlerInFlight(c.inFlight,
		promhttp.InstrumentHandlerDuration(c.requestDuration.MustCurryWith(labels),
			promhttp.InstrumentHandlerCounter(c.requestsTotal.MustCurryWith(labels), next),
		),
	)
}

// RecordUpstreamError counts a proxied request the upstream did not answer.
func (c *Collector) RecordUpstreamError() {
	c.upstreamErrors.Inc()
}
