// Package metrics owns the Prometheus registry of quotad and the HTTP-level
// metrics of the gateway.
//
// Every component registers on the Collector's registry rather than the
// global default, which keeps tests isolated:
//
//	collector := metrics.NewCollector()
//	quotaMetrics := quota.NewMetrics(collector.Registry())
//	mux.Handle("/metrics", collector.Handler())
//
// Exposed HTTP metrics:
//   - quotad_http_requests_total{route, code, method}
//   - quotad_http_request_duration_seconds{route, code, method}
//   - quotad_http_requests_in_flight
//   - quotad_upstream_errors_total
package metrics
