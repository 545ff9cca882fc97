package server

import (
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"

	"mercator-hq/quota/pkg/telemetry/metrics"
	"mercator-hq/quota/pkg/telemetry/tracing"
)

// newUpstreamProxy returns a reverse proxy to target. The trace context of
// the admission span is propagated to the upstream.
func newUpstreamProxy(target *url.URL, collector *metrics.Collector, logger *slog.Logger) *httputil.ReverseProxy {
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
			tracing.Inject(pr.Out.Context(), pr.Out.Header)
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			if collector != nil {
				collector.RecordUpstreamError()
			}
			logger.ErrorContext(r.Context(), "upstream request failed",
				"error", err,
				"method", r.Method,
				"path", r.URL.Path,
			)
			writeJSON(w, http.StatusBadGateway, errorBody("upstream_error", "The upstream service is unavailable."))
		},
	}
}
