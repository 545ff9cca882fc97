package quota

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains Prometheus metrics for the quota engine.
//
// Labels never include identities, which keeps cardinality fixed. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	// Admission checks
	admissionChecks *prometheus.CounterVec

	// Consumed resource time
	consumedSeconds *prometheus.CounterVec

	// Decay
	decayRuns      prometheus.Counter
	refillDeletes  prometheus.Counter
	trackedEntries *prometheus.GaugeVec

	// Client address extraction failures (recorded by the HTTP adapter)
	extractionFailures *prometheus.CounterVec
}

// NewMetrics creates quota metrics registered with reg. If reg is nil the
// default Prometheus registerer is used.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		admissionChecks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quotad_admission_checks_total",
				Help: "Total number of quota admission checks performed",
			},
			[]string{"result"},
		),

		consumedSeconds: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quotad_consumed_seconds_total",
				Help: "Total resource time charged against quotas in seconds",
			},
			[]string{"dimension"},
		),

		decayRuns: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "quotad_decay_runs_total",
				Help: "Total number of decay steps applied",
			},
		),

		refillDeletes: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "quotad_refill_deletions_total",
				Help: "Total number of bucket entries removed after refilling to their limit",
			},
		),

		trackedEntries: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "quotad_tracked_identities",
				Help: "Number of IP address identities currently in deficit per window",
			},
			[]string{"window"},
		),

		extractionFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quotad_identity_extraction_failures_total",
				Help: "Total number of requests whose client identity could not be determined",
			},
			[]string{"policy"},
		),
	}
}

func (m *Metrics) recordAdmission(allowed bool) {
	if m == nil {
		return
	}
	result := "allowed"
	if !allowed {
		result = "denied"
	}
	m.admissionChecks.WithLabelValues(result).Inc()
}

func (m *Metrics) recordConsume(dimension Dimension, seconds float64) {
	if m == nil {
		return
	}
	m.consumedSeconds.WithLabelValues(string(dimension)).Add(seconds)
}

func (m *Metrics) recordDecay(deleted int) {
	if m == nil {
		return
	}
	m.decayRuns.Inc()
	m.refillDeletes.Add(float64(deleted))
}

func (m *Metrics) updateTracked(tracked map[Window]int) {
	if m == nil {
		return
	}
	for window, n := range tracked {
		m.trackedEntries.WithLabelValues(string(window)).Set(float64(n))
	}
}

// RecordExtractionFailure counts a request whose identity could not be
// determined. policy is "fail_open" or "fail_closed".
func (m *Metrics) RecordExtractionFailure(policy string) {
	if m == nil {
		return
	}
	m.extractionFailures.WithLabelValues(policy).Inc()
}
