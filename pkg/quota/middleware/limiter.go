package middleware

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"mercator-hq/quota/pkg/quota"
	"mercator-hq/quota/pkg/quota/stats"
	"mercator-hq/quota/pkg/telemetry/logging"
	"mercator-hq/quota/pkg/telemetry/tracing"
)

// RemainingHeader carries the smallest remaining budget, in seconds, after
// the request has been charged.
const RemainingHeader = "X-RateLimit-Remaining"

// Failure policy labels used in logs and metrics.
const (
	PolicyFailOpen   = "fail_open"
	PolicyFailClosed = "fail_closed"
)

// Engine is the subset of *quota.Engine used by the Limiter.
type Engine interface {
	RefreshIfDue() bool
	IsWhitelisted(id quota.Identity) bool
	IsQuotaAvailable(id quota.Identity) (bool, error)
	Consume(id quota.Identity, elapsed time.Duration) error
	MinimumAcrossQuotas(id quota.Identity) (float64, error)
}

// Limiter admits requests against an Engine and charges served time.
type Limiter struct {
	engine    Engine
	extractor *Extractor

	failOpen bool
	denials  *rate.Sometimes

	recorder stats.Recorder
	tracer   *tracing.Tracer
	metrics  *quota.Metrics
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithFailOpen serves requests uncharged when no client identity can be
// established. The default is to reject them with 500.
func WithFailOpen(failOpen bool) Option {
	return func(l *Limiter) {
		l.failOpen = failOpen
	}
}

// WithDenialLogInterval logs at most one denial per interval. A
// non-positive interval logs every denial.
func WithDenialLogInterval(interval time.Duration) Option {
	return func(l *Limiter) {
		if interval <= 0 {
			l.denials = &rate.Sometimes{Every: 1}
			return
		}
		l.denials = &rate.Sometimes{First: 1, Interval: interval}
	}
}

// WithRecorder records every admission decision to rec.
func WithRecorder(rec stats.Recorder) Option {
	return func(l *Limiter) {
		l.recorder = rec
	}
}

// WithTracer opens admission spans on t.
func WithTracer(t *tracing.Tracer) Option {
	return func(l *Limiter) {
		l.tracer = t
	}
}

// WithMetrics counts identity extraction failures on m.
func WithMetrics(m *quota.Metrics) Option {
	return func(l *Limiter) {
		l.metrics = m
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithClock replaces time.Now for elapsed-time measurement.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}

// NewLimiter creates a Limiter for engine.
func NewLimiter(engine Engine, extractor *Extractor, opts ...Option) *Limiter {
	l := &Limiter{
		engine:    engine,
		extractor: extractor,
		denials:   &rate.Sometimes{Every: 1},
		tracer:    tracing.Noop(),
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.With("component", "quota.middleware")
	return l
}

// Middleware wraps next with quota admission.
//
// Whitelisted clients pass through without accounting. Clients with an
// exhausted window receive 429 and are not charged. Admitted requests are
// charged the wall-clock time from the call into next until the response
// header is written.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := tracing.Extract(r.Context(), r.Header)
		ctx, span := l.tracer.Start(ctx, tracing.SpanAdmission)
		defer span.End()
		r = r.WithContext(ctx)

		l.engine.RefreshIfDue()

		id, method, err := l.extractor.Extract(r)
		if method != "" {
			span.SetAttributes(tracing.AttrMethod.String(method))
		}
		if err != nil {
			l.metrics.RecordExtractionFailure(l.policy())
			l.record(ctx, stats.OutcomeUnidentified, r)
			l.fail(w, r, next, span, err, ErrorTypeClientUnidentified, "client address extraction failed")
			return
		}

		r = r.WithContext(logging.WithClient(ctx, id.String()))
		ctx = r.Context()

		if l.engine.IsWhitelisted(id) {
			tracing.SetAdmissionAttributes(span, true, true)
			l.record(ctx, stats.OutcomeWhitelisted, r)
			next.ServeHTTP(w, r)
			return
		}

		available, err := l.engine.IsQuotaAvailable(id)
		if err != nil {
			l.fail(w, r, next, span, err, ErrorTypeInternal, "quota admission check failed")
			return
		}
		tracing.SetAdmissionAttributes(span, available, false)

		if !available {
			l.record(ctx, stats.OutcomeDenied, r)
			l.denials.Do(func() {
				l.logger.InfoContext(ctx, "quota exceeded",
					"method", r.Method,
					"path", r.URL.Path,
				)
			})
			writeError(w, http.StatusTooManyRequests, ErrorTypeQuotaExceeded,
				"Usage quota exceeded. Please try again later.")
			return
		}
		l.record(ctx, stats.OutcomeAllowed, r)

		// Admission work, including a slow recorder, is not billed.
		start := l.now()
		cw := newChargingWriter(w, func(h http.Header) {
			l.charge(ctx, h, id, l.now().Sub(start))
		})
		next.ServeHTTP(cw, r)
		cw.finish()
	})
}

// charge consumes elapsed for id and reports the remaining budget in h.
func (l *Limiter) charge(ctx context.Context, h http.Header, id quota.Identity, elapsed time.Duration) {
	_, span := l.tracer.Start(ctx, tracing.SpanConsume)
	defer span.End()

	if elapsed < 0 {
		elapsed = 0
	}
	if err := l.engine.Consume(id, elapsed); err != nil {
		tracing.SetError(span, err)
		l.logger.ErrorContext(ctx, "failed to consume quota", "error", err)
		return
	}

	remaining, err := l.engine.MinimumAcrossQuotas(id)
	if err != nil {
		tracing.SetError(span, err)
		l.logger.ErrorContext(ctx, "failed to read remaining quota", "error", err)
		return
	}
	tracing.SetConsumeAttributes(span, elapsed.Seconds(), remaining)

	if !math.IsInf(remaining, 1) {
		h.Set(RemainingHeader, strconv.FormatFloat(remaining, 'f', -1, 64))
	}
}

// fail applies the failure policy to a request that could not be checked.
func (l *Limiter) fail(w http.ResponseWriter, r *http.Request, next http.Handler, span trace.Span, err error, errType, msg string) {
	ctx := r.Context()
	tracing.SetError(span, err)
	span.SetAttributes(tracing.AttrFailOpen.Bool(l.failOpen))

	l.logger.ErrorContext(ctx, msg,
		"error", err,
		"policy", l.policy(),
		"method", r.Method,
		"path", r.URL.Path,
	)

	if l.failOpen {
		next.ServeHTTP(w, r)
		return
	}
	message := "An internal error occurred. Please try again later."
	if errType == ErrorTypeClientUnidentified {
		message = "Unable to determine client identity."
	}
	writeError(w, http.StatusInternalServerError, errType, message)
}

func (l *Limiter) policy() string {
	if l.failOpen {
		return PolicyFailOpen
	}
	return PolicyFailClosed
}

// record stores a decision. Failures are logged and otherwise ignored.
func (l *Limiter) record(ctx context.Context, outcome stats.Outcome, r *http.Request) {
	if l.recorder == nil {
		return
	}
	ev := stats.Event{
		Outcome: outcome,
		Method:  r.Method,
		Path:    r.URL.Path,
		At:      l.now(),
	}
	if err := l.recorder.Record(ctx, ev); err != nil {
		l.logger.WarnContext(ctx, "failed to record admission decision",
			"outcome", string(outcome),
			"error", err,
		)
	}
}
