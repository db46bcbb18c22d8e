// Package observe provides application-wide observability primitives for
// Quizzard: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Quizzard metrics.
const meterName = "github.com/quizzardhq/quizzard"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation. Every convenience method is a no-op on a nil
// receiver, so components can run without metrics wired in (tests mostly).
type Metrics struct {
	// --- Latency histograms ---

	// GenerationDuration tracks question generation latency. Use with
	// attributes:
	//   attribute.String("provider", ...), attribute.String("status", ...)
	GenerationDuration metric.Float64Histogram

	// --- Counters ---

	// SessionsStarted counts quiz sessions started.
	SessionsStarted metric.Int64Counter

	// SessionsEnded counts quiz sessions ended. Use with attribute:
	//   attribute.String("reason", ...)
	SessionsEnded metric.Int64Counter

	// QuestionsAsked counts questions presented across all sessions.
	QuestionsAsked metric.Int64Counter

	// AnswersAccepted counts answers that passed the ingress gate and were
	// counted. Use with attribute:
	//   attribute.String("verdict", "correct"|"wrong")
	AnswersAccepted metric.Int64Counter

	// RecorderBatches counts terminal result batch writes. Use with
	// attribute:
	//   attribute.String("status", "ok"|"error")
	RecorderBatches metric.Int64Counter

	// ProviderErrors counts LLM provider errors. Use with attribute:
	//   attribute.String("provider", ...)
	ProviderErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveSessions tracks the number of live quiz sessions.
	ActiveSessions metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// LLM generation latencies.
var latencyBuckets = []float64{
	0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.GenerationDuration, err = m.Float64Histogram("quizzard.generation.duration",
		metric.WithDescription("Latency of question batch generation."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	if met.SessionsStarted, err = m.Int64Counter("quizzard.sessions.started",
		metric.WithDescription("Total quiz sessions started."),
	); err != nil {
		return nil, err
	}
	if met.SessionsEnded, err = m.Int64Counter("quizzard.sessions.ended",
		metric.WithDescription("Total quiz sessions ended, by reason."),
	); err != nil {
		return nil, err
	}
	if met.QuestionsAsked, err = m.Int64Counter("quizzard.questions.asked",
		metric.WithDescription("Total questions presented."),
	); err != nil {
		return nil, err
	}
	if met.AnswersAccepted, err = m.Int64Counter("quizzard.answers.accepted",
		metric.WithDescription("Total counted answers, by verdict."),
	); err != nil {
		return nil, err
	}
	if met.RecorderBatches, err = m.Int64Counter("quizzard.recorder.batches",
		metric.WithDescription("Total result batch writes, by status."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("quizzard.provider.errors",
		metric.WithDescription("Total LLM provider errors, by provider."),
	); err != nil {
		return nil, err
	}

	if met.ActiveSessions, err = m.Int64UpDownCounter("quizzard.active_sessions",
		metric.WithDescription("Number of live quiz sessions."),
	); err != nil {
		return nil, err
	}

	if met.HTTPRequestDuration, err = m.Float64Histogram("quizzard.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// Generation records one question generation attempt with its latency and
// outcome.
func (m *Metrics) Generation(ctx context.Context, provider string, d time.Duration, ok bool) {
	if m == nil {
		return
	}
	status := "ok"
	if !ok {
		status = "error"
	}
	m.GenerationDuration.Record(ctx, d.Seconds(),
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("status", status),
		),
	)
}

// SessionStarted records a session start and bumps the active gauge.
func (m *Metrics) SessionStarted(ctx context.Context) {
	if m == nil {
		return
	}
	m.SessionsStarted.Add(ctx, 1)
	m.ActiveSessions.Add(ctx, 1)
}

// SessionEnded records a session end with its reason and drops the active
// gauge.
func (m *Metrics) SessionEnded(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.SessionsEnded.Add(ctx, 1,
		metric.WithAttributes(attribute.String("reason", reason)),
	)
	m.ActiveSessions.Add(ctx, -1)
}

// QuestionAsked records one presented question.
func (m *Metrics) QuestionAsked(ctx context.Context) {
	if m == nil {
		return
	}
	m.QuestionsAsked.Add(ctx, 1)
}

// AnswerAccepted records one counted answer with its verdict.
func (m *Metrics) AnswerAccepted(ctx context.Context, correct bool) {
	if m == nil {
		return
	}
	verdict := "wrong"
	if correct {
		verdict = "correct"
	}
	m.AnswersAccepted.Add(ctx, 1,
		metric.WithAttributes(attribute.String("verdict", verdict)),
	)
}

// RecorderBatch records one terminal batch write outcome.
func (m *Metrics) RecorderBatch(ctx context.Context, ok bool) {
	if m == nil {
		return
	}
	status := "ok"
	if !ok {
		status = "error"
	}
	m.RecorderBatches.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", status)),
	)
}

// ProviderError records one LLM provider failure.
func (m *Metrics) ProviderError(ctx context.Context, provider string) {
	if m == nil {
		return
	}
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("provider", provider)),
	)
}
