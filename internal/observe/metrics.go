// Package observe provides application-wide observability primitives:
// OpenTelemetry metrics, distributed tracing, structured logging, and HTTP
// middleware that ties them together.
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

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all metrics.
const meterName = "github.com/spellproof/spellproof"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// SessionDuration tracks how long recognition sessions stay open, from
	// the start control message until release.
	SessionDuration metric.Float64Histogram

	// ActiveSessions tracks the number of live recognition sessions.
	ActiveSessions metric.Int64UpDownCounter

	// Transcripts counts transcripts relayed to clients. Use with attribute:
	//   attribute.String("kind", "interim"|"final")
	Transcripts metric.Int64Counter

	// DroppedAudioFrames counts binary audio frames discarded because no
	// session was active or the session refused the write.
	DroppedAudioFrames metric.Int64Counter

	// Validations counts answer validations. Use with attributes:
	//   attribute.String("method", ...), attribute.String("result", ...),
	//   attribute.String("reason", ...)
	Validations metric.Int64Counter

	// DroppedEvents counts recognition events dropped because the logger
	// buffer was full.
	DroppedEvents metric.Int64Counter

	// LearningRuns counts learning engine runs by status ("ok"|"error").
	LearningRuns metric.Int64Counter

	// MappingsCreated counts phonetic mappings created or reinforced by the
	// learning engine.
	MappingsCreated metric.Int64Counter

	// ProviderErrors counts recognition provider errors. Use with attribute:
	//   attribute.String("provider", ...)
	ProviderErrors metric.Int64Counter

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// sessionBuckets defines histogram bucket boundaries (in seconds) sized for
// spoken spelling attempts, which run from a second or two up to around a
// minute.
var sessionBuckets = []float64{
	0.5, 1, 2.5, 5, 10, 20, 30, 60, 120,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.SessionDuration, err = m.Float64Histogram("spellproof.session.duration",
		metric.WithDescription("Duration of recognition sessions from start to release."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(sessionBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ActiveSessions, err = m.Int64UpDownCounter("spellproof.active_sessions",
		metric.WithDescription("Number of live recognition sessions."),
	); err != nil {
		return nil, err
	}
	if met.Transcripts, err = m.Int64Counter("spellproof.transcripts",
		metric.WithDescription("Transcripts relayed to clients by kind."),
	); err != nil {
		return nil, err
	}
	if met.DroppedAudioFrames, err = m.Int64Counter("spellproof.audio.dropped_frames",
		metric.WithDescription("Binary audio frames dropped without an active session."),
	); err != nil {
		return nil, err
	}
	if met.Validations, err = m.Int64Counter("spellproof.validations",
		metric.WithDescription("Answer validations by input method, result, and rejection reason."),
	); err != nil {
		return nil, err
	}
	if met.DroppedEvents, err = m.Int64Counter("spellproof.eventlog.dropped",
		metric.WithDescription("Recognition events dropped due to a full logger buffer."),
	); err != nil {
		return nil, err
	}
	if met.LearningRuns, err = m.Int64Counter("spellproof.learning.runs",
		metric.WithDescription("Learning engine runs by status."),
	); err != nil {
		return nil, err
	}
	if met.MappingsCreated, err = m.Int64Counter("spellproof.learning.mappings_created",
		metric.WithDescription("Phonetic mappings created or reinforced by the learning engine."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("spellproof.provider.errors",
		metric.WithDescription("Recognition provider errors by provider."),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("spellproof.http.request.duration",
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

// RecordTranscript records a relayed transcript of the given kind
// ("interim" or "final").
func (m *Metrics) RecordTranscript(ctx context.Context, kind string) {
	m.Transcripts.Add(ctx, 1,
		metric.WithAttributes(attribute.String("kind", kind)),
	)
}

// RecordValidation records a validation outcome with the standard attribute
// set. reason may be empty for accepted answers.
func (m *Metrics) RecordValidation(ctx context.Context, method string, correct bool, reason string) {
	result := "incorrect"
	if correct {
		result = "correct"
	}
	m.Validations.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("method", method),
			attribute.String("result", result),
			attribute.String("reason", reason),
		),
	)
}

// RecordLearningRun records a learning engine run and the number of mappings
// it created or reinforced.
func (m *Metrics) RecordLearningRun(ctx context.Context, status string, created int) {
	m.LearningRuns.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", status)),
	)
	if created > 0 {
		m.MappingsCreated.Add(ctx, int64(created))
	}
}

// RecordProviderError records a recognition provider error.
func (m *Metrics) RecordProviderError(ctx context.Context, provider string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("provider", provider)),
	)
}
