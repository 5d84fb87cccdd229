package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ScoringMetrics holds the instruments recorded by the scoring engine.
// A nil *ScoringMetrics records nothing.
type ScoringMetrics struct {
	routesScored   metric.Int64Counter
	routesSkipped  metric.Int64Counter
	weatherMissing metric.Int64Counter
	modelFallback  metric.Int64Counter
	batchDuration  metric.Float64Histogram
}

// NewScoringMetrics creates the scoring instruments on meter.
func NewScoringMetrics(meter metric.Meter) (*ScoringMetrics, error) {
	routesScored, err := meter.Int64Counter(
		"scoring.routes.scored",
		metric.WithDescription("Routes scored"),
		metric.WithUnit("{route}"),
	)
	if err != nil {
		return nil, err
	}

	routesSkipped, err := meter.Int64Counter(
		"scoring.routes.skipped",
		metric.WithDescription("Malformed routes skipped during scoring"),
		metric.WithUnit("{route}"),
	)
	if err != nil {
		return nil, err
	}

	weatherMissing, err := meter.Int64Counter(
		"scoring.weather.missing",
		metric.WithDescription("Weather lookups that fell back to neutral values"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	modelFallback, err := meter.Int64Counter(
		"scoring.model.fallback",
		metric.WithDescription("Winter scores computed without the model"),
		metric.WithUnit("{prediction}"),
	)
	if err != nil {
		return nil, err
	}

	batchDuration, err := meter.Float64Histogram(
		"scoring.batch.duration",
		metric.WithDescription("Duration of route scoring batches in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &ScoringMetrics{
		routesScored:   routesScored,
		routesSkipped:  routesSkipped,
		weatherMissing: weatherMissing,
		modelFallback:  modelFallback,
		batchDuration:  batchDuration,
	}, nil
}

// RecordBatch records the outcome of one scoring batch.
func (m *ScoringMetrics) RecordBatch(ctx context.Context, scored, skipped int, duration time.Duration) {
	if m == nil {
		return
	}
	m.routesScored.Add(ctx, int64(scored))
	m.routesSkipped.Add(ctx, int64(skipped))
	m.batchDuration.Record(ctx, duration.Seconds())
}

// RecordWeatherMissing records a neutral-value weather fallback of the given kind ("daily" or "window").
func (m *ScoringMetrics) RecordWeatherMissing(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.weatherMissing.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordModelFallback records a winter score computed without the model.
func (m *ScoringMetrics) RecordModelFallback(ctx context.Context) {
	if m == nil {
		return
	}
	m.modelFallback.Add(ctx, 1)
}
