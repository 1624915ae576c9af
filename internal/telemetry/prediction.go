package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const predictionMeterName = "github.com/clearroute/clearroute/internal/congestion"

// PredictionMetrics holds instruments for the prediction pipeline.
type PredictionMetrics struct {
	duration    metric.Float64Histogram
	total       metric.Int64Counter
	probability metric.Float64Histogram
}

// NewPredictionMetrics creates prediction instruments on the global meter provider.
func NewPredictionMetrics() (*PredictionMetrics, error) {
	meter := otel.Meter(predictionMeterName)

	duration, err := meter.Float64Histogram(
		"prediction.duration",
		metric.WithDescription("End-to-end duration of congestion predictions in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	total, err := meter.Int64Counter(
		"prediction.total",
		metric.WithDescription("Total number of congestion predictions by outcome"),
		metric.WithUnit("{prediction}"),
	)
	if err != nil {
		return nil, err
	}

	probability, err := meter.Float64Histogram(
		"prediction.best_probability",
		metric.WithDescription("Congestion probability of the best ranked route"),
		metric.WithExplicitBucketBoundaries(0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9),
	)
	if err != nil {
		return nil, err
	}

	return &PredictionMetrics{
		duration:    duration,
		total:       total,
		probability: probability,
	}, nil
}

// Record records one finished prediction. outcome is "ok" or an error class.
// best is ignored unless outcome is "ok". A nil receiver is a no-op.
func (m *PredictionMetrics) Record(ctx context.Context, outcome string, routes int, best float64, elapsed time.Duration) {
	if m == nil {
		return
	}

	ctx = context.WithoutCancel(ctx)
	attrs := metric.WithAttributes(
		attribute.String("outcome", outcome),
		attribute.Int("routes", routes),
	)
	m.duration.Record(ctx, elapsed.Seconds(), attrs)
	m.total.Add(ctx, 1, attrs)
	if outcome == "ok" {
		m.probability.Record(ctx, best)
	}
}
