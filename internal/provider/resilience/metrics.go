package resilience

import (
	"context"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/clearroute/clearroute/internal/provider/resilience"

// Metrics holds instruments for outbound provider calls.
type Metrics struct {
	callDuration metric.Float64Histogram
	callTotal    metric.Int64Counter
}

// NewMetrics creates provider call instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)

	callDuration, err := meter.Float64Histogram(
		"provider.request.duration",
		metric.WithDescription("Duration of outbound provider requests in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	callTotal, err := meter.Int64Counter(
		"provider.request.total",
		metric.WithDescription("Total number of outbound provider requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		callDuration: callDuration,
		callTotal:    callTotal,
	}, nil
}

// RecordCall records one provider call. status is zero when no response was received.
func (m *Metrics) RecordCall(ctx context.Context, provider string, status int, duration time.Duration, failed bool) {
	attrs := metric.WithAttributes(
		attribute.String("provider.name", provider),
		attribute.String("http.status_code", strconv.Itoa(status)),
		attribute.Bool("error", failed),
	)

	// Detach from request cancellation so late recordings are not dropped.
	ctx = context.WithoutCancel(ctx)
	m.callDuration.Record(ctx, duration.Seconds(), attrs)
	m.callTotal.Add(ctx, 1, attrs)
}
