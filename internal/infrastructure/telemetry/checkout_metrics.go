package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/storefront/backend/internal/application/checkout"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// CheckoutMetrics records checkout outcomes as OpenTelemetry instruments
type CheckoutMetrics struct {
	completed           metric.Int64Counter
	failed              metric.Int64Counter
	duration            metric.Float64Histogram
	compensationsFailed metric.Int64Counter
}

// NewCheckoutMetrics registers the checkout instruments on meter
func NewCheckoutMetrics(meter metric.Meter) (*CheckoutMetrics, error) {
	m := &CheckoutMetrics{}
	var err error

	if m.completed, err = meter.Int64Counter("checkout_completed_total",
		metric.WithDescription("Orders committed by checkout"),
		metric.WithUnit("{order}"),
	); err != nil {
		return nil, fmt.Errorf("checkout_completed_total: %w", err)
	}
	if m.failed, err = meter.Int64Counter("checkout_failed_total",
		metric.WithDescription("Checkouts that ended with an error, by code"),
		metric.WithUnit("{checkout}"),
	); err != nil {
		return nil, fmt.Errorf("checkout_failed_total: %w", err)
	}
	if m.duration, err = meter.Float64Histogram("checkout_duration_seconds",
		metric.WithDescription("Time from checkout request to committed order"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	); err != nil {
		return nil, fmt.Errorf("checkout_duration_seconds: %w", err)
	}
	if m.compensationsFailed, err = meter.Int64Counter("checkout_compensation_failed_total",
		metric.WithDescription("Payment intents left open after a failed checkout"),
		metric.WithUnit("{intent}"),
	); err != nil {
		return nil, fmt.Errorf("checkout_compensation_failed_total: %w", err)
	}
	return m, nil
}

func (m *CheckoutMetrics) CheckoutCompleted(ctx context.Context, d time.Duration) {
	m.completed.Add(ctx, 1)
	m.duration.Record(ctx, d.Seconds())
}

func (m *CheckoutMetrics) CheckoutFailed(ctx context.Context, code string) {
	if code == "" {
		code = "INTERNAL"
	}
	m.failed.Add(ctx, 1, metric.WithAttributes(attribute.String("code", code)))
}

func (m *CheckoutMetrics) CompensationFailed(ctx context.Context, gateway string) {
	m.compensationsFailed.Add(ctx, 1, metric.WithAttributes(attribute.String("gateway", gateway)))
}

var _ checkout.Metrics = (*CheckoutMetrics)(nil)
