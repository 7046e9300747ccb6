package event

import (
	"context"

	"github.com/storefront/backend/internal/domain/shared"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"
)

// Handler outcomes recorded on event_handled_total
const (
	OutcomeProcessed = "processed"
	OutcomeDuplicate = "duplicate"
	OutcomeFailed    = "failed"
)

// IdempotentHandler applies each relayed event at most once per subscriber.
// Marks are keyed by subscriber name and event id; a failed attempt
// releases its mark so the next outbox retry runs the subscriber again.
type IdempotentHandler struct {
	name    string
	handler shared.EventHandler
	store   shared.IdempotencyStore
	config  shared.IdempotencyConfig
	logger  *zap.Logger
	handled metric.Int64Counter
}

// IdempotentHandlerOption configures an IdempotentHandler
type IdempotentHandlerOption func(*IdempotentHandler)

func WithIdempotencyConfig(config shared.IdempotencyConfig) IdempotentHandlerOption {
	return func(h *IdempotentHandler) {
		h.config = config
	}
}

// WithHandlerMeter counts outcomes on event_handled_total
func WithHandlerMeter(meter metric.Meter) IdempotentHandlerOption {
	return func(h *IdempotentHandler) {
		counter, err := meter.Int64Counter("event_handled_total",
			metric.WithDescription("Relayed events by subscriber and outcome"))
		if err == nil {
			h.handled = counter
		}
	}
}

// NewIdempotentHandler wraps handler under the subscriber name
func NewIdempotentHandler(
	name string,
	handler shared.EventHandler,
	store shared.IdempotencyStore,
	logger *zap.Logger,
	opts ...IdempotentHandlerOption,
) *IdempotentHandler {
	h := &IdempotentHandler{
		name:    name,
		handler: handler,
		store:   store,
		config:  shared.DefaultIdempotencyConfig(),
		logger:  logger.With(zap.String("subscriber", name)),
	}
	h.handled, _ = noop.NewMeterProvider().Meter("").Int64Counter("event_handled_total")
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *IdempotentHandler) EventTypes() []string {
	return h.handler.EventTypes()
}

func (h *IdempotentHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if !h.config.Enabled {
		return h.handler.Handle(ctx, event)
	}

	key := h.name + ":" + event.EventID().String()
	log := h.logger.With(
		zap.String("event_id", event.EventID().String()),
		zap.String("event_type", event.EventType()),
	)

	isNew, err := h.store.MarkProcessed(ctx, key, h.config.TTL)
	switch {
	case err != nil:
		// A duplicate is preferable to a dropped event.
		log.Warn("idempotency store unavailable, handling anyway", zap.Error(err))
	case !isNew:
		log.Debug("event already handled, skipping")
		h.record(ctx, event, OutcomeDuplicate)
		return nil
	}

	if err := h.handler.Handle(ctx, event); err != nil {
		log.Error("event subscriber failed", zap.Error(err))
		if relErr := h.store.Release(ctx, key); relErr != nil {
			log.Warn("failed to release idempotency mark", zap.Error(relErr))
		}
		h.record(ctx, event, OutcomeFailed)
		return err
	}
	h.record(ctx, event, OutcomeProcessed)
	return nil
}

func (h *IdempotentHandler) record(ctx context.Context, event shared.DomainEvent, outcome string) {
	h.handled.Add(ctx, 1, metric.WithAttributes(
		attribute.String("subscriber", h.name),
		attribute.String("event_type", event.EventType()),
		attribute.String("outcome", outcome),
	))
}

var _ shared.EventHandler = (*IdempotentHandler)(nil)
