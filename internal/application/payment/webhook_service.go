package payment

import (
	"context"
	"errors"
	"time"

	apporder "github.com/storefront/backend/internal/application/order"
	"github.com/storefront/backend/internal/domain/payment"
	"github.com/storefront/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// ErrInvalidSignature is returned when a webhook fails verification
var ErrInvalidSignature = shared.NewDomainError(shared.CodePaymentGateway, "Webhook signature verification failed")

// OrderPayments applies payment outcomes to orders
type OrderPayments interface {
	ConfirmPaymentByIntent(ctx context.Context, intentID string) (bool, error)
	FailPaymentByIntent(ctx context.Context, intentID, reason string) (bool, error)
}

// WebhookResult contains the result of processing a webhook
type WebhookResult struct {
	EventID   string `json:"event_id"`
	EventType string `json:"event_type"`
	Processed bool   `json:"processed"`
	Duplicate bool   `json:"duplicate,omitempty"`
	Message   string `json:"message,omitempty"`
}

// WebhookService verifies gateway callbacks and applies them to orders.
// Deliveries are deduplicated by event id; a delivery that fails is
// released so the gateway's redelivery is processed again.
type WebhookService struct {
	gateway payment.Gateway
	orders  OrderPayments
	store   shared.IdempotencyStore
	ttl     time.Duration
	logger  *zap.Logger
}

// NewWebhookService creates a new WebhookService
func NewWebhookService(gateway payment.Gateway, orders OrderPayments, store shared.IdempotencyStore, ttl time.Duration, logger *zap.Logger) *WebhookService {
	if ttl <= 0 {
		ttl = shared.DefaultIdempotencyConfig().TTL
	}
	return &WebhookService{
		gateway: gateway,
		orders:  orders,
		store:   store,
		ttl:     ttl,
		logger:  logger,
	}
}

// ProcessWebhook verifies and applies one webhook delivery. A returned
// error asks the gateway to redeliver; everything else is acknowledged.
func (s *WebhookService) ProcessWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error) {
	event, err := s.gateway.VerifyWebhook(payload, signature)
	if err != nil {
		s.logger.Warn("webhook signature verification failed",
			zap.String("gateway", s.gateway.Name()),
			zap.Error(err),
		)
		return nil, ErrInvalidSignature
	}

	result := &WebhookResult{
		EventID:   event.ID,
		EventType: event.RawType,
	}
	log := s.logger.With(
		zap.String("gateway", s.gateway.Name()),
		zap.String("event_id", event.ID),
		zap.String("event_type", event.RawType),
		zap.String("payment_intent_id", event.IntentID),
	)

	if event.Type == payment.WebhookIgnored {
		log.Debug("unhandled webhook event type")
		result.Message = "Event type not handled"
		return result, nil
	}

	key := "webhook:" + s.gateway.Name() + ":" + event.ID
	isNew, err := s.store.MarkProcessed(ctx, key, s.ttl)
	if err != nil {
		log.Warn("idempotency check failed, processing anyway", zap.Error(err))
		isNew = true
	}
	if !isNew {
		log.Info("duplicate webhook delivery skipped")
		result.Duplicate = true
		result.Message = "Duplicate event"
		return result, nil
	}

	changed, err := s.apply(ctx, event)
	if err != nil {
		switch {
		case apporder.IsNotFound(err):
			log.Warn("webhook references an unknown payment intent")
			result.Message = "Unknown payment intent"
			return result, nil
		case errors.Is(err, shared.ErrInvalidState):
			log.Warn("webhook conflicts with the recorded payment status", zap.Error(err))
			result.Message = err.Error()
			return result, nil
		}

		if relErr := s.store.Release(ctx, key); relErr != nil {
			log.Warn("failed to release webhook idempotency key", zap.Error(relErr))
		}
		log.Error("failed to process webhook event", zap.Error(err))
		return nil, err
	}

	result.Processed = changed
	if !changed {
		result.Message = "Order already up to date"
	}
	log.Info("webhook event processed", zap.Bool("changed", changed))
	return result, nil
}

func (s *WebhookService) apply(ctx context.Context, event *payment.WebhookEvent) (bool, error) {
	switch event.Type {
	case payment.WebhookPaymentSucceeded:
		return s.orders.ConfirmPaymentByIntent(ctx, event.IntentID)
	case payment.WebhookPaymentFailed:
		reason := event.FailureMessage
		if reason == "" {
			reason = "payment failed"
		}
		return s.orders.FailPaymentByIntent(ctx, event.IntentID, reason)
	default:
		return false, nil
	}
}
