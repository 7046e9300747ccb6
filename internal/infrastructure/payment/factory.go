package payment

import (
	"fmt"

	"github.com/storefront/backend/internal/domain/payment"
	"github.com/storefront/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// NewGateway builds the gateway selected by cfg.Mode
func NewGateway(cfg config.PaymentConfig, logger *zap.Logger) (payment.Gateway, error) {
	switch cfg.Mode {
	case "stripe":
		return NewStripeGateway(cfg.Stripe, logger)
	case "offline", "":
		logger.Warn("using the offline payment gateway; no real payments will be taken")
		return NewOfflineGateway(cfg.Offline.WebhookSecret)
	default:
		return nil, fmt.Errorf("%w: unknown payment mode %q", payment.ErrGatewayNotConfigured, cfg.Mode)
	}
}
