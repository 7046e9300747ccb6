package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/storefront/backend/internal/domain/payment"
	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
	"github.com/stripe/stripe-go/v81/webhook"
	"go.uber.org/zap"
)

// Stripe webhook event types this gateway reacts to
const (
	stripeEventSucceeded = "payment_intent.succeeded"
	stripeEventFailed    = "payment_intent.payment_failed"
)

// StripeGateway implements payment.Gateway with Stripe PaymentIntents. It
// owns its API client; the package-level stripe.Key is never used.
type StripeGateway struct {
	api           *client.API
	webhookSecret string
	logger        *zap.Logger
}

// StripeOption configures a StripeGateway
type StripeOption func(*stripeOptions)

type stripeOptions struct {
	backend stripe.Backend
}

// WithStripeBackend replaces the HTTP backend, e.g. with a test double
func WithStripeBackend(b stripe.Backend) StripeOption {
	return func(o *stripeOptions) {
		o.backend = b
	}
}

// ValidateStripeConfig checks the credentials before a client is built
func ValidateStripeConfig(cfg config.StripeConfig) error {
	if cfg.SecretKey == "" {
		return fmt.Errorf("%w: stripe secret key is required", payment.ErrGatewayNotConfigured)
	}
	if !strings.HasPrefix(cfg.SecretKey, "sk_") && !strings.HasPrefix(cfg.SecretKey, "rk_") {
		return fmt.Errorf("%w: stripe secret key must start with sk_ or rk_", payment.ErrGatewayNotConfigured)
	}
	if cfg.WebhookSecret == "" {
		return fmt.Errorf("%w: stripe webhook secret is required", payment.ErrGatewayNotConfigured)
	}
	return nil
}

// NewStripeGateway creates a gateway from explicit credentials
func NewStripeGateway(cfg config.StripeConfig, logger *zap.Logger, opts ...StripeOption) (*StripeGateway, error) {
	if err := ValidateStripeConfig(cfg); err != nil {
		return nil, err
	}

	o := &stripeOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if o.backend == nil {
		o.backend = stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
			MaxNetworkRetries: stripe.Int64(cfg.MaxRetries),
			LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelError},
		})
	}

	return &StripeGateway{
		api: client.New(cfg.SecretKey, &stripe.Backends{
			API:     o.backend,
			Connect: o.backend,
			Uploads: o.backend,
		}),
		webhookSecret: cfg.WebhookSecret,
		logger:        logger,
	}, nil
}

// Name identifies the gateway
func (g *StripeGateway) Name() string {
	return "stripe"
}

// CreateIntent creates a PaymentIntent with automatic payment methods.
// Stripe returns the original intent when the idempotency key repeats.
func (g *StripeGateway) CreateIntent(ctx context.Context, req payment.CreateIntentRequest) (*payment.Intent, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.AmountMinor),
		Currency: stripe.String(strings.ToLower(req.Currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	if req.Description != "" {
		params.Description = stripe.String(req.Description)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	params.Context = ctx
	params.SetIdempotencyKey(req.IdempotencyKey)

	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return nil, stripeError("create_intent", err)
	}

	g.logger.Debug("created Stripe payment intent",
		zap.String("payment_intent_id", pi.ID),
		zap.Int64("amount", pi.Amount),
		zap.String("currency", string(pi.Currency)),
	)
	return &payment.Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       payment.IntentStatus(pi.Status),
		AmountMinor:  pi.Amount,
		Currency:     strings.ToUpper(string(pi.Currency)),
	}, nil
}

// CancelIntent cancels a PaymentIntent. Stripe only accepts a fixed set of
// cancellation reasons, so ours is only logged.
func (g *StripeGateway) CancelIntent(ctx context.Context, intentID, reason string) error {
	params := &stripe.PaymentIntentCancelParams{
		CancellationReason: stripe.String(string(stripe.PaymentIntentCancellationReasonAbandoned)),
	}
	params.Context = ctx

	if _, err := g.api.PaymentIntents.Cancel(intentID, params); err != nil {
		return stripeError("cancel_intent", err)
	}
	g.logger.Info("cancelled Stripe payment intent",
		zap.String("payment_intent_id", intentID),
		zap.String("reason", reason),
	)
	return nil
}

// VerifyWebhook checks the Stripe-Signature header and normalizes the event
func (g *StripeGateway) VerifyWebhook(payload []byte, signature string) (*payment.WebhookEvent, error) {
	if signature == "" {
		return nil, fmt.Errorf("%w: missing Stripe-Signature header", payment.ErrInvalidSignature)
	}
	event, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", payment.ErrInvalidSignature, err)
	}

	out := &payment.WebhookEvent{
		ID:      event.ID,
		RawType: string(event.Type),
		Type:    payment.WebhookIgnored,
	}

	switch string(event.Type) {
	case stripeEventSucceeded, stripeEventFailed:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return nil, fmt.Errorf("%w: payment intent payload: %v", payment.ErrGatewayInvalidResponse, err)
		}
		out.IntentID = pi.ID
		if string(event.Type) == stripeEventSucceeded {
			out.Type = payment.WebhookPaymentSucceeded
		} else {
			out.Type = payment.WebhookPaymentFailed
			if pi.LastPaymentError != nil {
				out.FailureMessage = pi.LastPaymentError.Msg
			}
		}
	}
	return out, nil
}

// SupportsDirectConfirmation is false: Stripe confirms through webhooks
func (g *StripeGateway) SupportsDirectConfirmation() bool {
	return false
}

// stripeError wraps a Stripe API failure, keeping the user-facing message
// for card errors only
func stripeError(op string, err error) error {
	var se *stripe.Error
	if !errors.As(err, &se) {
		return &payment.GatewayError{Op: op, Err: fmt.Errorf("%w: %v", payment.ErrGatewayUnavailable, err)}
	}

	ge := &payment.GatewayError{Op: op, Err: fmt.Errorf("%w: %s", payment.ErrGatewayRequestFailed, se.Msg)}
	switch {
	case se.Type == stripe.ErrorTypeCard:
		ge.Detail = se.Msg
	case se.HTTPStatusCode == 404:
		ge.Err = fmt.Errorf("%w: %s", payment.ErrIntentNotFound, se.Msg)
	case se.HTTPStatusCode >= 500 || se.HTTPStatusCode == 429:
		ge.Err = fmt.Errorf("%w: %s", payment.ErrGatewayUnavailable, se.Msg)
	}
	return ge
}

var _ payment.Gateway = (*StripeGateway)(nil)
