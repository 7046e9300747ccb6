package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Payment Gateway Errors
// ---------------------------------------------------------------------------

var (
	ErrInvalidAmount         = errors.New("payment: invalid payment amount")
	ErrInvalidCurrency       = errors.New("payment: invalid currency")
	ErrMissingIdempotencyKey = errors.New("payment: missing idempotency key")
	ErrIntentNotFound        = errors.New("payment: intent not found")

	ErrGatewayNotConfigured   = errors.New("payment: gateway not configured")
	ErrGatewayUnavailable     = errors.New("payment: gateway temporarily unavailable")
	ErrGatewayRequestFailed   = errors.New("payment: gateway request failed")
	ErrGatewayInvalidResponse = errors.New("payment: invalid gateway response")
	ErrInvalidSignature       = errors.New("payment: invalid webhook signature")
)

// ---------------------------------------------------------------------------
// Intents
// ---------------------------------------------------------------------------

// IntentStatus is the gateway-side state of a payment intent
type IntentStatus string

const (
	IntentStatusRequiresPayment IntentStatus = "requires_payment_method"
	IntentStatusProcessing      IntentStatus = "processing"
	IntentStatusSucceeded       IntentStatus = "succeeded"
	IntentStatusCanceled        IntentStatus = "canceled"
)

// CreateIntentRequest asks the gateway to authorize an amount
type CreateIntentRequest struct {
	// AmountMinor is the amount in minor currency units, e.g. cents
	AmountMinor int64
	// Currency is an ISO 4217 code
	Currency string
	// IdempotencyKey makes retried creations return the same intent
	IdempotencyKey string
	// Metadata is stored on the intent for reconciliation
	Metadata map[string]string
	// Description is shown on the gateway dashboard
	Description string
}

// Validate checks the request before it reaches the gateway
func (r *CreateIntentRequest) Validate() error {
	if r.AmountMinor <= 0 {
		return ErrInvalidAmount
	}
	if len(strings.TrimSpace(r.Currency)) != 3 {
		return ErrInvalidCurrency
	}
	if strings.TrimSpace(r.IdempotencyKey) == "" {
		return ErrMissingIdempotencyKey
	}
	return nil
}

// Intent is a gateway handle for an authorization
type Intent struct {
	ID           string
	ClientSecret string
	Status       IntentStatus
	AmountMinor  int64
	Currency     string
}

// ---------------------------------------------------------------------------
// Webhooks
// ---------------------------------------------------------------------------

// WebhookEventType classifies a verified gateway callback
type WebhookEventType string

const (
	WebhookPaymentSucceeded WebhookEventType = "payment.succeeded"
	WebhookPaymentFailed    WebhookEventType = "payment.failed"
	WebhookIgnored          WebhookEventType = "ignored"
)

// WebhookEvent is a verified, normalized gateway callback
type WebhookEvent struct {
	// ID is the gateway's event id, unique per delivery subject
	ID string
	// Type is the normalized event type
	Type WebhookEventType
	// RawType is the gateway's own event type name
	RawType string
	// IntentID references the intent the event is about
	IntentID string
	// FailureMessage explains a failed payment
	FailureMessage string
}

// ---------------------------------------------------------------------------
// Gateway
// ---------------------------------------------------------------------------

// Gateway is the external payment provider
type Gateway interface {
	// Name identifies the gateway in logs and metrics
	Name() string

	// CreateIntent authorizes an amount. Retries with the same idempotency
	// key return the same intent.
	CreateIntent(ctx context.Context, req CreateIntentRequest) (*Intent, error)

	// CancelIntent voids an intent that will not be captured
	CancelIntent(ctx context.Context, intentID, reason string) error

	// VerifyWebhook authenticates a raw callback and normalizes it.
	// Returns an error wrapping ErrInvalidSignature when verification fails.
	VerifyWebhook(payload []byte, signature string) (*WebhookEvent, error)

	// SupportsDirectConfirmation reports whether payment may be confirmed
	// by an authenticated API call instead of a webhook
	SupportsDirectConfirmation() bool
}

// GatewayError wraps a gateway failure with a human-readable detail
type GatewayError struct {
	Op     string
	Detail string
	Err    error
}

func (e *GatewayError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("payment: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("payment: %s: %s", e.Op, e.Detail)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}
