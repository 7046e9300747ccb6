package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/storefront/backend/internal/domain/payment"
)

// OfflineWebhookPayload is the body of a simulated webhook
type OfflineWebhookPayload struct {
	ID             string `json:"id"`
	Type           string `json:"type"`
	IntentID       string `json:"intent_id"`
	FailureMessage string `json:"failure_message,omitempty"`
}

// OfflineGateway simulates a payment provider for local development and
// offline deployments. Intent ids are derived from the idempotency key, so
// retries return the same intent. Webhooks are signed with HMAC-SHA256.
type OfflineGateway struct {
	secret []byte

	mu      sync.Mutex
	intents map[string]*payment.Intent
}

// NewOfflineGateway creates a simulated gateway
func NewOfflineGateway(webhookSecret string) (*OfflineGateway, error) {
	if webhookSecret == "" {
		return nil, fmt.Errorf("%w: offline webhook secret is required", payment.ErrGatewayNotConfigured)
	}
	return &OfflineGateway{
		secret:  []byte(webhookSecret),
		intents: make(map[string]*payment.Intent),
	}, nil
}

// Name identifies the gateway
func (g *OfflineGateway) Name() string {
	return "offline"
}

// CreateIntent records an intent keyed by the idempotency key
func (g *OfflineGateway) CreateIntent(ctx context.Context, req payment.CreateIntentRequest) (*payment.Intent, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, &payment.GatewayError{Op: "create_intent", Err: err}
	}

	sum := sha256.Sum256([]byte(req.IdempotencyKey))
	id := "pi_off_" + hex.EncodeToString(sum[:12])

	g.mu.Lock()
	defer g.mu.Unlock()

	if existing, ok := g.intents[id]; ok {
		cp := *existing
		return &cp, nil
	}
	intent := &payment.Intent{
		ID:           id,
		ClientSecret: id + "_secret_" + g.sign([]byte(id))[:16],
		Status:       payment.IntentStatusRequiresPayment,
		AmountMinor:  req.AmountMinor,
		Currency:     strings.ToUpper(req.Currency),
	}
	g.intents[id] = intent
	cp := *intent
	return &cp, nil
}

// CancelIntent marks a known intent as cancelled
func (g *OfflineGateway) CancelIntent(ctx context.Context, intentID, reason string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	intent, ok := g.intents[intentID]
	if !ok {
		return &payment.GatewayError{Op: "cancel_intent", Err: fmt.Errorf("%w: %s", payment.ErrIntentNotFound, intentID)}
	}
	if intent.Status == payment.IntentStatusSucceeded {
		return &payment.GatewayError{Op: "cancel_intent", Detail: "intent already succeeded", Err: payment.ErrGatewayRequestFailed}
	}
	intent.Status = payment.IntentStatusCanceled
	return nil
}

// VerifyWebhook checks the hex HMAC-SHA256 signature of the body
func (g *OfflineGateway) VerifyWebhook(body []byte, signature string) (*payment.WebhookEvent, error) {
	if signature == "" {
		return nil, fmt.Errorf("%w: missing signature", payment.ErrInvalidSignature)
	}
	if !hmac.Equal([]byte(g.sign(body)), []byte(strings.ToLower(signature))) {
		return nil, payment.ErrInvalidSignature
	}

	var p OfflineWebhookPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", payment.ErrGatewayInvalidResponse, err)
	}

	ev := &payment.WebhookEvent{
		ID:             p.ID,
		RawType:        p.Type,
		IntentID:       p.IntentID,
		FailureMessage: p.FailureMessage,
		Type:           payment.WebhookIgnored,
	}
	switch p.Type {
	case stripeEventSucceeded:
		ev.Type = payment.WebhookPaymentSucceeded
		g.setStatus(p.IntentID, payment.IntentStatusSucceeded)
	case stripeEventFailed:
		ev.Type = payment.WebhookPaymentFailed
	}
	return ev, nil
}

// SupportsDirectConfirmation is true: offline payments are confirmed by
// the order owner through the API
func (g *OfflineGateway) SupportsDirectConfirmation() bool {
	return true
}

// Sign returns the signature a webhook body must carry
func (g *OfflineGateway) Sign(body []byte) string {
	return g.sign(body)
}

func (g *OfflineGateway) sign(body []byte) string {
	mac := hmac.New(sha256.New, g.secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func (g *OfflineGateway) setStatus(intentID string, status payment.IntentStatus) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if intent, ok := g.intents[intentID]; ok {
		intent.Status = status
	}
}

var _ payment.Gateway = (*OfflineGateway)(nil)
