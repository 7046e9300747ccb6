package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/storefront/backend/internal/domain/payment"
	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/form"
	"github.com/stripe/stripe-go/v81/webhook"
	"go.uber.org/zap"
)

const testWebhookSecret = "whsec_test_123456789"

// mockBackend implements stripe.Backend for testing
type mockBackend struct {
	handler func(method, path string, params stripe.ParamsContainer) ([]byte, error)
}

func (m *mockBackend) Call(method, path, key string, params stripe.ParamsContainer, v stripe.LastResponseSetter) error {
	data, err := m.handler(method, path, params)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func (m *mockBackend) CallStreaming(method, path, key string, params stripe.ParamsContainer, v stripe.StreamingLastResponseSetter) error {
	return nil
}

func (m *mockBackend) CallRaw(method, path, key string, body *form.Values, params *stripe.Params, v stripe.LastResponseSetter) error {
	return nil
}

func (m *mockBackend) CallMultipart(method, path, key, boundary string, body *bytes.Buffer, params *stripe.Params, v stripe.LastResponseSetter) error {
	return nil
}

func (m *mockBackend) SetMaxNetworkRetries(maxNetworkRetries int64) {}

func testStripeConfig() config.StripeConfig {
	return config.StripeConfig{
		SecretKey:     "sk_test_123456789",
		WebhookSecret: testWebhookSecret,
	}
}

func newTestStripeGateway(t *testing.T, handler func(method, path string, params stripe.ParamsContainer) ([]byte, error)) *StripeGateway {
	t.Helper()
	g, err := NewStripeGateway(testStripeConfig(), zap.NewNop(), WithStripeBackend(&mockBackend{handler: handler}))
	require.NoError(t, err)
	return g
}

func validIntentRequest() payment.CreateIntentRequest {
	return payment.CreateIntentRequest{
		AmountMinor:    2750,
		Currency:       "USD",
		IdempotencyKey: "checkout:cart:2",
		Metadata:       map[string]string{"user_id": "u1"},
	}
}

func TestNewStripeGateway_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.StripeConfig
	}{
		{"missing key", config.StripeConfig{WebhookSecret: "whsec"}},
		{"publishable key", config.StripeConfig{SecretKey: "pk_test_1", WebhookSecret: "whsec"}},
		{"missing webhook secret", config.StripeConfig{SecretKey: "sk_test_1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewStripeGateway(tt.cfg, zap.NewNop())
			assert.ErrorIs(t, err, payment.ErrGatewayNotConfigured)
		})
	}
}

func TestStripeGateway_CreateIntent(t *testing.T) {
	var captured *stripe.PaymentIntentParams
	g := newTestStripeGateway(t, func(method, path string, params stripe.ParamsContainer) ([]byte, error) {
		assert.Equal(t, "POST", method)
		assert.Equal(t, "/v1/payment_intents", path)
		captured = params.(*stripe.PaymentIntentParams)
		return []byte(`{"id":"pi_123","object":"payment_intent","amount":2750,"currency":"usd","client_secret":"pi_123_secret_abc","status":"requires_payment_method"}`), nil
	})

	intent, err := g.CreateIntent(context.Background(), validIntentRequest())
	require.NoError(t, err)

	assert.Equal(t, "pi_123", intent.ID)
	assert.Equal(t, "pi_123_secret_abc", intent.ClientSecret)
	assert.Equal(t, payment.IntentStatusRequiresPayment, intent.Status)
	assert.Equal(t, "USD", intent.Currency)

	require.NotNil(t, captured)
	assert.Equal(t, int64(2750), *captured.Amount)
	assert.Equal(t, "usd", *captured.Currency)
	assert.Equal(t, "checkout:cart:2", *captured.IdempotencyKey)
	assert.Equal(t, "u1", captured.Metadata["user_id"])
	assert.True(t, *captured.AutomaticPaymentMethods.Enabled)
}

func TestStripeGateway_CreateIntentErrors(t *testing.T) {
	t.Run("invalid request never reaches Stripe", func(t *testing.T) {
		g := newTestStripeGateway(t, func(string, string, stripe.ParamsContainer) ([]byte, error) {
			t.Fatal("unexpected call")
			return nil, nil
		})
		req := validIntentRequest()
		req.AmountMinor = 0
		_, err := g.CreateIntent(context.Background(), req)
		assert.ErrorIs(t, err, payment.ErrInvalidAmount)
	})

	t.Run("card errors keep their message", func(t *testing.T) {
		g := newTestStripeGateway(t, func(string, string, stripe.ParamsContainer) ([]byte, error) {
			return nil, &stripe.Error{Type: stripe.ErrorTypeCard, Msg: "Your card was declined.", HTTPStatusCode: 402}
		})
		_, err := g.CreateIntent(context.Background(), validIntentRequest())

		var ge *payment.GatewayError
		require.ErrorAs(t, err, &ge)
		assert.Equal(t, "Your card was declined.", ge.Detail)
		assert.ErrorIs(t, err, payment.ErrGatewayRequestFailed)
	})

	t.Run("server errors are unavailable", func(t *testing.T) {
		g := newTestStripeGateway(t, func(string, string, stripe.ParamsContainer) ([]byte, error) {
			return nil, &stripe.Error{Type: stripe.ErrorTypeAPI, Msg: "internal", HTTPStatusCode: 503}
		})
		_, err := g.CreateIntent(context.Background(), validIntentRequest())

		var ge *payment.GatewayError
		require.ErrorAs(t, err, &ge)
		assert.Empty(t, ge.Detail)
		assert.ErrorIs(t, err, payment.ErrGatewayUnavailable)
	})
}

func TestStripeGateway_CancelIntent(t *testing.T) {
	g := newTestStripeGateway(t, func(method, path string, params stripe.ParamsContainer) ([]byte, error) {
		assert.Equal(t, "/v1/payment_intents/pi_123/cancel", path)
		p := params.(*stripe.PaymentIntentCancelParams)
		assert.Equal(t, "abandoned", *p.CancellationReason)
		return []byte(`{"id":"pi_123","object":"payment_intent","status":"canceled"}`), nil
	})

	require.NoError(t, g.CancelIntent(context.Background(), "pi_123", "checkout_commit_failed"))
}

func signedStripeEvent(t *testing.T, eventType, object string) ([]byte, string) {
	t.Helper()
	payload := []byte(`{"id":"evt_1","object":"event","type":"` + eventType + `","data":{"object":` + object + `}}`)
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    testWebhookSecret,
		Timestamp: time.Now(),
	})
	return signed.Payload, signed.Header
}

func TestStripeGateway_VerifyWebhook(t *testing.T) {
	g := newTestStripeGateway(t, nil)

	t.Run("payment succeeded", func(t *testing.T) {
		body, header := signedStripeEvent(t, "payment_intent.succeeded", `{"id":"pi_123","object":"payment_intent"}`)

		ev, err := g.VerifyWebhook(body, header)
		require.NoError(t, err)
		assert.Equal(t, "evt_1", ev.ID)
		assert.Equal(t, payment.WebhookPaymentSucceeded, ev.Type)
		assert.Equal(t, "pi_123", ev.IntentID)
	})

	t.Run("payment failed carries the reason", func(t *testing.T) {
		body, header := signedStripeEvent(t, "payment_intent.payment_failed",
			`{"id":"pi_123","object":"payment_intent","last_payment_error":{"message":"Your card has insufficient funds."}}`)

		ev, err := g.VerifyWebhook(body, header)
		require.NoError(t, err)
		assert.Equal(t, payment.WebhookPaymentFailed, ev.Type)
		assert.Equal(t, "Your card has insufficient funds.", ev.FailureMessage)
	})

	t.Run("other events are ignored", func(t *testing.T) {
		body, header := signedStripeEvent(t, "charge.refunded", `{"id":"ch_1","object":"charge"}`)

		ev, err := g.VerifyWebhook(body, header)
		require.NoError(t, err)
		assert.Equal(t, payment.WebhookIgnored, ev.Type)
		assert.Equal(t, "charge.refunded", ev.RawType)
	})

	t.Run("tampered body is rejected", func(t *testing.T) {
		body, header := signedStripeEvent(t, "payment_intent.succeeded", `{"id":"pi_123","object":"payment_intent"}`)
		tampered := bytes.Replace(body, []byte("pi_123"), []byte("pi_999"), 1)

		_, err := g.VerifyWebhook(tampered, header)
		assert.ErrorIs(t, err, payment.ErrInvalidSignature)
	})

	t.Run("missing header", func(t *testing.T) {
		_, err := g.VerifyWebhook([]byte(`{}`), "")
		assert.ErrorIs(t, err, payment.ErrInvalidSignature)
	})
}
