package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	paymentapp "github.com/storefront/backend/internal/application/payment"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// DefaultWebhookMaxBytes bounds webhook payloads; gateway events are small
const DefaultWebhookMaxBytes = 64 << 10

// Signature headers, checked in order
const (
	StripeSignatureHeader  = "Stripe-Signature"
	GenericSignatureHeader = "X-Signature"
)

// WebhookHandler receives payment gateway callbacks. It is not behind JWT
// authentication; the payload signature authenticates the caller.
type WebhookHandler struct {
	BaseHandler
	processor WebhookProcessor
	maxBytes  int64
}

// NewWebhookHandler creates a new WebhookHandler. A non-positive maxBytes
// uses DefaultWebhookMaxBytes.
func NewWebhookHandler(processor WebhookProcessor, maxBytes int64) *WebhookHandler {
	if maxBytes <= 0 {
		maxBytes = DefaultWebhookMaxBytes
	}
	return &WebhookHandler{processor: processor, maxBytes: maxBytes}
}

// WebhookResponse acknowledges a webhook delivery
//
//	@Description	Payment webhook acknowledgement
type WebhookResponse struct {
	Received  bool   `json:"received" example:"true"`
	EventID   string `json:"event_id,omitempty" example:"evt_1234567890"`
	EventType string `json:"event_type,omitempty" example:"payment_intent.succeeded"`
	Duplicate bool   `json:"duplicate,omitempty"`
	Message   string `json:"message,omitempty" example:"Order already up to date"`
}

// Handle godoc
//
//	@ID				handlePaymentWebhook
//	@Summary		Handle payment webhook
//	@Description	Receive payment outcome events from the gateway. Deliveries are deduplicated by event id.
//	@Tags			webhooks
//	@Accept			json
//	@Produce		json
//	@Param			Stripe-Signature	header		string			false	"Stripe webhook signature"
//	@Param			X-Signature			header		string			false	"HMAC signature for the offline gateway"
//	@Success		200					{object}	WebhookResponse	"Webhook acknowledged"
//	@Failure		400					{object}	WebhookResponse	"Unreadable body"
//	@Failure		401					{object}	WebhookResponse	"Invalid signature"
//	@Failure		413					{object}	WebhookResponse	"Payload too large"
//	@Failure		500					{object}	WebhookResponse	"Processing failed, redeliver"
//	@Router			/webhooks/payment [post]
func (h *WebhookHandler) Handle(c *gin.Context) {
	// The raw body is needed for signature verification
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, h.maxBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, WebhookResponse{Message: "Failed to read request body"})
		return
	}
	if int64(len(payload)) > h.maxBytes {
		c.JSON(http.StatusRequestEntityTooLarge, WebhookResponse{Message: "Payload too large"})
		return
	}

	signature := c.GetHeader(StripeSignatureHeader)
	if signature == "" {
		signature = c.GetHeader(GenericSignatureHeader)
	}
	if signature == "" {
		c.JSON(http.StatusUnauthorized, WebhookResponse{Message: "Missing signature header"})
		return
	}

	result, err := h.processor.ProcessWebhook(c.Request.Context(), payload, signature)
	if err != nil {
		if errors.Is(err, paymentapp.ErrInvalidSignature) {
			c.JSON(http.StatusUnauthorized, WebhookResponse{Message: "Webhook signature verification failed"})
			return
		}
		// A non-2xx answer makes the gateway redeliver
		logger.GetGinLogger(c).Error("Webhook processing failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, WebhookResponse{Message: "Webhook processing failed"})
		return
	}

	c.JSON(http.StatusOK, WebhookResponse{
		Received:  true,
		EventID:   result.EventID,
		EventType: result.EventType,
		Duplicate: result.Duplicate,
		Message:   result.Message,
	})
}
