package order

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// ReceiptStore persists rendered receipts under a key
type ReceiptStore interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
}

// Receipt is the archived record of a paid order
type Receipt struct {
	OrderID         uuid.UUID           `json:"order_id"`
	OrderNumber     string              `json:"order_number"`
	UserID          uuid.UUID           `json:"user_id"`
	Shipping        ShippingResponse    `json:"shipping"`
	Items           []OrderLineResponse `json:"items"`
	Currency        string              `json:"currency"`
	Subtotal        decimal.Decimal     `json:"subtotal"`
	TaxAmount       decimal.Decimal     `json:"tax_amount"`
	TotalAmount     decimal.Decimal     `json:"total_amount"`
	PaymentIntentID string              `json:"payment_intent_id"`
	PaidAt          time.Time           `json:"paid_at"`
	IssuedAt        time.Time           `json:"issued_at"`
}

// ReceiptKey returns the object key a paid order's receipt is stored at
func ReceiptKey(orderNumber string, paidAt time.Time) string {
	return fmt.Sprintf("%s/%s.json", paidAt.UTC().Format("2006/01"), orderNumber)
}

// ReceiptArchiver writes a receipt for every order whose payment completes
type ReceiptArchiver struct {
	repo   order.Repository
	store  ReceiptStore
	logger *zap.Logger
	now    func() time.Time
}

// NewReceiptArchiver creates a new ReceiptArchiver
func NewReceiptArchiver(repo order.Repository, store ReceiptStore, logger *zap.Logger) *ReceiptArchiver {
	return &ReceiptArchiver{
		repo:   repo,
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *ReceiptArchiver) EventTypes() []string {
	return []string{order.EventTypeOrderPaymentCompleted}
}

// Handle renders and stores the receipt for a paid order
func (h *ReceiptArchiver) Handle(ctx context.Context, event shared.DomainEvent) error {
	paid, ok := event.(*order.OrderPaymentCompletedEvent)
	if !ok {
		return fmt.Errorf("receipt archiver: unexpected event %T", event)
	}

	o, err := h.repo.FindByID(ctx, paid.OrderID)
	if err != nil {
		return fmt.Errorf("receipt archiver: load order %s: %w", paid.OrderNumber, err)
	}

	view := ToOrderResponse(o)
	receipt := Receipt{
		OrderID:         o.ID,
		OrderNumber:     o.OrderNumber,
		UserID:          o.UserID,
		Shipping:        view.Shipping,
		Items:           view.Items,
		Currency:        view.Currency,
		Subtotal:        o.Subtotal,
		TaxAmount:       o.TaxAmount,
		TotalAmount:     o.TotalAmount,
		PaymentIntentID: o.PaymentIntentID,
		PaidAt:          paid.PaidAt,
		IssuedAt:        h.now(),
	}
	body, err := json.MarshalIndent(receipt, "", "  ")
	if err != nil {
		return fmt.Errorf("receipt archiver: encode %s: %w", o.OrderNumber, err)
	}

	key := ReceiptKey(o.OrderNumber, paid.PaidAt)
	if err := h.store.Put(ctx, key, body, "application/json"); err != nil {
		return fmt.Errorf("receipt archiver: store %s: %w", key, err)
	}

	h.logger.Info("receipt archived",
		zap.String("order_id", o.ID.String()),
		zap.String("key", key),
	)
	return nil
}

var _ shared.EventHandler = (*ReceiptArchiver)(nil)
