package handler

import (
	"context"

	"github.com/google/uuid"
	cartapp "github.com/storefront/backend/internal/application/cart"
	catalogapp "github.com/storefront/backend/internal/application/catalog"
	checkoutapp "github.com/storefront/backend/internal/application/checkout"
	orderapp "github.com/storefront/backend/internal/application/order"
	outboxapp "github.com/storefront/backend/internal/application/outbox"
	paymentapp "github.com/storefront/backend/internal/application/payment"
)

// ProductService is the catalog read side used by ProductHandler
type ProductService interface {
	List(ctx context.Context, filter catalogapp.ProductListFilter) ([]catalogapp.ProductResponse, int64, error)
	GetByID(ctx context.Context, id uuid.UUID) (*catalogapp.ProductResponse, error)
	ListLowStock(ctx context.Context, threshold int) ([]catalogapp.ProductResponse, error)
}

// CartService is used by CartHandler
type CartService interface {
	GetCart(ctx context.Context, userID uuid.UUID) (*cartapp.CartResponse, error)
	AddItem(ctx context.Context, userID uuid.UUID, req cartapp.AddItemRequest) (*cartapp.CartResponse, error)
	UpdateItem(ctx context.Context, userID, lineID uuid.UUID, req cartapp.UpdateItemRequest) (*cartapp.CartResponse, error)
	RemoveItem(ctx context.Context, userID, lineID uuid.UUID) (*cartapp.CartResponse, error)
	Clear(ctx context.Context, userID uuid.UUID) (*cartapp.CartResponse, error)
}

// CheckoutService is used by CheckoutHandler
type CheckoutService interface {
	Checkout(ctx context.Context, userID uuid.UUID, req checkoutapp.CheckoutRequest) (*checkoutapp.CheckoutResult, error)
}

// OrderService is used by OrderHandler
type OrderService interface {
	ListOrders(ctx context.Context, actor orderapp.Actor, filter orderapp.OrderListFilter) ([]orderapp.OrderResponse, int64, error)
	GetOrder(ctx context.Context, actor orderapp.Actor, id uuid.UUID) (*orderapp.OrderResponse, error)
	UpdateStatus(ctx context.Context, actor orderapp.Actor, id uuid.UUID, req orderapp.UpdateStatusRequest) (*orderapp.OrderResponse, error)
	ConfirmPayment(ctx context.Context, actor orderapp.Actor, id uuid.UUID) (*orderapp.OrderResponse, error)
}

// WebhookProcessor is used by WebhookHandler
type WebhookProcessor interface {
	ProcessWebhook(ctx context.Context, payload []byte, signature string) (*paymentapp.WebhookResult, error)
}

// OutboxAdmin is used by OutboxHandler
type OutboxAdmin interface {
	ListDead(ctx context.Context, filter outboxapp.ListFilter) ([]outboxapp.EntryResponse, int64, error)
	GetEntry(ctx context.Context, id uuid.UUID) (*outboxapp.EntryResponse, error)
	RetryEntry(ctx context.Context, id uuid.UUID) (*outboxapp.EntryResponse, error)
	RetryAllDead(ctx context.Context) (int64, error)
	Stats(ctx context.Context) (*outboxapp.StatsResponse, error)
}

var (
	_ ProductService   = (*catalogapp.ProductService)(nil)
	_ CartService      = (*cartapp.Service)(nil)
	_ CheckoutService  = (*checkoutapp.Service)(nil)
	_ OrderService     = (*orderapp.Service)(nil)
	_ WebhookProcessor = (*paymentapp.WebhookService)(nil)
	_ OutboxAdmin      = (*outboxapp.Service)(nil)
)
