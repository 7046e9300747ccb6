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
	"github.com/stretchr/testify/mock"
)

type mockProductService struct{ mock.Mock }

func (m *mockProductService) List(ctx context.Context, filter catalogapp.ProductListFilter) ([]catalogapp.ProductResponse, int64, error) {
	args := m.Called(ctx, filter)
	var out []catalogapp.ProductResponse
	if v := args.Get(0); v != nil {
		out = v.([]catalogapp.ProductResponse)
	}
	return out, args.Get(1).(int64), args.Error(2)
}

func (m *mockProductService) GetByID(ctx context.Context, id uuid.UUID) (*catalogapp.ProductResponse, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*catalogapp.ProductResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockProductService) ListLowStock(ctx context.Context, threshold int) ([]catalogapp.ProductResponse, error) {
	args := m.Called(ctx, threshold)
	var out []catalogapp.ProductResponse
	if v := args.Get(0); v != nil {
		out = v.([]catalogapp.ProductResponse)
	}
	return out, args.Error(1)
}

type mockCartService struct{ mock.Mock }

func (m *mockCartService) cart(args mock.Arguments) (*cartapp.CartResponse, error) {
	if v := args.Get(0); v != nil {
		return v.(*cartapp.CartResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCartService) GetCart(ctx context.Context, userID uuid.UUID) (*cartapp.CartResponse, error) {
	return m.cart(m.Called(ctx, userID))
}

func (m *mockCartService) AddItem(ctx context.Context, userID uuid.UUID, req cartapp.AddItemRequest) (*cartapp.CartResponse, error) {
	return m.cart(m.Called(ctx, userID, req))
}

func (m *mockCartService) UpdateItem(ctx context.Context, userID, lineID uuid.UUID, req cartapp.UpdateItemRequest) (*cartapp.CartResponse, error) {
	return m.cart(m.Called(ctx, userID, lineID, req))
}

func (m *mockCartService) RemoveItem(ctx context.Context, userID, lineID uuid.UUID) (*cartapp.CartResponse, error) {
	return m.cart(m.Called(ctx, userID, lineID))
}

func (m *mockCartService) Clear(ctx context.Context, userID uuid.UUID) (*cartapp.CartResponse, error) {
	return m.cart(m.Called(ctx, userID))
}

type mockCheckoutService struct{ mock.Mock }

func (m *mockCheckoutService) Checkout(ctx context.Context, userID uuid.UUID, req checkoutapp.CheckoutRequest) (*checkoutapp.CheckoutResult, error) {
	args := m.Called(ctx, userID, req)
	if v := args.Get(0); v != nil {
		return v.(*checkoutapp.CheckoutResult), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockOrderService struct{ mock.Mock }

func (m *mockOrderService) order(args mock.Arguments) (*orderapp.OrderResponse, error) {
	if v := args.Get(0); v != nil {
		return v.(*orderapp.OrderResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockOrderService) ListOrders(ctx context.Context, actor orderapp.Actor, filter orderapp.OrderListFilter) ([]orderapp.OrderResponse, int64, error) {
	args := m.Called(ctx, actor, filter)
	var out []orderapp.OrderResponse
	if v := args.Get(0); v != nil {
		out = v.([]orderapp.OrderResponse)
	}
	return out, args.Get(1).(int64), args.Error(2)
}

func (m *mockOrderService) GetOrder(ctx context.Context, actor orderapp.Actor, id uuid.UUID) (*orderapp.OrderResponse, error) {
	return m.order(m.Called(ctx, actor, id))
}

func (m *mockOrderService) UpdateStatus(ctx context.Context, actor orderapp.Actor, id uuid.UUID, req orderapp.UpdateStatusRequest) (*orderapp.OrderResponse, error) {
	return m.order(m.Called(ctx, actor, id, req))
}

func (m *mockOrderService) ConfirmPayment(ctx context.Context, actor orderapp.Actor, id uuid.UUID) (*orderapp.OrderResponse, error) {
	return m.order(m.Called(ctx, actor, id))
}

type mockWebhookProcessor struct{ mock.Mock }

func (m *mockWebhookProcessor) ProcessWebhook(ctx context.Context, payload []byte, signature string) (*paymentapp.WebhookResult, error) {
	args := m.Called(ctx, payload, signature)
	if v := args.Get(0); v != nil {
		return v.(*paymentapp.WebhookResult), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockOutboxAdmin struct{ mock.Mock }

func (m *mockOutboxAdmin) entry(args mock.Arguments) (*outboxapp.EntryResponse, error) {
	if v := args.Get(0); v != nil {
		return v.(*outboxapp.EntryResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockOutboxAdmin) ListDead(ctx context.Context, filter outboxapp.ListFilter) ([]outboxapp.EntryResponse, int64, error) {
	args := m.Called(ctx, filter)
	var out []outboxapp.EntryResponse
	if v := args.Get(0); v != nil {
		out = v.([]outboxapp.EntryResponse)
	}
	return out, args.Get(1).(int64), args.Error(2)
}

func (m *mockOutboxAdmin) GetEntry(ctx context.Context, id uuid.UUID) (*outboxapp.EntryResponse, error) {
	return m.entry(m.Called(ctx, id))
}

func (m *mockOutboxAdmin) RetryEntry(ctx context.Context, id uuid.UUID) (*outboxapp.EntryResponse, error) {
	return m.entry(m.Called(ctx, id))
}

func (m *mockOutboxAdmin) RetryAllDead(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockOutboxAdmin) Stats(ctx context.Context) (*outboxapp.StatsResponse, error) {
	args := m.Called(ctx)
	if v := args.Get(0); v != nil {
		return v.(*outboxapp.StatsResponse), args.Error(1)
	}
	return nil, args.Error(1)
}
