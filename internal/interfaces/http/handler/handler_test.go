package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	cartapp "github.com/storefront/backend/internal/application/cart"
	catalogapp "github.com/storefront/backend/internal/application/catalog"
	checkoutapp "github.com/storefront/backend/internal/application/checkout"
	orderapp "github.com/storefront/backend/internal/application/order"
	paymentapp "github.com/storefront/backend/internal/application/payment"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// asUser stands in for JWT authentication
func asUser(userID uuid.UUID, isAdmin bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.JWTUserIDKey, userID.String())
		c.Set(middleware.JWTIsAdminKey, isAdmin)
		c.Next()
	}
}

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(mw...)
	return r
}

func do(r *gin.Engine, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, _ := json.Marshal(b)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *dto.ErrorInfo  `json:"error"`
	Meta    *dto.Meta       `json:"meta"`
}

func parse(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func TestHandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"insufficient stock", shared.NewDomainError(shared.CodeInsufficientStock, "Insufficient stock for Blue Mug"), http.StatusUnprocessableEntity, "INSUFFICIENT_STOCK"},
		{"empty cart", shared.ErrEmptyCart, http.StatusUnprocessableEntity, "EMPTY_CART"},
		{"wrapped conflict", fmt.Errorf("commit: %w", shared.NewDomainError(shared.CodeStockConflict, "Stock changed")), http.StatusConflict, "STOCK_CONFLICT"},
		{"gateway", shared.NewDomainError(shared.CodePaymentGateway, "Payment provider unavailable"), http.StatusBadGateway, "PAYMENT_GATEWAY_ERROR"},
		{"forbidden", shared.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
		{"infrastructure", errors.New("pq: connection refused"), http.StatusInternalServerError, dto.ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &BaseHandler{}
			r := newEngine()
			r.GET("/", func(c *gin.Context) { h.HandleError(c, tt.err) })

			w := do(r, http.MethodGet, "/", nil)
			env := parse(t, w)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.False(t, env.Success)
			assert.Equal(t, tt.wantCode, env.Error.Code)
			assert.NotEmpty(t, env.Error.RequestID)
			if tt.wantCode == dto.ErrCodeInternal {
				assert.NotContains(t, env.Error.Message, "pq:")
			}
		})
	}
}

func TestHandleError_ValidationDetails(t *testing.T) {
	h := &BaseHandler{}
	r := newEngine()
	r.GET("/", func(c *gin.Context) {
		h.HandleError(c, shared.NewValidationError("Shipping details are invalid",
			shared.FieldError{Field: "shipping_zip", Message: "is required"},
			shared.FieldError{Field: "shipping_city", Message: "is required"},
		))
	})

	w := do(r, http.MethodGet, "/", nil)
	env := parse(t, w)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, shared.CodeValidation, env.Error.Code)
	require.Len(t, env.Error.Details, 2)
	assert.Equal(t, "shipping_zip", env.Error.Details[0].Field)
}

func TestProductHandler(t *testing.T) {
	svc := new(mockProductService)
	h := NewProductHandler(svc)
	r := newEngine()
	r.GET("/products", h.List)
	r.GET("/products/low-stock", h.ListLowStock)
	r.GET("/products/:id", h.GetByID)

	t.Run("list with pagination meta", func(t *testing.T) {
		filter := catalogapp.ProductListFilter{Page: 2, PageSize: 10, Category: "mugs"}
		svc.On("List", mock.Anything, filter).Return([]catalogapp.ProductResponse{{Name: "Blue Mug"}}, int64(11), nil).Once()

		w := do(r, http.MethodGet, "/products?page=2&page_size=10&category=mugs", nil)
		env := parse(t, w)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, &dto.Meta{Total: 11, Page: 2, PageSize: 10, TotalPages: 2}, env.Meta)
	})

	t.Run("list rejects oversized page", func(t *testing.T) {
		w := do(r, http.MethodGet, "/products?page_size=500", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("get not found", func(t *testing.T) {
		id := uuid.New()
		svc.On("GetByID", mock.Anything, id).Return(nil, shared.NewNotFoundError(shared.CodeProductNotFound, "Product", id.String())).Once()

		w := do(r, http.MethodGet, "/products/"+id.String(), nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, shared.CodeProductNotFound, parse(t, w).Error.Code)
	})

	t.Run("get rejects malformed id", func(t *testing.T) {
		w := do(r, http.MethodGet, "/products/not-a-uuid", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, shared.CodeInvalidInput, parse(t, w).Error.Code)
	})

	t.Run("low stock threshold", func(t *testing.T) {
		svc.On("ListLowStock", mock.Anything, 3).Return([]catalogapp.ProductResponse{}, nil).Once()
		w := do(r, http.MethodGet, "/products/low-stock?threshold=3", nil)
		assert.Equal(t, http.StatusOK, w.Code)

		svc.On("ListLowStock", mock.Anything, 0).Return([]catalogapp.ProductResponse{}, nil).Once()
		w = do(r, http.MethodGet, "/products/low-stock", nil)
		assert.Equal(t, http.StatusOK, w.Code)

		w = do(r, http.MethodGet, "/products/low-stock?threshold=-1", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	svc.AssertExpectations(t)
}

func TestCartHandler(t *testing.T) {
	userID := uuid.New()
	svc := new(mockCartService)
	h := NewCartHandler(svc)
	r := newEngine(asUser(userID, false))
	r.GET("/cart", h.Get)
	r.DELETE("/cart", h.Clear)
	r.POST("/cart/items", h.AddItem)
	r.PUT("/cart/items/:line_id", h.UpdateItem)
	r.DELETE("/cart/items/:line_id", h.RemoveItem)

	cartResp := &cartapp.CartResponse{UserID: userID, TotalPrice: decimal.RequireFromString("25.00"), Currency: "USD"}

	t.Run("get", func(t *testing.T) {
		svc.On("GetCart", mock.Anything, userID).Return(cartResp, nil).Once()

		w := do(r, http.MethodGet, "/cart", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var got cartapp.CartResponse
		require.NoError(t, json.Unmarshal(parse(t, w).Data, &got))
		assert.True(t, got.TotalPrice.Equal(decimal.RequireFromString("25.00")))
	})

	t.Run("add item", func(t *testing.T) {
		productID := uuid.New()
		req := cartapp.AddItemRequest{ProductID: productID, Quantity: 2}
		svc.On("AddItem", mock.Anything, userID, req).Return(cartResp, nil).Once()

		w := do(r, http.MethodPost, "/cart/items", req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("add item beyond stock", func(t *testing.T) {
		req := cartapp.AddItemRequest{ProductID: uuid.New(), Quantity: 99}
		svc.On("AddItem", mock.Anything, userID, req).
			Return(nil, shared.NewDomainError(shared.CodeInsufficientStock, "Insufficient stock for Blue Mug: requested 99, available 5")).Once()

		w := do(r, http.MethodPost, "/cart/items", req)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("add item with malformed body", func(t *testing.T) {
		w := do(r, http.MethodPost, "/cart/items", `{"product_id":`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, shared.CodeValidation, parse(t, w).Error.Code)
	})

	t.Run("update unknown line", func(t *testing.T) {
		lineID := uuid.New()
		req := cartapp.UpdateItemRequest{Quantity: 3}
		svc.On("UpdateItem", mock.Anything, userID, lineID, req).
			Return(nil, shared.NewNotFoundError(shared.CodeLineNotFound, "Cart line", lineID.String())).Once()

		w := do(r, http.MethodPut, "/cart/items/"+lineID.String(), req)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("remove and clear", func(t *testing.T) {
		lineID := uuid.New()
		svc.On("RemoveItem", mock.Anything, userID, lineID).Return(cartResp, nil).Once()
		svc.On("Clear", mock.Anything, userID).Return(cartResp, nil).Once()

		assert.Equal(t, http.StatusOK, do(r, http.MethodDelete, "/cart/items/"+lineID.String(), nil).Code)
		assert.Equal(t, http.StatusOK, do(r, http.MethodDelete, "/cart", nil).Code)
	})

	svc.AssertExpectations(t)
}

func TestCartHandler_RequiresUser(t *testing.T) {
	h := NewCartHandler(new(mockCartService))
	r := newEngine()
	r.GET("/cart", h.Get)

	w := do(r, http.MethodGet, "/cart", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCheckoutHandler(t *testing.T) {
	userID := uuid.New()
	svc := new(mockCheckoutService)
	h := NewCheckoutHandler(svc)
	r := newEngine(asUser(userID, false))
	r.POST("/checkout", h.Checkout)

	body := checkoutapp.CheckoutRequest{
		ShippingAddress: "1 Main St",
		ShippingCity:    "Springfield",
		ShippingZip:     "12345",
		ShippingCountry: "US",
	}

	t.Run("passes idempotency key from header", func(t *testing.T) {
		want := body
		want.IdempotencyKey = "retry-1"
		result := &checkoutapp.CheckoutResult{
			Order:        orderapp.OrderResponse{OrderNumber: "ORD-20261016-0001", TotalAmount: decimal.RequireFromString("27.50")},
			ClientSecret: "pi_1_secret",
		}
		svc.On("Checkout", mock.Anything, userID, want).Return(result, nil).Once()

		w := do(r, http.MethodPost, "/checkout", body, IdempotencyKeyHeader, "retry-1")
		require.Equal(t, http.StatusCreated, w.Code)

		var got checkoutapp.CheckoutResult
		require.NoError(t, json.Unmarshal(parse(t, w).Data, &got))
		assert.Equal(t, "ORD-20261016-0001", got.Order.OrderNumber)
		assert.Equal(t, "pi_1_secret", got.ClientSecret)
	})

	t.Run("empty cart", func(t *testing.T) {
		svc.On("Checkout", mock.Anything, userID, body).Return(nil, shared.ErrEmptyCart).Once()

		w := do(r, http.MethodPost, "/checkout", body)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, shared.CodeEmptyCart, parse(t, w).Error.Code)
	})

	svc.AssertExpectations(t)
}

func TestOrderHandler(t *testing.T) {
	userID := uuid.New()
	svc := new(mockOrderService)
	h := NewOrderHandler(svc)
	userActor := orderapp.Actor{UserID: userID}

	user := newEngine(asUser(userID, false))
	user.GET("/orders", h.List)
	user.GET("/orders/:id", h.GetByID)
	user.POST("/orders/:id/confirm-payment", h.ConfirmPayment)

	admin := newEngine(asUser(userID, true))
	admin.PUT("/orders/:id/status", h.UpdateStatus)

	t.Run("list passes actor and filter", func(t *testing.T) {
		filter := orderapp.OrderListFilter{Status: "pending"}
		svc.On("ListOrders", mock.Anything, userActor, filter).Return([]orderapp.OrderResponse{}, int64(0), nil).Once()

		w := do(user, http.MethodGet, "/orders?status=pending", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("get other user's order", func(t *testing.T) {
		id := uuid.New()
		svc.On("GetOrder", mock.Anything, userActor, id).
			Return(nil, shared.NewNotFoundError(shared.CodeOrderNotFound, "Order", id.String())).Once()

		w := do(user, http.MethodGet, "/orders/"+id.String(), nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("update status as admin", func(t *testing.T) {
		id := uuid.New()
		req := orderapp.UpdateStatusRequest{Status: "shipped"}
		svc.On("UpdateStatus", mock.Anything, orderapp.Actor{UserID: userID, IsAdmin: true}, id, req).
			Return(&orderapp.OrderResponse{ID: id, Status: "shipped"}, nil).Once()

		w := do(admin, http.MethodPut, "/orders/"+id.String()+"/status", req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("update status requires body", func(t *testing.T) {
		w := do(admin, http.MethodPut, "/orders/"+uuid.NewString()+"/status", map[string]string{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("confirm payment unsupported by gateway", func(t *testing.T) {
		id := uuid.New()
		svc.On("ConfirmPayment", mock.Anything, userActor, id).
			Return(nil, shared.NewDomainError(shared.CodeInvalidState, "Gateway stripe does not support direct confirmation")).Once()

		w := do(user, http.MethodPost, "/orders/"+id.String()+"/confirm-payment", nil)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	svc.AssertExpectations(t)
}

func TestWebhookHandler(t *testing.T) {
	svc := new(mockWebhookProcessor)
	h := NewWebhookHandler(svc, 64)
	r := newEngine()
	r.POST("/webhooks/payment", h.Handle)

	payload := `{"id":"evt_1"}`

	t.Run("processed", func(t *testing.T) {
		svc.On("ProcessWebhook", mock.Anything, []byte(payload), "sig-1").
			Return(&paymentapp.WebhookResult{EventID: "evt_1", EventType: "payment_intent.succeeded", Processed: true}, nil).Once()

		w := do(r, http.MethodPost, "/webhooks/payment", payload, StripeSignatureHeader, "sig-1")
		require.Equal(t, http.StatusOK, w.Code)

		var resp WebhookResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Received)
		assert.Equal(t, "evt_1", resp.EventID)
	})

	t.Run("generic signature header", func(t *testing.T) {
		svc.On("ProcessWebhook", mock.Anything, []byte(payload), "abc").
			Return(&paymentapp.WebhookResult{EventID: "evt_1", Duplicate: true}, nil).Once()

		w := do(r, http.MethodPost, "/webhooks/payment", payload, GenericSignatureHeader, "abc")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("invalid signature", func(t *testing.T) {
		svc.On("ProcessWebhook", mock.Anything, []byte(payload), "bad").Return(nil, paymentapp.ErrInvalidSignature).Once()

		w := do(r, http.MethodPost, "/webhooks/payment", payload, StripeSignatureHeader, "bad")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("missing signature", func(t *testing.T) {
		w := do(r, http.MethodPost, "/webhooks/payment", payload)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("processing failure asks for redelivery", func(t *testing.T) {
		svc.On("ProcessWebhook", mock.Anything, []byte(payload), "sig-2").Return(nil, errors.New("db down")).Once()

		w := do(r, http.MethodPost, "/webhooks/payment", payload, StripeSignatureHeader, "sig-2")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("payload too large", func(t *testing.T) {
		w := do(r, http.MethodPost, "/webhooks/payment", strings.Repeat("x", 65), StripeSignatureHeader, "sig")
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})

	svc.AssertExpectations(t)
}
