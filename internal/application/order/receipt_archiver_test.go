package order

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeReceiptStore struct {
	objects map[string][]byte
	err     error
}

func (s *fakeReceiptStore) Put(_ context.Context, key string, body []byte, _ string) error {
	if s.err != nil {
		return s.err
	}
	if s.objects == nil {
		s.objects = make(map[string][]byte)
	}
	s.objects[key] = body
	return nil
}

func TestReceiptArchiver_Handle(t *testing.T) {
	ctx := context.Background()
	o := newPendingOrder(t, uuid.New())
	_, err := o.ConfirmPayment()
	require.NoError(t, err)
	paid := o.GetDomainEvents()[0].(*order.OrderPaymentCompletedEvent)

	repo := new(MockOrderRepository)
	repo.On("FindByID", ctx, o.ID).Return(o, nil)

	t.Run("stores a receipt keyed by month and order number", func(t *testing.T) {
		store := &fakeReceiptStore{}
		h := NewReceiptArchiver(repo, store, zap.NewNop())

		require.NoError(t, h.Handle(ctx, paid))

		key := ReceiptKey(o.OrderNumber, paid.PaidAt)
		require.Contains(t, store.objects, key)

		var receipt Receipt
		require.NoError(t, json.Unmarshal(store.objects[key], &receipt))
		assert.Equal(t, o.OrderNumber, receipt.OrderNumber)
		assert.True(t, receipt.TotalAmount.Equal(o.TotalAmount))
		require.Len(t, receipt.Items, 1)
		assert.Equal(t, "Widget", receipt.Items[0].ProductName)
	})

	t.Run("store failures are returned for retry", func(t *testing.T) {
		h := NewReceiptArchiver(repo, &fakeReceiptStore{err: errors.New("s3 unavailable")}, zap.NewNop())

		err := h.Handle(ctx, paid)
		assert.ErrorContains(t, err, "s3 unavailable")
	})

	t.Run("only handles payment completion", func(t *testing.T) {
		h := NewReceiptArchiver(repo, &fakeReceiptStore{}, zap.NewNop())
		assert.Equal(t, []string{order.EventTypeOrderPaymentCompleted}, h.EventTypes())
	})
}

func TestReceiptKey(t *testing.T) {
	at := time.Date(2026, 3, 9, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, "2026/03/ORD-20260309-ABCDEF12.json", ReceiptKey("ORD-20260309-ABCDEF12", at))
}
