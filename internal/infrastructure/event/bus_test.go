package event

import (
	"context"
	"errors"
	"testing"

	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type panickingHandler struct{}

func (panickingHandler) Handle(context.Context, shared.DomainEvent) error { panic("boom") }
func (panickingHandler) EventTypes() []string                             { return nil }

func TestInMemoryEventBus_Publish(t *testing.T) {
	ctx := context.Background()
	ev := newPlacedOrder(t).GetDomainEvents()[0]

	t.Run("routes by type and to wildcard handlers", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		placed := &recordingHandler{types: []string{order.EventTypeOrderPlaced}}
		paid := &recordingHandler{types: []string{order.EventTypeOrderPaymentCompleted}}
		all := &recordingHandler{}
		bus.Subscribe(placed)
		bus.Subscribe(paid)
		bus.Subscribe(all)

		require.NoError(t, bus.Publish(ctx, ev))
		assert.Equal(t, 1, placed.calls())
		assert.Zero(t, paid.calls())
		assert.Equal(t, 1, all.calls())
	})

	t.Run("returns handler errors after running every handler", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		failing := &recordingHandler{err: errors.New("broker down")}
		ok := &recordingHandler{}
		bus.Subscribe(failing)
		bus.Subscribe(ok)

		err := bus.Publish(ctx, ev)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "broker down")
		assert.Equal(t, 1, ok.calls())
	})

	t.Run("recovers from panicking handlers", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		bus.Subscribe(panickingHandler{})
		after := &recordingHandler{}
		bus.Subscribe(after)

		err := bus.Publish(ctx, ev)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "panicked")
		assert.Equal(t, 1, after.calls())
	})

	t.Run("unsubscribed handlers stop receiving", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		h := &recordingHandler{types: []string{order.EventTypeOrderPlaced}}
		bus.Subscribe(h)
		bus.Unsubscribe(h)

		require.NoError(t, bus.Publish(ctx, ev))
		assert.Zero(t, h.calls())
	})
}
