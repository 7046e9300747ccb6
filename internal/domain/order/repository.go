package order

import (
	"context"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
)

// Filter narrows order listings
type Filter struct {
	shared.Filter
	// UserID restricts the listing to one owner; nil lists every order
	UserID *uuid.UUID
	Status Status
}

// Repository persists orders. Every write also stores the aggregate's
// pending domain events in the outbox within the same transaction.
type Repository interface {
	// FindByID returns the order with its lines, or ORDER_NOT_FOUND
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)

	// FindByPaymentIntent returns the order referencing a payment intent
	FindByPaymentIntent(ctx context.Context, intentID string) (*Order, error)

	// FindAll lists orders with the total count
	FindAll(ctx context.Context, filter Filter) ([]Order, int64, error)

	// Create inserts a new order and its lines
	Create(ctx context.Context, o *Order) error

	// SaveStatus persists the fulfillment status if the stored version is
	// expectedVersion, otherwise CONCURRENCY_CONFLICT
	SaveStatus(ctx context.Context, o *Order, expectedVersion int) error

	// SavePayment persists the payment status only if the stored payment
	// status still equals from. It returns false when another writer got
	// there first, in which case nothing is written.
	SavePayment(ctx context.Context, o *Order, from PaymentStatus) (bool, error)
}
