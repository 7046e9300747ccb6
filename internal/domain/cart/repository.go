package cart

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists carts
type Repository interface {
	// FindOrCreateByUser loads the user's cart, creating an empty one on
	// first access. Line names and prices are read from the live products.
	FindOrCreateByUser(ctx context.Context, userID uuid.UUID) (*Cart, error)

	// Save persists the cart's lines if its stored version equals
	// expectedVersion, storing cart.Version. A mismatch returns
	// CONCURRENCY_CONFLICT.
	Save(ctx context.Context, cart *Cart, expectedVersion int) error
}
