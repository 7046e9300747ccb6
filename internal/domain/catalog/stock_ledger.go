package catalog

import (
	"context"

	"github.com/google/uuid"
)

// StockLedger is the authoritative count of purchasable units per product.
// It is the only component allowed to change a product's stock.
type StockLedger interface {
	// Reserve checks that qty units are currently available. It holds
	// nothing; the check must be repeated by CommitDecrement.
	Reserve(ctx context.Context, productID uuid.UUID, qty int) error

	// CommitDecrement atomically removes qty units if at least qty are
	// available. Concurrent calls on the same product never drive stock
	// below zero; the loser gets an INSUFFICIENT_STOCK error.
	CommitDecrement(ctx context.Context, productID uuid.UUID, qty int) error

	// Available returns the current stock, never negative
	Available(ctx context.Context, productID uuid.UUID) (int, error)
}
