package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
)

// ProductFilter narrows product listings
type ProductFilter struct {
	shared.Filter
	Category   string
	ActiveOnly bool
}

// ProductRepository reads catalog products
type ProductRepository interface {
	// FindByID returns the product or a PRODUCT_NOT_FOUND error
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)

	// FindByIDs returns the products that exist, keyed by id
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*Product, error)

	// FindAll lists products matching the filter with the total count
	FindAll(ctx context.Context, filter ProductFilter) ([]Product, int64, error)

	// FindLowStock lists active products with stock at or below threshold
	FindLowStock(ctx context.Context, threshold int) ([]Product, error)

	// Save creates or updates a product
	Save(ctx context.Context, product *Product) error
}
