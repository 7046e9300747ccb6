package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormStockLedger implements catalog.StockLedger on the products table.
// Bound to a transaction handle, its decrements commit or roll back with
// the surrounding order.
type GormStockLedger struct {
	db *gorm.DB
}

// NewGormStockLedger creates a ledger on db, which may be a transaction
func NewGormStockLedger(db *gorm.DB) *GormStockLedger {
	return &GormStockLedger{db: db}
}

type stockRow struct {
	Name     string
	Stock    int
	IsActive bool
}

func (l *GormStockLedger) load(ctx context.Context, productID uuid.UUID) (*stockRow, error) {
	var row stockRow
	err := l.db.WithContext(ctx).
		Model(&models.ProductModel{}).
		Select("name", "stock", "is_active").
		Where("id = ?", productID).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, catalog.NewProductNotFoundError(productID)
		}
		return nil, fmt.Errorf("load stock for product %s: %w", productID, err)
	}
	if row.Stock < 0 {
		row.Stock = 0
	}
	return &row, nil
}

// Reserve checks that qty units are available without holding them
func (l *GormStockLedger) Reserve(ctx context.Context, productID uuid.UUID, qty int) error {
	if qty < 1 {
		return shared.NewDomainError(shared.CodeInvalidQuantity, "Quantity must be at least 1")
	}
	row, err := l.load(ctx, productID)
	if err != nil {
		return err
	}
	if !row.IsActive {
		return catalog.NewProductNotFoundError(productID)
	}
	if row.Stock < qty {
		return catalog.NewInsufficientStockError(row.Name, row.Stock, qty)
	}
	return nil
}

// CommitDecrement removes qty units in a single conditional UPDATE. The
// row lock taken by the UPDATE serializes concurrent decrements of the
// same product, and the stock >= qty predicate is re-evaluated after the
// lock is granted, so stock can never go negative.
func (l *GormStockLedger) CommitDecrement(ctx context.Context, productID uuid.UUID, qty int) error {
	if qty < 1 {
		return shared.NewDomainError(shared.CodeInvalidQuantity, "Quantity must be at least 1")
	}

	result := l.db.WithContext(ctx).
		Model(&models.ProductModel{}).
		Where("id = ? AND stock >= ?", productID, qty).
		UpdateColumns(map[string]any{
			"stock":      gorm.Expr("stock - ?", qty),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("decrement stock for product %s: %w", productID, result.Error)
	}
	if result.RowsAffected == 1 {
		return nil
	}

	row, err := l.load(ctx, productID)
	if err != nil {
		return err
	}
	return catalog.NewInsufficientStockError(row.Name, row.Stock, qty)
}

// Available returns the current stock, never negative
func (l *GormStockLedger) Available(ctx context.Context, productID uuid.UUID) (int, error) {
	row, err := l.load(ctx, productID)
	if err != nil {
		return 0, err
	}
	return row.Stock, nil
}

// Ensure GormStockLedger implements StockLedger
var _ catalog.StockLedger = (*GormStockLedger)(nil)
