package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormCartRepository implements cart.Repository using GORM
type GormCartRepository struct {
	db *gorm.DB
}

// NewGormCartRepository creates a new GormCartRepository
func NewGormCartRepository(db *gorm.DB) *GormCartRepository {
	return &GormCartRepository{db: db}
}

// cartLineRow is a cart_items row joined with its live product
type cartLineRow struct {
	ID          uuid.UUID
	ProductID   uuid.UUID
	Quantity    int
	CreatedAt   time.Time
	ProductName string
	UnitPrice   decimal.Decimal
}

// FindOrCreateByUser loads the user's cart, inserting an empty one on
// first access. Two racing first requests both end up with the same row.
func (r *GormCartRepository) FindOrCreateByUser(ctx context.Context, userID uuid.UUID) (*cart.Cart, error) {
	db := r.db.WithContext(ctx)

	var m models.CartModel
	err := db.Where("user_id = ?", userID).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		fresh := &models.CartModel{}
		fresh.FromDomain(cart.NewCart(userID))
		if err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).Omit(clause.Associations).Create(fresh).Error; err != nil {
			return nil, fmt.Errorf("create cart: %w", err)
		}
		err = db.Where("user_id = ?", userID).Take(&m).Error
	}
	if err != nil {
		return nil, fmt.Errorf("find cart: %w", err)
	}

	c := m.ToDomain()

	var rows []cartLineRow
	if err := db.Table("cart_items AS ci").
		Select("ci.id, ci.product_id, ci.quantity, ci.created_at, p.name AS product_name, p.price AS unit_price").
		Joins("JOIN products p ON p.id = ci.product_id").
		Where("ci.cart_id = ?", m.ID).
		Order("ci.created_at ASC, ci.id ASC").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("load cart lines: %w", err)
	}
	for _, row := range rows {
		c.Lines = append(c.Lines, cart.Line{
			ID:          row.ID,
			ProductID:   row.ProductID,
			ProductName: row.ProductName,
			UnitPrice:   row.UnitPrice,
			Quantity:    row.Quantity,
			CreatedAt:   row.CreatedAt,
		})
	}
	return c, nil
}

// Save replaces the stored lines if the stored version still equals
// expectedVersion
func (r *GormCartRepository) Save(ctx context.Context, c *cart.Cart, expectedVersion int) error {
	m := &models.CartModel{}
	m.FromDomain(c)

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.CartModel{}).
			Where("id = ? AND version = ?", c.ID, expectedVersion).
			UpdateColumns(map[string]any{
				"version":    c.Version,
				"currency":   m.Currency,
				"updated_at": time.Now(),
			})
		if result.Error != nil {
			return fmt.Errorf("update cart: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}

		if err := tx.Where("cart_id = ?", c.ID).Delete(&models.CartLineModel{}).Error; err != nil {
			return fmt.Errorf("clear cart lines: %w", err)
		}
		if len(m.Lines) == 0 {
			return nil
		}
		if err := tx.Create(&m.Lines).Error; err != nil {
			return fmt.Errorf("insert cart lines: %w", err)
		}
		return nil
	})
}

// Ensure GormCartRepository implements cart.Repository
var _ cart.Repository = (*GormCartRepository)(nil)
