package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// CartModel is the persistence model for the Cart aggregate. One cart
// exists per user.
type CartModel struct {
	AggregateModel
	UserID   uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex"`
	Currency string          `gorm:"type:varchar(3);not null"`
	Lines    []CartLineModel `gorm:"foreignKey:CartID;references:ID"`
}

// TableName returns the table name for GORM
func (CartModel) TableName() string {
	return "carts"
}

// CartLineModel stores a product reference and quantity. Name and price
// are not stored; they are joined from the live product on load.
type CartLineModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CartID    uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_cart_line_product,priority:1"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_cart_line_product,priority:2"`
	Quantity  int       `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CartLineModel) TableName() string {
	return "cart_items"
}

// ToDomain converts the cart row to a domain Cart without lines
func (m *CartModel) ToDomain() *cart.Cart {
	return &cart.Cart{
		BaseAggregateRoot: m.ToAggregateRoot(),
		UserID:            m.UserID,
		Currency:          valueobject.Currency(m.Currency),
		Lines:             make([]cart.Line, 0, len(m.Lines)),
	}
}

// FromDomain populates the cart row and its line rows
func (m *CartModel) FromDomain(c *cart.Cart) {
	m.FromDomainAggregateRoot(c.BaseAggregateRoot)
	m.UserID = c.UserID
	m.Currency = string(c.Currency)
	m.Lines = make([]CartLineModel, 0, len(c.Lines))
	for _, l := range c.Lines {
		m.Lines = append(m.Lines, CartLineModel{
			ID:        l.ID,
			CartID:    c.ID,
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			CreatedAt: l.CreatedAt,
		})
	}
}
