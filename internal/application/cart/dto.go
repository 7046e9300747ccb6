package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/cart"
)

// AddItemRequest adds a product to the cart
type AddItemRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  int       `json:"quantity" example:"1"`
}

// UpdateItemRequest sets a line's quantity
type UpdateItemRequest struct {
	Quantity int `json:"quantity" example:"2"`
}

// CartLineResponse represents one cart line with live product data
type CartLineResponse struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// CartResponse represents a cart in API responses
type CartResponse struct {
	ID         uuid.UUID          `json:"id"`
	UserID     uuid.UUID          `json:"user_id"`
	Items      []CartLineResponse `json:"items"`
	ItemCount  int                `json:"item_count"`
	Currency   string             `json:"currency"`
	TotalPrice decimal.Decimal    `json:"total_price"`
	Version    int                `json:"version"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

// ToCartResponse converts a domain cart to a response DTO
func ToCartResponse(c *cart.Cart) CartResponse {
	items := make([]CartLineResponse, 0, len(c.Lines))
	for _, l := range c.Lines {
		items = append(items, CartLineResponse{
			ID:          l.ID,
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			UnitPrice:   l.UnitPrice,
			Quantity:    l.Quantity,
			Subtotal:    l.Subtotal(),
		})
	}
	total := c.TotalPrice()
	return CartResponse{
		ID:         c.ID,
		UserID:     c.UserID,
		Items:      items,
		ItemCount:  c.ItemCount(),
		Currency:   string(total.Currency()),
		TotalPrice: total.Amount(),
		Version:    c.Version,
		UpdatedAt:  c.UpdatedAt,
	}
}
