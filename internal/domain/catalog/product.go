package catalog

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// DefaultLowStockThreshold is the stock level at or below which a product
// is reported as running low
const DefaultLowStockThreshold = 10

// Product is a purchasable catalog item. Stock is owned by the StockLedger;
// the field here is a read snapshot taken when the product was loaded.
type Product struct {
	shared.BaseAggregateRoot
	Name        string
	Description string
	Category    string
	Price       decimal.Decimal
	Currency    valueobject.Currency
	Stock       int
	IsActive    bool
}

// NewProduct creates an active product
func NewProduct(name, category string, price decimal.Decimal, currency valueobject.Currency, stock int) (*Product, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Product name cannot be empty")
	}
	if len(name) > 200 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Product name cannot exceed 200 characters")
	}
	if price.IsNegative() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Product price cannot be negative")
	}
	if stock < 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Product stock cannot be negative")
	}
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}

	return &Product{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		Category:          strings.TrimSpace(category),
		Price:             price,
		Currency:          currency,
		Stock:             stock,
		IsActive:          true,
	}, nil
}

// UnitPrice returns the current price as Money
func (p *Product) UnitPrice() valueobject.Money {
	return valueobject.MustMoney(p.Price, p.Currency)
}

// IsPurchasable reports whether the product can be added to a cart
func (p *Product) IsPurchasable() bool {
	return p != nil && p.IsActive
}

// CanSupply reports whether the loaded stock covers qty
func (p *Product) CanSupply(qty int) bool {
	return qty <= p.Stock
}

// IsLowStock reports whether stock is at or below threshold
func (p *Product) IsLowStock(threshold int) bool {
	return p.Stock <= threshold
}

// EnsureSupply returns an INSUFFICIENT_STOCK error naming the product when
// the loaded stock cannot cover qty
func (p *Product) EnsureSupply(qty int) error {
	if p.CanSupply(qty) {
		return nil
	}
	return NewInsufficientStockError(p.Name, p.Stock, qty)
}

// Deactivate hides the product from carts and listings
func (p *Product) Deactivate() {
	p.IsActive = false
	p.IncrementVersion()
}

// NewProductNotFoundError reports a missing or inactive product
func NewProductNotFoundError(id uuid.UUID) *shared.DomainError {
	return shared.NewNotFoundError(shared.CodeProductNotFound, "Product", id.String())
}

// NewInsufficientStockError names the product that is short and by how much
func NewInsufficientStockError(productName string, available, requested int) *shared.DomainError {
	return shared.NewDomainError(shared.CodeInsufficientStock,
		fmt.Sprintf("Insufficient stock for %s: only %d available, %d requested", productName, available, requested))
}
