package cart

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// Line is one product and quantity in a cart. ProductName and UnitPrice
// are read from the live product whenever the cart is loaded.
type Line struct {
	ID          uuid.UUID
	ProductID   uuid.UUID
	ProductName string
	UnitPrice   decimal.Decimal
	Quantity    int
	CreatedAt   time.Time
}

// Subtotal returns quantity x unit price
func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart is a user's mutable collection of lines. Version is bumped by every
// mutation and checked on save.
type Cart struct {
	shared.BaseAggregateRoot
	UserID   uuid.UUID
	Currency valueobject.Currency
	Lines    []Line
}

// LockName is the per-user lock that serializes cart mutations and the
// checkout preflight
func LockName(userID uuid.UUID) string {
	return "cart:" + userID.String()
}

// NewCart initializes an empty cart for a user
func NewCart(userID uuid.UUID) *Cart {
	return &Cart{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		UserID:            userID,
		Currency:          valueobject.DefaultCurrency,
		Lines:             make([]Line, 0),
	}
}

// AddItem adds qty of product, merging into an existing line for the same
// product. The merged quantity must not exceed the product's stock.
func (c *Cart) AddItem(product *catalog.Product, qty int) (*Line, error) {
	if product == nil {
		return nil, shared.ErrNotFound
	}
	if !product.IsPurchasable() {
		return nil, catalog.NewProductNotFoundError(product.ID)
	}
	if err := validateQuantity(qty); err != nil {
		return nil, err
	}
	if len(c.Lines) > 0 && product.Currency != c.Currency {
		return nil, shared.NewDomainError(shared.CodeInvalidInput,
			fmt.Sprintf("Cannot add %s priced in %s to a cart in %s", product.Name, product.Currency, c.Currency))
	}

	if idx := c.indexOfProduct(product.ID); idx >= 0 {
		line := &c.Lines[idx]
		if err := product.EnsureSupply(line.Quantity + qty); err != nil {
			return nil, err
		}
		line.Quantity += qty
		line.ProductName = product.Name
		line.UnitPrice = product.Price
		c.touch()
		return line, nil
	}

	if err := product.EnsureSupply(qty); err != nil {
		return nil, err
	}

	if len(c.Lines) == 0 {
		c.Currency = product.Currency
	}
	c.Lines = append(c.Lines, Line{
		ID:          uuid.New(),
		ProductID:   product.ID,
		ProductName: product.Name,
		UnitPrice:   product.Price,
		Quantity:    qty,
		CreatedAt:   time.Now(),
	})
	c.touch()
	return &c.Lines[len(c.Lines)-1], nil
}

// UpdateItem sets a line's quantity. Zero or negative quantities are
// rejected; use RemoveItem to delete a line.
func (c *Cart) UpdateItem(lineID uuid.UUID, qty int, product *catalog.Product) (*Line, error) {
	idx := c.indexOfLine(lineID)
	if idx < 0 {
		return nil, newLineNotFoundError(lineID)
	}
	if err := validateQuantity(qty); err != nil {
		return nil, err
	}
	if product == nil || product.ID != c.Lines[idx].ProductID {
		return nil, catalog.NewProductNotFoundError(c.Lines[idx].ProductID)
	}
	if err := product.EnsureSupply(qty); err != nil {
		return nil, err
	}

	line := &c.Lines[idx]
	line.Quantity = qty
	line.ProductName = product.Name
	line.UnitPrice = product.Price
	c.touch()
	return line, nil
}

// RemoveItem deletes a line. Removing an absent line is reported as
// LINE_NOT_FOUND and leaves the cart unchanged.
func (c *Cart) RemoveItem(lineID uuid.UUID) error {
	idx := c.indexOfLine(lineID)
	if idx < 0 {
		return newLineNotFoundError(lineID)
	}
	c.Lines = append(c.Lines[:idx], c.Lines[idx+1:]...)
	c.touch()
	return nil
}

// Clear removes every line
func (c *Cart) Clear() {
	c.Lines = make([]Line, 0)
	c.touch()
}

// Revise bumps the version without changing the lines
func (c *Cart) Revise() {
	c.touch()
}

// TotalPrice sums the line subtotals. It is recomputed on every call.
func (c *Cart) TotalPrice() valueobject.Money {
	total := decimal.Zero
	for _, l := range c.Lines {
		total = total.Add(l.Subtotal())
	}
	return valueobject.MustMoney(total, c.currency())
}

// ItemCount returns the total number of units across all lines
func (c *Cart) ItemCount() int {
	n := 0
	for _, l := range c.Lines {
		n += l.Quantity
	}
	return n
}

// IsEmpty reports whether the cart has no lines
func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// Line returns the line with the given id
func (c *Cart) Line(lineID uuid.UUID) (*Line, bool) {
	idx := c.indexOfLine(lineID)
	if idx < 0 {
		return nil, false
	}
	return &c.Lines[idx], true
}

// ProductIDs returns the distinct products referenced by the cart
func (c *Cart) ProductIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(c.Lines))
	for _, l := range c.Lines {
		ids = append(ids, l.ProductID)
	}
	return ids
}

// Snapshot returns a deep copy that later mutations of c do not affect
func (c *Cart) Snapshot() *Cart {
	cp := *c
	cp.Lines = append([]Line(nil), c.Lines...)
	return &cp
}

func (c *Cart) currency() valueobject.Currency {
	if c.Currency == "" {
		return valueobject.DefaultCurrency
	}
	return c.Currency
}

func (c *Cart) touch() {
	c.UpdatedAt = time.Now()
	c.IncrementVersion()
}

func (c *Cart) indexOfLine(lineID uuid.UUID) int {
	for i := range c.Lines {
		if c.Lines[i].ID == lineID {
			return i
		}
	}
	return -1
}

func (c *Cart) indexOfProduct(productID uuid.UUID) int {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}

func validateQuantity(qty int) error {
	if qty < 1 {
		return shared.NewDomainError(shared.CodeInvalidQuantity, "Quantity must be at least 1")
	}
	return nil
}

func newLineNotFoundError(lineID uuid.UUID) *shared.DomainError {
	return shared.NewNotFoundError(shared.CodeLineNotFound, "Cart line", lineID.String())
}
