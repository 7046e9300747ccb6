package order

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// DefaultTaxRate is the flat tax applied to every order subtotal
var DefaultTaxRate = decimal.RequireFromString("0.10")

// LineInput is the priced content of one future order line
type LineInput struct {
	ProductID   uuid.UUID
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
}

// Quote is the price breakdown of an order
type Quote struct {
	Subtotal valueobject.Money
	Tax      valueobject.Money
	Total    valueobject.Money
}

// Price computes subtotal, tax and total. Tax is rounded to the currency's
// minor unit; no floating point is involved.
func Price(lines []LineInput, currency valueobject.Currency, taxRate decimal.Decimal) Quote {
	subtotal := valueobject.Zero(currency)
	for _, l := range lines {
		lineTotal := valueobject.MustMoney(l.UnitPrice, currency).MultiplyByInt(int64(l.Quantity))
		subtotal = subtotal.MustAdd(lineTotal)
	}
	subtotal = subtotal.Round()
	tax := subtotal.Multiply(taxRate).Round()
	return Quote{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal.MustAdd(tax),
	}
}
