package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// Line is an immutable snapshot of a cart line taken at checkout. The unit
// price is the product price at purchase time.
type Line struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	ProductID   uuid.UUID
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
}

// Subtotal returns quantity x unit price
func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Order is the committed record of a checkout
type Order struct {
	shared.BaseAggregateRoot
	OrderNumber     string
	UserID          uuid.UUID
	Shipping        valueobject.ShippingAddress
	Lines           []Line
	Currency        valueobject.Currency
	Subtotal        decimal.Decimal
	TaxAmount       decimal.Decimal
	TotalAmount     decimal.Decimal
	Status          Status
	PaymentStatus   PaymentStatus
	PaymentIntentID string
	CheckoutKey     string
	PaidAt          *time.Time
}

// PlaceParams carries everything needed to place an order
type PlaceParams struct {
	UserID          uuid.UUID
	Shipping        valueobject.ShippingAddress
	Lines           []LineInput
	Currency        valueobject.Currency
	TaxRate         decimal.Decimal
	PaymentIntentID string
	CheckoutKey     string
}

// Place creates a pending order from priced lines and raises OrderPlaced
func Place(p PlaceParams) (*Order, error) {
	if p.UserID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Order must belong to a user")
	}
	if len(p.Lines) == 0 {
		return nil, shared.ErrEmptyCart
	}
	if p.Shipping.IsEmpty() {
		return nil, shared.NewValidationError("Shipping address is required",
			shared.FieldError{Field: "shipping_address", Message: "is required"})
	}
	if strings.TrimSpace(p.PaymentIntentID) == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Order requires a payment intent reference")
	}
	for _, l := range p.Lines {
		if l.Quantity < 1 {
			return nil, shared.NewDomainError(shared.CodeInvalidQuantity,
				fmt.Sprintf("Quantity for %s must be at least 1", l.ProductName))
		}
	}
	if p.Currency == "" {
		p.Currency = valueobject.DefaultCurrency
	}
	if p.TaxRate.IsZero() {
		p.TaxRate = DefaultTaxRate
	}

	quote := Price(p.Lines, p.Currency, p.TaxRate)
	o := &Order{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		UserID:            p.UserID,
		Shipping:          p.Shipping,
		Currency:          p.Currency,
		Subtotal:          quote.Subtotal.Amount(),
		TaxAmount:         quote.Tax.Amount(),
		TotalAmount:       quote.Total.Amount(),
		Status:            StatusPending,
		PaymentStatus:     PaymentStatusPending,
		PaymentIntentID:   p.PaymentIntentID,
		CheckoutKey:       p.CheckoutKey,
	}
	o.OrderNumber = newOrderNumber(o.ID, o.CreatedAt)

	o.Lines = make([]Line, 0, len(p.Lines))
	for _, l := range p.Lines {
		o.Lines = append(o.Lines, Line{
			ID:          uuid.New(),
			OrderID:     o.ID,
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
		})
	}

	o.AddDomainEvent(NewOrderPlacedEvent(o))
	return o, nil
}

// BelongsTo reports whether the order is owned by userID
func (o *Order) BelongsTo(userID uuid.UUID) bool {
	return o.UserID == userID
}

// Total returns the order total as Money
func (o *Order) Total() valueobject.Money {
	return valueobject.MustMoney(o.TotalAmount, o.Currency)
}

// UpdateStatus moves the order to a new fulfillment state. In permissive
// mode any recognized state is accepted; in strict mode the transition
// must follow CanTransitionTo.
func (o *Order) UpdateStatus(target Status, strict bool) error {
	if !target.IsValid() {
		return shared.NewDomainError(shared.CodeInvalidStatus, fmt.Sprintf("Invalid status %q", target))
	}
	if target == o.Status {
		return nil
	}
	if strict && !o.Status.CanTransitionTo(target) {
		return shared.NewDomainError(shared.CodeInvalidTransition,
			fmt.Sprintf("Order %s cannot move from %s to %s", o.OrderNumber, o.Status, target))
	}

	from := o.Status
	o.Status = target
	o.UpdatedAt = time.Now()
	o.IncrementVersion()
	o.AddDomainEvent(NewOrderStatusChangedEvent(o, from))
	return nil
}

// ConfirmPayment moves payment_status from pending to completed. It
// returns false without error when the payment is already completed.
func (o *Order) ConfirmPayment() (bool, error) {
	switch o.PaymentStatus {
	case PaymentStatusCompleted:
		return false, nil
	case PaymentStatusFailed:
		return false, shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("Payment for order %s already failed", o.OrderNumber))
	}

	now := time.Now()
	o.PaymentStatus = PaymentStatusCompleted
	o.PaidAt = &now
	o.UpdatedAt = now
	o.IncrementVersion()
	o.AddDomainEvent(NewOrderPaymentCompletedEvent(o))
	return true, nil
}

// FailPayment moves payment_status from pending to failed. Terminal
// payment states are left untouched and reported as unchanged.
func (o *Order) FailPayment(reason string) bool {
	if o.PaymentStatus.IsTerminal() {
		return false
	}
	o.PaymentStatus = PaymentStatusFailed
	o.UpdatedAt = time.Now()
	o.IncrementVersion()
	o.AddDomainEvent(NewOrderPaymentFailedEvent(o, reason))
	return true
}

// ItemCount returns the total number of units ordered
func (o *Order) ItemCount() int {
	n := 0
	for _, l := range o.Lines {
		n += l.Quantity
	}
	return n
}

// NewOrderNotFoundError reports a missing or foreign order
func NewOrderNotFoundError(ref string) *shared.DomainError {
	return shared.NewNotFoundError(shared.CodeOrderNotFound, "Order", ref)
}

func newOrderNumber(id uuid.UUID, at time.Time) string {
	return fmt.Sprintf("ORD-%s-%s", at.Format("20060102"), strings.ToUpper(id.String()[:8]))
}
