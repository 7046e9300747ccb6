package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// OrderModel is the persistence model for the Order aggregate
type OrderModel struct {
	AggregateModel
	OrderNumber     string              `gorm:"type:varchar(32);not null;uniqueIndex"`
	UserID          uuid.UUID           `gorm:"type:uuid;not null;index"`
	ShippingAddress string              `gorm:"type:varchar(255);not null"`
	ShippingCity    string              `gorm:"type:varchar(100);not null"`
	ShippingZip     string              `gorm:"type:varchar(20);not null"`
	ShippingCountry string              `gorm:"type:varchar(100);not null"`
	Currency        string              `gorm:"type:varchar(3);not null"`
	Subtotal        decimal.Decimal     `gorm:"type:decimal(12,2);not null"`
	TaxAmount       decimal.Decimal     `gorm:"type:decimal(12,2);not null"`
	TotalAmount     decimal.Decimal     `gorm:"type:decimal(12,2);not null"`
	Status          order.Status        `gorm:"type:varchar(20);not null;index"`
	PaymentStatus   order.PaymentStatus `gorm:"type:varchar(20);not null"`
	PaymentIntentID string              `gorm:"type:varchar(255);not null;uniqueIndex"`
	CheckoutKey     *string             `gorm:"type:varchar(255);uniqueIndex"`
	PaidAt          *time.Time
	Items           []OrderLineModel `gorm:"foreignKey:OrderID;references:ID"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// OrderLineModel is the persistence model for an order line snapshot
type OrderLineModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	OrderID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductName string          `gorm:"type:varchar(200);not null"`
	Quantity    int             `gorm:"not null"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(12,2);not null"`
}

// TableName returns the table name for GORM
func (OrderLineModel) TableName() string {
	return "order_items"
}

// ToDomain converts the persistence model to a domain Order
func (m *OrderModel) ToDomain() *order.Order {
	o := &order.Order{
		BaseAggregateRoot: m.ToAggregateRoot(),
		OrderNumber:       m.OrderNumber,
		UserID:            m.UserID,
		Shipping: valueobject.RestoreShippingAddress(
			m.ShippingAddress, m.ShippingCity, m.ShippingZip, m.ShippingCountry),
		Currency:        valueobject.Currency(m.Currency),
		Subtotal:        m.Subtotal,
		TaxAmount:       m.TaxAmount,
		TotalAmount:     m.TotalAmount,
		Status:          m.Status,
		PaymentStatus:   m.PaymentStatus,
		PaymentIntentID: m.PaymentIntentID,
		CheckoutKey:     derefString(m.CheckoutKey),
		PaidAt:          m.PaidAt,
		Lines:           make([]order.Line, 0, len(m.Items)),
	}
	for _, it := range m.Items {
		o.Lines = append(o.Lines, order.Line{
			ID:          it.ID,
			OrderID:     it.OrderID,
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
		})
	}
	return o
}

// FromDomain populates the persistence model from a domain Order
func (m *OrderModel) FromDomain(o *order.Order) {
	m.FromDomainAggregateRoot(o.BaseAggregateRoot)
	m.OrderNumber = o.OrderNumber
	m.UserID = o.UserID
	m.ShippingAddress = o.Shipping.Address()
	m.ShippingCity = o.Shipping.City()
	m.ShippingZip = o.Shipping.PostalCode()
	m.ShippingCountry = o.Shipping.Country()
	m.Currency = string(o.Currency)
	m.Subtotal = o.Subtotal
	m.TaxAmount = o.TaxAmount
	m.TotalAmount = o.TotalAmount
	m.Status = o.Status
	m.PaymentStatus = o.PaymentStatus
	m.PaymentIntentID = o.PaymentIntentID
	m.CheckoutKey = nil
	if o.CheckoutKey != "" {
		m.CheckoutKey = &o.CheckoutKey
	}
	m.PaidAt = o.PaidAt
	m.Items = make([]OrderLineModel, 0, len(o.Lines))
	for _, l := range o.Lines {
		m.Items = append(m.Items, OrderLineModel{
			ID:          l.ID,
			OrderID:     o.ID,
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
		})
	}
}

// OrderModelFromDomain creates a new persistence model from a domain Order
func OrderModelFromDomain(o *order.Order) *OrderModel {
	m := &OrderModel{}
	m.FromDomain(o)
	return m
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
