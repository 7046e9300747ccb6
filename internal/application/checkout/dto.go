package checkout

import (
	apporder "github.com/storefront/backend/internal/application/order"
)

// CheckoutRequest carries the shipping details of a checkout
type CheckoutRequest struct {
	ShippingAddress string `json:"shipping_address" validate:"required,max=255" example:"1 Main St"`
	ShippingCity    string `json:"shipping_city" validate:"required,max=100" example:"Springfield"`
	ShippingZip     string `json:"shipping_zip" validate:"required,max=20" example:"12345"`
	ShippingCountry string `json:"shipping_country" validate:"required,max=100" example:"US"`

	// IdempotencyKey is taken from the Idempotency-Key header
	IdempotencyKey string `json:"-" validate:"omitempty,max=128"`
}

// CheckoutResult is the committed order and the secret the client needs to
// complete payment
type CheckoutResult struct {
	Order        apporder.OrderResponse `json:"order"`
	ClientSecret string                 `json:"client_secret"`
}
