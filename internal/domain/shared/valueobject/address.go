package valueobject

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	maxAddressLength = 255
	maxCityLength    = 100
	maxCountryLength = 100
)

var postalCodePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9 \-]{1,18}[A-Za-z0-9]$`)

// AddressFieldError reports which address field failed validation
type AddressFieldError struct {
	Field   string
	Message string
}

// AddressError collects every invalid field of an address
type AddressError struct {
	Fields []AddressFieldError
}

func (e *AddressError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "invalid shipping address: " + strings.Join(parts, "; ")
}

// ShippingAddress is an immutable snapshot of where an order ships to
type ShippingAddress struct {
	address    string
	city       string
	postalCode string
	country    string
}

// NewShippingAddress validates and builds a shipping address. All four
// fields are required. Every invalid field is reported, not just the first.
func NewShippingAddress(address, city, postalCode, country string) (ShippingAddress, error) {
	a := ShippingAddress{
		address:    strings.TrimSpace(address),
		city:       strings.TrimSpace(city),
		postalCode: strings.TrimSpace(postalCode),
		country:    strings.TrimSpace(country),
	}

	var errs []AddressFieldError
	check := func(field, value string, max int) {
		switch {
		case value == "":
			errs = append(errs, AddressFieldError{Field: field, Message: "is required"})
		case len(value) > max:
			errs = append(errs, AddressFieldError{Field: field, Message: fmt.Sprintf("cannot exceed %d characters", max)})
		}
	}
	check("shipping_address", a.address, maxAddressLength)
	check("shipping_city", a.city, maxCityLength)
	check("shipping_country", a.country, maxCountryLength)

	if a.postalCode == "" {
		errs = append(errs, AddressFieldError{Field: "shipping_zip", Message: "is required"})
	} else if !postalCodePattern.MatchString(a.postalCode) {
		errs = append(errs, AddressFieldError{Field: "shipping_zip", Message: "is not a valid postal code"})
	}

	if len(errs) > 0 {
		return ShippingAddress{}, &AddressError{Fields: errs}
	}
	return a, nil
}

// RestoreShippingAddress rebuilds an address that was validated when it
// was first stored
func RestoreShippingAddress(address, city, postalCode, country string) ShippingAddress {
	return ShippingAddress{address: address, city: city, postalCode: postalCode, country: country}
}

// Address returns the street line
func (a ShippingAddress) Address() string { return a.address }

// City returns the city
func (a ShippingAddress) City() string { return a.city }

// PostalCode returns the postal or zip code
func (a ShippingAddress) PostalCode() string { return a.postalCode }

// Country returns the country
func (a ShippingAddress) Country() string { return a.country }

// IsEmpty reports whether the address is the zero value
func (a ShippingAddress) IsEmpty() bool {
	return a == ShippingAddress{}
}

// String returns a single-line representation
func (a ShippingAddress) String() string {
	return fmt.Sprintf("%s, %s %s, %s", a.address, a.city, a.postalCode, a.country)
}
