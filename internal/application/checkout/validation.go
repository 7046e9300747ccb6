package checkout

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

// shippingAddress validates the request fields and builds the address
// snapshot. Every invalid field is reported.
func (s *Service) shippingAddress(req CheckoutRequest) (valueobject.ShippingAddress, error) {
	if err := s.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return valueobject.ShippingAddress{}, err
		}
		fields := make([]shared.FieldError, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, shared.FieldError{Field: fe.Field(), Message: fieldMessage(fe)})
		}
		return valueobject.ShippingAddress{}, shared.NewValidationError("Shipping details are invalid", fields...)
	}

	addr, err := valueobject.NewShippingAddress(req.ShippingAddress, req.ShippingCity, req.ShippingZip, req.ShippingCountry)
	if err != nil {
		var aerr *valueobject.AddressError
		if !errors.As(err, &aerr) {
			return valueobject.ShippingAddress{}, err
		}
		fields := make([]shared.FieldError, 0, len(aerr.Fields))
		for _, f := range aerr.Fields {
			fields = append(fields, shared.FieldError{Field: f.Field, Message: f.Message})
		}
		return valueobject.ShippingAddress{}, shared.NewValidationError("Shipping details are invalid", fields...)
	}
	return addr, nil
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return "cannot exceed " + fe.Param() + " characters"
	default:
		return "is invalid"
	}
}
