package dto

import (
	"net/http"

	"github.com/storefront/backend/internal/domain/shared"
)

// Codes produced only at the HTTP boundary
const (
	ErrCodeInternal        = "INTERNAL_ERROR"
	ErrCodeBadRequest      = "BAD_REQUEST"
	ErrCodeRequestTooLarge = "REQUEST_TOO_LARGE"
	ErrCodeTokenExpired    = "TOKEN_EXPIRED"
	ErrCodeTokenInvalid    = "INVALID_TOKEN"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	shared.CodeNotFound:        http.StatusNotFound,
	shared.CodeProductNotFound: http.StatusNotFound,
	shared.CodeLineNotFound:    http.StatusNotFound,
	shared.CodeOrderNotFound:   http.StatusNotFound,

	shared.CodeValidation:      http.StatusBadRequest,
	shared.CodeInvalidQuantity: http.StatusBadRequest,
	shared.CodeInvalidInput:    http.StatusBadRequest,
	shared.CodeInvalidStatus:   http.StatusBadRequest,
	ErrCodeBadRequest:          http.StatusBadRequest,

	shared.CodeInsufficientStock: http.StatusUnprocessableEntity,
	shared.CodeEmptyCart:         http.StatusUnprocessableEntity,
	shared.CodeInvalidState:      http.StatusUnprocessableEntity,
	shared.CodeInvalidTransition: http.StatusUnprocessableEntity,

	shared.CodeStockConflict:       http.StatusConflict,
	shared.CodeConcurrencyConflict: http.StatusConflict,

	shared.CodePaymentGateway: http.StatusBadGateway,

	shared.CodeUnauthorized: http.StatusUnauthorized,
	ErrCodeTokenExpired:     http.StatusUnauthorized,
	ErrCodeTokenInvalid:     http.StatusUnauthorized,
	shared.CodeForbidden:    http.StatusForbidden,

	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,
	ErrCodeInternal:        http.StatusInternalServerError,
}

// GetHTTPStatus returns the HTTP status for an error code. Unknown codes
// are server errors.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DetailsFromFields converts domain field errors to response details
func DetailsFromFields(fields []shared.FieldError) []ErrorDetail {
	if len(fields) == 0 {
		return nil
	}
	details := make([]ErrorDetail, len(fields))
	for i, f := range fields {
		details[i] = ErrorDetail{Field: f.Field, Message: f.Message}
	}
	return details
}
