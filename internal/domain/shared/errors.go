package shared

import (
	"errors"
	"fmt"
)

// FieldError describes a single invalid field in a request.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// DomainError represents a domain-level error
type DomainError struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Fields  []FieldError `json:"fields,omitempty"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is matches domain errors by code so that errors.Is works against the
// package-level sentinels below.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// NewValidationError creates a VALIDATION_ERROR carrying per-field details.
func NewValidationError(message string, fields ...FieldError) *DomainError {
	return &DomainError{
		Code:    CodeValidation,
		Message: message,
		Fields:  fields,
	}
}

// NewNotFoundError creates a NOT_FOUND style error naming the resource.
func NewNotFoundError(code, resource, id string) *DomainError {
	return NewDomainError(code, fmt.Sprintf("%s %s not found", resource, id))
}

// CodeOf returns the code of a domain error, or an empty string.
func CodeOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// Stable error codes
const (
	CodeNotFound            = "NOT_FOUND"
	CodeValidation          = "VALIDATION_ERROR"
	CodeInvalidInput        = "INVALID_INPUT"
	CodeInvalidQuantity     = "INVALID_QUANTITY"
	CodeInsufficientStock   = "INSUFFICIENT_STOCK"
	CodeEmptyCart           = "EMPTY_CART"
	CodePaymentGateway      = "PAYMENT_GATEWAY_ERROR"
	CodeInvalidStatus       = "INVALID_STATUS"
	CodeInvalidState        = "INVALID_STATE"
	CodeInvalidTransition   = "INVALID_STATE_TRANSITION"
	CodeStockConflict       = "STOCK_CONFLICT"
	CodeConcurrencyConflict = "CONCURRENCY_CONFLICT"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeForbidden           = "FORBIDDEN"
	CodeProductNotFound     = "PRODUCT_NOT_FOUND"
	CodeLineNotFound        = "LINE_NOT_FOUND"
	CodeOrderNotFound       = "ORDER_NOT_FOUND"
)

// Common domain errors
var (
	ErrNotFound            = NewDomainError(CodeNotFound, "Resource not found")
	ErrInvalidInput        = NewDomainError(CodeInvalidInput, "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError(CodeConcurrencyConflict, "Resource was modified by another process")
	ErrUnauthorized        = NewDomainError(CodeUnauthorized, "Not authorized to perform this action")
	ErrForbidden           = NewDomainError(CodeForbidden, "Access to this resource is forbidden")
	ErrInvalidState        = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
	ErrInsufficientStock   = NewDomainError(CodeInsufficientStock, "Insufficient stock available")
	ErrEmptyCart           = NewDomainError(CodeEmptyCart, "Cart is empty")
)
