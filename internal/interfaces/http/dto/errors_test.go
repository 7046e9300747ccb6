package dto

import (
	"net/http"
	"testing"

	"github.com/storefront/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{shared.CodeProductNotFound, http.StatusNotFound},
		{shared.CodeOrderNotFound, http.StatusNotFound},
		{shared.CodeValidation, http.StatusBadRequest},
		{shared.CodeInvalidQuantity, http.StatusBadRequest},
		{shared.CodeInvalidStatus, http.StatusBadRequest},
		{shared.CodeInsufficientStock, http.StatusUnprocessableEntity},
		{shared.CodeEmptyCart, http.StatusUnprocessableEntity},
		{shared.CodeInvalidTransition, http.StatusUnprocessableEntity},
		{shared.CodeStockConflict, http.StatusConflict},
		{shared.CodeConcurrencyConflict, http.StatusConflict},
		{shared.CodePaymentGateway, http.StatusBadGateway},
		{shared.CodeForbidden, http.StatusForbidden},
		{shared.CodeUnauthorized, http.StatusUnauthorized},
		{"SOMETHING_NEW", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, GetHTTPStatus(tt.code))
		})
	}
}

func TestNewSuccessResponseWithMeta(t *testing.T) {
	resp := NewSuccessResponseWithMeta([]string{"a"}, 41, 2, 20)

	assert.True(t, resp.Success)
	assert.Equal(t, &Meta{Total: 41, Page: 2, PageSize: 20, TotalPages: 3}, resp.Meta)
}

func TestNewSuccessResponseWithMeta_Defaults(t *testing.T) {
	resp := NewSuccessResponseWithMeta(nil, 5, 0, 0)

	assert.Equal(t, 1, resp.Meta.Page)
	assert.Equal(t, DefaultPageSize, resp.Meta.PageSize)
	assert.Equal(t, 1, resp.Meta.TotalPages)
}

func TestDetailsFromFields(t *testing.T) {
	assert.Nil(t, DetailsFromFields(nil))

	details := DetailsFromFields([]shared.FieldError{{Field: "shipping_zip", Message: "is required"}})
	assert.Equal(t, []ErrorDetail{{Field: "shipping_zip", Message: "is required"}}, details)
}
