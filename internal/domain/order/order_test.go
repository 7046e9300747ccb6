package order

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAddress(t *testing.T) valueobject.ShippingAddress {
	t.Helper()
	addr, err := valueobject.NewShippingAddress("1 Main St", "Springfield", "12345", "US")
	require.NoError(t, err)
	return addr
}

func testLines() []LineInput {
	return []LineInput{
		{ProductID: uuid.New(), ProductName: "A", Quantity: 2, UnitPrice: decimal.RequireFromString("10.00")},
		{ProductID: uuid.New(), ProductName: "B", Quantity: 1, UnitPrice: decimal.RequireFromString("5.00")},
	}
}

func createTestOrder(t *testing.T) *Order {
	t.Helper()
	o, err := Place(PlaceParams{
		UserID:          uuid.New(),
		Shipping:        testAddress(t),
		Lines:           testLines(),
		Currency:        valueobject.USD,
		PaymentIntentID: "pi_123",
		CheckoutKey:     "checkout:abc:1",
	})
	require.NoError(t, err)
	return o
}

// ==================== Place ====================

func TestPlace(t *testing.T) {
	t.Run("computes totals and snapshots prices", func(t *testing.T) {
		lines := testLines()
		o, err := Place(PlaceParams{
			UserID:          uuid.New(),
			Shipping:        testAddress(t),
			Lines:           lines,
			PaymentIntentID: "pi_123",
		})
		require.NoError(t, err)

		assert.Equal(t, "25", o.Subtotal.String())
		assert.Equal(t, "2.5", o.TaxAmount.String())
		assert.Equal(t, "27.5", o.TotalAmount.String())
		assert.Equal(t, int64(2750), o.Total().MinorUnits())
		assert.Equal(t, StatusPending, o.Status)
		assert.Equal(t, PaymentStatusPending, o.PaymentStatus)
		require.Len(t, o.Lines, 2)
		assert.True(t, o.Lines[0].UnitPrice.Equal(decimal.RequireFromString("10.00")))
		assert.True(t, o.Lines[1].UnitPrice.Equal(decimal.RequireFromString("5.00")))
		assert.Equal(t, o.ID, o.Lines[0].OrderID)
		assert.Regexp(t, `^ORD-\d{8}-[0-9A-F]{8}$`, o.OrderNumber)

		lines[0].UnitPrice = decimal.NewFromInt(99)
		assert.True(t, o.Lines[0].UnitPrice.Equal(decimal.NewFromInt(10)))

		events := o.GetDomainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, EventTypeOrderPlaced, events[0].EventType())
		assert.Equal(t, o.UserID.String(), events[0].PartitionKey())
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		tests := []struct {
			name   string
			params PlaceParams
			code   string
		}{
			{"no user", PlaceParams{Shipping: testAddress(t), Lines: testLines(), PaymentIntentID: "pi"}, shared.CodeInvalidInput},
			{"no lines", PlaceParams{UserID: uuid.New(), Shipping: testAddress(t), PaymentIntentID: "pi"}, shared.CodeEmptyCart},
			{"no address", PlaceParams{UserID: uuid.New(), Lines: testLines(), PaymentIntentID: "pi"}, shared.CodeValidation},
			{"no intent", PlaceParams{UserID: uuid.New(), Shipping: testAddress(t), Lines: testLines()}, shared.CodeInvalidInput},
			{"zero quantity", PlaceParams{UserID: uuid.New(), Shipping: testAddress(t), PaymentIntentID: "pi",
				Lines: []LineInput{{ProductID: uuid.New(), ProductName: "A", Quantity: 0, UnitPrice: decimal.NewFromInt(1)}}}, shared.CodeInvalidQuantity},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := Place(tt.params)
				assert.Equal(t, tt.code, shared.CodeOf(err))
			})
		}
	})
}

func TestPrice_RoundsTax(t *testing.T) {
	q := Price([]LineInput{{Quantity: 3, UnitPrice: decimal.RequireFromString("0.35")}}, valueobject.USD, DefaultTaxRate)
	assert.Equal(t, "1.05 USD", q.Subtotal.String())
	assert.Equal(t, "0.11 USD", q.Tax.String())
	assert.Equal(t, "1.16 USD", q.Total.String())
}

// ==================== Status ====================

func TestOrder_UpdateStatus(t *testing.T) {
	t.Run("permissive accepts any recognized state", func(t *testing.T) {
		o := createTestOrder(t)
		require.NoError(t, o.UpdateStatus(StatusDelivered, false))
		require.NoError(t, o.UpdateStatus(StatusPending, false))
		assert.Equal(t, StatusPending, o.Status)
		assert.Len(t, o.GetDomainEvents(), 3)
	})

	t.Run("rejects unknown state", func(t *testing.T) {
		o := createTestOrder(t)
		err := o.UpdateStatus(Status("lost"), false)
		assert.Equal(t, shared.CodeInvalidStatus, shared.CodeOf(err))
		assert.Equal(t, StatusPending, o.Status)
	})

	t.Run("same state is a no-op", func(t *testing.T) {
		o := createTestOrder(t)
		version := o.Version
		require.NoError(t, o.UpdateStatus(StatusPending, true))
		assert.Equal(t, version, o.Version)
	})

	t.Run("strict mode enforces the flow", func(t *testing.T) {
		o := createTestOrder(t)
		err := o.UpdateStatus(StatusShipped, true)
		assert.Equal(t, shared.CodeInvalidTransition, shared.CodeOf(err))

		require.NoError(t, o.UpdateStatus(StatusProcessing, true))
		require.NoError(t, o.UpdateStatus(StatusShipped, true))
		require.NoError(t, o.UpdateStatus(StatusDelivered, true))
		assert.Error(t, o.UpdateStatus(StatusCancelled, true))
	})
}

func TestParseStatus(t *testing.T) {
	for _, s := range AllStatuses {
		parsed, err := ParseStatus(" " + string(s) + " ")
		require.NoError(t, err)
		assert.Equal(t, s, parsed)
	}
	_, err := ParseStatus("refunded")
	assert.Equal(t, shared.CodeInvalidStatus, shared.CodeOf(err))
}

func TestStatus_Terminal(t *testing.T) {
	assert.True(t, StatusDelivered.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.False(t, StatusShipped.IsTerminal())
	assert.True(t, PaymentStatusCompleted.IsTerminal())
	assert.True(t, PaymentStatusFailed.IsTerminal())
	assert.False(t, PaymentStatusPending.IsTerminal())
}

// ==================== Payment ====================

func TestOrder_ConfirmPayment(t *testing.T) {
	t.Run("confirms once", func(t *testing.T) {
		o := createTestOrder(t)
		o.ClearDomainEvents()

		changed, err := o.ConfirmPayment()
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, PaymentStatusCompleted, o.PaymentStatus)
		assert.NotNil(t, o.PaidAt)

		changed, err = o.ConfirmPayment()
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Len(t, o.GetDomainEvents(), 1)
	})

	t.Run("failed payment cannot be confirmed", func(t *testing.T) {
		o := createTestOrder(t)
		require.True(t, o.FailPayment("card declined"))

		_, err := o.ConfirmPayment()
		assert.Equal(t, shared.CodeInvalidState, shared.CodeOf(err))
	})
}

func TestOrder_FailPayment(t *testing.T) {
	o := createTestOrder(t)
	assert.True(t, o.FailPayment("card declined"))
	assert.Equal(t, PaymentStatusFailed, o.PaymentStatus)
	assert.False(t, o.FailPayment("again"))

	paid := createTestOrder(t)
	_, err := paid.ConfirmPayment()
	require.NoError(t, err)
	assert.False(t, paid.FailPayment("late failure"))
	assert.Equal(t, PaymentStatusCompleted, paid.PaymentStatus)
}
