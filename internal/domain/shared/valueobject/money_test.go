package valueobject

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func usd(s string) Money {
	m, err := NewMoneyFromString(s, USD)
	if err != nil {
		panic(err)
	}
	return m
}

func TestNewMoney(t *testing.T) {
	t.Run("creates money with valid amount and currency", func(t *testing.T) {
		m, err := NewMoney(decimal.RequireFromString("100.50"), USD)
		require.NoError(t, err)
		assert.Equal(t, USD, m.Currency())
		assert.True(t, m.Amount().Equal(decimal.RequireFromString("100.5")))
	})

	t.Run("returns error for empty currency", func(t *testing.T) {
		_, err := NewMoney(decimal.NewFromInt(100), "")
		assert.ErrorContains(t, err, "currency cannot be empty")
	})

	t.Run("rejects malformed strings", func(t *testing.T) {
		_, err := NewMoneyFromString("ten dollars", USD)
		assert.Error(t, err)
	})
}

func TestParseCurrency(t *testing.T) {
	c, err := ParseCurrency(" usd ")
	require.NoError(t, err)
	assert.Equal(t, USD, c)

	_, err = ParseCurrency("dollars")
	assert.Error(t, err)
}

func TestMoney_Arithmetic(t *testing.T) {
	t.Run("add same currency", func(t *testing.T) {
		sum, err := usd("10.00").Add(usd("5.25"))
		require.NoError(t, err)
		assert.True(t, sum.Equals(usd("15.25")))
	})

	t.Run("add different currency fails", func(t *testing.T) {
		eur := MustMoney(decimal.NewFromInt(1), EUR)
		_, err := usd("1").Add(eur)
		assert.Error(t, err)
		assert.Panics(t, func() { usd("1").MustAdd(eur) })
	})

	t.Run("multiply by quantity", func(t *testing.T) {
		assert.True(t, usd("10.00").MultiplyByInt(2).Equals(usd("20")))
	})

	t.Run("tax rate stays exact", func(t *testing.T) {
		tax := usd("25.00").Multiply(decimal.RequireFromString("0.10")).Round()
		assert.Equal(t, "2.50 USD", tax.String())
	})

	t.Run("round half away from zero", func(t *testing.T) {
		assert.Equal(t, "0.13 USD", usd("0.125").Round().String())
	})

	t.Run("repeated cents do not drift", func(t *testing.T) {
		total := Zero(USD)
		for i := 0; i < 10; i++ {
			total = total.MustAdd(usd("0.10"))
		}
		assert.True(t, total.Equals(usd("1.00")))
	})
}

func TestMoney_MinorUnits(t *testing.T) {
	tests := []struct {
		name     string
		money    Money
		expected int64
	}{
		{"whole dollars", usd("27.50"), 2750},
		{"sub-cent rounds", usd("0.005"), 1},
		{"zero", Zero(USD), 0},
		{"zero decimal currency", MustMoney(decimal.NewFromInt(1500), JPY), 1500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.money.MinorUnits())
		})
	}
}

func TestMoney_JSON(t *testing.T) {
	data, err := json.Marshal(usd("27.5"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":"27.50","currency":"USD"}`, string(data))

	var decoded Money
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, decoded.Equals(usd("27.50")))
}
