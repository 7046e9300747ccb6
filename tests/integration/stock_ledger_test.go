//go:build integration

package integration

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
	"github.com/storefront/backend/internal/infrastructure/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedProduct(t *testing.T, tdb *TestDB, name, price string, stock int) *catalog.Product {
	t.Helper()

	p, err := catalog.NewProduct(name, "general", decimal.RequireFromString(price), valueobject.USD, stock)
	require.NoError(t, err)
	require.NoError(t, persistence.NewGormProductRepository(tdb.DB).Save(context.Background(), p))
	return p
}

func TestStockLedger_ConcurrentDecrementsNeverOversell(t *testing.T) {
	tdb := NewTestDB(t)
	ledger := persistence.NewGormStockLedger(tdb.DB)
	widget := seedProduct(t, tdb, "Widget", "12.50", 10)
	ctx := context.Background()

	const buyers = 25
	var (
		wg           sync.WaitGroup
		succeeded    atomic.Int32
		insufficient atomic.Int32
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := ledger.CommitDecrement(ctx, widget.ID, 1)
			switch {
			case err == nil:
				succeeded.Add(1)
			case shared.CodeOf(err) == shared.CodeInsufficientStock:
				insufficient.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 10, succeeded.Load())
	assert.EqualValues(t, buyers-10, insufficient.Load())

	available, err := ledger.Available(ctx, widget.ID)
	require.NoError(t, err)
	assert.Zero(t, available)
}

func TestStockLedger_ReserveDoesNotHoldStock(t *testing.T) {
	tdb := NewTestDB(t)
	ledger := persistence.NewGormStockLedger(tdb.DB)
	widget := seedProduct(t, tdb, "Widget", "12.50", 3)
	ctx := context.Background()

	require.NoError(t, ledger.Reserve(ctx, widget.ID, 3))
	require.NoError(t, ledger.Reserve(ctx, widget.ID, 3))

	err := ledger.Reserve(ctx, widget.ID, 4)
	assert.ErrorIs(t, err, shared.ErrInsufficientStock)

	available, err := ledger.Available(ctx, widget.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, available)
}

func TestStockLedger_StockCheckConstraint(t *testing.T) {
	tdb := NewTestDB(t)
	widget := seedProduct(t, tdb, "Widget", "12.50", 1)

	err := tdb.DB.Exec("UPDATE products SET stock = stock - 2 WHERE id = ?", widget.ID).Error
	assert.Error(t, err, "the schema must reject negative stock")
}
