package persistence

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormProductRepository_FindAll(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormProductRepository(db)
	ctx := context.Background()

	lamp := seedProduct(t, db, "Desk Lamp", "30.00", 4)
	seedProduct(t, db, "Floor Lamp", "80.00", 12)
	seedProduct(t, db, "Mug", "5.00", 50)
	retired := seedProduct(t, db, "Retired Lamp", "10.00", 0)
	retired.Deactivate()
	require.NoError(t, repo.Save(ctx, retired))

	lamp.Category = "lighting"
	require.NoError(t, repo.Save(ctx, lamp))

	t.Run("active only, sorted by name", func(t *testing.T) {
		products, total, err := repo.FindAll(ctx, catalog.ProductFilter{ActiveOnly: true})
		require.NoError(t, err)
		assert.EqualValues(t, 3, total)
		require.Len(t, products, 3)
		assert.Equal(t, "Desk Lamp", products[0].Name)
		assert.Equal(t, "Mug", products[2].Name)
	})

	t.Run("case-insensitive search", func(t *testing.T) {
		products, total, err := repo.FindAll(ctx, catalog.ProductFilter{
			Filter:     shared.Filter{Search: "LAMP"},
			ActiveOnly: true,
		})
		require.NoError(t, err)
		assert.EqualValues(t, 2, total)
		assert.Len(t, products, 2)
	})

	t.Run("category", func(t *testing.T) {
		products, _, err := repo.FindAll(ctx, catalog.ProductFilter{Category: "lighting"})
		require.NoError(t, err)
		require.Len(t, products, 1)
		assert.Equal(t, lamp.ID, products[0].ID)
	})

	t.Run("pagination keeps the full count", func(t *testing.T) {
		products, total, err := repo.FindAll(ctx, catalog.ProductFilter{
			Filter:     shared.Filter{Page: 2, PageSize: 2},
			ActiveOnly: true,
		})
		require.NoError(t, err)
		assert.EqualValues(t, 3, total)
		require.Len(t, products, 1)
		assert.Equal(t, "Mug", products[0].Name)
	})

	t.Run("unknown sort fields fall back to name", func(t *testing.T) {
		products, _, err := repo.FindAll(ctx, catalog.ProductFilter{
			Filter:     shared.Filter{OrderBy: "stock; DROP TABLE products"},
			ActiveOnly: true,
		})
		require.NoError(t, err)
		assert.Len(t, products, 3)
	})
}

func TestGormProductRepository_FindAllMatchesWildcardsLiterally(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormProductRepository(db)
	ctx := context.Background()

	sale := seedProduct(t, db, "50% Off Poster", "10.00", 5)
	seedProduct(t, db, "500 Piece Puzzle", "15.00", 5)
	snake := seedProduct(t, db, "snake_case Mug", "8.00", 5)
	seedProduct(t, db, "Snakes Mug", "8.00", 5)

	products, total, err := repo.FindAll(ctx, catalog.ProductFilter{Filter: shared.Filter{Search: "50%"}})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, products, 1)
	assert.Equal(t, sale.ID, products[0].ID)

	products, _, err = repo.FindAll(ctx, catalog.ProductFilter{Filter: shared.Filter{Search: "snake_"}})
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, snake.ID, products[0].ID)
}

func TestGormProductRepository_FindLowStock(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormProductRepository(db)
	ctx := context.Background()

	seedProduct(t, db, "Plenty", "1.00", 50)
	atThreshold := seedProduct(t, db, "Edge", "1.00", 10)
	empty := seedProduct(t, db, "Empty", "1.00", 0)

	products, err := repo.FindLowStock(ctx, catalog.DefaultLowStockThreshold)
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, empty.ID, products[0].ID)
	assert.Equal(t, atThreshold.ID, products[1].ID)
}

func TestGormProductRepository_FindByIDs(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormProductRepository(db)
	ctx := context.Background()

	a := seedProduct(t, db, "A", "1.00", 1)
	b := seedProduct(t, db, "B", "2.00", 2)

	found, err := repo.FindByIDs(ctx, []uuid.UUID{a.ID, b.ID, uuid.New()})
	require.NoError(t, err)
	assert.Len(t, found, 2)
	assert.Equal(t, "B", found[b.ID].Name)

	_, err = repo.FindByID(ctx, uuid.New())
	assert.Equal(t, shared.CodeProductNotFound, shared.CodeOf(err))
}
