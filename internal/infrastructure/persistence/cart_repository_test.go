package persistence

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormCartRepository_FindOrCreateByUser(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormCartRepository(db)
	ctx := context.Background()
	userID := uuid.New()

	first, err := repo.FindOrCreateByUser(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, userID, first.UserID)
	assert.True(t, first.IsEmpty())

	second, err := repo.FindOrCreateByUser(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, db.Model(&models.CartModel{}).Where("user_id = ?", userID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestGormCartRepository_Save(t *testing.T) {
	ctx := context.Background()

	t.Run("round trips lines with live product data", func(t *testing.T) {
		db := newTestDB(t)
		repo := NewGormCartRepository(db)
		lamp := seedProduct(t, db, "Desk Lamp", "10.00", 10)
		mug := seedProduct(t, db, "Mug", "5.00", 10)

		c, err := repo.FindOrCreateByUser(ctx, uuid.New())
		require.NoError(t, err)
		version := c.Version
		_, err = c.AddItem(lamp, 2)
		require.NoError(t, err)
		_, err = c.AddItem(mug, 1)
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, c, version))

		lamp.Price = decimal.RequireFromString("12.00")
		require.NoError(t, NewGormProductRepository(db).Save(ctx, lamp))

		loaded, err := repo.FindOrCreateByUser(ctx, c.UserID)
		require.NoError(t, err)
		require.Len(t, loaded.Lines, 2)
		assert.Equal(t, c.Version, loaded.Version)
		assert.Equal(t, "Desk Lamp", loaded.Lines[0].ProductName)
		assert.True(t, loaded.TotalPrice().Amount().Equal(decimal.RequireFromString("29.00")))
	})

	t.Run("rejects a stale version", func(t *testing.T) {
		db := newTestDB(t)
		repo := NewGormCartRepository(db)
		p := seedProduct(t, db, "Mug", "5.00", 10)

		c, err := repo.FindOrCreateByUser(ctx, uuid.New())
		require.NoError(t, err)
		stale := c.Version
		_, err = c.AddItem(p, 1)
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, c, stale))

		_, err = c.AddItem(p, 1)
		require.NoError(t, err)
		err = repo.Save(ctx, c, stale)
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	})

	t.Run("clearing removes every line", func(t *testing.T) {
		db := newTestDB(t)
		repo := NewGormCartRepository(db)
		p := seedProduct(t, db, "Mug", "5.00", 10)

		c, err := repo.FindOrCreateByUser(ctx, uuid.New())
		require.NoError(t, err)
		v := c.Version
		_, err = c.AddItem(p, 3)
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, c, v))

		v = c.Version
		c.Clear()
		require.NoError(t, repo.Save(ctx, c, v))

		var lines int64
		require.NoError(t, db.Model(&models.CartLineModel{}).Where("cart_id = ?", c.ID).Count(&lines).Error)
		assert.Zero(t, lines)
	})
}
