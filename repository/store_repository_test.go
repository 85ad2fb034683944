package repository

import (
	"context"
	"testing"

	"channelpoints/domain/entities"
	"channelpoints/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreItemRepository(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewStoreItemRepository(testDB.DB)
	ctx := context.Background()

	t.Run("create and get", func(t *testing.T) {
		item := testutil.CreateTestStoreItem("Sticker", 100)
		kickCost := int64(30)
		item.CostKick = &kickCost
		item.AcceptedCurrencies = append(item.AcceptedCurrencies, entities.CurrencyKick)
		require.NoError(t, repo.Create(ctx, item))

		stored, err := repo.GetByID(ctx, item.ID)
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.Equal(t, []entities.Currency{entities.CurrencySite, entities.CurrencyKick}, stored.AcceptedCurrencies)
		cost, ok := stored.CostFor(entities.CurrencyKick)
		assert.True(t, ok)
		assert.Equal(t, int64(30), cost)
		assert.True(t, stored.HasUnlimitedStock())
	})

	t.Run("missing item", func(t *testing.T) {
		item, err := repo.GetByID(ctx, 999999)
		require.NoError(t, err)
		assert.Nil(t, item)
	})

	t.Run("list active only", func(t *testing.T) {
		hidden := testutil.CreateTestStoreItem("Hidden", 10)
		hidden.IsActive = false
		require.NoError(t, repo.Create(ctx, hidden))

		all, err := repo.List(ctx, false)
		require.NoError(t, err)
		active, err := repo.List(ctx, true)
		require.NoError(t, err)
		assert.Len(t, all, len(active)+1)
	})

	t.Run("conditional stock decrement", func(t *testing.T) {
		item := testutil.CreateTestStoreItemWithStock("Limited", 100, 2)
		require.NoError(t, repo.Create(ctx, item))

		ok, err := repo.DecrementStock(ctx, item.ID, 3)
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = repo.DecrementStock(ctx, item.ID, 2)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = repo.DecrementStock(ctx, item.ID, 1)
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, repo.RestoreStock(ctx, item.ID, 1))
		stored, err := repo.GetByID(ctx, item.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), *stored.StockQuantity)
	})

	t.Run("unlimited stock never runs out", func(t *testing.T) {
		item := testutil.CreateTestStoreItem("Unlimited", 5)
		require.NoError(t, repo.Create(ctx, item))

		ok, err := repo.DecrementStock(ctx, item.ID, 1000)
		require.NoError(t, err)
		assert.True(t, ok)

		require.NoError(t, repo.RestoreStock(ctx, item.ID, 1000))
		stored, err := repo.GetByID(ctx, item.ID)
		require.NoError(t, err)
		assert.Nil(t, stored.StockQuantity)
	})
}

func TestRedemptionRepository(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	items := NewStoreItemRepository(testDB.DB)
	repo := NewRedemptionRepository(testDB.DB)
	ctx := context.Background()

	item := testutil.CreateTestStoreItem("Poster", 50)
	require.NoError(t, items.Create(ctx, item))

	newRedemption := func(userID string, quantity int64) *entities.Redemption {
		r := &entities.Redemption{
			UserID:      userID,
			ItemID:      item.ID,
			Currency:    entities.CurrencySite,
			PointsSpent: 50 * quantity,
			Quantity:    quantity,
			Status:      entities.RedemptionStatusPending,
		}
		require.NoError(t, repo.Create(ctx, r))
		return r
	}

	t.Run("create and get", func(t *testing.T) {
		r := newRedemption("user-r1", 2)
		assert.NotZero(t, r.ID)

		stored, err := repo.GetByID(ctx, r.ID)
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.Equal(t, entities.RedemptionStatusPending, stored.Status)
		assert.Equal(t, int64(100), stored.PointsSpent)
		assert.Nil(t, stored.TransactionID)
	})

	t.Run("status compare and set", func(t *testing.T) {
		r := newRedemption("user-r2", 1)

		ok, err := repo.UpdateStatus(ctx, r.ID, entities.RedemptionStatusPending, entities.RedemptionStatusProcessing, "packing")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = repo.UpdateStatus(ctx, r.ID, entities.RedemptionStatusPending, entities.RedemptionStatusCancelled, "")
		require.NoError(t, err)
		assert.False(t, ok)

		stored, err := repo.GetByID(ctx, r.ID)
		require.NoError(t, err)
		assert.Equal(t, entities.RedemptionStatusProcessing, stored.Status)
		assert.Equal(t, "packing", stored.Notes)
	})

	t.Run("active quantity skips cancelled", func(t *testing.T) {
		newRedemption("user-r3", 2)
		cancelled := newRedemption("user-r3", 5)
		_, err := repo.UpdateStatus(ctx, cancelled.ID, entities.RedemptionStatusPending, entities.RedemptionStatusCancelled, "")
		require.NoError(t, err)

		total, err := repo.SumActiveQuantity(ctx, "user-r3", item.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)

		list, err := repo.ListByUser(ctx, "user-r3", 10)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, cancelled.ID, list[0].ID)
	})
}

func TestWebhookDeliveryRepository(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewWebhookDeliveryRepository(testDB.DB)
	ctx := context.Background()

	inserted, err := repo.Record(ctx, entities.PlatformKick, "evt-1", "points.update")
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = repo.Record(ctx, entities.PlatformKick, "evt-1", "points.update")
	require.NoError(t, err)
	assert.False(t, inserted)

	// Delivery ids are scoped per platform
	inserted, err = repo.Record(ctx, entities.PlatformTwitch, "evt-1", "points.update")
	require.NoError(t, err)
	assert.True(t, inserted)
}
