package application_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"channelpoints/domain/entities"
	"channelpoints/domain/interfaces"
	"channelpoints/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedemptionEngine_Integration(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()

	t.Run("redeem then cancel restores balance and stock", func(t *testing.T) {
		userID := testutil.UniqueUserID("checkout")
		h.setBalance(t, userID, entities.CurrencySite, 250)
		item := h.createItem(t, testutil.CreateTestStoreItemWithStock("Sticker pack", 100, 5))

		receipt, err := h.redemptions.Redeem(ctx, interfaces.RedeemRequest{
			UserID:   userID,
			ItemID:   item.ID,
			Currency: entities.CurrencySite,
			Quantity: 1,
		})
		require.NoError(t, err)
		assert.Equal(t, entities.RedemptionStatusPending, receipt.Redemption.Status)
		assert.Equal(t, int64(100), receipt.Redemption.PointsSpent)
		assert.Equal(t, int64(-100), receipt.Transaction.Amount)
		require.NotNil(t, receipt.Redemption.TransactionID)
		assert.Equal(t, receipt.Transaction.ID, *receipt.Redemption.TransactionID)
		assert.Equal(t, int64(150), h.balance(t, userID, entities.CurrencySite))

		stored, err := h.redemptions.GetItem(ctx, item.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(4), *stored.StockQuantity)

		result, err := h.redemptions.Transition(ctx, receipt.Redemption.ID, entities.RedemptionStatusCancelled, "changed my mind")
		require.NoError(t, err)
		assert.Equal(t, entities.RedemptionStatusPending, result.OldStatus)
		require.NotNil(t, result.Refund)
		assert.Equal(t, int64(100), result.Refund.Amount)
		assert.Equal(t, entities.TransactionTypeRedemptionRefund, result.Refund.TransactionType)

		assert.Equal(t, int64(250), h.balance(t, userID, entities.CurrencySite))
		stored, err = h.redemptions.GetItem(ctx, item.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(5), *stored.StockQuantity)

		_, err = h.redemptions.Transition(ctx, receipt.Redemption.ID, entities.RedemptionStatusCancelled, "")
		assert.ErrorIs(t, err, entities.ErrInvalidTransition)

		h.requireConsistent(t, userID, entities.CurrencySite)
	})

	t.Run("refund after completion keeps stock consumed", func(t *testing.T) {
		userID := testutil.UniqueUserID("refund")
		h.setBalance(t, userID, entities.CurrencySite, 100)
		item := h.createItem(t, testutil.CreateTestStoreItemWithStock("Shoutout", 40, 3))

		receipt, err := h.redemptions.Redeem(ctx, interfaces.RedeemRequest{UserID: userID, ItemID: item.ID, Currency: entities.CurrencySite, Quantity: 2})
		require.NoError(t, err)
		assert.Equal(t, int64(80), receipt.Redemption.PointsSpent)

		for _, status := range []entities.RedemptionStatus{entities.RedemptionStatusProcessing, entities.RedemptionStatusCompleted} {
			_, err = h.redemptions.Transition(ctx, receipt.Redemption.ID, status, "")
			require.NoError(t, err)
		}

		result, err := h.redemptions.Transition(ctx, receipt.Redemption.ID, entities.RedemptionStatusRefunded, "")
		require.NoError(t, err)
		assert.Equal(t, int64(80), result.Refund.Amount)

		assert.Equal(t, int64(100), h.balance(t, userID, entities.CurrencySite))
		stored, err := h.redemptions.GetItem(ctx, item.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), *stored.StockQuantity)

		_, err = h.redemptions.Transition(ctx, receipt.Redemption.ID, entities.RedemptionStatusPending, "")
		assert.ErrorIs(t, err, entities.ErrInvalidTransition)
	})

	t.Run("insufficient balance leaves stock untouched", func(t *testing.T) {
		userID := testutil.UniqueUserID("broke")
		h.setBalance(t, userID, entities.CurrencySite, 10)
		item := h.createItem(t, testutil.CreateTestStoreItemWithStock("Poster", 100, 2))

		_, err := h.redemptions.Redeem(ctx, interfaces.RedeemRequest{UserID: userID, ItemID: item.ID, Currency: entities.CurrencySite, Quantity: 1})
		assert.ErrorIs(t, err, entities.ErrInsufficientBalance)

		stored, err := h.redemptions.GetItem(ctx, item.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), *stored.StockQuantity)
		assert.Equal(t, int64(10), h.balance(t, userID, entities.CurrencySite))

		redemptions, err := h.redemptions.ListUserRedemptions(ctx, userID, 0)
		require.NoError(t, err)
		assert.Empty(t, redemptions)
	})

	t.Run("checkout rules", func(t *testing.T) {
		userID := testutil.UniqueUserID("rules")
		h.setBalance(t, userID, entities.CurrencySite, 1000)
		h.setBalance(t, userID, entities.CurrencyKick, 1000)

		inactive := testutil.CreateTestStoreItem("Retired", 10)
		inactive.IsActive = false
		h.createItem(t, inactive)

		future := time.Now().Add(24 * time.Hour)
		scheduled := testutil.CreateTestStoreItem("Launch day", 10)
		scheduled.AvailableFrom = &future
		h.createItem(t, scheduled)

		limit := int64(2)
		limited := testutil.CreateTestStoreItem("Limited", 10)
		limited.MaxPerUser = &limit
		h.createItem(t, limited)

		siteOnly := h.createItem(t, testutil.CreateTestStoreItem("Site only", 10))

		redeem := func(itemID int64, currency entities.Currency, quantity int64) error {
			_, err := h.redemptions.Redeem(ctx, interfaces.RedeemRequest{UserID: userID, ItemID: itemID, Currency: currency, Quantity: quantity})
			return err
		}

		assert.ErrorIs(t, redeem(inactive.ID, entities.CurrencySite, 1), entities.ErrItemInactive)
		assert.ErrorIs(t, redeem(scheduled.ID, entities.CurrencySite, 1), entities.ErrItemUnavailable)
		assert.ErrorIs(t, redeem(siteOnly.ID, entities.CurrencyKick, 1), entities.ErrCurrencyNotAccepted)
		assert.ErrorIs(t, redeem(siteOnly.ID, entities.CurrencySite, 0), entities.ErrInvalidQuantity)
		assert.ErrorIs(t, redeem(999999, entities.CurrencySite, 1), entities.ErrItemNotFound)

		require.NoError(t, redeem(limited.ID, entities.CurrencySite, 2))
		var limitErr *entities.PurchaseLimitError
		require.ErrorAs(t, redeem(limited.ID, entities.CurrencySite, 1), &limitErr)
		assert.Equal(t, int64(2), limitErr.Redeemed)

		// Each failure above left the balance alone
		assert.Equal(t, int64(980), h.balance(t, userID, entities.CurrencySite))
		assert.Equal(t, int64(1000), h.balance(t, userID, entities.CurrencyKick))
	})

	t.Run("items are validated on create", func(t *testing.T) {
		item := testutil.CreateTestStoreItem("", 10)
		err := h.redemptions.CreateItem(ctx, item)
		assert.Equal(t, entities.ErrorKindValidation, entities.KindOf(err))

		_, err = h.redemptions.GetItem(ctx, 424242)
		assert.ErrorIs(t, err, entities.ErrItemNotFound)
	})
}

func TestRedemptionEngine_LastUnitRace(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()

	item := h.createItem(t, testutil.CreateTestStoreItemWithStock("Last one", 10, 1))

	const buyers = 20
	userIDs := make([]string, buyers)
	for i := range userIDs {
		userIDs[i] = testutil.UniqueUserID("buyer")
		h.setBalance(t, userIDs[i], entities.CurrencySite, 100)
	}

	var (
		wg         sync.WaitGroup
		succeeded  atomic.Int64
		outOfStock atomic.Int64
	)
	for _, userID := range userIDs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.redemptions.Redeem(ctx, interfaces.RedeemRequest{UserID: userID, ItemID: item.ID, Currency: entities.CurrencySite, Quantity: 1})
			switch {
			case err == nil:
				succeeded.Add(1)
			case errors.Is(err, entities.ErrOutOfStock):
				outOfStock.Add(1)
			default:
				t.Errorf("unexpected redeem error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), succeeded.Load())
	assert.Equal(t, int64(buyers-1), outOfStock.Load())

	stored, err := h.redemptions.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), *stored.StockQuantity)

	var total int64
	for _, userID := range userIDs {
		total += h.balance(t, userID, entities.CurrencySite)
	}
	assert.Equal(t, int64(buyers*100-10), total)
}
