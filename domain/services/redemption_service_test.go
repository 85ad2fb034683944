package services

import (
	"context"
	"testing"
	"time"

	"channelpoints/domain/entities"
	"channelpoints/domain/interfaces"
	"channelpoints/domain/testhelpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func int64Ptr(v int64) *int64 {
	return &v
}

type redemptionMocks struct {
	items       *testhelpers.MockStoreItemRepository
	redemptions *testhelpers.MockRedemptionRepository
	ledger      *testhelpers.MockLedgerService
	publisher   *testhelpers.MockEventPublisher
}

func newRedemptionMocks() *redemptionMocks {
	return &redemptionMocks{
		items:       new(testhelpers.MockStoreItemRepository),
		redemptions: new(testhelpers.MockRedemptionRepository),
		ledger:      new(testhelpers.MockLedgerService),
		publisher:   new(testhelpers.MockEventPublisher),
	}
}

func (m *redemptionMocks) service() interfaces.RedemptionService {
	return NewRedemptionService(m.items, m.redemptions, m.ledger, m.publisher)
}

func stickerItem() *entities.StoreItem {
	return &entities.StoreItem{
		ID:                 1,
		Name:               "Sticker",
		AcceptedCurrencies: []entities.Currency{entities.CurrencySite, entities.CurrencyKick},
		CostSite:           int64Ptr(100),
		CostKick:           int64Ptr(40),
		IsActive:           true,
	}
}

func TestRedemptionService_Redeem(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("debits and records pending redemption", func(t *testing.T) {
		t.Parallel()
		m := newRedemptionMocks()
		m.items.On("GetByID", mock.Anything, int64(1)).Return(stickerItem(), nil)
		m.items.On("DecrementStock", mock.Anything, int64(1), int64(2)).Return(true, nil)
		m.ledger.On("Debit", mock.Anything, mock.MatchedBy(func(e interfaces.LedgerEntry) bool {
			return e.Type == entities.TransactionTypeRedemptionDebit && e.Currency == entities.CurrencyKick
		}), int64(80)).Return(&entities.Transaction{ID: 7, Amount: -80, BalanceBefore: 100, BalanceAfter: 20}, nil)
		m.redemptions.On("Create", mock.Anything, mock.AnythingOfType("*entities.Redemption")).
			Run(func(args mock.Arguments) {
				args.Get(1).(*entities.Redemption).ID = 5
			}).
			Return(nil)
		m.publisher.On("Publish", mock.Anything).Return(nil)

		receipt, err := m.service().Redeem(context.Background(), interfaces.RedeemRequest{
			UserID:   "user-1",
			ItemID:   1,
			Currency: entities.CurrencyKick,
			Quantity: 2,
		}, now)

		require.NoError(t, err)
		assert.Equal(t, int64(5), receipt.Redemption.ID)
		assert.Equal(t, entities.RedemptionStatusPending, receipt.Redemption.Status)
		assert.Equal(t, int64(80), receipt.Redemption.PointsSpent)
		require.NotNil(t, receipt.Redemption.TransactionID)
		assert.Equal(t, int64(7), *receipt.Redemption.TransactionID)
		m.items.AssertNotCalled(t, "GetByIDForUpdate", mock.Anything, mock.Anything)
		m.publisher.AssertNumberOfCalls(t, "Publish", 1)
	})

	tests := []struct {
		name    string
		req     interfaces.RedeemRequest
		setup   func(m *redemptionMocks)
		wantErr error
	}{
		{
			name:    "zero quantity",
			req:     interfaces.RedeemRequest{UserID: "user-1", ItemID: 1, Currency: entities.CurrencySite, Quantity: 0},
			setup:   func(m *redemptionMocks) {},
			wantErr: entities.ErrInvalidQuantity,
		},
		{
			name: "item missing",
			req:  interfaces.RedeemRequest{UserID: "user-1", ItemID: 9, Currency: entities.CurrencySite, Quantity: 1},
			setup: func(m *redemptionMocks) {
				m.items.On("GetByID", mock.Anything, int64(9)).Return(nil, nil)
			},
			wantErr: entities.ErrItemNotFound,
		},
		{
			name: "item inactive",
			req:  interfaces.RedeemRequest{UserID: "user-1", ItemID: 1, Currency: entities.CurrencySite, Quantity: 1},
			setup: func(m *redemptionMocks) {
				item := stickerItem()
				item.IsActive = false
				m.items.On("GetByID", mock.Anything, int64(1)).Return(item, nil)
			},
			wantErr: entities.ErrItemInactive,
		},
		{
			name: "outside availability window",
			req:  interfaces.RedeemRequest{UserID: "user-1", ItemID: 1, Currency: entities.CurrencySite, Quantity: 1},
			setup: func(m *redemptionMocks) {
				item := stickerItem()
				from := now.Add(time.Hour)
				item.AvailableFrom = &from
				m.items.On("GetByID", mock.Anything, int64(1)).Return(item, nil)
			},
			wantErr: entities.ErrItemUnavailable,
		},
		{
			name: "currency not accepted",
			req:  interfaces.RedeemRequest{UserID: "user-1", ItemID: 1, Currency: entities.CurrencyTwitch, Quantity: 1},
			setup: func(m *redemptionMocks) {
				m.items.On("GetByID", mock.Anything, int64(1)).Return(stickerItem(), nil)
			},
			wantErr: entities.ErrCurrencyNotAccepted,
		},
		{
			name: "not enough stock",
			req:  interfaces.RedeemRequest{UserID: "user-1", ItemID: 1, Currency: entities.CurrencySite, Quantity: 2},
			setup: func(m *redemptionMocks) {
				item := stickerItem()
				item.StockQuantity = int64Ptr(1)
				m.items.On("GetByID", mock.Anything, int64(1)).Return(item, nil)
			},
			wantErr: entities.ErrOutOfStock,
		},
		{
			name: "per-user limit reached",
			req:  interfaces.RedeemRequest{UserID: "user-1", ItemID: 1, Currency: entities.CurrencySite, Quantity: 1},
			setup: func(m *redemptionMocks) {
				item := stickerItem()
				item.MaxPerUser = int64Ptr(1)
				m.items.On("GetByID", mock.Anything, int64(1)).Return(item, nil)
				m.items.On("GetByIDForUpdate", mock.Anything, int64(1)).Return(item, nil)
				m.redemptions.On("SumActiveQuantity", mock.Anything, "user-1", int64(1)).Return(int64(1), nil)
			},
			wantErr: entities.ErrPurchaseLimitReached,
		},
		{
			name: "last unit taken concurrently",
			req:  interfaces.RedeemRequest{UserID: "user-1", ItemID: 1, Currency: entities.CurrencySite, Quantity: 1},
			setup: func(m *redemptionMocks) {
				item := stickerItem()
				item.StockQuantity = int64Ptr(1)
				m.items.On("GetByID", mock.Anything, int64(1)).Return(item, nil)
				m.items.On("DecrementStock", mock.Anything, int64(1), int64(1)).Return(false, nil)
			},
			wantErr: entities.ErrOutOfStock,
		},
		{
			name: "insufficient balance",
			req:  interfaces.RedeemRequest{UserID: "user-1", ItemID: 1, Currency: entities.CurrencySite, Quantity: 1},
			setup: func(m *redemptionMocks) {
				m.items.On("GetByID", mock.Anything, int64(1)).Return(stickerItem(), nil)
				m.items.On("DecrementStock", mock.Anything, int64(1), int64(1)).Return(true, nil)
				m.ledger.On("Debit", mock.Anything, mock.Anything, int64(100)).
					Return(nil, &entities.InsufficientBalanceError{UserID: "user-1", Currency: entities.CurrencySite, Balance: 10, Required: 100})
			},
			wantErr: entities.ErrInsufficientBalance,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := newRedemptionMocks()
			tt.setup(m)

			receipt, err := m.service().Redeem(context.Background(), tt.req, now)

			assert.Nil(t, receipt)
			assert.ErrorIs(t, err, tt.wantErr)
			m.redemptions.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
			m.publisher.AssertNotCalled(t, "Publish", mock.Anything)
		})
	}
}

func TestRedemptionService_Transition(t *testing.T) {
	t.Parallel()

	pending := func(status entities.RedemptionStatus) *entities.Redemption {
		return &entities.Redemption{
			ID:          5,
			UserID:      "user-1",
			ItemID:      1,
			Currency:    entities.CurrencySite,
			PointsSpent: 100,
			Quantity:    1,
			Status:      status,
		}
	}

	t.Run("cancel refunds and restores stock", func(t *testing.T) {
		t.Parallel()
		m := newRedemptionMocks()
		m.redemptions.On("GetByID", mock.Anything, int64(5)).Return(pending(entities.RedemptionStatusPending), nil)
		m.redemptions.On("UpdateStatus", mock.Anything, int64(5), entities.RedemptionStatusPending, entities.RedemptionStatusCancelled, "sold out").
			Return(true, nil)
		m.ledger.On("Credit", mock.Anything, mock.MatchedBy(func(e interfaces.LedgerEntry) bool {
			return e.Type == entities.TransactionTypeRedemptionRefund && e.UserID == "user-1"
		}), int64(100)).Return(&entities.Transaction{Amount: 100, BalanceBefore: 150, BalanceAfter: 250}, nil)
		m.items.On("RestoreStock", mock.Anything, int64(1), int64(1)).Return(nil)
		m.publisher.On("Publish", mock.Anything).Return(nil)

		result, err := m.service().Transition(context.Background(), 5, entities.RedemptionStatusCancelled, "sold out")

		require.NoError(t, err)
		assert.Equal(t, entities.RedemptionStatusPending, result.OldStatus)
		assert.Equal(t, entities.RedemptionStatusCancelled, result.Redemption.Status)
		assert.Equal(t, "sold out", result.Redemption.Notes)
		require.NotNil(t, result.Refund)
		assert.Equal(t, int64(100), result.Refund.Amount)
		m.items.AssertExpectations(t)
	})

	t.Run("refund keeps stock", func(t *testing.T) {
		t.Parallel()
		m := newRedemptionMocks()
		m.redemptions.On("GetByID", mock.Anything, int64(5)).Return(pending(entities.RedemptionStatusCompleted), nil)
		m.redemptions.On("UpdateStatus", mock.Anything, int64(5), entities.RedemptionStatusCompleted, entities.RedemptionStatusRefunded, "").
			Return(true, nil)
		m.ledger.On("Credit", mock.Anything, mock.Anything, int64(100)).Return(&entities.Transaction{Amount: 100}, nil)
		m.publisher.On("Publish", mock.Anything).Return(nil)

		result, err := m.service().Transition(context.Background(), 5, entities.RedemptionStatusRefunded, "")

		require.NoError(t, err)
		assert.NotNil(t, result.Refund)
		m.items.AssertNotCalled(t, "RestoreStock", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("processing has no ledger effect", func(t *testing.T) {
		t.Parallel()
		m := newRedemptionMocks()
		m.redemptions.On("GetByID", mock.Anything, int64(5)).Return(pending(entities.RedemptionStatusPending), nil)
		m.redemptions.On("UpdateStatus", mock.Anything, int64(5), entities.RedemptionStatusPending, entities.RedemptionStatusProcessing, "").
			Return(true, nil)
		m.publisher.On("Publish", mock.Anything).Return(nil)

		result, err := m.service().Transition(context.Background(), 5, entities.RedemptionStatusProcessing, "")

		require.NoError(t, err)
		assert.Nil(t, result.Refund)
		m.ledger.AssertNotCalled(t, "Credit", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("inversion is an error", func(t *testing.T) {
		t.Parallel()
		m := newRedemptionMocks()
		m.redemptions.On("GetByID", mock.Anything, int64(5)).Return(pending(entities.RedemptionStatusCompleted), nil)

		_, err := m.service().Transition(context.Background(), 5, entities.RedemptionStatusPending, "")

		var invalid *entities.InvalidTransitionError
		require.ErrorAs(t, err, &invalid)
		assert.Equal(t, entities.RedemptionStatusCompleted, invalid.From)
		m.redemptions.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("concurrent transition wins", func(t *testing.T) {
		t.Parallel()
		m := newRedemptionMocks()
		m.redemptions.On("GetByID", mock.Anything, int64(5)).Return(pending(entities.RedemptionStatusPending), nil).Once()
		m.redemptions.On("GetByID", mock.Anything, int64(5)).Return(pending(entities.RedemptionStatusCancelled), nil).Once()
		m.redemptions.On("UpdateStatus", mock.Anything, int64(5), entities.RedemptionStatusPending, entities.RedemptionStatusCancelled, "").
			Return(false, nil)

		_, err := m.service().Transition(context.Background(), 5, entities.RedemptionStatusCancelled, "")

		var invalid *entities.InvalidTransitionError
		require.ErrorAs(t, err, &invalid)
		assert.Equal(t, entities.RedemptionStatusCancelled, invalid.From)
		m.ledger.AssertNotCalled(t, "Credit", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown redemption", func(t *testing.T) {
		t.Parallel()
		m := newRedemptionMocks()
		m.redemptions.On("GetByID", mock.Anything, int64(77)).Return(nil, nil)

		_, err := m.service().Transition(context.Background(), 77, entities.RedemptionStatusCancelled, "")

		assert.ErrorIs(t, err, entities.ErrRedemptionNotFound)
	})
}
