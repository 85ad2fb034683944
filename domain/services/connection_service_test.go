package services

import (
	"context"
	"testing"

	"channelpoints/domain/entities"
	"channelpoints/domain/events"
	"channelpoints/domain/interfaces"
	"channelpoints/domain/testhelpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestConnectionService_Link(t *testing.T) {
	t.Parallel()

	identity := &entities.PlatformIdentity{ID: "k-123", Username: "StreamFan"}
	token := &entities.PlatformToken{AccessToken: "access", RefreshToken: "refresh"}

	t.Run("first link seeds account", func(t *testing.T) {
		t.Parallel()
		connRepo := new(testhelpers.MockConnectionRepository)
		accountRepo := new(testhelpers.MockAccountRepository)
		ledger := new(testhelpers.MockLedgerService)
		publisher := new(testhelpers.MockEventPublisher)

		connRepo.On("Upsert", mock.Anything, mock.MatchedBy(func(c *entities.PlatformConnection) bool {
			return c.UserID == "user-1" && c.PlatformUserID == "k-123" && c.AccessToken == "access"
		})).Return(true, nil)
		accountRepo.On("Ensure", mock.Anything, "user-1", entities.CurrencyKick).
			Return(&entities.Account{UserID: "user-1", Currency: entities.CurrencyKick}, nil)
		publisher.On("Publish", mock.MatchedBy(func(e events.PlatformLinkedEvent) bool {
			return !e.Relinked && e.PlatformUsername == "StreamFan"
		})).Return(nil)

		svc := NewConnectionService(connRepo, accountRepo, ledger, publisher)
		conn, relinked, err := svc.Link(context.Background(), "user-1", entities.PlatformKick, identity, token)

		require.NoError(t, err)
		assert.False(t, relinked)
		assert.Equal(t, "StreamFan", conn.PlatformUsername)
		connRepo.AssertExpectations(t)
		accountRepo.AssertExpectations(t)
		publisher.AssertExpectations(t)
		ledger.AssertNotCalled(t, "Credit", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("relink reports overwrite", func(t *testing.T) {
		t.Parallel()
		connRepo := new(testhelpers.MockConnectionRepository)
		accountRepo := new(testhelpers.MockAccountRepository)
		publisher := new(testhelpers.MockEventPublisher)

		connRepo.On("Upsert", mock.Anything, mock.Anything).Return(false, nil)
		accountRepo.On("Ensure", mock.Anything, "user-1", entities.CurrencyKick).
			Return(&entities.Account{Balance: 900}, nil)
		publisher.On("Publish", mock.Anything).Return(nil)

		svc := NewConnectionService(connRepo, accountRepo, new(testhelpers.MockLedgerService), publisher)
		_, relinked, err := svc.Link(context.Background(), "user-1", entities.PlatformKick, identity, token)

		require.NoError(t, err)
		assert.True(t, relinked)
	})

	t.Run("external account owned by another user", func(t *testing.T) {
		t.Parallel()
		connRepo := new(testhelpers.MockConnectionRepository)
		accountRepo := new(testhelpers.MockAccountRepository)

		connRepo.On("Upsert", mock.Anything, mock.Anything).Return(false, entities.ErrAlreadyLinked)

		svc := NewConnectionService(connRepo, accountRepo, new(testhelpers.MockLedgerService), new(testhelpers.MockEventPublisher))
		_, _, err := svc.Link(context.Background(), "user-2", entities.PlatformKick, identity, token)

		assert.ErrorIs(t, err, entities.ErrAlreadyLinked)
		accountRepo.AssertNotCalled(t, "Ensure", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("missing identity", func(t *testing.T) {
		t.Parallel()
		svc := NewConnectionService(new(testhelpers.MockConnectionRepository), new(testhelpers.MockAccountRepository), new(testhelpers.MockLedgerService), new(testhelpers.MockEventPublisher))

		_, _, err := svc.Link(context.Background(), "user-1", entities.PlatformTwitch, &entities.PlatformIdentity{}, token)

		var validation *entities.ValidationError
		assert.ErrorAs(t, err, &validation)
	})
}

func TestConnectionService_Unlink(t *testing.T) {
	t.Parallel()

	t.Run("zeroes platform balance", func(t *testing.T) {
		t.Parallel()
		connRepo := new(testhelpers.MockConnectionRepository)
		ledger := new(testhelpers.MockLedgerService)
		publisher := new(testhelpers.MockEventPublisher)

		connRepo.On("Delete", mock.Anything, "user-1", entities.PlatformTwitch).Return(true, nil)
		ledger.On("SetBalance", mock.Anything, mock.MatchedBy(func(e interfaces.LedgerEntry) bool {
			return e.Currency == entities.CurrencyTwitch &&
				e.Type == entities.TransactionTypeAdminAdjustment &&
				e.Description == "connection removed"
		}), int64(0)).Return(&entities.Transaction{Amount: -320, BalanceBefore: 320}, nil)
		publisher.On("Publish", events.PlatformUnlinkedEvent{
			UserID:          "user-1",
			Platform:        entities.PlatformTwitch,
			ForfeitedPoints: 320,
		}).Return(nil)

		svc := NewConnectionService(connRepo, new(testhelpers.MockAccountRepository), ledger, publisher)
		tx, err := svc.Unlink(context.Background(), "user-1", entities.PlatformTwitch)

		require.NoError(t, err)
		assert.Equal(t, int64(-320), tx.Amount)
		ledger.AssertExpectations(t)
		publisher.AssertExpectations(t)
	})

	t.Run("not linked", func(t *testing.T) {
		t.Parallel()
		connRepo := new(testhelpers.MockConnectionRepository)
		ledger := new(testhelpers.MockLedgerService)
		connRepo.On("Delete", mock.Anything, "user-1", entities.PlatformKick).Return(false, nil)

		svc := NewConnectionService(connRepo, new(testhelpers.MockAccountRepository), ledger, new(testhelpers.MockEventPublisher))
		_, err := svc.Unlink(context.Background(), "user-1", entities.PlatformKick)

		assert.ErrorIs(t, err, entities.ErrConnectionNotFound)
		ledger.AssertNotCalled(t, "SetBalance", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestConnectionService_Resolve(t *testing.T) {
	t.Parallel()

	linked := &entities.PlatformConnection{UserID: "user-1", Platform: entities.PlatformKick, PlatformUserID: "k-1", PlatformUsername: "Viewer"}

	tests := []struct {
		name  string
		ref   string
		setup func(*testhelpers.MockConnectionRepository)
		want  *entities.PlatformConnection
	}{
		{
			name: "matches external id first",
			ref:  "k-1",
			setup: func(r *testhelpers.MockConnectionRepository) {
				r.On("FindByPlatformUserID", mock.Anything, entities.PlatformKick, "k-1").Return(linked, nil)
			},
			want: linked,
		},
		{
			name: "falls back to username",
			ref:  "viewer",
			setup: func(r *testhelpers.MockConnectionRepository) {
				r.On("FindByPlatformUserID", mock.Anything, entities.PlatformKick, "viewer").Return(nil, nil)
				r.On("FindByUsername", mock.Anything, entities.PlatformKick, "viewer").Return(linked, nil)
			},
			want: linked,
		},
		{
			name: "unlinked viewer is not an error",
			ref:  "stranger",
			setup: func(r *testhelpers.MockConnectionRepository) {
				r.On("FindByPlatformUserID", mock.Anything, entities.PlatformKick, "stranger").Return(nil, nil)
				r.On("FindByUsername", mock.Anything, entities.PlatformKick, "stranger").Return(nil, nil)
			},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			connRepo := new(testhelpers.MockConnectionRepository)
			tt.setup(connRepo)

			svc := NewConnectionService(connRepo, new(testhelpers.MockAccountRepository), new(testhelpers.MockLedgerService), new(testhelpers.MockEventPublisher))
			got, err := svc.Resolve(context.Background(), entities.PlatformKick, tt.ref)

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			connRepo.AssertExpectations(t)
		})
	}
}
