package api

import (
	"context"

	"channelpoints/application"
	"channelpoints/domain/entities"
	"channelpoints/domain/interfaces"

	"github.com/stretchr/testify/mock"
)

type mockLedger struct {
	mock.Mock
}

func (m *mockLedger) Balances(ctx context.Context, userID string) (entities.Balances, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(entities.Balances), args.Error(1)
}

func (m *mockLedger) History(ctx context.Context, userID string, currency entities.Currency, limit int) ([]*entities.Transaction, error) {
	args := m.Called(ctx, userID, currency, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Transaction), args.Error(1)
}

func (m *mockLedger) Adjust(ctx context.Context, req application.AdjustRequest) (*entities.Transaction, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Transaction), args.Error(1)
}

func (m *mockLedger) Verify(ctx context.Context, userID string, currency entities.Currency) (*entities.LedgerCheck, error) {
	args := m.Called(ctx, userID, currency)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.LedgerCheck), args.Error(1)
}

type mockConnections struct {
	mock.Mock
}

func (m *mockConnections) BeginLink(ctx context.Context, userID string, platform entities.Platform, returnURL string) (string, error) {
	args := m.Called(ctx, userID, platform, returnURL)
	return args.String(0), args.Error(1)
}

func (m *mockConnections) CompleteLink(ctx context.Context, platform entities.Platform, params application.CallbackParams) (string, error) {
	args := m.Called(ctx, platform, params)
	return args.String(0), args.Error(1)
}

func (m *mockConnections) Unlink(ctx context.Context, userID string, platform entities.Platform) (*entities.Transaction, error) {
	args := m.Called(ctx, userID, platform)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Transaction), args.Error(1)
}

func (m *mockConnections) Connections(ctx context.Context, userID string) ([]*entities.PlatformConnection, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.PlatformConnection), args.Error(1)
}

func (m *mockConnections) Resolve(ctx context.Context, platform entities.Platform, ref string) (*entities.PlatformConnection, error) {
	args := m.Called(ctx, platform, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.PlatformConnection), args.Error(1)
}

func (m *mockConnections) ValidToken(ctx context.Context, userID string, platform entities.Platform) (string, error) {
	args := m.Called(ctx, userID, platform)
	return args.String(0), args.Error(1)
}

type mockWebhooks struct {
	mock.Mock
}

func (m *mockWebhooks) Ingest(ctx context.Context, platform entities.Platform, delivery application.WebhookDelivery) (*entities.IngestResult, error) {
	args := m.Called(ctx, platform, delivery)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.IngestResult), args.Error(1)
}

type mockRedemptions struct {
	mock.Mock
}

func (m *mockRedemptions) Redeem(ctx context.Context, req interfaces.RedeemRequest) (*interfaces.RedemptionReceipt, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.RedemptionReceipt), args.Error(1)
}

func (m *mockRedemptions) Transition(ctx context.Context, redemptionID int64, to entities.RedemptionStatus, notes string) (*interfaces.TransitionResult, error) {
	args := m.Called(ctx, redemptionID, to, notes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.TransitionResult), args.Error(1)
}

func (m *mockRedemptions) CreateItem(ctx context.Context, item *entities.StoreItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *mockRedemptions) GetItem(ctx context.Context, itemID int64) (*entities.StoreItem, error) {
	args := m.Called(ctx, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.StoreItem), args.Error(1)
}

func (m *mockRedemptions) ListItems(ctx context.Context, activeOnly bool) ([]*entities.StoreItem, error) {
	args := m.Called(ctx, activeOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.StoreItem), args.Error(1)
}

func (m *mockRedemptions) ListUserRedemptions(ctx context.Context, userID string, limit int) ([]*entities.Redemption, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Redemption), args.Error(1)
}
