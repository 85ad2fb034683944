package testhelpers

import (
	"context"

	"channelpoints/domain/entities"
	"channelpoints/domain/interfaces"

	"github.com/stretchr/testify/mock"
)

// MockLedgerService is a mock implementation of LedgerService
type MockLedgerService struct {
	mock.Mock
}

func (m *MockLedgerService) Credit(ctx context.Context, entry interfaces.LedgerEntry, amount int64) (*entities.Transaction, error) {
	args := m.Called(ctx, entry, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Transaction), args.Error(1)
}

func (m *MockLedgerService) Debit(ctx context.Context, entry interfaces.LedgerEntry, amount int64) (*entities.Transaction, error) {
	args := m.Called(ctx, entry, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Transaction), args.Error(1)
}

func (m *MockLedgerService) DebitUpTo(ctx context.Context, entry interfaces.LedgerEntry, amount int64) (*entities.Transaction, error) {
	args := m.Called(ctx, entry, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Transaction), args.Error(1)
}

func (m *MockLedgerService) SetBalance(ctx context.Context, entry interfaces.LedgerEntry, newBalance int64) (*entities.Transaction, error) {
	args := m.Called(ctx, entry, newBalance)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Transaction), args.Error(1)
}

func (m *MockLedgerService) Balances(ctx context.Context, userID string) (entities.Balances, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(entities.Balances), args.Error(1)
}

func (m *MockLedgerService) History(ctx context.Context, userID string, currency entities.Currency, limit int) ([]*entities.Transaction, error) {
	args := m.Called(ctx, userID, currency, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Transaction), args.Error(1)
}

func (m *MockLedgerService) Verify(ctx context.Context, userID string, currency entities.Currency) (*entities.LedgerCheck, error) {
	args := m.Called(ctx, userID, currency)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.LedgerCheck), args.Error(1)
}

// MockConnectionService is a mock implementation of ConnectionService
type MockConnectionService struct {
	mock.Mock
}

func (m *MockConnectionService) Link(ctx context.Context, userID string, platform entities.Platform, identity *entities.PlatformIdentity, token *entities.PlatformToken) (*entities.PlatformConnection, bool, error) {
	args := m.Called(ctx, userID, platform, identity, token)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*entities.PlatformConnection), args.Bool(1), args.Error(2)
}

func (m *MockConnectionService) Unlink(ctx context.Context, userID string, platform entities.Platform) (*entities.Transaction, error) {
	args := m.Called(ctx, userID, platform)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Transaction), args.Error(1)
}

func (m *MockConnectionService) Resolve(ctx context.Context, platform entities.Platform, ref string) (*entities.PlatformConnection, error) {
	args := m.Called(ctx, platform, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.PlatformConnection), args.Error(1)
}

func (m *MockConnectionService) ResolveByUsername(ctx context.Context, platform entities.Platform, username string) (*entities.PlatformConnection, error) {
	args := m.Called(ctx, platform, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.PlatformConnection), args.Error(1)
}
