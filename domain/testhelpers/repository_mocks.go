package testhelpers

import (
	"context"
	"time"

	"channelpoints/domain/entities"
	"channelpoints/domain/events"

	"github.com/stretchr/testify/mock"
)

// MockAccountRepository is a mock implementation of AccountRepository
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) Get(ctx context.Context, userID string, currency entities.Currency) (*entities.Account, error) {
	args := m.Called(ctx, userID, currency)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Account), args.Error(1)
}

func (m *MockAccountRepository) Ensure(ctx context.Context, userID string, currency entities.Currency) (*entities.Account, error) {
	args := m.Called(ctx, userID, currency)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Account), args.Error(1)
}

func (m *MockAccountRepository) ApplyDelta(ctx context.Context, userID string, currency entities.Currency, delta int64) (*entities.BalanceMutation, error) {
	args := m.Called(ctx, userID, currency, delta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.BalanceMutation), args.Error(1)
}

func (m *MockAccountRepository) CompareAndSet(ctx context.Context, userID string, currency entities.Currency, expectedVersion, newBalance int64) (*entities.BalanceMutation, error) {
	args := m.Called(ctx, userID, currency, expectedVersion, newBalance)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.BalanceMutation), args.Error(1)
}

func (m *MockAccountRepository) ListByUser(ctx context.Context, userID string) ([]*entities.Account, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Account), args.Error(1)
}

// MockTransactionRepository is a mock implementation of TransactionRepository
type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Record(ctx context.Context, tx *entities.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockTransactionRepository) ListByAccount(ctx context.Context, userID string, currency entities.Currency, limit int) ([]*entities.Transaction, error) {
	args := m.Called(ctx, userID, currency, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) Reconcile(ctx context.Context, userID string, currency entities.Currency) (*entities.LedgerCheck, error) {
	args := m.Called(ctx, userID, currency)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.LedgerCheck), args.Error(1)
}

// MockConnectionRepository is a mock implementation of ConnectionRepository
type MockConnectionRepository struct {
	mock.Mock
}

func (m *MockConnectionRepository) Upsert(ctx context.Context, conn *entities.PlatformConnection) (bool, error) {
	args := m.Called(ctx, conn)
	return args.Bool(0), args.Error(1)
}

func (m *MockConnectionRepository) Get(ctx context.Context, userID string, platform entities.Platform) (*entities.PlatformConnection, error) {
	args := m.Called(ctx, userID, platform)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.PlatformConnection), args.Error(1)
}

func (m *MockConnectionRepository) ListByUser(ctx context.Context, userID string) ([]*entities.PlatformConnection, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.PlatformConnection), args.Error(1)
}

func (m *MockConnectionRepository) Delete(ctx context.Context, userID string, platform entities.Platform) (bool, error) {
	args := m.Called(ctx, userID, platform)
	return args.Bool(0), args.Error(1)
}

func (m *MockConnectionRepository) FindByPlatformUserID(ctx context.Context, platform entities.Platform, platformUserID string) (*entities.PlatformConnection, error) {
	args := m.Called(ctx, platform, platformUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.PlatformConnection), args.Error(1)
}

func (m *MockConnectionRepository) FindByUsername(ctx context.Context, platform entities.Platform, username string) (*entities.PlatformConnection, error) {
	args := m.Called(ctx, platform, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.PlatformConnection), args.Error(1)
}

func (m *MockConnectionRepository) UpdateTokens(ctx context.Context, userID string, platform entities.Platform, token *entities.PlatformToken) error {
	args := m.Called(ctx, userID, platform, token)
	return args.Error(0)
}

func (m *MockConnectionRepository) TouchSynced(ctx context.Context, userID string, platform entities.Platform, at time.Time) error {
	args := m.Called(ctx, userID, platform, at)
	return args.Error(0)
}

// MockStoreItemRepository is a mock implementation of StoreItemRepository
type MockStoreItemRepository struct {
	mock.Mock
}

func (m *MockStoreItemRepository) Create(ctx context.Context, item *entities.StoreItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockStoreItemRepository) GetByID(ctx context.Context, id int64) (*entities.StoreItem, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.StoreItem), args.Error(1)
}

func (m *MockStoreItemRepository) GetByIDForUpdate(ctx context.Context, id int64) (*entities.StoreItem, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.StoreItem), args.Error(1)
}

func (m *MockStoreItemRepository) List(ctx context.Context, activeOnly bool) ([]*entities.StoreItem, error) {
	args := m.Called(ctx, activeOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.StoreItem), args.Error(1)
}

func (m *MockStoreItemRepository) DecrementStock(ctx context.Context, id int64, quantity int64) (bool, error) {
	args := m.Called(ctx, id, quantity)
	return args.Bool(0), args.Error(1)
}

func (m *MockStoreItemRepository) RestoreStock(ctx context.Context, id int64, quantity int64) error {
	args := m.Called(ctx, id, quantity)
	return args.Error(0)
}

// MockRedemptionRepository is a mock implementation of RedemptionRepository
type MockRedemptionRepository struct {
	mock.Mock
}

func (m *MockRedemptionRepository) Create(ctx context.Context, redemption *entities.Redemption) error {
	args := m.Called(ctx, redemption)
	return args.Error(0)
}

func (m *MockRedemptionRepository) GetByID(ctx context.Context, id int64) (*entities.Redemption, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Redemption), args.Error(1)
}

func (m *MockRedemptionRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*entities.Redemption, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Redemption), args.Error(1)
}

func (m *MockRedemptionRepository) SumActiveQuantity(ctx context.Context, userID string, itemID int64) (int64, error) {
	args := m.Called(ctx, userID, itemID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRedemptionRepository) UpdateStatus(ctx context.Context, id int64, from, to entities.RedemptionStatus, notes string) (bool, error) {
	args := m.Called(ctx, id, from, to, notes)
	return args.Bool(0), args.Error(1)
}

// MockWebhookDeliveryRepository is a mock implementation of WebhookDeliveryRepository
type MockWebhookDeliveryRepository struct {
	mock.Mock
}

func (m *MockWebhookDeliveryRepository) Record(ctx context.Context, platform entities.Platform, deliveryID, eventType string) (bool, error) {
	args := m.Called(ctx, platform, deliveryID, eventType)
	return args.Bool(0), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher for testing
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) error {
	args := m.Called(event)
	return args.Error(0)
}

// MockActivityLimiter is a mock implementation of ActivityLimiter
type MockActivityLimiter struct {
	mock.Mock
}

func (m *MockActivityLimiter) Allow(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}
