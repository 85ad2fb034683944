package interfaces

import (
	"context"
	"time"

	"channelpoints/domain/entities"
	"channelpoints/domain/events"
)

// AccountRepository defines the interface for per-currency balance rows.
// Mutations are conditional single-row updates so concurrent writers never lose an update.
type AccountRepository interface {
	// Get returns the account, or nil if it does not exist
	Get(ctx context.Context, userID string, currency entities.Currency) (*entities.Account, error)

	// Ensure creates the account at balance 0 if absent and returns it
	Ensure(ctx context.Context, userID string, currency entities.Currency) (*entities.Account, error)

	// ApplyDelta adds delta to the balance unless the result would be negative.
	// Returns nil when no row matched (account missing or insufficient balance).
	ApplyDelta(ctx context.Context, userID string, currency entities.Currency, delta int64) (*entities.BalanceMutation, error)

	// CompareAndSet writes newBalance only if the account is still at expectedVersion.
	// Returns nil when the version moved on.
	CompareAndSet(ctx context.Context, userID string, currency entities.Currency, expectedVersion, newBalance int64) (*entities.BalanceMutation, error)

	// ListByUser returns every account of the user
	ListByUser(ctx context.Context, userID string) ([]*entities.Account, error)
}

// TransactionRepository defines the interface for the append-only ledger log
type TransactionRepository interface {
	// Record appends a transaction and fills in its ID and CreatedAt
	Record(ctx context.Context, tx *entities.Transaction) error

	// ListByAccount returns the newest transactions first
	ListByAccount(ctx context.Context, userID string, currency entities.Currency, limit int) ([]*entities.Transaction, error)

	// Reconcile compares the account balance with the sum and chain of its log
	Reconcile(ctx context.Context, userID string, currency entities.Currency) (*entities.LedgerCheck, error)
}

// ConnectionRepository defines the interface for linked platform accounts
type ConnectionRepository interface {
	// Upsert inserts or overwrites the connection keyed by (user_id, platform).
	// created is false when an existing connection was overwritten.
	// Returns entities.ErrAlreadyLinked if the external account belongs to another user.
	Upsert(ctx context.Context, conn *entities.PlatformConnection) (created bool, err error)

	// Get returns the user's connection for platform, or nil
	Get(ctx context.Context, userID string, platform entities.Platform) (*entities.PlatformConnection, error)

	// ListByUser returns all connections of the user
	ListByUser(ctx context.Context, userID string) ([]*entities.PlatformConnection, error)

	// Delete removes the connection and reports whether one existed
	Delete(ctx context.Context, userID string, platform entities.Platform) (bool, error)

	// FindByPlatformUserID looks up a connection by the external account id, or nil
	FindByPlatformUserID(ctx context.Context, platform entities.Platform, platformUserID string) (*entities.PlatformConnection, error)

	// FindByUsername looks up a connection by external username, case-insensitively, or nil
	FindByUsername(ctx context.Context, platform entities.Platform, username string) (*entities.PlatformConnection, error)

	// UpdateTokens stores a refreshed token pair
	UpdateTokens(ctx context.Context, userID string, platform entities.Platform, token *entities.PlatformToken) error

	// TouchSynced records the time of the latest webhook-driven sync
	TouchSynced(ctx context.Context, userID string, platform entities.Platform, at time.Time) error
}

// StoreItemRepository defines the interface for store items and their stock
type StoreItemRepository interface {
	// Create inserts a new item and fills in its ID
	Create(ctx context.Context, item *entities.StoreItem) error

	// GetByID returns the item, or nil
	GetByID(ctx context.Context, id int64) (*entities.StoreItem, error)

	// GetByIDForUpdate returns the item with its row locked for the current transaction, or nil
	GetByIDForUpdate(ctx context.Context, id int64) (*entities.StoreItem, error)

	// List returns items ordered by id
	List(ctx context.Context, activeOnly bool) ([]*entities.StoreItem, error)

	// DecrementStock removes quantity units if that many remain.
	// Items with unlimited stock always succeed. Returns false when stock ran out.
	DecrementStock(ctx context.Context, id int64, quantity int64) (bool, error)

	// RestoreStock returns quantity units to a tracked stock
	RestoreStock(ctx context.Context, id int64, quantity int64) error
}

// RedemptionRepository defines the interface for store redemptions
type RedemptionRepository interface {
	// Create inserts a redemption and fills in its ID and timestamps
	Create(ctx context.Context, redemption *entities.Redemption) error

	// GetByID returns the redemption, or nil
	GetByID(ctx context.Context, id int64) (*entities.Redemption, error)

	// ListByUser returns the user's redemptions, newest first
	ListByUser(ctx context.Context, userID string, limit int) ([]*entities.Redemption, error)

	// SumActiveQuantity returns units of the item the user holds in non-cancelled, non-refunded redemptions
	SumActiveQuantity(ctx context.Context, userID string, itemID int64) (int64, error)

	// UpdateStatus moves the redemption from one status to another.
	// Returns false when the redemption was no longer in status from.
	UpdateStatus(ctx context.Context, id int64, from, to entities.RedemptionStatus, notes string) (bool, error)
}

// WebhookDeliveryRepository defines the interface for webhook replay protection
type WebhookDeliveryRepository interface {
	// Record stores the delivery id and returns false if it was already seen
	Record(ctx context.Context, platform entities.Platform, deliveryID, eventType string) (bool, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event) error
}

// TransactionalEventPublisher buffers events until the surrounding transaction finishes
type TransactionalEventPublisher interface {
	EventPublisher
	Flush(ctx context.Context) error
	Discard()
}

// ActivityLimiter bounds how often a user is rewarded for high-volume activity
type ActivityLimiter interface {
	// Allow returns true if key has not been rewarded within the current window
	Allow(ctx context.Context, key string) (bool, error)
}
