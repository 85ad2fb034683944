package interfaces

import (
	"context"
	"time"

	"channelpoints/domain/entities"
)

// LedgerEntry describes the ledger side of a balance mutation
type LedgerEntry struct {
	UserID      string
	Currency    entities.Currency
	Type        entities.TransactionType
	Description string
	Metadata    map[string]any
}

// LedgerService owns balance mutation and the transaction log for one unit of work
type LedgerService interface {
	// Credit adds amount to the balance, creating the account if needed
	Credit(ctx context.Context, entry LedgerEntry, amount int64) (*entities.Transaction, error)

	// Debit subtracts amount, failing with *entities.InsufficientBalanceError when the balance is too low
	Debit(ctx context.Context, entry LedgerEntry, amount int64) (*entities.Transaction, error)

	// DebitUpTo subtracts at most amount, flooring the balance at zero.
	// Returns a nil transaction when the balance was already zero.
	DebitUpTo(ctx context.Context, entry LedgerEntry, amount int64) (*entities.Transaction, error)

	// SetBalance applies the signed delta that brings the balance to newBalance.
	// Returns a nil transaction when the balance already matches.
	SetBalance(ctx context.Context, entry LedgerEntry, newBalance int64) (*entities.Transaction, error)

	// Balances returns every currency balance of the user, missing accounts as zero
	Balances(ctx context.Context, userID string) (entities.Balances, error)

	// History returns the newest transactions of one account
	History(ctx context.Context, userID string, currency entities.Currency, limit int) ([]*entities.Transaction, error)

	// Verify reconciles the account against its transaction log
	Verify(ctx context.Context, userID string, currency entities.Currency) (*entities.LedgerCheck, error)
}

// ConnectionService contains linking logic that runs inside a unit of work
type ConnectionService interface {
	// Link stores the verified identity and tokens and seeds the platform account.
	// relinked is true when an existing connection was overwritten.
	Link(ctx context.Context, userID string, platform entities.Platform, identity *entities.PlatformIdentity, token *entities.PlatformToken) (conn *entities.PlatformConnection, relinked bool, err error)

	// Unlink deletes the connection and zeroes the platform balance.
	// Returns the compensating transaction, nil when the balance was already zero.
	Unlink(ctx context.Context, userID string, platform entities.Platform) (*entities.Transaction, error)

	// Resolve matches the external id first, then the username case-insensitively.
	// Returns nil without error when nobody linked that account.
	Resolve(ctx context.Context, platform entities.Platform, ref string) (*entities.PlatformConnection, error)

	// ResolveByUsername matches only the username, case-insensitively, or nil
	ResolveByUsername(ctx context.Context, platform entities.Platform, username string) (*entities.PlatformConnection, error)
}

// RedeemRequest is a store checkout
type RedeemRequest struct {
	UserID   string
	ItemID   int64
	Currency entities.Currency
	Quantity int64
}

// RedemptionReceipt is the result of a successful checkout
type RedemptionReceipt struct {
	Redemption  *entities.Redemption
	Item        *entities.StoreItem
	Transaction *entities.Transaction
}

// TransitionResult is the result of a redemption status change
type TransitionResult struct {
	Redemption *entities.Redemption
	OldStatus  entities.RedemptionStatus
	Refund     *entities.Transaction
}

// RedemptionService contains checkout and fulfillment logic that runs inside a unit of work
type RedemptionService interface {
	// Redeem validates the checkout, takes stock, debits the user and records a pending redemption
	Redeem(ctx context.Context, req RedeemRequest, now time.Time) (*RedemptionReceipt, error)

	// Transition moves a redemption along the status machine, refunding when required
	Transition(ctx context.Context, redemptionID int64, to entities.RedemptionStatus, notes string) (*TransitionResult, error)
}

// WebhookRouter applies a decoded webhook event to the ledger
type WebhookRouter interface {
	Route(ctx context.Context, event *entities.WebhookEvent) (*entities.IngestResult, error)
}
