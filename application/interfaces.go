package application

import (
	"context"

	"channelpoints/domain/entities"
	"channelpoints/domain/events"
	"channelpoints/domain/interfaces"
)

// PlatformOAuthClient talks to one platform's OAuth and identity endpoints
type PlatformOAuthClient interface {
	AuthorizeURL(state string) string
	Exchange(ctx context.Context, code string) (*entities.PlatformToken, error)
	FetchIdentity(ctx context.Context, accessToken string) (*entities.PlatformIdentity, error)
	Refresh(ctx context.Context, refreshToken string) (*entities.PlatformToken, error)
}

// StateCodec signs and verifies the OAuth state parameter
type StateCodec interface {
	Sign(state entities.LinkState) (string, error)
	Parse(token string, platform entities.Platform) (*entities.LinkState, error)
}

// PointsLedger exposes balances and operator adjustments
type PointsLedger interface {
	Balances(ctx context.Context, userID string) (entities.Balances, error)
	History(ctx context.Context, userID string, currency entities.Currency, limit int) ([]*entities.Transaction, error)
	Adjust(ctx context.Context, req AdjustRequest) (*entities.Transaction, error)
	Verify(ctx context.Context, userID string, currency entities.Currency) (*entities.LedgerCheck, error)
}

// ConnectionManager runs the OAuth linking flow and owns linked accounts
type ConnectionManager interface {
	// BeginLink returns the provider URL the browser is sent to
	BeginLink(ctx context.Context, userID string, platform entities.Platform, returnURL string) (string, error)

	// CompleteLink handles the provider redirect. The returned URL is always usable,
	// the error describes what went wrong when the URL carries an error code.
	CompleteLink(ctx context.Context, platform entities.Platform, params CallbackParams) (string, error)

	Unlink(ctx context.Context, userID string, platform entities.Platform) (*entities.Transaction, error)
	Connections(ctx context.Context, userID string) ([]*entities.PlatformConnection, error)
	Resolve(ctx context.Context, platform entities.Platform, ref string) (*entities.PlatformConnection, error)

	// ValidToken returns a usable access token, refreshing an expired one first
	ValidToken(ctx context.Context, userID string, platform entities.Platform) (string, error)
}

// WebhookIngestor authenticates, decodes and applies webhook deliveries
type WebhookIngestor interface {
	Ingest(ctx context.Context, platform entities.Platform, delivery WebhookDelivery) (*entities.IngestResult, error)
}

// RedemptionEngine runs store checkouts and fulfillment
type RedemptionEngine interface {
	Redeem(ctx context.Context, req interfaces.RedeemRequest) (*interfaces.RedemptionReceipt, error)
	Transition(ctx context.Context, redemptionID int64, to entities.RedemptionStatus, notes string) (*interfaces.TransitionResult, error)
	CreateItem(ctx context.Context, item *entities.StoreItem) error
	GetItem(ctx context.Context, itemID int64) (*entities.StoreItem, error)
	ListItems(ctx context.Context, activeOnly bool) ([]*entities.StoreItem, error)
	ListUserRedemptions(ctx context.Context, userID string, limit int) ([]*entities.Redemption, error)
}

// RedemptionNotifier is told about redemptions after they commit
type RedemptionNotifier interface {
	HandleRedemptionCreated(ctx context.Context, event events.Event) error
}
