package application_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"channelpoints/application"
	"channelpoints/domain/entities"
	"channelpoints/domain/events"
	"channelpoints/domain/services"
	"channelpoints/infrastructure"
	"channelpoints/infrastructure/ratelimit"
	"channelpoints/repository/testutil"

	"github.com/stretchr/testify/require"
)

const (
	kickSecret   = "kick-secret"
	twitchSecret = "twitch-secret"
)

// harness wires the application layer against a real database
type harness struct {
	db          *testutil.TestDatabase
	factory     *infrastructure.UnitOfWorkFactory
	ledger      application.PointsLedger
	redemptions application.RedemptionEngine
	ingestor    application.WebhookIngestor

	mu        sync.Mutex
	published []events.Event
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{db: testutil.SetupTestDatabase(t)}

	publisher := infrastructure.NewLocalEventPublisher()
	h.factory = infrastructure.NewUnitOfWorkFactory(h.db.DB, publisher)
	for _, eventType := range []events.EventType{
		events.EventTypeBalanceChange,
		events.EventTypePlatformLinked,
		events.EventTypePlatformUnlinked,
		events.EventTypeRedemptionCreated,
		events.EventTypeRedemptionStatusChanged,
	} {
		h.factory.RegisterLocalHandler(eventType, func(ctx context.Context, event events.Event) error {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.published = append(h.published, event)
			return nil
		})
	}

	h.ledger = application.NewPointsLedger(h.factory, nil)
	h.redemptions = application.NewRedemptionEngine(h.factory, nil)
	h.ingestor = application.NewWebhookIngestor([]application.WebhookConfig{
		{
			Platform:       entities.PlatformKick,
			Secret:         kickSecret,
			Channel:        "mychannel",
			ActivityAmount: 5,
		},
		{
			// Twitch events drive the site balance in these tests
			Platform:       entities.PlatformTwitch,
			Secret:         twitchSecret,
			ActivityAmount: 5,
			Currency:       entities.CurrencySite,
		},
	}, h.factory, ratelimit.NewMemoryLimiter(time.Minute), nil)

	return h
}

// link stores a platform connection the way a completed OAuth flow does
func (h *harness) link(t *testing.T, userID string, platform entities.Platform, platformUserID, username string) {
	t.Helper()
	ctx := context.Background()

	uow := h.factory.Create()
	require.NoError(t, uow.Begin(ctx))
	defer uow.Rollback()

	ledger := services.NewLedgerService(uow.AccountRepository(), uow.TransactionRepository(), uow.EventBus())
	connections := services.NewConnectionService(uow.ConnectionRepository(), uow.AccountRepository(), ledger, uow.EventBus())
	_, _, err := connections.Link(ctx, userID, platform,
		&entities.PlatformIdentity{ID: platformUserID, Username: username},
		&entities.PlatformToken{AccessToken: "access-" + platformUserID},
	)
	require.NoError(t, err)
	require.NoError(t, uow.Commit())
}

func (h *harness) setBalance(t *testing.T, userID string, currency entities.Currency, amount int64) {
	t.Helper()
	_, err := h.ledger.Adjust(context.Background(), application.AdjustRequest{
		UserID:    userID,
		Currency:  currency,
		Operation: application.AdjustSet,
		Amount:    amount,
	})
	require.NoError(t, err)
}

func (h *harness) balance(t *testing.T, userID string, currency entities.Currency) int64 {
	t.Helper()
	balances, err := h.ledger.Balances(context.Background(), userID)
	require.NoError(t, err)
	return balances[currency]
}

func (h *harness) history(t *testing.T, userID string, currency entities.Currency) []*entities.Transaction {
	t.Helper()
	history, err := h.ledger.History(context.Background(), userID, currency, 500)
	require.NoError(t, err)
	return history
}

// requireConsistent checks balance == sum(amounts) and the balance chain
func (h *harness) requireConsistent(t *testing.T, userID string, currency entities.Currency) {
	t.Helper()
	check, err := h.ledger.Verify(context.Background(), userID, currency)
	require.NoError(t, err)
	require.True(t, check.Consistent(), "ledger check failed: %+v", check)
}

func (h *harness) createItem(t *testing.T, item *entities.StoreItem) *entities.StoreItem {
	t.Helper()
	require.NoError(t, h.redemptions.CreateItem(context.Background(), item))
	return item
}

func (h *harness) eventsOfType(eventType events.EventType) []events.Event {
	h.mu.Lock()
	defer h.mu.Unlock()

	var matched []events.Event
	for _, e := range h.published {
		if e.Type() == eventType {
			matched = append(matched, e)
		}
	}
	return matched
}

func signed(secret, body string) application.WebhookDelivery {
	return application.WebhookDelivery{
		Body:      []byte(body),
		Signature: services.SignPayload(secret, []byte(body)),
	}
}
