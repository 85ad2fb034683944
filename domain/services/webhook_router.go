package services

import (
	"context"
	"fmt"
	"time"

	"channelpoints/domain/entities"
	"channelpoints/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// SubscriptionBonus returns the points credited for a subscription of the given tier
func SubscriptionBonus(tier int) int64 {
	switch tier {
	case 3:
		return 500
	case 2:
		return 300
	default:
		return 100
	}
}

// WebhookRouterConfig is the per-platform routing configuration
type WebhookRouterConfig struct {
	Platform       entities.Platform
	Currency       entities.Currency
	ActivityAmount int64
}

type webhookRouter struct {
	cfg         WebhookRouterConfig
	connections interfaces.ConnectionService
	connRepo    interfaces.ConnectionRepository
	ledger      interfaces.LedgerService
	deliveries  interfaces.WebhookDeliveryRepository
	limiter     interfaces.ActivityLimiter
	now         func() time.Time
}

// NewWebhookRouter creates a router for one platform's events
func NewWebhookRouter(
	cfg WebhookRouterConfig,
	connections interfaces.ConnectionService,
	connRepo interfaces.ConnectionRepository,
	ledger interfaces.LedgerService,
	deliveries interfaces.WebhookDeliveryRepository,
	limiter interfaces.ActivityLimiter,
) interfaces.WebhookRouter {
	if cfg.Currency == "" {
		cfg.Currency = cfg.Platform.Currency()
	}
	return &webhookRouter{
		cfg:         cfg,
		connections: connections,
		connRepo:    connRepo,
		ledger:      ledger,
		deliveries:  deliveries,
		limiter:     limiter,
		now:         time.Now,
	}
}

// Route applies the event to the ledger. Every kind is handled explicitly and
// anything unknown is acknowledged without side effects.
func (r *webhookRouter) Route(ctx context.Context, event *entities.WebhookEvent) (*entities.IngestResult, error) {
	switch event.Kind {
	case entities.EventKindPointsUpdate,
		entities.EventKindPointsRedemption,
		entities.EventKindRewardRedemption:
		return r.routePoints(ctx, event)
	case entities.EventKindSubscriptionNew,
		entities.EventKindSubscriptionRenewal,
		entities.EventKindSubscriptionGift:
		return r.routeSubscription(ctx, event)
	case entities.EventKindChatMessage,
		entities.EventKindFollow:
		return r.routeActivity(ctx, event)
	case entities.EventKindAdminPointsUpdate:
		return r.routeAdmin(ctx, event)
	default:
		return entities.Acknowledged(event.Kind, fmt.Sprintf("event type %q is not handled", event.RawType)), nil
	}
}

func (r *webhookRouter) routePoints(ctx context.Context, event *entities.WebhookEvent) (*entities.IngestResult, error) {
	conn, err := r.resolveViewer(ctx, event)
	if err != nil {
		return nil, err
	}
	if conn == nil {
		return entities.Ignored(event.Kind, entities.ReasonUserNotLinked), nil
	}

	entry := r.entry(conn, event, entities.TransactionTypeWebhookSync, fmt.Sprintf("%s points sync", r.cfg.Platform.Title()))

	var tx *entities.Transaction
	if event.HasAbsoluteBalance() {
		// Absolute balances are idempotent on their own
		tx, err = r.ledger.SetBalance(ctx, entry, *event.PointsBalance)
	} else {
		duplicate, derr := r.isDuplicate(ctx, event)
		if derr != nil {
			return nil, derr
		}
		if duplicate {
			return entities.Ignored(event.Kind, entities.ReasonDuplicateDelivery), nil
		}

		points := *event.Points
		switch {
		case event.Kind.IsSpend():
			if points < 0 {
				points = -points
			}
			if points > 0 {
				tx, err = r.ledger.DebitUpTo(ctx, entry, points)
			}
		case points > 0:
			tx, err = r.ledger.Credit(ctx, entry, points)
		case points < 0:
			tx, err = r.ledger.DebitUpTo(ctx, entry, -points)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to sync points: %w", err)
	}

	if err := r.connRepo.TouchSynced(ctx, conn.UserID, r.cfg.Platform, r.now().UTC()); err != nil {
		return nil, fmt.Errorf("failed to record sync time: %w", err)
	}

	return r.result(event, conn, tx), nil
}

func (r *webhookRouter) routeSubscription(ctx context.Context, event *entities.WebhookEvent) (*entities.IngestResult, error) {
	conn, err := r.resolveViewer(ctx, event)
	if err != nil {
		return nil, err
	}
	if conn == nil {
		return entities.Ignored(event.Kind, entities.ReasonUserNotLinked), nil
	}

	duplicate, err := r.isDuplicate(ctx, event)
	if err != nil {
		return nil, err
	}
	if duplicate {
		return entities.Ignored(event.Kind, entities.ReasonDuplicateDelivery), nil
	}

	bonus := SubscriptionBonus(event.Tier)
	entry := r.entry(conn, event, entities.TransactionTypeSubscriptionBonus, fmt.Sprintf("%s subscription bonus (tier %d)", r.cfg.Platform.Title(), max(event.Tier, 1)))
	entry.Metadata["tier"] = event.Tier

	tx, err := r.ledger.Credit(ctx, entry, bonus)
	if err != nil {
		return nil, fmt.Errorf("failed to credit subscription bonus: %w", err)
	}
	return r.result(event, conn, tx), nil
}

func (r *webhookRouter) routeActivity(ctx context.Context, event *entities.WebhookEvent) (*entities.IngestResult, error) {
	conn, err := r.resolveViewer(ctx, event)
	if err != nil {
		return nil, err
	}
	if conn == nil {
		return entities.Ignored(event.Kind, entities.ReasonUserNotLinked), nil
	}
	if r.cfg.ActivityAmount <= 0 {
		return entities.Ignored(event.Kind, entities.ReasonNoChange), nil
	}

	// Replays must not spend the activity window
	duplicate, err := r.isDuplicate(ctx, event)
	if err != nil {
		return nil, err
	}
	if duplicate {
		return entities.Ignored(event.Kind, entities.ReasonDuplicateDelivery), nil
	}

	allowed, err := r.limiter.Allow(ctx, fmt.Sprintf("%s:%s", r.cfg.Platform, conn.UserID))
	if err != nil {
		// Fail closed so a limiter outage cannot flood the ledger
		log.WithError(err).WithField("user_id", conn.UserID).Warn("Activity limiter unavailable, skipping bonus")
		return entities.Ignored(event.Kind, entities.ReasonRateLimited), nil
	}
	if !allowed {
		return entities.Ignored(event.Kind, entities.ReasonRateLimited), nil
	}

	entry := r.entry(conn, event, entities.TransactionTypeActivityBonus, fmt.Sprintf("%s activity bonus", r.cfg.Platform.Title()))
	tx, err := r.ledger.Credit(ctx, entry, r.cfg.ActivityAmount)
	if err != nil {
		return nil, fmt.Errorf("failed to credit activity bonus: %w", err)
	}
	return r.result(event, conn, tx), nil
}

// routeAdmin handles operator adjustments. An unknown username is a failure, not an ignore.
func (r *webhookRouter) routeAdmin(ctx context.Context, event *entities.WebhookEvent) (*entities.IngestResult, error) {
	conn, err := r.connections.ResolveByUsername(ctx, r.cfg.Platform, event.AdminUsername)
	if err != nil {
		return nil, err
	}
	if conn == nil {
		return entities.Failed(event.Kind, entities.ReasonUserNotFound,
			fmt.Sprintf("no user has linked %s account %q", r.cfg.Platform.Title(), event.AdminUsername)), nil
	}

	entry := r.entry(conn, event, entities.TransactionTypeAdminAdjustment, fmt.Sprintf("Admin %s via %s webhook", event.Operation, r.cfg.Platform.Title()))
	entry.Metadata["operation"] = string(event.Operation)

	points := *event.Points
	var tx *entities.Transaction
	if event.Operation == entities.AdminOperationSet {
		tx, err = r.ledger.SetBalance(ctx, entry, points)
	} else {
		duplicate, derr := r.isDuplicate(ctx, event)
		if derr != nil {
			return nil, derr
		}
		if duplicate {
			return entities.Ignored(event.Kind, entities.ReasonDuplicateDelivery), nil
		}
		if points > 0 {
			if event.Operation == entities.AdminOperationAdd {
				tx, err = r.ledger.Credit(ctx, entry, points)
			} else {
				tx, err = r.ledger.DebitUpTo(ctx, entry, points)
			}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to apply admin adjustment: %w", err)
	}

	return r.result(event, conn, tx), nil
}

// resolveViewer tries the external id first, then the username
func (r *webhookRouter) resolveViewer(ctx context.Context, event *entities.WebhookEvent) (*entities.PlatformConnection, error) {
	if event.PlatformUserID != "" {
		conn, err := r.connections.Resolve(ctx, r.cfg.Platform, event.PlatformUserID)
		if err != nil || conn != nil {
			return conn, err
		}
	}
	if event.Username != "" && event.Username != event.PlatformUserID {
		return r.connections.ResolveByUsername(ctx, r.cfg.Platform, event.Username)
	}
	return nil, nil
}

// isDuplicate records the delivery id and reports whether it was seen before.
// Events without an id cannot be deduplicated.
func (r *webhookRouter) isDuplicate(ctx context.Context, event *entities.WebhookEvent) (bool, error) {
	if event.DeliveryID == "" {
		return false, nil
	}
	inserted, err := r.deliveries.Record(ctx, r.cfg.Platform, event.DeliveryID, event.RawType)
	if err != nil {
		return false, fmt.Errorf("failed to record webhook delivery: %w", err)
	}
	if !inserted {
		log.WithFields(log.Fields{
			"platform":    r.cfg.Platform,
			"delivery_id": event.DeliveryID,
			"event_type":  event.RawType,
		}).Info("Skipping duplicate webhook delivery")
	}
	return !inserted, nil
}

func (r *webhookRouter) entry(conn *entities.PlatformConnection, event *entities.WebhookEvent, txType entities.TransactionType, description string) interfaces.LedgerEntry {
	metadata := map[string]any{
		"platform":   string(r.cfg.Platform),
		"event_type": event.RawType,
	}
	if event.DeliveryID != "" {
		metadata["delivery_id"] = event.DeliveryID
	}
	return interfaces.LedgerEntry{
		UserID:      conn.UserID,
		Currency:    r.cfg.Currency,
		Type:        txType,
		Description: description,
		Metadata:    metadata,
	}
}

func (r *webhookRouter) result(event *entities.WebhookEvent, conn *entities.PlatformConnection, tx *entities.Transaction) *entities.IngestResult {
	if tx == nil {
		result := entities.Ignored(event.Kind, entities.ReasonNoChange)
		result.UserID = conn.UserID
		result.Currency = r.cfg.Currency
		return result
	}
	return entities.Applied(event.Kind, conn.UserID, tx.Currency, tx.BalanceBefore, tx.BalanceAfter)
}
