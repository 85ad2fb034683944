package application

import (
	"context"
	"fmt"
	"strings"

	"channelpoints/domain/entities"
	"channelpoints/domain/interfaces"
	"channelpoints/domain/services"
	"channelpoints/infrastructure/observability"

	log "github.com/sirupsen/logrus"
)

// WebhookConfig holds the ingestion settings of one platform
type WebhookConfig struct {
	Platform entities.Platform
	Secret   string
	Channel  string

	// AllowUnsigned accepts deliveries without a signature when no secret is configured
	AllowUnsigned bool

	ActivityAmount int64

	// Currency credited by this platform's events, empty means the platform currency
	Currency entities.Currency
}

// WebhookDelivery is one raw webhook request
type WebhookDelivery struct {
	Body       []byte
	Signature  string
	DeliveryID string
}

type webhookIngestor struct {
	configs    map[entities.Platform]WebhookConfig
	uowFactory UnitOfWorkFactory
	limiter    interfaces.ActivityLimiter
	metrics    *observability.MetricsProvider
}

// NewWebhookIngestor creates the ingestion pipeline for the configured platforms
func NewWebhookIngestor(
	configs []WebhookConfig,
	uowFactory UnitOfWorkFactory,
	limiter interfaces.ActivityLimiter,
	metrics *observability.MetricsProvider,
) WebhookIngestor {
	byPlatform := make(map[entities.Platform]WebhookConfig, len(configs))
	for _, cfg := range configs {
		if cfg.Secret == "" && cfg.AllowUnsigned {
			log.WithField("platform", cfg.Platform).Warn("Accepting unsigned webhooks, payload authenticity is not checked")
		}
		byPlatform[cfg.Platform] = cfg
	}

	return &webhookIngestor{
		configs:    byPlatform,
		uowFactory: uowFactory,
		limiter:    limiter,
		metrics:    metrics,
	}
}

// Ingest verifies, decodes, scopes and routes one delivery.
// Authentication and decoding failures are results, only internal failures are errors.
func (w *webhookIngestor) Ingest(ctx context.Context, platform entities.Platform, delivery WebhookDelivery) (*entities.IngestResult, error) {
	cfg, ok := w.configs[platform]
	if !ok {
		return nil, entities.ErrUnknownPlatform
	}

	result, err := w.ingest(ctx, cfg, delivery)
	if err != nil {
		w.metrics.RecordWebhookEvent(string(platform), "", "error", "")
		return nil, err
	}

	w.metrics.RecordWebhookEvent(string(platform), string(result.EventKind), string(result.Outcome), string(result.Reason))
	logResult(platform, result)
	return result, nil
}

func (w *webhookIngestor) ingest(ctx context.Context, cfg WebhookConfig, delivery WebhookDelivery) (*entities.IngestResult, error) {
	switch {
	case cfg.Secret != "":
		if !services.VerifySignature(cfg.Secret, delivery.Body, delivery.Signature) {
			return entities.Rejected(entities.ReasonInvalidSignature, "Invalid signature"), nil
		}
	case !cfg.AllowUnsigned:
		return entities.Rejected(entities.ReasonInvalidSignature, "Invalid signature"), nil
	}

	event, err := entities.ParseWebhookEvent(cfg.Platform, delivery.Body)
	if err != nil {
		return entities.Rejected(entities.ReasonMalformedPayload, err.Error()), nil
	}
	if delivery.DeliveryID != "" {
		event.DeliveryID = delivery.DeliveryID
	}

	if cfg.Channel != "" && event.Channel != "" && !strings.EqualFold(cfg.Channel, event.Channel) {
		return entities.Ignored(event.Kind, entities.ReasonWrongChannel), nil
	}
	if event.Kind == entities.EventKindUnknown {
		return entities.Acknowledged(event.Kind, fmt.Sprintf("unhandled event type %q", event.RawType)), nil
	}

	var result *entities.IngestResult
	err = inTransaction(ctx, w.uowFactory, func(uow UnitOfWork) error {
		ledger := newLedger(uow, w.metrics)
		router := services.NewWebhookRouter(
			services.WebhookRouterConfig{
				Platform:       cfg.Platform,
				Currency:       cfg.Currency,
				ActivityAmount: cfg.ActivityAmount,
			},
			newConnections(uow, ledger),
			uow.ConnectionRepository(),
			ledger,
			uow.WebhookDeliveryRepository(),
			w.limiter,
		)

		var err error
		result, err = router.Route(ctx, event)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to apply %s event: %w", event.RawType, err)
	}
	return result, nil
}

func logResult(platform entities.Platform, result *entities.IngestResult) {
	fields := log.Fields{
		"platform":  platform,
		"eventType": result.EventKind,
		"outcome":   result.Outcome,
	}
	if result.Reason != entities.ReasonNone {
		fields["reason"] = result.Reason
	}
	if result.UserID != "" {
		fields["userID"] = result.UserID
	}

	switch result.Outcome {
	case entities.IngestOutcomeApplied:
		fields["currency"] = result.Currency
		fields["oldBalance"] = result.OldBalance
		fields["newBalance"] = result.NewBalance
		log.WithFields(fields).Info("Applied webhook event")
	case entities.IngestOutcomeRejected, entities.IngestOutcomeFailed:
		fields["message"] = result.Message
		log.WithFields(fields).Warn("Webhook event not applied")
	default:
		log.WithFields(fields).Debug("Webhook event skipped")
	}
}
