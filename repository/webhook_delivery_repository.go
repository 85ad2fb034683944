package repository

import (
	"context"
	"fmt"

	"channelpoints/database"
	"channelpoints/domain/entities"
)

// WebhookDeliveryRepository implements the WebhookDeliveryRepository interface
type WebhookDeliveryRepository struct {
	q Queryable
}

// NewWebhookDeliveryRepository creates a new webhook delivery repository
func NewWebhookDeliveryRepository(db *database.DB) *WebhookDeliveryRepository {
	return &WebhookDeliveryRepository{q: db.Pool}
}

func newWebhookDeliveryRepository(tx Queryable) *WebhookDeliveryRepository {
	return &WebhookDeliveryRepository{q: tx}
}

// Record stores the delivery id and reports whether it was new
func (r *WebhookDeliveryRepository) Record(ctx context.Context, platform entities.Platform, deliveryID, eventType string) (bool, error) {
	query := `
		INSERT INTO webhook_deliveries (platform, delivery_id, event_type)
		VALUES ($1, $2, $3)
		ON CONFLICT (platform, delivery_id) DO NOTHING
	`
	result, err := r.q.Exec(ctx, query, platform, deliveryID, eventType)
	if err != nil {
		return false, fmt.Errorf("failed to record %s delivery %s: %w", platform, deliveryID, err)
	}
	return result.RowsAffected() == 1, nil
}
