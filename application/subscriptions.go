package application

import (
	"context"

	"channelpoints/domain/entities"
	"channelpoints/domain/events"
	"channelpoints/infrastructure/observability"
)

// EventSubscriber registers in-process handlers for committed events
type EventSubscriber interface {
	RegisterLocalHandler(eventType events.EventType, handler func(context.Context, events.Event) error)
}

// RegisterApplicationSubscriptions wires metrics and notifications to committed events.
// notifier may be nil.
func RegisterApplicationSubscriptions(subscriber EventSubscriber, metrics *observability.MetricsProvider, notifier RedemptionNotifier) {
	subscriber.RegisterLocalHandler(events.EventTypeBalanceChange, func(ctx context.Context, event events.Event) error {
		if e, ok := event.(events.BalanceChangeEvent); ok {
			metrics.RecordBalanceTransaction(string(e.TransactionType), string(e.Currency))
		}
		return nil
	})

	subscriber.RegisterLocalHandler(events.EventTypeRedemptionCreated, func(ctx context.Context, event events.Event) error {
		metrics.RecordRedemption(string(entities.RedemptionStatusPending))
		if notifier == nil {
			return nil
		}
		return notifier.HandleRedemptionCreated(ctx, event)
	})

	subscriber.RegisterLocalHandler(events.EventTypeRedemptionStatusChanged, func(ctx context.Context, event events.Event) error {
		if e, ok := event.(events.RedemptionStatusChangedEvent); ok {
			metrics.RecordRedemption(string(e.NewStatus))
		}
		return nil
	})
}
