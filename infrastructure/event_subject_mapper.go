package infrastructure

import (
	"fmt"

	"channelpoints/domain/events"
)

// EventSubjectMapper maps domain events onto NATS subjects
type EventSubjectMapper struct{}

// NewEventSubjectMapper creates a new event subject mapper
func NewEventSubjectMapper() *EventSubjectMapper {
	return &EventSubjectMapper{}
}

// MapEventToSubject converts a domain event to its NATS subject
func (m *EventSubjectMapper) MapEventToSubject(event events.Event) string {
	switch event.Type() {
	case events.EventTypeBalanceChange:
		return "ledger.balance.changed"
	case events.EventTypePlatformLinked:
		return "connections.linked"
	case events.EventTypePlatformUnlinked:
		return "connections.unlinked"
	case events.EventTypeRedemptionCreated:
		return "store.redemption.created"
	case events.EventTypeRedemptionStatusChanged:
		return "store.redemption.status_changed"
	default:
		return fmt.Sprintf("unknown.%s", event.Type())
	}
}

// GetAllSubjects returns all subjects this service publishes to
func (m *EventSubjectMapper) GetAllSubjects() []string {
	return []string{
		"ledger.balance.changed",
		"connections.linked",
		"connections.unlinked",
		"store.redemption.created",
		"store.redemption.status_changed",
	}
}
