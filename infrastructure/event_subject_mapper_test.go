package infrastructure

import (
	"testing"

	"channelpoints/domain/events"

	"github.com/stretchr/testify/assert"
)

type unmappedEvent struct{}

func (unmappedEvent) Type() events.EventType { return "mystery" }

func TestEventSubjectMapper(t *testing.T) {
	mapper := NewEventSubjectMapper()

	tests := []struct {
		event   events.Event
		subject string
	}{
		{events.BalanceChangeEvent{}, "ledger.balance.changed"},
		{events.PlatformLinkedEvent{}, "connections.linked"},
		{events.PlatformUnlinkedEvent{}, "connections.unlinked"},
		{events.RedemptionCreatedEvent{}, "store.redemption.created"},
		{events.RedemptionStatusChangedEvent{}, "store.redemption.status_changed"},
		{unmappedEvent{}, "unknown.mystery"},
	}

	for _, tt := range tests {
		t.Run(string(tt.event.Type()), func(t *testing.T) {
			assert.Equal(t, tt.subject, mapper.MapEventToSubject(tt.event))
		})
	}

	// Every known subject belongs to the stream
	for _, tt := range tests[:5] {
		assert.Contains(t, mapper.GetAllSubjects(), tt.subject)
	}
}
