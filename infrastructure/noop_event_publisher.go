package infrastructure

import (
	"channelpoints/domain/events"
)

// NoopEventPublisher drops every event.
// Used by maintenance commands where nothing should react to changes.
type NoopEventPublisher struct{}

// NewNoopEventPublisher creates a new no-op event publisher
func NewNoopEventPublisher() *NoopEventPublisher {
	return &NoopEventPublisher{}
}

// Publish does nothing with the event
func (n *NoopEventPublisher) Publish(event events.Event) error {
	return nil
}
