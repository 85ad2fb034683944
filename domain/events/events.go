package events

import "channelpoints/domain/entities"

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeBalanceChange           EventType = "balance_change"
	EventTypePlatformLinked          EventType = "platform_linked"
	EventTypePlatformUnlinked        EventType = "platform_unlinked"
	EventTypeRedemptionCreated       EventType = "redemption_created"
	EventTypeRedemptionStatusChanged EventType = "redemption_status_changed"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// BalanceChangeEvent is published after a ledger mutation commits
type BalanceChangeEvent struct {
	UserID          string                   `json:"user_id"`
	Currency        entities.Currency        `json:"currency"`
	OldBalance      int64                    `json:"old_balance"`
	NewBalance      int64                    `json:"new_balance"`
	ChangeAmount    int64                    `json:"change_amount"`
	TransactionType entities.TransactionType `json:"transaction_type"`
	TransactionID   int64                    `json:"transaction_id"`
}

func (e BalanceChangeEvent) Type() EventType {
	return EventTypeBalanceChange
}

// PlatformLinkedEvent is published when a user links or re-links an external account
type PlatformLinkedEvent struct {
	UserID           string            `json:"user_id"`
	Platform         entities.Platform `json:"platform"`
	PlatformUserID   string            `json:"platform_user_id"`
	PlatformUsername string            `json:"platform_username"`
	Relinked         bool              `json:"relinked"`
}

func (e PlatformLinkedEvent) Type() EventType {
	return EventTypePlatformLinked
}

// PlatformUnlinkedEvent is published when a user removes an external account
type PlatformUnlinkedEvent struct {
	UserID          string            `json:"user_id"`
	Platform        entities.Platform `json:"platform"`
	ForfeitedPoints int64             `json:"forfeited_points"`
}

func (e PlatformUnlinkedEvent) Type() EventType {
	return EventTypePlatformUnlinked
}

// RedemptionCreatedEvent is published when a store checkout succeeds
type RedemptionCreatedEvent struct {
	RedemptionID int64             `json:"redemption_id"`
	UserID       string            `json:"user_id"`
	ItemID       int64             `json:"item_id"`
	ItemName     string            `json:"item_name"`
	Currency     entities.Currency `json:"currency"`
	PointsSpent  int64             `json:"points_spent"`
	Quantity     int64             `json:"quantity"`
}

func (e RedemptionCreatedEvent) Type() EventType {
	return EventTypeRedemptionCreated
}

// RedemptionStatusChangedEvent is published for every redemption status transition
type RedemptionStatusChangedEvent struct {
	RedemptionID int64                     `json:"redemption_id"`
	UserID       string                    `json:"user_id"`
	OldStatus    entities.RedemptionStatus `json:"old_status"`
	NewStatus    entities.RedemptionStatus `json:"new_status"`
	Refunded     int64                     `json:"refunded"`
}

func (e RedemptionStatusChangedEvent) Type() EventType {
	return EventTypeRedemptionStatusChanged
}
