package entities

import (
	"time"
)

// RedemptionStatus represents the fulfillment state of a redemption
type RedemptionStatus string

const (
	RedemptionStatusPending    RedemptionStatus = "pending"
	RedemptionStatusProcessing RedemptionStatus = "processing"
	RedemptionStatusCompleted  RedemptionStatus = "completed"
	RedemptionStatusCancelled  RedemptionStatus = "cancelled"
	RedemptionStatusRefunded   RedemptionStatus = "refunded"
)

var redemptionTransitions = map[RedemptionStatus][]RedemptionStatus{
	RedemptionStatusPending:    {RedemptionStatusProcessing, RedemptionStatusCancelled},
	RedemptionStatusProcessing: {RedemptionStatusCompleted, RedemptionStatusCancelled},
	RedemptionStatusCompleted:  {RedemptionStatusRefunded},
}

// IsValid returns true if the status is known
func (s RedemptionStatus) IsValid() bool {
	switch s {
	case RedemptionStatusPending,
		RedemptionStatusProcessing,
		RedemptionStatusCompleted,
		RedemptionStatusCancelled,
		RedemptionStatusRefunded:
		return true
	}
	return false
}

// IsTerminal returns true if no further transitions are possible
func (s RedemptionStatus) IsTerminal() bool {
	return s == RedemptionStatusCancelled || s == RedemptionStatusRefunded
}

// CanTransitionTo returns true if next is a forward edge from s
func (s RedemptionStatus) CanTransitionTo(next RedemptionStatus) bool {
	for _, allowed := range redemptionTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// RefundsPoints returns true if entering this status credits the points back
func (s RedemptionStatus) RefundsPoints() bool {
	return s == RedemptionStatusCancelled || s == RedemptionStatusRefunded
}

// RestoresStock returns true if entering this status returns the units to stock
func (s RedemptionStatus) RestoresStock() bool {
	return s == RedemptionStatusCancelled
}

// CountsTowardLimit returns true if a redemption in this status uses up the per-user limit
func (s RedemptionStatus) CountsTowardLimit() bool {
	return !s.IsTerminal()
}

// String returns the string representation of the status
func (s RedemptionStatus) String() string {
	return string(s)
}

// Redemption is a user's paid claim on a store item
type Redemption struct {
	ID            int64            `db:"id"`
	UserID        string           `db:"user_id"`
	ItemID        int64            `db:"item_id"`
	Currency      Currency         `db:"currency"`
	PointsSpent   int64            `db:"points_spent"`
	Quantity      int64            `db:"quantity"`
	Status        RedemptionStatus `db:"status"`
	TransactionID *int64           `db:"transaction_id"`
	Notes         string           `db:"notes"`
	CreatedAt     time.Time        `db:"created_at"`
	UpdatedAt     time.Time        `db:"updated_at"`
}

// IsPending returns true if the redemption awaits fulfillment
func (r *Redemption) IsPending() bool {
	return r.Status == RedemptionStatusPending
}
