package entities

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// EventKind is the closed set of webhook event types the ledger understands
type EventKind string

const (
	EventKindPointsUpdate        EventKind = "points.update"
	EventKindPointsRedemption    EventKind = "points.redemption"
	EventKindRewardRedemption    EventKind = "channel.reward.redemption"
	EventKindSubscriptionNew     EventKind = "subscription.new"
	EventKindSubscriptionRenewal EventKind = "subscription.renewal"
	EventKindSubscriptionGift    EventKind = "subscription.gift"
	EventKindChatMessage         EventKind = "chat.message"
	EventKindFollow              EventKind = "channel.follow"
	EventKindAdminPointsUpdate   EventKind = "admin.points.update"
	EventKindUnknown             EventKind = "unknown"
)

var eventKindsByType = map[string]EventKind{
	"points.update":                    EventKindPointsUpdate,
	"points.redemption":                EventKindPointsRedemption,
	"channel.reward.redemption":        EventKindRewardRedemption,
	"reward.redemption":                EventKindRewardRedemption,
	"channel.points.reward.redemption": EventKindRewardRedemption,
	"subscription.new":                 EventKindSubscriptionNew,
	"channel.subscription.new":         EventKindSubscriptionNew,
	"subscription.renewal":             EventKindSubscriptionRenewal,
	"channel.subscription.renewal":     EventKindSubscriptionRenewal,
	"subscription.gift":                EventKindSubscriptionGift,
	"channel.subscription.gifts":       EventKindSubscriptionGift,
	"chat.message":                     EventKindChatMessage,
	"chat.message.sent":                EventKindChatMessage,
	"channel.follow":                   EventKindFollow,
	"channel.followed":                 EventKindFollow,
	"admin.points.update":              EventKindAdminPointsUpdate,
}

// ClassifyEventType maps a raw event_type onto its EventKind.
// Unrecognized types map to EventKindUnknown.
func ClassifyEventType(raw string) EventKind {
	if kind, ok := eventKindsByType[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return kind
	}
	return EventKindUnknown
}

// IsPointsSync returns true for events that carry a points delta or absolute balance
func (k EventKind) IsPointsSync() bool {
	return k == EventKindPointsUpdate || k == EventKindPointsRedemption || k == EventKindRewardRedemption
}

// IsSpend returns true for events where the viewer spent points on the platform
func (k EventKind) IsSpend() bool {
	return k == EventKindPointsRedemption || k == EventKindRewardRedemption
}

// IsSubscription returns true for subscription events
func (k EventKind) IsSubscription() bool {
	return k == EventKindSubscriptionNew || k == EventKindSubscriptionRenewal || k == EventKindSubscriptionGift
}

// IsEngagement returns true for high-volume activity events
func (k EventKind) IsEngagement() bool {
	return k == EventKindChatMessage || k == EventKindFollow
}

// IsAdmin returns true for operator-triggered adjustments
func (k EventKind) IsAdmin() bool {
	return k == EventKindAdminPointsUpdate
}

// AdminOperation is the action of an operator points adjustment
type AdminOperation string

const (
	AdminOperationSet      AdminOperation = "set"
	AdminOperationAdd      AdminOperation = "add"
	AdminOperationSubtract AdminOperation = "subtract"
)

// IsValid returns true if the operation is known
func (o AdminOperation) IsValid() bool {
	return o == AdminOperationSet || o == AdminOperationAdd || o == AdminOperationSubtract
}

// WebhookEvent is a decoded webhook payload
type WebhookEvent struct {
	Kind     EventKind
	RawType  string
	Platform Platform

	// DeliveryID identifies the delivery for deduplication, empty when the sender gives none
	DeliveryID string

	PlatformUserID string
	Username       string
	Channel        string

	Points        *int64
	PointsBalance *int64
	Tier          int

	// Admin adjustments
	AdminUsername string
	Operation     AdminOperation
}

// HasAbsoluteBalance returns true if the event reports the full balance rather than a delta
func (e *WebhookEvent) HasAbsoluteBalance() bool {
	return e.PointsBalance != nil
}

// ExternalRef returns the identifier used to resolve the viewer's connection
func (e *WebhookEvent) ExternalRef() string {
	if e.PlatformUserID != "" {
		return e.PlatformUserID
	}
	return e.Username
}

type webhookEnvelope struct {
	EventType string          `json:"event_type"`
	ID        json.RawMessage `json:"id"`
	Data      json.RawMessage `json:"data"`
}

// ParseWebhookEvent decodes a `{event_type, data}` payload sent by platform.
// Malformed JSON and missing required fields return a ValidationError.
func ParseWebhookEvent(platform Platform, body []byte) (*WebhookEvent, error) {
	var env webhookEnvelope
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()
	if err := decoder.Decode(&env); err != nil {
		return nil, NewValidationError("body", "malformed JSON payload")
	}
	if strings.TrimSpace(env.EventType) == "" {
		return nil, NewValidationError("event_type", "event_type is required")
	}

	fields := map[string]json.RawMessage{}
	if len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, &fields); err != nil {
			return nil, NewValidationError("data", "data must be an object")
		}
	}
	data := webhookData(fields)

	event := &WebhookEvent{
		Kind:           ClassifyEventType(env.EventType),
		RawType:        env.EventType,
		Platform:       platform,
		DeliveryID:     data.str("event_id", "message_id"),
		PlatformUserID: data.str("platform_user_id", "user_id"),
		Username:       data.str("username", "user_login", "user_name"),
		Channel:        data.str("channel", "channel_slug", "broadcaster_user_login"),
		Operation:      AdminOperation(strings.ToLower(data.str("operation"))),
		AdminUsername:  data.str(string(platform)+"_username", "username"),
	}
	if event.DeliveryID == "" {
		event.DeliveryID = rawString(env.ID)
	}

	var err error
	if event.Points, err = data.integer("points"); err != nil {
		return nil, NewValidationError("data.points", "points must be an integer")
	}
	if event.PointsBalance, err = data.integer("points_balance"); err != nil {
		return nil, NewValidationError("data.points_balance", "points_balance must be an integer")
	}
	tier, err := data.integer("tier")
	if err != nil {
		return nil, NewValidationError("data.tier", "tier must be an integer")
	}
	if tier != nil {
		event.Tier = normalizeTier(*tier)
	}

	if err := event.validate(); err != nil {
		return nil, err
	}
	return event, nil
}

func (e *WebhookEvent) validate() error {
	switch {
	case e.Kind.IsPointsSync():
		if e.ExternalRef() == "" {
			return NewValidationError("data.platform_user_id", "platform_user_id or username is required")
		}
		if e.Points == nil && e.PointsBalance == nil {
			return NewValidationError("data.points", "points or points_balance is required")
		}
		if e.PointsBalance != nil && *e.PointsBalance < 0 {
			return NewValidationError("data.points_balance", "points_balance cannot be negative")
		}
		// A delta must stay negatable so spends can be applied as debits
		if e.Points != nil && *e.Points == math.MinInt64 {
			return NewValidationError("data.points", "points is out of range")
		}
	case e.Kind.IsSubscription(), e.Kind.IsEngagement():
		if e.ExternalRef() == "" {
			return NewValidationError("data.platform_user_id", "platform_user_id or username is required")
		}
	case e.Kind.IsAdmin():
		if e.AdminUsername == "" {
			return NewValidationError("data."+string(e.Platform)+"_username", "username is required")
		}
		if !e.Operation.IsValid() {
			return NewValidationError("data.operation", "operation must be set, add or subtract")
		}
		if e.Points == nil || *e.Points < 0 {
			return NewValidationError("data.points", "points must be a non-negative integer")
		}
	}
	return nil
}

// normalizeTier accepts both 1/2/3 and the 1000/2000/3000 tier notation
func normalizeTier(tier int64) int {
	if tier >= 1000 {
		tier /= 1000
	}
	return int(tier)
}

type webhookData map[string]json.RawMessage

// str returns the first present key as a string, accepting JSON strings and numbers
func (d webhookData) str(keys ...string) string {
	for _, key := range keys {
		if raw, ok := d[key]; ok {
			if s := rawString(raw); s != "" {
				return s
			}
		}
	}
	return ""
}

// integer returns key as an integer, accepting numbers and numeric strings
func (d webhookData) integer(key string) (*int64, error) {
	raw, ok := d[key]
	if !ok || string(raw) == "null" {
		return nil, nil
	}
	s := rawString(raw)
	if s == "" {
		return nil, strconv.ErrSyntax
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || f != float64(int64(f)) {
			return nil, err
		}
		v = int64(f)
	}
	return &v, nil
}

func rawString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// IngestOutcome is the top-level result of processing one webhook delivery
type IngestOutcome string

const (
	IngestOutcomeApplied      IngestOutcome = "applied"
	IngestOutcomeIgnored      IngestOutcome = "ignored"
	IngestOutcomeRejected     IngestOutcome = "rejected"
	IngestOutcomeAcknowledged IngestOutcome = "acknowledged"
	IngestOutcomeFailed       IngestOutcome = "failed"
)

// IngestReason explains an outcome that did not mutate the ledger
type IngestReason string

const (
	ReasonNone              IngestReason = ""
	ReasonInvalidSignature  IngestReason = "invalid_signature"
	ReasonMalformedPayload  IngestReason = "malformed_payload"
	ReasonWrongChannel      IngestReason = "wrong_channel"
	ReasonUserNotLinked     IngestReason = "user_not_linked"
	ReasonDuplicateDelivery IngestReason = "duplicate_delivery"
	ReasonRateLimited       IngestReason = "rate_limited"
	ReasonNoChange          IngestReason = "no_change"
	ReasonUnhandled         IngestReason = "unhandled"
	ReasonUserNotFound      IngestReason = "user_not_found"
)

// IngestResult describes what a webhook delivery did
type IngestResult struct {
	Outcome    IngestOutcome
	Reason     IngestReason
	EventKind  EventKind
	UserID     string
	Currency   Currency
	OldBalance int64
	NewBalance int64
	Message    string
}

// Mutated returns true if the delivery changed a balance
func (r *IngestResult) Mutated() bool {
	return r.Outcome == IngestOutcomeApplied && r.OldBalance != r.NewBalance
}

// Applied builds the result of a delivery that changed a balance
func Applied(kind EventKind, userID string, currency Currency, oldBalance, newBalance int64) *IngestResult {
	return &IngestResult{
		Outcome:    IngestOutcomeApplied,
		EventKind:  kind,
		UserID:     userID,
		Currency:   currency,
		OldBalance: oldBalance,
		NewBalance: newBalance,
	}
}

// Ignored builds the result of a delivery that was accepted but skipped
func Ignored(kind EventKind, reason IngestReason) *IngestResult {
	return &IngestResult{Outcome: IngestOutcomeIgnored, Reason: reason, EventKind: kind}
}

// Rejected builds the result of a delivery that failed authentication or decoding
func Rejected(reason IngestReason, message string) *IngestResult {
	return &IngestResult{Outcome: IngestOutcomeRejected, Reason: reason, Message: message}
}

// Acknowledged builds the result of a well-formed delivery with an unhandled type
func Acknowledged(kind EventKind, message string) *IngestResult {
	return &IngestResult{Outcome: IngestOutcomeAcknowledged, Reason: ReasonUnhandled, EventKind: kind, Message: message}
}

// Failed builds the result of an operator event that named no known user
func Failed(kind EventKind, reason IngestReason, message string) *IngestResult {
	return &IngestResult{Outcome: IngestOutcomeFailed, Reason: reason, EventKind: kind, Message: message}
}
