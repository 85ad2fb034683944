package observability

// Metric name prefixes
const (
	MetricPrefix = "points_ledger"
)

// Metric names
const (
	BalanceTransactionsTotal = MetricPrefix + ".balance.transactions_total"
	LedgerCASRetriesTotal    = MetricPrefix + ".ledger.cas_retries_total"
	WebhookEventsTotal       = MetricPrefix + ".webhook.events_total"
	RedemptionsTotal         = MetricPrefix + ".redemptions.total"
	OAuthExchangesTotal      = MetricPrefix + ".oauth.exchanges_total"
	EventsPublishedTotal     = MetricPrefix + ".nats.messages_published_total"
	HTTPRequestDuration      = MetricPrefix + ".http.request_duration"
)

// Label keys
const (
	LabelType      = "type"
	LabelCurrency  = "currency"
	LabelEventType = "event_type"
	LabelOutcome   = "outcome"
	LabelReason    = "reason"
	LabelStatus    = "status"
	LabelPlatform  = "platform"
	LabelOperation = "operation"
	LabelMethod    = "method"
	LabelRoute     = "route"
)

// OAuth exchange outcomes
const (
	OAuthOutcomeLinked   = "linked"
	OAuthOutcomeRelinked = "relinked"
	OAuthOutcomeFailed   = "failed"
)
