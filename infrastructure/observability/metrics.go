package observability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"channelpoints/config"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// MetricsProvider manages OpenTelemetry metrics for the ledger service.
// A nil *MetricsProvider is valid and records nothing.
type MetricsProvider struct {
	config        *config.Config
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter
	initialized   bool
	enabled       bool
	mu            sync.RWMutex

	balanceTransactionsCounter metric.Int64Counter
	casRetriesCounter          metric.Int64Counter
	webhookEventsCounter       metric.Int64Counter
	redemptionsCounter         metric.Int64Counter
	oauthExchangesCounter      metric.Int64Counter
	eventsPublishedCounter     metric.Int64Counter
	httpRequestDurationHist    metric.Float64Histogram
}

// NewMetricsProvider creates a new metrics provider
func NewMetricsProvider(cfg *config.Config) *MetricsProvider {
	return &MetricsProvider{
		config: cfg,
	}
}

// Initialize sets up the OpenTelemetry meter provider and instruments
func (mp *MetricsProvider) Initialize(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.initialized {
		return nil
	}
	mp.initialized = true

	if !mp.config.OTelEnabled {
		log.Info("OpenTelemetry metrics disabled")
		return nil
	}

	res, err := newResource(ctx, mp.config)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	var exporter sdkmetric.Exporter
	switch mp.config.OTelExporterType {
	case "console":
		exporter, err = stdoutmetric.New()
		if err != nil {
			return fmt.Errorf("failed to create console exporter: %w", err)
		}
		log.Info("Using console metric exporter")

	case "otlp":
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		exporter, err = otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(mp.config.OTelOTLPEndpoint),
			otlpmetricgrpc.WithInsecure(),
		)
		if err != nil {
			return fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		log.WithField("endpoint", mp.config.OTelOTLPEndpoint).Info("Using OTLP metric exporter")

	case "none":
		log.Info("Metrics export disabled (exporter_type='none')")
		return nil

	default:
		return fmt.Errorf("unknown exporter type: %s", mp.config.OTelExporterType)
	}

	mp.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(
				exporter,
				sdkmetric.WithInterval(time.Duration(mp.config.OTelExportIntervalMillis)*time.Millisecond),
			),
		),
	)
	otel.SetMeterProvider(mp.meterProvider)
	mp.meter = mp.meterProvider.Meter(MetricPrefix)

	if err := mp.createInstruments(); err != nil {
		return fmt.Errorf("failed to create instruments: %w", err)
	}

	mp.enabled = true
	log.Info("Metrics provider initialized")
	return nil
}

// newResource describes this service. Attributes carry no schema URL so they
// never conflict with the one the SDK's telemetry detector reports.
func newResource(ctx context.Context, cfg *config.Config) (*resource.Resource, error) {
	return resource.New(ctx,
		resource.WithTelemetrySDK(),
		resource.WithAttributes(
			semconv.ServiceName(cfg.OTelServiceName),
			attribute.String("environment", cfg.Environment),
		),
	)
}

func (mp *MetricsProvider) createInstruments() error {
	counters := []struct {
		target      *metric.Int64Counter
		name        string
		description string
	}{
		{&mp.balanceTransactionsCounter, BalanceTransactionsTotal, "Total number of ledger transactions"},
		{&mp.casRetriesCounter, LedgerCASRetriesTotal, "Balance updates retried after a concurrent write"},
		{&mp.webhookEventsCounter, WebhookEventsTotal, "Webhook deliveries by event type and outcome"},
		{&mp.redemptionsCounter, RedemptionsTotal, "Redemptions created or moved to a status"},
		{&mp.oauthExchangesCounter, OAuthExchangesTotal, "OAuth callback attempts by platform and outcome"},
		{&mp.eventsPublishedCounter, EventsPublishedTotal, "Domain events published to NATS"},
	}

	for _, c := range counters {
		counter, err := mp.meter.Int64Counter(c.name, metric.WithDescription(c.description), metric.WithUnit("1"))
		if err != nil {
			return fmt.Errorf("failed to create %s counter: %w", c.name, err)
		}
		*c.target = counter
	}

	var err error
	mp.httpRequestDurationHist, err = mp.meter.Float64Histogram(
		HTTPRequestDuration,
		metric.WithDescription("Duration of HTTP requests in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		return fmt.Errorf("failed to create HTTP request duration histogram: %w", err)
	}

	return nil
}

// Shutdown flushes and stops the meter provider
func (mp *MetricsProvider) Shutdown(ctx context.Context) error {
	if mp == nil {
		return nil
	}
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.meterProvider != nil {
		return mp.meterProvider.Shutdown(ctx)
	}
	return nil
}

// RecordBalanceTransaction records a ledger transaction
func (mp *MetricsProvider) RecordBalanceTransaction(transactionType, currency string) {
	if !mp.isEnabled() {
		return
	}
	mp.balanceTransactionsCounter.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String(LabelType, transactionType),
			attribute.String(LabelCurrency, currency),
		),
	)
}

// RecordCASRetry records a balance update that lost a race and was retried
func (mp *MetricsProvider) RecordCASRetry(operation string) {
	if !mp.isEnabled() {
		return
	}
	mp.casRetriesCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelOperation, operation)),
	)
}

// RecordWebhookEvent records the outcome of one webhook delivery
func (mp *MetricsProvider) RecordWebhookEvent(platform, eventType, outcome, reason string) {
	if !mp.isEnabled() {
		return
	}
	mp.webhookEventsCounter.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String(LabelPlatform, platform),
			attribute.String(LabelEventType, eventType),
			attribute.String(LabelOutcome, outcome),
			attribute.String(LabelReason, reason),
		),
	)
}

// RecordRedemption records a redemption entering status
func (mp *MetricsProvider) RecordRedemption(status string) {
	if !mp.isEnabled() {
		return
	}
	mp.redemptionsCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelStatus, status)),
	)
}

// RecordOAuthExchange records the result of an OAuth callback
func (mp *MetricsProvider) RecordOAuthExchange(platform, outcome string) {
	if !mp.isEnabled() {
		return
	}
	mp.oauthExchangesCounter.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String(LabelPlatform, platform),
			attribute.String(LabelOutcome, outcome),
		),
	)
}

// RecordEventPublished records a domain event sent to NATS
func (mp *MetricsProvider) RecordEventPublished(eventType string) {
	if !mp.isEnabled() {
		return
	}
	mp.eventsPublishedCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelEventType, eventType)),
	)
}

// RecordHTTPRequest records the duration of one HTTP request
func (mp *MetricsProvider) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if !mp.isEnabled() {
		return
	}
	mp.httpRequestDurationHist.Record(context.Background(), duration.Seconds(),
		metric.WithAttributes(
			attribute.String(LabelMethod, method),
			attribute.String(LabelRoute, route),
			attribute.Int(LabelStatus, status),
		),
	)
}

func (mp *MetricsProvider) isEnabled() bool {
	if mp == nil {
		return false
	}
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return mp.enabled
}
