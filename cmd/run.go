package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"channelpoints/api"
	"channelpoints/application"
	"channelpoints/config"
	"channelpoints/database"
	"channelpoints/domain/entities"
	"channelpoints/domain/interfaces"
	"channelpoints/infrastructure"
	"channelpoints/infrastructure/notify"
	"channelpoints/infrastructure/oauth"
	"channelpoints/infrastructure/observability"
	"channelpoints/infrastructure/ratelimit"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
)

// ConfigureLogging applies the configured level and output format
func ConfigureLogging(cfg *config.Config) {
	log.SetOutput(os.Stdout)
	if cfg.IsProduction() {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithField("level", cfg.LogLevel).Warn("Unknown log level, using info")
		level = log.InfoLevel
	}
	log.SetLevel(level)
}

// Run initializes and starts the application
func Run(ctx context.Context) error {
	cfg := config.Get()
	ConfigureLogging(cfg)

	log.WithField("environment", cfg.Environment).Info("Starting points ledger...")

	// Initialize metrics
	log.Info("Initializing metrics...")
	metrics := observability.NewMetricsProvider(cfg)
	if err := metrics.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}

	// Initialize database connection
	log.Info("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL(), cfg.DBMaxConns)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Info("Database connection established successfully")

	// Initialize event publisher
	log.Info("Initializing event publisher...")
	eventPublisher, natsClient, err := newEventPublisher(ctx, cfg, metrics)
	if err != nil {
		db.Close()
		return err
	}

	uowFactory := infrastructure.NewUnitOfWorkFactory(db, eventPublisher)

	var notifier application.RedemptionNotifier
	if cfg.DiscordWebhookURL != "" {
		discord, err := notify.NewDiscordNotifier(cfg.DiscordWebhookURL)
		if err != nil {
			db.Close()
			return fmt.Errorf("failed to initialize Discord notifier: %w", err)
		}
		notifier = discord
		log.Info("Redemption alerts enabled")
	}
	application.RegisterApplicationSubscriptions(uowFactory, metrics, notifier)

	// Initialize activity limiter
	log.Info("Initializing activity limiter...")
	limiter, redisClient, err := newActivityLimiter(ctx, cfg)
	if err != nil {
		db.Close()
		return err
	}

	webhookConfigs, err := buildWebhookConfigs(cfg)
	if err != nil {
		db.Close()
		return err
	}

	// Initialize services
	log.Info("Initializing services...")
	services := api.Services{
		Ledger: application.NewPointsLedger(uowFactory, metrics),
		Connections: application.NewConnectionManager(
			uowFactory,
			buildOAuthClients(cfg),
			oauth.NewStateSigner(cfg.StateSigningKey, cfg.StateTTL),
			application.LinkConfig{
				DefaultReturnURL:   cfg.DefaultReturnURL,
				AllowedReturnHosts: cfg.ReturnURLAllowedHosts,
			},
			metrics,
		),
		Webhooks:    application.NewWebhookIngestor(webhookConfigs, uowFactory, limiter, metrics),
		Redemptions: application.NewRedemptionEngine(uowFactory, metrics),
	}

	server := api.NewServer(api.Config{
		Addr:           cfg.HTTPAddr,
		AllowedOrigins: cfg.AllowedOrigins,
		AdminAPIKey:    cfg.AdminAPIKey,
	}, services, metrics)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()
	log.WithField("addr", cfg.HTTPAddr).Infof("Points ledger is running in %s mode", cfg.Environment)

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			runErr = fmt.Errorf("http server failed: %w", err)
		}
	}

	log.Info("Shutting down points ledger...")

	// Give in-flight requests time to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Error shutting down HTTP server")
	}
	if natsClient != nil {
		if err := natsClient.Close(); err != nil {
			log.WithError(err).Error("Error closing NATS connection")
		}
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.WithError(err).Error("Error closing Redis connection")
		}
	}
	if err := metrics.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Error shutting down metrics")
	}
	db.Close()

	log.Info("Shutdown complete")
	return runErr
}

// newEventPublisher publishes to NATS JetStream when servers are configured,
// otherwise events only reach in-process handlers
func newEventPublisher(ctx context.Context, cfg *config.Config, metrics *observability.MetricsProvider) (interfaces.EventPublisher, *infrastructure.NATSClient, error) {
	if cfg.NATSServers == "" {
		log.Info("NATS_SERVERS not set, using in-process event delivery")
		return infrastructure.NewLocalEventPublisher(), nil, nil
	}

	client := infrastructure.NewNATSClient(cfg.NATSServers, "points-ledger")
	if err := client.Connect(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	publisher := infrastructure.NewNATSEventPublisher(client, infrastructure.NewEventSubjectMapper(), metrics)
	if err := publisher.EnsureDomainEventStream(client); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to ensure event stream: %w", err)
	}
	log.Info("NATS event publisher initialized successfully")
	return publisher, client, nil
}

func newActivityLimiter(ctx context.Context, cfg *config.Config) (interfaces.ActivityLimiter, *redis.Client, error) {
	if cfg.RedisURL == "" {
		log.Info("REDIS_URL not set, using in-process activity limiter")
		return ratelimit.NewMemoryLimiter(cfg.ActivityWindow), nil, nil
	}

	client, err := ratelimit.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return ratelimit.NewRedisLimiter(client, cfg.ActivityWindow), client, nil
}

func platformConfigs(cfg *config.Config) map[entities.Platform]config.PlatformConfig {
	return map[entities.Platform]config.PlatformConfig{
		entities.PlatformKick:   cfg.Kick,
		entities.PlatformTwitch: cfg.Twitch,
	}
}

// buildOAuthClients creates a client per platform with credentials; the rest stay disabled
func buildOAuthClients(cfg *config.Config) map[entities.Platform]application.PlatformOAuthClient {
	clients := make(map[entities.Platform]application.PlatformOAuthClient)
	baseURL := strings.TrimRight(cfg.PublicBaseURL, "/")

	for platform, p := range platformConfigs(cfg) {
		if !p.Enabled() {
			log.WithField("platform", platform).Info("Platform linking disabled, no OAuth credentials")
			continue
		}
		clients[platform] = oauth.NewClient(oauth.ClientConfig{
			Platform:     platform,
			ClientID:     p.ClientID,
			ClientSecret: p.ClientSecret,
			AuthURL:      p.AuthURL,
			TokenURL:     p.TokenURL,
			UserURL:      p.UserURL,
			Scopes:       p.Scopes,
			RedirectURL:  fmt.Sprintf("%s/connections/%s/callback", baseURL, platform),
			Timeout:      cfg.OAuthTimeout,
		})
	}
	return clients
}

func buildWebhookConfigs(cfg *config.Config) ([]application.WebhookConfig, error) {
	var configs []application.WebhookConfig
	for platform, p := range platformConfigs(cfg) {
		var currency entities.Currency
		if p.WebhookCurrency != "" {
			parsed, err := entities.ParseCurrency(p.WebhookCurrency)
			if err != nil {
				return nil, fmt.Errorf("invalid %s webhook currency %q: %w", platform, p.WebhookCurrency, err)
			}
			currency = parsed
		}

		configs = append(configs, application.WebhookConfig{
			Platform:       platform,
			Secret:         p.WebhookSecret,
			Channel:        p.Channel,
			AllowUnsigned:  cfg.AllowUnsignedWebhooks,
			ActivityAmount: cfg.ActivityBonusAmount,
			Currency:       currency,
		})
	}
	return configs, nil
}
