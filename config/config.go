package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"channelpoints/database"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// PlatformConfig holds OAuth and webhook settings for one external streaming platform
type PlatformConfig struct {
	ClientID     string   `env:"CLIENT_ID"`
	ClientSecret string   `env:"CLIENT_SECRET"`
	AuthURL      string   `env:"AUTH_URL"`
	TokenURL     string   `env:"TOKEN_URL"`
	UserURL      string   `env:"USER_URL"`
	Scopes       []string `env:"SCOPES" envSeparator:","`

	// Webhook configuration
	WebhookSecret string `env:"WEBHOOK_SECRET"`
	Channel       string `env:"CHANNEL"`

	// Currency credited by this platform's webhooks. Empty means the platform's own currency.
	WebhookCurrency string `env:"WEBHOOK_CURRENCY"`
}

// Enabled reports whether the platform has OAuth credentials configured
func (p PlatformConfig) Enabled() bool {
	return p.ClientID != "" && p.TokenURL != ""
}

// Config holds all application configuration
type Config struct {
	// HTTP configuration
	HTTPAddr       string   `env:"HTTP_ADDR" envDefault:":8080"`
	PublicBaseURL  string   `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:8080"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`
	AdminAPIKey    string   `env:"ADMIN_API_KEY"`

	// Database configuration
	DatabaseURL  string `env:"DATABASE_URL"`
	DatabaseName string `env:"DATABASE_NAME"`
	DBMaxConns   int32  `env:"DB_MAX_CONNS" envDefault:"20"`

	// OAuth linking
	StateSigningKey       string        `env:"STATE_SIGNING_KEY"`
	StateTTL              time.Duration `env:"STATE_TTL" envDefault:"10m"`
	ReturnURLAllowedHosts []string      `env:"RETURN_URL_ALLOWED_HOSTS" envSeparator:","`
	DefaultReturnURL      string        `env:"DEFAULT_RETURN_URL" envDefault:"http://localhost:3000/"`
	OAuthTimeout          time.Duration `env:"OAUTH_TIMEOUT" envDefault:"10s"`

	// Platforms
	Kick   PlatformConfig `envPrefix:"KICK_"`
	Twitch PlatformConfig `envPrefix:"TWITCH_"`

	// Webhook ingestion
	AllowUnsignedWebhooks bool          `env:"ALLOW_UNSIGNED_WEBHOOKS" envDefault:"false"`
	ActivityBonusAmount   int64         `env:"ACTIVITY_BONUS_AMOUNT" envDefault:"5"`
	ActivityWindow        time.Duration `env:"ACTIVITY_WINDOW" envDefault:"5m"`

	// Redis configuration (activity rate limiting), empty uses the in-process limiter
	RedisURL string `env:"REDIS_URL"`

	// NATS configuration, empty keeps events in-process
	NATSServers string `env:"NATS_SERVERS"`

	// Discord channel webhook for redemption alerts
	DiscordWebhookURL string `env:"DISCORD_WEBHOOK_URL"`

	// OpenTelemetry configuration
	OTelEnabled              bool   `env:"OTEL_ENABLED" envDefault:"false"`
	OTelServiceName          string `env:"OTEL_SERVICE_NAME" envDefault:"points-ledger"`
	OTelExporterType         string `env:"OTEL_EXPORTER_TYPE" envDefault:"console"`
	OTelOTLPEndpoint         string `env:"OTEL_OTLP_ENDPOINT" envDefault:"otel-collector:4317"`
	OTelExportIntervalMillis int    `env:"OTEL_EXPORT_INTERVAL_MILLIS" envDefault:"15000"`

	// Logging
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Environment
	Environment string `env:"ENVIRONMENT" envDefault:"development"` // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	// If instance is already set (e.g., by tests), return it
	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			if os.Getenv("GO_TEST") == "1" || os.Getenv("ENVIRONMENT") == "test" {
				instance = NewTestConfig()
			} else {
				panic(fmt.Sprintf("failed to load config: %v", err))
			}
		}
	})
	return instance
}

// GetDatabaseURL constructs the full database URL by combining base URL and database name
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// IsProduction reports whether the service runs in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// load loads configuration from the environment, reading a .env file first when present
func load() (*Config, error) {
	// A missing .env file is normal outside local development
	_ = godotenv.Load()

	config := &Config{}
	if err := env.Parse(config); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if config.Environment != "test" {
		if err := config.Validate(); err != nil {
			return nil, err
		}
	}

	return config, nil
}

// Validate checks the settings required to serve traffic
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.DatabaseName != "" && strings.TrimSpace(c.DatabaseName) == "" {
		return fmt.Errorf("DATABASE_NAME cannot be empty when provided")
	}
	if c.StateSigningKey == "" {
		return fmt.Errorf("STATE_SIGNING_KEY is required")
	}
	if c.ActivityBonusAmount <= 0 {
		return fmt.Errorf("ACTIVITY_BONUS_AMOUNT must be positive")
	}

	for name, p := range map[string]PlatformConfig{"KICK": c.Kick, "TWITCH": c.Twitch} {
		if p.Channel != "" && p.WebhookSecret == "" && !c.AllowUnsignedWebhooks {
			return fmt.Errorf("%s_WEBHOOK_SECRET is required when %s_CHANNEL is set (set ALLOW_UNSIGNED_WEBHOOKS=true to accept unsigned payloads)", name, name)
		}
	}

	return nil
}

// Test helpers - only use in tests

// SetTestConfig overrides the global config instance for testing
// This should only be called from test files
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
// This should only be called from test files
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		Environment:         "test",
		HTTPAddr:            ":0",
		PublicBaseURL:       "http://localhost:8080",
		StateSigningKey:     "test-state-signing-key",
		StateTTL:            10 * time.Minute,
		DefaultReturnURL:    "http://localhost:3000/",
		OAuthTimeout:        2 * time.Second,
		ActivityBonusAmount: 5,
		ActivityWindow:      5 * time.Minute,
		AdminAPIKey:         "test-admin-key",
		OTelServiceName:     "points-ledger-test",
		OTelExporterType:    "none",
		LogLevel:            "debug",
	}
}
