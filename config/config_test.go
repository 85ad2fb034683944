package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_ParsesEnvironment(t *testing.T) {
	ResetConfig()
	t.Cleanup(ResetConfig)

	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("DATABASE_URL", "postgres://user:pass@db:5432")
	t.Setenv("DATABASE_NAME", "points")
	t.Setenv("STATE_SIGNING_KEY", "signing-key")
	t.Setenv("STATE_TTL", "15m")
	t.Setenv("KICK_CLIENT_ID", "kick-client")
	t.Setenv("KICK_TOKEN_URL", "https://id.kick.example/oauth/token")
	t.Setenv("KICK_SCOPES", "user:read,channel:read")
	t.Setenv("KICK_WEBHOOK_SECRET", "kick-secret")
	t.Setenv("KICK_CHANNEL", "mychannel")
	t.Setenv("TWITCH_WEBHOOK_CURRENCY", "site")
	t.Setenv("ALLOWED_ORIGINS", "https://app.example.com,https://admin.example.com")

	cfg := Get()

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "postgres://user:pass@db:5432/points?sslmode=disable", cfg.GetDatabaseURL())
	assert.Equal(t, 15*time.Minute, cfg.StateTTL)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, int64(5), cfg.ActivityBonusAmount)

	assert.True(t, cfg.Kick.Enabled())
	assert.Equal(t, []string{"user:read", "channel:read"}, cfg.Kick.Scopes)
	assert.Equal(t, "mychannel", cfg.Kick.Channel)
	assert.False(t, cfg.Twitch.Enabled())
	assert.Equal(t, "site", cfg.Twitch.WebhookCurrency)
	assert.Equal(t, []string{"https://app.example.com", "https://admin.example.com"}, cfg.AllowedOrigins)

	assert.Same(t, cfg, Get())
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := func() *Config {
		return &Config{
			DatabaseURL:         "postgres://localhost:5432",
			StateSigningKey:     "key",
			ActivityBonusAmount: 5,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing database url", mutate: func(c *Config) { c.DatabaseURL = "" }, wantErr: "DATABASE_URL"},
		{name: "blank database name", mutate: func(c *Config) { c.DatabaseName = "  " }, wantErr: "DATABASE_NAME"},
		{name: "missing signing key", mutate: func(c *Config) { c.StateSigningKey = "" }, wantErr: "STATE_SIGNING_KEY"},
		{name: "non-positive activity bonus", mutate: func(c *Config) { c.ActivityBonusAmount = 0 }, wantErr: "ACTIVITY_BONUS_AMOUNT"},
		{
			name:    "channel without secret",
			mutate:  func(c *Config) { c.Twitch.Channel = "somechannel" },
			wantErr: "TWITCH_WEBHOOK_SECRET",
		},
		{
			name: "channel without secret allowed when unsigned webhooks are on",
			mutate: func(c *Config) {
				c.Twitch.Channel = "somechannel"
				c.AllowUnsignedWebhooks = true
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSetTestConfig(t *testing.T) {
	ResetConfig()
	t.Cleanup(ResetConfig)

	testCfg := NewTestConfig()
	SetTestConfig(testCfg)

	assert.Same(t, testCfg, Get())
	assert.False(t, testCfg.IsProduction())
}
