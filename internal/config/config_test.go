package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// chdirTemp moves into an empty temp dir so no config.yaml is found.
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.False(t, cfg.Server.TrustProxy)
	assert.InDelta(t, 3.0, cfg.Notion.RateLimit, 0.001)
	assert.Equal(t, 2, cfg.Notion.Retries)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, "claude-haiku-4-5-20251001", cfg.Anthropic.ReplyModel)
	assert.Equal(t, int64(400), cfg.Anthropic.MaxTokens)
	assert.Equal(t, 3, cfg.Chat.RetryAttempts)
	assert.True(t, cfg.Chat.ModelExtraction)
	assert.Equal(t, 20, cfg.Chat.MaxHistory)
	assert.Equal(t, "https://login.salesforce.com", cfg.Salesforce.LoginURL)
	assert.False(t, cfg.Salesforce.Enabled())

	p := cfg.Protection
	assert.False(t, p.RateLimitEnabled || p.HoneypotEnabled || p.TimingEnabled || p.PatternEnabled,
		"every protection layer is off by default")
	assert.Equal(t, 10, p.PerMinute)
	assert.Equal(t, 60, p.PerHour)
	assert.Equal(t, 300, p.PerDay)
	assert.Equal(t, []string{"website", "bot_field", "url", "homepage"}, p.HoneypotFields)
	assert.InDelta(t, 0.7, p.CapsRatio, 0.001)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
log:
  level: debug
  format: console
server:
  port: 9090
  cors_origins: ["https://sellsgroup.test"]
  trust_proxy: true
protection:
  rate_limit_enabled: true
  honeypot_enabled: true
  per_minute: 5
store:
  driver: sqlite
  database_url: /var/lib/leads/activity.db
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"https://sellsgroup.test"}, cfg.Server.CORSOrigins)
	assert.True(t, cfg.Server.TrustProxy)
	assert.True(t, cfg.Protection.RateLimitEnabled)
	assert.True(t, cfg.Protection.HoneypotEnabled)
	assert.False(t, cfg.Protection.TimingEnabled)
	assert.Equal(t, 5, cfg.Protection.PerMinute)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	// Defaults still apply for unset values
	assert.Equal(t, 60, cfg.Protection.PerHour)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("LEADS_STORE_DRIVER", "redis")
	t.Setenv("LEADS_LOG_LEVEL", "warn")
	t.Setenv("LEADS_PROTECTION_PATTERN_ENABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "redis", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.True(t, cfg.Protection.PatternEnabled)
}

func TestLoadMalformedFile(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server: [unclosed"), 0644))

	_, err := Load()
	assert.ErrorContains(t, err, "config: read file")
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.NotNil(t, zap.L())

	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))
	assert.Error(t, InitLogger(LogConfig{Level: "invalid", Format: "json"}))
}

// validDefaults returns a Config with the defaults validation relies on.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Server.Port = 8080
	cfg.Store.Driver = "memory"
	cfg.Chat.RetryAttempts = 3
	cfg.Protection.CapsRatio = 0.7
	cfg.Protection.MinLength = 2
	cfg.Protection.MaxLength = 2000
	return cfg
}

func TestValidate_ServeDefaults(t *testing.T) {
	assert.NoError(t, validDefaults().Validate("serve"))
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	assert.ErrorContains(t, err, "server.port must be > 0")
	assert.NoError(t, cfg.Validate("dry-run"), "dry-run does not listen")
}

func TestValidate_Store(t *testing.T) {
	tests := []struct {
		name    string
		store   StoreConfig
		wantErr string
	}{
		{"memory", StoreConfig{Driver: "memory"}, ""},
		{"redis ok", StoreConfig{Driver: "redis", RedisAddr: "localhost:6379"}, ""},
		{"redis missing addr", StoreConfig{Driver: "redis"}, "store.redis_addr is required"},
		{"postgres missing url", StoreConfig{Driver: "postgres"}, "store.database_url is required for the postgres driver"},
		{"sqlite ok", StoreConfig{Driver: "sqlite", DatabaseURL: "leads.db"}, ""},
		{"unknown", StoreConfig{Driver: "mongo"}, `store.driver "mongo" is not one of`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validDefaults()
			cfg.Store = tt.store
			err := cfg.Validate("chat")
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestValidate_PartialSalesforce(t *testing.T) {
	cfg := validDefaults()
	cfg.Salesforce.ClientID = "3MVG9"

	err := cfg.Validate("serve")
	assert.ErrorContains(t, err, "salesforce.username is required")
	assert.ErrorContains(t, err, "salesforce.key_path is required")

	cfg.Salesforce.Username = "bot@sellsgroup.test"
	cfg.Salesforce.KeyPath = "/etc/leads/sf.pem"
	assert.NoError(t, cfg.Validate("serve"))
}

func TestValidate_PartialNotion(t *testing.T) {
	cfg := validDefaults()
	cfg.Notion.Token = "ntn_token"

	assert.ErrorContains(t, cfg.Validate("chat"), "notion.lead_db is required")
}

func TestValidate_Purge(t *testing.T) {
	cfg := validDefaults()
	assert.ErrorContains(t, cfg.Validate("purge"), "purge needs a persistent store.driver")

	cfg.Store = StoreConfig{Driver: "postgres", DatabaseURL: "postgres://localhost/leads"}
	assert.NoError(t, cfg.Validate("purge"))
}

func TestValidate_Thresholds(t *testing.T) {
	cfg := validDefaults()
	cfg.Protection.CapsRatio = 1.5
	cfg.Protection.MinLength = 3000
	cfg.Chat.RetryAttempts = 0

	err := cfg.Validate("dry-run")
	assert.ErrorContains(t, err, "protection.caps_ratio must be in (0, 1]")
	assert.ErrorContains(t, err, "protection.min_length must be < protection.max_length")
	assert.ErrorContains(t, err, "chat.retry_attempts must be >= 1")
}

func TestValidateUnknownMode(t *testing.T) {
	assert.ErrorContains(t, validDefaults().Validate("unknown"), "unknown mode")
}

func TestProtectionConfig_Gate(t *testing.T) {
	p := ProtectionConfig{
		RateLimitEnabled:       true,
		PerMinute:              4,
		MinuteCooldownSecs:     90,
		MinSubmitDelaySecs:     5,
		MinMessageIntervalSecs: 1,
		HoneypotFields:         []string{"fax"},
		CapsRatio:              0.8,
	}
	g := p.Gate()

	assert.True(t, g.RateLimitEnabled)
	assert.False(t, g.HoneypotEnabled)
	assert.Equal(t, 4, g.PerMinute)
	assert.Equal(t, 90*time.Second, g.MinuteCooldown)
	assert.Equal(t, 5*time.Second, g.MinSubmitDelay)
	assert.Equal(t, time.Second, g.MinMessageInterval)
	assert.Equal(t, []string{"fax"}, g.HoneypotFields)
	assert.InDelta(t, 0.8, g.CapsRatio, 0.001)
}
