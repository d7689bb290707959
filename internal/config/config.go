package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/lead-pipeline/internal/protection"
)

// Config holds the full application configuration.
type Config struct {
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Company    CompanyConfig    `yaml:"company" mapstructure:"company"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Chat       ChatConfig       `yaml:"chat" mapstructure:"chat"`
	Protection ProtectionConfig `yaml:"protection" mapstructure:"protection"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Salesforce SalesforceConfig `yaml:"salesforce" mapstructure:"salesforce"`
	Notion     NotionConfig     `yaml:"notion" mapstructure:"notion"`
	Catalog    CatalogConfig    `yaml:"catalog" mapstructure:"catalog"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	// TrustProxy keys rate limits by X-Forwarded-For. Enable only behind a
	// proxy that sets the header.
	TrustProxy bool `yaml:"trust_proxy" mapstructure:"trust_proxy"`
}

// CompanyConfig describes the business the assistant represents. The
// contact details appear in the fallback reply.
type CompanyConfig struct {
	Name    string `yaml:"name" mapstructure:"name"`
	Email   string `yaml:"email" mapstructure:"email"`
	Phone   string `yaml:"phone" mapstructure:"phone"`
	Website string `yaml:"website" mapstructure:"website"`
}

// AnthropicConfig holds Anthropic API settings. Without a key the assistant
// answers with the fallback reply and extraction is heuristic only.
type AnthropicConfig struct {
	Key          string `yaml:"key" mapstructure:"key"`
	BaseURL      string `yaml:"base_url" mapstructure:"base_url"`
	ReplyModel   string `yaml:"reply_model" mapstructure:"reply_model"`
	ExtractModel string `yaml:"extract_model" mapstructure:"extract_model"`
	MaxTokens    int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// ChatConfig tunes reply generation, extraction and CRM sync.
type ChatConfig struct {
	ReplyTimeoutSecs   int  `yaml:"reply_timeout_secs" mapstructure:"reply_timeout_secs"`
	AttemptTimeoutSecs int  `yaml:"attempt_timeout_secs" mapstructure:"attempt_timeout_secs"`
	ExtractTimeoutSecs int  `yaml:"extract_timeout_secs" mapstructure:"extract_timeout_secs"`
	CRMTimeoutSecs     int  `yaml:"crm_timeout_secs" mapstructure:"crm_timeout_secs"`
	JournalTimeoutSecs int  `yaml:"journal_timeout_secs" mapstructure:"journal_timeout_secs"`
	RetryAttempts      int  `yaml:"retry_attempts" mapstructure:"retry_attempts"`
	RetryBackoffMs     int  `yaml:"retry_backoff_ms" mapstructure:"retry_backoff_ms"`
	CircuitThreshold   int  `yaml:"circuit_threshold" mapstructure:"circuit_threshold"`
	CircuitResetSecs   int  `yaml:"circuit_reset_secs" mapstructure:"circuit_reset_secs"`
	ModelExtraction    bool `yaml:"model_extraction" mapstructure:"model_extraction"`
	MaxHistory         int  `yaml:"max_history" mapstructure:"max_history"`
}

// ProtectionConfig configures the protection gate. Every layer is off
// unless enabled.
type ProtectionConfig struct {
	RateLimitEnabled bool `yaml:"rate_limit_enabled" mapstructure:"rate_limit_enabled"`
	HoneypotEnabled  bool `yaml:"honeypot_enabled" mapstructure:"honeypot_enabled"`
	TimingEnabled    bool `yaml:"timing_enabled" mapstructure:"timing_enabled"`
	PatternEnabled   bool `yaml:"pattern_enabled" mapstructure:"pattern_enabled"`

	PerMinute          int `yaml:"per_minute" mapstructure:"per_minute"`
	PerHour            int `yaml:"per_hour" mapstructure:"per_hour"`
	PerDay             int `yaml:"per_day" mapstructure:"per_day"`
	MinuteCooldownSecs int `yaml:"minute_cooldown_secs" mapstructure:"minute_cooldown_secs"`
	HourCooldownSecs   int `yaml:"hour_cooldown_secs" mapstructure:"hour_cooldown_secs"`
	DayCooldownSecs    int `yaml:"day_cooldown_secs" mapstructure:"day_cooldown_secs"`

	MinSubmitDelaySecs     int `yaml:"min_submit_delay_secs" mapstructure:"min_submit_delay_secs"`
	MinMessageIntervalSecs int `yaml:"min_message_interval_secs" mapstructure:"min_message_interval_secs"`

	HoneypotFields []string `yaml:"honeypot_fields" mapstructure:"honeypot_fields"`

	MaxURLs        int     `yaml:"max_urls" mapstructure:"max_urls"`
	MaxRepeatRun   int     `yaml:"max_repeat_run" mapstructure:"max_repeat_run"`
	CapsRatio      float64 `yaml:"caps_ratio" mapstructure:"caps_ratio"`
	CapsMinLetters int     `yaml:"caps_min_letters" mapstructure:"caps_min_letters"`
	MinLength      int     `yaml:"min_length" mapstructure:"min_length"`
	MaxLength      int     `yaml:"max_length" mapstructure:"max_length"`

	JanitorIntervalMins int `yaml:"janitor_interval_mins" mapstructure:"janitor_interval_mins"`
}

// StoreConfig configures the client activity store.
type StoreConfig struct {
	// Driver is memory, redis, postgres or sqlite.
	Driver string `yaml:"driver" mapstructure:"driver"`
	// DatabaseURL is a postgres URL or, for sqlite, a file path.
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	RedisAddr   string `yaml:"redis_addr" mapstructure:"redis_addr"`
}

// SalesforceConfig holds Salesforce JWT auth settings.
type SalesforceConfig struct {
	ClientID     string  `yaml:"client_id" mapstructure:"client_id"`
	Username     string  `yaml:"username" mapstructure:"username"`
	KeyPath      string  `yaml:"key_path" mapstructure:"key_path"`
	LoginURL     string  `yaml:"login_url" mapstructure:"login_url"`
	RateLimit    float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	AssignedTeam string  `yaml:"assigned_team" mapstructure:"assigned_team"`
	LeadSource   string  `yaml:"lead_source" mapstructure:"lead_source"`
}

// Enabled reports whether any Salesforce credential is set.
func (s SalesforceConfig) Enabled() bool {
	return s.ClientID != "" || s.Username != "" || s.KeyPath != ""
}

// NotionConfig holds the Notion token and the lead journal database.
type NotionConfig struct {
	Token     string  `yaml:"token" mapstructure:"token"`
	LeadDB    string  `yaml:"lead_db" mapstructure:"lead_db"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	Retries   int     `yaml:"retries" mapstructure:"retries"`
}

// CatalogConfig points at an optional YAML service keyword catalog.
type CatalogConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LEADS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.trust_proxy", false)
	v.SetDefault("company.name", "Sells Group")
	v.SetDefault("anthropic.reply_model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.extract_model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 400)
	v.SetDefault("chat.reply_timeout_secs", 20)
	v.SetDefault("chat.attempt_timeout_secs", 8)
	v.SetDefault("chat.extract_timeout_secs", 10)
	v.SetDefault("chat.crm_timeout_secs", 15)
	v.SetDefault("chat.journal_timeout_secs", 5)
	v.SetDefault("chat.retry_attempts", 3)
	v.SetDefault("chat.retry_backoff_ms", 250)
	v.SetDefault("chat.circuit_threshold", 5)
	v.SetDefault("chat.circuit_reset_secs", 30)
	v.SetDefault("chat.model_extraction", true)
	v.SetDefault("chat.max_history", 20)
	v.SetDefault("protection.per_minute", 10)
	v.SetDefault("protection.per_hour", 60)
	v.SetDefault("protection.per_day", 300)
	v.SetDefault("protection.minute_cooldown_secs", 60)
	v.SetDefault("protection.hour_cooldown_secs", 300)
	v.SetDefault("protection.day_cooldown_secs", 3600)
	v.SetDefault("protection.min_submit_delay_secs", 3)
	v.SetDefault("protection.min_message_interval_secs", 2)
	v.SetDefault("protection.honeypot_fields", []string{"website", "bot_field", "url", "homepage"})
	v.SetDefault("protection.max_urls", 3)
	v.SetDefault("protection.max_repeat_run", 10)
	v.SetDefault("protection.caps_ratio", 0.7)
	v.SetDefault("protection.caps_min_letters", 20)
	v.SetDefault("protection.min_length", 2)
	v.SetDefault("protection.max_length", 2000)
	v.SetDefault("protection.janitor_interval_mins", 10)
	v.SetDefault("store.driver", "memory")
	v.SetDefault("salesforce.login_url", "https://login.salesforce.com")
	v.SetDefault("salesforce.rate_limit", 5)
	v.SetDefault("notion.rate_limit", 3)
	v.SetDefault("notion.retries", 2)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings the given command needs. Modes: serve,
// chat, dry-run, purge.
func (c *Config) Validate(mode string) error {
	var errs []string
	req := func(ok bool, msg string) {
		if !ok {
			errs = append(errs, msg)
		}
	}

	switch mode {
	case "serve":
		req(c.Server.Port > 0 && c.Server.Port < 65536, "server.port must be > 0 and < 65536")
		c.validateStore(req)
		c.validateIntegrations(req)
	case "chat":
		c.validateStore(req)
		c.validateIntegrations(req)
	case "dry-run":
	case "purge":
		req(c.Store.Driver != "memory", "purge needs a persistent store.driver")
		c.validateStore(req)
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	p := c.Protection
	req(p.CapsRatio > 0 && p.CapsRatio <= 1, "protection.caps_ratio must be in (0, 1]")
	req(p.MinLength < p.MaxLength, "protection.min_length must be < protection.max_length")
	req(c.Chat.RetryAttempts >= 1, "chat.retry_attempts must be >= 1")
	req(c.Chat.MaxHistory >= 0, "chat.max_history must be >= 0")

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateStore(req func(bool, string)) {
	switch c.Store.Driver {
	case "memory":
	case "redis":
		req(c.Store.RedisAddr != "", "store.redis_addr is required for the redis driver")
	case "postgres", "sqlite":
		req(c.Store.DatabaseURL != "", "store.database_url is required for the "+c.Store.Driver+" driver")
	default:
		req(false, fmt.Sprintf("store.driver %q is not one of memory, redis, postgres, sqlite", c.Store.Driver))
	}
}

func (c *Config) validateIntegrations(req func(bool, string)) {
	if sf := c.Salesforce; sf.Enabled() {
		req(sf.ClientID != "", "salesforce.client_id is required")
		req(sf.Username != "", "salesforce.username is required")
		req(sf.KeyPath != "", "salesforce.key_path is required")
	}
	if c.Notion.Token != "" || c.Notion.LeadDB != "" {
		req(c.Notion.Token != "", "notion.token is required")
		req(c.Notion.LeadDB != "", "notion.lead_db is required")
	}
}

// Gate converts the protection settings into the gate's configuration.
func (p ProtectionConfig) Gate() protection.Config {
	secs := func(n int) time.Duration { return time.Duration(n) * time.Second }
	return protection.Config{
		RateLimitEnabled:   p.RateLimitEnabled,
		HoneypotEnabled:    p.HoneypotEnabled,
		TimingEnabled:      p.TimingEnabled,
		PatternEnabled:     p.PatternEnabled,
		PerMinute:          p.PerMinute,
		PerHour:            p.PerHour,
		PerDay:             p.PerDay,
		MinuteCooldown:     secs(p.MinuteCooldownSecs),
		HourCooldown:       secs(p.HourCooldownSecs),
		DayCooldown:        secs(p.DayCooldownSecs),
		MinSubmitDelay:     secs(p.MinSubmitDelaySecs),
		MinMessageInterval: secs(p.MinMessageIntervalSecs),
		HoneypotFields:     p.HoneypotFields,
		MaxURLs:            p.MaxURLs,
		MaxRepeatRun:       p.MaxRepeatRun,
		CapsRatio:          p.CapsRatio,
		CapsMinLetters:     p.CapsMinLetters,
		MinLength:          p.MinLength,
		MaxLength:          p.MaxLength,
	}
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
