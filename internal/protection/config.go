package protection

import "time"

// Config is the immutable configuration of a Gate. Every layer is off by
// default; a disabled layer never reports suspicion.
type Config struct {
	RateLimitEnabled bool
	HoneypotEnabled  bool
	TimingEnabled    bool
	PatternEnabled   bool

	PerMinute      int
	PerHour        int
	PerDay         int
	MinuteCooldown time.Duration
	HourCooldown   time.Duration
	DayCooldown    time.Duration

	// MinSubmitDelay is the minimum time between page load and submit.
	MinSubmitDelay time.Duration
	// MinMessageInterval is the minimum gap between two messages of a client.
	MinMessageInterval time.Duration

	HoneypotFields []string

	MaxURLs        int
	MaxRepeatRun   int
	CapsRatio      float64
	CapsMinLetters int
	MinLength      int
	MaxLength      int
	SpamVocabulary []string
}

// DefaultSpamVocabulary is the built-in list of spam phrases.
var DefaultSpamVocabulary = []string{
	"viagra",
	"cialis",
	"casino",
	"crypto investment",
	"bitcoin giveaway",
	"forex signals",
	"payday loan",
	"buy followers",
	"cheap seo",
	"guaranteed ranking",
	"backlinks package",
	"make money fast",
	"work from home opportunity",
	"click here now",
	"100% free",
	"you have won",
	"lottery winner",
	"wire transfer fee",
}

// DefaultConfig returns the default thresholds with every layer disabled.
func DefaultConfig() Config {
	return Config{
		PerMinute:          10,
		PerHour:            60,
		PerDay:             300,
		MinuteCooldown:     60 * time.Second,
		HourCooldown:       300 * time.Second,
		DayCooldown:        3600 * time.Second,
		MinSubmitDelay:     3 * time.Second,
		MinMessageInterval: 2 * time.Second,
		HoneypotFields:     []string{"website", "bot_field", "url", "homepage"},
		MaxURLs:            3,
		MaxRepeatRun:       10,
		CapsRatio:          0.7,
		CapsMinLetters:     20,
		MinLength:          2,
		MaxLength:          2000,
		SpamVocabulary:     DefaultSpamVocabulary,
	}
}

// withDefaults fills zero thresholds from DefaultConfig. Feature flags are
// left untouched.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.PerMinute <= 0 {
		c.PerMinute = d.PerMinute
	}
	if c.PerHour <= 0 {
		c.PerHour = d.PerHour
	}
	if c.PerDay <= 0 {
		c.PerDay = d.PerDay
	}
	if c.MinuteCooldown <= 0 {
		c.MinuteCooldown = d.MinuteCooldown
	}
	if c.HourCooldown <= 0 {
		c.HourCooldown = d.HourCooldown
	}
	if c.DayCooldown <= 0 {
		c.DayCooldown = d.DayCooldown
	}
	if c.MinSubmitDelay <= 0 {
		c.MinSubmitDelay = d.MinSubmitDelay
	}
	if c.MinMessageInterval <= 0 {
		c.MinMessageInterval = d.MinMessageInterval
	}
	if len(c.HoneypotFields) == 0 {
		c.HoneypotFields = d.HoneypotFields
	}
	if c.MaxURLs <= 0 {
		c.MaxURLs = d.MaxURLs
	}
	if c.MaxRepeatRun <= 0 {
		c.MaxRepeatRun = d.MaxRepeatRun
	}
	if c.CapsRatio <= 0 {
		c.CapsRatio = d.CapsRatio
	}
	if c.CapsMinLetters <= 0 {
		c.CapsMinLetters = d.CapsMinLetters
	}
	if c.MinLength <= 0 {
		c.MinLength = d.MinLength
	}
	if c.MaxLength <= 0 {
		c.MaxLength = d.MaxLength
	}
	if c.SpamVocabulary == nil {
		c.SpamVocabulary = d.SpamVocabulary
	}
	return c
}
