package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	v *viper.Viper
}

// New creates a new configuration instance
func New() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/inbox-wrangler/")
	v.AddConfigPath("$HOME/.inbox-wrangler")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	// Set defaults
	setDefaults(v)

	// Environment variables
	v.AutomaticEnv()
	v.SetEnvPrefix("INBOX_WRANGLER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, using defaults
	}

	return &Config{v: v}, nil
}

// NewFromViper creates a new configuration instance from an existing Viper instance
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper creates a new Viper instance with defaults
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// User defaults
	v.SetDefault("user.addresses", []string{})
	v.SetDefault("user.pinned_senders", []string{})

	// Classifier defaults
	v.SetDefault("classifier.provider", "rules")
	v.SetDefault("classifier.timeout", "20s")
	v.SetDefault("classifier.breaker.enabled", true)
	v.SetDefault("classifier.breaker.max_requests", 3)
	v.SetDefault("classifier.breaker.interval", "60s")
	v.SetDefault("classifier.breaker.timeout", "30s")

	// Anthropic defaults
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.model_name", "claude-3-5-haiku-latest")
	v.SetDefault("anthropic.max_tokens", 1000)
	v.SetDefault("anthropic.max_body_size", 4096)

	// OpenAI defaults
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.model_name", "gpt-4o-mini")
	v.SetDefault("openai.max_tokens", 1000)
	v.SetDefault("openai.temperature", 0.1)
	v.SetDefault("openai.top_p", 0.9)
	v.SetDefault("openai.max_body_size", 4096)

	// Local model defaults (OpenAI-compatible endpoint)
	v.SetDefault("local.base_url", "http://localhost:11434/v1")
	v.SetDefault("local.api_key", "unused")
	v.SetDefault("local.model_name", "llama3")
	v.SetDefault("local.max_tokens", 1000)
	v.SetDefault("local.temperature", 0.1)
	v.SetDefault("local.top_p", 0.9)
	v.SetDefault("local.max_body_size", 4096)

	// Gemini defaults
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model_name", "gemini-pro")
	v.SetDefault("gemini.max_tokens", 1000)
	v.SetDefault("gemini.temperature", 0.1)
	v.SetDefault("gemini.top_p", 0.9)
	v.SetDefault("gemini.max_body_size", 4096)

	// Bedrock defaults
	v.SetDefault("bedrock.region", "us-east-1")
	v.SetDefault("bedrock.model_id", "anthropic.claude-v2")
	v.SetDefault("bedrock.max_tokens", 1000)
	v.SetDefault("bedrock.temperature", 0.1)
	v.SetDefault("bedrock.top_p", 0.9)
	v.SetDefault("bedrock.max_body_size", 4096)

	// Cache defaults
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("cache.cleanup_frequency", "1h")
	v.SetDefault("cache.sqlite_path", "/data/classification_cache.db")
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)

	// State store defaults
	v.SetDefault("store.type", "sqlite")
	v.SetDefault("store.sqlite_path", "/data/inbox_wrangler.db")
	v.SetDefault("store.mysql_dsn", "user:password@tcp(localhost:3306)/inbox_wrangler")

	// Mail store defaults
	v.SetDefault("mail.type", "dir")
	v.SetDefault("mail.dir.path", "./maildir")
	v.SetDefault("mail.imap.address", "imap.example.org:993")
	v.SetDefault("mail.imap.username", "")
	v.SetDefault("mail.imap.password", "")
	v.SetDefault("mail.imap.inbox", "INBOX")
	v.SetDefault("mail.imap.sent", "Sent")
	v.SetDefault("mail.imap.task_mailbox", "Tasks")

	// Organizer defaults
	v.SetDefault("organizer.dry_run", true)
	v.SetDefault("organizer.max_messages", 200)
	v.SetDefault("organizer.schedule", "*/30 * * * *")
	v.SetDefault("organizer.report_dir", "./reports")

	// Report notification defaults
	v.SetDefault("notify.enabled", false)
	v.SetDefault("notify.smtp_address", "smtp.example.org:587")
	v.SetDefault("notify.implicit_tls", false)
	v.SetDefault("notify.username", "")
	v.SetDefault("notify.password", "")
	v.SetDefault("notify.from", "")
	v.SetDefault("notify.to", []string{})

	// Scoring defaults
	v.SetDefault("scoring.weights.sender", 0.4)
	v.SetDefault("scoring.weights.topic", 0.25)
	v.SetDefault("scoring.weights.temporal", 0.15)
	v.SetDefault("scoring.weights.state", 0.1)
	v.SetDefault("scoring.weights.recipient", 0.1)
	v.SetDefault("scoring.sender.reply_time_weight", 0.4)
	v.SetDefault("scoring.sender.reply_rate_weight", 0.4)
	v.SetDefault("scoring.sender.reply_length_weight", 0.2)
	v.SetDefault("scoring.sender.reply_pattern_factor", 1.0)
	v.SetDefault("scoring.sender.initiation_factor", 0.5)
	v.SetDefault("scoring.sender.read_kept_factor", 0.3)
	v.SetDefault("scoring.sender.reply_length_saturation", 500)
	v.SetDefault("scoring.sender.initiation_saturation", 10)
	v.SetDefault("scoring.sender.min_emails_for_pattern", 5)
	v.SetDefault("scoring.sender.neutral_score", 0.5)
	v.SetDefault("scoring.sender.automated_ceiling", 0.3)
	v.SetDefault("scoring.sender.pinned_floor", 0.9)
	v.SetDefault("scoring.state.baseline", 0.5)
	v.SetDefault("scoring.state.unread_penalty", 0.2)
	v.SetDefault("scoring.state.ignore_penalty", 0.15)
	v.SetDefault("scoring.state.ignore_penalty_cap", 0.4)
	v.SetDefault("scoring.state.read_kept_bonus", 0.3)
	v.SetDefault("scoring.state.flagged_bonus", 0.15)
	v.SetDefault("scoring.state.due_today_bonus", 0.25)
	v.SetDefault("scoring.state.due_soon_bonus", 0.15)
	v.SetDefault("scoring.state.due_soon_days", 2)
	v.SetDefault("scoring.state.high_importance_bonus", 0.2)
	v.SetDefault("scoring.state.off_hours_bonus", 0.05)
	v.SetDefault("scoring.state.business_start_hour", 8)
	v.SetDefault("scoring.state.business_end_hour", 18)
	v.SetDefault("scoring.recipient.to_me_bonus", 0.15)
	v.SetDefault("scoring.recipient.direct_to_me_bonus", 0.1)
	v.SetDefault("scoring.recipient.direct_max_recipients", 3)
	v.SetDefault("scoring.recipient.many_recipients_penalty", 0.1)
	v.SetDefault("scoring.recipient.many_recipients_threshold", 10)
	v.SetDefault("scoring.recipient.cc_me_penalty", 0.05)
	v.SetDefault("scoring.analysis.max_emails", 5000)
	v.SetDefault("scoring.analysis.window_days", 90)
	v.SetDefault("scoring.analysis.reply_window", "168h")
	v.SetDefault("scoring.analysis.ignored_checks", 3)
	v.SetDefault("scoring.decision.high_priority_threshold", 0.8)
	v.SetDefault("scoring.decision.medium_priority_threshold", 0.5)
	v.SetDefault("scoring.decision.archive_threshold", 0.3)
	v.SetDefault("scoring.decision.task_reminder_days", 2)
	v.SetDefault("scoring.normalizer.strategy", "token-set")
	v.SetDefault("scoring.normalizer.similarity_threshold", 0.72)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.file", "")
}

// GetString gets a string value from the configuration
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt gets an integer value from the configuration
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetFloat64 gets a float64 value from the configuration
func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

// GetBool gets a boolean value from the configuration
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetStringSlice gets a string slice value from the configuration
func (c *Config) GetStringSlice(key string) []string {
	return c.v.GetStringSlice(key)
}

// GetDuration gets a duration value from the configuration
func (c *Config) GetDuration(key string) (time.Duration, error) {
	return time.ParseDuration(c.GetString(key))
}

// IsSet reports whether the key was explicitly set by file or environment
func (c *Config) IsSet(key string) bool {
	return c.v.IsSet(key)
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}
