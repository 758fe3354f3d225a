package config

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gnuru1/InboxWrangler/internal/core"
)

// ClassifierConfig represents the configuration for the classifier chain
type ClassifierConfig struct {
	Provider           string
	Timeout            time.Duration
	BreakerEnabled     bool
	BreakerMaxRequests uint32
	BreakerInterval    time.Duration
	BreakerTimeout     time.Duration
}

// AnthropicConfig represents the configuration for Anthropic
type AnthropicConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	MaxBodySize int
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region      string
	ModelID     string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// CacheConfig represents the configuration for the classification cache
type CacheConfig struct {
	Type             string
	Enabled          bool
	TTL              time.Duration
	CleanupFrequency time.Duration
	SQLitePath       string
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
}

// StoreConfig represents the configuration for the analysis state store
type StoreConfig struct {
	Type       string
	SQLitePath string
	MySQLDSN   string
}

// MailConfig represents the configuration for the mailbox backend
type MailConfig struct {
	Type            string
	DirPath         string
	IMAPAddress     string
	IMAPUsername    string
	IMAPPassword    string
	IMAPInbox       string
	IMAPSent        string
	IMAPTaskMailbox string
}

// OrganizerConfig represents the configuration for the organizer run loop
type OrganizerConfig struct {
	DryRun      bool
	MaxMessages int
	Schedule    string
	ReportDir   string
}

// NotifyConfig represents the configuration for mailing run reports
type NotifyConfig struct {
	Enabled     bool
	SMTPAddress string
	ImplicitTLS bool
	Username    string
	Password    string
	From        string
	To          []string
}

// UserConfig represents the mailbox owner's own addresses and pinned senders
type UserConfig struct {
	Addresses     []string
	PinnedSenders []string
}

// LoggingConfig represents the logging configuration
type LoggingConfig struct {
	Level  string
	Format string
	File   string
}

// GetClassifier returns the classifier chain configuration
func (c *Config) GetClassifier() (ClassifierConfig, error) {
	timeout, err := c.GetDuration("classifier.timeout")
	if err != nil {
		return ClassifierConfig{}, fmt.Errorf("invalid classifier.timeout: %w", err)
	}
	interval, err := c.GetDuration("classifier.breaker.interval")
	if err != nil {
		return ClassifierConfig{}, fmt.Errorf("invalid classifier.breaker.interval: %w", err)
	}
	breakerTimeout, err := c.GetDuration("classifier.breaker.timeout")
	if err != nil {
		return ClassifierConfig{}, fmt.Errorf("invalid classifier.breaker.timeout: %w", err)
	}
	return ClassifierConfig{
		Provider:           c.GetString("classifier.provider"),
		Timeout:            timeout,
		BreakerEnabled:     c.GetBool("classifier.breaker.enabled"),
		BreakerMaxRequests: uint32(c.GetInt("classifier.breaker.max_requests")),
		BreakerInterval:    interval,
		BreakerTimeout:     breakerTimeout,
	}, nil
}

// GetAnthropic returns the Anthropic configuration
func (c *Config) GetAnthropic() AnthropicConfig {
	return AnthropicConfig{
		APIKey:      c.GetString("anthropic.api_key"),
		ModelName:   c.GetString("anthropic.model_name"),
		MaxTokens:   c.GetInt("anthropic.max_tokens"),
		MaxBodySize: c.GetInt("anthropic.max_body_size"),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:      c.GetString("openai.api_key"),
		ModelName:   c.GetString("openai.model_name"),
		MaxTokens:   c.GetInt("openai.max_tokens"),
		Temperature: float32(c.GetFloat64("openai.temperature")),
		TopP:        float32(c.GetFloat64("openai.top_p")),
		MaxBodySize: c.GetInt("openai.max_body_size"),
	}
}

// GetLocal returns the local model configuration as an OpenAI-compatible endpoint
func (c *Config) GetLocal() OpenAIConfig {
	return OpenAIConfig{
		APIKey:      c.GetString("local.api_key"),
		BaseURL:     c.GetString("local.base_url"),
		ModelName:   c.GetString("local.model_name"),
		MaxTokens:   c.GetInt("local.max_tokens"),
		Temperature: float32(c.GetFloat64("local.temperature")),
		TopP:        float32(c.GetFloat64("local.top_p")),
		MaxBodySize: c.GetInt("local.max_body_size"),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:      c.GetString("gemini.api_key"),
		ModelName:   c.GetString("gemini.model_name"),
		MaxTokens:   c.GetInt("gemini.max_tokens"),
		Temperature: float32(c.GetFloat64("gemini.temperature")),
		TopP:        float32(c.GetFloat64("gemini.top_p")),
		MaxBodySize: c.GetInt("gemini.max_body_size"),
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:      c.GetString("bedrock.region"),
		ModelID:     c.GetString("bedrock.model_id"),
		MaxTokens:   c.GetInt("bedrock.max_tokens"),
		Temperature: float32(c.GetFloat64("bedrock.temperature")),
		TopP:        float32(c.GetFloat64("bedrock.top_p")),
		MaxBodySize: c.GetInt("bedrock.max_body_size"),
	}
}

// GetCache returns the cache configuration
func (c *Config) GetCache() (CacheConfig, error) {
	ttl, err := c.GetDuration("cache.ttl")
	if err != nil {
		return CacheConfig{}, fmt.Errorf("invalid cache.ttl: %w", err)
	}
	cleanup, err := c.GetDuration("cache.cleanup_frequency")
	if err != nil {
		return CacheConfig{}, fmt.Errorf("invalid cache.cleanup_frequency: %w", err)
	}
	return CacheConfig{
		Type:             c.GetString("cache.type"),
		Enabled:          c.GetBool("cache.enabled"),
		TTL:              ttl,
		CleanupFrequency: cleanup,
		SQLitePath:       c.GetString("cache.sqlite_path"),
		RedisAddr:        c.GetString("cache.redis_addr"),
		RedisPassword:    c.GetString("cache.redis_password"),
		RedisDB:          c.GetInt("cache.redis_db"),
	}, nil
}

// GetStore returns the state store configuration
func (c *Config) GetStore() StoreConfig {
	return StoreConfig{
		Type:       c.GetString("store.type"),
		SQLitePath: c.GetString("store.sqlite_path"),
		MySQLDSN:   c.GetString("store.mysql_dsn"),
	}
}

// GetMail returns the mailbox backend configuration
func (c *Config) GetMail() MailConfig {
	return MailConfig{
		Type:            c.GetString("mail.type"),
		DirPath:         c.GetString("mail.dir.path"),
		IMAPAddress:     c.GetString("mail.imap.address"),
		IMAPUsername:    c.GetString("mail.imap.username"),
		IMAPPassword:    c.GetString("mail.imap.password"),
		IMAPInbox:       c.GetString("mail.imap.inbox"),
		IMAPSent:        c.GetString("mail.imap.sent"),
		IMAPTaskMailbox: c.GetString("mail.imap.task_mailbox"),
	}
}

// GetOrganizer returns the organizer run-loop configuration
func (c *Config) GetOrganizer() OrganizerConfig {
	return OrganizerConfig{
		DryRun:      c.GetBool("organizer.dry_run"),
		MaxMessages: c.GetInt("organizer.max_messages"),
		Schedule:    c.GetString("organizer.schedule"),
		ReportDir:   c.GetString("organizer.report_dir"),
	}
}

// GetNotify returns the report notification configuration. When no explicit
// recipients are set, reports go to the mailbox owner's own addresses.
func (c *Config) GetNotify() NotifyConfig {
	n := NotifyConfig{
		Enabled:     c.GetBool("notify.enabled"),
		SMTPAddress: c.GetString("notify.smtp_address"),
		ImplicitTLS: c.GetBool("notify.implicit_tls"),
		Username:    c.GetString("notify.username"),
		Password:    c.GetString("notify.password"),
		From:        c.GetString("notify.from"),
		To:          c.GetStringSlice("notify.to"),
	}
	if len(n.To) == 0 {
		n.To = c.GetStringSlice("user.addresses")
	}
	if n.From == "" {
		n.From = n.Username
	}
	return n
}

// GetUser returns the mailbox owner configuration
func (c *Config) GetUser() UserConfig {
	return UserConfig{
		Addresses:     c.GetStringSlice("user.addresses"),
		PinnedSenders: c.GetStringSlice("user.pinned_senders"),
	}
}

// GetLogging returns the logging configuration
func (c *Config) GetLogging() LoggingConfig {
	return LoggingConfig{
		Level:  c.GetString("logging.level"),
		Format: c.GetString("logging.format"),
		File:   c.GetString("logging.file"),
	}
}

// Scoring builds the full scoring configuration: compiled defaults overlaid
// with any values set under the scoring.* keys, then validated.
func (c *Config) Scoring() (core.ScoringConfig, error) {
	sc := core.DefaultScoringConfig()

	sc.Weights.Sender = c.GetFloat64("scoring.weights.sender")
	sc.Weights.Topic = c.GetFloat64("scoring.weights.topic")
	sc.Weights.Temporal = c.GetFloat64("scoring.weights.temporal")
	sc.Weights.State = c.GetFloat64("scoring.weights.state")
	sc.Weights.Recipient = c.GetFloat64("scoring.weights.recipient")

	sc.Sender.ReplyTimeWeight = c.GetFloat64("scoring.sender.reply_time_weight")
	sc.Sender.ReplyRateWeight = c.GetFloat64("scoring.sender.reply_rate_weight")
	sc.Sender.ReplyLengthWeight = c.GetFloat64("scoring.sender.reply_length_weight")
	sc.Sender.ReplyPatternFactor = c.GetFloat64("scoring.sender.reply_pattern_factor")
	sc.Sender.InitiationFactor = c.GetFloat64("scoring.sender.initiation_factor")
	sc.Sender.ReadKeptFactor = c.GetFloat64("scoring.sender.read_kept_factor")
	sc.Sender.ReplyLengthSaturation = c.GetFloat64("scoring.sender.reply_length_saturation")
	sc.Sender.InitiationSaturation = c.GetFloat64("scoring.sender.initiation_saturation")
	sc.Sender.MinEmailsForPattern = c.GetInt("scoring.sender.min_emails_for_pattern")
	sc.Sender.NeutralScore = c.GetFloat64("scoring.sender.neutral_score")
	sc.Sender.AutomatedCeiling = c.GetFloat64("scoring.sender.automated_ceiling")
	sc.Sender.PinnedFloor = c.GetFloat64("scoring.sender.pinned_floor")

	sc.State.Baseline = c.GetFloat64("scoring.state.baseline")
	sc.State.UnreadPenalty = c.GetFloat64("scoring.state.unread_penalty")
	sc.State.IgnorePenalty = c.GetFloat64("scoring.state.ignore_penalty")
	sc.State.IgnorePenaltyCap = c.GetFloat64("scoring.state.ignore_penalty_cap")
	sc.State.ReadKeptBonus = c.GetFloat64("scoring.state.read_kept_bonus")
	sc.State.FlaggedBonus = c.GetFloat64("scoring.state.flagged_bonus")
	sc.State.DueTodayBonus = c.GetFloat64("scoring.state.due_today_bonus")
	sc.State.DueSoonBonus = c.GetFloat64("scoring.state.due_soon_bonus")
	sc.State.DueSoonDays = c.GetInt("scoring.state.due_soon_days")
	sc.State.HighImportanceBonus = c.GetFloat64("scoring.state.high_importance_bonus")
	sc.State.OffHoursBonus = c.GetFloat64("scoring.state.off_hours_bonus")
	sc.State.BusinessStartHour = c.GetInt("scoring.state.business_start_hour")
	sc.State.BusinessEndHour = c.GetInt("scoring.state.business_end_hour")

	sc.Recipient.ToMeBonus = c.GetFloat64("scoring.recipient.to_me_bonus")
	sc.Recipient.DirectToMeBonus = c.GetFloat64("scoring.recipient.direct_to_me_bonus")
	sc.Recipient.DirectMaxRecipients = c.GetInt("scoring.recipient.direct_max_recipients")
	sc.Recipient.ManyRecipientsPenalty = c.GetFloat64("scoring.recipient.many_recipients_penalty")
	sc.Recipient.ManyRecipientsThreshold = c.GetInt("scoring.recipient.many_recipients_threshold")
	sc.Recipient.CCMePenalty = c.GetFloat64("scoring.recipient.cc_me_penalty")

	sc.Analysis.MaxEmails = c.GetInt("scoring.analysis.max_emails")
	sc.Analysis.WindowDays = c.GetInt("scoring.analysis.window_days")
	sc.Analysis.IgnoredChecks = c.GetInt("scoring.analysis.ignored_checks")
	replyWindow, err := c.GetDuration("scoring.analysis.reply_window")
	if err != nil {
		return core.ScoringConfig{}, fmt.Errorf("invalid scoring.analysis.reply_window: %w", err)
	}
	sc.Analysis.ReplyWindow = replyWindow

	sc.Decision.HighPriorityThreshold = c.GetFloat64("scoring.decision.high_priority_threshold")
	sc.Decision.MediumPriorityThreshold = c.GetFloat64("scoring.decision.medium_priority_threshold")
	sc.Decision.ArchiveThreshold = c.GetFloat64("scoring.decision.archive_threshold")
	sc.Decision.TaskReminderDays = c.GetInt("scoring.decision.task_reminder_days")

	sc.Normalizer.Strategy = c.GetString("scoring.normalizer.strategy")
	sc.Normalizer.SimilarityThreshold = c.GetFloat64("scoring.normalizer.similarity_threshold")

	if c.IsSet("scoring.categories") {
		for name, raw := range c.v.GetStringMapString("scoring.categories") {
			p, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return core.ScoringConfig{}, fmt.Errorf("invalid scoring.categories.%s: %w", name, err)
			}
			sc.CategoryPriorities[core.Category(name)] = p
		}
	}

	if err := sc.Validate(); err != nil {
		return core.ScoringConfig{}, err
	}
	return sc, nil
}
