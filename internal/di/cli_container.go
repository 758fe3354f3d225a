package di

import (
	"flag"
	"time"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/gnuru1/InboxWrangler/internal/adapters/store"
	"github.com/gnuru1/InboxWrangler/internal/config"
	"github.com/gnuru1/InboxWrangler/internal/core"
	"github.com/gnuru1/InboxWrangler/internal/factory"
	"github.com/gnuru1/InboxWrangler/internal/logging"
	"github.com/gnuru1/InboxWrangler/internal/similarity"
	"github.com/gnuru1/InboxWrangler/internal/utils"
	"github.com/gnuru1/InboxWrangler/internal/whitelist"
)

// CLIFlags contains all command line flags for the one-shot scoring CLI
type CLIFlags struct {
	// Classifier provider flags
	Provider    string
	MaxTokens   int
	Temperature float64
	TopP        float64
	MaxBodySize int

	// Anthropic flags
	AnthropicAPIKey    string
	AnthropicModelName string

	// OpenAI flags
	OpenAIAPIKey    string
	OpenAIModelName string

	// Local model flags
	LocalBaseURL   string
	LocalModelName string

	// Gemini flags
	GeminiAPIKey    string
	GeminiModelName string

	// Bedrock flags
	BedrockRegion  string
	BedrockModelID string

	// Input flags
	InputFile  string
	StorePath  string
	Quiet      bool
	Verbose    bool
	JSONLog    bool
	ConfigFile string
}

// ParseFlags parses command line flags and returns a CLIFlags struct
func ParseFlags() *CLIFlags {
	flags := &CLIFlags{}

	// Classifier provider flags
	flag.StringVar(&flags.Provider, "provider", "rules", "Classifier provider (rules, openai, local, anthropic, gemini, bedrock)")
	flag.IntVar(&flags.MaxTokens, "max-tokens", 1000, "Maximum tokens for model response")
	flag.Float64Var(&flags.Temperature, "temperature", 0.1, "Temperature for model generation")
	flag.Float64Var(&flags.TopP, "top-p", 0.9, "Top-p for model generation")
	flag.IntVar(&flags.MaxBodySize, "max-body-size", 4096, "Maximum email body size to send to the model")

	// Anthropic flags
	flag.StringVar(&flags.AnthropicAPIKey, "anthropic-api-key", "", "API key for Anthropic")
	flag.StringVar(&flags.AnthropicModelName, "anthropic-model", "claude-3-5-haiku-latest", "Anthropic model name")

	// OpenAI flags
	flag.StringVar(&flags.OpenAIAPIKey, "openai-api-key", "", "API key for OpenAI")
	flag.StringVar(&flags.OpenAIModelName, "openai-model", "gpt-4o-mini", "OpenAI model name")

	// Local model flags
	flag.StringVar(&flags.LocalBaseURL, "local-base-url", "http://localhost:11434/v1", "Base URL for the local OpenAI-compatible endpoint")
	flag.StringVar(&flags.LocalModelName, "local-model", "llama3", "Local model name")

	// Gemini flags
	flag.StringVar(&flags.GeminiAPIKey, "gemini-api-key", "", "API key for Google Gemini")
	flag.StringVar(&flags.GeminiModelName, "gemini-model", "gemini-pro", "Gemini model name")

	// Bedrock flags
	flag.StringVar(&flags.BedrockRegion, "bedrock-region", "us-east-1", "AWS region for Bedrock")
	flag.StringVar(&flags.BedrockModelID, "bedrock-model", "anthropic.claude-v2", "Bedrock model ID")

	// Input flags
	flag.StringVar(&flags.InputFile, "file", "", "Input email file (use stdin if not specified)")
	flag.StringVar(&flags.StorePath, "store-path", "", "SQLite state store holding a prior analysis; sender history is neutral without one")
	flag.BoolVar(&flags.Quiet, "quiet", false, "Print only the final score and rule; exit 0 for high priority, 1 for medium, 2 otherwise")
	flag.BoolVar(&flags.Verbose, "verbose", false, "Enable verbose logging")
	flag.BoolVar(&flags.JSONLog, "json-log", false, "Output logs in JSON format")
	flag.StringVar(&flags.ConfigFile, "config", "", "Path to config file (overrides command line flags)")

	flag.Parse()
	return flags
}

// BuildCLIContainer creates and configures a dependency injection container
// for the one-shot scoring CLI. It runs without a cache, without persistence
// and without mailbox access.
func BuildCLIContainer(flags *CLIFlags) (*dig.Container, error) {
	container := dig.New()

	// Register flags
	if err := container.Provide(func() *CLIFlags { return flags }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(flags *CLIFlags) (*zap.Logger, error) {
		return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
	}); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(func(flags *CLIFlags, logger *zap.Logger) (*config.Config, error) {
		if flags.ConfigFile != "" {
			cfg, err := config.New()
			if err != nil {
				return nil, err
			}
			logger.Info("Loaded configuration from file", zap.String("file", cfg.GetViper().ConfigFileUsed()))
			return cfg, nil
		}

		// Create config from command line flags
		return createConfigFromFlags(flags), nil
	}); err != nil {
		return nil, err
	}

	// Register text processor
	if err := container.Provide(utils.NewTextProcessor); err != nil {
		return nil, err
	}

	// Register the state store so a persisted analysis informs one-shot
	// scoring. An unusable store degrades to neutral sender history.
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) core.StateStore {
		st, err := factory.NewStoreFactory(cfg, logger).CreateStateStore()
		if err != nil {
			logger.Warn("State store unavailable; scoring without sender history", zap.Error(err))
			return store.NewMemoryStore()
		}
		return st
	}); err != nil {
		return nil, err
	}

	// Register classifier factory
	if err := container.Provide(factory.NewClassifierFactory); err != nil {
		return nil, err
	}

	// Register primary classifier
	if err := container.Provide(func(f *factory.ClassifierFactory) (core.Classifier, error) {
		return f.CreateClassifier()
	}); err != nil {
		return nil, err
	}

	// Register organizer service with no cache
	if err := container.Provide(func(
		classifier core.Classifier,
		f *factory.ClassifierFactory,
		st core.StateStore,
		cfg *config.Config,
		logger *zap.Logger,
	) (*core.OrganizerService, error) {
		fallback := f.CreateFallback()

		clsCfg, err := cfg.GetClassifier()
		if err != nil {
			return nil, err
		}
		scoring, err := cfg.Scoring()
		if err != nil {
			return nil, err
		}
		sim, err := similarity.New(scoring.Normalizer.Strategy)
		if err != nil {
			return nil, err
		}
		user := cfg.GetUser()
		pinned := whitelist.NewChecker(user.PinnedSenders, logger)

		return core.NewOrganizerService(
			classifier,
			fallback,
			nil, // no cache for one-shot scoring
			st,
			sim,
			pinned,
			scoring,
			user.Addresses,
			false,
			time.Duration(0),
			clsCfg.Timeout,
			logger,
		), nil
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// createConfigFromFlags creates a configuration from command line flags
func createConfigFromFlags(flags *CLIFlags) *config.Config {
	v := config.NewEmptyViper()

	// Set classifier provider
	v.Set("classifier.provider", flags.Provider)
	v.Set("classifier.breaker.enabled", false)

	// Without an explicit store path the run is stateless.
	if flags.StorePath != "" {
		v.Set("store.type", "sqlite")
		v.Set("store.sqlite_path", flags.StorePath)
	} else {
		v.Set("store.type", "memory")
	}

	// Set provider-specific configuration
	switch flags.Provider {
	case "anthropic":
		v.Set("anthropic.api_key", flags.AnthropicAPIKey)
		v.Set("anthropic.model_name", flags.AnthropicModelName)
		v.Set("anthropic.max_tokens", flags.MaxTokens)
		v.Set("anthropic.max_body_size", flags.MaxBodySize)
	case "openai":
		v.Set("openai.api_key", flags.OpenAIAPIKey)
		v.Set("openai.model_name", flags.OpenAIModelName)
		v.Set("openai.max_tokens", flags.MaxTokens)
		v.Set("openai.temperature", flags.Temperature)
		v.Set("openai.top_p", flags.TopP)
		v.Set("openai.max_body_size", flags.MaxBodySize)
	case "local":
		v.Set("local.base_url", flags.LocalBaseURL)
		v.Set("local.model_name", flags.LocalModelName)
		v.Set("local.max_tokens", flags.MaxTokens)
		v.Set("local.temperature", flags.Temperature)
		v.Set("local.top_p", flags.TopP)
		v.Set("local.max_body_size", flags.MaxBodySize)
	case "gemini":
		v.Set("gemini.api_key", flags.GeminiAPIKey)
		v.Set("gemini.model_name", flags.GeminiModelName)
		v.Set("gemini.max_tokens", flags.MaxTokens)
		v.Set("gemini.temperature", flags.Temperature)
		v.Set("gemini.top_p", flags.TopP)
		v.Set("gemini.max_body_size", flags.MaxBodySize)
	case "bedrock":
		v.Set("bedrock.region", flags.BedrockRegion)
		v.Set("bedrock.model_id", flags.BedrockModelID)
		v.Set("bedrock.max_tokens", flags.MaxTokens)
		v.Set("bedrock.temperature", flags.Temperature)
		v.Set("bedrock.top_p", flags.TopP)
		v.Set("bedrock.max_body_size", flags.MaxBodySize)
	}

	return config.NewFromViper(v)
}
