package factory

import (
	"context"
	"fmt"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	gopenai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/gnuru1/InboxWrangler/internal/adapters/anthropic"
	"github.com/gnuru1/InboxWrangler/internal/adapters/bedrock"
	"github.com/gnuru1/InboxWrangler/internal/adapters/gemini"
	"github.com/gnuru1/InboxWrangler/internal/adapters/openai"
	"github.com/gnuru1/InboxWrangler/internal/adapters/rules"
	"github.com/gnuru1/InboxWrangler/internal/config"
	"github.com/gnuru1/InboxWrangler/internal/core"
	"github.com/gnuru1/InboxWrangler/internal/utils"
)

// ClassifierFactory creates classification backends based on configuration
type ClassifierFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewClassifierFactory creates a new classifier factory
func NewClassifierFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *ClassifierFactory {
	return &ClassifierFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateClassifier creates the configured primary classifier. Remote backends
// are wrapped in a circuit breaker when classifier.breaker.enabled is set.
func (f *ClassifierFactory) CreateClassifier() (core.Classifier, error) {
	clsCfg, err := f.cfg.GetClassifier()
	if err != nil {
		return nil, err
	}

	classifier, err := f.createProvider(clsCfg.Provider)
	if err != nil {
		return nil, err
	}
	if clsCfg.BreakerEnabled && clsCfg.Provider != "rules" {
		classifier = newBreakerClassifier(classifier, clsCfg, f.logger)
	}
	return classifier, nil
}

// CreateFallback creates the rules classifier used when the primary backend
// fails or times out.
func (f *ClassifierFactory) CreateFallback() core.Classifier {
	return rules.NewClassifier(f.logger)
}

func (f *ClassifierFactory) createProvider(provider string) (core.Classifier, error) {
	switch provider {
	case "rules":
		return rules.NewClassifier(f.logger), nil
	case "openai":
		openaiCfg := f.cfg.GetOpenAI()
		if openaiCfg.APIKey == "" {
			return nil, fmt.Errorf("openai API key is required")
		}
		return f.createOpenAI(openaiCfg, "openai"), nil
	case "local":
		return f.createOpenAI(f.cfg.GetLocal(), "local"), nil
	case "anthropic":
		return f.createAnthropic()
	case "gemini":
		geminiCfg := f.cfg.GetGemini()
		if geminiCfg.APIKey == "" {
			return nil, fmt.Errorf("gemini API key is required")
		}
		return gemini.NewClassifier(
			geminiCfg.APIKey,
			geminiCfg.ModelName,
			geminiCfg.MaxTokens,
			geminiCfg.Temperature,
			geminiCfg.TopP,
			geminiCfg.MaxBodySize,
			f.logger,
		)
	case "bedrock":
		return f.createBedrock()
	default:
		return nil, fmt.Errorf("unsupported classifier provider: %s", provider)
	}
}

func (f *ClassifierFactory) createOpenAI(cfg config.OpenAIConfig, name string) core.Classifier {
	clientCfg := gopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	client := gopenai.NewClientWithConfig(clientCfg)
	return openai.NewClassifier(
		client,
		name,
		cfg.ModelName,
		cfg.MaxTokens,
		cfg.Temperature,
		cfg.TopP,
		cfg.MaxBodySize,
		f.logger,
	)
}

func (f *ClassifierFactory) createAnthropic() (core.Classifier, error) {
	cfg := f.cfg.GetAnthropic()
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}
	client := anthropicsdk.NewClient(anthropicopt.WithAPIKey(cfg.APIKey))
	return anthropic.NewClassifier(client, cfg.ModelName, cfg.MaxTokens, cfg.MaxBodySize, f.logger), nil
}

func (f *ClassifierFactory) createBedrock() (core.Classifier, error) {
	cfg := f.cfg.GetBedrock()
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	client := bedrockruntime.NewFromConfig(awsCfg)
	return bedrock.NewClassifier(
		client,
		cfg.ModelID,
		cfg.MaxTokens,
		cfg.Temperature,
		cfg.TopP,
		cfg.MaxBodySize,
		f.logger,
		f.textProcessor,
	), nil
}
