package anthropic

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"go.uber.org/zap"

	"github.com/gnuru1/InboxWrangler/internal/core"
	"github.com/gnuru1/InboxWrangler/internal/utils"
)

// Classifier is an implementation of the Classifier port backed by the
// Anthropic Messages API.
type Classifier struct {
	client       anthropic.Client
	modelName    string
	maxTokens    int64
	maxBodySize  int
	logger       *zap.Logger
	promptFormat string
}

// classificationResponse represents the structured response from the model
type classificationResponse struct {
	Category        string   `json:"category"`
	Topics          []string `json:"topics"`
	ActionItems     []string `json:"action_items"`
	Urgency         string   `json:"urgency"`
	Sentiment       string   `json:"sentiment"`
	Entities        []string `json:"entities"`
	SuggestedFolder string   `json:"suggested_folder"`
}

const systemPrompt = `You are an email analysis system. Analyze the provided email and respond with a JSON object containing:
- category: one of "personal", "professional", "transactional", "newsletter", "promotional", "spam", "general"
- topics: list of 1-3 primary topics discussed (strings)
- action_items: list of tasks or requests found, empty list if none (strings)
- urgency: one of "urgent", "high", "medium", "low"
- sentiment: one of "positive", "neutral", "negative", "mixed"
- entities: list of important people, organizations or projects mentioned (strings)
- suggested_folder: a short folder name for filing this email, or "" if nothing specific fits

If unsure about a field, use a reasonable default (medium urgency, neutral sentiment, general category, empty lists).
Respond only with the JSON object and nothing else.`

// NewClassifier creates a new Anthropic-backed classifier
func NewClassifier(client anthropic.Client, modelName string, maxTokens int, maxBodySize int, logger *zap.Logger) *Classifier {
	return &Classifier{
		client:       client,
		modelName:    modelName,
		maxTokens:    int64(maxTokens),
		maxBodySize:  maxBodySize,
		logger:       logger,
		promptFormat: "Analyze the following email:\n\nFrom: %s\nSubject: %s\n\nBody:\n%s",
	}
}

// truncateBody truncates the email body if it exceeds the maximum size
func (c *Classifier) truncateBody(body string) string {
	if c.maxBodySize <= 0 || len(body) <= c.maxBodySize {
		return body
	}

	truncated := body[:c.maxBodySize]
	c.logger.Debug("Email body truncated",
		zap.Int("original_size", len(body)),
		zap.Int("truncated_size", len(truncated)),
		zap.Int("max_size", c.maxBodySize))

	return truncated + "\n[... Content truncated due to size limits ...]"
}

// Classify analyzes an email and extracts its classification
func (c *Classifier) Classify(ctx context.Context, subject, body, sender string) (*core.Classification, error) {
	prompt := fmt.Sprintf(c.promptFormat, sender, subject, c.truncateBody(body))

	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.modelName),
		MaxTokens: c.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create message with Anthropic: %w", err)
	}

	for _, block := range message.Content {
		if block.Type == "text" {
			return c.parseResponse(block.Text)
		}
	}
	return nil, fmt.Errorf("no text content in Anthropic response")
}

// Name returns the classifier name
func (c *Classifier) Name() string {
	return "anthropic"
}

func (c *Classifier) parseResponse(responseText string) (*core.Classification, error) {
	var parsed classificationResponse
	if err := json.Unmarshal([]byte(responseText), &parsed); err != nil {
		jsonStr, ok := utils.ExtractJSONObject(responseText)
		if !ok {
			return nil, fmt.Errorf("failed to extract JSON from model response: %w", err)
		}
		if err := json.Unmarshal([]byte(jsonStr), &parsed); err != nil {
			return nil, fmt.Errorf("failed to parse model response as JSON: %w", err)
		}
	}

	cls := &core.Classification{
		Category:        core.Category(parsed.Category),
		Topics:          parsed.Topics,
		ActionItems:     parsed.ActionItems,
		Urgency:         core.Urgency(parsed.Urgency),
		Sentiment:       parsed.Sentiment,
		Entities:        parsed.Entities,
		SuggestedFolder: parsed.SuggestedFolder,
		Source:          "anthropic",
		Available:       true,
	}
	cls.Normalize()
	return cls, nil
}
