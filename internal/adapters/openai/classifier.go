package openai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/gnuru1/InboxWrangler/internal/core"
	"github.com/gnuru1/InboxWrangler/internal/utils"
)

// Classifier is an implementation of the Classifier port backed by the
// OpenAI chat completion API. With a custom base URL it also fronts any
// OpenAI-compatible local model server.
type Classifier struct {
	client       *openai.Client
	name         string
	modelName    string
	maxTokens    int
	temperature  float32
	topP         float32
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

const systemPrompt = "You are an email analysis system. Respond only with JSON."

// NewClassifier creates a new OpenAI-backed classifier. name distinguishes
// the hosted API from local OpenAI-compatible endpoints in logs.
func NewClassifier(
	client *openai.Client,
	name string,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxBodySize int,
	logger *zap.Logger,
) *Classifier {
	return &Classifier{
		client:      client,
		name:        name,
		modelName:   modelName,
		maxTokens:   maxTokens,
		temperature: temperature,
		topP:        topP,
		maxBodySize: maxBodySize,
		logger:      logger,
		promptFormat: `Analyze the following email and respond with a JSON object containing:
- category: one of "personal", "professional", "transactional", "newsletter", "promotional", "spam", "general"
- topics: list of 1-3 primary topics discussed (strings)
- action_items: list of tasks or requests found, empty list if none (strings)
- urgency: one of "urgent", "high", "medium", "low"
- sentiment: one of "positive", "neutral", "negative", "mixed"
- entities: list of important people, organizations or projects mentioned (strings)
- suggested_folder: a short folder name for filing this email, or "" if nothing specific fits

Email:
From: %s
Subject: %s
Body:
%s

If unsure about a field, use a reasonable default (medium urgency, neutral sentiment, general category, empty lists).
Respond only with the JSON object and nothing else.`,
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

	req := openai.ChatCompletionRequest{
		Model: c.modelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		TopP:        c.topP,
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion with %s: %w", c.name, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty response from %s", c.name)
	}

	return c.parseResponse(resp.Choices[0].Message.Content)
}

// Name returns the classifier name
func (c *Classifier) Name() string {
	return c.name
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
		Source:          c.name,
		Available:       true,
	}
	cls.Normalize()
	return cls, nil
}
