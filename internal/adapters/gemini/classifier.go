package gemini

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/gnuru1/InboxWrangler/internal/core"
	"github.com/gnuru1/InboxWrangler/internal/utils"
)

// Classifier is an implementation of the Classifier port using Google Gemini
type Classifier struct {
	client       *genai.Client
	model        *genai.GenerativeModel
	modelName    string
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

// NewClassifier creates a new Gemini-backed classifier
func NewClassifier(
	apiKey string,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxBodySize int,
	logger *zap.Logger,
) (*Classifier, error) {
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(temperature)
	model.SetTopP(topP)
	model.SetMaxOutputTokens(int32(maxTokens))

	return &Classifier{
		client:      client,
		model:       model,
		modelName:   modelName,
		maxBodySize: maxBodySize,
		logger:      logger,
		promptFormat: `You are an email analysis system. Analyze the following email and respond with a JSON object containing:
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
	}, nil
}

// Close closes the Gemini client
func (c *Classifier) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
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

	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("failed to generate content with Gemini: %w", err)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("empty response from Gemini")
	}

	responseText := fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0])
	return c.parseResponse(responseText)
}

// Name returns the classifier name
func (c *Classifier) Name() string {
	return "gemini"
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
		Source:          "gemini",
		Available:       true,
	}
	cls.Normalize()
	return cls, nil
}
