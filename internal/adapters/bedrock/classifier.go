package bedrock

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"go.uber.org/zap"

	"github.com/gnuru1/InboxWrangler/internal/core"
	"github.com/gnuru1/InboxWrangler/internal/utils"
)

// Classifier is an implementation of the Classifier port using Amazon Bedrock
type Classifier struct {
	client        *bedrockruntime.Client
	modelID       string
	maxTokens     int
	temperature   float32
	topP          float32
	maxBodySize   int
	logger        *zap.Logger
	promptFormat  string
	textProcessor *utils.TextProcessor
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

// NewClassifier creates a new Bedrock-backed classifier
func NewClassifier(
	client *bedrockruntime.Client,
	modelID string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxBodySize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *Classifier {
	return &Classifier{
		client:        client,
		modelID:       modelID,
		maxTokens:     maxTokens,
		temperature:   temperature,
		topP:          topP,
		maxBodySize:   maxBodySize,
		logger:        logger,
		textProcessor: textProcessor,
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
	}
}

func (c *Classifier) isAnthropicModel() bool {
	return strings.HasPrefix(c.modelID, "anthropic.")
}

func (c *Classifier) isAmazonTitanModel() bool {
	return strings.HasPrefix(c.modelID, "amazon.titan")
}

// Classify analyzes an email and extracts its classification
func (c *Classifier) Classify(ctx context.Context, subject, body, sender string) (*core.Classification, error) {
	// Process the body (truncate and sanitize)
	processedBody := c.textProcessor.ProcessText(body, c.maxBodySize)

	prompt := fmt.Sprintf(c.promptFormat, sender, subject, processedBody)

	// Create the request based on the model
	var payload []byte
	var err error

	if c.isAnthropicModel() {
		payload, err = json.Marshal(map[string]interface{}{
			"prompt":               fmt.Sprintf("\n\nHuman: %s\n\nAssistant:", prompt),
			"max_tokens_to_sample": c.maxTokens,
			"temperature":          c.temperature,
			"top_p":                c.topP,
		})
	} else if c.isAmazonTitanModel() {
		payload, err = json.Marshal(map[string]interface{}{
			"inputText": prompt,
			"textGenerationConfig": map[string]interface{}{
				"maxTokenCount": c.maxTokens,
				"temperature":   c.temperature,
				"topP":          c.topP,
			},
		})
	} else {
		payload, err = json.Marshal(map[string]interface{}{
			"prompt":      prompt,
			"max_tokens":  c.maxTokens,
			"temperature": c.temperature,
			"top_p":       c.topP,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request payload: %w", err)
	}

	resp, err := c.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     &c.modelID,
		Body:        payload,
		Accept:      aws.String("application/json"),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to invoke Bedrock model: %w", err)
	}

	responseText, err := c.extractResponseText(resp.Body)
	if err != nil {
		return nil, err
	}
	return c.parseResponse(responseText)
}

// Name returns the classifier name
func (c *Classifier) Name() string {
	return "bedrock"
}

// extractResponseText unwraps the model-family-specific response envelope
func (c *Classifier) extractResponseText(body []byte) (string, error) {
	if c.isAnthropicModel() {
		var claudeResp struct {
			Completion string `json:"completion"`
		}
		if err := json.Unmarshal(body, &claudeResp); err != nil {
			return "", fmt.Errorf("failed to unmarshal Claude response: %w", err)
		}
		return claudeResp.Completion, nil
	}

	if c.isAmazonTitanModel() {
		var titanResp struct {
			Results []struct {
				OutputText string `json:"outputText"`
			} `json:"results"`
		}
		if err := json.Unmarshal(body, &titanResp); err != nil {
			return "", fmt.Errorf("failed to unmarshal Titan response: %w", err)
		}
		if len(titanResp.Results) == 0 {
			return "", fmt.Errorf("empty response from Titan model")
		}
		return titanResp.Results[0].OutputText, nil
	}

	var genericResp struct {
		Output   string `json:"output"`
		Text     string `json:"text"`
		Response string `json:"response"`
	}
	if err := json.Unmarshal(body, &genericResp); err != nil {
		return "", fmt.Errorf("failed to unmarshal generic response: %w", err)
	}
	switch {
	case genericResp.Output != "":
		return genericResp.Output, nil
	case genericResp.Text != "":
		return genericResp.Text, nil
	case genericResp.Response != "":
		return genericResp.Response, nil
	default:
		return string(body), nil
	}
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
		Source:          "bedrock",
		Available:       true,
	}
	cls.Normalize()
	return cls, nil
}
