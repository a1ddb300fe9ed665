package openai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aruiz/llm-phish-triage/internal/core"
	"github.com/aruiz/llm-phish-triage/internal/utils"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAIClient is an implementation of the ExternalClassifier interface using OpenAI
type OpenAIClient struct {
	client       *openai.Client
	modelName    string
	maxTokens    int
	temperature  float32
	topP         float32
	maxBodySize  int
	logger       *zap.Logger
	text         *utils.TextProcessor
	promptFormat string
}

// NewOpenAIClient creates a new OpenAI client
func NewOpenAIClient(
	apiKey string,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxBodySize int,
	logger *zap.Logger,
) *OpenAIClient {
	client := openai.NewClient(apiKey)

	return &OpenAIClient{
		client:      client,
		modelName:   modelName,
		maxTokens:   maxTokens,
		temperature: temperature,
		topP:        topP,
		maxBodySize: maxBodySize,
		logger:      logger,
		text:        utils.NewTextProcessor(logger),
		promptFormat: `You are a phishing detection system. Analyze the following email (PII has been redacted) together with the pre-computed technical findings and classify it.
Respond with a JSON object containing:
- classification: string, one of "phishing", "suspicious" or "safe"
- risk_score: integer between 0 and 100 (higher means more dangerous)
- top_reasons: array of short strings explaining the main risk factors
- non_technical_summary: string, one or two plain sentences for a non-technical reader
- recommended_actions: array of short strings telling the reader what to do

Technical findings:
%s

Email headers (redacted):
%s

Email body (redacted):
%s

Respond only with the JSON object and nothing else.`,
	}
}

// ClassifyEmail sends the redacted email to OpenAI and parses its verdict
func (c *OpenAIClient) ClassifyEmail(ctx context.Context, req *core.ModelRequest) (*core.ModelResponse, error) {
	evidence, err := json.Marshal(req.Evidence)
	if err != nil {
		return nil, fmt.Errorf("failed to encode evidence: %w", err)
	}
	body := c.text.ProcessText(req.RedactedBody, c.maxBodySize)
	prompt := fmt.Sprintf(c.promptFormat, string(evidence), req.RedactedHeaders, body)

	chatReq := openai.ChatCompletionRequest{
		Model: c.modelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are a phishing detection system. Respond only with JSON.",
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

	responseFormat := openai.ChatCompletionResponseFormat{
		Type: "json",
	}
	chatReq.ResponseFormat = &responseFormat

	resp, err := c.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion with OpenAI: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty response from OpenAI", core.ErrMalformedResponse)
	}

	responseText := resp.Choices[0].Message.Content

	var result core.ModelResponse
	if err := json.Unmarshal([]byte(responseText), &result); err != nil {
		jsonStr, extractErr := utils.ExtractJSONObject(responseText)
		if extractErr != nil {
			return nil, fmt.Errorf("%w: %v", core.ErrMalformedResponse, extractErr)
		}
		if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
			return nil, fmt.Errorf("%w: %v", core.ErrMalformedResponse, err)
		}
	}

	result.ModelUsed = c.modelName
	return &result, nil
}
