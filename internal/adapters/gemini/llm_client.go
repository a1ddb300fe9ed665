package gemini

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aruiz/llm-phish-triage/internal/core"
	"github.com/aruiz/llm-phish-triage/internal/utils"
	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// GeminiClient is an implementation of the ExternalClassifier interface using Google Gemini
type GeminiClient struct {
	client       *genai.Client
	model        *genai.GenerativeModel
	modelName    string
	maxTokens    int
	temperature  float32
	topP         float32
	maxBodySize  int
	logger       *zap.Logger
	text         *utils.TextProcessor
	promptFormat string
}

// NewGeminiClient creates a new Gemini client
func NewGeminiClient(
	apiKey string,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxBodySize int,
	logger *zap.Logger,
) (*GeminiClient, error) {
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(temperature)
	model.SetTopP(topP)
	model.SetMaxOutputTokens(int32(maxTokens))

	return &GeminiClient{
		client:       client,
		model:        model,
		modelName:    modelName,
		maxTokens:    maxTokens,
		temperature:  temperature,
		topP:         topP,
		maxBodySize:  maxBodySize,
		logger:       logger,
		text:         utils.NewTextProcessor(logger),
		promptFormat: phishPromptFormat,
	}, nil
}

const phishPromptFormat = `You are a phishing detection system. Analyze the following email (PII has been redacted) together with the pre-computed technical findings and classify it.
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

Respond only with the JSON object and nothing else.`

// Close closes the Gemini client
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// ClassifyEmail sends the redacted email to Gemini and parses its verdict
func (c *GeminiClient) ClassifyEmail(ctx context.Context, req *core.ModelRequest) (*core.ModelResponse, error) {
	prompt, err := buildPrompt(c.promptFormat, req, c.text, c.maxBodySize)
	if err != nil {
		return nil, err
	}

	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("failed to generate content with Gemini: %w", err)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("%w: empty response from Gemini", core.ErrMalformedResponse)
	}

	responseText := fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0])
	result, err := parseResponse(responseText)
	if err != nil {
		return nil, err
	}
	result.ModelUsed = c.modelName
	return result, nil
}

// buildPrompt renders the prompt from the redacted request. Shared by the
// provider adapters via copy of the same structure; the format string is
// per provider.
func buildPrompt(format string, req *core.ModelRequest, text *utils.TextProcessor, maxBodySize int) (string, error) {
	evidence, err := json.Marshal(req.Evidence)
	if err != nil {
		return "", fmt.Errorf("failed to encode evidence: %w", err)
	}
	body := text.ProcessText(req.RedactedBody, maxBodySize)
	return fmt.Sprintf(format, string(evidence), req.RedactedHeaders, body), nil
}

// parseResponse unmarshals the model output, scanning for an embedded
// JSON object when the direct parse fails. Every parse failure wraps
// core.ErrMalformedResponse.
func parseResponse(responseText string) (*core.ModelResponse, error) {
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
	return &result, nil
}
