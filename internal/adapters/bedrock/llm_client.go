package bedrock

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aruiz/llm-phish-triage/internal/core"
	"github.com/aruiz/llm-phish-triage/internal/utils"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"go.uber.org/zap"
)

// BedrockClient is an implementation of the ExternalClassifier interface using Amazon Bedrock
type BedrockClient struct {
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

// NewBedrockClient creates a new Bedrock client
func NewBedrockClient(
	client *bedrockruntime.Client,
	modelID string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxBodySize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *BedrockClient {
	return &BedrockClient{
		client:        client,
		modelID:       modelID,
		maxTokens:     maxTokens,
		temperature:   temperature,
		topP:          topP,
		maxBodySize:   maxBodySize,
		logger:        logger,
		textProcessor: textProcessor,
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

// ClassifyEmail sends the redacted email to Bedrock and parses its verdict
func (c *BedrockClient) ClassifyEmail(ctx context.Context, req *core.ModelRequest) (*core.ModelResponse, error) {
	evidence, err := json.Marshal(req.Evidence)
	if err != nil {
		return nil, fmt.Errorf("failed to encode evidence: %w", err)
	}
	processedBody := c.textProcessor.ProcessText(req.RedactedBody, c.maxBodySize)
	prompt := fmt.Sprintf(c.promptFormat, string(evidence), req.RedactedHeaders, processedBody)

	// Request payload shape depends on the model family
	var payload []byte

	if c.isAnthropicModel() {
		payload, err = json.Marshal(map[string]interface{}{
			"prompt":               prompt,
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

	result.ModelUsed = c.modelID
	return &result, nil
}

// extractResponseText unwraps the model-family specific envelope around
// the generated text.
func (c *BedrockClient) extractResponseText(body []byte) (string, error) {
	if c.isAnthropicModel() {
		var claudeResp struct {
			Completion string `json:"completion"`
		}
		if err := json.Unmarshal(body, &claudeResp); err != nil {
			return "", fmt.Errorf("%w: failed to unmarshal Claude response: %v", core.ErrMalformedResponse, err)
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
			return "", fmt.Errorf("%w: failed to unmarshal Titan response: %v", core.ErrMalformedResponse, err)
		}
		if len(titanResp.Results) == 0 {
			return "", fmt.Errorf("%w: empty response from Titan model", core.ErrMalformedResponse)
		}
		return titanResp.Results[0].OutputText, nil
	}

	var genericResp struct {
		Output   string `json:"output"`
		Text     string `json:"text"`
		Response string `json:"response"`
	}
	if err := json.Unmarshal(body, &genericResp); err != nil {
		return "", fmt.Errorf("%w: failed to unmarshal generic response: %v", core.ErrMalformedResponse, err)
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

// isAnthropicModel checks if the model is an Anthropic Claude model
func (c *BedrockClient) isAnthropicModel() bool {
	return strings.HasPrefix(c.modelID, "anthropic.claude")
}

// isAmazonTitanModel checks if the model is an Amazon Titan model
func (c *BedrockClient) isAmazonTitanModel() bool {
	return strings.HasPrefix(c.modelID, "amazon.titan")
}
