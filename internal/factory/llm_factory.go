package factory

import (
	"fmt"

	"github.com/aruiz/llm-phish-triage/internal/adapters/bedrock"
	"github.com/aruiz/llm-phish-triage/internal/adapters/gemini"
	"github.com/aruiz/llm-phish-triage/internal/adapters/openai"
	"github.com/aruiz/llm-phish-triage/internal/config"
	"github.com/aruiz/llm-phish-triage/internal/core"
	"github.com/aruiz/llm-phish-triage/internal/utils"
	"go.uber.org/zap"
)

// LLMFactory creates external classifier clients
type LLMFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewLLMFactory creates a new LLM factory
func NewLLMFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *LLMFactory {
	return &LLMFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateClassifier creates a classifier client based on the configuration
func (f *LLMFactory) CreateClassifier() (core.ExternalClassifier, error) {
	llmConfig := f.cfg.GetLLM()

	switch llmConfig.Provider {
	case "bedrock":
		factory := bedrock.NewFactory(f.cfg.GetBedrock(), f.logger, f.textProcessor)
		return factory.CreateClassifier()
	case "gemini":
		geminiCfg := f.cfg.GetGemini()
		if geminiCfg.APIKey == "" {
			return nil, fmt.Errorf("gemini API key is required")
		}
		factory := gemini.NewFactory(
			geminiCfg.APIKey,
			geminiCfg.ModelName,
			geminiCfg.MaxTokens,
			geminiCfg.Temperature,
			geminiCfg.TopP,
			geminiCfg.MaxBodySize,
			f.logger,
		)
		return factory.CreateClassifier()
	case "openai":
		openaiCfg := f.cfg.GetOpenAI()
		if openaiCfg.APIKey == "" {
			return nil, fmt.Errorf("openai API key is required")
		}
		factory := openai.NewFactory(
			openaiCfg.APIKey,
			openaiCfg.ModelName,
			openaiCfg.MaxTokens,
			openaiCfg.Temperature,
			openaiCfg.TopP,
			openaiCfg.MaxBodySize,
			f.logger,
		)
		return factory.CreateClassifier()
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", llmConfig.Provider)
	}
}
