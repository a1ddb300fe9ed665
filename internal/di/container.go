package di

import (
	"go.uber.org/dig"

	"github.com/aruiz/llm-phish-triage/internal/config"
	"github.com/aruiz/llm-phish-triage/internal/core"
	"github.com/aruiz/llm-phish-triage/internal/factory"
	"github.com/aruiz/llm-phish-triage/internal/logging"
	"github.com/aruiz/llm-phish-triage/internal/utils"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewTextProcessorFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewLLMFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewReputationFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewPipelineFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewGatewayFactory); err != nil {
		return nil, err
	}

	// Register text processor
	if err := container.Provide(func(f *factory.TextProcessorFactory) *utils.TextProcessor {
		return f.CreateTextProcessor()
	}); err != nil {
		return nil, err
	}

	// Register classifier client
	if err := container.Provide(func(f *factory.LLMFactory) (core.ExternalClassifier, error) {
		return f.CreateClassifier()
	}); err != nil {
		return nil, err
	}

	// Register reputation store
	if err := container.Provide(func(f *factory.ReputationFactory) (core.ReputationStore, error) {
		return f.CreateReputationStore()
	}); err != nil {
		return nil, err
	}

	// Register pipeline
	if err := container.Provide(func(
		f *factory.PipelineFactory,
		classifier core.ExternalClassifier,
		reputation core.ReputationStore,
	) (*core.Pipeline, error) {
		return f.CreatePipeline(classifier, reputation)
	}); err != nil {
		return nil, err
	}

	// Register gateway
	if err := container.Provide(func(f *factory.GatewayFactory) (core.Gateway, error) {
		return f.CreateGateway()
	}); err != nil {
		return nil, err
	}

	return container, nil
}
