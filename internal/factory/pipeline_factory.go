package factory

import (
	"fmt"

	"github.com/aruiz/llm-phish-triage/internal/config"
	"github.com/aruiz/llm-phish-triage/internal/content"
	"github.com/aruiz/llm-phish-triage/internal/core"
	"github.com/aruiz/llm-phish-triage/internal/headers"
	"github.com/aruiz/llm-phish-triage/internal/redact"
	"github.com/aruiz/llm-phish-triage/internal/urls"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// PipelineFactory assembles the classification pipeline from its
// configured collaborators.
type PipelineFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewPipelineFactory creates a new pipeline factory
func NewPipelineFactory(cfg *config.Config, logger *zap.Logger) *PipelineFactory {
	return &PipelineFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreatePipeline builds the pipeline over the given classifier and
// reputation store.
func (f *PipelineFactory) CreatePipeline(classifier core.ExternalClassifier, reputation core.ReputationStore) (*core.Pipeline, error) {
	totalBudget, err := f.cfg.GetDuration("pipeline.total_budget")
	if err != nil {
		return nil, fmt.Errorf("invalid total budget: %w", err)
	}
	heuristicBudget, err := f.cfg.GetDuration("pipeline.heuristic_budget")
	if err != nil {
		return nil, fmt.Errorf("invalid heuristic budget: %w", err)
	}

	headerAnalyzer := headers.NewAnalyzer(
		headers.DefaultBrands(),
		headers.WithMaxRelayHops(f.cfg.GetInt("headers.max_relay_hops")),
	)

	urlAnalyzer := urls.NewAnalyzer(urls.Config{
		Allowlist:     f.cfg.GetStringSlice("urls.allowlist"),
		BrandDomains:  urls.DefaultBrandDomains(),
		Shorteners:    urls.DefaultShorteners(),
		EditThreshold: f.cfg.GetInt("urls.edit_threshold"),
		MaxURLs:       f.cfg.GetInt("urls.max_urls"),
	}, reputation, f.logger)

	llmCfg := f.cfg.GetLLM()
	limiter := rate.NewLimiter(rate.Limit(llmCfg.RequestsPerSecond), llmCfg.Burst)

	return core.NewPipeline(core.PipelineOptions{
		Redactor:        redact.NewRedactor(),
		Headers:         headerAnalyzer,
		URLs:            urlAnalyzer,
		Content:         content.NewAnalyzer(),
		Aggregator:      core.NewAggregator(f.weights()),
		Combiner:        core.NewCombiner(f.policy()),
		Classifier:      classifier,
		Limiter:         limiter,
		Clock:           core.RealClock(),
		Logger:          f.logger.Sugar(),
		TotalBudget:     totalBudget,
		HeuristicBudget: heuristicBudget,
	}), nil
}

func (f *PipelineFactory) weights() core.Weights {
	return core.Weights{
		AuthFail:          f.cfg.GetInt("weights.auth_fail"),
		DisplayNameSpoof:  f.cfg.GetInt("weights.display_name_spoof"),
		Punycode:          f.cfg.GetInt("weights.punycode"),
		ReplyToMismatch:   f.cfg.GetInt("weights.reply_to_mismatch"),
		SuspiciousRouting: f.cfg.GetInt("weights.suspicious_routing"),
		URLLookAlike:      f.cfg.GetInt("weights.url_look_alike"),
		URLIPLiteral:      f.cfg.GetInt("weights.url_ip_literal"),
		URLShortener:      f.cfg.GetInt("weights.url_shortener"),
		URLNotAllowlisted: f.cfg.GetInt("weights.url_not_allowlisted"),
		ContentSignal:     f.cfg.GetInt("weights.content_signal"),
		ContentSignalCap:  f.cfg.GetInt("weights.content_signal_cap"),
	}
}

func (f *PipelineFactory) policy() core.Policy {
	return core.Policy{
		PhishingFloor: f.cfg.GetInt("policy.phishing_floor"),
		SafeCeiling:   f.cfg.GetInt("policy.safe_ceiling"),
		FallbackHigh:  f.cfg.GetInt("policy.fallback_high"),
		FallbackLow:   f.cfg.GetInt("policy.fallback_low"),
	}
}
