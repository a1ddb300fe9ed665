package core

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const htmlSnippetLimit = 2048

// Pipeline orchestrates one classification request end to end: redact,
// fan out the heuristic analyzers, aggregate, consult the external
// classifier within the remaining budget, and combine. It owns all
// wall-clock awareness; the analyzers and the combiner are pure.
type Pipeline struct {
	redactor   Redactor
	headers    HeaderAnalyzer
	urls       URLAnalyzer
	content    ContentAnalyzer
	aggregator *Aggregator
	combiner   *Combiner
	classifier ExternalClassifier
	limiter    *rate.Limiter
	clock      Clock
	logger     *zap.SugaredLogger

	totalBudget     time.Duration
	heuristicBudget time.Duration
}

// PipelineOptions carries the orchestrator collaborators and budgets.
type PipelineOptions struct {
	Redactor        Redactor
	Headers         HeaderAnalyzer
	URLs            URLAnalyzer
	Content         ContentAnalyzer
	Aggregator      *Aggregator
	Combiner        *Combiner
	Classifier      ExternalClassifier
	Limiter         *rate.Limiter
	Clock           Clock
	Logger          *zap.SugaredLogger
	TotalBudget     time.Duration
	HeuristicBudget time.Duration
}

// NewPipeline creates a pipeline. Clock defaults to the wall clock and
// the budgets to 3s total / 700ms heuristic when unset.
func NewPipeline(opts PipelineOptions) *Pipeline {
	if opts.Clock == nil {
		opts.Clock = RealClock()
	}
	if opts.TotalBudget <= 0 {
		opts.TotalBudget = 3 * time.Second
	}
	if opts.HeuristicBudget <= 0 {
		opts.HeuristicBudget = 700 * time.Millisecond
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}
	return &Pipeline{
		redactor:        opts.Redactor,
		headers:         opts.Headers,
		urls:            opts.URLs,
		content:         opts.Content,
		aggregator:      opts.Aggregator,
		combiner:        opts.Combiner,
		classifier:      opts.Classifier,
		limiter:         opts.Limiter,
		clock:           opts.Clock,
		logger:          opts.Logger,
		totalBudget:     opts.TotalBudget,
		heuristicBudget: opts.HeuristicBudget,
	}
}

// Classify runs the full pipeline for one email. It always returns a
// result; every internal failure degrades into conservative defaults
// rather than an error.
func (p *Pipeline) Classify(ctx context.Context, input *EmailInput) *ClassificationResult {
	start := p.clock.Now()

	ctx, cancel := context.WithTimeout(ctx, p.totalBudget)
	defer cancel()

	ev := p.runHeuristics(ctx, input)

	elapsed := p.clock.Now().Sub(start)
	verdict := p.callExternal(ctx, p.buildModelRequest(input, ev), p.totalBudget-elapsed)

	result := p.combiner.Combine(ev, verdict)

	latency := p.clock.Now().Sub(start)
	result.LatencyMs = latency.Milliseconds()
	result.WithinSLO = latency <= p.totalBudget

	p.logger.Infow("Classified email",
		"classification", result.Classification,
		"risk_score", result.RiskScore,
		"external_status", verdict.Status,
		"partial", ev.Partial,
		"latency_ms", result.LatencyMs)

	return result
}

// runHeuristics fans the three analyzers out as goroutines and joins on
// completion or heuristic sub-budget expiry. Stages that miss the budget
// contribute safe defaults and mark the evidence partial.
func (p *Pipeline) runHeuristics(ctx context.Context, input *EmailInput) *HeuristicEvidence {
	headerCh := make(chan HeaderFindings, 1)
	urlCh := make(chan []URLFinding, 1)
	signalCh := make(chan []ContentSignal, 1)

	go func() {
		headerCh <- p.headers.Analyze(input.RawHeaders, input.AccountContext)
	}()
	go func() {
		urlCh <- p.urls.Analyze(ctx, input.HTMLBody, input.TextBody, input.AccountContext)
	}()
	go func() {
		signalCh <- p.runContent(input)
	}()

	findings := NeutralHeaderFindings()
	var urlFindings []URLFinding
	var signals []ContentSignal
	partial := false

	deadline := p.clock.After(p.heuristicBudget)
	for pending := 3; pending > 0; {
		select {
		case findings = <-headerCh:
			headerCh = nil
			pending--
		case urlFindings = <-urlCh:
			urlCh = nil
			pending--
		case signals = <-signalCh:
			signalCh = nil
			pending--
		case <-deadline:
			partial = true
			pending = 0
			p.logger.Warnw("Heuristic stage budget expired, proceeding with partial evidence")
		}
	}

	ev := p.aggregator.Aggregate(findings, urlFindings, signals)
	ev.Partial = partial
	return ev
}

// runContent analyzes the effective text plus the attachment metadata.
// Attachment signals sort after vocabulary signals, preserving the
// canonical ordering.
func (p *Pipeline) runContent(input *EmailInput) []ContentSignal {
	text := input.TextBody
	if text == "" && input.HTMLBody != "" {
		text = p.content.StripHTML(input.HTMLBody)
	}
	signals := p.content.Analyze(text, input.AccountContext.UserLocale)
	return append(signals, p.content.AnalyzeAttachments(input.AttachmentsMeta)...)
}

// buildModelRequest assembles the redacted payload for the external
// classifier. Raw content never crosses this boundary.
func (p *Pipeline) buildModelRequest(input *EmailInput, ev *HeuristicEvidence) *ModelRequest {
	body := input.TextBody
	if body == "" && input.HTMLBody != "" {
		body = p.content.StripHTML(input.HTMLBody)
	}

	snippet := input.HTMLBody
	if len(snippet) > htmlSnippetLimit {
		snippet = snippet[:htmlSnippetLimit]
	}

	return &ModelRequest{
		RedactedBody:    p.redactor.Redact(body),
		RedactedHeaders: p.redactor.RedactHeaders(input.RawHeaders),
		HTMLSnippet:     p.redactor.Redact(snippet),
		Evidence:        ev,
		AttachmentsMeta: input.AttachmentsMeta,
		AccountContext:  input.AccountContext,
	}
}
