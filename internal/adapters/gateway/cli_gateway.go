package gateway

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/mail"
	"strings"

	"github.com/aruiz/llm-phish-triage/internal/core"
	"go.uber.org/zap"
)

// CliGateway implements a one-shot command-line classification of a
// single message read from a file or stdin.
type CliGateway struct {
	pipeline   *core.Pipeline
	logger     *zap.Logger
	verbose    bool
	accountCtx core.AccountContext
}

// NewCliGateway creates a new CLI gateway
func NewCliGateway(pipeline *core.Pipeline, logger *zap.Logger, verbose bool, accountCtx core.AccountContext) (*CliGateway, error) {
	return &CliGateway{
		pipeline:   pipeline,
		logger:     logger,
		verbose:    verbose,
		accountCtx: accountCtx,
	}, nil
}

// ProcessMessage classifies a raw message and prints a report
func (g *CliGateway) ProcessMessage(ctx context.Context, r io.Reader) (*core.ClassificationResult, error) {
	rawData, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read message: %w", err)
	}

	msg, err := mail.ReadMessage(bytes.NewReader(rawData))
	if err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}

	parts, err := extractParts(msg)
	if err != nil {
		g.logger.Warn("Failed to extract message parts", zap.Error(err))
		parts = &messageParts{}
	}

	input := &core.EmailInput{
		RawHeaders:      rawHeaderBlock(msg),
		TextBody:        parts.textBody,
		HTMLBody:        parts.htmlBody,
		AttachmentsMeta: parts.attachments,
		AccountContext:  g.accountCtx,
	}

	fmt.Printf("\n=== Email Summary ===\n")
	fmt.Printf("From: %s\n", msg.Header.Get("From"))
	fmt.Printf("To: %s\n", msg.Header.Get("To"))
	fmt.Printf("Subject: %s\n", msg.Header.Get("Subject"))
	fmt.Printf("Attachments: %d\n", len(parts.attachments))

	if g.verbose {
		preview := parts.textBody
		if len(preview) > 500 {
			preview = preview[:500] + "..."
		}
		fmt.Printf("\nBody preview:\n%s\n", preview)
	}

	fmt.Printf("\n=== Analysis ===\n")
	result := g.pipeline.Classify(ctx, input)

	fmt.Printf("\n=== Results ===\n")
	fmt.Printf("Classification: %s\n", result.Classification)
	fmt.Printf("Risk score: %d\n", result.RiskScore)
	if len(result.TopReasons) > 0 {
		fmt.Printf("Top reasons:\n")
		for _, reason := range result.TopReasons {
			fmt.Printf("  - %s\n", reason)
		}
	}
	fmt.Printf("Summary: %s\n", result.NonTechnicalSummary)
	if len(result.RecommendedActions) > 0 {
		fmt.Printf("Recommended actions:\n")
		for _, action := range result.RecommendedActions {
			fmt.Printf("  - %s\n", action)
		}
	}
	fmt.Printf("Latency: %dms (within SLO: %t)\n", result.LatencyMs, result.WithinSLO)

	if g.verbose {
		fmt.Printf("\n=== Evidence ===\n")
		fmt.Printf("Auth result: %s\n", result.Evidence.HeaderFindings.AuthResult)
		for _, f := range result.Evidence.URLFindings {
			fmt.Printf("URL %s: %s\n", f.URL, f.Reason)
		}
		if len(result.Evidence.ContentSignals) > 0 {
			tags := make([]string, 0, len(result.Evidence.ContentSignals))
			for _, sig := range result.Evidence.ContentSignals {
				tags = append(tags, string(sig))
			}
			fmt.Printf("Content signals: %s\n", strings.Join(tags, ", "))
		}
	}

	return result, nil
}

// Start is a no-op for the CLI gateway
func (g *CliGateway) Start() error {
	return nil
}

// Stop is a no-op for the CLI gateway
func (g *CliGateway) Stop() error {
	return nil
}
