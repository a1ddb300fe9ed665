package core

import (
	"context"
	"time"
)

// ExternalClassifier is the port implemented by the model provider
// adapters. Implementations return an error for every failure mode; the
// pipeline collapses errors into an Unavailable verdict and never lets
// them escape.
type ExternalClassifier interface {
	// ClassifyEmail sends redacted content plus heuristic evidence to the
	// external service and parses its response. Bounded by ctx.
	ClassifyEmail(ctx context.Context, req *ModelRequest) (*ModelResponse, error)
}

// ReputationStore is the optional domain-reputation collaborator. The
// pipeline only ever reads from it; writes belong to an external feeder.
type ReputationStore interface {
	// Lookup returns the reputation entry for a domain, or nil when the
	// domain is unknown.
	Lookup(ctx context.Context, domain string) (*DomainReputation, error)
}

// Redactor masks PII in text before it crosses the process boundary.
type Redactor interface {
	Redact(text string) string
	RedactHeaders(rawHeaders string) string
}

// HeaderAnalyzer inspects raw email headers for spoofing and routing
// anomalies.
type HeaderAnalyzer interface {
	Analyze(rawHeaders string, acct AccountContext) HeaderFindings
}

// URLAnalyzer extracts and scores the URLs found in an email body.
type URLAnalyzer interface {
	Analyze(ctx context.Context, htmlBody, textBody string, acct AccountContext) []URLFinding
}

// ContentAnalyzer matches bodies against the signal vocabulary and
// screens attachment metadata.
type ContentAnalyzer interface {
	Analyze(text, locale string) []ContentSignal
	StripHTML(html string) string
	AnalyzeAttachments(meta []AttachmentMeta) []ContentSignal
}

// Gateway is an intake surface that feeds requests into the pipeline
type Gateway interface {
	// Start starts serving. Non-blocking for network gateways.
	Start() error

	// Stop shuts the gateway down.
	Stop() error
}

// Clock abstracts wall-clock access so budget math is testable without
// real delays.
type Clock interface {
	Now() time.Time
	// After behaves like time.After.
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// RealClock returns the wall-clock implementation used outside tests.
func RealClock() Clock { return realClock{} }
