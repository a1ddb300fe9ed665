package core

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

// fakeClock pins Now and lets the test decide whether the heuristic
// deadline ever fires.
type fakeClock struct {
	now     time.Time
	afterCh chan time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

// After returns a nil channel when undefined, which never fires.
func (c *fakeClock) After(time.Duration) <-chan time.Time { return c.afterCh }

type stubRedactor struct{}

func (stubRedactor) Redact(text string) string              { return "[r]" + text }
func (stubRedactor) RedactHeaders(rawHeaders string) string { return "[rh]" + rawHeaders }

type stubHeaderAnalyzer struct {
	findings HeaderFindings
}

func (s *stubHeaderAnalyzer) Analyze(string, AccountContext) HeaderFindings {
	return s.findings
}

type stubURLAnalyzer struct {
	findings []URLFinding
	block    chan struct{}
}

func (s *stubURLAnalyzer) Analyze(context.Context, string, string, AccountContext) []URLFinding {
	if s.block != nil {
		<-s.block
	}
	return s.findings
}

type stubContentAnalyzer struct {
	signals    []ContentSignal
	attSignals []ContentSignal
}

func (s *stubContentAnalyzer) Analyze(string, string) []ContentSignal     { return s.signals }
func (s *stubContentAnalyzer) StripHTML(html string) string               { return html }
func (s *stubContentAnalyzer) AnalyzeAttachments([]AttachmentMeta) []ContentSignal {
	return s.attSignals
}

type stubClassifier struct {
	resp    *ModelResponse
	err     error
	lastReq *ModelRequest
}

func (s *stubClassifier) ClassifyEmail(_ context.Context, req *ModelRequest) (*ModelResponse, error) {
	s.lastReq = req
	return s.resp, s.err
}

func newTestPipeline(opts PipelineOptions) *Pipeline {
	if opts.Redactor == nil {
		opts.Redactor = stubRedactor{}
	}
	if opts.Headers == nil {
		opts.Headers = &stubHeaderAnalyzer{findings: HeaderFindings{AuthResult: AuthPass}}
	}
	if opts.URLs == nil {
		opts.URLs = &stubURLAnalyzer{}
	}
	if opts.Content == nil {
		opts.Content = &stubContentAnalyzer{}
	}
	if opts.Aggregator == nil {
		opts.Aggregator = NewAggregator(DefaultWeights())
	}
	if opts.Combiner == nil {
		opts.Combiner = NewCombiner(DefaultPolicy())
	}
	if opts.Clock == nil {
		opts.Clock = newFakeClock()
	}
	return NewPipeline(opts)
}

func TestClassifyCleanEmail(t *testing.T) {
	classifier := &stubClassifier{resp: &ModelResponse{
		Classification: ClassificationSafe,
		RiskScore:      3,
	}}
	p := newTestPipeline(PipelineOptions{Classifier: classifier})

	got := p.Classify(context.Background(), &EmailInput{
		RawHeaders: "From: a@example.com\n",
		TextBody:   "See you at the meeting tomorrow.",
	})

	if got == nil {
		t.Fatal("Classify returned nil")
	}
	if got.Classification != ClassificationSafe {
		t.Errorf("Classification = %q, want safe", got.Classification)
	}
	if !got.WithinSLO {
		t.Error("WithinSLO = false with a pinned clock")
	}
}

func TestClassifyExternalUnavailableFallback(t *testing.T) {
	classifier := &stubClassifier{err: errors.New("connection refused")}
	p := newTestPipeline(PipelineOptions{
		Headers: &stubHeaderAnalyzer{findings: HeaderFindings{
			AuthResult:       AuthFail,
			DisplayNameSpoof: true,
		}},
		Classifier: classifier,
	})

	got := p.Classify(context.Background(), &EmailInput{RawHeaders: "From: x\n", TextBody: "hi"})

	// Auth fail plus spoof is critical: the fallback must not say safe.
	if got.Classification == ClassificationSafe {
		t.Errorf("Classification = safe despite critical evidence and no external verdict")
	}
	if len(got.TopReasons) == 0 {
		t.Error("TopReasons empty for a non-safe fallback result")
	}
}

func TestClassifyDeterministic(t *testing.T) {
	input := &EmailInput{
		RawHeaders: "From: a@example.com\n",
		TextBody:   "Urgent: verify your account at http://paypa1.com/x",
	}
	build := func() *Pipeline {
		return newTestPipeline(PipelineOptions{
			Headers: &stubHeaderAnalyzer{findings: HeaderFindings{AuthResult: AuthFail}},
			URLs: &stubURLAnalyzer{findings: []URLFinding{
				{URL: "http://paypa1.com/x", Reason: URLLookAlikeDomain},
			}},
			Content: &stubContentAnalyzer{signals: []ContentSignal{SignalUrgency, SignalCredentialRequest}},
			Classifier: &stubClassifier{resp: &ModelResponse{
				Classification: ClassificationPhishing,
				RiskScore:      88,
				TopReasons:     []string{"Credential harvesting"},
			}},
		})
	}

	first := build().Classify(context.Background(), input)
	second := build().Classify(context.Background(), input)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("identical inputs produced different results:\n%+v\n%+v", first, second)
	}
}

func TestClassifyPartialJoin(t *testing.T) {
	clock := newFakeClock()
	clock.afterCh = make(chan time.Time, 1)
	clock.afterCh <- clock.now

	block := make(chan struct{})
	defer close(block)

	p := newTestPipeline(PipelineOptions{
		URLs:       &stubURLAnalyzer{block: block, findings: []URLFinding{{URL: "http://x/", Reason: URLNotAllowlisted}}},
		Classifier: &stubClassifier{err: errors.New("unreachable")},
		Clock:      clock,
	})

	got := p.Classify(context.Background(), &EmailInput{RawHeaders: "From: x\n", TextBody: "hi"})

	if got == nil {
		t.Fatal("Classify returned nil")
	}
	// The blocked URL stage contributes nothing.
	if len(got.Evidence.URLFindings) != 0 {
		t.Errorf("URLFindings = %+v, want none from an expired stage", got.Evidence.URLFindings)
	}
}

func TestClassifyScenarios(t *testing.T) {
	tests := []struct {
		name       string
		headers    HeaderFindings
		urlFinds   []URLFinding
		signals    []ContentSignal
		classifier *stubClassifier
		wantClass  func(Classification) bool
		wantScore  func(int) bool
	}{
		{
			name:    "clean mail",
			headers: HeaderFindings{AuthResult: AuthPass},
			classifier: &stubClassifier{resp: &ModelResponse{
				Classification: ClassificationSafe,
				RiskScore:      4,
			}},
			wantClass: func(c Classification) bool { return c == ClassificationSafe },
			wantScore: func(s int) bool { return s <= 30 },
		},
		{
			name: "spoofed brand with auth failure, external unreachable",
			headers: HeaderFindings{
				AuthResult:       AuthFail,
				DisplayNameSpoof: true,
			},
			urlFinds: []URLFinding{{URL: "http://paypa1.com/x", Reason: URLLookAlikeDomain}},
			classifier: &stubClassifier{
				err: fmt.Errorf("request: %w", context.DeadlineExceeded),
			},
			wantClass: func(c Classification) bool { return c != ClassificationSafe },
			wantScore: func(s int) bool { return s >= 70 },
		},
		{
			name:    "borderline content with trustworthy headers",
			headers: HeaderFindings{AuthResult: AuthPass},
			signals: []ContentSignal{SignalUrgency},
			classifier: &stubClassifier{resp: &ModelResponse{
				Classification: ClassificationSuspicious,
				RiskScore:      55,
			}},
			wantClass: func(c Classification) bool { return c == ClassificationSuspicious },
			wantScore: func(s int) bool { return s >= 55 },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPipeline(PipelineOptions{
				Headers:    &stubHeaderAnalyzer{findings: tt.headers},
				URLs:       &stubURLAnalyzer{findings: tt.urlFinds},
				Content:    &stubContentAnalyzer{signals: tt.signals},
				Classifier: tt.classifier,
			})

			got := p.Classify(context.Background(), &EmailInput{RawHeaders: "From: x\n", TextBody: "body"})
			if !tt.wantClass(got.Classification) {
				t.Errorf("Classification = %q", got.Classification)
			}
			if !tt.wantScore(got.RiskScore) {
				t.Errorf("RiskScore = %d", got.RiskScore)
			}
			if got.Evidence.HeaderFindings != tt.headers {
				t.Errorf("evidence headers = %+v, want %+v", got.Evidence.HeaderFindings, tt.headers)
			}
		})
	}
}

func TestClassifierReceivesRedactedPayload(t *testing.T) {
	classifier := &stubClassifier{resp: &ModelResponse{
		Classification: ClassificationSafe,
		RiskScore:      1,
	}}
	p := newTestPipeline(PipelineOptions{Classifier: classifier})

	p.Classify(context.Background(), &EmailInput{
		RawHeaders: "From: jane@example.com\n",
		TextBody:   "Call me at 555-123-4567",
	})

	req := classifier.lastReq
	if req == nil {
		t.Fatal("classifier was never called")
	}
	if !strings.HasPrefix(req.RedactedBody, "[r]") {
		t.Errorf("RedactedBody = %q, redaction missing", req.RedactedBody)
	}
	if !strings.HasPrefix(req.RedactedHeaders, "[rh]") {
		t.Errorf("RedactedHeaders = %q, redaction missing", req.RedactedHeaders)
	}
	if req.BudgetMs <= 0 {
		t.Errorf("BudgetMs = %d, want positive", req.BudgetMs)
	}
	if req.Evidence == nil {
		t.Error("Evidence missing from model request")
	}
}

func TestBuildModelRequestSnippetCap(t *testing.T) {
	p := newTestPipeline(PipelineOptions{})

	input := &EmailInput{HTMLBody: strings.Repeat("a", htmlSnippetLimit*2)}
	req := p.buildModelRequest(input, &HeuristicEvidence{})
	if len(req.HTMLSnippet) != htmlSnippetLimit+len("[r]") {
		t.Errorf("HTMLSnippet length = %d, want capped at %d", len(req.HTMLSnippet), htmlSnippetLimit)
	}
}

func TestCallExternalFailureModes(t *testing.T) {
	tests := []struct {
		name       string
		classifier ExternalClassifier
		limiter    *rate.Limiter
		remaining  time.Duration
		wantReason UnavailableReason
	}{
		{
			name:       "no classifier configured",
			remaining:  time.Second,
			wantReason: UnavailableTransportError,
		},
		{
			name:       "budget exhausted",
			classifier: &stubClassifier{},
			remaining:  10 * time.Millisecond,
			wantReason: UnavailableBudgetExhausted,
		},
		{
			name:       "rate limited",
			classifier: &stubClassifier{},
			limiter:    rate.NewLimiter(rate.Limit(0), 0),
			remaining:  time.Second,
			wantReason: UnavailableRateLimited,
		},
		{
			name:       "deadline exceeded",
			classifier: &stubClassifier{err: fmt.Errorf("call: %w", context.DeadlineExceeded)},
			remaining:  time.Second,
			wantReason: UnavailableTimeout,
		},
		{
			name:       "malformed response error",
			classifier: &stubClassifier{err: fmt.Errorf("parse: %w", ErrMalformedResponse)},
			remaining:  time.Second,
			wantReason: UnavailableMalformed,
		},
		{
			name:       "transport error",
			classifier: &stubClassifier{err: errors.New("connection reset")},
			remaining:  time.Second,
			wantReason: UnavailableTransportError,
		},
		{
			name: "unknown classification in response",
			classifier: &stubClassifier{resp: &ModelResponse{
				Classification: "maybe",
				RiskScore:      50,
			}},
			remaining:  time.Second,
			wantReason: UnavailableMalformed,
		},
		{
			name: "risk score out of range",
			classifier: &stubClassifier{resp: &ModelResponse{
				Classification: ClassificationPhishing,
				RiskScore:      250,
			}},
			remaining:  time.Second,
			wantReason: UnavailableMalformed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPipeline(PipelineOptions{
				Classifier: tt.classifier,
				Limiter:    tt.limiter,
			})
			got := p.callExternal(context.Background(), &ModelRequest{}, tt.remaining)
			if got.Obtained() {
				t.Fatalf("verdict obtained, want unavailable %q", tt.wantReason)
			}
			if got.Reason != tt.wantReason {
				t.Errorf("Reason = %q, want %q", got.Reason, tt.wantReason)
			}
		})
	}
}

func TestCallExternalObtained(t *testing.T) {
	classifier := &stubClassifier{resp: &ModelResponse{
		Classification:      ClassificationSuspicious,
		RiskScore:           64,
		TopReasons:          []string{"Unverified sender"},
		NonTechnicalSummary: "Treat with caution.",
		ModelUsed:           "test-model",
	}}
	p := newTestPipeline(PipelineOptions{Classifier: classifier})

	got := p.callExternal(context.Background(), &ModelRequest{}, time.Second)
	if !got.Obtained() {
		t.Fatalf("verdict unavailable (%q), want obtained", got.Reason)
	}
	if got.Classification != ClassificationSuspicious || got.RiskScore != 64 {
		t.Errorf("verdict = %+v", got)
	}
	if got.ModelUsed != "test-model" {
		t.Errorf("ModelUsed = %q", got.ModelUsed)
	}
}
