package core

// Classification is the final verdict for an analyzed email
type Classification string

const (
	ClassificationPhishing   Classification = "phishing"
	ClassificationSuspicious Classification = "suspicious"
	ClassificationSafe       Classification = "safe"
)

// severity maps classifications onto an ordering so the elevation policy
// can compare them. Higher means more severe.
func (c Classification) severity() int {
	switch c {
	case ClassificationPhishing:
		return 2
	case ClassificationSuspicious:
		return 1
	default:
		return 0
	}
}

// AtLeast returns the more severe of c and floor.
func (c Classification) AtLeast(floor Classification) Classification {
	if floor.severity() > c.severity() {
		return floor
	}
	return c
}

// AuthResult is the collapsed outcome of the authentication mechanisms
// found in the headers (SPF/DKIM/DMARC and friends)
type AuthResult string

const (
	AuthPass    AuthResult = "pass"
	AuthFail    AuthResult = "fail"
	AuthNone    AuthResult = "none"
	AuthUnknown AuthResult = "unknown"
)

// HeaderFindings holds the spoofing signals derived from the raw headers
type HeaderFindings struct {
	AuthResult             AuthResult `json:"auth_result"`
	ReplyToMismatch        bool       `json:"reply_to_mismatch"`
	DisplayNameSpoof       bool       `json:"display_name_spoof"`
	PunycodeDetected       bool       `json:"punycode_detected"`
	SuspiciousRoutingChain bool       `json:"suspicious_routing_chain"`
}

// NeutralHeaderFindings returns the safe default used when header analysis
// could not run or did not finish within its budget.
func NeutralHeaderFindings() HeaderFindings {
	return HeaderFindings{AuthResult: AuthUnknown}
}

// URLReason explains why a URL was reported
type URLReason string

const (
	URLLookAlikeDomain URLReason = "look_alike_domain"
	URLNotAllowlisted  URLReason = "not_allowlisted"
	URLIPLiteralHost   URLReason = "ip_literal_host"
	URLShortener       URLReason = "shortener"
	URLNone            URLReason = "none"
)

// URLFinding is one reported URL. Findings keep first-occurrence order so
// evidence renders reproducibly.
type URLFinding struct {
	URL    string    `json:"url"`
	Reason URLReason `json:"reason"`
}

// ContentSignal is a tag from the fixed content-signal vocabulary
type ContentSignal string

const (
	SignalUrgency             ContentSignal = "urgency"
	SignalCredentialRequest   ContentSignal = "credential_request"
	SignalFinancialBait       ContentSignal = "financial_bait"
	SignalGenericGreeting     ContentSignal = "generic_greeting"
	SignalMismatchedBranding  ContentSignal = "mismatched_branding"
	SignalThreatLanguage      ContentSignal = "threat_language"
	SignalDangerousAttachment ContentSignal = "dangerous_attachment"
)

// SignalVocabulary is the canonical ordering for content signals. Analyzers
// return matched tags in this order so identical inputs produce identical
// evidence.
var SignalVocabulary = []ContentSignal{
	SignalUrgency,
	SignalCredentialRequest,
	SignalFinancialBait,
	SignalGenericGreeting,
	SignalMismatchedBranding,
	SignalThreatLanguage,
	SignalDangerousAttachment,
}

// AttachmentMeta describes an attachment without carrying its bytes
type AttachmentMeta struct {
	Filename    string `json:"filename"`
	MimeType    string `json:"mime_type"`
	SizeBytes   int64  `json:"size_bytes"`
	ContentHash string `json:"content_hash"`
}

// AccountContext is the per-request trust configuration snapshot. It is
// provided by the caller and never mutated here.
type AccountContext struct {
	UserLocale     string   `json:"user_locale"`
	TrustedSenders []string `json:"trusted_senders"`
	OwnedDomains   []string `json:"owned_domains"`
}

// EmailInput is the raw material for one classification request. It is
// owned exclusively by a single pipeline invocation.
type EmailInput struct {
	RawHeaders      string           `json:"raw_headers"`
	HTMLBody        string           `json:"html_body"`
	TextBody        string           `json:"text_body"`
	AttachmentsMeta []AttachmentMeta `json:"attachments_meta"`
	AccountContext  AccountContext   `json:"account_context"`
}

// Evidence is the structured evidence bundle returned with every result
type Evidence struct {
	HeaderFindings HeaderFindings  `json:"header_findings"`
	URLFindings    []URLFinding    `json:"url_findings"`
	ContentSignals []ContentSignal `json:"nlp_signals"`
}

// HeuristicEvidence is the aggregate of all local analysis plus the
// preliminary score. It is the sole heuristic input to the external
// classifier and to the decision combiner.
type HeuristicEvidence struct {
	Evidence
	HeuristicScore        int  `json:"heuristic_score"`
	CriticalSignalPresent bool `json:"critical_signal_present"`
	// Partial marks that the heuristic join missed its sub-budget and the
	// evidence carries safe defaults for the stages that did not finish.
	Partial bool `json:"partial"`
}

// VerdictStatus distinguishes the two outcomes of the external call
type VerdictStatus string

const (
	VerdictObtained    VerdictStatus = "obtained"
	VerdictUnavailable VerdictStatus = "unavailable"
)

// UnavailableReason records why the external verdict is missing
type UnavailableReason string

const (
	UnavailableTimeout         UnavailableReason = "timeout"
	UnavailableTransportError  UnavailableReason = "transport_error"
	UnavailableMalformed       UnavailableReason = "malformed_response"
	UnavailableBudgetExhausted UnavailableReason = "budget_exhausted"
	UnavailableRateLimited     UnavailableReason = "rate_limited"
)

// ExternalVerdict is the collapsed outcome of the classification-service
// call. The client never produces a partial state: anything short of a
// fully valid response becomes Unavailable.
type ExternalVerdict struct {
	Status VerdictStatus

	// Populated only when Status == VerdictObtained
	Classification      Classification
	RiskScore           int
	TopReasons          []string
	NonTechnicalSummary string
	RecommendedActions  []string
	ModelUsed           string

	// Populated only when Status == VerdictUnavailable
	Reason UnavailableReason
}

// Obtained reports whether the external service produced a usable verdict.
func (v *ExternalVerdict) Obtained() bool {
	return v != nil && v.Status == VerdictObtained
}

// Unavailable builds the unavailable variant.
func Unavailable(reason UnavailableReason) *ExternalVerdict {
	return &ExternalVerdict{Status: VerdictUnavailable, Reason: reason}
}

// ClassificationResult is the final, immutable output of one request
type ClassificationResult struct {
	Classification      Classification `json:"classification"`
	RiskScore           int            `json:"risk_score"`
	TopReasons          []string       `json:"top_reasons"`
	NonTechnicalSummary string         `json:"non_technical_summary"`
	RecommendedActions  []string       `json:"recommended_actions"`
	Evidence            Evidence       `json:"evidence"`
	LatencyMs           int64          `json:"latency_ms"`
	WithinSLO           bool           `json:"within_slo"`
}

// ModelRequest carries the redacted content and heuristic context sent to
// the external classification service. Nothing in it may contain
// unredacted PII.
type ModelRequest struct {
	RedactedBody    string
	RedactedHeaders string
	HTMLSnippet     string
	Evidence        *HeuristicEvidence
	AttachmentsMeta []AttachmentMeta
	AccountContext  AccountContext
	BudgetMs        int64
}

// ModelResponse is a parsed, validated response from an external provider.
// Providers return an error instead for anything that does not parse into
// this shape.
type ModelResponse struct {
	Classification      Classification `json:"classification"`
	RiskScore           int            `json:"risk_score"`
	TopReasons          []string       `json:"top_reasons"`
	NonTechnicalSummary string         `json:"non_technical_summary"`
	RecommendedActions  []string       `json:"recommended_actions"`
	ModelUsed           string         `json:"-"`
}

// DomainReputation is a read-only entry from the reputation collaborator
type DomainReputation struct {
	Domain   string
	Trusted  bool
	Score    float64
	LastSeen int64
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
