package core

import "strings"

const maxTopReasons = 5

// Policy holds the classification thresholds. Like Weights these are
// tunable configuration, constrained only by the ordering guarantees the
// combiner enforces.
type Policy struct {
	// PhishingFloor is the minimum riskScore consistent with a phishing
	// classification; an external riskScore at or above it also satisfies
	// the critical-signal elevation to phishing.
	PhishingFloor int
	// SafeCeiling is the maximum riskScore consistent with safe.
	SafeCeiling int
	// FallbackHigh is the heuristic score at which the fallback branch
	// stops returning suspicious and considers phishing.
	FallbackHigh int
	// FallbackLow is the heuristic score below which the fallback branch
	// may return safe.
	FallbackLow int
}

// DefaultPolicy returns the shipped thresholds.
func DefaultPolicy() Policy {
	return Policy{
		PhishingFloor: 70,
		SafeCeiling:   30,
		FallbackHigh:  70,
		FallbackLow:   30,
	}
}

// Combiner merges heuristic evidence and the external verdict into the
// final classification. Its one hard guarantee: local signals can raise
// severity but nothing, including a permissive external verdict, can
// lower it below what the evidence mandates.
type Combiner struct {
	policy Policy
}

// NewCombiner creates a combiner with the given policy.
func NewCombiner(policy Policy) *Combiner {
	return &Combiner{policy: policy}
}

// Combine applies the elevation rules in order and produces the immutable
// result. LatencyMs and WithinSLO are stamped by the orchestrator.
func (c *Combiner) Combine(ev *HeuristicEvidence, verdict *ExternalVerdict) *ClassificationResult {
	var classification Classification
	var score int

	if verdict.Obtained() {
		classification = verdict.Classification
		score = verdict.RiskScore
	} else {
		classification = c.fallbackClassification(ev)
		score = ev.HeuristicScore
	}

	if ev.CriticalSignalPresent {
		classification = classification.AtLeast(ClassificationSuspicious)
		if verdict.Obtained() &&
			(verdict.Classification == ClassificationPhishing || verdict.RiskScore >= c.policy.PhishingFloor) {
			classification = ClassificationPhishing
		}
	}

	if ev.HeuristicScore > score {
		score = ev.HeuristicScore
	}
	score = clampScore(score)

	// Keep score and classification monotonically consistent.
	if classification == ClassificationPhishing && score < c.policy.PhishingFloor {
		score = c.policy.PhishingFloor
	}
	if classification == ClassificationSafe && score > c.policy.SafeCeiling {
		classification = ClassificationSuspicious
	}

	summary, actions := c.narrative(classification, verdict)

	return &ClassificationResult{
		Classification:      classification,
		RiskScore:           score,
		TopReasons:          c.mergeReasons(classification, ev, verdict),
		NonTechnicalSummary: summary,
		RecommendedActions:  actions,
		Evidence:            ev.Evidence,
	}
}

// fallbackClassification maps the heuristic score onto a classification
// when no external verdict exists. It never returns safe in the presence
// of a critical signal.
func (c *Combiner) fallbackClassification(ev *HeuristicEvidence) Classification {
	if ev.HeuristicScore >= c.policy.FallbackHigh {
		if ev.CriticalSignalPresent {
			return ClassificationPhishing
		}
		return ClassificationSuspicious
	}
	if ev.HeuristicScore < c.policy.FallbackLow && !ev.CriticalSignalPresent {
		return ClassificationSafe
	}
	return ClassificationSuspicious
}

// mergeReasons interleaves heuristic and external reasons: critical local
// findings first, then the external service's stated reasons, then the
// remaining local findings, deduplicated and capped.
func (c *Combiner) mergeReasons(classification Classification, ev *HeuristicEvidence, verdict *ExternalVerdict) []string {
	critical, secondary := heuristicReasons(ev)

	ordered := make([]string, 0, maxTopReasons)
	seen := make(map[string]bool)
	add := func(reason string) {
		reason = strings.TrimSpace(reason)
		key := strings.ToLower(reason)
		if reason == "" || seen[key] || len(ordered) >= maxTopReasons {
			return
		}
		seen[key] = true
		ordered = append(ordered, reason)
	}

	for _, r := range critical {
		add(r)
	}
	if verdict.Obtained() {
		for _, r := range verdict.TopReasons {
			add(r)
		}
	}
	for _, r := range secondary {
		add(r)
	}

	if len(ordered) == 0 && classification != ClassificationSafe {
		add("Conservative classification: external analysis unavailable")
	}
	return ordered
}

// heuristicReasons renders evidence as human-readable reasons, split into
// the critical findings that must lead and the rest.
func heuristicReasons(ev *HeuristicEvidence) (critical, secondary []string) {
	hf := ev.HeaderFindings

	if hf.AuthResult == AuthFail {
		critical = append(critical, "Email authentication failed (SPF/DKIM/DMARC)")
	}
	if hf.DisplayNameSpoof {
		critical = append(critical, "Display name imitates a trusted brand")
	}

	sawLookAlike := false
	for _, f := range ev.URLFindings {
		switch f.Reason {
		case URLLookAlikeDomain:
			if !sawLookAlike {
				critical = append(critical, "Contains a link to a look-alike domain")
				sawLookAlike = true
			}
		case URLIPLiteralHost:
			secondary = append(secondary, "Contains a link with a raw IP address host")
		case URLShortener:
			secondary = append(secondary, "Contains a shortened link")
		case URLNotAllowlisted:
			secondary = append(secondary, "Contains a link to an unrecognized domain")
		}
	}

	if hf.PunycodeDetected {
		secondary = append(secondary, "Punycode-encoded domain in headers")
	}
	if hf.ReplyToMismatch {
		secondary = append(secondary, "Reply-To domain differs from the sender")
	}
	if hf.SuspiciousRoutingChain {
		secondary = append(secondary, "Suspicious mail routing chain")
	}
	for _, sig := range ev.ContentSignals {
		secondary = append(secondary, signalReason(sig))
	}
	return critical, secondary
}

func signalReason(sig ContentSignal) string {
	switch sig {
	case SignalUrgency:
		return "Urgent or time-pressure language"
	case SignalCredentialRequest:
		return "Requests credentials or login details"
	case SignalFinancialBait:
		return "Requests payment or financial details"
	case SignalGenericGreeting:
		return "Generic impersonal greeting"
	case SignalMismatchedBranding:
		return "Misspelled brand name in content"
	case SignalThreatLanguage:
		return "Threatening account-status language"
	case SignalDangerousAttachment:
		return "Potentially dangerous attachment type"
	default:
		return string(sig)
	}
}

// narrative picks the user-facing summary and actions: the external
// service's own words when obtained, conservative defaults otherwise.
func (c *Combiner) narrative(classification Classification, verdict *ExternalVerdict) (string, []string) {
	if verdict.Obtained() && verdict.NonTechnicalSummary != "" {
		actions := verdict.RecommendedActions
		if len(actions) == 0 {
			actions = defaultActions(classification)
		}
		return verdict.NonTechnicalSummary, actions
	}
	return defaultSummary(classification), defaultActions(classification)
}

func defaultSummary(classification Classification) string {
	switch classification {
	case ClassificationPhishing:
		return "This message shows multiple signs of a phishing attempt. Do not interact with it."
	case ClassificationSuspicious:
		return "This message has characteristics that warrant caution. Verify it before acting."
	default:
		return "No significant risk signals were detected in this message."
	}
}

func defaultActions(classification Classification) []string {
	switch classification {
	case ClassificationPhishing:
		return []string{
			"Do not click any links or open attachments",
			"Report the message to your security team",
		}
	case ClassificationSuspicious:
		return []string{
			"Verify the sender through an official channel",
			"Be cautious with links and attachments",
		}
	default:
		return []string{"Keep the usual precautions"}
	}
}
