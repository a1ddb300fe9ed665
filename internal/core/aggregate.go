package core

// Weights are the additive scoring contributions of individual findings.
// They are policy parameters, tuned via configuration rather than code.
type Weights struct {
	AuthFail          int
	DisplayNameSpoof  int
	Punycode          int
	ReplyToMismatch   int
	SuspiciousRouting int

	URLLookAlike      int
	URLIPLiteral      int
	URLShortener      int
	URLNotAllowlisted int

	ContentSignal    int
	ContentSignalCap int
}

// DefaultWeights returns the shipped calibration.
func DefaultWeights() Weights {
	return Weights{
		AuthFail:          35,
		DisplayNameSpoof:  15,
		Punycode:          10,
		ReplyToMismatch:   10,
		SuspiciousRouting: 10,

		URLLookAlike:      25,
		URLIPLiteral:      20,
		URLShortener:      12,
		URLNotAllowlisted: 8,

		ContentSignal:    6,
		ContentSignalCap: 24,
	}
}

// Aggregator merges analyzer findings into heuristic evidence
type Aggregator struct {
	weights Weights
}

// NewAggregator creates an aggregator with the given weights.
func NewAggregator(weights Weights) *Aggregator {
	return &Aggregator{weights: weights}
}

// Aggregate produces the heuristic evidence and preliminary score.
// Deterministic: identical findings always yield identical evidence.
// Only the single highest-weight URL finding contributes to the score so
// link flooding cannot inflate it, but every finding stays in evidence.
func (a *Aggregator) Aggregate(hf HeaderFindings, urlFindings []URLFinding, signals []ContentSignal) *HeuristicEvidence {
	w := a.weights
	score := 0

	if hf.AuthResult == AuthFail {
		score += w.AuthFail
	}
	if hf.DisplayNameSpoof {
		score += w.DisplayNameSpoof
	}
	if hf.PunycodeDetected {
		score += w.Punycode
	}
	if hf.ReplyToMismatch {
		score += w.ReplyToMismatch
	}
	if hf.SuspiciousRoutingChain {
		score += w.SuspiciousRouting
	}

	topURL := 0
	lookAlike := false
	for _, finding := range urlFindings {
		if finding.Reason == URLLookAlikeDomain {
			lookAlike = true
		}
		if uw := a.urlWeight(finding.Reason); uw > topURL {
			topURL = uw
		}
	}
	score += topURL

	contentScore := len(signals) * w.ContentSignal
	if contentScore > w.ContentSignalCap {
		contentScore = w.ContentSignalCap
	}
	score += contentScore

	return &HeuristicEvidence{
		Evidence: Evidence{
			HeaderFindings: hf,
			URLFindings:    urlFindings,
			ContentSignals: signals,
		},
		HeuristicScore:        clampScore(score),
		CriticalSignalPresent: hf.AuthResult == AuthFail && (hf.DisplayNameSpoof || lookAlike),
	}
}

func (a *Aggregator) urlWeight(reason URLReason) int {
	switch reason {
	case URLLookAlikeDomain:
		return a.weights.URLLookAlike
	case URLIPLiteralHost:
		return a.weights.URLIPLiteral
	case URLShortener:
		return a.weights.URLShortener
	case URLNotAllowlisted:
		return a.weights.URLNotAllowlisted
	default:
		return 0
	}
}
