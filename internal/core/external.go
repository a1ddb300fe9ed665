package core

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrMalformedResponse marks provider responses that arrived but do not
// conform to the expected shape. Provider adapters wrap parse and
// validation failures with it so the pipeline can report the right
// unavailability reason.
var ErrMalformedResponse = errors.New("malformed model response")

// minExternalBudget is the smallest remaining budget worth spending on a
// network round trip.
const minExternalBudget = 50 * time.Millisecond

// callExternal wraps the classifier call and collapses every failure mode
// into an unavailable verdict. It never returns an error.
func (p *Pipeline) callExternal(ctx context.Context, req *ModelRequest, remaining time.Duration) *ExternalVerdict {
	if p.classifier == nil {
		return Unavailable(UnavailableTransportError)
	}
	if remaining <= minExternalBudget {
		return Unavailable(UnavailableBudgetExhausted)
	}
	if p.limiter != nil && !p.limiter.Allow() {
		return Unavailable(UnavailableRateLimited)
	}

	callCtx, cancel := context.WithTimeout(ctx, remaining)
	defer cancel()

	req.BudgetMs = remaining.Milliseconds()

	resp, err := p.classifier.ClassifyEmail(callCtx, req)
	if err != nil {
		return Unavailable(classifyFailure(err))
	}
	if err := validateResponse(resp); err != nil {
		p.logger.Warnw("Discarding malformed model response", "error", err)
		return Unavailable(UnavailableMalformed)
	}

	return &ExternalVerdict{
		Status:              VerdictObtained,
		Classification:      resp.Classification,
		RiskScore:           resp.RiskScore,
		TopReasons:          resp.TopReasons,
		NonTechnicalSummary: resp.NonTechnicalSummary,
		RecommendedActions:  resp.RecommendedActions,
		ModelUsed:           resp.ModelUsed,
	}
}

func classifyFailure(err error) UnavailableReason {
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return UnavailableTimeout
	case errors.Is(err, ErrMalformedResponse):
		return UnavailableMalformed
	default:
		return UnavailableTransportError
	}
}

// validateResponse enforces the response contract; adapters already parse
// JSON, this checks the semantic range of what they parsed.
func validateResponse(resp *ModelResponse) error {
	if resp == nil {
		return fmt.Errorf("%w: empty response", ErrMalformedResponse)
	}
	switch resp.Classification {
	case ClassificationPhishing, ClassificationSuspicious, ClassificationSafe:
	default:
		return fmt.Errorf("%w: unknown classification %q", ErrMalformedResponse, resp.Classification)
	}
	if resp.RiskScore < 0 || resp.RiskScore > 100 {
		return fmt.Errorf("%w: risk score %d out of range", ErrMalformedResponse, resp.RiskScore)
	}
	return nil
}
