package usecases

import (
	"fmt"

	"github.com/samirrijal/wanderplan/internal/core/domain"
)

const (
	// RetryLimit is how many corrective drafts a run may request.
	RetryLimit = 1
	// HardLimitBuffer is how far over the limit, in minutes, a plan may run
	// before a corrective draft is requested.
	HardLimitBuffer = 30
)

// Review decides whether a reconciled itinerary is accepted. Plans under
// the limit or within the buffer are accepted; plans far over it get one
// corrective draft, after which they are accepted and flagged.
func Review(it *domain.Itinerary, durationLimit, retryCount int) domain.Decision {
	diff := it.TotalDuration - durationLimit

	if retryCount >= RetryLimit {
		return domain.Decision{Verdict: domain.VerdictAccept, OverBudget: diff > 0}
	}

	if diff > HardLimitBuffer {
		return domain.Decision{
			Verdict:    domain.VerdictRetry,
			Feedback:   retryFeedback(it.TotalDuration, durationLimit),
			RetryCount: retryCount + 1,
		}
	}

	return domain.Decision{Verdict: domain.VerdictAccept, OverBudget: diff > 0}
}

func retryFeedback(actual, limit int) string {
	return fmt.Sprintf(
		"The plan takes %d minutes, which significantly exceeds the limit of %d minutes. "+
			"Please reduce the number of spots or choose closer locations to fit within the limit.",
		actual, limit,
	)
}
