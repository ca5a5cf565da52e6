// ==============================================================================
// STATUS DECISION - internal/kyc/status.go
// ==============================================================================

package kyc

import "loanserve/internal/domain"

// Score thresholds for the per-document decision.
const (
	pendingThreshold = 2
)

// DecideStatus maps a confidence score onto a per-document verification
// status. Two or more matched fields route the document to the operator
// queue as PENDING; anything weaker lands in NEEDS_REVIEW. Scores of zero
// and one are deliberately not distinguished; the match reasons on the
// record carry the difference for reviewers.
func DecideStatus(score int) domain.VerificationStatus {
	if score >= pendingThreshold {
		return domain.StatusPending
	}
	return domain.StatusNeedsReview
}
