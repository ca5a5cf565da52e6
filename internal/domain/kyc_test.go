package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func statusPtr(s VerificationStatus) *VerificationStatus { return &s }

func TestAggregateStatus_BothUnsetDefaultsPending(t *testing.T) {
	assert.Equal(t, StatusPending, AggregateStatus(nil, nil))
}

func TestAggregateStatus_MostSevereWins(t *testing.T) {
	cases := []struct {
		name    string
		aadhaar *VerificationStatus
		pan     *VerificationStatus
		want    VerificationStatus
	}{
		{"rejected dominates verified", statusPtr(StatusRejected), statusPtr(StatusVerified), StatusRejected},
		{"needs review dominates pending", statusPtr(StatusNeedsReview), statusPtr(StatusPending), StatusNeedsReview},
		{"pending dominates auto approved", statusPtr(StatusPending), statusPtr(StatusAutoApproved), StatusPending},
		{"auto approved dominates verified", statusPtr(StatusAutoApproved), statusPtr(StatusVerified), StatusAutoApproved},
		{"single slot set", statusPtr(StatusVerified), nil, StatusVerified},
		{"single slot needs review", nil, statusPtr(StatusNeedsReview), StatusNeedsReview},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, AggregateStatus(tc.aadhaar, tc.pan))
		})
	}
}

func TestAggregateStatus_OrderIndependent(t *testing.T) {
	statuses := []VerificationStatus{StatusPending, StatusNeedsReview, StatusVerified, StatusAutoApproved, StatusRejected}
	for _, a := range statuses {
		for _, b := range statuses {
			assert.Equal(t, AggregateStatus(statusPtr(a), statusPtr(b)), AggregateStatus(statusPtr(b), statusPtr(a)),
				"aggregate of %s and %s should commute", a, b)
		}
	}
}

func TestAggregateStatus_Idempotent(t *testing.T) {
	for s := range statusSeverity {
		assert.Equal(t, s, AggregateStatus(statusPtr(s), statusPtr(s)))
	}
}

func TestCustomerOverallStatus(t *testing.T) {
	c := &Customer{
		AadhaarStatus: statusPtr(StatusVerified),
		PANStatus:     statusPtr(StatusNeedsReview),
	}
	assert.Equal(t, StatusNeedsReview, c.OverallStatus())
}
