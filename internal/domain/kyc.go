// ==============================================================================
// KYC DOMAIN TYPES - internal/domain/kyc.go
// ==============================================================================
// Document kinds, verification statuses, extraction results, and the
// severity-ranked aggregation used for the customer-level KYC status
// ==============================================================================

package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// DocumentKind identifies which identity document a verification targets.
type DocumentKind string

const (
	DocumentKindAadhaar DocumentKind = "AADHAAR"
	DocumentKindPAN     DocumentKind = "PAN"
)

// ExtractionSource records which artifact type a verification consumed.
type ExtractionSource string

const (
	ExtractionSourceZip  ExtractionSource = "zip"
	ExtractionSourcePDF  ExtractionSource = "pdf"
	ExtractionSourceNone ExtractionSource = "none"
)

// VerificationStatus is the per-document verification outcome.
type VerificationStatus string

const (
	StatusPending      VerificationStatus = "PENDING"
	StatusNeedsReview  VerificationStatus = "NEEDS_REVIEW"
	StatusVerified     VerificationStatus = "VERIFIED"
	StatusAutoApproved VerificationStatus = "AUTO_APPROVED"
	StatusRejected     VerificationStatus = "REJECTED"
)

// statusSeverity ranks statuses so that the most severe per-document outcome
// always dominates the customer-level status.
var statusSeverity = map[VerificationStatus]int{
	StatusRejected:     100,
	StatusNeedsReview:  80,
	StatusPending:      60,
	StatusAutoApproved: 50,
	StatusVerified:     40,
}

// Severity returns the ranking weight of a status; unset statuses rank zero.
func (s VerificationStatus) Severity() int {
	return statusSeverity[s]
}

// AggregateStatus derives the customer-level KYC status from the two
// per-document status slots. The most severe status wins; when both slots are
// unset the customer defaults to PENDING.
func AggregateStatus(aadhaar, pan *VerificationStatus) VerificationStatus {
	overall := StatusPending
	best := 0
	for _, s := range []*VerificationStatus{aadhaar, pan} {
		if s == nil {
			continue
		}
		if sev := s.Severity(); sev > best {
			best = sev
			overall = *s
		}
	}
	return overall
}

// ExtractedFields is the identity data derived from a document, either
// heuristically from raw text or structurally from an offline e-KYC package.
// Fields are empty strings when undetected. RawSample is bounded and only
// ever appears in the unredacted internal record.
type ExtractedFields struct {
	PAN       string `json:"pan,omitempty"`
	AadhaarNo string `json:"aadhaar_no,omitempty"`
	DOB       string `json:"dob,omitempty"`
	Name      string `json:"name,omitempty"`
	Gender    string `json:"gender,omitempty"`
	RawSample string `json:"raw_sample,omitempty"`
}

// Value implements driver.Valuer so extracted fields persist as JSONB.
func (e ExtractedFields) Value() (driver.Value, error) {
	return json.Marshal(e)
}

// Scan implements sql.Scanner for JSONB columns.
func (e *ExtractedFields) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, e)
	case string:
		return json.Unmarshal([]byte(v), e)
	case nil:
		*e = ExtractedFields{}
		return nil
	default:
		return fmt.Errorf("unsupported type %T for ExtractedFields", src)
	}
}

// StringList is a JSONB-persisted slice of strings (scorer reasons).
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		l = StringList{}
	}
	return json.Marshal(l)
}

func (l *StringList) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	case nil:
		*l = nil
		return nil
	default:
		return fmt.Errorf("unsupported type %T for StringList", src)
	}
}

// ConfidenceAssessment is the scorer output: an integer count of matching
// evidence rules plus human-readable reasons, immutable once computed.
type ConfidenceAssessment struct {
	Score   int        `json:"score"`
	Reasons StringList `json:"reasons"`
}

// MatchFlags reports which scorer rules fired, for client display.
type MatchFlags struct {
	PANMatch     bool `json:"pan_match"`
	AadhaarMatch bool `json:"aadhaar_match"`
	DOBMatch     bool `json:"dob_match"`
}

// SanitizedFields is the only shape in which extracted identity data may
// leave the service. Produced exclusively by the redaction layer.
type SanitizedFields struct {
	PAN          string `json:"pan,omitempty"`
	AadhaarNo    string `json:"aadhaar_no,omitempty"`
	DOB          string `json:"dob,omitempty"`
	NameDetected bool   `json:"name_detected"`
}
