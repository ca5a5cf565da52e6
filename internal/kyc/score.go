// ==============================================================================
// CONFIDENCE SCORER - internal/kyc/score.go
// ==============================================================================

package kyc

import (
	"strings"

	"loanserve/internal/domain"
)

// Asserted carries the user-supplied identity values a document is scored
// against. Asserted values are authoritative for storage; extracted values
// are evidence only.
type Asserted struct {
	PAN       string
	AadhaarNo string
	DOB       string
}

// Score evaluates independent additive match rules between extracted and
// asserted fields. Each rule contributes at most +1 and absence on either
// side never counts as a match.
func Score(extracted domain.ExtractedFields, asserted Asserted) (domain.ConfidenceAssessment, domain.MatchFlags) {
	assessment := domain.ConfidenceAssessment{Reasons: domain.StringList{}}
	var flags domain.MatchFlags

	if asserted.PAN != "" && extracted.PAN != "" &&
		strings.EqualFold(asserted.PAN, extracted.PAN) {
		assessment.Score++
		assessment.Reasons = append(assessment.Reasons, "PAN matches")
		flags.PANMatch = true
	}

	if last4(asserted.AadhaarNo) != "" && last4(asserted.AadhaarNo) == last4(extracted.AadhaarNo) {
		assessment.Score++
		assessment.Reasons = append(assessment.Reasons, "Aadhaar last4 matches")
		flags.AadhaarMatch = true
	}

	if asserted.DOB != "" && extracted.DOB != "" && asserted.DOB == extracted.DOB {
		assessment.Score++
		assessment.Reasons = append(assessment.Reasons, "DOB matches")
		flags.DOBMatch = true
	}

	return assessment, flags
}

// last4 returns the trailing four digits of an identifier, or "" when fewer
// than four digits are present. Full values are never compared.
func last4(s string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
	if len(digits) < 4 {
		return ""
	}
	return digits[len(digits)-4:]
}
