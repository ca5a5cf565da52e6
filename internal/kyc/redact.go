// ==============================================================================
// RESPONSE REDACTION - internal/kyc/redact.go
// ==============================================================================

package kyc

import (
	"strings"

	"loanserve/internal/domain"
	"loanserve/pkg/validator"
)

// Redact produces the client-safe projection of extracted fields. The
// mapping is deterministic and one-way; full identifiers never leave the
// service through it.
func Redact(f domain.ExtractedFields) domain.SanitizedFields {
	return domain.SanitizedFields{
		PAN:          RedactPAN(f.PAN),
		AadhaarNo:    RedactAadhaar(f.AadhaarNo),
		DOB:          f.DOB,
		NameDetected: f.Name != "",
	}
}

// RedactPAN keeps the first three and the final character of a well-formed
// PAN behind a fixed-width mask. Malformed values reveal only the last
// character.
func RedactPAN(pan string) string {
	if pan == "" {
		return ""
	}
	if validator.IsValidPAN(pan) {
		return pan[:3] + "XXXX" + pan[len(pan)-1:]
	}
	return "XXXX" + pan[len(pan)-1:]
}

// aadhaarFullMask is returned for values that are neither canonical nor a
// shorter digit capture: nothing from them may leak.
const aadhaarFullMask = "XXXX XXXX XXXX"

// RedactAadhaar masks all but the last four digits of an Aadhaar value.
// A canonical 12-digit number is rendered in the familiar grouped form;
// shorter captures keep at most their trailing four digits; anything else
// non-empty is fully masked.
func RedactAadhaar(aadhaar string) string {
	if aadhaar == "" {
		return ""
	}
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, aadhaar)
	switch {
	case len(digits) == 12:
		return "XXXX XXXX " + digits[8:]
	case len(digits) == 0 || len(digits) > 12:
		return aadhaarFullMask
	case len(digits) > 4:
		return "XXXX " + digits[len(digits)-4:]
	default:
		return "XXXX " + digits
	}
}
