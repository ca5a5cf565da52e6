package kyc

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"loanserve/internal/domain"
)

func TestRedactPAN(t *testing.T) {
	assert.Equal(t, "ABCXXXXF", RedactPAN("ABCDE1234F"))
	assert.Equal(t, "", RedactPAN(""))
	// Malformed values reveal only the last character.
	assert.Equal(t, "XXXX9", RedactPAN("AB129"))
}

func TestRedactAadhaar(t *testing.T) {
	assert.Equal(t, "XXXX XXXX 9012", RedactAadhaar("123456789012"))
	assert.Equal(t, "XXXX XXXX 9012", RedactAadhaar("1234 5678 9012"))
	assert.Equal(t, "XXXX 9012", RedactAadhaar("9012"))
	assert.Equal(t, "XXXX 6789", RedactAadhaar("123456789"))
	assert.Equal(t, "", RedactAadhaar(""))
}

func TestRedactAadhaar_NonCanonicalFullyMasked(t *testing.T) {
	// More than 12 digits is not a valid capture; none of it may surface.
	assert.Equal(t, "XXXX XXXX XXXX", RedactAadhaar("1234567890123"))
	assert.NotContains(t, RedactAadhaar("12345678901234"), "1234")
	// Non-empty values without a single digit still come back masked.
	assert.Equal(t, "XXXX XXXX XXXX", RedactAadhaar("not-a-number"))
}

func TestRedact_NeverExposesFullIdentifiers(t *testing.T) {
	fields := domain.ExtractedFields{
		PAN:       "ABCDE1234F",
		AadhaarNo: "123456789012",
		DOB:       "01/01/1990",
		Name:      "Asha Rao",
	}

	out := Redact(fields)

	assert.NotContains(t, out.PAN, "DE1234")
	assert.False(t, strings.Contains(out.AadhaarNo, "12345678"))
	assert.Equal(t, "01/01/1990", out.DOB)
	assert.True(t, out.NameDetected)
	// The name itself never appears in the sanitized projection.
	assert.NotContains(t, out.PAN+out.AadhaarNo+out.DOB, "Asha")
}

func TestRedact_Deterministic(t *testing.T) {
	fields := domain.ExtractedFields{PAN: "ABCDE1234F", AadhaarNo: "123456789012"}
	assert.Equal(t, Redact(fields), Redact(fields))
}

func TestRedact_EmptyFields(t *testing.T) {
	out := Redact(domain.ExtractedFields{})
	assert.Equal(t, domain.SanitizedFields{}, out)
	assert.False(t, out.NameDetected)
}
