package kyc

import (
	"encoding/xml"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loanserve/internal/domain"
)

func TestGenerateXML_RoundTrip(t *testing.T) {
	at := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	fields := domain.ExtractedFields{
		PAN:  "ABCDE1234F",
		DOB:  "01/01/1990",
		Name: "Asha Rao",
	}
	assessment := domain.ConfidenceAssessment{
		Score:   2,
		Reasons: []string{"PAN matches", "DOB matches"},
	}

	out, err := GenerateXML(domain.DocumentKindPAN, domain.ExtractionSourcePDF, fields, assessment, domain.StatusPending, at)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, xml.Header))

	var parsed kycExtract
	require.NoError(t, xml.Unmarshal([]byte(out), &parsed))
	assert.Equal(t, "PAN", parsed.Kind)
	assert.Equal(t, "pdf", parsed.Source)
	assert.Equal(t, "2026-03-14T09:30:00Z", parsed.GeneratedAt)
	assert.Equal(t, "ABCDE1234F", parsed.Pan)
	assert.Equal(t, 2, parsed.Score)
	assert.Equal(t, "PENDING", parsed.Status)
	assert.Equal(t, []string{"PAN matches", "DOB matches"}, parsed.Reasons)
}

func TestGenerateXML_EmptyFieldsOmitted(t *testing.T) {
	out, err := GenerateXML(domain.DocumentKindAadhaar, domain.ExtractionSourceNone, domain.ExtractedFields{}, domain.ConfidenceAssessment{}, domain.StatusNeedsReview, time.Now())
	require.NoError(t, err)
	assert.NotContains(t, out, "<Pan>")
	assert.NotContains(t, out, "<AadhaarNo>")
	assert.Contains(t, out, "<Score>0</Score>")
	assert.Contains(t, out, "<Status>NEEDS_REVIEW</Status>")
}
