// ==============================================================================
// XML ARTIFACT GENERATION - internal/kyc/xmlgen.go
// ==============================================================================

package kyc

import (
	"encoding/xml"
	"time"

	"loanserve/internal/domain"
	"loanserve/pkg/errors"
)

type kycExtract struct {
	XMLName     xml.Name `xml:"KycExtract"`
	Kind        string   `xml:"kind,attr"`
	Source      string   `xml:"source,attr"`
	GeneratedAt string   `xml:"generatedAt,attr"`
	Pan         string   `xml:"Pan,omitempty"`
	AadhaarNo   string   `xml:"AadhaarNo,omitempty"`
	DOB         string   `xml:"DateOfBirth,omitempty"`
	Name        string   `xml:"Name,omitempty"`
	Gender      string   `xml:"Gender,omitempty"`
	Score       int      `xml:"Score"`
	Status      string   `xml:"Status"`
	Reasons     []string `xml:"Reasons>Reason,omitempty"`
}

// GenerateXML renders the canonical verification artifact for a completed
// extraction. The document holds extracted values in full; access is gated
// at the download endpoint, not here.
func GenerateXML(kind domain.DocumentKind, source domain.ExtractionSource, fields domain.ExtractedFields, assessment domain.ConfidenceAssessment, status domain.VerificationStatus, at time.Time) (string, error) {
	doc := kycExtract{
		Kind:        string(kind),
		Source:      string(source),
		GeneratedAt: at.UTC().Format(time.RFC3339),
		Pan:         fields.PAN,
		AadhaarNo:   fields.AadhaarNo,
		DOB:         fields.DOB,
		Name:        fields.Name,
		Gender:      fields.Gender,
		Score:       assessment.Score,
		Status:      string(status),
		Reasons:     assessment.Reasons,
	}
	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "failed to render verification artifact")
	}
	return xml.Header + string(out), nil
}
