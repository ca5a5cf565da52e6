package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseFields_PANUppercased(t *testing.T) {
	fields := ParseFields("Permanent Account Number abcde1234f issued 2015")
	assert.Equal(t, "ABCDE1234F", fields.PAN)
}

func TestParseFields_AadhaarSeparatorsStripped(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"spaces", "UID 1234 5678 9012"},
		{"hyphens", "UID 1234-5678-9012"},
		{"plain", "UID 123456789012"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := ParseFields(tt.text)
			assert.Equal(t, "123456789012", fields.AadhaarNo)
		})
	}
}

func TestParseFields_DOBFormats(t *testing.T) {
	assert.Equal(t, "01/01/1990", ParseFields("DOB: 01/01/1990").DOB)
	assert.Equal(t, "15-08-1987", ParseFields("Date of Birth 15-08-1987").DOB)
}

func TestParseFields_Gender(t *testing.T) {
	assert.Equal(t, "Female", ParseFields("gender: FEMALE").Gender)
	assert.Equal(t, "Male", ParseFields("Male / पुरुष").Gender)
}

func TestParseFields_NameViaLabel(t *testing.T) {
	fields := ParseFields("Name: ASHA RAO Date of Birth 01/01/1990")
	assert.Equal(t, "ASHA RAO", fields.Name)
}

func TestParseFields_NameStopwordTruncation(t *testing.T) {
	fields := ParseFields("Name ASHA RAO Father RAJESH RAO")
	assert.Equal(t, "ASHA RAO", fields.Name)
}

func TestParseFields_NameNearPANMatch(t *testing.T) {
	fields := ParseFields("INCOME TAX DEPARTMENT ASHA RAO (Permanent Account Number) ABCDE1234F")
	assert.Equal(t, "ABCDE1234F", fields.PAN)
	assert.Contains(t, fields.Name, "ASHA RAO")
}

func TestParseFields_EmptyText(t *testing.T) {
	fields := ParseFields("")
	assert.Empty(t, fields.PAN)
	assert.Empty(t, fields.AadhaarNo)
	assert.Empty(t, fields.DOB)
	assert.Empty(t, fields.Name)
	assert.Empty(t, fields.Gender)
}

func TestParseFields_TotalOnNoise(t *testing.T) {
	fields := ParseFields("lorem ipsum 42 dolor sit amet")
	assert.Empty(t, fields.PAN)
	assert.Empty(t, fields.AadhaarNo)
}

func TestParseFields_RawSampleBounded(t *testing.T) {
	long := strings.Repeat("word ", 1000)
	fields := ParseFields(long)
	assert.LessOrEqual(t, len(fields.RawSample), 1600)
}

func TestParseFields_WhitespaceNormalized(t *testing.T) {
	fields := ParseFields("Name:\n\tASHA   RAO\nDOB  01/01/1990")
	assert.Equal(t, "ASHA RAO", fields.Name)
	assert.Equal(t, "01/01/1990", fields.DOB)
}
