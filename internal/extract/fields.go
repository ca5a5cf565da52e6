// ==============================================================================
// FIELD EXTRACTION HEURISTICS - internal/extract/fields.go
// ==============================================================================
// Regex-driven identity field extraction from raw document text. Total
// function: always returns a structure, fields individually empty when not
// found.
// ==============================================================================

package extract

import (
	"regexp"
	"strings"

	"loanserve/internal/domain"
)

const (
	// rawSampleLimit bounds the audit sample kept on the internal record.
	rawSampleLimit = 1600

	// nameWindow is how far around a PAN match the name search extends.
	// PAN cards place the holder name near the number, so a bounded window
	// beats a blind whole-document search.
	nameWindow = 150
)

var (
	panRe     = regexp.MustCompile(`(?i)\b([A-Z]{5}[0-9]{4}[A-Z])\b`)
	aadhaarRe = regexp.MustCompile(`\b(\d{4}[\s-]?\d{4}[\s-]?\d{4})\b`)
	dobRe     = regexp.MustCompile(`\b(\d{2}[/-]\d{2}[/-]\d{4})\b`)
	genderRe  = regexp.MustCompile(`(?i)\b(male|female|transgender)\b`)

	nameLabelRe     = regexp.MustCompile(`(?i)\bname\s*[:.]?\s*((?:[A-Za-z][A-Za-z.']*\s?){1,5})`)
	namePermanentRe = regexp.MustCompile(`((?:[A-Z][A-Za-z.']*\s?){1,5})\(\s*Permanent`)

	// Label words that routinely follow a name on identity documents; a
	// captured run of words is cut at the first one.
	nameStopwords = map[string]struct{}{
		"date": {}, "dob": {}, "birth": {}, "father": {}, "fathers": {},
		"gender": {}, "permanent": {}, "account": {}, "number": {},
		"signature": {}, "address": {}, "year": {}, "son": {}, "daughter": {},
	}
)

// ParseFields extracts candidate identity fields from raw text.
func ParseFields(text string) domain.ExtractedFields {
	normalized := strings.Join(strings.Fields(text), " ")

	fields := domain.ExtractedFields{
		RawSample: truncate(normalized, rawSampleLimit),
	}

	panIdx := -1
	if loc := panRe.FindStringSubmatchIndex(normalized); loc != nil {
		fields.PAN = strings.ToUpper(normalized[loc[2]:loc[3]])
		panIdx = loc[2]
	}

	if m := aadhaarRe.FindString(normalized); m != "" {
		fields.AadhaarNo = stripSeparators(m)
	}

	if m := dobRe.FindString(normalized); m != "" {
		fields.DOB = m
	}

	if m := genderRe.FindString(normalized); m != "" {
		fields.Gender = strings.ToUpper(m[:1]) + strings.ToLower(m[1:])
	}

	fields.Name = extractName(normalized, panIdx)

	return fields
}

// extractName searches a bounded window around the PAN match when one
// exists, falling back to a whole-text label search otherwise.
func extractName(text string, panIdx int) string {
	if panIdx >= 0 {
		start := panIdx - nameWindow
		if start < 0 {
			start = 0
		}
		end := panIdx + nameWindow
		if end > len(text) {
			end = len(text)
		}
		window := text[start:end]

		if m := nameLabelRe.FindStringSubmatch(window); m != nil {
			return cleanName(m[1])
		}
		if m := namePermanentRe.FindStringSubmatch(window); m != nil {
			return cleanName(m[1])
		}
		return ""
	}

	if m := nameLabelRe.FindStringSubmatch(text); m != nil {
		return cleanName(m[1])
	}
	return ""
}

// cleanName trims a captured word run at the first document-label word.
func cleanName(raw string) string {
	var kept []string
	for _, w := range strings.Fields(raw) {
		if _, stop := nameStopwords[strings.ToLower(strings.Trim(w, "."))]; stop {
			break
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, " ")
}

func stripSeparators(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
