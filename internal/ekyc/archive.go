// ==============================================================================
// OFFLINE E-KYC ARCHIVE PARSER - internal/ekyc/archive.go
// ==============================================================================
// Parses a vendor-issued encrypted ZIP containing a structured identity XML.
// Failures are reported as fields on the result, not errors that abort the
// caller's flow: the orchestrator decides what a partial result means.
// ==============================================================================

package ekyc

import (
	"encoding/xml"
	"io"
	"strings"

	"github.com/yeka/zip"
)

// PackageData is the parsed offline e-KYC payload. Last4 is the only part of
// the identifier ever retained from this path.
type PackageData struct {
	Name   string
	DOB    string
	Gender string
	Last4  string
	Err    string
	// DecryptFailed marks passcode or cipher failures so callers can reject
	// the attempt instead of recording an empty extraction.
	DecryptFailed bool
}

// fieldMapping resolves vendor schema variance: alternate key spellings are
// tried in priority order, so a new vendor shape is a table entry, not a new
// conditional.
type fieldMapping struct {
	canonical string
	keys      []string
}

var fieldMappings = []fieldMapping{
	{"name", []string{"name", "Name", "poi.name", "residentName"}},
	{"dob", []string{"dob", "DOB", "dateOfBirth", "yob"}},
	{"gender", []string{"gender", "Gender", "poi.gender"}},
	{"id", []string{"uid", "referenceId", "maskedAadhaar", "refId"}},
}

// ParseArchive locates and reads the single XML entry of the package.
func ParseArchive(zipPath, passcode string) *PackageData {
	result := &PackageData{}

	reader, err := zip.OpenReader(zipPath)
	if err != nil {
		result.Err = "failed to open offline package: " + err.Error()
		return result
	}
	defer reader.Close()

	var entry *zip.File
	for _, f := range reader.File {
		if strings.HasSuffix(strings.ToLower(f.Name), ".xml") {
			entry = f
			break
		}
	}
	if entry == nil {
		result.Err = "no XML document found in offline package"
		return result
	}

	if entry.IsEncrypted() {
		entry.SetPassword(passcode)
	}

	rc, err := entry.Open()
	if err != nil {
		result.Err = "failed to decrypt offline package - wrong passcode or unsupported encryption"
		result.DecryptFailed = true
		return result
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		result.Err = "failed to decrypt offline package - wrong passcode or unsupported encryption"
		result.DecryptFailed = true
		return result
	}

	fields, err := flattenXML(data)
	if err != nil {
		result.Err = "failed to parse offline package XML: " + err.Error()
		return result
	}

	result.Name = lookup(fields, "name")
	result.DOB = lookup(fields, "dob")
	result.Gender = lookup(fields, "gender")
	result.Last4 = lastFourDigits(fields, lookup(fields, "id"))

	return result
}

// flattenXML walks the document collecting attributes and element text into
// one generic field map. Attribute keys win over element names on collision
// since vendor payloads carry identity data as attributes.
func flattenXML(data []byte) (map[string]string, error) {
	fields := make(map[string]string)
	decoder := xml.NewDecoder(strings.NewReader(string(data)))

	var current string
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			current = t.Name.Local
			for _, attr := range t.Attr {
				fields[attr.Name.Local] = attr.Value
			}
		case xml.CharData:
			text := strings.TrimSpace(string(t))
			if text != "" && current != "" {
				if _, exists := fields[current]; !exists {
					fields[current] = text
				}
			}
		case xml.EndElement:
			current = ""
		}
	}
	return fields, nil
}

func lookup(fields map[string]string, canonical string) string {
	for _, mapping := range fieldMappings {
		if mapping.canonical != canonical {
			continue
		}
		for _, key := range mapping.keys {
			if v, ok := fields[key]; ok && strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v)
			}
		}
	}
	return ""
}

// lastFourDigits reduces a discovered identifier to its last 4 digits. The
// reference-id convention puts them first, so that key is special-cased.
func lastFourDigits(fields map[string]string, value string) string {
	if value == "" {
		return ""
	}

	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, value)
	if len(digits) < 4 {
		return ""
	}

	if ref, ok := fields["referenceId"]; ok && strings.TrimSpace(ref) == value {
		return digits[:4]
	}
	return digits[len(digits)-4:]
}
