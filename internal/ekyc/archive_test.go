package ekyc

import (
	stdzip "archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeArchive(t *testing.T, entries map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "offline.zip")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := stdzip.NewWriter(f)
	for name, content := range entries {
		entry, err := w.Create(name)
		require.NoError(t, err)
		_, err = entry.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return path
}

func TestParseArchive_AttributePayload(t *testing.T) {
	path := writeArchive(t, map[string]string{
		"offline.xml": `<?xml version="1.0"?>
<OfflinePaperlessKyc referenceId="9012aabbccdd">
  <UidData>
    <Poi name="Asha Rao" dob="01/01/1990" gender="F"/>
  </UidData>
</OfflinePaperlessKyc>`,
	})

	pkg := ParseArchive(path, "")
	assert.Empty(t, pkg.Err)
	assert.False(t, pkg.DecryptFailed)
	assert.Equal(t, "Asha Rao", pkg.Name)
	assert.Equal(t, "01/01/1990", pkg.DOB)
	assert.Equal(t, "F", pkg.Gender)
	// referenceId carries the last four digits up front.
	assert.Equal(t, "9012", pkg.Last4)
}

func TestParseArchive_ElementPayload(t *testing.T) {
	path := writeArchive(t, map[string]string{
		"ekyc.xml": `<kyc>
  <residentName>Asha Rao</residentName>
  <dateOfBirth>1990-01-01</dateOfBirth>
  <gender>Female</gender>
  <uid>XXXXXXXX9012</uid>
</kyc>`,
	})

	pkg := ParseArchive(path, "")
	assert.Empty(t, pkg.Err)
	assert.Equal(t, "Asha Rao", pkg.Name)
	assert.Equal(t, "1990-01-01", pkg.DOB)
	assert.Equal(t, "Female", pkg.Gender)
	assert.Equal(t, "9012", pkg.Last4)
}

func TestParseArchive_AttributeWinsOverElement(t *testing.T) {
	path := writeArchive(t, map[string]string{
		"data.xml": `<kyc name="From Attribute">
  <name>From Element</name>
</kyc>`,
	})

	pkg := ParseArchive(path, "")
	assert.Equal(t, "From Attribute", pkg.Name)
}

func TestParseArchive_NoXMLEntry(t *testing.T) {
	path := writeArchive(t, map[string]string{"readme.txt": "nothing here"})

	pkg := ParseArchive(path, "")
	assert.Contains(t, pkg.Err, "no XML document")
	assert.False(t, pkg.DecryptFailed)
	assert.Empty(t, pkg.Name)
}

func TestParseArchive_MissingFile(t *testing.T) {
	pkg := ParseArchive(filepath.Join(t.TempDir(), "absent.zip"), "")
	assert.Contains(t, pkg.Err, "failed to open offline package")
	assert.False(t, pkg.DecryptFailed)
}

func TestParseArchive_MalformedXML(t *testing.T) {
	path := writeArchive(t, map[string]string{"broken.xml": `<kyc><name>Asha`})

	pkg := ParseArchive(path, "")
	assert.Contains(t, pkg.Err, "failed to parse offline package XML")
	assert.False(t, pkg.DecryptFailed)
}

func TestParseArchive_ShortIdentifierDropped(t *testing.T) {
	path := writeArchive(t, map[string]string{
		"data.xml": `<kyc><uid>12</uid></kyc>`,
	})

	pkg := ParseArchive(path, "")
	assert.Empty(t, pkg.Last4)
}
