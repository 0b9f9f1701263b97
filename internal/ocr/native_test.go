package ocr

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adverant/nexus/loanprocess-worker/internal/domain"
)

const sampleDocumentXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>Borrower Jane Doe</w:t></w:r></w:p>
    <w:p><w:r><w:t>Co-borrower John Doe</w:t></w:r></w:p>
  </w:body>
</w:document>`

func buildTestDocx(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	f, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = f.Write([]byte(sampleDocumentXML))
	require.NoError(t, err)

	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestNativeExtractDocxLinearizesParagraphs(t *testing.T) {
	docxBytes := buildTestDocx(t)

	pages, err := NativeExtract(docxBytes, domain.FileTypeDOCX)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, 1, pages[0].PageNumber)
	assert.Contains(t, pages[0].Text, "Borrower Jane Doe")
	assert.Contains(t, pages[0].Text, "Co-borrower John Doe")
}

func TestNativeExtractDocxRejectsNonZipInput(t *testing.T) {
	_, err := NativeExtract([]byte("not a zip file"), domain.FileTypeDOCX)
	assert.Error(t, err)
}

func TestNativeExtractDocxRejectsMissingDocumentXML(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create("word/other.xml")
	require.NoError(t, err)
	_, err = f.Write([]byte("<x/>"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	_, err = NativeExtract(buf.Bytes(), domain.FileTypeDOCX)
	assert.Error(t, err)
}

func TestNativeExtractImageHasNoTextLayer(t *testing.T) {
	pages, err := NativeExtract([]byte{0x89, 'P', 'N', 'G'}, domain.FileTypePNG)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, "", pages[0].Text)

	pages, err = NativeExtract([]byte{0xFF, 0xD8, 0xFF}, domain.FileTypeJPG)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, "", pages[0].Text)
}

func TestNativeExtractPDFRejectsGarbageBytes(t *testing.T) {
	_, err := NativeExtract([]byte("not a pdf"), domain.FileTypePDF)
	assert.Error(t, err)
}
