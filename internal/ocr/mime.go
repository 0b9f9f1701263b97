package ocr

import "bytes"

// DetectMimeType sniffs the container format from leading magic bytes,
// the same signatures the original mage-agent dispatch used to decide
// whether a blob needed rendering before OCR.
func DetectMimeType(data []byte) string {
	switch {
	case len(data) >= 4 && bytes.Equal(data[:4], []byte("%PDF")):
		return "application/pdf"
	case len(data) >= 8 && bytes.Equal(data[:8], []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}):
		return "image/png"
	case len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF:
		return "image/jpeg"
	case len(data) >= 4 && bytes.Equal(data[:4], []byte{'P', 'K', 0x03, 0x04}):
		return "application/zip" // docx/xlsx/pptx are zip containers
	default:
		return "application/octet-stream"
	}
}
