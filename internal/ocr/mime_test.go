package ocr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectMimeType(t *testing.T) {
	assert.Equal(t, "application/pdf", DetectMimeType([]byte("%PDF-1.4")))
	assert.Equal(t, "image/png", DetectMimeType([]byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}))
	assert.Equal(t, "image/jpeg", DetectMimeType([]byte{0xFF, 0xD8, 0xFF, 0xE0}))
	assert.Equal(t, "application/zip", DetectMimeType([]byte{'P', 'K', 0x03, 0x04}))
	assert.Equal(t, "application/octet-stream", DetectMimeType([]byte("plain text")))
}
