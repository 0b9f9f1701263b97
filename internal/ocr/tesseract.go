package ocr

import (
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/adverant/nexus/loanprocess-worker/internal/logging"
)

// Tesseract wraps the native OCR fallback used by the "docling" method:
// local, offline, lower accuracy than the remote GPU service but always
// available.
type Tesseract struct {
	path   string
	logger *logging.Logger
}

// NewTesseract builds a Tesseract fallback. path may be empty, in which
// case gosseract resolves the binary from PATH.
func NewTesseract(path string) *Tesseract {
	return &Tesseract{path: path, logger: logging.NewLogger("TesseractOCR")}
}

// PageResult is one page's OCR output plus a heuristic confidence score.
type PageResult struct {
	PageNumber int
	Text       string
	Confidence float64
}

// Process OCRs a single rendered page image.
func (t *Tesseract) Process(pageNumber int, imageBytes []byte) (PageResult, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if t.path != "" {
		if err := client.SetTessdataPrefix(t.path); err != nil {
			t.logger.Warn("failed to set tessdata prefix", "error", err)
		}
	}

	if err := client.SetImageFromBytes(imageBytes); err != nil {
		return PageResult{}, fmt.Errorf("tesseract: load image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return PageResult{}, fmt.Errorf("tesseract: recognize: %w", err)
	}

	return PageResult{
		PageNumber: pageNumber,
		Text:       text,
		Confidence: calculateConfidence(text),
	}, nil
}

// calculateConfidence is a cheap proxy for recognition quality in the
// absence of per-word confidence data: longer runs of alphanumeric text
// with few isolated single-character "words" (typical of misrecognized
// noise) score higher.
func calculateConfidence(text string) float64 {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0
	}

	words := strings.Fields(trimmed)
	if len(words) == 0 {
		return 0
	}

	noisy := 0
	for _, w := range words {
		if len(w) <= 1 {
			noisy++
		}
	}
	noiseRatio := float64(noisy) / float64(len(words))

	confidence := 0.9 - noiseRatio*0.6
	if len(trimmed) < 20 {
		confidence -= 0.2
	}
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	return confidence
}
