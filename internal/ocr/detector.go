package ocr

import (
	"bytes"

	"github.com/ledongthuc/pdf"

	"github.com/adverant/nexus/loanprocess-worker/internal/logging"
)

// DefaultMinChars is the per-page text-length floor below which a page is
// classified scanned.
const DefaultMinChars = 50

// DefaultScanRatio is the fraction of scanned pages at or above which a
// document needs OCR.
const DefaultScanRatio = 0.5

// Detector implements the C1 scanned-page detector: per-page
// classification of native vs scanned from the PDF text-layer density.
type Detector struct {
	MinChars  int
	ScanRatio float64
	logger    *logging.Logger
}

// NewDetector builds a Detector with the given thresholds. Values <= 0
// fall back to the package defaults.
func NewDetector(minChars int, scanRatio float64) *Detector {
	if minChars <= 0 {
		minChars = DefaultMinChars
	}
	if scanRatio <= 0 || scanRatio > 1 {
		scanRatio = DefaultScanRatio
	}
	return &Detector{MinChars: minChars, ScanRatio: scanRatio, logger: logging.NewLogger("ScannedDocumentDetector")}
}

// Detect opens pdfBytes and classifies each page as native or scanned by
// counting Unicode code points extracted from its text layer.
//
// A total opaque parse failure is conservative: needs_ocr=true with
// scanned_ratio=1.0, since the OCR router can still refuse.
func (d *Detector) Detect(pdfBytes []byte) DetectionResult {
	reader := bytes.NewReader(pdfBytes)
	doc, err := pdf.NewReader(reader, int64(len(pdfBytes)))
	if err != nil {
		d.logger.Warn("PDF parse failed, treating as fully scanned", "error", err)
		return DetectionResult{NeedsOCR: true, ScannedPages: nil, TotalPages: 0, ScannedRatio: 1.0}
	}

	numPages := doc.NumPage()
	if numPages <= 0 {
		return DetectionResult{NeedsOCR: false, ScannedPages: []int{}, TotalPages: 0, ScannedRatio: 0}
	}

	scanned := make([]int, 0)
	for i := 1; i <= numPages; i++ {
		page := doc.Page(i)
		if page.V.IsNull() {
			scanned = append(scanned, i-1)
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil || runeCount(text) < d.MinChars {
			scanned = append(scanned, i-1)
		}
	}

	ratio := float64(len(scanned)) / float64(numPages)
	return DetectionResult{
		NeedsOCR:     ratio >= d.ScanRatio,
		ScannedPages: scanned,
		TotalPages:   numPages,
		ScannedRatio: ratio,
	}
}

func runeCount(s string) int {
	n := 0
	for range s {
		n++
	}
	return n
}
