// Package ocr implements the scanned-page detector (C1) and the OCR
// router (C2): mode dispatch, the process-wide circuit breaker guarding
// the remote OCR service, and the native Tesseract fallback.
package ocr

import "github.com/adverant/nexus/loanprocess-worker/internal/domain"

// Mode mirrors domain.OCRMode; re-exported here for readability at call
// sites that only import this package.
type Mode = domain.OCRMode

// Method records which branch of the router actually produced the
// content.
type Method string

const (
	MethodGPU     Method = "gpu"
	MethodDocling Method = "docling"
	MethodNone    Method = "none"
)

// Result is the outcome of routing one document through OCR.
type Result struct {
	Content   domain.DocumentContent
	Method    Method
	PagesOCRd []int // page indices handed to the GPU branch, even on fallback
}

// DetectionResult is C1's verdict on whether a PDF needs OCR.
type DetectionResult struct {
	NeedsOCR     bool
	ScannedPages []int // 0-indexed, ordered
	TotalPages   int
	ScannedRatio float64
}
