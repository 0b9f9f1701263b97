package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adverant/nexus/loanprocess-worker/internal/domain"
	"github.com/adverant/nexus/loanprocess-worker/internal/logging"
)

// Pipeline is the full C2 contract: process(file_bytes, filename, mode)
// -> OCRResult. It fuses C1 (Detector) with the Router's mode dispatch
// and fallback cascade, and owns the file-type-specific native
// extraction each branch needs as its "untouched" content.
type Pipeline struct {
	Detector *Detector
	Router   *Router
	TempDir  string
	logger   *logging.Logger
}

// NewPipeline wires a Pipeline from its collaborators.
func NewPipeline(detector *Detector, router *Router, tempDir string) *Pipeline {
	return &Pipeline{Detector: detector, Router: router, TempDir: tempDir, logger: logging.NewLogger("OCRPipeline")}
}

// Process routes fileBytes through OCR per mode, dispatching on
// fileType since only a PDF carries a renderable, paginated structure;
// docx has no page boundaries at all, and a bare image is a single
// scanned "page" with no native text layer to fall back on.
func (p *Pipeline) Process(ctx context.Context, fileBytes []byte, filename string, fileType domain.FileType, mode domain.OCRMode) (Result, error) {
	switch fileType {
	case domain.FileTypeDOCX:
		pages, err := NativeExtract(fileBytes, fileType)
		if err != nil {
			return Result{}, fmt.Errorf("ocr pipeline: %w", err)
		}
		return toResult(pages, MethodNone, nil), nil
	case domain.FileTypePNG, domain.FileTypeJPG:
		return p.processImage(ctx, fileBytes, mode)
	default:
		return p.processPDF(ctx, fileBytes, filename, mode)
	}
}

// processImage OCRs a single bare image with no rendering step: the
// image bytes are themselves the "page".
func (p *Pipeline) processImage(ctx context.Context, fileBytes []byte, mode domain.OCRMode) (Result, error) {
	if mode == domain.OCRModeSkip {
		return toResult([]domain.PageContent{{PageNumber: 1, Text: ""}}, MethodNone, nil), nil
	}

	gpuAvailable := p.Router.remoteHealthy(ctx)
	pr, usedFallback, err := p.Router.ocrPage(ctx, 1, fileBytes, gpuAvailable)
	if err != nil {
		return Result{}, fmt.Errorf("ocr pipeline: image: %w", err)
	}

	method := MethodGPU
	if usedFallback {
		method = MethodDocling
	}
	page := domain.PageContent{PageNumber: 1, Text: pr.Text}
	return toResult([]domain.PageContent{page}, method, []int{0}), nil
}

// processPDF runs C1 (unless mode short-circuits it) and hands the
// verdict plus the native per-page text to the Router.
func (p *Pipeline) processPDF(ctx context.Context, fileBytes []byte, filename string, mode domain.OCRMode) (Result, error) {
	nativePages, err := NativeExtract(fileBytes, domain.FileTypePDF)
	if err != nil {
		return Result{}, fmt.Errorf("ocr pipeline: native pdf text: %w", err)
	}

	var detection DetectionResult
	switch mode {
	case domain.OCRModeSkip:
		return toResult(nativePages, MethodNone, nil), nil
	case domain.OCRModeForce:
		detection = DetectionResult{NeedsOCR: true, ScannedPages: allPageIndices(len(nativePages)), TotalPages: len(nativePages), ScannedRatio: 1.0}
	default:
		detection = p.Detector.Detect(fileBytes)
		if !detection.NeedsOCR {
			return toResult(nativePages, MethodNone, nil), nil
		}
	}

	tempDir := p.TempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	tmpFile, err := os.CreateTemp(tempDir, "ocr-src-*.pdf")
	if err != nil {
		return Result{}, fmt.Errorf("ocr pipeline: scratch file: %w", err)
	}
	defer os.Remove(tmpFile.Name())
	if _, err := tmpFile.Write(fileBytes); err != nil {
		tmpFile.Close()
		return Result{}, fmt.Errorf("ocr pipeline: write scratch file: %w", err)
	}
	tmpFile.Close()

	p.logger.Info("routing document through OCR", "filename", filepath.Base(filename), "mode", mode, "scanned_pages", len(detection.ScannedPages))
	return p.Router.Route(ctx, tmpFile.Name(), nativePages, detection, mode)
}
