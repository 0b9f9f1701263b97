package ocr

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/adverant/nexus/loanprocess-worker/internal/domain"
	"github.com/adverant/nexus/loanprocess-worker/internal/logging"
)

// Router implements C2: given a document's native text and C1's
// detection verdict, decides whether OCR runs at all, and if so routes
// each scanned page through the GPU-backed remote service (guarded by
// the breaker) with a Tesseract fallback.
type Router struct {
	Breaker        *Breaker
	Remote         *RemoteClient
	Tesseract      *Tesseract
	MaxPageWorkers int
	RenderDPI      int
	TempDir        string
	logger         *logging.Logger
}

// NewRouter wires a Router from its collaborators. maxPageWorkers bounds
// the per-page fan-out concurrency.
func NewRouter(breaker *Breaker, remote *RemoteClient, tess *Tesseract, maxPageWorkers, renderDPI int, tempDir string) *Router {
	if maxPageWorkers <= 0 {
		maxPageWorkers = 4
	}
	return &Router{
		Breaker:        breaker,
		Remote:         remote,
		Tesseract:      tess,
		MaxPageWorkers: maxPageWorkers,
		RenderDPI:      renderDPI,
		TempDir:        tempDir,
		logger:         logging.NewLogger("OCRRouter"),
	}
}

// Route runs the OCR cascade over a PDF given C1's detection result and
// the requested mode. When mode is skip, or mode is auto and detection
// says OCR is unneeded, the native-extraction pages are returned
// untouched with method "none".
func (r *Router) Route(ctx context.Context, pdfPath string, nativePages []domain.PageContent, detection DetectionResult, mode domain.OCRMode) (Result, error) {
	if mode == domain.OCRModeSkip {
		return toResult(nativePages, MethodNone, nil), nil
	}
	if mode == domain.OCRModeAuto && !detection.NeedsOCR {
		return toResult(nativePages, MethodNone, nil), nil
	}

	targets := detection.ScannedPages
	if mode == domain.OCRModeForce && len(targets) == 0 {
		targets = allPageIndices(detection.TotalPages)
	}
	if len(targets) == 0 {
		return toResult(nativePages, MethodNone, nil), nil
	}

	tempDir := r.TempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	workDir, err := os.MkdirTemp(tempDir, "ocr-*")
	if err != nil {
		return Result{}, fmt.Errorf("ocr router: scratch dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	// A single cheap health probe gates the entire per-page fan-out: a
	// down GPU service must never be discovered one page-failure at a
	// time (that would still dial it len(targets) times before the
	// breaker opens). r.remoteHealthy also records the failure against
	// the breaker, so a probe failure counts toward fail_max exactly
	// like a per-page failure would.
	gpuAvailable := r.remoteHealthy(ctx)

	results := make([]PageResult, len(targets))
	methodUsed := MethodGPU
	if !gpuAvailable {
		methodUsed = MethodDocling
	}

	var methodMu sync.Mutex
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(r.MaxPageWorkers)

	for i, pageIdx := range targets {
		i, pageIdx := i, pageIdx
		group.Go(func() error {
			pageNumber := pageIdx + 1
			imageBytes, err := renderPage(pdfPath, pageNumber, r.RenderDPI, workDir)
			if err != nil {
				return err
			}

			pr, usedFallback, err := r.ocrPage(gctx, pageNumber, imageBytes, gpuAvailable)
			if err != nil {
				return err
			}
			if usedFallback {
				methodMu.Lock()
				methodUsed = MethodDocling
				methodMu.Unlock()
			}
			results[i] = pr
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return Result{}, fmt.Errorf("ocr router: %w", err)
	}

	merged := mergePages(nativePages, results)
	return toResult(merged, methodUsed, targets), nil
}

// remoteHealthy runs the cheap health probe through the breaker. A
// breaker-open state or a probe failure both count as unhealthy and
// neither dials the per-page endpoint.
func (r *Router) remoteHealthy(ctx context.Context) bool {
	if r.Remote == nil || r.Breaker == nil {
		return false
	}
	err := r.Breaker.Call(func() error {
		return r.Remote.HealthCheck(ctx)
	})
	if err != nil {
		r.logger.Warn("OCR health probe failed, routing to native fallback", "error", err)
		return false
	}
	return true
}

// ocrPage tries the remote service through the breaker when gpuAvailable
// says the health probe passed, falling back to Tesseract on any
// breaker rejection, call failure, or unhealthy probe.
func (r *Router) ocrPage(ctx context.Context, pageNumber int, imageBytes []byte, gpuAvailable bool) (PageResult, bool, error) {
	if gpuAvailable && r.Remote != nil && r.Breaker != nil {
		var out PageResult
		err := r.Breaker.Call(func() error {
			pr, err := r.Remote.ExtractPage(ctx, pageNumber, imageBytes)
			if err != nil {
				return err
			}
			out = pr
			return nil
		})
		if err == nil {
			return out, false, nil
		}
		r.logger.Warn("remote OCR unavailable, falling back to native", "page", pageNumber, "error", err)
	}

	if r.Tesseract == nil {
		return PageResult{}, true, fmt.Errorf("page %d: no OCR fallback configured", pageNumber)
	}
	pr, err := r.Tesseract.Process(pageNumber, imageBytes)
	if err != nil {
		return PageResult{}, true, fmt.Errorf("page %d: tesseract fallback: %w", pageNumber, err)
	}
	return pr, true, nil
}

// mergePages replaces native text for OCR'd pages and re-sorts by page
// number, preserving pages C1 never flagged as scanned.
func mergePages(nativePages []domain.PageContent, ocrResults []PageResult) []domain.PageContent {
	byPage := make(map[int]domain.PageContent, len(nativePages))
	for _, p := range nativePages {
		byPage[p.PageNumber] = p
	}
	for _, ocrd := range ocrResults {
		existing := byPage[ocrd.PageNumber]
		existing.PageNumber = ocrd.PageNumber
		existing.Text = ocrd.Text
		byPage[ocrd.PageNumber] = existing
	}

	merged := make([]domain.PageContent, 0, len(byPage))
	for _, p := range byPage {
		merged = append(merged, p)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].PageNumber < merged[j].PageNumber })
	return merged
}

func toResult(pages []domain.PageContent, method Method, ocrdPages []int) Result {
	var tables []domain.Table
	for _, p := range pages {
		tables = append(tables, p.Tables...)
	}
	return Result{
		Content: domain.DocumentContent{
			Text:      domain.LinearizePages(pages),
			Pages:     pages,
			PageCount: len(pages),
			Tables:    tables,
		},
		Method:    method,
		PagesOCRd: ocrdPages,
	}
}

func allPageIndices(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}
