// Package lifecycle implements C6: the task lifecycle controller that
// drives a document through PENDING -> PROCESSING -> {COMPLETED,
// FAILED}, owns idempotency and the retry budget, and is the only
// component that writes document status or commits borrower records.
package lifecycle

import (
	"context"
	"fmt"

	"github.com/adverant/nexus/loanprocess-worker/internal/domain"
	apperrors "github.com/adverant/nexus/loanprocess-worker/internal/errors"
	"github.com/adverant/nexus/loanprocess-worker/internal/extraction"
	"github.com/adverant/nexus/loanprocess-worker/internal/logging"
	"github.com/adverant/nexus/loanprocess-worker/internal/ocr"
	"github.com/adverant/nexus/loanprocess-worker/internal/reconcile"
)

// DefaultMaxRetryCount is the number of prior attempts tolerated before
// a transient failure converts to FAILED (§4.6: the 5th invocation,
// retry_count=4, is the last chance).
const DefaultMaxRetryCount = 4

// DocumentStore is the subset of the record store C6 needs: read the
// document row and drive its status transitions. Implemented by
// storage.Manager in production, faked in tests.
type DocumentStore interface {
	GetDocument(ctx context.Context, id string) (*domain.Document, error)
	UpdateDocumentStatus(ctx context.Context, id string, status domain.DocumentStatus, pageCount *int, ocrProcessed *bool, errorMessage string) error
}

// BorrowerSink persists the reconciled borrower set for one document,
// collecting per-borrower failures rather than aborting the batch.
type BorrowerSink interface {
	PersistBorrowers(ctx context.Context, documentID string, borrowers []domain.BorrowerRecord) (succeeded int, failures []error)
}

// BlobFetcher downloads a document's bytes from its blob_uri.
type BlobFetcher interface {
	Fetch(ctx context.Context, uri string) ([]byte, error)
}

// OCRPipeline is C2's contract as the controller consumes it.
type OCRPipeline interface {
	Process(ctx context.Context, fileBytes []byte, filename string, fileType domain.FileType, mode domain.OCRMode) (ocr.Result, error)
}

// ExtractionRouter is C3's contract as the controller consumes it.
type ExtractionRouter interface {
	Extract(ctx context.Context, content domain.DocumentContent, documentID, documentName string, method extraction.Method) (extraction.Output, error)
}

// ReconcileEngine is C5's contract.
type ReconcileEngine interface {
	Reconcile(records []domain.BorrowerRecord, priorErrors []domain.ValidationError) reconcile.Result
}

// Task is the §6.1 intake payload plus its transport headers.
type Task struct {
	DocumentID string
	Filename   string
	Method     extraction.Method
	OCRMode    domain.OCRMode
	TaskName   string
	RetryCount int
}

// Outcome is what the controller hands back to the dispatcher: the
// HTTP status it should answer with (200 for a completed-or-permanent
// outcome, 503 to request another delivery) and the document's
// resulting state, for telemetry.
type Outcome struct {
	HTTPStatus   int
	Status       domain.DocumentStatus
	ErrorMessage string
}

// Controller implements C6.
type Controller struct {
	Documents     DocumentStore
	Borrowers     BorrowerSink
	Blobs         BlobFetcher
	OCR           OCRPipeline
	Extraction    ExtractionRouter
	Reconcile     ReconcileEngine
	MaxRetryCount int
	logger        *logging.Logger
}

// NewController wires a Controller from its collaborators. A
// non-positive maxRetryCount falls back to DefaultMaxRetryCount.
func NewController(documents DocumentStore, borrowers BorrowerSink, blobs BlobFetcher, ocrPipeline OCRPipeline, extractionRouter ExtractionRouter, reconcileEngine ReconcileEngine, maxRetryCount int) *Controller {
	if maxRetryCount <= 0 {
		maxRetryCount = DefaultMaxRetryCount
	}
	return &Controller{
		Documents:     documents,
		Borrowers:     borrowers,
		Blobs:         blobs,
		OCR:           ocrPipeline,
		Extraction:    extractionRouter,
		Reconcile:     reconcileEngine,
		MaxRetryCount: maxRetryCount,
		logger:        logging.NewLogger("TaskLifecycleController"),
	}
}

// Process runs the full §4.6 protocol for one task delivery.
func (c *Controller) Process(ctx context.Context, task Task) Outcome {
	doc, err := c.Documents.GetDocument(ctx, task.DocumentID)
	if err != nil {
		return c.transientOutcome(ctx, task, "", fmt.Errorf("lookup document: %w", err))
	}
	if doc == nil {
		c.logger.Warn("task references a document that does not exist", "document_id", task.DocumentID)
		return Outcome{HTTPStatus: 200, Status: domain.StatusFailed, ErrorMessage: "document not found"}
	}

	// Idempotency root: a terminal document is never re-opened.
	if doc.Status.IsTerminal() {
		c.logger.Info("task claim observed a terminal document, no-op", "document_id", doc.ID, "status", doc.Status)
		return Outcome{HTTPStatus: 200, Status: doc.Status, ErrorMessage: doc.ErrorMessage}
	}

	c.logger.Info("task claimed", "document_id", doc.ID, "task_name", task.TaskName, "retry_count", task.RetryCount)

	if err := c.Documents.UpdateDocumentStatus(ctx, doc.ID, domain.StatusProcessing, doc.PageCount, doc.OCRProcessed, ""); err != nil {
		return c.transientOutcome(ctx, task, doc.ID, fmt.Errorf("transition to processing: %w", err))
	}

	if doc.BlobURI == "" {
		// A concurrent uploader may still be writing the blob; this is
		// retryable, not a document defect.
		return c.transientOutcome(ctx, task, doc.ID, fmt.Errorf("blob_uri is not yet set"))
	}

	fileBytes, err := c.Blobs.Fetch(ctx, doc.BlobURI)
	if err != nil {
		return c.transientOutcome(ctx, task, doc.ID, fmt.Errorf("fetch blob %s: %w", doc.BlobURI, err))
	}

	ocrResult, err := c.OCR.Process(ctx, fileBytes, doc.Filename, doc.FileType, task.OCRMode)
	if err != nil {
		// Only an unrecoverable native extraction failure propagates out
		// of the OCR pipeline; every OCR-specific failure is absorbed
		// into the Tesseract fallback. A propagated error here is
		// therefore permanent, per §7's DocumentProcessing row.
		perr := apperrors.NewDocumentProcessingError(doc.ID, err)
		return c.finalizePermanent(ctx, doc.ID, perr)
	}

	pageCount := ocrResult.Content.PageCount
	ocrProcessed := ocrResult.Method != ocr.MethodNone
	c.logger.Info("OCR method chosen", "document_id", doc.ID, "method", ocrResult.Method, "pages_ocrd", len(ocrResult.PagesOCRd))

	// Flush intermediate progress so a crash mid-pipeline is diagnosable.
	if err := c.Documents.UpdateDocumentStatus(ctx, doc.ID, domain.StatusProcessing, &pageCount, &ocrProcessed, ""); err != nil {
		return c.transientOutcome(ctx, task, doc.ID, fmt.Errorf("flush OCR progress: %w", err))
	}

	extractionOutput, err := c.Extraction.Extract(ctx, ocrResult.Content, doc.ID, doc.Filename, task.Method)
	if err != nil {
		return c.transientOutcome(ctx, task, doc.ID, fmt.Errorf("extraction: %w", err))
	}
	c.logger.Info("extraction method chosen", "document_id", doc.ID, "method", extractionOutput.MethodUsed,
		"input_tokens", extractionOutput.InputTokens, "output_tokens", extractionOutput.OutputTokens)

	reconciled := c.Reconcile.Reconcile(extractionOutput.Borrowers, extractionOutput.ValidationErrors)

	succeeded, failures := c.Borrowers.PersistBorrowers(ctx, doc.ID, reconciled.Borrowers)
	attempted := len(reconciled.Borrowers)
	for _, f := range failures {
		c.logger.Warn("borrower persistence failed", "document_id", doc.ID, "error", f)
	}

	finalStatus, errorMessage := decideTerminalState(succeeded, attempted)

	if err := c.Documents.UpdateDocumentStatus(ctx, doc.ID, finalStatus, &pageCount, &ocrProcessed, errorMessage); err != nil {
		return c.transientOutcome(ctx, task, doc.ID, fmt.Errorf("finalize status: %w", err))
	}

	c.logger.Info("task terminal transition", "document_id", doc.ID, "status", finalStatus,
		"borrowers_attempted", attempted, "borrowers_succeeded", succeeded)

	return Outcome{HTTPStatus: 200, Status: finalStatus, ErrorMessage: errorMessage}
}

// decideTerminalState implements §4.6 step 10. A document without any
// extracted borrowers is a valid, complete outcome - not an error.
func decideTerminalState(succeeded, attempted int) (domain.DocumentStatus, string) {
	switch {
	case attempted == 0:
		return domain.StatusCompleted, ""
	case succeeded == attempted:
		return domain.StatusCompleted, ""
	case succeeded > 0:
		return domain.StatusCompleted, fmt.Sprintf("Partial success: %d/%d", succeeded, attempted)
	default:
		return domain.StatusFailed, fmt.Sprintf("all %d borrowers failed to persist", attempted)
	}
}

// transientOutcome implements the retry budget: every other raised
// error is transient until the budget is exhausted, at which point it
// converts to FAILED with "Max retries exhausted" (§4.6, §7).
func (c *Controller) transientOutcome(ctx context.Context, task Task, documentID string, cause error) Outcome {
	if task.RetryCount < c.MaxRetryCount {
		c.logger.Warn("transient failure, requesting retry", "document_id", task.DocumentID,
			"retry_count", task.RetryCount, "max_retry_count", c.MaxRetryCount, "error", cause)
		return Outcome{HTTPStatus: 503, Status: domain.StatusProcessing, ErrorMessage: cause.Error()}
	}

	perr := apperrors.NewRetriesExhaustedError(task.DocumentID, task.RetryCount+1)
	perr.Cause = cause
	return c.finalizePermanent(ctx, documentID, perr)
}

// finalizePermanent writes the terminal FAILED state for a permanent
// error and always answers 200: the dispatcher must never retry a
// permanent outcome.
func (c *Controller) finalizePermanent(ctx context.Context, documentID string, perr *apperrors.ProcessingError) Outcome {
	message := perr.Error()
	if documentID != "" {
		if err := c.Documents.UpdateDocumentStatus(ctx, documentID, domain.StatusFailed, nil, nil, message); err != nil {
			c.logger.Error("failed to persist terminal FAILED state", "document_id", documentID, "error", err)
		}
	}
	c.logger.Warn("task terminal transition", "document_id", documentID, "status", domain.StatusFailed, "error", message)
	return Outcome{HTTPStatus: 200, Status: domain.StatusFailed, ErrorMessage: message}
}
