// Package domain holds the entity types shared across the processing
// pipeline: documents, their transient content, and the borrower records
// reconciled from them.
package domain

import (
	"strings"
	"time"
)

// DocumentStatus is the task-lifecycle state of a Document row.
type DocumentStatus string

const (
	StatusPending    DocumentStatus = "PENDING"
	StatusProcessing DocumentStatus = "PROCESSING"
	StatusCompleted  DocumentStatus = "COMPLETED"
	StatusFailed     DocumentStatus = "FAILED"
)

// IsTerminal reports whether s is a state the lifecycle controller never
// re-opens.
func (s DocumentStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// FileType enumerates the accepted ingress formats.
type FileType string

const (
	FileTypePDF  FileType = "pdf"
	FileTypeDOCX FileType = "docx"
	FileTypePNG  FileType = "png"
	FileTypeJPG  FileType = "jpg"
)

// OCRMode selects how the OCR router treats a document.
type OCRMode string

const (
	OCRModeAuto  OCRMode = "auto"
	OCRModeForce OCRMode = "force"
	OCRModeSkip  OCRMode = "skip"
)

// ExtractionMethod selects which extraction path the extraction router
// uses.
type ExtractionMethod string

const (
	MethodDocling    ExtractionMethod = "docling"
	MethodLangExtract ExtractionMethod = "langextract"
	MethodAuto       ExtractionMethod = "auto"
)

// Document is the exclusive owner of its own processing lifecycle.
type Document struct {
	ID               string
	Filename         string
	ContentHash      string // SHA-256 hex, unique across the store
	FileType         FileType
	SizeBytes        int64
	BlobURI          string // empty until upload completes
	Status           DocumentStatus
	PageCount        *int
	ErrorMessage     string
	ExtractionMethod ExtractionMethod
	OCRMode          OCRMode
	OCRProcessed     *bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// PageContent is one page's worth of linearized text and tables.
type PageContent struct {
	PageNumber int // 1-indexed, strictly increasing, gap-free
	Text       string
	Tables     []Table
}

// Table is an extracted tabular region, kept opaque to the reconciliation
// pipeline (it is not consumed by C4/C5, only carried through).
type Table struct {
	PageNumber int
	Rows       [][]string
}

// DocumentContent is the transient, never-persisted product of the OCR
// router: the linearized text, ordered pages, and any tables found.
type DocumentContent struct {
	Text      string
	Pages     []PageContent
	PageCount int
	Tables    []Table
	Metadata  map[string]interface{}
}

// PageSeparator joins page text when linearizing a document's pages
// into DocumentContent.Text. Anything that maps a char_start/char_end
// offset (taken against the linearized text) back to a page number must
// account for this separator's width, or the mapping drifts by
// len(PageSeparator) runes per preceding page.
const PageSeparator = "\n\n"

// LinearizePages joins page text with PageSeparator, the single
// linearization both the OCR router (producing DocumentContent.Text)
// and the offset-to-page mapping (consuming char offsets against that
// text) must agree on.
func LinearizePages(pages []PageContent) string {
	var sb strings.Builder
	for i, p := range pages {
		if i > 0 {
			sb.WriteString(PageSeparator)
		}
		sb.WriteString(p.Text)
	}
	return sb.String()
}
