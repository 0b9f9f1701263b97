package ocr

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/adverant/nexus/loanprocess-worker/internal/domain"
)

// NativeExtract produces the per-page text a document's own text layer
// carries, independent of OCR. For scanned PDF pages this yields an
// empty (or near-empty) string, which the router then overwrites with
// OCR'd text; for docx it is the entire linearized body in a single
// page (docx carries no page boundaries); for a bare image there is no
// native text layer at all.
func NativeExtract(fileBytes []byte, fileType domain.FileType) ([]domain.PageContent, error) {
	switch fileType {
	case domain.FileTypeDOCX:
		text, err := extractDocxText(fileBytes)
		if err != nil {
			return nil, fmt.Errorf("native extract: docx: %w", err)
		}
		return []domain.PageContent{{PageNumber: 1, Text: text}}, nil
	case domain.FileTypePNG, domain.FileTypeJPG:
		return []domain.PageContent{{PageNumber: 1, Text: ""}}, nil
	default:
		return extractPDFPages(fileBytes)
	}
}

// extractPDFPages walks every page's text layer with the same reader
// the scanned-page detector uses, so native and OCR'd text share one
// page-numbering source of truth.
func extractPDFPages(pdfBytes []byte) ([]domain.PageContent, error) {
	reader := bytes.NewReader(pdfBytes)
	doc, err := pdf.NewReader(reader, int64(len(pdfBytes)))
	if err != nil {
		return nil, fmt.Errorf("pdf: %w", err)
	}

	numPages := doc.NumPage()
	pages := make([]domain.PageContent, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page := doc.Page(i)
		if page.V.IsNull() {
			pages = append(pages, domain.PageContent{PageNumber: i, Text: ""})
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			pages = append(pages, domain.PageContent{PageNumber: i, Text: ""})
			continue
		}
		pages = append(pages, domain.PageContent{PageNumber: i, Text: text})
	}
	return pages, nil
}

// docxDocument mirrors just enough of word/document.xml's shape to pull
// out run text in reading order.
type docxDocument struct {
	XMLName xml.Name   `xml:"document"`
	Body    docxBody   `xml:"body"`
}

type docxBody struct {
	Paragraphs []docxParagraph `xml:"p"`
}

type docxParagraph struct {
	Runs []docxRun `xml:"r"`
}

type docxRun struct {
	Text []string `xml:"t"`
}

// extractDocxText reads word/document.xml out of the docx zip
// container and linearizes its paragraph runs into plain text, one
// paragraph per line. No docx-parsing library appears anywhere in the
// example pack, so this is a deliberately minimal stdlib reader: it
// keeps only the run text, dropping styling, headers/footers, and
// embedded objects.
func extractDocxText(docxBytes []byte) (string, error) {
	reader, err := zip.NewReader(bytes.NewReader(docxBytes), int64(len(docxBytes)))
	if err != nil {
		return "", fmt.Errorf("docx is not a valid zip container: %w", err)
	}

	var documentXML []byte
	for _, f := range reader.File {
		if f.Name == "word/document.xml" {
			rc, err := f.Open()
			if err != nil {
				return "", fmt.Errorf("open word/document.xml: %w", err)
			}
			documentXML, err = io.ReadAll(rc)
			rc.Close()
			if err != nil {
				return "", fmt.Errorf("read word/document.xml: %w", err)
			}
			break
		}
	}
	if documentXML == nil {
		return "", fmt.Errorf("word/document.xml not found")
	}

	var doc docxDocument
	if err := xml.Unmarshal(documentXML, &doc); err != nil {
		return "", fmt.Errorf("parse word/document.xml: %w", err)
	}

	var lines []string
	for _, p := range doc.Body.Paragraphs {
		var b strings.Builder
		for _, r := range p.Runs {
			for _, t := range r.Text {
				b.WriteString(t)
			}
		}
		lines = append(lines, b.String())
	}
	return strings.Join(lines, "\n"), nil
}
