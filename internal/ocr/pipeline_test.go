package ocr

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adverant/nexus/loanprocess-worker/internal/domain"
)

func TestPipelineProcessDocxNeverTouchesRouter(t *testing.T) {
	docxBytes := buildTestDocx(t)
	p := NewPipeline(NewDetector(50, 0.5), nil, t.TempDir())

	result, err := p.Process(context.Background(), docxBytes, "loan.docx", domain.FileTypeDOCX, domain.OCRModeAuto)
	require.NoError(t, err)
	assert.Equal(t, MethodNone, result.Method)
	assert.Contains(t, result.Content.Text, "Borrower Jane Doe")
}

func TestPipelineProcessImageSkipModeNeverTouchesRouter(t *testing.T) {
	p := NewPipeline(NewDetector(50, 0.5), nil, t.TempDir())

	result, err := p.Process(context.Background(), []byte{0x89, 'P', 'N', 'G'}, "scan.png", domain.FileTypePNG, domain.OCRModeSkip)
	require.NoError(t, err)
	assert.Equal(t, MethodNone, result.Method)
	assert.Equal(t, 1, result.Content.PageCount)
}

func TestPipelineProcessPDFSkipModeStillRunsNativeExtraction(t *testing.T) {
	// processPDF always runs native text extraction first regardless of
	// mode, so garbage PDF bytes surface as an error even under skip.
	p := NewPipeline(NewDetector(50, 0.5), nil, t.TempDir())

	_, err := p.Process(context.Background(), []byte("not a pdf"), "loan.pdf", domain.FileTypePDF, domain.OCRModeSkip)
	assert.Error(t, err)
}

func TestPipelineProcessUnknownFileTypeDefaultsToPDFPath(t *testing.T) {
	p := NewPipeline(NewDetector(50, 0.5), nil, t.TempDir())

	_, err := p.Process(context.Background(), []byte("not a pdf"), "loan.bin", domain.FileType("unknown"), domain.OCRModeSkip)
	assert.Error(t, err)
}
