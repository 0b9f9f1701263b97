package extraction

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adverant/nexus/loanprocess-worker/internal/domain"
)

func TestNormalizeSSNReformatsNineDigits(t *testing.T) {
	assert.Equal(t, "123-45-6789", normalizeSSN("123456789"))
	assert.Equal(t, "123-45-6789", normalizeSSN("123-45-6789"))
}

func TestNormalizeSSNLeavesNonNineDigitInputUntouched(t *testing.T) {
	assert.Equal(t, "12-34", normalizeSSN("12-34"))
	assert.Equal(t, "", normalizeSSN(""))
}

func TestParseMoneyStripsCurrencyAndSeparators(t *testing.T) {
	v, err := parseMoney("$45,000.50")
	require.NoError(t, err)
	assert.InDelta(t, 45000.50, v, 0.001)
}

func TestParseMoneyRejectsEmptyAfterStripping(t *testing.T) {
	_, err := parseMoney("N/A")
	assert.Error(t, err)
}

// Offsets are taken against the same domain.LinearizePages output the
// OCR router actually produces (pages joined by domain.PageSeparator),
// so this exercises the real production linearization rather than a
// bare concatenation that happens to dodge the separator width.
func TestOffsetToPageMapsByPageBoundaries(t *testing.T) {
	pages := []domain.PageContent{
		{PageNumber: 1, Text: "0123456789"},
		{PageNumber: 2, Text: "abcdefghij"},
		{PageNumber: 3, Text: "klmnopqrst"},
	}
	content := domain.DocumentContent{Pages: pages, Text: domain.LinearizePages(pages)}

	require.Equal(t, "0123456789\n\nabcdefghij\n\nklmnopqrst", content.Text)

	assert.Equal(t, 1, OffsetToPage(content, 0))  // first char of page 1
	assert.Equal(t, 1, OffsetToPage(content, 9))  // last char of page 1
	assert.Equal(t, 2, OffsetToPage(content, 12)) // first char of page 2, past the "\n\n"
	assert.Equal(t, 2, OffsetToPage(content, 21)) // last char of page 2
	assert.Equal(t, 3, OffsetToPage(content, 24)) // first char of page 3, past the "\n\n"
	assert.Equal(t, 3, OffsetToPage(content, 33)) // last char of page 3
	assert.Equal(t, 3, OffsetToPage(content, 999)) // clamps to last page
}

func TestConvertToBorrowerRecordRejectsEmptyName(t *testing.T) {
	_, verr := convertToBorrowerRecord(ExtractedBorrower{Name: "  "}, "doc-1", "file.pdf", 1, "snippet")
	require.NotNil(t, verr)
	assert.Equal(t, "name", verr.Field)
}

func TestConvertToBorrowerRecordSkipsUnparseableIncome(t *testing.T) {
	raw := ExtractedBorrower{
		Name: "Jane Doe",
		IncomeHistory: []ExtractedIncome{
			{Amount: "$50,000", Year: 2023},
			{Amount: "garbage", Year: 2022},
		},
	}
	record, verr := convertToBorrowerRecord(raw, "doc-1", "file.pdf", 2, "snippet")
	require.Nil(t, verr)
	require.Len(t, record.IncomeHistory, 1)
	assert.InDelta(t, 50000.0, record.IncomeHistory[0].Amount, 0.001)
	assert.Equal(t, 2, record.Sources[0].PageNumber)
}

func newFakeLLMServer(t *testing.T, resp ExtractionResponse) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func TestExtractorExtractRunsPerChunkAndConvertsBorrowers(t *testing.T) {
	resp := ExtractionResponse{
		Borrowers: []ExtractedBorrower{
			{Name: "Alice Borrower", SSN: "123456789"},
		},
		InputTokens:  100,
		OutputTokens: 20,
	}
	server := newFakeLLMServer(t, resp)
	defer server.Close()

	llm := NewLLMClient(server.URL, "", 0)
	chunker := NewChunker(DefaultMaxChars, DefaultOverlapChars)
	extractor := NewExtractor(llm, chunker)

	content := domain.DocumentContent{
		Text:      "Document body mentioning Alice Borrower.",
		PageCount: 1,
		Pages:     []domain.PageContent{{PageNumber: 1, Text: "Document body mentioning Alice Borrower."}},
	}

	borrowers, assessment, verrs, inTok, outTok, err := extractor.Extract(context.Background(), content, "doc-1", "file.pdf")
	require.NoError(t, err)
	assert.Empty(t, verrs)
	require.Len(t, borrowers, 1)
	assert.Equal(t, "Alice Borrower", borrowers[0].Name)
	assert.Equal(t, "123-45-6789", borrowers[0].SSN)
	assert.Equal(t, 1, borrowers[0].Sources[0].PageNumber)
	assert.Equal(t, 100, inTok)
	assert.Equal(t, 20, outTok)
	assert.Equal(t, LevelStandard, assessment.Level)
}
