package extraction

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/adverant/nexus/loanprocess-worker/internal/domain"
)

// ChunkExtractResult is one chunk's contribution to a document's
// extraction: borrowers converted from the LLM's raw output plus any
// records the conversion had to skip.
type ChunkExtractResult struct {
	Borrowers        []domain.BorrowerRecord
	ValidationErrors []domain.ValidationError
	InputTokens      int
	OutputTokens     int
}

// Extractor implements C4: per-chunk LLM extraction and conversion into
// domain.BorrowerRecord with page-level provenance (the docling path).
type Extractor struct {
	LLM     *LLMClient
	Chunker *Chunker
}

// NewExtractor wires an Extractor from its collaborators.
func NewExtractor(llm *LLMClient, chunker *Chunker) *Extractor {
	return &Extractor{LLM: llm, Chunker: chunker}
}

// Extract runs the full per-document pipeline: classify complexity,
// chunk, call the LLM per chunk, and convert results into
// domain.BorrowerRecord with page-level SourceReferences.
func (e *Extractor) Extract(ctx context.Context, content domain.DocumentContent, documentID, documentName string) ([]domain.BorrowerRecord, ComplexityAssessment, []domain.ValidationError, int, int, error) {
	assessment := ClassifyComplexity(content.Text, content.PageCount)
	tier := TierFlash
	if assessment.Level == LevelComplex {
		tier = TierPro
	}

	chunks := e.Chunker.Chunk(content.Text)

	var allBorrowers []domain.BorrowerRecord
	var allErrors []domain.ValidationError
	totalInput, totalOutput := 0, 0

	for _, chunk := range chunks {
		resp, err := e.LLM.Extract(ctx, chunk.Text, tier)
		if err != nil {
			return nil, assessment, nil, totalInput, totalOutput, fmt.Errorf("extractor: chunk %d: %w", chunk.ChunkIndex, err)
		}
		totalInput += resp.InputTokens
		totalOutput += resp.OutputTokens

		pageNumber := OffsetToPage(content, chunk.StartChar)
		snippet := chunk.Text
		if len([]rune(snippet)) > 200 {
			snippet = string([]rune(snippet)[:200])
		}

		for _, raw := range resp.Borrowers {
			record, verr := convertToBorrowerRecord(raw, documentID, documentName, pageNumber, snippet)
			if verr != nil {
				allErrors = append(allErrors, *verr)
				continue
			}
			allBorrowers = append(allBorrowers, record)
		}
	}

	return allBorrowers, assessment, allErrors, totalInput, totalOutput, nil
}

// pageSeparatorWidth is the rune width of domain.PageSeparator, the
// join domain.LinearizePages uses to build DocumentContent.Text. Every
// page after the first is preceded by one separator in that text, so
// the cumulative walk below must account for it or offsets drift by
// pageSeparatorWidth runes per preceding page.
var pageSeparatorWidth = len([]rune(domain.PageSeparator))

// OffsetToPage implements 4.4.a: mapping a character offset in the
// document's linearized text back to a 1-indexed page number.
func OffsetToPage(content domain.DocumentContent, charPos int) int {
	if len(content.Pages) > 0 {
		cumulative := 0
		for i, page := range content.Pages {
			if i > 0 {
				cumulative += pageSeparatorWidth
			}
			pageLen := len([]rune(page.Text))
			if cumulative+pageLen > charPos {
				return page.PageNumber
			}
			cumulative += pageLen
		}
		return content.Pages[len(content.Pages)-1].PageNumber
	}

	if content.PageCount > 0 && len(content.Text) > 0 {
		charsPerPage := float64(len([]rune(content.Text))) / float64(content.PageCount)
		estimated := int(float64(charPos)/charsPerPage) + 1
		if estimated > content.PageCount {
			estimated = content.PageCount
		}
		return estimated
	}

	return 1
}

var ssnDigitsPattern = regexp.MustCompile(`\d`)

// normalizeSSN strips non-digits and reformats to XXX-XX-XXXX, leaving
// the input untouched if it doesn't carry exactly 9 digits.
func normalizeSSN(raw string) string {
	digits := ssnDigitsPattern.FindAllString(raw, -1)
	if len(digits) != 9 {
		return raw
	}
	joined := strings.Join(digits, "")
	return fmt.Sprintf("%s-%s-%s", joined[0:3], joined[3:5], joined[5:9])
}

var currencyStripPattern = regexp.MustCompile(`[^\d.\-]`)

// parseMoney strips currency symbols and thousands separators, parsing
// the remainder as a fixed-precision amount.
func parseMoney(raw string) (float64, error) {
	cleaned := currencyStripPattern.ReplaceAllString(raw, "")
	if cleaned == "" {
		return 0, fmt.Errorf("empty amount")
	}
	return strconv.ParseFloat(cleaned, 64)
}

func convertToBorrowerRecord(raw ExtractedBorrower, documentID, documentName string, pageNumber int, snippet string) (domain.BorrowerRecord, *domain.ValidationError) {
	name := strings.TrimSpace(raw.Name)
	if name == "" {
		return domain.BorrowerRecord{}, &domain.ValidationError{
			Field:   "name",
			Value:   raw.Name,
			Kind:    domain.ValidationFormat,
			Message: "borrower name is empty",
		}
	}

	var address *domain.Address
	if raw.Address != nil {
		address = &domain.Address{
			Street:  raw.Address.Street,
			City:    raw.Address.City,
			State:   raw.Address.State,
			ZipCode: raw.Address.ZipCode,
		}
	}

	income := make([]domain.IncomeRecord, 0, len(raw.IncomeHistory))
	for _, inc := range raw.IncomeHistory {
		amount, err := parseMoney(inc.Amount)
		if err != nil {
			continue
		}
		income = append(income, domain.IncomeRecord{
			Amount:     amount,
			Period:     inc.Period,
			Year:       inc.Year,
			SourceType: inc.SourceType,
			Employer:   inc.Employer,
		})
	}

	source := domain.SourceReference{
		DocumentID:   documentID,
		DocumentName: documentName,
		PageNumber:   pageNumber,
		Snippet:      snippet,
		CharStart:    -1,
		CharEnd:      -1,
	}

	return domain.BorrowerRecord{
		ID:              uuid.NewString(),
		Name:            name,
		SSN:             normalizeSSN(raw.SSN),
		Phone:           raw.Phone,
		Email:           raw.Email,
		Address:         address,
		IncomeHistory:   income,
		AccountNumbers:  append([]string{}, raw.AccountNumbers...),
		LoanNumbers:     append([]string{}, raw.LoanNumbers...),
		Sources:         []domain.SourceReference{source},
		ConfidenceScore: 0.5,
	}, nil
}
