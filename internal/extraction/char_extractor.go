package extraction

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/adverant/nexus/loanprocess-worker/internal/domain"
)

// CharExtractor implements the character-grounded extraction path:
// SourceReferences carry char_start/char_end, and the substring
// invariant is verified against the source document text before a
// reference is accepted.
type CharExtractor struct {
	LLM     *LLMClient
	Chunker *Chunker
}

// NewCharExtractor wires a CharExtractor from its collaborators.
func NewCharExtractor(llm *LLMClient, chunker *Chunker) *CharExtractor {
	return &CharExtractor{LLM: llm, Chunker: chunker}
}

// CharExtractResult carries the character-grounded borrowers plus any
// alignment warnings raised when a borrower's name could not be found in
// the document text.
type CharExtractResult struct {
	Borrowers          []domain.BorrowerRecord
	AlignmentWarnings  []string
	InputTokens        int
	OutputTokens       int
}

// Extract runs the character-grounded pipeline over the full document
// text (LangExtract-style processors work over the whole document
// rather than per-chunk, since the offset space must stay stable).
func (e *CharExtractor) Extract(ctx context.Context, content domain.DocumentContent, documentID, documentName string) (CharExtractResult, error) {
	assessment := ClassifyComplexity(content.Text, content.PageCount)
	tier := TierFlash
	if assessment.Level == LevelComplex {
		tier = TierPro
	}

	resp, err := e.LLM.Extract(ctx, content.Text, tier)
	if err != nil {
		return CharExtractResult{}, fmt.Errorf("char extractor: %w", err)
	}

	var borrowers []domain.BorrowerRecord
	var warnings []string

	for _, raw := range resp.Borrowers {
		name := strings.TrimSpace(raw.Name)
		if name == "" {
			continue
		}

		charStart, charEnd, ok := locate(content.Text, raw.Name)
		var source domain.SourceReference
		if ok {
			pageNumber := OffsetToPage(content, charStart)
			source = domain.SourceReference{
				DocumentID:   documentID,
				DocumentName: documentName,
				PageNumber:   pageNumber,
				Snippet:      snippetAround(content.Text, charStart, charEnd),
				CharStart:    charStart,
				CharEnd:      charEnd,
			}
		} else {
			warnings = append(warnings, fmt.Sprintf("could not align borrower %q to a character offset", name))
			source = domain.SourceReference{
				DocumentID:   documentID,
				DocumentName: documentName,
				PageNumber:   1,
				CharStart:    -1,
				CharEnd:      -1,
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

		borrowers = append(borrowers, domain.BorrowerRecord{
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
		})
	}

	return CharExtractResult{
		Borrowers:         borrowers,
		AlignmentWarnings: warnings,
		InputTokens:       resp.InputTokens,
		OutputTokens:      resp.OutputTokens,
	}, nil
}

// locate finds the first occurrence of needle in haystack and returns
// its code-point offsets, upholding the substring invariant that
// haystack[charStart:charEnd] == needle (in rune space).
func locate(haystack, needle string) (int, int, bool) {
	if needle == "" {
		return 0, 0, false
	}
	byteIdx := strings.Index(haystack, needle)
	if byteIdx < 0 {
		return 0, 0, false
	}
	runeStart := len([]rune(haystack[:byteIdx]))
	runeEnd := runeStart + len([]rune(needle))
	return runeStart, runeEnd, true
}

func snippetAround(text string, charStart, charEnd int) string {
	runes := []rune(text)
	start := charStart - 50
	if start < 0 {
		start = 0
	}
	end := charEnd + 150
	if end > len(runes) {
		end = len(runes)
	}
	snippet := string(runes[start:end])
	if len([]rune(snippet)) > 200 {
		snippet = string([]rune(snippet)[:200])
	}
	return snippet
}
