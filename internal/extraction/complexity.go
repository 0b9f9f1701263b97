// Package extraction implements the extraction router (C3) and the
// per-chunk LLM extractor (C4): complexity classification, chunking,
// the LLM client, and conversion into domain.BorrowerRecord.
package extraction

import "regexp"

// ComplexityLevel selects which model tier a document is routed to.
type ComplexityLevel string

const (
	LevelStandard ComplexityLevel = "STANDARD"
	LevelComplex  ComplexityLevel = "COMPLEX"
)

// ComplexityAssessment is C4 step 1's verdict.
type ComplexityAssessment struct {
	Level             ComplexityLevel
	Reasons           []string
	EstimatedBorrowers int
	HasHandwritten    bool
	HasPoorQuality    bool
	PageCount         int
}

var (
	multiBorrowerPattern = regexp.MustCompile(`(?i)co-borrower|joint applicant|spouse|borrower 2|second borrower`)
	qualityPattern        = regexp.MustCompile(`(?i)\[illegible\]|\[unclear\]|\?\?\?|[^\w\s]{5,}`)
	handwrittenPattern    = regexp.MustCompile(`(?i)\[handwritten\]|signature:|signed:`)
)

// ClassifyComplexity assesses document complexity from its linearized
// text and page count.
func ClassifyComplexity(text string, pageCount int) ComplexityAssessment {
	reasons := make([]string, 0)
	estimated := 1

	multiHits := multiBorrowerPattern.FindAllString(text, -1)
	if len(multiHits) > 0 {
		estimated += len(multiHits)
		reasons = append(reasons, "multi-borrower markers detected")
	}

	if pageCount > 10 {
		reasons = append(reasons, "page count exceeds 10")
	}

	qualityHits := qualityPattern.FindAllString(text, -1)
	hasPoorQuality := len(qualityHits) > 3
	if hasPoorQuality {
		reasons = append(reasons, "multiple quality indicators detected")
	}

	hasHandwritten := handwrittenPattern.MatchString(text)
	if hasHandwritten {
		reasons = append(reasons, "handwritten content markers detected")
	}

	level := LevelStandard
	if len(multiHits) > 0 || pageCount > 10 || hasPoorQuality || hasHandwritten {
		level = LevelComplex
	}

	return ComplexityAssessment{
		Level:              level,
		Reasons:            reasons,
		EstimatedBorrowers: estimated,
		HasHandwritten:     hasHandwritten,
		HasPoorQuality:     hasPoorQuality,
		PageCount:          pageCount,
	}
}
