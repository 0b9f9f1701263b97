package reconcile

import "github.com/adverant/nexus/loanprocess-worker/internal/domain"

// Result is C5's full output: the deduplicated, scored, validated
// borrower list plus the errors and warnings surfaced along the way.
type Result struct {
	Borrowers           []domain.BorrowerRecord
	ValidationErrors    []domain.ValidationError
	ConsistencyWarnings []domain.ConsistencyWarning
}

// Engine ties together deduplication, field validation, confidence
// scoring, and consistency checks into the single C5 pass.
type Engine struct {
	Validator *Validator
}

// NewEngine builds an Engine.
func NewEngine() *Engine {
	return &Engine{Validator: NewValidator()}
}

// Reconcile runs the full C5 pipeline over the per-chunk borrower list
// produced by C4.
func (e *Engine) Reconcile(records []domain.BorrowerRecord, priorErrors []domain.ValidationError) Result {
	merged := Deduplicate(records)

	allErrors := append([]domain.ValidationError{}, priorErrors...)
	for i := range merged {
		fieldErrors, passed := e.Validator.Validate(merged[i])
		allErrors = append(allErrors, fieldErrors...)

		breakdown := ScoreConfidence(merged[i], passed)
		merged[i].ConfidenceScore = breakdown.Total
		merged[i].RequiresReview = RequiresReview(breakdown.Total)
	}

	warnings := CheckConsistency(merged)

	return Result{
		Borrowers:           merged,
		ValidationErrors:    allErrors,
		ConsistencyWarnings: warnings,
	}
}
