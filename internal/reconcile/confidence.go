package reconcile

import "github.com/adverant/nexus/loanprocess-worker/internal/domain"

const (
	confidenceBase           = 0.5
	requiredFieldBonus       = 0.1
	requiredFieldCap         = 0.2
	optionalListBonus        = 0.05
	optionalListCap          = 0.15
	multiSourceBonus         = 0.10
	formatValidationBonus    = 0.15
	requiresReviewThreshold  = 0.70
)

// ConfidenceBreakdown preserves the individual bonuses for audit even
// when the clipped total differs from their sum.
type ConfidenceBreakdown struct {
	Base               float64
	RequiredFieldBonus float64
	OptionalListBonus  float64
	MultiSourceBonus   float64
	ValidationBonus    float64
	Total              float64
}

// ScoreConfidence computes the additive confidence score for a merged
// borrower, given whether its field validations all passed.
func ScoreConfidence(record domain.BorrowerRecord, validationPassed bool) ConfidenceBreakdown {
	requiredBonus := 0.0
	if len([]rune(record.Name)) >= 2 {
		requiredBonus += requiredFieldBonus
	}
	if record.Address != nil {
		requiredBonus += requiredFieldBonus
	}
	if requiredBonus > requiredFieldCap {
		requiredBonus = requiredFieldCap
	}

	optionalBonus := 0.0
	if len(record.IncomeHistory) > 0 {
		optionalBonus += optionalListBonus
	}
	if len(record.AccountNumbers) > 0 {
		optionalBonus += optionalListBonus
	}
	if len(record.LoanNumbers) > 0 {
		optionalBonus += optionalListBonus
	}
	if optionalBonus > optionalListCap {
		optionalBonus = optionalListCap
	}

	multiSource := 0.0
	if len(record.Sources) >= 2 {
		multiSource = multiSourceBonus
	}

	validationBonus := 0.0
	if validationPassed {
		validationBonus = formatValidationBonus
	}

	total := confidenceBase + requiredBonus + optionalBonus + multiSource + validationBonus
	if total > 1 {
		total = 1
	}
	if total < 0 {
		total = 0
	}

	return ConfidenceBreakdown{
		Base:               confidenceBase,
		RequiredFieldBonus: requiredBonus,
		OptionalListBonus:  optionalBonus,
		MultiSourceBonus:   multiSource,
		ValidationBonus:    validationBonus,
		Total:              total,
	}
}

// RequiresReview reports whether total falls below the review
// threshold.
func RequiresReview(total float64) bool {
	return total < requiresReviewThreshold
}
