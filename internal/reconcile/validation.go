package reconcile

import (
	"regexp"
	"strconv"
	"time"

	"github.com/adverant/nexus/loanprocess-worker/internal/domain"
)

var (
	ssnPattern = regexp.MustCompile(`^\d{3}-\d{2}-\d{4}$`)
	zipPattern = regexp.MustCompile(`^\d{5}(-\d{4})?$`)
	digitOnlyPattern = regexp.MustCompile(`\d`)
)

const minYear = 1950

// Validator applies field-level format and range checks to a merged
// borrower. Failures become ValidationErrors without disqualifying the
// record.
type Validator struct{}

// NewValidator builds a Validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate runs every field check against record and returns the
// errors found, plus whether all checks passed (used by the confidence
// calculator's format-validation bonus).
func (v *Validator) Validate(record domain.BorrowerRecord) ([]domain.ValidationError, bool) {
	var errs []domain.ValidationError
	passed := true

	if record.SSN != "" && !ssnPattern.MatchString(record.SSN) {
		errs = append(errs, domain.ValidationError{
			Field: "ssn", Value: record.SSN, Kind: domain.ValidationFormat,
			Message: "SSN does not match XXX-XX-XXXX",
		})
		passed = false
	}

	if record.Phone != "" && !validPhone(record.Phone) {
		errs = append(errs, domain.ValidationError{
			Field: "phone", Value: record.Phone, Kind: domain.ValidationFormat,
			Message: "phone number has fewer than 10 digits",
		})
		passed = false
	}

	if record.Address != nil && record.Address.ZipCode != "" && !zipPattern.MatchString(record.Address.ZipCode) {
		errs = append(errs, domain.ValidationError{
			Field: "address.zip_code", Value: record.Address.ZipCode, Kind: domain.ValidationFormat,
			Message: "ZIP does not match ^\\d{5}(-\\d{4})?$",
		})
		passed = false
	}

	maxYear := time.Now().Year() + 1
	for _, inc := range record.IncomeHistory {
		if inc.Year < minYear || inc.Year > maxYear {
			errs = append(errs, domain.ValidationError{
				Field: "income_history.year", Value: strconv.Itoa(inc.Year), Kind: domain.ValidationRange,
				Message: "income year outside [1950, current_year+1]",
			})
			passed = false
		}
	}

	return errs, passed
}

// validPhone checks locale-agnostic digit count, no library for
// locale-aware phone parsing exists in the example pack.
func validPhone(phone string) bool {
	digits := digitOnlyPattern.FindAllString(phone, -1)
	return len(digits) >= 10
}
