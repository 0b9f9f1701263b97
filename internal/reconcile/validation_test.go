package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/adverant/nexus/loanprocess-worker/internal/domain"
)

func TestValidatorAcceptsWellFormedRecord(t *testing.T) {
	record := domain.BorrowerRecord{
		Name:  "Jane Doe",
		SSN:   "123-45-6789",
		Phone: "512-555-0100",
		Address: &domain.Address{
			ZipCode: "78701",
		},
		IncomeHistory: []domain.IncomeRecord{{Year: 2022, Amount: 1000, Period: "annual"}},
	}
	errs, passed := NewValidator().Validate(record)
	assert.Empty(t, errs)
	assert.True(t, passed)
}

func TestValidatorFlagsMalformedSSNWithoutDisqualifying(t *testing.T) {
	record := domain.BorrowerRecord{Name: "Jane Doe", SSN: "123456789"}
	errs, passed := NewValidator().Validate(record)
	assert.False(t, passed)
	assert.Len(t, errs, 1)
	assert.Equal(t, "ssn", errs[0].Field)
}

func TestValidatorFlagsShortPhoneNumber(t *testing.T) {
	record := domain.BorrowerRecord{Name: "Jane Doe", Phone: "555-0100"}
	errs, passed := NewValidator().Validate(record)
	assert.False(t, passed)
	assert.Equal(t, "phone", errs[0].Field)
}

func TestValidatorFlagsMalformedZip(t *testing.T) {
	record := domain.BorrowerRecord{Name: "Jane Doe", Address: &domain.Address{ZipCode: "ABCDE"}}
	errs, passed := NewValidator().Validate(record)
	assert.False(t, passed)
	assert.Equal(t, "address.zip_code", errs[0].Field)
}

func TestValidatorAcceptsZipPlusFour(t *testing.T) {
	record := domain.BorrowerRecord{Name: "Jane Doe", Address: &domain.Address{ZipCode: "78701-1234"}}
	_, passed := NewValidator().Validate(record)
	assert.True(t, passed)
}

func TestValidatorFlagsIncomeYearOutOfRange(t *testing.T) {
	record := domain.BorrowerRecord{Name: "Jane Doe", IncomeHistory: []domain.IncomeRecord{{Year: 1900, Amount: 1, Period: "annual"}}}
	errs, passed := NewValidator().Validate(record)
	assert.False(t, passed)
	assert.Equal(t, "income_history.year", errs[0].Field)
}

func TestValidatorAllowsEmptyOptionalFields(t *testing.T) {
	record := domain.BorrowerRecord{Name: "Jane Doe"}
	errs, passed := NewValidator().Validate(record)
	assert.Empty(t, errs)
	assert.True(t, passed)
}
