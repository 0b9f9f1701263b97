package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/adverant/nexus/loanprocess-worker/internal/domain"
)

func TestMergeRecordsPicksHigherConfidenceAsBase(t *testing.T) {
	base := domain.BorrowerRecord{Name: "Base Name", ConfidenceScore: 0.8, Phone: "555-111-2222"}
	other := domain.BorrowerRecord{Name: "Other Name", ConfidenceScore: 0.4, Email: "other@example.com"}

	merged := mergeRecords(base, other)
	assert.Equal(t, "Base Name", merged.Name)
	assert.Equal(t, "555-111-2222", merged.Phone)
	assert.Equal(t, "other@example.com", merged.Email) // adopted: base had none
}

func TestMergeRecordsKeepsBaseNonNullFieldOverOther(t *testing.T) {
	base := domain.BorrowerRecord{ConfidenceScore: 0.9, SSN: "123-45-6789"}
	other := domain.BorrowerRecord{ConfidenceScore: 0.3, SSN: "999-99-9999"}

	merged := mergeRecords(base, other)
	assert.Equal(t, "123-45-6789", merged.SSN)
}

func TestMergeRecordsConfidenceIsMaxOfBoth(t *testing.T) {
	base := domain.BorrowerRecord{ConfidenceScore: 0.6}
	other := domain.BorrowerRecord{ConfidenceScore: 0.9}

	merged := mergeRecords(base, other)
	assert.Equal(t, 0.9, merged.ConfidenceScore)
}

func TestMergeRecordsDedupsIncomeByYearPeriodAmount(t *testing.T) {
	base := domain.BorrowerRecord{
		ConfidenceScore: 0.5,
		IncomeHistory:   []domain.IncomeRecord{{Year: 2020, Period: "annual", Amount: 50000}},
	}
	other := domain.BorrowerRecord{
		ConfidenceScore: 0.5,
		IncomeHistory: []domain.IncomeRecord{
			{Year: 2020, Period: "annual", Amount: 50000}, // exact duplicate
			{Year: 2021, Period: "annual", Amount: 55000},
		},
	}

	merged := mergeRecords(base, other)
	assert.Len(t, merged.IncomeHistory, 2)
}

func TestMergeRecordsUnionsAccountAndLoanNumbersAsSets(t *testing.T) {
	base := domain.BorrowerRecord{ConfidenceScore: 0.6, AccountNumbers: []string{"A", "B"}, LoanNumbers: []string{"L1"}}
	other := domain.BorrowerRecord{ConfidenceScore: 0.5, AccountNumbers: []string{"B", "C"}, LoanNumbers: []string{"L1", "L2"}}

	merged := mergeRecords(base, other)
	assert.ElementsMatch(t, []string{"A", "B", "C"}, merged.AccountNumbers)
	assert.ElementsMatch(t, []string{"L1", "L2"}, merged.LoanNumbers)
}

func TestMergeRecordsAdoptsOtherAddressWhenBaseHasNone(t *testing.T) {
	base := domain.BorrowerRecord{ConfidenceScore: 0.7}
	other := domain.BorrowerRecord{ConfidenceScore: 0.2, Address: &domain.Address{City: "Denver"}}

	merged := mergeRecords(base, other)
	assert.NotNil(t, merged.Address)
	assert.Equal(t, "Denver", merged.Address.City)
}

func TestMergeRecordsKeepsDistinctSourcesFromBothSides(t *testing.T) {
	base := domain.BorrowerRecord{
		ConfidenceScore: 0.5,
		Sources:         []domain.SourceReference{{DocumentID: "d1", PageNumber: 1, CharStart: -1, CharEnd: -1}},
	}
	other := domain.BorrowerRecord{
		ConfidenceScore: 0.5,
		Sources:         []domain.SourceReference{{DocumentID: "d1", PageNumber: 1, CharStart: -1, CharEnd: -1}, {DocumentID: "d2", PageNumber: 3, CharStart: -1, CharEnd: -1}},
	}

	merged := mergeRecords(base, other)
	assert.Len(t, merged.Sources, 2)
}
