package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adverant/nexus/loanprocess-worker/internal/domain"
)

// Scenario E: two chunks each emit one borrower with the identical SSN
// and different but overlapping account numbers. Expected: one final
// borrower with the union of accounts and two source references.
func TestDeduplicateMergesOnSharedSSN(t *testing.T) {
	a := domain.BorrowerRecord{
		ID: "rec-a", Name: "Jane Doe", SSN: "123-45-6789",
		AccountNumbers:  []string{"A", "B"},
		ConfidenceScore: 0.6,
		Sources:         []domain.SourceReference{{DocumentID: "doc-1", PageNumber: 1, CharStart: -1, CharEnd: -1}},
	}
	b := domain.BorrowerRecord{
		ID: "rec-b", Name: "Jane Doe", SSN: "123-45-6789",
		AccountNumbers:  []string{"B", "C"},
		ConfidenceScore: 0.55,
		Sources:         []domain.SourceReference{{DocumentID: "doc-1", PageNumber: 2, CharStart: -1, CharEnd: -1}},
	}

	merged := Deduplicate([]domain.BorrowerRecord{a, b})

	require.Len(t, merged, 1)
	assert.ElementsMatch(t, []string{"A", "B", "C"}, merged[0].AccountNumbers)
	assert.Len(t, merged[0].Sources, 2)
}

func TestDeduplicateLeavesUnrelatedBorrowersApart(t *testing.T) {
	a := domain.BorrowerRecord{ID: "a", Name: "Jane Doe", SSN: "111-11-1111"}
	b := domain.BorrowerRecord{ID: "b", Name: "John Smith", SSN: "222-22-2222"}

	merged := Deduplicate([]domain.BorrowerRecord{a, b})

	assert.Len(t, merged, 2)
}

func TestDeduplicateS2SharedAccountNumber(t *testing.T) {
	a := domain.BorrowerRecord{ID: "a", Name: "Alice Alpha", AccountNumbers: []string{"ACC-1"}}
	b := domain.BorrowerRecord{ID: "b", Name: "Alicia Alfa", AccountNumbers: []string{"ACC-1"}}

	merged := Deduplicate([]domain.BorrowerRecord{a, b})
	require.Len(t, merged, 1)
}

func TestDeduplicateS2SharedLoanNumber(t *testing.T) {
	a := domain.BorrowerRecord{ID: "a", Name: "Bob One", LoanNumbers: []string{"LN-9"}}
	b := domain.BorrowerRecord{ID: "b", Name: "Robert Two", LoanNumbers: []string{"LN-9"}}

	merged := Deduplicate([]domain.BorrowerRecord{a, b})
	require.Len(t, merged, 1)
}

func TestDeduplicateS3NameSimilarityAndZip(t *testing.T) {
	a := domain.BorrowerRecord{ID: "a", Name: "Jonathan Smith", Address: &domain.Address{ZipCode: "90210"}}
	b := domain.BorrowerRecord{ID: "b", Name: "Jonathan Smyth", Address: &domain.Address{ZipCode: "90210-1234"}}

	merged := Deduplicate([]domain.BorrowerRecord{a, b})
	require.Len(t, merged, 1)
}

func TestDeduplicateS3DoesNotFireWithoutMatchingZip(t *testing.T) {
	a := domain.BorrowerRecord{ID: "a", Name: "Jonathan Smith", Address: &domain.Address{ZipCode: "90210"}}
	b := domain.BorrowerRecord{ID: "b", Name: "Jonathan Smyth", Address: &domain.Address{ZipCode: "10001"}}

	merged := Deduplicate([]domain.BorrowerRecord{a, b})
	assert.Len(t, merged, 2)
}

func TestDeduplicateS4StrongNameMatchWithAnyAddress(t *testing.T) {
	a := domain.BorrowerRecord{ID: "a", Name: "Margaret Williams"}
	b := domain.BorrowerRecord{ID: "b", Name: "Margaret Williams", Address: &domain.Address{City: "Austin"}}

	merged := Deduplicate([]domain.BorrowerRecord{a, b})
	require.Len(t, merged, 1)
}

func TestDeduplicateS5NameSimilarityAndLast4SSN(t *testing.T) {
	a := domain.BorrowerRecord{ID: "a", Name: "Cristopher Lane", SSN: "999-99-4567"}
	b := domain.BorrowerRecord{ID: "b", Name: "Christopher Lane", SSN: "111-11-4567"}

	merged := Deduplicate([]domain.BorrowerRecord{a, b})
	require.Len(t, merged, 1)
}

func TestDeduplicateTransitiveMergeAcrossThreeRecords(t *testing.T) {
	a := domain.BorrowerRecord{ID: "a", Name: "Jane Doe", SSN: "123-45-6789"}
	b := domain.BorrowerRecord{ID: "b", Name: "Jane Doe", SSN: "123-45-6789", AccountNumbers: []string{"X"}}
	c := domain.BorrowerRecord{ID: "c", Name: "Completely Different", AccountNumbers: []string{"X"}}

	merged := Deduplicate([]domain.BorrowerRecord{a, b, c})
	require.Len(t, merged, 1)
}

func TestDeduplicateIsDeterministicForSameInput(t *testing.T) {
	a := domain.BorrowerRecord{ID: "a", Name: "Single Borrower", SSN: "555-55-5555"}

	first := Deduplicate([]domain.BorrowerRecord{a})
	second := Deduplicate([]domain.BorrowerRecord{a})
	assert.Equal(t, first, second)
}

func TestNameSimilarityIdenticalAfterNormalization(t *testing.T) {
	assert.Equal(t, 1.0, nameSimilarity("  Jane   Doe ", "jane doe"))
}

func TestNameSimilarityEmptyNamesAreEqual(t *testing.T) {
	assert.Equal(t, 1.0, nameSimilarity("", ""))
}
