package reconcile

import "github.com/adverant/nexus/loanprocess-worker/internal/domain"

// mergeRecords combines two equivalent records. The record with the
// higher confidence score is the base; every scalar field keeps the
// base value when non-empty, else adopts the other's. List-valued
// fields merge as sets keyed per field.
func mergeRecords(a, b domain.BorrowerRecord) domain.BorrowerRecord {
	base, other := a, b
	if b.ConfidenceScore > a.ConfidenceScore {
		base, other = b, a
	}

	merged := base
	merged.SSN = coalesce(base.SSN, other.SSN)
	merged.Phone = coalesce(base.Phone, other.Phone)
	merged.Email = coalesce(base.Email, other.Email)
	if merged.Address == nil {
		merged.Address = other.Address
	}

	merged.IncomeHistory = mergeIncome(base.IncomeHistory, other.IncomeHistory)
	merged.AccountNumbers = mergeStrings(base.AccountNumbers, other.AccountNumbers)
	merged.LoanNumbers = mergeStrings(base.LoanNumbers, other.LoanNumbers)
	merged.Sources = mergeSources(base.Sources, other.Sources)

	merged.ConfidenceScore = base.ConfidenceScore
	if other.ConfidenceScore > merged.ConfidenceScore {
		merged.ConfidenceScore = other.ConfidenceScore
	}

	return merged
}

func coalesce(base, fallback string) string {
	if base != "" {
		return base
	}
	return fallback
}

type incomeKey struct {
	year   int
	period string
	amount float64
}

func mergeIncome(a, b []domain.IncomeRecord) []domain.IncomeRecord {
	seen := make(map[incomeKey]struct{})
	merged := make([]domain.IncomeRecord, 0, len(a)+len(b))
	for _, rec := range append(append([]domain.IncomeRecord{}, a...), b...) {
		k := incomeKey{year: rec.Year, period: rec.Period, amount: rec.Amount}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		merged = append(merged, rec)
	}
	return merged
}

func mergeStrings(a, b []string) []string {
	seen := make(map[string]struct{})
	merged := make([]string, 0, len(a)+len(b))
	for _, s := range append(append([]string{}, a...), b...) {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		merged = append(merged, s)
	}
	return merged
}

type sourceKey struct {
	documentID string
	pageNumber int
	charStart  int
	charEnd    int
}

func mergeSources(a, b []domain.SourceReference) []domain.SourceReference {
	seen := make(map[sourceKey]struct{})
	merged := make([]domain.SourceReference, 0, len(a)+len(b))
	for _, src := range append(append([]domain.SourceReference{}, a...), b...) {
		k := sourceKey{documentID: src.DocumentID, pageNumber: src.PageNumber, charStart: src.CharStart, charEnd: src.CharEnd}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		merged = append(merged, src)
	}
	return merged
}
