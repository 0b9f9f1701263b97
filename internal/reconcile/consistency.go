package reconcile

import (
	"fmt"
	"sort"

	"github.com/adverant/nexus/loanprocess-worker/internal/domain"
)

const (
	incomeDropThreshold  = 0.5
	incomeSpikeThreshold = 3.0
)

// CheckConsistency runs every consistency check across a post-dedup
// borrower list. Checks only flag; they never mutate a record.
func CheckConsistency(borrowers []domain.BorrowerRecord) []domain.ConsistencyWarning {
	var warnings []domain.ConsistencyWarning

	for _, b := range borrowers {
		warnings = append(warnings, checkAddressConflict(b)...)
		warnings = append(warnings, checkIncomeProgression(b)...)
	}

	warnings = append(warnings, checkCrossDocMismatch(borrowers)...)
	return warnings
}

func checkAddressConflict(b domain.BorrowerRecord) []domain.ConsistencyWarning {
	if len(b.Sources) <= 1 || b.Address == nil {
		return nil
	}
	return []domain.ConsistencyWarning{{
		Kind:       domain.WarningAddressConflict,
		BorrowerID: b.ID,
		Field:      "address",
		Message:    fmt.Sprintf("Borrower %q has %d sources - verify address is correct", b.Name, len(b.Sources)),
		Details: map[string]interface{}{
			"source_count": len(b.Sources),
		},
	}}
}

func checkIncomeProgression(b domain.BorrowerRecord) []domain.ConsistencyWarning {
	if len(b.IncomeHistory) < 2 {
		return nil
	}

	sorted := append([]domain.IncomeRecord{}, b.IncomeHistory...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Year < sorted[j].Year })

	var warnings []domain.ConsistencyWarning
	for i := 1; i < len(sorted); i++ {
		prev, curr := sorted[i-1], sorted[i]
		if curr.Year != prev.Year+1 {
			continue
		}
		if prev.Amount == 0 {
			continue
		}

		ratio := curr.Amount / prev.Amount
		pctChange := (ratio - 1) * 100

		switch {
		case ratio < incomeDropThreshold:
			warnings = append(warnings, domain.ConsistencyWarning{
				Kind:       domain.WarningIncomeDrop,
				BorrowerID: b.ID,
				Field:      "income_history",
				Message:    fmt.Sprintf("Income dropped %.0f%% from %d to %d", absFloat(pctChange), prev.Year, curr.Year),
				Details: map[string]interface{}{
					"year1": prev.Year, "amount1": prev.Amount,
					"year2": curr.Year, "amount2": curr.Amount,
					"pct_change": round1(pctChange),
				},
			})
		case ratio > incomeSpikeThreshold:
			warnings = append(warnings, domain.ConsistencyWarning{
				Kind:       domain.WarningIncomeSpike,
				BorrowerID: b.ID,
				Field:      "income_history",
				Message:    fmt.Sprintf("Income increased %.0f%% from %d to %d - verify accuracy", pctChange, prev.Year, curr.Year),
				Details: map[string]interface{}{
					"year1": prev.Year, "amount1": prev.Amount,
					"year2": curr.Year, "amount2": curr.Amount,
					"pct_change": round1(pctChange),
				},
			})
		}
	}
	return warnings
}

// checkCrossDocMismatch groups post-dedup borrowers by normalized name
// and flags groups of >=2 records, each carrying an SSN, whose last-4
// SSN digits disagree.
func checkCrossDocMismatch(borrowers []domain.BorrowerRecord) []domain.ConsistencyWarning {
	groups := make(map[string][]domain.BorrowerRecord)
	for _, b := range borrowers {
		key := normalizeName(b.Name)
		groups[key] = append(groups[key], b)
	}

	var warnings []domain.ConsistencyWarning
	for _, group := range groups {
		if len(group) < 2 {
			continue
		}

		last4Set := make(map[string]struct{})
		withSSN := 0
		for _, b := range group {
			l4 := ssnLast4(b.SSN)
			if l4 == "" {
				continue
			}
			withSSN++
			last4Set[l4] = struct{}{}
		}

		if withSSN < 2 || len(last4Set) <= 1 {
			continue
		}

		values := make([]string, 0, len(last4Set))
		for v := range last4Set {
			values = append(values, v)
		}
		sort.Strings(values)

		recordIDs := make([]string, len(group))
		for i, b := range group {
			recordIDs[i] = b.ID
		}

		warnings = append(warnings, domain.ConsistencyWarning{
			Kind:       domain.WarningCrossDocMismatch,
			BorrowerID: group[0].ID,
			Field:      "ssn",
			Message:    fmt.Sprintf("Multiple records for %q with different identifiers - may be different people or data error", group[0].Name),
			Details: map[string]interface{}{
				"name":             group[0].Name,
				"record_ids":       recordIDs,
				"ssn_last4_values": values,
			},
		})
	}
	return warnings
}

func absFloat(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

func round1(f float64) float64 {
	return float64(int(f*10+0.5)) / 10
}
