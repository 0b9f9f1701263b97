// Package reconcile implements the reconciliation engine (C5):
// deduplication via union-find over ordered predicates, field
// validation, additive confidence scoring, and consistency checks that
// flag but never auto-correct.
package reconcile

import (
	"strings"

	"github.com/adverant/nexus/loanprocess-worker/internal/domain"
)

// Name-similarity thresholds for S3-S5, in the order they are tried.
const (
	zipNameSimilarity     = 0.90
	addressNameSimilarity = 0.95
	ssnLast4NameSimilarity = 0.80
)

// unionFind is a standard disjoint-set structure over slice indices.
type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	return &unionFind{parent: p}
}

func (u *unionFind) find(x int) int {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra != rb {
		u.parent[ra] = rb
	}
}

// Deduplicate merges records the ordered predicates S1-S5 declare
// equivalent, with transitive closure via union-find.
func Deduplicate(records []domain.BorrowerRecord) []domain.BorrowerRecord {
	n := len(records)
	if n <= 1 {
		return records
	}

	uf := newUnionFind(n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if areEquivalent(records[i], records[j]) {
				uf.union(i, j)
			}
		}
	}

	groups := make(map[int][]int)
	for i := 0; i < n; i++ {
		root := uf.find(i)
		groups[root] = append(groups[root], i)
	}

	// Deterministic output order: iterate roots by first member index.
	roots := make([]int, 0, len(groups))
	for root := range groups {
		roots = append(roots, root)
	}
	for i := 0; i < len(roots); i++ {
		for j := i + 1; j < len(roots); j++ {
			if minOf(groups[roots[j]]) < minOf(groups[roots[i]]) {
				roots[i], roots[j] = roots[j], roots[i]
			}
		}
	}

	merged := make([]domain.BorrowerRecord, 0, len(roots))
	for _, root := range roots {
		members := groups[root]
		result := records[members[0]]
		for _, idx := range members[1:] {
			result = mergeRecords(result, records[idx])
		}
		merged = append(merged, result)
	}
	return merged
}

func minOf(xs []int) int {
	m := xs[0]
	for _, x := range xs[1:] {
		if x < m {
			m = x
		}
	}
	return m
}

// areEquivalent applies S1-S5 in order; the first predicate that fires
// declares the pair equivalent.
func areEquivalent(a, b domain.BorrowerRecord) bool {
	// S1: non-null SSN equal.
	if a.SSN != "" && b.SSN != "" && a.SSN == b.SSN {
		return true
	}

	// S2: any shared account or loan number.
	if sharesAny(a.AccountNumbers, b.AccountNumbers) || sharesAny(a.LoanNumbers, b.LoanNumbers) {
		return true
	}

	sim := nameSimilarity(a.Name, b.Name)

	// S3: name similarity >= 0.90 AND ZIP (first 5 digits) equal.
	if sim >= zipNameSimilarity && zipsMatch(a.Address, b.Address) {
		return true
	}

	// S4: name similarity >= 0.95 with any address info.
	if sim >= addressNameSimilarity && (a.Address != nil || b.Address != nil) {
		return true
	}

	// S5: name similarity >= 0.80 AND last 4 SSN digits equal.
	if sim >= ssnLast4NameSimilarity && ssnLast4(a.SSN) != "" && ssnLast4(a.SSN) == ssnLast4(b.SSN) {
		return true
	}

	return false
}

func sharesAny(a, b []string) bool {
	set := make(map[string]struct{}, len(a))
	for _, v := range a {
		if v != "" {
			set[v] = struct{}{}
		}
	}
	for _, v := range b {
		if v == "" {
			continue
		}
		if _, ok := set[v]; ok {
			return true
		}
	}
	return false
}

func zipsMatch(a, b *domain.Address) bool {
	if a == nil || b == nil {
		return false
	}
	za, zb := firstFive(a.ZipCode), firstFive(b.ZipCode)
	return za != "" && za == zb
}

func firstFive(zip string) string {
	if len(zip) < 5 {
		return ""
	}
	return zip[:5]
}

func ssnLast4(ssn string) string {
	digits := strings.ReplaceAll(ssn, "-", "")
	if len(digits) < 4 {
		return ""
	}
	return digits[len(digits)-4:]
}

// nameSimilarity is a normalized edit-distance ratio on lowercase,
// whitespace-collapsed names: 1 - (levenshtein distance / max length).
func nameSimilarity(a, b string) float64 {
	na, nb := normalizeName(a), normalizeName(b)
	if na == "" && nb == "" {
		return 1.0
	}
	dist := levenshtein(na, nb)
	maxLen := len([]rune(na))
	if l := len([]rune(nb)); l > maxLen {
		maxLen = l
	}
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - float64(dist)/float64(maxLen)
}

func normalizeName(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// levenshtein computes the classic edit distance over runes, keeping
// only the previous and current rows (O(len(b)) memory per row).
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr := make([]int, len(rb)+1)
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := curr[j-1] + 1
			sub := prev[j-1] + cost
			curr[j] = minInt(del, minInt(ins, sub))
		}
		prev = curr
	}
	return prev[len(rb)]
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
