package triage

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/hospitaltriage/intake/internal/domain/admin"
)

// Resolve picks the destination department for a symptom description.
// Matching is a case-insensitive substring check; when several keywords
// match, the longest keyword wins, with lexicographic order breaking
// length ties so the outcome is deterministic.
func Resolve(symptoms string, rules []*admin.SymptomRule) (uuid.UUID, bool) {
	needle := strings.ToLower(symptoms)
	if needle == "" || len(rules) == 0 {
		return uuid.Nil, false
	}

	sorted := make([]*admin.SymptomRule, len(rules))
	copy(sorted, rules)
	sort.Slice(sorted, func(i, j int) bool {
		if len(sorted[i].Keyword) != len(sorted[j].Keyword) {
			return len(sorted[i].Keyword) > len(sorted[j].Keyword)
		}
		return sorted[i].Keyword < sorted[j].Keyword
	})

	for _, r := range sorted {
		if strings.Contains(needle, strings.ToLower(r.Keyword)) {
			return r.DepartmentID, true
		}
	}
	return uuid.Nil, false
}
