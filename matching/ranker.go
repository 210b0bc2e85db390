package matching

import "sort"

// Rank sorts by overall score, highest first, keeping input order for ties,
// and truncates to limit. A non-positive limit means DefaultLimit.
func Rank(matches []Match, limit int) []Match {
	if limit <= 0 {
		limit = DefaultLimit
	}
	ranked := make([]Match, len(matches))
	copy(ranked, matches)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Compatibility.Overall > ranked[j].Compatibility.Overall
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
