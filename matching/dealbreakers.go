package matching

// HasDealbreaker reports whether any of the requester's dealbreakers appears
// verbatim in the candidate's own dealbreakers.
func HasDealbreaker(dealbreakers []string, candidate Profile) bool {
	if len(dealbreakers) == 0 || len(candidate.Dealbreakers) == 0 {
		return false
	}
	declared := make(map[string]struct{}, len(candidate.Dealbreakers))
	for _, d := range candidate.Dealbreakers {
		declared[d] = struct{}{}
	}
	for _, d := range dealbreakers {
		if _, ok := declared[d]; ok {
			return true
		}
	}
	return false
}

// ExcludeDealbreakers drops matches whose candidate collides with the
// requester's dealbreakers. Order is preserved.
func ExcludeDealbreakers(dealbreakers []string, matches []Match) ([]Match, Step) {
	kept := make([]Match, 0, len(matches))
	for _, m := range matches {
		if HasDealbreaker(dealbreakers, m.Profile) {
			continue
		}
		kept = append(kept, m)
	}
	return kept, Step{Initial: len(matches), Dropped: len(matches) - len(kept), Left: len(kept)}
}
