package intel

import (
	"slices"
)

// resolveOverlaps drops matches that lose an overlap. Same type is settled
// first: lower priority number wins, then the longer span. Among the
// survivors, a specific pattern beats an overlapping non-specific one of
// another type; otherwise both stay.
func resolveOverlaps(in []Match) []Match {
	ordered := slices.Clone(in)
	slices.SortStableFunc(ordered, func(a, b Match) int {
		if a.Def.Priority != b.Def.Priority {
			return a.Def.Priority - b.Def.Priority
		}
		return byLength(a, b)
	})
	sameType := admit(ordered, func(m, k Match) bool { return k.Def.Type == m.Def.Type })

	slices.SortStableFunc(sameType, func(a, b Match) int {
		if a.Def.Specific != b.Def.Specific {
			if a.Def.Specific {
				return -1
			}
			return 1
		}
		return byLength(a, b)
	})
	kept := admit(sameType, func(m, k Match) bool { return k.Def.Specific && !m.Def.Specific })

	slices.SortStableFunc(kept, func(a, b Match) int {
		if a.Start != b.Start {
			return a.Start - b.Start
		}
		return b.End - a.End
	})
	return kept
}

// admit keeps matches in order unless an already kept, overlapping match
// beats them.
func admit(ordered []Match, beats func(m, k Match) bool) []Match {
	kept := make([]Match, 0, len(ordered))
	for _, m := range ordered {
		lost := false
		for _, k := range kept {
			if m.Start < k.End && k.Start < m.End && beats(m, k) {
				lost = true
				break
			}
		}
		if !lost {
			kept = append(kept, m)
		}
	}
	return kept
}

func byLength(a, b Match) int {
	if la, lb := a.End-a.Start, b.End-b.Start; la != lb {
		return lb - la
	}
	return a.Start - b.Start
}
