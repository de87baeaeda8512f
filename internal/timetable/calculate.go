package timetable

import "time"

// Calculate returns the revision dates for a topic anchored at anchor.
// Entry i is anchor plus intervals[i] days, normalized to midnight. Order and
// duplicates are preserved; non-positive intervals are skipped. The result is
// never nil.
func Calculate(anchor time.Time, intervals []int) []time.Time {
	out := make([]time.Time, 0, len(intervals))
	for _, n := range intervals {
		if n <= 0 {
			continue
		}
		out = append(out, AddDays(anchor, n))
	}
	return out
}
