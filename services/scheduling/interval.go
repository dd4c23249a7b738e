package scheduling

import (
	"sort"

	"bookline/models"
)

// Pure interval algebra over half-open [start, end) intervals. All functions
// here are total: no interval with start >= end is ever constructed, and
// callers filter degenerate inputs (models.NewTimeInterval) before this layer.

// Intersect returns the overlap of a and b. ok is false when they are
// disjoint or merely touch at a boundary.
func Intersect(a, b models.TimeInterval) (models.TimeInterval, bool) {
	start := a.Start
	if b.Start.After(start) {
		start = b.Start
	}
	end := a.End
	if b.End.Before(end) {
		end = b.End
	}
	if !start.Before(end) {
		return models.TimeInterval{}, false
	}
	return models.TimeInterval{Start: start, End: end}, true
}

// Subtract removes b from a, yielding zero, one, or two intervals. Removing a
// middle chunk splits a in two.
func Subtract(a, b models.TimeInterval) []models.TimeInterval {
	if !a.Overlaps(b) {
		return []models.TimeInterval{a}
	}
	var out []models.TimeInterval
	if a.Start.Before(b.Start) {
		out = append(out, models.TimeInterval{Start: a.Start, End: b.Start})
	}
	if b.End.Before(a.End) {
		out = append(out, models.TimeInterval{Start: b.End, End: a.End})
	}
	return out
}

// SubtractAll removes every interval in busy from every interval in open.
// busy need not be sorted or disjoint; it is merged first so back-to-back
// bookings subtract as one block instead of splitting incorrectly.
func SubtractAll(open, busy []models.TimeInterval) []models.TimeInterval {
	if len(busy) == 0 {
		return open
	}
	merged := MergeAdjacent(sortByStart(busy))
	remaining := open
	for _, b := range merged {
		var next []models.TimeInterval
		for _, o := range remaining {
			next = append(next, Subtract(o, b)...)
		}
		remaining = next
	}
	return remaining
}

// MergeAdjacent coalesces a start-sorted set of intervals. Adjacency means a
// shared boundary (prev.End == next.Start), not any numeric tolerance.
func MergeAdjacent(sorted []models.TimeInterval) []models.TimeInterval {
	if len(sorted) == 0 {
		return nil
	}
	out := []models.TimeInterval{sorted[0]}
	for _, iv := range sorted[1:] {
		last := &out[len(out)-1]
		if !iv.Start.After(last.End) { // overlaps or touches
			if iv.End.After(last.End) {
				last.End = iv.End
			}
			continue
		}
		out = append(out, iv)
	}
	return out
}

func sortByStart(ivs []models.TimeInterval) []models.TimeInterval {
	sorted := make([]models.TimeInterval, len(ivs))
	copy(sorted, ivs)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})
	return sorted
}
