package scheduling

import "time"

// SlotStarts walks the available intervals in fixed steps and returns every
// candidate start that fits a booking of the given duration.
//
// Each busy span must arrive with its own trailing buffer already folded into
// End, the same way a committed appointment reserves its span in the store.
// The buffer argument trails the candidate: a candidate s is kept iff
//   - s+duration+buffer fits inside its interval,
//   - s is not before notBefore (now + the tenant's minimum advance),
//   - [s, s+duration+buffer) stays clear of every busy span.
//
// When every span was booked under the same buffer this comes out symmetric:
// busy [a,b) blocks candidates intersecting [a-buf, b+buf).
//
// The result is finite, ascending and deterministic, so callers may
// recompute it at will.
func SlotStarts(intervals []Interval, step, duration, buffer time.Duration, busy []Interval, notBefore time.Time) []time.Time {
	if step <= 0 || duration <= 0 {
		return nil
	}

	var starts []time.Time
	for _, iv := range intervals {
		for s := iv.Start; !s.Add(duration + buffer).After(iv.End); s = s.Add(step) {
			if s.Before(notBefore) {
				continue
			}
			if conflictsBuffered(s, s.Add(duration+buffer), busy) {
				continue
			}
			starts = append(starts, s)
		}
	}
	return starts
}

// conflictsBuffered reports whether the buffered candidate [start, end)
// intersects any busy span. Boundaries are half-open: a candidate ending
// exactly at a busy start, or starting exactly at a buffered busy end, does
// not conflict.
func conflictsBuffered(start, end time.Time, busy []Interval) bool {
	for _, b := range busy {
		if start.Before(b.End) && end.After(b.Start) {
			return true
		}
	}
	return false
}
