package scheduling

import (
	"sort"
	"time"

	"github.com/slotbook/booking-api/internal/model"
)

// Interval is a half-open [Start, End) span of absolute instants.
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Intersects reports half-open overlap with another interval.
func (iv Interval) Intersects(other Interval) bool {
	return iv.Start.Before(other.End) && other.Start.Before(iv.End)
}

// IntervalsFor merges a master's weekly pattern, date overrides and blocked
// periods into the available intervals of one calendar date, expressed as
// instants in the tenant zone. The result is disjoint, ascending and
// independent of the order overrides or blocks were entered.
//
// A date override fully replaces the weekday entry for that date, including
// marking the date closed. Blocked periods are carved out afterwards; a
// block in the middle of a working window splits it in two, and zero-length
// remainders are dropped.
func IntervalsFor(master *model.Master, date string, loc *time.Location) ([]Interval, error) {
	base, err := baseWindow(master, date, loc)
	if err != nil {
		return nil, err
	}
	if base == nil {
		return nil, nil
	}

	dayStart, dayEnd, err := DayBounds(date, loc)
	if err != nil {
		return nil, err
	}

	intervals := []Interval{*base}
	for _, bp := range master.Blocked() {
		block := Interval{Start: bp.Start, End: bp.End}
		if !block.Intersects(Interval{Start: dayStart, End: dayEnd}) {
			continue
		}
		intervals = subtract(intervals, block)
	}

	sort.Slice(intervals, func(i, j int) bool {
		return intervals[i].Start.Before(intervals[j].Start)
	})
	return intervals, nil
}

// baseWindow resolves the date's working window before blocks are applied.
// Nil means the date is closed.
func baseWindow(master *model.Master, date string, loc *time.Location) (*Interval, error) {
	var startClock, endClock string

	if ov, ok := master.Overrides()[date]; ok {
		if ov.Closed {
			return nil, nil
		}
		startClock, endClock = ov.Start, ov.End
	} else {
		day, err := time.Parse(DateLayout, date)
		if err != nil {
			return nil, err
		}
		entry, ok := master.Schedule()[day.Weekday()]
		if !ok || !entry.Enabled {
			return nil, nil
		}
		startClock, endClock = entry.Start, entry.End
	}

	start, err := clockOnDate(date, startClock, loc)
	if err != nil {
		return nil, err
	}
	end, err := clockOnDate(date, endClock, loc)
	if err != nil {
		return nil, err
	}
	if !end.After(start) {
		return nil, nil
	}
	return &Interval{Start: start, End: end}, nil
}

// subtract removes block from every interval, keeping only positive-length
// remainders. An exact abut produces no zero-length fragment.
func subtract(intervals []Interval, block Interval) []Interval {
	out := make([]Interval, 0, len(intervals)+1)
	for _, iv := range intervals {
		if !iv.Intersects(block) {
			out = append(out, iv)
			continue
		}
		if iv.Start.Before(block.Start) {
			out = append(out, Interval{Start: iv.Start, End: block.Start})
		}
		if block.End.Before(iv.End) {
			out = append(out, Interval{Start: block.End, End: iv.End})
		}
	}
	return out
}
