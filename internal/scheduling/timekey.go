package scheduling

import (
	"fmt"
	"time"

	"github.com/slotbook/booking-api/pkg/errors"
)

// Wall-clock formats used across the booking surface. Keys carry no offset;
// the tenant zone decides what instant they mean.
const (
	LocalKeyLayout = "2006-01-02T15:04"
	DateLayout     = "2006-01-02"
	ClockLayout    = "15:04"
)

// ToInstant resolves a minute-precision wall-clock key in the given zone.
// A key that falls inside a DST gap (the clock skips over it) does not
// denote any instant and is rejected rather than silently shifted: the
// caller asked for a wall-clock time the zone never shows that day.
// For ambiguous keys (clock repeats during fall-back) the earlier instant
// wins, which is what time.Date yields.
func ToInstant(key string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		return time.Time{}, errors.NewValidation("time zone is required", nil)
	}
	parsed, err := time.Parse(LocalKeyLayout, key)
	if err != nil {
		return time.Time{}, errors.NewValidation(fmt.Sprintf("invalid time key %q, expected YYYY-MM-DDTHH:MM", key), err)
	}

	t := time.Date(parsed.Year(), parsed.Month(), parsed.Day(), parsed.Hour(), parsed.Minute(), 0, 0, loc)
	if t.Hour() != parsed.Hour() || t.Minute() != parsed.Minute() {
		return time.Time{}, errors.NewValidation(fmt.Sprintf("time key %q does not exist in zone %s (DST transition)", key, loc), nil)
	}
	return t, nil
}

// DayBounds returns the [start, end) instants of a calendar date in the
// given zone. The end bound is the next day's midnight, so a day shortened
// or stretched by a DST transition keeps its true length.
func DayBounds(date string, loc *time.Location) (time.Time, time.Time, error) {
	if loc == nil {
		return time.Time{}, time.Time{}, errors.NewValidation("time zone is required", nil)
	}
	parsed, err := time.Parse(DateLayout, date)
	if err != nil {
		return time.Time{}, time.Time{}, errors.NewValidation(fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", date), err)
	}

	start := time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, loc)
	end := time.Date(parsed.Year(), parsed.Month(), parsed.Day()+1, 0, 0, 0, 0, loc)
	return start, end, nil
}

// clockOnDate resolves a "HH:MM" wall-clock string on a date in a zone.
func clockOnDate(date, clock string, loc *time.Location) (time.Time, error) {
	if _, err := time.Parse(ClockLayout, clock); err != nil {
		return time.Time{}, errors.NewValidation(fmt.Sprintf("invalid clock value %q, expected HH:MM", clock), err)
	}
	return ToInstant(date+"T"+clock, loc)
}
