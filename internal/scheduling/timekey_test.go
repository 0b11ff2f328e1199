package scheduling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kyiv(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Kyiv")
	require.NoError(t, err)
	return loc
}

func TestToInstant(t *testing.T) {
	loc := kyiv(t)

	got, err := ToInstant("2026-06-15T14:30", loc)
	require.NoError(t, err)
	assert.Equal(t, 14, got.Hour())
	assert.Equal(t, 30, got.Minute())
	assert.Equal(t, loc, got.Location())

	// Same key, different zone, different instant.
	utc, err := ToInstant("2026-06-15T14:30", time.UTC)
	require.NoError(t, err)
	assert.False(t, got.Equal(utc))
	assert.Equal(t, 3*time.Hour, utc.Sub(got))
}

func TestToInstantRejectsMalformed(t *testing.T) {
	loc := kyiv(t)

	for _, key := range []string{"", "2026-06-15", "15:04", "2026-06-15 14:30", "2026-13-40T99:99"} {
		_, err := ToInstant(key, loc)
		assert.Error(t, err, "key %q", key)
	}

	_, err := ToInstant("2026-06-15T14:30", nil)
	assert.Error(t, err)
}

func TestToInstantRejectsDSTGap(t *testing.T) {
	loc := kyiv(t)

	// Clocks in Ukraine jump 03:00 -> 04:00 on 2026-03-29; 03:30 never
	// appears on any wall clock that day.
	_, err := ToInstant("2026-03-29T03:30", loc)
	require.Error(t, err)

	// The edges around the gap are fine.
	before, err := ToInstant("2026-03-29T02:59", loc)
	require.NoError(t, err)
	after, err := ToInstant("2026-03-29T04:00", loc)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, after.Sub(before))
}

func TestToInstantFallBackPicksEarlier(t *testing.T) {
	loc := kyiv(t)

	// 03:30 happens twice on 2026-10-25; the earlier (summer-time) instant
	// wins.
	got, err := ToInstant("2026-10-25T03:30", loc)
	require.NoError(t, err)
	_, offset := got.Zone()
	assert.Equal(t, 3*60*60, offset)
}

func TestDayBounds(t *testing.T) {
	loc := kyiv(t)

	start, end, err := DayBounds("2026-06-15", loc)
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, end.Sub(start))
	assert.Equal(t, 0, start.Hour())

	// Spring-forward day is 23 hours long.
	start, end, err = DayBounds("2026-03-29", loc)
	require.NoError(t, err)
	assert.Equal(t, 23*time.Hour, end.Sub(start))

	// Fall-back day is 25 hours long.
	start, end, err = DayBounds("2026-10-25", loc)
	require.NoError(t, err)
	assert.Equal(t, 25*time.Hour, end.Sub(start))

	_, _, err = DayBounds("not-a-date", loc)
	assert.Error(t, err)
}
