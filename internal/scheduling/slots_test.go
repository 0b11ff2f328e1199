package scheduling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(t *testing.T, clock string) time.Time {
	t.Helper()
	ts, err := ToInstant("2026-06-15T"+clock, time.UTC)
	require.NoError(t, err)
	return ts
}

func TestSlotStartsBasicGrid(t *testing.T) {
	intervals := []Interval{{Start: day(t, "09:00"), End: day(t, "11:00")}}

	got := SlotStarts(intervals, 30*time.Minute, 30*time.Minute, 0, nil, time.Time{})

	require.Len(t, got, 4)
	assert.True(t, got[0].Equal(day(t, "09:00")))
	assert.True(t, got[3].Equal(day(t, "10:30")))
}

func TestSlotStartsDurationMustFitInterval(t *testing.T) {
	intervals := []Interval{{Start: day(t, "09:00"), End: day(t, "10:00")}}

	// A 45-minute booking on a 30-minute grid only fits at 09:00.
	got := SlotStarts(intervals, 30*time.Minute, 45*time.Minute, 0, nil, time.Time{})

	require.Len(t, got, 1)
	assert.True(t, got[0].Equal(day(t, "09:00")))
}

func TestSlotStartsBufferShrinksTail(t *testing.T) {
	intervals := []Interval{{Start: day(t, "09:00"), End: day(t, "10:00")}}

	// With a 15-minute buffer the 09:30 start no longer fits: 09:30 + 30m
	// + 15m runs past the interval end.
	got := SlotStarts(intervals, 30*time.Minute, 30*time.Minute, 15*time.Minute, nil, time.Time{})

	require.Len(t, got, 1)
	assert.True(t, got[0].Equal(day(t, "09:00")))
}

func TestSlotStartsBufferSymmetricAroundBusy(t *testing.T) {
	intervals := []Interval{{Start: day(t, "08:00"), End: day(t, "12:00")}}
	// A 09:00-09:30 appointment booked under the same 15-minute buffer, so
	// its span already reserves through 09:45.
	busy := []Interval{{Start: day(t, "09:00"), End: day(t, "09:45")}}

	got := SlotStarts(intervals, 15*time.Minute, 30*time.Minute, 15*time.Minute, busy, time.Time{})

	starts := make(map[string]bool, len(got))
	for _, s := range got {
		starts[s.UTC().Format(ClockLayout)] = true
	}

	// 08:15 ends 08:45, exactly buffer ahead of the busy span: allowed.
	assert.True(t, starts["08:15"])
	// 08:30 ends 09:00, leaving no gap before 09:00: blocked.
	assert.False(t, starts["08:30"])
	// 08:45 would overlap the busy span itself.
	assert.False(t, starts["08:45"])
	// 09:30 falls inside the reserved tail: blocked.
	assert.False(t, starts["09:30"])
	// 09:45 starts exactly at the reserved end: allowed.
	assert.True(t, starts["09:45"])
}

func TestSlotStartsNotBeforeCutoff(t *testing.T) {
	intervals := []Interval{{Start: day(t, "09:00"), End: day(t, "11:00")}}

	got := SlotStarts(intervals, 30*time.Minute, 30*time.Minute, 0, nil, day(t, "10:00"))

	require.Len(t, got, 2)
	assert.True(t, got[0].Equal(day(t, "10:00")))
}

func TestSlotStartsMultipleIntervalsStayOrdered(t *testing.T) {
	intervals := []Interval{
		{Start: day(t, "09:00"), End: day(t, "10:00")},
		{Start: day(t, "14:00"), End: day(t, "15:00")},
	}

	got := SlotStarts(intervals, 30*time.Minute, 30*time.Minute, 0, nil, time.Time{})

	require.Len(t, got, 4)
	for i := 1; i < len(got); i++ {
		assert.True(t, got[i-1].Before(got[i]))
	}
}

func TestSlotStartsDegenerateInputs(t *testing.T) {
	intervals := []Interval{{Start: day(t, "09:00"), End: day(t, "10:00")}}

	assert.Nil(t, SlotStarts(intervals, 0, 30*time.Minute, 0, nil, time.Time{}))
	assert.Nil(t, SlotStarts(intervals, 30*time.Minute, 0, 0, nil, time.Time{}))
	assert.Nil(t, SlotStarts(nil, 30*time.Minute, 30*time.Minute, 0, nil, time.Time{}))
}
