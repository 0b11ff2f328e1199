package booking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slotbook/booking-api/internal/model"
)

func (f *fixture) seriesRequest(startLocal string, pattern model.RecurrencePattern) *model.CreateSeriesRequest {
	return &model.CreateSeriesRequest{
		CreateAppointmentRequest: *f.request(startLocal),
		Recurrence:               pattern,
	}
}

func TestBookSeriesWeekly(t *testing.T) {
	f := newFixture(t)

	outcomes, err := f.svc.BookSeries(context.Background(), f.businessID, f.seriesRequest("2026-06-15T10:00", model.RecurrencePattern{
		Freq:  model.RecurrenceWeekly,
		Count: 4,
	}))
	require.NoError(t, err)
	require.Len(t, outcomes, 4)

	var seriesID *string
	for i, o := range outcomes {
		require.False(t, o.Skipped, "occurrence %d", i)
		require.NotNil(t, o.Appointment)
		require.NotNil(t, o.Appointment.SeriesID)
		sid := o.Appointment.SeriesID.String()
		if seriesID == nil {
			seriesID = &sid
		}
		assert.Equal(t, *seriesID, sid, "all occurrences share one series id")
	}

	// Wall-clock weekly stepping: each start is exactly 7 days later on the
	// local clock.
	for i := 1; i < len(outcomes); i++ {
		assert.Equal(t, 7*24*time.Hour, outcomes[i].StartTime.Sub(outcomes[i-1].StartTime))
	}
}

func TestBookSeriesSkipsConflictsAndContinues(t *testing.T) {
	f := newFixture(t)

	// Occupy the second occurrence's slot up front.
	_, err := f.svc.Book(context.Background(), f.businessID, f.request("2026-06-22T10:00"), model.OriginStaff)
	require.NoError(t, err)

	outcomes, err := f.svc.BookSeries(context.Background(), f.businessID, f.seriesRequest("2026-06-15T10:00", model.RecurrencePattern{
		Freq:  model.RecurrenceWeekly,
		Count: 4,
	}))
	require.NoError(t, err)
	require.Len(t, outcomes, 4)

	assert.False(t, outcomes[0].Skipped)
	assert.True(t, outcomes[1].Skipped)
	assert.NotEmpty(t, outcomes[1].Reason)
	assert.Nil(t, outcomes[1].Appointment)
	assert.False(t, outcomes[2].Skipped)
	assert.False(t, outcomes[3].Skipped)
}

func TestBookSeriesUntilBound(t *testing.T) {
	f := newFixture(t)

	outcomes, err := f.svc.BookSeries(context.Background(), f.businessID, f.seriesRequest("2026-06-15T10:00", model.RecurrencePattern{
		Freq:  model.RecurrenceDaily,
		Until: "2026-06-17",
	}))
	require.NoError(t, err)
	// 15th, 16th and 17th inclusive.
	assert.Len(t, outcomes, 3)
}

func TestBookSeriesRequiresBound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.BookSeries(context.Background(), f.businessID, f.seriesRequest("2026-06-15T10:00", model.RecurrencePattern{
		Freq: model.RecurrenceWeekly,
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "count or an until date")
}

func TestBookSeriesCapsOccurrences(t *testing.T) {
	f := newFixture(t)

	outcomes, err := f.svc.BookSeries(context.Background(), f.businessID, f.seriesRequest("2026-06-15T10:00", model.RecurrencePattern{
		Freq:  model.RecurrenceDaily,
		Until: "2030-01-01",
	}))
	require.NoError(t, err)
	assert.Len(t, outcomes, maxSeriesOccurrences)
}

func TestExpandOccurrencesKeepsWallClockAcrossDST(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Kyiv")
	require.NoError(t, err)

	// Weekly 10:00 series spanning the 2026-03-29 spring-forward.
	first := time.Date(2026, 3, 23, 10, 0, 0, 0, loc)
	starts, err := expandOccurrences(model.RecurrencePattern{
		Freq:  model.RecurrenceWeekly,
		Count: 3,
	}, first, loc)
	require.NoError(t, err)
	require.Len(t, starts, 3)

	for _, s := range starts {
		assert.Equal(t, 10, s.In(loc).Hour(), "wall clock holds across the transition")
	}
	// The instant gap across the transition week is an hour short.
	assert.Equal(t, 7*24*time.Hour-time.Hour, starts[1].Sub(starts[0]))
	assert.Equal(t, 7*24*time.Hour, starts[2].Sub(starts[1]))
}

func TestExpandOccurrencesDropsGapOccurrence(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Kyiv")
	require.NoError(t, err)

	// Daily 03:30 series: 2026-03-29 has no 03:30 at all.
	first := time.Date(2026, 3, 28, 3, 30, 0, 0, loc)
	starts, err := expandOccurrences(model.RecurrencePattern{
		Freq:  model.RecurrenceDaily,
		Count: 3,
	}, first, loc)
	require.NoError(t, err)

	require.Len(t, starts, 2)
	assert.Equal(t, 28, starts[0].In(loc).Day())
	assert.Equal(t, 30, starts[1].In(loc).Day())
}
