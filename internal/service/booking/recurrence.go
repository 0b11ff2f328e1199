package booking

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/slotbook/booking-api/internal/model"
	"github.com/slotbook/booking-api/internal/scheduling"
	"github.com/slotbook/booking-api/pkg/errors"
)

// The hard ceiling on occurrences per series, whatever the pattern says.
const maxSeriesOccurrences = 52

// BookSeries expands a recurrence pattern and books every occurrence
// independently. A conflicting occurrence is reported as skipped and the
// rest of the series proceeds: all-or-nothing series would become unusable
// the moment any single date is contended. Successful occurrences share one
// series id.
func (s *Service) BookSeries(ctx context.Context, businessID uuid.UUID, req *model.CreateSeriesRequest) ([]model.SeriesOutcome, error) {
	policy, err := s.policies.Policy(ctx, businessID)
	if err != nil {
		return nil, err
	}
	loc := policy.Location()

	first, err := scheduling.ToInstant(req.StartLocal, loc)
	if err != nil {
		return nil, err
	}

	starts, err := expandOccurrences(req.Recurrence, first, loc)
	if err != nil {
		return nil, err
	}

	seriesID := uuid.New()
	outcomes := make([]model.SeriesOutcome, 0, len(starts))

	for _, start := range starts {
		occurrence := req.CreateAppointmentRequest
		occurrence.StartLocal = start.Format(scheduling.LocalKeyLayout)

		result, bookErr := s.bookOccurrence(ctx, businessID, &occurrence, seriesID)
		switch {
		case bookErr == nil:
			outcomes = append(outcomes, model.SeriesOutcome{
				StartTime:   result.StartTime,
				Appointment: result,
			})
		case errors.IsConflict(bookErr):
			outcomes = append(outcomes, model.SeriesOutcome{
				StartTime: start,
				Skipped:   true,
				Reason:    bookErr.Error(),
			})
		default:
			// Store trouble is not a per-occurrence condition; stop instead
			// of hammering every remaining date against a broken backend.
			return outcomes, bookErr
		}
	}
	return outcomes, nil
}

func (s *Service) bookOccurrence(ctx context.Context, businessID uuid.UUID, req *model.CreateAppointmentRequest, seriesID uuid.UUID) (*model.Appointment, error) {
	policy, err := s.policies.Policy(ctx, businessID)
	if err != nil {
		return nil, err
	}
	loc := policy.Location()

	duration, err := s.resolveDuration(ctx, businessID, req)
	if err != nil {
		return nil, err
	}
	start, err := scheduling.ToInstant(req.StartLocal, loc)
	if err != nil {
		return nil, err
	}

	apt := &model.Appointment{
		BusinessID:    businessID,
		MasterID:      req.MasterID,
		ClientName:    req.ClientName,
		ClientPhone:   req.ClientPhone,
		StartTime:     start,
		EndTime:       start.Add(duration),
		BufferMinutes: policy.BufferMinutes,
		Status:        model.AppointmentStatusPending,
		Origin:        model.OriginStaff,
		Notes:         req.Notes,
		SeriesID:      &seriesID,
	}
	if err := s.appointments.CreateBooked(ctx, apt); err != nil {
		return nil, err
	}
	return apt, nil
}

// expandOccurrences generates the series start instants. Steps are taken in
// wall-clock terms in the tenant zone, so a weekly 10:00 booking stays at
// 10:00 across a DST transition. An occurrence whose wall-clock time lands
// in a DST gap is dropped rather than shifted.
func expandOccurrences(pattern model.RecurrencePattern, first time.Time, loc *time.Location) ([]time.Time, error) {
	if pattern.Count <= 0 && pattern.Until == "" {
		return nil, errors.NewValidation("recurrence requires a count or an until date", nil)
	}

	count := pattern.Count
	if count <= 0 || count > maxSeriesOccurrences {
		count = maxSeriesOccurrences
	}

	var untilWall time.Time
	if pattern.Until != "" {
		day, err := time.Parse(scheduling.DateLayout, pattern.Until)
		if err != nil {
			return nil, errors.NewValidation("until must be a YYYY-MM-DD date", nil)
		}
		untilWall = day.AddDate(0, 0, 1)
	}

	// The cursor holds wall-clock fields only and is stepped in UTC, where
	// AddDate never normalizes across an offset change. Each occurrence is
	// then resolved against its own date's offset in the tenant zone.
	local := first.In(loc)
	wall := time.Date(local.Year(), local.Month(), local.Day(), local.Hour(), local.Minute(), 0, 0, time.UTC)

	var starts []time.Time
	for i := 0; i < count; i++ {
		if !untilWall.IsZero() && !wall.Before(untilWall) {
			break
		}
		occurrence, err := scheduling.ToInstant(wall.Format(scheduling.LocalKeyLayout), loc)
		if err == nil {
			starts = append(starts, occurrence)
		}

		switch pattern.Freq {
		case model.RecurrenceDaily:
			wall = wall.AddDate(0, 0, 1)
		case model.RecurrenceWeekly:
			wall = wall.AddDate(0, 0, 7)
		case model.RecurrenceBiweekly:
			wall = wall.AddDate(0, 0, 14)
		case model.RecurrenceMonthly:
			wall = wall.AddDate(0, 1, 0)
		default:
			return nil, errors.NewValidation("unknown recurrence frequency", nil)
		}
	}
	return starts, nil
}
