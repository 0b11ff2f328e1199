package availability

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/slotbook/booking-api/internal/model"
	"github.com/slotbook/booking-api/internal/repository"
	"github.com/slotbook/booking-api/internal/scheduling"
	"github.com/slotbook/booking-api/pkg/errors"
)

// PolicyProvider resolves the effective booking policy for a business.
type PolicyProvider interface {
	Policy(ctx context.Context, businessID uuid.UUID) (model.BookingPolicy, error)
}

// Service computes bookable slot starts for one master and date. The result
// is advisory: a returned slot can still lose a race to another booking, and
// the conflict surfaces from the booking path, not from here.
type Service struct {
	masters      repository.MasterRepository
	appointments repository.AppointmentRepository
	services     repository.ServiceRepository
	policies     PolicyProvider
	now          func() time.Time
}

func NewService(
	masters repository.MasterRepository,
	appointments repository.AppointmentRepository,
	services repository.ServiceRepository,
	policies PolicyProvider,
) *Service {
	return &Service{
		masters:      masters,
		appointments: appointments,
		services:     services,
		policies:     policies,
		now:          time.Now,
	}
}

// WithClock overrides the time source, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// SlotsForServices resolves the combined duration of the requested catalog
// services and lists the slots that fit it. Unknown or foreign service ids
// fail validation, the same way the booking path treats them.
func (s *Service) SlotsForServices(ctx context.Context, businessID, masterID uuid.UUID, date string, serviceIDs []uuid.UUID) ([]time.Time, error) {
	if len(serviceIDs) == 0 {
		return nil, errors.NewValidation("at least one service is required", nil)
	}

	services, err := s.services.GetMany(ctx, businessID, serviceIDs)
	if err != nil {
		return nil, err
	}
	if len(services) != len(serviceIDs) {
		return nil, errors.NewValidation("one or more services not found", nil)
	}

	total := 0
	for _, svc := range services {
		total += svc.Duration
	}
	return s.SlotsFor(ctx, businessID, masterID, date, total)
}

// SlotsFor returns the ascending bookable start instants for the given
// master, date and duration. A date outside the booking horizon yields an
// empty list, not an error; a malformed date or non-positive duration is a
// validation failure.
func (s *Service) SlotsFor(ctx context.Context, businessID, masterID uuid.UUID, date string, durationMinutes int) ([]time.Time, error) {
	if durationMinutes <= 0 {
		return nil, errors.NewValidation("duration must be positive", nil)
	}

	policy, err := s.policies.Policy(ctx, businessID)
	if err != nil {
		return nil, err
	}
	loc := policy.Location()

	master, err := s.masters.GetForBusiness(ctx, businessID, masterID)
	if err != nil {
		return nil, err
	}
	if master.Status != model.MasterStatusActive {
		return nil, errors.NewNotFound("master", nil)
	}

	dayStart, dayEnd, err := scheduling.DayBounds(date, loc)
	if err != nil {
		return nil, err
	}

	// Booking horizon: [today, today+maxDaysAhead] in the tenant zone.
	now := s.now().In(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	if dayStart.Before(today) || dayStart.After(today.AddDate(0, 0, policy.MaxDaysAhead)) {
		return nil, nil
	}

	intervals, err := scheduling.IntervalsFor(master, date, loc)
	if err != nil {
		return nil, err
	}
	if len(intervals) == 0 {
		return nil, nil
	}

	appointments, err := s.appointments.BusySpans(ctx, masterID, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}
	busy := make([]scheduling.Interval, 0, len(appointments))
	for _, apt := range appointments {
		// Each committed span reserves through the buffer it was booked
		// under, not whatever the policy buffer is today. Lowering the
		// policy must not advertise slots existing rows still block.
		busy = append(busy, scheduling.Interval{
			Start: apt.StartTime,
			End:   apt.EndTime.Add(time.Duration(apt.BufferMinutes) * time.Minute),
		})
	}

	return scheduling.SlotStarts(
		intervals,
		time.Duration(policy.SlotStepMinutes)*time.Minute,
		time.Duration(durationMinutes)*time.Minute,
		policy.Buffer(),
		busy,
		now.Add(time.Duration(policy.MinAdvanceMinutes)*time.Minute),
	), nil
}
