package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/slotbook/booking-api/internal/model"
	"github.com/slotbook/booking-api/internal/repository"
	"github.com/slotbook/booking-api/internal/scheduling"
	eventService "github.com/slotbook/booking-api/internal/service/event"
	"github.com/slotbook/booking-api/pkg/errors"
	"github.com/slotbook/booking-api/pkg/event"
	"github.com/slotbook/booking-api/pkg/security"
)

// PolicyProvider resolves the effective booking policy for a business.
type PolicyProvider interface {
	Policy(ctx context.Context, businessID uuid.UUID) (model.BookingPolicy, error)
}

// Service owns appointment creation and the status lifecycle. All writes go
// through the repository's atomic booking path; this layer never does a
// read-check-write of its own, so two requests racing for the same span
// cannot both succeed no matter how they interleave here.
type Service struct {
	appointments repository.AppointmentRepository
	masters      repository.MasterRepository
	services     repository.ServiceRepository
	tokens       repository.TokenRepository
	issuer       security.TokenIssuer
	policies     PolicyProvider
	events       *eventService.Service
	now          func() time.Time
}

func NewService(
	appointments repository.AppointmentRepository,
	masters repository.MasterRepository,
	services repository.ServiceRepository,
	tokens repository.TokenRepository,
	issuer security.TokenIssuer,
	policies PolicyProvider,
	events *eventService.Service,
) *Service {
	return &Service{
		appointments: appointments,
		masters:      masters,
		services:     services,
		tokens:       tokens,
		issuer:       issuer,
		policies:     policies,
		events:       events,
		now:          time.Now,
	}
}

// WithClock overrides the time source, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// BookingResult carries the committed appointment plus, for public
// bookings, the one-time capability secret the client manages it with.
type BookingResult struct {
	Appointment *model.Appointment `json:"appointment"`
	ManageToken string             `json:"manage_token,omitempty"`
}

// Book validates the request against the tenant policy and commits the span
// through the conflict-safe store path. On conflict the caller gets a 409
// and picks another slot; nothing is persisted for the loser.
func (s *Service) Book(ctx context.Context, businessID uuid.UUID, req *model.CreateAppointmentRequest, origin model.AppointmentOrigin) (*BookingResult, error) {
	policy, err := s.policies.Policy(ctx, businessID)
	if err != nil {
		return nil, err
	}
	loc := policy.Location()

	master, err := s.masters.GetForBusiness(ctx, businessID, req.MasterID)
	if err != nil {
		return nil, err
	}
	if master.Status != model.MasterStatusActive {
		return nil, errors.NewNotFound("master", nil)
	}

	duration, err := s.resolveDuration(ctx, businessID, req)
	if err != nil {
		return nil, err
	}

	start, err := scheduling.ToInstant(req.StartLocal, loc)
	if err != nil {
		return nil, err
	}
	end := start.Add(duration)

	now := s.now()
	if origin == model.OriginPublic {
		if start.Before(now.Add(time.Duration(policy.MinAdvanceMinutes) * time.Minute)) {
			return nil, errors.NewPolicy(
				fmt.Sprintf("bookings require at least %d minutes notice", policy.MinAdvanceMinutes), nil)
		}
		// The horizon is date-granular, like the slot listing: every slot on
		// the last allowed local day is bookable, whatever the current wall
		// time happens to be.
		local := now.In(loc)
		today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
		if !start.Before(today.AddDate(0, 0, policy.MaxDaysAhead+1)) {
			return nil, errors.NewPolicy(
				fmt.Sprintf("bookings can be made at most %d days ahead", policy.MaxDaysAhead), nil)
		}
	} else if !start.After(now) {
		return nil, errors.NewValidation("appointment must start in the future", nil)
	}

	status := model.AppointmentStatusPending
	if origin == model.OriginPublic && policy.AutoConfirm {
		status = model.AppointmentStatusConfirmed
	}

	apt := &model.Appointment{
		BusinessID:    businessID,
		MasterID:      req.MasterID,
		ClientName:    req.ClientName,
		ClientPhone:   req.ClientPhone,
		StartTime:     start,
		EndTime:       end,
		BufferMinutes: policy.BufferMinutes,
		Status:        status,
		Origin:        origin,
		Notes:         req.Notes,
	}
	if err := s.appointments.CreateBooked(ctx, apt); err != nil {
		return nil, err
	}

	s.emit(ctx, event.TypeAppointmentBooked, apt)

	result := &BookingResult{Appointment: apt}
	if origin == model.OriginPublic {
		secret, err := s.issueToken(ctx, apt)
		if err != nil {
			// The booking stands; the tenant can re-issue a manage link.
			log.Error().Err(err).Str("appointment_id", apt.ID.String()).Msg("failed to issue access token")
		} else {
			result.ManageToken = secret
		}
	}
	return result, nil
}

func (s *Service) GetAppointment(ctx context.Context, businessID, id uuid.UUID) (*model.Appointment, error) {
	apt, err := s.appointments.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if apt.BusinessID != businessID {
		return nil, errors.NewNotFound("appointment", nil)
	}
	return apt, nil
}

func (s *Service) ListAppointments(ctx context.Context, businessID uuid.UUID, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	return s.appointments.List(ctx, businessID, filters)
}

// Transition moves an appointment along Pending -> Confirmed -> Done, with
// cancellation allowed from the two non-terminal states. The compare-and-set
// in the repository closes the race between concurrent transitions.
func (s *Service) Transition(ctx context.Context, businessID, id uuid.UUID, next model.AppointmentStatus, cancelReason string) (*model.Appointment, error) {
	apt, err := s.GetAppointment(ctx, businessID, id)
	if err != nil {
		return nil, err
	}
	if !apt.Status.CanTransitionTo(next) {
		return nil, errors.NewValidation(
			fmt.Sprintf("cannot transition appointment from %s to %s", apt.Status, next), nil)
	}

	var reason *string
	if next == model.AppointmentStatusCancelled && cancelReason != "" {
		reason = &cancelReason
	}
	if err := s.appointments.UpdateStatus(ctx, id, apt.Status, next, reason); err != nil {
		return nil, err
	}
	apt.Status = next
	apt.CancelReason = reason

	switch next {
	case model.AppointmentStatusConfirmed:
		s.emit(ctx, event.TypeAppointmentConfirmed, apt)
	case model.AppointmentStatusCancelled:
		s.emit(ctx, event.TypeAppointmentCancelled, apt)
		if err := s.tokens.RevokeForAppointment(ctx, id); err != nil {
			log.Error().Err(err).Str("appointment_id", id.String()).Msg("failed to revoke access tokens")
		}
	}
	return apt, nil
}

// RevokeAppointmentTokens invalidates every manage link issued for the
// appointment, e.g. when a client reports a leaked link.
func (s *Service) RevokeAppointmentTokens(ctx context.Context, businessID, appointmentID uuid.UUID) error {
	if _, err := s.GetAppointment(ctx, businessID, appointmentID); err != nil {
		return err
	}
	return s.tokens.RevokeForAppointment(ctx, appointmentID)
}

// resolveDuration sums the requested services, or takes the explicit
// duration when given. Unknown or foreign service ids fail validation.
func (s *Service) resolveDuration(ctx context.Context, businessID uuid.UUID, req *model.CreateAppointmentRequest) (time.Duration, error) {
	if req.DurationMinutes > 0 {
		return time.Duration(req.DurationMinutes) * time.Minute, nil
	}
	if len(req.ServiceIDs) == 0 {
		return 0, errors.NewValidation("either service_ids or duration_minutes is required", nil)
	}

	ids := make([]uuid.UUID, 0, len(req.ServiceIDs))
	for _, raw := range req.ServiceIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return 0, errors.NewValidation(fmt.Sprintf("invalid service id %q", raw), err)
		}
		ids = append(ids, id)
	}

	services, err := s.services.GetMany(ctx, businessID, ids)
	if err != nil {
		return 0, err
	}
	if len(services) != len(ids) {
		return 0, errors.NewValidation("one or more services not found", nil)
	}

	total := 0
	for _, svc := range services {
		total += svc.Duration
	}
	if total <= 0 {
		return 0, errors.NewValidation("requested services have no duration", nil)
	}
	return time.Duration(total) * time.Minute, nil
}

func (s *Service) issueToken(ctx context.Context, apt *model.Appointment) (string, error) {
	secret, lookup, hash, err := s.issuer.Mint()
	if err != nil {
		return "", err
	}
	token := &model.AccessToken{
		AppointmentID: apt.ID,
		BusinessID:    apt.BusinessID,
		Lookup:        lookup,
		SecretHash:    hash,
	}
	if err := s.tokens.Create(ctx, token); err != nil {
		return "", err
	}
	return secret, nil
}

// emit records a notification event; failures are logged and swallowed so
// the appointment write is never rolled back by the notification side.
func (s *Service) emit(ctx context.Context, eventType event.Type, apt *model.Appointment) {
	if s.events == nil {
		return
	}
	payload := event.AppointmentEvent{
		BusinessID:    apt.BusinessID,
		AppointmentID: apt.ID,
		MasterID:      apt.MasterID,
		ClientName:    apt.ClientName,
		StartTime:     apt.StartTime,
	}
	if err := s.events.Emit(ctx, eventType, payload); err != nil {
		log.Error().Err(err).Str("event_type", string(eventType)).Msg("failed to emit event")
	}
}
