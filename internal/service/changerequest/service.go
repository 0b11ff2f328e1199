package changerequest

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

// Decision note written when an approval is overturned because the target
// slot was booked between request creation and the decision.
const slotTakenNote = "slot no longer available at approval time"

// PolicyProvider resolves the effective booking policy for a business.
type PolicyProvider interface {
	Policy(ctx context.Context, businessID uuid.UUID) (model.BookingPolicy, error)
}

// Service runs the client change-request lifecycle: creation through a
// capability token, the PENDING -> APPROVED/REJECTED/WITHDRAWN machine, and
// the conflict-checked application of approved reschedules.
type Service struct {
	requests     repository.ChangeRequestRepository
	appointments repository.AppointmentRepository
	tokens       repository.TokenRepository
	issuer       security.TokenIssuer
	policies     PolicyProvider
	events       *eventService.Service
	now          func() time.Time
}

func NewService(
	requests repository.ChangeRequestRepository,
	appointments repository.AppointmentRepository,
	tokens repository.TokenRepository,
	issuer security.TokenIssuer,
	policies PolicyProvider,
	events *eventService.Service,
) *Service {
	return &Service{
		requests:     requests,
		appointments: appointments,
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

// ResolveToken maps a bearer capability secret to its appointment. Unknown,
// mismatched and revoked tokens are indistinguishable to the caller: all
// present as not-found.
func (s *Service) ResolveToken(ctx context.Context, secret string) (*model.Appointment, error) {
	token, err := s.tokens.GetByLookup(ctx, s.issuer.Lookup(secret))
	if err != nil {
		return nil, err
	}
	if token.Revoked() {
		return nil, errors.NewNotFound("access token", nil)
	}
	if err := s.issuer.Verify(secret, token.SecretHash); err != nil {
		return nil, errors.NewNotFound("access token", nil)
	}
	return s.appointments.Get(ctx, token.AppointmentID)
}

// Create opens a change request against the token's appointment. The
// minHoursBefore gate rejects the creation outright: a request that close
// to the appointment never exists, it is not a state transition.
func (s *Service) Create(ctx context.Context, secret string, req *model.CreateChangeRequestRequest) (*model.ChangeRequest, error) {
	apt, err := s.ResolveToken(ctx, secret)
	if err != nil {
		return nil, err
	}

	policy, err := s.policies.Policy(ctx, apt.BusinessID)
	if err != nil {
		return nil, err
	}

	if apt.Status == model.AppointmentStatusCancelled || apt.Status == model.AppointmentStatusDone {
		return nil, errors.NewPolicy("appointment can no longer be changed", nil)
	}

	cutoff := time.Duration(policy.ChangeMinHoursBefore) * time.Hour
	if apt.StartTime.Before(s.now().Add(cutoff)) {
		return nil, errors.NewPolicy(
			fmt.Sprintf("changes require at least %d hours notice", policy.ChangeMinHoursBefore), nil)
	}

	cr := &model.ChangeRequest{
		AppointmentID: apt.ID,
		BusinessID:    apt.BusinessID,
		Type:          req.Type,
		Status:        model.ChangeRequestPending,
		ClientNote:    req.ClientNote,
	}

	if req.Type == model.ChangeRequestReschedule {
		start, err := scheduling.ToInstant(req.NewStartLocal, policy.Location())
		if err != nil {
			return nil, err
		}
		if !start.After(s.now()) {
			return nil, errors.NewValidation("new start must be in the future", nil)
		}
		end := start.Add(apt.EndTime.Sub(apt.StartTime))
		cr.NewStartTime = &start
		cr.NewEndTime = &end
	}

	if err := s.requests.Create(ctx, cr); err != nil {
		return nil, err
	}
	s.emitRequest(ctx, event.TypeChangeRequestCreated, cr)

	// Self-service tenants skip the approval queue entirely.
	if !policy.NeedsApproval() {
		return s.apply(ctx, cr, nil)
	}
	return cr, nil
}

// Withdraw lets the requesting client retract their own PENDING request.
func (s *Service) Withdraw(ctx context.Context, secret string, requestID uuid.UUID) (*model.ChangeRequest, error) {
	apt, err := s.ResolveToken(ctx, secret)
	if err != nil {
		return nil, err
	}

	cr, err := s.requests.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if cr.AppointmentID != apt.ID {
		return nil, errors.NewNotFound("change request", nil)
	}

	if err := s.requests.Decide(ctx, requestID, model.ChangeRequestWithdrawn, nil, s.now()); err != nil {
		return nil, err
	}
	cr.Status = model.ChangeRequestWithdrawn
	return cr, nil
}

func (s *Service) ListPending(ctx context.Context, businessID uuid.UUID) ([]*model.ChangeRequest, error) {
	return s.requests.ListPending(ctx, businessID)
}

// Decide records the master's verdict. Approving a reschedule re-runs the
// conflict-safe path for the new span before the original appointment is
// touched; when the slot was taken in the meantime, the request lands in
// REJECTED with a system note and the appointment keeps its old span.
func (s *Service) Decide(ctx context.Context, businessID, requestID uuid.UUID, req *model.DecideChangeRequestRequest) (*model.ChangeRequest, error) {
	cr, err := s.requests.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if cr.BusinessID != businessID {
		return nil, errors.NewNotFound("change request", nil)
	}
	if cr.Status.IsTerminal() {
		return nil, errors.NewConflict("change request already decided", nil)
	}

	var note *string
	if req.DecisionNote != "" {
		note = &req.DecisionNote
	}

	if !req.Approve {
		if err := s.requests.Decide(ctx, requestID, model.ChangeRequestRejected, note, s.now()); err != nil {
			return nil, err
		}
		cr.Status = model.ChangeRequestRejected
		cr.DecisionNote = note
		s.emitRequest(ctx, event.TypeChangeRequestDecided, cr)
		return cr, nil
	}

	return s.apply(ctx, cr, note)
}

// apply executes an approval: the appointment mutation first, the status
// flip second. If the mutation hits a conflict the request is rejected with
// a system note instead, never leaving a half-applied approval behind.
func (s *Service) apply(ctx context.Context, cr *model.ChangeRequest, note *string) (*model.ChangeRequest, error) {
	switch cr.Type {
	case model.ChangeRequestCancel:
		if err := s.cancelAppointment(ctx, cr.AppointmentID); err != nil {
			return nil, err
		}
		s.emitAppointment(ctx, event.TypeAppointmentCancelled, cr)

	case model.ChangeRequestReschedule:
		if cr.NewStartTime == nil || cr.NewEndTime == nil {
			return nil, errors.NewValidation("reschedule request has no target span", nil)
		}
		err := s.appointments.Reschedule(ctx, cr.AppointmentID, *cr.NewStartTime, *cr.NewEndTime)
		if errors.IsConflict(err) {
			systemNote := slotTakenNote
			if decideErr := s.requests.Decide(ctx, cr.ID, model.ChangeRequestRejected, &systemNote, s.now()); decideErr != nil {
				return nil, decideErr
			}
			cr.Status = model.ChangeRequestRejected
			cr.DecisionNote = &systemNote
			s.emitRequest(ctx, event.TypeChangeRequestDecided, cr)
			return cr, nil
		}
		if err != nil {
			return nil, err
		}
		s.emitAppointment(ctx, event.TypeAppointmentRescheduled, cr)

	default:
		return nil, errors.NewValidation("unknown change request type", nil)
	}

	if err := s.requests.Decide(ctx, cr.ID, model.ChangeRequestApproved, note, s.now()); err != nil {
		return nil, err
	}
	cr.Status = model.ChangeRequestApproved
	cr.DecisionNote = note
	s.emitRequest(ctx, event.TypeChangeRequestDecided, cr)
	return cr, nil
}

// cancelAppointment flips the appointment to Cancelled from whichever
// non-terminal state it is in. A concurrent cancellation is not an error:
// the requested outcome holds either way.
func (s *Service) cancelAppointment(ctx context.Context, id uuid.UUID) error {
	apt, err := s.appointments.Get(ctx, id)
	if err != nil {
		return err
	}
	if apt.Status == model.AppointmentStatusCancelled {
		return nil
	}
	if !apt.Status.CanTransitionTo(model.AppointmentStatusCancelled) {
		return errors.NewPolicy("appointment can no longer be cancelled", nil)
	}

	reason := "cancelled via client change request"
	err = s.appointments.UpdateStatus(ctx, id, apt.Status, model.AppointmentStatusCancelled, &reason)
	if errors.IsConflict(err) {
		current, getErr := s.appointments.Get(ctx, id)
		if getErr == nil && current.Status == model.AppointmentStatusCancelled {
			err = nil
		}
	}
	if err != nil {
		return err
	}

	// The appointment is terminal now; its manage links stop working.
	if revokeErr := s.tokens.RevokeForAppointment(ctx, id); revokeErr != nil {
		log.Error().Err(revokeErr).Str("appointment_id", id.String()).Msg("failed to revoke access tokens")
	}
	return nil
}

func (s *Service) emitRequest(ctx context.Context, eventType event.Type, cr *model.ChangeRequest) {
	if s.events == nil {
		return
	}
	payload := event.ChangeRequestEvent{
		BusinessID:      cr.BusinessID,
		AppointmentID:   cr.AppointmentID,
		ChangeRequestID: cr.ID,
		Type:            string(cr.Type),
		Status:          string(cr.Status),
	}
	if err := s.events.Emit(ctx, eventType, payload); err != nil {
		log.Error().Err(err).Str("event_type", string(eventType)).Msg("failed to emit event")
	}
}

func (s *Service) emitAppointment(ctx context.Context, eventType event.Type, cr *model.ChangeRequest) {
	if s.events == nil {
		return
	}
	apt, err := s.appointments.Get(ctx, cr.AppointmentID)
	if err != nil {
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
