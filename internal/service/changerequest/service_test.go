package changerequest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slotbook/booking-api/internal/model"
	"github.com/slotbook/booking-api/pkg/errors"
	"github.com/slotbook/booking-api/pkg/security"
)

type fakeAppointmentRepo struct {
	mu           sync.Mutex
	appointments map[uuid.UUID]*model.Appointment
	// conflictOnReschedule simulates another booking having taken the target
	// span between request creation and approval.
	conflictOnReschedule bool
}

func (r *fakeAppointmentRepo) CreateBooked(ctx context.Context, apt *model.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	apt.ID = uuid.New()
	cp := *apt
	r.appointments[apt.ID] = &cp
	return nil
}

func (r *fakeAppointmentRepo) Reschedule(ctx context.Context, id uuid.UUID, start, end time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conflictOnReschedule {
		return errors.NewConflict("time slot is no longer available", nil)
	}
	apt, ok := r.appointments[id]
	if !ok {
		return errors.NewNotFound("appointment", nil)
	}
	apt.StartTime = start
	apt.EndTime = end
	return nil
}

func (r *fakeAppointmentRepo) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	apt, ok := r.appointments[id]
	if !ok {
		return nil, errors.NewNotFound("appointment", nil)
	}
	cp := *apt
	return &cp, nil
}

func (r *fakeAppointmentRepo) List(ctx context.Context, businessID uuid.UUID, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	return nil, nil
}

func (r *fakeAppointmentRepo) BusySpans(ctx context.Context, masterID uuid.UUID, from, to time.Time) ([]*model.Appointment, error) {
	return nil, nil
}

func (r *fakeAppointmentRepo) UpdateStatus(ctx context.Context, id uuid.UUID, expected, next model.AppointmentStatus, cancelReason *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	apt, ok := r.appointments[id]
	if !ok {
		return errors.NewNotFound("appointment", nil)
	}
	if apt.Status != expected {
		return errors.NewConflict("appointment status changed concurrently", nil)
	}
	apt.Status = next
	apt.CancelReason = cancelReason
	return nil
}

type fakeRequestRepo struct {
	mu       sync.Mutex
	requests map[uuid.UUID]*model.ChangeRequest
}

func (r *fakeRequestRepo) Create(ctx context.Context, cr *model.ChangeRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cr.ID = uuid.New()
	cp := *cr
	r.requests[cr.ID] = &cp
	return nil
}

func (r *fakeRequestRepo) Get(ctx context.Context, id uuid.UUID) (*model.ChangeRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cr, ok := r.requests[id]
	if !ok {
		return nil, errors.NewNotFound("change request", nil)
	}
	cp := *cr
	return &cp, nil
}

func (r *fakeRequestRepo) ListPending(ctx context.Context, businessID uuid.UUID) ([]*model.ChangeRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.ChangeRequest
	for _, cr := range r.requests {
		if cr.BusinessID == businessID && cr.Status == model.ChangeRequestPending {
			cp := *cr
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeRequestRepo) ListForAppointment(ctx context.Context, appointmentID uuid.UUID) ([]*model.ChangeRequest, error) {
	return nil, nil
}

func (r *fakeRequestRepo) Decide(ctx context.Context, id uuid.UUID, status model.ChangeRequestStatus, note *string, decidedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cr, ok := r.requests[id]
	if !ok {
		return errors.NewNotFound("change request", nil)
	}
	if cr.Status != model.ChangeRequestPending {
		return errors.NewNotFound("change request", nil)
	}
	cr.Status = status
	cr.DecisionNote = note
	cr.DecidedAt = &decidedAt
	return nil
}

type fakeTokenRepo struct {
	tokens map[string]*model.AccessToken
}

func (r *fakeTokenRepo) Create(ctx context.Context, token *model.AccessToken) error {
	token.ID = uuid.New()
	cp := *token
	r.tokens[token.Lookup] = &cp
	return nil
}

func (r *fakeTokenRepo) GetByLookup(ctx context.Context, lookup string) (*model.AccessToken, error) {
	token, ok := r.tokens[lookup]
	if !ok {
		return nil, errors.NewNotFound("access token", nil)
	}
	cp := *token
	return &cp, nil
}

func (r *fakeTokenRepo) RevokeForAppointment(ctx context.Context, appointmentID uuid.UUID) error {
	now := time.Now()
	for _, token := range r.tokens {
		if token.AppointmentID == appointmentID {
			token.RevokedAt = &now
		}
	}
	return nil
}

type fakePolicies struct {
	policy model.BookingPolicy
}

func (p *fakePolicies) Policy(ctx context.Context, businessID uuid.UUID) (model.BookingPolicy, error) {
	return p.policy, nil
}

type fixture struct {
	svc          *Service
	appointments *fakeAppointmentRepo
	requests     *fakeRequestRepo
	tokens       *fakeTokenRepo
	policies     *fakePolicies
	businessID   uuid.UUID
	apt          *model.Appointment
	secret       string
	now          time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	issuer := security.NewTokenIssuer(4)
	businessID := uuid.New()
	now := time.Date(2026, 6, 10, 12, 0, 0, 0, time.UTC)

	appointments := &fakeAppointmentRepo{appointments: make(map[uuid.UUID]*model.Appointment)}
	apt := &model.Appointment{
		BusinessID:  businessID,
		MasterID:    uuid.New(),
		ClientName:  "Iryna",
		ClientPhone: "+380501234567",
		StartTime:   now.Add(48 * time.Hour),
		EndTime:     now.Add(48*time.Hour + 30*time.Minute),
		Status:      model.AppointmentStatusConfirmed,
		Origin:      model.OriginPublic,
	}
	require.NoError(t, appointments.CreateBooked(context.Background(), apt))

	tokens := &fakeTokenRepo{tokens: make(map[string]*model.AccessToken)}
	secret, lookup, hash, err := issuer.Mint()
	require.NoError(t, err)
	require.NoError(t, tokens.Create(context.Background(), &model.AccessToken{
		AppointmentID: apt.ID,
		BusinessID:    businessID,
		Lookup:        lookup,
		SecretHash:    hash,
	}))

	requests := &fakeRequestRepo{requests: make(map[uuid.UUID]*model.ChangeRequest)}
	policies := &fakePolicies{policy: model.DefaultBookingPolicy()}

	svc := NewService(requests, appointments, tokens, issuer, policies, nil).
		WithClock(func() time.Time { return now })

	return &fixture{
		svc:          svc,
		appointments: appointments,
		requests:     requests,
		tokens:       tokens,
		policies:     policies,
		businessID:   businessID,
		apt:          apt,
		secret:       secret,
		now:          now,
	}
}

func TestResolveToken(t *testing.T) {
	f := newFixture(t)

	apt, err := f.svc.ResolveToken(context.Background(), f.secret)
	require.NoError(t, err)
	assert.Equal(t, f.apt.ID, apt.ID)

	_, err = f.svc.ResolveToken(context.Background(), "not-a-real-secret")
	assert.True(t, errors.IsNotFound(err))
}

func TestResolveTokenRevoked(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.tokens.RevokeForAppointment(context.Background(), f.apt.ID))

	_, err := f.svc.ResolveToken(context.Background(), f.secret)
	assert.True(t, errors.IsNotFound(err))
}

func TestCreateCancelRequest(t *testing.T) {
	f := newFixture(t)

	cr, err := f.svc.Create(context.Background(), f.secret, &model.CreateChangeRequestRequest{
		Type:       model.ChangeRequestCancel,
		ClientNote: "can't make it",
	})
	require.NoError(t, err)
	assert.Equal(t, model.ChangeRequestPending, cr.Status)
	assert.Equal(t, f.apt.ID, cr.AppointmentID)
}

func TestCreateRescheduleComputesSpan(t *testing.T) {
	f := newFixture(t)

	cr, err := f.svc.Create(context.Background(), f.secret, &model.CreateChangeRequestRequest{
		Type:          model.ChangeRequestReschedule,
		NewStartLocal: "2026-06-20T14:00",
	})
	require.NoError(t, err)
	require.NotNil(t, cr.NewStartTime)
	require.NotNil(t, cr.NewEndTime)
	assert.Equal(t, 30*time.Minute, cr.NewEndTime.Sub(*cr.NewStartTime))
}

func TestCreateRejectedTooCloseToStart(t *testing.T) {
	f := newFixture(t)

	// Pull the appointment inside the 3-hour cutoff.
	f.appointments.appointments[f.apt.ID].StartTime = f.now.Add(time.Hour)

	_, err := f.svc.Create(context.Background(), f.secret, &model.CreateChangeRequestRequest{
		Type: model.ChangeRequestCancel,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hours notice")
}

func TestCreateRejectedForTerminalAppointment(t *testing.T) {
	f := newFixture(t)

	f.appointments.appointments[f.apt.ID].Status = model.AppointmentStatusCancelled

	_, err := f.svc.Create(context.Background(), f.secret, &model.CreateChangeRequestRequest{
		Type: model.ChangeRequestCancel,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no longer be changed")
}

func TestCreateAutoAppliesWithoutApproval(t *testing.T) {
	f := newFixture(t)
	noApproval := false
	f.policies.policy.RequireApproval = &noApproval

	cr, err := f.svc.Create(context.Background(), f.secret, &model.CreateChangeRequestRequest{
		Type: model.ChangeRequestCancel,
	})
	require.NoError(t, err)
	assert.Equal(t, model.ChangeRequestApproved, cr.Status)

	apt, err := f.appointments.Get(context.Background(), f.apt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCancelled, apt.Status)
}

func TestWithdraw(t *testing.T) {
	f := newFixture(t)

	cr, err := f.svc.Create(context.Background(), f.secret, &model.CreateChangeRequestRequest{
		Type: model.ChangeRequestCancel,
	})
	require.NoError(t, err)

	withdrawn, err := f.svc.Withdraw(context.Background(), f.secret, cr.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ChangeRequestWithdrawn, withdrawn.Status)

	// A withdrawn request can no longer be decided.
	_, err = f.svc.Decide(context.Background(), f.businessID, cr.ID, &model.DecideChangeRequestRequest{Approve: true})
	assert.True(t, errors.IsConflict(err))
}

func TestDecideApproveCancel(t *testing.T) {
	f := newFixture(t)

	cr, err := f.svc.Create(context.Background(), f.secret, &model.CreateChangeRequestRequest{
		Type: model.ChangeRequestCancel,
	})
	require.NoError(t, err)

	decided, err := f.svc.Decide(context.Background(), f.businessID, cr.ID, &model.DecideChangeRequestRequest{Approve: true})
	require.NoError(t, err)
	assert.Equal(t, model.ChangeRequestApproved, decided.Status)

	apt, err := f.appointments.Get(context.Background(), f.apt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCancelled, apt.Status)

	// Manage links die with the appointment.
	_, err = f.svc.ResolveToken(context.Background(), f.secret)
	assert.True(t, errors.IsNotFound(err))
}

func TestDecideReject(t *testing.T) {
	f := newFixture(t)

	cr, err := f.svc.Create(context.Background(), f.secret, &model.CreateChangeRequestRequest{
		Type: model.ChangeRequestCancel,
	})
	require.NoError(t, err)

	decided, err := f.svc.Decide(context.Background(), f.businessID, cr.ID, &model.DecideChangeRequestRequest{
		Approve:      false,
		DecisionNote: "master unavailable",
	})
	require.NoError(t, err)
	assert.Equal(t, model.ChangeRequestRejected, decided.Status)
	require.NotNil(t, decided.DecisionNote)
	assert.Equal(t, "master unavailable", *decided.DecisionNote)

	// The appointment is untouched.
	apt, err := f.appointments.Get(context.Background(), f.apt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusConfirmed, apt.Status)
}

func TestDecideApproveReschedule(t *testing.T) {
	f := newFixture(t)

	cr, err := f.svc.Create(context.Background(), f.secret, &model.CreateChangeRequestRequest{
		Type:          model.ChangeRequestReschedule,
		NewStartLocal: "2026-06-20T14:00",
	})
	require.NoError(t, err)

	decided, err := f.svc.Decide(context.Background(), f.businessID, cr.ID, &model.DecideChangeRequestRequest{Approve: true})
	require.NoError(t, err)
	assert.Equal(t, model.ChangeRequestApproved, decided.Status)

	apt, err := f.appointments.Get(context.Background(), f.apt.ID)
	require.NoError(t, err)
	assert.True(t, apt.StartTime.Equal(*cr.NewStartTime))
}

func TestDecideApprovalLosesSlotRace(t *testing.T) {
	f := newFixture(t)

	cr, err := f.svc.Create(context.Background(), f.secret, &model.CreateChangeRequestRequest{
		Type:          model.ChangeRequestReschedule,
		NewStartLocal: "2026-06-20T14:00",
	})
	require.NoError(t, err)

	originalStart := f.apt.StartTime
	f.appointments.conflictOnReschedule = true

	decided, err := f.svc.Decide(context.Background(), f.businessID, cr.ID, &model.DecideChangeRequestRequest{Approve: true})
	require.NoError(t, err)
	assert.Equal(t, model.ChangeRequestRejected, decided.Status)
	require.NotNil(t, decided.DecisionNote)
	assert.Equal(t, slotTakenNote, *decided.DecisionNote)

	// The original appointment keeps its old span.
	apt, err := f.appointments.Get(context.Background(), f.apt.ID)
	require.NoError(t, err)
	assert.True(t, apt.StartTime.Equal(originalStart))
}

func TestDecideScopedToBusiness(t *testing.T) {
	f := newFixture(t)

	cr, err := f.svc.Create(context.Background(), f.secret, &model.CreateChangeRequestRequest{
		Type: model.ChangeRequestCancel,
	})
	require.NoError(t, err)

	_, err = f.svc.Decide(context.Background(), uuid.New(), cr.ID, &model.DecideChangeRequestRequest{Approve: true})
	assert.True(t, errors.IsNotFound(err))
}
