package booking

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

// fakeAppointmentRepo emulates the store's exclusion constraint: a single
// mutex guards the span check plus insert, so it is atomic the same way the
// database path is.
type fakeAppointmentRepo struct {
	mu           sync.Mutex
	appointments map[uuid.UUID]*model.Appointment
}

func newFakeAppointmentRepo() *fakeAppointmentRepo {
	return &fakeAppointmentRepo{appointments: make(map[uuid.UUID]*model.Appointment)}
}

func bufferedSpan(apt *model.Appointment) (time.Time, time.Time) {
	return apt.StartTime, apt.EndTime.Add(time.Duration(apt.BufferMinutes) * time.Minute)
}

func (r *fakeAppointmentRepo) overlapsLocked(masterID uuid.UUID, start, end time.Time, exclude uuid.UUID) bool {
	for _, existing := range r.appointments {
		if existing.MasterID != masterID || existing.ID == exclude {
			continue
		}
		if existing.Status == model.AppointmentStatusCancelled {
			continue
		}
		es, ee := bufferedSpan(existing)
		if start.Before(ee) && es.Before(end) {
			return true
		}
	}
	return false
}

func (r *fakeAppointmentRepo) CreateBooked(ctx context.Context, apt *model.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	end := apt.EndTime.Add(time.Duration(apt.BufferMinutes) * time.Minute)
	if r.overlapsLocked(apt.MasterID, apt.StartTime, end, uuid.Nil) {
		return errors.NewConflict("time slot is no longer available", nil)
	}

	apt.ID = uuid.New()
	cp := *apt
	r.appointments[apt.ID] = &cp
	return nil
}

func (r *fakeAppointmentRepo) Reschedule(ctx context.Context, id uuid.UUID, start, end time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	apt, ok := r.appointments[id]
	if !ok {
		return errors.NewNotFound("appointment", nil)
	}
	buffered := end.Add(time.Duration(apt.BufferMinutes) * time.Minute)
	if r.overlapsLocked(apt.MasterID, start, buffered, id) {
		return errors.NewConflict("time slot is no longer available", nil)
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
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*model.Appointment
	for _, apt := range r.appointments {
		if apt.BusinessID != businessID {
			continue
		}
		cp := *apt
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeAppointmentRepo) BusySpans(ctx context.Context, masterID uuid.UUID, from, to time.Time) ([]*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*model.Appointment
	for _, apt := range r.appointments {
		if apt.MasterID != masterID || apt.Status == model.AppointmentStatusCancelled {
			continue
		}
		if apt.StartTime.Before(to) && from.Before(apt.EndTime) {
			cp := *apt
			out = append(out, &cp)
		}
	}
	return out, nil
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

type fakeMasterRepo struct {
	masters map[uuid.UUID]*model.Master
}

func (r *fakeMasterRepo) Create(ctx context.Context, m *model.Master) error { return nil }
func (r *fakeMasterRepo) Update(ctx context.Context, m *model.Master) error { return nil }
func (r *fakeMasterRepo) UpdateSchedule(ctx context.Context, id uuid.UUID, schedule, overrides, blocked []byte) error {
	return nil
}

func (r *fakeMasterRepo) Get(ctx context.Context, id uuid.UUID) (*model.Master, error) {
	m, ok := r.masters[id]
	if !ok {
		return nil, errors.NewNotFound("master", nil)
	}
	return m, nil
}

func (r *fakeMasterRepo) GetForBusiness(ctx context.Context, businessID, id uuid.UUID) (*model.Master, error) {
	m, ok := r.masters[id]
	if !ok || m.BusinessID != businessID {
		return nil, errors.NewNotFound("master", nil)
	}
	return m, nil
}

func (r *fakeMasterRepo) List(ctx context.Context, businessID uuid.UUID) ([]*model.Master, error) {
	var out []*model.Master
	for _, m := range r.masters {
		if m.BusinessID == businessID {
			out = append(out, m)
		}
	}
	return out, nil
}

type fakeServiceRepo struct {
	services map[uuid.UUID]*model.OfferedService
}

func (r *fakeServiceRepo) Create(ctx context.Context, svc *model.OfferedService) error { return nil }

func (r *fakeServiceRepo) GetMany(ctx context.Context, businessID uuid.UUID, ids []uuid.UUID) ([]*model.OfferedService, error) {
	var out []*model.OfferedService
	for _, id := range ids {
		if svc, ok := r.services[id]; ok && svc.BusinessID == businessID {
			out = append(out, svc)
		}
	}
	return out, nil
}

func (r *fakeServiceRepo) List(ctx context.Context, businessID uuid.UUID) ([]*model.OfferedService, error) {
	return nil, nil
}

type fakeTokenRepo struct {
	mu     sync.Mutex
	tokens map[string]*model.AccessToken
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{tokens: make(map[string]*model.AccessToken)}
}

func (r *fakeTokenRepo) Create(ctx context.Context, token *model.AccessToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	token.ID = uuid.New()
	cp := *token
	r.tokens[token.Lookup] = &cp
	return nil
}

func (r *fakeTokenRepo) GetByLookup(ctx context.Context, lookup string) (*model.AccessToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	token, ok := r.tokens[lookup]
	if !ok {
		return nil, errors.NewNotFound("access token", nil)
	}
	cp := *token
	return &cp, nil
}

func (r *fakeTokenRepo) RevokeForAppointment(ctx context.Context, appointmentID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
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
	tokens       *fakeTokenRepo
	policies     *fakePolicies
	businessID   uuid.UUID
	masterID     uuid.UUID
	serviceID    uuid.UUID
	now          time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	businessID := uuid.New()
	masterID := uuid.New()
	serviceID := uuid.New()

	masters := &fakeMasterRepo{masters: map[uuid.UUID]*model.Master{
		masterID: {
			Base:       model.Base{ID: masterID},
			BusinessID: businessID,
			Name:       "Olena",
			Status:     model.MasterStatusActive,
		},
	}}
	services := &fakeServiceRepo{services: map[uuid.UUID]*model.OfferedService{
		serviceID: {
			Base:       model.Base{ID: serviceID},
			BusinessID: businessID,
			Name:       "Haircut",
			Duration:   30,
		},
	}}

	appointments := newFakeAppointmentRepo()
	tokens := newFakeTokenRepo()
	policies := &fakePolicies{policy: model.DefaultBookingPolicy()}

	now := time.Date(2026, 6, 10, 12, 0, 0, 0, time.UTC)
	svc := NewService(appointments, masters, services, tokens, security.NewTokenIssuer(4), policies, nil).
		WithClock(func() time.Time { return now })

	return &fixture{
		svc:          svc,
		appointments: appointments,
		tokens:       tokens,
		policies:     policies,
		businessID:   businessID,
		masterID:     masterID,
		serviceID:    serviceID,
		now:          now,
	}
}

func (f *fixture) request(startLocal string) *model.CreateAppointmentRequest {
	return &model.CreateAppointmentRequest{
		MasterID:    f.masterID,
		ServiceIDs:  []string{f.serviceID.String()},
		ClientName:  "Iryna",
		ClientPhone: "+380501234567",
		StartLocal:  startLocal,
	}
}

func TestBookPublicHappyPath(t *testing.T) {
	f := newFixture(t)

	result, err := f.svc.Book(context.Background(), f.businessID, f.request("2026-06-15T10:00"), model.OriginPublic)
	require.NoError(t, err)

	apt := result.Appointment
	assert.Equal(t, model.AppointmentStatusPending, apt.Status)
	assert.Equal(t, model.OriginPublic, apt.Origin)
	assert.Equal(t, 30*time.Minute, apt.EndTime.Sub(apt.StartTime))
	assert.NotEmpty(t, result.ManageToken)
}

func TestBookAutoConfirm(t *testing.T) {
	f := newFixture(t)
	f.policies.policy.AutoConfirm = true

	result, err := f.svc.Book(context.Background(), f.businessID, f.request("2026-06-15T10:00"), model.OriginPublic)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusConfirmed, result.Appointment.Status)
}

func TestBookExplicitDuration(t *testing.T) {
	f := newFixture(t)

	req := f.request("2026-06-15T10:00")
	req.ServiceIDs = nil
	req.DurationMinutes = 45

	result, err := f.svc.Book(context.Background(), f.businessID, req, model.OriginStaff)
	require.NoError(t, err)
	assert.Equal(t, 45*time.Minute, result.Appointment.EndTime.Sub(result.Appointment.StartTime))
	assert.Empty(t, result.ManageToken)
}

func TestBookRejectsConflict(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Book(context.Background(), f.businessID, f.request("2026-06-15T10:00"), model.OriginPublic)
	require.NoError(t, err)

	_, err = f.svc.Book(context.Background(), f.businessID, f.request("2026-06-15T10:00"), model.OriginPublic)
	require.Error(t, err)
	assert.True(t, errors.IsConflict(err))
}

func TestBookEnforcesBufferGap(t *testing.T) {
	f := newFixture(t)
	f.policies.policy.BufferMinutes = 15

	_, err := f.svc.Book(context.Background(), f.businessID, f.request("2026-06-15T10:00"), model.OriginPublic)
	require.NoError(t, err)

	// Ends 10:30; a 10:30 start leaves no buffer gap.
	_, err = f.svc.Book(context.Background(), f.businessID, f.request("2026-06-15T10:30"), model.OriginPublic)
	assert.True(t, errors.IsConflict(err))

	// 10:45 leaves exactly the 15-minute gap.
	_, err = f.svc.Book(context.Background(), f.businessID, f.request("2026-06-15T10:45"), model.OriginPublic)
	assert.NoError(t, err)
}

func TestBookMinAdvanceGate(t *testing.T) {
	f := newFixture(t)

	// Policy default requires 60 minutes notice; clock is 12:00 Kyiv is
	// 15:00, so a 15:30 local start is too soon.
	_, err := f.svc.Book(context.Background(), f.businessID, f.request("2026-06-10T15:30"), model.OriginPublic)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notice")

	// Staff bypass the advance gate; only the past is off limits.
	_, err = f.svc.Book(context.Background(), f.businessID, f.request("2026-06-10T15:30"), model.OriginStaff)
	assert.NoError(t, err)
}

func TestBookHorizonGate(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Book(context.Background(), f.businessID, f.request("2026-12-01T10:00"), model.OriginPublic)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "days ahead")
}

func TestBookHorizonCoversWholeLastDay(t *testing.T) {
	f := newFixture(t)

	// Kyiv time is 15:00 on 2026-06-10; the 60-day horizon runs through
	// 2026-08-09. An afternoon slot on that day is later than 60*24h from
	// now, yet the slot listing offers the whole day, so booking must too.
	_, err := f.svc.Book(context.Background(), f.businessID, f.request("2026-08-09T16:00"), model.OriginPublic)
	assert.NoError(t, err)

	// The very next day is out.
	_, err = f.svc.Book(context.Background(), f.businessID, f.request("2026-08-10T09:00"), model.OriginPublic)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "days ahead")
}

func TestBookUnknownMaster(t *testing.T) {
	f := newFixture(t)

	req := f.request("2026-06-15T10:00")
	req.MasterID = uuid.New()

	_, err := f.svc.Book(context.Background(), f.businessID, req, model.OriginPublic)
	assert.True(t, errors.IsNotFound(err))
}

func TestBookConcurrentExactlyOneWins(t *testing.T) {
	f := newFixture(t)

	const attempts = 16
	var wg sync.WaitGroup
	okCount := make(chan struct{}, attempts)
	conflictCount := make(chan struct{}, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Book(context.Background(), f.businessID, f.request("2026-06-15T10:00"), model.OriginPublic)
			switch {
			case err == nil:
				okCount <- struct{}{}
			case errors.IsConflict(err):
				conflictCount <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(okCount)
	close(conflictCount)

	assert.Equal(t, 1, len(okCount), "exactly one booking must win")
	assert.Equal(t, attempts-1, len(conflictCount))
}

func TestTransitionLifecycle(t *testing.T) {
	f := newFixture(t)

	result, err := f.svc.Book(context.Background(), f.businessID, f.request("2026-06-15T10:00"), model.OriginPublic)
	require.NoError(t, err)
	id := result.Appointment.ID

	apt, err := f.svc.Transition(context.Background(), f.businessID, id, model.AppointmentStatusConfirmed, "")
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusConfirmed, apt.Status)

	apt, err = f.svc.Transition(context.Background(), f.businessID, id, model.AppointmentStatusDone, "")
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusDone, apt.Status)

	_, err = f.svc.Transition(context.Background(), f.businessID, id, model.AppointmentStatusCancelled, "too late")
	assert.True(t, errors.IsValidation(err))
}

func TestTransitionCancelRevokesTokensAndFreesSlot(t *testing.T) {
	f := newFixture(t)

	result, err := f.svc.Book(context.Background(), f.businessID, f.request("2026-06-15T10:00"), model.OriginPublic)
	require.NoError(t, err)
	id := result.Appointment.ID

	_, err = f.svc.Transition(context.Background(), f.businessID, id, model.AppointmentStatusCancelled, "client no-show")
	require.NoError(t, err)

	for _, token := range f.tokens.tokens {
		assert.True(t, token.Revoked())
	}

	// Cancellation frees the span for rebooking.
	_, err = f.svc.Book(context.Background(), f.businessID, f.request("2026-06-15T10:00"), model.OriginPublic)
	assert.NoError(t, err)
}

func TestGetAppointmentScopedToBusiness(t *testing.T) {
	f := newFixture(t)

	result, err := f.svc.Book(context.Background(), f.businessID, f.request("2026-06-15T10:00"), model.OriginPublic)
	require.NoError(t, err)

	_, err = f.svc.GetAppointment(context.Background(), uuid.New(), result.Appointment.ID)
	assert.True(t, errors.IsNotFound(err))
}
