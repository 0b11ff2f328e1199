package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/slotbook/booking-api/internal/model"
)

type BusinessRepository interface {
	Create(ctx context.Context, business *model.Business) error
	Get(ctx context.Context, id uuid.UUID) (*model.Business, error)
	UpdatePolicy(ctx context.Context, id uuid.UUID, policy []byte) error
}

type MasterRepository interface {
	Create(ctx context.Context, master *model.Master) error
	Get(ctx context.Context, id uuid.UUID) (*model.Master, error)
	GetForBusiness(ctx context.Context, businessID, id uuid.UUID) (*model.Master, error)
	List(ctx context.Context, businessID uuid.UUID) ([]*model.Master, error)
	Update(ctx context.Context, master *model.Master) error
	UpdateSchedule(ctx context.Context, id uuid.UUID, schedule, overrides, blocked []byte) error
}

type ServiceRepository interface {
	Create(ctx context.Context, svc *model.OfferedService) error
	GetMany(ctx context.Context, businessID uuid.UUID, ids []uuid.UUID) ([]*model.OfferedService, error)
	List(ctx context.Context, businessID uuid.UUID) ([]*model.OfferedService, error)
}

// AppointmentRepository owns the only mutual-exclusion resource in the
// system: the per-master appointment set. CreateBooked and Reschedule are
// atomic against the store's exclusion constraint; every other method is a
// plain read or a guarded status flip.
type AppointmentRepository interface {
	// CreateBooked inserts the appointment with its buffered span. Returns a
	// conflict error when the span overlaps a non-cancelled appointment for
	// the same master, an indeterminate error when the outcome of the write
	// is unknown (timeout around commit).
	CreateBooked(ctx context.Context, apt *model.Appointment) error
	// Reschedule moves an appointment to a new span under the same
	// exclusion constraint. The row is untouched on conflict.
	Reschedule(ctx context.Context, id uuid.UUID, start, end time.Time) error
	Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
	List(ctx context.Context, businessID uuid.UUID, filters *model.AppointmentFilters) ([]*model.Appointment, error)
	// BusySpans returns the non-cancelled appointments for one master whose
	// buffered window touches [from, to). Spans come back raw; the caller
	// applies the policy buffer.
	BusySpans(ctx context.Context, masterID uuid.UUID, from, to time.Time) ([]*model.Appointment, error)
	// UpdateStatus flips the status only when the stored status still equals
	// expected, so concurrent transitions cannot clobber each other.
	UpdateStatus(ctx context.Context, id uuid.UUID, expected, next model.AppointmentStatus, cancelReason *string) error
}

type ChangeRequestRepository interface {
	Create(ctx context.Context, cr *model.ChangeRequest) error
	Get(ctx context.Context, id uuid.UUID) (*model.ChangeRequest, error)
	ListPending(ctx context.Context, businessID uuid.UUID) ([]*model.ChangeRequest, error)
	ListForAppointment(ctx context.Context, appointmentID uuid.UUID) ([]*model.ChangeRequest, error)
	// Decide moves a PENDING request to a terminal status. Returns not-found
	// when the request is already decided, so racing deciders lose cleanly.
	Decide(ctx context.Context, id uuid.UUID, status model.ChangeRequestStatus, note *string, decidedAt time.Time) error
}

type TokenRepository interface {
	Create(ctx context.Context, token *model.AccessToken) error
	GetByLookup(ctx context.Context, lookup string) (*model.AccessToken, error)
	RevokeForAppointment(ctx context.Context, appointmentID uuid.UUID) error
}

type OutboxRepository interface {
	Create(ctx context.Context, event *model.OutboxEvent) error
	GetPending(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
	MarkProcessed(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, errMsg string, retryAt *time.Time) error
	// MarkDead parks an event permanently; GetPending never returns it again.
	MarkDead(ctx context.Context, id uuid.UUID, errMsg string) error
	DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
}
