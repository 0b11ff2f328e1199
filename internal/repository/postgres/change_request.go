package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/slotbook/booking-api/internal/model"
	"github.com/slotbook/booking-api/internal/repository"
	apperrors "github.com/slotbook/booking-api/pkg/errors"
)

type changeRequestRepository struct {
	BaseRepository
}

func NewChangeRequestRepository(base BaseRepository) repository.ChangeRequestRepository {
	return &changeRequestRepository{base}
}

const changeRequestColumns = `
	id, appointment_id, business_id, type, status,
	new_start_time, new_end_time, client_note, decision_note,
	decided_at, created_at, updated_at
`

func (r *changeRequestRepository) Create(ctx context.Context, cr *model.ChangeRequest) error {
	query := `
		INSERT INTO appointment_change_requests (
			id, appointment_id, business_id, type, status,
			new_start_time, new_end_time, client_note, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	cr.ID = uuid.New()
	cr.CreatedAt = time.Now()
	cr.UpdatedAt = cr.CreatedAt

	_, err := r.db.ExecContext(ctx, query,
		cr.ID,
		cr.AppointmentID,
		cr.BusinessID,
		cr.Type,
		cr.Status,
		cr.NewStartTime,
		cr.NewEndTime,
		cr.ClientNote,
		cr.CreatedAt,
		cr.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create change request: %w", err)
	}
	return nil
}

func (r *changeRequestRepository) Get(ctx context.Context, id uuid.UUID) (*model.ChangeRequest, error) {
	query := `SELECT ` + changeRequestColumns + ` FROM appointment_change_requests WHERE id = $1`

	var cr model.ChangeRequest
	err := r.db.GetContext(ctx, &cr, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFound("change request", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get change request: %w", err)
	}
	return &cr, nil
}

func (r *changeRequestRepository) ListPending(ctx context.Context, businessID uuid.UUID) ([]*model.ChangeRequest, error) {
	query := `
		SELECT ` + changeRequestColumns + `
		FROM appointment_change_requests
		WHERE business_id = $1 AND status = $2
		ORDER BY created_at ASC
	`
	var requests []*model.ChangeRequest
	err := r.db.SelectContext(ctx, &requests, query, businessID, model.ChangeRequestPending)
	if err != nil {
		return nil, fmt.Errorf("failed to list change requests: %w", err)
	}
	return requests, nil
}

func (r *changeRequestRepository) ListForAppointment(ctx context.Context, appointmentID uuid.UUID) ([]*model.ChangeRequest, error) {
	query := `
		SELECT ` + changeRequestColumns + `
		FROM appointment_change_requests
		WHERE appointment_id = $1
		ORDER BY created_at DESC
	`
	var requests []*model.ChangeRequest
	err := r.db.SelectContext(ctx, &requests, query, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list change requests: %w", err)
	}
	return requests, nil
}

// Decide transitions a PENDING request to a terminal status. The WHERE guard
// makes the decision first-writer-wins: a second decider sees a conflict
// instead of overwriting an already-recorded outcome.
func (r *changeRequestRepository) Decide(ctx context.Context, id uuid.UUID, status model.ChangeRequestStatus, note *string, decidedAt time.Time) error {
	query := `
		UPDATE appointment_change_requests
		SET status = $1, decision_note = $2, decided_at = $3, updated_at = NOW()
		WHERE id = $4 AND status = $5
	`
	result, err := r.db.ExecContext(ctx, query, status, note, decidedAt, id, model.ChangeRequestPending)
	if err != nil {
		return fmt.Errorf("failed to decide change request: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		if _, getErr := r.Get(ctx, id); getErr != nil {
			return getErr
		}
		return apperrors.NewConflict("change request already decided", nil)
	}
	return nil
}
