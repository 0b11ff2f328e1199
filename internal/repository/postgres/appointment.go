package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/slotbook/booking-api/internal/model"
	"github.com/slotbook/booking-api/internal/repository"
	apperrors "github.com/slotbook/booking-api/pkg/errors"
)

type appointmentRepository struct {
	BaseRepository
}

func NewAppointmentRepository(base BaseRepository) repository.AppointmentRepository {
	return &appointmentRepository{base}
}

// Overlap predicate between the stored rows and a proposed span. Each side's
// buffer is folded in, so two spans conflict exactly when the idle gap
// between them is shorter than the required buffer.
const overlapPredicate = `
	master_id = $1
	AND status <> 'cancelled'
	AND $2 < end_time + make_interval(mins => buffer_minutes)
	AND start_time < $3 + make_interval(mins => $4)
`

// CreateBooked commits the proposed span or reports a conflict. The
// transaction re-checks the overlap predicate for a clean fast-path error,
// but the appointments_no_overlap exclusion constraint is what actually
// serializes racing writers: under concurrent inserts for the same master
// at most one commit survives, the rest surface 23P01.
func (r *appointmentRepository) CreateBooked(ctx context.Context, apt *model.Appointment) error {
	apt.ID = uuid.New()
	apt.CreatedAt = time.Now()
	apt.UpdatedAt = apt.CreatedAt

	attempt := func() error {
		return r.WithTx(ctx, func(tx *sqlx.Tx) error {
			var taken bool
			check := `SELECT EXISTS (SELECT 1 FROM appointments WHERE ` + overlapPredicate + `)`
			if err := tx.GetContext(ctx, &taken, check, apt.MasterID, apt.StartTime, apt.EndTime, apt.BufferMinutes); err != nil {
				return fmt.Errorf("failed to check conflicts: %w", err)
			}
			if taken {
				return apperrors.NewConflict("time slot is no longer available", nil)
			}

			insert := `
				INSERT INTO appointments (
					id, business_id, master_id, client_name, client_phone,
					start_time, end_time, buffer_minutes, status, origin,
					notes, series_id, created_at, updated_at
				) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
			`
			_, err := tx.ExecContext(ctx, insert,
				apt.ID,
				apt.BusinessID,
				apt.MasterID,
				apt.ClientName,
				apt.ClientPhone,
				apt.StartTime,
				apt.EndTime,
				apt.BufferMinutes,
				apt.Status,
				apt.Origin,
				apt.Notes,
				apt.SeriesID,
				apt.CreatedAt,
				apt.UpdatedAt,
			)
			return err
		})
	}

	err := attempt()
	if isRetryableSerialization(err) {
		err = attempt()
	}
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return appErr
		}
		return translateWriteError(ctx, err)
	}
	return nil
}

// Reschedule moves the span in place. The exclusion constraint validates the
// updated row atomically, so a concurrent booking of the target slot fails
// this update instead of double-booking; the row keeps its old span then.
func (r *appointmentRepository) Reschedule(ctx context.Context, id uuid.UUID, start, end time.Time) error {
	query := `
		UPDATE appointments
		SET start_time = $1, end_time = $2, updated_at = NOW()
		WHERE id = $3 AND status NOT IN ('cancelled', 'done')
	`
	result, err := r.db.ExecContext(ctx, query, start, end, id)
	if err != nil {
		return translateWriteError(ctx, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NewNotFound("appointment", nil)
	}
	return nil
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := `
		SELECT id, business_id, master_id, client_name, client_phone,
			   start_time, end_time, buffer_minutes, status, origin,
			   notes, cancel_reason, series_id, created_at, updated_at
		FROM appointments
		WHERE id = $1
	`
	var apt model.Appointment
	err := r.db.GetContext(ctx, &apt, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFound("appointment", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return &apt, nil
}

func (r *appointmentRepository) List(ctx context.Context, businessID uuid.UUID, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	query := `
		SELECT id, business_id, master_id, client_name, client_phone,
			   start_time, end_time, buffer_minutes, status, origin,
			   notes, cancel_reason, series_id, created_at, updated_at
		FROM appointments
		WHERE business_id = $1
	`
	args := []interface{}{businessID}
	argCount := 2

	if filters != nil {
		if filters.MasterID != uuid.Nil {
			query += fmt.Sprintf(" AND master_id = $%d", argCount)
			args = append(args, filters.MasterID)
			argCount++
		}
		if filters.Status != "" {
			query += fmt.Sprintf(" AND status = $%d", argCount)
			args = append(args, filters.Status)
			argCount++
		}
		if !filters.From.IsZero() {
			query += fmt.Sprintf(" AND end_time > $%d", argCount)
			args = append(args, filters.From)
			argCount++
		}
		if !filters.To.IsZero() {
			query += fmt.Sprintf(" AND start_time < $%d", argCount)
			args = append(args, filters.To)
			argCount++
		}
	}

	query += " ORDER BY start_time ASC"

	var appointments []*model.Appointment
	err := r.db.SelectContext(ctx, &appointments, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}

// BusySpans returns non-cancelled appointments whose buffered window touches
// [from, to), so availability computation sees everything that can block a
// slot near the window edges.
func (r *appointmentRepository) BusySpans(ctx context.Context, masterID uuid.UUID, from, to time.Time) ([]*model.Appointment, error) {
	query := `
		SELECT id, business_id, master_id, client_name, client_phone,
			   start_time, end_time, buffer_minutes, status, origin,
			   notes, cancel_reason, series_id, created_at, updated_at
		FROM appointments
		WHERE master_id = $1
		AND status <> 'cancelled'
		AND end_time + make_interval(mins => buffer_minutes) > $2
		AND start_time - make_interval(mins => buffer_minutes) < $3
		ORDER BY start_time ASC
	`
	var appointments []*model.Appointment
	err := r.db.SelectContext(ctx, &appointments, query, masterID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to get busy spans: %w", err)
	}
	return appointments, nil
}

// UpdateStatus flips the status only from the expected value. Zero rows
// means another caller transitioned first (or the id is unknown); the
// distinction is resolved with one extra read.
func (r *appointmentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, expected, next model.AppointmentStatus, cancelReason *string) error {
	query := `
		UPDATE appointments
		SET status = $1, cancel_reason = COALESCE($2, cancel_reason), updated_at = NOW()
		WHERE id = $3 AND status = $4
	`
	result, err := r.db.ExecContext(ctx, query, next, cancelReason, id, expected)
	if err != nil {
		return fmt.Errorf("failed to update appointment status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		if _, getErr := r.Get(ctx, id); getErr != nil {
			return getErr
		}
		return apperrors.NewConflict("appointment status changed concurrently", nil)
	}
	return nil
}
