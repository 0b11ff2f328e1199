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

type masterRepository struct {
	BaseRepository
}

func NewMasterRepository(base BaseRepository) repository.MasterRepository {
	return &masterRepository{base}
}

const masterColumns = `
	id, business_id, name, description, status,
	schedule, overrides, blocked_periods, created_at, updated_at
`

func (r *masterRepository) Create(ctx context.Context, master *model.Master) error {
	query := `
		INSERT INTO masters (
			id, business_id, name, description, status,
			schedule, overrides, blocked_periods, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	master.ID = uuid.New()
	master.CreatedAt = time.Now()
	master.UpdatedAt = master.CreatedAt
	if master.Status == "" {
		master.Status = model.MasterStatusActive
	}

	_, err := r.db.ExecContext(ctx, query,
		master.ID,
		master.BusinessID,
		master.Name,
		master.Description,
		master.Status,
		[]byte(master.ScheduleRaw),
		[]byte(master.OverrideRaw),
		[]byte(master.BlockedRaw),
		master.CreatedAt,
		master.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create master: %w", err)
	}
	return nil
}

func (r *masterRepository) Get(ctx context.Context, id uuid.UUID) (*model.Master, error) {
	query := `SELECT ` + masterColumns + ` FROM masters WHERE id = $1`

	var master model.Master
	err := r.db.GetContext(ctx, &master, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFound("master", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get master: %w", err)
	}
	return &master, nil
}

func (r *masterRepository) GetForBusiness(ctx context.Context, businessID, id uuid.UUID) (*model.Master, error) {
	query := `SELECT ` + masterColumns + ` FROM masters WHERE id = $1 AND business_id = $2`

	var master model.Master
	err := r.db.GetContext(ctx, &master, query, id, businessID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFound("master", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get master: %w", err)
	}
	return &master, nil
}

func (r *masterRepository) List(ctx context.Context, businessID uuid.UUID) ([]*model.Master, error) {
	query := `SELECT ` + masterColumns + ` FROM masters WHERE business_id = $1 ORDER BY name ASC`

	var masters []*model.Master
	err := r.db.SelectContext(ctx, &masters, query, businessID)
	if err != nil {
		return nil, fmt.Errorf("failed to list masters: %w", err)
	}
	return masters, nil
}

func (r *masterRepository) Update(ctx context.Context, master *model.Master) error {
	query := `
		UPDATE masters
		SET name = $1, description = $2, status = $3, updated_at = NOW()
		WHERE id = $4 AND business_id = $5
	`
	result, err := r.db.ExecContext(ctx, query,
		master.Name,
		master.Description,
		master.Status,
		master.ID,
		master.BusinessID,
	)
	if err != nil {
		return fmt.Errorf("failed to update master: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NewNotFound("master", nil)
	}
	return nil
}

func (r *masterRepository) UpdateSchedule(ctx context.Context, id uuid.UUID, schedule, overrides, blocked []byte) error {
	query := `
		UPDATE masters
		SET schedule = COALESCE($1, schedule),
			overrides = COALESCE($2, overrides),
			blocked_periods = COALESCE($3, blocked_periods),
			updated_at = NOW()
		WHERE id = $4
	`
	result, err := r.db.ExecContext(ctx, query, schedule, overrides, blocked, id)
	if err != nil {
		return fmt.Errorf("failed to update master schedule: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NewNotFound("master", nil)
	}
	return nil
}
