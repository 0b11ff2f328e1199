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

type businessRepository struct {
	BaseRepository
}

func NewBusinessRepository(base BaseRepository) repository.BusinessRepository {
	return &businessRepository{base}
}

func (r *businessRepository) Create(ctx context.Context, business *model.Business) error {
	query := `
		INSERT INTO businesses (id, name, phone, status, booking_policy, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	business.ID = uuid.New()
	business.CreatedAt = time.Now()
	business.UpdatedAt = business.CreatedAt
	if business.Status == "" {
		business.Status = model.BusinessStatusActive
	}

	_, err := r.db.ExecContext(ctx, query,
		business.ID,
		business.Name,
		business.Phone,
		business.Status,
		[]byte(business.PolicyRaw),
		business.CreatedAt,
		business.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create business: %w", err)
	}
	return nil
}

func (r *businessRepository) Get(ctx context.Context, id uuid.UUID) (*model.Business, error) {
	query := `
		SELECT id, name, phone, status, booking_policy, created_at, updated_at
		FROM businesses
		WHERE id = $1
	`
	var business model.Business
	err := r.db.GetContext(ctx, &business, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFound("business", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get business: %w", err)
	}
	return &business, nil
}

func (r *businessRepository) UpdatePolicy(ctx context.Context, id uuid.UUID, policy []byte) error {
	query := `
		UPDATE businesses
		SET booking_policy = $1, updated_at = NOW()
		WHERE id = $2
	`
	result, err := r.db.ExecContext(ctx, query, policy, id)
	if err != nil {
		return fmt.Errorf("failed to update booking policy: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NewNotFound("business", nil)
	}
	return nil
}
