package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/slotbook/booking-api/internal/model"
	"github.com/slotbook/booking-api/internal/repository"
)

type serviceRepository struct {
	BaseRepository
}

func NewServiceRepository(base BaseRepository) repository.ServiceRepository {
	return &serviceRepository{base}
}

func (r *serviceRepository) Create(ctx context.Context, svc *model.OfferedService) error {
	query := `
		INSERT INTO services (id, business_id, name, duration, price, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	svc.ID = uuid.New()
	svc.CreatedAt = time.Now()
	svc.UpdatedAt = svc.CreatedAt

	_, err := r.db.ExecContext(ctx, query,
		svc.ID,
		svc.BusinessID,
		svc.Name,
		svc.Duration,
		svc.Price,
		svc.Active,
		svc.CreatedAt,
		svc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	return nil
}

func (r *serviceRepository) GetMany(ctx context.Context, businessID uuid.UUID, ids []uuid.UUID) ([]*model.OfferedService, error) {
	query := `
		SELECT id, business_id, name, duration, price, active, created_at, updated_at
		FROM services
		WHERE business_id = $1 AND id = ANY($2) AND active
	`
	var services []*model.OfferedService
	err := r.db.SelectContext(ctx, &services, query, businessID, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to get services: %w", err)
	}
	return services, nil
}

func (r *serviceRepository) List(ctx context.Context, businessID uuid.UUID) ([]*model.OfferedService, error) {
	query := `
		SELECT id, business_id, name, duration, price, active, created_at, updated_at
		FROM services
		WHERE business_id = $1
		ORDER BY name ASC
	`
	var services []*model.OfferedService
	err := r.db.SelectContext(ctx, &services, query, businessID)
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	return services, nil
}
