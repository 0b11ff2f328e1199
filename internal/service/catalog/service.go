package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/slotbook/booking-api/internal/model"
	"github.com/slotbook/booking-api/internal/repository"
)

// Service manages the bookable-service catalog of a business.
type Service struct {
	repo repository.ServiceRepository
}

func NewService(repo repository.ServiceRepository) *Service {
	return &Service{repo: repo}
}

func (s *Service) CreateService(ctx context.Context, businessID uuid.UUID, req *model.CreateServiceRequest) (*model.OfferedService, error) {
	svc := &model.OfferedService{
		BusinessID: businessID,
		Name:       req.Name,
		Duration:   req.Duration,
		Price:      req.Price,
		Active:     true,
	}
	if err := s.repo.Create(ctx, svc); err != nil {
		return nil, fmt.Errorf("failed to create service: %w", err)
	}
	return svc, nil
}

func (s *Service) ListServices(ctx context.Context, businessID uuid.UUID) ([]*model.OfferedService, error) {
	return s.repo.List(ctx, businessID)
}
