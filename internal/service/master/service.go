package master

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/slotbook/booking-api/internal/model"
	"github.com/slotbook/booking-api/internal/repository"
	"github.com/slotbook/booking-api/pkg/errors"
)

// Service manages masters and their working-hours blobs for a business.
type Service struct {
	repo repository.MasterRepository
}

func NewService(repo repository.MasterRepository) *Service {
	return &Service{repo: repo}
}

func (s *Service) CreateMaster(ctx context.Context, businessID uuid.UUID, req *model.CreateMasterRequest) (*model.Master, error) {
	master := &model.Master{
		BusinessID:  businessID,
		Name:        req.Name,
		Description: req.Description,
		Status:      model.MasterStatusActive,
	}
	if err := s.repo.Create(ctx, master); err != nil {
		return nil, fmt.Errorf("failed to create master: %w", err)
	}
	return master, nil
}

func (s *Service) GetMaster(ctx context.Context, businessID, id uuid.UUID) (*model.Master, error) {
	return s.repo.GetForBusiness(ctx, businessID, id)
}

func (s *Service) ListMasters(ctx context.Context, businessID uuid.UUID) ([]*model.Master, error) {
	return s.repo.List(ctx, businessID)
}

func (s *Service) UpdateMaster(ctx context.Context, businessID, id uuid.UUID, req *model.UpdateMasterRequest) (*model.Master, error) {
	master, err := s.repo.GetForBusiness(ctx, businessID, id)
	if err != nil {
		return nil, err
	}

	master.Name = req.Name
	master.Description = req.Description
	master.Status = req.Status
	if err := s.repo.Update(ctx, master); err != nil {
		return nil, err
	}
	return master, nil
}

// UpdateSchedule replaces whichever of the three blobs the request carries.
// Clock strings are validated up front so a typo cannot silently close a
// weekday until the next read.
func (s *Service) UpdateSchedule(ctx context.Context, businessID, id uuid.UUID, req *model.UpdateMasterScheduleRequest) (*model.Master, error) {
	if _, err := s.repo.GetForBusiness(ctx, businessID, id); err != nil {
		return nil, err
	}

	var schedule, overrides, blocked []byte

	if req.Schedule != nil {
		for key, hours := range req.Schedule {
			if !validWeekdayKey(key) {
				return nil, errors.NewValidation(fmt.Sprintf("unknown weekday %q", key), nil)
			}
			if hours.Enabled && !validClockPair(hours.Start, hours.End) {
				return nil, errors.NewValidation(fmt.Sprintf("invalid hours for %s: %q-%q", key, hours.Start, hours.End), nil)
			}
		}
		raw, err := json.Marshal(req.Schedule)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal schedule: %w", err)
		}
		schedule = raw
	}

	if req.Overrides != nil {
		for date, ov := range req.Overrides {
			if !validDate(date) {
				return nil, errors.NewValidation(fmt.Sprintf("invalid override date %q", date), nil)
			}
			if !ov.Closed && !validClockPair(ov.Start, ov.End) {
				return nil, errors.NewValidation(fmt.Sprintf("invalid override hours for %s", date), nil)
			}
		}
		raw, err := json.Marshal(req.Overrides)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal overrides: %w", err)
		}
		overrides = raw
	}

	if req.Blocked != nil {
		for _, bp := range req.Blocked {
			if !bp.End.After(bp.Start) {
				return nil, errors.NewValidation("blocked period end must be after start", nil)
			}
		}
		raw, err := json.Marshal(req.Blocked)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal blocked periods: %w", err)
		}
		blocked = raw
	}

	if err := s.repo.UpdateSchedule(ctx, id, schedule, overrides, blocked); err != nil {
		return nil, err
	}
	return s.repo.GetForBusiness(ctx, businessID, id)
}
