package business

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/slotbook/booking-api/internal/model"
	"github.com/slotbook/booking-api/internal/repository"
)

// Policy reads sit on every availability query and booking, so they go
// through an explicit, bounded TTL cache rather than hitting the store each
// time. The cache is owned here, not global, and is invalidated on every
// policy write; a stale entry can therefore live at most one TTL on another
// server instance, which the booking constraint tolerates.
const (
	policyCacheTTL     = 30 * time.Second
	policyCacheCleanup = 5 * time.Minute
)

type Service struct {
	repo  repository.BusinessRepository
	cache *gocache.Cache
}

func NewService(repo repository.BusinessRepository) *Service {
	return &Service{
		repo:  repo,
		cache: gocache.New(policyCacheTTL, policyCacheCleanup),
	}
}

func (s *Service) CreateBusiness(ctx context.Context, req *model.CreateBusinessRequest) (*model.Business, error) {
	business := &model.Business{
		Name:      req.Name,
		Phone:     req.Phone,
		Status:    model.BusinessStatusActive,
		PolicyRaw: req.Policy,
	}
	if err := s.repo.Create(ctx, business); err != nil {
		return nil, fmt.Errorf("failed to create business: %w", err)
	}
	return business, nil
}

func (s *Service) GetBusiness(ctx context.Context, id uuid.UUID) (*model.Business, error) {
	return s.repo.Get(ctx, id)
}

// Policy returns the fully-defaulted booking policy for a business. The
// defensive parse lives in the model; this layer only adds caching.
func (s *Service) Policy(ctx context.Context, businessID uuid.UUID) (model.BookingPolicy, error) {
	if cached, ok := s.cache.Get(businessID.String()); ok {
		return cached.(model.BookingPolicy), nil
	}

	business, err := s.repo.Get(ctx, businessID)
	if err != nil {
		return model.BookingPolicy{}, err
	}

	policy := business.Policy()
	s.cache.SetDefault(businessID.String(), policy)
	return policy, nil
}

// UpdatePolicy merges the partial update over the current policy and stores
// the result, then drops the cache entry so the next read sees it.
func (s *Service) UpdatePolicy(ctx context.Context, businessID uuid.UUID, req *model.UpdateBusinessPolicyRequest) (model.BookingPolicy, error) {
	business, err := s.repo.Get(ctx, businessID)
	if err != nil {
		return model.BookingPolicy{}, err
	}

	policy := business.Policy()
	if req.SlotStepMinutes != nil {
		policy.SlotStepMinutes = *req.SlotStepMinutes
	}
	if req.BufferMinutes != nil {
		policy.BufferMinutes = *req.BufferMinutes
	}
	if req.MinAdvanceMinutes != nil {
		policy.MinAdvanceMinutes = *req.MinAdvanceMinutes
	}
	if req.MaxDaysAhead != nil {
		policy.MaxDaysAhead = *req.MaxDaysAhead
	}
	if req.Timezone != nil {
		policy.Timezone = *req.Timezone
	}
	if req.AutoConfirm != nil {
		policy.AutoConfirm = *req.AutoConfirm
	}
	if req.RequireApproval != nil {
		policy.RequireApproval = req.RequireApproval
	}
	if req.ChangeMinHoursBefore != nil {
		policy.ChangeMinHoursBefore = *req.ChangeMinHoursBefore
	}

	raw, err := json.Marshal(policy)
	if err != nil {
		return model.BookingPolicy{}, fmt.Errorf("failed to marshal policy: %w", err)
	}
	// Round-trip through the defensive parse so out-of-range values from the
	// partial update collapse to defaults before they are persisted.
	policy = model.ParseBookingPolicy(raw)
	raw, _ = json.Marshal(policy)

	if err := s.repo.UpdatePolicy(ctx, businessID, raw); err != nil {
		return model.BookingPolicy{}, err
	}

	s.cache.Delete(businessID.String())
	return policy, nil
}
