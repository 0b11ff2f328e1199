package event

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/slotbook/booking-api/internal/model"
	"github.com/slotbook/booking-api/internal/repository"
	"github.com/slotbook/booking-api/pkg/event"
)

// Service records notification-worthy events in the outbox table. The
// worker ships them to the broker later; from the caller's perspective this
// is fire-and-forget, and a failure here never fails the business write.
type Service struct {
	outbox repository.OutboxRepository
}

func NewService(outbox repository.OutboxRepository) *Service {
	return &Service{outbox: outbox}
}

func (s *Service) Emit(ctx context.Context, eventType event.Type, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	return s.outbox.Create(ctx, &model.OutboxEvent{
		EventType: string(eventType),
		Payload:   data,
	})
}
