package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slotbook/booking-api/internal/model"
	"github.com/slotbook/booking-api/pkg/logger"
	"github.com/slotbook/booking-api/pkg/metrics"
)

// promauto registers in the default registry, so the test metrics are built
// exactly once for the package.
var testMetrics = metrics.NewMetrics("test", "worker")

type fakeOutboxRepo struct {
	pending   []*model.OutboxEvent
	processed []uuid.UUID
	failedAt  []*time.Time
	dead      []uuid.UUID
}

func (r *fakeOutboxRepo) Create(ctx context.Context, event *model.OutboxEvent) error { return nil }

func (r *fakeOutboxRepo) GetPending(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	return r.pending, nil
}

func (r *fakeOutboxRepo) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	r.processed = append(r.processed, id)
	return nil
}

func (r *fakeOutboxRepo) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string, retryAt *time.Time) error {
	r.failedAt = append(r.failedAt, retryAt)
	return nil
}

func (r *fakeOutboxRepo) MarkDead(ctx context.Context, id uuid.UUID, errMsg string) error {
	r.dead = append(r.dead, id)
	return nil
}

func (r *fakeOutboxRepo) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

type fakeBroker struct {
	err       error
	published int
}

func (b *fakeBroker) Publish(ctx context.Context, channel string, message interface{}) error {
	b.published++
	return b.err
}

func (b *fakeBroker) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	return nil, nil
}

func (b *fakeBroker) Close() error { return nil }

func outboxEvent(retryCount int) *model.OutboxEvent {
	return &model.OutboxEvent{
		ID:         uuid.New(),
		EventType:  "appointment.booked",
		Payload:    json.RawMessage(`{"ok":true}`),
		Status:     model.OutboxStatusFailed,
		RetryCount: retryCount,
	}
}

func newTestProcessor(repo *fakeOutboxRepo, broker *fakeBroker) *OutboxProcessor {
	return NewOutboxProcessor(repo, broker, OutboxProcessorConfig{
		BatchSize:    10,
		PollInterval: time.Second,
		RetryDelay:   time.Minute,
		MaxRetries:   5,
	}, logger.NewLogger(nil), testMetrics)
}

func TestProcessEventSuccess(t *testing.T) {
	repo := &fakeOutboxRepo{}
	broker := &fakeBroker{}
	p := newTestProcessor(repo, broker)

	event := outboxEvent(0)
	require.NoError(t, p.processEvent(context.Background(), event))

	assert.Equal(t, []uuid.UUID{event.ID}, repo.processed)
	assert.Empty(t, repo.failedAt)
	assert.Empty(t, repo.dead)
}

func TestProcessEventFailureSchedulesRetry(t *testing.T) {
	repo := &fakeOutboxRepo{}
	broker := &fakeBroker{err: fmt.Errorf("broker down")}
	p := newTestProcessor(repo, broker)

	err := p.processEvent(context.Background(), outboxEvent(1))
	require.Error(t, err)

	require.Len(t, repo.failedAt, 1)
	require.NotNil(t, repo.failedAt[0], "a retryable failure must carry a retry time")
	// Second retry backs off 2x the base delay.
	assert.WithinDuration(t, time.Now().Add(2*time.Minute), *repo.failedAt[0], 5*time.Second)
	assert.Empty(t, repo.dead)
}

func TestProcessEventExhaustedRetriesParksEvent(t *testing.T) {
	repo := &fakeOutboxRepo{}
	broker := &fakeBroker{err: fmt.Errorf("broker down")}
	p := newTestProcessor(repo, broker)

	event := outboxEvent(4)
	err := p.processEvent(context.Background(), event)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "giving up")

	// Parked for good: never marked failed-with-NULL-retry, which the
	// pending query would hand straight back on the next poll.
	assert.Equal(t, []uuid.UUID{event.ID}, repo.dead)
	assert.Empty(t, repo.failedAt)
	assert.Empty(t, repo.processed)
}

func TestProcessEventsDrainsBatch(t *testing.T) {
	repo := &fakeOutboxRepo{pending: []*model.OutboxEvent{outboxEvent(0), outboxEvent(0)}}
	broker := &fakeBroker{}
	p := newTestProcessor(repo, broker)

	require.NoError(t, p.processEvents(context.Background()))
	assert.Equal(t, 2, broker.published)
	assert.Len(t, repo.processed, 2)
}
