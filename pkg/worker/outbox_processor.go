package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/slotbook/booking-api/internal/model"
	"github.com/slotbook/booking-api/internal/repository"
	"github.com/slotbook/booking-api/pkg/logger"
	"github.com/slotbook/booking-api/pkg/messaging"
	"github.com/slotbook/booking-api/pkg/metrics"
)

type OutboxProcessorConfig struct {
	BatchSize    int
	PollInterval time.Duration
	RetryDelay   time.Duration
	MaxRetries   int
}

// OutboxProcessor drains pending outbox events to the broker. Events that
// keep failing past MaxRetries are parked as dead and never retried;
// everything else is retried with a linear backoff.
type OutboxProcessor struct {
	repo    repository.OutboxRepository
	broker  messaging.Broker
	config  OutboxProcessorConfig
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewOutboxProcessor(
	repo repository.OutboxRepository,
	broker messaging.Broker,
	config OutboxProcessorConfig,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *OutboxProcessor {
	if config.BatchSize <= 0 {
		config.BatchSize = 100
	}
	if config.PollInterval <= 0 {
		config.PollInterval = 5 * time.Second
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = time.Minute
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = 5
	}

	return &OutboxProcessor{
		repo:    repo,
		broker:  broker,
		config:  config,
		logger:  logger,
		metrics: metrics,
	}
}

func (p *OutboxProcessor) Start(ctx context.Context) {
	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	p.logger.Info("starting outbox processor")

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("shutting down outbox processor")
			return
		case <-ticker.C:
			if err := p.processEvents(ctx); err != nil {
				p.logger.Error(err, "failed to process outbox batch")
			}
		}
	}
}

func (p *OutboxProcessor) processEvents(ctx context.Context) error {
	timer := prometheus.NewTimer(p.metrics.OutboxProcessingLatency)
	defer timer.ObserveDuration()

	events, err := p.repo.GetPending(ctx, p.config.BatchSize)
	if err != nil {
		p.metrics.DatabaseOperations.WithLabelValues("outbox_get_pending", "error").Inc()
		return fmt.Errorf("failed to get pending events: %w", err)
	}
	p.metrics.DatabaseOperations.WithLabelValues("outbox_get_pending", "success").Inc()

	for _, event := range events {
		if err := p.processEvent(ctx, event); err != nil {
			p.logger.Error(err, "failed to process outbox event",
				"event_id", event.ID.String(),
				"event_type", event.EventType)
		}
	}

	return nil
}

func (p *OutboxProcessor) processEvent(ctx context.Context, event *model.OutboxEvent) error {
	if err := p.broker.Publish(ctx, event.EventType, event.Payload); err != nil {
		p.metrics.OutboxEventsFailed.Inc()
		return p.scheduleRetry(ctx, event, err)
	}

	p.metrics.OutboxEventsProcessed.Inc()
	if err := p.repo.MarkProcessed(ctx, event.ID); err != nil {
		return fmt.Errorf("failed to mark event processed: %w", err)
	}
	return nil
}

func (p *OutboxProcessor) scheduleRetry(ctx context.Context, event *model.OutboxEvent, cause error) error {
	if event.RetryCount+1 >= p.config.MaxRetries {
		// A failed row with no retry_at would be picked up again on the
		// next poll; dead rows leave the pending set for good.
		if err := p.repo.MarkDead(ctx, event.ID, cause.Error()); err != nil {
			p.logger.Error(err, "failed to park outbox event", "event_id", event.ID.String())
		}
		return fmt.Errorf("failed to publish event, giving up after %d attempts: %w", p.config.MaxRetries, cause)
	}

	// Linear backoff keeps a noisy broker from being hammered while
	// still clearing the queue quickly once it recovers.
	at := time.Now().Add(p.config.RetryDelay * time.Duration(event.RetryCount+1))
	if err := p.repo.MarkFailed(ctx, event.ID, cause.Error(), &at); err != nil {
		p.logger.Error(err, "failed to record outbox failure", "event_id", event.ID.String())
	}
	return fmt.Errorf("failed to publish event: %w", cause)
}

// CleanupProcessed deletes processed events older than the retention window.
func (p *OutboxProcessor) CleanupProcessed(ctx context.Context, retention time.Duration) error {
	deleted, err := p.repo.DeleteProcessedBefore(ctx, time.Now().Add(-retention))
	if err != nil {
		return fmt.Errorf("failed to clean up processed events: %w", err)
	}
	if deleted > 0 {
		p.logger.Info("cleaned up processed outbox events", "deleted", deleted)
	}
	return nil
}
