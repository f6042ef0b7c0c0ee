package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/wishchain/wishchain-backend/internal/store"
	"github.com/wishchain/wishchain-backend/pkg/rabbitmq"
)

const (
	defaultOutboxBatchSize    = 50
	defaultOutboxPollInterval = 1200 * time.Millisecond
	defaultOutboxLease        = 2 * time.Minute
	maxRetryDelay             = 5 * time.Minute
)

// OutboxDispatcher drains event_outbox rows to the broker.
type OutboxDispatcher struct {
	repo                store.OutboxRepository
	publisher           rabbitmq.Publisher
	logger              *slog.Logger
	batchSize    int
	pollInterval time.Duration
	lease        time.Duration
}

func NewOutboxDispatcher(repo store.OutboxRepository, publisher rabbitmq.Publisher, logger *slog.Logger, pollInterval time.Duration) *OutboxDispatcher {
	if pollInterval <= 0 {
		pollInterval = defaultOutboxPollInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OutboxDispatcher{
		repo:         repo,
		publisher:    publisher,
		logger:       logger,
		batchSize:    defaultOutboxBatchSize,
		pollInterval: pollInterval,
		lease:        defaultOutboxLease,
	}
}

// Run polls until ctx is cancelled.
func (d *OutboxDispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := d.FlushOnce(ctx); err != nil {
				d.logger.Error("outbox flush failed", "component", "outbox", "error", err)
			}
		}
	}
}

// FlushOnce publishes one batch and reports how many messages were published.
func (d *OutboxDispatcher) FlushOnce(ctx context.Context) (int, error) {
	messages, err := d.repo.ClaimOutboxMessages(ctx, d.batchSize, d.lease)
	if err != nil {
		return 0, err
	}

	published := 0
	for _, message := range messages {
		if err := d.publisher.Publish(ctx, message.Exchange, message.RoutingKey, message.Payload); err != nil {
			retryAfter := retryDelay(message.Attempts)
			d.logger.Warn("outbox publish failed",
				"component", "outbox",
				"message_id", message.ID,
				"routing_key", message.RoutingKey,
				"attempts", message.Attempts,
				"retry_after", retryAfter.String(),
				"error", err,
			)
			if markErr := d.repo.MarkOutboxFailed(ctx, message.ID, retryAfter, err.Error()); markErr != nil {
				d.logger.Error("failed to reschedule outbox message", "component", "outbox", "message_id", message.ID, "error", markErr)
			}
			continue
		}
		if err := d.repo.MarkOutboxPublished(ctx, message.ID); err != nil {
			d.logger.Error("failed to mark outbox message published", "component", "outbox", "message_id", message.ID, "error", err)
			continue
		}
		published++
	}
	return published, nil
}

// retryDelay doubles per attempt and is capped at five minutes.
func retryDelay(attempt int) time.Duration {
	if attempt < 1 {
		return time.Second
	}
	delay := time.Duration(1<<min(attempt, 9)) * time.Second
	return min(delay, maxRetryDelay)
}
