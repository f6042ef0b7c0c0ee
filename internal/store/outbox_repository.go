package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/wishchain/wishchain-backend/internal/domain"
)

// OutboxStatus is the delivery state of an event_outbox row.
type OutboxStatus string

const (
	OutboxPending    OutboxStatus = "pending"
	OutboxProcessing OutboxStatus = "processing"
	OutboxPublished  OutboxStatus = "published"
)

const (
	defaultOutboxClaimLimit = 50
	defaultOutboxLease      = 2 * time.Minute
	maxOutboxErrorLength    = 2000
)

// OutboxMessage is a claimed event ready to publish. Field order matches the
// RETURNING list of the claim query.
type OutboxMessage struct {
	ID         int64
	Exchange   string
	RoutingKey string
	Payload    []byte
	Attempts   int
}

// appendOutboxEvent stores event in the caller's transaction so it is only
// published if the state change it describes commits.
func appendOutboxEvent(ctx context.Context, tx pgx.Tx, exchange string, event domain.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", event.RoutingKey(), err)
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO event_outbox (exchange, routing_key, payload, status)
		VALUES ($1, $2, $3, $4)
	`, exchange, event.RoutingKey(), payload, OutboxPending); err != nil {
		return fmt.Errorf("failed to append %s event: %w", event.RoutingKey(), err)
	}
	return nil
}

// ClaimOutboxMessages leases up to limit due events to the caller. Events
// leased longer ago than lease are considered abandoned and claimed again.
// Concurrent dispatchers never receive the same row.
func (r *PostgresRepository) ClaimOutboxMessages(ctx context.Context, limit int, lease time.Duration) ([]OutboxMessage, error) {
	if limit <= 0 {
		limit = defaultOutboxClaimLimit
	}
	if lease <= 0 {
		lease = defaultOutboxLease
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin outbox claim: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
		SELECT id FROM event_outbox
		WHERE (status = $1 AND next_attempt_at <= NOW())
		   OR (status = $2 AND processing_started_at < NOW() - $3::interval)
		ORDER BY id
		LIMIT $4
		FOR UPDATE SKIP LOCKED
	`, OutboxPending, OutboxProcessing, lease, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select due events: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("failed to read due events: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err = tx.Query(ctx, `
		UPDATE event_outbox
		SET status = $2, processing_started_at = NOW(), attempts = attempts + 1
		WHERE id = ANY($1)
		RETURNING id, exchange, routing_key, payload, attempts
	`, ids, OutboxProcessing)
	if err != nil {
		return nil, fmt.Errorf("failed to lease events: %w", err)
	}
	messages, err := pgx.CollectRows(rows, pgx.RowToStructByPos[OutboxMessage])
	if err != nil {
		return nil, fmt.Errorf("failed to read leased events: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit outbox claim: %w", err)
	}
	sort.Slice(messages, func(i, j int) bool { return messages[i].ID < messages[j].ID })
	return messages, nil
}

// MarkOutboxPublished closes out a leased event.
func (r *PostgresRepository) MarkOutboxPublished(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, `
		UPDATE event_outbox
		SET status = $2, published_at = NOW(), processing_started_at = NULL, last_error = NULL
		WHERE id = $1 AND status = $3
	`, id, OutboxPublished, OutboxProcessing)
	return err
}

// MarkOutboxFailed releases a leased event for another attempt after retryAfter.
func (r *PostgresRepository) MarkOutboxFailed(ctx context.Context, id int64, retryAfter time.Duration, reason string) error {
	if retryAfter < time.Second {
		retryAfter = time.Second
	}
	_, err := r.db.Exec(ctx, `
		UPDATE event_outbox
		SET status = $2, next_attempt_at = NOW() + $3::interval, processing_started_at = NULL, last_error = $4
		WHERE id = $1 AND status = $5
	`, id, OutboxPending, retryAfter, outboxErrorText(reason), OutboxProcessing)
	return err
}

// outboxErrorText bounds reason without splitting a character.
func outboxErrorText(reason string) string {
	if len(reason) <= maxOutboxErrorLength {
		return reason
	}
	return strings.ToValidUTF8(reason[:maxOutboxErrorLength], "")
}
