package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	domainErrors "github.com/polkiloo/artshop/internal/domain/errors"
	"github.com/polkiloo/artshop/internal/domain/model"
)

type outboxRepository struct {
	storage *Storage
}

func insertOutboxTx(ctx context.Context, tx pgx.Tx, msg model.OutboxMessage) error {
	const query = `INSERT INTO outbox_messages (id, type, aggregate_id, payload, status, attempts)
                   VALUES ($1, $2, $3, $4, 'pending', 0)`
	id := msg.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	_, err := tx.Exec(ctx, query, id, msg.Type, msg.AggregateID, msg.Payload)
	return err
}

func (r *outboxRepository) ClaimBatch(ctx context.Context, limit int, staleAfter time.Duration) ([]model.OutboxMessage, error) {
	const query = `UPDATE outbox_messages SET status='processing', claimed_at=NOW()
                   WHERE id IN (
                       SELECT id FROM outbox_messages
                       WHERE status='pending' OR (status='processing' AND claimed_at < $2)
                       ORDER BY created_at
                       LIMIT $1
                       FOR UPDATE SKIP LOCKED
                   )
                   RETURNING id, type, aggregate_id, payload, status, attempts, COALESCE(last_error, ''), created_at`

	cutoff := time.Now().Add(-staleAfter)
	rows, err := r.storage.pool.Query(ctx, query, limit, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.OutboxMessage
	for rows.Next() {
		var msg model.OutboxMessage
		if err := rows.Scan(&msg.ID, &msg.Type, &msg.AggregateID, &msg.Payload, &msg.Status, &msg.Attempts, &msg.LastError, &msg.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *outboxRepository) MarkSent(ctx context.Context, id uuid.UUID) error {
	const query = `UPDATE outbox_messages SET status='sent', sent_at=NOW(), claimed_at=NULL WHERE id=$1`
	tag, err := r.storage.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrNotFound
	}
	return nil
}

func (r *outboxRepository) MarkRetry(ctx context.Context, id uuid.UUID, attempts int, lastErr string, failed bool) error {
	status := model.OutboxStatusPending
	if failed {
		status = model.OutboxStatusFailed
	}
	const query = `UPDATE outbox_messages SET status=$1, attempts=$2, last_error=$3, claimed_at=NULL WHERE id=$4`
	tag, err := r.storage.pool.Exec(ctx, query, status, attempts, lastErr, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrNotFound
	}
	return nil
}
