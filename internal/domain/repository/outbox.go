package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/polkiloo/artshop/internal/domain/model"
)

// OutboxRepository manages delivery of recorded side effects.
type OutboxRepository interface {
	// ClaimBatch marks up to limit pending messages as processing. Messages
	// stuck in processing longer than staleAfter are claimed again.
	ClaimBatch(ctx context.Context, limit int, staleAfter time.Duration) ([]model.OutboxMessage, error)
	MarkSent(ctx context.Context, id uuid.UUID) error
	// MarkRetry records a failed attempt. When failed is true the message is
	// parked and never claimed again.
	MarkRetry(ctx context.Context, id uuid.UUID, attempts int, lastErr string, failed bool) error
}
