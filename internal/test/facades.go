package test

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/polkiloo/artshop/internal/domain/model"
)

// OutboxFacadeStub mimics dispatcher interactions with the shop facade.
type OutboxFacadeStub struct {
	Batches   [][]model.OutboxMessage
	ClaimFn   func(context.Context, int, time.Duration) ([]model.OutboxMessage, error)
	DeliverFn func(context.Context, model.OutboxMessage) error
	SentErr   error

	mu        sync.Mutex
	claims    int
	delivered []model.OutboxMessage
	sent      []uuid.UUID
	retries   []OutboxCall
}

// ClaimOutbox returns configured batches one by one, then nothing.
func (s *OutboxFacadeStub) ClaimOutbox(ctx context.Context, limit int, staleAfter time.Duration) ([]model.OutboxMessage, error) {
	if s.ClaimFn != nil {
		return s.ClaimFn(ctx, limit, staleAfter)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.claims >= len(s.Batches) {
		return nil, nil
	}
	batch := s.Batches[s.claims]
	s.claims++
	return batch, nil
}

// DeliverOutbox records message and applies override.
func (s *OutboxFacadeStub) DeliverOutbox(ctx context.Context, msg model.OutboxMessage) error {
	s.mu.Lock()
	s.delivered = append(s.delivered, msg)
	s.mu.Unlock()
	if s.DeliverFn != nil {
		return s.DeliverFn(ctx, msg)
	}
	return nil
}

// MarkOutboxSent records delivered message. A done context fails the
// call the way the database driver does.
func (s *OutboxFacadeStub) MarkOutboxSent(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, id)
	return s.SentErr
}

// MarkOutboxRetry records failed attempt.
func (s *OutboxFacadeStub) MarkOutboxRetry(ctx context.Context, id uuid.UUID, attempts int, lastErr string, failed bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retries = append(s.retries, OutboxCall{ID: id, Attempts: attempts, LastErr: lastErr, Failed: failed})
	return nil
}

// Results returns copies of recorded deliveries, sent ids and retries.
func (s *OutboxFacadeStub) Results() ([]model.OutboxMessage, []uuid.UUID, []OutboxCall) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.OutboxMessage(nil), s.delivered...),
		append([]uuid.UUID(nil), s.sent...),
		append([]OutboxCall(nil), s.retries...)
}
