package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/polkiloo/artshop/internal/domain/model"
)

const (
	// staleClaimAfter is how long a claimed message may stay in processing
	// before another dispatcher takes it over.
	staleClaimAfter = 5 * time.Minute
	deliveryTimeout = 30 * time.Second
	markTimeout     = 5 * time.Second
	maxErrorLength  = 500
)

// OutboxFacade exposes the subset of application functionality required by the dispatcher.
type OutboxFacade interface {
	ClaimOutbox(ctx context.Context, limit int, staleAfter time.Duration) ([]model.OutboxMessage, error)
	DeliverOutbox(ctx context.Context, msg model.OutboxMessage) error
	MarkOutboxSent(ctx context.Context, id uuid.UUID) error
	MarkOutboxRetry(ctx context.Context, id uuid.UUID, attempts int, lastErr string, failed bool) error
}

// OutboxOptions tunes the dispatcher.
type OutboxOptions struct {
	PollInterval time.Duration
	BatchSize    int
	Workers      int
	MaxAttempts  int
}

// OutboxDispatcher polls the outbox and delivers messages concurrently.
// Delivery is at-least-once: a message is marked sent only after its
// handler succeeded.
type OutboxDispatcher struct {
	facade OutboxFacade
	opts   OutboxOptions
	logger *slog.Logger

	jobs   chan model.OutboxMessage
	wg     sync.WaitGroup
	cancel context.CancelFunc
	mu     sync.Mutex
}

// NewOutboxDispatcher constructs dispatcher worker pool.
func NewOutboxDispatcher(facade OutboxFacade, opts OutboxOptions, logger *slog.Logger) *OutboxDispatcher {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 1
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 1
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	return &OutboxDispatcher{
		facade: facade,
		opts:   opts,
		logger: logger,
		jobs:   make(chan model.OutboxMessage, opts.BatchSize*opts.Workers),
	}
}

// Start launches background delivery.
func (d *OutboxDispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	for i := 0; i < d.opts.Workers; i++ {
		d.wg.Add(1)
		go d.worker(runCtx)
	}

	d.wg.Add(1)
	go d.dispatch(runCtx)
}

// Stop waits for all workers to finish. Messages claimed but not delivered
// are picked up again once their claim goes stale.
func (d *OutboxDispatcher) Stop() {
	d.mu.Lock()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *OutboxDispatcher) dispatch(ctx context.Context) {
	defer d.wg.Done()
	defer close(d.jobs)
	ticker := time.NewTicker(d.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.claimAndDispatch(ctx)
		}
	}
}

func (d *OutboxDispatcher) claimAndDispatch(ctx context.Context) {
	messages, err := d.facade.ClaimOutbox(ctx, d.opts.BatchSize, staleClaimAfter)
	if err != nil {
		d.logger.Error("claim outbox messages failed", slog.String("error", err.Error()))
		return
	}
	for _, msg := range messages {
		select {
		case <-ctx.Done():
			return
		case d.jobs <- msg:
		}
	}
}

func (d *OutboxDispatcher) worker(ctx context.Context) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-d.jobs:
			if !ok {
				return
			}
			d.deliver(ctx, msg)
		}
	}
}

func (d *OutboxDispatcher) deliver(ctx context.Context, msg model.OutboxMessage) {
	deliverCtx, cancel := context.WithTimeout(ctx, deliveryTimeout)
	err := d.facade.DeliverOutbox(deliverCtx, msg)
	cancel()

	// Outcomes are recorded even after Stop cancelled ctx.
	markCtx, cancelMark := context.WithTimeout(context.WithoutCancel(ctx), markTimeout)
	defer cancelMark()

	if err == nil {
		if err := d.facade.MarkOutboxSent(markCtx, msg.ID); err != nil {
			d.logger.Error("mark outbox message sent failed", slog.String("id", msg.ID.String()), slog.String("error", err.Error()))
		}
		return
	}

	attempts := msg.Attempts + 1
	failed := attempts >= d.opts.MaxAttempts
	d.logger.Error("outbox delivery failed",
		slog.String("id", msg.ID.String()),
		slog.String("type", string(msg.Type)),
		slog.String("order", msg.AggregateID),
		slog.Int("attempt", attempts),
		slog.Bool("parked", failed),
		slog.String("error", err.Error()),
	)
	if err := d.facade.MarkOutboxRetry(markCtx, msg.ID, attempts, truncate(err.Error(), maxErrorLength), failed); err != nil {
		d.logger.Error("record outbox retry failed", slog.String("id", msg.ID.String()), slog.String("error", err.Error()))
	}
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
