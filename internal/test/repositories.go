package test

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	domainErrors "github.com/polkiloo/artshop/internal/domain/errors"
	"github.com/polkiloo/artshop/internal/domain/model"
)

// OrderStoreStub is an in-memory order repository with the same
// compare-and-set semantics as the database implementation.
type OrderStoreStub struct {
	CreatePendingFn     func(context.Context, *model.Order) (*model.Order, error)
	SaveGatewayParamsFn func(context.Context, string, string, string, map[string]string) error
	ApplyResultFn       func(context.Context, string, model.OrderStatus, []model.OutboxMessage) (*model.Order, bool, error)
	Err                 error

	mu          sync.Mutex
	orders      map[string]*model.Order
	outbox      []model.OutboxMessage
	next        int64
	applyCalls  int
	createCalls int
}

// NewOrderStoreStub constructs stub store holding given orders.
func NewOrderStoreStub(orders ...model.Order) *OrderStoreStub {
	s := &OrderStoreStub{orders: make(map[string]*model.Order)}
	for _, o := range orders {
		order := o
		s.next++
		if order.ID == 0 {
			order.ID = s.next
		}
		s.orders[order.Number] = &order
	}
	return s
}

// CreatePending stores order unless the number is taken.
func (s *OrderStoreStub) CreatePending(ctx context.Context, order *model.Order) (*model.Order, error) {
	s.mu.Lock()
	s.createCalls++
	s.mu.Unlock()
	if s.CreatePendingFn != nil {
		return s.CreatePendingFn(ctx, order)
	}
	if s.Err != nil {
		return nil, s.Err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.orders == nil {
		s.orders = make(map[string]*model.Order)
	}
	if _, exists := s.orders[order.Number]; exists {
		return nil, domainErrors.ErrAlreadyExists
	}
	s.next++
	stored := *order
	stored.ID = s.next
	stored.Status = model.OrderStatusPending
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	s.orders[stored.Number] = &stored
	out := stored
	return &out, nil
}

// SaveGatewayParams records gateway audit data on stored order.
func (s *OrderStoreStub) SaveGatewayParams(ctx context.Context, number, gateway, ref string, params map[string]string) error {
	if s.SaveGatewayParamsFn != nil {
		return s.SaveGatewayParamsFn(ctx, number, gateway, ref, params)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[number]
	if !ok {
		return domainErrors.ErrNotFound
	}
	order.Gateway = gateway
	order.GatewayRef = ref
	order.GatewayParams = params
	return nil
}

// GetByNumber returns copy of stored order.
func (s *OrderStoreStub) GetByNumber(_ context.Context, number string) (*model.Order, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[number]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	out := *order
	return &out, nil
}

// GetByGatewayRef finds order by gateway reference.
func (s *OrderStoreStub) GetByGatewayRef(_ context.Context, gateway, ref string) (*model.Order, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, order := range s.orders {
		if order.Gateway == gateway && order.GatewayRef == ref {
			out := *order
			return &out, nil
		}
	}
	return nil, domainErrors.ErrNotFound
}

// ApplyResult transitions a pending order and records outbox messages
// atomically.
func (s *OrderStoreStub) ApplyResult(ctx context.Context, number string, status model.OrderStatus, onPaid []model.OutboxMessage) (*model.Order, bool, error) {
	s.mu.Lock()
	s.applyCalls++
	s.mu.Unlock()
	if s.ApplyResultFn != nil {
		return s.ApplyResultFn(ctx, number, status, onPaid)
	}
	if s.Err != nil {
		return nil, false, s.Err
	}
	if !status.Terminal() {
		return nil, false, domainErrors.ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[number]
	if !ok {
		return nil, false, domainErrors.ErrNotFound
	}
	if order.Status != model.OrderStatusPending {
		out := *order
		return &out, false, nil
	}
	order.Status = status
	order.UpdatedAt = time.Now()
	if status == model.OrderStatusPaid {
		for _, msg := range onPaid {
			if msg.ID == uuid.Nil {
				msg.ID = uuid.New()
			}
			msg.Status = model.OutboxStatusPending
			msg.CreatedAt = order.UpdatedAt
			s.outbox = append(s.outbox, msg)
		}
	}
	out := *order
	return &out, true, nil
}

// Outbox returns messages recorded by ApplyResult.
func (s *OrderStoreStub) Outbox() []model.OutboxMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.OutboxMessage(nil), s.outbox...)
}

// ApplyCalls reports how many times ApplyResult was invoked.
func (s *OrderStoreStub) ApplyCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyCalls
}

// CreateCalls reports how many times CreatePending was invoked.
func (s *OrderStoreStub) CreateCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createCalls
}

// ProductRepositoryStub keeps catalog in-memory.
type ProductRepositoryStub struct {
	Products   []model.Product
	Err        error
	MarkSoldFn func(context.Context, []string) error

	mu   sync.Mutex
	Sold [][]string
}

// List returns configured products.
func (s *ProductRepositoryStub) List(context.Context) ([]model.Product, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Product(nil), s.Products...), nil
}

// GetByID returns product or not found.
func (s *ProductRepositoryStub) GetByID(_ context.Context, id string) (*model.Product, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.Products {
		if p.ID == id {
			product := p
			return &product, nil
		}
	}
	return nil, domainErrors.ErrNotFound
}

// GetByIDs returns known products, silently skipping unknown ids.
func (s *ProductRepositoryStub) GetByIDs(_ context.Context, ids []string) ([]model.Product, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Product
	for _, p := range s.Products {
		for _, id := range ids {
			if p.ID == id {
				out = append(out, p)
				break
			}
		}
	}
	return out, nil
}

// MarkSold flags products as sold and records the call.
func (s *ProductRepositoryStub) MarkSold(ctx context.Context, ids []string) error {
	if s.MarkSoldFn != nil {
		return s.MarkSoldFn(ctx, ids)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Sold = append(s.Sold, ids)
	for i := range s.Products {
		for _, id := range ids {
			if s.Products[i].ID == id {
				s.Products[i].Sold = true
			}
		}
	}
	return nil
}

// OutboxCall records delivery bookkeeping.
type OutboxCall struct {
	ID       uuid.UUID
	Attempts int
	LastErr  string
	Failed   bool
}

// OutboxRepositoryStub serves configured batches and records results.
type OutboxRepositoryStub struct {
	Batches [][]model.OutboxMessage
	ClaimFn func(context.Context, int, time.Duration) ([]model.OutboxMessage, error)

	mu      sync.Mutex
	claims  int
	Sent    []uuid.UUID
	Retries []OutboxCall
}

// ClaimBatch returns next configured batch, then empty batches.
func (s *OutboxRepositoryStub) ClaimBatch(ctx context.Context, limit int, staleAfter time.Duration) ([]model.OutboxMessage, error) {
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

// MarkSent records delivered message.
func (s *OutboxRepositoryStub) MarkSent(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Sent = append(s.Sent, id)
	return nil
}

// MarkRetry records failed attempt.
func (s *OutboxRepositoryStub) MarkRetry(_ context.Context, id uuid.UUID, attempts int, lastErr string, failed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Retries = append(s.Retries, OutboxCall{ID: id, Attempts: attempts, LastErr: lastErr, Failed: failed})
	return nil
}

// Snapshot returns copies of recorded results.
func (s *OutboxRepositoryStub) Snapshot() ([]uuid.UUID, []OutboxCall) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]uuid.UUID(nil), s.Sent...), append([]OutboxCall(nil), s.Retries...)
}

// HealthCheckerStub returns configured error.
type HealthCheckerStub struct {
	Err   error
	Calls int
}

// HealthCheck records the call.
func (s *HealthCheckerStub) HealthCheck(context.Context) error {
	s.Calls++
	return s.Err
}
