package app

import (
	"context"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/polkiloo/artshop/internal/domain/model"
	"github.com/polkiloo/artshop/internal/domain/repository"
	"github.com/polkiloo/artshop/internal/usecase"
)

// ShopFacade exposes shop use cases to the HTTP layer and the outbox worker.
type ShopFacade struct {
	catalog       *usecase.CatalogUseCase
	payments      *usecase.PaymentUseCase
	notifications *usecase.NotificationUseCase
	outbox        repository.OutboxRepository
	health        repository.HealthChecker
}

func NewShopFacade(
	catalog *usecase.CatalogUseCase,
	payments *usecase.PaymentUseCase,
	notifications *usecase.NotificationUseCase,
	outbox repository.OutboxRepository,
	health repository.HealthChecker,
) *ShopFacade {
	return &ShopFacade{
		catalog:       catalog,
		payments:      payments,
		notifications: notifications,
		outbox:        outbox,
		health:        health,
	}
}

func (f *ShopFacade) Products(ctx context.Context) ([]model.Product, error) {
	return f.catalog.List(ctx)
}

func (f *ShopFacade) Product(ctx context.Context, id string) (*model.Product, error) {
	return f.catalog.Get(ctx, id)
}

func (f *ShopFacade) CreatePayment(ctx context.Context, gateway string, req usecase.CheckoutRequest) (*usecase.CheckoutResult, error) {
	return f.payments.CreatePayment(ctx, gateway, req)
}

func (f *ShopFacade) HandleCallback(ctx context.Context, gateway string, values url.Values) (*usecase.CallbackOutcome, error) {
	return f.payments.HandleCallback(ctx, gateway, values)
}

func (f *ShopFacade) OrderStatus(ctx context.Context, number string) (*model.Order, error) {
	return f.payments.OrderStatus(ctx, number)
}

func (f *ShopFacade) ParseReceipt(token string) (string, error) {
	return f.payments.ParseReceipt(token)
}

func (f *ShopFacade) ClaimOutbox(ctx context.Context, limit int, staleAfter time.Duration) ([]model.OutboxMessage, error) {
	return f.outbox.ClaimBatch(ctx, limit, staleAfter)
}

func (f *ShopFacade) DeliverOutbox(ctx context.Context, msg model.OutboxMessage) error {
	return f.notifications.Handle(ctx, msg)
}

func (f *ShopFacade) MarkOutboxSent(ctx context.Context, id uuid.UUID) error {
	return f.outbox.MarkSent(ctx, id)
}

func (f *ShopFacade) MarkOutboxRetry(ctx context.Context, id uuid.UUID, attempts int, lastErr string, failed bool) error {
	return f.outbox.MarkRetry(ctx, id, attempts, lastErr, failed)
}

// HealthCheck reports whether the database answers.
func (f *ShopFacade) HealthCheck(ctx context.Context) error {
	return f.health.HealthCheck(ctx)
}
