package handlers

import (
	"context"
	"net/url"

	"github.com/polkiloo/artshop/internal/domain/model"
	"github.com/polkiloo/artshop/internal/usecase"
)

// CatalogFacade exposes the storefront catalog.
type CatalogFacade interface {
	Products(ctx context.Context) ([]model.Product, error)
	Product(ctx context.Context, id string) (*model.Product, error)
}

// PaymentFacade encapsulates checkout and gateway callbacks.
type PaymentFacade interface {
	CreatePayment(ctx context.Context, gateway string, req usecase.CheckoutRequest) (*usecase.CheckoutResult, error)
	HandleCallback(ctx context.Context, gateway string, values url.Values) (*usecase.CallbackOutcome, error)
	OrderStatus(ctx context.Context, number string) (*model.Order, error)
	ParseReceipt(token string) (string, error)
}

// HealthFacade reports readiness of backing services.
type HealthFacade interface {
	HealthCheck(ctx context.Context) error
}

// ShopFacade aggregates the full set of operations used across handlers.
type ShopFacade interface {
	CatalogFacade
	PaymentFacade
	HealthFacade
}
