package usecase

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/artshop/internal/adapter/events"
	"github.com/polkiloo/artshop/internal/adapter/gateway"
	"github.com/polkiloo/artshop/internal/adapter/mailer"
	"github.com/polkiloo/artshop/internal/config"
	"github.com/polkiloo/artshop/internal/domain/repository"
	pkgAuth "github.com/polkiloo/artshop/internal/pkg/auth"
)

// Module provides core business use cases to the fx container.
var Module = fx.Provide(
	NewCatalogUseCase,
	newPaymentUseCase,
	newNotificationUseCase,
)

type paymentParams struct {
	fx.In

	Config   *config.Config
	Gateways *gateway.Registry
	Orders   repository.OrderRepository
	Products repository.ProductRepository
	Receipts pkgAuth.Strategy
	Logger   *slog.Logger
}

func newPaymentUseCase(p paymentParams) (*PaymentUseCase, error) {
	shipping, err := ParseShippingRates(p.Config.ShippingRates)
	if err != nil {
		return nil, err
	}
	return NewPaymentUseCase(
		p.Gateways,
		p.Orders,
		p.Products,
		NewRandomOrderNumbers(p.Config.OrderNumberLength),
		p.Receipts,
		PaymentOptions{Currency: p.Config.Currency, Shipping: shipping},
		p.Logger,
	), nil
}

type notificationParams struct {
	fx.In

	Config    *config.Config
	Orders    repository.OrderRepository
	Products  repository.ProductRepository
	Sender    mailer.Sender
	Publisher events.Publisher
	Receipts  pkgAuth.Strategy
	Logger    *slog.Logger
}

func newNotificationUseCase(p notificationParams) *NotificationUseCase {
	return NewNotificationUseCase(
		p.Orders,
		p.Products,
		p.Sender,
		p.Publisher,
		NotificationOptions{
			OperatorEmail: p.Config.OperatorEmail,
			PublicBaseURL: p.Config.PublicBaseURL,
			Receipts:      p.Receipts,
		},
		p.Logger,
	)
}
