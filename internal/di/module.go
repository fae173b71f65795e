package di

import (
	"go.uber.org/fx"

	"github.com/polkiloo/artshop/internal/adapter/events"
	"github.com/polkiloo/artshop/internal/adapter/gateway"
	"github.com/polkiloo/artshop/internal/adapter/mailer"
	"github.com/polkiloo/artshop/internal/app"
	"github.com/polkiloo/artshop/internal/config"
	"github.com/polkiloo/artshop/internal/logger"
	"github.com/polkiloo/artshop/internal/pkg/auth"
	"github.com/polkiloo/artshop/internal/server/http/handlers"
	"github.com/polkiloo/artshop/internal/server/http/router"
	"github.com/polkiloo/artshop/internal/storage/postgres"
	"github.com/polkiloo/artshop/internal/usecase"
)

// Module composes the application graph. Extra options are appended last so
// callers can replace collaborators.
func Module(opts ...fx.Option) fx.Option {
	modules := []fx.Option{
		config.Module,
		logger.Module,
		auth.Module,
		postgres.Module,
		gateway.Module,
		mailer.Module,
		events.Module,
		usecase.Module,
		fx.Provide(func(f *app.ShopFacade) handlers.ShopFacade { return f }),
		router.Module,
		app.Module,
	}
	modules = append(modules, opts...)
	return fx.Options(modules...)
}
