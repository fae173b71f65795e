package auth

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/artshop/internal/config"
)

// Module provides receipt token strategy via fx.
var Module = fx.Provide(newTokenStrategy)

type strategyParams struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
}

func newTokenStrategy(p strategyParams) Strategy {
	if p.Config.UsesDefaultReceiptSecret() && p.Config.PaymentsEnabled() {
		p.Logger.Warn("receipts are signed with the default secret, set RECEIPT_SECRET")
	}
	return NewJWTStrategy(p.Config.ReceiptSecret, Options{TTL: p.Config.ReceiptTTL})
}
