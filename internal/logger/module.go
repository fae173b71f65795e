package logger

import (
	"log/slog"

	"github.com/polkiloo/artshop/internal/config"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
)

// Module wires slog logger for dependency injection and routes fx events through it.
var Module = fx.Options(
	fx.Provide(newFromConfig),
	fx.WithLogger(newEventLogger),
)

func newFromConfig(cfg *config.Config) *slog.Logger {
	return NewWithLevel(cfg.LogLevel)
}

func newEventLogger(l *slog.Logger) fxevent.Logger {
	return &fxevent.SlogLogger{Logger: l.With("component", "fx")}
}
