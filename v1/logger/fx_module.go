package logger

import (
	"context"

	"go.uber.org/fx"
)

// FXModule provides *LoggerClient, also as Logger, and flushes it when the
// application stops. A Config must be available in the container.
var FXModule = fx.Module("logger",
	fx.Provide(
		NewLoggerClient,
		fx.Annotate(
			func(l *LoggerClient) *LoggerClient { return l },
			fx.As(new(Logger)),
		),
	),
	fx.Invoke(RegisterLoggerLifecycle),
)

// RegisterLoggerLifecycle syncs the zap logger on stop so buffered entries
// are not lost.
func RegisterLoggerLifecycle(lc fx.Lifecycle, client *LoggerClient) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			// Sync on stderr fails with EINVAL on some platforms.
			_ = client.Zap.Sync()
			return nil
		},
	})
}
