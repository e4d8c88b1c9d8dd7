package tracer

import (
	"context"
	"log"

	"go.uber.org/fx"
)

// FXModule provides *Tracer and shuts it down on stop so pending spans are
// flushed.
var FXModule = fx.Module("tracer",
	fx.Provide(
		NewClient,
	),
	fx.Invoke(RegisterTracerLifecycle),
)

// RegisterTracerLifecycle registers the shutdown hook of the tracer.
func RegisterTracerLifecycle(lc fx.Lifecycle, tracer *Tracer) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Println("INFO: shutting down tracer...")
			return tracer.Shutdown(ctx)
		},
	})
}
