package awadb

import (
	"context"

	"go.uber.org/fx"

	"github.com/awa-ai/awadb/v1/embedding"
	"github.com/awa-ai/awadb/v1/engine"
	"github.com/awa-ai/awadb/v1/events"
	"github.com/awa-ai/awadb/v1/metrics"
	"github.com/awa-ai/awadb/v1/schema"
	"github.com/awa-ai/awadb/v1/tracer"
)

// FXModule provides the schema registry and a Client over the injected
// engine.Engine and schema.Store. The registry is loaded and pending table
// creations are recovered on start; the schema is flushed on stop.
var FXModule = fx.Module("awadb",
	fx.Provide(
		NewRegistryWithDI,
		NewClientWithDI,
	),
	fx.Invoke(RegisterClientLifecycle),
)

type RegistryParams struct {
	fx.In

	Config Config `optional:"true"`
	Store  schema.Store
	Logger Logger `optional:"true"`
}

func NewRegistryWithDI(p RegistryParams) *schema.Registry {
	var log schema.Logger = nopLogger{}
	if p.Logger != nil {
		log = p.Logger
	}
	return schema.NewRegistry(p.Config.SchemaConfig(), p.Store, log)
}

type ClientParams struct {
	fx.In

	Config   Config `optional:"true"`
	Registry *schema.Registry
	Engine   engine.Engine

	Embedder embedding.Embedder       `optional:"true"`
	Notifier *events.Notifier         `optional:"true"`
	Metrics  metrics.MetricsCollector `optional:"true"`
	Tracer   *tracer.Tracer           `optional:"true"`
	Logger   Logger                   `optional:"true"`
}

func NewClientWithDI(p ClientParams) *Client {
	return New(p.Config, p.Registry, p.Engine,
		WithEmbedder(p.Embedder),
		WithNotifier(p.Notifier),
		WithMetrics(p.Metrics),
		WithTracer(p.Tracer),
		WithLogger(p.Logger),
	)
}

func RegisterClientLifecycle(lc fx.Lifecycle, reg *schema.Registry, c *Client) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := reg.Load(ctx); err != nil {
				return err
			}
			return c.Recover(ctx)
		},
		OnStop: func(ctx context.Context) error {
			return c.Close(ctx)
		},
	})
}
