package qdrant

import (
	"context"

	"go.uber.org/fx"

	"github.com/awa-ai/awadb/v1/engine"
)

// FXModule connects to Qdrant and provides the adapter as *Engine and
// engine.Engine. The connection is closed when the application stops.
var FXModule = fx.Module("qdrant",
	fx.Provide(
		NewClientWithDI,
		NewEngine,
		fx.Annotate(
			func(e *Engine) *Engine { return e },
			fx.As(new(engine.Engine)),
		),
	),
	fx.Invoke(RegisterQdrantLifecycle),
)

type QdrantParams struct {
	fx.In

	Config *Config `optional:"true"`
	Logger Logger  `optional:"true"`
}

func NewClientWithDI(p QdrantParams) (*QdrantClient, error) {
	cfg := p.Config
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return NewQdrantClient(*cfg, p.Logger)
}

type QdrantLifecycleParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Client    *QdrantClient
}

func RegisterQdrantLifecycle(p QdrantLifecycleParams) {
	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return p.Client.Close()
		},
	})
}
