package memengine

import (
	"go.uber.org/fx"

	"github.com/awa-ai/awadb/v1/engine"
)

// FXModule provides an in-process engine as *Engine and engine.Engine.
var FXModule = fx.Module(
	"memengine",
	fx.Provide(
		NewEngineWithDI,
		fx.Annotate(
			func(e *Engine) *Engine { return e },
			fx.As(new(engine.Engine)),
		),
	),
)

type EngineParams struct {
	fx.In

	Config Config `optional:"true"`
}

func NewEngineWithDI(p EngineParams) *Engine {
	return New(p.Config)
}
