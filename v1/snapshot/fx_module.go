package snapshot

import (
	"context"

	"github.com/awa-ai/awadb/v1/schema"
	"go.uber.org/fx"
)

// FXModule provides the configured Store, also exposed as schema.Store, and
// closes it when the application stops.
var FXModule = fx.Module("snapshot",
	fx.Provide(
		NewStoreWithDI,
		fx.Annotate(
			ProvideSchemaStore,
			fx.As(new(schema.Store)),
		),
	),
	fx.Invoke(RegisterStoreLifecycle),
)

// ProvideSchemaStore narrows a Store to the schema port.
func ProvideSchemaStore(s Store) schema.Store {
	return s
}

// StoreParams groups the dependencies of NewStoreWithDI.
type StoreParams struct {
	fx.In

	Config Config
}

// NewStoreWithDI opens the store selected by the injected Config.
func NewStoreWithDI(params StoreParams) (Store, error) {
	return New(context.Background(), params.Config)
}

// StoreLifecycleParams groups the dependencies of RegisterStoreLifecycle.
type StoreLifecycleParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Store     Store
}

// RegisterStoreLifecycle closes the store on application stop.
func RegisterStoreLifecycle(params StoreLifecycleParams) {
	params.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return params.Store.Close()
		},
	})
}
