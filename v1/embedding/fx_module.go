package embedding

import (
	"context"

	"go.uber.org/fx"
)

// FXModule wires the embedding client into Fx.
//
// It provides:
//   - *Config   (NewConfig)
//   - *Client   (NewClient)
//   - Embedder  (the same *Client)
var FXModule = fx.Module(
	"embedding",

	fx.Provide(
		NewConfig,
		NewClient,
		fx.Annotate(
			func(c *Client) *Client { return c },
			fx.As(new(Embedder)),
		),
	),

	fx.Invoke(RegisterEmbeddingLifecycle),
)

// RegisterEmbeddingLifecycle closes the Client on application shutdown.
func RegisterEmbeddingLifecycle(lc fx.Lifecycle, client *Client) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})
}
