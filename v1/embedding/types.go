package embedding

import "context"

// Embedder turns text into vectors.
//
//go:generate mockgen -source=types.go -destination=mock_embedder.go -package=embedding
type Embedder interface {
	// Embed returns the embedding of one text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one embedding per text, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Provider is the raw inference backend behind a Client.
type Provider interface {
	// Create generates embeddings for the given texts using the specified model.
	Create(ctx context.Context, model string, texts ...string) ([][]float64, error)
}
