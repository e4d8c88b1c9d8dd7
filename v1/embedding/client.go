package embedding

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// Client is an Embedder backed by a Provider. Texts are sent in batches of
// at most Config.BatchSize, and requests are paced by an optional limiter.
type Client struct {
	provider  Provider
	model     string
	batchSize int
	limiter   *rate.Limiter
}

var _ Embedder = (*Client)(nil)

// NewClient validates cfg and builds a Client over the HTTP inference
// provider.
func NewClient(cfg *Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p, err := newInferenceProvider(cfg)
	if err != nil {
		return nil, err
	}
	return NewClientWithProvider(cfg, p), nil
}

// NewClientWithProvider builds a Client over an arbitrary provider.
func NewClientWithProvider(cfg *Config, p Provider) *Client {
	c := &Client{provider: p, model: cfg.Model, batchSize: cfg.BatchSize}
	if c.batchSize <= 0 {
		c.batchSize = 64
	}
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return c
}

// Embed returns the embedding of a single text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedBatch returns one embedding per text, preserving order.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += c.batchSize {
		end := min(start+c.batchSize, len(texts))

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("[Embedding] rate limit: %w", err)
			}
		}

		vecs, err := c.provider.Create(ctx, c.model, texts[start:end]...)
		if err != nil {
			return nil, fmt.Errorf("[Embedding] create embeddings: %w", err)
		}
		if len(vecs) != end-start {
			return nil, fmt.Errorf("[Embedding] provider returned %d embeddings for %d texts", len(vecs), end-start)
		}
		for _, v := range vecs {
			out = append(out, toFloat32(v))
		}
	}
	return out, nil
}

// Close releases resources held by the provider.
func (c *Client) Close() error {
	if closer, ok := c.provider.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(f)
	}
	return out
}
