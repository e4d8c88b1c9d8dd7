package embedding

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// InferenceProvider calls an OpenAI-compatible /embeddings endpoint.
type InferenceProvider struct {
	baseURL      string
	serviceToken string
	httpClient   *http.Client
}

func newInferenceProvider(cfg *Config) (*InferenceProvider, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("inference: missing EMBEDDING_ENDPOINT")
	}

	// Remove trailing slash if user added it.
	base := strings.TrimRight(cfg.Endpoint, "/")

	timeout := cfg.HTTPTimeoutS
	if timeout <= 0 {
		timeout = 30
	}

	return &InferenceProvider{
		baseURL:      base,
		serviceToken: cfg.ServiceToken,
		httpClient:   &http.Client{Timeout: time.Duration(timeout) * time.Second},
	}, nil
}

type embeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingsResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

// Create generates embeddings for the given texts using the specified model.
// Results are ordered by the index reported by the server.
func (p *InferenceProvider) Create(ctx context.Context, model string, texts ...string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("inference: no texts provided")
	}
	if model == "" {
		return nil, fmt.Errorf("inference: model is required")
	}

	url := fmt.Sprintf("%s/embeddings", p.baseURL)

	var parsed embeddingsResponse
	if err := p.postJSON(ctx, url, embeddingsRequest{Model: model, Input: texts}, &parsed); err != nil {
		return nil, err
	}

	if len(parsed.Data) != len(texts) {
		return nil, fmt.Errorf("inference: got %d embeddings for %d texts", len(parsed.Data), len(texts))
	}

	out := make([][]float64, len(texts))
	for i, d := range parsed.Data {
		idx := d.Index
		if idx < 0 || idx >= len(out) || out[idx] != nil {
			// Servers that omit the index return data in input order.
			idx = i
		}
		out[idx] = d.Embedding
	}
	for i, e := range out {
		if len(e) == 0 {
			return nil, fmt.Errorf("inference: empty embedding for input %d", i)
		}
	}

	return out, nil
}
