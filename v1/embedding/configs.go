package embedding

import (
	"fmt"
	"os"
	"strconv"
)

// EMBEDDING_ENDPOINT must point to the root of an OpenAI-compatible inference
// service (no /embeddings appended). The provider appends the path itself, so
// callers only supply the base URL.

type Config struct {
	Endpoint     string `yaml:"endpoint" env:"EMBEDDING_ENDPOINT"`                         // Base URL of the inference API
	ServiceToken string `yaml:"service_token" env:"EMBEDDING_SERVICE_TOKEN"`               // Bearer token, optional
	Model        string `yaml:"model" env:"EMBEDDING_MODEL"`                               // Model name sent with every request
	HTTPTimeoutS int    `yaml:"http_timeout_seconds" env:"EMBEDDING_HTTP_TIMEOUT_SECONDS"` // HTTP timeout seconds (default 30)

	// BatchSize caps the number of texts per request (default 64).
	BatchSize int `yaml:"batch_size" env:"EMBEDDING_BATCH_SIZE"`

	// RequestsPerSecond limits the request rate; zero disables limiting.
	RequestsPerSecond float64 `yaml:"requests_per_second" env:"EMBEDDING_REQUESTS_PER_SECOND"`
}

// NewConfig reads from environment variables.
func NewConfig() *Config {
	return &Config{
		Endpoint:          os.Getenv("EMBEDDING_ENDPOINT"),
		ServiceToken:      os.Getenv("EMBEDDING_SERVICE_TOKEN"),
		Model:             os.Getenv("EMBEDDING_MODEL"),
		HTTPTimeoutS:      envInt("EMBEDDING_HTTP_TIMEOUT_SECONDS", 30),
		BatchSize:         envInt("EMBEDDING_BATCH_SIZE", 64),
		RequestsPerSecond: envFloat("EMBEDDING_REQUESTS_PER_SECOND", 0),
	}
}

// Validate ensures required fields are present.
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("embedding: missing EMBEDDING_ENDPOINT")
	}
	if c.Model == "" {
		return fmt.Errorf("embedding: missing EMBEDDING_MODEL")
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("embedding: negative EMBEDDING_REQUESTS_PER_SECOND")
	}
	return nil
}

func envInt(name string, def int) int {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func envFloat(name string, def float64) float64 {
	if v := os.Getenv(name); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			return f
		}
	}
	return def
}
