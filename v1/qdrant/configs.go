package qdrant

import (
	"time"

	"github.com/awa-ai/awadb/v1/engine"
)

// Config holds connection and layout settings for the Qdrant engine.
//
// Example (builder style):
//
//	cfg := qdrant.FromEndpoint("localhost").
//	    WithApiKey(os.Getenv("QDRANT_API_KEY")).
//	    WithMetric(engine.InnerProduct)
type Config struct {
	// Hostname of the Qdrant server, e.g. "localhost".
	Endpoint string `yaml:"endpoint" env:"QDRANT_ENDPOINT"`

	// gRPC port of the Qdrant server. Defaults to 6334.
	Port int `yaml:"port" env:"QDRANT_PORT"`

	// Optional authentication token for secured deployments.
	ApiKey string `yaml:"api_key" env:"QDRANT_API_KEY"`

	// Prefix of every table collection. A table db/t lives in <prefix>db__t.
	CollectionPrefix string `yaml:"collection_prefix" env:"QDRANT_COLLECTION_PREFIX"`

	// Collection holding one point per table with its declaration.
	MetaCollection string `yaml:"meta_collection" env:"QDRANT_META_COLLECTION"`

	// Distance of every vector field. Collections are created with it and
	// searches with another metric are rejected.
	Metric engine.Metric `yaml:"metric" env:"QDRANT_METRIC"`

	// Multi-vector searches fetch TopN*Oversample candidates per field.
	Oversample int `yaml:"oversample" env:"QDRANT_OVERSAMPLE"`

	// Maximum request duration before timing out.
	Timeout time.Duration `yaml:"timeout" env:"QDRANT_TIMEOUT"`

	// Timeout of the health check run at connection time.
	ConnectTimeout time.Duration `yaml:"connect_timeout" env:"QDRANT_CONNECT_TIMEOUT"`

	// Enable gzip compression for requests.
	Compression bool `yaml:"compression" env:"QDRANT_COMPRESSION"`

	// Whether to perform version compatibility checks between client and server.
	CheckCompatibility bool `yaml:"check_compatibility" env:"QDRANT_CHECK_COMPATIBILITY"`
}

// DefaultConfig provides sensible defaults for most use cases.
func DefaultConfig() *Config {
	return &Config{
		Endpoint:           "localhost",
		Port:               6334,
		CollectionPrefix:   "awadb_",
		MetaCollection:     "awadb_tables",
		Metric:             engine.L2,
		Oversample:         4,
		Timeout:            5 * time.Second,
		ConnectTimeout:     5 * time.Second,
		CheckCompatibility: true,
	}
}

// FromEndpoint returns a default config pre-filled with a specific endpoint.
func FromEndpoint(host string) *Config {
	cfg := DefaultConfig()
	cfg.Endpoint = host
	return cfg
}

func (c *Config) WithApiKey(key string) *Config {
	c.ApiKey = key
	return c
}

func (c *Config) WithTimeout(d time.Duration) *Config {
	c.Timeout = d
	return c
}

func (c *Config) WithConnectTimeout(d time.Duration) *Config {
	c.ConnectTimeout = d
	return c
}

func (c *Config) WithCompression(enabled bool) *Config {
	c.Compression = enabled
	return c
}

func (c *Config) WithCompatibilityCheck(enabled bool) *Config {
	c.CheckCompatibility = enabled
	return c
}

func (c *Config) WithMetric(m engine.Metric) *Config {
	c.Metric = m
	return c
}

func (c *Config) WithCollectionPrefix(prefix string) *Config {
	c.CollectionPrefix = prefix
	return c
}

// withDefaults fills zero values from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Endpoint == "" {
		c.Endpoint = d.Endpoint
	}
	if c.Port == 0 {
		c.Port = d.Port
	}
	if c.MetaCollection == "" {
		c.MetaCollection = d.MetaCollection
	}
	if c.Oversample <= 0 {
		c.Oversample = d.Oversample
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = d.ConnectTimeout
	}
	return c
}
