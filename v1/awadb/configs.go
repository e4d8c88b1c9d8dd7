package awadb

import (
	"github.com/awa-ai/awadb/v1/assembler"
	"github.com/awa-ai/awadb/v1/engine"
	"github.com/awa-ai/awadb/v1/request"
	"github.com/awa-ai/awadb/v1/schema"
)

const (
	DefaultDB             = "default"
	DefaultEmbeddingField = "text_embedding"
)

// Config holds the client defaults. Schema carries the declaration settings
// of newly created tables; its PrimaryKey is overridden by PrimaryKey.
//
// Example:
//
//	cfg := awadb.DefaultConfig().WithDB("books").WithMetric(engine.InnerProduct)
type Config struct {
	// DB is the database every table name is resolved in.
	DB string `yaml:"db" env:"AWADB_DB"`

	PrimaryKey string `yaml:"primary_key" env:"AWADB_PRIMARY_KEY"`

	// Dedup derives missing primary keys from the md5 of DedupField.
	Dedup      bool   `yaml:"dedup" env:"AWADB_DEDUP"`
	DedupField string `yaml:"dedup_field" env:"AWADB_DEDUP_FIELD"`

	// EmbeddingField is the vector field AddTexts writes.
	EmbeddingField string `yaml:"embedding_field" env:"AWADB_EMBEDDING_FIELD"`

	DefaultTopN int           `yaml:"default_top_n" env:"AWADB_DEFAULT_TOP_N"`
	GetLimit    int           `yaml:"get_limit" env:"AWADB_GET_LIMIT"`
	Metric      engine.Metric `yaml:"metric" env:"AWADB_METRIC"`

	Schema schema.Config `yaml:"schema"`
}

func DefaultConfig() Config {
	return Config{
		DB:             DefaultDB,
		PrimaryKey:     schema.DefaultPrimaryKey,
		Dedup:          true,
		DedupField:     assembler.DefaultDedupField,
		EmbeddingField: DefaultEmbeddingField,
		DefaultTopN:    request.DefaultTopN,
		GetLimit:       request.DefaultGetLimit,
		Metric:         engine.L2,
		Schema:         schema.DefaultConfig(),
	}
}

func (c Config) WithDB(db string) Config {
	c.DB = db
	return c
}

func (c Config) WithMetric(m engine.Metric) Config {
	c.Metric = m
	return c
}

func (c Config) WithDedup(enabled bool) Config {
	c.Dedup = enabled
	return c
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.DB == "" {
		c.DB = d.DB
	}
	if c.PrimaryKey == "" {
		c.PrimaryKey = d.PrimaryKey
	}
	if c.DedupField == "" {
		c.DedupField = d.DedupField
	}
	if c.EmbeddingField == "" {
		c.EmbeddingField = d.EmbeddingField
	}
	if c.DefaultTopN <= 0 {
		c.DefaultTopN = d.DefaultTopN
	}
	if c.GetLimit <= 0 {
		c.GetLimit = d.GetLimit
	}
	c.Schema.PrimaryKey = c.PrimaryKey
	if c.Schema.UnindexedFields == nil {
		c.Schema.UnindexedFields = []string{c.DedupField}
	}
	return c
}

// SchemaConfig returns the registry settings implied by c.
func (c Config) SchemaConfig() schema.Config {
	return c.withDefaults().Schema
}

func (c Config) assemblerConfig() assembler.Config {
	return assembler.Config{Dedup: c.Dedup, DedupField: c.DedupField, Metric: c.Metric}
}

func (c Config) requestConfig() request.Config {
	return request.Config{TopN: c.DefaultTopN, GetLimit: c.GetLimit, Metric: c.Metric}
}
