package assembler

import "github.com/awa-ai/awadb/v1/engine"

// DefaultDedupField is the text field hashed into generated primary keys.
const DefaultDedupField = "embedding_text"

// Config controls primary-key generation and vector encoding.
type Config struct {
	// Dedup derives missing keys from the md5 of DedupField, so documents with
	// the same text share a key. When false, or when the field is absent, a
	// random uuid is used.
	Dedup      bool   `yaml:"dedup" env:"AWADB_DEDUP"`
	DedupField string `yaml:"dedup_field" env:"AWADB_DEDUP_FIELD"`

	// Metric is the table metric. With InnerProduct every vector is
	// normalized to unit length before it is encoded.
	Metric engine.Metric `yaml:"metric" env:"AWADB_METRIC"`
}

func DefaultConfig() Config {
	return Config{Dedup: true, DedupField: DefaultDedupField}
}

func (c Config) withDefaults() Config {
	if c.DedupField == "" {
		c.DedupField = DefaultDedupField
	}
	return c
}
