package request

import "github.com/awa-ai/awadb/v1/engine"

const (
	DefaultTopN     = 10
	DefaultGetLimit = 5

	// Score window and boost applied to every vector query unless overridden.
	DefaultMinScore = -1
	DefaultMaxScore = 999999
	DefaultBoost    = 1.0
)

// Config holds the composer defaults.
type Config struct {
	TopN     int           `yaml:"top_n" env:"AWADB_DEFAULT_TOP_N"`
	GetLimit int           `yaml:"get_limit" env:"AWADB_GET_LIMIT"`
	Metric   engine.Metric `yaml:"metric" env:"AWADB_METRIC"`
}

func DefaultConfig() Config {
	return Config{TopN: DefaultTopN, GetLimit: DefaultGetLimit, Metric: engine.L2}
}

func (c Config) withDefaults() Config {
	if c.TopN <= 0 {
		c.TopN = DefaultTopN
	}
	if c.GetLimit <= 0 {
		c.GetLimit = DefaultGetLimit
	}
	return c
}
