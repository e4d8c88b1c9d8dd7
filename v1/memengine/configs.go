package memengine

// Config tunes the in-process engine.
type Config struct {
	// Workers bounds the goroutines scoring one search. Defaults to 4.
	Workers int `yaml:"workers" env:"MEMENGINE_WORKERS"`

	// ChunkSize is the number of candidate rows scored per goroutine.
	ChunkSize int `yaml:"chunk_size" env:"MEMENGINE_CHUNK_SIZE"`
}

func DefaultConfig() Config {
	return Config{Workers: 4, ChunkSize: 1024}
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = 1024
	}
	return c
}
