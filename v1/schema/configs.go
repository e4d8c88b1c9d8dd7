package schema

// Config defines how table declarations are derived from registered fields.
type Config struct {
	// PrimaryKey is the name of the primary-key field of every table.
	PrimaryKey string `yaml:"primary_key" env:"AWADB_PRIMARY_KEY"`

	// UnindexedFields are declared with is_index=false.
	UnindexedFields []string `yaml:"unindexed_fields" env:"AWADB_UNINDEXED_FIELDS"`

	// IndexingSize is the number of vectors buffered before the index is trained.
	IndexingSize int `yaml:"indexing_size" env:"AWADB_INDEXING_SIZE"`

	// RetrievalType names the vector index kind, e.g. IVFPQ.
	RetrievalType string `yaml:"retrieval_type" env:"AWADB_RETRIEVAL_TYPE"`

	// RetrievalParam is the JSON parameter document of the vector index.
	RetrievalParam string `yaml:"retrieval_param" env:"AWADB_RETRIEVAL_PARAM"`

	// VectorStoreType and VectorStoreParam configure raw vector storage.
	VectorStoreType  string `yaml:"vector_store_type" env:"AWADB_VECTOR_STORE_TYPE"`
	VectorStoreParam string `yaml:"vector_store_param" env:"AWADB_VECTOR_STORE_PARAM"`
}

const (
	DefaultIndexingSize     = 10000
	DefaultRetrievalType    = "IVFPQ"
	DefaultRetrievalParam   = `{"ncentroids" : 256, "nsubvector" : 16}`
	DefaultVectorStoreType  = "Mmap"
	DefaultVectorStoreParam = `{"cache_size" : 2000}`
	DefaultTextField        = "embedding_text"
)

// DefaultConfig returns the declaration defaults of the engine.
func DefaultConfig() Config {
	return Config{
		PrimaryKey:       DefaultPrimaryKey,
		UnindexedFields:  []string{DefaultTextField},
		IndexingSize:     DefaultIndexingSize,
		RetrievalType:    DefaultRetrievalType,
		RetrievalParam:   DefaultRetrievalParam,
		VectorStoreType:  DefaultVectorStoreType,
		VectorStoreParam: DefaultVectorStoreParam,
	}
}

// withDefaults fills every zero field from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.PrimaryKey == "" {
		c.PrimaryKey = d.PrimaryKey
	}
	if c.UnindexedFields == nil {
		c.UnindexedFields = d.UnindexedFields
	}
	if c.IndexingSize <= 0 {
		c.IndexingSize = d.IndexingSize
	}
	if c.RetrievalType == "" {
		c.RetrievalType = d.RetrievalType
	}
	if c.RetrievalParam == "" {
		c.RetrievalParam = d.RetrievalParam
	}
	if c.VectorStoreType == "" {
		c.VectorStoreType = d.VectorStoreType
	}
	if c.VectorStoreParam == "" {
		c.VectorStoreParam = d.VectorStoreParam
	}
	return c
}

func (c Config) indexed(name string) bool {
	for _, f := range c.UnindexedFields {
		if f == name {
			return false
		}
	}
	return true
}
