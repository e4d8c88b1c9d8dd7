package request

import "github.com/awa-ai/awadb/v1/engine"

// Query is a similarity search against one table.
type Query struct {
	// Value is either a string, which is embedded, or a numeric vector.
	Value any

	Filters map[string]any

	// Include lists the fields to return. Empty means every non-vector field.
	Include []string

	// Boosts overrides the boost of individual vector fields.
	Boosts map[string]float64

	TopN       int
	BruteForce bool

	// Metric overrides Config.Metric when set.
	Metric *engine.Metric
}

// GetQuery fetches documents by primary key or by filter.
type GetQuery struct {
	IDs     []any
	Filters map[string]any
	Include []string
	Limit   int
}
