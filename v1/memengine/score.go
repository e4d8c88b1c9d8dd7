package memengine

import "github.com/awa-ai/awadb/v1/engine"

type query struct {
	engine.VectorQuery
	vec []float32
}

// score combines the per-field similarities of r. A row is rejected when any
// field lacks a vector or scores outside its query window.
func score(r *row, queries []query, metric engine.Metric) (float64, bool) {
	var total float64
	for _, q := range queries {
		vec, ok := r.vectors[q.Field]
		if !ok {
			return 0, false
		}
		s := similarity(metric, q.vec, vec)
		if s < q.MinScore || s > q.MaxScore {
			return 0, false
		}
		total += q.Boost * s
	}
	return total, true
}

// similarity is the squared euclidean distance for L2 and the dot product for
// InnerProduct.
func similarity(metric engine.Metric, a, b []float32) float64 {
	var s float64
	if metric == engine.InnerProduct {
		for i := range a {
			s += float64(a[i]) * float64(b[i])
		}
		return s
	}
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		s += d * d
	}
	return s
}

// better reports whether score a ranks before b.
func better(metric engine.Metric, a, b float64) bool {
	if metric == engine.InnerProduct {
		return a > b
	}
	return a < b
}
