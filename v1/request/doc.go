// Package request composes engine search and get requests.
//
// A search query is a text, embedded through an embedding.Embedder, or a
// vector. The vector is matched against every vector field of equal
// dimension; with the InnerProduct metric it is L2-normalized first. Filters
// are translated by the filter package and the projection defaults to every
// non-vector field of the table.
package request
