// Package memengine is an in-process implementation of engine.Engine.
//
// Rows are kept in memory per table. Textual fields are indexed in roaring
// bitmaps, one per distinct value, so term filters are bitmap unions and
// intersections; range filters narrow the candidate bitmap by scanning it.
// Vector search is exhaustive and scores candidate chunks concurrently.
//
// Scores are squared euclidean distances under L2, lower is better, and dot
// products under InnerProduct, higher is better. With several vector queries
// the boosted per-field scores are summed.
package memengine
