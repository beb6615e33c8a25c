// Package reranker scores (query, passage) pairs with a cross-encoder style
// model and returns a relevance-ordered subset carrying original-index
// provenance.
package reranker

import "context"

// Result references one input passage by its original index.
type Result struct {
	Index int
	Score float64
}

// Reranker reorders candidate passages by relevance to the query. The
// returned results are sorted by descending score and limited to topN.
// Implementations must only return indices that are valid for the passages
// slice they were given.
type Reranker interface {
	Rerank(ctx context.Context, query string, passages []string, topN int) ([]Result, error)
}
