package rag

import (
	"context"
	"log"

	"wiki-rag-be/pkg/reranker"
)

// SelectPassages reranks candidates and returns the chosen original indices
// in relevance order. Retrieval degrades gracefully: when the reranker errors
// or returns nothing usable, the first topN similarity-ordered candidates are
// kept instead.
func SelectPassages(ctx context.Context, rr reranker.Reranker, query string, passages []string, topN int) []int {
	if len(passages) == 0 {
		return nil
	}
	if topN <= 0 || topN > len(passages) {
		topN = len(passages)
	}

	results, err := rr.Rerank(ctx, query, passages, topN)
	if err != nil {
		log.Printf("[WARN] rerank failed, falling back to similarity order: %v", err)
		return firstN(len(passages), topN)
	}
	if len(results) == 0 {
		return firstN(len(passages), topN)
	}

	indices := make([]int, 0, len(results))
	for _, res := range results {
		if res.Index < 0 || res.Index >= len(passages) {
			continue
		}
		indices = append(indices, res.Index)
	}
	if len(indices) == 0 {
		return firstN(len(passages), topN)
	}
	return indices
}

func firstN(total, n int) []int {
	if n > total {
		n = total
	}
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	return indices
}
