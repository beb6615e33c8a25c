package reranker

import "context"

// Passthrough keeps the similarity ordering untouched. It serves as the
// no-op implementation when no rerank endpoint is configured and as the
// degradation target when the real reranker is unavailable.
type Passthrough struct{}

func NewPassthrough() *Passthrough {
	return &Passthrough{}
}

func (p *Passthrough) Rerank(_ context.Context, _ string, passages []string, topN int) ([]Result, error) {
	if topN <= 0 || topN > len(passages) {
		topN = len(passages)
	}
	results := make([]Result, topN)
	for i := 0; i < topN; i++ {
		results[i] = Result{Index: i}
	}
	return results, nil
}
