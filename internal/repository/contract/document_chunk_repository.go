package contract

import (
	"context"

	"wiki-rag-be/internal/entity"
)

// ScoredChunk wraps a DocumentChunk with its cosine similarity score
type ScoredChunk struct {
	Chunk      *entity.DocumentChunk
	Similarity float64 // 0.0 to 1.0 (1.0 = identical)
}

type DocumentChunkRepository interface {
	CreateBulk(ctx context.Context, chunks []*entity.DocumentChunk) error
	DeleteBySourceId(ctx context.Context, sourceId string) error
	CountBySourceId(ctx context.Context, sourceId string) (int64, error)
	// SearchSimilarWithScore returns the limit nearest chunks by cosine
	// distance together with their similarity scores.
	SearchSimilarWithScore(ctx context.Context, embedding []float32, limit int) ([]*ScoredChunk, error)
}
