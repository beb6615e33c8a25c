package entity

import (
	"time"

	"github.com/google/uuid"
)

// WikiDocument is the local mirror of one remote document: the parent
// snapshot used to expand retrieved chunks back to source context.
// SourceUpdatedAt keeps the exact timestamp string the source provided; the
// diff engine compares against it, never a recomputed value.
type WikiDocument struct {
	Id              uuid.UUID
	SourceId        string
	Title           string
	Content         string
	SourceURL       string
	SourceUpdatedAt string
	SyncedAt        time.Time
	CreatedAt       time.Time
	UpdatedAt       *time.Time
}

// DocumentChunk is one retrieval-sized unit of a WikiDocument, owned
// exclusively by it. The chunk set for a document is always replaced whole.
type DocumentChunk struct {
	Id             uuid.UUID
	SourceId       string
	ChunkIndex     int
	Content        string
	HeadingPath    []string
	EmbeddingValue []float32
	CreatedAt      time.Time
}
