package contract

import (
	"context"

	"wiki-rag-be/internal/entity"
	"wiki-rag-be/internal/repository/specification"
)

type WikiDocumentRepository interface {
	// Upsert inserts the snapshot or replaces the existing row with the same
	// source id.
	Upsert(ctx context.Context, doc *entity.WikiDocument) error
	DeleteBySourceId(ctx context.Context, sourceId string) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.WikiDocument, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.WikiDocument, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	// ListSourceTimestamps returns source_id -> stored source updated_at for
	// the whole local index; the diff engine's local side.
	ListSourceTimestamps(ctx context.Context) (map[string]string, error)
}
