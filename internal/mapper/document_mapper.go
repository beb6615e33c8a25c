package mapper

import (
	"encoding/json"
	"time"

	"wiki-rag-be/internal/entity"
	"wiki-rag-be/internal/model"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

type DocumentMapper struct{}

func NewDocumentMapper() *DocumentMapper {
	return &DocumentMapper{}
}

func (m *DocumentMapper) ToEntity(d *model.WikiDocument) *entity.WikiDocument {
	if d == nil {
		return nil
	}

	var updatedAt *time.Time
	if !d.UpdatedAt.IsZero() {
		t := d.UpdatedAt
		updatedAt = &t
	}

	return &entity.WikiDocument{
		Id:              d.Id,
		SourceId:        d.SourceId,
		Title:           d.Title,
		Content:         d.Content,
		SourceURL:       d.SourceURL,
		SourceUpdatedAt: d.SourceUpdatedAt,
		SyncedAt:        d.SyncedAt,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       updatedAt,
	}
}

func (m *DocumentMapper) ToModel(d *entity.WikiDocument) *model.WikiDocument {
	if d == nil {
		return nil
	}

	var updatedAt time.Time
	if d.UpdatedAt != nil {
		updatedAt = *d.UpdatedAt
	}

	return &model.WikiDocument{
		Id:              d.Id,
		SourceId:        d.SourceId,
		Title:           d.Title,
		Content:         d.Content,
		SourceURL:       d.SourceURL,
		SourceUpdatedAt: d.SourceUpdatedAt,
		SyncedAt:        d.SyncedAt,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       updatedAt,
	}
}

type ChunkMapper struct{}

func NewChunkMapper() *ChunkMapper {
	return &ChunkMapper{}
}

func (m *ChunkMapper) ToEntity(c *model.DocumentChunk) *entity.DocumentChunk {
	if c == nil {
		return nil
	}

	var headingPath []string
	if len(c.HeadingPath) > 0 {
		// A corrupt heading path is cosmetic; ignore rather than fail the read.
		_ = json.Unmarshal(c.HeadingPath, &headingPath)
	}

	return &entity.DocumentChunk{
		Id:             c.Id,
		SourceId:       c.SourceId,
		ChunkIndex:     c.ChunkIndex,
		Content:        c.Content,
		HeadingPath:    headingPath,
		EmbeddingValue: c.EmbeddingValue.Slice(),
		CreatedAt:      c.CreatedAt,
	}
}

func (m *ChunkMapper) ToModel(c *entity.DocumentChunk) *model.DocumentChunk {
	if c == nil {
		return nil
	}

	var headingPath datatypes.JSON
	if len(c.HeadingPath) > 0 {
		if raw, err := json.Marshal(c.HeadingPath); err == nil {
			headingPath = raw
		}
	}

	return &model.DocumentChunk{
		Id:             c.Id,
		SourceId:       c.SourceId,
		ChunkIndex:     c.ChunkIndex,
		Content:        c.Content,
		HeadingPath:    headingPath,
		EmbeddingValue: pgvector.NewVector(c.EmbeddingValue),
		CreatedAt:      c.CreatedAt,
	}
}

func (m *ChunkMapper) ToModels(chunks []*entity.DocumentChunk) []*model.DocumentChunk {
	models := make([]*model.DocumentChunk, len(chunks))
	for i, c := range chunks {
		models[i] = m.ToModel(c)
	}
	return models
}
