package implementation

import (
	"context"
	"errors"

	"wiki-rag-be/internal/entity"
	"wiki-rag-be/internal/mapper"
	"wiki-rag-be/internal/model"
	"wiki-rag-be/internal/repository/contract"
	"wiki-rag-be/internal/repository/specification"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WikiDocumentRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.DocumentMapper
}

func NewWikiDocumentRepository(db *gorm.DB) contract.WikiDocumentRepository {
	return &WikiDocumentRepositoryImpl{
		db:     db,
		mapper: mapper.NewDocumentMapper(),
	}
}

func (r *WikiDocumentRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *WikiDocumentRepositoryImpl) Upsert(ctx context.Context, doc *entity.WikiDocument) error {
	m := r.mapper.ToModel(doc)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "source_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"title", "content", "source_url", "source_updated_at", "synced_at", "updated_at",
			}),
		}).
		Create(m).Error
	if err != nil {
		return err
	}
	*doc = *r.mapper.ToEntity(m)
	return nil
}

func (r *WikiDocumentRepositoryImpl) DeleteBySourceId(ctx context.Context, sourceId string) error {
	return r.db.WithContext(ctx).Where("source_id = ?", sourceId).Delete(&model.WikiDocument{}).Error
}

func (r *WikiDocumentRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.WikiDocument, error) {
	var m model.WikiDocument
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *WikiDocumentRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.WikiDocument, error) {
	var models []*model.WikiDocument
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.WikiDocument, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ToEntity(m)
	}
	return entities, nil
}

func (r *WikiDocumentRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	err := query.Model(&model.WikiDocument{}).Count(&count).Error
	return count, err
}

func (r *WikiDocumentRepositoryImpl) ListSourceTimestamps(ctx context.Context) (map[string]string, error) {
	type row struct {
		SourceId        string
		SourceUpdatedAt string
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Model(&model.WikiDocument{}).
		Select("source_id", "source_updated_at").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make(map[string]string, len(rows))
	for _, rec := range rows {
		out[rec.SourceId] = rec.SourceUpdatedAt
	}
	return out, nil
}
