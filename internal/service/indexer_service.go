package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"wiki-rag-be/internal/entity"
	"wiki-rag-be/internal/pkg/logger"
	"wiki-rag-be/internal/repository/unitofwork"
	"wiki-rag-be/pkg/chunker"
	"wiki-rag-be/pkg/embedding"
	"wiki-rag-be/pkg/events"
	pktNats "wiki-rag-be/pkg/nats"
	"wiki-rag-be/pkg/wiki"

	"github.com/google/uuid"
)

// IIndexerService replaces the indexed form of a single document: fetch,
// chunk, embed, then swap the chunk set atomically.
type IIndexerService interface {
	// IndexDocument indexes one document by source id. removed reports that
	// the document is gone (or empty) at the source and was deleted locally
	// instead of indexed.
	IndexDocument(ctx context.Context, sourceId string) (chunkCount int, removed bool, err error)
	// RemoveDocument deletes the local snapshot and chunks for a source id.
	RemoveDocument(ctx context.Context, sourceId string) error
}

type indexerService struct {
	wikiClient        *wiki.Client
	chunker           *chunker.Chunker
	embeddingProvider embedding.Provider
	uowFactory        unitofwork.RepositoryFactory
	eventPublisher    *pktNats.Publisher
	logger            logger.ILogger
}

func NewIndexerService(
	wikiClient *wiki.Client,
	ch *chunker.Chunker,
	embeddingProvider embedding.Provider,
	uowFactory unitofwork.RepositoryFactory,
	eventPublisher *pktNats.Publisher,
	log logger.ILogger,
) IIndexerService {
	return &indexerService{
		wikiClient:        wikiClient,
		chunker:           ch,
		embeddingProvider: embeddingProvider,
		uowFactory:        uowFactory,
		eventPublisher:    eventPublisher,
		logger:            log,
	}
}

func (is *indexerService) IndexDocument(ctx context.Context, sourceId string) (int, bool, error) {
	doc, err := is.wikiClient.Get(ctx, sourceId)
	if err != nil {
		if errors.Is(err, wiki.ErrNotFound) {
			if err := is.RemoveDocument(ctx, sourceId); err != nil {
				return 0, false, err
			}
			return 0, true, nil
		}
		return 0, false, fmt.Errorf("fetch document %s: %w", sourceId, err)
	}

	// A document with no body cannot produce chunks; it leaves the index
	// entirely so stale chunks never survive a content wipe.
	if strings.TrimSpace(doc.Content) == "" {
		is.logger.Info("indexer", "document has no content, removing from index", map[string]interface{}{
			"source_id": sourceId,
		})
		if err := is.RemoveDocument(ctx, sourceId); err != nil {
			return 0, false, err
		}
		return 0, true, nil
	}

	chunks := is.chunker.Split(doc.Content)

	inputs := make([]string, len(chunks))
	for i, c := range chunks {
		inputs[i] = chunker.EmbeddingInput(doc.Title, c.Text)
	}

	vectors, err := is.embeddingProvider.Embed(ctx, inputs)
	if err != nil {
		return 0, false, fmt.Errorf("embed document %s: %w", sourceId, err)
	}
	if len(vectors) != len(chunks) {
		return 0, false, fmt.Errorf("embed document %s: got %d vectors for %d chunks", sourceId, len(vectors), len(chunks))
	}

	now := time.Now()
	document := entity.WikiDocument{
		Id:              uuid.New(),
		SourceId:        doc.ID,
		Title:           doc.Title,
		Content:         doc.Content,
		SourceURL:       doc.URL,
		SourceUpdatedAt: doc.UpdatedAt,
		SyncedAt:        now,
		CreatedAt:       now,
	}

	newChunks := make([]*entity.DocumentChunk, len(chunks))
	for i, c := range chunks {
		newChunks[i] = &entity.DocumentChunk{
			Id:             uuid.New(),
			SourceId:       doc.ID,
			ChunkIndex:     c.Index,
			Content:        c.Text,
			HeadingPath:    c.HeadingPath,
			EmbeddingValue: vectors[i],
			CreatedAt:      now,
		}
	}

	uow := is.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return 0, false, err
	}
	defer uow.Rollback()

	if err := uow.WikiDocumentRepository().Upsert(ctx, &document); err != nil {
		return 0, false, fmt.Errorf("upsert document %s: %w", sourceId, err)
	}
	if err := uow.DocumentChunkRepository().DeleteBySourceId(ctx, doc.ID); err != nil {
		return 0, false, fmt.Errorf("delete old chunks of %s: %w", sourceId, err)
	}
	if err := uow.DocumentChunkRepository().CreateBulk(ctx, newChunks); err != nil {
		return 0, false, fmt.Errorf("create chunks of %s: %w", sourceId, err)
	}

	if err := uow.Commit(); err != nil {
		return 0, false, err
	}

	if is.eventPublisher != nil {
		evt := events.NewDocumentIndexed(doc.ID, doc.Title, len(newChunks))
		if err := is.eventPublisher.Publish(ctx, evt); err != nil {
			is.logger.Warn("indexer", "failed to publish DOCUMENT_INDEXED event", map[string]interface{}{
				"source_id": doc.ID,
				"error":     err.Error(),
			})
		}
	}

	return len(newChunks), false, nil
}

func (is *indexerService) RemoveDocument(ctx context.Context, sourceId string) error {
	uow := is.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.DocumentChunkRepository().DeleteBySourceId(ctx, sourceId); err != nil {
		return fmt.Errorf("delete chunks of %s: %w", sourceId, err)
	}
	if err := uow.WikiDocumentRepository().DeleteBySourceId(ctx, sourceId); err != nil {
		return fmt.Errorf("delete document %s: %w", sourceId, err)
	}

	if err := uow.Commit(); err != nil {
		return err
	}

	if is.eventPublisher != nil {
		if err := is.eventPublisher.Publish(ctx, events.NewDocumentRemoved(sourceId)); err != nil {
			is.logger.Warn("indexer", "failed to publish DOCUMENT_REMOVED event", map[string]interface{}{
				"source_id": sourceId,
				"error":     err.Error(),
			})
		}
	}

	return nil
}
