package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"wiki-rag-be/internal/dto"
	"wiki-rag-be/internal/pkg/logger"
	"wiki-rag-be/internal/refresh"
	"wiki-rag-be/internal/repository/unitofwork"
	"wiki-rag-be/pkg/events"
	pktNats "wiki-rag-be/pkg/nats"
	"wiki-rag-be/pkg/syncdiff"
	"wiki-rag-be/pkg/wiki"
)

// ErrRefreshInProgress is returned when a refresh trigger arrives while
// another refresh holds the lock.
var ErrRefreshInProgress = errors.New("a corpus refresh is already in progress")

type ISyncService interface {
	// StartRefresh diffs the remote corpus against the local index and
	// enqueues the resulting work. It returns immediately; workers index in
	// the background.
	StartRefresh(ctx context.Context) (*dto.StartRefreshResponse, error)
	Status(ctx context.Context) (*dto.RefreshStatusResponse, error)
	// HandleWebhook applies a single document change pushed by the wiki.
	HandleWebhook(ctx context.Context, payload *dto.WebhookPayload) error
}

type syncService struct {
	wikiClient       *wiki.Client
	uowFactory       unitofwork.RepositoryFactory
	publisherService IPublisherService
	indexer          IIndexerService
	refreshState     refresh.Store
	eventPublisher   *pktNats.Publisher
	batchSize        int
	logger           logger.ILogger
}

func NewSyncService(
	wikiClient *wiki.Client,
	uowFactory unitofwork.RepositoryFactory,
	publisherService IPublisherService,
	indexer IIndexerService,
	refreshState refresh.Store,
	eventPublisher *pktNats.Publisher,
	batchSize int,
	log logger.ILogger,
) ISyncService {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &syncService{
		wikiClient:       wikiClient,
		uowFactory:       uowFactory,
		publisherService: publisherService,
		indexer:          indexer,
		refreshState:     refreshState,
		eventPublisher:   eventPublisher,
		batchSize:        batchSize,
		logger:           log,
	}
}

func (ss *syncService) StartRefresh(ctx context.Context) (*dto.StartRefreshResponse, error) {
	acquired, err := ss.refreshState.AcquireLock(ctx)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, ErrRefreshInProgress
	}

	startedAt := time.Now()

	fail := func(cause error) (*dto.StartRefreshResponse, error) {
		snapshot := &refresh.StatusSnapshot{
			Status:     refresh.StatusError,
			Message:    fmt.Sprintf("corpus refresh failed: %v", cause),
			Error:      cause.Error(),
			StartedAt:  startedAt,
			FinishedAt: time.Now(),
		}
		if err := ss.refreshState.SetStatus(ctx, snapshot); err != nil {
			ss.logger.Error("sync", "failed to persist refresh status", map[string]interface{}{
				"error": err.Error(),
			})
		}
		if err := ss.refreshState.ReleaseLock(ctx); err != nil {
			ss.logger.Error("sync", "failed to release refresh lock", map[string]interface{}{
				"error": err.Error(),
			})
		}
		if ss.eventPublisher != nil {
			if err := ss.eventPublisher.Publish(ctx, events.NewRefreshFailed(cause.Error())); err != nil {
				ss.logger.Warn("sync", "failed to publish REFRESH_FAILED event", map[string]interface{}{
					"error": err.Error(),
				})
			}
		}
		return nil, cause
	}

	refs, err := ss.wikiClient.ListAll(ctx)
	if err != nil {
		return fail(err)
	}

	remote := make(map[string]string, len(refs))
	for _, ref := range refs {
		remote[ref.ID] = ref.UpdatedAt
	}

	uow := ss.uowFactory.NewUnitOfWork(ctx)
	local, err := uow.WikiDocumentRepository().ListSourceTimestamps(ctx)
	if err != nil {
		return fail(err)
	}

	diff := syncdiff.Compute(remote, local)
	taskCount := len(diff.ToAdd) + len(diff.ToUpdate)

	ss.logger.Info("sync", "refresh diff computed", map[string]interface{}{
		"remote": len(remote),
		"local":  len(local),
		"add":    len(diff.ToAdd),
		"update": len(diff.ToUpdate),
		"delete": len(diff.ToDelete),
	})

	if err := ss.refreshState.ResetCounters(ctx); err != nil {
		return fail(err)
	}
	if err := ss.refreshState.SetTotal(ctx, int64(taskCount)); err != nil {
		return fail(err)
	}
	if err := ss.refreshState.SetStatus(ctx, &refresh.StatusSnapshot{
		Status:    refresh.StatusRunning,
		Total:     int64(taskCount),
		StartedAt: startedAt,
	}); err != nil {
		return fail(err)
	}

	if ss.eventPublisher != nil {
		if err := ss.eventPublisher.Publish(ctx, events.NewRefreshStarted(diff.Total())); err != nil {
			ss.logger.Warn("sync", "failed to publish REFRESH_STARTED event", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	// Deletions are applied inline before any task is queued, so a search
	// during the refresh never hits chunks of documents already gone.
	var deleted int64
	for _, sourceId := range diff.ToDelete {
		if err := ss.indexer.RemoveDocument(ctx, sourceId); err != nil {
			ss.logger.Error("sync", "failed to remove stale document", map[string]interface{}{
				"source_id": sourceId,
				"error":     err.Error(),
			})
			continue
		}
		if deleted, err = ss.refreshState.IncrDeleted(ctx); err != nil {
			ss.logger.Error("sync", "failed to increment deleted counter", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	tasks := append(append([]string{}, diff.ToAdd...), diff.ToUpdate...)
	for start := 0; start < len(tasks); start += ss.batchSize {
		end := start + ss.batchSize
		if end > len(tasks) {
			end = len(tasks)
		}
		payload, err := json.Marshal(dto.IndexTaskMessage{
			TaskType:  dto.TaskTypeIndex,
			SourceIds: tasks[start:end],
		})
		if err != nil {
			return fail(err)
		}
		if err := ss.publisherService.Publish(ctx, payload); err != nil {
			return fail(err)
		}
	}

	if taskCount == 0 {
		// Nothing queued: no worker will ever finalize, so close out here and
		// report the terminal state to the caller.
		summary := "corpus already up to date"
		if deleted > 0 {
			summary = fmt.Sprintf("corpus refresh completed: 0 indexed, 0 skipped, %d deleted", deleted)
		}
		if first, err := ss.refreshState.TryFinalize(ctx); err == nil && first {
			snapshot := &refresh.StatusSnapshot{
				Status:     refresh.StatusSuccess,
				Message:    summary,
				Deleted:    deleted,
				StartedAt:  startedAt,
				FinishedAt: time.Now(),
			}
			if err := ss.refreshState.SetStatus(ctx, snapshot); err != nil {
				ss.logger.Error("sync", "failed to persist refresh status", map[string]interface{}{
					"error": err.Error(),
				})
			}
			if err := ss.refreshState.ReleaseLock(ctx); err != nil {
				ss.logger.Error("sync", "failed to release refresh lock", map[string]interface{}{
					"error": err.Error(),
				})
			}
			if ss.eventPublisher != nil {
				evt := events.NewRefreshCompleted(summary, 0, 0, deleted)
				if err := ss.eventPublisher.Publish(ctx, evt); err != nil {
					ss.logger.Warn("sync", "failed to publish REFRESH_COMPLETED event", map[string]interface{}{
						"error": err.Error(),
					})
				}
			}
		}
		return &dto.StartRefreshResponse{
			Status: refresh.StatusSuccess,
			Total:  0,
		}, nil
	}

	return &dto.StartRefreshResponse{
		Status: refresh.StatusRunning,
		Total:  taskCount,
	}, nil
}

func (ss *syncService) Status(ctx context.Context) (*dto.RefreshStatusResponse, error) {
	snapshot, err := ss.refreshState.GetStatus(ctx)
	if err != nil {
		return nil, err
	}

	resp := &dto.RefreshStatusResponse{
		Status:  snapshot.Status,
		Message: snapshot.Message,
		Total:   snapshot.Total,
		Indexed: snapshot.Indexed,
		Skipped: snapshot.Skipped,
		Deleted: snapshot.Deleted,
		Error:   snapshot.Error,
	}
	if !snapshot.StartedAt.IsZero() {
		t := snapshot.StartedAt
		resp.StartedAt = &t
	}
	if !snapshot.FinishedAt.IsZero() {
		t := snapshot.FinishedAt
		resp.FinishedAt = &t
	}

	// A running refresh reports the live counters, not the snapshot taken
	// when it started.
	if snapshot.Status == refresh.StatusRunning {
		total, success, skipped, deleted, err := ss.refreshState.Counters(ctx)
		if err == nil {
			resp.Total = total
			resp.Indexed = success
			resp.Skipped = skipped
			resp.Deleted = deleted
		}
	}

	return resp, nil
}

func (ss *syncService) HandleWebhook(ctx context.Context, payload *dto.WebhookPayload) error {
	switch payload.Event {
	case dto.WebhookEventDocumentDeleted:
		ss.logger.Info("sync", "webhook document delete", map[string]interface{}{
			"source_id": payload.Document.Id,
		})
		return ss.indexer.RemoveDocument(ctx, payload.Document.Id)
	case dto.WebhookEventDocumentCreated, dto.WebhookEventDocumentUpdated:
		ss.logger.Info("sync", "webhook document upsert", map[string]interface{}{
			"source_id": payload.Document.Id,
			"event":     payload.Event,
		})
		_, _, err := ss.indexer.IndexDocument(ctx, payload.Document.Id)
		return err
	default:
		ss.logger.Warn("sync", "webhook event ignored", map[string]interface{}{
			"event": payload.Event,
		})
		return nil
	}
}
