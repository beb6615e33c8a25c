package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"wiki-rag-be/internal/dto"
	"wiki-rag-be/internal/pkg/logger"
	"wiki-rag-be/internal/refresh"
	"wiki-rag-be/pkg/events"
	pktNats "wiki-rag-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	pubSub         *gochannel.GoChannel
	topicName      string
	workerCount    int
	indexer        IIndexerService
	refreshState   refresh.Store
	eventPublisher *pktNats.Publisher
	logger         logger.ILogger
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	workerCount int,
	indexer IIndexerService,
	refreshState refresh.Store,
	eventPublisher *pktNats.Publisher,
	log logger.ILogger,
) IConsumerService {
	if workerCount <= 0 {
		workerCount = 4
	}
	return &consumerService{
		pubSub:         pubSub,
		topicName:      topicName,
		workerCount:    workerCount,
		indexer:        indexer,
		refreshState:   refreshState,
		eventPublisher: eventPublisher,
		logger:         log,
	}
}

// Consume starts the worker pool draining the indexing topic. Workers run
// until the subscription channel closes.
func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	for i := 0; i < cs.workerCount; i++ {
		go func() {
			for msg := range messages {
				cs.processMessage(ctx, msg)
			}
		}()
	}

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.IndexTaskMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error("consumer", "failed to unmarshal indexing task", map[string]interface{}{
			"error": err.Error(),
		})
		msg.Ack() // invalid payloads would retry forever
		return
	}
	if payload.TaskType != dto.TaskTypeIndex {
		cs.logger.Warn("consumer", "unknown task type, dropping", map[string]interface{}{
			"task_type": payload.TaskType,
		})
		msg.Ack()
		return
	}

	for _, sourceId := range payload.SourceIds {
		cs.processDocument(ctx, sourceId)
	}

	msg.Ack()
	cs.checkCompletion(ctx)
}

func (cs *consumerService) processDocument(ctx context.Context, sourceId string) {
	chunkCount, removed, err := cs.indexer.IndexDocument(ctx, sourceId)
	if err != nil {
		// One bad document never aborts the refresh; it counts as skipped
		// and its batch siblings still get processed.
		cs.logger.Error("consumer", "failed to index document", map[string]interface{}{
			"source_id": sourceId,
			"error":     err.Error(),
		})
		if _, err := cs.refreshState.IncrSkipped(ctx); err != nil {
			cs.logger.Error("consumer", "failed to increment skipped counter", map[string]interface{}{
				"error": err.Error(),
			})
		}
		return
	}

	if removed {
		cs.logger.Info("consumer", "document removed during indexing", map[string]interface{}{
			"source_id": sourceId,
		})
		if _, err := cs.refreshState.IncrSkipped(ctx); err != nil {
			cs.logger.Error("consumer", "failed to increment skipped counter", map[string]interface{}{
				"error": err.Error(),
			})
		}
		return
	}

	cs.logger.Info("consumer", "document indexed", map[string]interface{}{
		"source_id": sourceId,
		"chunks":    chunkCount,
	})
	if _, err := cs.refreshState.IncrSuccess(ctx); err != nil {
		cs.logger.Error("consumer", "failed to increment success counter", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// checkCompletion finalizes the refresh once every published task is
// accounted for. Several workers may see the last task complete; the redis
// marker guarantees a single finalizer.
func (cs *consumerService) checkCompletion(ctx context.Context) {
	total, success, skipped, deleted, err := cs.refreshState.Counters(ctx)
	if err != nil {
		cs.logger.Error("consumer", "failed to read refresh counters", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	if total == 0 || success+skipped < total {
		return
	}

	first, err := cs.refreshState.TryFinalize(ctx)
	if err != nil {
		cs.logger.Error("consumer", "failed to finalize refresh", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	if !first {
		return
	}

	prev, err := cs.refreshState.GetStatus(ctx)
	startedAt := time.Now()
	if err == nil && !prev.StartedAt.IsZero() {
		startedAt = prev.StartedAt
	}

	summary := fmt.Sprintf("corpus refresh completed: %d indexed, %d skipped, %d deleted", success, skipped, deleted)

	snapshot := &refresh.StatusSnapshot{
		Status:     refresh.StatusSuccess,
		Message:    summary,
		Total:      total,
		Indexed:    success,
		Skipped:    skipped,
		Deleted:    deleted,
		StartedAt:  startedAt,
		FinishedAt: time.Now(),
	}
	if err := cs.refreshState.SetStatus(ctx, snapshot); err != nil {
		cs.logger.Error("consumer", "failed to persist refresh status", map[string]interface{}{
			"error": err.Error(),
		})
	}
	if err := cs.refreshState.ReleaseLock(ctx); err != nil {
		cs.logger.Error("consumer", "failed to release refresh lock", map[string]interface{}{
			"error": err.Error(),
		})
	}

	cs.logger.Info("consumer", "refresh completed", map[string]interface{}{
		"total":   total,
		"indexed": success,
		"skipped": skipped,
		"deleted": deleted,
	})

	if cs.eventPublisher != nil {
		evt := events.NewRefreshCompleted(summary, success, skipped, deleted)
		if err := cs.eventPublisher.Publish(ctx, evt); err != nil {
			cs.logger.Warn("consumer", "failed to publish REFRESH_COMPLETED event", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
}
