package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"wiki-rag-be/internal/dto"
	"wiki-rag-be/internal/refresh"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newConsumerForTest(indexer IIndexerService, state refresh.Store) *consumerService {
	return NewConsumerService(nil, "INDEX_WIKI_DOCUMENT", 1, indexer, state, nil, noopLogger{}).(*consumerService)
}

func indexTask(t *testing.T, ids ...string) *message.Message {
	t.Helper()
	payload, err := json.Marshal(dto.IndexTaskMessage{TaskType: dto.TaskTypeIndex, SourceIds: ids})
	require.NoError(t, err)
	return message.NewMessage(watermill.NewUUID(), payload)
}

func TestProcessMessageIsolatesFailingDocument(t *testing.T) {
	indexer := newFakeIndexer()
	indexer.failing["doc-2"] = errors.New("embedding service unavailable")

	state := &fakeRefreshState{}
	require.NoError(t, state.SetTotal(context.Background(), 3))

	cs := newConsumerForTest(indexer, state)
	cs.processMessage(context.Background(), indexTask(t, "doc-1", "doc-2", "doc-3"))

	// The failing document is skipped; its batch siblings still index.
	assert.ElementsMatch(t, []string{"doc-1", "doc-3"}, indexer.indexedIds())

	_, success, skipped, _, err := state.Counters(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), success)
	assert.Equal(t, int64(1), skipped)
}

func TestProcessMessageCountsRemovedAsSkipped(t *testing.T) {
	indexer := newFakeIndexer()
	indexer.removing["doc-1"] = true

	state := &fakeRefreshState{}
	require.NoError(t, state.SetTotal(context.Background(), 2))

	cs := newConsumerForTest(indexer, state)
	cs.processMessage(context.Background(), indexTask(t, "doc-1", "doc-2"))

	_, success, skipped, _, err := state.Counters(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), success)
	assert.Equal(t, int64(1), skipped)
}

func TestProcessMessageDropsUnknownTaskType(t *testing.T) {
	indexer := newFakeIndexer()
	state := &fakeRefreshState{}

	payload, err := json.Marshal(dto.IndexTaskMessage{TaskType: "compact", SourceIds: []string{"doc-1"}})
	require.NoError(t, err)

	cs := newConsumerForTest(indexer, state)
	cs.processMessage(context.Background(), message.NewMessage(watermill.NewUUID(), payload))

	assert.Empty(t, indexer.indexedIds())
}

func TestCheckCompletionFinalizesExactlyOnce(t *testing.T) {
	indexer := newFakeIndexer()
	state := &fakeRefreshState{}
	ctx := context.Background()

	require.NoError(t, state.SetTotal(ctx, 2))
	acquired, err := state.AcquireLock(ctx)
	require.NoError(t, err)
	require.True(t, acquired)

	cs := newConsumerForTest(indexer, state)
	cs.processMessage(ctx, indexTask(t, "doc-1"))

	// One of two documents done: not complete yet, lock still held.
	assert.Nil(t, state.lastStatus())
	assert.True(t, state.locked)

	cs.processMessage(ctx, indexTask(t, "doc-2"))

	// Both workers racing on the last document observe completion; the
	// finalize marker lets only the first one through.
	cs.checkCompletion(ctx)
	cs.checkCompletion(ctx)

	assert.Equal(t, 1, state.statusCountFor(refresh.StatusSuccess))
	assert.False(t, state.locked)

	final := state.lastStatus()
	require.NotNil(t, final)
	assert.Equal(t, refresh.StatusSuccess, final.Status)
	assert.Equal(t, "corpus refresh completed: 2 indexed, 0 skipped, 0 deleted", final.Message)
	assert.Equal(t, int64(2), final.Indexed)
	assert.False(t, final.FinishedAt.IsZero())
}
