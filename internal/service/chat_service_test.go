package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"wiki-rag-be/internal/constant"
	"wiki-rag-be/internal/dto"
	"wiki-rag-be/internal/entity"
	"wiki-rag-be/internal/repository/contract"
	"wiki-rag-be/pkg/llm"
	"wiki-rag-be/pkg/reranker"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noopLogger struct{}

func (noopLogger) Debug(module, message string, details map[string]interface{}) {}
func (noopLogger) Info(module, message string, details map[string]interface{})  {}
func (noopLogger) Warn(module, message string, details map[string]interface{})  {}
func (noopLogger) Error(module, message string, details map[string]interface{}) {}
func (noopLogger) Sync() error { return nil }

func newChatServiceForTest(store *fakeStore, provider llm.Provider) IChatService {
	return NewChatService(
		&fakeFactory{store: store},
		&fakeEmbedder{},
		provider,
		reranker.NewPassthrough(),
		DefaultRetrievalConfig(),
		noopLogger{},
	)
}

func seedSearchResults(store *fakeStore) {
	store.searchResults = []*contract.ScoredChunk{
		{
			Chunk: &entity.DocumentChunk{
				Id:       uuid.New(),
				SourceId: "doc-1",
				Content:  "Employees get 25 vacation days per year.",
			},
			Similarity: 0.91,
		},
	}
	store.documents["doc-1"] = &entity.WikiDocument{
		Id:       uuid.New(),
		SourceId: "doc-1",
		Title:    "Vacation Policy",
	}
}

func drain(t *testing.T, stream <-chan llm.StreamEvent) []llm.StreamEvent {
	t.Helper()
	var got []llm.StreamEvent
	for event := range stream {
		got = append(got, event)
	}
	return got
}

func sessionMessages(store *fakeStore, sessionId uuid.UUID) []*entity.ChatMessage {
	repo := &fakeMessageRepo{store: store}
	msgs, _ := repo.FindAll(context.Background())
	var out []*entity.ChatMessage
	for _, m := range msgs {
		if m.ChatSessionId == sessionId {
			out = append(out, m)
		}
	}
	return out
}

func TestSendChatStreamsAndPersistsAnswer(t *testing.T) {
	store := newFakeStore()
	seedSearchResults(store)

	provider := &fakeLLM{
		generateReply: "Vacation days",
		streamEvents: []llm.StreamEvent{
			llm.ThinkingEvent("The policy chunk mentions 25 days."),
			llm.ContentEvent("Employees get "),
			llm.ContentEvent("25 vacation days."),
			llm.DoneEvent(),
		},
	}
	svc := newChatServiceForTest(store, provider)

	created, err := svc.CreateSession(context.Background())
	require.NoError(t, err)

	stream, err := svc.SendChat(context.Background(), &dto.SendChatRequest{
		ChatSessionId: created.Id,
		Chat:          "How many vacation days do I get?",
	})
	require.NoError(t, err)

	got := drain(t, stream)
	require.Len(t, got, 4)
	assert.Equal(t, llm.EventThinking, got[0].Kind)
	assert.Equal(t, llm.EventDone, got[3].Kind)

	msgs := sessionMessages(store, created.Id)
	require.Len(t, msgs, 2)
	assert.Equal(t, constant.ChatMessageRoleUser, msgs[0].Role)
	assert.Equal(t, "How many vacation days do I get?", msgs[0].Content)
	assert.Equal(t, constant.ChatMessageRoleModel, msgs[1].Role)
	// Thinking deltas must not leak into the stored answer.
	assert.Equal(t, "Employees get 25 vacation days.", msgs[1].Content)
}

func TestSendChatPersistsPartialAnswerOnStreamError(t *testing.T) {
	store := newFakeStore()
	seedSearchResults(store)

	provider := &fakeLLM{
		generateReply: "Vacation days",
		streamEvents: []llm.StreamEvent{
			llm.ContentEvent("Hello, the ans"),
			llm.ErrorEvent(errors.New("connection reset")),
		},
	}
	svc := newChatServiceForTest(store, provider)

	created, err := svc.CreateSession(context.Background())
	require.NoError(t, err)

	stream, err := svc.SendChat(context.Background(), &dto.SendChatRequest{
		ChatSessionId: created.Id,
		Chat:          "Hi?",
	})
	require.NoError(t, err)
	drain(t, stream)

	msgs := sessionMessages(store, created.Id)
	require.Len(t, msgs, 2)
	assert.Equal(t, "Hello, the ans", msgs[1].Content)
}

func TestSendChatEditRegeneratesFromMessage(t *testing.T) {
	store := newFakeStore()
	seedSearchResults(store)

	provider := &fakeLLM{
		generateReply: "Vacation days",
		streamEvents: []llm.StreamEvent{
			llm.ContentEvent("New answer."),
			llm.DoneEvent(),
		},
	}
	svc := newChatServiceForTest(store, provider)

	created, err := svc.CreateSession(context.Background())
	require.NoError(t, err)

	base := time.Now().Add(-time.Hour)
	editedId := uuid.New()
	repo := &fakeMessageRepo{store: store}
	seed := []*entity.ChatMessage{
		{Id: uuid.New(), ChatSessionId: created.Id, Role: constant.ChatMessageRoleUser, Content: "first question", CreatedAt: base},
		{Id: uuid.New(), ChatSessionId: created.Id, Role: constant.ChatMessageRoleModel, Content: "first answer", CreatedAt: base.Add(time.Second)},
		{Id: editedId, ChatSessionId: created.Id, Role: constant.ChatMessageRoleUser, Content: "old second question", CreatedAt: base.Add(2 * time.Second)},
		{Id: uuid.New(), ChatSessionId: created.Id, Role: constant.ChatMessageRoleModel, Content: "old second answer", CreatedAt: base.Add(3 * time.Second)},
	}
	for _, m := range seed {
		require.NoError(t, repo.Create(context.Background(), m))
	}

	stream, err := svc.SendChat(context.Background(), &dto.SendChatRequest{
		ChatSessionId: created.Id,
		Chat:          "new second question",
		EditMessageId: &editedId,
	})
	require.NoError(t, err)
	drain(t, stream)

	msgs := sessionMessages(store, created.Id)
	require.Len(t, msgs, 4)
	assert.Equal(t, "first question", msgs[0].Content)
	assert.Equal(t, "first answer", msgs[1].Content)
	assert.Equal(t, "new second question", msgs[2].Content)
	assert.Equal(t, "New answer.", msgs[3].Content)
}

func TestSendChatUnknownSession(t *testing.T) {
	store := newFakeStore()
	svc := newChatServiceForTest(store, &fakeLLM{})

	_, err := svc.SendChat(context.Background(), &dto.SendChatRequest{
		ChatSessionId: uuid.New(),
		Chat:          "hello",
	})
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestDeleteSessionRemovesMessages(t *testing.T) {
	store := newFakeStore()
	svc := newChatServiceForTest(store, &fakeLLM{})

	created, err := svc.CreateSession(context.Background())
	require.NoError(t, err)

	repo := &fakeMessageRepo{store: store}
	require.NoError(t, repo.Create(context.Background(), &entity.ChatMessage{
		Id:            uuid.New(),
		ChatSessionId: created.Id,
		Role:          constant.ChatMessageRoleUser,
		Content:       "hello",
		CreatedAt:     time.Now(),
	}))

	require.NoError(t, svc.DeleteSession(context.Background(), &dto.DeleteSessionRequest{ChatSessionId: created.Id}))

	assert.Empty(t, sessionMessages(store, created.Id))
	_, err = svc.GetChatHistory(context.Background(), created.Id)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
