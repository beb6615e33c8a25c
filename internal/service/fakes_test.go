package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"wiki-rag-be/internal/entity"
	"wiki-rag-be/internal/refresh"
	"wiki-rag-be/internal/repository/contract"
	"wiki-rag-be/internal/repository/specification"
	"wiki-rag-be/internal/repository/unitofwork"
	"wiki-rag-be/pkg/llm"

	"github.com/google/uuid"
)

// In-memory repositories. Specifications are interpreted structurally since
// there is no SQL to apply them to.

type fakeStore struct {
	mu        sync.Mutex
	documents map[string]*entity.WikiDocument // by source id
	chunks    map[string][]*entity.DocumentChunk
	sessions  map[uuid.UUID]*entity.ChatSession
	messages  []*entity.ChatMessage

	searchResults []*contract.ScoredChunk
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		documents: make(map[string]*entity.WikiDocument),
		chunks:    make(map[string][]*entity.DocumentChunk),
		sessions:  make(map[uuid.UUID]*entity.ChatSession),
	}
}

type fakeFactory struct {
	store *fakeStore
}

func (f *fakeFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return &fakeUow{store: f.store}
}

type fakeUow struct {
	store *fakeStore
}

func (u *fakeUow) Begin(ctx context.Context) error { return nil }
func (u *fakeUow) Commit() error                   { return nil }
func (u *fakeUow) Rollback() error                 { return nil }

func (u *fakeUow) WikiDocumentRepository() contract.WikiDocumentRepository {
	return &fakeDocumentRepo{store: u.store}
}

func (u *fakeUow) DocumentChunkRepository() contract.DocumentChunkRepository {
	return &fakeChunkRepo{store: u.store}
}

func (u *fakeUow) ChatSessionRepository() contract.ChatSessionRepository {
	return &fakeSessionRepo{store: u.store}
}

func (u *fakeUow) ChatMessageRepository() contract.ChatMessageRepository {
	return &fakeMessageRepo{store: u.store}
}

type fakeDocumentRepo struct {
	store *fakeStore
}

func (r *fakeDocumentRepo) Upsert(ctx context.Context, doc *entity.WikiDocument) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	copied := *doc
	r.store.documents[doc.SourceId] = &copied
	return nil
}

func (r *fakeDocumentRepo) DeleteBySourceId(ctx context.Context, sourceId string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	delete(r.store.documents, sourceId)
	return nil
}

func (r *fakeDocumentRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.WikiDocument, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, spec := range specs {
		if s, ok := spec.(specification.BySourceID); ok {
			if doc, found := r.store.documents[s.SourceID]; found {
				copied := *doc
				return &copied, nil
			}
			return nil, nil
		}
	}
	return nil, nil
}

func (r *fakeDocumentRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.WikiDocument, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := make([]*entity.WikiDocument, 0, len(r.store.documents))
	for _, doc := range r.store.documents {
		copied := *doc
		out = append(out, &copied)
	}
	return out, nil
}

func (r *fakeDocumentRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return int64(len(r.store.documents)), nil
}

func (r *fakeDocumentRepo) ListSourceTimestamps(ctx context.Context) (map[string]string, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := make(map[string]string, len(r.store.documents))
	for sourceId, doc := range r.store.documents {
		out[sourceId] = doc.SourceUpdatedAt
	}
	return out, nil
}

type fakeChunkRepo struct {
	store *fakeStore
}

func (r *fakeChunkRepo) CreateBulk(ctx context.Context, chunks []*entity.DocumentChunk) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, c := range chunks {
		copied := *c
		r.store.chunks[c.SourceId] = append(r.store.chunks[c.SourceId], &copied)
	}
	return nil
}

func (r *fakeChunkRepo) DeleteBySourceId(ctx context.Context, sourceId string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	delete(r.store.chunks, sourceId)
	return nil
}

func (r *fakeChunkRepo) CountBySourceId(ctx context.Context, sourceId string) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return int64(len(r.store.chunks[sourceId])), nil
}

func (r *fakeChunkRepo) SearchSimilarWithScore(ctx context.Context, embedding []float32, limit int) ([]*contract.ScoredChunk, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if limit < len(r.store.searchResults) {
		return r.store.searchResults[:limit], nil
	}
	return r.store.searchResults, nil
}

type fakeSessionRepo struct {
	store *fakeStore
}

func (r *fakeSessionRepo) Create(ctx context.Context, session *entity.ChatSession) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	copied := *session
	r.store.sessions[session.Id] = &copied
	return nil
}

func (r *fakeSessionRepo) Update(ctx context.Context, session *entity.ChatSession) error {
	return r.Create(ctx, session)
}

func (r *fakeSessionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	delete(r.store.sessions, id)
	return nil
}

func (r *fakeSessionRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatSession, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, spec := range specs {
		if s, ok := spec.(specification.ByID); ok {
			if session, found := r.store.sessions[s.ID]; found {
				copied := *session
				return &copied, nil
			}
		}
	}
	return nil, nil
}

func (r *fakeSessionRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatSession, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := make([]*entity.ChatSession, 0, len(r.store.sessions))
	for _, session := range r.store.sessions {
		copied := *session
		out = append(out, &copied)
	}
	return out, nil
}

type fakeMessageRepo struct {
	store *fakeStore
}

func (r *fakeMessageRepo) Create(ctx context.Context, message *entity.ChatMessage) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	copied := *message
	r.store.messages = append(r.store.messages, &copied)
	return nil
}

func (r *fakeMessageRepo) Update(ctx context.Context, message *entity.ChatMessage) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for i, m := range r.store.messages {
		if m.Id == message.Id {
			copied := *message
			r.store.messages[i] = &copied
		}
	}
	return nil
}

func (r *fakeMessageRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatMessage, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, spec := range specs {
		if s, ok := spec.(specification.ByID); ok {
			for _, m := range r.store.messages {
				if m.Id == s.ID {
					copied := *m
					return &copied, nil
				}
			}
		}
	}
	return nil, nil
}

func (r *fakeMessageRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatMessage, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var sessionId *uuid.UUID
	for _, spec := range specs {
		if s, ok := spec.(specification.ByChatSessionID); ok {
			id := s.ChatSessionID
			sessionId = &id
		}
	}

	out := make([]*entity.ChatMessage, 0, len(r.store.messages))
	for _, m := range r.store.messages {
		if sessionId != nil && m.ChatSessionId != *sessionId {
			continue
		}
		copied := *m
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeMessageRepo) DeleteByChatSessionId(ctx context.Context, sessionId uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	kept := r.store.messages[:0]
	for _, m := range r.store.messages {
		if m.ChatSessionId != sessionId {
			kept = append(kept, m)
		}
	}
	r.store.messages = kept
	return nil
}

func (r *fakeMessageRepo) DeleteAfter(ctx context.Context, sessionId uuid.UUID, after time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	kept := r.store.messages[:0]
	for _, m := range r.store.messages {
		if m.ChatSessionId == sessionId && !m.CreatedAt.Before(after) {
			continue
		}
		kept = append(kept, m)
	}
	r.store.messages = kept
	return nil
}

// AI fakes.

type fakeEmbedder struct {
	dim int
}

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	dim := f.dim
	if dim == 0 {
		dim = 8
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, dim)
		out[i][0] = float32(i + 1)
	}
	return out, nil
}

type fakeLLM struct {
	generateReply string
	streamEvents  []llm.StreamEvent
}

func (f *fakeLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return f.generateReply, nil
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return f.generateReply, nil
}

func (f *fakeLLM) ChatStream(ctx context.Context, history []llm.Message, options ...llm.Option) (<-chan llm.StreamEvent, error) {
	out := make(chan llm.StreamEvent)
	go func() {
		defer close(out)
		for _, event := range f.streamEvents {
			out <- event
		}
	}()
	return out, nil
}

// In-memory refresh progress store.

type fakeRefreshState struct {
	mu        sync.Mutex
	locked    bool
	finalized bool
	total     int64
	success   int64
	skipped   int64
	deleted   int64
	statuses  []refresh.StatusSnapshot
}

func (f *fakeRefreshState) AcquireLock(ctx context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.locked {
		return false, nil
	}
	f.locked = true
	return true, nil
}

func (f *fakeRefreshState) ReleaseLock(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.locked = false
	return nil
}

func (f *fakeRefreshState) ResetCounters(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.total, f.success, f.skipped, f.deleted = 0, 0, 0, 0
	f.finalized = false
	return nil
}

func (f *fakeRefreshState) SetTotal(ctx context.Context, total int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.total = total
	return nil
}

func (f *fakeRefreshState) IncrSuccess(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.success++
	return f.success, nil
}

func (f *fakeRefreshState) IncrSkipped(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.skipped++
	return f.skipped, nil
}

func (f *fakeRefreshState) IncrDeleted(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted++
	return f.deleted, nil
}

func (f *fakeRefreshState) Counters(ctx context.Context) (int64, int64, int64, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.total, f.success, f.skipped, f.deleted, nil
}

func (f *fakeRefreshState) TryFinalize(ctx context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.finalized {
		return false, nil
	}
	f.finalized = true
	return true, nil
}

func (f *fakeRefreshState) SetStatus(ctx context.Context, snapshot *refresh.StatusSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, *snapshot)
	return nil
}

func (f *fakeRefreshState) GetStatus(ctx context.Context) (*refresh.StatusSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.statuses) == 0 {
		return &refresh.StatusSnapshot{Status: refresh.StatusIdle}, nil
	}
	latest := f.statuses[len(f.statuses)-1]
	return &latest, nil
}

func (f *fakeRefreshState) lastStatus() *refresh.StatusSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.statuses) == 0 {
		return nil
	}
	latest := f.statuses[len(f.statuses)-1]
	return &latest
}

func (f *fakeRefreshState) statusCountFor(status string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, s := range f.statuses {
		if s.Status == status {
			count++
		}
	}
	return count
}

// Scriptable indexer.

type fakeIndexer struct {
	mu       sync.Mutex
	failing  map[string]error
	removing map[string]bool
	indexed  []string
	removed  []string
}

func newFakeIndexer() *fakeIndexer {
	return &fakeIndexer{
		failing:  make(map[string]error),
		removing: make(map[string]bool),
	}
}

func (f *fakeIndexer) IndexDocument(ctx context.Context, sourceId string) (int, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failing[sourceId]; err != nil {
		return 0, false, err
	}
	if f.removing[sourceId] {
		f.removed = append(f.removed, sourceId)
		return 0, true, nil
	}
	f.indexed = append(f.indexed, sourceId)
	return 3, false, nil
}

func (f *fakeIndexer) RemoveDocument(ctx context.Context, sourceId string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, sourceId)
	return nil
}

func (f *fakeIndexer) indexedIds() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.indexed...)
}
