package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"wiki-rag-be/internal/constant"
	"wiki-rag-be/internal/dto"
	"wiki-rag-be/internal/entity"
	"wiki-rag-be/internal/pkg/logger"
	"wiki-rag-be/internal/repository/specification"
	"wiki-rag-be/internal/repository/unitofwork"
	"wiki-rag-be/pkg/embedding"
	"wiki-rag-be/pkg/llm"
	"wiki-rag-be/pkg/rag"
	"wiki-rag-be/pkg/reranker"

	"github.com/google/uuid"
)

var (
	ErrSessionNotFound = errors.New("chat session not found")
	ErrMessageNotFound = errors.New("chat message not found")
)

// RetrievalConfig bounds the retrieval pipeline feeding generation.
type RetrievalConfig struct {
	CandidateLimit    int // chunks pulled from the vector search
	SelectedPassages  int // passages kept after reranking
	ContextCharBudget int // total characters of assembled context
}

func DefaultRetrievalConfig() RetrievalConfig {
	return RetrievalConfig{
		CandidateLimit:    12,
		SelectedPassages:  6,
		ContextCharBudget: 12000,
	}
}

type IChatService interface {
	CreateSession(ctx context.Context) (*dto.CreateSessionResponse, error)
	GetAllSessions(ctx context.Context) ([]*dto.GetAllSessionsResponse, error)
	GetChatHistory(ctx context.Context, sessionId uuid.UUID) ([]*dto.GetChatHistoryResponse, error)
	DeleteSession(ctx context.Context, request *dto.DeleteSessionRequest) error
	// SendChat runs the retrieval pipeline and streams the generated answer.
	// The returned channel closes after a Done or Error event; the exchange
	// is persisted either way, with whatever content arrived.
	SendChat(ctx context.Context, request *dto.SendChatRequest) (<-chan llm.StreamEvent, error)
}

type chatService struct {
	uowFactory        unitofwork.RepositoryFactory
	embeddingProvider embedding.Provider
	llmProvider       llm.Provider
	rewriter          *rag.Rewriter
	reranker          reranker.Reranker
	retrieval         RetrievalConfig
	logger            logger.ILogger
}

func NewChatService(
	uowFactory unitofwork.RepositoryFactory,
	embeddingProvider embedding.Provider,
	llmProvider llm.Provider,
	rr reranker.Reranker,
	retrieval RetrievalConfig,
	log logger.ILogger,
) IChatService {
	return &chatService{
		uowFactory:        uowFactory,
		embeddingProvider: embeddingProvider,
		llmProvider:       llmProvider,
		rewriter:          rag.NewRewriter(llmProvider),
		reranker:          rr,
		retrieval:         retrieval,
		logger:            log,
	}
}

func (cs *chatService) CreateSession(ctx context.Context) (*dto.CreateSessionResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	session := entity.ChatSession{
		Id:        uuid.New(),
		Title:     "Unnamed session",
		CreatedAt: time.Now(),
	}

	if err := uow.ChatSessionRepository().Create(ctx, &session); err != nil {
		return nil, err
	}

	return &dto.CreateSessionResponse{Id: session.Id}, nil
}

func (cs *chatService) GetAllSessions(ctx context.Context) ([]*dto.GetAllSessionsResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	sessions, err := uow.ChatSessionRepository().FindAll(ctx,
		specification.OrderBy{Field: "created_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}

	response := make([]*dto.GetAllSessionsResponse, 0, len(sessions))
	for _, s := range sessions {
		response = append(response, &dto.GetAllSessionsResponse{
			Id:        s.Id,
			Title:     s.Title,
			CreatedAt: s.CreatedAt,
			UpdatedAt: s.UpdatedAt,
		})
	}

	return response, nil
}

func (cs *chatService) GetChatHistory(ctx context.Context, sessionId uuid.UUID) ([]*dto.GetChatHistoryResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	session, err := uow.ChatSessionRepository().FindOne(ctx, specification.ByID{ID: sessionId})
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	messages, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: sessionId},
		specification.OrderBy{Field: "created_at", Desc: false},
	)
	if err != nil {
		return nil, err
	}

	response := make([]*dto.GetChatHistoryResponse, 0, len(messages))
	for _, m := range messages {
		response = append(response, &dto.GetChatHistoryResponse{
			Id:        m.Id,
			Role:      m.Role,
			Chat:      m.Content,
			CreatedAt: m.CreatedAt,
		})
	}

	return response, nil
}

func (cs *chatService) DeleteSession(ctx context.Context, request *dto.DeleteSessionRequest) error {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	session, err := uow.ChatSessionRepository().FindOne(ctx, specification.ByID{ID: request.ChatSessionId})
	if err != nil {
		return err
	}
	if session == nil {
		return ErrSessionNotFound
	}

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.ChatMessageRepository().DeleteByChatSessionId(ctx, request.ChatSessionId); err != nil {
		return err
	}
	if err := uow.ChatSessionRepository().Delete(ctx, request.ChatSessionId); err != nil {
		return err
	}

	return uow.Commit()
}

func (cs *chatService) SendChat(ctx context.Context, request *dto.SendChatRequest) (<-chan llm.StreamEvent, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	session, err := uow.ChatSessionRepository().FindOne(ctx, specification.ByID{ID: request.ChatSessionId})
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	// Editing an earlier question discards it and everything after it; the
	// new question takes its place.
	if request.EditMessageId != nil {
		edited, err := uow.ChatMessageRepository().FindOne(ctx, specification.ByID{ID: *request.EditMessageId})
		if err != nil {
			return nil, err
		}
		if edited == nil || edited.ChatSessionId != request.ChatSessionId {
			return nil, ErrMessageNotFound
		}
		if edited.Role != constant.ChatMessageRoleUser {
			return nil, fmt.Errorf("only user messages can be edited")
		}
		if err := uow.ChatMessageRepository().DeleteAfter(ctx, request.ChatSessionId, edited.CreatedAt); err != nil {
			return nil, err
		}
	}

	stored, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: request.ChatSessionId},
		specification.OrderBy{Field: "created_at", Desc: false},
	)
	if err != nil {
		return nil, err
	}

	history := make([]llm.Message, 0, len(stored))
	for _, m := range stored {
		role := llm.RoleUser
		if m.Role == constant.ChatMessageRoleModel {
			role = llm.RoleAssistant
		}
		history = append(history, llm.Message{Role: role, Content: m.Content})
	}

	userMessage := entity.ChatMessage{
		Id:            uuid.New(),
		ChatSessionId: request.ChatSessionId,
		Role:          constant.ChatMessageRoleUser,
		Content:       request.Chat,
		CreatedAt:     time.Now(),
	}
	if err := uow.ChatMessageRepository().Create(ctx, &userMessage); err != nil {
		return nil, err
	}

	if len(stored) == 0 {
		cs.maybeSetTitle(ctx, session, request.Chat)
	}

	passages, err := cs.retrieve(ctx, history, request.Chat)
	if err != nil {
		return nil, err
	}

	contextBlock := rag.BuildContext(passages, cs.retrieval.ContextCharBudget)
	messages := rag.BuildMessages(contextBlock, history, request.Chat)

	stream, err := cs.llmProvider.ChatStream(ctx, messages)
	if err != nil {
		return nil, err
	}

	out := make(chan llm.StreamEvent)
	go cs.pump(request.ChatSessionId, stream, out)
	return out, nil
}

// retrieve rewrites the question, searches the chunk index and reranks the
// candidates into the final ordered passage list.
func (cs *chatService) retrieve(ctx context.Context, history []llm.Message, input string) ([]rag.Passage, error) {
	query := cs.rewriter.Rewrite(ctx, history, input)

	vectors, err := cs.embeddingProvider.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embed query: got %d vectors, want 1", len(vectors))
	}

	uow := cs.uowFactory.NewUnitOfWork(ctx)
	scored, err := uow.DocumentChunkRepository().SearchSimilarWithScore(ctx, vectors[0], cs.retrieval.CandidateLimit)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	if len(scored) == 0 {
		return nil, nil
	}

	texts := make([]string, len(scored))
	for i, s := range scored {
		texts[i] = s.Chunk.Content
	}
	selected := rag.SelectPassages(ctx, cs.reranker, query, texts, cs.retrieval.SelectedPassages)

	// Resolve the parent document titles once per distinct source.
	titles := make(map[string]string)
	for _, idx := range selected {
		sourceId := scored[idx].Chunk.SourceId
		if _, ok := titles[sourceId]; ok {
			continue
		}
		doc, err := uow.WikiDocumentRepository().FindOne(ctx, specification.BySourceID{SourceID: sourceId})
		if err != nil {
			return nil, err
		}
		if doc != nil {
			titles[sourceId] = doc.Title
		}
	}

	passages := make([]rag.Passage, 0, len(selected))
	for _, idx := range selected {
		chunk := scored[idx].Chunk
		passages = append(passages, rag.Passage{
			Text:     chunk.Content,
			Title:    titles[chunk.SourceId],
			SourceId: chunk.SourceId,
		})
	}
	return passages, nil
}

// pump forwards stream events to the caller while accumulating the answer
// text. Thinking deltas are forwarded but never persisted.
func (cs *chatService) pump(sessionId uuid.UUID, in <-chan llm.StreamEvent, out chan<- llm.StreamEvent) {
	defer close(out)

	var answer strings.Builder
	for event := range in {
		switch event.Kind {
		case llm.EventContent:
			answer.WriteString(event.Delta)
		case llm.EventError:
			cs.logger.Warn("chat", "generation stream failed", map[string]interface{}{
				"session_id": sessionId,
				"error":      event.Err.Error(),
			})
		}
		out <- event
	}

	// The request context may already be gone when the stream ends; persist
	// with a fresh one so a client disconnect cannot lose the partial answer.
	if answer.Len() > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		uow := cs.uowFactory.NewUnitOfWork(ctx)
		reply := entity.ChatMessage{
			Id:            uuid.New(),
			ChatSessionId: sessionId,
			Role:          constant.ChatMessageRoleModel,
			Content:       answer.String(),
			CreatedAt:     time.Now(),
		}
		if err := uow.ChatMessageRepository().Create(ctx, &reply); err != nil {
			cs.logger.Error("chat", "failed to persist assistant message", map[string]interface{}{
				"session_id": sessionId,
				"error":      err.Error(),
			})
		}
	}
}

// maybeSetTitle names the session after its first question. Best effort; a
// failed title generation keeps the placeholder.
func (cs *chatService) maybeSetTitle(ctx context.Context, session *entity.ChatSession, question string) {
	title, err := cs.llmProvider.Generate(ctx, fmt.Sprintf(constant.TitlePromptV1, question), llm.WithTemperature(0))
	if err != nil {
		cs.logger.Warn("chat", "failed to generate session title", map[string]interface{}{
			"session_id": session.Id,
			"error":      err.Error(),
		})
		return
	}
	title = strings.TrimSpace(strings.Trim(strings.TrimSpace(title), `"`))
	if title == "" {
		return
	}

	session.Title = title
	now := time.Now()
	session.UpdatedAt = &now

	uow := cs.uowFactory.NewUnitOfWork(ctx)
	if err := uow.ChatSessionRepository().Update(ctx, session); err != nil {
		cs.logger.Warn("chat", "failed to persist session title", map[string]interface{}{
			"session_id": session.Id,
			"error":      err.Error(),
		})
	}
}
