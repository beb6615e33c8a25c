package bootstrap

import (
	"context"
	"log"
	"time"

	"wiki-rag-be/internal/config"
	"wiki-rag-be/internal/controller"
	"wiki-rag-be/internal/pkg/logger"
	"wiki-rag-be/internal/refresh"
	"wiki-rag-be/internal/repository/unitofwork"
	"wiki-rag-be/internal/service"
	"wiki-rag-be/internal/websocket"
	"wiki-rag-be/pkg/chunker"
	"wiki-rag-be/pkg/embedding"
	"wiki-rag-be/pkg/llm"
	llmOpenai "wiki-rag-be/pkg/llm/openai"
	"wiki-rag-be/pkg/reranker"
	"wiki-rag-be/pkg/wiki"

	pktNats "wiki-rag-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	ChatController controller.IChatController
	SyncController controller.ISyncController

	// Background Services (exposed for main.go to run)
	ConsumerService service.IConsumerService

	// WebSockets
	ProgressHandler *websocket.Handler
	WebSocketHub    *websocket.Hub
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// NATS
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
	}

	// Redis
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}
	refreshState := refresh.NewState(rdb)

	// 3. AI Providers
	var embeddingProvider embedding.Provider = embedding.NewOpenAIProvider(
		cfg.Ai.EmbeddingBaseURL,
		cfg.Ai.EmbeddingAPIKey,
		cfg.Ai.EmbeddingModel,
	)
	embeddingProvider = embedding.NewCachedProvider(embeddingProvider, 30*time.Minute)
	log.Printf("[INFO] Using Embedding Model: %s", cfg.Ai.EmbeddingModel)

	var llmProvider llm.Provider = llmOpenai.NewProvider(
		cfg.Ai.LLMBaseURL,
		cfg.Ai.LLMAPIKey,
		cfg.Ai.LLMModel,
	)
	log.Printf("[INFO] Using LLM Model: %s", cfg.Ai.LLMModel)

	var rr reranker.Reranker
	if cfg.Ai.RerankerBaseURL != "" {
		rr = reranker.NewHTTPReranker(cfg.Ai.RerankerBaseURL, cfg.Ai.RerankerAPIKey, cfg.Ai.RerankerModel)
		log.Printf("[INFO] Using Reranker Model: %s", cfg.Ai.RerankerModel)
	} else {
		rr = reranker.NewPassthrough()
		log.Printf("[INFO] Reranker disabled, using similarity order")
	}

	// 4. Wiki Client and Chunker
	wikiClient := wiki.NewClient(cfg.Wiki.BaseURL, cfg.Wiki.APIToken, cfg.Wiki.PageSize)
	ch := chunker.New(chunker.Config{
		MaxChunkSize: cfg.Retrieval.MaxChunkSize,
		Overlap:      cfg.Retrieval.ChunkOverlap,
	})

	// 5. WebSocket Hub
	wsHub := websocket.NewHub(sysLogger)
	go wsHub.Run()

	progressHandler := websocket.NewHandler(wsHub, sysLogger)
	if natsSub != nil {
		if err := progressHandler.BindEventBus(natsSub); err != nil {
			log.Printf("[WARN] Failed to bind progress push to event bus: %v", err)
		}
	}

	// 6. Services
	publisherService := service.NewPublisherService(cfg.App.IndexTopicName, pubSub)
	indexerService := service.NewIndexerService(
		wikiClient,
		ch,
		embeddingProvider,
		uowFactory,
		natsPub,
		sysLogger,
	)
	consumerService := service.NewConsumerService(
		pubSub,
		cfg.App.IndexTopicName,
		cfg.App.IndexWorkerCount,
		indexerService,
		refreshState,
		natsPub,
		sysLogger,
	)
	syncService := service.NewSyncService(
		wikiClient,
		uowFactory,
		publisherService,
		indexerService,
		refreshState,
		natsPub,
		cfg.App.IndexBatchSize,
		sysLogger,
	)
	chatService := service.NewChatService(
		uowFactory,
		embeddingProvider,
		llmProvider,
		rr,
		service.RetrievalConfig{
			CandidateLimit:    cfg.Retrieval.CandidateLimit,
			SelectedPassages:  cfg.Retrieval.SelectedPassages,
			ContextCharBudget: cfg.Retrieval.ContextCharBudget,
		},
		sysLogger,
	)

	// 7. Controllers
	return &Container{
		ChatController: controller.NewChatController(chatService),
		SyncController: controller.NewSyncController(syncService, cfg.Wiki.WebhookSecret),

		ConsumerService: consumerService,

		ProgressHandler: progressHandler,
		WebSocketHub:    wsHub,
	}
}
