package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Wiki      WikiConfig
	Ai        AIConfig
	Retrieval RetrievalConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	IndexTopicName     string
	IndexWorkerCount   int
	IndexBatchSize     int
}

type DatabaseConfig struct {
	Connection string
}

type WikiConfig struct {
	BaseURL       string
	APIToken      string
	PageSize      int
	WebhookSecret string
}

type AIConfig struct {
	EmbeddingBaseURL string
	EmbeddingAPIKey  string
	EmbeddingModel   string
	LLMBaseURL       string
	LLMAPIKey        string
	LLMModel         string
	RerankerBaseURL  string
	RerankerAPIKey   string
	RerankerModel    string
}

type RetrievalConfig struct {
	MaxChunkSize      int
	ChunkOverlap      int
	CandidateLimit    int
	SelectedPassages  int
	ContextCharBudget int
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			IndexTopicName:     getEnv("INDEX_DOCUMENT_TOPIC_NAME", "INDEX_WIKI_DOCUMENT"),
			IndexWorkerCount:   getEnvAsInt("INDEX_WORKER_COUNT", 4),
			IndexBatchSize:     getEnvAsInt("INDEX_BATCH_SIZE", 10),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Wiki: WikiConfig{
			BaseURL:       getEnv("WIKI_BASE_URL", ""),
			APIToken:      getEnv("WIKI_API_TOKEN", ""),
			PageSize:      getEnvAsInt("WIKI_PAGE_SIZE", 100),
			WebhookSecret: getEnv("WIKI_WEBHOOK_SECRET", ""),
		},
		Ai: AIConfig{
			EmbeddingBaseURL: getEnv("EMBEDDING_BASE_URL", "http://localhost:11434/v1"),
			EmbeddingAPIKey:  getEnv("EMBEDDING_API_KEY", ""),
			EmbeddingModel:   getEnv("EMBEDDING_MODEL", "nomic-embed-text"),
			LLMBaseURL:       getEnv("LLM_BASE_URL", "http://localhost:11434/v1"),
			LLMAPIKey:        getEnv("LLM_API_KEY", ""),
			LLMModel:         getEnv("LLM_MODEL", "qwen3:8b"),
			RerankerBaseURL:  getEnv("RERANKER_BASE_URL", ""),
			RerankerAPIKey:   getEnv("RERANKER_API_KEY", ""),
			RerankerModel:    getEnv("RERANKER_MODEL", "bge-reranker-v2-m3"),
		},
		Retrieval: RetrievalConfig{
			MaxChunkSize:      getEnvAsInt("CHUNK_MAX_SIZE", 1500),
			ChunkOverlap:      getEnvAsInt("CHUNK_OVERLAP", 200),
			CandidateLimit:    getEnvAsInt("RETRIEVAL_CANDIDATE_LIMIT", 12),
			SelectedPassages:  getEnvAsInt("RETRIEVAL_SELECTED_PASSAGES", 6),
			ContextCharBudget: getEnvAsInt("RETRIEVAL_CONTEXT_BUDGET", 12000),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}
