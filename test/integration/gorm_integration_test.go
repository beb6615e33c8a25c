package integration

import (
	"context"
	"log"
	"os"
	"testing"

	"wiki-rag-be/internal/repository/unitofwork"
	"wiki-rag-be/pkg/database"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
)

func TestGormConnection(t *testing.T) {
	// Load .env from root
	err := godotenv.Load("../../.env")
	if err != nil {
		log.Println("No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	gormDB, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		t.Fatalf("Failed to connect to DB: %v", err)
	}

	// Verify Wiring
	uowFactory := unitofwork.NewRepositoryFactory(gormDB)
	uow := uowFactory.NewUnitOfWork(context.Background())

	assert.NotNil(t, uow.WikiDocumentRepository())
	assert.NotNil(t, uow.DocumentChunkRepository())
	assert.NotNil(t, uow.ChatSessionRepository())
	assert.NotNil(t, uow.ChatMessageRepository())

	// Basic Ping
	sqlDB, _ := gormDB.DB()
	err = sqlDB.Ping()
	assert.NoError(t, err)
	t.Log("Successfully connected to DB and initialized UnitOfWork Factory")

	// Verify Data Access (implies columns exist)
	t.Run("Check WikiDocument Repository", func(t *testing.T) {
		count, err := uow.WikiDocumentRepository().Count(context.Background())
		assert.NoError(t, err)
		t.Logf("WikiDocument count: %d", count)
	})

	t.Run("Check DocumentChunk Repository", func(t *testing.T) {
		// Count implies the table and its vector column exist
		count, err := uow.DocumentChunkRepository().CountBySourceId(context.Background(), "nonexistent")
		assert.NoError(t, err)
		assert.Equal(t, int64(0), count)
	})

	t.Run("Check Local Timestamp Listing", func(t *testing.T) {
		timestamps, err := uow.WikiDocumentRepository().ListSourceTimestamps(context.Background())
		assert.NoError(t, err)
		t.Logf("Locally indexed documents: %d", len(timestamps))
	})
}
