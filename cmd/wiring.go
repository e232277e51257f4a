package cmd

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/viper"
	weaviateClient "github.com/weaviate/weaviate-go-client/v4/weaviate"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"docochat/src/core/chat"
	"docochat/src/core/ingest"
	"docochat/src/infrastructure/log"
	llmollama "docochat/src/llm/ollama"
	llmopenai "docochat/src/llm/openai"
	"docochat/src/storage/weaviate"

	"docochat/src/infrastructure/job"
	"docochat/src/storage/postgres/chatctrl"
	"docochat/src/storage/postgres/userctrl"
	"docochat/src/storage/postgres/vectorctrl"
)

// chunkBackend is what both vector store implementations provide: the
// ingestion write path, the retrieval read path, and a health probe.
type chunkBackend interface {
	ingest.ChunkStore
	chat.ChunkSearcher
	CheckHealth(ctx context.Context) error
}

// llmProvider bundles the three model operations the pipelines need
// plus a health probe.
type llmProvider interface {
	chat.QueryEmbedder
	chat.Completer
	ingest.BatchEmbedder
	CheckHealth(ctx context.Context) error
}

func newPostgresDB() (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		viper.GetString("postgres.host"),
		viper.GetString("postgres.user"),
		viper.GetString("postgres.password"),
		viper.GetString("postgres.db"),
		viper.GetString("postgres.port"))

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}
	return db, nil
}

// migrate creates the tables and the pgvector extension. AutoMigrate is
// enough here; there is no separate migration tooling.
func migrate(db *gorm.DB, withVectors bool) error {
	if withVectors {
		if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
			return fmt.Errorf("failed to create vector extension: %v", err)
		}
	}

	models := []interface{}{
		&userctrl.User{},
		&chatctrl.ChatTurn{},
		&job.Job{},
	}
	if withVectors {
		models = append(models, &vectorctrl.DocumentChunk{})
	}

	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("failed to migrate database: %v", err)
	}
	return nil
}

// newChunkBackend selects the vector store from configuration.
func newChunkBackend(ctx context.Context, db *gorm.DB) (chunkBackend, error) {
	switch backend := viper.GetString("vector.backend"); backend {
	case "pgvector":
		return vectorctrl.NewVectorService(db)
	case "weaviate":
		wc := weaviateClient.New(weaviateClient.Config{
			Host:   viper.GetString("weaviate.url"),
			Scheme: "http",
		})
		store := weaviate.NewChunkStore(wc)
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown vector backend: %s", backend)
	}
}

// newLLMProvider selects the embedding and completion client from
// configuration.
func newLLMProvider() (llmProvider, error) {
	switch provider := viper.GetString("llm.provider"); provider {
	case "openai":
		apiKey := viper.GetString("openai.api_key")
		if apiKey == "" {
			return nil, fmt.Errorf("openai.api_key is required")
		}
		return llmopenai.NewClient(
			apiKey,
			viper.GetString("openai.embedding_model"),
			viper.GetString("openai.completion_model"),
		), nil
	case "ollama":
		client := llmollama.NewClient(
			viper.GetString("ollama.url"),
			&http.Client{Timeout: 120 * time.Second},
			viper.GetString("ollama.embedding_model"),
			viper.GetString("ollama.completion_model"),
		)
		return llmollama.NewProvider(client), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", provider)
	}
}

func chatConfigFromViper() chat.Config {
	return chat.Config{
		SimilarityThreshold: viper.GetFloat64("chat.similarity_threshold"),
		MatchLimit:          viper.GetInt("chat.match_limit"),
		HistoryWindow:       viper.GetInt("chat.history_window"),
	}
}

func closeDB(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		log.Error(err, "Failed to get underlying *sql.DB")
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Error(err, "Error closing database connection")
	}
}
