package cmd

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-amqp/pkg/amqp"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gorm.io/gorm"

	httpHdlr "docochat/handler/http"
	"docochat/src/core/chat"
	"docochat/src/core/ingest"
	"docochat/src/core/user"
	"docochat/src/infrastructure/job"
	"docochat/src/infrastructure/log"
	"docochat/src/storage/minioctrl"
	"docochat/src/storage/postgres/chatctrl"
	"docochat/src/storage/postgres/userctrl"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the document chat server",
	Long:  `The serve command starts an HTTP server that provides document upload and grounded chat APIs.`,
	Run:   RunServer,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	settingDefaultConfig()
}

func RunServer(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	db, err := newPostgresDB()
	if err != nil {
		log.Error(err, "Failed to connect to database")
		return
	}

	usePgvector := viper.GetString("vector.backend") == "pgvector"
	if err := migrate(db, usePgvector); err != nil {
		log.Error(err, "Failed to migrate database")
		return
	}

	chunkStore, err := newChunkBackend(ctx, db)
	if err != nil {
		log.Error(err, "Failed to initialize vector backend")
		return
	}

	provider, err := newLLMProvider()
	if err != nil {
		log.Error(err, "Failed to initialize LLM provider")
		return
	}

	userRepo := userctrl.NewUserService(db)
	userService := user.NewService(userRepo)

	chatStore, err := chatctrl.NewChatService(db)
	if err != nil {
		log.Error(err, "Failed to initialize chat store")
		return
	}

	chatService := chat.NewService(provider, chunkStore, provider, chatStore, userRepo, chatConfigFromViper())

	chunker := ingest.NewChunker(
		viper.GetInt("ingest.chunk_size"),
		viper.GetInt("ingest.chunk_overlap"),
	)
	ingestService := ingest.NewService(chunker, provider, chunkStore, userRepo)

	// With async ingestion enabled, uploads go to object storage and a
	// queued job; the worker process picks them up.
	var jobService *job.JobService
	var minioService *minioctrl.MinioService
	if viper.GetBool("ingest.async") {
		minioService, err = minioctrl.NewMinioService(
			viper.GetString("minio.endpoint"),
			viper.GetString("minio.access_key"),
			viper.GetString("minio.secret_key"),
			viper.GetBool("minio.use_ssl"),
		)
		if err != nil {
			log.Error(err, "Failed to initialize minio service")
			return
		}

		amqpPublisher, err := amqp.NewPublisher(
			amqp.NewDurableQueueConfig(viper.GetString("amqp.url")),
			watermill.NewStdLogger(false, false),
		)
		if err != nil {
			log.Error(err, "Failed to initialize AMQP publisher")
			return
		}
		defer amqpPublisher.Close()

		jobRepo := job.NewPostgresJobRepository(db)
		jobService = job.NewJobService(amqpPublisher, jobRepo, watermill.NewStdLogger(false, false), nil)
	}

	handler := httpHdlr.NewHandler(
		userService,
		chatService,
		ingestService,
		jobService,
		minioService,
		httpHdlr.HealthCheckers{
			Postgres:    func(ctx context.Context) error { return pingDB(ctx, db) },
			VectorStore: chunkStore.CheckHealth,
			LLMProvider: provider.CheckHealth,
		},
	)

	// Setup gin router
	r := gin.Default()

	// Register routes
	handler.RegisterRoutes(r)

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + viper.GetString("server.port"),
		Handler: r,
	}

	// Start server in a goroutine
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error(err, "Failed to start server")
			return
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	// Parse shutdown timeout
	timeout, err := time.ParseDuration(viper.GetString("server.shutdown_timeout"))
	if err != nil {
		log.Error(err, "Invalid shutdown timeout, using default 5s")
		timeout = 5 * time.Second
	}

	// Create context with timeout for shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Attempt graceful shutdown
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(err, "Server forced to shutdown")
	}

	closeDB(db)

	log.Info("Server exited")
}

func pingDB(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
