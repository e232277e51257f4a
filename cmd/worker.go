package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-amqp/pkg/amqp"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"docochat/src/core/ingest"
	"docochat/src/infrastructure/job"
	"docochat/src/jobctrl"
	"docochat/src/storage/minioctrl"
	"docochat/src/storage/postgres/userctrl"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the background ingestion worker",
	RunE:  runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
	settingDefaultConfig()
}

func runWorker(cmd *cobra.Command, args []string) error {
	// Initialize logger
	logger := watermill.NewStdLogger(false, false)

	db, err := newPostgresDB()
	if err != nil {
		return err
	}
	defer closeDB(db)

	usePgvector := viper.GetString("vector.backend") == "pgvector"
	if err := migrate(db, usePgvector); err != nil {
		return err
	}

	// Initialize AMQP publisher
	amqpPublisher, err := amqp.NewPublisher(
		amqp.NewDurableQueueConfig(viper.GetString("amqp.url")),
		watermill.NewStdLogger(false, false),
	)
	if err != nil {
		return err
	}
	defer amqpPublisher.Close()

	// Initialize AMQP subscriber
	subscriberConfig := amqp.NewDurableQueueConfig(viper.GetString("amqp.url"))
	subscriberConfig.Consume.NoRequeueOnNack = true
	amqpSubscriber, err := amqp.NewSubscriber(
		subscriberConfig,
		watermill.NewStdLogger(false, false),
	)
	if err != nil {
		return err
	}
	defer amqpSubscriber.Close()

	// Initialize router
	router, err := message.NewRouter(message.RouterConfig{}, logger)
	if err != nil {
		return err
	}

	// Add middleware
	router.AddMiddleware(
		middleware.Recoverer,
		middleware.CorrelationID,
		middleware.Retry{
			MaxRetries:      3,
			InitialInterval: time.Second,
			Logger:          logger,
		}.Middleware,
	)

	// Initialize MinioService
	minioService, err := minioctrl.NewMinioService(
		viper.GetString("minio.endpoint"),
		viper.GetString("minio.access_key"),
		viper.GetString("minio.secret_key"),
		viper.GetBool("minio.use_ssl"),
	)
	if err != nil {
		return fmt.Errorf("failed to initialize minio service: %v", err)
	}

	chunkStore, err := newChunkBackend(cmd.Context(), db)
	if err != nil {
		return fmt.Errorf("failed to initialize vector backend: %v", err)
	}

	provider, err := newLLMProvider()
	if err != nil {
		return fmt.Errorf("failed to initialize LLM provider: %v", err)
	}

	// Initialize ingestion pipeline
	chunker := ingest.NewChunker(
		viper.GetInt("ingest.chunk_size"),
		viper.GetInt("ingest.chunk_overlap"),
	)
	ingestService := ingest.NewService(chunker, provider, chunkStore, userctrl.NewUserService(db))

	// Initialize IngestionTask
	ingestionTask := jobctrl.NewIngestionTask(ingestService, minioService)

	// Initialize job repository and service
	jobRepo := job.NewPostgresJobRepository(db)
	jobService := job.NewJobService(amqpPublisher, jobRepo, logger, ingestionTask)

	// Add handler for processing jobs
	router.AddNoPublisherHandler(
		"job_processor",
		"jobs",
		amqpSubscriber,
		func(msg *message.Message) error {
			return jobService.ProcessJobMessage(msg)
		},
	)

	// Run the router
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		err := router.Run(ctx)
		if err != nil {
			log.Fatal(err)
		}
	}()

	// Graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	<-c

	log.Println("Shutting down...")
	cancel()
	<-router.Running()
	log.Println("Router stopped")

	return nil
}
