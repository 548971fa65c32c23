package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/RishiKendai/textguard/internal/api"
	"github.com/RishiKendai/textguard/internal/config"
	"github.com/RishiKendai/textguard/internal/configs/env"
	"github.com/RishiKendai/textguard/internal/infra/mongo"
	redisInfra "github.com/RishiKendai/textguard/internal/infra/redis"
	"github.com/RishiKendai/textguard/internal/ingest"
	"github.com/RishiKendai/textguard/internal/logger"
	"github.com/RishiKendai/textguard/internal/metrics"
	"github.com/RishiKendai/textguard/internal/plagiarism"
	"github.com/RishiKendai/textguard/internal/progress"
	"github.com/RishiKendai/textguard/internal/repository"
	"github.com/RishiKendai/textguard/internal/stream"
	"github.com/RishiKendai/textguard/internal/vault"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

func main() {
	_ = env.LoadEnv()

	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("Invalid configuration: %v", err))
	}

	logger.Init(cfg.LogLevel, cfg.LogFormat)
	log.Info().Msg("Starting textguard server")

	metrics.InitPrometheus()
	metricsServer := api.StartMetricsServer(cfg.MetricsPort)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mongoClient, err := mongo.NewClient(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create MongoDB client")
	}
	defer mongoClient.Close(context.Background())

	redisClient, err := redisInfra.NewClient(ctx, cfg.RedisHost, cfg.RedisPassword, 0)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Redis client")
	}
	defer redisClient.Close()

	mongoRepo := repository.NewMongoRepository(mongoClient)
	if err := mongoRepo.EnsureIndexes(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to create MongoDB indexes")
	}
	documentsRepo := repository.NewDocumentsRepository(mongoRepo)
	reportsRepo := repository.NewReportsRepository(mongoRepo)

	cipher, err := vault.NewCipher([]byte(cfg.EncryptionKey))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize document vault")
	}
	ingestSvc := ingest.NewService(cipher, documentsRepo, cfg.MaxUploadBytes)
	loader := repository.NewDocumentLoader(documentsRepo, cipher)

	// Submissions pushed to the Redis stream
	retryHandler := stream.NewRetryHandler(redisClient.Client, cfg.RedisDeadLetterKey)
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "unknown"
	}
	consumerName := fmt.Sprintf("consumer-%s-%d-%s", hostname, os.Getpid(), uuid.NewString()[:8])
	consumer := stream.NewConsumer(
		redisClient.Client,
		cfg.RedisStreamKey,
		cfg.RedisConsumerGroup,
		consumerName,
		ingestSvc,
		retryHandler,
		cfg.StreamRetentionDuration,
	)

	workerPool := plagiarism.NewWorkerPool(ctx, cfg.WorkerPoolSize)
	defer workerPool.Close()
	log.Info().Int("workers", workerPool.Size()).Msg("Comparison worker pool started")
	comparator := plagiarism.NewComparator(cfg.Engine, workerPool)

	handler := api.NewHandler(
		cfg,
		documentsRepo,
		reportsRepo,
		progress.NewTracker(redisClient),
		ingestSvc,
		loader,
		comparator,
	)
	rateLimiter := api.NewRateLimiter(cfg.RateLimitRPS, int(cfg.RateLimitRPS*2))
	rateLimiter.StartCleanup(ctx, 10*time.Minute, time.Hour)
	router := api.SetupRoutes(cfg, handler, rateLimiter)

	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		if err := consumer.Start(ctx); err != nil && err != context.Canceled {
			log.Error().Err(err).Msg("Redis consumer error")
		}
	}()
	log.Info().Str("consumer_name", consumerName).Msg("Redis consumer started")

	srv := api.StartServer("api", router, cfg.ServerPort)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down gracefully...")

	if err := api.ShutdownServer(srv, 30*time.Second); err != nil {
		log.Error().Err(err).Msg("Error shutting down API server")
	}

	cancel()
	<-consumerDone

	if err := api.ShutdownServer(metricsServer, 5*time.Second); err != nil {
		log.Error().Err(err).Msg("Error shutting down metrics server")
	}

	log.Info().Msg("Shutdown complete")
}
