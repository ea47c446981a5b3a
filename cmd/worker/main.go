// Command worker drains the evaluation queue.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"questionnaire-engine/internal/adapter"
	"questionnaire-engine/internal/adapter/evaluator"
	"questionnaire-engine/internal/cache"
	"questionnaire-engine/internal/config"
	"questionnaire-engine/internal/database"
	"questionnaire-engine/internal/logger"
	"questionnaire-engine/internal/repository"
	"questionnaire-engine/internal/service"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Initialize(cfg.Logger); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	log := logger.Get()
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewSQLXOracleDB(cfg.GetDSN())
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()

	deps, err := evaluator.NewDependencies(cfg.Evaluator)
	if err != nil {
		log.Fatal("Failed to create evaluator clients", zap.Error(err))
	}
	registry, err := evaluator.NewRegistry(deps, cfg.Evaluator.DefaultBackend)
	if err != nil {
		log.Fatal("Failed to create evaluator registry", zap.Error(err))
	}

	txManager := repository.NewTransactionManagerAdapter(db)
	submissionRepo := repository.NewSubmissionDatabaseAdapter(db)
	cacheAdapter := adapter.NewRedisCacheAdapter(redisClient)
	taskQueue := adapter.NewRedisTaskQueue(redisClient, cfg.Queue.Key, cfg.Queue.DedupeTTL)

	definitionService := service.NewDefinitionService(
		repository.NewQuestionnaireDatabaseAdapter(db), txManager, cacheAdapter, registry, cfg.Cache.DefinitionTTL,
	)
	evaluationService := service.NewEvaluationService(
		definitionService, submissionRepo, repository.NewEvaluationDatabaseAdapter(db), txManager,
		registry, adapter.NewCacheLocker(cacheAdapter), cfg.Queue.LockTTL,
	)

	worker := service.NewEvaluationWorker(taskQueue, evaluationService, cfg.Queue.PollTimeout, cfg.Queue.Workers)
	log.Info("Evaluation worker starting",
		zap.String("queue", cfg.Queue.Key),
		zap.Int("workers", cfg.Queue.Workers),
		zap.String("default_backend", registry.Default()),
	)
	if err := worker.Run(ctx); err != nil {
		log.Error("Evaluation worker stopped with error", zap.Error(err))
		return
	}
	log.Info("Evaluation worker stopped")
}
