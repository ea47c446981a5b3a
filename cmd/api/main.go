package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"questionnaire-engine/internal/adapter"
	"questionnaire-engine/internal/adapter/evaluator"
	"questionnaire-engine/internal/cache"
	"questionnaire-engine/internal/config"
	"questionnaire-engine/internal/database"
	"questionnaire-engine/internal/handler"
	"questionnaire-engine/internal/logger"
	"questionnaire-engine/internal/middleware"
	"questionnaire-engine/internal/repository"
	"questionnaire-engine/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
)

// requestLogger is a middleware that logs HTTP requests
func requestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		path := c.Path()
		method := c.Method()

		err := c.Next()

		logger.Get().Info("HTTP Request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", c.Response().StatusCode()),
			zap.Duration("duration", time.Since(start)),
			zap.String("ip", c.IP()),
			zap.String("user_id", middleware.UserID(c)),
		)
		return err
	}
}

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
	appLogger := logger.Get()
	defer logger.Sync()

	db, err := database.NewSQLXOracleDB(cfg.GetDSN())
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedisClient(context.Background(), cfg.Redis)
	if err != nil {
		appLogger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	appLogger.Info("Successfully connected to Redis")

	deps, err := evaluator.NewDependencies(cfg.Evaluator)
	if err != nil {
		appLogger.Fatal("Failed to create evaluator clients", zap.Error(err))
	}
	registry, err := evaluator.NewRegistry(deps, cfg.Evaluator.DefaultBackend)
	if err != nil {
		appLogger.Fatal("Failed to create evaluator registry", zap.Error(err))
	}
	appLogger.Info("Evaluator registry initialized", zap.String("default_backend", registry.Default()))

	// Repositories and adapters
	questionnaireRepo := repository.NewQuestionnaireDatabaseAdapter(db)
	submissionRepo := repository.NewSubmissionDatabaseAdapter(db)
	evaluationRepo := repository.NewEvaluationDatabaseAdapter(db)
	txManager := repository.NewTransactionManagerAdapter(db)
	cacheAdapter := adapter.NewRedisCacheAdapter(redisClient)
	taskQueue := adapter.NewRedisTaskQueue(redisClient, cfg.Queue.Key, cfg.Queue.DedupeTTL)

	// Services
	definitionService := service.NewDefinitionService(questionnaireRepo, txManager, cacheAdapter, registry, cfg.Cache.DefinitionTTL)
	builder := service.NewSubmissionBuilder(definitionService, nil)
	dispatcher := service.NewEvaluationDispatcher(taskQueue)
	writer := service.NewSubmissionWriter(definitionService, submissionRepo, txManager, dispatcher)
	evaluationService := service.NewEvaluationService(
		definitionService, submissionRepo, evaluationRepo, txManager,
		registry, adapter.NewCacheLocker(cacheAdapter), cfg.Queue.LockTTL,
	)
	authService, err := service.NewAuthService(cfg.Auth.JWTSecret)
	if err != nil {
		appLogger.Fatal("Failed to create AuthService", zap.Error(err))
	}

	// Handlers
	questionnaireHandler := handler.NewQuestionnaireHandler(definitionService, builder)
	submissionHandler := handler.NewSubmissionHandler(writer, evaluationService, dispatcher)

	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
		BodyLimit:    4 * 1024 * 1024,
		ErrorHandler: middleware.ErrorHandler(),
	})

	app.Use(recover.New())
	app.Use(requestLogger())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
		MaxAge:       300,
	}))

	app.Get("/healthz", func(c *fiber.Ctx) error {
		if err := db.PingContext(c.UserContext()); err != nil {
			return fiber.NewError(fiber.StatusServiceUnavailable, "database unavailable")
		}
		if err := cacheAdapter.Ping(c.UserContext()); err != nil {
			return fiber.NewError(fiber.StatusServiceUnavailable, "redis unavailable")
		}
		return c.SendString("ok")
	})

	handler.RegisterRoutes(app.Group("/api"), authService, questionnaireHandler, submissionHandler)

	go func() {
		appLogger.Info("Starting server", zap.Int("port", cfg.Server.Port), zap.String("env", cfg.Logger.Env))
		if err := app.Listen(":" + strconv.Itoa(cfg.Server.Port)); err != nil {
			appLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(ctx); err != nil {
		appLogger.Error("Server forced to shutdown", zap.Error(err))
	}
	appLogger.Info("Server exited gracefully")
}
