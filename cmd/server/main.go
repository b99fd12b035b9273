package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"context-engine/internal/adapter/httpapi"
	"context-engine/internal/adapter/provider"
	"context-engine/internal/adapter/repository"
	"context-engine/internal/domain"
	"context-engine/internal/infra"
	"context-engine/internal/infra/config"
	"context-engine/internal/infra/logger"
	"context-engine/internal/usecase"
	"context-engine/internal/worker"
)

func main() {
	// 1. Load Config
	cfg := config.Load()
	ragCfg := usecase.LoadRagConfig()

	// 2. Initialize Logger
	log := logger.New()
	slog.SetDefault(log)

	if err := ragCfg.Validate(); err != nil {
		log.Error("invalid retrieval config", "error", err)
		os.Exit(1)
	}

	// 3. Initialize DB
	ctx := context.Background()
	dbPool, err := infra.NewPostgresDB(ctx, cfg.DB.DSN(), infra.PoolConfig{
		MaxConns: cfg.DB.MaxConns,
		MinConns: cfg.DB.MinConns,
	})
	if err != nil {
		log.Error("failed to connect to db", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	if err := infra.CheckSchema(ctx, dbPool); err != nil {
		log.Error("schema check failed", "error", err)
		os.Exit(1)
	}

	// 4. Initialize Adapters
	docRepo := repository.NewDocumentRepository(dbPool)
	chunkRepo := repository.NewChunkRepository(dbPool)
	jobRepo := repository.NewIngestJobRepository(dbPool)
	txManager := repository.NewPostgresTransactionManager(dbPool)

	embedder := provider.NewEmbedderClient(
		cfg.Embedding.URL,
		cfg.Embedding.Model,
		time.Duration(cfg.Embedding.TimeoutSeconds)*time.Second,
		cfg.Embedding.RequestsPerSecond,
		log,
	)
	reranker := provider.NewRerankerClient(
		cfg.Reranker.URL,
		cfg.Reranker.Model,
		time.Duration(cfg.Reranker.TimeoutSeconds)*time.Second,
		log,
	)

	// 5. Initialize Usecases
	hasher := domain.NewSourceHashPolicy()
	builder := domain.NewChunkBuilder()

	indexUsecase := usecase.NewIndexDocumentUsecase(
		docRepo,
		chunkRepo,
		txManager,
		hasher,
		builder,
		embedder,
		log,
	)
	retrieveUsecase := usecase.NewRetrieveContextUsecase(
		chunkRepo,
		embedder,
		reranker,
		ragCfg,
		log,
	)

	// 6. Initialize & Start Worker
	jobWorker := worker.NewJobWorker(jobRepo, indexUsecase, log)
	jobWorker.Start()
	defer jobWorker.Stop()

	// 7. Initialize Echo
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Info("http_request",
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status))
			return nil
		},
	}))
	e.Use(middleware.Recover())

	// 8. Register Handlers
	handler := httpapi.NewHandler(retrieveUsecase, indexUsecase, jobRepo)
	handler.RegisterRoutes(e)

	e.GET("/readyz", func(c echo.Context) error {
		if err := dbPool.Ping(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "db down", "error": err.Error()})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ready"})
	})

	// 9. Start Server
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		log.Info("server_starting", "addr", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			e.Logger.Fatal("shutting down the server")
		}
	}()

	// 10. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		e.Logger.Fatal(err)
	}
}
