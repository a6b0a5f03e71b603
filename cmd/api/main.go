package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/goleaf/petssocnnetworkmobile-sub009/internal/config"
	"github.com/goleaf/petssocnnetworkmobile-sub009/internal/handler"
	"github.com/goleaf/petssocnnetworkmobile-sub009/internal/metrics"
	"github.com/goleaf/petssocnnetworkmobile-sub009/internal/notify"
	"github.com/goleaf/petssocnnetworkmobile-sub009/internal/processor"
	"github.com/goleaf/petssocnnetworkmobile-sub009/internal/repository"
	"github.com/goleaf/petssocnnetworkmobile-sub009/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.AppEnv)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := repository.NewSQLiteRepository(cfg.DBPath)
	if err != nil {
		logger.Fatal("failed to initialize repository", zap.Error(err))
	}
	defer repo.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	defer rdb.Close()

	m := metrics.NewMetrics()
	rateLimiter := service.NewRateLimiter(cfg.EnqueuePerSecond, cfg.EnqueueBurst)
	queue := service.NewQueueService(repo, rateLimiter, m, logger)

	var worker *service.Worker
	if cfg.WorkerEnabled {
		dispatcher := processor.NewDispatcher(
			processor.NewLinkCheckProcessor(queue, nil, logger),
			processor.NewNotifyUserProcessor(queue, notify.NewRedisNotifier(rdb), logger),
			processor.NewRebuildSearchIndexProcessor(queue, repo, repo, logger),
			processor.NewTranscodeVideoProcessor(queue, cfg.TranscodeStepDelay(), logger),
		)
		worker = service.NewWorker(queue, dispatcher, m, logger, cfg.PollInterval())
		worker.Start(ctx)
		defer worker.Stop()
	}

	jobHandler := handler.NewJobHandler(queue, worker, m, logger)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})
	jobHandler.Routes(router)

	server := &http.Server{
		Addr:    cfg.APIAddr,
		Handler: router,
	}

	go func() {
		logger.Info("api server starting", zap.String("addr", cfg.APIAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shut down", zap.Error(err))
	}

	logger.Info("server stopped")
}

func newLogger(appEnv string) (*zap.Logger, error) {
	if appEnv == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
