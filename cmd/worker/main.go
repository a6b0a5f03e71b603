package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/goleaf/petssocnnetworkmobile-sub009/internal/config"
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
	queue := service.NewQueueService(repo, nil, m, logger)

	dispatcher := processor.NewDispatcher(
		processor.NewLinkCheckProcessor(queue, nil, logger),
		processor.NewNotifyUserProcessor(queue, notify.NewRedisNotifier(rdb), logger),
		processor.NewRebuildSearchIndexProcessor(queue, repo, repo, logger),
		processor.NewTranscodeVideoProcessor(queue, cfg.TranscodeStepDelay(), logger),
	)

	worker := service.NewWorker(queue, dispatcher, m, logger, cfg.PollInterval())
	worker.Start(ctx)

	// Slow sweep: return jobs abandoned mid-processing to the queue.
	go func() {
		ticker := time.NewTicker(cfg.ReclaimInterval())
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := queue.ReclaimStaleJobs(ctx, cfg.StaleThreshold()); err != nil {
					logger.Error("stale job reclaim failed", zap.Error(err))
				}
			}
		}
	}()

	scheduler := cron.New()
	_, err = scheduler.AddFunc(cfg.CleanupSchedule, func() {
		if _, err := queue.CleanupOldJobs(ctx, cfg.CleanupRetentionDays); err != nil {
			logger.Error("scheduled cleanup failed", zap.Error(err))
		}
	})
	if err != nil {
		logger.Fatal("invalid cleanup schedule", zap.Error(err))
	}
	scheduler.Start()

	logger.Info("worker process started",
		zap.Duration("poll_interval", cfg.PollInterval()),
		zap.String("cleanup_schedule", cfg.CleanupSchedule))

	<-ctx.Done()
	logger.Info("shutting down worker process")

	worker.Stop()
	<-scheduler.Stop().Done()

	logger.Info("worker process stopped")
}

func newLogger(appEnv string) (*zap.Logger, error) {
	if appEnv == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
