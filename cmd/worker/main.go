package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"cabinet_tracker/database"
	"cabinet_tracker/internal/app"
	"cabinet_tracker/internal/cache"
	"cabinet_tracker/internal/config"
	"cabinet_tracker/internal/imageprocessor"
	"cabinet_tracker/internal/logger"
	"cabinet_tracker/internal/queue"
	"cabinet_tracker/internal/repositories"
	"cabinet_tracker/internal/storage"
	"cabinet_tracker/internal/workers"

	"github.com/hibiken/asynq"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	config.LoadConfig()
	cfg := config.AppConfig
	logger.Init(cfg.Server.Env)

	if cfg.Queue.RedisAddr == "" {
		logger.Fatal("QUEUE_REDIS_ADDR is required for the worker")
	}

	db, err := database.Open(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		logger.Fatal("Failed to migrate database", "error", err)
	}

	store, err := storage.NewStorage(app.StorageConfig(cfg))
	if err != nil {
		logger.Fatal("Failed to initialize storage", "error", err)
	}

	recordCache, err := cache.New(cache.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Prefix:   cfg.Redis.Prefix,
		TTL:      cfg.CacheTTL(),
	})
	if err != nil {
		logger.Fatal("Failed to initialize cache", "error", err)
	}
	defer recordCache.Close()

	thumbnails := workers.NewThumbnailWorker(
		db,
		repositories.NewImageRepository(),
		store,
		imageprocessor.NewProcessor(cfg.Upload.ImageQuality),
		recordCache,
	)

	server := asynq.NewServer(asynq.RedisClientOpt{
		Addr:     cfg.Queue.RedisAddr,
		Password: cfg.Redis.Password,
	}, asynq.Config{
		Concurrency: cfg.Queue.Concurrency,
	})

	go func() {
		<-ctx.Done()
		server.Shutdown()
	}()

	logger.Info("Thumbnail worker starting", "redis", cfg.Queue.RedisAddr, "concurrency", cfg.Queue.Concurrency)
	if err := server.Run(queue.NewServeMux(thumbnails.Handle)); err != nil {
		logger.Error("Worker stopped", "error", err)
		os.Exit(1)
	}
}
