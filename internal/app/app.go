package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"cabinet_tracker/database"
	"cabinet_tracker/internal/cache"
	"cabinet_tracker/internal/config"
	"cabinet_tracker/internal/handlers"
	"cabinet_tracker/internal/imagepipeline"
	"cabinet_tracker/internal/imageprocessor"
	"cabinet_tracker/internal/logger"
	"cabinet_tracker/internal/middleware"
	"cabinet_tracker/internal/queue"
	"cabinet_tracker/internal/repositories"
	"cabinet_tracker/internal/routes"
	"cabinet_tracker/internal/services"
	"cabinet_tracker/internal/storage"
	"cabinet_tracker/internal/validator"
	"cabinet_tracker/internal/workers"
	"cabinet_tracker/pkg/apperrors"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"gorm.io/gorm"
)

func Run() {
	config.LoadConfig()
	cfg := config.AppConfig
	logger.Init(cfg.Server.Env)
	logger.Info("Logger initialized", "env", cfg.Server.Env)
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
		apperrors.DebugErrors = false
	}

	logger.Info("Connecting to database...", "driver", cfg.Database.Driver)
	db, err := database.Open(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		logger.Fatal("Failed to migrate database", "error", err)
	}
	logger.Info("Database connected")

	infra, err := NewInfrastructure(cfg, db)
	if err != nil {
		logger.Fatal("Failed to initialize infrastructure", "error", err)
	}
	defer infra.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	workers.NewCleanupWorker(db, infra.Storage, cfg.Retention()).Start(ctx)

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           SetupRouter(cfg, db, infra),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server starting", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server startup error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}
}

// Infrastructure bundles the backends services run on.
type Infrastructure struct {
	Storage   storage.Storage
	Signer    *storage.URLSigner
	Cache     cache.Cache
	Queue     queue.Enqueuer
	Processor *imageprocessor.Processor
	Pipeline  *imagepipeline.Pipeline
}

// NewInfrastructure builds storage, cache, pipeline and the thumbnail queue
// from configuration.
func NewInfrastructure(cfg *config.Config, db *gorm.DB) (*Infrastructure, error) {
	store, err := storage.NewStorage(StorageConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	logger.Info("Storage initialized", "type", cfg.Storage.Type)

	recordCache, err := cache.New(cache.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Prefix:   cfg.Redis.Prefix,
		TTL:      cfg.CacheTTL(),
	})
	if err != nil {
		return nil, fmt.Errorf("init cache: %w", err)
	}

	infra := &Infrastructure{
		Storage:   store,
		Cache:     recordCache,
		Processor: imageprocessor.NewProcessor(cfg.Upload.ImageQuality),
		Pipeline: imagepipeline.New(imagepipeline.Options{
			MaxBytes:           cfg.Upload.MaxSize,
			RejectUnknownTypes: cfg.Upload.RejectUnknownTypes,
		}),
	}
	if cfg.Signing.Secret != "" {
		infra.Signer = storage.NewURLSigner(cfg.Signing.Secret)
	}

	switch {
	case !cfg.Upload.Thumbnails:
		logger.Info("Thumbnails disabled")
	case cfg.Queue.RedisAddr != "":
		infra.Queue = queue.NewAsynqEnqueuer(asynq.RedisClientOpt{
			Addr:     cfg.Queue.RedisAddr,
			Password: cfg.Redis.Password,
		})
		logger.Info("Thumbnail jobs go to asynq", "addr", cfg.Queue.RedisAddr)
	default:
		worker := workers.NewThumbnailWorker(db, repositories.NewImageRepository(), store, infra.Processor, recordCache)
		infra.Queue = queue.NewInlineEnqueuer(worker.Handle)
		logger.Info("Thumbnail jobs run in process")
	}
	return infra, nil
}

func (i *Infrastructure) Close() {
	if i.Queue != nil {
		if err := i.Queue.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close queue")
		}
	}
	if i.Cache != nil {
		if err := i.Cache.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close cache")
		}
	}
}

// StorageConfig maps application config onto the storage backend config.
func StorageConfig(cfg *config.Config) storage.Config {
	return storage.Config{
		Type:          cfg.Storage.Type,
		BasePath:      cfg.Storage.BasePath,
		BaseURL:       cfg.Storage.BaseURL,
		Bucket:        cfg.Storage.Bucket,
		Region:        cfg.Storage.Region,
		AccessKey:     cfg.Storage.AccessKey,
		SecretKey:     cfg.Storage.SecretKey,
		Endpoint:      cfg.Storage.Endpoint,
		UseSSL:        cfg.Storage.UseSSL,
		PublicRead:    cfg.Storage.PublicRead,
		SigningSecret: cfg.Signing.Secret,
	}
}

func SetupRouter(cfg *config.Config, db *gorm.DB, infra *Infrastructure) *gin.Engine {
	serviceContainer := initializeServices(cfg, infra)
	appHandlers := initializeHandlers(cfg, serviceContainer, infra)

	ginRouter := initializeGinRouter(cfg, db)
	routes.RegisterRoutes(ginRouter, appHandlers)
	return ginRouter
}

func initializeServices(cfg *config.Config, infra *Infrastructure) *services.ServiceContainer {
	return services.NewServiceContainer(services.Dependencies{
		Pipeline: infra.Pipeline,
		Storage:  infra.Storage,
		Cache:    infra.Cache,
		Queue:    infra.Queue,
		Images: services.ImageServiceConfig{
			DefaultCategory: cfg.Upload.DefaultCategory,
			StorageProvider: cfg.Storage.Type,
			CacheTTL:        cfg.CacheTTL(),
			SignedURLTTL:    cfg.SignedURLTTL(),
		},
	})
}

func initializeHandlers(cfg *config.Config, services *services.ServiceContainer, infra *Infrastructure) *handlers.AppHandlers {
	baseHandler := handlers.NewBaseHandler(validator.New())

	return &handlers.AppHandlers{
		ImageHandler: handlers.NewImageHandler(baseHandler, services.ImageService, services.Pipeline.MaxBytes()),
		FileHandler:  handlers.NewFileHandler(baseHandler, services.Storage, services.ImageService, infra.Signer, cfg.Signing.Required),
	}
}

// BodyLimit is the largest request body accepted: a base64 encoding of a
// maximum-size image plus room for form fields and JSON framing.
func BodyLimit(maxImageBytes int64) int64 {
	return (maxImageBytes+2)/3*4 + 64<<10
}

func initializeGinRouter(cfg *config.Config, db *gorm.DB) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware("/health"))
	router.Use(middleware.CORSMiddleware(cfg.Server.AllowedOrigins))
	router.Use(middleware.BodyLimitMiddleware(BodyLimit(cfg.Upload.MaxSize)))
	router.Use(middleware.DBMiddleware(db))
	return router
}
