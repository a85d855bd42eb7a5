package workers

import (
	"context"
	"log/slog"
	"time"

	"cabinet_tracker/internal/logger"
	"cabinet_tracker/internal/models"
	"cabinet_tracker/internal/storage"

	"gorm.io/gorm"
)

// CleanupWorker purges soft-deleted images once their retention has passed.
type CleanupWorker struct {
	db        *gorm.DB
	storage   storage.Storage
	retention time.Duration
	interval  time.Duration
	now       func() time.Time
	log       *slog.Logger
}

func NewCleanupWorker(db *gorm.DB, store storage.Storage, retention time.Duration) *CleanupWorker {
	if retention <= 0 {
		retention = 7 * 24 * time.Hour
	}
	return &CleanupWorker{
		db:        db,
		storage:   store,
		retention: retention,
		interval:  time.Hour,
		now:       time.Now,
		log:       logger.With("worker", "cleanup", "retention", retention.String()),
	}
}

// Start runs the purge loop until ctx is cancelled.
func (w *CleanupWorker) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				w.log.Info("Cleanup worker stopped")
				return
			case <-ticker.C:
				if _, err := w.PurgeOnce(ctx); err != nil {
					w.log.Error("Error purging deleted images", "error", err)
				}
			}
		}
	}()
}

// PurgeOnce removes expired rows and their stored objects and reports how
// many rows were purged.
func (w *CleanupWorker) PurgeOnce(ctx context.Context) (int, error) {
	start := time.Now()
	cutoff := w.now().Add(-w.retention)

	var expired []models.Image
	err := w.db.WithContext(ctx).Unscoped().
		Where("deleted_at IS NOT NULL AND deleted_at < ?", cutoff).
		Find(&expired).Error
	if err != nil {
		logger.WorkerLog("cleanup", "purge", time.Since(start), err)
		return 0, err
	}

	purged := 0
	for i := range expired {
		img := &expired[i]
		keys := append([]string{img.Path}, img.VariantPaths()...)
		for _, key := range keys {
			if err := w.storage.Delete(ctx, key); err != nil {
				w.log.Warn("Failed to delete stored object", "key", key, "error", err)
			}
		}
		if err := w.db.WithContext(ctx).Unscoped().Delete(&models.Image{}, "id = ?", img.ID).Error; err != nil {
			logger.WorkerLog("cleanup", "purge", time.Since(start), err)
			return purged, err
		}
		purged++
	}

	if purged > 0 {
		w.log.Info("Purged deleted images", "count", purged)
	}
	logger.WorkerLog("cleanup", "purge", time.Since(start), nil)
	return purged, nil
}
