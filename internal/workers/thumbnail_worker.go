package workers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"cabinet_tracker/internal/cache"
	"cabinet_tracker/internal/imageprocessor"
	"cabinet_tracker/internal/logger"
	"cabinet_tracker/internal/models"
	"cabinet_tracker/internal/queue"
	"cabinet_tracker/internal/repositories"
	"cabinet_tracker/internal/storage"

	"gorm.io/gorm"
)

// ThumbnailWorker renders the size variants of stored uploads.
type ThumbnailWorker struct {
	db        *gorm.DB
	repo      repositories.ImageRepository
	storage   storage.Storage
	processor *imageprocessor.Processor
	cache     cache.Cache
	sizes     []imageprocessor.ImageSize
}

func NewThumbnailWorker(
	db *gorm.DB,
	repo repositories.ImageRepository,
	store storage.Storage,
	processor *imageprocessor.Processor,
	recordCache cache.Cache,
) *ThumbnailWorker {
	return &ThumbnailWorker{
		db:        db,
		repo:      repo,
		storage:   store,
		processor: processor,
		cache:     recordCache,
		sizes:     imageprocessor.DefaultVariants,
	}
}

// Handle satisfies queue.ThumbnailHandler. Variants written by a run that
// cannot record them, e.g. because the image was deleted meanwhile, are
// removed again.
func (w *ThumbnailWorker) Handle(ctx context.Context, p queue.ThumbnailPayload) (err error) {
	ctx = logger.WithCorrelationID(ctx, p.ImageID)
	start := time.Now()
	defer func() {
		logger.WorkerLog("thumbnail", p.ImageID, time.Since(start), err)
	}()

	db := w.db.WithContext(ctx)
	image, err := w.repo.FindByID(db, p.ImageID)
	if err != nil {
		return fmt.Errorf("load image %s: %w", p.ImageID, err)
	}

	rc, err := w.storage.Get(ctx, p.ObjectKey)
	if err != nil {
		return fmt.Errorf("read %s: %w", p.ObjectKey, err)
	}
	data, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return fmt.Errorf("read %s: %w", p.ObjectKey, err)
	}

	variants, err := w.processor.Variants(ctx, p.ObjectKey, data, w.sizes)
	if err != nil {
		return err
	}

	meta, metaErr := image.DecodeMetadata()
	if metaErr != nil {
		logger.CtxWarn(ctx, "Discarding unreadable image metadata", "image_id", image.ID, "error", metaErr)
		meta = models.ImageMetadata{}
	}
	if width, height, dimErr := imageprocessor.GetImageDimensions(bytes.NewReader(data)); dimErr == nil {
		meta.Width, meta.Height = width, height
	}
	meta.Variants = make(map[string]models.VariantEntry, len(variants))

	saved := make([]string, 0, len(variants))
	defer func() {
		if err != nil {
			w.removeVariants(ctx, saved)
		}
	}()

	for _, v := range variants {
		if err := w.storage.Save(ctx, v.Path, bytes.NewReader(v.Data), v.MIMEType); err != nil {
			return fmt.Errorf("store variant %s: %w", v.Name, err)
		}
		saved = append(saved, v.Path)
		meta.Variants[v.Name] = models.VariantEntry{
			Path:   v.Path,
			Width:  v.Width,
			Height: v.Height,
			Size:   int64(len(v.Data)),
		}
	}

	if err := image.SetMetadata(meta); err != nil {
		return err
	}
	thumb := meta.Variants[imageprocessor.SizeThumbnail.Name].Path
	if err := w.repo.UpdateThumbnail(db, image.ID, thumb, image.Metadata); err != nil {
		return fmt.Errorf("update image %s: %w", image.ID, err)
	}

	if w.cache != nil {
		if err := w.cache.Delete(ctx, image.ID); err != nil {
			logger.CtxWarn(ctx, "Failed to invalidate cached image", "image_id", image.ID, "error", err)
		}
	}
	return nil
}

func (w *ThumbnailWorker) removeVariants(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := w.storage.Delete(ctx, key); err != nil {
			logger.CtxWarn(ctx, "Failed to remove orphaned variant", "key", key, "error", err)
		}
	}
}
