package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"cabinet_tracker/internal/cache"
	"cabinet_tracker/internal/imagepipeline"
	"cabinet_tracker/internal/logger"
	"cabinet_tracker/internal/models"
	"cabinet_tracker/internal/queue"
	"cabinet_tracker/internal/repositories"
	"cabinet_tracker/internal/services/dto"
	"cabinet_tracker/internal/storage"
	"cabinet_tracker/pkg/apperrors"

	"gorm.io/gorm"
)

type ImageService interface {
	// UploadMultipart validates, stores and records a multipart upload.
	UploadMultipart(ctx context.Context, db *gorm.DB, req *dto.MultipartUploadRequest) (*imagepipeline.UploadResult, error)

	// ProcessBase64 validates a base64 payload and optionally stores it.
	ProcessBase64(ctx context.Context, db *gorm.DB, req *dto.Base64UploadRequest) (*dto.Base64UploadResponse, error)

	GetImage(ctx context.Context, db *gorm.DB, id string) (*dto.ImageResponse, error)
	ListImages(db *gorm.DB, query *dto.ImageListQuery) (*dto.ImageListResponse, error)
	DeleteImage(ctx context.Context, db *gorm.DB, id string) error
	Stats(db *gorm.DB) (*repositories.ImageStats, error)
	SignedURL(ctx context.Context, db *gorm.DB, id string) (*dto.SignedURLResponse, error)

	// ContentType reports the MIME type a stored object is served with.
	ContentType(ctx context.Context, db *gorm.DB, key string) string
}

type ImageServiceConfig struct {
	DefaultCategory string
	StorageProvider string
	CacheTTL        time.Duration
	SignedURLTTL    time.Duration
}

type imageService struct {
	pipeline *imagepipeline.Pipeline
	repo     repositories.ImageRepository
	storage  storage.Storage
	cache    cache.Cache
	queue    queue.Enqueuer
	config   ImageServiceConfig
}

func NewImageService(
	pipeline *imagepipeline.Pipeline,
	repo repositories.ImageRepository,
	store storage.Storage,
	recordCache cache.Cache,
	enqueuer queue.Enqueuer,
	cfg ImageServiceConfig,
) ImageService {
	if cfg.DefaultCategory == "" {
		cfg.DefaultCategory = imagepipeline.DefaultCategory
	}
	if cfg.StorageProvider == "" {
		cfg.StorageProvider = "local"
	}
	if cfg.SignedURLTTL <= 0 {
		cfg.SignedURLTTL = 15 * time.Minute
	}
	return &imageService{
		pipeline: pipeline,
		repo:     repo,
		storage:  store,
		cache:    recordCache,
		queue:    enqueuer,
		config:   cfg,
	}
}

func (s *imageService) category(c string) string {
	if c == "" {
		return s.config.DefaultCategory
	}
	return c
}

func (s *imageService) UploadMultipart(ctx context.Context, db *gorm.DB, req *dto.MultipartUploadRequest) (*imagepipeline.UploadResult, error) {
	var src imagepipeline.Source
	if req.File != nil {
		src = imagepipeline.FileHeaderSource{Header: req.File}
	}
	res, err := s.pipeline.Process(src, s.category(req.Category))
	if err != nil {
		logRejection(ctx, res, err)
		return nil, err
	}

	img, err := s.store(ctx, db, res, models.SourceMultipart)
	if err != nil {
		return nil, err
	}

	out := res.AssembleUpload(img.URL)
	logger.CtxInfo(ctx, "Image uploaded", "id", img.ID, "filename", img.Filename, "size", img.Size)
	return &out, nil
}

func (s *imageService) ProcessBase64(ctx context.Context, db *gorm.DB, req *dto.Base64UploadRequest) (*dto.Base64UploadResponse, error) {
	res, err := s.pipeline.Process(imagepipeline.Base64Source{
		Payload:      req.Image,
		OriginalName: req.OriginalName,
	}, s.category(req.Category))
	if err != nil {
		logRejection(ctx, res, err)
		return nil, err
	}

	var stored *models.Image
	if req.Store {
		if stored, err = s.store(ctx, db, res, models.SourceBase64); err != nil {
			return nil, err
		}
	}

	processed := res.AssembleProcessed()
	out := &dto.Base64UploadResponse{
		Filename:     processed.Filename,
		OriginalName: processed.OriginalName,
		MIMEType:     processed.MIMEType,
		Size:         processed.Size,
		Data:         processed.Data,
	}
	if stored != nil {
		out.ID = stored.ID
		out.URL = stored.URL
	}
	return out, nil
}

// store writes the row inside a transaction, saves the object and commits.
// The object is removed again if the commit fails.
func (s *imageService) store(ctx context.Context, db *gorm.DB, res *imagepipeline.Result, source string) (*models.Image, error) {
	_, inTransaction := db.Statement.ConnPool.(gorm.TxCommitter)
	if !inTransaction {
		db = db.Begin()
		if db.Error != nil {
			return nil, apperrors.ErrDatabase(db.Error)
		}
		defer db.Rollback()
	}

	url, err := s.storage.GetURL(ctx, res.Filename)
	if err != nil {
		return nil, apperrors.ErrStorage(err)
	}
	sum := sha256.Sum256(res.Body)
	img := &models.Image{
		Filename:        res.Filename,
		OriginalName:    res.OriginalName,
		MimeType:        res.MIMEType,
		Category:        res.Category,
		Size:            res.Size,
		Path:            res.Filename,
		URL:             url,
		StorageProvider: s.config.StorageProvider,
		Source:          source,
		Checksum:        hex.EncodeToString(sum[:]),
	}
	if err := s.repo.Create(db, img); err != nil {
		return nil, apperrors.ErrDatabase(err)
	}

	if err := s.storage.Save(ctx, img.Path, bytes.NewReader(res.Body), img.MimeType); err != nil {
		return nil, apperrors.ErrStorage(err)
	}

	if !inTransaction {
		if err := db.Commit().Error; err != nil {
			if delErr := s.storage.Delete(ctx, img.Path); delErr != nil {
				logger.CtxError(ctx, "Failed to roll back stored file", "path", img.Path, "error", delErr)
			}
			return nil, apperrors.ErrDatabase(err)
		}
	}

	if s.queue != nil {
		job := queue.ThumbnailPayload{ImageID: img.ID, ObjectKey: img.Path, MimeType: img.MimeType}
		if err := s.queue.EnqueueThumbnail(ctx, job); err != nil {
			logger.CtxWarn(ctx, "Failed to enqueue thumbnail job", "id", img.ID, "error", err)
		}
	}
	return img, nil
}

func (s *imageService) GetImage(ctx context.Context, db *gorm.DB, id string) (*dto.ImageResponse, error) {
	var cached dto.ImageResponse
	if s.cache != nil {
		hit, err := cache.GetJSON(ctx, s.cache, id, &cached)
		if err != nil {
			logger.CtxWarn(ctx, "Image cache read failed", "id", id, "error", err)
		} else if hit {
			logger.CtxDebug(ctx, "Image cache hit", "id", id)
			return &cached, nil
		}
	}

	img, err := s.repo.FindByID(db, id)
	if err != nil {
		return nil, handleImageError(err)
	}
	resp := dto.NewImageResponse(img)

	if s.cache != nil {
		if err := cache.SetJSON(ctx, s.cache, id, resp, s.config.CacheTTL); err != nil {
			logger.CtxWarn(ctx, "Image cache write failed", "id", id, "error", err)
		}
	}
	return &resp, nil
}

func (s *imageService) ListImages(db *gorm.DB, query *dto.ImageListQuery) (*dto.ImageListResponse, error) {
	filter := repositories.ImageFilter{Category: query.Category, Page: query.Page, PageSize: query.PageSize}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	images, total, err := s.repo.List(db, filter)
	if err != nil {
		return nil, apperrors.ErrDatabase(err)
	}

	out := &dto.ImageListResponse{
		Images:     make([]dto.ImageResponse, 0, len(images)),
		Total:      total,
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalPages: int((total + int64(filter.PageSize) - 1) / int64(filter.PageSize)),
	}
	for i := range images {
		out.Images = append(out.Images, dto.NewImageResponse(&images[i]))
	}
	return out, nil
}

// DeleteImage soft-deletes the record and removes the stored objects after
// the commit. Storage failures are logged, not returned.
func (s *imageService) DeleteImage(ctx context.Context, db *gorm.DB, id string) error {
	img, err := s.repo.FindByID(db, id)
	if err != nil {
		return handleImageError(err)
	}
	if err := s.repo.Delete(db, id); err != nil {
		return handleImageError(err)
	}

	if s.cache != nil {
		if err := s.cache.Delete(ctx, id); err != nil {
			logger.CtxWarn(ctx, "Image cache invalidation failed", "id", id, "error", err)
		}
	}

	for _, key := range append([]string{img.Path}, img.VariantPaths()...) {
		if err := s.storage.Delete(ctx, key); err != nil {
			logger.CtxWarn(ctx, "Failed to delete file from storage", "path", key, "error", err)
		}
	}
	return nil
}

func (s *imageService) Stats(db *gorm.DB) (*repositories.ImageStats, error) {
	stats, err := s.repo.Stats(db)
	if err != nil {
		return nil, apperrors.ErrDatabase(err)
	}
	return stats, nil
}

func (s *imageService) SignedURL(ctx context.Context, db *gorm.DB, id string) (*dto.SignedURLResponse, error) {
	img, err := s.repo.FindByID(db, id)
	if err != nil {
		return nil, handleImageError(err)
	}
	url, err := s.storage.GetSignedURL(ctx, img.Path, s.config.SignedURLTTL)
	if err != nil {
		return nil, apperrors.ErrStorage(err)
	}
	return &dto.SignedURLResponse{URL: url, ExpiresAt: time.Now().Add(s.config.SignedURLTTL).UTC()}, nil
}

// ContentType prefers the trusted type recorded at upload, since a stored
// name may carry the default extension. Variants and unknown keys fall back
// to the extension.
func (s *imageService) ContentType(ctx context.Context, db *gorm.DB, key string) string {
	img, err := s.repo.FindByFilename(db, key)
	switch {
	case err == nil && img.MimeType != "":
		return img.MimeType
	case err != nil && !errors.Is(err, repositories.ErrImageNotFound):
		logger.CtxWarn(ctx, "Content type lookup failed", "key", key, "error", err)
	}
	if t := imagepipeline.TypeFromFilename(key); t != "" {
		return t
	}
	return "application/octet-stream"
}

func handleImageError(err error) error {
	if errors.Is(err, repositories.ErrImageNotFound) {
		return apperrors.ErrNotFound(err)
	}
	return apperrors.ErrDatabase(err)
}

func logRejection(ctx context.Context, res *imagepipeline.Result, err error) {
	var trail []string
	if res != nil {
		trail = imagepipeline.TrailNames(res.Trail)
	}
	if appErr, ok := apperrors.AsAppError(err); ok && appErr.IsClientError() {
		logger.CtxWarn(ctx, "Image rejected", "code", appErr.Code, "trail", trail)
		return
	}
	logger.CtxWithError(ctx, "Image validation failed", err, "trail", trail)
}
