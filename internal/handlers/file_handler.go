package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"cabinet_tracker/internal/logger"
	"cabinet_tracker/internal/services"
	"cabinet_tracker/internal/storage"
	"cabinet_tracker/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

// FileHandler streams stored objects.
type FileHandler struct {
	*BaseHandler
	storage      storage.Storage
	imageService services.ImageService
	signer       *storage.URLSigner
	requireToken bool
}

// NewFileHandler builds the handler. A nil signer disables token checks.
func NewFileHandler(base *BaseHandler, store storage.Storage, imageService services.ImageService, signer *storage.URLSigner, requireToken bool) *FileHandler {
	return &FileHandler{
		BaseHandler:  base,
		storage:      store,
		imageService: imageService,
		signer:       signer,
		requireToken: requireToken && signer != nil,
	}
}

func (h *FileHandler) RegisterRoutes(r *gin.RouterGroup) {
	files := r.Group("/files")
	{
		files.GET("/*path", h.ServeFile)
		files.HEAD("/*path", h.ServeFile)
	}
}

// ServeFile streams the object at path with ETag and cache headers.
func (h *FileHandler) ServeFile(c *gin.Context) {
	ctx := c.Request.Context()

	key, err := storage.CleanKey(c.Param("path"))
	if err != nil {
		apperrors.HandleError(c, apperrors.NewBadRequestError("Invalid file path"))
		return
	}

	token := c.Query("token")
	if h.signer != nil && (token != "" || h.requireToken) {
		if err := h.signer.Verify(token, key); err != nil {
			logger.CtxWarn(ctx, "Rejected file token", "path", key, "error", err)
			apperrors.HandleError(c, apperrors.ErrInvalidToken(err))
			return
		}
	}

	size, err := h.storage.GetSize(ctx, key)
	if err != nil {
		h.handleStorageError(c, err)
		return
	}

	// stored names are never reused, so the key and size identify the content
	etag := fmt.Sprintf(`"%s-%d"`, strings.ReplaceAll(key, `"`, ""), size)
	c.Header("ETag", etag)
	c.Header("Cache-Control", "public, max-age=31536000, immutable")
	if token != "" {
		c.Header("Cache-Control", "private, no-store")
	}
	if match := c.GetHeader("If-None-Match"); match != "" && match == etag {
		c.Status(http.StatusNotModified)
		return
	}

	c.Header("Content-Type", h.imageService.ContentType(ctx, h.GetDB(c), key))
	c.Header("Content-Length", strconv.FormatInt(size, 10))
	if c.Query("download") == "true" {
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, key[strings.LastIndex(key, "/")+1:]))
	} else {
		c.Header("Content-Disposition", "inline")
	}

	if c.Request.Method == http.MethodHead {
		c.Status(http.StatusOK)
		return
	}

	reader, err := h.storage.Get(ctx, key)
	if err != nil {
		h.handleStorageError(c, err)
		return
	}
	defer reader.Close()

	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, reader); err != nil {
		// headers already sent
		_ = c.Error(err)
	}
}

func (h *FileHandler) handleStorageError(c *gin.Context, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		apperrors.HandleError(c, apperrors.ErrNotFound(err))
		return
	}
	apperrors.HandleError(c, apperrors.ErrStorage(err))
}
