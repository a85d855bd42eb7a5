package handlers

import (
	"net/http"

	"cabinet_tracker/internal/services"
	"cabinet_tracker/internal/services/dto"
	"cabinet_tracker/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

// multipartOverhead is the slack allowed on top of the image ceiling for
// boundaries and form fields before a request is refused unread.
const multipartOverhead = 64 << 10

// multipartMemory is how much of a parsed form is held in memory before
// file parts spill to temporary files.
const multipartMemory = 8 << 20

type ImageHandler struct {
	*BaseHandler
	imageService services.ImageService
	maxBytes     int64
}

func NewImageHandler(base *BaseHandler, imageService services.ImageService, maxBytes int64) *ImageHandler {
	return &ImageHandler{
		BaseHandler:  base,
		imageService: imageService,
		maxBytes:     maxBytes,
	}
}

func (h *ImageHandler) RegisterRoutes(r *gin.RouterGroup) {
	images := r.Group("/images")
	{
		images.POST("", h.UploadImage)
		images.POST("/base64", h.ProcessBase64)

		images.GET("", h.ListImages)
		images.GET("/stats", h.GetStats)
		images.GET("/:id", h.GetImage)
		images.GET("/:id/signed-url", h.GetSignedURL)

		images.DELETE("/:id", h.DeleteImage)
	}
}

// UploadImage godoc
// @Summary Upload a cabinet image
// @Tags images
// @Accept multipart/form-data
// @Param file formData file true "Image file"
// @Param category formData string false "Category label"
// @Success 201 {object} SuccessResponse
// @Failure 400,413,415 {object} apperrors.ErrorResponse
// @Router /images [post]
func (h *ImageHandler) UploadImage(c *gin.Context) {
	if h.maxBytes > 0 && c.Request.ContentLength > h.maxBytes+multipartOverhead {
		h.HandleServiceError(c, apperrors.ErrPayloadTooLarge(c.Request.ContentLength, h.maxBytes))
		return
	}

	if err := c.Request.ParseMultipartForm(multipartMemory); err != nil && bodyTooLarge(c, err) != nil {
		size := c.Request.ContentLength
		if size <= h.maxBytes {
			size = h.maxBytes + 1
		}
		h.HandleServiceError(c, apperrors.ErrPayloadTooLarge(size, h.maxBytes))
		return
	}

	req := dto.MultipartUploadRequest{Category: c.PostForm("category")}
	if !h.validate(c, &req) {
		return
	}

	// a missing part and a non-multipart body both mean nothing was uploaded
	if fileHeader, err := c.FormFile("file"); err == nil {
		req.File = fileHeader
	}

	result, err := h.imageService.UploadMultipart(c.Request.Context(), h.GetDB(c), &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	respond(c, http.StatusCreated, result)
}

// ProcessBase64 godoc
// @Summary Validate a base64 image
// @Tags images
// @Accept json
// @Param request body dto.Base64UploadRequest true "Payload"
// @Success 200 {object} SuccessResponse
// @Router /images/base64 [post]
func (h *ImageHandler) ProcessBase64(c *gin.Context) {
	var req dto.Base64UploadRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	result, err := h.imageService.ProcessBase64(c.Request.Context(), h.GetDB(c), &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	respond(c, http.StatusOK, result)
}

func (h *ImageHandler) ListImages(c *gin.Context) {
	var query dto.ImageListQuery
	if !h.BindAndValidate_Query(c, &query) {
		return
	}

	result, err := h.imageService.ListImages(h.GetDB(c), &query)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	respond(c, http.StatusOK, result)
}

func (h *ImageHandler) GetImage(c *gin.Context) {
	result, err := h.imageService.GetImage(c.Request.Context(), h.GetDB(c), c.Param("id"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	respond(c, http.StatusOK, result)
}

func (h *ImageHandler) GetStats(c *gin.Context) {
	result, err := h.imageService.Stats(h.GetDB(c))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	respond(c, http.StatusOK, result)
}

func (h *ImageHandler) GetSignedURL(c *gin.Context) {
	result, err := h.imageService.SignedURL(c.Request.Context(), h.GetDB(c), c.Param("id"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	respond(c, http.StatusOK, result)
}

func (h *ImageHandler) DeleteImage(c *gin.Context) {
	if err := h.imageService.DeleteImage(c.Request.Context(), h.GetDB(c), c.Param("id")); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	respond(c, http.StatusOK, gin.H{"id": c.Param("id"), "deleted": true})
}
