package dto

import (
	"mime/multipart"
	"time"

	"cabinet_tracker/internal/models"
)

// MultipartUploadRequest carries the form fields of POST /images.
type MultipartUploadRequest struct {
	File     *multipart.FileHeader `form:"-"`
	Category string                `form:"category" validate:"omitempty,image-category"`
}

// Base64UploadRequest is the JSON body of POST /images/base64.
type Base64UploadRequest struct {
	Image        string `json:"image"`
	OriginalName string `json:"originalName" validate:"omitempty,original-name"`
	Category     string `json:"category" validate:"omitempty,image-category"`
	Store        bool   `json:"store"`
}

// Base64UploadResponse adds the stored record when the caller asked for it.
type Base64UploadResponse struct {
	Filename     string `json:"filename"`
	OriginalName string `json:"originalName"`
	MIMEType     string `json:"mimeType"`
	Size         int64  `json:"size"`
	Data         string `json:"data"`
	ID           string `json:"id,omitempty"`
	URL          string `json:"url,omitempty"`
}

type ImageListQuery struct {
	Category string `form:"category" validate:"omitempty,image-category"`
	Page     int    `form:"page" validate:"omitempty,min=1"`
	PageSize int    `form:"page_size" validate:"omitempty,min=1,max=100"`
}

type ImageResponse struct {
	ID            string                `json:"id"`
	Filename      string                `json:"filename"`
	OriginalName  string                `json:"originalName"`
	MIMEType      string                `json:"mimetype"`
	Category      string                `json:"category"`
	Size          int64                 `json:"size"`
	URL           string                `json:"url"`
	Source        string                `json:"source"`
	Checksum      string                `json:"checksum"`
	ThumbnailPath string                `json:"thumbnailPath,omitempty"`
	Metadata      *models.ImageMetadata `json:"metadata,omitempty"`
	CreatedAt     time.Time             `json:"createdAt"`
}

type ImageListResponse struct {
	Images     []ImageResponse `json:"images"`
	Total      int64           `json:"total"`
	Page       int             `json:"page"`
	PageSize   int             `json:"pageSize"`
	TotalPages int             `json:"totalPages"`
}

type SignedURLResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// NewImageResponse flattens a record for the API.
func NewImageResponse(img *models.Image) ImageResponse {
	resp := ImageResponse{
		ID:            img.ID,
		Filename:      img.Filename,
		OriginalName:  img.OriginalName,
		MIMEType:      img.MimeType,
		Category:      img.Category,
		Size:          img.Size,
		URL:           img.URL,
		Source:        img.Source,
		Checksum:      img.Checksum,
		ThumbnailPath: img.ThumbnailPath,
		CreatedAt:     img.CreatedAt,
	}
	if meta, err := img.DecodeMetadata(); err == nil && (meta.Width > 0 || len(meta.Variants) > 0) {
		resp.Metadata = &meta
	}
	return resp
}
