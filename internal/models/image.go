package models

import (
	"encoding/json"

	"gorm.io/datatypes"
)

const (
	SourceMultipart = "multipart"
	SourceBase64    = "base64"
)

// Image is a stored cabinet photo.
type Image struct {
	BaseModelWithDeleted
	Filename        string         `gorm:"not null;uniqueIndex" json:"filename"`
	OriginalName    string         `gorm:"column:original_name" json:"originalName"`
	MimeType        string         `gorm:"not null" json:"mimetype"`
	Category        string         `gorm:"not null;index" json:"category"`
	Size            int64          `gorm:"not null" json:"size"`
	Path            string         `gorm:"not null" json:"path"`
	URL             string         `gorm:"column:url" json:"url"`
	StorageProvider string         `gorm:"column:storage_provider;default:'local'" json:"storageProvider"`
	Source          string         `gorm:"not null" json:"source"`
	Checksum        string         `gorm:"size:64;index" json:"checksum"`
	ThumbnailPath   string         `gorm:"column:thumbnail_path" json:"thumbnailPath,omitempty"`
	Metadata        datatypes.JSON `json:"metadata,omitempty"`
}

// ImageMetadata is the decoded form of Image.Metadata.
type ImageMetadata struct {
	Width    int                     `json:"width,omitempty"`
	Height   int                     `json:"height,omitempty"`
	Variants map[string]VariantEntry `json:"variants,omitempty"`
}

type VariantEntry struct {
	Path   string `json:"path"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Size   int64  `json:"size"`
}

// DecodeMetadata returns the zero value when no metadata is stored.
func (i *Image) DecodeMetadata() (ImageMetadata, error) {
	var meta ImageMetadata
	if len(i.Metadata) == 0 {
		return meta, nil
	}
	err := json.Unmarshal(i.Metadata, &meta)
	return meta, err
}

func (i *Image) SetMetadata(meta ImageMetadata) error {
	raw, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	i.Metadata = datatypes.JSON(raw)
	return nil
}

// VariantPaths lists storage keys of every rendered size.
func (i *Image) VariantPaths() []string {
	meta, err := i.DecodeMetadata()
	if err != nil {
		return nil
	}
	paths := make([]string, 0, len(meta.Variants))
	for _, v := range meta.Variants {
		paths = append(paths, v.Path)
	}
	return paths
}
