package repositories

import (
	"errors"

	"cabinet_tracker/internal/models"

	"gorm.io/gorm"
)

var ErrImageNotFound = errors.New("image not found")

// ImageFilter narrows List. Zero values mean no filtering.
type ImageFilter struct {
	Category string
	Page     int
	PageSize int
}

type CategoryStats struct {
	Category   string `json:"category"`
	Count      int64  `json:"count"`
	TotalBytes int64  `json:"totalBytes"`
}

type ImageStats struct {
	TotalImages int64           `json:"totalImages"`
	TotalBytes  int64           `json:"totalBytes"`
	Categories  []CategoryStats `json:"categories"`
}

type ImageRepository interface {
	Create(db *gorm.DB, image *models.Image) error
	FindByID(db *gorm.DB, id string) (*models.Image, error)
	FindByFilename(db *gorm.DB, filename string) (*models.Image, error)
	List(db *gorm.DB, filter ImageFilter) ([]models.Image, int64, error)
	Delete(db *gorm.DB, id string) error
	Stats(db *gorm.DB) (*ImageStats, error)
	UpdateThumbnail(db *gorm.DB, id, thumbnailPath string, metadata []byte) error
}

type ImageRepositoryImpl struct{}

func NewImageRepository() ImageRepository {
	return &ImageRepositoryImpl{}
}

func (r *ImageRepositoryImpl) Create(db *gorm.DB, image *models.Image) error {
	return db.Create(image).Error
}

func (r *ImageRepositoryImpl) FindByID(db *gorm.DB, id string) (*models.Image, error) {
	var image models.Image
	if err := db.First(&image, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrImageNotFound
		}
		return nil, err
	}
	return &image, nil
}

func (r *ImageRepositoryImpl) FindByFilename(db *gorm.DB, filename string) (*models.Image, error) {
	var image models.Image
	if err := db.Where("filename = ?", filename).First(&image).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrImageNotFound
		}
		return nil, err
	}
	return &image, nil
}

// List returns one page, newest first, and the total count before paging.
func (r *ImageRepositoryImpl) List(db *gorm.DB, filter ImageFilter) ([]models.Image, int64, error) {
	query := db.Model(&models.Image{})
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, pageSize := filter.Page, filter.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	var images []models.Image
	err := query.Order("created_at DESC").Order("id").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&images).Error
	return images, total, err
}

func (r *ImageRepositoryImpl) Delete(db *gorm.DB, id string) error {
	result := db.Delete(&models.Image{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrImageNotFound
	}
	return nil
}

func (r *ImageRepositoryImpl) Stats(db *gorm.DB) (*ImageStats, error) {
	var rows []CategoryStats
	err := db.Model(&models.Image{}).
		Select("category, COUNT(*) AS count, COALESCE(SUM(size), 0) AS total_bytes").
		Group("category").Order("category").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	stats := &ImageStats{Categories: rows}
	for _, row := range rows {
		stats.TotalImages += row.Count
		stats.TotalBytes += row.TotalBytes
	}
	if stats.Categories == nil {
		stats.Categories = []CategoryStats{}
	}
	return stats, nil
}

func (r *ImageRepositoryImpl) UpdateThumbnail(db *gorm.DB, id, thumbnailPath string, metadata []byte) error {
	result := db.Model(&models.Image{}).Where("id = ?", id).Updates(map[string]interface{}{
		"thumbnail_path": thumbnailPath,
		"metadata":       metadata,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrImageNotFound
	}
	return nil
}
