package repositories

import (
	"fmt"
	"testing"
	"time"

	"cabinet_tracker/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Image{}))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func newImage(name, category string, size int64) *models.Image {
	return &models.Image{
		Filename: name,
		MimeType: "image/png",
		Category: category,
		Size:     size,
		Path:     name,
		Source:   models.SourceMultipart,
	}
}

func TestImageRepository_CreateAndFind(t *testing.T) {
	db := openTestDB(t)
	repo := NewImageRepository()

	img := newImage("cabinet_1_aaaaaaaa.png", "cabinet", 120)
	require.NoError(t, repo.Create(db, img))
	assert.Len(t, img.ID, 36)
	assert.False(t, img.CreatedAt.IsZero())

	byID, err := repo.FindByID(db, img.ID)
	require.NoError(t, err)
	assert.Equal(t, img.Filename, byID.Filename)

	byName, err := repo.FindByFilename(db, img.Filename)
	require.NoError(t, err)
	assert.Equal(t, img.ID, byName.ID)

	_, err = repo.FindByID(db, "missing")
	assert.ErrorIs(t, err, ErrImageNotFound)
}

func TestImageRepository_DuplicateFilename(t *testing.T) {
	db := openTestDB(t)
	repo := NewImageRepository()

	require.NoError(t, repo.Create(db, newImage("dup.png", "cabinet", 1)))
	assert.Error(t, repo.Create(db, newImage("dup.png", "cabinet", 1)))
}

func TestImageRepository_ListAndStats(t *testing.T) {
	db := openTestDB(t)
	repo := NewImageRepository()

	for i := 0; i < 3; i++ {
		img := newImage(fmt.Sprintf("cabinet_%d.png", i), "cabinet", 100)
		img.CreatedAt = time.Date(2024, 1, 1, 0, 0, i, 0, time.UTC)
		require.NoError(t, repo.Create(db, img))
	}
	require.NoError(t, repo.Create(db, newImage("site_0.png", "site", 50)))

	images, total, err := repo.List(db, ImageFilter{Category: "cabinet", Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, images, 2)
	assert.Equal(t, "cabinet_2.png", images[0].Filename)

	images, _, err = repo.List(db, ImageFilter{Category: "cabinet", Page: 2, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.Equal(t, "cabinet_0.png", images[0].Filename)

	stats, err := repo.Stats(db)
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.TotalImages)
	assert.Equal(t, int64(350), stats.TotalBytes)
	require.Len(t, stats.Categories, 2)
	assert.Equal(t, CategoryStats{Category: "cabinet", Count: 3, TotalBytes: 300}, stats.Categories[0])
	assert.Equal(t, CategoryStats{Category: "site", Count: 1, TotalBytes: 50}, stats.Categories[1])
}

func TestImageRepository_DeleteAndThumbnail(t *testing.T) {
	db := openTestDB(t)
	repo := NewImageRepository()

	img := newImage("cabinet_x.png", "cabinet", 10)
	require.NoError(t, repo.Create(db, img))

	meta := &models.Image{}
	require.NoError(t, meta.SetMetadata(models.ImageMetadata{Width: 10, Height: 5}))
	require.NoError(t, repo.UpdateThumbnail(db, img.ID, "cabinet_x_thumbnail.png", meta.Metadata))

	got, err := repo.FindByID(db, img.ID)
	require.NoError(t, err)
	assert.Equal(t, "cabinet_x_thumbnail.png", got.ThumbnailPath)
	decoded, err := got.DecodeMetadata()
	require.NoError(t, err)
	assert.Equal(t, 10, decoded.Width)

	require.NoError(t, repo.Delete(db, img.ID))
	_, err = repo.FindByID(db, img.ID)
	assert.ErrorIs(t, err, ErrImageNotFound)
	assert.ErrorIs(t, repo.Delete(db, img.ID), ErrImageNotFound)
	assert.ErrorIs(t, repo.UpdateThumbnail(db, "nope", "", nil), ErrImageNotFound)
}
