package photos

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/anoixa/image-helper/database/models"
	"github.com/anoixa/image-helper/internal/field"
	"github.com/anoixa/image-helper/internal/resize"
	"github.com/anoixa/image-helper/storage"
)

// setupTestDB 创建测试数据库和本地存储
func setupTestDB(t *testing.T, deleteWithModel bool) (*Repository, *storage.LocalStorage) {
	t.Helper()
	dir := t.TempDir()

	db, err := gorm.Open(sqlite.Open(filepath.Join(dir, "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Photo{}))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	st, err := storage.NewLocalStorage(filepath.Join(dir, "media"), "/media/")
	require.NoError(t, err)

	previous := models.PhotoImage()
	models.SetPhotoImage(field.MustNew(field.Options{
		UploadTo:        "sample_images",
		Size:            resize.MustDirective(220, 150),
		ThumbnailSize:   resize.MustDirective(100, 100),
		Storage:         st,
		DeleteWithModel: deleteWithModel,
	}))
	t.Cleanup(func() { models.SetPhotoImage(previous) })

	return NewRepository(db), st
}

func samplePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func exists(t *testing.T, st storage.Provider, name string) bool {
	t.Helper()
	ok, err := st.Exists(context.Background(), name)
	require.NoError(t, err)
	return ok
}

func TestCreateFromUpload(t *testing.T) {
	repo, st := setupTestDB(t, false)
	ctx := context.Background()

	photo, err := repo.CreateFromUpload(ctx, "sunset", "sample_photo.png", bytes.NewReader(samplePNG(t, 440, 300)))
	require.NoError(t, err)
	assert.NotZero(t, photo.ID)
	assert.Equal(t, 220, photo.ImageWidth)
	assert.Equal(t, 150, photo.ImageHeight)

	loaded, err := repo.GetByID(ctx, photo.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)

	assert.Equal(t, "sample_images/sample_photo.png", loaded.Image.Name)
	url, err := loaded.Image.URL()
	require.NoError(t, err)
	assert.Equal(t, "/media/sample_images/sample_photo.png", url)

	thumb := loaded.Image.Thumbnail()
	require.NotNil(t, thumb)
	assert.Equal(t, "sample_images/sample_photo-thumbnail.png", thumb.Name())
	thumbURL, err := thumb.URL()
	require.NoError(t, err)
	assert.Equal(t, "/media/sample_images/sample_photo-thumbnail.png", thumbURL)

	size, err := thumb.Size(ctx)
	require.NoError(t, err)
	assert.Positive(t, size)
	assert.True(t, exists(t, st, loaded.Image.Name))
}

func TestCreateFromUpload_SameFilenameTwice(t *testing.T) {
	repo, st := setupTestDB(t, false)
	ctx := context.Background()
	data := samplePNG(t, 300, 300)

	first, err := repo.CreateFromUpload(ctx, "a", "photo.png", bytes.NewReader(data))
	require.NoError(t, err)
	second, err := repo.CreateFromUpload(ctx, "b", "photo.png", bytes.NewReader(data))
	require.NoError(t, err)

	assert.NotEqual(t, first.Image.Name, second.Image.Name)
	for _, p := range []*models.Photo{first, second} {
		loaded, err := repo.GetByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, p.Image.Name, loaded.Image.Name)
		assert.True(t, exists(t, st, loaded.Image.Thumbnail().Name()))
	}
}

func TestCreateFromUpload_DecodeFailure(t *testing.T) {
	repo, _ := setupTestDB(t, false)
	ctx := context.Background()

	_, err := repo.CreateFromUpload(ctx, "bad", "bad.png", bytes.NewReader([]byte("nope")))
	require.Error(t, err)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestDelete_WithModel(t *testing.T) {
	repo, st := setupTestDB(t, true)
	ctx := context.Background()

	photo, err := repo.CreateFromUpload(ctx, "x", "photo.png", bytes.NewReader(samplePNG(t, 120, 90)))
	require.NoError(t, err)
	name := photo.Image.Name
	thumb := photo.Image.Thumbnail().Name()

	deleted, err := repo.Delete(ctx, photo.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	assert.False(t, exists(t, st, name))
	assert.False(t, exists(t, st, thumb))

	deleted, err = repo.Delete(ctx, photo.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestDelete_KeepsFilesByDefault(t *testing.T) {
	repo, st := setupTestDB(t, false)
	ctx := context.Background()

	photo, err := repo.CreateFromUpload(ctx, "x", "photo.png", bytes.NewReader(samplePNG(t, 120, 90)))
	require.NoError(t, err)

	deleted, err := repo.Delete(ctx, photo.ID)
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.True(t, exists(t, st, photo.Image.Name))
}

func TestReplaceImage(t *testing.T) {
	repo, st := setupTestDB(t, true)
	ctx := context.Background()

	photo, err := repo.CreateFromUpload(ctx, "x", "old.png", bytes.NewReader(samplePNG(t, 120, 90)))
	require.NoError(t, err)
	oldName := photo.Image.Name

	require.NoError(t, repo.ReplaceImage(ctx, photo, "new.png", bytes.NewReader(samplePNG(t, 90, 120))))
	assert.Equal(t, "sample_images/new.png", photo.Image.Name)
	assert.False(t, exists(t, st, oldName))

	loaded, err := repo.GetByID(ctx, photo.ID)
	require.NoError(t, err)
	assert.Equal(t, "sample_images/new.png", loaded.Image.Name)
	assert.Equal(t, 90, loaded.ImageWidth)
}

func TestListAndImageNames(t *testing.T) {
	repo, _ := setupTestDB(t, false)
	ctx := context.Background()

	for _, name := range []string{"a.png", "b.png", "c.png"} {
		_, err := repo.CreateFromUpload(ctx, name, name, bytes.NewReader(samplePNG(t, 30, 30)))
		require.NoError(t, err)
	}

	page, total, err := repo.List(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, page, 2)
	assert.Equal(t, "sample_images/c.png", page[0].Image.Name)
	assert.NotNil(t, page[0].Image.Thumbnail())

	names, err := repo.ImageNames(ctx)
	require.NoError(t, err)
	assert.Len(t, names, 3)
	assert.Contains(t, names, "sample_images/a.png")

	var seen int
	err = repo.InBatches(ctx, 2, func(batch []*models.Photo) error {
		seen += len(batch)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, seen)
}
