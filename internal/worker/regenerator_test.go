package worker

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anoixa/image-helper/database/models"
	"github.com/anoixa/image-helper/internal/field"
	"github.com/anoixa/image-helper/internal/resize"
	"github.com/anoixa/image-helper/storage"
)

// sliceSource 内存中的记录源
type sliceSource struct {
	photos []*models.Photo
	err    error
}

func (s *sliceSource) InBatches(ctx context.Context, batchSize int, fn func(batch []*models.Photo) error) error {
	if s.err != nil {
		return s.err
	}
	for start := 0; start < len(s.photos); start += batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(start+batchSize, len(s.photos))
		if err := fn(s.photos[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func pngBytes(t *testing.T, w, h int) []byte {
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

func setup(t *testing.T) (*field.ImageField, *storage.LocalStorage) {
	t.Helper()
	st, err := storage.NewLocalStorage(t.TempDir(), "/media/")
	require.NoError(t, err)
	f, err := field.New(field.Options{
		UploadTo:      "sample_images",
		ThumbnailSize: resize.MustDirective(50, 50),
		Storage:       st,
	})
	require.NoError(t, err)
	return f, st
}

// savedPhoto 写入一张图片并返回对应的记录
func savedPhoto(t *testing.T, f *field.ImageField, id uint, name string) *models.Photo {
	t.Helper()
	file := field.NewUpload(name, bytes.NewReader(pngBytes(t, 120, 80)))
	require.NoError(t, f.PreSave(context.Background(), &file))
	return &models.Photo{ID: id, Image: file}
}

func storedPhoto(t *testing.T, id uint, name string) *models.Photo {
	t.Helper()
	var file field.File
	require.NoError(t, file.Scan(name))
	return &models.Photo{ID: id, Image: file}
}

func TestRegenerator_RebuildsMissingThumbnails(t *testing.T) {
	f, st := setup(t)
	ctx := context.Background()

	var photos []*models.Photo
	for i := 1; i <= 5; i++ {
		photos = append(photos, savedPhoto(t, f, uint(i), "photo.png"))
	}
	for _, p := range photos[:3] {
		require.NoError(t, st.DeleteWithContext(ctx, f.ThumbnailName(p.Image.Name)))
	}

	r := NewRegenerator(f, &sliceSource{photos: photos}, Options{Workers: 3, BatchSize: 2, OnlyMissing: true})
	stats, err := r.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, Stats{Scanned: 5, Regenerated: 3, Skipped: 2}, stats)
	for _, p := range photos {
		exists, err := st.Exists(ctx, f.ThumbnailName(p.Image.Name))
		require.NoError(t, err)
		assert.True(t, exists, p.Image.Name)
	}
}

func TestRegenerator_RebuildsAll(t *testing.T) {
	f, st := setup(t)
	ctx := context.Background()
	photo := savedPhoto(t, f, 1, "photo.png")

	stats, err := NewRegenerator(f, &sliceSource{photos: []*models.Photo{photo}}, Options{Workers: 2}).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), stats.Regenerated)

	rc, err := st.GetWithContext(ctx, f.ThumbnailName(photo.Image.Name))
	require.NoError(t, err)
	defer rc.Close()
	img, _, err := image.Decode(rc)
	require.NoError(t, err)
	assert.Equal(t, 50, img.Bounds().Dx())
	assert.Equal(t, 33, img.Bounds().Dy())
	require.NotNil(t, photo.Image.Thumbnail())
}

func TestRegenerator_DryRunWritesNothing(t *testing.T) {
	f, st := setup(t)
	ctx := context.Background()
	photo := savedPhoto(t, f, 1, "photo.png")
	thumb := f.ThumbnailName(photo.Image.Name)
	require.NoError(t, st.DeleteWithContext(ctx, thumb))

	stats, err := NewRegenerator(f, &sliceSource{photos: []*models.Photo{photo}}, Options{OnlyMissing: true, DryRun: true}).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), stats.Regenerated)

	exists, err := st.Exists(ctx, thumb)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRegenerator_CountsFailures(t *testing.T) {
	f, _ := setup(t)
	photos := []*models.Photo{
		storedPhoto(t, 1, "sample_images/missing.png"),
		storedPhoto(t, 2, ""),
		savedPhoto(t, f, 3, "photo.png"),
	}

	stats, err := NewRegenerator(f, &sliceSource{photos: photos}, Options{Workers: 2}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{Scanned: 3, Regenerated: 1, Skipped: 1, Failed: 1}, stats)
}

func TestRegenerator_NoThumbnailSize(t *testing.T) {
	st, err := storage.NewLocalStorage(t.TempDir(), "/media/")
	require.NoError(t, err)
	f, err := field.New(field.Options{UploadTo: "sample_images", Storage: st})
	require.NoError(t, err)
	photo := savedPhoto(t, f, 1, "photo.png")

	stats, err := NewRegenerator(f, &sliceSource{photos: []*models.Photo{photo}}, Options{}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), stats.Failed)
}

func TestRegenerator_SourceError(t *testing.T) {
	f, _ := setup(t)
	boom := errors.New("boom")

	_, err := NewRegenerator(f, &sliceSource{err: boom}, Options{}).Run(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestRegenerator_CanceledContext(t *testing.T) {
	f, _ := setup(t)
	photo := savedPhoto(t, f, 1, "photo.png")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stats, err := NewRegenerator(f, &sliceSource{photos: []*models.Photo{photo}}, Options{RPS: 1}).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, uint64(0), stats.Regenerated)
}

func TestThumbnailTask_RecoversPanic(t *testing.T) {
	task := &ThumbnailTask{Photo: storedPhoto(t, 1, "a.png")}

	outcome, err := task.Execute(context.Background())
	assert.Equal(t, OutcomeFailed, outcome)
	assert.Error(t, err)
	assert.Equal(t, "failed", outcome.String())
}
