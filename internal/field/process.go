package field

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/anoixa/image-helper/internal/codec"
	"github.com/anoixa/image-helper/internal/resize"
	"github.com/anoixa/image-helper/storage"
	"github.com/anoixa/image-helper/utils"
	"github.com/anoixa/image-helper/utils/generator"
)

// Processed 处理后的原图，等待写入存储
type Processed struct {
	// Name 原图文件名（不含目录）
	Name string
	// Planned 保存前分配的完整存储名称
	Planned     string
	ContentType string
	Data        []byte
	Width       int
	Height      int

	// Thumbnail 已写入的缩略图名称，未生成时为空
	Thumbnail     string
	ThumbnailData []byte
}

// maxNameAttempts 为原图和缩略图同时寻找空闲名称的最大次数
const maxNameAttempts = 100

// Process 解码、缩放上传的图片，配置了缩略图时先写入缩略图
// 解码失败时不会写入任何文件
func (f *ImageField) Process(ctx context.Context, upload *Upload) (*Processed, error) {
	if upload == nil || upload.Reader == nil {
		return nil, fmt.Errorf("%w: empty upload", codec.ErrDecode)
	}

	st, err := f.Storage()
	if err != nil {
		return nil, err
	}

	base := f.paths.UploadPath(upload.Name, f.now())
	if _, err := codec.FormatForName(base); err != nil {
		return nil, err
	}

	img, detected, err := codec.Decode(upload.Reader)
	if err != nil {
		return nil, err
	}
	if upload.ContentType != "" && upload.ContentType != detected {
		utils.Logger.Debug().
			Str("name", utils.SanitizeLogName(upload.Name)).
			Str("declared", upload.ContentType).
			Str("detected", detected).
			Msg("upload content type mismatch")
	}

	img = resize.Apply(resize.Normalize(img), f.opts.Size)

	var thumbData []byte
	if f.opts.ThumbnailSize != nil {
		thumb := resize.Apply(resize.Copy(img), f.opts.ThumbnailSize)
		if thumbData, err = codec.Encode(thumb, f.ThumbnailName(base), f.opts.Quality); err != nil {
			return nil, err
		}
	}

	planned, thumbName, err := f.reserveNames(ctx, st, base, thumbData)
	if err != nil {
		return nil, err
	}
	leaf := path.Base(planned)

	p := &Processed{
		Name:          leaf,
		Planned:       planned,
		ContentType:   codec.ContentType(leaf),
		Width:         img.Bounds().Dx(),
		Height:        img.Bounds().Dy(),
		Thumbnail:     thumbName,
		ThumbnailData: thumbData,
	}

	p.Data, err = codec.Encode(img, leaf, f.opts.Quality)
	if err != nil {
		f.discardThumbnail(ctx, st, p.Thumbnail)
		return nil, err
	}

	return p, nil
}

// reserveNames 选出原图名称，要求由它推导的缩略图名称同样空闲
// 有缩略图数据时在推导名称下写入，名称被并发占用则换一个原图名称重试
func (f *ImageField) reserveNames(ctx context.Context, st storage.Provider, base string, thumbData []byte) (string, string, error) {
	candidate := base
	for i := 0; i < maxNameAttempts; i++ {
		if i > 0 {
			candidate = storage.SuffixedName(base)
		}

		name, err := st.AvailableName(ctx, candidate)
		if err != nil {
			return "", "", fmt.Errorf("failed to allocate name for %s: %w", utils.SanitizeLogName(base), err)
		}
		free, err := f.namesFree(ctx, st, name)
		if err != nil {
			return "", "", err
		}
		if !free {
			utils.Logger.Debug().Str("name", name).Msg("derived name collides with a stored file, trying another")
			continue
		}

		if thumbData == nil {
			return name, "", nil
		}
		want := f.ThumbnailName(name)
		saved, err := st.SaveWithContext(ctx, want, bytes.NewReader(thumbData))
		if err != nil {
			return "", "", fmt.Errorf("failed to save thumbnail %s: %w", want, err)
		}
		if saved != want {
			f.discardThumbnail(ctx, st, saved)
			continue
		}
		return name, saved, nil
	}
	return "", "", fmt.Errorf("no free name for %s and its thumbnail after %d attempts", utils.SanitizeLogName(base), maxNameAttempts)
}

// namesFree 判断 name 能否作为原图名称
// 它推导出的缩略图名称不能被占用；它自身形如缩略图时，对应的原图也不能存在
func (f *ImageField) namesFree(ctx context.Context, st storage.Provider, name string) (bool, error) {
	thumb := f.ThumbnailName(name)
	taken, err := st.Exists(ctx, thumb)
	if err != nil {
		return false, fmt.Errorf("failed to check name %s: %w", thumb, err)
	}
	if taken {
		return false, nil
	}

	if primary, ok := generator.PrimaryName(name, f.paths.Suffix()); ok {
		taken, err := st.Exists(ctx, primary)
		if err != nil {
			return false, fmt.Errorf("failed to check name %s: %w", primary, err)
		}
		if taken {
			return false, nil
		}
	}
	return true, nil
}

// RegenerateThumbnail 从已存储的原图重新生成缩略图，覆盖同名旧文件
func (f *ImageField) RegenerateThumbnail(ctx context.Context, file *File) (string, error) {
	if f.opts.ThumbnailSize == nil {
		return "", errors.New("thumbnail size is not configured")
	}
	if file == nil || file.Name == "" || !file.Committed() {
		return "", errors.New("no stored image to regenerate from")
	}

	st, err := f.Storage()
	if err != nil {
		return "", err
	}

	rc, err := st.GetWithContext(ctx, file.Name)
	if err != nil {
		return "", err
	}
	img, _, err := codec.Decode(rc)
	_ = rc.Close()
	if err != nil {
		return "", err
	}

	want := f.ThumbnailName(file.Name)
	thumb := resize.Apply(resize.Normalize(img), f.opts.ThumbnailSize)
	data, err := codec.Encode(thumb, want, f.opts.Quality)
	if err != nil {
		return "", err
	}

	if err := st.DeleteWithContext(ctx, want); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return "", fmt.Errorf("failed to remove old thumbnail %s: %w", want, err)
	}
	saved, err := st.SaveWithContext(ctx, want, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to save thumbnail %s: %w", want, err)
	}
	if saved != want {
		_ = st.DeleteWithContext(ctx, saved)
		return "", fmt.Errorf("thumbnail name %s was taken concurrently", want)
	}

	f.attach(file, st)
	return saved, nil
}
