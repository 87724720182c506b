// Package field 带自动缩放和缩略图的图片字段
//
// 保存前调用 PreSave 缩放原图并生成缩略图，读出记录后调用 Attach 挂上缩略图描述。
// 缩略图名称不落库，始终由原图的存储名称推导。
package field

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anoixa/image-helper/internal/codec"
	"github.com/anoixa/image-helper/internal/resize"
	"github.com/anoixa/image-helper/storage"
	"github.com/anoixa/image-helper/utils"
	"github.com/anoixa/image-helper/utils/generator"
)

// ErrNoStorage 字段没有可用的存储
var ErrNoStorage = errors.New("no storage provider configured")

// Options 图片字段配置
type Options struct {
	// UploadTo 上传目录，支持 %Y %m %d 等日期占位符
	UploadTo string
	// Size 原图缩放指令，nil 不缩放
	Size *resize.Directive
	// ThumbnailSize 缩略图指令，nil 不生成缩略图
	ThumbnailSize *resize.Directive
	// ThumbnailSuffix 缩略图后缀，默认 -thumbnail
	ThumbnailSuffix string
	// Storage 为 nil 时使用默认存储
	Storage storage.Provider
	// Quality JPEG 质量
	Quality int
	// DeleteWithModel 删除记录时同时删除原图和缩略图
	DeleteWithModel bool
}

// ImageField 图片字段，创建后配置不可变
type ImageField struct {
	opts  Options
	paths *generator.PathGenerator
	now   func() time.Time
}

// New 创建图片字段
func New(opts Options) (*ImageField, error) {
	// 复制指令，调用方之后修改不影响字段
	for _, d := range []**resize.Directive{&opts.Size, &opts.ThumbnailSize} {
		if *d == nil {
			continue
		}
		if err := (*d).Validate(); err != nil {
			return nil, err
		}
		c := **d
		*d = &c
	}
	if opts.ThumbnailSuffix == "" {
		opts.ThumbnailSuffix = generator.DefaultThumbnailSuffix
	}
	if opts.Quality <= 0 || opts.Quality > 100 {
		opts.Quality = codec.DefaultQuality
	}

	return &ImageField{
		opts:  opts,
		paths: generator.NewPathGenerator(opts.UploadTo, opts.ThumbnailSuffix),
		now:   time.Now,
	}, nil
}

// MustNew 同 New，配置非法时 panic
func MustNew(opts Options) *ImageField {
	f, err := New(opts)
	if err != nil {
		panic(err)
	}
	return f
}

// Options 返回字段配置的副本
func (f *ImageField) Options() Options {
	return f.opts
}

// Storage 返回字段使用的存储
func (f *ImageField) Storage() (storage.Provider, error) {
	if f.opts.Storage != nil {
		return f.opts.Storage, nil
	}
	if p := storage.GetDefault(); p != nil {
		return p, nil
	}
	return nil, ErrNoStorage
}

// ThumbnailName 由原图名称推导缩略图名称
func (f *ImageField) ThumbnailName(name string) string {
	return f.paths.ThumbnailPath(name)
}

// PreSave 保存前处理未提交的上传
// 缩放并写入缩略图和原图，把实际存储名称写回 file。已提交或为空时不做任何事。
func (f *ImageField) PreSave(ctx context.Context, file *File) error {
	if file == nil || file.Committed() {
		return nil
	}

	st, err := f.Storage()
	if err != nil {
		return err
	}

	p, err := f.Process(ctx, file.upload)
	if err != nil {
		return err
	}

	actual, err := st.SaveWithContext(ctx, p.Planned, bytes.NewReader(p.Data))
	if err != nil {
		f.discardThumbnail(ctx, st, p.Thumbnail)
		return fmt.Errorf("failed to save image %s: %w", p.Planned, err)
	}

	if actual != p.Planned {
		if err := f.reconcileThumbnail(ctx, st, p, actual); err != nil {
			return err
		}
	}

	file.Name = actual
	file.upload = nil
	file.committed = true
	file.width, file.height = p.Width, p.Height
	f.attach(file, st)
	return nil
}

// reconcileThumbnail 原图名称被并发占用时，把缩略图移到由实际名称推导的位置
// 推导名称已被其他文件占用时撤销本次保存，避免之后删除或重建时误伤该文件
func (f *ImageField) reconcileThumbnail(ctx context.Context, st storage.Provider, p *Processed, actual string) error {
	want := f.ThumbnailName(actual)
	utils.Logger.Warn().
		Str("planned", p.Planned).
		Str("actual", actual).
		Str("thumbnail", want).
		Msg("image name changed during save, moving thumbnail")

	free, err := f.namesFree(ctx, st, actual)
	if err == nil && !free {
		err = fmt.Errorf("derived thumbnail name %s is taken", want)
	}
	if err == nil && p.Thumbnail != "" {
		saved, serr := st.SaveWithContext(ctx, want, bytes.NewReader(p.ThumbnailData))
		switch {
		case serr != nil:
			err = fmt.Errorf("failed to move thumbnail to %s: %w", want, serr)
		case saved != want:
			f.discardThumbnail(ctx, st, saved)
			err = fmt.Errorf("derived thumbnail name %s was taken concurrently", want)
		}
	}

	f.discardThumbnail(ctx, st, p.Thumbnail)
	if err != nil {
		if derr := st.DeleteWithContext(ctx, actual); derr != nil && !errors.Is(derr, storage.ErrNotFound) {
			utils.Logger.Warn().Err(derr).Str("name", actual).Msg("failed to remove image after thumbnail conflict")
		}
		return err
	}

	if p.Thumbnail != "" {
		p.Thumbnail = want
	}
	return nil
}

// discardThumbnail 原图写入失败时清理已写入的缩略图
func (f *ImageField) discardThumbnail(ctx context.Context, st storage.Provider, name string) {
	if name == "" {
		return
	}
	if err := st.DeleteWithContext(ctx, name); err != nil && !errors.Is(err, storage.ErrNotFound) {
		utils.Logger.Warn().Err(err).Str("thumbnail", name).Msg("failed to remove unused thumbnail")
	}
}

// Attach 根据当前名称挂上缩略图描述，可重复调用
func (f *ImageField) Attach(file *File) {
	if file == nil {
		return
	}
	st, _ := f.Storage()
	f.attach(file, st)
}

func (f *ImageField) attach(file *File, st storage.Provider) {
	file.storage = st
	if file.Name == "" || !file.Committed() {
		file.thumbnail = nil
		return
	}
	file.thumbnail = &Thumbnail{
		name:    f.ThumbnailName(file.Name),
		storage: st,
	}
}

// Delete 删除原图和缩略图，不存在的文件忽略
func (f *ImageField) Delete(ctx context.Context, file *File) error {
	if file == nil || file.Name == "" || !file.Committed() {
		return nil
	}

	st, err := f.Storage()
	if err != nil {
		return err
	}

	thumb := f.ThumbnailName(file.Name)
	if err := st.DeleteWithContext(ctx, thumb); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("failed to delete thumbnail %s: %w", thumb, err)
	}

	if err := st.DeleteWithContext(ctx, file.Name); err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("failed to delete image %s: %w", file.Name, err)
		}
		utils.Logger.Warn().Str("name", file.Name).Msg("image already missing from storage")
	}

	*file = File{}
	return nil
}
