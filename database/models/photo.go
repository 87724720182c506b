package models

import (
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/anoixa/image-helper/internal/field"
	"github.com/anoixa/image-helper/internal/resize"
)

var (
	photoImage = field.MustNew(field.Options{
		UploadTo:      "sample_images",
		Size:          resize.MustDirective(220, 150),
		ThumbnailSize: resize.MustDirective(100, 100),
	})
	photoImageMu sync.RWMutex
)

// PhotoImage 返回 Photo.Image 使用的图片字段
func PhotoImage() *field.ImageField {
	photoImageMu.RLock()
	defer photoImageMu.RUnlock()
	return photoImage
}

// SetPhotoImage 启动时按配置替换图片字段
func SetPhotoImage(f *field.ImageField) {
	photoImageMu.Lock()
	defer photoImageMu.Unlock()
	photoImage = f
}

// Photo 示例模型：带自动缩放和缩略图的图片
// 不使用软删除，否则删除记录时文件会被提前清理
type Photo struct {
	ID          uint       `gorm:"primarykey" json:"id"`
	Name        string     `gorm:"size:20" json:"name"`
	Image       field.File `gorm:"size:255;not null" json:"-"`
	ImageWidth  int        `json:"image_width"`
	ImageHeight int        `json:"image_height"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// BeforeSave 写库前处理上传的图片
func (p *Photo) BeforeSave(tx *gorm.DB) error {
	if p.Image.Committed() {
		return nil
	}
	if err := PhotoImage().PreSave(tx.Statement.Context, &p.Image); err != nil {
		return err
	}
	p.ImageWidth, p.ImageHeight = p.Image.Dimensions()
	return nil
}

// AfterSave 挂上缩略图描述
func (p *Photo) AfterSave(tx *gorm.DB) error {
	PhotoImage().Attach(&p.Image)
	return nil
}

// AfterFind 挂上缩略图描述
func (p *Photo) AfterFind(tx *gorm.DB) error {
	PhotoImage().Attach(&p.Image)
	return nil
}

// AfterDelete 配置了 DeleteWithModel 时删除图片文件
func (p *Photo) AfterDelete(tx *gorm.DB) error {
	f := PhotoImage()
	if !f.Options().DeleteWithModel {
		return nil
	}
	return f.Delete(tx.Statement.Context, &p.Image)
}
