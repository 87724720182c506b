package photos

import (
	"context"
	"fmt"
	"io"

	"gorm.io/gorm"

	"github.com/anoixa/image-helper/database/models"
	"github.com/anoixa/image-helper/database/repo/base"
	"github.com/anoixa/image-helper/internal/field"
)

// Repository 示例图片仓库
type Repository struct {
	*base.Repository[models.Photo]
}

// NewRepository 创建图片仓库
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Repository: base.NewRepository[models.Photo](db)}
}

// CreateFromUpload 用上传内容创建记录，图片在 BeforeSave 中缩放并写入存储
func (r *Repository) CreateFromUpload(ctx context.Context, name, filename string, content io.Reader) (*models.Photo, error) {
	photo := &models.Photo{
		Name:  name,
		Image: field.NewUpload(filename, content),
	}
	if err := r.Create(ctx, photo); err != nil {
		return nil, fmt.Errorf("failed to create photo: %w", err)
	}
	return photo, nil
}

// ReplaceImage 替换已有记录的图片，旧文件按 DeleteWithModel 配置决定是否删除
func (r *Repository) ReplaceImage(ctx context.Context, photo *models.Photo, filename string, content io.Reader) error {
	old := photo.Image
	photo.Image = field.NewUpload(filename, content)
	if err := r.Update(ctx, photo); err != nil {
		photo.Image = old
		return fmt.Errorf("failed to update photo %d: %w", photo.ID, err)
	}

	f := models.PhotoImage()
	if f.Options().DeleteWithModel {
		if err := f.Delete(ctx, &old); err != nil {
			return fmt.Errorf("failed to delete replaced image: %w", err)
		}
	}
	return nil
}

// ImageNames 返回所有记录引用的图片名称
func (r *Repository) ImageNames(ctx context.Context) (map[string]struct{}, error) {
	var names []string
	if err := r.DB().WithContext(ctx).Model(&models.Photo{}).Pluck("image", &names).Error; err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		if n != "" {
			set[n] = struct{}{}
		}
	}
	return set, nil
}
