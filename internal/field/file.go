package field

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"

	"github.com/anoixa/image-helper/storage"
)

// Upload 尚未写入存储的上传文件
type Upload struct {
	Name        string
	Reader      io.Reader
	ContentType string
}

// File 图片字段的值，数据库中只保存存储名称
type File struct {
	Name string

	upload    *Upload
	committed bool
	width     int
	height    int
	storage   storage.Provider
	thumbnail *Thumbnail
}

// NewUpload 用上传内容构造未提交的 File
func NewUpload(name string, r io.Reader) File {
	return File{
		Name:   name,
		upload: &Upload{Name: name, Reader: r},
	}
}

// NewUploadWithType 同 NewUpload，附带客户端声明的 Content-Type
func NewUploadWithType(name, contentType string, r io.Reader) File {
	f := NewUpload(name, r)
	f.upload.ContentType = contentType
	return f
}

// Committed 文件是否已写入存储
func (f *File) Committed() bool {
	return f.upload == nil || f.committed
}

// Empty 是否没有图片
func (f *File) Empty() bool {
	return f.Name == "" && f.upload == nil
}

// Dimensions 本次保存后原图的宽高，从数据库读出的 File 为 0
func (f *File) Dimensions() (int, int) {
	return f.width, f.height
}

// Thumbnail 返回缩略图描述，未 Attach 或没有图片时为 nil
func (f *File) Thumbnail() *Thumbnail {
	return f.thumbnail
}

// URL 原图访问地址
func (f *File) URL() (string, error) {
	if f.storage == nil {
		return "", ErrNoStorage
	}
	return f.storage.URL(f.Name)
}

// Path 原图本地路径
func (f *File) Path() (string, error) {
	if f.storage == nil {
		return "", ErrNoStorage
	}
	return f.storage.Path(f.Name)
}

// Size 原图大小
func (f *File) Size(ctx context.Context) (int64, error) {
	if f.storage == nil {
		return 0, ErrNoStorage
	}
	return f.storage.Size(ctx, f.Name)
}

// Open 打开原图
func (f *File) Open(ctx context.Context) (io.ReadCloser, error) {
	if f.storage == nil {
		return nil, ErrNoStorage
	}
	return f.storage.GetWithContext(ctx, f.Name)
}

// String 返回存储名称
func (f File) String() string {
	return f.Name
}

// Scan 实现 sql.Scanner，从数据库读出的值视为已提交
func (f *File) Scan(value interface{}) error {
	*f = File{}
	switch v := value.(type) {
	case nil:
	case string:
		f.Name = v
	case []byte:
		f.Name = string(v)
	default:
		return fmt.Errorf("cannot scan %T into field.File", value)
	}
	f.committed = true
	return nil
}

// Value 实现 driver.Valuer，未提交的上传不能直接落库
func (f File) Value() (driver.Value, error) {
	if f.upload != nil && !f.committed {
		return nil, errors.New("field.File holds an uncommitted upload, run PreSave first")
	}
	return f.Name, nil
}

// GormDataType 数据库列类型
func (File) GormDataType() string {
	return "string"
}

// Thumbnail 缩略图描述，只读
// 名称由原图名称推导，存在性不做检查，缺失时由存储返回 ErrNotFound
type Thumbnail struct {
	name    string
	storage storage.Provider
}

// Name 缩略图存储名称
func (t *Thumbnail) Name() string {
	return t.name
}

// URL 缩略图访问地址
func (t *Thumbnail) URL() (string, error) {
	if t.storage == nil {
		return "", ErrNoStorage
	}
	return t.storage.URL(t.name)
}

// Path 缩略图本地路径，远程存储返回 storage.ErrNotSupported
func (t *Thumbnail) Path() (string, error) {
	if t.storage == nil {
		return "", ErrNoStorage
	}
	return t.storage.Path(t.name)
}

// Size 缩略图大小
func (t *Thumbnail) Size(ctx context.Context) (int64, error) {
	if t.storage == nil {
		return 0, ErrNoStorage
	}
	return t.storage.Size(ctx, t.name)
}
