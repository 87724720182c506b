package generator

import (
	"path"
	"strings"
	"time"
)

// DefaultThumbnailSuffix 缩略图默认后缀
const DefaultThumbnailSuffix = "-thumbnail"

// PathGenerator 上传路径生成器
type PathGenerator struct {
	uploadTo string
	suffix   string
}

// NewPathGenerator 创建路径生成器
// uploadTo 支持 %Y %m %d %H %M %S 日期占位符
func NewPathGenerator(uploadTo, thumbnailSuffix string) *PathGenerator {
	if thumbnailSuffix == "" {
		thumbnailSuffix = DefaultThumbnailSuffix
	}
	return &PathGenerator{
		uploadTo: strings.Trim(uploadTo, "/"),
		suffix:   thumbnailSuffix,
	}
}

// UploadPath 生成原图的存储路径，如 sample_images/2024/01/15/photo.png
func (pg *PathGenerator) UploadPath(filename string, uploadTime time.Time) string {
	leaf := ValidName(path.Base(strings.ReplaceAll(filename, "\\", "/")))
	dir := expandDate(pg.uploadTo, uploadTime)
	if dir == "" {
		return leaf
	}
	return path.Join(dir, leaf)
}

// ThumbnailPath 根据原图存储路径生成缩略图路径
func (pg *PathGenerator) ThumbnailPath(storagePath string) string {
	return ThumbnailName(storagePath, pg.suffix)
}

// Suffix 返回缩略图后缀
func (pg *PathGenerator) Suffix() string {
	return pg.suffix
}

// ThumbnailName 在扩展名前插入后缀
// my_image.jpg -> my_image-thumbnail.jpg, my_image -> my_image-thumbnail
func ThumbnailName(name, suffix string) string {
	if suffix == "" {
		suffix = DefaultThumbnailSuffix
	}
	stem, ext := SplitExt(name)
	return stem + suffix + ext
}

// IsThumbnailName 判断文件名是否为缩略图命名
func IsThumbnailName(name, suffix string) bool {
	if suffix == "" {
		suffix = DefaultThumbnailSuffix
	}
	stem, _ := SplitExt(name)
	return strings.HasSuffix(stem, suffix) && len(path.Base(stem)) > len(suffix)
}

// PrimaryName 缩略图名还原为原图名，非缩略图返回 false
func PrimaryName(thumbnailName, suffix string) (string, bool) {
	if !IsThumbnailName(thumbnailName, suffix) {
		return "", false
	}
	if suffix == "" {
		suffix = DefaultThumbnailSuffix
	}
	stem, ext := SplitExt(thumbnailName)
	return strings.TrimSuffix(stem, suffix) + ext, true
}

// SplitExt 在最后一个扩展名分隔符处拆分
// 目录中的点不计入，文件名开头的点（.bashrc）不视为扩展名
func SplitExt(name string) (stem, ext string) {
	slash := strings.LastIndex(name, "/")
	dot := strings.LastIndex(name, ".")
	if dot <= slash {
		return name, ""
	}
	// 叶子文件名中点之前全是点
	if strings.Trim(name[slash+1:dot], ".") == "" {
		return name, ""
	}
	return name[:dot], name[dot:]
}

// ValidName 清理文件名：空格替换为下划线，去掉 [-A-Za-z0-9_.] 以外的字符
func ValidName(name string) string {
	name = strings.ReplaceAll(strings.TrimSpace(name), " ", "_")
	var sb strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') ||
			(r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') ||
			r == '-' || r == '_' || r == '.' {
			sb.WriteRune(r)
		}
	}
	cleaned := strings.Trim(sb.String(), ".")
	if cleaned == "" {
		return "image"
	}
	return cleaned
}

var dateTokens = []struct {
	token  string
	layout string
}{
	{"%Y", "2006"},
	{"%m", "01"},
	{"%d", "02"},
	{"%H", "15"},
	{"%M", "04"},
	{"%S", "05"},
}

// expandDate 替换 upload_to 中的日期占位符
func expandDate(dir string, t time.Time) string {
	if !strings.Contains(dir, "%") {
		return dir
	}
	for _, dt := range dateTokens {
		dir = strings.ReplaceAll(dir, dt.token, t.Format(dt.layout))
	}
	return dir
}
