package codec

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"mime"
	"path"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/webp"
)

var (
	// ErrDecode 上传内容无法解码为图片
	ErrDecode = errors.New("cannot decode image")
	// ErrUnsupportedFormat 扩展名不在格式表中
	ErrUnsupportedFormat = errors.New("unsupported image format")
)

// DefaultContentType 无法推断时使用的 MIME 类型
const DefaultContentType = "image/png"

// DefaultQuality JPEG 默认质量
const DefaultQuality = 85

// maxImageSize 单张图片读取上限
const maxImageSize = 50 * 1024 * 1024

// FormatInfo 格式信息
type FormatInfo struct {
	Format   imaging.Format
	MIMEType string
}

// formatRegistry 扩展名到编码格式的固定映射
var formatRegistry = map[string]FormatInfo{
	".jpg":  {Format: imaging.JPEG, MIMEType: "image/jpeg"},
	".jpeg": {Format: imaging.JPEG, MIMEType: "image/jpeg"},
	".jpe":  {Format: imaging.JPEG, MIMEType: "image/jpeg"},
	".jfif": {Format: imaging.JPEG, MIMEType: "image/jpeg"},
	".png":  {Format: imaging.PNG, MIMEType: "image/png"},
	".gif":  {Format: imaging.GIF, MIMEType: "image/gif"},
	".bmp":  {Format: imaging.BMP, MIMEType: "image/bmp"},
	".tif":  {Format: imaging.TIFF, MIMEType: "image/tiff"},
	".tiff": {Format: imaging.TIFF, MIMEType: "image/tiff"},
}

// FormatForName 根据文件扩展名选择编码格式
func FormatForName(name string) (FormatInfo, error) {
	ext := strings.ToLower(path.Ext(name))
	info, ok := formatRegistry[ext]
	if !ok {
		return FormatInfo{}, fmt.Errorf("%w: %q (%w)", ErrUnsupportedFormat, ext, imaging.ErrUnsupportedFormat)
	}
	return info, nil
}

// IsSupported 判断文件名的扩展名能否编码
func IsSupported(name string) bool {
	_, err := FormatForName(name)
	return err == nil
}

// ContentType 根据文件名推断 MIME 类型，默认 image/png
func ContentType(name string) string {
	ext := strings.ToLower(path.Ext(name))
	if info, ok := formatRegistry[ext]; ok {
		return info.MIMEType
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return DefaultContentType
}

// Sniff 检测内容的 MIME 类型
func Sniff(data []byte) string {
	return mimetype.Detect(data).String()
}

// Decode 读取并解码图片
// 返回图片及检测到的 MIME 类型，非图片内容返回 ErrDecode
func Decode(r io.Reader) (image.Image, string, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxImageSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("%w: read upload: %w", ErrDecode, err)
	}
	if len(data) > maxImageSize {
		return nil, "", fmt.Errorf("%w: image exceeds %d bytes", ErrDecode, maxImageSize)
	}

	contentType := Sniff(data)
	if !strings.HasPrefix(contentType, "image/") {
		return nil, contentType, fmt.Errorf("%w: content type %s is not an image", ErrDecode, contentType)
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, contentType, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return img, contentType, nil
}

// Encode 按文件名的扩展名编码图片
func Encode(img image.Image, name string, quality int) ([]byte, error) {
	info, err := FormatForName(name)
	if err != nil {
		return nil, err
	}
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, info.Format, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("failed to encode %s as %s: %w", name, info.Format, err)
	}
	return buf.Bytes(), nil
}
