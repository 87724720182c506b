package resize

import (
	"image"
	"image/draw"

	"github.com/disintegration/imaging"
)

// IsRGBOrGray 判断图片是否已是灰度或不透明 RGB
// YCbCr 为 JPEG 解码结果，本身不带 alpha
func IsRGBOrGray(img image.Image) bool {
	switch src := img.(type) {
	case *image.Gray, *image.YCbCr:
		return true
	case *image.RGBA:
		return src.Opaque()
	case *image.NRGBA:
		return src.Opaque()
	}
	return false
}

// Normalize 统一像素模式
// 灰度和不透明 RGB 原样返回，其余（带 alpha、调色板、CMYK 等）转为不透明 RGB，
// alpha 通道直接丢弃
func Normalize(img image.Image) image.Image {
	if IsRGBOrGray(img) {
		return img
	}

	dst := imaging.Clone(img)
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = 0xff
	}
	return dst
}

// Apply 按指令缩放，d 为 nil 时不做处理
func Apply(img image.Image, d *Directive) image.Image {
	if d == nil {
		return img
	}
	if d.Force {
		return imaging.Resize(img, d.Width, d.Height, imaging.Lanczos)
	}
	return imaging.Fit(img, d.Width, d.Height, imaging.Lanczos)
}

// Copy 复制图片，缩略图在副本上处理
func Copy(img image.Image) image.Image {
	if g, ok := img.(*image.Gray); ok {
		dst := image.NewGray(image.Rect(0, 0, g.Bounds().Dx(), g.Bounds().Dy()))
		draw.Draw(dst, dst.Bounds(), g, g.Bounds().Min, draw.Src)
		return dst
	}
	return imaging.Clone(img)
}
