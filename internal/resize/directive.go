package resize

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidDirective 尺寸指令非法
var ErrInvalidDirective = errors.New("invalid resize directive")

// Directive 缩放指令 (width, height, force)
// Force 为 true 时拉伸到精确尺寸，否则等比缩放到边界内且不放大
type Directive struct {
	Width  int  `json:"width" mapstructure:"width"`
	Height int  `json:"height" mapstructure:"height"`
	Force  bool `json:"force" mapstructure:"force"`
}

// NewDirective 创建缩放指令，force 省略时为 false
func NewDirective(width, height int, force ...bool) (*Directive, error) {
	d := &Directive{Width: width, Height: height}
	if len(force) > 0 {
		d.Force = force[0]
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// MustDirective 用于包级字段声明
func MustDirective(width, height int, force ...bool) *Directive {
	d, err := NewDirective(width, height, force...)
	if err != nil {
		panic(err)
	}
	return d
}

// ParseDirective 解析 "220x150" 或 "220x150!"（! 表示强制尺寸）
// 空字符串返回 nil
func ParseDirective(s string) (*Directive, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	force := strings.HasSuffix(s, "!")
	s = strings.TrimSuffix(s, "!")

	w, h, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return nil, fmt.Errorf("%w: %q, expected WIDTHxHEIGHT", ErrInvalidDirective, s)
	}
	width, err := strconv.Atoi(strings.TrimSpace(w))
	if err != nil {
		return nil, fmt.Errorf("%w: bad width %q", ErrInvalidDirective, w)
	}
	height, err := strconv.Atoi(strings.TrimSpace(h))
	if err != nil {
		return nil, fmt.Errorf("%w: bad height %q", ErrInvalidDirective, h)
	}

	return NewDirective(width, height, force)
}

// Validate 检查宽高
func (d *Directive) Validate() error {
	if d.Width <= 0 || d.Height <= 0 {
		return fmt.Errorf("%w: %dx%d, dimensions must be positive", ErrInvalidDirective, d.Width, d.Height)
	}
	return nil
}

func (d *Directive) String() string {
	if d == nil {
		return ""
	}
	if d.Force {
		return fmt.Sprintf("%dx%d!", d.Width, d.Height)
	}
	return fmt.Sprintf("%dx%d", d.Width, d.Height)
}
