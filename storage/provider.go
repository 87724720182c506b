package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/anoixa/image-helper/utils/generator"
)

var (
	// ErrNotFound 存储中不存在该对象
	ErrNotFound = errors.New("file not found")
	// ErrNotSupported 存储后端不支持该操作（如远程存储的本地路径）
	ErrNotSupported = errors.New("operation not supported by storage backend")
	// ErrInvalidName 存储名称非法
	ErrInvalidName = errors.New("invalid storage name")
)

// maxNameAttempts 可用名称的最大尝试次数
const maxNameAttempts = 100

// Provider 存储提供者接口
// 字段层只依赖这组窄接口，不关心具体实现
type Provider interface {
	// SaveWithContext 保存文件，返回实际使用的名称（可能与请求名称不同）
	SaveWithContext(ctx context.Context, name string, file io.Reader) (string, error)

	// AvailableName 返回一个未被占用的名称
	AvailableName(ctx context.Context, name string) (string, error)

	// GetWithContext 读取文件
	GetWithContext(ctx context.Context, name string) (io.ReadCloser, error)

	// DeleteWithContext 删除文件
	DeleteWithContext(ctx context.Context, name string) error

	// Exists 检查文件是否存在
	Exists(ctx context.Context, name string) (bool, error)

	// Size 返回文件大小
	Size(ctx context.Context, name string) (int64, error)

	// Path 返回本地文件系统路径，远程存储返回 ErrNotSupported
	Path(name string) (string, error)

	// URL 返回访问地址
	URL(name string) (string, error)

	// Health 检查存储健康状态
	Health(ctx context.Context) error

	// Name 返回存储名称
	Name() string
}

// IsValidName 校验存储名称是否合法
func IsValidName(name string) bool {
	if name == "" || name == "." {
		return false
	}

	// 不允许绝对路径
	if filepath.IsAbs(name) || strings.HasPrefix(name, "/") {
		return false
	}

	// 防止目录遍历
	if strings.Contains(name, "..") {
		return false
	}

	// 只允许安全字符
	for _, r := range name {
		if (r < 'a' || r > 'z') &&
			(r < 'A' || r > 'Z') &&
			(r < '0' || r > '9') &&
			r != '-' && r != '_' && r != '.' && r != '/' {
			return false
		}
	}

	return true
}

func validateName(name string) error {
	if !IsValidName(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// availableName 名称被占用时在扩展名前追加 _ 和 7 位随机字符，直到找到空闲名称
func availableName(ctx context.Context, name string, exists func(context.Context, string) (bool, error)) (string, error) {
	if err := validateName(name); err != nil {
		return "", err
	}

	candidate := name
	for i := 0; i < maxNameAttempts; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("failed to check name %q: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
		candidate = SuffixedName(name)
	}

	return "", fmt.Errorf("no available name for %q after %d attempts", name, maxNameAttempts)
}

// SuffixedName 在扩展名前追加 _ 和 7 位随机字符
func SuffixedName(name string) string {
	stem, ext := generator.SplitExt(name)
	return fmt.Sprintf("%s_%s%s", stem, randomSuffix(), ext)
}

func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:7]
}
