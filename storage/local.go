package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/anoixa/image-helper/utils"
)

// LocalStorage 本地文件存储实现
type LocalStorage struct {
	absBasePath string
	baseURL     string
}

// NewLocalStorage 创建本地存储提供者
// baseURL 用于拼接访问地址，如 /media/
func NewLocalStorage(basePath, baseURL string) (*LocalStorage, error) {
	absPath, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path for '%s': %w", basePath, err)
	}

	if err := os.MkdirAll(absPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create local storage directory '%s': %w", absPath, err)
	}

	testFile := filepath.Join(absPath, ".write_test_"+strconv.FormatInt(time.Now().UnixNano(), 10))
	f, err := os.Create(testFile)
	if err != nil {
		return nil, fmt.Errorf("local storage directory '%s' is not writable: %w", absPath, err)
	}
	_ = f.Close()
	_ = os.Remove(testFile)

	return &LocalStorage{
		absBasePath: absPath + string(os.PathSeparator),
		baseURL:     baseURL,
	}, nil
}

// fullPath 校验名称并返回绝对路径
func (s *LocalStorage) fullPath(name string) (string, error) {
	if err := validateName(name); err != nil {
		return "", err
	}

	fullPath := filepath.Join(s.absBasePath, filepath.FromSlash(name))

	// 防止目录遍历攻击
	if !strings.HasPrefix(fullPath, s.absBasePath) {
		return "", fmt.Errorf("%w: potential directory traversal: %s", ErrInvalidName, name)
	}
	return fullPath, nil
}

// AvailableName 返回本地未被占用的名称
func (s *LocalStorage) AvailableName(ctx context.Context, name string) (string, error) {
	return availableName(ctx, name, s.Exists)
}

// SaveWithContext 保存文件到本地存储
// 以 O_EXCL 创建文件，名称被并发占用时重新分配
func (s *LocalStorage) SaveWithContext(ctx context.Context, name string, file io.Reader) (string, error) {
	for attempt := 0; attempt < maxNameAttempts; attempt++ {
		actual, err := s.AvailableName(ctx, name)
		if err != nil {
			return "", err
		}

		dstPath, err := s.fullPath(actual)
		if err != nil {
			return "", err
		}

		if err := os.MkdirAll(filepath.Dir(dstPath), 0755); err != nil {
			return "", fmt.Errorf("failed to create directory for '%s': %w", actual, err)
		}

		dst, err := os.OpenFile(dstPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to create destination file '%s': %w", dstPath, err)
		}

		if _, err := io.Copy(dst, file); err != nil {
			_ = dst.Close()
			_ = os.Remove(dstPath)
			return "", fmt.Errorf("failed to copy file content to '%s': %w", dstPath, err)
		}
		if err := dst.Close(); err != nil {
			_ = os.Remove(dstPath)
			return "", fmt.Errorf("failed to close '%s': %w", dstPath, err)
		}
		return actual, nil
	}

	return "", fmt.Errorf("failed to allocate a name for '%s'", name)
}

// GetWithContext 从本地存储获取文件
func (s *LocalStorage) GetWithContext(ctx context.Context, name string) (io.ReadCloser, error) {
	fullPath, err := s.fullPath(name)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("failed to open file '%s': %w", name, err)
	}

	return file, nil
}

// DeleteWithContext 从本地存储删除文件
func (s *LocalStorage) DeleteWithContext(ctx context.Context, name string) error {
	fullPath, err := s.fullPath(name)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return fmt.Errorf("failed to delete local file '%s': %w", fullPath, err)
	}

	return nil
}

// Exists 检查文件是否存在
func (s *LocalStorage) Exists(ctx context.Context, name string) (bool, error) {
	fullPath, err := s.fullPath(name)
	if err != nil {
		return false, err
	}

	_, err = os.Stat(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Size 返回文件大小
func (s *LocalStorage) Size(ctx context.Context, name string) (int64, error) {
	fullPath, err := s.fullPath(name)
	if err != nil {
		return 0, err
	}

	info, err := os.Stat(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return 0, fmt.Errorf("failed to stat '%s': %w", name, err)
	}
	return info.Size(), nil
}

// Path 返回文件的本地路径，不检查文件是否存在
func (s *LocalStorage) Path(name string) (string, error) {
	return s.fullPath(name)
}

// URL 返回文件访问地址
func (s *LocalStorage) URL(name string) (string, error) {
	if err := validateName(name); err != nil {
		return "", err
	}
	return utils.JoinURL(s.baseURL, name), nil
}

// Health 检查存储健康状态
func (s *LocalStorage) Health(ctx context.Context) error {
	_, err := os.ReadDir(s.absBasePath)
	return err
}

// Name 返回存储名称
func (s *LocalStorage) Name() string {
	return "local"
}

// BasePath 返回存储的基础路径
func (s *LocalStorage) BasePath() string {
	return s.absBasePath
}

// Walk 遍历存储中的所有文件，fn 收到的是存储名称
func (s *LocalStorage) Walk(fn func(name string, size int64) error) error {
	return filepath.WalkDir(s.absBasePath, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.absBasePath, p)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		return fn(filepath.ToSlash(rel), info.Size())
	})
}
