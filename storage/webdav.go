package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/studio-b12/gowebdav"

	"github.com/anoixa/image-helper/utils"
)

// WebDAVConfig WebDAV 配置结构
type WebDAVConfig struct {
	URL      string
	Username string
	Password string
	RootPath string
	Timeout  time.Duration
}

// WebDAVStorage WebDAV 存储实现
type WebDAVStorage struct {
	client   *gowebdav.Client
	baseURL  string
	rootPath string
}

// NewWebDAVStorage 创建 WebDAV 存储提供者
func NewWebDAVStorage(cfg WebDAVConfig) (*WebDAVStorage, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("webdav URL is required")
	}

	rootPath := strings.Trim(cfg.RootPath, "/")
	if rootPath != "" {
		rootPath = "/" + rootPath
	}

	client := gowebdav.NewClient(cfg.URL, cfg.Username, cfg.Password)
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}

	// 验证连接
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := testWebDAVConnection(ctx, client, rootPath); err != nil {
		return nil, fmt.Errorf("webdav connection test failed: %w", err)
	}

	return &WebDAVStorage{
		client:   client,
		rootPath: rootPath,
		baseURL:  strings.TrimRight(cfg.URL, "/"),
	}, nil
}

// testWebDAVConnection 测试 WebDAV 连接，根目录不存在时创建
func testWebDAVConnection(ctx context.Context, client *gowebdav.Client, rootPath string) error {
	return runWithContext(ctx, func() error {
		if rootPath == "" {
			_, err := client.ReadDir("/")
			return err
		}
		if err := client.MkdirAll(rootPath, 0755); err != nil && !isCollectionExistsError(err) {
			return err
		}
		_, err := client.ReadDir(rootPath)
		return err
	})
}

// runWithContext gowebdav 不支持 context，在 goroutine 中执行并等待取消
func runWithContext(ctx context.Context, fn func() error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

// fullPath 生成完整的 WebDAV 路径
func (s *WebDAVStorage) fullPath(name string) (string, error) {
	if err := validateName(name); err != nil {
		return "", err
	}
	return s.rootPath + "/" + name, nil
}

// ensureParentDir 逐级创建父目录
func (s *WebDAVStorage) ensureParentDir(ctx context.Context, fullPath string) error {
	parentDir := path.Dir(fullPath)
	if parentDir == "/" || parentDir == "." {
		return nil
	}

	currentPath := ""
	for _, part := range strings.Split(strings.Trim(parentDir, "/"), "/") {
		if part == "" {
			continue
		}
		currentPath += "/" + part

		p := currentPath
		err := runWithContext(ctx, func() error {
			return s.client.Mkdir(p, os.FileMode(0755))
		})
		if err != nil && !isCollectionExistsError(err) {
			return fmt.Errorf("failed to create directory %s: %w", p, err)
		}
	}

	return nil
}

// isCollectionExistsError 判断是否为目录已存在的错误
func isCollectionExistsError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	for _, s := range []string{"already exists", "Conflict", "409", "Method Not Allowed", "405"} {
		if strings.Contains(errStr, s) {
			return true
		}
	}
	return false
}

// AvailableName 返回 WebDAV 上未被占用的名称
func (s *WebDAVStorage) AvailableName(ctx context.Context, name string) (string, error) {
	return availableName(ctx, name, s.Exists)
}

// SaveWithContext 保存文件到 WebDAV
func (s *WebDAVStorage) SaveWithContext(ctx context.Context, name string, file io.Reader) (string, error) {
	actual, err := s.AvailableName(ctx, name)
	if err != nil {
		return "", err
	}

	fullPath, err := s.fullPath(actual)
	if err != nil {
		return "", err
	}

	if err := s.ensureParentDir(ctx, fullPath); err != nil {
		return "", fmt.Errorf("failed to ensure parent directory for %s: %w", actual, err)
	}

	err = runWithContext(ctx, func() error {
		return s.client.WriteStream(fullPath, file, 0644)
	})
	if err != nil {
		return "", fmt.Errorf("failed to write file %s: %w", actual, err)
	}

	return actual, nil
}

// GetWithContext 从 WebDAV 获取文件
func (s *WebDAVStorage) GetWithContext(ctx context.Context, name string) (io.ReadCloser, error) {
	fullPath, err := s.fullPath(name)
	if err != nil {
		return nil, err
	}

	var rc io.ReadCloser
	err = runWithContext(ctx, func() error {
		var readErr error
		rc, readErr = s.client.ReadStream(fullPath)
		return readErr
	})
	if err != nil {
		if gowebdav.IsErrNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("failed to read file %s: %w", name, err)
	}

	return rc, nil
}

// DeleteWithContext 从 WebDAV 删除文件
// gowebdav 删除不存在的文件不报错，这里先 Stat 以保持与其他存储一致
func (s *WebDAVStorage) DeleteWithContext(ctx context.Context, name string) error {
	exists, err := s.Exists(ctx, name)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	fullPath, err := s.fullPath(name)
	if err != nil {
		return err
	}

	if err := runWithContext(ctx, func() error { return s.client.Remove(fullPath) }); err != nil {
		return fmt.Errorf("failed to delete file %s: %w", name, err)
	}
	return nil
}

// stat 获取文件信息
func (s *WebDAVStorage) stat(ctx context.Context, name string) (os.FileInfo, error) {
	fullPath, err := s.fullPath(name)
	if err != nil {
		return nil, err
	}

	var info os.FileInfo
	err = runWithContext(ctx, func() error {
		var statErr error
		info, statErr = s.client.Stat(fullPath)
		return statErr
	})
	return info, err
}

// Exists 检查文件是否存在
func (s *WebDAVStorage) Exists(ctx context.Context, name string) (bool, error) {
	_, err := s.stat(ctx, name)
	if err != nil {
		if gowebdav.IsErrNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Size 返回文件大小
func (s *WebDAVStorage) Size(ctx context.Context, name string) (int64, error) {
	info, err := s.stat(ctx, name)
	if err != nil {
		if gowebdav.IsErrNotFound(err) {
			return 0, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return 0, fmt.Errorf("failed to stat %s: %w", name, err)
	}
	return info.Size(), nil
}

// Path WebDAV 没有本地路径
func (s *WebDAVStorage) Path(name string) (string, error) {
	return "", fmt.Errorf("%w: webdav has no local path for %s", ErrNotSupported, name)
}

// URL 返回文件的完整地址
func (s *WebDAVStorage) URL(name string) (string, error) {
	if err := validateName(name); err != nil {
		return "", err
	}
	return utils.JoinURL(s.baseURL+s.rootPath, name), nil
}

// Health 检查存储健康状态
func (s *WebDAVStorage) Health(ctx context.Context) error {
	root := s.rootPath
	if root == "" {
		root = "/"
	}
	return runWithContext(ctx, func() error {
		_, err := s.client.ReadDir(root)
		return err
	})
}

// Name 返回存储名称
func (s *WebDAVStorage) Name() string {
	return fmt.Sprintf("webdav:%s%s", s.baseURL, s.rootPath)
}
