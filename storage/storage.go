package storage

import (
	"fmt"
	"sort"
	"sync"

	"github.com/anoixa/image-helper/utils"
)

// StorageConfig 存储配置
type StorageConfig struct {
	Name      string
	Type      string // local / minio / webdav
	IsDefault bool

	// Local
	LocalPath    string
	LocalBaseURL string

	Minio  MinioConfig
	WebDAV WebDAVConfig
}

var (
	providers       = make(map[string]Provider)
	defaultProvider Provider
	defaultName     string
	providersMu     sync.RWMutex
)

// NewProvider 根据配置创建存储提供者
func NewProvider(cfg StorageConfig) (Provider, error) {
	switch cfg.Type {
	case "local":
		if cfg.LocalPath == "" {
			return nil, fmt.Errorf("local storage path is required")
		}
		return NewLocalStorage(cfg.LocalPath, cfg.LocalBaseURL)
	case "minio":
		return NewMinioStorage(cfg.Minio)
	case "webdav":
		return NewWebDAVStorage(cfg.WebDAV)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

// InitStorage 按配置初始化所有存储，单个失败只记录日志
func InitStorage(configs []StorageConfig) error {
	for _, cfg := range configs {
		provider, err := NewProvider(cfg)
		if err != nil {
			utils.Logger.Error().Err(err).Str("name", cfg.Name).Str("type", cfg.Type).Msg("failed to initialize storage")
			continue
		}
		Register(cfg.Name, provider, cfg.IsDefault)
		utils.Logger.Info().Str("name", cfg.Name).Str("backend", provider.Name()).Msg("storage initialized")
	}

	if GetProviderCount() == 0 && len(configs) > 0 {
		return fmt.Errorf("no storage providers were successfully initialized")
	}
	return nil
}

// Register 注册存储提供者，第一个注册的提供者自动成为默认
func Register(name string, provider Provider, isDefault bool) {
	providersMu.Lock()
	defer providersMu.Unlock()

	providers[name] = provider
	if isDefault || defaultProvider == nil {
		defaultProvider = provider
		defaultName = name
	}
}

// RemoveProvider 移除存储提供者，默认存储不可移除
func RemoveProvider(name string) error {
	providersMu.Lock()
	defer providersMu.Unlock()

	if _, ok := providers[name]; !ok {
		return fmt.Errorf("storage provider '%s' not found", name)
	}
	if defaultName == name {
		return fmt.Errorf("cannot remove default storage provider '%s'", name)
	}
	delete(providers, name)
	return nil
}

// Get 获取指定名称的存储提供者，name 为空时返回默认
func Get(name string) (Provider, error) {
	providersMu.RLock()
	defer providersMu.RUnlock()

	if name == "" {
		if defaultProvider == nil {
			return nil, fmt.Errorf("no default storage provider")
		}
		return defaultProvider, nil
	}

	provider, ok := providers[name]
	if !ok {
		return nil, fmt.Errorf("storage provider '%s' not found", name)
	}
	return provider, nil
}

// GetDefault 获取默认存储提供者
func GetDefault() Provider {
	providersMu.RLock()
	defer providersMu.RUnlock()
	return defaultProvider
}

// GetDefaultName 获取默认存储提供者名称
func GetDefaultName() string {
	providersMu.RLock()
	defer providersMu.RUnlock()
	return defaultName
}

// SetDefault 切换默认存储
func SetDefault(name string) error {
	providersMu.Lock()
	defer providersMu.Unlock()

	provider, ok := providers[name]
	if !ok {
		return fmt.Errorf("storage provider '%s' not found", name)
	}
	defaultProvider = provider
	defaultName = name
	return nil
}

// ListProviders 列出所有存储提供者名称
func ListProviders() []string {
	providersMu.RLock()
	defer providersMu.RUnlock()

	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetProviderCount 获取存储提供者数量
func GetProviderCount() int {
	providersMu.RLock()
	defer providersMu.RUnlock()
	return len(providers)
}
