package storage

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetStorage 重置存储状态用于测试隔离
func resetStorage(t *testing.T) {
	t.Helper()
	providersMu.Lock()
	defer providersMu.Unlock()
	providers = make(map[string]Provider)
	defaultProvider = nil
	defaultName = ""
}

func localConfig(t *testing.T, name string, isDefault bool) StorageConfig {
	return StorageConfig{
		Name:      name,
		Type:      "local",
		LocalPath: filepath.Join(t.TempDir(), name),
		IsDefault: isDefault,
	}
}

// TestInitStorage 测试按配置初始化
func TestInitStorage(t *testing.T) {
	resetStorage(t)

	err := InitStorage([]StorageConfig{
		localConfig(t, "first", false),
		localConfig(t, "second", true),
		{Name: "broken", Type: "ftp"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"first", "second"}, ListProviders())
	assert.Equal(t, "second", GetDefaultName())
	assert.Equal(t, 2, GetProviderCount())

	p, err := Get("")
	require.NoError(t, err)
	assert.Same(t, GetDefault(), p)

	_, err = Get("broken")
	assert.Error(t, err)
}

// TestInitStorage_AllFailed 全部初始化失败时返回错误
func TestInitStorage_AllFailed(t *testing.T) {
	resetStorage(t)

	err := InitStorage([]StorageConfig{{Name: "local", Type: "local"}})
	assert.Error(t, err)

	_, err = Get("")
	assert.Error(t, err)
}

// TestRemoveProvider 测试移除存储提供者
func TestRemoveProvider(t *testing.T) {
	resetStorage(t)
	require.NoError(t, InitStorage([]StorageConfig{
		localConfig(t, "main", true),
		localConfig(t, "spare", false),
	}))

	// 默认存储不可移除
	assert.Error(t, RemoveProvider("main"))

	require.NoError(t, RemoveProvider("spare"))
	_, err := Get("spare")
	assert.Error(t, err)

	assert.Error(t, RemoveProvider("spare"))
}

// TestSetDefault 测试切换默认存储
func TestSetDefault(t *testing.T) {
	resetStorage(t)
	require.NoError(t, InitStorage([]StorageConfig{
		localConfig(t, "a", true),
		localConfig(t, "b", false),
	}))

	require.NoError(t, SetDefault("b"))
	assert.Equal(t, "b", GetDefaultName())

	assert.Error(t, SetDefault("missing"))
	assert.Equal(t, "b", GetDefaultName())
}

// TestConcurrentAccess 测试并发访问 providers map
func TestConcurrentAccess(t *testing.T) {
	resetStorage(t)
	base := localConfig(t, "base", true)
	require.NoError(t, InitStorage([]StorageConfig{base}))
	provider := GetDefault()

	var wg sync.WaitGroup
	numGoroutines := 50

	wg.Add(numGoroutines * 2)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				_ = GetDefault()
				_ = GetDefaultName()
				_, _ = Get("base")
				_ = ListProviders()
				_ = GetProviderCount()
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				Register("extra", provider, false)
				_ = SetDefault("base")
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, "base", GetDefaultName())
	assert.Equal(t, 2, GetProviderCount())
}
