package storage

import (
	"context"
	"io"
	"time"

	"github.com/anoixa/image-helper/cache/types"
	"github.com/anoixa/image-helper/utils"
)

const defaultMetaTTL = 10 * time.Minute

// fileMeta 缓存的文件元数据
type fileMeta struct {
	Size int64 `json:"size"`
}

// CachedProvider 为 Size 加一层元数据缓存
// 只缓存存在的文件，Save、Delete 和 Exists 发现文件缺失时失效
type CachedProvider struct {
	Provider
	cache types.Cache
	ttl   time.Duration
}

// NewCachedProvider 包装存储提供者，cache 为 nil 时原样返回
func NewCachedProvider(p Provider, cache types.Cache, ttl time.Duration) Provider {
	if cache == nil {
		return p
	}
	if ttl <= 0 {
		ttl = defaultMetaTTL
	}
	return &CachedProvider{Provider: p, cache: cache, ttl: ttl}
}

func (c *CachedProvider) metaKey(name string) string {
	return "storage:meta:" + c.Provider.Name() + ":" + name
}

func (c *CachedProvider) lookup(ctx context.Context, name string) (fileMeta, bool) {
	var meta fileMeta
	if err := c.cache.Get(ctx, c.metaKey(name), &meta); err != nil {
		if !types.IsCacheMiss(err) {
			utils.Logger.Warn().Err(err).Str("name", name).Msg("metadata cache read failed")
		}
		return meta, false
	}
	return meta, true
}

func (c *CachedProvider) remember(ctx context.Context, name string, size int64) {
	if err := c.cache.Set(ctx, c.metaKey(name), fileMeta{Size: size}, c.ttl); err != nil {
		utils.Logger.Warn().Err(err).Str("name", name).Msg("metadata cache write failed")
	}
}

func (c *CachedProvider) forget(ctx context.Context, name string) {
	if err := c.cache.Delete(ctx, c.metaKey(name)); err != nil {
		utils.Logger.Warn().Err(err).Str("name", name).Msg("metadata cache delete failed")
	}
}

// AvailableName 必须绕过缓存直接询问后端
func (c *CachedProvider) AvailableName(ctx context.Context, name string) (string, error) {
	return c.Provider.AvailableName(ctx, name)
}

// SaveWithContext 保存后清除新名称的缓存
func (c *CachedProvider) SaveWithContext(ctx context.Context, name string, file io.Reader) (string, error) {
	actual, err := c.Provider.SaveWithContext(ctx, name, file)
	if err != nil {
		return "", err
	}
	c.forget(ctx, actual)
	return actual, nil
}

// DeleteWithContext 后端删除后再清除缓存，避免删除期间的 Size 把旧文件写回缓存
func (c *CachedProvider) DeleteWithContext(ctx context.Context, name string) error {
	err := c.Provider.DeleteWithContext(ctx, name)
	c.forget(ctx, name)
	return err
}

// Exists 总是询问后端，文件已在外部被删除时顺带清除缓存
func (c *CachedProvider) Exists(ctx context.Context, name string) (bool, error) {
	exists, err := c.Provider.Exists(ctx, name)
	if err != nil {
		return false, err
	}
	if !exists {
		c.forget(ctx, name)
	}
	return exists, nil
}

// Size 返回文件大小，优先读缓存
func (c *CachedProvider) Size(ctx context.Context, name string) (int64, error) {
	if meta, ok := c.lookup(ctx, name); ok {
		return meta.Size, nil
	}

	size, err := c.Provider.Size(ctx, name)
	if err != nil {
		return 0, err
	}
	c.remember(ctx, name, size)
	return size, nil
}

// Unwrap 返回被包装的存储提供者
func (c *CachedProvider) Unwrap() Provider {
	return c.Provider
}
