package ristretto

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dgraph-io/ristretto"

	"github.com/anoixa/image-helper/cache/types"
)

// ErrCacheMiss 缓存未命中
var ErrCacheMiss = types.ErrCacheMiss

// Ristretto 实现缓存接口
type Ristretto struct {
	client *ristretto.Cache
}

// Config Ristretto配置
type Config struct {
	NumCounters int64
	MaxCost     int64
	BufferItems int64
	Metrics     bool
}

// DefaultConfig 元数据缓存的默认配置
func DefaultConfig() Config {
	return Config{
		NumCounters: 100000,
		MaxCost:     1 << 24,
		BufferItems: 64,
	}
}

// NewRistretto 创建新的Ristretto实例
func NewRistretto(config Config) (types.Cache, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: config.NumCounters,
		MaxCost:     config.MaxCost,
		BufferItems: config.BufferItems,
		Metrics:     config.Metrics,
		// 成本按值的字节数计算
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, err
	}

	return &Ristretto{
		client: cache,
	}, nil
}

// Set 设置缓存项，值以 JSON 形式保存
func (r *Ristretto) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, ok := value.([]byte)
	if !ok {
		var err error
		data, err = json.Marshal(value)
		if err != nil {
			return err
		}
	}

	if r.client.SetWithTTL(key, data, int64(len(data)), expiration) {
		// 等待值被实际设置
		r.client.Wait()
	}
	return nil
}

// Get 获取缓存项
func (r *Ristretto) Get(ctx context.Context, key string, dest interface{}) error {
	value, found := r.client.Get(key)
	if !found {
		return types.ErrCacheMiss
	}

	data, ok := value.([]byte)
	if !ok {
		return types.ErrCacheMiss
	}

	if raw, ok := dest.(*[]byte); ok {
		*raw = append([]byte(nil), data...)
		return nil
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return types.ErrCacheMiss
	}
	return nil
}

// Delete 删除缓存项
func (r *Ristretto) Delete(ctx context.Context, key string) error {
	r.client.Del(key)
	return nil
}

// Exists 检查缓存项是否存在
func (r *Ristretto) Exists(ctx context.Context, key string) (bool, error) {
	_, found := r.client.Get(key)
	return found, nil
}

// Close 关闭缓存连接
func (r *Ristretto) Close() error {
	r.client.Close()
	return nil
}

// Name 返回缓存后端名称
func (r *Ristretto) Name() string {
	return "ristretto"
}
