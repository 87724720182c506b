package cache

import (
	"fmt"

	"github.com/anoixa/image-helper/cache/redis"
	"github.com/anoixa/image-helper/cache/ristretto"
	"github.com/anoixa/image-helper/cache/types"
	"github.com/anoixa/image-helper/utils"
)

// Provider 缓存提供者
type Provider = types.Cache

// Config 缓存配置
type Config struct {
	// Type memory / ristretto / redis / none
	Type          string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}

// NewFromConfig 根据配置创建缓存，Type 为 none 时返回 nil
func NewFromConfig(cfg Config) (Provider, error) {
	switch cfg.Type {
	case "", "memory", "ristretto":
		provider, err := ristretto.NewRistretto(ristretto.DefaultConfig())
		if err != nil {
			return nil, fmt.Errorf("failed to create memory cache: %w", err)
		}
		utils.Logger.Info().Str("cache", provider.Name()).Msg("cache initialized")
		return provider, nil
	case "redis":
		prefix := cfg.RedisPrefix
		if prefix == "" {
			prefix = "image-helper:"
		}
		provider, err := redis.NewRedis(redis.Config{
			Addr:      cfg.RedisAddr,
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			KeyPrefix: prefix,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect redis at %s: %w", cfg.RedisAddr, err)
		}
		utils.Logger.Info().Str("cache", provider.Name()).Str("addr", cfg.RedisAddr).Msg("cache initialized")
		return provider, nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cfg.Type)
	}
}
