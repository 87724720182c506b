package cache

import (
	"context"
	"testing"
	"time"

	"github.com/anoixa/image-helper/cache/ristretto"
	"github.com/anoixa/image-helper/cache/types"
)

func newTestRistretto(t *testing.T) types.Cache {
	t.Helper()
	config := ristretto.Config{
		NumCounters: 1000,
		MaxCost:     1000,
		BufferItems: 64,
		Metrics:     false,
	}

	cache, err := ristretto.NewRistretto(config)
	if err != nil {
		t.Fatalf("Failed to create ristretto cache: %v", err)
	}
	t.Cleanup(func() { _ = cache.Close() })
	return cache
}

func TestRistrettoCache(t *testing.T) {
	cache := newTestRistretto(t)

	ctx := context.Background()
	key := "test_key"
	value := "test_value"
	expiration := 10 * time.Second

	err := cache.Set(ctx, key, value, expiration)
	if err != nil {
		t.Fatalf("Failed to set cache value: %v", err)
	}

	var retrievedValue string
	err = cache.Get(ctx, key, &retrievedValue)
	if err != nil {
		t.Fatalf("Failed to get cache value: %v", err)
	}

	if retrievedValue != value {
		t.Errorf("Retrieved value %s does not match original value %s", retrievedValue, value)
	}

	// 测试Exists
	exists, err := cache.Exists(ctx, key)
	if err != nil {
		t.Fatalf("Failed to check if key exists: %v", err)
	}
	if !exists {
		t.Error("Key should exist but was not found")
	}

	// 测试Delete
	err = cache.Delete(ctx, key)
	if err != nil {
		t.Fatalf("Failed to delete cache key: %v", err)
	}

	// 再次获取应该返回错误
	err = cache.Get(ctx, key, &retrievedValue)
	if err == nil {
		t.Error("Should return error for deleted key")
	}
}

func TestRistrettoCacheStruct(t *testing.T) {
	cache := newTestRistretto(t)
	ctx := context.Background()

	type fileMeta struct {
		Name string
		Size int64
	}

	key := "struct_key"
	value := fileMeta{Name: "sample_images/a.png", Size: 42}

	if err := cache.Set(ctx, key, value, 10*time.Second); err != nil {
		t.Fatalf("Failed to set cache value: %v", err)
	}

	var retrievedValue fileMeta
	if err := cache.Get(ctx, key, &retrievedValue); err != nil {
		t.Fatalf("Failed to get cache value: %v", err)
	}

	if retrievedValue != value {
		t.Errorf("Retrieved value %+v does not match original value %+v", retrievedValue, value)
	}
}

func TestCacheMiss(t *testing.T) {
	cache := newTestRistretto(t)
	ctx := context.Background()

	// 尝试获取不存在的key
	var value string
	err := cache.Get(ctx, "nonexistent_key", &value)
	if err == nil {
		t.Error("Should return error for nonexistent key")
	}

	if err != ristretto.ErrCacheMiss {
		t.Errorf("Error should be cache miss, got: %v", err)
	}
	if !types.IsCacheMiss(err) {
		t.Errorf("IsCacheMiss should report true for %v", err)
	}
}

func TestNewFromConfig(t *testing.T) {
	provider, err := NewFromConfig(Config{Type: "memory"})
	if err != nil {
		t.Fatalf("Failed to create memory cache: %v", err)
	}
	if provider.Name() != "ristretto" {
		t.Errorf("unexpected cache name %s", provider.Name())
	}
	_ = provider.Close()

	provider, err = NewFromConfig(Config{Type: "none"})
	if err != nil || provider != nil {
		t.Errorf("none should yield a nil cache, got %v, %v", provider, err)
	}

	if _, err := NewFromConfig(Config{Type: "memcached"}); err == nil {
		t.Error("unsupported type should fail")
	}
}
