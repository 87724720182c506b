package storage

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anoixa/image-helper/cache/ristretto"
	"github.com/anoixa/image-helper/cache/types"
)

func TestCachedProvider_SizeCachedUntilDelete(t *testing.T) {
	local := newTestLocal(t)
	c, err := ristretto.NewRistretto(ristretto.DefaultConfig())
	require.NoError(t, err)
	defer c.Close()

	p := NewCachedProvider(local, c, time.Minute)
	ctx := context.Background()

	name, err := p.SaveWithContext(ctx, "a.png", strings.NewReader("12345"))
	require.NoError(t, err)

	size, err := p.Size(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, int64(5), size)

	// 缓存命中时不访问后端
	var meta fileMeta
	require.NoError(t, c.Get(ctx, p.(*CachedProvider).metaKey(name), &meta))
	assert.Equal(t, int64(5), meta.Size)

	exists, err := p.Exists(ctx, name)
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, p.DeleteWithContext(ctx, name))

	exists, err = p.Exists(ctx, name)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = p.Size(ctx, name)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCachedProvider_SaveInvalidatesStaleEntry(t *testing.T) {
	local := newTestLocal(t)
	c, err := ristretto.NewRistretto(ristretto.DefaultConfig())
	require.NoError(t, err)
	defer c.Close()

	p := NewCachedProvider(local, c, time.Minute)
	ctx := context.Background()

	name, err := p.SaveWithContext(ctx, "b.png", strings.NewReader("1"))
	require.NoError(t, err)
	_, err = p.Size(ctx, name)
	require.NoError(t, err)

	// 绕过缓存删除后重新保存
	require.NoError(t, local.DeleteWithContext(ctx, name))
	again, err := p.SaveWithContext(ctx, name, strings.NewReader("123"))
	require.NoError(t, err)
	require.Equal(t, name, again)

	size, err := p.Size(ctx, again)
	require.NoError(t, err)
	assert.Equal(t, int64(3), size)
}

func TestCachedProvider_ExistsSeesExternalDelete(t *testing.T) {
	local := newTestLocal(t)
	c, err := ristretto.NewRistretto(ristretto.DefaultConfig())
	require.NoError(t, err)
	defer c.Close()

	p := NewCachedProvider(local, c, time.Minute)
	ctx := context.Background()

	name, err := p.SaveWithContext(ctx, "c.png", strings.NewReader("123"))
	require.NoError(t, err)
	_, err = p.Size(ctx, name)
	require.NoError(t, err)

	// 绕过缓存删除，缓存里仍有元数据
	require.NoError(t, local.DeleteWithContext(ctx, name))

	exists, err := p.Exists(ctx, name)
	require.NoError(t, err)
	assert.False(t, exists)

	var meta fileMeta
	assert.True(t, types.IsCacheMiss(c.Get(ctx, p.(*CachedProvider).metaKey(name), &meta)))

	_, err = p.Size(ctx, name)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCachedProvider_DeleteMissingStillForgets(t *testing.T) {
	local := newTestLocal(t)
	c, err := ristretto.NewRistretto(ristretto.DefaultConfig())
	require.NoError(t, err)
	defer c.Close()

	p := NewCachedProvider(local, c, time.Minute)
	ctx := context.Background()

	name, err := p.SaveWithContext(ctx, "d.png", strings.NewReader("1"))
	require.NoError(t, err)
	_, err = p.Size(ctx, name)
	require.NoError(t, err)
	require.NoError(t, local.DeleteWithContext(ctx, name))

	assert.ErrorIs(t, p.DeleteWithContext(ctx, name), ErrNotFound)

	var meta fileMeta
	assert.True(t, types.IsCacheMiss(c.Get(ctx, p.(*CachedProvider).metaKey(name), &meta)))
}

func TestNewCachedProvider_NilCache(t *testing.T) {
	local := newTestLocal(t)
	assert.Same(t, Provider(local), NewCachedProvider(local, nil, 0))
}
