package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
}

func exerciseCache(t *testing.T, c Cache) {
	ctx := context.Background()

	var got record
	ok, err := GetJSON(ctx, c, "img-1", &got)
	require.NoError(t, err)
	assert.False(t, ok)

	want := record{ID: "img-1", Filename: "cabinet_1_abcdefgh.png"}
	require.NoError(t, SetJSON(ctx, c, "img-1", want, 0))

	ok, err = GetJSON(ctx, c, "img-1", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, want, got)

	require.NoError(t, c.Delete(ctx, "img-1"))
	_, ok, err = c.Get(ctx, "img-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryCache(t *testing.T) {
	c := NewMemory(time.Minute)
	defer c.Close()
	exerciseCache(t, c)
}

func TestRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)

	c, err := New(Config{Addr: mr.Addr(), Prefix: "test:", TTL: time.Minute})
	require.NoError(t, err)
	defer c.Close()
	exerciseCache(t, c)

	require.NoError(t, c.Set(context.Background(), "k", []byte("v"), 0))
	assert.True(t, mr.Exists("test:k"))
	assert.Equal(t, time.Minute, mr.TTL("test:k"))

	mr.FastForward(2 * time.Minute)
	_, ok, err := c.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNew_SelectsMemoryWithoutAddr(t *testing.T) {
	c, err := New(Config{})
	require.NoError(t, err)
	assert.IsType(t, &MemoryCache{}, c)
}

func TestNewRedis_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedis(Config{Addr: addr})
	assert.Error(t, err)
}
