package storage

import (
	"context"
	"os"
	"testing"

	"fsgraph/internal/core"
	"fsgraph/src/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisServer(t *testing.T, prefix string) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStoreWithClient(client, model.CacheConfig{Mode: ModeString, KeyPrefix: prefix})
	t.Cleanup(func() { store.Close() })
	return store, mr
}

func newTestRedis(t *testing.T, prefix string) *RedisStore {
	t.Helper()
	store, _ := newTestRedisServer(t, prefix)
	return store
}

func TestRedis_EmptyStore(t *testing.T) {
	ctx := context.Background()
	store := newTestRedis(t, "")

	exists, err := store.Exists(ctx)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = store.Load(ctx)
	assert.ErrorIs(t, err, core.ErrNoSnapshot)
}

func TestRedis_SaveLoad(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestRedisServer(t, "")
	g := testGraph()

	require.NoError(t, store.Save(ctx, g))

	exists, err := store.Exists(ctx)
	require.NoError(t, err)
	assert.True(t, exists)

	edges, err := mr.Get(KeyEdges)
	require.NoError(t, err)
	assert.Equal(t, `[[1,0],[2,1],[3,0]]`, edges)

	names, err := mr.Get(KeyVerticesName)
	require.NoError(t, err)
	assert.Equal(t, `["/r","/r/a","/r/a/b/report.py","/r/c.txt"]`, names)

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, g.Vertices, loaded.Vertices)
	assert.Equal(t, g.Edges, loaded.Edges)
}

func TestRedis_SingleVertex(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestRedisServer(t, "")
	g := &core.Graph{Vertices: []core.Vertex{{ID: 0, Name: "/empty", Size: 4096}}}

	require.NoError(t, store.Save(ctx, g))
	edges, err := mr.Get(KeyEdges)
	require.NoError(t, err)
	assert.Equal(t, `[]`, edges)

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, loaded.Len())
	assert.Equal(t, "/empty", loaded.Vertices[0].Name)
	assert.Empty(t, loaded.Edges)
}

func TestRedis_KeyPrefix(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestRedisServer(t, "fsgraph:")

	require.NoError(t, store.Save(ctx, testGraph()))
	assert.True(t, mr.Exists("fsgraph:"+KeyEdges))
	assert.False(t, mr.Exists(KeyEdges))

	_, err := store.Load(ctx)
	require.NoError(t, err)
}

func TestRedis_CorruptSnapshot(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(mr *miniredis.Miniredis)
	}{
		{"short column", func(mr *miniredis.Miniredis) { mr.Set(KeyVerticesSize, "[1,2]") }},
		{"missing column", func(mr *miniredis.Miniredis) { mr.Del(KeyVerticesLastAccessed) }},
		{"bad edges", func(mr *miniredis.Miniredis) { mr.Set(KeyEdges, "not json") }},
		{"bad column", func(mr *miniredis.Miniredis) { mr.Set(KeyVerticesName, `{"a":1}`) }},
		{"edges disagree with names", func(mr *miniredis.Miniredis) { mr.Set(KeyEdges, "[[1,0],[2,0],[3,0]]") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store, mr := newTestRedisServer(t, "")
			require.NoError(t, store.Save(ctx, testGraph()))
			tt.mutate(mr)

			_, err := store.Load(ctx)
			assert.ErrorIs(t, err, core.ErrCorruptSnapshot)
		})
	}
}

func TestRedis_Reset(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestRedisServer(t, "")
	require.NoError(t, store.Save(ctx, testGraph()))
	mr.Set("unrelated", "x")

	require.NoError(t, store.Reset(ctx))

	exists, err := store.Exists(ctx)
	require.NoError(t, err)
	assert.False(t, exists)
	assert.False(t, mr.Exists("unrelated"), "reset flushes the whole database")
}

func TestRedis_Unreachable(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestRedisServer(t, "")
	mr.Close()

	assert.Error(t, store.Ping(ctx))
	_, err := store.Exists(ctx)
	assert.Error(t, err)
	assert.Error(t, store.Save(ctx, testGraph()))
}

func TestNewRedisStore(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	store, err := NewRedisStore(ctx, model.CacheConfig{URL: "redis://" + mr.Addr() + "/0"})
	require.NoError(t, err)
	defer store.Close()
	assert.Equal(t, ModeString, store.mode)

	_, err = NewRedisStore(ctx, model.CacheConfig{})
	assert.Error(t, err)

	_, err = NewRedisStore(ctx, model.CacheConfig{URL: "http://nope"})
	assert.Error(t, err)
}

// TestRedis_JSONMode needs a server with the RedisJSON module, which
// miniredis does not provide.
func TestRedis_JSONMode(t *testing.T) {
	url := os.Getenv("REDIS_JSON_URL")
	if url == "" {
		t.Skip("REDIS_JSON_URL not set")
	}

	ctx := context.Background()
	store, err := NewRedisStore(ctx, model.CacheConfig{URL: url, Mode: ModeJSON, KeyPrefix: "fsgraph_test:"})
	require.NoError(t, err)
	defer store.Close()

	g := testGraph()
	require.NoError(t, store.Save(ctx, g))
	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, g.Vertices, loaded.Vertices)
	assert.Equal(t, g.Edges, loaded.Edges)
}
