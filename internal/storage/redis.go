package storage

import (
	"context"
	"errors"
	"fmt"

	"fsgraph/internal/core"
	"fsgraph/src/logger"
	"fsgraph/src/model"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
)

// Document keys. Each vertex column is one JSON array indexed by vertex id.
const (
	KeyVerticesName         = "vertices_name"
	KeyVerticesParent       = "vertices_parent"
	KeyVerticesSize         = "vertices_size"
	KeyVerticesLastModified = "vertices_last_modified"
	KeyVerticesLastAccessed = "vertices_last_accessed"
	KeyEdges                = "edges"
)

// Cache modes
const (
	ModeString = "string" // plain SET/GET of JSON text
	ModeJSON   = "json"   // RedisJSON JSON.SET/JSON.GET
)

var errMissingDocument = errors.New("document not found")

// RedisStore keeps the graph as six JSON documents in Redis
type RedisStore struct {
	client *redis.Client
	mode   string
	prefix string
}

// NewRedisStore connects to config.URL and verifies the connection
func NewRedisStore(ctx context.Context, config model.CacheConfig) (*RedisStore, error) {
	if config.URL == "" {
		return nil, fmt.Errorf("redis URL is required")
	}

	opts, err := redis.ParseURL(config.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	// Test connection
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisStoreWithClient(client, config), nil
}

// NewRedisStoreWithClient wraps an existing client
func NewRedisStoreWithClient(client *redis.Client, config model.CacheConfig) *RedisStore {
	mode := config.Mode
	if mode == "" {
		mode = ModeString
	}
	return &RedisStore{
		client: client,
		mode:   mode,
		prefix: config.KeyPrefix,
	}
}

// key applies the configured prefix
func (r *RedisStore) key(name string) string {
	return r.prefix + name
}

// Save writes all six documents in one MULTI/EXEC transaction
func (r *RedisStore) Save(ctx context.Context, g *core.Graph) error {
	n := g.Len()
	names := make([]string, n)
	parents := make([]string, n)
	sizes := make([]int64, n)
	modified := make([]float64, n)
	accessed := make([]float64, n)
	for i, v := range g.Vertices {
		names[i] = v.Name
		parents[i] = v.Parent
		sizes[i] = v.Size
		modified[i] = v.LastModified
		accessed[i] = v.LastAccessed
	}

	columns := []struct {
		key   string
		value any
	}{
		{KeyVerticesName, names},
		{KeyVerticesParent, parents},
		{KeyVerticesSize, sizes},
		{KeyVerticesLastModified, modified},
		{KeyVerticesLastAccessed, accessed},
		{KeyEdges, g.EdgeSet()},
	}

	docs := make(map[string][]byte, len(columns))
	for _, col := range columns {
		data, err := sonic.Marshal(col.value)
		if err != nil {
			return fmt.Errorf("failed to marshal %s: %w", col.key, err)
		}
		docs[col.key] = data
	}

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, col := range columns {
			r.write(ctx, pipe, r.key(col.key), docs[col.key])
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save graph documents: %w", err)
	}

	logger.Debug().Int("vertices", n).Int("edges", len(g.Edges)).Str("mode", r.mode).Msg("Graph saved to redis")
	return nil
}

func (r *RedisStore) write(ctx context.Context, pipe redis.Pipeliner, key string, doc []byte) {
	if r.mode == ModeJSON {
		pipe.JSONSet(ctx, key, "$", doc)
		return
	}
	pipe.Set(ctx, key, doc, 0)
}

func (r *RedisStore) read(ctx context.Context, key string) ([]byte, error) {
	var (
		data string
		err  error
	)
	if r.mode == ModeJSON {
		data, err = r.client.JSONGet(ctx, key).Result()
	} else {
		data, err = r.client.Get(ctx, key).Result()
	}
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", errMissingDocument, key)
		}
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	if data == "" {
		return nil, fmt.Errorf("%w: %s", errMissingDocument, key)
	}
	return []byte(data), nil
}

// readColumn decodes one attribute array and checks it covers n vertices
func readColumn[T any](ctx context.Context, r *RedisStore, name string, n int) ([]T, error) {
	data, err := r.read(ctx, r.key(name))
	if err != nil {
		if errors.Is(err, errMissingDocument) {
			return nil, fmt.Errorf("%w: %w", core.ErrCorruptSnapshot, err)
		}
		return nil, err
	}
	var out []T
	if err := sonic.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal %s: %w", core.ErrCorruptSnapshot, name, err)
	}
	if len(out) != n {
		return nil, fmt.Errorf("%w: %s has %d entries, want %d", core.ErrCorruptSnapshot, name, len(out), n)
	}
	return out, nil
}

// Load reads the edge list first, which fixes the vertex count, then
// attaches the five attribute arrays by vertex id.
func (r *RedisStore) Load(ctx context.Context) (*core.Graph, error) {
	data, err := r.read(ctx, r.key(KeyEdges))
	if err != nil {
		if errors.Is(err, errMissingDocument) {
			return nil, core.ErrNoSnapshot
		}
		return nil, err
	}

	var edges []core.Edge
	if err := sonic.Unmarshal(data, &edges); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal edges: %w", core.ErrCorruptSnapshot, err)
	}

	n := len(edges) + 1
	names, err := readColumn[string](ctx, r, KeyVerticesName, n)
	if err != nil {
		return nil, err
	}
	parents, err := readColumn[string](ctx, r, KeyVerticesParent, n)
	if err != nil {
		return nil, err
	}
	sizes, err := readColumn[int64](ctx, r, KeyVerticesSize, n)
	if err != nil {
		return nil, err
	}
	modified, err := readColumn[float64](ctx, r, KeyVerticesLastModified, n)
	if err != nil {
		return nil, err
	}
	accessed, err := readColumn[float64](ctx, r, KeyVerticesLastAccessed, n)
	if err != nil {
		return nil, err
	}

	g := core.NewGraph(n)
	g.Edges = append(g.Edges, edges...)
	for i := 0; i < n; i++ {
		g.Vertices = append(g.Vertices, core.Vertex{
			ID:           i,
			Name:         names[i],
			Parent:       parents[i],
			Size:         sizes[i],
			LastModified: modified[i],
			LastAccessed: accessed[i],
		})
	}

	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrCorruptSnapshot, err)
	}
	return g, nil
}

// Exists checks for the edge-list document
func (r *RedisStore) Exists(ctx context.Context) (bool, error) {
	count, err := r.client.Exists(ctx, r.key(KeyEdges)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check graph existence: %w", err)
	}
	return count > 0, nil
}

// Reset flushes the whole current database, not only the graph keys
func (r *RedisStore) Reset(ctx context.Context) error {
	if err := r.client.FlushDB(ctx).Err(); err != nil {
		return fmt.Errorf("failed to flush redis: %w", err)
	}
	logger.Debug().Msg("Redis database flushed")
	return nil
}

// Ping tests Redis connection
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (r *RedisStore) Close() error {
	return r.client.Close()
}
