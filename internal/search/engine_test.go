package search

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"fsgraph/internal/core"
	"fsgraph/internal/storage"
	"fsgraph/pkg"
	"fsgraph/src/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reportGraph() *core.Graph {
	return &core.Graph{
		Vertices: []core.Vertex{
			{ID: 0, Name: "/a", Size: 4096, LastModified: 10, LastAccessed: 20},
			{ID: 1, Name: "/a/b", Parent: "/a", Size: 4096, LastModified: 11, LastAccessed: 21},
			{ID: 2, Name: "/a/b/report.py", Parent: "/a/b", Size: 42, LastModified: 12, LastAccessed: 22},
		},
		Edges: []core.Edge{{Child: 1, Parent: 0}, {Child: 2, Parent: 1}},
	}
}

func newEngine(t *testing.T) *Engine {
	t.Helper()
	ctx := context.Background()
	store, err := storage.NewSQLiteStore(ctx, model.SQLiteConfig{
		Path:         filepath.Join(t.TempDir(), "search.db"),
		BusyTimeout:  time.Second,
		MaxOpenConns: 2,
		RegexCache:   8,
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.Save(ctx, reportGraph()))
	return NewEngine(store)
}

func TestStorePattern_Substring(t *testing.T) {
	engine := newEngine(t)

	results, err := engine.StorePattern(context.Background(), "report")
	require.NoError(t, err)
	assert.Equal(t, []pkg.SearchResult{{
		Name:         "/a/b/report.py",
		Size:         42,
		Parent:       "/a/b",
		LastAccessed: 22,
		LastModified: 12,
	}}, results)

	results, err = engine.StorePattern(context.Background(), "/a/b")
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestStorePattern_NoMatchIsEmpty(t *testing.T) {
	results, err := newEngine(t).StorePattern(context.Background(), "nothing-here")
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestStorePattern_Error(t *testing.T) {
	_, err := newEngine(t).StorePattern(context.Background(), "(")
	assert.Error(t, err)

	boom := errors.New("boom")
	_, err = NewEngine(failingSearcher{err: boom}).StorePattern(context.Background(), "x")
	assert.ErrorIs(t, err, boom)
}

func TestInMemoryExact(t *testing.T) {
	engine := newEngine(t)
	g := reportGraph()

	assert.Empty(t, engine.InMemoryExact(g, "report"))
	assert.NotNil(t, engine.InMemoryExact(g, "report"))

	results := engine.InMemoryExact(g, "/a/b/report.py", "/a", "missing")
	require.Len(t, results, 2)
	assert.Equal(t, "/a", results[0].Name)
	assert.Equal(t, "/a/b/report.py", results[1].Name)
	assert.Equal(t, 22.0, results[1].LastAccessed)
	assert.Equal(t, 12.0, results[1].LastModified)
}

// The two strategies answer the same key differently.
func TestStrategiesDiverge(t *testing.T) {
	engine := newEngine(t)

	pattern, err := engine.StorePattern(context.Background(), "report")
	require.NoError(t, err)
	exact := engine.InMemoryExact(reportGraph(), "report")

	assert.Len(t, pattern, 1)
	assert.Empty(t, exact)
}

func TestToResults(t *testing.T) {
	assert.NotNil(t, ToResults(nil))
	assert.Len(t, ToResults(reportGraph().Vertices), 3)
}

type failingSearcher struct{ err error }

func (f failingSearcher) SearchName(context.Context, string) ([]core.Vertex, error) {
	return nil, f.err
}
