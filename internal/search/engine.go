package search

import (
	"context"
	"fmt"

	"fsgraph/internal/core"
	"fsgraph/pkg"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Strategy names, also used as metric labels
const (
	StrategyStorePattern  = "store_pattern"
	StrategyInMemoryExact = "inmemory_exact"
)

var searchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "fsgraph_search_total",
	Help: "Name searches by strategy and outcome",
}, []string{"strategy", "result"})

// PatternSearcher matches vertex names in a store by regular expression
type PatternSearcher interface {
	SearchName(ctx context.Context, key string) ([]core.Vertex, error)
}

// Engine answers name queries two ways. StorePattern is a substring (regex)
// match in the relational store; InMemoryExact is exact name membership in a
// loaded graph. They disagree on purpose: "report" finds "/a/b/report.py"
// through StorePattern and nothing through InMemoryExact.
type Engine struct {
	store PatternSearcher
}

// NewEngine creates an engine backed by store
func NewEngine(store PatternSearcher) *Engine {
	return &Engine{store: store}
}

// StorePattern returns every stored vertex whose name matches ".*key.*"
func (e *Engine) StorePattern(ctx context.Context, key string) ([]pkg.SearchResult, error) {
	vertices, err := e.store.SearchName(ctx, key)
	if err != nil {
		searchTotal.WithLabelValues(StrategyStorePattern, "error").Inc()
		return nil, fmt.Errorf("store pattern search for %q: %w", key, err)
	}
	searchTotal.WithLabelValues(StrategyStorePattern, "ok").Inc()
	return ToResults(vertices), nil
}

// InMemoryExact returns the vertices of g named exactly one of keys
func (e *Engine) InMemoryExact(g *core.Graph, keys ...string) []pkg.SearchResult {
	searchTotal.WithLabelValues(StrategyInMemoryExact, "ok").Inc()
	return ToResults(g.SelectByName(keys...))
}

// ToResults converts vertices to the wire record. Never returns nil.
func ToResults(vertices []core.Vertex) []pkg.SearchResult {
	out := make([]pkg.SearchResult, 0, len(vertices))
	for _, v := range vertices {
		out = append(out, pkg.SearchResult{
			Name:         v.Name,
			Size:         v.Size,
			Parent:       v.Parent,
			LastAccessed: v.LastAccessed,
			LastModified: v.LastModified,
		})
	}
	return out
}
