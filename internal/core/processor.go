package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fsgraph/src/logger"

	"github.com/bytedance/sonic"
)

// Source selects which store a processor rehydrates from
type Source string

const (
	SourceRelational Source = "relational"
	SourceCache      Source = "cache"
)

// ParseSource accepts the canonical names plus the store names "sqlite" and
// "redis".
func ParseSource(s string) (Source, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "relational", "sqlite":
		return SourceRelational, nil
	case "cache", "redis":
		return SourceCache, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSource, s)
	}
}

// Transition records which of the three construction paths a processor took
type Transition string

const (
	TransitionBuild               Transition = "build"
	TransitionRehydrateRelational Transition = "rehydrate_relational"
	TransitionRehydrateCache      Transition = "rehydrate_cache"
)

// Dependencies are the store handles and walk root shared by every processor
type Dependencies struct {
	Relational GraphStore
	Cache      GraphStore
	Root       string
}

// GraphProcessor holds the one graph produced for a single request
type GraphProcessor struct {
	graph      *Graph
	transition Transition
}

// NewGraphProcessor decides once between rehydrating from the requested
// store and building fresh from disk. A store without a snapshot is not an
// error; it falls through to a build that writes both stores.
func NewGraphProcessor(ctx context.Context, source Source, deps Dependencies) (*GraphProcessor, error) {
	var (
		store      GraphStore
		rehydrated Transition
	)
	switch source {
	case SourceRelational:
		store, rehydrated = deps.Relational, TransitionRehydrateRelational
	case SourceCache:
		store, rehydrated = deps.Cache, TransitionRehydrateCache
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, source)
	}
	if store == nil {
		return nil, fmt.Errorf("no store configured for source %q", source)
	}

	exists, err := store.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check %s snapshot: %w", source, err)
	}

	if exists {
		g, err := store.Load(ctx)
		switch {
		case err == nil:
			return newProcessor(g, rehydrated), nil
		case errors.Is(err, ErrNoSnapshot):
			// Wiped between the existence check and the read.
			logger.Warn().Str("source", string(source)).Msg("Snapshot vanished before load, rebuilding")
		default:
			return nil, fmt.Errorf("failed to rehydrate from %s: %w", source, err)
		}
	}

	g, err := BuildAndPersist(ctx, deps)
	if err != nil {
		return nil, err
	}
	return newProcessor(g, TransitionBuild), nil
}

// BuildAndPersist walks deps.Root, builds a fresh graph and replaces the
// snapshot in the relational store and then the cache.
func BuildAndPersist(ctx context.Context, deps Dependencies) (*Graph, error) {
	root := deps.Root
	if root == "" {
		root = "."
	}

	var stores []GraphStore
	for _, s := range []GraphStore{deps.Relational, deps.Cache} {
		if s != nil {
			stores = append(stores, s)
		}
	}

	start := time.Now()
	chain, err := newBuildChain(ctx, NewWalker(), stores...)
	if err != nil {
		return nil, err
	}
	g, err := chain.Invoke(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("failed to build graph from %q: %w", root, err)
	}
	buildDuration.Observe(time.Since(start).Seconds())

	logger.Info().
		Str("root", root).
		Int("vertices", g.Len()).
		Int("edges", len(g.Edges)).
		Dur("elapsed", time.Since(start)).
		Msg("Graph built")

	return g, nil
}

// ResetStores wipes both stores completely
func ResetStores(ctx context.Context, deps Dependencies) error {
	for _, s := range []GraphStore{deps.Relational, deps.Cache} {
		if s == nil {
			continue
		}
		if err := s.Reset(ctx); err != nil {
			return fmt.Errorf("failed to reset %T: %w", s, err)
		}
	}
	logger.Info().Msg("Stores reset")
	return nil
}

func newProcessor(g *Graph, t Transition) *GraphProcessor {
	transitionsTotal.WithLabelValues(string(t)).Inc()
	graphVertices.Set(float64(g.Len()))
	logger.Debug().Str("transition", string(t)).Int("vertices", g.Len()).Msg("Graph ready")
	return &GraphProcessor{graph: g, transition: t}
}

// Graph returns the processor's graph
func (p *GraphProcessor) Graph() *Graph {
	return p.graph
}

// Transition returns the construction path that produced the graph
func (p *GraphProcessor) Transition() Transition {
	return p.transition
}

// EdgeList encodes the edges as a compact JSON array of [child, parent] pairs
func (p *GraphProcessor) EdgeList() ([]byte, error) {
	data, err := sonic.Marshal(p.graph.EdgeSet())
	if err != nil {
		return nil, fmt.Errorf("failed to encode edge list: %w", err)
	}
	return data, nil
}
