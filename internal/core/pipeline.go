package core

import (
	"context"
	"fmt"
	"time"

	"fsgraph/src/logger"

	"github.com/cloudwego/eino/compose"
)

// newBuildChain wires walk, build and persist into one eino chain:
// root path in, persisted graph out.
func newBuildChain(ctx context.Context, walker *Walker, stores ...GraphStore) (compose.Runnable[string, *Graph], error) {
	walk := compose.InvokableLambda(func(ctx context.Context, root string) (*Snapshot, error) {
		start := time.Now()
		snapshot, err := walker.Walk(ctx, root)
		if err != nil {
			return nil, err
		}
		logger.Debug().
			Str("root", root).
			Int("entries", len(snapshot.Entries)).
			Dur("elapsed", time.Since(start)).
			Msg("Walk completed")
		return snapshot, nil
	})

	build := compose.InvokableLambda(func(ctx context.Context, snapshot *Snapshot) (*Graph, error) {
		return Build(snapshot)
	})

	persist := compose.InvokableLambda(func(ctx context.Context, g *Graph) (*Graph, error) {
		// Stores are written one after another with no cross-store
		// transaction; a failure leaves earlier stores updated.
		for _, store := range stores {
			if err := store.Save(ctx, g); err != nil {
				return nil, fmt.Errorf("failed to persist graph to %T: %w", store, err)
			}
		}
		return g, nil
	})

	chain, err := compose.NewChain[string, *Graph]().
		AppendLambda(walk).
		AppendLambda(build).
		AppendLambda(persist).
		Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("error creating build chain: %w", err)
	}
	return chain, nil
}
