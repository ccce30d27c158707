package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"fsgraph/internal/core"
	"fsgraph/internal/server"
	"fsgraph/src/logger"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the graph and search endpoints over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rt, err := openRuntime(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()

		gin.SetMode(rt.config.Server.Mode)
		srv := &http.Server{
			Addr:    rt.config.Server.Addr,
			Handler: server.NewRouter(server.NewHandlers(rt.deps, rt.engine)),
		}

		errCh := make(chan error, 1)
		go func() {
			logger.Info().Str("address", srv.Addr).Msg("Starting fsgraph server")
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server failed: %w", err)
			}
			return nil
		case <-ctx.Done():
		}

		logger.Info().Msg("Shutting down fsgraph server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Wipe both stores, rebuild the graph from disk and print its edges",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rt, err := openRuntime(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()

		if err := core.ResetStores(ctx, rt.deps); err != nil {
			return err
		}
		processor, err := core.NewGraphProcessor(ctx, core.SourceCache, rt.deps)
		if err != nil {
			return err
		}
		return printEdges(processor)
	},
}

var fetchSource string

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Print the edge list from a store, building it first if the store is empty",
	RunE: func(cmd *cobra.Command, args []string) error {
		source, err := core.ParseSource(fetchSource)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		rt, err := openRuntime(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()

		processor, err := core.NewGraphProcessor(ctx, source, rt.deps)
		if err != nil {
			return err
		}
		logger.Info().Str("transition", string(processor.Transition())).Msg("Graph fetched")
		return printEdges(processor)
	},
}

var searchStrategy string

var searchCmd = &cobra.Command{
	Use:   "search KEY...",
	Short: "Search vertex names by store pattern or exact in-memory match",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rt, err := openRuntime(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()

		var results any
		switch searchStrategy {
		case "relational", "sqlite":
			if len(args) != 1 {
				return fmt.Errorf("relational search takes exactly one key")
			}
			if _, err := core.NewGraphProcessor(ctx, core.SourceRelational, rt.deps); err != nil {
				return err
			}
			results, err = rt.engine.StorePattern(ctx, args[0])
			if err != nil {
				return err
			}
		case "inmemory", "igraph":
			processor, err := core.NewGraphProcessor(ctx, core.SourceCache, rt.deps)
			if err != nil {
				return err
			}
			results = rt.engine.InMemoryExact(processor.Graph(), args...)
		default:
			return fmt.Errorf("unknown search strategy %q", searchStrategy)
		}

		data, err := sonic.Marshal(results)
		if err != nil {
			return fmt.Errorf("failed to encode results: %w", err)
		}
		fmt.Fprintln(os.Stdout, string(data))
		return nil
	},
}

func init() {
	fetchCmd.Flags().StringVarP(&fetchSource, "source", "s", string(core.SourceCache), "store to read: relational or cache")
	searchCmd.Flags().StringVar(&searchStrategy, "strategy", "relational", "relational (substring pattern) or inmemory (exact name)")
}

func printEdges(processor *core.GraphProcessor) error {
	data, err := processor.EdgeList()
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, string(data))
	return nil
}
