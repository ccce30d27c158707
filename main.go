package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"fsgraph/internal/config"
	"fsgraph/internal/core"
	"fsgraph/internal/search"
	"fsgraph/internal/storage"
	"fsgraph/src/logger"

	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:           "fsgraph",
	Short:         "Model a directory tree as a graph persisted to SQLite and Redis",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level")

	rootCmd.AddCommand(serveCmd, createCmd, fetchCmd, searchCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// runtime holds everything a command needs, opened once per process
type runtime struct {
	config     *config.Config
	relational *storage.SQLiteStore
	cache      *storage.RedisStore
	deps       core.Dependencies
	engine     *search.Engine
}

func openRuntime(ctx context.Context) (*runtime, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if err := logger.InitLogger(cfg.Log); err != nil {
		return nil, err
	}

	relational, err := storage.NewSQLiteStore(ctx, cfg.SQLite)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite store: %w", err)
	}
	cache, err := storage.NewRedisStore(ctx, cfg.Cache)
	if err != nil {
		relational.Close()
		return nil, fmt.Errorf("failed to open redis store: %w", err)
	}

	logger.Info().
		Str("sqlite", cfg.SQLite.Path).
		Str("cache_mode", cfg.Cache.Mode).
		Str("root", cfg.Walk.Root).
		Msg("Stores connected")

	return &runtime{
		config:     cfg,
		relational: relational,
		cache:      cache,
		deps: core.Dependencies{
			Relational: relational,
			Cache:      cache,
			Root:       cfg.Walk.Root,
		},
		engine: search.NewEngine(relational),
	}, nil
}

func (rt *runtime) Close() {
	if err := rt.cache.Close(); err != nil {
		logger.Warn().Err(err).Msg("Failed to close redis")
	}
	if err := rt.relational.Close(); err != nil {
		logger.Warn().Err(err).Msg("Failed to close sqlite")
	}
}
