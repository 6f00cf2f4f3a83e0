package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MikeSquared-Agency/curator/internal/api"
	"github.com/MikeSquared-Agency/curator/internal/config"
	"github.com/MikeSquared-Agency/curator/internal/embed"
	"github.com/MikeSquared-Agency/curator/internal/hermes"
	"github.com/MikeSquared-Agency/curator/internal/pipeline"
	"github.com/MikeSquared-Agency/curator/internal/processor"
	"github.com/MikeSquared-Agency/curator/internal/store"
)

const usage = `usage: curator <command> [flags]

commands:
  serve   run the NATS worker and HTTP API (default)
  run     curate a local export directory for one user
  load    store a local export directory as documents for one user
`

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	setupLogging(cfg.LogLevel)

	cmd, args := "serve", []string(nil)
	if len(os.Args) > 1 {
		cmd, args = os.Args[1], os.Args[2:]
	}

	switch cmd {
	case "serve":
		err = serve(cfg)
	case "run":
		err = runLocal(cfg, args)
	case "load":
		err = loadLocal(cfg, args)
	case "help", "--help", "-h":
		fmt.Fprint(os.Stdout, usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n%s", cmd, usage)
		os.Exit(2)
	}
	if err != nil {
		slog.Error("curator failed", "command", cmd, "error", err)
		os.Exit(1)
	}
}

func serve(cfg config.Config) error {
	slog.Info("curator starting", "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if err := store.Migrate(cfg.DatabaseURL); err != nil {
		return err
	}
	db, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()
	slog.Info("database connected")

	embedder, closeEmbedder, err := buildEmbedder(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeEmbedder()

	// NATS/Hermes
	hermesClient, err := hermes.NewClient(cfg.NatsURL, cfg.NatsToken, slog.Default())
	if err != nil {
		return fmt.Errorf("connect NATS: %w", err)
	}
	defer hermesClient.Close()
	slog.Info("NATS connected", "url", cfg.NatsURL)

	pipe := pipeline.New(db, db, embedder, slog.Default())
	proc := processor.New(pipe, hermesClient, cfg.PipelineOptions(), slog.Default()).WithBaseContext(ctx)

	if err := hermesClient.Subscribe(hermes.SubjectImportRequested, hermes.WorkerQueue, proc.HandleImportRequested); err != nil {
		return fmt.Errorf("subscribe to import requests: %w", err)
	}

	// HTTP API
	srv := api.NewServer(cfg.Port, cfg.APIToken, proc, db, slog.Default())
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	slog.Info("curator ready", "port", cfg.Port, "embed_provider", cfg.EmbedProvider)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("HTTP shutdown incomplete", "error", err)
	}
	slog.Info("curator stopped")
	return nil
}

// buildEmbedder returns the configured embedder, wrapped in the Redis cache
// when REDIS_ADDR is set and reachable.
func buildEmbedder(ctx context.Context, cfg config.Config) (embed.Embedder, func(), error) {
	ec := cfg.EmbedConfig()
	inner, err := embed.New(ec)
	if err != nil {
		return nil, nil, fmt.Errorf("build embedder: %w", err)
	}
	if cfg.RedisAddr == "" {
		return inner, func() {}, nil
	}

	rdb, err := embed.DialRedis(ctx, cfg.RedisAddr)
	if err != nil {
		slog.Warn("redis unavailable, embedding without cache", "addr", cfg.RedisAddr, "error", err)
		return inner, func() {}, nil
	}
	namespace := fmt.Sprintf("%s:%s:%d", ec.Provider, ec.Model, inner.Dimensions())
	slog.Info("embedding cache enabled", "addr", cfg.RedisAddr, "namespace", namespace)
	return embed.NewCache(inner, rdb, namespace, 30*24*time.Hour, slog.Default()), func() { _ = rdb.Close() }, nil
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
