package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/curator/internal/config"
	"github.com/MikeSquared-Agency/curator/internal/docsource"
	"github.com/MikeSquared-Agency/curator/internal/pipeline"
	"github.com/MikeSquared-Agency/curator/internal/store"
)

// localFlags are shared by the run and load commands.
type localFlags struct {
	UserID     uuid.UUID
	Dir        string
	Source     string
	Account    string
	Filter     string
	MaxSamples int
	MinQuality float64
	DryRun     bool
}

func parseLocalFlags(name string, args []string, cfg config.Config, stderr io.Writer) (localFlags, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)

	var user string
	lf := localFlags{
		Filter:     cfg.Pipeline.SourceFilter,
		MaxSamples: cfg.Pipeline.MaxSamples,
		MinQuality: cfg.Pipeline.MinQuality,
	}
	fs.StringVar(&user, "user", "", "user id (uuid)")
	fs.StringVar(&lf.Dir, "dir", "", "export directory")
	fs.StringVar(&lf.Source, "source", "", "declared source for every file (e.g. whatsapp); default per sidecar or extension")
	fs.StringVar(&lf.Account, "account", "", "owner account name when a sidecar gives none")
	if name == "run" {
		fs.StringVar(&lf.Filter, "filter", lf.Filter, "source filter: all, a format, or a source name")
		fs.IntVar(&lf.MaxSamples, "max", lf.MaxSamples, "sample budget (0 = unlimited)")
		fs.Float64Var(&lf.MinQuality, "min-quality", lf.MinQuality, "minimum candidate quality")
		fs.BoolVar(&lf.DryRun, "dry-run", false, "curate into memory and print the report without writing")
	}
	if err := fs.Parse(args); err != nil {
		return lf, err
	}

	if user == "" {
		return lf, errors.New("missing -user")
	}
	id, err := uuid.Parse(user)
	if err != nil {
		return lf, fmt.Errorf("invalid -user: %w", err)
	}
	lf.UserID = id
	if lf.Dir == "" {
		return lf, errors.New("missing -dir")
	}
	if lf.MaxSamples < 0 {
		return lf, errors.New("max must be >= 0")
	}
	if lf.MinQuality < 0 || lf.MinQuality > 1 {
		return lf, errors.New("min-quality must be within [0,1]")
	}
	return lf, nil
}

func (lf localFlags) source() *docsource.Dir {
	return &docsource.Dir{
		Root:        lf.Dir,
		Source:      lf.Source,
		AccountName: lf.Account,
		Logger:      slog.Default(),
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// runLocal curates a directory for one user. Samples go to Postgres unless
// -dry-run is set.
func runLocal(cfg config.Config, args []string) error {
	lf, err := parseLocalFlags("run", args, cfg, os.Stderr)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	embedder, closeEmbedder, err := buildEmbedder(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeEmbedder()

	var samples pipeline.SampleStore
	if lf.DryRun {
		samples = store.NewMemory()
	} else {
		if cfg.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required unless -dry-run is set")
		}
		if err := store.Migrate(cfg.DatabaseURL); err != nil {
			return err
		}
		db, err := store.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer db.Close()
		samples = db
	}

	opts := cfg.PipelineOptions()
	opts.SourceFilter = lf.Filter
	opts.MaxSamples = lf.MaxSamples
	opts.MinQuality = lf.MinQuality

	report, runErr := pipeline.New(lf.source(), samples, embedder, slog.Default()).Run(ctx, lf.UserID, opts)
	if err := printJSON(os.Stdout, report); err != nil {
		return err
	}
	return runErr
}

// loadLocal stores a directory's exports as documents for one user.
func loadLocal(cfg config.Config, args []string) error {
	lf, err := parseLocalFlags("load", args, cfg, os.Stderr)
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}

	ctx, cancel := signalContext()
	defer cancel()

	if err := store.Migrate(cfg.DatabaseURL); err != nil {
		return err
	}
	db, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	docs, err := lf.source().ListDocuments(ctx, lf.UserID, "all")
	if err != nil {
		return err
	}
	for _, doc := range docs {
		if err := db.InsertDocument(ctx, doc); err != nil {
			return fmt.Errorf("insert document %s: %w", doc.ID, err)
		}
	}
	slog.Info("documents loaded", "user_id", lf.UserID, "count", len(docs), "dir", lf.Dir)
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
