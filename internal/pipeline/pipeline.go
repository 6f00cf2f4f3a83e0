// Package pipeline runs one curation pass for a user: parse every document,
// extract and score candidates, select a de-duplicated subset, attach
// negatives and persist the result.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/MikeSquared-Agency/curator/internal/archive"
	"github.com/MikeSquared-Agency/curator/internal/dedup"
	"github.com/MikeSquared-Agency/curator/internal/embed"
	"github.com/MikeSquared-Agency/curator/internal/extract"
	"github.com/MikeSquared-Agency/curator/internal/negative"
	"github.com/MikeSquared-Agency/curator/internal/sample"
	"github.com/MikeSquared-Agency/curator/internal/selector"
)

const (
	DefaultWorkers      = 4
	DefaultEmbedTimeout = 30 * time.Second
	DefaultWriteTimeout = 10 * time.Second
)

// DocumentSource lists a user's uploaded documents.
type DocumentSource interface {
	ListDocuments(ctx context.Context, userID uuid.UUID, sourceFilter string) ([]archive.Document, error)
}

// SampleStore persists training samples.
type SampleStore interface {
	LoadSignatures(ctx context.Context, userID uuid.UUID) (sample.SignatureSet, error)
	WriteSample(ctx context.Context, ts sample.TrainingSample) (bool, error)
}

// Options configures one run.
type Options struct {
	MinQuality   float64          `json:"min_quality"`
	MaxSamples   int              `json:"max_samples,omitempty"`
	Thresholds   dedup.Thresholds `json:"thresholds"`
	SourceFilter string           `json:"source_filter"`
	Workers      int              `json:"-"`
	EmbedTimeout time.Duration    `json:"-"`
	WriteTimeout time.Duration    `json:"-"`
}

// DefaultOptions returns the stock configuration.
func DefaultOptions() Options {
	return Options{
		MinQuality:   extract.DefaultMinQuality,
		Thresholds:   dedup.DefaultThresholds(),
		SourceFilter: "all",
		Workers:      DefaultWorkers,
		EmbedTimeout: DefaultEmbedTimeout,
		WriteTimeout: DefaultWriteTimeout,
	}
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = DefaultWorkers
	}
	if o.EmbedTimeout <= 0 {
		o.EmbedTimeout = DefaultEmbedTimeout
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = DefaultWriteTimeout
	}
	o.Thresholds = o.Thresholds.Clamped()
	return o
}

// Report summarises a run. Created is the number of new samples stored.
type Report struct {
	UserID           uuid.UUID      `json:"user_id"`
	Documents        int            `json:"documents"`
	DocumentsSkipped int            `json:"documents_skipped"`
	Messages         int            `json:"messages"`
	Extract          extract.Stats  `json:"extract"`
	EmbedFailures    int            `json:"embed_failures"`
	Candidates       int            `json:"candidates"`
	Accepted         int            `json:"accepted"`
	RejectedExact    int            `json:"rejected_exact"`
	RejectedLexical  int            `json:"rejected_lexical"`
	RejectedSemantic int            `json:"rejected_semantic"`
	BudgetReached    bool           `json:"budget_reached"`
	Negatives        int            `json:"negatives"`
	Created          int            `json:"created"`
	AlreadyStored    int            `json:"already_stored"`
	WriteFailures    int            `json:"write_failures"`
	Intents          map[string]int `json:"intents"`
	Canceled         bool           `json:"canceled"`
	DurationMS       int64          `json:"duration_ms"`
}

// Pipeline wires the curation stages to their collaborators.
type Pipeline struct {
	docs     DocumentSource
	samples  SampleStore
	embedder embed.Embedder
	registry *archive.Registry
	logger   *slog.Logger
}

func New(docs DocumentSource, samples SampleStore, embedder embed.Embedder, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		docs:     docs,
		samples:  samples,
		embedder: embedder,
		registry: archive.NewRegistry(),
		logger:   logger,
	}
}

// WithRegistry replaces the parser registry.
func (p *Pipeline) WithRegistry(r *archive.Registry) *Pipeline {
	p.registry = r
	return p
}

type docResult struct {
	candidates    []sample.Candidate
	stats         extract.Stats
	messages      int
	skipped       bool
	embedFailures int
}

// Run curates the user's documents. The returned Report is never nil. An
// error is returned only when the run cannot start (documents or signatures
// fail to load) or the context is canceled; per-document and per-row
// failures are counted in the report instead.
func (p *Pipeline) Run(ctx context.Context, userID uuid.UUID, opts Options) (*Report, error) {
	start := time.Now()
	opts = opts.withDefaults()
	report := &Report{UserID: userID, Intents: map[string]int{}}
	defer func() { report.DurationMS = time.Since(start).Milliseconds() }()

	log := p.logger.With("user_id", userID)

	docs, err := p.docs.ListDocuments(ctx, userID, opts.SourceFilter)
	if err != nil {
		return report, fmt.Errorf("list documents: %w", err)
	}
	report.Documents = len(docs)
	if len(docs) == 0 {
		log.Info("no documents to curate", "source_filter", opts.SourceFilter)
		return report, nil
	}

	existing, err := p.samples.LoadSignatures(ctx, userID)
	if err != nil {
		return report, fmt.Errorf("load signatures: %w", err)
	}

	results, err := p.extractAll(ctx, docs, opts)
	if err != nil {
		report.Canceled = true
		return report, fmt.Errorf("extract candidates: %w", err)
	}

	// Merge in document order so Seq, and therefore tie-breaking, only
	// depends on the input order.
	var pool []sample.Candidate
	for _, r := range results {
		report.Messages += r.messages
		report.Extract.Add(r.stats)
		report.EmbedFailures += r.embedFailures
		if r.skipped {
			report.DocumentsSkipped++
		}
		for _, c := range r.candidates {
			c.Seq = len(pool)
			pool = append(pool, c)
		}
	}
	report.Candidates = len(pool)

	sel := selector.Select(pool, existing, nil, selector.Options{
		MaxSamples: opts.MaxSamples,
		Thresholds: opts.Thresholds,
	})
	report.Accepted = len(sel.Accepted)
	report.RejectedExact = sel.RejectedExact
	report.RejectedLexical = sel.RejectedLexical
	report.RejectedSemantic = sel.RejectedSemantic
	report.BudgetReached = sel.BudgetReached
	report.Intents = sel.Ledger.Counts()

	log.Info("selection complete",
		"candidates", report.Candidates,
		"accepted", report.Accepted,
		"rejected_exact", report.RejectedExact,
		"rejected_lexical", report.RejectedLexical,
		"rejected_semantic", report.RejectedSemantic,
		"intent_shares", sel.Ledger.Shares(),
	)

	batch := make([]sample.TrainingSample, 0, len(sel.Accepted))
	for _, c := range sel.Accepted {
		ts := sample.TrainingSample{Candidate: *c, UserID: userID}
		if neg, ok := negative.Synthesize(c.Response, c.StyleTags); ok {
			ts.NegativeResponse = &neg.Text
			ts.NegativeType = &neg.Type
			report.Negatives++
		}
		batch = append(batch, ts)
	}

	w := &Writer{store: p.samples, timeout: opts.WriteTimeout, logger: log}
	ws := w.Write(ctx, batch)
	report.Created = ws.Created
	report.AlreadyStored = ws.AlreadyStored
	report.WriteFailures = ws.Failed
	if ws.Canceled {
		report.Canceled = true
		return report, fmt.Errorf("write samples: %w", ctx.Err())
	}

	log.Info("curation complete",
		"documents", report.Documents,
		"documents_skipped", report.DocumentsSkipped,
		"created", report.Created,
		"write_failures", report.WriteFailures,
	)
	return report, nil
}

// extractAll parses, extracts and embeds documents concurrently. Results are
// indexed by document position.
func (p *Pipeline) extractAll(ctx context.Context, docs []archive.Document, opts Options) ([]docResult, error) {
	results := make([]docResult, len(docs))
	ext := extract.New(opts.MinQuality)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i := range docs {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := p.processDocument(gctx, ext, docs[i], opts)
			results[i] = res
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (p *Pipeline) processDocument(ctx context.Context, ext *extract.Extractor, doc archive.Document, opts Options) (docResult, error) {
	var res docResult
	log := p.logger.With("doc_id", doc.ID)

	msgs, format, err := p.registry.ParseDocument(doc)
	if err != nil {
		log.Warn("skipping unparseable document", "source", doc.Source, "error", err)
		res.skipped = true
		return res, nil
	}
	if format != doc.SourceType {
		log.Debug("document parsed with fallback format", "declared", doc.SourceType, "parsed", format)
	}
	res.messages = len(msgs)

	cands, stats := ext.Extract(doc.ID, msgs, doc.Metadata)
	res.stats = stats

	for _, c := range cands {
		ectx, cancel := context.WithTimeout(ctx, opts.EmbedTimeout)
		vec, err := p.embedder.Embed(ectx, c.Response)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			log.Warn("embedding failed, skipping candidate", "error", err)
			res.embedFailures++
			continue
		}
		c.Embedding = vec
		res.candidates = append(res.candidates, c)
	}
	return res, nil
}
