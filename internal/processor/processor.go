package processor

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/curator/internal/hermes"
	"github.com/MikeSquared-Agency/curator/internal/pipeline"
)

// ErrRunInProgress is returned when a user already has a curation run in flight.
var ErrRunInProgress = errors.New("curation already running for user")

// Runner executes one curation pass.
type Runner interface {
	Run(ctx context.Context, userID uuid.UUID, opts pipeline.Options) (*pipeline.Report, error)
}

// Publisher sends an event on a subject.
type Publisher interface {
	Publish(subject string, data any) error
}

// Request overrides the default options for one run.
type Request struct {
	UserID       uuid.UUID
	SourceFilter string
	MaxSamples   *int
	MinQuality   *float64
}

// Processor serialises curation runs per user and reports their outcome.
type Processor struct {
	runner   Runner
	pub      Publisher
	defaults pipeline.Options
	logger   *slog.Logger
	base     context.Context

	mu      sync.Mutex
	running map[uuid.UUID]bool
}

// New returns a processor. pub may be nil, in which case completions are
// only logged.
func New(runner Runner, pub Publisher, defaults pipeline.Options, logger *slog.Logger) *Processor {
	return &Processor{
		runner:   runner,
		pub:      pub,
		defaults: defaults,
		logger:   logger,
		base:     context.Background(),
		running:  make(map[uuid.UUID]bool),
	}
}

// WithBaseContext sets the context event-driven runs derive from. Canceling
// it cancels runs started by HandleImportRequested.
func (p *Processor) WithBaseContext(ctx context.Context) *Processor {
	p.base = ctx
	return p
}

// Curate runs the pipeline for req.UserID with req's overrides applied.
func (p *Processor) Curate(ctx context.Context, req Request) (*pipeline.Report, error) {
	if !p.acquire(req.UserID) {
		return nil, ErrRunInProgress
	}
	defer p.release(req.UserID)

	opts := p.options(req)
	p.logger.Info("curation started",
		"user_id", req.UserID,
		"source_filter", opts.SourceFilter,
		"max_samples", opts.MaxSamples,
	)
	return p.runner.Run(ctx, req.UserID, opts)
}

func (p *Processor) options(req Request) pipeline.Options {
	opts := p.defaults
	if req.SourceFilter != "" {
		opts.SourceFilter = req.SourceFilter
	}
	if req.MaxSamples != nil {
		opts.MaxSamples = *req.MaxSamples
	}
	if req.MinQuality != nil {
		opts.MinQuality = *req.MinQuality
	}
	return opts
}

func (p *Processor) acquire(userID uuid.UUID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running[userID] {
		return false
	}
	p.running[userID] = true
	return true
}

func (p *Processor) release(userID uuid.UUID) {
	p.mu.Lock()
	delete(p.running, userID)
	p.mu.Unlock()
}

// HandleImportRequested is the NATS handler for curator.import.requested.
func (p *Processor) HandleImportRequested(subject string, data []byte) {
	ctx := p.base

	var evt hermes.ImportRequested
	if err := json.Unmarshal(data, &evt); err != nil {
		p.logger.Error("failed to parse import event", "error", err)
		return
	}

	userID, err := uuid.Parse(evt.UserID)
	if err != nil {
		p.logger.Error("invalid user id", "user_id", evt.UserID, "error", err)
		return
	}

	report, err := p.Curate(ctx, Request{
		UserID:       userID,
		SourceFilter: evt.SourceFilter,
		MaxSamples:   evt.MaxSamples,
		MinQuality:   evt.MinQuality,
	})
	if errors.Is(err, ErrRunInProgress) {
		p.logger.Warn("dropping import request, run in progress", "user_id", userID, "request_id", evt.RequestID)
		return
	}

	done := completion(evt.RequestID, userID, report, err)
	if err != nil {
		p.logger.Error("curation failed", "user_id", userID, "request_id", evt.RequestID, "error", err)
	} else {
		p.logger.Info("curation finished",
			"user_id", userID,
			"request_id", evt.RequestID,
			"created", done.Created,
			"duration_ms", done.DurationMS,
		)
	}

	if p.pub == nil {
		return
	}
	if err := p.pub.Publish(hermes.SubjectImportCompleted, done); err != nil {
		p.logger.Error("failed to publish completion", "user_id", userID, "subject", hermes.SubjectImportCompleted, "error", err)
	}
}

func completion(requestID string, userID uuid.UUID, r *pipeline.Report, err error) hermes.ImportCompleted {
	done := hermes.ImportCompleted{RequestID: requestID, UserID: userID.String()}
	if r != nil {
		done.Created = r.Created
		done.Documents = r.Documents
		done.DocumentsSkipped = r.DocumentsSkipped
		done.Candidates = r.Candidates
		done.Accepted = r.Accepted
		done.WriteFailures = r.WriteFailures
		done.Intents = r.Intents
		done.Canceled = r.Canceled
		done.DurationMS = r.DurationMS
	}
	if err != nil {
		done.Error = err.Error()
	}
	return done
}
