package processor

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/curator/internal/hermes"
	"github.com/MikeSquared-Agency/curator/internal/pipeline"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeRunner struct {
	mu    sync.Mutex
	calls []pipeline.Options
	err   error
	// honorCancel makes Run return the context error when ctx is done.
	honorCancel bool
	// block, when set, holds Run until closed.
	block   chan struct{}
	started chan struct{}
}

func (f *fakeRunner) Run(ctx context.Context, userID uuid.UUID, opts pipeline.Options) (*pipeline.Report, error) {
	f.mu.Lock()
	f.calls = append(f.calls, opts)
	f.mu.Unlock()
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	if f.honorCancel && ctx.Err() != nil {
		return &pipeline.Report{UserID: userID, Canceled: true}, ctx.Err()
	}
	return &pipeline.Report{UserID: userID, Documents: 2, Created: 7, Intents: map[string]int{"question": 7}}, f.err
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []hermes.ImportCompleted
}

func (r *recordingPublisher) Publish(subject string, data any) error {
	if subject != hermes.SubjectImportCompleted {
		return errors.New("unexpected subject " + subject)
	}
	r.mu.Lock()
	r.events = append(r.events, data.(hermes.ImportCompleted))
	r.mu.Unlock()
	return nil
}

func TestHandleImportRequested_PublishesCompletion(t *testing.T) {
	runner := &fakeRunner{}
	pub := &recordingPublisher{}
	defaults := pipeline.DefaultOptions()
	p := New(runner, pub, defaults, discardLogger())

	user := uuid.New()
	payload, _ := json.Marshal(map[string]any{
		"request_id":    "req-9",
		"user_id":       user.String(),
		"source_filter": "telegram",
		"max_samples":   40,
	})
	p.HandleImportRequested(hermes.SubjectImportRequested, payload)

	if len(runner.calls) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runner.calls))
	}
	opts := runner.calls[0]
	if opts.SourceFilter != "telegram" || opts.MaxSamples != 40 {
		t.Errorf("overrides not applied: %+v", opts)
	}
	if opts.MinQuality != defaults.MinQuality {
		t.Errorf("expected default min quality, got %v", opts.MinQuality)
	}

	if len(pub.events) != 1 {
		t.Fatalf("expected 1 completion event, got %d", len(pub.events))
	}
	done := pub.events[0]
	if done.RequestID != "req-9" || done.UserID != user.String() || done.Created != 7 || done.Error != "" {
		t.Errorf("unexpected completion: %+v", done)
	}
}

func TestHandleImportRequested_ReportsFailure(t *testing.T) {
	runner := &fakeRunner{err: errors.New("load signatures: connection refused")}
	pub := &recordingPublisher{}
	p := New(runner, pub, pipeline.DefaultOptions(), discardLogger())

	p.HandleImportRequested(hermes.SubjectImportRequested, []byte(`{"user_id":"`+uuid.NewString()+`"}`))

	if len(pub.events) != 1 || pub.events[0].Error == "" {
		t.Fatalf("expected a completion carrying the error, got %+v", pub.events)
	}
}

func TestHandleImportRequested_IgnoresBadPayloads(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"malformed json", `{"user_id":`},
		{"invalid user id", `{"user_id":"not-a-uuid"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{}
			pub := &recordingPublisher{}
			New(runner, pub, pipeline.DefaultOptions(), discardLogger()).
				HandleImportRequested(hermes.SubjectImportRequested, []byte(tt.payload))
			if len(runner.calls) != 0 || len(pub.events) != 0 {
				t.Errorf("expected nothing to run, got %d runs and %d events", len(runner.calls), len(pub.events))
			}
		})
	}
}

func TestCurate_OneRunPerUser(t *testing.T) {
	runner := &fakeRunner{block: make(chan struct{}), started: make(chan struct{}, 1)}
	p := New(runner, nil, pipeline.DefaultOptions(), discardLogger())
	user := uuid.New()

	errc := make(chan error, 1)
	go func() {
		_, err := p.Curate(context.Background(), Request{UserID: user})
		errc <- err
	}()
	<-runner.started

	if _, err := p.Curate(context.Background(), Request{UserID: user}); !errors.Is(err, ErrRunInProgress) {
		t.Errorf("expected ErrRunInProgress, got %v", err)
	}

	close(runner.block)
	if err := <-errc; err != nil {
		t.Fatalf("first run: %v", err)
	}

	// The slot is released once the first run returns.
	runner.block = nil
	runner.started = nil
	if _, err := p.Curate(context.Background(), Request{UserID: user}); err != nil {
		t.Errorf("expected a new run to start, got %v", err)
	}
}

func TestHandleImportRequested_UsesBaseContext(t *testing.T) {
	runner := &fakeRunner{honorCancel: true}
	pub := &recordingPublisher{}
	ctx, cancel := context.WithCancel(context.Background())
	p := New(runner, pub, pipeline.DefaultOptions(), discardLogger()).WithBaseContext(ctx)

	// Shutdown cancels the base context; runs started afterwards see it.
	cancel()
	p.HandleImportRequested(hermes.SubjectImportRequested, []byte(`{"user_id":"`+uuid.NewString()+`"}`))

	if len(pub.events) != 1 {
		t.Fatalf("expected 1 completion event, got %d", len(pub.events))
	}
	done := pub.events[0]
	if !done.Canceled || done.Error == "" {
		t.Errorf("expected a canceled completion, got %+v", done)
	}
}
