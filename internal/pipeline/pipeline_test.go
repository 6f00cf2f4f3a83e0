package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/curator/internal/archive"
	"github.com/MikeSquared-Agency/curator/internal/embed"
	"github.com/MikeSquared-Agency/curator/internal/sample"
	"github.com/MikeSquared-Agency/curator/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const tripChat = `Jo: how was the trip?
Me: The trip was great, we hiked every single day.
Jo: nice, where did you stay?
Me: A tiny cabin by the lake, no wifi at all!
Jo: sounds perfect
Me: Honestly the best week of the whole year.`

func addDoc(t *testing.T, m *store.Memory, user uuid.UUID, source, body string) archive.Document {
	t.Helper()
	doc := archive.Document{
		ID:       uuid.New(),
		UserID:   user,
		Source:   source,
		RawBody:  []byte(body),
		Metadata: archive.DocumentMetadata{AccountName: "Me"},
	}
	if err := m.InsertDocument(context.Background(), doc); err != nil {
		t.Fatalf("insert document: %v", err)
	}
	return doc
}

func newPipeline(m *store.Memory) *Pipeline {
	return New(m, m, embed.NewHasher(embed.DefaultDimensions), discardLogger())
}

func listSamples(t *testing.T, m *store.Memory, user uuid.UUID) []sample.TrainingSample {
	t.Helper()
	out, err := m.ListSamples(context.Background(), user, "", 0)
	if err != nil {
		t.Fatalf("list samples: %v", err)
	}
	return out
}

func TestRun_RepeatedPhraseKeepsBest(t *testing.T) {
	m := store.NewMemory()
	user := uuid.New()
	addDoc(t, m, user, "whatsapp", "Me: I love you\nMe: I love you!\nMe: I LOVE YOU\n")

	report, err := newPipeline(m).Run(context.Background(), user, DefaultOptions())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Candidates != 3 {
		t.Fatalf("expected 3 candidates, got %d", report.Candidates)
	}
	if report.Created != 1 || report.RejectedLexical != 2 {
		t.Fatalf("expected 1 created and 2 lexical rejections, got %+v", report)
	}

	samples := listSamples(t, m, user)
	if len(samples) != 1 {
		t.Fatalf("expected 1 stored sample, got %d", len(samples))
	}
	got := samples[0]
	// Third message has two context messages and scores highest.
	if got.Response != "I LOVE YOU" {
		t.Errorf("expected the highest quality variant, got %q", got.Response)
	}
	if got.NegativeResponse == nil || *got.NegativeResponse != "I HATE YOU" {
		t.Errorf("unexpected negative: %v", got.NegativeResponse)
	}
	if got.NegativeType == nil || *got.NegativeType != sample.NegativePolarityFlip {
		t.Errorf("unexpected negative type: %v", got.NegativeType)
	}
	if got.UserID != user {
		t.Errorf("sample attributed to %s, want %s", got.UserID, user)
	}
}

func TestRun_SecondRunAddsNothing(t *testing.T) {
	m := store.NewMemory()
	user := uuid.New()
	addDoc(t, m, user, "whatsapp", tripChat)
	p := newPipeline(m)

	first, err := p.Run(context.Background(), user, DefaultOptions())
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first.Created != 3 {
		t.Fatalf("expected 3 samples on first run, got %+v", first)
	}

	second, err := p.Run(context.Background(), user, DefaultOptions())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.Created != 0 {
		t.Errorf("expected no new samples, got %d", second.Created)
	}
	if second.RejectedExact != 3 {
		t.Errorf("expected 3 exact rejections, got %d", second.RejectedExact)
	}

	seen := map[string]bool{}
	for _, s := range listSamples(t, m, user) {
		if seen[s.DedupSignature] {
			t.Fatalf("duplicate signature stored: %s", s.DedupSignature)
		}
		seen[s.DedupSignature] = true
	}
	if len(seen) != 3 {
		t.Errorf("expected 3 stored samples, got %d", len(seen))
	}
}

func TestRun_Budget(t *testing.T) {
	m := store.NewMemory()
	user := uuid.New()
	addDoc(t, m, user, "whatsapp", tripChat)

	opts := DefaultOptions()
	opts.MaxSamples = 2
	report, err := newPipeline(m).Run(context.Background(), user, opts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Created != 2 || !report.BudgetReached {
		t.Fatalf("expected budget of 2 to be reached, got %+v", report)
	}
	if n := len(listSamples(t, m, user)); n != 2 {
		t.Errorf("expected 2 stored samples, got %d", n)
	}
}

func TestRun_NoDocuments(t *testing.T) {
	m := store.NewMemory()
	report, err := newPipeline(m).Run(context.Background(), uuid.New(), DefaultOptions())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if report == nil || report.Documents != 0 || report.Created != 0 {
		t.Fatalf("expected empty report, got %+v", report)
	}
}

func TestRun_SkipsUnparseableDocument(t *testing.T) {
	m := store.NewMemory()
	user := uuid.New()
	addDoc(t, m, user, "telegram", "   \n\n  ")
	addDoc(t, m, user, "whatsapp", tripChat)

	report, err := newPipeline(m).Run(context.Background(), user, DefaultOptions())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Documents != 2 || report.DocumentsSkipped != 1 {
		t.Errorf("expected 1 of 2 documents skipped, got %+v", report)
	}
	if report.Created != 3 {
		t.Errorf("expected 3 created, got %d", report.Created)
	}
}

func TestRun_SourceFilter(t *testing.T) {
	m := store.NewMemory()
	user := uuid.New()
	addDoc(t, m, user, "whatsapp", tripChat)
	addDoc(t, m, user, "telegram", `{"messages":[{"from":"Me","text":"Totally different words from another archive."}]}`)

	tests := []struct {
		filter string
		docs   int
	}{
		{"all", 2},
		{"transcript", 1},
		{"telegram", 1},
		{"jsonl", 0},
	}
	for _, tt := range tests {
		t.Run(tt.filter, func(t *testing.T) {
			opts := DefaultOptions()
			opts.SourceFilter = tt.filter
			// Fresh sample store per case so exact dedup does not interfere.
			p := New(m, store.NewMemory(), embed.NewHasher(0), discardLogger())
			report, err := p.Run(context.Background(), user, opts)
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if report.Documents != tt.docs {
				t.Errorf("filter %q: expected %d documents, got %d", tt.filter, tt.docs, report.Documents)
			}
		})
	}
}

func TestRun_TieBreakFollowsDocumentOrder(t *testing.T) {
	run := func(first, second string) string {
		m := store.NewMemory()
		user := uuid.New()
		addDoc(t, m, user, "whatsapp", "Me: "+first)
		addDoc(t, m, user, "whatsapp", "Me: "+second)
		report, err := newPipeline(m).Run(context.Background(), user, DefaultOptions())
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if report.Created != 1 {
			t.Fatalf("expected 1 created, got %+v", report)
		}
		return listSamples(t, m, user)[0].Response
	}

	upper := "See you at the station tonight"
	lower := "see you at the station tonight"

	for i := 0; i < 3; i++ {
		if got := run(upper, lower); got != upper {
			t.Fatalf("run %d: expected %q, got %q", i, upper, got)
		}
	}
	if got := run(lower, upper); got != lower {
		t.Errorf("reversed order: expected %q, got %q", lower, got)
	}
}

type flakyEmbedder struct {
	embed.Embedder
	failOn string
}

func (f flakyEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.Contains(text, f.failOn) {
		return nil, errors.New("embedding service unavailable")
	}
	return f.Embedder.Embed(ctx, text)
}

func TestRun_EmbedFailureSkipsCandidate(t *testing.T) {
	m := store.NewMemory()
	user := uuid.New()
	addDoc(t, m, user, "whatsapp", tripChat)

	p := New(m, m, flakyEmbedder{Embedder: embed.NewHasher(0), failOn: "cabin"}, discardLogger())
	report, err := p.Run(context.Background(), user, DefaultOptions())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.EmbedFailures != 1 || report.Created != 2 {
		t.Errorf("expected 1 embed failure and 2 created, got %+v", report)
	}
}

type faultyStore struct {
	*store.Memory
	failOn string
	// cancel, when set, is called after the first successful write.
	cancel context.CancelFunc
}

func (f *faultyStore) WriteSample(ctx context.Context, ts sample.TrainingSample) (bool, error) {
	if f.failOn != "" && strings.Contains(ts.Response, f.failOn) {
		return false, errors.New("connection reset")
	}
	ok, err := f.Memory.WriteSample(ctx, ts)
	if f.cancel != nil {
		f.cancel()
	}
	return ok, err
}

func TestRun_WriteFailureSkipsRow(t *testing.T) {
	m := store.NewMemory()
	user := uuid.New()
	addDoc(t, m, user, "whatsapp", tripChat)

	fs := &faultyStore{Memory: m, failOn: "cabin"}
	report, err := New(m, fs, embed.NewHasher(0), discardLogger()).Run(context.Background(), user, DefaultOptions())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.WriteFailures != 1 || report.Created != 2 {
		t.Errorf("expected 1 write failure and 2 created, got %+v", report)
	}
}

func TestRun_CancelDuringWriteKeepsWrittenRows(t *testing.T) {
	m := store.NewMemory()
	user := uuid.New()
	addDoc(t, m, user, "whatsapp", tripChat)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fs := &faultyStore{Memory: m, cancel: cancel}

	report, err := New(m, fs, embed.NewHasher(0), discardLogger()).Run(ctx, user, DefaultOptions())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if !report.Canceled || report.Created != 1 {
		t.Errorf("expected canceled report with 1 created, got %+v", report)
	}
	if n := len(listSamples(t, m, user)); n != 1 {
		t.Errorf("expected the written row to survive, got %d rows", n)
	}
}

func TestRun_CanceledBeforeStart(t *testing.T) {
	m := store.NewMemory()
	user := uuid.New()
	addDoc(t, m, user, "whatsapp", tripChat)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := newPipeline(m).Run(ctx, user, DefaultOptions())
	if err == nil {
		t.Fatal("expected an error for a canceled context")
	}
	if report.Created != 0 {
		t.Errorf("expected nothing written, got %d", report.Created)
	}
}
