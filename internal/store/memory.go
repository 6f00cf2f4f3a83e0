package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/curator/internal/archive"
	"github.com/MikeSquared-Agency/curator/internal/sample"
)

// Memory is an in-process store with the same semantics as Store, used for
// dry runs and tests.
type Memory struct {
	mu      sync.Mutex
	docs    []archive.Document
	samples map[uuid.UUID][]sample.TrainingSample
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{samples: make(map[uuid.UUID][]sample.TrainingSample)}
}

func (m *Memory) InsertDocument(_ context.Context, doc archive.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.docs {
		if d.ID == doc.ID {
			return nil
		}
	}
	m.docs = append(m.docs, doc)
	return nil
}

func (m *Memory) ListDocuments(_ context.Context, userID uuid.UUID, sourceFilter string) ([]archive.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []archive.Document
	for _, d := range m.docs {
		if d.UserID == userID && archive.MatchesFilter(d.Source, sourceFilter) {
			d.SourceType = archive.ParseFormat(d.Source)
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *Memory) WriteSample(_ context.Context, ts sample.TrainingSample) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.samples[ts.UserID] {
		if existing.DedupSignature == ts.DedupSignature {
			return false, nil
		}
	}
	m.samples[ts.UserID] = append(m.samples[ts.UserID], ts)
	return true, nil
}

func (m *Memory) LoadSignatures(_ context.Context, userID uuid.UUID) (sample.SignatureSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set := sample.SignatureSet{}
	for _, ts := range m.samples[userID] {
		set.Add(ts.DedupSignature)
	}
	return set, nil
}

func (m *Memory) ListSamples(_ context.Context, userID uuid.UUID, intent string, limit int) ([]sample.TrainingSample, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []sample.TrainingSample
	for _, ts := range m.samples[userID] {
		if intent == "" || ts.PrimaryIntent() == intent {
			out = append(out, ts)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Quality > out[j].Quality })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) CountByIntent(_ context.Context, userID uuid.UUID) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[string]int)
	for _, ts := range m.samples[userID] {
		counts[ts.PrimaryIntent()]++
	}
	return counts, nil
}
