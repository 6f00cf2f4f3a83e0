// Package extract turns one document's canonical messages into scored,
// tagged training candidates.
package extract

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/curator/internal/archive"
	"github.com/MikeSquared-Agency/curator/internal/sample"
)

const (
	// MinResponseRunes is the shortest trimmed owner message considered.
	MinResponseRunes = 6
	// MinDocumentRunes is the least normalized content a document needs to yield anything.
	MinDocumentRunes = 10

	DefaultMinQuality = 0.3
)

// Stats counts what happened to a document's owner messages.
type Stats struct {
	OwnerMessages int `json:"owner_messages"`
	TooShort      int `json:"too_short"`
	Template      int `json:"template"`
	LowQuality    int `json:"low_quality"`
	Emitted       int `json:"emitted"`
}

// Add accumulates o into s.
func (s *Stats) Add(o Stats) {
	s.OwnerMessages += o.OwnerMessages
	s.TooShort += o.TooShort
	s.Template += o.Template
	s.LowQuality += o.LowQuality
	s.Emitted += o.Emitted
}

// Extractor builds candidates from owner messages.
type Extractor struct {
	minQuality float64
	score      ScoreFunc
}

// New returns an extractor that drops candidates scoring below minQuality.
func New(minQuality float64) *Extractor {
	return &Extractor{minQuality: minQuality, score: Score}
}

// WithScorer replaces the quality scorer.
func (e *Extractor) WithScorer(fn ScoreFunc) *Extractor {
	e.score = fn
	return e
}

// Extract returns the candidates for one document in message order. Seq is
// left zero for the caller to assign.
func (e *Extractor) Extract(docID uuid.UUID, msgs []archive.Message, meta archive.DocumentMetadata) ([]sample.Candidate, Stats) {
	var stats Stats

	total := 0
	owners := make(map[string]bool)
	for _, m := range msgs {
		total += contentLength(m.Content)
		if m.IsOwner {
			stats.OwnerMessages++
			owners[strings.ToLower(strings.TrimSpace(m.Sender))] = true
		}
	}
	if total < MinDocumentRunes {
		return nil, stats
	}

	intimacyBase := 0.5
	switch {
	case stats.OwnerMessages > 50:
		intimacyBase += 0.2
	case stats.OwnerMessages > 20:
		intimacyBase += 0.1
	}
	partner := metadataPartner(meta, owners)

	var out []sample.Candidate
	for i, m := range msgs {
		if !m.IsOwner {
			continue
		}
		response := strings.TrimSpace(m.Content)
		if utf8.RuneCountInString(response) < MinResponseRunes {
			stats.TooShort++
			continue
		}
		if IsTemplate(response) {
			stats.Template++
			continue
		}

		context := precedingContext(msgs, i)
		quality := sample.Clamp01(e.score(response, context))
		if quality < e.minQuality {
			stats.LowQuality++
			continue
		}

		intimacy := intimacyBase
		if IsAffectionate(response) {
			intimacy += 0.2
		}

		target := partner
		if target == "" {
			target = contextPartner(context)
		}

		out = append(out, sample.Candidate{
			ID:             uuid.New(),
			Response:       response,
			Context:        context,
			Timestamp:      m.Timestamp,
			EmotionalTag:   Emotion(response),
			SourceDocID:    docID,
			Quality:        quality,
			StyleTags:      StyleTags(response),
			IntentTags:     IntentTags(response),
			TokenSet:       Tokens(response),
			DedupSignature: Signature(response),
			TargetPerson:   target,
			IntimacyLevel:  sample.Clamp01(intimacy),
		})
		stats.Emitted++
	}
	return out, stats
}

func precedingContext(msgs []archive.Message, i int) []archive.Message {
	start := i - sample.MaxContext
	if start < 0 {
		start = 0
	}
	if start == i {
		return nil
	}
	context := make([]archive.Message, i-start)
	copy(context, msgs[start:i])
	return context
}

// metadataPartner returns the first declared participant that is not the owner.
func metadataPartner(meta archive.DocumentMetadata, owners map[string]bool) string {
	account := strings.ToLower(strings.TrimSpace(meta.AccountName))
	for _, p := range meta.Participants {
		key := strings.ToLower(strings.TrimSpace(p))
		if key == "" || key == account || owners[key] {
			continue
		}
		return strings.TrimSpace(p)
	}
	return ""
}

// contextPartner scans backward for the nearest non-owner sender.
func contextPartner(context []archive.Message) string {
	for j := len(context) - 1; j >= 0; j-- {
		if !context[j].IsOwner && strings.TrimSpace(context[j].Sender) != "" {
			return strings.TrimSpace(context[j].Sender)
		}
	}
	return sample.UnknownTarget
}
