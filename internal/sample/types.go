// Package sample holds the candidate and training-sample records shared by
// the extraction, dedup, selection and persistence stages.
package sample

import (
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/curator/internal/archive"
)

// MaxContext is the number of preceding messages kept as context.
const MaxContext = 5

// UnknownTarget is used when no conversation partner can be inferred.
const UnknownTarget = "unknown"

// EmotionalTag is the coarse sentiment of a response.
type EmotionalTag string

const (
	EmotionPositive EmotionalTag = "positive"
	EmotionNegative EmotionalTag = "negative"
	EmotionNeutral  EmotionalTag = "neutral"
)

// NegativeType names the transformation that produced a negative example.
type NegativeType string

const (
	NegativeFactAltered  NegativeType = "fact_altered"
	NegativePolarityFlip NegativeType = "polarity_flip"
	NegativeStyleFlip    NegativeType = "style_flip"
)

// Candidate is an unpersisted, scored prospective training sample built from
// one owner message.
type Candidate struct {
	ID             uuid.UUID           `json:"id"`
	Seq            int                 `json:"seq"`
	Response       string              `json:"response"`
	Context        []archive.Message   `json:"context"`
	Timestamp      int64               `json:"timestamp"`
	EmotionalTag   EmotionalTag        `json:"emotional_tag"`
	SourceDocID    uuid.UUID           `json:"source_doc_id"`
	Quality        float64             `json:"quality"`
	StyleTags      []string            `json:"style_tags"`
	IntentTags     []string            `json:"intent_tags"`
	TokenSet       map[string]struct{} `json:"-"`
	Embedding      []float32           `json:"-"`
	DedupSignature string              `json:"dedup_signature"`
	TemplateFlag   bool                `json:"template_flag"`
	TargetPerson   string              `json:"target_person"`
	IntimacyLevel  float64             `json:"intimacy_level"`
}

// PrimaryIntent returns the first intent tag, or "" when there is none.
func (c *Candidate) PrimaryIntent() string {
	if len(c.IntentTags) == 0 {
		return ""
	}
	return c.IntentTags[0]
}

// TrainingSample is the persisted form of an accepted candidate.
type TrainingSample struct {
	Candidate
	UserID           uuid.UUID     `json:"user_id"`
	NegativeResponse *string       `json:"negative_response,omitempty"`
	NegativeType     *NegativeType `json:"negative_type,omitempty"`
}

// SignatureSet is the set of dedup signatures already persisted for a user.
type SignatureSet map[string]struct{}

// Has reports whether sig is in the set.
func (s SignatureSet) Has(sig string) bool {
	_, ok := s[sig]
	return ok
}

// Add inserts sig.
func (s SignatureSet) Add(sig string) {
	s[sig] = struct{}{}
}

// Clamp01 bounds v to [0,1].
func Clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
