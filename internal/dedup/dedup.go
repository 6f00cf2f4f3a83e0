// Package dedup rejects exact, lexical and semantic near-duplicates among
// training candidates.
//
// Admission is greedy: each candidate is compared with every candidate
// accepted before it, so the result depends on evaluation order and the cost
// is O(n²) in the accepted set. That is fine for corpora of a few thousand
// samples; beyond that the semantic check should move to an approximate
// nearest-neighbour index while the exact and lexical checks stay as they are.
package dedup

import (
	"math"

	"github.com/MikeSquared-Agency/curator/internal/sample"
)

const (
	DefaultJaccard  = 0.85
	DefaultSemantic = 0.95

	minJaccard, maxJaccard   = 0.5, 0.98
	minSemantic, maxSemantic = 0.6, 0.995
)

// Thresholds are the similarity limits at or above which a candidate is rejected.
type Thresholds struct {
	Jaccard  float64 `json:"jaccard" yaml:"jaccard"`
	Semantic float64 `json:"semantic" yaml:"semantic"`
}

// DefaultThresholds returns the default limits.
func DefaultThresholds() Thresholds {
	return Thresholds{Jaccard: DefaultJaccard, Semantic: DefaultSemantic}
}

// Clamped returns t with unset values (zero or NaN) defaulted and each limit
// bounded to its allowed range. A zero threshold therefore means the default,
// not the lower bound.
func (t Thresholds) Clamped() Thresholds {
	if t.Jaccard == 0 || math.IsNaN(t.Jaccard) {
		t.Jaccard = DefaultJaccard
	}
	if t.Semantic == 0 || math.IsNaN(t.Semantic) {
		t.Semantic = DefaultSemantic
	}
	t.Jaccard = clamp(t.Jaccard, minJaccard, maxJaccard)
	t.Semantic = clamp(t.Semantic, minSemantic, maxSemantic)
	return t
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// Verdict is the outcome of an admission check.
type Verdict int

const (
	Admitted Verdict = iota
	RejectedExact
	RejectedLexical
	RejectedSemantic
)

func (v Verdict) String() string {
	switch v {
	case Admitted:
		return "admitted"
	case RejectedExact:
		return "exact"
	case RejectedLexical:
		return "lexical"
	case RejectedSemantic:
		return "semantic"
	}
	return "unknown"
}

// Admit checks c against previously persisted signatures, then against every
// accepted candidate lexically, then semantically. thresholds must already be
// clamped.
func Admit(c *sample.Candidate, accepted []*sample.Candidate, existing sample.SignatureSet, thresholds Thresholds) Verdict {
	if existing.Has(c.DedupSignature) {
		return RejectedExact
	}
	for _, a := range accepted {
		if Jaccard(c.TokenSet, a.TokenSet) >= thresholds.Jaccard {
			return RejectedLexical
		}
	}
	if len(c.Embedding) == 0 {
		return Admitted
	}
	for _, a := range accepted {
		if Cosine(c.Embedding, a.Embedding) >= thresholds.Semantic {
			return RejectedSemantic
		}
	}
	return Admitted
}

// Jaccard returns |a∩b| / |a∪b|, or 0 when both sets are empty.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	inter := 0
	for tok := range small {
		if _, ok := large[tok]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// Cosine returns the cosine similarity of two vectors, or 0 when the lengths
// differ or either vector is zero.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Engine holds the growing accepted set for one run. It is not safe for
// concurrent use.
type Engine struct {
	existing   sample.SignatureSet
	thresholds Thresholds
	accepted   []*sample.Candidate
	rejected   map[Verdict]int
}

// NewEngine returns an engine seeded with the user's persisted signatures.
func NewEngine(existing sample.SignatureSet, thresholds Thresholds) *Engine {
	if existing == nil {
		existing = sample.SignatureSet{}
	}
	return &Engine{
		existing:   existing,
		thresholds: thresholds.Clamped(),
		rejected:   make(map[Verdict]int),
	}
}

// Admit checks c and, if admitted, adds it to the accepted set.
func (e *Engine) Admit(c *sample.Candidate) Verdict {
	v := Admit(c, e.accepted, e.existing, e.thresholds)
	if v == Admitted {
		e.accepted = append(e.accepted, c)
	} else {
		e.rejected[v]++
	}
	return v
}

// Accepted returns the candidates admitted so far, in admission order.
func (e *Engine) Accepted() []*sample.Candidate {
	return e.accepted
}

// Rejected returns how many candidates each check rejected.
func (e *Engine) Rejected(v Verdict) int {
	return e.rejected[v]
}

// Thresholds returns the clamped limits in use.
func (e *Engine) Thresholds() Thresholds {
	return e.thresholds
}
