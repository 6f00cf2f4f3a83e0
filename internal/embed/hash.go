package embed

import (
	"context"
	"math"
	"regexp"
	"strings"

	"github.com/cespare/xxhash/v2"
)

const DefaultDimensions = 256

var wordSplitRE = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// Hasher embeds text by hashing word unigrams and character trigrams into a
// fixed number of signed buckets, then L2-normalizing.
type Hasher struct {
	dim int
}

// NewHasher returns a hashing embedder; dim <= 0 uses DefaultDimensions.
func NewHasher(dim int) *Hasher {
	if dim <= 0 {
		dim = DefaultDimensions
	}
	return &Hasher{dim: dim}
}

func (h *Hasher) Dimensions() int { return h.dim }

func (h *Hasher) Embed(_ context.Context, text string) ([]float32, error) {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return nil, ErrEmptyText
	}

	vec := make([]float64, h.dim)
	add := func(feature string, weight float64) {
		sum := xxhash.Sum64String(feature)
		idx := int(sum % uint64(h.dim))
		if sum&(1<<63) != 0 {
			weight = -weight
		}
		vec[idx] += weight
	}

	for _, word := range wordSplitRE.Split(text, -1) {
		if word == "" {
			continue
		}
		add("w:"+word, 1)
		padded := []rune("#" + word + "#")
		for i := 0; i+3 <= len(padded); i++ {
			add("t:"+string(padded[i:i+3]), 0.5)
		}
	}
	// Text without letters or digits still gets a vector.
	if allZero(vec) {
		add("r:"+text, 1)
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	out := make([]float32, h.dim)
	if norm == 0 {
		return out, nil
	}
	for i, v := range vec {
		out[i] = float32(v / norm)
	}
	return out, nil
}

func allZero(v []float64) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
