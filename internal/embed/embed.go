// Package embed turns response text into fixed-length vectors for semantic
// near-duplicate detection.
//
// Implementations:
//   - Hasher: deterministic feature hashing, no network (default)
//   - Client: any OpenAI-compatible /v1/embeddings endpoint
//   - Cache: Redis read-through cache wrapping either of the above
package embed

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyText is returned for blank input.
var ErrEmptyText = errors.New("empty text")

// Embedder generates embedding vectors from text. Identical input must
// produce identical output.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// Config selects and configures an embedder.
type Config struct {
	Provider   string // "hash" or "http"
	Endpoint   string
	Model      string
	APIKey     string
	Dimensions int
}

// New builds the embedder named by cfg.Provider.
func New(cfg Config) (Embedder, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "hash":
		return NewHasher(cfg.Dimensions), nil
	case "http", "openai", "ollama":
		return NewClient(ClientConfig{
			Endpoint:   cfg.Endpoint,
			Model:      cfg.Model,
			APIKey:     cfg.APIKey,
			Dimensions: cfg.Dimensions,
		})
	default:
		return nil, fmt.Errorf("unknown embed provider %q (supported: hash, http)", cfg.Provider)
	}
}
