package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/MikeSquared-Agency/curator/internal/dedup"
	"github.com/MikeSquared-Agency/curator/internal/embed"
	"github.com/MikeSquared-Agency/curator/internal/extract"
	"github.com/MikeSquared-Agency/curator/internal/pipeline"
)

type Config struct {
	Port        int
	NatsURL     string
	NatsToken   string
	DatabaseURL string
	LogLevel    string
	RedisAddr   string
	APIToken    string

	EmbedProvider string
	EmbedEndpoint string
	EmbedModel    string
	EmbedAPIKey   string
	EmbedDim      int

	Pipeline PipelineConfig
}

// PipelineConfig holds curation tunables. It may be supplied as the
// "pipeline" section of the YAML file named by CURATOR_CONFIG; environment
// variables take precedence over the file.
type PipelineConfig struct {
	MinQuality        float64 `yaml:"min_quality"`
	MaxSamples        int     `yaml:"max_samples"`
	JaccardThreshold  float64 `yaml:"jaccard_threshold"`
	SemanticThreshold float64 `yaml:"semantic_threshold"`
	SourceFilter      string  `yaml:"source_filter"`
	Workers           int     `yaml:"parse_workers"`
}

type fileConfig struct {
	Pipeline PipelineConfig `yaml:"pipeline"`
}

func defaultPipeline() PipelineConfig {
	th := dedup.DefaultThresholds()
	return PipelineConfig{
		MinQuality:        extract.DefaultMinQuality,
		JaccardThreshold:  th.Jaccard,
		SemanticThreshold: th.Semantic,
		SourceFilter:      "all",
		Workers:           pipeline.DefaultWorkers,
	}
}

func Load() (Config, error) {
	pc := defaultPipeline()
	if path := os.Getenv("CURATOR_CONFIG"); path != "" {
		if err := overlayFile(path, &pc); err != nil {
			return Config{}, err
		}
	}

	pc.MinQuality = envFloat("CURATOR_MIN_QUALITY", pc.MinQuality)
	pc.MaxSamples = envInt("CURATOR_MAX_SAMPLES", pc.MaxSamples)
	pc.JaccardThreshold = envFloat("CURATOR_JACCARD_THRESHOLD", pc.JaccardThreshold)
	pc.SemanticThreshold = envFloat("CURATOR_SEMANTIC_THRESHOLD", pc.SemanticThreshold)
	pc.SourceFilter = envStr("CURATOR_SOURCE_FILTER", pc.SourceFilter)
	pc.Workers = envInt("CURATOR_PARSE_WORKERS", pc.Workers)

	provider := envStr("EMBED_PROVIDER", "hash")

	return Config{
		Port:          envInt("CURATOR_PORT", 8760),
		NatsURL:       envStr("NATS_URL", "nats://hermes:4222"),
		NatsToken:     envStr("NATS_TOKEN", ""),
		DatabaseURL:   envStr("DATABASE_URL", ""),
		LogLevel:      envStr("LOG_LEVEL", "info"),
		RedisAddr:     envStr("REDIS_ADDR", ""),
		APIToken:      envStr("CURATOR_API_TOKEN", ""),
		EmbedProvider: provider,
		EmbedEndpoint: envStr("EMBED_ENDPOINT", ""),
		EmbedModel:    envStr("EMBED_MODEL", ""),
		EmbedAPIKey:   envStr("EMBED_API_KEY", ""),
		EmbedDim:      envInt("EMBED_DIM", defaultEmbedDim(provider)),
		Pipeline:      pc,
	}, nil
}

// defaultEmbedDim is the hasher's size for the local provider. Remote models
// pick their own size unless EMBED_DIM asks for one.
func defaultEmbedDim(provider string) int {
	if provider == "" || provider == "hash" {
		return embed.DefaultDimensions
	}
	return 0
}

func overlayFile(path string, pc *PipelineConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	fc := fileConfig{Pipeline: *pc}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("decode config file: %w", err)
	}
	*pc = fc.Pipeline
	return nil
}

// PipelineOptions converts the pipeline section to run options.
func (c Config) PipelineOptions() pipeline.Options {
	opts := pipeline.DefaultOptions()
	opts.MinQuality = c.Pipeline.MinQuality
	opts.MaxSamples = c.Pipeline.MaxSamples
	opts.SourceFilter = c.Pipeline.SourceFilter
	opts.Workers = c.Pipeline.Workers
	opts.Thresholds = dedup.Thresholds{
		Jaccard:  c.Pipeline.JaccardThreshold,
		Semantic: c.Pipeline.SemanticThreshold,
	}
	return opts
}

// EmbedConfig returns the embedder settings.
func (c Config) EmbedConfig() embed.Config {
	return embed.Config{
		Provider:   c.EmbedProvider,
		Endpoint:   c.EmbedEndpoint,
		Model:      c.EmbedModel,
		APIKey:     c.EmbedAPIKey,
		Dimensions: c.EmbedDim,
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
