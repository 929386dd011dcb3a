package embeddings

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for embedding operations.
var (
	// ErrEmptyInput indicates empty or nil input texts.
	ErrEmptyInput = errors.New("empty or nil input texts")

	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrUnavailable indicates the embedding backend is down, misconfigured,
	// or timed out. No query can proceed without a query vector, so callers
	// surface this instead of degrading silently.
	ErrUnavailable = errors.New("embedding backend unavailable")
)

// Provider is the interface for embedding providers.
//
// EmbedDocuments is order-preserving: index i of the output corresponds to
// index i of the input. Dimension is constant per provider instance.
type Provider interface {
	// EmbedDocuments generates embeddings for multiple texts.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery generates an embedding for a single query. Some models
	// optimize differently for queries vs documents.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// Dimension returns the embedding dimension for the current model.
	Dimension() int

	// Close releases resources held by the provider.
	Close() error
}

// ProviderConfig holds configuration for creating an embedding provider.
type ProviderConfig struct {
	// Provider is the provider type: "fastembed", "openai", or "hash".
	Provider string

	// Model is the embedding model name.
	Model string

	// BaseURL is the API base URL (OpenAI-compatible providers only).
	BaseURL string

	// APIKey is the API key (OpenAI-compatible providers only).
	APIKey string

	// CacheDir is the model cache directory (FastEmbed only).
	CacheDir string

	// Dimension is the output dimension (hash provider only).
	Dimension int
}

// NewProvider creates an embedding provider based on the configuration.
func NewProvider(cfg ProviderConfig) (Provider, error) {
	switch cfg.Provider {
	case "fastembed", "":
		return NewFastEmbedProvider(FastEmbedConfig{
			Model:    cfg.Model,
			CacheDir: cfg.CacheDir,
		})
	case "openai":
		return NewOpenAIProvider(OpenAIConfig{
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			APIKey:  cfg.APIKey,
		})
	case "hash":
		return NewHashProvider(cfg.Dimension), nil
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, cfg.Provider)
	}
}

// detectDimensionFromModel returns the embedding dimension for a model name.
// Falls back to 384 if the model is unknown.
func detectDimensionFromModel(model string) int {
	switch {
	case strings.Contains(model, "text-embedding-3-large"):
		return 3072
	case strings.Contains(model, "text-embedding-3-small"), strings.Contains(model, "ada-002"):
		return 1536
	case strings.Contains(model, "base"):
		return 768
	case strings.Contains(model, "large"):
		return 1024
	case strings.Contains(model, "small"), strings.Contains(model, "mini"), strings.Contains(model, "Mini"):
		return 384
	default:
		return 384
	}
}
