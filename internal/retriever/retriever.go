// Package retriever translates natural-language queries into ranked chunks
// and feeds embedded chunks into the vector store.
package retriever

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/docqa/internal/vectorstore"
)

// retrieverTracer for OpenTelemetry instrumentation.
var retrieverTracer = otel.Tracer("docqa.retriever")

// ErrEmbeddingUnavailable is returned when the query cannot be embedded.
// There is no keyword-only fallback here: silent degraded ranking is a
// correctness hazard, so callers must handle this explicitly.
var ErrEmbeddingUnavailable = errors.New("embedding capability unavailable")

// QueryEmbedder is the narrow embedding capability the retriever needs.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Config holds configuration for the retriever.
type Config struct {
	// DefaultK is the result count used when a caller passes k <= 0.
	// Default: 5.
	DefaultK int

	// Alpha is the hybrid-search weight on vector similarity, in [0,1].
	// Default: 0.7.
	Alpha float64
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.DefaultK == 0 {
		c.DefaultK = 5
	}
	if c.Alpha == 0 {
		c.Alpha = 0.7
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.DefaultK < 0 {
		return fmt.Errorf("default k must be non-negative, got %d", c.DefaultK)
	}
	if c.Alpha < 0 || c.Alpha > 1 {
		return fmt.Errorf("alpha must be in [0,1], got %v", c.Alpha)
	}
	return nil
}

// Retriever embeds queries and executes hybrid search. Ranking policy lives
// in the store, keeping one source of truth for scoring; this layer adds no
// re-ranking.
type Retriever struct {
	store    vectorstore.Store
	embedder QueryEmbedder
	config   Config
	logger   *zap.Logger
}

// New creates a Retriever.
func New(config Config, store vectorstore.Store, embedder QueryEmbedder, logger *zap.Logger) (*Retriever, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	if embedder == nil {
		return nil, errors.New("embedder is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &Retriever{
		store:    store,
		embedder: embedder,
		config:   config,
		logger:   logger,
	}, nil
}

// Search embeds queryText and runs hybrid search, returning the store's
// ranking unmodified. k <= 0 selects the configured default.
func (r *Retriever) Search(ctx context.Context, queryText string, k int, filter vectorstore.Filter) ([]vectorstore.SearchResult, error) {
	ctx, span := retrieverTracer.Start(ctx, "Retriever.Search")
	defer span.End()

	if k <= 0 {
		k = r.config.DefaultK
	}
	span.SetAttributes(
		attribute.Int("k", k),
		attribute.Float64("alpha", r.config.Alpha),
	)

	vector, err := r.embedder.EmbedQuery(ctx, queryText)
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrEmbeddingUnavailable, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	results, err := r.store.HybridSearch(ctx, vector, queryText, k, r.config.Alpha, filter)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("hybrid search: %w", err)
	}

	span.SetAttributes(attribute.Int("results_count", len(results)))
	span.SetStatus(codes.Ok, "success")

	r.logger.Debug("retrieved chunks",
		zap.Int("k", k),
		zap.Int("results", len(results)),
	)

	return results, nil
}
