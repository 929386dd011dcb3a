package embeddings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fyrsmithlabs/docqa/internal/chunk"
)

// MultimodalConfig holds configuration for the multimodal dispatcher.
type MultimodalConfig struct {
	// Timeout bounds each backend call. Embedding is assumed fast relative
	// to generation, but a hung backend must surface ErrUnavailable rather
	// than block the request. Default: 10s.
	Timeout time.Duration

	// Concurrency limits parallel items during batch embedding.
	// Default: 4.
	Concurrency int
}

// ApplyDefaults sets default values for unset fields.
func (c *MultimodalConfig) ApplyDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 10 * time.Second
	}
	if c.Concurrency == 0 {
		c.Concurrency = 4
	}
}

// Multimodal routes chunks to the right embedding sub-path keyed on their
// modality tag. Text and table content go through the text provider; image
// content embeds its caption/OCR text through the image provider when one
// is configured, otherwise through the text provider. All sub-paths must
// share one output dimension.
type Multimodal struct {
	text    Provider
	image   Provider
	config  MultimodalConfig
	metrics *Metrics
	logger  *zap.Logger
}

// NewMultimodal creates a multimodal dispatcher. The image provider may be
// nil, in which case image captions use the text path.
func NewMultimodal(config MultimodalConfig, text Provider, image Provider, logger *zap.Logger) (*Multimodal, error) {
	if text == nil {
		return nil, fmt.Errorf("%w: text provider is required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if image != nil && image.Dimension() != text.Dimension() {
		return nil, fmt.Errorf("%w: image provider dimension %d differs from text dimension %d",
			ErrInvalidConfig, image.Dimension(), text.Dimension())
	}

	config.ApplyDefaults()

	return &Multimodal{
		text:    text,
		image:   image,
		config:  config,
		metrics: NewMetrics(logger),
		logger:  logger,
	}, nil
}

// EmbedChunk embeds one chunk via the sub-path its modality selects.
func (m *Multimodal) EmbedChunk(ctx context.Context, c chunk.Chunk) ([]float32, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	vector, err := m.dispatch(ctx, c)
	m.metrics.RecordGeneration(ctx, string(c.Modality), "embed", time.Since(start), 1, err)
	return vector, err
}

// EmbedChunks embeds a batch in parallel. Output order matches input order
// regardless of internal completion order; a single failure fails the batch.
func (m *Multimodal) EmbedChunks(ctx context.Context, chunks []chunk.Chunk) ([][]float32, error) {
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: chunks cannot be empty", ErrEmptyInput)
	}

	for _, c := range chunks {
		if err := c.Validate(); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	vectors := make([][]float32, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.config.Concurrency)
	for i, c := range chunks {
		g.Go(func() error {
			vector, err := m.dispatch(gctx, c)
			if err != nil {
				return fmt.Errorf("embedding chunk %s: %w", c.ID, err)
			}
			vectors[i] = vector
			return nil
		})
	}

	err := g.Wait()
	m.metrics.RecordGeneration(ctx, "batch", "embed_batch", time.Since(start), len(chunks), err)
	if err != nil {
		return nil, err
	}

	return vectors, nil
}

// EmbedQuery embeds a natural-language query through the text path.
func (m *Multimodal) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, m.config.Timeout)
	defer cancel()

	vector, err := m.text.EmbedQuery(ctx, text)
	err = mapTimeout(err)
	m.metrics.RecordGeneration(ctx, "query", "embed_query", time.Since(start), 1, err)
	return vector, err
}

// dispatch is the single function keyed on the modality tag.
func (m *Multimodal) dispatch(ctx context.Context, c chunk.Chunk) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, m.config.Timeout)
	defer cancel()

	provider := m.text
	if c.Modality == chunk.ModalityImage && m.image != nil {
		provider = m.image
	}

	// Document path, not query path: models like BGE prefix passages and
	// queries differently.
	vectors, err := provider.EmbedDocuments(ctx, []string{c.Content})
	if err != nil {
		return nil, mapTimeout(err)
	}
	return vectors[0], nil
}

// mapTimeout folds deadline errors into ErrUnavailable so callers handle
// one failure mode for a down backend and a hung one.
func mapTimeout(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}

// Dimension returns the shared output dimension.
func (m *Multimodal) Dimension() int {
	return m.text.Dimension()
}

// Close releases both providers.
func (m *Multimodal) Close() error {
	err := m.text.Close()
	if m.image != nil {
		if ierr := m.image.Close(); err == nil {
			err = ierr
		}
	}
	return err
}
