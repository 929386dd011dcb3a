package retriever

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/docqa/internal/chunk"
	"github.com/fyrsmithlabs/docqa/internal/vectorstore"
)

// ChunkEmbedder is the batch embedding capability the indexer needs.
// Output order must match input order.
type ChunkEmbedder interface {
	EmbedChunks(ctx context.Context, chunks []chunk.Chunk) ([][]float32, error)
}

// Indexer embeds chunk batches and writes the resulting records to the
// store. Chunks are consumed once here and not retained.
type Indexer struct {
	store    vectorstore.Store
	embedder ChunkEmbedder
	logger   *zap.Logger
}

// NewIndexer creates an Indexer.
func NewIndexer(store vectorstore.Store, embedder ChunkEmbedder, logger *zap.Logger) (*Indexer, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	if embedder == nil {
		return nil, errors.New("embedder is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Indexer{
		store:    store,
		embedder: embedder,
		logger:   logger,
	}, nil
}

// Index embeds the chunks and adds one record per chunk. The record ID is
// the chunk ID and provenance is carried into the record's typed fields, so
// source attribution survives retrieval.
func (ix *Indexer) Index(ctx context.Context, chunks []chunk.Chunk, upsert bool) (int, error) {
	ctx, span := retrieverTracer.Start(ctx, "Indexer.Index")
	defer span.End()

	span.SetAttributes(
		attribute.Int("chunk_count", len(chunks)),
		attribute.Bool("upsert", upsert),
	)

	if len(chunks) == 0 {
		return 0, vectorstore.ErrEmptyRecords
	}

	vectors, err := ix.embedder.EmbedChunks(ctx, chunks)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("embedding chunks: %w", err)
	}

	records := make([]vectorstore.Record, len(chunks))
	for i, c := range chunks {
		records[i] = vectorstore.Record{
			ID:          c.ID,
			Vector:      vectors[i],
			Payload:     c.Content,
			SourceDocID: c.SourceDocID,
			PageNumber:  c.PageNumber,
			Modality:    c.Modality,
			Position:    c.Position,
		}
	}

	added, err := ix.store.Add(ctx, records, upsert)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("adding records: %w", err)
	}

	span.SetAttributes(attribute.Int("records_added", added))
	span.SetStatus(codes.Ok, "success")

	ix.logger.Info("indexed chunks",
		zap.Int("count", added),
	)

	return added, nil
}
