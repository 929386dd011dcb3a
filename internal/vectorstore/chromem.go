package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"

	chromem "github.com/philippgille/chromem-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/docqa/internal/chunk"
)

// chromemTracer for OpenTelemetry instrumentation.
var chromemTracer = otel.Tracer("docqa.vectorstore.chromem")

// ChromemConfig holds configuration for the chromem-go backed store.
type ChromemConfig struct {
	// Path is the directory for persistent storage. Empty means a purely
	// in-memory database.
	Path string

	// Compress enables gzip compression for persisted data.
	Compress bool

	// Collection is the chromem collection name.
	// Default: "docqa_chunks"
	Collection string

	// VectorSize is the embedding dimension. Unlike MemoryStore, the
	// chromem backend requires it up front because persisted collections
	// can be reopened before any add establishes a dimension.
	// Default: 384
	VectorSize int
}

// ApplyDefaults sets default values for unset fields.
func (c *ChromemConfig) ApplyDefaults() {
	if c.Collection == "" {
		c.Collection = "docqa_chunks"
	}
	if c.VectorSize == 0 {
		c.VectorSize = 384
	}
}

// Validate validates the configuration.
func (c *ChromemConfig) Validate() error {
	if c.VectorSize <= 0 {
		return fmt.Errorf("%w: vector size must be positive", ErrInvalidConfig)
	}
	return nil
}

// ChromemStore implements Store using the chromem-go embedded vector
// database. Vectors arrive pre-computed, so the collection's embedding
// function is never invoked; queries go through QueryEmbedding.
//
// Provenance fields are round-tripped through chromem document metadata
// under the reserved keys source_doc_id, page_number, modality, and
// position. Caller tags must not use those keys.
type ChromemStore struct {
	db     *chromem.DB
	coll   *chromem.Collection
	config ChromemConfig
	logger *zap.Logger

	// mu serializes mutations so duplicate checks and writes are atomic
	// with respect to each other.
	mu sync.Mutex
}

// NewChromemStore creates a ChromemStore, reopening any persisted collection
// at the configured path.
func NewChromemStore(config ChromemConfig, logger *zap.Logger) (*ChromemStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	config.ApplyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	var db *chromem.DB
	if config.Path == "" {
		db = chromem.NewDB()
	} else {
		if err := os.MkdirAll(config.Path, 0o755); err != nil {
			return nil, fmt.Errorf("creating directory %s: %w", config.Path, err)
		}
		var err error
		db, err = chromem.NewPersistentDB(config.Path, config.Compress)
		if err != nil {
			return nil, fmt.Errorf("creating chromem DB: %w", err)
		}
	}

	coll, err := db.GetOrCreateCollection(config.Collection, nil, rejectEmbeddingFunc)
	if err != nil {
		return nil, fmt.Errorf("getting/creating collection %s: %w", config.Collection, err)
	}

	store := &ChromemStore{
		db:     db,
		coll:   coll,
		config: config,
		logger: logger,
	}

	logger.Info("chromem store initialized",
		zap.String("path", config.Path),
		zap.String("collection", config.Collection),
		zap.Int("vector_size", config.VectorSize),
		zap.Bool("compress", config.Compress),
	)

	return store, nil
}

// rejectEmbeddingFunc guards against accidental text-path queries: every
// vector entering this store is computed by the embeddings package.
func rejectEmbeddingFunc(ctx context.Context, text string) ([]float32, error) {
	return nil, errors.New("chromem store only accepts pre-computed embeddings")
}

// Add inserts records. The batch is validated before any write.
func (s *ChromemStore) Add(ctx context.Context, records []Record, upsert bool) (int, error) {
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.Add")
	defer span.End()

	span.SetAttributes(
		attribute.Int("record_count", len(records)),
		attribute.Bool("upsert", upsert),
	)

	if len(records) == 0 {
		return 0, ErrEmptyRecords
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool, len(records))
	for i, r := range records {
		if r.ID == "" {
			return 0, fmt.Errorf("%w: record at index %d has no ID", ErrInvalidRecord, i)
		}
		if len(r.Vector) != s.config.VectorSize {
			err := fmt.Errorf("%w: record %s has dimension %d, store expects %d",
				ErrDimensionMismatch, r.ID, len(r.Vector), s.config.VectorSize)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return 0, err
		}
		if seen[r.ID] {
			return 0, fmt.Errorf("%w: %s appears twice in batch", ErrDuplicateID, r.ID)
		}
		seen[r.ID] = true
		if !upsert {
			if _, err := s.coll.GetByID(ctx, r.ID); err == nil {
				err := fmt.Errorf("%w: %s", ErrDuplicateID, r.ID)
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return 0, err
			}
		}
	}

	docs := make([]chromem.Document, len(records))
	for i, r := range records {
		docs[i] = chromem.Document{
			ID:        r.ID,
			Content:   r.Payload,
			Metadata:  recordToMetadata(r),
			Embedding: r.Vector,
		}
	}

	// Concurrency of 1: embeddings are already computed, nothing to
	// parallelize.
	if err := s.coll.AddDocuments(ctx, docs, 1); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("adding documents: %w", err)
	}

	span.SetAttributes(attribute.Int("records_added", len(records)))
	span.SetStatus(codes.Ok, "success")

	s.logger.Debug("added records to chromem",
		zap.String("collection", s.config.Collection),
		zap.Int("count", len(records)),
	)

	return len(records), nil
}

// SimilaritySearch ranks records by normalized cosine similarity.
func (s *ChromemStore) SimilaritySearch(ctx context.Context, vector []float32, k int, filter Filter) ([]SearchResult, error) {
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.SimilaritySearch")
	defer span.End()

	span.SetAttributes(attribute.Int("k", k))

	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}

	results, err := s.rankAll(ctx, vector, filter, func(r Record, sv float32) SearchResult {
		return SearchResult{Record: r, Score: sv, MatchType: MatchVector}
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	results = truncate(results, k)
	span.SetAttributes(attribute.Int("results_count", len(results)))
	span.SetStatus(codes.Ok, "success")
	return results, nil
}

// HybridSearch blends vector similarity with lexical overlap.
func (s *ChromemStore) HybridSearch(ctx context.Context, vector []float32, queryText string, k int, alpha float64, filter Filter) ([]SearchResult, error) {
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.HybridSearch")
	defer span.End()

	span.SetAttributes(
		attribute.Int("k", k),
		attribute.Float64("alpha", alpha),
	)

	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}
	if alpha < 0 || alpha > 1 {
		return nil, fmt.Errorf("alpha must be in [0,1], got %v", alpha)
	}

	queryTokens := Tokenize(queryText)

	results, err := s.rankAll(ctx, vector, filter, func(r Record, sv float32) SearchResult {
		sk := LexicalOverlap(queryTokens, Tokenize(r.Payload))
		return SearchResult{
			Record:    r,
			Score:     hybridScore(sv, sk, alpha),
			MatchType: hybridMatchType(sv, sk, alpha),
		}
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	results = truncate(results, k)
	span.SetAttributes(attribute.Int("results_count", len(results)))
	span.SetStatus(codes.Ok, "success")
	return results, nil
}

// rankAll scores every record passing the filter and returns them fully
// sorted. chromem's search is brute-force, so querying the whole collection
// keeps ranking semantics identical to MemoryStore (filter before rank,
// deterministic tie-break) at no extra asymptotic cost.
func (s *ChromemStore) rankAll(ctx context.Context, vector []float32, filter Filter, score func(Record, float32) SearchResult) ([]SearchResult, error) {
	if len(vector) != s.config.VectorSize {
		return nil, fmt.Errorf("%w: query has dimension %d, store expects %d",
			ErrDimensionMismatch, len(vector), s.config.VectorSize)
	}

	count := s.coll.Count()
	if count == 0 {
		return []SearchResult{}, nil
	}

	hits, err := s.coll.QueryEmbedding(ctx, vector, count, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("querying collection %s: %w", s.config.Collection, err)
	}

	results := make([]SearchResult, 0, len(hits))
	for _, h := range hits {
		r := resultToRecord(h)
		if !filter.Matches(r) {
			continue
		}
		sv := (h.Similarity + 1) / 2
		results = append(results, score(r, sv))
	}

	sortResults(results)
	return results, nil
}

// Delete removes records by ID and returns the number removed. Missing IDs
// are ignored.
func (s *ChromemStore) Delete(ctx context.Context, ids []string) (int, error) {
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.Delete")
	defer span.End()

	span.SetAttributes(attribute.Int("id_count", len(ids)))

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for _, id := range ids {
		if _, err := s.coll.GetByID(ctx, id); err != nil {
			continue
		}
		if err := s.coll.Delete(ctx, nil, nil, id); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return removed, fmt.Errorf("deleting record %s: %w", id, err)
		}
		removed++
	}

	span.SetAttributes(attribute.Int("records_removed", removed))
	span.SetStatus(codes.Ok, "success")

	return removed, nil
}

// Get returns the record with the given ID, or ErrNotFound.
func (s *ChromemStore) Get(ctx context.Context, id string) (Record, error) {
	doc, err := s.coll.GetByID(ctx, id)
	if err != nil {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return docToRecord(doc), nil
}

// Stats returns the record count and configured dimension.
func (s *ChromemStore) Stats(ctx context.Context) (Stats, error) {
	return Stats{
		RecordCount: s.coll.Count(),
		Dimension:   s.config.VectorSize,
	}, nil
}

// Close closes the store. chromem-go persists on write, so there is nothing
// to flush.
func (s *ChromemStore) Close() error {
	s.logger.Info("chromem store closed")
	return nil
}

// recordToMetadata flattens provenance and tags into chromem metadata.
func recordToMetadata(r Record) map[string]string {
	md := make(map[string]string, len(r.Metadata)+4)
	for k, v := range r.Metadata {
		md[k] = v
	}
	md[FilterSourceDocID] = r.SourceDocID
	md[FilterPageNumber] = strconv.Itoa(r.PageNumber)
	md[FilterModality] = string(r.Modality)
	md[FilterPosition] = strconv.Itoa(r.Position)
	return md
}

// metadataToRecord reverses recordToMetadata.
func metadataToRecord(r *Record, md map[string]string) {
	for k, v := range md {
		switch k {
		case FilterSourceDocID:
			r.SourceDocID = v
		case FilterPageNumber:
			r.PageNumber, _ = strconv.Atoi(v)
		case FilterModality:
			r.Modality = chunk.Modality(v)
		case FilterPosition:
			r.Position, _ = strconv.Atoi(v)
		default:
			if r.Metadata == nil {
				r.Metadata = make(map[string]string)
			}
			r.Metadata[k] = v
		}
	}
}

func resultToRecord(h chromem.Result) Record {
	r := Record{
		ID:      h.ID,
		Vector:  h.Embedding,
		Payload: h.Content,
	}
	metadataToRecord(&r, h.Metadata)
	return r
}

func docToRecord(doc chromem.Document) Record {
	r := Record{
		ID:      doc.ID,
		Vector:  doc.Embedding,
		Payload: doc.Content,
	}
	metadataToRecord(&r, doc.Metadata)
	return r
}

// Ensure ChromemStore implements Store interface.
var _ Store = (*ChromemStore)(nil)
