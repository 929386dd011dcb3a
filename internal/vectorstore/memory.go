package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// memoryTracer for OpenTelemetry instrumentation.
var memoryTracer = otel.Tracer("docqa.vectorstore.memory")

// dominanceMargin is the band within which the weighted vector and keyword
// terms are considered equal contributors, yielding MatchHybrid.
const dominanceMargin = 0.05

// MemoryConfig holds configuration for the in-memory vector store.
type MemoryConfig struct {
	// VectorSize is the expected embedding dimension. 0 means the first
	// successful Add establishes it.
	VectorSize int

	// MaxPayloadBytes truncates stored payloads longer than this many bytes.
	// 0 disables truncation.
	MaxPayloadBytes int
}

// Validate validates the configuration.
func (c *MemoryConfig) Validate() error {
	if c.VectorSize < 0 {
		return fmt.Errorf("%w: vector size must be non-negative", ErrInvalidConfig)
	}
	if c.MaxPayloadBytes < 0 {
		return fmt.Errorf("%w: max payload bytes must be non-negative", ErrInvalidConfig)
	}
	return nil
}

// MemoryStore implements Store with an in-process index.
//
// Reads run concurrently under an RWMutex read lock; mutations take the
// write lock, so a search observes either the pre- or post-mutation state,
// never a partial batch. Multiple independent MemoryStores share no state.
type MemoryStore struct {
	mu      sync.RWMutex
	dim     int
	records map[string]Record
	config  MemoryConfig
	logger  *zap.Logger
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(config MemoryConfig, logger *zap.Logger) (*MemoryStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	s := &MemoryStore{
		dim:     config.VectorSize,
		records: make(map[string]Record),
		config:  config,
		logger:  logger,
	}

	logger.Info("memory store initialized",
		zap.Int("vector_size", config.VectorSize),
	)

	return s, nil
}

// Add inserts records atomically: the whole batch is validated against the
// store's dimension and existing IDs before anything is written.
func (s *MemoryStore) Add(ctx context.Context, records []Record, upsert bool) (int, error) {
	_, span := memoryTracer.Start(ctx, "MemoryStore.Add")
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

	dim := s.dim
	if dim == 0 {
		dim = len(records[0].Vector)
	}

	seen := make(map[string]bool, len(records))
	for i, r := range records {
		if r.ID == "" {
			return 0, fmt.Errorf("%w: record at index %d has no ID", ErrInvalidRecord, i)
		}
		if len(r.Vector) == 0 || len(r.Vector) != dim {
			err := fmt.Errorf("%w: record %s has dimension %d, store expects %d",
				ErrDimensionMismatch, r.ID, len(r.Vector), dim)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return 0, err
		}
		if seen[r.ID] {
			return 0, fmt.Errorf("%w: %s appears twice in batch", ErrDuplicateID, r.ID)
		}
		seen[r.ID] = true
		if _, exists := s.records[r.ID]; exists && !upsert {
			err := fmt.Errorf("%w: %s", ErrDuplicateID, r.ID)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return 0, err
		}
	}

	for _, r := range records {
		stored := r.Clone()
		if s.config.MaxPayloadBytes > 0 && len(stored.Payload) > s.config.MaxPayloadBytes {
			cut := s.config.MaxPayloadBytes
			// Back off to a rune boundary so truncation never leaves
			// invalid UTF-8 in the payload.
			for cut > 0 && !utf8.RuneStart(stored.Payload[cut]) {
				cut--
			}
			stored.Payload = stored.Payload[:cut]
		}
		s.records[stored.ID] = stored
	}
	s.dim = dim

	span.SetAttributes(attribute.Int("records_added", len(records)))
	span.SetStatus(codes.Ok, "success")

	s.logger.Debug("added records",
		zap.Int("count", len(records)),
		zap.Int("dimension", dim),
	)

	return len(records), nil
}

// SimilaritySearch ranks records by normalized cosine similarity.
func (s *MemoryStore) SimilaritySearch(ctx context.Context, vector []float32, k int, filter Filter) ([]SearchResult, error) {
	_, span := memoryTracer.Start(ctx, "MemoryStore.SimilaritySearch")
	defer span.End()

	span.SetAttributes(attribute.Int("k", k))

	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.records) == 0 {
		return []SearchResult{}, nil
	}
	if len(vector) != s.dim {
		err := fmt.Errorf("%w: query has dimension %d, store expects %d",
			ErrDimensionMismatch, len(vector), s.dim)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	results := make([]SearchResult, 0, len(s.records))
	for _, r := range s.records {
		if !filter.Matches(r) {
			continue
		}
		results = append(results, SearchResult{
			Record:    r.Clone(),
			Score:     normalizedCosine(vector, r.Vector),
			MatchType: MatchVector,
		})
	}

	sortResults(results)
	results = truncate(results, k)

	span.SetAttributes(attribute.Int("results_count", len(results)))
	span.SetStatus(codes.Ok, "success")

	return results, nil
}

// HybridSearch blends vector similarity with lexical overlap against the
// raw query text. Filtering happens before ranking, never after truncation.
func (s *MemoryStore) HybridSearch(ctx context.Context, vector []float32, queryText string, k int, alpha float64, filter Filter) ([]SearchResult, error) {
	_, span := memoryTracer.Start(ctx, "MemoryStore.HybridSearch")
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

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.records) == 0 {
		return []SearchResult{}, nil
	}
	if len(vector) != s.dim {
		err := fmt.Errorf("%w: query has dimension %d, store expects %d",
			ErrDimensionMismatch, len(vector), s.dim)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	queryTokens := Tokenize(queryText)

	results := make([]SearchResult, 0, len(s.records))
	for _, r := range s.records {
		if !filter.Matches(r) {
			continue
		}
		sv := normalizedCosine(vector, r.Vector)
		sk := LexicalOverlap(queryTokens, Tokenize(r.Payload))
		results = append(results, SearchResult{
			Record:    r.Clone(),
			Score:     hybridScore(sv, sk, alpha),
			MatchType: hybridMatchType(sv, sk, alpha),
		})
	}

	sortResults(results)
	results = truncate(results, k)

	span.SetAttributes(attribute.Int("results_count", len(results)))
	span.SetStatus(codes.Ok, "success")

	return results, nil
}

// Delete removes records by ID. Missing IDs are ignored.
func (s *MemoryStore) Delete(ctx context.Context, ids []string) (int, error) {
	_, span := memoryTracer.Start(ctx, "MemoryStore.Delete")
	defer span.End()

	span.SetAttributes(attribute.Int("id_count", len(ids)))

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for _, id := range ids {
		if _, ok := s.records[id]; ok {
			delete(s.records, id)
			removed++
		}
	}

	span.SetAttributes(attribute.Int("records_removed", removed))
	span.SetStatus(codes.Ok, "success")

	s.logger.Debug("deleted records",
		zap.Int("requested", len(ids)),
		zap.Int("removed", removed),
	)

	return removed, nil
}

// Get returns a copy of the record with the given ID.
func (s *MemoryStore) Get(ctx context.Context, id string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.records[id]
	if !ok {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return r.Clone(), nil
}

// Stats returns the record count and established dimension.
func (s *MemoryStore) Stats(ctx context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Stats{
		RecordCount: len(s.records),
		Dimension:   s.dim,
	}, nil
}

// Clear removes all records. The established dimension is retained only if
// it was configured explicitly.
func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[string]Record)
	s.dim = s.config.VectorSize

	s.logger.Info("memory store cleared")
	return nil
}

// Close releases store resources. MemoryStore holds none.
func (s *MemoryStore) Close() error {
	return nil
}

// normalizedCosine maps cosine similarity from [-1,1] to [0,1]. Embedding
// magnitudes are not meaningful across modalities, so only direction counts.
func normalizedCosine(a, b []float32) float32 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	cos := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	return float32((cos + 1) / 2)
}

func hybridScore(sv, sk float32, alpha float64) float32 {
	score := float32(alpha)*sv + float32(1-alpha)*sk
	if score > 1 {
		score = 1
	}
	if score < 0 {
		score = 0
	}
	return score
}

// hybridMatchType attributes the result to its dominant weighted term.
func hybridMatchType(sv, sk float32, alpha float64) MatchType {
	wv := float64(sv) * alpha
	wk := float64(sk) * (1 - alpha)
	if math.Abs(wv-wk) < dominanceMargin {
		return MatchHybrid
	}
	if wv > wk {
		return MatchVector
	}
	return MatchKeyword
}

// sortResults orders by score descending, then Position ascending, then ID
// ascending. The total order makes repeated searches reproducible.
func sortResults(results []SearchResult) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if results[i].Record.Position != results[j].Record.Position {
			return results[i].Record.Position < results[j].Record.Position
		}
		return results[i].Record.ID < results[j].Record.ID
	})
}

func truncate(results []SearchResult, k int) []SearchResult {
	if len(results) > k {
		return results[:k]
	}
	return results
}

// Ensure MemoryStore implements Store interface.
var _ Store = (*MemoryStore)(nil)
