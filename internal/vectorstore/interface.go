package vectorstore

import "context"

// Store is the interface for vector index operations.
//
// Implementations must enforce one embedding dimension per store (the first
// successful Add establishes it), reject duplicate IDs unless upsert is
// requested, and rank deterministically: score descending, then Position
// ascending, then ID ascending. An empty store returns empty results for any
// search, never an error.
//
// Concurrency: searches may run in parallel; mutations (Add, Delete, Clear)
// are mutually exclusive with each other and with in-flight searches, so a
// reader observes either the pre- or post-mutation state, never a torn index.
//
// Implementations:
//   - MemoryStore: in-process index with snapshot persistence (default)
//   - ChromemStore: chromem-go embedded vector database
type Store interface {
	// Add inserts records. All vectors must match the store's dimension and
	// no ID may already exist unless upsert is true, in which case existing
	// records are replaced. Validation failures reject the whole batch
	// without mutating the store. Returns the number of records written.
	Add(ctx context.Context, records []Record, upsert bool) (int, error)

	// SimilaritySearch returns up to k results ranked by cosine similarity,
	// normalized to [0,1]. Records failing the filter are excluded before
	// ranking. Every result has MatchType MatchVector.
	SimilaritySearch(ctx context.Context, vector []float32, k int, filter Filter) ([]SearchResult, error)

	// HybridSearch combines normalized vector similarity Sv with lexical
	// overlap Sk between queryText and record payloads:
	//
	//	score = alpha*Sv + (1-alpha)*Sk, alpha in [0,1]
	//
	// MatchType reports the larger weighted term, or MatchHybrid when the
	// terms are within 0.05 of each other.
	HybridSearch(ctx context.Context, vector []float32, queryText string, k int, alpha float64, filter Filter) ([]SearchResult, error)

	// Delete removes records by ID and returns the number removed. Missing
	// IDs are silently ignored, making Delete idempotent.
	Delete(ctx context.Context, ids []string) (int, error)

	// Get returns a copy of the record with the given ID, or ErrNotFound.
	Get(ctx context.Context, id string) (Record, error)

	// Stats returns the record count and established dimension.
	Stats(ctx context.Context) (Stats, error)

	// Close releases store resources.
	Close() error
}
