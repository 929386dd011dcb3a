package vectorstore

import (
	"errors"

	"github.com/fyrsmithlabs/docqa/internal/chunk"
)

// Sentinel errors for vector store operations.
var (
	// ErrDimensionMismatch is returned when a vector's length differs from
	// the store's established dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrDuplicateID is returned when adding a record whose ID already
	// exists and upsert was not requested.
	ErrDuplicateID = errors.New("duplicate record ID")

	// ErrNotFound is returned when a record ID does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrEmptyRecords indicates an empty or nil record batch.
	ErrEmptyRecords = errors.New("empty or nil records")

	// ErrInvalidRecord indicates a record missing required fields.
	ErrInvalidRecord = errors.New("invalid record")

	// ErrInvalidConfig indicates invalid store configuration.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// MatchType reports which signal dominated a search result's score.
type MatchType string

const (
	// MatchVector means the weighted vector-similarity term dominated.
	MatchVector MatchType = "vector"

	// MatchKeyword means the weighted lexical-overlap term dominated.
	MatchKeyword MatchType = "keyword"

	// MatchHybrid means both terms contributed within the dominance margin.
	MatchHybrid MatchType = "hybrid"
)

// Record is the stored unit: one embedded chunk with its payload and
// provenance. The store owns its records; callers only ever hold copies.
type Record struct {
	// ID is the record identifier, equal to the originating chunk's ID.
	ID string

	// Vector is the embedding. All vectors in one store share a dimension.
	Vector []float32

	// Payload is the original chunk content, possibly truncated for storage.
	Payload string

	// SourceDocID and PageNumber give provenance for source attribution.
	SourceDocID string
	PageNumber  int

	// Modality records which embedding sub-path produced the vector.
	Modality chunk.Modality

	// Position is the chunk's ordinal within its source document. It is the
	// first tie-break key for equal-score results.
	Position int

	// Metadata holds arbitrary caller-supplied tags usable in filters.
	Metadata map[string]string
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	out := r
	out.Vector = make([]float32, len(r.Vector))
	copy(out.Vector, r.Vector)
	if r.Metadata != nil {
		out.Metadata = make(map[string]string, len(r.Metadata))
		for k, v := range r.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

// SearchResult is one ranked retrieval hit.
type SearchResult struct {
	// Record is a copy of the stored record.
	Record Record

	// Score is normalized to [0,1]; higher is more relevant. Scores are
	// comparable across match types within one query.
	Score float32

	// MatchType reports the dominant scoring signal.
	MatchType MatchType
}

// Stats describes the current state of a store.
type Stats struct {
	// RecordCount is the number of stored records.
	RecordCount int

	// Dimension is the established embedding dimension, 0 if no record has
	// been added yet.
	Dimension int
}
