package vectorstore_test

import (
	"context"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/docqa/internal/chunk"
	"github.com/fyrsmithlabs/docqa/internal/vectorstore"
)

func newTestMemoryStore(t *testing.T) *vectorstore.MemoryStore {
	t.Helper()

	store, err := vectorstore.NewMemoryStore(vectorstore.MemoryConfig{}, zap.NewNop())
	require.NoError(t, err)
	return store
}

func testRecord(id string, vector []float32, payload string) vectorstore.Record {
	return vectorstore.Record{
		ID:          id,
		Vector:      vector,
		Payload:     payload,
		SourceDocID: "doc-1",
		PageNumber:  1,
		Modality:    chunk.ModalityText,
	}
}

func TestMemoryStore_PayloadTruncationKeepsValidUTF8(t *testing.T) {
	store, err := vectorstore.NewMemoryStore(vectorstore.MemoryConfig{
		MaxPayloadBytes: 9,
	}, zap.NewNop())
	require.NoError(t, err)
	ctx := context.Background()

	// "héllo wörld" puts the two-byte ö across the 9-byte cut.
	_, err = store.Add(ctx, []vectorstore.Record{
		testRecord("a", []float32{1, 0, 0}, "héllo wörld"),
	}, false)
	require.NoError(t, err)

	got, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, utf8.ValidString(got.Payload))
	assert.LessOrEqual(t, len(got.Payload), 9)
	assert.Equal(t, "héllo w", got.Payload)
}

func TestMemoryStore_AddEstablishesDimension(t *testing.T) {
	store := newTestMemoryStore(t)
	ctx := context.Background()

	n, err := store.Add(ctx, []vectorstore.Record{
		testRecord("a", []float32{1, 0, 0}, "alpha"),
		testRecord("b", []float32{0, 1, 0}, "beta"),
	}, false)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Dimension)
	assert.Equal(t, 2, stats.RecordCount)
}

func TestMemoryStore_AddRejectsDimensionMismatch(t *testing.T) {
	store := newTestMemoryStore(t)
	ctx := context.Background()

	_, err := store.Add(ctx, []vectorstore.Record{
		testRecord("a", []float32{1, 0, 0}, "alpha"),
	}, false)
	require.NoError(t, err)

	// Mismatched batch must not partially mutate the store.
	_, err = store.Add(ctx, []vectorstore.Record{
		testRecord("b", []float32{0, 1, 0}, "beta"),
		testRecord("c", []float32{0, 1}, "gamma"),
	}, false)
	require.ErrorIs(t, err, vectorstore.ErrDimensionMismatch)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.RecordCount)

	_, err = store.Get(ctx, "b")
	assert.ErrorIs(t, err, vectorstore.ErrNotFound)
}

func TestMemoryStore_AddRejectsDuplicateID(t *testing.T) {
	store := newTestMemoryStore(t)
	ctx := context.Background()

	_, err := store.Add(ctx, []vectorstore.Record{
		testRecord("a", []float32{1, 0, 0}, "alpha"),
	}, false)
	require.NoError(t, err)

	_, err = store.Add(ctx, []vectorstore.Record{
		testRecord("a", []float32{0, 1, 0}, "other"),
	}, false)
	assert.ErrorIs(t, err, vectorstore.ErrDuplicateID)

	// Upsert replaces instead.
	n, err := store.Add(ctx, []vectorstore.Record{
		testRecord("a", []float32{0, 1, 0}, "replaced"),
	}, true)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "replaced", got.Payload)
}

func TestMemoryStore_AddRejectsDuplicateWithinBatch(t *testing.T) {
	store := newTestMemoryStore(t)

	_, err := store.Add(context.Background(), []vectorstore.Record{
		testRecord("a", []float32{1, 0, 0}, "alpha"),
		testRecord("a", []float32{0, 1, 0}, "again"),
	}, false)
	assert.ErrorIs(t, err, vectorstore.ErrDuplicateID)
}

func TestMemoryStore_AddRejectsMissingID(t *testing.T) {
	store := newTestMemoryStore(t)

	_, err := store.Add(context.Background(), []vectorstore.Record{
		testRecord("", []float32{1, 0, 0}, "anonymous"),
	}, false)
	assert.ErrorIs(t, err, vectorstore.ErrInvalidRecord)
}

func TestMemoryStore_AddEmptyBatch(t *testing.T) {
	store := newTestMemoryStore(t)

	_, err := store.Add(context.Background(), nil, false)
	assert.ErrorIs(t, err, vectorstore.ErrEmptyRecords)
}

func TestMemoryStore_SimilaritySearchEmptyStore(t *testing.T) {
	store := newTestMemoryStore(t)

	results, err := store.SimilaritySearch(context.Background(), []float32{1, 0, 0}, 5, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestMemoryStore_SimilaritySearchRanking(t *testing.T) {
	store := newTestMemoryStore(t)
	ctx := context.Background()

	_, err := store.Add(ctx, []vectorstore.Record{
		testRecord("exact", []float32{1, 0, 0}, "exact match"),
		testRecord("near", []float32{0.9, 0.1, 0}, "near match"),
		testRecord("far", []float32{0, 0, 1}, "unrelated"),
	}, false)
	require.NoError(t, err)

	results, err := store.SimilaritySearch(ctx, []float32{1, 0, 0}, 2, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "exact", results[0].Record.ID)
	assert.Equal(t, "near", results[1].Record.ID)
	assert.Equal(t, vectorstore.MatchVector, results[0].MatchType)
	assert.InDelta(t, 1.0, float64(results[0].Score), 1e-6)
	for _, r := range results {
		assert.GreaterOrEqual(t, r.Score, float32(0))
		assert.LessOrEqual(t, r.Score, float32(1))
	}
}

func TestMemoryStore_SearchDeterminism(t *testing.T) {
	store := newTestMemoryStore(t)
	ctx := context.Background()

	// Identical vectors: ranking must fall back to position, then ID.
	recA := testRecord("b-id", []float32{1, 0, 0}, "same payload")
	recA.Position = 2
	recB := testRecord("a-id", []float32{1, 0, 0}, "same payload")
	recB.Position = 2
	recC := testRecord("c-id", []float32{1, 0, 0}, "same payload")
	recC.Position = 1

	_, err := store.Add(ctx, []vectorstore.Record{recA, recB, recC}, false)
	require.NoError(t, err)

	first, err := store.SimilaritySearch(ctx, []float32{1, 0, 0}, 3, nil)
	require.NoError(t, err)
	require.Len(t, first, 3)

	// Lowest position wins, then lexicographic ID.
	assert.Equal(t, "c-id", first[0].Record.ID)
	assert.Equal(t, "a-id", first[1].Record.ID)
	assert.Equal(t, "b-id", first[2].Record.ID)

	for i := 0; i < 10; i++ {
		again, err := store.SimilaritySearch(ctx, []float32{1, 0, 0}, 3, nil)
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
}

func TestMemoryStore_SearchRejectsMismatchedQuery(t *testing.T) {
	store := newTestMemoryStore(t)
	ctx := context.Background()

	_, err := store.Add(ctx, []vectorstore.Record{
		testRecord("a", []float32{1, 0, 0}, "alpha"),
	}, false)
	require.NoError(t, err)

	_, err = store.SimilaritySearch(ctx, []float32{1, 0}, 5, nil)
	assert.ErrorIs(t, err, vectorstore.ErrDimensionMismatch)
}

func TestMemoryStore_FilterAppliedBeforeRanking(t *testing.T) {
	store := newTestMemoryStore(t)
	ctx := context.Background()

	// The best-scoring record belongs to another document; with k=1 and a
	// filter, the filtered runner-up must still be returned.
	other := testRecord("best", []float32{1, 0, 0}, "best but filtered")
	other.SourceDocID = "doc-2"
	mine := testRecord("mine", []float32{0.5, 0.5, 0}, "mine")

	_, err := store.Add(ctx, []vectorstore.Record{other, mine}, false)
	require.NoError(t, err)

	results, err := store.SimilaritySearch(ctx, []float32{1, 0, 0}, 1, vectorstore.Filter{
		vectorstore.FilterSourceDocID: "doc-1",
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "mine", results[0].Record.ID)
}

func TestMemoryStore_HybridSearchBlendsScores(t *testing.T) {
	store := newTestMemoryStore(t)
	ctx := context.Background()

	// "vec" is the vector favorite, "kw" the keyword favorite.
	vec := testRecord("vec", []float32{1, 0, 0}, "nothing in common lexically")
	kw := testRecord("kw", []float32{0, 1, 0}, "quarterly revenue growth report")

	_, err := store.Add(ctx, []vectorstore.Record{vec, kw}, false)
	require.NoError(t, err)

	query := []float32{1, 0, 0}

	// alpha=1: pure vector ranking.
	results, err := store.HybridSearch(ctx, query, "quarterly revenue growth", 2, 1.0, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "vec", results[0].Record.ID)
	assert.Equal(t, vectorstore.MatchVector, results[0].MatchType)

	// alpha=0: pure keyword ranking.
	results, err = store.HybridSearch(ctx, query, "quarterly revenue growth", 2, 0.0, nil)
	require.NoError(t, err)
	assert.Equal(t, "kw", results[0].Record.ID)
	assert.Equal(t, vectorstore.MatchKeyword, results[0].MatchType)
}

func TestMemoryStore_HybridMonotonicity(t *testing.T) {
	store := newTestMemoryStore(t)
	ctx := context.Background()

	semantic := testRecord("semantic", []float32{1, 0, 0}, "unrelated words entirely")
	lexical := testRecord("lexical", []float32{0, 0, 1}, "revenue growth third quarter")

	_, err := store.Add(ctx, []vectorstore.Record{semantic, lexical}, false)
	require.NoError(t, err)

	query := []float32{1, 0, 0}
	queryText := "revenue growth third quarter"

	rankOfSemantic := func(alpha float64) int {
		results, err := store.HybridSearch(ctx, query, queryText, 2, alpha, nil)
		require.NoError(t, err)
		for i, r := range results {
			if r.Record.ID == "semantic" {
				return i
			}
		}
		t.Fatalf("semantic record missing for alpha %v", alpha)
		return -1
	}

	// Raising alpha must never demote the high-vector-similarity record.
	prev := rankOfSemantic(0.0)
	for _, alpha := range []float64{0.25, 0.5, 0.75, 1.0} {
		rank := rankOfSemantic(alpha)
		assert.LessOrEqual(t, rank, prev, "alpha %v demoted the vector favorite", alpha)
		prev = rank
	}
	assert.Equal(t, 0, rankOfSemantic(1.0))
}

func TestMemoryStore_HybridSearchInvalidAlpha(t *testing.T) {
	store := newTestMemoryStore(t)

	_, err := store.HybridSearch(context.Background(), []float32{1, 0, 0}, "q", 5, 1.5, nil)
	assert.Error(t, err)
}

func TestMemoryStore_DeleteIdempotent(t *testing.T) {
	store := newTestMemoryStore(t)
	ctx := context.Background()

	_, err := store.Add(ctx, []vectorstore.Record{
		testRecord("a", []float32{1, 0, 0}, "alpha"),
	}, false)
	require.NoError(t, err)

	removed, err := store.Delete(ctx, []string{"a", "ghost"})
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	removed, err = store.Delete(ctx, []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, 0, removed)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.RecordCount)
}

func TestMemoryStore_GetReturnsCopy(t *testing.T) {
	store := newTestMemoryStore(t)
	ctx := context.Background()

	rec := testRecord("a", []float32{1, 0, 0}, "alpha")
	rec.Metadata = map[string]string{"team": "finance"}
	_, err := store.Add(ctx, []vectorstore.Record{rec}, false)
	require.NoError(t, err)

	got, err := store.Get(ctx, "a")
	require.NoError(t, err)

	// Mutating the returned copy must not affect the stored record.
	got.Vector[0] = 99
	got.Metadata["team"] = "tampered"

	again, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, float32(1), again.Vector[0])
	assert.Equal(t, "finance", again.Metadata["team"])
}

func TestMemoryStore_Clear(t *testing.T) {
	store := newTestMemoryStore(t)
	ctx := context.Background()

	_, err := store.Add(ctx, []vectorstore.Record{
		testRecord("a", []float32{1, 0, 0}, "alpha"),
	}, false)
	require.NoError(t, err)

	require.NoError(t, store.Clear(ctx))

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.RecordCount)
	assert.Equal(t, 0, stats.Dimension)

	// A different dimension is acceptable after Clear.
	_, err = store.Add(ctx, []vectorstore.Record{
		testRecord("b", []float32{1, 0}, "beta"),
	}, false)
	require.NoError(t, err)
}

func TestMemoryStore_ConcurrentReadsAndWrites(t *testing.T) {
	store := newTestMemoryStore(t)
	ctx := context.Background()

	_, err := store.Add(ctx, []vectorstore.Record{
		testRecord("seed", []float32{1, 0, 0}, "seed record"),
	}, false)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				results, err := store.SimilaritySearch(ctx, []float32{1, 0, 0}, 5, nil)
				assert.NoError(t, err)
				// Never observe a torn batch: results are whole records.
				for _, r := range results {
					assert.NotEmpty(t, r.Record.ID)
					assert.Len(t, r.Record.Vector, 3)
				}
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 50; j++ {
			id := string(rune('a' + j%26))
			_, _ = store.Add(ctx, []vectorstore.Record{
				testRecord(id, []float32{0, 1, 0}, "writer record"),
			}, true)
		}
	}()

	wg.Wait()
}
