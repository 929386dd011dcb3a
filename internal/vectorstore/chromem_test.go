package vectorstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/docqa/internal/vectorstore"
)

func newTestChromemStore(t *testing.T) *vectorstore.ChromemStore {
	t.Helper()

	store, err := vectorstore.NewChromemStore(vectorstore.ChromemConfig{
		Collection: "test_chunks",
		VectorSize: 3,
	}, zap.NewNop())
	require.NoError(t, err)
	return store
}

func TestChromemConfig_ApplyDefaults(t *testing.T) {
	config := vectorstore.ChromemConfig{}
	config.ApplyDefaults()

	assert.Equal(t, "docqa_chunks", config.Collection)
	assert.Equal(t, 384, config.VectorSize)
}

func TestChromemStore_AddAndSearch(t *testing.T) {
	store := newTestChromemStore(t)
	ctx := context.Background()

	n, err := store.Add(ctx, []vectorstore.Record{
		testRecord("a", []float32{1, 0, 0}, "alpha record"),
		testRecord("b", []float32{0, 1, 0}, "beta record"),
	}, false)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	results, err := store.SimilaritySearch(ctx, []float32{1, 0, 0}, 1, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].Record.ID)
	assert.Equal(t, "alpha record", results[0].Record.Payload)
	assert.Equal(t, "doc-1", results[0].Record.SourceDocID)
	assert.Equal(t, 1, results[0].Record.PageNumber)
	assert.Equal(t, vectorstore.MatchVector, results[0].MatchType)
}

func TestChromemStore_RejectsDimensionMismatch(t *testing.T) {
	store := newTestChromemStore(t)

	_, err := store.Add(context.Background(), []vectorstore.Record{
		testRecord("a", []float32{1, 0}, "short"),
	}, false)
	assert.ErrorIs(t, err, vectorstore.ErrDimensionMismatch)
}

func TestChromemStore_RejectsDuplicateID(t *testing.T) {
	store := newTestChromemStore(t)
	ctx := context.Background()

	_, err := store.Add(ctx, []vectorstore.Record{
		testRecord("a", []float32{1, 0, 0}, "alpha"),
	}, false)
	require.NoError(t, err)

	_, err = store.Add(ctx, []vectorstore.Record{
		testRecord("a", []float32{0, 1, 0}, "again"),
	}, false)
	assert.ErrorIs(t, err, vectorstore.ErrDuplicateID)

	_, err = store.Add(ctx, []vectorstore.Record{
		testRecord("a", []float32{0, 1, 0}, "replaced"),
	}, true)
	require.NoError(t, err)

	got, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "replaced", got.Payload)
}

func TestChromemStore_EmptySearch(t *testing.T) {
	store := newTestChromemStore(t)

	results, err := store.SimilaritySearch(context.Background(), []float32{1, 0, 0}, 5, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestChromemStore_HybridSearch(t *testing.T) {
	store := newTestChromemStore(t)
	ctx := context.Background()

	_, err := store.Add(ctx, []vectorstore.Record{
		testRecord("vec", []float32{1, 0, 0}, "nothing shared lexically"),
		testRecord("kw", []float32{0, 1, 0}, "quarterly revenue growth"),
	}, false)
	require.NoError(t, err)

	results, err := store.HybridSearch(ctx, []float32{1, 0, 0}, "quarterly revenue growth", 2, 0.0, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "kw", results[0].Record.ID)
	assert.Equal(t, vectorstore.MatchKeyword, results[0].MatchType)
}

func TestChromemStore_FilterBeforeRanking(t *testing.T) {
	store := newTestChromemStore(t)
	ctx := context.Background()

	other := testRecord("best", []float32{1, 0, 0}, "belongs to another doc")
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

func TestChromemStore_DeleteIdempotent(t *testing.T) {
	store := newTestChromemStore(t)
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
}

func TestChromemStore_Stats(t *testing.T) {
	store := newTestChromemStore(t)
	ctx := context.Background()

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.RecordCount)
	assert.Equal(t, 3, stats.Dimension)

	_, err = store.Add(ctx, []vectorstore.Record{
		testRecord("a", []float32{1, 0, 0}, "alpha"),
	}, false)
	require.NoError(t, err)

	stats, err = store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.RecordCount)
}
