package qa

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/docqa/internal/vectorstore"
)

func contextResult(docID string, page int, payload string) vectorstore.SearchResult {
	return vectorstore.SearchResult{
		Record: vectorstore.Record{
			ID:          docID,
			Payload:     payload,
			SourceDocID: docID,
			PageNumber:  page,
		},
	}
}

func TestBuildContext_ProvenanceTags(t *testing.T) {
	results := []vectorstore.SearchResult{
		contextResult("doc-a", 1, "Revenue grew 12% in Q3."),
		contextResult("doc-b", 3, "Cloud costs increased."),
	}

	got := buildContext(results, 1200)

	assert.Contains(t, got, "[doc-a, page 1]\nRevenue grew 12% in Q3.")
	assert.Contains(t, got, "[doc-b, page 3]\nCloud costs increased.")
	assert.Less(t, strings.Index(got, "doc-a"), strings.Index(got, "doc-b"),
		"higher-ranked chunk comes first")
}

func TestBuildContext_DropsWholeChunksPastBudget(t *testing.T) {
	long := strings.Repeat("word ", 50)
	results := []vectorstore.SearchResult{
		contextResult("doc-a", 1, long),
		contextResult("doc-b", 1, long),
		contextResult("doc-c", 1, long),
	}

	// Budget fits roughly two chunks; the third is dropped whole.
	got := buildContext(results, 110)

	assert.Contains(t, got, "doc-a")
	assert.Contains(t, got, "doc-b")
	assert.NotContains(t, got, "doc-c")
}

func TestBuildContext_TopChunkAlwaysIncluded(t *testing.T) {
	results := []vectorstore.SearchResult{
		contextResult("doc-a", 1, strings.Repeat("word ", 100)),
	}

	got := buildContext(results, 10)
	assert.Contains(t, got, "doc-a")
}

func TestBuildPrompt_ContainsQueryAndContext(t *testing.T) {
	got := buildPrompt("What was Q3 revenue?", "[doc-a, page 1]\nRevenue grew 12%.")

	require.Contains(t, got, "What was Q3 revenue?")
	require.Contains(t, got, "Revenue grew 12%.")
	assert.Contains(t, got, "based solely on the information")
}
