package qa

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/docqa/internal/vectorstore"
)

func fallbackResult(payload string, page int) []vectorstore.SearchResult {
	return []vectorstore.SearchResult{{
		Record: vectorstore.Record{
			ID:          "r1",
			Payload:     payload,
			SourceDocID: "doc-a",
			PageNumber:  page,
		},
		Score: 0.9,
	}}
}

func TestExtractAnswer_PicksOverlappingSentences(t *testing.T) {
	payload := "The company was founded in 1999. Revenue grew 12% in Q3. Offices moved to Berlin."
	got := extractAnswer("What was the revenue growth?", fallbackResult(payload, 4))

	assert.Contains(t, got, "Revenue grew 12% in Q3")
	assert.NotContains(t, got, "founded in 1999")
	assert.NotContains(t, got, "Berlin")
	assert.Contains(t, got, "(Source: Page 4)")
}

func TestExtractAnswer_CapsSentenceCount(t *testing.T) {
	payload := "Revenue was up. Revenue was flat. Revenue was down. Revenue was stable. Revenue was high."
	got := extractAnswer("revenue", fallbackResult(payload, 1))

	// At most three sentences plus the citation line.
	count := 0
	for _, s := range splitSentences(got) {
		if s != "" {
			count++
		}
	}
	assert.LessOrEqual(t, count, maxFallbackSentences+1)
}

func TestExtractAnswer_NoOverlapFallsBackToPreview(t *testing.T) {
	payload := "Completely unrelated material about botany and gardening."
	got := extractAnswer("quarterly financials", fallbackResult(payload, 7))

	assert.Contains(t, got, "botany")
	assert.Contains(t, got, "(Source: Page 7)")
}

func TestExtractAnswer_TableRowsAreExtractable(t *testing.T) {
	payload := "Quarter | Revenue\nQ3 | $4.2M revenue figure"
	got := extractAnswer("What was the Q3 revenue?", fallbackResult(payload, 2))

	assert.Contains(t, got, "$4.2M")
	assert.Contains(t, got, "(Source: Page 2)")
}

func TestExtractAnswer_KeepsDecimalValuesIntact(t *testing.T) {
	payload := "Q3 Revenue: $4.2M. Expenses held flat through the quarter."
	got := extractAnswer("What was the Q3 revenue?", fallbackResult(payload, 1))

	assert.Contains(t, got, "Q3 Revenue: $4.2M")
}

func TestExtractAnswer_EmptyResults(t *testing.T) {
	got := extractAnswer("anything", nil)
	assert.Equal(t, NoContextAnswer, got)
}

func TestSplitSentences(t *testing.T) {
	got := splitSentences("One sentence. Another one! A third?\nA line without punctuation")
	require.Len(t, got, 4)
	assert.Equal(t, "One sentence", got[0])
	assert.Equal(t, "A line without punctuation", got[3])
}

func TestSplitSentences_PunctuationInsideTokens(t *testing.T) {
	got := splitSentences("Revenue hit $4.2M. Growth was 12%.")
	require.Len(t, got, 2)
	assert.Equal(t, "Revenue hit $4.2M", got[0])
	assert.Equal(t, "Growth was 12%", got[1])
}
