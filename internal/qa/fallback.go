package qa

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/fyrsmithlabs/docqa/internal/vectorstore"
)

// maxFallbackSentences bounds the extractive answer length.
const maxFallbackSentences = 3

// fallbackPreviewRunes bounds the answer when no sentence overlaps the query.
const fallbackPreviewRunes = 500

// Sentence punctuation only terminates a sentence when followed by
// whitespace or end of text, so decimals ("$4.2M") stay intact.
var sentenceSplitRe = regexp.MustCompile(`[.!?]+(?:\s+|$)`)

// extractAnswer deterministically extracts an answer from the top-ranked
// chunk: sentences sharing tokens with the query, in document order, followed
// by a page citation. It never fails; with no overlapping sentence it returns
// a bounded preview of the chunk instead.
func extractAnswer(queryText string, results []vectorstore.SearchResult) string {
	if len(results) == 0 {
		return NoContextAnswer
	}

	top := results[0].Record
	queryTokens := vectorstore.Tokenize(queryText)

	var relevant []string
	for _, sentence := range splitSentences(top.Payload) {
		if vectorstore.LexicalOverlap(queryTokens, vectorstore.Tokenize(sentence)) > 0 {
			relevant = append(relevant, sentence)
		}
		if len(relevant) == maxFallbackSentences {
			break
		}
	}

	if len(relevant) == 0 {
		preview := top.Payload
		if runes := []rune(preview); len(runes) > fallbackPreviewRunes {
			preview = string(runes[:fallbackPreviewRunes]) + "..."
		}
		return fmt.Sprintf("%s\n\n(Source: Page %d)", strings.TrimSpace(preview), top.PageNumber)
	}

	answer := strings.Join(relevant, ". ")
	if !strings.HasSuffix(answer, ".") {
		answer += "."
	}
	return fmt.Sprintf("%s\n\n(Source: Page %d)", answer, top.PageNumber)
}

// splitSentences breaks text on sentence punctuation, trimming whitespace and
// dropping empty fragments. Table rows (newline separated) count as sentences
// so table chunks remain extractable.
func splitSentences(text string) []string {
	var sentences []string
	for _, block := range strings.Split(text, "\n") {
		for _, s := range sentenceSplitRe.Split(block, -1) {
			s = strings.TrimSpace(s)
			if s != "" {
				sentences = append(sentences, s)
			}
		}
	}
	return sentences
}
