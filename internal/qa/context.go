package qa

import (
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/docqa/internal/vectorstore"
)

// buildContext concatenates result payloads in ranked order, each prefixed
// with its provenance tag, under a whitespace-word budget. Chunks that would
// exceed the budget are dropped whole, lowest ranked first; the top chunk is
// always included so the context is never empty.
func buildContext(results []vectorstore.SearchResult, maxWords int) string {
	var parts []string
	used := 0

	for i, r := range results {
		part := fmt.Sprintf("[%s, page %d]\n%s", r.Record.SourceDocID, r.Record.PageNumber, r.Record.Payload)
		words := len(strings.Fields(part))
		if i > 0 && used+words > maxWords {
			break
		}
		parts = append(parts, part)
		used += words
	}

	return strings.Join(parts, "\n\n")
}

// buildPrompt renders the generation prompt shared by all generator backends.
func buildPrompt(query, contextText string) string {
	return fmt.Sprintf(`Based on the following context from a document, please answer the user's question directly and concisely.

Context from the document:
%s

User's question: %s

Please provide a clear, direct answer based solely on the information in the context above. If the context doesn't contain enough information to answer the question, say so. Cite specific pages when relevant.`, contextText, query)
}
