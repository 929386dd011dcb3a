package vectorstore

import "strings"

// stopwords are common English terms excluded from lexical overlap scoring.
var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"in": true, "on": true, "at": true, "to": true, "for": true, "of": true,
	"with": true, "by": true, "from": true, "as": true, "is": true, "was": true,
	"are": true, "be": true, "been": true, "being": true, "have": true, "has": true,
	"had": true, "do": true, "does": true, "did": true, "will": true, "would": true,
	"could": true, "should": true, "may": true, "might": true, "can": true, "this": true,
	"that": true, "these": true, "those": true, "i": true, "you": true, "he": true,
	"she": true, "it": true, "we": true, "they": true, "what": true, "which": true,
	"who": true, "when": true, "where": true, "why": true, "how": true,
}

// Tokenize splits text into lowercase alphanumeric terms, dropping stopwords
// and terms of two characters or fewer. Tokens containing a digit are exempt
// from the length filter so numeric entities ("12%", "Q3", "$4.2M") survive
// for exact-value matching.
func Tokenize(text string) []string {
	text = strings.ToLower(text)
	tokens := strings.FieldsFunc(text, func(r rune) bool {
		return !isAlphanumeric(r)
	})

	filtered := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if stopwords[token] {
			continue
		}
		if len(token) <= 2 && !hasDigit(token) {
			continue
		}
		filtered = append(filtered, token)
	}
	return filtered
}

func hasDigit(s string) bool {
	for _, r := range s {
		if r >= '0' && r <= '9' {
			return true
		}
	}
	return false
}

func isAlphanumeric(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9') || r == '_'
}

// LexicalOverlap returns the fraction of unique query tokens present in the
// document tokens, in [0,1].
func LexicalOverlap(queryTokens, docTokens []string) float32 {
	if len(queryTokens) == 0 {
		return 0
	}

	docSet := make(map[string]bool, len(docTokens))
	for _, t := range docTokens {
		docSet[t] = true
	}

	matched := 0
	counted := make(map[string]bool, len(queryTokens))
	unique := 0
	for _, qt := range queryTokens {
		if counted[qt] {
			continue
		}
		counted[qt] = true
		unique++
		if docSet[qt] {
			matched++
		}
	}

	return float32(matched) / float32(unique)
}
