package vectorstore_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fyrsmithlabs/docqa/internal/vectorstore"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "drops stopwords and short tokens",
			text: "What was the revenue at an RD event?",
			want: []string{"revenue", "event"},
		},
		{
			name: "keeps numeric entities",
			text: "Revenue grew 12% to $4.2M in Q3 2024",
			want: []string{"revenue", "grew", "12", "4", "2m", "q3", "2024"},
		},
		{
			name: "short tokens with digits survive",
			text: "Q3 revenue was 12%",
			want: []string{"q3", "revenue", "12"},
		},
		{
			name: "lowercases and splits punctuation",
			text: "Cloud-Costs increased;significantly",
			want: []string{"cloud", "costs", "increased", "significantly"},
		},
		{
			name: "empty input",
			text: "",
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, vectorstore.Tokenize(tt.text))
		})
	}
}

func TestLexicalOverlap(t *testing.T) {
	tests := []struct {
		name  string
		query []string
		doc   []string
		want  float32
	}{
		{
			name:  "full overlap",
			query: []string{"revenue", "growth"},
			doc:   []string{"revenue", "growth", "report"},
			want:  1.0,
		},
		{
			name:  "partial overlap",
			query: []string{"revenue", "growth"},
			doc:   []string{"revenue", "costs"},
			want:  0.5,
		},
		{
			name:  "no overlap",
			query: []string{"revenue"},
			doc:   []string{"weather"},
			want:  0.0,
		},
		{
			name:  "duplicate query tokens counted once",
			query: []string{"revenue", "revenue", "growth"},
			doc:   []string{"revenue"},
			want:  0.5,
		},
		{
			name:  "empty query",
			query: nil,
			doc:   []string{"revenue"},
			want:  0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, vectorstore.LexicalOverlap(tt.query, tt.doc), 1e-6)
		})
	}
}
