package chunk_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fyrsmithlabs/docqa/internal/chunk"
)

func TestChunk_Validate(t *testing.T) {
	valid := chunk.Chunk{
		ID:          "c1",
		Modality:    chunk.ModalityText,
		Content:     "some content",
		SourceDocID: "doc-1",
		PageNumber:  1,
	}

	tests := []struct {
		name    string
		mutate  func(*chunk.Chunk)
		wantErr error
	}{
		{"valid", func(c *chunk.Chunk) {}, nil},
		{"missing id", func(c *chunk.Chunk) { c.ID = "" }, chunk.ErrMissingID},
		{"empty content", func(c *chunk.Chunk) { c.Content = "" }, chunk.ErrEmptyContent},
		{"whitespace content", func(c *chunk.Chunk) { c.Content = "  \n " }, chunk.ErrEmptyContent},
		{"unknown modality", func(c *chunk.Chunk) { c.Modality = "audio" }, chunk.ErrUnknownModality},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestModality_Valid(t *testing.T) {
	assert.True(t, chunk.ModalityText.Valid())
	assert.True(t, chunk.ModalityTable.Valid())
	assert.True(t, chunk.ModalityImage.Valid())
	assert.False(t, chunk.Modality("video").Valid())
}
