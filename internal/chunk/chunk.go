// Package chunk defines the document chunk model shared by the chunker,
// embedding, and indexing layers.
package chunk

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for chunk validation.
var (
	// ErrEmptyContent is returned when a chunk has no content.
	ErrEmptyContent = errors.New("chunk content is empty")

	// ErrMissingID is returned when a chunk has no identifier.
	ErrMissingID = errors.New("chunk ID is required")

	// ErrUnknownModality is returned for a modality outside {text, table, image}.
	ErrUnknownModality = errors.New("unknown chunk modality")
)

// Modality identifies which embedding sub-path processes a chunk's content.
type Modality string

const (
	// ModalityText is plain prose extracted from a document.
	ModalityText Modality = "text"

	// ModalityTable is a table flattened to pipe-delimited text.
	ModalityTable Modality = "table"

	// ModalityImage is an image, represented by its caption or OCR text.
	ModalityImage Modality = "image"
)

// Valid reports whether the modality is one of the known variants.
func (m Modality) Valid() bool {
	switch m {
	case ModalityText, ModalityTable, ModalityImage:
		return true
	}
	return false
}

// Chunk is the unit handed to the indexing step by the chunker.
//
// Modality determines which embedding sub-path processes Content. Chunks are
// consumed once at indexing time and not retained by the core.
type Chunk struct {
	// ID is a unique, stable identifier for the chunk.
	ID string

	// Modality is the content variant: text, table, or image.
	Modality Modality

	// Content is the raw text, table text, or image caption/OCR text.
	Content string

	// SourceDocID identifies the originating document.
	SourceDocID string

	// PageNumber is the 1-based page the chunk was extracted from.
	PageNumber int

	// Position is the chunk's ordinal within the source document.
	Position int
}

// Validate checks the chunk invariants: non-empty ID and content, and a
// known modality.
func (c Chunk) Validate() error {
	if c.ID == "" {
		return ErrMissingID
	}
	if strings.TrimSpace(c.Content) == "" {
		return fmt.Errorf("%w: chunk %s", ErrEmptyContent, c.ID)
	}
	if !c.Modality.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownModality, c.Modality)
	}
	return nil
}
