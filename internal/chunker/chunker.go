package chunker

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/docqa/internal/chunk"
)

// Config controls chunk sizing.
type Config struct {
	// ChunkWords is the word budget per text chunk.
	ChunkWords int `koanf:"chunk_words"`

	// OverlapSentences is how many trailing sentences carry over into the
	// next chunk, preserving context across the boundary.
	OverlapSentences int `koanf:"overlap_sentences"`
}

// ApplyDefaults fills in zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.ChunkWords == 0 {
		c.ChunkWords = 512
	}
	if c.OverlapSentences == 0 {
		c.OverlapSentences = 2
	}
}

// Validate checks configuration bounds.
func (c *Config) Validate() error {
	if c.ChunkWords < 0 {
		return fmt.Errorf("chunk_words must be non-negative, got %d", c.ChunkWords)
	}
	if c.OverlapSentences < 0 {
		return fmt.Errorf("overlap_sentences must be non-negative, got %d", c.OverlapSentences)
	}
	return nil
}

// Chunker splits parsed document content into indexable chunks.
type Chunker struct {
	config Config
	logger *zap.Logger
}

// New creates a Chunker.
func New(config Config, logger *zap.Logger) (*Chunker, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &Chunker{config: config, logger: logger}, nil
}

// ChunkText splits text on sentence boundaries into chunks within the word
// budget. Adjacent chunks share the configured trailing-sentence overlap.
// Positions are assigned consecutively from startPosition. Whitespace-only
// input yields no chunks.
func (c *Chunker) ChunkText(text, sourceDocID string, pageNumber, startPosition int) []chunk.Chunk {
	sentences := SplitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []chunk.Chunk
	var current []string
	currentWords := 0

	emit := func() {
		chunks = append(chunks, chunk.Chunk{
			ID:          uuid.NewString(),
			Modality:    chunk.ModalityText,
			Content:     strings.Join(current, " "),
			SourceDocID: sourceDocID,
			PageNumber:  pageNumber,
			Position:    startPosition + len(chunks),
		})
	}

	for _, sentence := range sentences {
		words := len(strings.Fields(sentence))
		if currentWords+words > c.config.ChunkWords && len(current) > 0 {
			emit()

			overlap := current
			if len(overlap) > c.config.OverlapSentences {
				overlap = overlap[len(overlap)-c.config.OverlapSentences:]
			}
			current = append(append([]string{}, overlap...), sentence)
			currentWords = 0
			for _, s := range current {
				currentWords += len(strings.Fields(s))
			}
		} else {
			current = append(current, sentence)
			currentWords += words
		}
	}

	if len(current) > 0 {
		emit()
	}

	c.logger.Debug("chunked text",
		zap.String("source_doc_id", sourceDocID),
		zap.Int("page", pageNumber),
		zap.Int("sentences", len(sentences)),
		zap.Int("chunks", len(chunks)),
	)
	return chunks
}

// ChunkTable flattens a table into pipe-delimited text, one row per line,
// so cell values participate in lexical matching.
func (c *Chunker) ChunkTable(rows [][]string, sourceDocID string, pageNumber, position int) (chunk.Chunk, error) {
	if len(rows) == 0 {
		return chunk.Chunk{}, fmt.Errorf("chunking table: %w", chunk.ErrEmptyContent)
	}

	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, strings.Join(row, " | "))
	}

	return chunk.Chunk{
		ID:          uuid.NewString(),
		Modality:    chunk.ModalityTable,
		Content:     strings.Join(lines, "\n"),
		SourceDocID: sourceDocID,
		PageNumber:  pageNumber,
		Position:    position,
	}, nil
}

// ChunkImage wraps an image's caption or OCR text as an image chunk. The
// downstream embedder decides how image content is vectorized.
func (c *Chunker) ChunkImage(caption, sourceDocID string, pageNumber, position int) (chunk.Chunk, error) {
	if strings.TrimSpace(caption) == "" {
		return chunk.Chunk{}, fmt.Errorf("chunking image: %w", chunk.ErrEmptyContent)
	}

	return chunk.Chunk{
		ID:          uuid.NewString(),
		Modality:    chunk.ModalityImage,
		Content:     caption,
		SourceDocID: sourceDocID,
		PageNumber:  pageNumber,
		Position:    position,
	}, nil
}

var sentenceBoundaryRe = regexp.MustCompile(`[.!?]+\s+`)

// SplitSentences splits text at sentence-ending punctuation followed by
// whitespace, keeping the punctuation with its sentence.
func SplitSentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var sentences []string
	last := 0
	for _, loc := range sentenceBoundaryRe.FindAllStringIndex(text, -1) {
		cut := loc[0] + strings.IndexFunc(text[loc[0]:loc[1]], unicode.IsSpace)
		if s := strings.TrimSpace(text[last:cut]); s != "" {
			sentences = append(sentences, s)
		}
		last = loc[1]
	}
	if s := strings.TrimSpace(text[last:]); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}
