package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/docqa/internal/chunk"
)

var indexUpsert bool

// Document is the parser output format accepted by the index command. PDF
// parsing and OCR happen upstream; docqa consumes their structured output.
type Document struct {
	DocID string `json:"doc_id"`
	Pages []Page `json:"pages"`
}

// Page holds the parsed content of one document page.
type Page struct {
	Page   int          `json:"page"`
	Text   string       `json:"text,omitempty"`
	Tables [][][]string `json:"tables,omitempty"`
	Images []Image      `json:"images,omitempty"`
}

// Image is a parsed figure with its caption or OCR text.
type Image struct {
	Caption string `json:"caption"`
}

var indexCmd = &cobra.Command{
	Use:   "index <documents.json>",
	Short: "Chunk and index parsed documents",
	Long: `Index reads a JSON array of parsed documents, chunks each page's text,
tables, and image captions, embeds the chunks, and adds them to the store.

Example document file:

  [
    {
      "doc_id": "q3-report",
      "pages": [
        {"page": 1, "text": "Revenue grew 12% in Q3..."},
        {"page": 2, "tables": [[["Quarter", "Revenue"], ["Q3", "$4.2M"]]]}
      ]
    }
  ]`,
	Args: cobra.ExactArgs(1),
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&indexUpsert, "upsert", false, "replace existing chunks with matching ids")
}

func runIndex(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading documents file: %w", err)
	}

	var docs []Document
	if err := json.Unmarshal(data, &docs); err != nil {
		return fmt.Errorf("parsing documents file: %w", err)
	}

	var chunks []chunk.Chunk
	for _, doc := range docs {
		position := 0
		for _, page := range doc.Pages {
			textChunks := a.chunker.ChunkText(page.Text, doc.DocID, page.Page, position)
			chunks = append(chunks, textChunks...)
			position += len(textChunks)

			for _, table := range page.Tables {
				c, err := a.chunker.ChunkTable(table, doc.DocID, page.Page, position)
				if err != nil {
					return fmt.Errorf("document %s page %d: %w", doc.DocID, page.Page, err)
				}
				chunks = append(chunks, c)
				position++
			}

			for _, img := range page.Images {
				c, err := a.chunker.ChunkImage(img.Caption, doc.DocID, page.Page, position)
				if err != nil {
					return fmt.Errorf("document %s page %d: %w", doc.DocID, page.Page, err)
				}
				chunks = append(chunks, c)
				position++
			}
		}
	}

	if len(chunks) == 0 {
		return fmt.Errorf("no indexable content in %s", args[0])
	}

	added, err := a.indexer.Index(cmd.Context(), chunks, indexUpsert)
	if err != nil {
		return fmt.Errorf("indexing: %w", err)
	}

	if err := a.saveSnapshot(); err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}

	a.logger.Info("indexed documents",
		zap.Int("documents", len(docs)),
		zap.Int("chunks", added),
	)
	fmt.Fprintf(cmd.OutOrStdout(), "indexed %d chunks from %d documents\n", added, len(docs))
	return nil
}
