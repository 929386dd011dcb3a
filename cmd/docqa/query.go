package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	queryK    int
	queryJSON bool
)

var queryCmd = &cobra.Command{
	Use:   "query <question>",
	Short: "Answer a question over the indexed documents",
	Long: `Query retrieves the most relevant chunks for the question and generates an
answer with cited sources. Without a configured generator the answer is
extracted directly from the top-ranked chunk.

Examples:
  docqa query "What was Q3 revenue growth?"
  docqa query --k 10 --json "Where did costs rise?"`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().IntVar(&queryK, "k", 0, "number of chunks to retrieve (0 = configured default)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "emit the full answer as JSON")
}

func runQuery(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	answer, err := a.engine.Answer(cmd.Context(), args[0], queryK)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if queryJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(answer)
	}

	fmt.Fprintln(out, answer.Text)
	fmt.Fprintf(out, "\nconfidence: %.2f  mode: %s  retrieval: %s  generation: %s\n",
		answer.Confidence, answer.GenerationMode, answer.RetrievalTime, answer.GenerationTime)
	if len(answer.Sources) > 0 {
		fmt.Fprintln(out, "sources:")
		for _, s := range answer.Sources {
			snippet := s.Snippet
			if len(snippet) > 80 {
				snippet = strings.TrimSpace(snippet[:80]) + "..."
			}
			fmt.Fprintf(out, "  - %s page %d (%s): %s\n", s.DocID, s.Page, s.Modality, snippet)
		}
	}
	return nil
}
