package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/docqa/internal/eval"
)

var evalJSON bool

var evalCmd = &cobra.Command{
	Use:   "eval <queries.json>",
	Short: "Benchmark answer quality over a set of test queries",
	Long: `Eval runs each test query through the QA engine and scores the answer by
token overlap against the expected answer.

Example queries file:

  [
    {
      "question": "What was Q3 revenue growth?",
      "expected_answer": "Revenue grew 12% in Q3"
    }
  ]`,
	Args: cobra.ExactArgs(1),
	RunE: runEval,
}

func init() {
	evalCmd.Flags().BoolVar(&evalJSON, "json", false, "emit the full report as JSON")
}

func runEval(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading queries file: %w", err)
	}

	var queries []eval.TestQuery
	if err := json.Unmarshal(data, &queries); err != nil {
		return fmt.Errorf("parsing queries file: %w", err)
	}

	suite, err := eval.NewSuite(a.engine, a.logger)
	if err != nil {
		return err
	}

	report, err := suite.Run(cmd.Context(), queries)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if evalJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	for _, r := range report.Results {
		fmt.Fprintf(out, "%.2f  [%s]  %s\n", r.Accuracy, r.GenerationMode, r.Question)
	}
	fmt.Fprintf(out, "\nmean accuracy: %.2f  mean retrieval: %s  mean generation: %s\n",
		report.MeanAccuracy, report.MeanRetrieval, report.MeanGenerated)
	return nil
}
