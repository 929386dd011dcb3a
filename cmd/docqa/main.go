// Package main implements the docqa CLI: indexing parsed documents, querying
// them, and benchmarking answer quality.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// configPath is the YAML configuration file, empty for defaults plus
	// environment variables.
	configPath string
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "docqa",
	Short: "Question answering over parsed documents",
	Long: `docqa indexes pre-parsed documents (text, tables, image captions) into a
hybrid vector index and answers questions over them with cited sources.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(evalCmd)
	rootCmd.AddCommand(statsCmd)
}
