// Command trace_chunking embeds a document sentence by sentence and prints
// the semantic chunks the generation pipeline would feed to the graphs,
// together with the similarity between each pair of consecutive sentences.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "trace_chunking <file>",
	Short: "Show how a document is segmented and chunked",
	Long: `Segment a text or PDF file into sentences, embed them with the configured
provider and print the resulting semantic chunks.

Chunking options default to the CHUNK_* environment settings.

Example:
  trace_chunking notes/biology.pdf --min 2 --max 6 --overlap 1 --threshold 0.75`,
	Args:         cobra.ExactArgs(1),
	RunE:         runTrace,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
