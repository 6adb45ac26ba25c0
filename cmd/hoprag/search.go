package main

import (
	"strings"

	"github.com/spf13/cobra"
)

var searchTopK int

func init() {
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "k", 0, "Number of passages to return (default retrieval.top_k)")
	rootCmd.AddCommand(searchCmd)
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Retrieve passages without generating an answer",
	Long: `Search runs the hybrid retriever of the stored snapshot and prints the
ranked passages with their dense, lexical and fused scores.

Examples:
  hoprag search radium
  hoprag search -k 10 --human "Nobel Prize in Chemistry"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	rag, err := openHopRAG()
	if err != nil {
		return err
	}
	defer rag.Close()

	if err := rag.Load(cmd.Context()); err != nil {
		return err
	}

	topK := searchTopK
	if topK <= 0 {
		topK = rag.Config.Retrieval.TopK
	}
	results, err := rag.Retrieve(cmd.Context(), strings.Join(args, " "), topK)
	if err != nil {
		return err
	}

	if humanOutput {
		for i, r := range results {
			outputHuman("%d. %s  score=%.3f dense=%.3f lexical=%.3f (%s)\n   %s\n",
				i+1, r.PassageID, r.Score, r.DenseScore, r.LexicalScore, r.RetrievalMethod, r.Text)
		}
		return nil
	}
	return outputJSON(results)
}
