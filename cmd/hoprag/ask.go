package main

import (
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(askCmd)
}

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a question from the stored snapshot",
	Long: `Ask loads the snapshot and answers one question. The output holds the
answer together with the vector and graph context it was generated from.

Examples:
  hoprag ask "Which university did the husband of Marie Curie teach at?"
  hoprag ask --human --snapshot hotpot "Who directed the film?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func runAsk(cmd *cobra.Command, args []string) error {
	rag, err := openHopRAG()
	if err != nil {
		return err
	}
	defer rag.Close()

	if err := rag.Load(cmd.Context()); err != nil {
		return err
	}

	answer, err := rag.AnswerDetailed(cmd.Context(), strings.Join(args, " "))
	if humanOutput {
		outputHuman("Q: %s\nA: %s\n", answer.Question, answer.FinalAnswer)
		if len(answer.MatchedEntities) > 0 {
			outputHuman("\nEntities: %s\n", strings.Join(answer.MatchedEntities, ", "))
		}
		return err
	}
	if outErr := outputJSON(answer); outErr != nil {
		return outErr
	}
	return err
}
