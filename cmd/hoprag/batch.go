package main

import (
	"github.com/siherrmann/hoprag/core/evaluation"
	"github.com/siherrmann/hoprag/model"
	"github.com/spf13/cobra"
)

var (
	batchOutput  string
	batchMetrics string
)

func init() {
	batchCmd.Flags().StringVarP(&batchOutput, "output", "o", "", "Write predictions to this JSON file")
	batchCmd.Flags().StringVar(&batchMetrics, "metrics", "", "Write the evaluation report to this JSON file")
	rootCmd.AddCommand(batchCmd)
}

var batchCmd = &cobra.Command{
	Use:   "batch <questions>",
	Short: "Answer a question file and evaluate the predictions",
	Long: `Batch answers every question of a JSON file in order. Questions are
{"id", "question", "answer"} items, multi-hop QA files are read as well.

A failing question gets the placeholder answer and an error marker, it never
stops the batch. Items with a gold answer are scored with exact match,
token F1 and containment.

Examples:
  hoprag batch questions.json -o predictions.json --metrics metrics.json`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

// BatchResponse is the output of the batch command.
type BatchResponse struct {
	Predictions []*model.BatchItem `json:"predictions"`
	Metrics     *evaluation.Report `json:"metrics"`
}

func runBatch(cmd *cobra.Command, args []string) error {
	questions, err := model.LoadQuestions(args[0])
	if err != nil {
		return err
	}

	rag, err := openHopRAG()
	if err != nil {
		return err
	}
	defer rag.Close()

	if err := rag.Load(cmd.Context()); err != nil {
		return err
	}

	items := rag.AnswerBatch(cmd.Context(), questions)
	report := evaluation.EvaluateBatch(items)

	if batchOutput != "" {
		if err := writeJSONFile(batchOutput, items); err != nil {
			return err
		}
	}
	if batchMetrics != "" {
		if err := writeJSONFile(batchMetrics, report); err != nil {
			return err
		}
	}

	if humanOutput {
		outputHuman("Answered %d questions, %d failed\n", len(items), report.Failed)
		outputHuman("  exact match: %.3f\n", report.ExactMatch.Mean)
		outputHuman("  token F1:    %.3f\n", report.F1.Mean)
		outputHuman("  contains:    %.3f\n", report.ContainsExact.Mean)
		return nil
	}
	return outputJSON(BatchResponse{Predictions: items, Metrics: report})
}
