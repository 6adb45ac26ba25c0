package main

import (
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(resetCmd)
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete the stored vectors of a snapshot",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rag, err := openHopRAG()
		if err != nil {
			return err
		}
		defer rag.Close()

		if err := rag.Reset(cmd.Context()); err != nil {
			return err
		}
		if humanOutput {
			outputHuman("Reset snapshot %s\n", rag.Config.Snapshot)
			return nil
		}
		return outputJSON(map[string]string{"status": "reset", "snapshot": rag.Config.Snapshot})
	},
}
