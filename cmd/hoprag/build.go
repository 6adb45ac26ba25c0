package main

import (
	"github.com/siherrmann/hoprag/model"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(buildCmd)
}

var buildCmd = &cobra.Command{
	Use:   "build <corpus>",
	Short: "Build the graph and passage index of a snapshot",
	Long: `Build reads a corpus, extracts entity mentions, builds the entity graph,
embeds the passages and replaces the snapshot.

The corpus is either a JSON file or a directory of .txt files. JSON files
hold a list of {"id", "text"} passages or multi-hop QA items whose context
is a list of [title, [sentences]] pairs.

Examples:
  hoprag build corpus.json
  hoprag build --snapshot hotpot hotpot_dev.json`,
	Args: cobra.ExactArgs(1),
	RunE: runBuild,
}

// BuildResponse is the output of the build command.
type BuildResponse struct {
	Snapshot  string   `json:"snapshot"`
	GraphPath string   `json:"graph_path,omitempty"`
	Passages  int      `json:"passages"`
	Indexed   int      `json:"indexed"`
	Skipped   []string `json:"skipped,omitempty"`
	Mentions  int      `json:"mentions"`
	Nodes     int      `json:"nodes"`
	Edges     int      `json:"edges"`
	BuildID   string   `json:"build_id"`
	Duration  string   `json:"duration"`
}

func runBuild(cmd *cobra.Command, args []string) error {
	passages, err := model.LoadCorpus(args[0])
	if err != nil {
		return err
	}

	rag, err := openHopRAG()
	if err != nil {
		return err
	}
	defer rag.Close()

	report, err := rag.Build(cmd.Context(), passages)
	if err != nil {
		return err
	}

	resp := BuildResponse{
		Snapshot:  report.Snapshot,
		GraphPath: report.GraphPath,
		Passages:  report.Passages,
		Indexed:   report.Index.Indexed,
		Skipped:   report.Index.Skipped,
		Mentions:  report.Mentions,
		Nodes:     report.Nodes,
		Edges:     report.Edges,
		BuildID:   report.Index.BuildID.String(),
		Duration:  report.Duration.String(),
	}
	if humanOutput {
		outputHuman("Built snapshot %s in %s\n", resp.Snapshot, resp.Duration)
		outputHuman("  passages: %d (%d indexed, %d skipped)\n", resp.Passages, resp.Indexed, len(resp.Skipped))
		outputHuman("  graph:    %d nodes, %d edges from %d mentions\n", resp.Nodes, resp.Edges, resp.Mentions)
		if resp.GraphPath != "" {
			outputHuman("  saved:    %s\n", resp.GraphPath)
		}
		return nil
	}
	return outputJSON(resp)
}
