package main

import (
	"strings"

	"github.com/siherrmann/hoprag/model"
	"github.com/spf13/cobra"
)

var (
	neighborsHops      int
	neighborsDFS       bool
	neighborsEdgeTypes []string
)

func init() {
	neighborsCmd.Flags().IntVar(&neighborsHops, "hops", 1, "Maximum number of edges to follow")
	neighborsCmd.Flags().BoolVar(&neighborsDFS, "dfs", false, "Walk depth first instead of breadth first")
	neighborsCmd.Flags().StringSliceVar(&neighborsEdgeTypes, "edge-type", nil, "Only follow these edge types (contains, co_occurs)")
	rootCmd.AddCommand(neighborsCmd)
}

var neighborsCmd = &cobra.Command{
	Use:   "neighbors <node>",
	Short: "Walk the entity graph around a node",
	Long: `Neighbors lists the nodes of the stored snapshot graph that are reachable
from a node within the given number of hops. The node is either a node id
like passage:p1 or the text of an entity.

Examples:
  hoprag neighbors "Marie Curie"
  hoprag neighbors passage:p1 --hops 2 --dfs --human
  hoprag neighbors "Marie Curie" --edge-type co_occurs`,
	Args: cobra.MinimumNArgs(1),
	RunE: runNeighbors,
}

func runNeighbors(cmd *cobra.Command, args []string) error {
	rag, err := openHopRAG()
	if err != nil {
		return err
	}
	defer rag.Close()

	if err := rag.Load(cmd.Context()); err != nil {
		return err
	}

	edgeTypes := make([]model.EdgeType, 0, len(neighborsEdgeTypes))
	for _, t := range neighborsEdgeTypes {
		edgeTypes = append(edgeTypes, model.EdgeType(t))
	}

	results, err := rag.Neighbors(cmd.Context(), strings.Join(args, " "), neighborsHops, neighborsDFS, edgeTypes...)
	if err != nil {
		return err
	}

	if humanOutput {
		for _, r := range results {
			outputHuman("%s%s (%s) %s\n", strings.Repeat("  ", r.Distance), r.Node.ID, r.Node.Kind, r.Node.Text)
		}
		return nil
	}
	return outputJSON(results)
}
