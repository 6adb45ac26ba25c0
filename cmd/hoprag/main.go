// Package main provides the hoprag CLI entry point.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/siherrmann/hoprag"
	"github.com/siherrmann/hoprag/helper"
	"github.com/siherrmann/hoprag/model"
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags
var Version = "dev"

var (
	configPath  string
	envFile     string
	snapshot    string
	verbose     bool
	humanOutput bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "hoprag",
	Short: "Graph augmented retrieval for multi-hop questions",
	Long: `hoprag builds an entity graph and a hybrid passage index from a corpus
and answers multi-hop questions with the combined evidence.

The graph is stored as <data_dir>/<snapshot>.graph.json, passage vectors in
the configured vector store under the same snapshot name.
Commands print JSON unless --human is set.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a yaml config file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env", "", "Path to a .env file (default .env)")
	rootCmd.PersistentFlags().StringVarP(&snapshot, "snapshot", "s", "", "Snapshot name, overrides the config")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output")
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.Version = Version
}

// loadConfig reads the config file and environment and applies the flags.
func loadConfig() (model.Config, error) {
	if envFile != "" {
		helper.LoadEnv(envFile)
	} else {
		helper.LoadEnv()
	}

	config, err := model.LoadConfig(configPath)
	if err != nil {
		return config, err
	}
	if snapshot != "" {
		config.Snapshot = snapshot
	}
	return config, config.Validate()
}

// openHopRAG creates an instance for the current flags. Logs go to stderr
// so they never mix with the JSON output.
func openHopRAG() (*hoprag.HopRAG, error) {
	config, err := loadConfig()
	if err != nil {
		return nil, err
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(helper.NewPrettyHandler(os.Stderr, helper.PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{
			Level: level,
		},
	}))

	return hoprag.New(config, hoprag.Options{Logger: logger})
}
