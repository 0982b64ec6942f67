// Package cmd implements the reefguide command-line interface.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/oceanward/reefguide/internal/config"
	"github.com/oceanward/reefguide/internal/log"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "reefguide",
	Short: "Conversational scuba diving assistant",
	Long: `ReefGuide is a retrieval-augmented scuba diving assistant.

It answers diving questions over a curated knowledge base of dive
sites, training material, and safety guidance, keeping per-diver
conversation history and profiles in PostgreSQL.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig loads configuration for a command. Load validates
// fail-fast, so a returned config is usable as-is.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// newLogger builds the process logger from flags and environment.
func newLogger(cfg *config.Config) log.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return log.NewWithWriter(os.Stderr, log.Config{
		Level: level,
		JSON:  cfg.IsProduction(),
	})
}
