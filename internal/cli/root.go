// Package cli provides the command-line interface for DuckBridge.
package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	// Register plugin implementations.
	_ "github.com/leapstack-labs/duckbridge/internal/plugin/file"
	_ "github.com/leapstack-labs/duckbridge/internal/plugin/memory"
	_ "github.com/leapstack-labs/duckbridge/internal/plugin/postgres"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
)

var (
	cfgFile string
	verbose bool
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "duckbridge",
		Short: "DuckBridge - Data Materialization Coordinator",
		Long: `DuckBridge coordinates pluggable data-source and data-sink integrations
around a shared DuckDB handle.

It loads external datasets into queryable form through named plugins,
exports computed relations to external systems, and records every
operation in a local state database.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
Built with Go and DuckDB
`)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Path to config file (default: duckbridge.yaml in project root)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	rootCmd.AddCommand(newRunCommand())
	rootCmd.AddCommand(newHistoryCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// newLogger builds the CLI logger honoring the verbose flag.
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
