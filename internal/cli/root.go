// Package cli implements the orgoals command line.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/seuros/orgoals/internal/logging"
)

// Version is stamped at build time with -ldflags "-X ...cli.Version=...".
var Version = "dev"

// Persistent flags shared by every subcommand.
var (
	flagDatabaseURL string
	flagAggregation string
)

// RootCmd is the orgoals entry point.
var RootCmd = &cobra.Command{
	Use:   "orgoals",
	Short: "Organizational hierarchy with goals that roll up to managers",
	Long: `orgoals keeps an org chart of persons and their numeric goals.

A goal set on a person propagates to every manager above them: each
manager's same-named goal is recomputed from their direct reports using
the configured aggregation policy (sum, average, max, min). Private goals
are kept out of the roll-up; locked goals keep their value.

Without a database_url the data lives in memory for the life of the process.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Version:       Version,
}

// Execute runs the root command.
func Execute() {
	defer func() { _ = logging.Sync() }()
	if err := RootCmd.Execute(); err != nil {
		logging.Fatal(err.Error())
	}
}

func init() {
	RootCmd.PersistentFlags().StringVar(&flagDatabaseURL, "database-url", "", "Database URL (postgres://..., sqlite://path); overrides config")
	RootCmd.PersistentFlags().StringVar(&flagAggregation, "aggregation", "", "Aggregation policy (sum, average, max, min); overrides config")
}
