package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "cycles",
		Short:        "Recurring funding cycle engine for projects",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newAdvanceCmd())
	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newPauseCmd())
	rootCmd.AddCommand(newResumeCmd())
	rootCmd.AddCommand(newRecomputeCmd())
	rootCmd.AddCommand(newContributeCmd())
	return rootCmd
}
