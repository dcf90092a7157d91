package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "hiveflow",
	Short: "Hive-mind task orchestration for Claude agents",
	Long: `Hiveflow runs objectives on a swarm of Claude agents coordinated
through a priority task queue.

Each task is planned as a three-phase pipeline (preparation, execution,
validation) and dispatched to one or more agents by capability. Parallel
tasks resolve on the first successful agent; consensus tasks put every
agent's result to a vote. Failed tasks are retried on alternative agents.

Core commands:
- init     scaffold a .hiveflow directory for the current project
- run      submit objectives and watch the swarm work them
- status   inspect swarms, agents, and tasks from the ledger
- memory   query the collective memory store
- pause    pause dispatch in a running hive (resume/stop likewise)`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(memoryCmd)
	rootCmd.AddCommand(pauseCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(versionCmd)
}
