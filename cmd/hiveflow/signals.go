package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hiveworks/hiveflow/internal/control"
)

// The pause/resume/stop commands drop signal files that a running
// 'hiveflow run' picks up through its signal watcher. They act on the
// hive in the current project's data directory.

var pauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause dispatch in the running hive",
	Long: `Pause the hive running in this project.

Queued tasks stay queued and no new work is dispatched until
'hiveflow resume'. Tasks already in flight run to completion.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dataDir, err := resolveDataDir()
		if err != nil {
			return err
		}
		if err := control.SendPause(dataDir); err != nil {
			return err
		}
		fmt.Println("Pause signal sent.")
		return nil
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume dispatch in a paused hive",
	RunE: func(cmd *cobra.Command, args []string) error {
		dataDir, err := resolveDataDir()
		if err != nil {
			return err
		}
		if err := control.SendResume(dataDir); err != nil {
			return err
		}
		fmt.Println("Resume signal sent.")
		return nil
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running hive",
	Long: `Stop the hive running in this project.

The run shuts down gracefully: unresolved tasks are cancelled and the
ledger keeps their final state.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dataDir, err := resolveDataDir()
		if err != nil {
			return err
		}
		if err := control.SendKill(dataDir); err != nil {
			return err
		}
		fmt.Println("Stop signal sent.")
		return nil
	},
}
