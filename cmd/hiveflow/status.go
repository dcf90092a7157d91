package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/hiveworks/hiveflow/internal/state"
)

var statusSwarmID string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show swarm state from the ledger",
	Long: `Display the state of the most recent swarm.

Shows:
  - The swarm, its objective, and its agent roster
  - Task counts by status
  - Unresolved and recently resolved tasks

Use --swarm to inspect an older swarm by ID.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusSwarmID, "swarm", "", "Inspect a specific swarm by ID")
}

func runStatus(cmd *cobra.Command, args []string) error {
	dbPath, err := ledgerPath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Println("No hive ledger found. Run 'hiveflow run <objective>' to start.")
		return nil
	}

	db, err := state.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrate ledger: %w", err)
	}

	swarms, err := db.ListSwarms()
	if err != nil {
		return fmt.Errorf("list swarms: %w", err)
	}
	if len(swarms) == 0 {
		fmt.Println("No swarms recorded. Run 'hiveflow run <objective>' to start.")
		return nil
	}

	swarm := &swarms[0]
	if statusSwarmID != "" {
		swarm = nil
		for i := range swarms {
			if swarms[i].ID == statusSwarmID {
				swarm = &swarms[i]
				break
			}
		}
		if swarm == nil {
			return fmt.Errorf("swarm %s not found", statusSwarmID)
		}
	}

	if err := displaySwarm(db, swarm); err != nil {
		return err
	}

	fmt.Println()
	displayRecentSwarms(swarms, swarm.ID)
	return nil
}

// ledgerPath resolves the hive ledger: the configured project data
// directory first, the global database second.
func ledgerPath() (string, error) {
	dataDir, err := resolveDataDir()
	if err != nil {
		return "", err
	}
	dbPath := filepath.Join(dataDir, "hive.db")
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return state.GlobalDBPath(), nil
	}
	return dbPath, nil
}

func displaySwarm(db *state.DB, s *state.Swarm) error {
	elapsed := formatDuration(time.Since(s.CreatedAt))

	fmt.Printf("Swarm %s: %s\n", s.ID, s.Name)
	if s.Objective != "" {
		fmt.Printf("  Objective: %s\n", s.Objective)
	}
	fmt.Printf("  Created: %s ago\n", elapsed)

	agents, err := db.ListAgentsBySwarm(s.ID)
	if err != nil {
		return fmt.Errorf("list agents: %w", err)
	}
	busy := 0
	for _, a := range agents {
		if a.Status == "busy" {
			busy++
		}
	}
	fmt.Printf("  Agents: %d (%d busy)\n", len(agents), busy)

	tasks, err := db.ListTasksBySwarm(s.ID)
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}
	fmt.Printf("  Tasks: %s\n", taskCounts(tasks))

	displayAgents(agents)
	displayTasks(tasks)
	return nil
}

// taskCounts renders "2 pending, 1 in progress, 4 completed".
func taskCounts(tasks []state.Task) string {
	if len(tasks) == 0 {
		return "none"
	}
	counts := map[string]int{}
	for _, t := range tasks {
		counts[t.Status]++
	}
	order := []string{"pending", "in_progress", "completed", "failed", "cancelled"}
	var parts []string
	for _, status := range order {
		if n := counts[status]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, strings.ReplaceAll(status, "_", " ")))
		}
	}
	return strings.Join(parts, ", ")
}

func displayAgents(agents []state.Agent) {
	if len(agents) == 0 {
		return
	}
	fmt.Println()
	fmt.Println("Agents:")
	for _, a := range agents {
		caps := strings.Join(a.Capabilities, ", ")
		if caps == "" {
			caps = "general"
		}
		fmt.Printf("  %s  %-10s %s [%s]\n", a.ID, a.Role, statusLabel(a.Status), caps)
	}
}

func displayTasks(tasks []state.Task) {
	var open, resolved []state.Task
	for _, t := range tasks {
		switch t.Status {
		case "pending", "in_progress":
			open = append(open, t)
		default:
			resolved = append(resolved, t)
		}
	}

	if len(open) > 0 {
		fmt.Println()
		fmt.Println("Open Tasks:")
		for _, t := range open {
			extra := ""
			if t.Status == "in_progress" {
				extra = fmt.Sprintf(" %d%% (%d agent(s))", t.Progress, len(t.AssignedAgents))
			}
			fmt.Printf("  %s  %s \"%s\"%s\n", t.ID, statusLabel(t.Status), truncateLine(t.Description, 48), extra)
		}
	}

	if len(resolved) > 0 {
		if len(resolved) > 5 {
			resolved = resolved[len(resolved)-5:]
		}
		fmt.Println()
		fmt.Println("Recent Tasks:")
		for _, t := range resolved {
			detail := ""
			switch {
			case t.Status == "completed" && t.ExecutionMS > 0:
				detail = fmt.Sprintf(" in %s", formatDuration(time.Duration(t.ExecutionMS)*time.Millisecond))
			case t.Error != "":
				detail = ": " + truncateLine(t.Error, 40)
			}
			fmt.Printf("  %s  %s \"%s\"%s\n", t.ID, statusLabel(t.Status), truncateLine(t.Description, 48), detail)
		}
	}
}

func displayRecentSwarms(swarms []state.Swarm, currentID string) {
	var recent []state.Swarm
	for _, s := range swarms {
		if s.ID != currentID {
			recent = append(recent, s)
			if len(recent) >= 5 {
				break
			}
		}
	}
	if len(recent) == 0 {
		return
	}

	fmt.Println("Recent Swarms:")
	for _, s := range recent {
		elapsed := formatDuration(time.Since(s.CreatedAt))
		fmt.Printf("  %s: %s (%s ago)\n", s.ID, s.Name, elapsed)
	}
}

// statusLabel colors a ledger status for terminal output.
func statusLabel(status string) string {
	switch status {
	case "completed", "idle":
		return color.GreenString(status)
	case "in_progress", "busy":
		return color.CyanString(status)
	case "failed":
		return color.RedString(status)
	case "cancelled", "offline":
		return color.YellowString(status)
	default:
		return status
	}
}

func truncateLine(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		h := int(d.Hours())
		m := int(d.Minutes()) % 60
		if m > 0 {
			return fmt.Sprintf("%dh%dm", h, m)
		}
		return fmt.Sprintf("%dh", h)
	}
	days := int(d.Hours()) / 24
	return fmt.Sprintf("%dd", days)
}
