package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/hiveworks/hiveflow/internal/config"
	"github.com/hiveworks/hiveflow/internal/control"
)

var (
	initForce       bool
	initWithConfigs bool
)

var initCmd = &cobra.Command{
	Use:   "init [directory]",
	Short: "Initialize a hiveflow project",
	Long: `Initialize a directory for use with hiveflow.

This command sets up everything needed to run a hive:
  - Creates the .hiveflow directory structure (logs, signals)
  - Updates .gitignore with hiveflow entries
  - Optionally creates example configuration files

The directory argument is optional and defaults to the current directory.

Examples:
  hiveflow init                  # Initialize current directory
  hiveflow init ./myproject      # Initialize specific directory
  hiveflow init --force          # Reinitialize even if already set up
  hiveflow init --with-configs   # Create .hiveflow.yaml and agents.yaml templates`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Reinitialize even if already set up")
	initCmd.Flags().BoolVar(&initWithConfigs, "with-configs", false, "Create example configuration files")
}

func runInit(cmd *cobra.Command, args []string) error {
	targetDir := "."
	if len(args) > 0 {
		targetDir = args[0]
	}

	absPath, err := filepath.Abs(targetDir)
	if err != nil {
		return fmt.Errorf("resolving absolute path: %w", err)
	}
	if err := os.MkdirAll(absPath, 0755); err != nil {
		return fmt.Errorf("creating directory %s: %w", absPath, err)
	}

	fmt.Printf("Initializing hiveflow in %s...\n\n", absPath)

	hiveDir := filepath.Join(absPath, ".hiveflow")
	if _, err := os.Stat(hiveDir); err == nil && !initForce {
		fmt.Printf("Directory already initialized. Use --force to reinitialize.\n")
		return nil
	}

	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		printStatus("⚠", "ANTHROPIC_API_KEY not set (you can set it later, or use --dry-run)", color.FgYellow)
	} else {
		printStatus("✓", "ANTHROPIC_API_KEY is set", color.FgGreen)
	}

	for _, dir := range []string{
		hiveDir,
		filepath.Join(hiveDir, "logs"),
		control.SignalsDir(hiveDir),
	} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	printStatus("✓", "Created .hiveflow directory structure", color.FgGreen)

	if err := updateGitignore(absPath); err != nil {
		return fmt.Errorf("updating .gitignore: %w", err)
	}
	printStatus("✓", "Updated .gitignore with hiveflow entries", color.FgGreen)

	if initWithConfigs {
		if err := createProjectConfig(absPath); err != nil {
			return fmt.Errorf("creating project config: %w", err)
		}
		printStatus("✓", "Created .hiveflow.yaml template", color.FgGreen)

		if err := createAgentsConfig(hiveDir); err != nil {
			return fmt.Errorf("creating agents config: %w", err)
		}
		printStatus("✓", "Created .hiveflow/agents.yaml roster", color.FgGreen)
	}

	fmt.Printf("\n%s hiveflow initialization complete!\n\n", color.GreenString("✓"))
	fmt.Println("Next steps:")
	if apiKey == "" {
		fmt.Println("  1. Set your API key:")
		fmt.Println("     export ANTHROPIC_API_KEY=your-key-here")
		fmt.Println()
	}
	fmt.Println("  2. Run an objective:")
	fmt.Println("     hiveflow run \"your objective here\"")
	fmt.Println()
	fmt.Println("  3. Learn more:")
	fmt.Println("     hiveflow --help")
	fmt.Println()
	fmt.Printf("Project: %s\n", filepath.Base(absPath))

	return nil
}

// updateGitignore adds hiveflow entries to .gitignore if not present
func updateGitignore(repoPath string) error {
	gitignorePath := filepath.Join(repoPath, ".gitignore")

	var existingContent string
	if data, err := os.ReadFile(gitignorePath); err == nil {
		existingContent = string(data)
	}

	hiveEntries := []string{
		".hiveflow/*.db*",
		".hiveflow/logs/",
		".hiveflow/signals/",
		"hiveflow",
	}

	needsUpdate := false
	for _, entry := range hiveEntries {
		if !strings.Contains(existingContent, entry) {
			needsUpdate = true
			break
		}
	}
	if !needsUpdate {
		return nil
	}

	var newContent strings.Builder
	newContent.WriteString(existingContent)
	if len(existingContent) > 0 && !strings.HasSuffix(existingContent, "\n") {
		newContent.WriteString("\n")
	}
	newContent.WriteString("\n# hiveflow\n")
	for _, entry := range hiveEntries {
		if !strings.Contains(existingContent, entry) {
			newContent.WriteString(entry + "\n")
		}
	}

	return os.WriteFile(gitignorePath, []byte(newContent.String()), 0644)
}

// createProjectConfig creates a .hiveflow.yaml template
func createProjectConfig(repoPath string) error {
	configPath := filepath.Join(repoPath, ".hiveflow.yaml")
	if _, err := os.Stat(configPath); err == nil {
		return nil // Already exists, don't overwrite
	}

	template := `# hiveflow project configuration
# This file overrides defaults from ~/.config/hiveflow/config.yaml

# executor:
#   max_concurrent_tasks: 10
#   task_timeout: 30m
#   max_retries: 2

# consensus:
#   threshold: 0.5

# anthropic:
#   model: claude-sonnet-4-20250514
#   use_bedrock: false
`

	return os.WriteFile(configPath, []byte(template), 0644)
}

// createAgentsConfig creates an agents.yaml roster template
func createAgentsConfig(hiveDir string) error {
	rosterPath := filepath.Join(hiveDir, config.PresetFileName)
	if _, err := os.Stat(rosterPath); err == nil {
		return nil // Already exists, don't overwrite
	}

	template := `# hiveflow agent roster
# Each entry fields "count" agents of the given role. Capabilities
# gate which tasks an agent may be assigned.

agents:
  - role: researcher
    count: 1
    capabilities: [research, analysis]
  - role: coder
    count: 2
    capabilities: [code, test]
  - role: analyst
    count: 1
    capabilities: [analysis, review]
  - role: tester
    count: 1
    capabilities: [test, quality_assurance]
`

	return os.WriteFile(rosterPath, []byte(template), 0644)
}

// printStatus prints a status line with color
func printStatus(symbol, message string, colorAttr color.Attribute) {
	c := color.New(colorAttr)
	fmt.Printf("%s %s\n", c.Sprint(symbol), message)
}
