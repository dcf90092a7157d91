package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hiveworks/hiveflow/internal/config"
)

func TestUpdateGitignore_CreatesFile(t *testing.T) {
	dir := t.TempDir()

	if err := updateGitignore(dir); err != nil {
		t.Fatalf("updateGitignore: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, ".gitignore"))
	if err != nil {
		t.Fatalf("read .gitignore: %v", err)
	}
	content := string(data)
	for _, entry := range []string{".hiveflow/*.db*", ".hiveflow/logs/", ".hiveflow/signals/"} {
		if !strings.Contains(content, entry) {
			t.Errorf(".gitignore missing %q", entry)
		}
	}
}

func TestUpdateGitignore_PreservesExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".gitignore")
	if err := os.WriteFile(path, []byte("node_modules/\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := updateGitignore(dir); err != nil {
		t.Fatalf("updateGitignore: %v", err)
	}

	data, _ := os.ReadFile(path)
	content := string(data)
	if !strings.Contains(content, "node_modules/") {
		t.Error("existing entries were dropped")
	}
	if !strings.Contains(content, ".hiveflow/logs/") {
		t.Error("hiveflow entries were not added")
	}

	// A second run must not duplicate entries.
	if err := updateGitignore(dir); err != nil {
		t.Fatalf("second updateGitignore: %v", err)
	}
	data, _ = os.ReadFile(path)
	if strings.Count(string(data), ".hiveflow/logs/") != 1 {
		t.Error("entries duplicated on reinit")
	}
}

func TestCreateAgentsConfig_TemplateParses(t *testing.T) {
	hiveDir := t.TempDir()

	if err := createAgentsConfig(hiveDir); err != nil {
		t.Fatalf("createAgentsConfig: %v", err)
	}

	specs, err := config.LoadAgentSpecs(filepath.Join(hiveDir, config.PresetFileName))
	if err != nil {
		t.Fatalf("template roster does not parse: %v", err)
	}
	if len(specs) != 5 {
		t.Errorf("expected 5 agents from the template, got %d", len(specs))
	}
}

func TestCreateProjectConfig_DoesNotOverwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".hiveflow.yaml")
	if err := os.WriteFile(path, []byte("executor:\n  max_retries: 9\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := createProjectConfig(dir); err != nil {
		t.Fatalf("createProjectConfig: %v", err)
	}

	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "max_retries: 9") {
		t.Error("existing project config was overwritten")
	}
}
