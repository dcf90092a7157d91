package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hiveworks/hiveflow/internal/config"
)

// resolveDataDir returns the absolute project data directory from the
// resolved configuration.
func resolveDataDir() (string, error) {
	cfg, err := config.Load()
	if err != nil {
		return "", fmt.Errorf("load config: %w", err)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}
	dataDir := cfg.Hive.DataDir
	if !filepath.IsAbs(dataDir) {
		dataDir = filepath.Join(cwd, dataDir)
	}
	return dataDir, nil
}
