// Package config handles configuration loading and management for hiveflow.
// It supports XDG config paths, project-level overrides, and environment
// variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for hiveflow.
type Config struct {
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Executor  ExecutorConfig  `mapstructure:"executor"`
	Consensus ConsensusConfig `mapstructure:"consensus"`
	Hive      HiveConfig      `mapstructure:"hive"`
	TUI       TUIConfig       `mapstructure:"tui"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	APIKey string `mapstructure:"api_key"`
	// Model overrides the default model when non-empty.
	Model string `mapstructure:"model"`
	// UseBedrock routes API calls through AWS Bedrock instead of the
	// Anthropic API directly.
	UseBedrock bool   `mapstructure:"use_bedrock"`
	AWSRegion  string `mapstructure:"aws_region"`
	AWSProfile string `mapstructure:"aws_profile"`
}

// ExecutorConfig holds task scheduler settings.
type ExecutorConfig struct {
	// MaxConcurrentTasks bounds how many tasks execute at once.
	MaxConcurrentTasks int `mapstructure:"max_concurrent_tasks"`
	// TaskTimeout is the per-task execution deadline.
	TaskTimeout time.Duration `mapstructure:"task_timeout"`
	// ProgressInterval is the progress-report tick period.
	ProgressInterval time.Duration `mapstructure:"progress_interval"`
	// MaxRetries is how many agent substitutions a failing task gets
	// before it terminates as failed.
	MaxRetries int `mapstructure:"max_retries"`
	// RetryFailedTasks toggles retry-with-substitution entirely.
	RetryFailedTasks bool `mapstructure:"retry_failed_tasks"`
	// MaxQueueDepth bounds the pending queue. Zero means unbounded.
	MaxQueueDepth int `mapstructure:"max_queue_depth"`
	// CompletedHistory bounds the retained completed-task table.
	CompletedHistory int `mapstructure:"completed_history"`
}

// ConsensusConfig holds consensus voting settings.
type ConsensusConfig struct {
	// Threshold is the approval ratio required to achieve consensus,
	// in (0, 1].
	Threshold float64 `mapstructure:"threshold"`
}

// HiveConfig holds collective state settings.
type HiveConfig struct {
	// DataDir is where the ledger, memory store, logs, and signal
	// files live. Relative paths resolve against the working directory.
	DataDir string `mapstructure:"data_dir"`
}

// TUIConfig holds TUI display settings.
type TUIConfig struct {
	RefreshRate time.Duration `mapstructure:"refresh_rate"`
}

// Load loads configuration from XDG paths, project overrides, and environment
// variables. Precedence (highest to lowest):
// 1. Environment variables (ANTHROPIC_API_KEY, HIVEFLOW_*)
// 2. Project config (.hiveflow.yaml in current directory or parent)
// 3. User config (~/.config/hiveflow/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Load user config from XDG path
	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	// Load project config if present
	projectConfig := findProjectConfig()
	if projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			// Merge project config (takes precedence)
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	// Environment variable overrides: HIVEFLOW_EXECUTOR_MAX_RETRIES
	// overrides executor.max_retries, and so on.
	v.SetEnvPrefix("HIVEFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Map specific environment variables
	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Expand ${VAR} references
	cfg.Anthropic.APIKey = expandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = expandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

// Save writes the current configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath := filepath.Join(userConfigDir, "config.yaml")

	v := viper.New()
	v.SetConfigFile(configPath)

	v.Set("anthropic.api_key", cfg.Anthropic.APIKey)
	v.Set("anthropic.model", cfg.Anthropic.Model)
	v.Set("anthropic.use_bedrock", cfg.Anthropic.UseBedrock)
	v.Set("anthropic.aws_region", cfg.Anthropic.AWSRegion)
	v.Set("anthropic.aws_profile", cfg.Anthropic.AWSProfile)
	v.Set("executor.max_concurrent_tasks", cfg.Executor.MaxConcurrentTasks)
	v.Set("executor.task_timeout", cfg.Executor.TaskTimeout.String())
	v.Set("executor.progress_interval", cfg.Executor.ProgressInterval.String())
	v.Set("executor.max_retries", cfg.Executor.MaxRetries)
	v.Set("executor.retry_failed_tasks", cfg.Executor.RetryFailedTasks)
	v.Set("executor.max_queue_depth", cfg.Executor.MaxQueueDepth)
	v.Set("executor.completed_history", cfg.Executor.CompletedHistory)
	v.Set("consensus.threshold", cfg.Consensus.Threshold)
	v.Set("hive.data_dir", cfg.Hive.DataDir)
	v.Set("tui.refresh_rate", cfg.TUI.RefreshRate.String())

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it
// exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	// Anthropic defaults
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.model", "")
	v.SetDefault("anthropic.use_bedrock", false)
	v.SetDefault("anthropic.aws_region", "")
	v.SetDefault("anthropic.aws_profile", "")

	// Executor defaults
	v.SetDefault("executor.max_concurrent_tasks", 10)
	v.SetDefault("executor.task_timeout", "30m")
	v.SetDefault("executor.progress_interval", "5s")
	v.SetDefault("executor.max_retries", 2)
	v.SetDefault("executor.retry_failed_tasks", true)
	v.SetDefault("executor.max_queue_depth", 0)
	v.SetDefault("executor.completed_history", 100)

	// Consensus defaults
	v.SetDefault("consensus.threshold", 0.5)

	// Hive defaults
	v.SetDefault("hive.data_dir", ".hiveflow")

	// TUI defaults
	v.SetDefault("tui.refresh_rate", "100ms")
}

// getUserConfigDir returns the XDG config directory for hiveflow.
func getUserConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "hiveflow")
	}

	// Fall back to ~/.config/hiveflow
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "hiveflow")
	}
	return filepath.Join(home, ".config", "hiveflow")
}

// findProjectConfig searches for .hiveflow.yaml in the current directory and
// parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".hiveflow.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// expandEnv expands ${VAR} references in a string.
func expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Anthropic: AnthropicConfig{},
		Executor: ExecutorConfig{
			MaxConcurrentTasks: 10,
			TaskTimeout:        30 * time.Minute,
			ProgressInterval:   5 * time.Second,
			MaxRetries:         2,
			RetryFailedTasks:   true,
			MaxQueueDepth:      0,
			CompletedHistory:   100,
		},
		Consensus: ConsensusConfig{
			Threshold: 0.5,
		},
		Hive: HiveConfig{
			DataDir: ".hiveflow",
		},
		TUI: TUIConfig{
			RefreshRate: 100 * time.Millisecond,
		},
	}
}
