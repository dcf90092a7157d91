package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hiveworks/hiveflow/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify hiveflow configuration.

Without arguments, displays current configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the configuration value.

Configuration is stored at ~/.config/hiveflow/config.yaml
Project-specific overrides can be placed in .hiveflow.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}

		switch len(args) {
		case 0:
			displayAllConfig(cfg)
		case 1:
			displayConfigKey(cfg, args[0])
		default:
			setConfigKey(cfg, args[0], args[1])
		}
	},
}

// displayAllConfig prints all configuration values.
func displayAllConfig(cfg *config.Config) {
	fmt.Printf("anthropic.api_key: %s (%s)\n", config.MaskAPIKey(cfg.Anthropic.APIKey), config.GetAPIKeySource(cfg))
	fmt.Printf("anthropic.model: %s\n", orUnset(cfg.Anthropic.Model))
	fmt.Printf("anthropic.use_bedrock: %t\n", cfg.Anthropic.UseBedrock)
	fmt.Printf("anthropic.aws_region: %s\n", orUnset(cfg.Anthropic.AWSRegion))
	fmt.Printf("anthropic.aws_profile: %s\n", orUnset(cfg.Anthropic.AWSProfile))
	fmt.Printf("executor.max_concurrent_tasks: %d\n", cfg.Executor.MaxConcurrentTasks)
	fmt.Printf("executor.task_timeout: %s\n", cfg.Executor.TaskTimeout)
	fmt.Printf("executor.progress_interval: %s\n", cfg.Executor.ProgressInterval)
	fmt.Printf("executor.max_retries: %d\n", cfg.Executor.MaxRetries)
	fmt.Printf("executor.retry_failed_tasks: %t\n", cfg.Executor.RetryFailedTasks)
	fmt.Printf("executor.max_queue_depth: %d\n", cfg.Executor.MaxQueueDepth)
	fmt.Printf("executor.completed_history: %d\n", cfg.Executor.CompletedHistory)
	fmt.Printf("consensus.threshold: %g\n", cfg.Consensus.Threshold)
	fmt.Printf("hive.data_dir: %s\n", cfg.Hive.DataDir)
	fmt.Printf("tui.refresh_rate: %s\n", cfg.TUI.RefreshRate)
}

func orUnset(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}

// displayConfigKey prints a single configuration value.
func displayConfigKey(cfg *config.Config, key string) {
	value, err := getConfigValue(cfg, key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(value)
}

// setConfigKey sets a configuration value and saves the config.
func setConfigKey(cfg *config.Config, key, value string) {
	if err := setConfigValue(cfg, key, value); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := config.Save(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}

	if key == "anthropic.api_key" {
		value = config.MaskAPIKey(value)
	}
	fmt.Printf("Set %s = %s\n", key, value)
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.Config, key string) (string, error) {
	switch strings.ToLower(key) {
	case "anthropic.api_key":
		return config.MaskAPIKey(cfg.Anthropic.APIKey), nil
	case "anthropic.model":
		return orUnset(cfg.Anthropic.Model), nil
	case "anthropic.use_bedrock":
		return strconv.FormatBool(cfg.Anthropic.UseBedrock), nil
	case "anthropic.aws_region":
		return orUnset(cfg.Anthropic.AWSRegion), nil
	case "anthropic.aws_profile":
		return orUnset(cfg.Anthropic.AWSProfile), nil
	case "executor.max_concurrent_tasks":
		return strconv.Itoa(cfg.Executor.MaxConcurrentTasks), nil
	case "executor.task_timeout":
		return cfg.Executor.TaskTimeout.String(), nil
	case "executor.progress_interval":
		return cfg.Executor.ProgressInterval.String(), nil
	case "executor.max_retries":
		return strconv.Itoa(cfg.Executor.MaxRetries), nil
	case "executor.retry_failed_tasks":
		return strconv.FormatBool(cfg.Executor.RetryFailedTasks), nil
	case "executor.max_queue_depth":
		return strconv.Itoa(cfg.Executor.MaxQueueDepth), nil
	case "executor.completed_history":
		return strconv.Itoa(cfg.Executor.CompletedHistory), nil
	case "consensus.threshold":
		return strconv.FormatFloat(cfg.Consensus.Threshold, 'g', -1, 64), nil
	case "hive.data_dir":
		return cfg.Hive.DataDir, nil
	case "tui.refresh_rate":
		return cfg.TUI.RefreshRate.String(), nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}

// setConfigValue sets a configuration value by dot-notation key.
func setConfigValue(cfg *config.Config, key, value string) error {
	switch strings.ToLower(key) {
	case "anthropic.api_key":
		cfg.Anthropic.APIKey = value
	case "anthropic.model":
		cfg.Anthropic.Model = value
	case "anthropic.use_bedrock":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean for use_bedrock: %w", err)
		}
		cfg.Anthropic.UseBedrock = b
	case "anthropic.aws_region":
		cfg.Anthropic.AWSRegion = value
	case "anthropic.aws_profile":
		cfg.Anthropic.AWSProfile = value
	case "executor.max_concurrent_tasks":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for max_concurrent_tasks: %w", err)
		}
		cfg.Executor.MaxConcurrentTasks = n
	case "executor.task_timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for task_timeout: %w", err)
		}
		cfg.Executor.TaskTimeout = d
	case "executor.progress_interval":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for progress_interval: %w", err)
		}
		cfg.Executor.ProgressInterval = d
	case "executor.max_retries":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for max_retries: %w", err)
		}
		cfg.Executor.MaxRetries = n
	case "executor.retry_failed_tasks":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean for retry_failed_tasks: %w", err)
		}
		cfg.Executor.RetryFailedTasks = b
	case "executor.max_queue_depth":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for max_queue_depth: %w", err)
		}
		cfg.Executor.MaxQueueDepth = n
	case "executor.completed_history":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for completed_history: %w", err)
		}
		cfg.Executor.CompletedHistory = n
	case "consensus.threshold":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid value for threshold: %w", err)
		}
		if f <= 0 || f > 1 {
			return fmt.Errorf("threshold must be in (0, 1], got %g", f)
		}
		cfg.Consensus.Threshold = f
	case "hive.data_dir":
		cfg.Hive.DataDir = value
	case "tui.refresh_rate":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for refresh_rate: %w", err)
		}
		cfg.TUI.RefreshRate = d
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}
