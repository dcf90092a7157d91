package main

import (
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/hiveworks/hiveflow/internal/agent"
	"github.com/hiveworks/hiveflow/internal/api"
	"github.com/hiveworks/hiveflow/internal/config"
)

// buildWorkerFactory creates the per-agent worker factory. Dry runs get
// deterministic scripted workers; everything else drives the Anthropic
// API through a shared client.
func buildWorkerFactory(cfg *config.Config, dryRun bool) (agent.WorkerFactory, error) {
	if dryRun {
		return func(spec agent.AgentSpec) agent.Worker {
			return &agent.ScriptedWorker{Delay: 150 * time.Millisecond}
		}, nil
	}

	apiKey := ""
	if !cfg.Anthropic.UseBedrock {
		key, err := config.GetAPIKey(cfg)
		if err != nil {
			return nil, fmt.Errorf("no Anthropic API key: set ANTHROPIC_API_KEY, run " +
				"'hiveflow config anthropic.api_key <key>', or use --dry-run")
		}
		apiKey = key
	}

	client, err := api.NewClient(api.ClientConfig{
		Model:         anthropic.Model(cfg.Anthropic.Model),
		APIKey:        apiKey,
		UseAWSBedrock: cfg.Anthropic.UseBedrock,
		AWSRegion:     cfg.Anthropic.AWSRegion,
		AWSProfile:    cfg.Anthropic.AWSProfile,
	})
	if err != nil {
		return nil, fmt.Errorf("create API client: %w", err)
	}

	return func(spec agent.AgentSpec) agent.Worker {
		return agent.NewClaudeWorker(client, spec.Role)
	}, nil
}
