package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hiveworks/hiveflow/internal/agent"
)

// PresetFileName is the agent roster file looked up under the hive data
// directory.
const PresetFileName = "agents.yaml"

// PresetFile represents the agents.yaml structure.
type PresetFile struct {
	Agents []AgentPreset `yaml:"agents"`
}

// AgentPreset describes one class of worker agents to field.
type AgentPreset struct {
	Role         string   `yaml:"role"`
	Count        int      `yaml:"count"`
	Capabilities []string `yaml:"capabilities"`
}

// LoadAgentSpecs loads the agent roster from path. A missing file is not
// an error: the default roster is returned instead.
func LoadAgentSpecs(path string) ([]agent.AgentSpec, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultAgentSpecs(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read agent presets: %w", err)
	}

	var file PresetFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse agent presets: %w", err)
	}
	if len(file.Agents) == 0 {
		return nil, fmt.Errorf("agent presets %s: no agents defined", path)
	}

	return expandPresets(file.Agents)
}

// DefaultAgentSpecs returns the roster used when no agents.yaml exists.
func DefaultAgentSpecs() []agent.AgentSpec {
	specs, _ := expandPresets([]AgentPreset{
		{Role: "researcher", Count: 1, Capabilities: []string{"research", "analysis"}},
		{Role: "coder", Count: 2, Capabilities: []string{"code", "test"}},
		{Role: "analyst", Count: 1, Capabilities: []string{"analysis", "review"}},
		{Role: "tester", Count: 1, Capabilities: []string{"test", "quality_assurance"}},
	})
	return specs
}

// expandPresets turns role/count presets into individually named agent
// specs: a coder preset with count 2 yields coder-1 and coder-2.
func expandPresets(presets []AgentPreset) ([]agent.AgentSpec, error) {
	var specs []agent.AgentSpec
	for i, preset := range presets {
		if preset.Role == "" {
			return nil, fmt.Errorf("agent preset %d: role is required", i+1)
		}

		count := preset.Count
		if count < 1 {
			count = 1
		}

		for n := 1; n <= count; n++ {
			specs = append(specs, agent.AgentSpec{
				Name:         fmt.Sprintf("%s-%d", preset.Role, n),
				Role:         preset.Role,
				Capabilities: append([]string(nil), preset.Capabilities...),
			})
		}
	}
	return specs, nil
}
