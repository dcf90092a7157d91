package models

import "testing"

func TestAgentStatus_Valid(t *testing.T) {
	tests := []struct {
		name   string
		status AgentStatus
		want   bool
	}{
		{"idle is valid", AgentStatusIdle, true},
		{"busy is valid", AgentStatusBusy, true},
		{"offline is valid", AgentStatusOffline, true},
		{"empty string is invalid", AgentStatus(""), false},
		{"unknown status is invalid", AgentStatus("sleeping"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.status.Valid(); got != tt.want {
				t.Errorf("AgentStatus(%q).Valid() = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}

func TestAgent_HasCapabilities(t *testing.T) {
	agent := &Agent{
		ID:           "agent-1",
		Capabilities: []string{"code", "review", "analysis"},
	}

	tests := []struct {
		name     string
		required []string
		want     bool
	}{
		{"nil requirement matches", nil, true},
		{"empty requirement matches", []string{}, true},
		{"single match", []string{"code"}, true},
		{"full subset matches", []string{"code", "analysis"}, true},
		{"exact set matches", []string{"code", "review", "analysis"}, true},
		{"missing capability fails", []string{"deploy"}, false},
		{"partial coverage fails", []string{"code", "deploy"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := agent.HasCapabilities(tt.required); got != tt.want {
				t.Errorf("HasCapabilities(%v) = %v, want %v", tt.required, got, tt.want)
			}
		})
	}
}

func TestAgent_HasCapabilities_NoCapabilities(t *testing.T) {
	agent := &Agent{ID: "agent-bare"}

	if !agent.HasCapabilities(nil) {
		t.Error("agent with no capabilities should match an empty requirement")
	}
	if agent.HasCapabilities([]string{"code"}) {
		t.Error("agent with no capabilities should not match a non-empty requirement")
	}
}

func TestAgent_Clone(t *testing.T) {
	original := &Agent{
		ID:           "agent-1",
		Name:         "scout",
		Status:       AgentStatusBusy,
		Capabilities: []string{"research"},
		TaskIDs:      []string{"task-1"},
	}

	clone := original.Clone()
	clone.Capabilities[0] = "changed"
	clone.TaskIDs[0] = "task-other"
	clone.Status = AgentStatusIdle

	if original.Capabilities[0] != "research" {
		t.Error("mutating clone capabilities changed the original")
	}
	if original.TaskIDs[0] != "task-1" {
		t.Error("mutating clone task IDs changed the original")
	}
	if original.Status != AgentStatusBusy {
		t.Error("mutating clone status changed the original")
	}
}
