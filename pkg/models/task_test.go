package models

import (
	"testing"
	"time"
)

func TestTaskStatus_Valid(t *testing.T) {
	tests := []struct {
		name   string
		status TaskStatus
		want   bool
	}{
		{"pending is valid", TaskStatusPending, true},
		{"in_progress is valid", TaskStatusInProgress, true},
		{"completed is valid", TaskStatusCompleted, true},
		{"failed is valid", TaskStatusFailed, true},
		{"cancelled is valid", TaskStatusCancelled, true},
		{"empty string is invalid", TaskStatus(""), false},
		{"unknown status is invalid", TaskStatus("unknown"), false},
		{"typo status is invalid", TaskStatus("pendingg"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.status.Valid(); got != tt.want {
				t.Errorf("TaskStatus(%q).Valid() = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}

func TestTaskStatus_Terminal(t *testing.T) {
	tests := []struct {
		status TaskStatus
		want   bool
	}{
		{TaskStatusPending, false},
		{TaskStatusInProgress, false},
		{TaskStatusCompleted, true},
		{TaskStatusFailed, true},
		{TaskStatusCancelled, true},
		{TaskStatus("unknown"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.Terminal(); got != tt.want {
				t.Errorf("TaskStatus(%q).Terminal() = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}

func TestTaskPriority_Valid(t *testing.T) {
	tests := []struct {
		name     string
		priority TaskPriority
		want     bool
	}{
		{"low is valid", PriorityLow, true},
		{"medium is valid", PriorityMedium, true},
		{"high is valid", PriorityHigh, true},
		{"critical is valid", PriorityCritical, true},
		{"empty string is invalid", TaskPriority(""), false},
		{"unknown priority is invalid", TaskPriority("urgent"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.priority.Valid(); got != tt.want {
				t.Errorf("TaskPriority(%q).Valid() = %v, want %v", tt.priority, got, tt.want)
			}
		})
	}
}

func TestTaskPriority_Weight(t *testing.T) {
	tests := []struct {
		priority TaskPriority
		want     int
	}{
		{PriorityCritical, 10},
		{PriorityHigh, 5},
		{PriorityMedium, 3},
		{PriorityLow, 1},
		{TaskPriority("unknown"), 0},
		{TaskPriority(""), 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.priority), func(t *testing.T) {
			if got := tt.priority.Weight(); got != tt.want {
				t.Errorf("TaskPriority(%q).Weight() = %d, want %d", tt.priority, got, tt.want)
			}
		})
	}
}

func TestTaskPriority_WeightOrdering(t *testing.T) {
	// Scheduling depends on the strict ordering critical > high > medium > low.
	if !(PriorityCritical.Weight() > PriorityHigh.Weight() &&
		PriorityHigh.Weight() > PriorityMedium.Weight() &&
		PriorityMedium.Weight() > PriorityLow.Weight() &&
		PriorityLow.Weight() > 0) {
		t.Errorf("priority weights are not strictly ordered: critical=%d high=%d medium=%d low=%d",
			PriorityCritical.Weight(), PriorityHigh.Weight(),
			PriorityMedium.Weight(), PriorityLow.Weight())
	}
}

func TestExecutionStrategy_Valid(t *testing.T) {
	tests := []struct {
		name     string
		strategy ExecutionStrategy
		want     bool
	}{
		{"sequential is valid", StrategySequential, true},
		{"parallel is valid", StrategyParallel, true},
		{"adaptive is valid", StrategyAdaptive, true},
		{"empty string is invalid", ExecutionStrategy(""), false},
		{"unknown strategy is invalid", ExecutionStrategy("swarm"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.strategy.Valid(); got != tt.want {
				t.Errorf("ExecutionStrategy(%q).Valid() = %v, want %v", tt.strategy, got, tt.want)
			}
		})
	}
}

func TestTask_DefaultValues(t *testing.T) {
	task := Task{}

	if task.ID != "" {
		t.Errorf("Task.ID default should be empty string, got %q", task.ID)
	}
	if task.Status != "" {
		t.Errorf("Task.Status default should be empty string, got %q", task.Status)
	}
	if task.Progress != 0 {
		t.Errorf("Task.Progress default should be 0, got %d", task.Progress)
	}
	if task.Dependencies != nil {
		t.Errorf("Task.Dependencies default should be nil, got %v", task.Dependencies)
	}
	if task.AssignedAgents != nil {
		t.Errorf("Task.AssignedAgents default should be nil, got %v", task.AssignedAgents)
	}
	if task.Result != nil {
		t.Errorf("Task.Result default should be nil, got %v", task.Result)
	}
	if task.CompletedAt != nil {
		t.Errorf("Task.CompletedAt default should be nil, got %v", task.CompletedAt)
	}
	if !task.CreatedAt.IsZero() {
		t.Errorf("Task.CreatedAt default should be zero time, got %v", task.CreatedAt)
	}
}

func TestTask_Fields(t *testing.T) {
	now := time.Now()
	completedAt := now.Add(time.Minute)

	task := Task{
		ID:                   "task-123",
		SwarmID:              "swarm-456",
		Description:          "Summarize the incident report",
		Priority:             PriorityHigh,
		Strategy:             StrategyParallel,
		Status:               TaskStatusInProgress,
		Progress:             66,
		Dependencies:         []string{"task-100"},
		AssignedAgents:       []string{"agent-1", "agent-2"},
		RequireConsensus:     true,
		MaxAgents:            3,
		RequiredCapabilities: []string{"analysis"},
		Metadata:             map[string]string{"origin": "cli"},
		CreatedAt:            now,
		CompletedAt:          &completedAt,
	}

	if task.ID != "task-123" {
		t.Errorf("Task.ID = %q, want %q", task.ID, "task-123")
	}
	if task.SwarmID != "swarm-456" {
		t.Errorf("Task.SwarmID = %q, want %q", task.SwarmID, "swarm-456")
	}
	if task.Priority != PriorityHigh {
		t.Errorf("Task.Priority = %q, want %q", task.Priority, PriorityHigh)
	}
	if task.Strategy != StrategyParallel {
		t.Errorf("Task.Strategy = %q, want %q", task.Strategy, StrategyParallel)
	}
	if task.Progress != 66 {
		t.Errorf("Task.Progress = %d, want 66", task.Progress)
	}
	if len(task.AssignedAgents) != 2 {
		t.Errorf("Task.AssignedAgents length = %d, want 2", len(task.AssignedAgents))
	}
	if !task.RequireConsensus {
		t.Error("Task.RequireConsensus = false, want true")
	}
	if task.MaxAgents != 3 {
		t.Errorf("Task.MaxAgents = %d, want 3", task.MaxAgents)
	}
	if task.Metadata["origin"] != "cli" {
		t.Errorf("Task.Metadata[origin] = %q, want %q", task.Metadata["origin"], "cli")
	}
	if !task.CreatedAt.Equal(now) {
		t.Errorf("Task.CreatedAt = %v, want %v", task.CreatedAt, now)
	}
	if task.CompletedAt == nil || !task.CompletedAt.Equal(completedAt) {
		t.Errorf("Task.CompletedAt = %v, want %v", task.CompletedAt, completedAt)
	}
}
