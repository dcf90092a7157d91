package main

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/hiveworks/hiveflow/internal/bus"
	"github.com/hiveworks/hiveflow/internal/config"
	"github.com/hiveworks/hiveflow/internal/state"
)

func TestTerminalEvent(t *testing.T) {
	tests := []struct {
		name     string
		evType   string
		terminal bool
	}{
		{"completed is terminal", bus.TopicTaskCompleted, true},
		{"failed is terminal", bus.TopicTaskFailed, true},
		{"cancelled is terminal", bus.TopicTaskCancelled, true},
		{"submitted is not", bus.TopicTaskSubmitted, false},
		{"started is not", bus.TopicTaskStarted, false},
		{"progress is not", bus.TopicTaskProgress, false},
		{"phase report is not", bus.TopicAgentPhaseCompleted, false},
		{"consensus is not", bus.TopicConsensusAchieved, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := terminalEvent(bus.Event{Type: tt.evType}); got != tt.terminal {
				t.Errorf("terminalEvent(%q) = %v, want %v", tt.evType, got, tt.terminal)
			}
		})
	}
}

func TestDrainHeadless_ResolvesAllTasks(t *testing.T) {
	events := make(chan bus.Event, 16)
	events <- bus.Event{Type: bus.TopicTaskStarted, TaskID: "task-1"}
	events <- bus.Event{Type: bus.TopicTaskProgress, TaskID: "task-1", Progress: 60}
	events <- bus.Event{Type: bus.TopicTaskCompleted, TaskID: "task-1"}
	events <- bus.Event{Type: bus.TopicTaskCompleted, TaskID: "task-2"}

	outstanding := map[string]bool{"task-1": true, "task-2": true}
	if err := drainHeadless(context.Background(), events, outstanding); err != nil {
		t.Fatalf("drainHeadless: %v", err)
	}
	if len(outstanding) != 0 {
		t.Errorf("expected all tasks resolved, %d left", len(outstanding))
	}
}

func TestDrainHeadless_CountsFailures(t *testing.T) {
	events := make(chan bus.Event, 16)
	events <- bus.Event{Type: bus.TopicTaskCompleted, TaskID: "task-1"}
	events <- bus.Event{Type: bus.TopicTaskFailed, TaskID: "task-2", Error: "boom"}

	outstanding := map[string]bool{"task-1": true, "task-2": true}
	err := drainHeadless(context.Background(), events, outstanding)
	if err == nil {
		t.Fatal("expected an error for the failed task")
	}
	if !strings.Contains(err.Error(), "1 task(s) failed") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestDrainHeadless_IgnoresForeignTasks(t *testing.T) {
	events := make(chan bus.Event, 16)
	// Terminal event for a task this run did not submit.
	events <- bus.Event{Type: bus.TopicTaskFailed, TaskID: "task-other", Error: "boom"}
	events <- bus.Event{Type: bus.TopicTaskCompleted, TaskID: "task-mine"}

	outstanding := map[string]bool{"task-mine": true}
	if err := drainHeadless(context.Background(), events, outstanding); err != nil {
		t.Fatalf("foreign failure should not fail the run: %v", err)
	}
}

func TestDrainHeadless_StopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	events := make(chan bus.Event)
	outstanding := map[string]bool{"task-1": true}
	if err := drainHeadless(ctx, events, outstanding); err != nil {
		t.Fatalf("operator stop should not be an error: %v", err)
	}
}

func TestDrainHeadless_ClosedBusIsAnError(t *testing.T) {
	events := make(chan bus.Event)
	close(events)

	outstanding := map[string]bool{"task-1": true}
	if err := drainHeadless(context.Background(), events, outstanding); err == nil {
		t.Fatal("expected an error when the bus closes mid-run")
	}
}

func TestBuildWorkerFactory_DryRun(t *testing.T) {
	factory, err := buildWorkerFactory(config.Default(), true)
	if err != nil {
		t.Fatalf("buildWorkerFactory: %v", err)
	}
	if factory == nil {
		t.Fatal("expected a factory")
	}
	if w := factory(config.DefaultAgentSpecs()[0]); w == nil {
		t.Fatal("factory returned nil worker")
	}
}

func TestTaskCounts(t *testing.T) {
	tests := []struct {
		name  string
		tasks []state.Task
		want  string
	}{
		{"empty", nil, "none"},
		{
			"mixed statuses in fixed order",
			[]state.Task{
				{Status: "failed"},
				{Status: "pending"},
				{Status: "in_progress"},
				{Status: "in_progress"},
				{Status: "completed"},
			},
			"1 pending, 2 in progress, 1 completed, 1 failed",
		},
		{
			"only resolved",
			[]state.Task{{Status: "completed"}, {Status: "cancelled"}},
			"1 completed, 1 cancelled",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := taskCounts(tt.tasks); got != tt.want {
				t.Errorf("taskCounts() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{45 * time.Second, "45s"},
		{90 * time.Second, "1m"},
		{3 * time.Hour, "3h"},
		{3*time.Hour + 25*time.Minute, "3h25m"},
		{49 * time.Hour, "2d"},
	}

	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestTruncateLine(t *testing.T) {
	if got := truncateLine("short", 10); got != "short" {
		t.Errorf("short string changed: %q", got)
	}
	long := strings.Repeat("x", 60)
	want := strings.Repeat("x", 19) + "…"
	if got := truncateLine(long, 20); got != want {
		t.Errorf("truncateLine() = %q, want %q", got, want)
	}
}
