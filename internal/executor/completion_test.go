package executor

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hiveworks/hiveflow/internal/bus"
	"github.com/hiveworks/hiveflow/pkg/models"
)

func assignedTo(agentID string) func(bus.Event) bool {
	return func(ev bus.Event) bool {
		return ev.Type == bus.TypeTaskAssigned && ev.AgentID == agentID
	}
}

func TestCompletion_RetryReassignsUntilBudgetExhausted(t *testing.T) {
	hive := newStubHive("agent-1")
	hive.alternatives = []string{"agent-2", "agent-3"}
	rig := newTestRig(t, hive, WithMaxRetries(2))

	task, err := rig.exec.Submit(SubmitOptions{Description: "fragile work"})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	rig.waitEvent(t, "assignment to agent-1", assignedTo("agent-1"))
	rig.agentFail(task.ID, "agent-1", "tool crashed")

	// First failure: substitute, task stays in progress.
	rig.waitEvent(t, "reassignment to agent-2", assignedTo("agent-2"))
	snap, err := rig.exec.Task(task.ID)
	if err != nil {
		t.Fatalf("Task() error = %v", err)
	}
	if snap.Status != models.TaskStatusInProgress {
		t.Errorf("status after retry = %q, want %q", snap.Status, models.TaskStatusInProgress)
	}
	if len(snap.AssignedAgents) != 1 || snap.AssignedAgents[0] != "agent-2" {
		t.Errorf("assigned after retry = %v, want [agent-2]", snap.AssignedAgents)
	}

	// Second failure: last substitute.
	rig.agentFail(task.ID, "agent-2", "tool crashed again")
	rig.waitEvent(t, "reassignment to agent-3", assignedTo("agent-3"))

	// Third failure: budget spent, terminal with the reported reason.
	rig.agentFail(task.ID, "agent-3", "still broken")
	failed := rig.waitEvent(t, "task:failed", eventFor(bus.TopicTaskFailed, task.ID))
	if failed.Error != "still broken" {
		t.Errorf("failure = %q, want %q", failed.Error, "still broken")
	}

	if got := len(hive.assignments(task.ID)); got != 3 {
		t.Errorf("assignment rounds = %d, want 3", got)
	}
}

func TestCompletion_NoAlternativeFailsImmediately(t *testing.T) {
	hive := newStubHive("agent-1") // no alternatives queued
	rig := newTestRig(t, hive, WithMaxRetries(2))

	task, err := rig.exec.Submit(SubmitOptions{Description: "unlucky"})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	rig.waitEvent(t, "assignment", assignedTo("agent-1"))
	rig.agentFail(task.ID, "agent-1", "disk full")

	failed := rig.waitEvent(t, "task:failed", eventFor(bus.TopicTaskFailed, task.ID))
	if failed.Error != "disk full" {
		t.Errorf("failure = %q, want %q", failed.Error, "disk full")
	}
}

func TestCompletion_RetryDisabled(t *testing.T) {
	hive := newStubHive("agent-1")
	hive.alternatives = []string{"agent-2"}
	rig := newTestRig(t, hive, WithRetryFailedTasks(false))

	task, err := rig.exec.Submit(SubmitOptions{Description: "one shot"})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	rig.waitEvent(t, "assignment", assignedTo("agent-1"))
	rig.agentFail(task.ID, "agent-1", "")

	failed := rig.waitEvent(t, "task:failed", eventFor(bus.TopicTaskFailed, task.ID))
	if failed.Error != "agent agent-1 failed" {
		t.Errorf("fallback failure = %q, want %q", failed.Error, "agent agent-1 failed")
	}
	if got := len(hive.assignments(task.ID)); got != 1 {
		t.Errorf("assignment rounds = %d, want 1 (no reassignment)", got)
	}
}

func TestCompletion_ParallelFirstSuccessWins(t *testing.T) {
	hive := newStubHive("agent-1", "agent-2", "agent-3")
	rig := newTestRig(t, hive)

	task, err := rig.exec.Submit(SubmitOptions{
		Description: "race three agents",
		Strategy:    models.StrategyParallel,
		MaxAgents:   3,
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	started := rig.waitEvent(t, "task:started", eventFor(bus.TopicTaskStarted, task.ID))
	if len(started.AssignedAgents) != 3 {
		t.Fatalf("assigned %v, want 3 agents", started.AssignedAgents)
	}

	// Two reports in: no resolution until the last agent answers.
	rig.agentFail(task.ID, "agent-1", "missed it")
	rig.agentComplete(task.ID, "agent-2", "winning output")
	rig.assertNoEvent(t, 100*time.Millisecond, "early resolution", func(ev bus.Event) bool {
		return (ev.Type == bus.TopicTaskCompleted || ev.Type == bus.TopicTaskFailed) && ev.TaskID == task.ID
	})

	rig.agentFail(task.ID, "agent-3", "missed it too")
	completed := rig.waitEvent(t, "task:completed", eventFor(bus.TopicTaskCompleted, task.ID))
	if completed.Result == nil || completed.Result.Output != "winning output" {
		t.Fatalf("result = %+v, want winning output", completed.Result)
	}
	if len(completed.Result.ExecutedBy) != 1 || completed.Result.ExecutedBy[0] != "agent-2" {
		t.Errorf("ExecutedBy = %v, want [agent-2]", completed.Result.ExecutedBy)
	}
}

func TestCompletion_ParallelAllFail(t *testing.T) {
	hive := newStubHive("agent-1", "agent-2", "agent-3")
	hive.alternatives = []string{"agent-9"} // must not be consulted
	rig := newTestRig(t, hive)

	task, err := rig.exec.Submit(SubmitOptions{
		Description: "doomed fan-out",
		Strategy:    models.StrategyParallel,
		MaxAgents:   3,
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	rig.waitEvent(t, "task:started", eventFor(bus.TopicTaskStarted, task.ID))

	for _, agent := range []string{"agent-1", "agent-2", "agent-3"} {
		rig.agentFail(task.ID, agent, "no luck")
	}

	failed := rig.waitEvent(t, "task:failed", eventFor(bus.TopicTaskFailed, task.ID))
	if !strings.Contains(failed.Error, "All agents failed") {
		t.Errorf("failure = %q, want it to mention all agents failing", failed.Error)
	}
	// Parallel tasks never retry; the substitute pool stays untouched.
	if got := len(hive.assignments(task.ID)); got != 1 {
		t.Errorf("assignment rounds = %d, want 1", got)
	}
}

func TestCompletion_DuplicateReportOverwrites(t *testing.T) {
	hive := newStubHive("agent-1", "agent-2")
	rig := newTestRig(t, hive)

	task, err := rig.exec.Submit(SubmitOptions{
		Description: "flaky reporter",
		Strategy:    models.StrategyParallel,
		MaxAgents:   2,
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	rig.waitEvent(t, "task:started", eventFor(bus.TopicTaskStarted, task.ID))

	// agent-1 reports twice; the duplicate must not count as agent-2.
	rig.agentFail(task.ID, "agent-1", "first word")
	rig.agentFail(task.ID, "agent-1", "second word")
	rig.assertNoEvent(t, 100*time.Millisecond, "premature resolution", func(ev bus.Event) bool {
		return (ev.Type == bus.TopicTaskCompleted || ev.Type == bus.TopicTaskFailed) && ev.TaskID == task.ID
	})

	rig.agentComplete(task.ID, "agent-2", "salvaged")
	completed := rig.waitEvent(t, "task:completed", eventFor(bus.TopicTaskCompleted, task.ID))
	if completed.Result == nil || completed.Result.Output != "salvaged" {
		t.Fatalf("result = %+v, want salvaged output", completed.Result)
	}
}

func TestCompletion_TimeoutIsTerminal(t *testing.T) {
	hive := newStubHive("agent-1")
	hive.alternatives = []string{"agent-2"} // timeout must not consume it
	rig := newTestRig(t, hive, WithTaskTimeout(80*time.Millisecond))

	task, err := rig.exec.Submit(SubmitOptions{Description: "slow work"})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	rig.waitEvent(t, "task:started", eventFor(bus.TopicTaskStarted, task.ID))

	failed := rig.waitEvent(t, "task:failed", eventFor(bus.TopicTaskFailed, task.ID))
	if !strings.Contains(failed.Error, "timed out") {
		t.Errorf("failure = %q, want a timeout message", failed.Error)
	}
	if got := len(hive.assignments(task.ID)); got != 1 {
		t.Errorf("assignment rounds = %d, want 1 (timeouts do not retry)", got)
	}
	if got := hive.failReason(task.ID); !strings.Contains(got, "timed out") {
		t.Errorf("hive failure mirror = %q, want a timeout message", got)
	}
}

func TestCompletion_CancelPendingTask(t *testing.T) {
	hive := newStubHive("agent-1")
	rig := newTestRig(t, hive, WithMaxConcurrentTasks(1))

	runner, err := rig.exec.Submit(SubmitOptions{Description: "holds the slot"})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	rig.waitEvent(t, "runner start", eventFor(bus.TopicTaskStarted, runner.ID))

	parked, err := rig.exec.Submit(SubmitOptions{Description: "waits in queue"})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if err := rig.exec.Cancel(parked.ID, "no longer needed"); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	cancelled := rig.waitEvent(t, "task:cancelled", eventFor(bus.TopicTaskCancelled, parked.ID))
	if cancelled.Reason != "no longer needed" {
		t.Errorf("reason = %q, want %q", cancelled.Reason, "no longer needed")
	}

	// Freeing the slot must not resurrect the cancelled task.
	rig.agentComplete(runner.ID, "agent-1", "done")
	rig.waitEvent(t, "runner completion", eventFor(bus.TopicTaskCompleted, runner.ID))
	rig.assertNoEvent(t, 150*time.Millisecond, "cancelled task start", eventFor(bus.TopicTaskStarted, parked.ID))

	hive.mu.Lock()
	wasCancelled := hive.cancelled[parked.ID]
	hive.mu.Unlock()
	if !wasCancelled {
		t.Error("hive was not told about the cancellation")
	}
}

func TestCompletion_CancelActiveTask(t *testing.T) {
	hive := newStubHive("agent-1", "agent-2")
	rig := newTestRig(t, hive, WithTaskTimeout(200*time.Millisecond))

	task, err := rig.exec.Submit(SubmitOptions{
		Description: "interrupted fan-out",
		Strategy:    models.StrategyParallel,
		MaxAgents:   2,
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	rig.waitEvent(t, "task:started", eventFor(bus.TopicTaskStarted, task.ID))

	if err := rig.exec.Cancel(task.ID, "operator request"); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	cancelledAt := time.Now()

	// Every assigned agent is told directly, then the broadcast goes out.
	seen := map[string]bool{}
	for len(seen) < 2 {
		ev := rig.waitEvent(t, "agent cancellation notice", func(ev bus.Event) bool {
			return ev.Type == bus.TypeTaskCancelled && ev.TaskID == task.ID
		})
		if ev.Reason != "operator request" {
			t.Errorf("agent notice reason = %q, want %q", ev.Reason, "operator request")
		}
		seen[ev.AgentID] = true
	}
	rig.waitEvent(t, "task:cancelled", eventFor(bus.TopicTaskCancelled, task.ID))

	// The 200ms deadline passes without a timeout failure and the
	// progress ticks stop: cancellation cleared both timers. Ticks
	// published before the cancel may still be buffered, so only
	// events stamped afterwards count.
	rig.assertNoEvent(t, 350*time.Millisecond, "post-cancel activity", func(ev bus.Event) bool {
		return (ev.Type == bus.TopicTaskFailed || ev.Type == bus.TopicTaskProgress) &&
			ev.TaskID == task.ID && ev.Timestamp.After(cancelledAt)
	})

	m := rig.exec.Metrics()
	if m.TotalFailed != 0 || m.TotalCompleted != 0 {
		t.Errorf("metrics count a cancellation: %+v", m)
	}
}

func TestCompletion_CancelUnknownTask(t *testing.T) {
	hive := newStubHive("agent-1")
	rig := newTestRig(t, hive)

	if err := rig.exec.Cancel("task-ghost", "x"); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("Cancel(unknown) error = %v, want ErrTaskNotFound", err)
	}
}

func TestCompletion_StaleReportIgnored(t *testing.T) {
	hive := newStubHive("agent-1")
	rig := newTestRig(t, hive)

	task, err := rig.exec.Submit(SubmitOptions{Description: "resolved once"})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	rig.waitEvent(t, "task:started", eventFor(bus.TopicTaskStarted, task.ID))

	rig.agentComplete(task.ID, "agent-1", "first answer")
	rig.waitEvent(t, "task:completed", eventFor(bus.TopicTaskCompleted, task.ID))

	// A late failure report for the resolved task changes nothing.
	rig.agentFail(task.ID, "agent-1", "too late")
	rig.assertNoEvent(t, 120*time.Millisecond, "double resolution", func(ev bus.Event) bool {
		return (ev.Type == bus.TopicTaskFailed || ev.Type == bus.TopicTaskCompleted) && ev.TaskID == task.ID
	})

	m := rig.exec.Metrics()
	if m.TotalCompleted != 1 || m.TotalFailed != 0 {
		t.Errorf("metrics = %+v, want exactly one completion", m)
	}
}

func TestCompletion_HistoryBounded(t *testing.T) {
	hive := newStubHive("agent-1")
	rig := newTestRig(t, hive, WithCompletedHistory(2))
	rig.autoComplete("archived")

	var ids []string
	for i := 0; i < 3; i++ {
		task, err := rig.exec.Submit(SubmitOptions{Description: "short lived"})
		if err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
		rig.waitEvent(t, "completion", eventFor(bus.TopicTaskCompleted, task.ID))
		ids = append(ids, task.ID)
	}

	// Stop the loop so the tables can be inspected directly.
	rig.exec.Stop()

	if len(rig.exec.completed) != 2 {
		t.Fatalf("completed table holds %d tasks, want 2", len(rig.exec.completed))
	}
	if _, ok := rig.exec.completed[ids[0]]; ok {
		t.Error("oldest completed task was not evicted")
	}
	for _, id := range ids[1:] {
		if _, ok := rig.exec.completed[id]; !ok {
			t.Errorf("task %s missing from completed table", id)
		}
	}
}
