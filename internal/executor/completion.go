package executor

import (
	"fmt"
	"time"

	"github.com/hiveworks/hiveflow/internal/bus"
	"github.com/hiveworks/hiveflow/pkg/models"
)

// errAllAgentsFailed is the terminal error when every agent of a
// parallel task reported failure.
const errAllAgentsFailed = "All agents failed to execute task"

// handleAgentCompleted reacts to one agent's success report. Reports
// for tasks no longer active are stale and ignored.
func (e *Executor) handleAgentCompleted(ev bus.Event) {
	ectx, ok := e.active[ev.TaskID]
	if !ok {
		e.logger.Log("stale completion from %s for %s", ev.AgentID, ev.TaskID)
		return
	}

	report := agentReport{
		agentID:       ev.AgentID,
		output:        reportOutput(ev),
		success:       true,
		executionTime: ev.ExecutionTime,
	}

	if ectx.task.RequireConsensus {
		e.forwardToConsensus(ectx, report)
		return
	}

	if ectx.task.Strategy == models.StrategyParallel && len(ectx.agentIDs) > 1 {
		ectx.recordReport(report)
		if ectx.allReported() {
			e.resolveParallel(ectx)
		}
		return
	}

	// Single-agent path: the one report resolves the task.
	e.completeTask(ectx, &models.TaskResult{
		Output:     report.output,
		ExecutedBy: []string{report.agentID},
	})
}

// handleAgentFailed reacts to one agent's failure report: consensus
// tasks vote, parallel tasks buffer, single-agent tasks retry with a
// substitute until the budget runs out.
func (e *Executor) handleAgentFailed(ev bus.Event) {
	ectx, ok := e.active[ev.TaskID]
	if !ok {
		e.logger.Log("stale failure from %s for %s", ev.AgentID, ev.TaskID)
		return
	}

	report := agentReport{
		agentID:       ev.AgentID,
		success:       false,
		err:           ev.Error,
		executionTime: ev.ExecutionTime,
	}

	if ectx.task.RequireConsensus {
		e.forwardToConsensus(ectx, report)
		return
	}

	if ectx.task.Strategy == models.StrategyParallel && len(ectx.agentIDs) > 1 {
		ectx.recordReport(report)
		if ectx.allReported() {
			e.resolveParallel(ectx)
		}
		return
	}

	e.retryOrFail(ectx, ev.AgentID, ev.Error)
}

// retryOrFail substitutes a fresh agent for a failed single-agent
// task while retries remain; otherwise the task fails with the
// reported error. The task stays in progress across a retry and its
// timers are deliberately not reset.
func (e *Executor) retryOrFail(ectx *executionContext, failedAgentID, reason string) {
	task := ectx.task

	if e.retryFailedTasks && ectx.retries < e.maxRetries {
		alternative, err := e.hive.FindAlternativeAgent(e.ctx, task.ID, failedAgentID)
		if err != nil {
			e.logger.Log("alternative lookup for %s: %v", task.ID, err)
		}
		if alternative != "" {
			ectx.retries++
			e.logger.Log("task %s retry %d/%d: %s replaces %s",
				task.ID, ectx.retries, e.maxRetries, alternative, failedAgentID)
			e.rebindAgent(ectx, alternative)
			return
		}
	}

	if reason == "" {
		reason = fmt.Sprintf("agent %s failed", failedAgentID)
	}
	e.failTask(ectx, reason)
}

// resolveParallel combines a full set of buffered reports: the first
// successful result wins; with no successes the task fails.
func (e *Executor) resolveParallel(ectx *executionContext) {
	winner, ok := ectx.firstSuccess()
	if !ok {
		e.failTask(ectx, errAllAgentsFailed)
		return
	}
	e.completeTask(ectx, &models.TaskResult{
		Output:     winner.output,
		ExecutedBy: ectx.successfulAgents(),
	})
}

// handleTimeout fires when a task's deadline elapses. Timeouts are
// unconditionally terminal: the retry budget does not apply.
func (e *Executor) handleTimeout(taskID string) {
	ectx, ok := e.active[taskID]
	if !ok {
		return // resolved before the timer drained
	}
	e.failTask(ectx, fmt.Sprintf("task timed out after %s", e.taskTimeout))
}

// completeTask finalizes a task as successful: fills in the result,
// mirrors it to the hive, archives the task in the bounded completed
// table, and backfills the freed slot.
func (e *Executor) completeTask(ectx *executionContext, result *models.TaskResult) {
	task := ectx.task
	now := time.Now()

	result.ExecutionTime = ectx.elapsed()
	result.CompletedAt = now

	task.Status = models.TaskStatusCompleted
	task.Progress = 100
	task.Result = result
	task.CompletedAt = &now

	e.removeActive(ectx)

	if err := e.hive.CompleteTask(e.ctx, task.ID, result); err != nil {
		e.logger.Log("record completion for %s: %v", task.ID, err)
	}

	e.storeCompleted(task)
	e.recordResolution(result.ExecutionTime, true)

	e.logger.Log("task %s completed in %s by %v", task.ID, result.ExecutionTime, result.ExecutedBy)
	snapshot := task.Clone()
	e.bus.Publish(bus.TopicTaskCompleted, bus.Event{
		Type:          bus.TopicTaskCompleted,
		TaskID:        task.ID,
		Task:          snapshot,
		Result:        snapshot.Result,
		ExecutionTime: result.ExecutionTime,
	})

	e.processNext()
}

// failTask finalizes a task as failed and backfills the freed slot.
func (e *Executor) failTask(ectx *executionContext, reason string) {
	task := ectx.task
	now := time.Now()
	executionTime := ectx.elapsed()

	task.Status = models.TaskStatusFailed
	task.Error = reason
	task.CompletedAt = &now

	e.removeActive(ectx)

	if err := e.hive.FailTask(e.ctx, task.ID, reason); err != nil {
		e.logger.Log("record failure for %s: %v", task.ID, err)
	}

	e.recordResolution(executionTime, false)

	e.logger.Log("task %s failed after %s: %s", task.ID, executionTime, reason)
	e.bus.Publish(bus.TopicTaskFailed, bus.Event{
		Type:          bus.TopicTaskFailed,
		TaskID:        task.ID,
		Task:          task.Clone(),
		Error:         reason,
		ExecutionTime: executionTime,
	})

	e.processNext()
}

// cancelTask terminates a pending or active task. Pending tasks leave
// the queue without ever getting an execution context; active tasks
// get their timers cleared and every assigned agent notified. Metrics
// do not count cancellations.
func (e *Executor) cancelTask(taskID, reason string) error {
	now := time.Now()

	if task := e.removePending(taskID); task != nil {
		task.Status = models.TaskStatusCancelled
		task.CompletedAt = &now
		if err := e.hive.CancelTask(e.ctx, taskID); err != nil {
			e.logger.Log("record cancellation for %s: %v", taskID, err)
		}
		e.logger.Log("task %s cancelled while pending: %s", taskID, reason)
		e.bus.Publish(bus.TopicTaskCancelled, bus.Event{
			Type:   bus.TopicTaskCancelled,
			TaskID: taskID,
			Reason: reason,
		})
		e.processNext()
		return nil
	}

	ectx, ok := e.active[taskID]
	if !ok {
		return ErrTaskNotFound
	}

	task := ectx.task
	task.Status = models.TaskStatusCancelled
	task.CompletedAt = &now

	e.removeActive(ectx)

	for _, agentID := range ectx.agentIDs {
		e.bus.Publish(bus.AgentTopic(agentID), bus.Event{
			Type:    bus.TypeTaskCancelled,
			TaskID:  taskID,
			AgentID: agentID,
			Reason:  reason,
		})
	}

	if err := e.hive.CancelTask(e.ctx, taskID); err != nil {
		e.logger.Log("record cancellation for %s: %v", taskID, err)
	}

	e.logger.Log("task %s cancelled while active: %s", taskID, reason)
	e.bus.Publish(bus.TopicTaskCancelled, bus.Event{
		Type:   bus.TopicTaskCancelled,
		TaskID: taskID,
		Reason: reason,
	})

	e.processNext()
	return nil
}

// removeActive clears the context's timers and drops it from the
// active table. Every terminal path funnels through here.
func (e *Executor) removeActive(ectx *executionContext) {
	ectx.clearTimers()
	delete(e.active, ectx.task.ID)
}

// storeCompleted archives a completed task, evicting the oldest entry
// once the table is full.
func (e *Executor) storeCompleted(task *models.Task) {
	e.completed[task.ID] = task
	e.completedOrder = append(e.completedOrder, task.ID)
	for len(e.completedOrder) > e.completedHistory {
		oldest := e.completedOrder[0]
		e.completedOrder = e.completedOrder[1:]
		delete(e.completed, oldest)
	}
}

// reportOutput extracts the agent's payload from a completion event,
// tolerating both Result-carrying and bare events.
func reportOutput(ev bus.Event) string {
	if ev.Result != nil {
		return ev.Result.Output
	}
	return ""
}
