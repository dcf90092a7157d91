package executor

import (
	"time"

	"github.com/hiveworks/hiveflow/internal/bus"
	"github.com/hiveworks/hiveflow/pkg/models"
)

// errNoAgents is the terminal error for tasks no agent can serve.
const errNoAgents = "no suitable agents available"

// processNext is the dispatcher: it promotes queued tasks while free
// slots and pending tasks both exist. Idempotent and non-blocking; it
// is re-run after every submission and every terminal transition.
// Terminal transitions inside startExecution re-enter it, so a guard
// flattens the recursion into the outer loop.
func (e *Executor) processNext() {
	if e.dispatching {
		return
	}
	e.dispatching = true
	defer func() { e.dispatching = false }()

	for !e.paused {
		slots := e.maxConcurrentTasks - len(e.active)
		if slots <= 0 || len(e.pending) == 0 {
			return
		}
		e.startExecution(e.popPending())
	}
}

// startExecution promotes one task: marks it in progress, builds its
// plan, assigns agents, arms the progress and timeout timers, and
// hands the work to each agent. Zero assigned agents fails the task
// immediately rather than re-queueing it.
func (e *Executor) startExecution(task *models.Task) {
	task.Status = models.TaskStatusInProgress
	if err := e.hive.UpdateTaskStatus(e.ctx, task.ID, task.Status); err != nil {
		e.logger.Log("update status for %s: %v", task.ID, err)
	}

	plan := buildPlan(task, e.taskTimeout)
	ectx := newExecutionContext(task, plan)
	e.active[task.ID] = ectx

	if ids := e.assignAgents(ectx); len(ids) == 0 {
		e.failTask(ectx, errNoAgents)
		return
	}

	e.armTimers(ectx)

	e.logger.Log("task %s started: agents=%v phases=%d", task.ID, ectx.agentIDs, plan.TotalPhases())
	e.bus.Publish(bus.TopicTaskStarted, bus.Event{
		Type:           bus.TopicTaskStarted,
		TaskID:         task.ID,
		AssignedAgents: append([]string(nil), ectx.agentIDs...),
		Task:           task.Clone(),
	})

	for _, agentID := range ectx.agentIDs {
		e.notifyAssigned(agentID, ectx)
	}
}

// notifyAssigned hands the task and its plan to one agent over the
// agent's direct topic.
func (e *Executor) notifyAssigned(agentID string, ectx *executionContext) {
	e.bus.Publish(bus.AgentTopic(agentID), bus.Event{
		Type:    bus.TypeTaskAssigned,
		TaskID:  ectx.task.ID,
		AgentID: agentID,
		Task:    ectx.task.Clone(),
		Plan:    ectx.plan,
	})
}

// armTimers starts the single-shot timeout and the first progress
// tick. Each callback re-enters the run loop; by the time it executes
// the task may already be resolved, which the handlers treat as a
// stale no-op.
func (e *Executor) armTimers(ectx *executionContext) {
	taskID := ectx.task.ID
	ectx.timeoutTimer = time.AfterFunc(e.taskTimeout, func() {
		e.post(func() { e.handleTimeout(taskID) })
	})
	ectx.progressTimer = time.AfterFunc(e.progressInterval, func() {
		e.post(func() { e.reportProgress(taskID) })
	})
}
