package executor

import (
	"time"

	"github.com/hiveworks/hiveflow/internal/bus"
)

// reportProgress is the recurring progress tick for one task. It
// computes floor(currentPhase/totalPhases*100), mirrors it to the
// hive, publishes the telemetry event, and re-arms itself. Ticks for
// resolved tasks are stale and do not re-arm.
func (e *Executor) reportProgress(taskID string) {
	ectx, ok := e.active[taskID]
	if !ok {
		return
	}
	task := ectx.task

	pct := 0
	if total := ectx.plan.TotalPhases(); total > 0 {
		pct = ectx.currentPhase * 100 / total
	}
	// Progress never decreases, whatever the phase counter does.
	if pct > task.Progress {
		task.Progress = pct
	}

	if err := e.hive.UpdateTaskProgress(e.ctx, taskID, task.Progress); err != nil {
		e.logger.Log("mirror progress for %s: %v", taskID, err)
	}

	e.bus.Publish(bus.TopicTaskProgress, bus.Event{
		Type:         bus.TopicTaskProgress,
		TaskID:       taskID,
		Progress:     task.Progress,
		CurrentPhase: ectx.currentPhase,
		TotalPhases:  ectx.plan.TotalPhases(),
		ElapsedTime:  ectx.elapsed(),
	})

	ectx.progressTimer = time.AfterFunc(e.progressInterval, func() {
		e.post(func() { e.reportProgress(taskID) })
	})
}

// handlePhaseCompleted advances a task's phase counter from an agent's
// checkpoint report. Reports can arrive out of order or duplicated;
// the counter only moves forward.
func (e *Executor) handlePhaseCompleted(ev bus.Event) {
	ectx, ok := e.active[ev.TaskID]
	if !ok {
		return
	}
	ectx.advancePhase(ev.CurrentPhase)
	e.logger.Log("task %s phase %s done (%d/%d)",
		ev.TaskID, ev.Phase, ectx.currentPhase, ectx.plan.TotalPhases())
}
