package executor

import (
	"fmt"

	"github.com/hiveworks/hiveflow/internal/bus"
	"github.com/hiveworks/hiveflow/pkg/models"
)

// forwardToConsensus submits one agent's report as a vote and, if the
// hive says voting is complete, resolves the task on the spot. The
// hive owns quorum policy; the executor only acts on the tri-state
// pending/achieved/not-achieved answer.
func (e *Executor) forwardToConsensus(ectx *executionContext, report agentReport) {
	taskID := ectx.task.ID

	if err := e.hive.AddConsensusResult(e.ctx, taskID, report.agentID, report.output, report.success); err != nil {
		e.logger.Log("record vote from %s for %s: %v", report.agentID, taskID, err)
	}

	status, err := e.hive.GetConsensusStatus(e.ctx, taskID)
	if err != nil {
		e.logger.Log("consensus status for %s: %v", taskID, err)
		return
	}
	if !status.Complete {
		return // votes still outstanding
	}
	e.resolveConsensus(ectx, status)
}

// resolveConsensus finalizes a consensus task from a completed status.
func (e *Executor) resolveConsensus(ectx *executionContext, status models.ConsensusStatus) {
	if status.Achieved {
		result := status.Result
		if result == nil {
			result = &models.TaskResult{}
		}
		result.Confidence = status.Confidence
		if len(result.ExecutedBy) == 0 {
			result.ExecutedBy = append([]string(nil), ectx.agentIDs...)
		}
		e.completeTask(ectx, result)
		return
	}

	reason := status.FailureReason
	if reason == "" {
		reason = "consensus not achieved"
	}
	e.failTask(ectx, fmt.Sprintf("consensus failed: %s", reason))
}

// handleConsensusAchieved resolves a consensus task from the hive's
// broadcast. Tasks already resolved via the polling path ignore it.
func (e *Executor) handleConsensusAchieved(ev bus.Event) {
	ectx, ok := e.active[ev.TaskID]
	if !ok || !ectx.task.RequireConsensus {
		return
	}
	e.resolveConsensus(ectx, models.ConsensusStatus{
		Complete:   true,
		Achieved:   true,
		Result:     ev.Result,
		Confidence: ev.Confidence,
	})
}

// handleConsensusFailed is the broadcast counterpart for failed votes.
func (e *Executor) handleConsensusFailed(ev bus.Event) {
	ectx, ok := e.active[ev.TaskID]
	if !ok || !ectx.task.RequireConsensus {
		return
	}
	e.resolveConsensus(ectx, models.ConsensusStatus{
		Complete:      true,
		Achieved:      false,
		FailureReason: ev.Reason,
	})
}
