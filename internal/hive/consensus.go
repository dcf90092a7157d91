package hive

import (
	"context"
	"fmt"
	"time"

	"github.com/hiveworks/hiveflow/internal/bus"
	"github.com/hiveworks/hiveflow/internal/state"
	"github.com/hiveworks/hiveflow/pkg/models"
)

// poll tracks one task's consensus vote. Votes are keyed by agent;
// an agent voting twice replaces its earlier ballot. order preserves
// first-vote arrival so the winning output is deterministic.
type poll struct {
	target    int
	threshold float64
	votes     map[string]models.ConsensusVote
	order     []string
	resolved  bool
}

func newPoll(target int, threshold float64) *poll {
	if target < 1 {
		target = 1
	}
	return &poll{
		target:    target,
		threshold: threshold,
		votes:     make(map[string]models.ConsensusVote),
	}
}

// record stores an agent's ballot, replacing any earlier one.
func (p *poll) record(vote models.ConsensusVote) {
	if _, seen := p.votes[vote.AgentID]; !seen {
		p.order = append(p.order, vote.AgentID)
	}
	p.votes[vote.AgentID] = vote
}

// complete reports whether every expected ballot has arrived.
func (p *poll) complete() bool {
	return len(p.votes) >= p.target
}

// status computes the adjudication outcome from the ballots cast so
// far. Result is only populated once the vote is complete and passed.
func (p *poll) status() models.ConsensusStatus {
	st := models.ConsensusStatus{
		Complete:          p.complete(),
		ParticipationRate: float64(len(p.votes)) / float64(p.target),
	}

	var successes int
	for _, v := range p.votes {
		if v.Success {
			successes++
		}
	}
	approval := float64(successes) / float64(p.target)
	st.Confidence = approval

	if !st.Complete {
		return st
	}

	if approval >= p.threshold {
		st.Achieved = true
		st.Result = p.result()
		return st
	}

	st.FailureReason = fmt.Sprintf("only %d of %d agents approved", successes, p.target)
	return st
}

// result assembles the winning output: the first successful ballot's
// output, credited to every agreeing agent.
func (p *poll) result() *models.TaskResult {
	result := &models.TaskResult{CompletedAt: time.Now()}
	for _, agentID := range p.order {
		v := p.votes[agentID]
		if !v.Success {
			continue
		}
		if result.Output == "" {
			result.Output = v.Output
		}
		result.ExecutedBy = append(result.ExecutedBy, agentID)
	}
	return result
}

// AddConsensusResult records one agent's vote on a consensus task.
// When the final expected vote arrives, the outcome is adjudicated
// and announced on the bus as consensus:achieved or consensus:failed.
func (h *Hive) AddConsensusResult(_ context.Context, taskID, agentID, output string, success bool) error {
	vote := models.ConsensusVote{
		TaskID:  taskID,
		AgentID: agentID,
		Output:  output,
		Success: success,
		CastAt:  time.Now(),
	}

	h.mu.Lock()
	p, ok := h.polls[taskID]
	if !ok {
		target := 1
		if task, known := h.tasks[taskID]; known && len(task.AssignedAgents) > 0 {
			target = len(task.AssignedAgents)
		}
		p = newPoll(target, h.threshold)
		h.polls[taskID] = p
	}
	p.record(vote)

	if h.ledger != nil {
		if err := h.ledger.RecordVote(&state.Vote{
			TaskID:  vote.TaskID,
			AgentID: vote.AgentID,
			Output:  vote.Output,
			Success: vote.Success,
			CastAt:  vote.CastAt,
		}); err != nil {
			h.logger.Log("record vote %s/%s: %v", taskID, agentID, err)
		}
	}

	var announce *models.ConsensusStatus
	if p.complete() && !p.resolved {
		p.resolved = true
		st := p.status()
		announce = &st
	}
	h.mu.Unlock()

	if announce == nil {
		return nil
	}

	if announce.Achieved {
		h.logger.Log("consensus achieved for %s: confidence=%.2f", taskID, announce.Confidence)
		h.bus.Publish(bus.TopicConsensusAchieved, bus.Event{
			Type:       bus.TopicConsensusAchieved,
			TaskID:     taskID,
			Result:     announce.Result,
			Confidence: announce.Confidence,
		})
	} else {
		h.logger.Log("consensus failed for %s: %s", taskID, announce.FailureReason)
		h.bus.Publish(bus.TopicConsensusFailed, bus.Event{
			Type:   bus.TopicConsensusFailed,
			TaskID: taskID,
			Reason: announce.FailureReason,
		})
	}
	return nil
}

// GetConsensusStatus reports the adjudication state for a task. A
// task with no recorded votes reports an incomplete zero status.
func (h *Hive) GetConsensusStatus(_ context.Context, taskID string) (models.ConsensusStatus, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	p, ok := h.polls[taskID]
	if !ok {
		return models.ConsensusStatus{}, nil
	}
	return p.status(), nil
}

// Votes returns the ballots cast so far for a task, in arrival order.
func (h *Hive) Votes(taskID string) []models.ConsensusVote {
	h.mu.RLock()
	defer h.mu.RUnlock()

	p, ok := h.polls[taskID]
	if !ok {
		return nil
	}
	votes := make([]models.ConsensusVote, 0, len(p.order))
	for _, agentID := range p.order {
		votes = append(votes, p.votes[agentID])
	}
	return votes
}

// closePoll discards a task's poll and its persisted ballots once the
// task resolves. Callers hold the lock.
func (h *Hive) closePoll(taskID string) {
	if _, ok := h.polls[taskID]; !ok {
		return
	}
	delete(h.polls, taskID)
	if h.ledger != nil {
		if err := h.ledger.DeleteVotesByTask(taskID); err != nil {
			h.logger.Log("discard votes for %s: %v", taskID, err)
		}
	}
}
