package models

import "time"

// ConsensusVote is one agent's recorded verdict on a consensus task.
type ConsensusVote struct {
	// TaskID is the task being voted on.
	TaskID string `json:"task_id"`
	// AgentID is the voting agent.
	AgentID string `json:"agent_id"`
	// Output is the result payload the agent proposed.
	Output string `json:"output"`
	// Success is the agent's verdict.
	Success bool `json:"success"`
	// CastAt is when the vote was recorded.
	CastAt time.Time `json:"cast_at"`
}

// ConsensusStatus reports the adjudication state for one task.
// Complete=false means votes are still outstanding and the other
// fields are not yet meaningful.
type ConsensusStatus struct {
	// Complete is true once every assigned agent has voted.
	Complete bool `json:"complete"`
	// Achieved is true when the success ratio met the decision threshold.
	Achieved bool `json:"achieved"`
	// Result is the consensus result, set only when achieved.
	Result *TaskResult `json:"result,omitempty"`
	// Confidence is the fraction of votes agreeing with the outcome.
	Confidence float64 `json:"confidence,omitempty"`
	// ParticipationRate is votes cast over votes expected.
	ParticipationRate float64 `json:"participation_rate,omitempty"`
	// FailureReason explains a not-achieved outcome.
	FailureReason string `json:"failure_reason,omitempty"`
}
