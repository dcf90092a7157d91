// Package bus provides the in-process event bus connecting the task
// executor, the hive registry, and agent runners. Publishing is
// fire-and-forget: slow subscribers drop events rather than block the
// scheduler.
package bus

import (
	"time"

	"github.com/hiveworks/hiveflow/pkg/models"
)

// Broadcast topics published by the executor.
const (
	// TopicTaskSubmitted fires when a task enters the pending queue.
	TopicTaskSubmitted = "task:submitted"
	// TopicTaskStarted fires when a task is promoted to execution.
	TopicTaskStarted = "task:started"
	// TopicTaskProgress fires on each progress-report tick.
	TopicTaskProgress = "task:progress"
	// TopicTaskCompleted fires when a task completes successfully.
	TopicTaskCompleted = "task:completed"
	// TopicTaskFailed fires when a task terminates with an error.
	TopicTaskFailed = "task:failed"
	// TopicTaskCancelled fires when a task is cancelled.
	TopicTaskCancelled = "task:cancelled"
)

// Topics published by agent runners and consumed by the executor.
const (
	// TopicAgentTaskCompleted carries one agent's successful result.
	TopicAgentTaskCompleted = "agent:task_completed"
	// TopicAgentTaskFailed carries one agent's failure report.
	TopicAgentTaskFailed = "agent:task_failed"
	// TopicAgentPhaseCompleted marks one agent finishing one plan phase.
	TopicAgentPhaseCompleted = "agent:phase_completed"
)

// Topics published by the hive's consensus engine.
const (
	// TopicConsensusAchieved fires when voting completes in agreement.
	TopicConsensusAchieved = "consensus:achieved"
	// TopicConsensusFailed fires when voting completes without agreement.
	TopicConsensusFailed = "consensus:failed"
)

// Event types carried on per-agent topics.
const (
	// TypeTaskAssigned hands a task and its plan to one agent.
	TypeTaskAssigned = "task_assigned"
	// TypeTaskCancelled tells an agent to abandon a task.
	TypeTaskCancelled = "task_cancelled"
)

// AgentTopic returns the direct notification topic for one agent.
// Assignment and cancellation events for that agent are published here.
func AgentTopic(agentID string) string {
	return "agent:" + agentID
}

// Event is the single message shape carried on every topic. Which
// fields are populated depends on the topic; Type mirrors the topic
// name for broadcast events and distinguishes messages on per-agent
// topics.
type Event struct {
	// Type is the kind of event.
	Type string
	// TaskID is the ID of the related task, if applicable.
	TaskID string
	// AgentID is the ID of the related agent, if applicable.
	AgentID string
	// Task is the full task record, for task_assigned events.
	Task *models.Task
	// Plan is the execution plan, for task_assigned events.
	Plan *models.ExecutionPlan
	// Result carries a task result for completion and consensus events.
	Result *models.TaskResult
	// Success is the reporting agent's verdict.
	Success bool
	// Error contains failure details for failure events.
	Error string
	// Reason explains a cancellation or consensus failure.
	Reason string
	// Progress is the task completion percentage, for progress events.
	Progress int
	// CurrentPhase is the number of completed plan phases.
	CurrentPhase int
	// TotalPhases is the plan's phase count, for progress events.
	TotalPhases int
	// Phase names the finished phase, for phase_completed events.
	Phase models.PhaseName
	// AssignedAgents lists bound agent IDs, for started events.
	AssignedAgents []string
	// Confidence is the consensus confidence, for consensus events.
	Confidence float64
	// ExecutionTime is the task's total runtime, for terminal events.
	ExecutionTime time.Duration
	// ElapsedTime is time since dispatch, for progress events.
	ElapsedTime time.Duration
	// Timestamp is when the event was published.
	Timestamp time.Time
}
