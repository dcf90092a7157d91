package models

import "time"

// TaskStatus represents the current state of a task.
type TaskStatus string

const (
	// TaskStatusPending indicates the task is queued and has not started.
	TaskStatusPending TaskStatus = "pending"
	// TaskStatusInProgress indicates the task is being executed by agents.
	TaskStatusInProgress TaskStatus = "in_progress"
	// TaskStatusCompleted indicates the task finished successfully.
	TaskStatusCompleted TaskStatus = "completed"
	// TaskStatusFailed indicates the task terminated with an error.
	TaskStatusFailed TaskStatus = "failed"
	// TaskStatusCancelled indicates the task was cancelled before resolving.
	TaskStatusCancelled TaskStatus = "cancelled"
)

// Valid returns true if the status is a known value.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted,
		TaskStatusFailed, TaskStatusCancelled:
		return true
	default:
		return false
	}
}

// Terminal returns true if the status is a final state.
func (s TaskStatus) Terminal() bool {
	switch s {
	case TaskStatusCompleted, TaskStatusFailed, TaskStatusCancelled:
		return true
	default:
		return false
	}
}

// TaskPriority represents the scheduling priority of a task.
type TaskPriority string

const (
	// PriorityLow is for background work that can wait indefinitely.
	PriorityLow TaskPriority = "low"
	// PriorityMedium is the default priority for ordinary tasks.
	PriorityMedium TaskPriority = "medium"
	// PriorityHigh is for tasks that should jump ahead of ordinary work.
	PriorityHigh TaskPriority = "high"
	// PriorityCritical is for tasks that must dispatch before everything else.
	PriorityCritical TaskPriority = "critical"
)

// Valid returns true if the priority is a known value.
func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	default:
		return false
	}
}

// Weight returns the numeric scheduling weight for the priority.
// Higher weights dispatch first. Unknown priorities weigh zero.
func (p TaskPriority) Weight() int {
	switch p {
	case PriorityCritical:
		return 10
	case PriorityHigh:
		return 5
	case PriorityMedium:
		return 3
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// ExecutionStrategy represents how assigned agents divide a task.
type ExecutionStrategy string

const (
	// StrategySequential runs a task on a single agent at a time.
	StrategySequential ExecutionStrategy = "sequential"
	// StrategyParallel fans a task out to multiple agents at once.
	StrategyParallel ExecutionStrategy = "parallel"
	// StrategyAdaptive lets the swarm choose; scheduled like sequential.
	StrategyAdaptive ExecutionStrategy = "adaptive"
)

// Valid returns true if the strategy is a known value.
func (s ExecutionStrategy) Valid() bool {
	switch s {
	case StrategySequential, StrategyParallel, StrategyAdaptive:
		return true
	default:
		return false
	}
}

// Task represents a unit of work submitted to the hive.
type Task struct {
	// ID is the unique identifier for this task.
	ID string `json:"id"`
	// SwarmID is the ID of the swarm this task belongs to.
	SwarmID string `json:"swarm_id"`
	// Description is the human-readable statement of the work.
	Description string `json:"description"`
	// Priority determines scheduling order relative to other pending tasks.
	Priority TaskPriority `json:"priority"`
	// Strategy determines how assigned agents divide the work.
	Strategy ExecutionStrategy `json:"strategy"`
	// Status is the current lifecycle state of the task.
	Status TaskStatus `json:"status"`
	// Progress is the completion percentage (0-100), never decreasing.
	Progress int `json:"progress"`
	// Dependencies lists task IDs recorded at submission. The scheduler
	// does not gate dispatch on them.
	Dependencies []string `json:"dependencies,omitempty"`
	// AssignedAgents lists the IDs of agents currently bound to the task.
	AssignedAgents []string `json:"assigned_agents,omitempty"`
	// RequireConsensus routes per-agent results through consensus voting.
	RequireConsensus bool `json:"require_consensus"`
	// MaxAgents caps how many agents a parallel task may use.
	MaxAgents int `json:"max_agents"`
	// RequiredCapabilities lists capabilities an agent must have to be assigned.
	RequiredCapabilities []string `json:"required_capabilities,omitempty"`
	// Result holds the outcome once the task completes.
	Result *TaskResult `json:"result,omitempty"`
	// Error contains the error message if the task failed.
	Error string `json:"error,omitempty"`
	// Metadata carries free-form submitter annotations.
	Metadata map[string]string `json:"metadata,omitempty"`
	// CreatedAt is when the task was submitted.
	CreatedAt time.Time `json:"created_at"`
	// CompletedAt is when the task reached a terminal state, if it has.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Clone returns a deep copy of the task. The scheduler owns the live
// record; callers outside it only ever see clones.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	c.Dependencies = append([]string(nil), t.Dependencies...)
	c.AssignedAgents = append([]string(nil), t.AssignedAgents...)
	c.RequiredCapabilities = append([]string(nil), t.RequiredCapabilities...)
	if t.Metadata != nil {
		c.Metadata = make(map[string]string, len(t.Metadata))
		for k, v := range t.Metadata {
			c.Metadata[k] = v
		}
	}
	if t.Result != nil {
		r := *t.Result
		r.ExecutedBy = append([]string(nil), t.Result.ExecutedBy...)
		c.Result = &r
	}
	if t.CompletedAt != nil {
		done := *t.CompletedAt
		c.CompletedAt = &done
	}
	return &c
}

// TaskResult is the outcome of a completed task.
type TaskResult struct {
	// Output is the result payload produced by the winning agent(s).
	Output string `json:"output"`
	// ExecutedBy lists the IDs of agents whose work produced the output.
	ExecutedBy []string `json:"executed_by,omitempty"`
	// Confidence is the consensus confidence, when consensus decided the task.
	Confidence float64 `json:"confidence,omitempty"`
	// ExecutionTime is how long the task ran from dispatch to resolution.
	ExecutionTime time.Duration `json:"execution_time"`
	// CompletedAt is when the result was finalized.
	CompletedAt time.Time `json:"completed_at"`
}
