package executor

import (
	"context"

	"github.com/hiveworks/hiveflow/pkg/models"
)

// HiveMind is the agent registry and collective-state collaborator the
// executor coordinates with. The executor treats it as an
// already-synchronized service: implementations must be safe for
// concurrent use and must tolerate calls for task IDs they have never
// seen.
type HiveMind interface {
	// GetAvailableAgents returns up to count agent IDs whose
	// capabilities cover every entry in requiredCapabilities, for the
	// given task type. An empty slice means no suitable agents exist.
	GetAvailableAgents(ctx context.Context, taskType string, requiredCapabilities []string, count int) ([]string, error)

	// AssignAgents records the binding of agents to a task.
	AssignAgents(ctx context.Context, taskID string, agentIDs []string) error

	// FindAlternativeAgent returns a substitute agent for the task,
	// excluding the agent that just failed. An empty string means no
	// alternative is available.
	FindAlternativeAgent(ctx context.Context, taskID, excludeAgentID string) (string, error)

	// SaveTask records a newly submitted task.
	SaveTask(ctx context.Context, task *models.Task) error

	// UpdateTaskStatus mirrors a task's lifecycle state.
	UpdateTaskStatus(ctx context.Context, taskID string, status models.TaskStatus) error

	// UpdateTaskProgress mirrors a task's progress percentage.
	UpdateTaskProgress(ctx context.Context, taskID string, percent int) error

	// CompleteTask finalizes a task as successful.
	CompleteTask(ctx context.Context, taskID string, result *models.TaskResult) error

	// FailTask finalizes a task as failed with a human-readable error.
	FailTask(ctx context.Context, taskID string, reason string) error

	// CancelTask finalizes a task as cancelled.
	CancelTask(ctx context.Context, taskID string) error

	// AddConsensusResult records one agent's vote on a consensus task.
	AddConsensusResult(ctx context.Context, taskID, agentID, output string, success bool) error

	// GetConsensusStatus reports the adjudication state for a task.
	// The registry owns quorum policy; the executor only acts on the
	// complete/achieved flags.
	GetConsensusStatus(ctx context.Context, taskID string) (models.ConsensusStatus, error)

	// GetTask is the fallback lookup for tasks the executor no longer
	// holds locally. Returns nil with no error when the task is unknown.
	GetTask(ctx context.Context, taskID string) (*models.Task, error)
}
