package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/hiveworks/hiveflow/internal/api"
	"github.com/hiveworks/hiveflow/pkg/models"
)

// ClaudeWorker executes plan phases by prompting Claude through the
// direct API client. One worker serves one agent role.
type ClaudeWorker struct {
	client *api.Client
	role   string
}

// NewClaudeWorker creates a Claude-backed worker for the given role.
func NewClaudeWorker(client *api.Client, role string) *ClaudeWorker {
	return &ClaudeWorker{client: client, role: role}
}

// RunPhase prompts the model to perform one phase of the task.
func (w *ClaudeWorker) RunPhase(ctx context.Context, task *models.Task, assignment models.PhaseAssignment, prior string) (string, error) {
	output, err := w.client.Complete(ctx, api.CompletionRequest{
		System: buildSystemPrompt(w.role, assignment),
		Prompt: buildPhasePrompt(task, assignment, prior),
	})
	if err != nil {
		return "", fmt.Errorf("run %s phase: %w", assignment.Phase, err)
	}
	return output, nil
}

// buildSystemPrompt frames the model as one worker in the hive.
func buildSystemPrompt(role string, assignment models.PhaseAssignment) string {
	var sb strings.Builder

	sb.WriteString("You are a ")
	if role == "" {
		role = "general"
	}
	sb.WriteString(role)
	sb.WriteString(" agent in a hive-mind swarm. You work one phase of a shared task at a time.\n")
	sb.WriteString("Current phase role: ")
	sb.WriteString(assignment.Role)
	sb.WriteString("\n")
	sb.WriteString("Stay within the phase. Do not anticipate later phases or revisit earlier ones.\n")

	return sb.String()
}

// buildPhasePrompt constructs the user prompt for one plan phase.
func buildPhasePrompt(task *models.Task, assignment models.PhaseAssignment, prior string) string {
	var sb strings.Builder

	sb.WriteString("Task ID: ")
	sb.WriteString(task.ID)
	sb.WriteString("\n")
	sb.WriteString("Phase: ")
	sb.WriteString(string(assignment.Phase))
	sb.WriteString("\n\nTask description:\n")
	sb.WriteString(task.Description)
	sb.WriteString("\n")

	if len(assignment.Responsibilities) > 0 {
		sb.WriteString("\nYour responsibilities in this phase:\n")
		for _, r := range assignment.Responsibilities {
			sb.WriteString(fmt.Sprintf("- %s\n", r))
		}
	}

	if assignment.ExpectedOutput != "" {
		sb.WriteString("\nExpected output: ")
		sb.WriteString(assignment.ExpectedOutput)
		sb.WriteString("\n")
	}

	if prior != "" {
		sb.WriteString("\nOutput of the previous phase:\n")
		sb.WriteString(prior)
		sb.WriteString("\n")
	}

	sb.WriteString("\nComplete this phase and reply with its output only.\n")

	return sb.String()
}
