package models

import "time"

// PhaseName identifies one phase of an execution plan.
type PhaseName string

const (
	// PhasePreparation is the analysis/setup phase.
	PhasePreparation PhaseName = "preparation"
	// PhaseExecution is the main work phase.
	PhaseExecution PhaseName = "execution"
	// PhaseValidation is the quality-check phase.
	PhaseValidation PhaseName = "validation"
)

// Valid returns true if the phase name is a known value.
func (p PhaseName) Valid() bool {
	switch p {
	case PhasePreparation, PhaseExecution, PhaseValidation:
		return true
	default:
		return false
	}
}

// PhaseAssignment describes the role responsible for one plan phase.
type PhaseAssignment struct {
	// Phase is the phase this assignment belongs to.
	Phase PhaseName `json:"phase"`
	// Role names the kind of agent the phase expects, e.g. "executor".
	Role string `json:"role"`
	// RequiredCapabilities lists the capabilities the role must have.
	RequiredCapabilities []string `json:"required_capabilities,omitempty"`
	// Responsibilities describes what the role does during the phase.
	Responsibilities []string `json:"responsibilities,omitempty"`
	// ExpectedOutput describes the artifact the phase should produce.
	ExpectedOutput string `json:"expected_output"`
	// Timeout bounds how long the phase may run.
	Timeout time.Duration `json:"timeout"`
	// CanRunParallel is true when agents may work the phase concurrently.
	CanRunParallel bool `json:"can_run_parallel"`
}

// PlanCheckpoint gates the transition between two plan phases.
type PlanCheckpoint struct {
	// From is the phase that must finish before the transition.
	From PhaseName `json:"from"`
	// To is the phase unlocked by the transition.
	To PhaseName `json:"to"`
	// Condition names the predicate for the transition, e.g.
	// "preparation_successful".
	Condition string `json:"condition"`
}

// ResourceHints carries advisory sizing for an execution plan.
type ResourceHints struct {
	// Agents is the number of agents the plan expects to consume.
	Agents int `json:"agents"`
	// MemoryMB is the advisory per-agent memory budget.
	MemoryMB int `json:"memory_mb"`
}

// ExecutionPlan is the phased work breakdown built for one task
// execution attempt. Plans are ephemeral: rebuilt on every attempt and
// never persisted.
type ExecutionPlan struct {
	// TaskID is the task this plan was built for.
	TaskID string `json:"task_id"`
	// Strategy mirrors the task's execution strategy.
	Strategy ExecutionStrategy `json:"strategy"`
	// Phases lists the phase names in execution order.
	Phases []PhaseName `json:"phases"`
	// Assignments holds one role assignment per phase, in phase order.
	Assignments []PhaseAssignment `json:"assignments"`
	// Checkpoints gates each phase transition on the prior phase succeeding.
	Checkpoints []PlanCheckpoint `json:"checkpoints"`
	// Parallelizable is true when the plan's execution phase may fan out.
	Parallelizable bool `json:"parallelizable"`
	// EstimatedDuration is the advisory total runtime estimate.
	EstimatedDuration time.Duration `json:"estimated_duration"`
	// Resources carries advisory sizing hints.
	Resources ResourceHints `json:"resources"`
}

// TotalPhases returns the number of phases in the plan.
func (p *ExecutionPlan) TotalPhases() int {
	return len(p.Phases)
}
