package executor

import (
	"time"

	"github.com/hiveworks/hiveflow/pkg/models"
)

// CapabilityQualityAssurance is required of validation-phase agents on
// top of whatever the task itself demands.
const CapabilityQualityAssurance = "quality_assurance"

// parallelAgentCap is the hard ceiling on agents per parallel task.
const parallelAgentCap = 5

// buildPlan derives the three-phase execution plan for one attempt at
// a task. Deterministic and side-effect-free; plans are rebuilt per
// attempt and never persisted.
func buildPlan(task *models.Task, timeout time.Duration) *models.ExecutionPlan {
	phaseTimeout := timeout / 3
	parallel := task.Strategy == models.StrategyParallel

	capabilities := func(extra ...string) []string {
		caps := append([]string(nil), task.RequiredCapabilities...)
		return append(caps, extra...)
	}

	return &models.ExecutionPlan{
		TaskID:   task.ID,
		Strategy: task.Strategy,
		Phases: []models.PhaseName{
			models.PhasePreparation,
			models.PhaseExecution,
			models.PhaseValidation,
		},
		Assignments: []models.PhaseAssignment{
			{
				Phase:                models.PhasePreparation,
				Role:                 "planner",
				RequiredCapabilities: capabilities(),
				Responsibilities: []string{
					"analyze the task objective",
					"prepare the execution approach",
				},
				ExpectedOutput: "execution approach",
				Timeout:        phaseTimeout,
				CanRunParallel: false,
			},
			{
				Phase:                models.PhaseExecution,
				Role:                 "executor",
				RequiredCapabilities: capabilities(),
				Responsibilities: []string{
					"carry out the prepared approach",
					"produce the task deliverable",
				},
				ExpectedOutput: "task deliverable",
				Timeout:        phaseTimeout,
				CanRunParallel: parallel,
			},
			{
				Phase:                models.PhaseValidation,
				Role:                 "validator",
				RequiredCapabilities: capabilities(CapabilityQualityAssurance),
				Responsibilities: []string{
					"verify the deliverable against the objective",
					"report quality findings",
				},
				ExpectedOutput: "validation report",
				Timeout:        phaseTimeout,
				CanRunParallel: false,
			},
		},
		Checkpoints: []models.PlanCheckpoint{
			{From: models.PhasePreparation, To: models.PhaseExecution, Condition: "preparation_successful"},
			{From: models.PhaseExecution, To: models.PhaseValidation, Condition: "execution_successful"},
		},
		Parallelizable:    parallel,
		EstimatedDuration: timeout,
		Resources: models.ResourceHints{
			Agents:   planAgentTarget(task),
			MemoryMB: 512,
		},
	}
}

// planAgentTarget computes how many agents the plan expects:
// min(task.MaxAgents, 5) for parallel strategy, one otherwise.
func planAgentTarget(task *models.Task) int {
	if task.Strategy != models.StrategyParallel {
		return 1
	}
	n := task.MaxAgents
	if n > parallelAgentCap {
		n = parallelAgentCap
	}
	if n < 1 {
		n = 1
	}
	return n
}
