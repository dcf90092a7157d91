package agent

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/hiveworks/hiveflow/pkg/models"
)

func testAssignment(phase models.PhaseName) models.PhaseAssignment {
	return models.PhaseAssignment{
		Phase:            phase,
		Role:             "executor",
		Responsibilities: []string{"do the work", "report results"},
		ExpectedOutput:   "working artifact",
	}
}

func TestScriptedWorker_DefaultOutput(t *testing.T) {
	w := &ScriptedWorker{}
	task := &models.Task{ID: "task-1", Description: "build it"}

	out, err := w.RunPhase(context.Background(), task, testAssignment(models.PhaseExecution), "")
	if err != nil {
		t.Fatalf("RunPhase() error = %v", err)
	}
	if out != "execution of task-1 finished" {
		t.Errorf("output = %q, want generated summary", out)
	}
}

func TestScriptedWorker_CannedOutputAndFailure(t *testing.T) {
	w := &ScriptedWorker{
		Outputs: map[models.PhaseName]string{models.PhaseExecution: "the artifact"},
		FailOn:  map[models.PhaseName]string{models.PhaseValidation: "checks failed"},
	}
	task := &models.Task{ID: "task-1"}

	out, err := w.RunPhase(context.Background(), task, testAssignment(models.PhaseExecution), "")
	if err != nil {
		t.Fatalf("RunPhase(execution) error = %v", err)
	}
	if out != "the artifact" {
		t.Errorf("output = %q, want canned output", out)
	}

	_, err = w.RunPhase(context.Background(), task, testAssignment(models.PhaseValidation), "")
	if err == nil || err.Error() != "checks failed" {
		t.Errorf("RunPhase(validation) error = %v, want scripted failure", err)
	}
}

func TestScriptedWorker_HonorsCancellation(t *testing.T) {
	w := &ScriptedWorker{Delay: time.Second}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	_, err := w.RunPhase(ctx, &models.Task{ID: "task-1"}, testAssignment(models.PhaseExecution), "")
	if err != context.Canceled {
		t.Errorf("RunPhase() error = %v, want context.Canceled", err)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Error("cancelled phase waited out its delay")
	}
}

func TestBuildSystemPrompt(t *testing.T) {
	prompt := buildSystemPrompt("coder", testAssignment(models.PhaseExecution))

	if !strings.Contains(prompt, "coder agent") {
		t.Errorf("system prompt missing role: %q", prompt)
	}
	if !strings.Contains(prompt, "executor") {
		t.Errorf("system prompt missing phase role: %q", prompt)
	}

	// An empty role falls back to the generalist framing.
	prompt = buildSystemPrompt("", testAssignment(models.PhasePreparation))
	if !strings.Contains(prompt, "general agent") {
		t.Errorf("system prompt for empty role = %q, want general framing", prompt)
	}
}

func TestBuildPhasePrompt(t *testing.T) {
	task := &models.Task{ID: "task-9", Description: "refactor the scheduler"}
	assignment := testAssignment(models.PhaseExecution)

	prompt := buildPhasePrompt(task, assignment, "analysis notes")

	for _, want := range []string{
		"task-9",
		"refactor the scheduler",
		"execution",
		"do the work",
		"working artifact",
		"analysis notes",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestBuildPhasePrompt_NoPriorOutput(t *testing.T) {
	prompt := buildPhasePrompt(&models.Task{ID: "task-9"}, testAssignment(models.PhasePreparation), "")
	if strings.Contains(prompt, "previous phase") {
		t.Errorf("first-phase prompt mentions a previous phase:\n%s", prompt)
	}
}
