// Package agent provides the worker agents of the hive: runners that
// listen for task assignments on the event bus, execute each plan
// phase through a pluggable Worker backend, and report checkpoints and
// outcomes back to the scheduler.
package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hiveworks/hiveflow/pkg/models"
)

// Worker executes one plan phase of a task. Implementations must
// honor context cancellation; a cancelled phase should return the
// context's error.
type Worker interface {
	// RunPhase performs the work of one phase and returns its output.
	// prior carries the previous phase's output, empty for the first
	// phase.
	RunPhase(ctx context.Context, task *models.Task, assignment models.PhaseAssignment, prior string) (string, error)
}

// ScriptedWorker is a deterministic Worker for tests and dry runs. It
// returns canned outputs per phase and can be told to fail or stall.
type ScriptedWorker struct {
	// Outputs maps phase names to canned outputs. Phases without an
	// entry produce a generated summary line.
	Outputs map[models.PhaseName]string
	// FailOn maps phase names to failure messages. A listed phase
	// fails instead of producing output.
	FailOn map[models.PhaseName]string
	// Delay is an artificial per-phase latency. The worker aborts the
	// wait when the context is cancelled.
	Delay time.Duration
}

// RunPhase returns the scripted outcome for the phase.
func (w *ScriptedWorker) RunPhase(ctx context.Context, task *models.Task, assignment models.PhaseAssignment, _ string) (string, error) {
	if w.Delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(w.Delay):
		}
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if reason, ok := w.FailOn[assignment.Phase]; ok {
		return "", errors.New(reason)
	}
	if out, ok := w.Outputs[assignment.Phase]; ok {
		return out, nil
	}
	return fmt.Sprintf("%s of %s finished", assignment.Phase, task.ID), nil
}

// Compile-time verification of the Worker implementations.
var (
	_ Worker = (*ScriptedWorker)(nil)
	_ Worker = (*ClaudeWorker)(nil)
)
