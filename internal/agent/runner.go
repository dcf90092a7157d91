package agent

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hiveworks/hiveflow/internal/bus"
	"github.com/hiveworks/hiveflow/internal/hivelog"
	"github.com/hiveworks/hiveflow/pkg/models"
)

// defaultSubscriptionBuffer sizes the runner's direct-topic channel.
const defaultSubscriptionBuffer = 64

// RunnerConfig configures a Runner.
type RunnerConfig struct {
	// AgentID is the registered hive identity this runner serves.
	AgentID string
	// Bus is the event bus carrying assignments and reports.
	Bus *bus.Bus
	// Worker executes the plan phases.
	Worker Worker
	// Logger is the optional debug logger.
	Logger *hivelog.DebugLogger
	// Buffer overrides the subscription channel size. Zero uses a
	// default.
	Buffer int
}

// Runner is the live half of one agent: it listens on the agent's
// direct topic for assignments, works through each plan phase, and
// publishes phase checkpoints and the final verdict. Cancellation
// notices interrupt the in-flight task.
type Runner struct {
	agentID string
	bus     *bus.Bus
	worker  Worker
	logger  *hivelog.DebugLogger
	buffer  int

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started atomic.Bool

	mu       sync.Mutex
	inflight map[string]context.CancelFunc
}

// NewRunner creates a runner for one registered agent.
func NewRunner(cfg RunnerConfig) (*Runner, error) {
	if cfg.AgentID == "" {
		return nil, fmt.Errorf("runner: AgentID is required")
	}
	if cfg.Bus == nil {
		return nil, fmt.Errorf("runner: Bus is required")
	}
	if cfg.Worker == nil {
		return nil, fmt.Errorf("runner: Worker is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = hivelog.Nop()
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = defaultSubscriptionBuffer
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		agentID:  cfg.AgentID,
		bus:      cfg.Bus,
		worker:   cfg.Worker,
		logger:   cfg.Logger,
		buffer:   cfg.Buffer,
		ctx:      ctx,
		cancel:   cancel,
		inflight: make(map[string]context.CancelFunc),
	}, nil
}

// AgentID returns the agent identity this runner serves.
func (r *Runner) AgentID() string {
	return r.agentID
}

// Inflight returns the number of tasks currently executing.
func (r *Runner) Inflight() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.inflight)
}

// Start subscribes to the agent's direct topic and begins serving
// assignments. The subscription is live once Start returns.
func (r *Runner) Start() {
	if !r.started.CompareAndSwap(false, true) {
		return
	}
	events := r.bus.Subscribe(bus.AgentTopic(r.agentID), r.buffer)
	r.wg.Add(1)
	go r.serve(events)
	r.logger.Log("agent %s runner started", r.agentID)
}

// Stop interrupts any in-flight work and waits for the runner to
// drain. Safe to call more than once.
func (r *Runner) Stop() {
	r.cancel()
	r.wg.Wait()
}

func (r *Runner) serve(events <-chan bus.Event) {
	defer r.wg.Done()
	for {
		select {
		case <-r.ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			switch ev.Type {
			case bus.TypeTaskAssigned:
				r.acceptTask(ev)
			case bus.TypeTaskCancelled:
				r.interruptTask(ev.TaskID)
			}
		}
	}
}

// acceptTask spawns the execution of one assignment. Execution runs
// off the serve loop so cancellation notices can interleave.
func (r *Runner) acceptTask(ev bus.Event) {
	if ev.Task == nil || ev.Plan == nil {
		r.logger.Log("agent %s: malformed assignment for %s", r.agentID, ev.TaskID)
		return
	}
	task, plan := ev.Task, ev.Plan

	tctx, cancel := context.WithCancel(r.ctx)
	r.mu.Lock()
	r.inflight[task.ID] = cancel
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			cancel()
			r.mu.Lock()
			delete(r.inflight, task.ID)
			r.mu.Unlock()
		}()
		r.execute(tctx, task, plan)
	}()
}

// interruptTask cancels the in-flight execution of one task. Unknown
// task IDs are stale notices and ignored.
func (r *Runner) interruptTask(taskID string) {
	r.mu.Lock()
	cancel, ok := r.inflight[taskID]
	r.mu.Unlock()
	if ok {
		r.logger.Log("agent %s: interrupting task %s", r.agentID, taskID)
		cancel()
	}
}

// execute works through the plan's phases in order, publishing a
// checkpoint after each. A phase error fails the whole task; a
// cancelled task goes quiet because the scheduler already moved on.
func (r *Runner) execute(ctx context.Context, task *models.Task, plan *models.ExecutionPlan) {
	started := time.Now()
	var output string

	for i, assignment := range plan.Assignments {
		phaseOut, err := r.runPhase(ctx, task, assignment, output)
		if err != nil {
			if ctx.Err() != nil {
				r.logger.Log("agent %s: task %s halted during %s", r.agentID, task.ID, assignment.Phase)
				return
			}
			r.logger.Log("agent %s: task %s failed in %s: %v", r.agentID, task.ID, assignment.Phase, err)
			r.bus.Publish(bus.TopicAgentTaskFailed, bus.Event{
				Type:          bus.TopicAgentTaskFailed,
				TaskID:        task.ID,
				AgentID:       r.agentID,
				Error:         err.Error(),
				ExecutionTime: time.Since(started),
			})
			return
		}
		if phaseOut != "" {
			output = phaseOut
		}

		r.bus.Publish(bus.TopicAgentPhaseCompleted, bus.Event{
			Type:         bus.TopicAgentPhaseCompleted,
			TaskID:       task.ID,
			AgentID:      r.agentID,
			Phase:        assignment.Phase,
			CurrentPhase: i + 1,
			TotalPhases:  plan.TotalPhases(),
		})
	}

	elapsed := time.Since(started)
	r.logger.Log("agent %s: task %s done in %s", r.agentID, task.ID, elapsed.Round(time.Millisecond))
	r.bus.Publish(bus.TopicAgentTaskCompleted, bus.Event{
		Type:    bus.TopicAgentTaskCompleted,
		TaskID:  task.ID,
		AgentID: r.agentID,
		Success: true,
		Result: &models.TaskResult{
			Output:        output,
			ExecutedBy:    []string{r.agentID},
			ExecutionTime: elapsed,
			CompletedAt:   time.Now(),
		},
		ExecutionTime: elapsed,
	})
}

// runPhase executes one phase under its advisory timeout. prior is
// the previous phase's output, chained through so later phases build
// on earlier work.
func (r *Runner) runPhase(ctx context.Context, task *models.Task, assignment models.PhaseAssignment, prior string) (string, error) {
	if assignment.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, assignment.Timeout)
		defer cancel()
	}
	out, err := r.worker.RunPhase(ctx, task, assignment, prior)
	if err != nil {
		return "", fmt.Errorf("phase %s: %w", assignment.Phase, err)
	}
	return out, nil
}
