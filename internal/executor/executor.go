package executor

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/hiveworks/hiveflow/internal/bus"
	"github.com/hiveworks/hiveflow/internal/hivelog"
	"github.com/hiveworks/hiveflow/pkg/models"
)

// commandBuffer is the run loop's inbox size. Posts beyond it block
// the posting goroutine until the loop drains.
const commandBuffer = 128

// Executor owns the task lifecycle for one swarm: queueing,
// dispatching, planning, assignment, supervision, and finalization.
// One goroutine (the run loop) owns all mutable state below; every
// entry point posts a command into that loop.
type Executor struct {
	hive   HiveMind
	bus    *bus.Bus
	logger *hivelog.DebugLogger

	maxConcurrentTasks int
	taskTimeout        time.Duration
	progressInterval   time.Duration
	maxRetries         int
	retryFailedTasks   bool
	maxQueueDepth      int
	completedHistory   int
	swarmID            string

	commands chan func()
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	started  atomic.Bool

	// Run-loop-owned state. Never touched outside the loop.
	pending        []*models.Task
	active         map[string]*executionContext
	completed      map[string]*models.Task
	completedOrder []string
	paused         bool
	dispatching    bool
	metrics        Metrics
}

// New creates an Executor. The returned executor is idle until Start
// is called.
func New(req RequiredConfig, opts ...Option) (*Executor, error) {
	if req.Hive == nil {
		return nil, fmt.Errorf("executor: Hive is required")
	}
	if req.Bus == nil {
		return nil, fmt.Errorf("executor: Bus is required")
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Executor{
		hive:               req.Hive,
		bus:                req.Bus,
		logger:             o.logger,
		maxConcurrentTasks: o.maxConcurrentTasks,
		taskTimeout:        o.taskTimeout,
		progressInterval:   o.progressInterval,
		maxRetries:         o.maxRetries,
		retryFailedTasks:   o.retryFailedTasks,
		maxQueueDepth:      o.maxQueueDepth,
		completedHistory:   o.completedHistory,
		swarmID:            o.swarmID,
		commands:           make(chan func(), commandBuffer),
		ctx:                ctx,
		cancel:             cancel,
		done:               make(chan struct{}),
		active:             make(map[string]*executionContext),
		completed:          make(map[string]*models.Task),
	}, nil
}

// Start launches the run loop and the bus subscription pump. Call
// exactly once; submissions before Start fail with ErrStopped.
func (e *Executor) Start() {
	if !e.started.CompareAndSwap(false, true) {
		return
	}
	// Subscriptions are created before the first submission can
	// dispatch, so no agent report can slip past the pump.
	subs := e.subscribe()
	go e.run()
	go e.pumpEvents(subs)
	e.logger.Log("executor started: maxConcurrent=%d timeout=%s progressInterval=%s maxRetries=%d",
		e.maxConcurrentTasks, e.taskTimeout, e.progressInterval, e.maxRetries)
}

// Stop shuts the executor down. In-flight tasks are abandoned: their
// timers are cleared and no further events are emitted for them. Safe
// to call more than once.
func (e *Executor) Stop() {
	e.cancel()
	if e.started.Load() {
		<-e.done
	}
}

// run is the scheduler actor. It executes posted commands one at a
// time; on shutdown it clears every live timer so nothing fires after
// exit.
func (e *Executor) run() {
	defer close(e.done)
	for {
		select {
		case <-e.ctx.Done():
			for _, ectx := range e.active {
				ectx.clearTimers()
			}
			return
		case cmd := <-e.commands:
			cmd()
		}
	}
}

// eventSubs bundles the bus channels the executor listens on.
type eventSubs struct {
	completed <-chan bus.Event
	failed    <-chan bus.Event
	phases    <-chan bus.Event
	achieved  <-chan bus.Event
	rejected  <-chan bus.Event
}

func (e *Executor) subscribe() eventSubs {
	return eventSubs{
		completed: e.bus.Subscribe(bus.TopicAgentTaskCompleted, 0),
		failed:    e.bus.Subscribe(bus.TopicAgentTaskFailed, 0),
		phases:    e.bus.Subscribe(bus.TopicAgentPhaseCompleted, 0),
		achieved:  e.bus.Subscribe(bus.TopicConsensusAchieved, 0),
		rejected:  e.bus.Subscribe(bus.TopicConsensusFailed, 0),
	}
}

// pumpEvents forwards agent and consensus bus traffic into the run
// loop.
func (e *Executor) pumpEvents(subs eventSubs) {
	for {
		select {
		case <-e.ctx.Done():
			return
		case ev, ok := <-subs.completed:
			if !ok {
				return
			}
			e.post(func() { e.handleAgentCompleted(ev) })
		case ev, ok := <-subs.failed:
			if !ok {
				return
			}
			e.post(func() { e.handleAgentFailed(ev) })
		case ev, ok := <-subs.phases:
			if !ok {
				return
			}
			e.post(func() { e.handlePhaseCompleted(ev) })
		case ev, ok := <-subs.achieved:
			if !ok {
				return
			}
			e.post(func() { e.handleConsensusAchieved(ev) })
		case ev, ok := <-subs.rejected:
			if !ok {
				return
			}
			e.post(func() { e.handleConsensusFailed(ev) })
		}
	}
}

// post delivers a command to the run loop, dropping it if the
// executor is stopping. Used by timers and the event pump, which have
// no caller to report an error to.
func (e *Executor) post(fn func()) {
	select {
	case e.commands <- fn:
	case <-e.ctx.Done():
	}
}

// do delivers a command and reports whether it was accepted. The
// command itself is responsible for replying to the caller.
func (e *Executor) do(fn func()) error {
	if !e.started.Load() {
		return ErrStopped
	}
	select {
	case e.commands <- fn:
		return nil
	case <-e.ctx.Done():
		return ErrStopped
	}
}

// SubmitOptions describes one task submission.
type SubmitOptions struct {
	// SwarmID overrides the executor's default swarm.
	SwarmID string
	// Description is the human-readable statement of the work. Required.
	Description string
	// Priority defaults to medium.
	Priority models.TaskPriority
	// Strategy defaults to sequential.
	Strategy models.ExecutionStrategy
	// Dependencies are recorded on the task but do not gate dispatch.
	Dependencies []string
	// RequireConsensus routes per-agent results through consensus voting.
	RequireConsensus bool
	// MaxAgents caps parallel fan-out. Defaults to 3 for parallel
	// strategy, 1 otherwise.
	MaxAgents int
	// RequiredCapabilities restricts which agents may be assigned.
	RequiredCapabilities []string
	// Metadata carries free-form annotations; the "type" key selects
	// the agent pool queried during assignment.
	Metadata map[string]string
}

func (o *SubmitOptions) validate() error {
	if o.Description == "" {
		return fmt.Errorf("submit: description is required")
	}
	if o.Priority != "" && !o.Priority.Valid() {
		return fmt.Errorf("submit: unknown priority %q", o.Priority)
	}
	if o.Strategy != "" && !o.Strategy.Valid() {
		return fmt.Errorf("submit: unknown strategy %q", o.Strategy)
	}
	if o.MaxAgents < 0 {
		return fmt.Errorf("submit: maxAgents must not be negative")
	}
	return nil
}

// Submit queues one task and returns its record. The task is
// dispatched as soon as a concurrency slot frees up.
func (e *Executor) Submit(opts SubmitOptions) (*models.Task, error) {
	type reply struct {
		task *models.Task
		err  error
	}
	ch := make(chan reply, 1)
	if err := e.do(func() {
		t, err := e.submit(opts)
		ch <- reply{t, err}
	}); err != nil {
		return nil, err
	}
	select {
	case r := <-ch:
		return r.task, r.err
	case <-e.done:
		return nil, ErrStopped
	}
}

// SubmitBatch queues several tasks in one scheduling step, preserving
// submission order among equal priorities. The batch is all-or-nothing:
// a validation failure rejects every task in it.
func (e *Executor) SubmitBatch(batch []SubmitOptions) ([]*models.Task, error) {
	type reply struct {
		tasks []*models.Task
		err   error
	}
	ch := make(chan reply, 1)
	if err := e.do(func() {
		tasks, err := e.submitBatch(batch)
		ch <- reply{tasks, err}
	}); err != nil {
		return nil, err
	}
	select {
	case r := <-ch:
		return r.tasks, r.err
	case <-e.done:
		return nil, ErrStopped
	}
}

// Cancel terminates a pending or active task. Unknown or already
// resolved tasks return ErrTaskNotFound.
func (e *Executor) Cancel(taskID, reason string) error {
	ch := make(chan error, 1)
	if err := e.do(func() {
		ch <- e.cancelTask(taskID, reason)
	}); err != nil {
		return err
	}
	select {
	case err := <-ch:
		return err
	case <-e.done:
		return ErrStopped
	}
}

// Pause stops the dispatcher from promoting queued tasks. In-flight
// tasks keep running.
func (e *Executor) Pause() {
	e.post(func() {
		if !e.paused {
			e.paused = true
			e.logger.Log("dispatcher paused")
		}
	})
}

// Resume re-enables dispatching and immediately backfills free slots.
func (e *Executor) Resume() {
	e.post(func() {
		e.paused = false
		e.processNext()
	})
}

// Task returns a snapshot of a task by ID, consulting the pending
// queue, the active table, the completed table, and finally the hive.
func (e *Executor) Task(taskID string) (*models.Task, error) {
	type reply struct {
		task *models.Task
		err  error
	}
	ch := make(chan reply, 1)
	if err := e.do(func() {
		ch <- reply{task: e.lookupLocal(taskID)}
	}); err != nil {
		return nil, err
	}

	var local *models.Task
	select {
	case r := <-ch:
		local = r.task
	case <-e.done:
		return nil, ErrStopped
	}
	if local != nil {
		return local, nil
	}

	// Fallback: the hive remembers tasks the executor has let go of.
	task, err := e.hive.GetTask(e.ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("hive lookup for task %s: %w", taskID, err)
	}
	if task == nil {
		return nil, ErrTaskNotFound
	}
	return task, nil
}

// lookupLocal runs inside the loop and clones whatever table holds the
// task.
func (e *Executor) lookupLocal(taskID string) *models.Task {
	for _, t := range e.pending {
		if t.ID == taskID {
			return t.Clone()
		}
	}
	if ectx, ok := e.active[taskID]; ok {
		return ectx.task.Clone()
	}
	if t, ok := e.completed[taskID]; ok {
		return t.Clone()
	}
	return nil
}

// Metrics returns a snapshot of scheduler counters.
func (e *Executor) Metrics() Metrics {
	ch := make(chan Metrics, 1)
	if err := e.do(func() {
		m := e.metrics
		m.Pending = len(e.pending)
		m.Active = len(e.active)
		ch <- m
	}); err != nil {
		return Metrics{}
	}
	select {
	case m := <-ch:
		return m
	case <-e.done:
		return Metrics{}
	}
}

// newTaskID mints a short unique task identifier.
func newTaskID() string {
	return "task-" + uuid.New().String()[:8]
}
