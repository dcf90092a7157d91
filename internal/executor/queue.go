package executor

import (
	"sort"
	"time"

	"github.com/hiveworks/hiveflow/internal/bus"
	"github.com/hiveworks/hiveflow/pkg/models"
)

// submit runs inside the loop: it validates the options, builds the
// task record, enqueues it, and kicks the dispatcher.
func (e *Executor) submit(opts SubmitOptions) (*models.Task, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if e.maxQueueDepth > 0 && len(e.pending) >= e.maxQueueDepth {
		return nil, ErrQueueFull
	}

	task := e.buildTask(opts)
	e.pending = append(e.pending, task)
	e.sortPending()

	if err := e.hive.SaveTask(e.ctx, task.Clone()); err != nil {
		e.logger.Log("save task %s: %v", task.ID, err)
	}

	e.logger.Log("task %s submitted: priority=%s strategy=%s consensus=%v",
		task.ID, task.Priority, task.Strategy, task.RequireConsensus)
	e.bus.Publish(bus.TopicTaskSubmitted, bus.Event{
		Type:   bus.TopicTaskSubmitted,
		TaskID: task.ID,
		Task:   task.Clone(),
	})

	e.processNext()
	return task.Clone(), nil
}

// submitBatch validates every entry before creating any task, then
// enqueues them all and dispatches once. Stable sorting keeps
// equal-priority tasks in batch order.
func (e *Executor) submitBatch(batch []SubmitOptions) ([]*models.Task, error) {
	for i := range batch {
		if err := batch[i].validate(); err != nil {
			return nil, err
		}
	}
	if e.maxQueueDepth > 0 && len(e.pending)+len(batch) > e.maxQueueDepth {
		return nil, ErrQueueFull
	}

	tasks := make([]*models.Task, 0, len(batch))
	for i := range batch {
		task := e.buildTask(batch[i])
		e.pending = append(e.pending, task)

		if err := e.hive.SaveTask(e.ctx, task.Clone()); err != nil {
			e.logger.Log("save task %s: %v", task.ID, err)
		}
		e.bus.Publish(bus.TopicTaskSubmitted, bus.Event{
			Type:   bus.TopicTaskSubmitted,
			TaskID: task.ID,
			Task:   task.Clone(),
		})
		tasks = append(tasks, task.Clone())
	}
	e.sortPending()
	e.logger.Log("batch submitted: %d tasks", len(tasks))

	e.processNext()
	return tasks, nil
}

// buildTask materializes a Task from submit options, applying defaults.
func (e *Executor) buildTask(opts SubmitOptions) *models.Task {
	priority := opts.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	strategy := opts.Strategy
	if strategy == "" {
		strategy = models.StrategySequential
	}
	maxAgents := opts.MaxAgents
	if maxAgents == 0 {
		if strategy == models.StrategyParallel {
			maxAgents = 3
		} else {
			maxAgents = 1
		}
	}
	swarmID := opts.SwarmID
	if swarmID == "" {
		swarmID = e.swarmID
	}

	return &models.Task{
		ID:                   newTaskID(),
		SwarmID:              swarmID,
		Description:          opts.Description,
		Priority:             priority,
		Strategy:             strategy,
		Status:               models.TaskStatusPending,
		Dependencies:         append([]string(nil), opts.Dependencies...),
		RequireConsensus:     opts.RequireConsensus,
		MaxAgents:            maxAgents,
		RequiredCapabilities: append([]string(nil), opts.RequiredCapabilities...),
		Metadata:             opts.Metadata,
		CreatedAt:            time.Now(),
	}
}

// sortPending orders the queue by descending priority weight. The sort
// is stable: equal-priority tasks stay first-submitted-first-served.
func (e *Executor) sortPending() {
	sort.SliceStable(e.pending, func(i, j int) bool {
		return e.pending[i].Priority.Weight() > e.pending[j].Priority.Weight()
	})
}

// popPending removes and returns the highest-priority task. Caller
// must have checked the queue is non-empty.
func (e *Executor) popPending() *models.Task {
	task := e.pending[0]
	copy(e.pending, e.pending[1:])
	e.pending[len(e.pending)-1] = nil
	e.pending = e.pending[:len(e.pending)-1]
	return task
}

// removePending drops the task with the given ID from the queue,
// returning it, or nil if the ID is not queued.
func (e *Executor) removePending(taskID string) *models.Task {
	for i, t := range e.pending {
		if t.ID == taskID {
			copy(e.pending[i:], e.pending[i+1:])
			e.pending[len(e.pending)-1] = nil
			e.pending = e.pending[:len(e.pending)-1]
			return t
		}
	}
	return nil
}
