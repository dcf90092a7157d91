// Package executor schedules and supervises hive-mind tasks.
//
// The executor package provides functionality for:
//   - Priority queueing: Ordering submitted tasks by priority weight
//   - Dispatching: Promoting queued tasks under a concurrency bound
//   - Planning: Deriving a three-phase execution plan per task
//   - Assignment: Binding capable agents from the hive registry
//   - Supervision: Progress ticks, timeouts, retries, and consensus
//
// All scheduler state is owned by a single goroutine. Public methods,
// timer callbacks, and bus subscriptions post commands into that
// goroutine's channel, so no locks guard the executor's own state.
// Agents do their work externally and report back over the event bus;
// the executor reacts to those reports and finalizes task status
// against the hive.
//
// Example usage:
//
//	exec, err := executor.New(executor.RequiredConfig{Hive: hive, Bus: b},
//		executor.WithMaxConcurrentTasks(5))
//	if err != nil { ... }
//	exec.Start()
//	task, err := exec.Submit(executor.SubmitOptions{
//		Description: "Summarize the incident report",
//		Priority:    models.PriorityHigh,
//	})
package executor
