package executor

import "errors"

var (
	// ErrStopped is returned when the executor has been stopped.
	ErrStopped = errors.New("executor stopped")
	// ErrQueueFull is returned by Submit when a bounded queue is at
	// capacity. The default queue is unbounded and never returns it.
	ErrQueueFull = errors.New("task queue full")
	// ErrTaskNotFound is returned when the given task ID is not known
	// to the executor.
	ErrTaskNotFound = errors.New("task not found")
)
