package executor

import "time"

// Metrics is a snapshot of scheduler counters. Averages cover
// completed and failed tasks; cancellations are not counted.
type Metrics struct {
	// Pending is the current queue depth.
	Pending int
	// Active is the number of in-flight execution contexts.
	Active int
	// TotalCompleted counts tasks that finished successfully.
	TotalCompleted int
	// TotalFailed counts tasks that terminated with an error.
	TotalFailed int
	// AvgExecutionTime is the running average runtime across all
	// completed and failed tasks.
	AvgExecutionTime time.Duration
}

// recordResolution folds one terminal runtime into the counters.
func (e *Executor) recordResolution(executionTime time.Duration, completed bool) {
	resolved := e.metrics.TotalCompleted + e.metrics.TotalFailed
	if completed {
		e.metrics.TotalCompleted++
	} else {
		e.metrics.TotalFailed++
	}
	total := e.metrics.AvgExecutionTime*time.Duration(resolved) + executionTime
	e.metrics.AvgExecutionTime = total / time.Duration(resolved+1)
}
