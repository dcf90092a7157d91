package executor

import (
	"time"

	"github.com/hiveworks/hiveflow/pkg/models"
)

// agentReport is one agent's buffered verdict on a task, kept in
// arrival order for parallel-result combination.
type agentReport struct {
	agentID       string
	output        string
	success       bool
	err           string
	executionTime time.Duration
}

// executionContext is the scheduler's private bookkeeping for one
// in-flight task. Created when a task is promoted from the queue,
// destroyed on every terminal transition. Only the run loop touches it.
type executionContext struct {
	task      *models.Task
	plan      *models.ExecutionPlan
	startedAt time.Time

	// Timer handles. Both must be cleared on every exit path.
	progressTimer *time.Timer
	timeoutTimer  *time.Timer

	retries      int
	agentIDs     []string
	currentPhase int

	// Per-agent reports in arrival order, with an index for overwrite
	// when an agent reports twice.
	reports     []agentReport
	reportIndex map[string]int
}

func newExecutionContext(task *models.Task, plan *models.ExecutionPlan) *executionContext {
	return &executionContext{
		task:        task,
		plan:        plan,
		startedAt:   time.Now(),
		reportIndex: make(map[string]int),
	}
}

// recordReport buffers one agent's verdict, replacing any earlier
// report from the same agent.
func (c *executionContext) recordReport(r agentReport) {
	if i, ok := c.reportIndex[r.agentID]; ok {
		c.reports[i] = r
		return
	}
	c.reportIndex[r.agentID] = len(c.reports)
	c.reports = append(c.reports, r)
}

// allReported returns true once every assigned agent has a buffered
// verdict.
func (c *executionContext) allReported() bool {
	return len(c.reports) >= len(c.agentIDs)
}

// firstSuccess returns the earliest-arriving successful report.
func (c *executionContext) firstSuccess() (agentReport, bool) {
	for _, r := range c.reports {
		if r.success {
			return r, true
		}
	}
	return agentReport{}, false
}

// successfulAgents returns the IDs of all agents that reported
// success, in arrival order.
func (c *executionContext) successfulAgents() []string {
	var ids []string
	for _, r := range c.reports {
		if r.success {
			ids = append(ids, r.agentID)
		}
	}
	return ids
}

// advancePhase raises the completed-phase count, clamped to the plan's
// phase total. Phase reports never move the counter backwards.
func (c *executionContext) advancePhase(completed int) {
	total := c.plan.TotalPhases()
	if completed > total {
		completed = total
	}
	if completed > c.currentPhase {
		c.currentPhase = completed
	}
}

// clearTimers stops both timers. Mandatory on every exit path so no
// timeout or progress callback fires for a resolved task.
func (c *executionContext) clearTimers() {
	if c.timeoutTimer != nil {
		c.timeoutTimer.Stop()
		c.timeoutTimer = nil
	}
	if c.progressTimer != nil {
		c.progressTimer.Stop()
		c.progressTimer = nil
	}
}

// elapsed returns time since the task was promoted to execution.
func (c *executionContext) elapsed() time.Duration {
	return time.Since(c.startedAt)
}
