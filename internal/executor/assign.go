package executor

// defaultTaskType is queried when a task carries no explicit type
// annotation in its metadata.
const defaultTaskType = "general"

// assignAgents asks the hive for capable agents and binds them to the
// execution context. Returns the bound IDs; empty means assignment
// failed and the caller must fail the task.
func (e *Executor) assignAgents(ectx *executionContext) []string {
	task := ectx.task
	count := planAgentTarget(task)

	taskType := task.Metadata["type"]
	if taskType == "" {
		taskType = defaultTaskType
	}

	ids, err := e.hive.GetAvailableAgents(e.ctx, taskType, task.RequiredCapabilities, count)
	if err != nil {
		e.logger.Log("agent lookup for %s: %v", task.ID, err)
		return nil
	}
	if len(ids) == 0 {
		return nil
	}

	ectx.agentIDs = append([]string(nil), ids...)
	task.AssignedAgents = append([]string(nil), ids...)

	if err := e.hive.AssignAgents(e.ctx, task.ID, ids); err != nil {
		e.logger.Log("record assignment for %s: %v", task.ID, err)
	}
	return ids
}

// rebindAgent swaps a failed agent out of a single-agent context for
// the given substitute and re-notifies the hive and the new agent.
func (e *Executor) rebindAgent(ectx *executionContext, agentID string) {
	ectx.agentIDs = []string{agentID}
	ectx.task.AssignedAgents = []string{agentID}

	if err := e.hive.AssignAgents(e.ctx, ectx.task.ID, ectx.agentIDs); err != nil {
		e.logger.Log("record reassignment for %s: %v", ectx.task.ID, err)
	}
	e.notifyAssigned(agentID, ectx)
}
