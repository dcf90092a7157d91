// Package hive implements the collective registry behind the task
// executor: the agent directory, the shared task table, and consensus
// adjudication. The executor talks to it through the HiveMind port;
// the CLI talks to it directly for registration and status.
package hive

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hiveworks/hiveflow/internal/bus"
	"github.com/hiveworks/hiveflow/internal/executor"
	"github.com/hiveworks/hiveflow/internal/hivelog"
	"github.com/hiveworks/hiveflow/internal/memory"
	"github.com/hiveworks/hiveflow/internal/state"
	"github.com/hiveworks/hiveflow/pkg/models"
)

// DefaultConsensusThreshold is the approval share required for a vote
// to pass when no threshold option is given.
const DefaultConsensusThreshold = 0.5

// memoryNamespaceResults is where completed task results are archived
// in collective memory.
const memoryNamespaceResults = "task-results"

// Hive is the in-memory hive mind: agents, tasks, and consensus polls
// for one swarm. All methods are safe for concurrent use. Ledger and
// memory mirrors are best-effort; a failing disk never blocks the
// scheduler.
type Hive struct {
	mu     sync.RWMutex
	swarm  *models.Swarm
	agents map[string]*models.Agent
	tasks  map[string]*models.Task
	polls  map[string]*poll
	// tried records every agent ever bound to a task, so substitution
	// never hands a task back to an agent that already failed it.
	tried map[string]map[string]bool

	bus       *bus.Bus
	ledger    state.Ledger
	mem       *memory.Store
	logger    *hivelog.DebugLogger
	threshold float64
}

// Compile-time verification that Hive satisfies the executor's port.
var _ executor.HiveMind = (*Hive)(nil)

// Option configures a Hive. Use With* functions to create Options.
type Option func(*hiveOptions)

type hiveOptions struct {
	swarmName      string
	swarmObjective string
	ledger         state.Ledger
	mem            *memory.Store
	logger         *hivelog.DebugLogger
	threshold      float64
}

// WithSwarm creates a swarm record for this hive at construction.
func WithSwarm(name, objective string) Option {
	return func(o *hiveOptions) {
		o.swarmName = name
		o.swarmObjective = objective
	}
}

// WithLedger mirrors hive state into the given persistent ledger.
func WithLedger(l state.Ledger) Option {
	return func(o *hiveOptions) { o.ledger = l }
}

// WithMemory archives task results into collective memory.
func WithMemory(m *memory.Store) Option {
	return func(o *hiveOptions) { o.mem = m }
}

// WithLogger sets the debug logger.
func WithLogger(l *hivelog.DebugLogger) Option {
	return func(o *hiveOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithConsensusThreshold sets the approval share required for
// consensus. Values outside (0, 1] are ignored.
func WithConsensusThreshold(t float64) Option {
	return func(o *hiveOptions) {
		if t > 0 && t <= 1 {
			o.threshold = t
		}
	}
}

// New creates a Hive publishing on the given bus.
func New(b *bus.Bus, opts ...Option) (*Hive, error) {
	if b == nil {
		return nil, fmt.Errorf("hive: Bus is required")
	}

	o := &hiveOptions{
		logger:    hivelog.Nop(),
		threshold: DefaultConsensusThreshold,
	}
	for _, opt := range opts {
		opt(o)
	}

	h := &Hive{
		agents:    make(map[string]*models.Agent),
		tasks:     make(map[string]*models.Task),
		polls:     make(map[string]*poll),
		tried:     make(map[string]map[string]bool),
		bus:       b,
		ledger:    o.ledger,
		mem:       o.mem,
		logger:    o.logger,
		threshold: o.threshold,
	}

	if o.swarmName != "" {
		h.swarm = &models.Swarm{
			ID:        "swarm-" + uuid.New().String()[:8],
			Name:      o.swarmName,
			Objective: o.swarmObjective,
			CreatedAt: time.Now(),
		}
		if h.ledger != nil {
			if err := h.ledger.CreateSwarm(&state.Swarm{
				ID:        h.swarm.ID,
				Name:      h.swarm.Name,
				Objective: h.swarm.Objective,
				CreatedAt: h.swarm.CreatedAt,
			}); err != nil {
				h.logger.Log("record swarm %s: %v", h.swarm.ID, err)
			}
		}
		h.logger.Log("swarm %s created: %s", h.swarm.ID, h.swarm.Name)
	}

	return h, nil
}

// Swarm returns the swarm record, or nil if the hive was built
// without one.
func (h *Hive) Swarm() *models.Swarm {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.swarm == nil {
		return nil
	}
	s := *h.swarm
	return &s
}

// SwarmID returns the swarm's ID, or "" without a swarm.
func (h *Hive) SwarmID() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.swarm == nil {
		return ""
	}
	return h.swarm.ID
}

// RegisterAgent adds a worker to the hive directory and returns its
// record.
func (h *Hive) RegisterAgent(name, role string, capabilities []string) (*models.Agent, error) {
	if name == "" {
		return nil, fmt.Errorf("register agent: name is required")
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	agent := &models.Agent{
		ID:           "agent-" + uuid.New().String()[:8],
		Name:         name,
		Role:         role,
		Status:       models.AgentStatusIdle,
		Capabilities: append([]string(nil), capabilities...),
		RegisteredAt: time.Now(),
	}
	if h.swarm != nil {
		agent.SwarmID = h.swarm.ID
	}
	h.agents[agent.ID] = agent

	if h.ledger != nil {
		if err := h.ledger.CreateAgent(ledgerAgent(agent)); err != nil {
			h.logger.Log("record agent %s: %v", agent.ID, err)
		}
	}

	h.logger.Log("agent %s registered: name=%s role=%s caps=%v", agent.ID, name, role, capabilities)
	return agent.Clone(), nil
}

// RemoveAgent marks an agent offline so it is never assigned again.
func (h *Hive) RemoveAgent(agentID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	agent, ok := h.agents[agentID]
	if !ok {
		return fmt.Errorf("remove agent: %s not registered", agentID)
	}
	agent.Status = models.AgentStatusOffline
	h.mirrorAgentStatus(agent)
	h.logger.Log("agent %s removed from rotation", agentID)
	return nil
}

// Agent returns a snapshot of one agent, or nil if unknown.
func (h *Hive) Agent(agentID string) *models.Agent {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if a, ok := h.agents[agentID]; ok {
		return a.Clone()
	}
	return nil
}

// Agents returns snapshots of every registered agent, in
// registration order.
func (h *Hive) Agents() []*models.Agent {
	h.mu.RLock()
	defer h.mu.RUnlock()

	agents := make([]*models.Agent, 0, len(h.agents))
	for _, a := range h.agents {
		agents = append(agents, a.Clone())
	}
	sort.Slice(agents, func(i, j int) bool {
		if agents[i].RegisteredAt.Equal(agents[j].RegisteredAt) {
			return agents[i].ID < agents[j].ID
		}
		return agents[i].RegisteredAt.Before(agents[j].RegisteredAt)
	})
	return agents
}

// AgentCount returns the number of registered agents, whatever their
// status.
func (h *Hive) AgentCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.agents)
}

// Tasks returns snapshots of every task the hive knows, newest first.
func (h *Hive) Tasks() []*models.Task {
	h.mu.RLock()
	defer h.mu.RUnlock()

	tasks := make([]*models.Task, 0, len(h.tasks))
	for _, t := range h.tasks {
		tasks = append(tasks, t.Clone())
	}
	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
	})
	return tasks
}

// Restore hydrates the hive from the ledger: the swarm record, its
// agents, and its tasks. Used when resuming a previous run.
func (h *Hive) Restore(swarmID string) error {
	if h.ledger == nil {
		return fmt.Errorf("restore: hive has no ledger")
	}

	swarm, err := h.ledger.GetSwarm(swarmID)
	if err != nil {
		return fmt.Errorf("restore swarm %s: %w", swarmID, err)
	}
	if swarm == nil {
		return fmt.Errorf("restore: swarm %s not found", swarmID)
	}

	agents, err := h.ledger.ListAgentsBySwarm(swarmID)
	if err != nil {
		return fmt.Errorf("restore agents: %w", err)
	}
	tasks, err := h.ledger.ListTasksBySwarm(swarmID)
	if err != nil {
		return fmt.Errorf("restore tasks: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.swarm = &models.Swarm{
		ID:        swarm.ID,
		Name:      swarm.Name,
		Objective: swarm.Objective,
		CreatedAt: swarm.CreatedAt,
	}
	for i := range agents {
		a := modelAgent(&agents[i])
		h.agents[a.ID] = a
	}
	for i := range tasks {
		t := modelTask(&tasks[i])
		h.tasks[t.ID] = t
		for _, agentID := range t.AssignedAgents {
			h.markTried(t.ID, agentID)
		}
	}

	h.logger.Log("restored swarm %s: %d agents, %d tasks", swarmID, len(agents), len(tasks))
	return nil
}

// GetAvailableAgents returns up to count agents that can serve the
// task type and cover the required capabilities, least-loaded first.
func (h *Hive) GetAvailableAgents(_ context.Context, taskType string, requiredCapabilities []string, count int) ([]string, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	eligible := h.eligibleAgents(taskType, requiredCapabilities, nil)
	if count > 0 && len(eligible) > count {
		eligible = eligible[:count]
	}

	ids := make([]string, 0, len(eligible))
	for _, a := range eligible {
		ids = append(ids, a.ID)
	}
	return ids, nil
}

// eligibleAgents filters and orders the directory. Callers hold the
// lock. Excluded IDs are skipped entirely.
func (h *Hive) eligibleAgents(taskType string, requiredCapabilities []string, exclude map[string]bool) []*models.Agent {
	var eligible []*models.Agent
	for _, a := range h.agents {
		if a.Status == models.AgentStatusOffline {
			continue
		}
		if exclude[a.ID] {
			continue
		}
		if !servesType(a, taskType) {
			continue
		}
		if !a.HasCapabilities(requiredCapabilities) {
			continue
		}
		eligible = append(eligible, a)
	}

	// Least loaded first; registration order breaks ties so picks are
	// deterministic.
	sort.Slice(eligible, func(i, j int) bool {
		li, lj := len(eligible[i].TaskIDs), len(eligible[j].TaskIDs)
		if li != lj {
			return li < lj
		}
		if !eligible[i].RegisteredAt.Equal(eligible[j].RegisteredAt) {
			return eligible[i].RegisteredAt.Before(eligible[j].RegisteredAt)
		}
		return eligible[i].ID < eligible[j].ID
	})
	return eligible
}

// servesType reports whether an agent's role covers a task type.
// "general" on either side matches anything.
func servesType(a *models.Agent, taskType string) bool {
	if taskType == "" || taskType == "general" {
		return true
	}
	return a.Role == taskType || a.Role == "general"
}

// AssignAgents binds agents to a task: the task's assigned set is
// replaced, dropped agents are released, and new agents are marked
// busy.
func (h *Hive) AssignAgents(_ context.Context, taskID string, agentIDs []string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	next := make(map[string]bool, len(agentIDs))
	for _, id := range agentIDs {
		next[id] = true
	}

	// Release agents no longer in the binding.
	for _, a := range h.agents {
		if holdsTask(a, taskID) && !next[a.ID] {
			h.releaseAgent(a, taskID)
		}
	}

	for _, id := range agentIDs {
		a, ok := h.agents[id]
		if !ok {
			h.logger.Log("assign: agent %s not registered", id)
			continue
		}
		if !holdsTask(a, taskID) {
			a.TaskIDs = append(a.TaskIDs, taskID)
		}
		a.Status = models.AgentStatusBusy
		h.markTried(taskID, id)
		h.mirrorAgentStatus(a)
	}

	if task, ok := h.tasks[taskID]; ok {
		task.AssignedAgents = append([]string(nil), agentIDs...)
		h.mirrorTask(task)
	}
	return nil
}

// FindAlternativeAgent picks a substitute for a task, excluding the
// failed agent and every agent previously bound to the task. Returns
// "" when no substitute exists.
func (h *Hive) FindAlternativeAgent(_ context.Context, taskID, excludeAgentID string) (string, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	exclude := map[string]bool{excludeAgentID: true}
	for id := range h.tried[taskID] {
		exclude[id] = true
	}

	var taskType string
	var required []string
	if task, ok := h.tasks[taskID]; ok {
		taskType = task.Metadata["type"]
		required = task.RequiredCapabilities
	}

	eligible := h.eligibleAgents(taskType, required, exclude)
	if len(eligible) == 0 {
		return "", nil
	}
	return eligible[0].ID, nil
}

// SaveTask records a newly submitted task.
func (h *Hive) SaveTask(_ context.Context, task *models.Task) error {
	if task == nil || task.ID == "" {
		return fmt.Errorf("save task: missing task ID")
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.tasks[task.ID] = task.Clone()
	if h.ledger != nil {
		if err := h.ledger.CreateTask(ledgerTask(task)); err != nil {
			h.logger.Log("record task %s: %v", task.ID, err)
		}
	}
	return nil
}

// UpdateTaskStatus mirrors a task's lifecycle state.
func (h *Hive) UpdateTaskStatus(_ context.Context, taskID string, status models.TaskStatus) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if task, ok := h.tasks[taskID]; ok {
		task.Status = status
	}
	if h.ledger != nil {
		if err := h.ledger.UpdateTaskStatus(taskID, string(status)); err != nil {
			h.logger.Log("record status for %s: %v", taskID, err)
		}
	}
	return nil
}

// UpdateTaskProgress mirrors a task's progress percentage.
func (h *Hive) UpdateTaskProgress(_ context.Context, taskID string, percent int) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if task, ok := h.tasks[taskID]; ok {
		task.Progress = percent
	}
	if h.ledger != nil {
		if err := h.ledger.UpdateTaskProgress(taskID, percent); err != nil {
			h.logger.Log("record progress for %s: %v", taskID, err)
		}
	}
	return nil
}

// CompleteTask finalizes a task as successful, releases its agents,
// and archives the result in collective memory.
func (h *Hive) CompleteTask(_ context.Context, taskID string, result *models.TaskResult) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := time.Now()
	task, ok := h.tasks[taskID]
	if ok {
		task.Status = models.TaskStatusCompleted
		task.Progress = 100
		task.Result = result
		task.CompletedAt = &now
		h.mirrorTask(task)
	}
	h.releaseTask(taskID)
	h.closePoll(taskID)

	if h.mem != nil && result != nil {
		payload, err := json.Marshal(result)
		if err == nil {
			err = h.mem.Put(memoryNamespaceResults, taskID, string(payload), 0)
		}
		if err != nil {
			h.logger.Log("archive result for %s: %v", taskID, err)
		}
	}
	return nil
}

// FailTask finalizes a task as failed and releases its agents.
func (h *Hive) FailTask(_ context.Context, taskID string, reason string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := time.Now()
	if task, ok := h.tasks[taskID]; ok {
		task.Status = models.TaskStatusFailed
		task.Error = reason
		task.CompletedAt = &now
		h.mirrorTask(task)
	}
	h.releaseTask(taskID)
	h.closePoll(taskID)
	return nil
}

// CancelTask finalizes a task as cancelled and releases its agents.
func (h *Hive) CancelTask(_ context.Context, taskID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := time.Now()
	if task, ok := h.tasks[taskID]; ok {
		task.Status = models.TaskStatusCancelled
		task.CompletedAt = &now
		h.mirrorTask(task)
	}
	h.releaseTask(taskID)
	h.closePoll(taskID)
	return nil
}

// GetTask returns a snapshot of a task, or nil if unknown.
func (h *Hive) GetTask(_ context.Context, taskID string) (*models.Task, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if task, ok := h.tasks[taskID]; ok {
		return task.Clone(), nil
	}
	return nil, nil
}

// markTried records that an agent has been bound to a task. Callers
// hold the lock.
func (h *Hive) markTried(taskID, agentID string) {
	if h.tried[taskID] == nil {
		h.tried[taskID] = make(map[string]bool)
	}
	h.tried[taskID][agentID] = true
}

// releaseTask unbinds every agent from a task. Callers hold the lock.
func (h *Hive) releaseTask(taskID string) {
	for _, a := range h.agents {
		if holdsTask(a, taskID) {
			h.releaseAgent(a, taskID)
		}
	}
	delete(h.tried, taskID)
}

// releaseAgent removes one task from an agent's load, idling the
// agent when nothing else is assigned. Callers hold the lock.
func (h *Hive) releaseAgent(a *models.Agent, taskID string) {
	kept := a.TaskIDs[:0]
	for _, id := range a.TaskIDs {
		if id != taskID {
			kept = append(kept, id)
		}
	}
	a.TaskIDs = kept
	if len(a.TaskIDs) == 0 && a.Status == models.AgentStatusBusy {
		a.Status = models.AgentStatusIdle
	}
	h.mirrorAgentStatus(a)
}

func holdsTask(a *models.Agent, taskID string) bool {
	for _, id := range a.TaskIDs {
		if id == taskID {
			return true
		}
	}
	return false
}

// mirrorAgentStatus writes an agent's status through to the ledger.
// Callers hold the lock.
func (h *Hive) mirrorAgentStatus(a *models.Agent) {
	if h.ledger == nil {
		return
	}
	if err := h.ledger.UpdateAgentStatus(a.ID, string(a.Status)); err != nil {
		h.logger.Log("record agent status %s: %v", a.ID, err)
	}
}

// mirrorTask writes a full task record through to the ledger. Callers
// hold the lock.
func (h *Hive) mirrorTask(task *models.Task) {
	if h.ledger == nil {
		return
	}
	if err := h.ledger.UpdateTask(ledgerTask(task)); err != nil {
		h.logger.Log("record task %s: %v", task.ID, err)
	}
}

// ledgerTask converts a model task to its ledger row.
func ledgerTask(t *models.Task) *state.Task {
	row := &state.Task{
		ID:                   t.ID,
		SwarmID:              t.SwarmID,
		Description:          t.Description,
		Priority:             string(t.Priority),
		Strategy:             string(t.Strategy),
		Status:               string(t.Status),
		Progress:             t.Progress,
		Dependencies:         append([]string(nil), t.Dependencies...),
		AssignedAgents:       append([]string(nil), t.AssignedAgents...),
		RequireConsensus:     t.RequireConsensus,
		MaxAgents:            t.MaxAgents,
		RequiredCapabilities: append([]string(nil), t.RequiredCapabilities...),
		Error:                t.Error,
		CreatedAt:            t.CreatedAt,
		CompletedAt:          t.CompletedAt,
	}
	if t.Result != nil {
		row.Output = t.Result.Output
		row.ExecutedBy = append([]string(nil), t.Result.ExecutedBy...)
		row.Confidence = t.Result.Confidence
		row.ExecutionMS = t.Result.ExecutionTime.Milliseconds()
	}
	return row
}

// modelTask converts a ledger row back to a model task.
func modelTask(row *state.Task) *models.Task {
	t := &models.Task{
		ID:                   row.ID,
		SwarmID:              row.SwarmID,
		Description:          row.Description,
		Priority:             models.TaskPriority(row.Priority),
		Strategy:             models.ExecutionStrategy(row.Strategy),
		Status:               models.TaskStatus(row.Status),
		Progress:             row.Progress,
		Dependencies:         append([]string(nil), row.Dependencies...),
		AssignedAgents:       append([]string(nil), row.AssignedAgents...),
		RequireConsensus:     row.RequireConsensus,
		MaxAgents:            row.MaxAgents,
		RequiredCapabilities: append([]string(nil), row.RequiredCapabilities...),
		Error:                row.Error,
		CreatedAt:            row.CreatedAt,
		CompletedAt:          row.CompletedAt,
	}
	if row.Output != "" || len(row.ExecutedBy) > 0 {
		t.Result = &models.TaskResult{
			Output:        row.Output,
			ExecutedBy:    append([]string(nil), row.ExecutedBy...),
			Confidence:    row.Confidence,
			ExecutionTime: time.Duration(row.ExecutionMS) * time.Millisecond,
		}
		if row.CompletedAt != nil {
			t.Result.CompletedAt = *row.CompletedAt
		}
	}
	return t
}

// ledgerAgent converts a model agent to its ledger row.
func ledgerAgent(a *models.Agent) *state.Agent {
	return &state.Agent{
		ID:           a.ID,
		SwarmID:      a.SwarmID,
		Name:         a.Name,
		Role:         a.Role,
		Status:       string(a.Status),
		Capabilities: append([]string(nil), a.Capabilities...),
		RegisteredAt: a.RegisteredAt,
	}
}

// modelAgent converts a ledger row back to a model agent.
func modelAgent(row *state.Agent) *models.Agent {
	return &models.Agent{
		ID:           row.ID,
		SwarmID:      row.SwarmID,
		Name:         row.Name,
		Role:         row.Role,
		Status:       models.AgentStatus(row.Status),
		Capabilities: append([]string(nil), row.Capabilities...),
		RegisteredAt: row.RegisteredAt,
	}
}
