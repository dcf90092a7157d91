package state

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Swarm is one persisted swarm record.
type Swarm struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Objective string    `json:"objective"`
	CreatedAt time.Time `json:"created_at"`
}

// Task is one persisted task record. Slice fields are stored as JSON
// text columns.
type Task struct {
	ID                   string     `json:"id"`
	SwarmID              string     `json:"swarm_id"`
	Description          string     `json:"description"`
	Priority             string     `json:"priority"`
	Strategy             string     `json:"strategy"`
	Status               string     `json:"status"`
	Progress             int        `json:"progress"`
	Dependencies         []string   `json:"dependencies"`
	AssignedAgents       []string   `json:"assigned_agents"`
	RequireConsensus     bool       `json:"require_consensus"`
	MaxAgents            int        `json:"max_agents"`
	RequiredCapabilities []string   `json:"required_capabilities"`
	Output               string     `json:"output"`
	Error                string     `json:"error"`
	ExecutedBy           []string   `json:"executed_by"`
	Confidence           float64    `json:"confidence"`
	ExecutionMS          int64      `json:"execution_ms"`
	CreatedAt            time.Time  `json:"created_at"`
	CompletedAt          *time.Time `json:"completed_at"`
}

// Agent is one persisted agent record.
type Agent struct {
	ID           string    `json:"id"`
	SwarmID      string    `json:"swarm_id"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	Status       string    `json:"status"`
	Capabilities []string  `json:"capabilities"`
	RegisteredAt time.Time `json:"registered_at"`
}

// Vote is one persisted consensus vote. One row per (task, agent);
// re-votes replace the earlier row.
type Vote struct {
	TaskID  string    `json:"task_id"`
	AgentID string    `json:"agent_id"`
	Output  string    `json:"output"`
	Success bool      `json:"success"`
	CastAt  time.Time `json:"cast_at"`
}

// Swarm CRUD operations

// CreateSwarm creates a new swarm record.
func (db *DB) CreateSwarm(s *Swarm) error {
	_, err := db.Exec(`
		INSERT INTO swarms (id, name, objective, created_at)
		VALUES (?, ?, ?, ?)
	`, s.ID, s.Name, s.Objective, formatTime(s.CreatedAt))
	if err != nil {
		return fmt.Errorf("create swarm: %w", err)
	}
	return nil
}

// GetSwarm retrieves a swarm by ID. Returns nil if not found.
func (db *DB) GetSwarm(id string) (*Swarm, error) {
	row := db.QueryRow(`
		SELECT id, name, objective, created_at FROM swarms WHERE id = ?
	`, id)

	var s Swarm
	var createdAt string
	err := row.Scan(&s.ID, &s.Name, &s.Objective, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get swarm: %w", err)
	}

	s.CreatedAt, _ = parseTime(createdAt)
	return &s, nil
}

// ListSwarms lists all swarms, newest first.
func (db *DB) ListSwarms() ([]Swarm, error) {
	rows, err := db.Query(`
		SELECT id, name, objective, created_at FROM swarms ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list swarms: %w", err)
	}
	defer rows.Close()

	var swarms []Swarm
	for rows.Next() {
		var s Swarm
		var createdAt string
		if err := rows.Scan(&s.ID, &s.Name, &s.Objective, &createdAt); err != nil {
			return nil, fmt.Errorf("scan swarm: %w", err)
		}
		s.CreatedAt, _ = parseTime(createdAt)
		swarms = append(swarms, s)
	}
	return swarms, rows.Err()
}

// Task CRUD operations

// CreateTask creates a new task record.
func (db *DB) CreateTask(t *Task) error {
	deps, _ := json.Marshal(t.Dependencies)
	agents, _ := json.Marshal(t.AssignedAgents)
	caps, _ := json.Marshal(t.RequiredCapabilities)
	executedBy, _ := json.Marshal(t.ExecutedBy)

	var completedAt any
	if t.CompletedAt != nil {
		completedAt = formatTime(*t.CompletedAt)
	}

	_, err := db.Exec(`
		INSERT INTO tasks (
			id, swarm_id, description, priority, strategy, status, progress,
			dependencies, assigned_agents, require_consensus, max_agents,
			required_capabilities, output, error, executed_by, confidence,
			execution_ms, created_at, completed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.SwarmID, t.Description, t.Priority, t.Strategy, t.Status, t.Progress,
		string(deps), string(agents), t.RequireConsensus, t.MaxAgents,
		string(caps), t.Output, t.Error, string(executedBy), t.Confidence,
		t.ExecutionMS, formatTime(t.CreatedAt), completedAt)
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// UpdateTask rewrites every mutable column of a task record.
func (db *DB) UpdateTask(t *Task) error {
	deps, _ := json.Marshal(t.Dependencies)
	agents, _ := json.Marshal(t.AssignedAgents)
	caps, _ := json.Marshal(t.RequiredCapabilities)
	executedBy, _ := json.Marshal(t.ExecutedBy)

	var completedAt any
	if t.CompletedAt != nil {
		completedAt = formatTime(*t.CompletedAt)
	}

	_, err := db.Exec(`
		UPDATE tasks SET
			swarm_id = ?, description = ?, priority = ?, strategy = ?,
			status = ?, progress = ?, dependencies = ?, assigned_agents = ?,
			require_consensus = ?, max_agents = ?, required_capabilities = ?,
			output = ?, error = ?, executed_by = ?, confidence = ?,
			execution_ms = ?, completed_at = ?
		WHERE id = ?
	`, t.SwarmID, t.Description, t.Priority, t.Strategy,
		t.Status, t.Progress, string(deps), string(agents),
		t.RequireConsensus, t.MaxAgents, string(caps),
		t.Output, t.Error, string(executedBy), t.Confidence,
		t.ExecutionMS, completedAt, t.ID)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return nil
}

// UpdateTaskStatus updates only a task's status column.
func (db *DB) UpdateTaskStatus(id, status string) error {
	_, err := db.Exec("UPDATE tasks SET status = ? WHERE id = ?", status, id)
	if err != nil {
		return fmt.Errorf("update task status: %w", err)
	}
	return nil
}

// UpdateTaskProgress updates only a task's progress column.
func (db *DB) UpdateTaskProgress(id string, progress int) error {
	_, err := db.Exec("UPDATE tasks SET progress = ? WHERE id = ?", progress, id)
	if err != nil {
		return fmt.Errorf("update task progress: %w", err)
	}
	return nil
}

// GetTask retrieves a task by ID. Returns nil if not found.
func (db *DB) GetTask(id string) (*Task, error) {
	row := db.QueryRow(taskSelect+" WHERE id = ?", id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

// ListTasksBySwarm lists a swarm's tasks, newest first.
func (db *DB) ListTasksBySwarm(swarmID string) ([]Task, error) {
	rows, err := db.Query(taskSelect+" WHERE swarm_id = ? ORDER BY created_at DESC", swarmID)
	if err != nil {
		return nil, fmt.Errorf("list tasks by swarm: %w", err)
	}
	return collectTasks(rows)
}

// ListTasksByStatus lists tasks in a given status, newest first.
func (db *DB) ListTasksByStatus(status string) ([]Task, error) {
	rows, err := db.Query(taskSelect+" WHERE status = ? ORDER BY created_at DESC", status)
	if err != nil {
		return nil, fmt.Errorf("list tasks by status: %w", err)
	}
	return collectTasks(rows)
}

const taskSelect = `
	SELECT id, swarm_id, description, priority, strategy, status, progress,
		dependencies, assigned_agents, require_consensus, max_agents,
		required_capabilities, output, error, executed_by, confidence,
		execution_ms, created_at, completed_at
	FROM tasks`

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*Task, error) {
	var t Task
	var deps, agents, caps, executedBy sql.NullString
	var createdAt string
	var completedAt sql.NullString

	err := row.Scan(&t.ID, &t.SwarmID, &t.Description, &t.Priority, &t.Strategy,
		&t.Status, &t.Progress, &deps, &agents, &t.RequireConsensus, &t.MaxAgents,
		&caps, &t.Output, &t.Error, &executedBy, &t.Confidence,
		&t.ExecutionMS, &createdAt, &completedAt)
	if err != nil {
		return nil, err
	}

	if deps.Valid {
		json.Unmarshal([]byte(deps.String), &t.Dependencies)
	}
	if agents.Valid {
		json.Unmarshal([]byte(agents.String), &t.AssignedAgents)
	}
	if caps.Valid {
		json.Unmarshal([]byte(caps.String), &t.RequiredCapabilities)
	}
	if executedBy.Valid {
		json.Unmarshal([]byte(executedBy.String), &t.ExecutedBy)
	}
	t.CreatedAt, _ = parseTime(createdAt)
	t.CompletedAt = parseNullableTime(completedAt)
	return &t, nil
}

func collectTasks(rows *sql.Rows) ([]Task, error) {
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// Agent CRUD operations

// CreateAgent creates a new agent record.
func (db *DB) CreateAgent(a *Agent) error {
	caps, _ := json.Marshal(a.Capabilities)

	_, err := db.Exec(`
		INSERT INTO agents (id, swarm_id, name, role, status, capabilities, registered_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.SwarmID, a.Name, a.Role, a.Status, string(caps), formatTime(a.RegisteredAt))
	if err != nil {
		return fmt.Errorf("create agent: %w", err)
	}
	return nil
}

// UpdateAgentStatus updates only an agent's status column.
func (db *DB) UpdateAgentStatus(id, status string) error {
	_, err := db.Exec("UPDATE agents SET status = ? WHERE id = ?", status, id)
	if err != nil {
		return fmt.Errorf("update agent status: %w", err)
	}
	return nil
}

// GetAgent retrieves an agent by ID. Returns nil if not found.
func (db *DB) GetAgent(id string) (*Agent, error) {
	row := db.QueryRow(`
		SELECT id, swarm_id, name, role, status, capabilities, registered_at
		FROM agents WHERE id = ?
	`, id)

	var a Agent
	var caps sql.NullString
	var registeredAt string
	err := row.Scan(&a.ID, &a.SwarmID, &a.Name, &a.Role, &a.Status, &caps, &registeredAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get agent: %w", err)
	}

	if caps.Valid {
		json.Unmarshal([]byte(caps.String), &a.Capabilities)
	}
	a.RegisteredAt, _ = parseTime(registeredAt)
	return &a, nil
}

// ListAgentsBySwarm lists a swarm's agents in registration order.
func (db *DB) ListAgentsBySwarm(swarmID string) ([]Agent, error) {
	rows, err := db.Query(`
		SELECT id, swarm_id, name, role, status, capabilities, registered_at
		FROM agents WHERE swarm_id = ? ORDER BY registered_at
	`, swarmID)
	if err != nil {
		return nil, fmt.Errorf("list agents by swarm: %w", err)
	}
	defer rows.Close()

	var agents []Agent
	for rows.Next() {
		var a Agent
		var caps sql.NullString
		var registeredAt string
		if err := rows.Scan(&a.ID, &a.SwarmID, &a.Name, &a.Role, &a.Status, &caps, &registeredAt); err != nil {
			return nil, fmt.Errorf("scan agent: %w", err)
		}
		if caps.Valid {
			json.Unmarshal([]byte(caps.String), &a.Capabilities)
		}
		a.RegisteredAt, _ = parseTime(registeredAt)
		agents = append(agents, a)
	}
	return agents, rows.Err()
}

// Vote CRUD operations

// RecordVote inserts a consensus vote, replacing any earlier vote by
// the same agent on the same task.
func (db *DB) RecordVote(v *Vote) error {
	_, err := db.Exec(`
		INSERT OR REPLACE INTO consensus_votes (task_id, agent_id, output, success, cast_at)
		VALUES (?, ?, ?, ?, ?)
	`, v.TaskID, v.AgentID, v.Output, v.Success, formatTime(v.CastAt))
	if err != nil {
		return fmt.Errorf("record vote: %w", err)
	}
	return nil
}

// ListVotesByTask lists a task's votes in casting order.
func (db *DB) ListVotesByTask(taskID string) ([]Vote, error) {
	rows, err := db.Query(`
		SELECT task_id, agent_id, output, success, cast_at
		FROM consensus_votes WHERE task_id = ? ORDER BY cast_at
	`, taskID)
	if err != nil {
		return nil, fmt.Errorf("list votes: %w", err)
	}
	defer rows.Close()

	var votes []Vote
	for rows.Next() {
		var v Vote
		var castAt string
		if err := rows.Scan(&v.TaskID, &v.AgentID, &v.Output, &v.Success, &castAt); err != nil {
			return nil, fmt.Errorf("scan vote: %w", err)
		}
		v.CastAt, _ = parseTime(castAt)
		votes = append(votes, v)
	}
	return votes, rows.Err()
}

// DeleteVotesByTask removes all of a task's votes once adjudication
// is final.
func (db *DB) DeleteVotesByTask(taskID string) error {
	_, err := db.Exec("DELETE FROM consensus_votes WHERE task_id = ?", taskID)
	if err != nil {
		return fmt.Errorf("delete votes: %w", err)
	}
	return nil
}
