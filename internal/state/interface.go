// Package state provides SQLite-based persistence for hiveflow.
package state

import "io"

// SwarmStore handles swarm-related persistence operations.
type SwarmStore interface {
	CreateSwarm(s *Swarm) error
	GetSwarm(id string) (*Swarm, error)
	ListSwarms() ([]Swarm, error)
}

// TaskStore handles task-related persistence operations.
type TaskStore interface {
	CreateTask(t *Task) error
	UpdateTask(t *Task) error
	UpdateTaskStatus(id, status string) error
	UpdateTaskProgress(id string, progress int) error
	GetTask(id string) (*Task, error)
	ListTasksBySwarm(swarmID string) ([]Task, error)
	ListTasksByStatus(status string) ([]Task, error)
}

// AgentStore handles agent-related persistence operations.
type AgentStore interface {
	CreateAgent(a *Agent) error
	UpdateAgentStatus(id, status string) error
	GetAgent(id string) (*Agent, error)
	ListAgentsBySwarm(swarmID string) ([]Agent, error)
}

// VoteStore handles consensus-vote persistence operations.
type VoteStore interface {
	RecordVote(v *Vote) error
	ListVotesByTask(taskID string) ([]Vote, error)
	DeleteVotesByTask(taskID string) error
}

// Migrator handles database schema migrations.
// Separating this allows clients to depend only on migration functionality.
type Migrator interface {
	// Migrate applies all pending schema migrations.
	Migrate() error
}

// Ledger defines the interface for hive persistence.
// This interface lets the hive registry work with any backend without
// depending on the concrete SQLite implementation. It composes focused
// sub-interfaces for better modularity.
type Ledger interface {
	io.Closer
	Migrator
	SwarmStore
	TaskStore
	AgentStore
	VoteStore
}

// Compile-time verification that DB implements all interfaces.
var (
	_ Ledger     = (*DB)(nil)
	_ Migrator   = (*DB)(nil)
	_ SwarmStore = (*DB)(nil)
	_ TaskStore  = (*DB)(nil)
	_ AgentStore = (*DB)(nil)
	_ VoteStore  = (*DB)(nil)
)
