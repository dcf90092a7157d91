package models

import "time"

// AgentStatus represents the availability of an agent.
type AgentStatus string

const (
	// AgentStatusIdle indicates the agent is registered and unassigned.
	AgentStatusIdle AgentStatus = "idle"
	// AgentStatusBusy indicates the agent is executing at least one task.
	AgentStatusBusy AgentStatus = "busy"
	// AgentStatusOffline indicates the agent has left the hive.
	AgentStatusOffline AgentStatus = "offline"
)

// Valid returns true if the status is a known value.
func (s AgentStatus) Valid() bool {
	switch s {
	case AgentStatusIdle, AgentStatusBusy, AgentStatusOffline:
		return true
	default:
		return false
	}
}

// Agent represents a worker registered with the hive.
type Agent struct {
	// ID is the unique identifier for this agent.
	ID string `json:"id"`
	// SwarmID is the ID of the swarm the agent serves.
	SwarmID string `json:"swarm_id"`
	// Name is the human-readable agent name, e.g. "coder-1".
	Name string `json:"name"`
	// Role describes the agent's class, e.g. "coder" or "reviewer".
	Role string `json:"role"`
	// Status is the agent's current availability.
	Status AgentStatus `json:"status"`
	// Capabilities lists what the agent can do, matched against task
	// required-capability lists.
	Capabilities []string `json:"capabilities,omitempty"`
	// TaskIDs lists the tasks the agent is currently assigned to.
	TaskIDs []string `json:"task_ids,omitempty"`
	// RegisteredAt is when the agent joined the hive.
	RegisteredAt time.Time `json:"registered_at"`
}

// Clone returns a deep copy of the agent.
func (a *Agent) Clone() *Agent {
	clone := *a
	if a.Capabilities != nil {
		clone.Capabilities = append([]string(nil), a.Capabilities...)
	}
	if a.TaskIDs != nil {
		clone.TaskIDs = append([]string(nil), a.TaskIDs...)
	}
	return &clone
}

// HasCapabilities returns true if the agent's capability set covers
// every capability in required.
func (a *Agent) HasCapabilities(required []string) bool {
	for _, want := range required {
		found := false
		for _, have := range a.Capabilities {
			if have == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Swarm represents one hive-mind run grouping tasks and agents.
type Swarm struct {
	// ID is the unique identifier for this swarm.
	ID string `json:"id"`
	// Name is the human-readable swarm name.
	Name string `json:"name"`
	// Objective is the overall goal the swarm was launched with.
	Objective string `json:"objective"`
	// CreatedAt is when the swarm was created.
	CreatedAt time.Time `json:"created_at"`
}
