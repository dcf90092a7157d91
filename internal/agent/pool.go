package agent

import (
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/hiveworks/hiveflow/internal/bus"
	"github.com/hiveworks/hiveflow/internal/hivelog"
	"github.com/hiveworks/hiveflow/pkg/models"
)

// Registry is the slice of the hive mind the pool needs: a place to
// register its workers.
type Registry interface {
	RegisterAgent(name, role string, capabilities []string) (*models.Agent, error)
}

// AgentSpec describes one worker the pool should field.
type AgentSpec struct {
	// Name is the human-readable agent name, e.g. "coder-1".
	Name string `yaml:"name"`
	// Role is the agent class, matched against task types.
	Role string `yaml:"role"`
	// Capabilities lists what the agent can do.
	Capabilities []string `yaml:"capabilities"`
}

// WorkerFactory builds the execution backend for one agent spec.
type WorkerFactory func(spec AgentSpec) Worker

// PoolConfig configures a Pool.
type PoolConfig struct {
	// Bus is the event bus shared with the scheduler.
	Bus *bus.Bus
	// Registry is where the pool registers its agents.
	Registry Registry
	// Factory builds one Worker per spec.
	Factory WorkerFactory
	// Specs lists the agents to field.
	Specs []AgentSpec
	// Logger is the optional debug logger.
	Logger *hivelog.DebugLogger
}

// Pool registers a set of agents with the hive and runs one Runner
// per agent. Stop drains every runner before returning.
type Pool struct {
	bus      *bus.Bus
	registry Registry
	factory  WorkerFactory
	specs    []AgentSpec
	logger   *hivelog.DebugLogger

	agents  []*models.Agent
	runners []*Runner
}

// NewPool creates a pool from the given configuration.
func NewPool(cfg PoolConfig) (*Pool, error) {
	if cfg.Bus == nil {
		return nil, fmt.Errorf("pool: Bus is required")
	}
	if cfg.Registry == nil {
		return nil, fmt.Errorf("pool: Registry is required")
	}
	if cfg.Factory == nil {
		return nil, fmt.Errorf("pool: Factory is required")
	}
	if len(cfg.Specs) == 0 {
		return nil, fmt.Errorf("pool: at least one agent spec is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = hivelog.Nop()
	}

	return &Pool{
		bus:      cfg.Bus,
		registry: cfg.Registry,
		factory:  cfg.Factory,
		specs:    cfg.Specs,
		logger:   cfg.Logger,
	}, nil
}

// Start registers every spec with the hive and brings its runner up.
// On error the already-started runners are stopped and discarded.
func (p *Pool) Start() error {
	for _, spec := range p.specs {
		record, err := p.registry.RegisterAgent(spec.Name, spec.Role, spec.Capabilities)
		if err != nil {
			p.rollback()
			return fmt.Errorf("register agent %q: %w", spec.Name, err)
		}

		runner, err := NewRunner(RunnerConfig{
			AgentID: record.ID,
			Bus:     p.bus,
			Worker:  p.factory(spec),
			Logger:  p.logger,
		})
		if err != nil {
			p.rollback()
			return fmt.Errorf("runner for %q: %w", spec.Name, err)
		}

		p.agents = append(p.agents, record)
		p.runners = append(p.runners, runner)
		runner.Start()
	}

	p.logger.Log("agent pool started: %d runners", len(p.runners))
	return nil
}

// rollback tears down a partially started pool.
func (p *Pool) rollback() {
	p.Stop()
	p.agents = nil
	p.runners = nil
}

// Stop shuts every runner down in parallel and waits for all of them
// to drain.
func (p *Pool) Stop() {
	var g errgroup.Group
	for _, runner := range p.runners {
		g.Go(func() error {
			runner.Stop()
			return nil
		})
	}
	_ = g.Wait()
}

// Agents returns the registered records for the pool's workers.
func (p *Pool) Agents() []*models.Agent {
	return append([]*models.Agent(nil), p.agents...)
}

// Size returns the number of running agents.
func (p *Pool) Size() int {
	return len(p.runners)
}
