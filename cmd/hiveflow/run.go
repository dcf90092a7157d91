package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hiveworks/hiveflow/internal/agent"
	"github.com/hiveworks/hiveflow/internal/bus"
	"github.com/hiveworks/hiveflow/internal/config"
	"github.com/hiveworks/hiveflow/internal/control"
	"github.com/hiveworks/hiveflow/internal/executor"
	"github.com/hiveworks/hiveflow/internal/hive"
	"github.com/hiveworks/hiveflow/internal/hivelog"
	"github.com/hiveworks/hiveflow/internal/memory"
	"github.com/hiveworks/hiveflow/internal/state"
	"github.com/hiveworks/hiveflow/pkg/models"
)

var (
	runHeadless     bool
	runDryRun       bool
	runPriority     string
	runStrategy     string
	runConsensus    bool
	runMaxAgents    int
	runTaskType     string
	runCapabilities []string
	runAgentsFile   string
	runTimeout      time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run <objective> [objective...]",
	Short: "Run objectives on a swarm of agents",
	Long: `Submit one or more objectives to a hive of Claude agents and watch
them execute.

Each objective becomes one task. Tasks are queued by priority, planned
as a three-phase pipeline (preparation, execution, validation), and
dispatched to agents as concurrency slots free up. A failed agent is
retried on an alternative before the task is failed.

Execution strategies (--strategy):
  - sequential: one agent works the plan start to finish (default)
  - parallel:   several agents race the plan; first success wins
  - adaptive:   sequential, promoted to parallel for high/critical tasks

Use --consensus to make parallel agents vote on their results instead
of racing: the task completes only if voting reaches the configured
threshold.

The agent roster comes from .hiveflow/agents.yaml (see 'hiveflow init');
without one a default mixed roster is fielded. Use --dry-run to field
scripted workers instead of calling the Anthropic API.

A running hive can be controlled from another shell:
  hiveflow pause / resume / stop`,
	Args: cobra.MinimumNArgs(1),
	RunE: runHive,
}

func init() {
	runCmd.Flags().BoolVar(&runHeadless, "headless", false, "Run without TUI (print events to stdout)")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "Use scripted workers instead of the Anthropic API")
	runCmd.Flags().StringVar(&runPriority, "priority", "medium", "Task priority: low, medium, high, or critical")
	runCmd.Flags().StringVar(&runStrategy, "strategy", "sequential", "Execution strategy: sequential, parallel, or adaptive")
	runCmd.Flags().BoolVar(&runConsensus, "consensus", false, "Adjudicate results by consensus vote")
	runCmd.Flags().IntVar(&runMaxAgents, "max-agents", 0, "Agents per task (0 = strategy default)")
	runCmd.Flags().StringVar(&runTaskType, "task-type", "", "Restrict assignment to agents serving this task type")
	runCmd.Flags().StringSliceVar(&runCapabilities, "capability", nil, "Required agent capability (repeatable)")
	runCmd.Flags().StringVar(&runAgentsFile, "agents", "", "Agent roster file (default .hiveflow/agents.yaml)")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 0, "Per-task timeout override (e.g. 10m)")
}

func runHive(cmd *cobra.Command, args []string) (retErr error) {
	// Recover from panics and report them
	defer func() {
		if r := recover(); r != nil {
			retErr = fmt.Errorf("PANIC in runHive: %v", r)
		}
	}()

	priority := models.TaskPriority(runPriority)
	if !priority.Valid() {
		return fmt.Errorf("invalid priority %q: must be low, medium, high, or critical", runPriority)
	}
	strategy := models.ExecutionStrategy(runStrategy)
	if !strategy.Valid() {
		return fmt.Errorf("invalid strategy %q: must be sequential, parallel, or adaptive", runStrategy)
	}
	if runMaxAgents < 0 {
		return fmt.Errorf("--max-agents must not be negative")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}
	dataDir := cfg.Hive.DataDir
	if !filepath.IsAbs(dataDir) {
		dataDir = filepath.Join(cwd, dataDir)
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	logger := hivelog.NewForDir(filepath.Join(dataDir, "logs"))
	defer logger.Close()

	// Hive ledger
	db, err := state.Open(filepath.Join(dataDir, "hive.db"))
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrate ledger: %w", err)
	}

	// Collective memory is best-effort: a broken store degrades archival,
	// not execution.
	mem, err := memory.NewStore(filepath.Join(dataDir, "memory.db"))
	if err != nil {
		fmt.Printf("Warning: collective memory unavailable: %v\n", err)
		mem = nil
	} else {
		defer mem.Close()
	}

	b := bus.New()
	defer b.Close()

	hiveOpts := []hive.Option{
		hive.WithSwarm(filepath.Base(cwd), strings.Join(args, "; ")),
		hive.WithLedger(db),
		hive.WithLogger(logger),
		hive.WithConsensusThreshold(cfg.Consensus.Threshold),
	}
	if mem != nil {
		hiveOpts = append(hiveOpts, hive.WithMemory(mem))
	}
	h, err := hive.New(b, hiveOpts...)
	if err != nil {
		return fmt.Errorf("create hive: %w", err)
	}

	presetsPath := filepath.Join(dataDir, config.PresetFileName)
	if runAgentsFile != "" {
		presetsPath = runAgentsFile
		if _, err := os.Stat(presetsPath); err != nil {
			return fmt.Errorf("agents file: %w", err)
		}
	}
	specs, err := config.LoadAgentSpecs(presetsPath)
	if err != nil {
		return fmt.Errorf("load agent roster: %w", err)
	}

	factory, err := buildWorkerFactory(cfg, runDryRun)
	if err != nil {
		return err
	}

	pool, err := agent.NewPool(agent.PoolConfig{
		Bus:      b,
		Registry: h,
		Factory:  factory,
		Specs:    specs,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("create agent pool: %w", err)
	}
	if err := pool.Start(); err != nil {
		return fmt.Errorf("start agent pool: %w", err)
	}
	defer pool.Stop()

	taskTimeout := cfg.Executor.TaskTimeout
	if runTimeout > 0 {
		taskTimeout = runTimeout
	}
	exec, err := executor.New(
		executor.RequiredConfig{Hive: h, Bus: b},
		executor.WithSwarmID(h.SwarmID()),
		executor.WithLogger(logger),
		executor.WithMaxConcurrentTasks(cfg.Executor.MaxConcurrentTasks),
		executor.WithTaskTimeout(taskTimeout),
		executor.WithProgressInterval(cfg.Executor.ProgressInterval),
		executor.WithMaxRetries(cfg.Executor.MaxRetries),
		executor.WithRetryFailedTasks(cfg.Executor.RetryFailedTasks),
		executor.WithMaxQueueDepth(cfg.Executor.MaxQueueDepth),
		executor.WithCompletedHistory(cfg.Executor.CompletedHistory),
	)
	if err != nil {
		return fmt.Errorf("create executor: %w", err)
	}
	exec.Start()
	defer exec.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nReceived interrupt, shutting down...")
		cancel()
	}()

	// Operator signals dropped by 'hiveflow pause/resume/stop' in other
	// shells. Stale markers from a previous run are cleared first.
	control.ClearSignals(dataDir)
	watcher, err := control.NewWatcher(dataDir, control.Controls{
		Pause:  exec.Pause,
		Resume: exec.Resume,
		Stop:   cancel,
	}, control.WithLogger(logger))
	if err != nil {
		fmt.Printf("Warning: signal watcher unavailable: %v\n", err)
	} else {
		defer watcher.Close()
	}

	// Subscribe before submitting so no event is missed.
	events := b.SubscribeAll(0)

	var metadata map[string]string
	if runTaskType != "" {
		metadata = map[string]string{"type": runTaskType}
	}
	outstanding := make(map[string]bool, len(args))
	for _, objective := range args {
		task, err := exec.Submit(executor.SubmitOptions{
			Description:          objective,
			Priority:             priority,
			Strategy:             strategy,
			RequireConsensus:     runConsensus,
			MaxAgents:            runMaxAgents,
			RequiredCapabilities: runCapabilities,
			Metadata:             metadata,
		})
		if err != nil {
			return fmt.Errorf("submit %q: %w", objective, err)
		}
		outstanding[task.ID] = true
	}

	if runHeadless {
		fmt.Printf("Swarm %s: %d agent(s), %d task(s) queued\n", h.SwarmID(), pool.Size(), len(outstanding))
		fmt.Printf("  Priority: %s  Strategy: %s  Consensus: %v\n\n", priority, strategy, runConsensus)

		err := drainHeadless(ctx, events, outstanding)
		printRunSummary(exec.Metrics())
		return err
	}

	return runWithTUI(ctx, h.SwarmID(), events, outstanding)
}

// drainHeadless prints events until every submitted task resolves. An
// operator stop leaves the remaining tasks to the shutdown path.
func drainHeadless(ctx context.Context, events <-chan bus.Event, outstanding map[string]bool) error {
	failed := 0
	for len(outstanding) > 0 {
		select {
		case <-ctx.Done():
			fmt.Printf("\nStopped with %d task(s) unresolved\n", len(outstanding))
			return nil
		case ev, ok := <-events:
			if !ok {
				return fmt.Errorf("event bus closed with %d task(s) unresolved", len(outstanding))
			}
			printEvent(ev)
			if terminalEvent(ev) && outstanding[ev.TaskID] {
				delete(outstanding, ev.TaskID)
				if ev.Type == bus.TopicTaskFailed {
					failed++
				}
			}
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d task(s) failed", failed)
	}
	return nil
}

func printEvent(ev bus.Event) {
	switch ev.Type {
	case bus.TopicTaskSubmitted:
		desc := ""
		if ev.Task != nil {
			desc = ev.Task.Description
		}
		fmt.Printf("[QUEUED] %s: %s\n", ev.TaskID, desc)
	case bus.TopicTaskStarted:
		fmt.Printf("[START] %s on %d agent(s)\n", ev.TaskID, len(ev.AssignedAgents))
	case bus.TopicTaskProgress:
		fmt.Printf("[PROGRESS] %s: %d%% (%d/%d phases)\n", ev.TaskID, ev.Progress, ev.CurrentPhase, ev.TotalPhases)
	case bus.TopicTaskCompleted:
		fmt.Printf("[DONE] %s in %s\n", ev.TaskID, ev.ExecutionTime.Round(time.Millisecond))
	case bus.TopicTaskFailed:
		fmt.Printf("[FAILED] %s: %s\n", ev.TaskID, ev.Error)
	case bus.TopicTaskCancelled:
		fmt.Printf("[CANCELLED] %s: %s\n", ev.TaskID, ev.Reason)
	case bus.TopicAgentPhaseCompleted:
		fmt.Printf("[PHASE] %s finished %s phase of %s\n", ev.AgentID, ev.Phase, ev.TaskID)
	case bus.TopicConsensusAchieved:
		fmt.Printf("[CONSENSUS] %s achieved at %.0f%% confidence\n", ev.TaskID, ev.Confidence*100)
	case bus.TopicConsensusFailed:
		fmt.Printf("[CONSENSUS] %s failed: %s\n", ev.TaskID, ev.Reason)
	}
}

// terminalEvent reports whether ev resolves its task.
func terminalEvent(ev bus.Event) bool {
	switch ev.Type {
	case bus.TopicTaskCompleted, bus.TopicTaskFailed, bus.TopicTaskCancelled:
		return true
	}
	return false
}

func printRunSummary(m executor.Metrics) {
	fmt.Println()
	fmt.Printf("Completed: %d  Failed: %d\n", m.TotalCompleted, m.TotalFailed)
	if m.AvgExecutionTime > 0 {
		fmt.Printf("Average execution time: %s\n", m.AvgExecutionTime.Round(time.Millisecond))
	}
}
