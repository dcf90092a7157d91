package executor

import (
	"time"

	"github.com/hiveworks/hiveflow/internal/bus"
	"github.com/hiveworks/hiveflow/internal/hivelog"
)

// Defaults applied when the corresponding option is not set.
const (
	// DefaultMaxConcurrentTasks bounds simultaneous execution contexts.
	DefaultMaxConcurrentTasks = 10
	// DefaultTaskTimeout is the per-task execution deadline.
	DefaultTaskTimeout = 30 * time.Minute
	// DefaultProgressInterval is the progress-report tick period.
	DefaultProgressInterval = 5 * time.Second
	// DefaultMaxRetries is how many agent substitutions a failing
	// single-agent task gets before terminating.
	DefaultMaxRetries = 2
	// DefaultCompletedHistory bounds the in-memory completed-task table.
	DefaultCompletedHistory = 100
)

// RequiredConfig contains the minimal required configuration for an
// Executor. All fields are required and have no defaults.
type RequiredConfig struct {
	// Hive is the agent registry and collective-state collaborator.
	Hive HiveMind
	// Bus is the event bus tasks and agents communicate over.
	Bus *bus.Bus
}

// Option configures an Executor. Use With* functions to create Options.
type Option func(*executorOptions)

// executorOptions holds all optional configuration.
type executorOptions struct {
	maxConcurrentTasks int
	taskTimeout        time.Duration
	progressInterval   time.Duration
	maxRetries         int
	retryFailedTasks   bool
	maxQueueDepth      int
	completedHistory   int
	swarmID            string
	logger             *hivelog.DebugLogger
}

func defaultOptions() *executorOptions {
	return &executorOptions{
		maxConcurrentTasks: DefaultMaxConcurrentTasks,
		taskTimeout:        DefaultTaskTimeout,
		progressInterval:   DefaultProgressInterval,
		maxRetries:         DefaultMaxRetries,
		retryFailedTasks:   true,
		completedHistory:   DefaultCompletedHistory,
		logger:             hivelog.Nop(),
	}
}

// WithMaxConcurrentTasks sets the maximum number of tasks executing at
// once. Values below 1 are ignored.
func WithMaxConcurrentTasks(n int) Option {
	return func(o *executorOptions) {
		if n >= 1 {
			o.maxConcurrentTasks = n
		}
	}
}

// WithTaskTimeout sets the per-task execution deadline.
func WithTaskTimeout(d time.Duration) Option {
	return func(o *executorOptions) {
		if d > 0 {
			o.taskTimeout = d
		}
	}
}

// WithProgressInterval sets the progress-report tick period.
func WithProgressInterval(d time.Duration) Option {
	return func(o *executorOptions) {
		if d > 0 {
			o.progressInterval = d
		}
	}
}

// WithMaxRetries sets how many agent substitutions a failing
// single-agent task gets before terminating as failed.
func WithMaxRetries(n int) Option {
	return func(o *executorOptions) {
		if n >= 0 {
			o.maxRetries = n
		}
	}
}

// WithRetryFailedTasks toggles retry-with-substitution entirely.
func WithRetryFailedTasks(b bool) Option {
	return func(o *executorOptions) { o.retryFailedTasks = b }
}

// WithMaxQueueDepth bounds the pending queue. Submissions beyond the
// bound fail with ErrQueueFull. Zero (the default) means unbounded.
func WithMaxQueueDepth(n int) Option {
	return func(o *executorOptions) {
		if n >= 0 {
			o.maxQueueDepth = n
		}
	}
}

// WithCompletedHistory bounds the in-memory completed-task table.
// Values below 1 are ignored.
func WithCompletedHistory(n int) Option {
	return func(o *executorOptions) {
		if n >= 1 {
			o.completedHistory = n
		}
	}
}

// WithSwarmID sets the swarm ID stamped on tasks whose submit options
// leave it empty.
func WithSwarmID(id string) Option {
	return func(o *executorOptions) { o.swarmID = id }
}

// WithLogger sets the debug logger.
func WithLogger(l *hivelog.DebugLogger) Option {
	return func(o *executorOptions) {
		if l != nil {
			o.logger = l
		}
	}
}
