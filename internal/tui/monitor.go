// Package tui provides the live terminal monitor for a running hive.
// The monitor is a pure observer: it renders whatever the event bus
// reports and never mutates hive state.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/hiveworks/hiveflow/internal/bus"
	"github.com/hiveworks/hiveflow/pkg/models"
)

// maxVisibleEvents bounds the recent-event pane.
const maxVisibleEvents = 10

// maxRetainedEvents bounds the in-memory event log.
const maxRetainedEvents = 200

// BusEventMsg wraps one bus event for the monitor.
type BusEventMsg struct {
	Event bus.Event
}

// RunDoneMsg signals that the run has drained and the monitor should
// show its final banner.
type RunDoneMsg struct {
	Success bool
	Message string
}

// taskRow is the latest observed state of one task.
type taskRow struct {
	id       string
	title    string
	status   models.TaskStatus
	progress int
	agents   int
	detail   string
}

// logEntry is one line in the recent-event pane.
type logEntry struct {
	timestamp time.Time
	message   string
}

// App is the monitor's bubbletea model.
type App struct {
	swarmID string
	spin    spinner.Model

	// tasks holds rows in submission order; index maps task ID to row.
	tasks []*taskRow
	index map[string]*taskRow
	logs  []logEntry

	submitted int
	running   int
	completed int
	failed    int
	cancelled int

	width    int
	height   int
	quitting bool

	done        bool
	doneSuccess bool
	doneMessage string
}

// New creates a monitor for the given swarm.
func New(swarmID string) *App {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = accentStyle

	return &App{
		swarmID: swarmID,
		spin:    s,
		index:   make(map[string]*taskRow),
	}
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return a.spin.Tick
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			a.quitting = true
			return a, tea.Quit
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height

	case spinner.TickMsg:
		if !a.done {
			var cmd tea.Cmd
			a.spin, cmd = a.spin.Update(msg)
			return a, cmd
		}

	case BusEventMsg:
		a.handleEvent(msg.Event)

	case RunDoneMsg:
		a.done = true
		a.doneSuccess = msg.Success
		a.doneMessage = msg.Message
	}

	return a, nil
}

// handleEvent folds one bus event into the display state.
func (a *App) handleEvent(ev bus.Event) {
	switch ev.Type {
	case bus.TopicTaskSubmitted:
		row := a.upsert(ev)
		row.status = models.TaskStatusPending
		a.submitted++
		a.log(ev.Timestamp, "task %s submitted", short(ev.TaskID))

	case bus.TopicTaskStarted:
		row := a.upsert(ev)
		row.status = models.TaskStatusInProgress
		row.agents = len(ev.AssignedAgents)
		a.running++
		a.log(ev.Timestamp, "task %s started with %d agent(s)", short(ev.TaskID), row.agents)

	case bus.TopicTaskProgress:
		row := a.upsert(ev)
		row.progress = ev.Progress

	case bus.TopicTaskCompleted:
		row := a.upsert(ev)
		a.finish(row)
		row.status = models.TaskStatusCompleted
		row.progress = 100
		a.completed++
		a.log(ev.Timestamp, "task %s completed in %s", short(ev.TaskID), ev.ExecutionTime.Round(time.Millisecond))

	case bus.TopicTaskFailed:
		row := a.upsert(ev)
		a.finish(row)
		row.status = models.TaskStatusFailed
		row.detail = ev.Error
		a.failed++
		a.log(ev.Timestamp, "task %s failed: %s", short(ev.TaskID), ev.Error)

	case bus.TopicTaskCancelled:
		row := a.upsert(ev)
		a.finish(row)
		row.status = models.TaskStatusCancelled
		row.detail = ev.Reason
		a.cancelled++
		a.log(ev.Timestamp, "task %s cancelled: %s", short(ev.TaskID), ev.Reason)

	case bus.TopicAgentPhaseCompleted:
		a.log(ev.Timestamp, "%s finished %s phase of %s (%d/%d)",
			short(ev.AgentID), ev.Phase, short(ev.TaskID), ev.CurrentPhase, ev.TotalPhases)

	case bus.TopicAgentTaskCompleted:
		a.log(ev.Timestamp, "%s reported %s done", short(ev.AgentID), short(ev.TaskID))

	case bus.TopicAgentTaskFailed:
		a.log(ev.Timestamp, "%s reported %s failed: %s", short(ev.AgentID), short(ev.TaskID), ev.Error)

	case bus.TopicConsensusAchieved:
		a.log(ev.Timestamp, "consensus achieved for %s (%.0f%% confidence)", short(ev.TaskID), ev.Confidence*100)

	case bus.TopicConsensusFailed:
		a.log(ev.Timestamp, "consensus failed for %s: %s", short(ev.TaskID), ev.Reason)
	}
}

// upsert returns the row for the event's task, creating it on first sight.
func (a *App) upsert(ev bus.Event) *taskRow {
	if row, ok := a.index[ev.TaskID]; ok {
		if row.title == "" && ev.Task != nil {
			row.title = ev.Task.Description
		}
		return row
	}

	row := &taskRow{id: ev.TaskID}
	if ev.Task != nil {
		row.title = ev.Task.Description
	}
	a.tasks = append(a.tasks, row)
	a.index[ev.TaskID] = row
	return row
}

// finish decrements the running counter when a row leaves in_progress.
func (a *App) finish(row *taskRow) {
	if row.status == models.TaskStatusInProgress && a.running > 0 {
		a.running--
	}
}

func (a *App) log(ts time.Time, format string, args ...interface{}) {
	if ts.IsZero() {
		ts = time.Now()
	}
	a.logs = append(a.logs, logEntry{timestamp: ts, message: fmt.Sprintf(format, args...)})
	if len(a.logs) > maxRetainedEvents {
		a.logs = a.logs[len(a.logs)-maxRetainedEvents:]
	}
}

// View implements tea.Model.
func (a *App) View() string {
	if a.quitting {
		return "Goodbye!\n"
	}

	var b strings.Builder
	b.WriteString(a.viewHeader())
	b.WriteString("\n\n")
	b.WriteString(a.viewTasks())
	b.WriteString("\n")
	b.WriteString(a.viewEvents())
	b.WriteString("\n")
	b.WriteString(a.viewFooter())
	return b.String()
}

func (a *App) viewHeader() string {
	title := titleStyle.Render("hiveflow")
	swarm := dimStyle.Render("swarm " + a.swarmID)

	var pulse string
	if !a.done {
		pulse = " " + a.spin.View()
	}

	counters := fmt.Sprintf("%d submitted | %d running | %d completed | %d failed | %d cancelled",
		a.submitted, a.running, a.completed, a.failed, a.cancelled)

	return fmt.Sprintf("%s%s %s\n%s", title, pulse, swarm, dimStyle.Render(counters))
}

func (a *App) viewTasks() string {
	if len(a.tasks) == 0 {
		return dimStyle.Render("  no tasks yet")
	}

	var b strings.Builder
	b.WriteString(sectionStyle.Render("TASKS"))
	b.WriteString("\n")
	for _, row := range a.tasks {
		// Truncate before styling so clipping never cuts an escape code.
		detail := truncate(a.rowDetail(row), a.width-36)
		status := statusStyle(row.status).Render(fmt.Sprintf("%-11s", row.status))
		b.WriteString(fmt.Sprintf("  %-14s %s %3d%%  %s\n",
			short(row.id), status, row.progress, detail))
	}
	return b.String()
}

func (a *App) rowDetail(row *taskRow) string {
	if row.status == models.TaskStatusFailed || row.status == models.TaskStatusCancelled {
		if row.detail != "" {
			return row.detail
		}
	}
	return row.title
}

func (a *App) viewEvents() string {
	if len(a.logs) == 0 {
		return dimStyle.Render("  no events yet")
	}

	start := 0
	if len(a.logs) > maxVisibleEvents {
		start = len(a.logs) - maxVisibleEvents
	}

	var b strings.Builder
	b.WriteString(sectionStyle.Render("EVENTS"))
	b.WriteString("\n")
	for _, entry := range a.logs[start:] {
		line := fmt.Sprintf("  %s %s", entry.timestamp.Format("15:04:05"), entry.message)
		b.WriteString(dimStyle.Render(truncate(line, a.width)))
		b.WriteString("\n")
	}
	return b.String()
}

func (a *App) viewFooter() string {
	if a.done {
		if a.doneSuccess {
			return okStyle.Render("✓ "+a.doneMessage) + dimStyle.Render(" | press q to exit")
		}
		return errStyle.Render("✗ "+a.doneMessage) + dimStyle.Render(" | press q to exit")
	}
	return dimStyle.Render("press q to quit")
}

// short clips long IDs for display; minted hive IDs already fit.
func short(id string) string {
	if len(id) > 14 {
		return id[:14]
	}
	return id
}

// truncate clips a rendered line to the terminal width.
func truncate(s string, width int) string {
	if width <= 0 || len(s) <= width {
		return s
	}
	if width <= 1 {
		return s[:width]
	}
	return s[:width-1] + "…"
}
