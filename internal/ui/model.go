package ui

import (
	"fmt"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/omnicli/omni/internal/operation"
	"github.com/omnicli/omni/internal/orchestrator"
)

const (
	tickInterval = 50 * time.Millisecond
	maxSlogLines = 5
)

// slogLine holds a single log line delivered from slog.
type slogLine struct {
	level   slog.Level
	message string
}

// taskStatus represents the current state of a task.
type taskStatus int

const (
	taskRunning taskStatus = iota
	taskDone
	taskSkipped
	taskFailed
)

// taskState holds the display state for one plan item being applied or
// removed. Unlike the resource-reconciler event stream this model used
// to track, a plan item carries no download byte count or streamed
// output -- Up/Down report only start, skip, complete, and error.
type taskState struct {
	key         string
	kind        operation.Kind
	label       string
	phase       orchestrator.Phase
	status      taskStatus
	startTime   time.Time
	installPath string
	elapsed     time.Duration // set on complete/skip/error; for running tasks, computed from startTime
	err         error
}

// ApplyModel is the Bubble Tea model for the up/down TUI. It tracks a
// single flat run: the orchestrator applies one top-level operation at
// a time and reports each plan item's lifecycle as a flat stream of
// events, with no DAG-layer grouping to render.
type ApplyModel struct {
	phase      orchestrator.Phase
	applyStart time.Time

	totalElapsed time.Duration // cached for View()

	tasks          map[string]*taskState
	taskOrder      []string
	completedOrder []string // keys in completion order (done/skipped/failed)

	results *ApplyResults

	// Slog panel (last N log lines from slog)
	slogLines []slogLine

	done  bool
	err   error
	width int
}

// NewApplyModel creates a new ApplyModel.
func NewApplyModel(results *ApplyResults) *ApplyModel {
	return &ApplyModel{
		tasks:   make(map[string]*taskState),
		results: results,
		width:   80,
	}
}

// Init implements tea.Model.
func (m *ApplyModel) Init() tea.Cmd {
	return tick()
}

// Err returns the error from the run, if any.
func (m *ApplyModel) Err() error {
	return m.err
}

// FinalView returns the final rendered output for printing after AltScreen exits.
// This is the same as View() but intended for post-run output to scrollback.
func (m *ApplyModel) FinalView() string {
	return m.View()
}

// tick returns a command that sends a tickMsg after the tick interval.
func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// taskKey returns the display key for a task, e.g. "node/node 20.11.0".
func taskKey(kind operation.Kind, label string) string {
	return fmt.Sprintf("%s/%s", kind, label)
}
