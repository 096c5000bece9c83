package ui

import (
	"errors"
	"fmt"
	"log/slog"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omnicli/omni/internal/operation"
	"github.com/omnicli/omni/internal/orchestrator"
)

func TestUpdate_EventStart_CreatesTask(t *testing.T) {
	results := &ApplyResults{}
	m := NewApplyModel(results)

	event := orchestrator.Event{
		Type:  orchestrator.EventStart,
		Phase: orchestrator.PhaseApply,
		Kind:  operation.KindGoInstall,
		Label: "gopls",
	}
	updated, _ := m.Update(orchestratorEventMsg{event: event})
	model := updated.(*ApplyModel)

	require.Contains(t, model.tasks, "go-install/gopls")
	task := model.tasks["go-install/gopls"]
	assert.Equal(t, operation.KindGoInstall, task.kind)
	assert.Equal(t, "gopls", task.label)
	assert.Equal(t, taskRunning, task.status)
	assert.Equal(t, []string{"go-install/gopls"}, model.taskOrder)
	assert.False(t, model.applyStart.IsZero(), "applyStart should be set")
	assert.Equal(t, orchestrator.PhaseApply, model.phase)
}

func TestUpdate_EventStart_Duplicate_Ignored(t *testing.T) {
	results := &ApplyResults{}
	m := NewApplyModel(results)

	event := orchestrator.Event{
		Type: orchestrator.EventStart, Phase: orchestrator.PhaseApply,
		Kind: operation.KindGoInstall, Label: "gopls",
	}
	m.Update(orchestratorEventMsg{event: event})
	m.Update(orchestratorEventMsg{event: event})

	assert.Len(t, m.taskOrder, 1, "a duplicate start for the same key should not create a second task")
}

func TestUpdate_EventSkip_MarksSkippedImmediately(t *testing.T) {
	results := &ApplyResults{}
	m := NewApplyModel(results)

	event := orchestrator.Event{
		Type: orchestrator.EventSkip, Phase: orchestrator.PhaseApply,
		Kind: operation.KindNode, Label: "node 20.11.0",
	}
	updated, _ := m.Update(orchestratorEventMsg{event: event})
	model := updated.(*ApplyModel)

	task := model.tasks["node/node 20.11.0"]
	require.NotNil(t, task)
	assert.Equal(t, taskSkipped, task.status)
	assert.Equal(t, []string{"node/node 20.11.0"}, model.completedOrder)
	assert.Equal(t, 1, results.Skipped)
}

func TestUpdate_EventComplete_Apply_UpdatesResults(t *testing.T) {
	results := &ApplyResults{}
	m := NewApplyModel(results)

	m.Update(orchestratorEventMsg{event: orchestrator.Event{
		Type: orchestrator.EventStart, Phase: orchestrator.PhaseApply,
		Kind: operation.KindGoInstall, Label: "bat",
	}})

	event := orchestrator.Event{
		Type: orchestrator.EventComplete, Phase: orchestrator.PhaseApply,
		Kind: operation.KindGoInstall, Label: "bat", InstallPath: "/bin/bat",
	}
	m.Update(orchestratorEventMsg{event: event})

	task := m.tasks["go-install/bat"]
	assert.Equal(t, taskDone, task.status)
	assert.Equal(t, "/bin/bat", task.installPath)
	assert.Equal(t, 1, results.Installed)
	assert.Equal(t, []string{"go-install/bat"}, m.completedOrder)
}

func TestUpdate_EventComplete_Remove_UpdatesResults(t *testing.T) {
	results := &ApplyResults{}
	m := NewApplyModel(results)

	m.Update(orchestratorEventMsg{event: orchestrator.Event{
		Type: orchestrator.EventStart, Phase: orchestrator.PhaseRemove,
		Kind: operation.KindGoInstall, Label: "bat",
	}})

	event := orchestrator.Event{
		Type: orchestrator.EventComplete, Phase: orchestrator.PhaseRemove,
		Kind: operation.KindGoInstall, Label: "bat",
	}
	m.Update(orchestratorEventMsg{event: event})

	task := m.tasks["go-install/bat"]
	assert.Equal(t, taskDone, task.status)
	assert.Equal(t, 1, results.Removed)
	assert.Equal(t, 0, results.Installed)
}

func TestUpdate_EventComplete_WithoutStart_Ignored(t *testing.T) {
	results := &ApplyResults{}
	m := NewApplyModel(results)

	event := orchestrator.Event{
		Type: orchestrator.EventComplete, Phase: orchestrator.PhaseApply,
		Kind: operation.KindGoInstall, Label: "bat",
	}
	m.Update(orchestratorEventMsg{event: event})

	assert.Empty(t, m.tasks)
	assert.Equal(t, 0, results.Installed)
}

func TestUpdate_EventError_UpdatesResults(t *testing.T) {
	results := &ApplyResults{}
	m := NewApplyModel(results)

	m.Update(orchestratorEventMsg{event: orchestrator.Event{
		Type: orchestrator.EventStart, Phase: orchestrator.PhaseApply,
		Kind: operation.KindGithubRelease, Label: "cli/cli",
	}})

	event := orchestrator.Event{
		Type: orchestrator.EventError, Phase: orchestrator.PhaseApply,
		Kind: operation.KindGithubRelease, Label: "cli/cli",
		Error: errors.New("connection refused"),
	}
	m.Update(orchestratorEventMsg{event: event})

	task := m.tasks["github-release/cli/cli"]
	assert.Equal(t, taskFailed, task.status)
	assert.EqualError(t, task.err, "connection refused")
	assert.Equal(t, 1, results.Failed)
}

func TestUpdate_ApplyDone_QuitsProgram(t *testing.T) {
	results := &ApplyResults{}
	m := NewApplyModel(results)

	updated, cmd := m.Update(applyDoneMsg{err: nil})
	model := updated.(*ApplyModel)

	assert.True(t, model.done)
	require.NoError(t, model.err)
	assert.NotNil(t, cmd, "should return quit command")
}

func TestUpdate_ApplyDone_WithError(t *testing.T) {
	results := &ApplyResults{}
	m := NewApplyModel(results)

	updated, _ := m.Update(applyDoneMsg{err: errors.New("apply failed")})
	model := updated.(*ApplyModel)

	assert.True(t, model.done)
	assert.EqualError(t, model.err, "apply failed")
}

func TestUpdate_WindowSizeMsg(t *testing.T) {
	results := &ApplyResults{}
	m := NewApplyModel(results)

	updated, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	model := updated.(*ApplyModel)

	assert.Equal(t, 120, model.width)
}

func TestUpdate_CompletedOrder_PreservesCompletionSequence(t *testing.T) {
	results := &ApplyResults{}
	m := NewApplyModel(results)

	m.Update(orchestratorEventMsg{event: orchestrator.Event{
		Type: orchestrator.EventStart, Phase: orchestrator.PhaseApply,
		Kind: operation.KindGoInstall, Label: "gopls",
	}})
	m.Update(orchestratorEventMsg{event: orchestrator.Event{
		Type: orchestrator.EventStart, Phase: orchestrator.PhaseApply,
		Kind: operation.KindNode, Label: "node 20.11.0",
	}})

	// node finishes first even though it started second
	m.Update(orchestratorEventMsg{event: orchestrator.Event{
		Type: orchestrator.EventComplete, Phase: orchestrator.PhaseApply,
		Kind: operation.KindNode, Label: "node 20.11.0",
	}})
	m.Update(orchestratorEventMsg{event: orchestrator.Event{
		Type: orchestrator.EventComplete, Phase: orchestrator.PhaseApply,
		Kind: operation.KindGoInstall, Label: "gopls",
	}})

	assert.Equal(t, []string{"node/node 20.11.0", "go-install/gopls"}, m.completedOrder)
	assert.Equal(t, []string{"go-install/gopls", "node/node 20.11.0"}, m.taskOrder)
}

func TestUpdate_SlogMsg_AppendsToSlogLines(t *testing.T) {
	results := &ApplyResults{}
	m := NewApplyModel(results)

	updated, _ := m.Update(slogMsg{level: slog.LevelWarn, message: "warning one"})
	model := updated.(*ApplyModel)

	require.Len(t, model.slogLines, 1)
	assert.Equal(t, slog.LevelWarn, model.slogLines[0].level)
	assert.Equal(t, "warning one", model.slogLines[0].message)

	updated, _ = model.Update(slogMsg{level: slog.LevelError, message: "error one"})
	model = updated.(*ApplyModel)

	require.Len(t, model.slogLines, 2)
	assert.Equal(t, slog.LevelError, model.slogLines[1].level)
}

func TestUpdate_SlogMsg_TruncatesAtMaxSlogLines(t *testing.T) {
	results := &ApplyResults{}
	m := NewApplyModel(results)

	for i := range maxSlogLines + 3 {
		m.Update(slogMsg{level: slog.LevelWarn, message: fmt.Sprintf("msg %d", i)})
	}

	assert.Len(t, m.slogLines, maxSlogLines, "should keep only last %d lines", maxSlogLines)
	assert.Equal(t, "msg 3", m.slogLines[0].message, "oldest visible should be msg 3")
	assert.Equal(t, fmt.Sprintf("msg %d", maxSlogLines+2), m.slogLines[maxSlogLines-1].message)
}
