package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/omnicli/omni/internal/orchestrator"
)

// Update implements tea.Model.
func (m *ApplyModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tickMsg:
		if !m.applyStart.IsZero() {
			m.totalElapsed = time.Since(m.applyStart)
		}
		return m, tick()

	case orchestratorEventMsg:
		return m.handleOrchestratorEvent(msg.event)

	case slogMsg:
		return m.handleSlogMsg(msg)

	case applyDoneMsg:
		return m.handleApplyDone(msg)
	}

	return m, nil
}

// handleOrchestratorEvent processes one orchestrator.Event and updates model state.
func (m *ApplyModel) handleOrchestratorEvent(event orchestrator.Event) (tea.Model, tea.Cmd) {
	if m.applyStart.IsZero() {
		m.applyStart = time.Now()
		m.phase = event.Phase
	}

	switch event.Type {
	case orchestrator.EventStart:
		return m.handleStart(event)
	case orchestrator.EventSkip:
		return m.handleSkip(event)
	case orchestrator.EventComplete:
		return m.handleComplete(event)
	case orchestrator.EventError:
		return m.handleError(event)
	}
	return m, nil
}

// handleStart processes an EventStart event.
func (m *ApplyModel) handleStart(event orchestrator.Event) (tea.Model, tea.Cmd) {
	key := taskKey(event.Kind, event.Label)
	if _, exists := m.tasks[key]; exists {
		return m, nil
	}

	m.tasks[key] = &taskState{
		key:       key,
		kind:      event.Kind,
		label:     event.Label,
		phase:     event.Phase,
		status:    taskRunning,
		startTime: time.Now(),
	}
	m.taskOrder = append(m.taskOrder, key)

	return m, nil
}

// handleSkip processes an EventSkip event: the plan item was already
// installed, so it never transitions through taskRunning.
func (m *ApplyModel) handleSkip(event orchestrator.Event) (tea.Model, tea.Cmd) {
	key := taskKey(event.Kind, event.Label)
	if _, exists := m.tasks[key]; exists {
		return m, nil
	}

	m.tasks[key] = &taskState{
		key:    key,
		kind:   event.Kind,
		label:  event.Label,
		phase:  event.Phase,
		status: taskSkipped,
	}
	m.taskOrder = append(m.taskOrder, key)
	m.completedOrder = append(m.completedOrder, key)
	m.results.Skipped++

	return m, nil
}

// handleComplete processes an EventComplete event.
func (m *ApplyModel) handleComplete(event orchestrator.Event) (tea.Model, tea.Cmd) {
	key := taskKey(event.Kind, event.Label)
	task, exists := m.tasks[key]
	if !exists {
		return m, nil
	}

	task.status = taskDone
	task.elapsed = time.Since(task.startTime)
	task.installPath = event.InstallPath
	m.completedOrder = append(m.completedOrder, key)

	if event.Phase == orchestrator.PhaseRemove {
		m.results.Removed++
	} else {
		m.results.Installed++
	}

	return m, nil
}

// handleError processes an EventError event.
func (m *ApplyModel) handleError(event orchestrator.Event) (tea.Model, tea.Cmd) {
	key := taskKey(event.Kind, event.Label)
	task, exists := m.tasks[key]
	if !exists {
		return m, nil
	}

	task.status = taskFailed
	task.elapsed = time.Since(task.startTime)
	task.err = event.Error
	m.results.Failed++
	m.completedOrder = append(m.completedOrder, key)

	return m, nil
}

// handleSlogMsg appends a slog record to the log panel, keeping at most maxSlogLines.
func (m *ApplyModel) handleSlogMsg(msg slogMsg) (tea.Model, tea.Cmd) {
	m.slogLines = append(m.slogLines, slogLine(msg))
	if len(m.slogLines) > maxSlogLines {
		m.slogLines = m.slogLines[len(m.slogLines)-maxSlogLines:]
	}
	return m, nil
}

// handleApplyDone processes an applyDoneMsg.
func (m *ApplyModel) handleApplyDone(msg applyDoneMsg) (tea.Model, tea.Cmd) {
	m.done = true
	m.err = msg.err
	return m, tea.Quit
}
