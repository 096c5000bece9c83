package ui

import (
	"log/slog"
	"time"

	"github.com/omnicli/omni/internal/orchestrator"
)

// orchestratorEventMsg wraps an orchestrator.Event as a Bubble Tea message.
type orchestratorEventMsg struct {
	event orchestrator.Event
}

// applyDoneMsg signals that Up or Down has returned.
type applyDoneMsg struct {
	err error
}

// tickMsg triggers periodic UI updates (elapsed time, spinner).
type tickMsg time.Time

// slogMsg delivers a structured log record to the TUI model.
type slogMsg struct {
	level   slog.Level
	message string
}
