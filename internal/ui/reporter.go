package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/omnicli/omni/internal/orchestrator"
)

// sender abstracts tea.Program.Send for testing.
type sender interface {
	Send(msg tea.Msg)
}

// Reporter bridges orchestrator events to Bubble Tea. Unlike the
// resource-reconciler event stream this package used to forward, Up
// and Down report only start/skip/complete/error for a plan item, so
// there is no high-frequency progress stream left to throttle -- every
// event is forwarded as it arrives.
type Reporter struct {
	target sender
}

// NewReporter creates a reporter that forwards events to the given sender.
func NewReporter(target sender) *Reporter {
	return &Reporter{target: target}
}

// HandleEvent forwards an orchestrator event to the underlying Bubble Tea program.
func (r *Reporter) HandleEvent(event orchestrator.Event) {
	r.target.Send(orchestratorEventMsg{event: event})
}

// Done sends an applyDoneMsg to signal completion.
func (r *Reporter) Done(err error) {
	r.target.Send(applyDoneMsg{err: err})
}
