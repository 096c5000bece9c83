package orchestrator

import "github.com/omnicli/omni/internal/operation"

// Phase names which side of an up/down run an event belongs to.
type Phase string

const (
	PhaseApply  Phase = "apply"
	PhaseRemove Phase = "remove"
)

// EventType classifies one reported occurrence during Up or Down.
type EventType string

const (
	// EventStart fires right before a plan item's driver is invoked.
	EventStart EventType = "start"

	// EventSkip fires when a plan item is already installed and
	// installation is skipped in favor of recording a fresh reference.
	EventSkip EventType = "skip"

	// EventComplete fires after a plan item's driver finishes
	// successfully.
	EventComplete EventType = "complete"

	// EventError fires when a plan item's driver fails.
	EventError EventType = "error"
)

// Event is one occurrence reported to an EventHandler while Up or Down
// runs. It names the plan item by Kind and Label rather than by a
// resource GVK, since the orchestrator has no notion of resource
// kinds beyond the operation tagged union.
type Event struct {
	Type  EventType
	Phase Phase
	Kind  operation.Kind
	Label string

	// InstallPath is set on EventComplete for an apply-phase event.
	InstallPath string

	// Error is set on EventError.
	Error error
}

// EventHandler receives progress events as Up/Down runs. It must
// return quickly: it is called synchronously from the goroutine
// applying the event's plan item.
type EventHandler func(Event)
