package ui

import (
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omnicli/omni/internal/operation"
	"github.com/omnicli/omni/internal/orchestrator"
)

// mockSender collects sent messages for testing.
type mockSender struct {
	mu   sync.Mutex
	msgs []tea.Msg
}

func (m *mockSender) Send(msg tea.Msg) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgs = append(m.msgs, msg)
}

func (m *mockSender) messages() []tea.Msg {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]tea.Msg, len(m.msgs))
	copy(result, m.msgs)
	return result
}

func TestReporter_ForwardsAllEvents(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		eventType orchestrator.EventType
	}{
		{name: "EventStart", eventType: orchestrator.EventStart},
		{name: "EventSkip", eventType: orchestrator.EventSkip},
		{name: "EventComplete", eventType: orchestrator.EventComplete},
		{name: "EventError", eventType: orchestrator.EventError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ms := &mockSender{}
			r := NewReporter(ms)

			event := orchestrator.Event{
				Type:  tt.eventType,
				Phase: orchestrator.PhaseApply,
				Kind:  operation.KindGoInstall,
				Label: "test",
			}
			r.HandleEvent(event)

			msgs := ms.messages()
			require.Len(t, msgs, 1)
			msg, ok := msgs[0].(orchestratorEventMsg)
			require.True(t, ok)
			assert.Equal(t, tt.eventType, msg.event.Type)
		})
	}
}

func TestReporter_ForwardsEveryEventUnthrottled(t *testing.T) {
	t.Parallel()
	ms := &mockSender{}
	r := NewReporter(ms)

	for range 5 {
		r.HandleEvent(orchestrator.Event{
			Type:  orchestrator.EventStart,
			Phase: orchestrator.PhaseApply,
			Kind:  operation.KindGoInstall,
			Label: "bat",
		})
	}

	assert.Len(t, ms.messages(), 5, "every event should be forwarded, there is no progress stream to throttle")
}

func TestReporter_Done(t *testing.T) {
	t.Parallel()
	ms := &mockSender{}
	r := NewReporter(ms)

	r.Done(nil)

	msgs := ms.messages()
	require.Len(t, msgs, 1)
	msg, ok := msgs[0].(applyDoneMsg)
	require.True(t, ok)
	assert.NoError(t, msg.err)
}

func TestReporter_DoneWithError(t *testing.T) {
	t.Parallel()
	ms := &mockSender{}
	r := NewReporter(ms)

	r.Done(assert.AnError)

	msgs := ms.messages()
	require.Len(t, msgs, 1)
	msg, ok := msgs[0].(applyDoneMsg)
	require.True(t, ok)
	assert.ErrorIs(t, msg.err, assert.AnError)
}
