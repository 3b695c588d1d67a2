// ABOUTME: Session states and the event types the controller emits
// ABOUTME: Connection state is explicit, never inferred from nil checks

package session

import (
	"github.com/2389/agent-scope/internal/chat"
)

// State is the session's connection state.
type State int

const (
	// StateDisconnected means no service is configured.
	StateDisconnected State = iota
	// StateConnecting means a discovery probe is running.
	StateConnecting
	// StateConnected means discovery succeeded and the session is usable.
	StateConnected
	// StateError means the last discovery failed. The previous identity,
	// if any, is retained for display.
	StateError
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// EventKind labels a session event.
type EventKind int

const (
	// EventStateChanged fires on every connection state transition.
	EventStateChanged EventKind = iota
	// EventConversationChanged fires when the session binds to a
	// different conversation ref.
	EventConversationChanged
	// EventHistoryApplied fires when a hydration result was accepted.
	EventHistoryApplied
	// EventHistoryFailed fires when a current (non-stale) hydration
	// attempt failed.
	EventHistoryFailed
)

func (k EventKind) String() string {
	switch k {
	case EventStateChanged:
		return "state_changed"
	case EventConversationChanged:
		return "conversation_changed"
	case EventHistoryApplied:
		return "history_applied"
	case EventHistoryFailed:
		return "history_failed"
	default:
		return "unknown"
	}
}

// Event is one notification from the controller to the presentation
// layer. Delivery is best-effort; a full channel drops the event.
type Event struct {
	Kind  EventKind
	State State
	Ref   chat.ConversationRef
	Err   error
}
