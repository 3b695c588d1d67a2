// ABOUTME: Conversation reference distinguishing local drafts from server chats
// ABOUTME: A tagged variant so ephemeral ids can never leak into API paths

package chat

import (
	"github.com/google/uuid"
)

// RefKind tags a ConversationRef.
type RefKind int

const (
	// RefEphemeral marks a conversation that exists only in this console
	// process. Its ID is locally minted and never appears in a gateway
	// request path.
	RefEphemeral RefKind = iota
	// RefServer marks a conversation the gateway owns.
	RefServer
)

// ConversationRef identifies the conversation a session is bound to.
// Refs are replaced wholesale, never mutated.
type ConversationRef struct {
	Kind RefKind
	ID   string
}

// NewEphemeralRef mints a reference for a not-yet-persisted conversation.
func NewEphemeralRef() ConversationRef {
	return ConversationRef{Kind: RefEphemeral, ID: uuid.New().String()}
}

// ServerRef wraps a gateway-assigned conversation id.
func ServerRef(id string) ConversationRef {
	return ConversationRef{Kind: RefServer, ID: id}
}

// IsServer reports whether the ref names a gateway-owned conversation.
func (r ConversationRef) IsServer() bool {
	return r.Kind == RefServer
}

func (r ConversationRef) String() string {
	if r.Kind == RefServer {
		return "server:" + r.ID
	}
	return "ephemeral:" + r.ID
}
