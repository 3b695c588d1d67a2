// ABOUTME: Shared message model for the agent-scope console
// ABOUTME: Defines Message, Role, ToolStep and the annotation-derived extras

package chat

import (
	"time"
)

// Role identifies who produced a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// KnownRole reports whether r is one of the four roles the console renders.
func KnownRole(r Role) bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem, RoleTool:
		return true
	}
	return false
}

// ToolStep is one tool invocation surfaced inside an assistant message.
// ToolCallID links the step to its result; after normalization a message
// holds at most one step per ToolCallID.
type ToolStep struct {
	ToolCallID string
	Name       string
	Input      string
	Output     string
	Status     string // running, complete, error
}

// KnowledgeSource is a retrieval citation attached to an assistant message.
type KnowledgeSource struct {
	Title   string
	URL     string
	Snippet string
}

// ToolData carries the raw annotation payload for messages whose backing
// record included one. It is synthesized only from an annotation, never
// inferred from content.
type ToolData struct {
	Kind    string
	Payload map[string]any
}

// Message is one entry in a conversation transcript.
type Message struct {
	ID         string
	Role       Role
	Content    string
	CreatedAt  time.Time
	Liked      bool
	Disliked   bool
	HasComment bool

	ToolSteps        []ToolStep
	KnowledgeSources []KnowledgeSource
	ToolData         *ToolData
}

// DedupToolSteps removes duplicate tool steps by ToolCallID, keeping the
// first occurrence and preserving order. Steps without a ToolCallID are
// kept as-is.
func DedupToolSteps(steps []ToolStep) []ToolStep {
	if len(steps) < 2 {
		return steps
	}
	seen := make(map[string]bool, len(steps))
	out := steps[:0:0]
	for _, s := range steps {
		if s.ToolCallID != "" {
			if seen[s.ToolCallID] {
				continue
			}
			seen[s.ToolCallID] = true
		}
		out = append(out, s)
	}
	return out
}
