// ABOUTME: TOML scenario files for the fake gateway
// ABOUTME: Defines identity, seeded chats, reply style and response shape

package main

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// Scenario configures everything the fake gateway serves. All fields have
// working defaults so an empty file (or none) still yields a usable server.
type Scenario struct {
	// ResponseShape picks how collections are encoded: "envelope" wraps
	// them in {"success": true, <key>: [...]}, "bare" serves the raw
	// array, "data" wraps them in {"data": [...]}.
	ResponseShape string `toml:"response_shape"`

	Identity IdentityConfig `toml:"identity"`
	Reply    ReplyConfig    `toml:"reply"`
	Chats    []ChatConfig   `toml:"chats"`
}

// IdentityConfig is served from the agent-config endpoints.
type IdentityConfig struct {
	Name         string   `toml:"name"`
	AgentID      string   `toml:"agent_id"`
	Version      string   `toml:"version"`
	Capabilities []string `toml:"capabilities"`
}

// ReplyConfig controls how streamed responses are produced.
type ReplyConfig struct {
	// Style is "echo" or "markdown".
	Style string `toml:"style"`
	// DelayMS is the pause between streamed chunks.
	DelayMS int `toml:"delay_ms"`
	// Thinking emits a thinking event before the text.
	Thinking bool `toml:"thinking"`
}

// ChatConfig seeds one stored conversation.
type ChatConfig struct {
	ID        string          `toml:"id"`
	Title     string          `toml:"title"`
	CreatedAt time.Time       `toml:"created_at"`
	UpdatedAt time.Time       `toml:"updated_at"`
	Messages  []MessageConfig `toml:"messages"`
}

// MessageConfig seeds one message inside a chat.
type MessageConfig struct {
	ID        string    `toml:"id"`
	Role      string    `toml:"role"`
	Content   string    `toml:"content"`
	CreatedAt time.Time `toml:"created_at"`
	Liked     bool      `toml:"liked"`
	Disliked  bool      `toml:"disliked"`
}

// loadScenario reads a scenario file, or returns the builtin seed data
// when path is empty. File values override defaults field by field.
func loadScenario(path string) (*Scenario, error) {
	sc := defaultScenario()
	if path == "" {
		return sc, nil
	}

	// A scenario file replaces the seeded chats entirely.
	sc.Chats = nil
	if _, err := toml.DecodeFile(path, sc); err != nil {
		return nil, fmt.Errorf("parsing scenario %s: %w", path, err)
	}

	switch sc.ResponseShape {
	case "", "envelope", "bare", "data":
	default:
		return nil, fmt.Errorf("response_shape must be envelope, bare or data, got %q", sc.ResponseShape)
	}
	switch sc.Reply.Style {
	case "", "echo", "markdown":
	default:
		return nil, fmt.Errorf("reply.style must be echo or markdown, got %q", sc.Reply.Style)
	}
	if sc.Identity.Name == "" {
		sc.Identity.Name = defaultScenario().Identity.Name
	}
	return sc, nil
}

func defaultScenario() *Scenario {
	now := time.Now()
	return &Scenario{
		ResponseShape: "envelope",
		Identity: IdentityConfig{
			Name:         "Echo Agent",
			AgentID:      "fake-echo-agent",
			Version:      "1.0.0",
			Capabilities: []string{"chat", "echo"},
		},
		Reply: ReplyConfig{
			Style:    "echo",
			DelayMS:  40,
			Thinking: true,
		},
		Chats: []ChatConfig{
			{
				ID:        "seed-greeting",
				Title:     "Greeting smoke test",
				CreatedAt: now.Add(-2 * time.Hour),
				UpdatedAt: now.Add(-1 * time.Hour),
				Messages: []MessageConfig{
					{Role: "user", Content: "hello there"},
					{Role: "assistant", Content: "Echo: **hello there**"},
				},
			},
			{
				ID:        "seed-yesterday",
				Title:     "Yesterday's debugging session",
				CreatedAt: now.Add(-30 * time.Hour),
				UpdatedAt: now.Add(-26 * time.Hour),
				Messages: []MessageConfig{
					{Role: "user", Content: "why is the build red"},
					{Role: "assistant", Content: "Echo: **why is the build red**", Liked: true},
				},
			},
			{
				ID:        "seed-old",
				Title:     "Old planning notes",
				CreatedAt: now.AddDate(0, 0, -12),
				UpdatedAt: now.AddDate(0, 0, -10),
				Messages: []MessageConfig{
					{Role: "user", Content: "summarize the roadmap"},
					{Role: "assistant", Content: "Echo: **summarize the roadmap**"},
				},
			},
		},
	}
}
