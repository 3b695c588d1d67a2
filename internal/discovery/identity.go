// ABOUTME: AgentIdentity model and agent-config payload parsing
// ABOUTME: Validates probe responses and applies the documented defaults

package discovery

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// ErrNotAgentConfig is returned when a probe response parses as JSON but
// carries neither an agent name nor an agent id.
var ErrNotAgentConfig = errors.New("response is not an agent config")

// ToolInfo describes one tool the agent advertises. Order matches the
// config payload.
type ToolInfo struct {
	Name        string
	Description string
}

// Identity is the resolved description of a remote agent. Values are
// never mutated after Resolve returns; a new probe yields a new Identity.
type Identity struct {
	Name         string
	ID           string
	Version      string
	Capabilities []string
	Tools        []ToolInfo
	AvatarURL    string
	Color        string
	Metadata     map[string]any
}

// parseIdentity validates and normalizes an agent-config payload. The
// payload must be a JSON object with a nonempty name or agent id; every
// other field is optional.
func parseIdentity(body []byte) (*Identity, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(bytes.TrimSpace(body), &fields); err != nil {
		return nil, fmt.Errorf("body is not a JSON object: %w", err)
	}

	name := stringField(fields, "name")
	agentID := stringField(fields, "agent_id", "agentId")
	if name == "" && agentID == "" {
		return nil, ErrNotAgentConfig
	}

	ident := &Identity{
		Name:         name,
		ID:           agentID,
		Version:      stringField(fields, "version"),
		Capabilities: capabilityList(fields["capabilities"]),
		Tools:        toolList(fields["tools"]),
		AvatarURL:    stringField(fields, "avatar_url", "avatarUrl"),
		Color:        stringField(fields, "color"),
		Metadata:     extraFields(fields),
	}
	ident.applyDefaults()
	return ident, nil
}

// applyDefaults fills the documented fallbacks: a missing name takes the
// agent id, a missing id takes the name, and versionless agents report
// 0.0.0.
func (id *Identity) applyDefaults() {
	if id.Name == "" {
		id.Name = id.ID
	}
	if id.Name == "" {
		id.Name = "Unknown Agent"
	}
	if id.ID == "" {
		id.ID = id.Name
	}
	if id.Version == "" {
		id.Version = "0.0.0"
	}
}

func stringField(fields map[string]json.RawMessage, keys ...string) string {
	for _, key := range keys {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && s != "" {
			return s
		}
	}
	return ""
}

// capabilityList reads capabilities as either a string array or a
// feature-flag object whose enabled keys become the list.
func capabilityList(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	var flags map[string]bool
	if err := json.Unmarshal(raw, &flags); err != nil {
		return nil
	}
	for name, enabled := range flags {
		if enabled {
			list = append(list, name)
		}
	}
	sort.Strings(list)
	return list
}

// toolList reads tools as objects or bare name strings, preserving order.
func toolList(raw json.RawMessage) []ToolInfo {
	if len(raw) == 0 {
		return nil
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil
	}
	tools := make([]ToolInfo, 0, len(entries))
	for _, entry := range entries {
		trimmed := bytes.TrimSpace(entry)
		if len(trimmed) == 0 {
			continue
		}
		if trimmed[0] == '"' {
			var name string
			if err := json.Unmarshal(trimmed, &name); err == nil && name != "" {
				tools = append(tools, ToolInfo{Name: name})
			}
			continue
		}
		var obj struct {
			Name        string `json:"name"`
			Description string `json:"description"`
		}
		if err := json.Unmarshal(trimmed, &obj); err == nil && obj.Name != "" {
			tools = append(tools, ToolInfo{Name: obj.Name, Description: obj.Description})
		}
	}
	if len(tools) == 0 {
		return nil
	}
	return tools
}

// consumedKeys are the config fields mapped onto Identity directly;
// everything else passes through as metadata.
var consumedKeys = map[string]bool{
	"name":         true,
	"agent_id":     true,
	"agentId":      true,
	"version":      true,
	"capabilities": true,
	"tools":        true,
	"avatar_url":   true,
	"avatarUrl":    true,
	"color":        true,
}

func extraFields(fields map[string]json.RawMessage) map[string]any {
	var meta map[string]any
	for key, raw := range fields {
		if consumedKeys[key] {
			continue
		}
		var value any
		if err := json.Unmarshal(raw, &value); err != nil {
			continue
		}
		if meta == nil {
			meta = make(map[string]any)
		}
		meta[key] = value
	}
	return meta
}
