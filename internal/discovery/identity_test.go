// ABOUTME: Tests for agent-config parsing, defaults and metadata passthrough
// ABOUTME: Covers both casings, tool list forms and capability shapes

package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIdentity_Full(t *testing.T) {
	ident, err := parseIdentity([]byte(`{
		"name": "Support Agent",
		"agent_id": "support-7",
		"version": "3.2.1",
		"capabilities": ["chat", "tools"],
		"tools": [
			{"name": "search", "description": "web search"},
			{"name": "calc"}
		],
		"avatar_url": "https://cdn.example.com/a.png",
		"color": "#4287f5",
		"team": "platform",
		"region": "eu-west"
	}`))
	require.NoError(t, err)

	assert.Equal(t, "Support Agent", ident.Name)
	assert.Equal(t, "support-7", ident.ID)
	assert.Equal(t, "3.2.1", ident.Version)
	assert.Equal(t, []string{"chat", "tools"}, ident.Capabilities)
	require.Len(t, ident.Tools, 2)
	assert.Equal(t, "search", ident.Tools[0].Name)
	assert.Equal(t, "web search", ident.Tools[0].Description)
	assert.Equal(t, "calc", ident.Tools[1].Name)
	assert.Equal(t, "https://cdn.example.com/a.png", ident.AvatarURL)
	assert.Equal(t, "#4287f5", ident.Color)
	assert.Equal(t, "platform", ident.Metadata["team"])
	assert.Equal(t, "eu-west", ident.Metadata["region"])
}

func TestParseIdentity_Defaults(t *testing.T) {
	t.Run("name falls back to id", func(t *testing.T) {
		ident, err := parseIdentity([]byte(`{"agent_id": "a-1"}`))
		require.NoError(t, err)
		assert.Equal(t, "a-1", ident.Name)
		assert.Equal(t, "a-1", ident.ID)
	})

	t.Run("id falls back to name", func(t *testing.T) {
		ident, err := parseIdentity([]byte(`{"name": "Solo"}`))
		require.NoError(t, err)
		assert.Equal(t, "Solo", ident.ID)
	})

	t.Run("version defaults", func(t *testing.T) {
		ident, err := parseIdentity([]byte(`{"name": "Solo"}`))
		require.NoError(t, err)
		assert.Equal(t, "0.0.0", ident.Version)
	})
}

func TestParseIdentity_Rejections(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "no identity fields", body: `{"version": "1.0"}`},
		{name: "empty name and id", body: `{"name": "", "agent_id": ""}`},
		{name: "array not object", body: `[{"name": "x"}]`},
		{name: "bare string", body: `"hello"`},
		{name: "not json", body: `<!doctype html>`},
		{name: "name is a number", body: `{"name": 42}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseIdentity([]byte(tt.body))
			assert.Error(t, err)
		})
	}
}

func TestParseIdentity_CamelCaseAgentID(t *testing.T) {
	ident, err := parseIdentity([]byte(`{"agentId": "camel-1", "avatarUrl": "https://x/a.png"}`))
	require.NoError(t, err)

	assert.Equal(t, "camel-1", ident.ID)
	assert.Equal(t, "https://x/a.png", ident.AvatarURL)
}

func TestParseIdentity_CapabilityFlagObject(t *testing.T) {
	ident, err := parseIdentity([]byte(`{
		"name": "Flags",
		"capabilities": {"streaming": true, "push": false, "tools": true}
	}`))
	require.NoError(t, err)

	assert.Equal(t, []string{"streaming", "tools"}, ident.Capabilities)
}

func TestParseIdentity_ToolNamesAsStrings(t *testing.T) {
	ident, err := parseIdentity([]byte(`{"name": "Strings", "tools": ["alpha", "beta"]}`))
	require.NoError(t, err)

	require.Len(t, ident.Tools, 2)
	assert.Equal(t, "alpha", ident.Tools[0].Name)
	assert.Equal(t, "beta", ident.Tools[1].Name)
}

func TestParseIdentity_NoMetadataWhenNothingExtra(t *testing.T) {
	ident, err := parseIdentity([]byte(`{"name": "Lean", "version": "1.0.0"}`))
	require.NoError(t, err)

	assert.Nil(t, ident.Metadata)
}
