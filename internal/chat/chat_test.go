// ABOUTME: Tests for the shared message model helpers
// ABOUTME: Covers tool-step dedup ordering and conversation refs

package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDedupToolSteps_FirstOccurrenceWins(t *testing.T) {
	steps := []ToolStep{
		{ToolCallID: "t1", Name: "search", Status: "running"},
		{ToolCallID: "t2", Name: "fetch"},
		{ToolCallID: "t1", Name: "search-dup", Status: "complete"},
		{ToolCallID: "t3", Name: "write"},
	}

	out := DedupToolSteps(steps)

	require.Len(t, out, 3)
	assert.Equal(t, "t1", out[0].ToolCallID)
	assert.Equal(t, "search", out[0].Name)
	assert.Equal(t, "t2", out[1].ToolCallID)
	assert.Equal(t, "t3", out[2].ToolCallID)
}

func TestDedupToolSteps_EmptyIDsKept(t *testing.T) {
	steps := []ToolStep{
		{Name: "anonymous one"},
		{Name: "anonymous two"},
	}

	out := DedupToolSteps(steps)
	assert.Len(t, out, 2)
}

func TestDedupToolSteps_ShortSlicesUntouched(t *testing.T) {
	assert.Nil(t, DedupToolSteps(nil))
	one := []ToolStep{{ToolCallID: "t1"}}
	assert.Equal(t, one, DedupToolSteps(one))
}

func TestNewEphemeralRef_UniqueAndEphemeral(t *testing.T) {
	a := NewEphemeralRef()
	b := NewEphemeralRef()

	assert.Equal(t, RefEphemeral, a.Kind)
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.False(t, a.IsServer())
}

func TestServerRef(t *testing.T) {
	ref := ServerRef("chat-9")
	assert.True(t, ref.IsServer())
	assert.Equal(t, "server:chat-9", ref.String())
}

func TestKnownRole(t *testing.T) {
	assert.True(t, KnownRole(RoleUser))
	assert.True(t, KnownRole(RoleTool))
	assert.False(t, KnownRole(Role("moderator")))
	assert.False(t, KnownRole(Role("")))
}
