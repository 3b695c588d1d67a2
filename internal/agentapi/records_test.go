// ABOUTME: Tests for wire record parsing
// ABOUTME: Verifies dual-casing tolerance and timestamp fallbacks

package agentapi

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatRecord_SnakeCase(t *testing.T) {
	var rec ChatRecord
	err := json.Unmarshal([]byte(`{
		"id": "chat-1",
		"title": "Deploy help",
		"created_at": "2026-08-20T09:00:00Z",
		"updated_at": "2026-08-21T10:30:00Z"
	}`), &rec)
	require.NoError(t, err)

	assert.Equal(t, "chat-1", rec.ID)
	assert.Equal(t, "Deploy help", rec.Title)
	assert.Equal(t, time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC), rec.CreatedAt)
	assert.Equal(t, time.Date(2026, 8, 21, 10, 30, 0, 0, time.UTC), rec.UpdatedAt)
}

func TestChatRecord_CamelCase(t *testing.T) {
	var rec ChatRecord
	err := json.Unmarshal([]byte(`{
		"chatId": "chat-2",
		"title": "",
		"createdAt": "2026-08-20T09:00:00Z",
		"updatedAt": "2026-08-22T08:00:00Z"
	}`), &rec)
	require.NoError(t, err)

	assert.Equal(t, "chat-2", rec.ID)
	assert.Equal(t, "", rec.Title)
	assert.Equal(t, time.Date(2026, 8, 22, 8, 0, 0, 0, time.UTC), rec.UpdatedAt)
}

func TestChatRecord_UpdatedAtFallsBackToCreatedAt(t *testing.T) {
	var rec ChatRecord
	err := json.Unmarshal([]byte(`{"id": "chat-3", "created_at": "2026-08-20T09:00:00Z"}`), &rec)
	require.NoError(t, err)

	assert.Equal(t, rec.CreatedAt, rec.UpdatedAt)
}

func TestChatRecord_EpochMillis(t *testing.T) {
	var rec ChatRecord
	err := json.Unmarshal([]byte(`{"id": "chat-4", "created_at": 1755680400000}`), &rec)
	require.NoError(t, err)

	assert.Equal(t, int64(1755680400), rec.CreatedAt.Unix())
}

func TestMessageRecord_BothCasings(t *testing.T) {
	snake := []byte(`{
		"id": "m1",
		"role": "assistant",
		"content": "done",
		"created_at": "2026-08-21T10:00:00Z",
		"has_comment": true,
		"tool_steps": [{"tool_call_id": "t1", "name": "search", "status": "complete"}]
	}`)
	camel := []byte(`{
		"id": "m1",
		"role": "assistant",
		"content": "done",
		"createdAt": "2026-08-21T10:00:00Z",
		"hasComment": true,
		"toolSteps": [{"toolCallId": "t1", "name": "search", "status": "complete"}]
	}`)

	var fromSnake, fromCamel MessageRecord
	require.NoError(t, json.Unmarshal(snake, &fromSnake))
	require.NoError(t, json.Unmarshal(camel, &fromCamel))

	assert.Equal(t, fromSnake, fromCamel)
	assert.True(t, fromSnake.HasComment)
	require.Len(t, fromSnake.ToolSteps, 1)
	assert.Equal(t, "t1", fromSnake.ToolSteps[0].ToolCallID)
}

func TestMessageRecord_MissingTimestampStaysZero(t *testing.T) {
	var rec MessageRecord
	err := json.Unmarshal([]byte(`{"id": "m2", "role": "user", "content": "hi"}`), &rec)
	require.NoError(t, err)

	assert.True(t, rec.CreatedAt.IsZero())
}

func TestToolStepRecord_ObjectInputRendersAsJSON(t *testing.T) {
	var rec ToolStepRecord
	err := json.Unmarshal([]byte(`{
		"tool_call_id": "t9",
		"name": "lookup",
		"input": {"query": "weather", "limit": 3},
		"output": "sunny"
	}`), &rec)
	require.NoError(t, err)

	assert.JSONEq(t, `{"query":"weather","limit":3}`, rec.Input)
	assert.Equal(t, "sunny", rec.Output)
}

func TestAnnotationRecord_KnowledgeSourcesAndPayload(t *testing.T) {
	var rec AnnotationRecord
	err := json.Unmarshal([]byte(`{
		"kind": "retrieval",
		"knowledge_sources": [{"title": "Runbook", "url": "https://wiki/r1"}],
		"confidence": 0.9
	}`), &rec)
	require.NoError(t, err)

	assert.Equal(t, "retrieval", rec.Kind)
	require.Len(t, rec.KnowledgeSources, 1)
	assert.Equal(t, "Runbook", rec.KnowledgeSources[0].Title)
	assert.Contains(t, rec.Payload, "confidence")
}
