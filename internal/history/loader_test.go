// ABOUTME: Tests for history loading skips and record normalization
// ABOUTME: Verifies zero network calls on structural skips and tool-step dedup

package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/agent-scope/internal/agentapi"
	"github.com/2389/agent-scope/internal/chat"
)

// mockFetcher counts calls so skip tests can prove no network happened.
type mockFetcher struct {
	records []agentapi.MessageRecord
	err     error
	calls   int
}

func (m *mockFetcher) ChatMessages(ctx context.Context, chatID string) ([]agentapi.MessageRecord, error) {
	m.calls++
	return m.records, m.err
}

func serverOpts() Options {
	return Options{Persist: true, BaseURL: "http://localhost:8080"}
}

func TestLoad_EphemeralRefSkipsWithoutNetwork(t *testing.T) {
	fetch := &mockFetcher{}
	loader := New(fetch, nil)

	msgs, err := loader.Load(context.Background(), chat.NewEphemeralRef(), serverOpts())
	require.NoError(t, err)

	assert.Nil(t, msgs)
	assert.Equal(t, 0, fetch.calls)
}

func TestLoad_PersistenceOffSkips(t *testing.T) {
	fetch := &mockFetcher{}
	loader := New(fetch, nil)

	msgs, err := loader.Load(context.Background(), chat.ServerRef("c1"), Options{Persist: false, BaseURL: "http://x"})
	require.NoError(t, err)

	assert.Nil(t, msgs)
	assert.Equal(t, 0, fetch.calls)
}

func TestLoad_NoBaseURLSkips(t *testing.T) {
	fetch := &mockFetcher{}
	loader := New(fetch, nil)

	msgs, err := loader.Load(context.Background(), chat.ServerRef("c1"), Options{Persist: true})
	require.NoError(t, err)

	assert.Nil(t, msgs)
	assert.Equal(t, 0, fetch.calls)
}

func TestLoad_FetchErrorPropagates(t *testing.T) {
	fetch := &mockFetcher{err: errors.New("gateway down")}
	loader := New(fetch, nil)

	_, err := loader.Load(context.Background(), chat.ServerRef("c1"), serverOpts())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "c1")
}

func TestLoad_NormalizesRecords(t *testing.T) {
	created := time.Date(2026, 8, 21, 9, 30, 0, 0, time.UTC)
	fetch := &mockFetcher{records: []agentapi.MessageRecord{
		{
			ID:        "m1",
			Role:      "user",
			Content:   "what broke?",
			CreatedAt: created,
		},
		{
			ID:      "m2",
			Role:    "assistant",
			Content: "checking",
			Liked:   true,
			ToolSteps: []agentapi.ToolStepRecord{
				{ToolCallID: "t1", Name: "logs", Status: "complete"},
			},
		},
	}}
	loader := New(fetch, nil)

	msgs, err := loader.Load(context.Background(), chat.ServerRef("c1"), serverOpts())
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	assert.Equal(t, chat.RoleUser, msgs[0].Role)
	assert.Equal(t, created, msgs[0].CreatedAt)

	assert.Equal(t, chat.RoleAssistant, msgs[1].Role)
	assert.True(t, msgs[1].Liked)
	require.Len(t, msgs[1].ToolSteps, 1)
	assert.Equal(t, "t1", msgs[1].ToolSteps[0].ToolCallID)
}

func TestLoad_MissingTimestampGetsLoadTime(t *testing.T) {
	fetch := &mockFetcher{records: []agentapi.MessageRecord{
		{ID: "m1", Role: "user", Content: "hi"},
	}}
	loader := New(fetch, nil)

	msgs, err := loader.Load(context.Background(), chat.ServerRef("c1"), serverOpts())
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	assert.WithinDuration(t, time.Now(), msgs[0].CreatedAt, 5*time.Second)
}

func TestLoad_ToolStepDedupFirstWins(t *testing.T) {
	fetch := &mockFetcher{records: []agentapi.MessageRecord{
		{
			ID:   "m1",
			Role: "assistant",
			ToolSteps: []agentapi.ToolStepRecord{
				{ToolCallID: "t1", Name: "search", Status: "running"},
				{ToolCallID: "t2", Name: "fetch", Status: "complete"},
				{ToolCallID: "t1", Name: "search-final", Status: "complete"},
			},
		},
	}}
	loader := New(fetch, nil)

	msgs, err := loader.Load(context.Background(), chat.ServerRef("c1"), serverOpts())
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	steps := msgs[0].ToolSteps
	require.Len(t, steps, 2)
	assert.Equal(t, "t1", steps[0].ToolCallID)
	assert.Equal(t, "search", steps[0].Name, "first occurrence of t1 wins")
	assert.Equal(t, "running", steps[0].Status)
	assert.Equal(t, "t2", steps[1].ToolCallID)
}

func TestLoad_AnnotationDrivesKnowledgeAndToolData(t *testing.T) {
	fetch := &mockFetcher{records: []agentapi.MessageRecord{
		{
			ID:   "with",
			Role: "assistant",
			Annotation: &agentapi.AnnotationRecord{
				Kind: "retrieval",
				KnowledgeSources: []agentapi.KnowledgeSourceRecord{
					{Title: "Runbook", URL: "https://wiki/r"},
				},
				Payload: map[string]any{"kind": "retrieval"},
			},
		},
		{ID: "without", Role: "assistant", Content: "plain"},
	}}
	loader := New(fetch, nil)

	msgs, err := loader.Load(context.Background(), chat.ServerRef("c1"), serverOpts())
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	require.NotNil(t, msgs[0].ToolData)
	assert.Equal(t, "retrieval", msgs[0].ToolData.Kind)
	require.Len(t, msgs[0].KnowledgeSources, 1)
	assert.Equal(t, "Runbook", msgs[0].KnowledgeSources[0].Title)

	assert.Nil(t, msgs[1].ToolData, "no annotation means no synthesized tool data")
	assert.Empty(t, msgs[1].KnowledgeSources)
}

func TestLoad_EmptyHistoryIsEmptyNotError(t *testing.T) {
	fetch := &mockFetcher{records: []agentapi.MessageRecord{}}
	loader := New(fetch, nil)

	msgs, err := loader.Load(context.Background(), chat.ServerRef("c1"), serverOpts())
	require.NoError(t, err)
	assert.Empty(t, msgs)
	assert.Equal(t, 1, fetch.calls)
}
