// ABOUTME: Tests for directory cache discipline, mutation guard and cascades
// ABOUTME: Uses a mock gateway so failures are exact and call counts observable

package directory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/agent-scope/internal/agentapi"
)

// mockGateway implements Gateway with scriptable failures.
type mockGateway struct {
	mu          sync.Mutex
	chats       []agentapi.ChatRecord
	listErr     error
	renameErr   error
	deleteErr   error
	listCalls   int
	renameCalls int
	deleteCalls int
	renameGate  chan struct{} // when non-nil, RenameChat blocks until closed
}

func (m *mockGateway) ListChats(ctx context.Context) ([]agentapi.ChatRecord, error) {
	m.mu.Lock()
	m.listCalls++
	chats, err := m.chats, m.listErr
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return chats, nil
}

func (m *mockGateway) RenameChat(ctx context.Context, chatID, title string) error {
	m.mu.Lock()
	m.renameCalls++
	gate, err := m.renameGate, m.renameErr
	m.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return err
}

func (m *mockGateway) DeleteChat(ctx context.Context, chatID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteCalls++
	return m.deleteErr
}

func seedService(t *testing.T, gw *mockGateway) *Service {
	t.Helper()
	svc := New(gw, nil)
	require.NoError(t, svc.Refresh(context.Background()))
	return svc
}

func chatAt(id, title string, updated time.Time) agentapi.ChatRecord {
	return agentapi.ChatRecord{ID: id, Title: title, CreatedAt: updated, UpdatedAt: updated}
}

func TestRefresh_KeepsFetchOrderAndDropsDuplicates(t *testing.T) {
	base := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)
	gw := &mockGateway{chats: []agentapi.ChatRecord{
		chatAt("a", "first", base),
		chatAt("b", "second", base),
		chatAt("a", "dupe of first", base),
		{Title: "no id"},
	}}

	svc := seedService(t, gw)
	list := svc.List()

	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].ID)
	assert.Equal(t, "first", list[0].Title)
	assert.Equal(t, "b", list[1].ID)
}

func TestRefresh_FailureLeavesCache(t *testing.T) {
	gw := &mockGateway{chats: []agentapi.ChatRecord{
		chatAt("a", "keep me", time.Now()),
	}}
	svc := seedService(t, gw)

	gw.mu.Lock()
	gw.listErr = errors.New("gateway down")
	gw.mu.Unlock()

	err := svc.Refresh(context.Background())
	require.Error(t, err)
	assert.Len(t, svc.List(), 1)
}

func TestBuckets_Grouping(t *testing.T) {
	now := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)
	gw := &mockGateway{chats: []agentapi.ChatRecord{
		chatAt("now", "just now", now),
		chatAt("2h", "this morning", now.Add(-2*time.Hour)),
		chatAt("26h", "last evening", now.Add(-26*time.Hour)),
		chatAt("5d", "last week", now.Add(-5*24*time.Hour)),
		chatAt("30d", "last month", now.Add(-30*24*time.Hour)),
	}}
	svc := seedService(t, gw)

	b := svc.Buckets(now)

	require.Len(t, b.Today, 2)
	assert.Equal(t, "now", b.Today[0].ID)
	assert.Equal(t, "2h", b.Today[1].ID)

	require.Len(t, b.Yesterday, 1)
	assert.Equal(t, "26h", b.Yesterday[0].ID)

	require.Len(t, b.Week, 1)
	assert.Equal(t, "5d", b.Week[0].ID)

	require.Len(t, b.Older, 1)
	assert.Equal(t, "30d", b.Older[0].ID)
}

func TestBuckets_MidnightBoundaryIsCalendarNotRolling(t *testing.T) {
	// 11pm yesterday is only two hours before a 1am now, but it belongs
	// to Yesterday because the boundary is local midnight.
	now := time.Date(2026, 8, 25, 1, 0, 0, 0, time.UTC)
	gw := &mockGateway{chats: []agentapi.ChatRecord{
		chatAt("late", "late night", time.Date(2026, 8, 24, 23, 0, 0, 0, time.UTC)),
		chatAt("midnight", "exactly midnight", time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)),
	}}
	svc := seedService(t, gw)

	b := svc.Buckets(now)

	require.Len(t, b.Yesterday, 1)
	assert.Equal(t, "late", b.Yesterday[0].ID)
	require.Len(t, b.Today, 1)
	assert.Equal(t, "midnight", b.Today[0].ID)
}

func TestBuckets_DescendingWithinBucket(t *testing.T) {
	now := time.Date(2026, 8, 25, 23, 0, 0, 0, time.UTC)
	gw := &mockGateway{chats: []agentapi.ChatRecord{
		chatAt("old", "morning", now.Add(-10*time.Hour)),
		chatAt("new", "evening", now.Add(-1*time.Hour)),
		chatAt("mid", "midday", now.Add(-5*time.Hour)),
	}}
	svc := seedService(t, gw)

	b := svc.Buckets(now)

	require.Len(t, b.Today, 3)
	assert.Equal(t, []string{"new", "mid", "old"},
		[]string{b.Today[0].ID, b.Today[1].ID, b.Today[2].ID})
}

func TestRename_EmptyTitleRejectedWithoutNetwork(t *testing.T) {
	gw := &mockGateway{chats: []agentapi.ChatRecord{chatAt("a", "old", time.Now())}}
	svc := seedService(t, gw)

	for _, title := range []string{"", "   ", "\t\n"} {
		err := svc.Rename(context.Background(), "a", title)
		assert.ErrorIs(t, err, ErrEmptyTitle)
	}
	assert.Equal(t, 0, gw.renameCalls)
}

func TestRename_AppliesOnlyAfterConfirmation(t *testing.T) {
	updated := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)
	gw := &mockGateway{chats: []agentapi.ChatRecord{chatAt("a", "old title", updated)}}
	svc := seedService(t, gw)

	require.NoError(t, svc.Rename(context.Background(), "a", "new title"))

	got, err := svc.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "new title", got.Title)
	assert.True(t, got.UpdatedAt.After(updated), "UpdatedAt should be bumped on confirmed rename")
}

func TestRename_FailureLeavesEntryUntouchedAndGuardReleased(t *testing.T) {
	updated := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)
	gw := &mockGateway{
		chats:     []agentapi.ChatRecord{chatAt("a", "old title", updated)},
		renameErr: errors.New("boom"),
	}
	svc := seedService(t, gw)

	err := svc.Rename(context.Background(), "a", "new title")
	require.Error(t, err)

	got, getErr := svc.Get("a")
	require.NoError(t, getErr)
	assert.Equal(t, "old title", got.Title)
	assert.Equal(t, updated, got.UpdatedAt)
	assert.False(t, svc.MutationInFlight("a"), "guard must be released after failure")

	// Retry is possible immediately.
	gw.mu.Lock()
	gw.renameErr = nil
	gw.mu.Unlock()
	assert.NoError(t, svc.Rename(context.Background(), "a", "new title"))
}

func TestRename_UnknownConversation(t *testing.T) {
	gw := &mockGateway{}
	svc := seedService(t, gw)

	err := svc.Rename(context.Background(), "ghost", "title")
	assert.ErrorIs(t, err, ErrUnknownConversation)
	assert.Equal(t, 0, gw.renameCalls)
}

func TestMutationGuard_SecondRenameSameIDRejected(t *testing.T) {
	gate := make(chan struct{})
	gw := &mockGateway{
		chats: []agentapi.ChatRecord{
			chatAt("a", "one", time.Now()),
			chatAt("b", "two", time.Now()),
		},
		renameGate: gate,
	}
	svc := seedService(t, gw)

	done := make(chan error, 1)
	go func() {
		done <- svc.Rename(context.Background(), "a", "held")
	}()

	// Wait until the first rename holds the guard.
	require.Eventually(t, func() bool {
		return svc.MutationInFlight("a")
	}, time.Second, 5*time.Millisecond)

	err := svc.Rename(context.Background(), "a", "second")
	assert.ErrorIs(t, err, ErrMutationInFlight)

	// A different conversation is not affected by a's guard.
	gw.mu.Lock()
	gw.renameGate = nil
	gw.mu.Unlock()
	assert.NoError(t, svc.Rename(context.Background(), "b", "fine"))

	close(gate)
	require.NoError(t, <-done)
	assert.False(t, svc.MutationInFlight("a"))
}

func TestRemove_NoOptimisticRemoval(t *testing.T) {
	gw := &mockGateway{
		chats:     []agentapi.ChatRecord{chatAt("a", "keep", time.Now())},
		deleteErr: errors.New("boom"),
	}
	svc := seedService(t, gw)

	err := svc.Remove(context.Background(), "a")
	require.Error(t, err)
	assert.Len(t, svc.List(), 1, "failed delete must leave the entry listed")
}

func TestRemove_DropsEntryOnConfirmation(t *testing.T) {
	gw := &mockGateway{chats: []agentapi.ChatRecord{
		chatAt("a", "going", time.Now()),
		chatAt("b", "staying", time.Now()),
	}}
	svc := seedService(t, gw)

	require.NoError(t, svc.Remove(context.Background(), "a"))

	list := svc.List()
	require.Len(t, list, 1)
	assert.Equal(t, "b", list[0].ID)
}

func TestRemove_OpenConversationFiresCallback(t *testing.T) {
	gw := &mockGateway{chats: []agentapi.ChatRecord{chatAt("open", "current", time.Now())}}
	svc := seedService(t, gw)

	var removedID string
	svc.OnRemoved(func(id string) { removedID = id })
	svc.SetOpenConversation("open")

	require.NoError(t, svc.Remove(context.Background(), "open"))
	assert.Equal(t, "open", removedID)
}

func TestRemove_OtherConversationDoesNotFireCallback(t *testing.T) {
	gw := &mockGateway{chats: []agentapi.ChatRecord{
		chatAt("open", "current", time.Now()),
		chatAt("other", "sidebar", time.Now()),
	}}
	svc := seedService(t, gw)

	called := false
	svc.OnRemoved(func(id string) { called = true })
	svc.SetOpenConversation("open")

	require.NoError(t, svc.Remove(context.Background(), "other"))
	assert.False(t, called)
}

func TestDisplayTitle(t *testing.T) {
	assert.Equal(t, "Untitled", Conversation{}.DisplayTitle())
	assert.Equal(t, "Untitled", Conversation{Title: "  "}.DisplayTitle())
	assert.Equal(t, "Deploys", Conversation{Title: "Deploys"}.DisplayTitle())
}
