// ABOUTME: Tests for retry, feedback and share lookups
// ABOUTME: Feedback flags change only after the gateway confirms

package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/agent-scope/internal/chat"
)

func transcriptController(fb *mockFeedback, msgs ...chat.Message) *Controller {
	c := connectedController(newMockLoader(), fb)
	for _, m := range msgs {
		c.AppendLive(m)
	}
	return c
}

func TestRetrySend_NearestPrecedingUserMessage(t *testing.T) {
	c := transcriptController(&mockFeedback{},
		userMsg("u1", "first question"),
		assistantMsg("a1", "first answer"),
		userMsg("u2", "second question"),
		assistantMsg("a2", "second answer"),
	)

	msg, err := c.RetrySend("a2")
	require.NoError(t, err)
	assert.Equal(t, "u2", msg.ID)
	assert.Equal(t, "second question", msg.Content)

	msg, err = c.RetrySend("a1")
	require.NoError(t, err)
	assert.Equal(t, "u1", msg.ID)
}

func TestRetrySend_NoPrecedingUserMessage(t *testing.T) {
	c := transcriptController(&mockFeedback{},
		assistantMsg("a1", "unprompted greeting"),
	)

	_, err := c.RetrySend("a1")
	assert.ErrorIs(t, err, ErrNoUserMessage)
}

func TestRetrySend_UnknownMessage(t *testing.T) {
	c := transcriptController(&mockFeedback{}, userMsg("u1", "hi"))

	_, err := c.RetrySend("ghost")
	assert.ErrorIs(t, err, ErrUnknownMessage)
}

func TestFeedback_AppliesOnlyAfterConfirmation(t *testing.T) {
	fb := &mockFeedback{}
	c := transcriptController(fb, assistantMsg("a1", "answer"))

	require.NoError(t, c.Feedback(context.Background(), "a1", true, false))

	assert.Equal(t, 1, fb.calls)
	assert.True(t, fb.last.Liked)
	msgs := c.Messages()
	require.Len(t, msgs, 1)
	assert.True(t, msgs[0].Liked)
	assert.False(t, msgs[0].Disliked)
}

func TestFeedback_FailureLeavesFlagsUntouched(t *testing.T) {
	fb := &mockFeedback{err: errors.New("boom")}
	c := transcriptController(fb, assistantMsg("a1", "answer"))

	err := c.Feedback(context.Background(), "a1", true, false)
	require.Error(t, err)

	msgs := c.Messages()
	require.Len(t, msgs, 1)
	assert.False(t, msgs[0].Liked)
	assert.False(t, msgs[0].Disliked)
}

func TestFeedback_UnknownMessageSkipsNetwork(t *testing.T) {
	fb := &mockFeedback{}
	c := transcriptController(fb, userMsg("u1", "hi"))

	err := c.Feedback(context.Background(), "ghost", true, false)
	assert.ErrorIs(t, err, ErrUnknownMessage)
	assert.Equal(t, 0, fb.calls)
}

func TestShare_ReturnsContent(t *testing.T) {
	c := transcriptController(&mockFeedback{},
		assistantMsg("a1", "the answer is 42"),
	)

	content, err := c.Share("a1")
	require.NoError(t, err)
	assert.Equal(t, "the answer is 42", content)
}

func TestShare_UnknownMessage(t *testing.T) {
	c := transcriptController(&mockFeedback{})

	_, err := c.Share("nope")
	assert.ErrorIs(t, err, ErrUnknownMessage)
}
