// ABOUTME: Per-message session operations keyed by stable message id
// ABOUTME: Retry, feedback and share resolve ids against the current view

package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/2389/agent-scope/internal/agentapi"
	"github.com/2389/agent-scope/internal/chat"
)

// ErrUnknownMessage is returned when a message id is not in the current
// transcript.
var ErrUnknownMessage = errors.New("unknown message")

// ErrNoUserMessage is returned by RetrySend when no user message
// precedes the given one. Callers treat it as a no-op.
var ErrNoUserMessage = errors.New("no preceding user message")

// FeedbackSender posts message reactions to the gateway.
type FeedbackSender interface {
	SendFeedback(ctx context.Context, messageID string, fb agentapi.Feedback) error
}

// RetrySend returns the nearest user message preceding messageID in the
// current transcript, which the caller re-sends verbatim. Message
// identity, not position, keys the lookup: the transcript may reorder
// under hydration.
func (c *Controller) RetrySend(messageID string) (chat.Message, error) {
	msgs := c.Messages()
	idx := -1
	for i := range msgs {
		if msgs[i].ID == messageID && msgs[i].ID != "" {
			idx = i
			break
		}
	}
	if idx < 0 {
		return chat.Message{}, fmt.Errorf("%w: %s", ErrUnknownMessage, messageID)
	}
	for i := idx - 1; i >= 0; i-- {
		if msgs[i].Role == chat.RoleUser {
			return msgs[i], nil
		}
	}
	return chat.Message{}, ErrNoUserMessage
}

// Feedback posts a like/dislike for messageID and applies the flags
// locally only after the gateway confirms.
func (c *Controller) Feedback(ctx context.Context, messageID string, liked, disliked bool) error {
	if _, err := c.findMessage(messageID); err != nil {
		return err
	}
	if err := c.feedback.SendFeedback(ctx, messageID, agentapi.Feedback{Liked: liked, Disliked: disliked}); err != nil {
		return fmt.Errorf("send feedback for %s: %w", messageID, err)
	}

	c.mu.Lock()
	applyFeedback(c.hydrated, messageID, liked, disliked)
	applyFeedback(c.live, messageID, liked, disliked)
	c.mu.Unlock()

	c.logger.Debug("feedback recorded", "message", messageID, "liked", liked, "disliked", disliked)
	return nil
}

// Share returns the content of messageID for the caller to export. It is
// a pure lookup against the in-memory transcript; neither the directory
// nor the loader is involved.
func (c *Controller) Share(messageID string) (string, error) {
	msg, err := c.findMessage(messageID)
	if err != nil {
		return "", err
	}
	return msg.Content, nil
}

func (c *Controller) findMessage(messageID string) (chat.Message, error) {
	if messageID == "" {
		return chat.Message{}, fmt.Errorf("%w: empty id", ErrUnknownMessage)
	}
	for _, m := range c.Messages() {
		if m.ID == messageID {
			return m, nil
		}
	}
	return chat.Message{}, fmt.Errorf("%w: %s", ErrUnknownMessage, messageID)
}

func applyFeedback(msgs []chat.Message, messageID string, liked, disliked bool) {
	for i := range msgs {
		if msgs[i].ID == messageID {
			msgs[i].Liked = liked
			msgs[i].Disliked = disliked
		}
	}
}
