// ABOUTME: History loader fetches and normalizes persisted chat transcripts
// ABOUTME: Skips structurally unloadable conversations without touching the network

package history

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/2389/agent-scope/internal/agentapi"
	"github.com/2389/agent-scope/internal/chat"
)

// Fetcher is the gateway surface the loader needs.
type Fetcher interface {
	ChatMessages(ctx context.Context, chatID string) ([]agentapi.MessageRecord, error)
}

// Options carry the session facts that decide whether a load makes sense.
type Options struct {
	Persist bool
	BaseURL string
}

// Loader turns persisted gateway transcripts into chat messages.
type Loader struct {
	fetch  Fetcher
	logger *slog.Logger
}

// New returns a loader reading through fetch. A nil logger falls back to
// slog.Default.
func New(fetch Fetcher, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		fetch:  fetch,
		logger: logger.With("component", "history"),
	}
}

// Load fetches the transcript for ref. Three situations are skips, not
// errors, and return (nil, nil) without any network call: the ref is
// ephemeral, persistence is off, or no service URL is configured. Every
// other failure is an error the caller reports and may retry.
func (l *Loader) Load(ctx context.Context, ref chat.ConversationRef, opts Options) ([]chat.Message, error) {
	switch {
	case !ref.IsServer():
		l.logger.Debug("skipping history load for ephemeral conversation", "ref", ref.String())
		return nil, nil
	case !opts.Persist:
		l.logger.Debug("skipping history load with persistence off", "chat", ref.ID)
		return nil, nil
	case opts.BaseURL == "":
		l.logger.Debug("skipping history load without a service URL", "chat", ref.ID)
		return nil, nil
	}

	records, err := l.fetch.ChatMessages(ctx, ref.ID)
	if err != nil {
		return nil, fmt.Errorf("load history for %s: %w", ref.ID, err)
	}

	msgs := make([]chat.Message, 0, len(records))
	for _, rec := range records {
		msgs = append(msgs, normalizeRecord(rec))
	}
	l.logger.Debug("history loaded", "chat", ref.ID, "messages", len(msgs))
	return msgs, nil
}

// normalizeRecord maps one wire record onto the message model. Records
// without a timestamp get the load time; tool steps are de-duplicated by
// tool call id with the first occurrence winning; knowledge sources and
// tool data come from the annotation alone.
func normalizeRecord(rec agentapi.MessageRecord) chat.Message {
	msg := chat.Message{
		ID:         rec.ID,
		Role:       chat.Role(rec.Role),
		Content:    rec.Content,
		CreatedAt:  rec.CreatedAt,
		Liked:      rec.Liked,
		Disliked:   rec.Disliked,
		HasComment: rec.HasComment,
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}

	if len(rec.ToolSteps) > 0 {
		steps := make([]chat.ToolStep, 0, len(rec.ToolSteps))
		for _, s := range rec.ToolSteps {
			steps = append(steps, chat.ToolStep{
				ToolCallID: s.ToolCallID,
				Name:       s.Name,
				Input:      s.Input,
				Output:     s.Output,
				Status:     s.Status,
			})
		}
		msg.ToolSteps = chat.DedupToolSteps(steps)
	}

	if rec.Annotation != nil {
		for _, src := range rec.Annotation.KnowledgeSources {
			msg.KnowledgeSources = append(msg.KnowledgeSources, chat.KnowledgeSource{
				Title:   src.Title,
				URL:     src.URL,
				Snippet: src.Snippet,
			})
		}
		msg.ToolData = &chat.ToolData{
			Kind:    rec.Annotation.Kind,
			Payload: rec.Annotation.Payload,
		}
	}
	return msg
}
