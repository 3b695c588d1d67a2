// ABOUTME: Folds one exchange's stream events into a final assistant message
// ABOUTME: Deltas accumulate, tool steps pair up by tool call id

package stream

import (
	"errors"
	"strings"
	"time"

	"github.com/2389/agent-scope/internal/chat"
)

// ErrTruncated is returned when the stream closed before a done event.
// The partial result is still returned alongside it.
var ErrTruncated = errors.New("stream ended before done event")

// Result is one completed exchange.
type Result struct {
	// Message is the assembled assistant message.
	Message chat.Message
	// ChatID is the server conversation id the gateway announced, empty
	// for unpersisted exchanges.
	ChatID string
}

// Collect drains events into a Result. onEvent, when non-nil, sees every
// event as it arrives so callers can render progress. An error event
// aborts with its message, keeping any chat id announced before the
// failure; a stream that closes without done returns the partial result
// with ErrTruncated.
func Collect(events <-chan Event, onEvent func(Event)) (Result, error) {
	var res Result
	var text strings.Builder
	var steps []chat.ToolStep
	done := false

	for ev := range events {
		if onEvent != nil {
			onEvent(ev)
		}
		switch ev.Kind {
		case EventMeta:
			if ev.ChatID != "" {
				res.ChatID = ev.ChatID
			}
		case EventText:
			text.WriteString(ev.Text)
		case EventToolUse:
			steps = append(steps, chat.ToolStep{
				ToolCallID: ev.ToolCallID,
				Name:       ev.ToolName,
				Input:      ev.Input,
				Status:     "running",
			})
		case EventToolResult:
			steps = applyToolResult(steps, ev)
		case EventDone:
			done = true
			res.Message.ID = ev.MessageID
			if ev.ChatID != "" {
				res.ChatID = ev.ChatID
			}
			if text.Len() == 0 && ev.Text != "" {
				text.WriteString(ev.Text)
			}
		case EventError:
			return res, errors.New(ev.Err)
		}
		if done {
			break
		}
	}

	res.Message.Role = chat.RoleAssistant
	res.Message.Content = text.String()
	res.Message.CreatedAt = time.Now()
	res.Message.ToolSteps = chat.DedupToolSteps(steps)

	if !done {
		return res, ErrTruncated
	}
	return res, nil
}

// applyToolResult attaches an output to its pending step, or records a
// standalone step when the id was never announced.
func applyToolResult(steps []chat.ToolStep, ev Event) []chat.ToolStep {
	status := ev.Status
	if status == "" {
		status = "complete"
	}
	for i := range steps {
		if steps[i].ToolCallID == ev.ToolCallID && ev.ToolCallID != "" {
			steps[i].Output = ev.Output
			steps[i].Status = status
			return steps
		}
	}
	return append(steps, chat.ToolStep{
		ToolCallID: ev.ToolCallID,
		Name:       ev.ToolName,
		Output:     ev.Output,
		Status:     status,
	})
}
