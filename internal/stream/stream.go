// ABOUTME: SSE adapter for the gateway's streaming chat endpoint
// ABOUTME: Parses event/data line pairs into typed events on a channel

package stream

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// eventBuffer is the capacity of the event channel handed to callers.
const eventBuffer = 16

// EventKind labels one streaming event.
type EventKind string

const (
	EventMeta       EventKind = "meta"
	EventThinking   EventKind = "thinking"
	EventText       EventKind = "text"
	EventToolUse    EventKind = "tool_use"
	EventToolResult EventKind = "tool_result"
	EventDone       EventKind = "done"
	EventError      EventKind = "error"
)

// Event is one parsed streaming event.
type Event struct {
	Kind       EventKind
	Text       string
	ChatID     string
	MessageID  string
	ToolCallID string
	ToolName   string
	Input      string
	Output     string
	Status     string
	Err        string
}

// SendOptions carry the conversation facts for one exchange.
type SendOptions struct {
	// ChatID is the server conversation id to continue, empty for a new
	// or ephemeral conversation.
	ChatID string
	// Persist asks the gateway to store the exchange.
	Persist bool
}

// Streamer sends messages to the gateway's streaming endpoint and
// parses the SSE response.
type Streamer struct {
	baseURL string
	token   string
	httpc   *http.Client
	logger  *slog.Logger
}

// New returns a streamer for the gateway at baseURL. The HTTP client
// carries no global timeout; the per-exchange context bounds each
// stream. A nil logger falls back to slog.Default.
func New(baseURL, token string, logger *slog.Logger) *Streamer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Streamer{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpc:   &http.Client{},
		logger:  logger.With("component", "stream"),
	}
}

// Send posts message to POST /api/chat/stream and returns a channel of
// parsed events. The channel closes when the stream ends or ctx is
// done. A non-2xx response is returned as an error before any event.
func (s *Streamer) Send(ctx context.Context, message string, opts SendOptions) (<-chan Event, error) {
	payload := struct {
		ChatID  string `json:"chat_id,omitempty"`
		Message string `json:"message"`
		Persist bool   `json:"persist"`
	}{
		ChatID:  opts.ChatID,
		Message: message,
		Persist: opts.Persist,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode stream request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/chat/stream", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build stream request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("open stream: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, fmt.Errorf("stream rejected with status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	events := make(chan Event, eventBuffer)
	go func() {
		defer close(events)
		defer resp.Body.Close()
		if err := s.parse(ctx, resp.Body, events); err != nil && ctx.Err() == nil {
			s.logger.Warn("stream parse ended with error", "error", err)
		}
	}()
	return events, nil
}

// parse reads SSE lines and dispatches complete events. An empty line
// terminates the pending event.
func (s *Streamer) parse(ctx context.Context, body io.Reader, events chan<- Event) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	var eventType string
	var dataLines []string

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := scanner.Text()

		if line == "" {
			if eventType != "" && len(dataLines) > 0 {
				ev := parseEvent(eventType, strings.Join(dataLines, "\n"))
				select {
				case events <- ev:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			eventType = ""
			dataLines = nil
			continue
		}

		if strings.HasPrefix(line, "event:") {
			eventType = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			continue
		}
		if strings.HasPrefix(line, "data:") {
			dataLines = append(dataLines, strings.TrimPrefix(line, "data:"))
			continue
		}
	}
	return scanner.Err()
}

// parseEvent maps one SSE event onto the typed Event. Unparseable data
// becomes an error event rather than killing the stream.
func parseEvent(eventType, data string) Event {
	var payload struct {
		Text       string          `json:"text"`
		ChatID     string          `json:"chat_id"`
		MessageID  string          `json:"message_id"`
		ToolCallID string          `json:"tool_call_id"`
		Name       string          `json:"name"`
		Input      json.RawMessage `json:"input"`
		Output     json.RawMessage `json:"output"`
		Status     string          `json:"status"`
		Error      string          `json:"error"`
	}
	if err := json.Unmarshal([]byte(data), &payload); err != nil {
		return Event{Kind: EventError, Err: fmt.Sprintf("bad event payload: %v", err)}
	}

	ev := Event{
		Kind:       EventKind(eventType),
		Text:       payload.Text,
		ChatID:     payload.ChatID,
		MessageID:  payload.MessageID,
		ToolCallID: payload.ToolCallID,
		ToolName:   payload.Name,
		Input:      compactJSON(payload.Input),
		Output:     compactJSON(payload.Output),
		Status:     payload.Status,
		Err:        payload.Error,
	}
	return ev
}

func compactJSON(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return ""
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return s
		}
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return strings.TrimSpace(string(trimmed))
	}
	return buf.String()
}
