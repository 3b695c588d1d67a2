// ABOUTME: HTTP client for the Remote Agent Gateway REST endpoints
// ABOUTME: Centralizes base URL, bearer auth and JSON header handling

package agentapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// maxResponseBytes bounds how much of a gateway response is read.
const maxResponseBytes = 8 << 20

// errorBodyLimit bounds how much of an error body ends up in StatusError.
const errorBodyLimit = 512

// StatusError is returned when the gateway answers with a non-2xx status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("gateway returned status %d: %s", e.Code, e.Body)
	}
	return fmt.Sprintf("gateway returned status %d", e.Code)
}

// IsStatus reports whether err wraps a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}

// Client talks to one gateway. The zero value is not usable; construct
// with New.
type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
	logger  *slog.Logger
}

// New returns a client for the gateway at baseURL. token may be empty for
// gateways that run without auth. A nil httpc gets a 30-second timeout
// client; a nil logger falls back to slog.Default.
func New(baseURL, token string, httpc *http.Client, logger *slog.Logger) *Client {
	if httpc == nil {
		httpc = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpc:   httpc,
		logger:  logger.With("component", "agentapi"),
	}
}

// BaseURL returns the normalized gateway base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// ListChats fetches the conversation directory from GET /api/chats/list.
func (c *Client) ListChats(ctx context.Context) ([]ChatRecord, error) {
	body, err := c.get(ctx, "/api/chats/list")
	if err != nil {
		return nil, err
	}
	raws, err := decodeRecords(body, "chats")
	if err != nil {
		return nil, fmt.Errorf("chat list: %w", err)
	}
	chats := make([]ChatRecord, 0, len(raws))
	for _, raw := range raws {
		var rec ChatRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("chat list record: %w", err)
		}
		chats = append(chats, rec)
	}
	return chats, nil
}

// ChatMessages fetches one conversation's transcript from
// GET /api/chat/{chatID}/messages.
func (c *Client) ChatMessages(ctx context.Context, chatID string) ([]MessageRecord, error) {
	body, err := c.get(ctx, "/api/chat/"+chatID+"/messages")
	if err != nil {
		return nil, err
	}
	raws, err := decodeRecords(body, "messages")
	if err != nil {
		return nil, fmt.Errorf("chat %s messages: %w", chatID, err)
	}
	msgs := make([]MessageRecord, 0, len(raws))
	for _, raw := range raws {
		var rec MessageRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("chat %s message record: %w", chatID, err)
		}
		msgs = append(msgs, rec)
	}
	return msgs, nil
}

// RenameChat sets a conversation title via PATCH /api/chats/{chatID}.
func (c *Client) RenameChat(ctx context.Context, chatID, title string) error {
	payload := struct {
		Title string `json:"title"`
	}{Title: title}
	_, err := c.send(ctx, http.MethodPatch, "/api/chats/"+chatID, payload)
	return err
}

// DeleteChat removes a conversation via DELETE /api/chat/{chatID}/delete.
func (c *Client) DeleteChat(ctx context.Context, chatID string) error {
	_, err := c.send(ctx, http.MethodDelete, "/api/chat/"+chatID+"/delete", nil)
	return err
}

// Feedback is the reaction payload for a message.
type Feedback struct {
	Liked    bool `json:"liked"`
	Disliked bool `json:"disliked"`
}

// SendFeedback posts a reaction to POST /api/chat/messages/{messageID}/feedback.
func (c *Client) SendFeedback(ctx context.Context, messageID string, fb Feedback) error {
	_, err := c.send(ctx, http.MethodPost, "/api/chat/messages/"+messageID+"/feedback", fb)
	return err
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", path, err)
	}
	c.setHeaders(req, false)
	return c.do(req)
}

func (c *Client) send(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var body io.Reader
	hasBody := payload != nil
	if hasBody {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request for %s: %w", path, err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", path, err)
	}
	c.setHeaders(req, hasBody)
	return c.do(req)
}

func (c *Client) setHeaders(req *http.Request, hasBody bool) {
	req.Header.Set("Accept", "application/json")
	if hasBody {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response from %s: %w", req.URL.Path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Debug("gateway error response",
			"method", req.Method,
			"path", req.URL.Path,
			"status", resp.StatusCode)
		return nil, &StatusError{Code: resp.StatusCode, Body: trimBody(body)}
	}
	return body, nil
}

func trimBody(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > errorBodyLimit {
		s = s[:errorBodyLimit]
	}
	return s
}
