// ABOUTME: Fake agent gateway for local testing: discovery, chats, SSE streaming
// ABOUTME: Usage: fake-gateway [-addr localhost:8089] [-scenario fixtures.toml] [-token secret]

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/2389/agent-scope/internal/token"
)

func main() {
	addr := flag.String("addr", "localhost:8089", "HTTP listen address")
	scenarioPath := flag.String("scenario", "", "TOML scenario file, empty for builtin seed data")
	tokenFlag := flag.String("token", "", "require this bearer token on every request")
	shapeFlag := flag.String("shape", "", "override response shape: envelope, bare or data")
	flag.Parse()

	if err := run(*addr, *scenarioPath, *tokenFlag, *shapeFlag); err != nil {
		log.Fatal(err)
	}
}

func run(addr, scenarioPath, token, shape string) error {
	sc, err := loadScenario(scenarioPath)
	if err != nil {
		return err
	}
	if shape != "" {
		switch shape {
		case "envelope", "bare", "data":
			sc.ResponseShape = shape
		default:
			return fmt.Errorf("-shape must be envelope, bare or data, got %q", shape)
		}
	}

	s := &server{
		scenario: sc,
		store:    newStore(sc),
		token:    token,
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		log.Printf("fake-gateway listening on %s (shape=%s, chats=%d)",
			addr, sc.ResponseShape, len(sc.Chats))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

type server struct {
	scenario *Scenario
	store    *memStore
	token    string
}

func (s *server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/agent-config", s.handleAgentConfig)
	mux.HandleFunc("/api/agent-config", s.handleAgentConfig)
	mux.HandleFunc("/api/chats/list", s.handleListChats)
	mux.HandleFunc("/api/chats/", s.handleRename)
	mux.HandleFunc("/api/chat/stream", s.handleStream)
	mux.HandleFunc("/api/chat/messages/", s.handleFeedback)
	mux.HandleFunc("/api/chat/", s.handleChat)
	return mux
}

// authorized checks the bearer token when one is configured.
func (s *server) authorized(w http.ResponseWriter, r *http.Request) bool {
	if s.token == "" {
		return true
	}
	tok, err := token.FromAuthHeader(r.Header.Get("Authorization"))
	if err != nil || tok != s.token {
		s.jsonError(w, http.StatusUnauthorized, "invalid token")
		return false
	}
	return true
}

func (s *server) handleAgentConfig(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(w, r) {
		return
	}
	ident := s.scenario.Identity
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"name":         ident.Name,
		"agent_id":     ident.AgentID,
		"version":      ident.Version,
		"capabilities": ident.Capabilities,
	})
}

func (s *server) handleListChats(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(w, r) {
		return
	}
	if r.Method != http.MethodGet {
		s.jsonError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeCollection(w, "chats", s.store.listChats())
}

// handleChat routes /api/chat/{id}/messages and /api/chat/{id}/delete.
func (s *server) handleChat(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(w, r) {
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/api/chat/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" {
		s.jsonError(w, http.StatusNotFound, "not found")
		return
	}
	chatID, action := parts[0], parts[1]

	switch {
	case action == "messages" && r.Method == http.MethodGet:
		msgs, ok := s.store.messages(chatID)
		if !ok {
			s.jsonError(w, http.StatusNotFound, "chat not found")
			return
		}
		s.writeCollection(w, "messages", msgs)
	case action == "delete" && r.Method == http.MethodDelete:
		if !s.store.remove(chatID) {
			s.jsonError(w, http.StatusNotFound, "chat not found")
			return
		}
		log.Printf("deleted chat %s", chatID)
		s.writeOK(w)
	default:
		s.jsonError(w, http.StatusNotFound, "not found")
	}
}

// handleRename serves PATCH /api/chats/{id}.
func (s *server) handleRename(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(w, r) {
		return
	}
	chatID := strings.TrimPrefix(r.URL.Path, "/api/chats/")
	if chatID == "" || strings.Contains(chatID, "/") {
		s.jsonError(w, http.StatusNotFound, "not found")
		return
	}
	if r.Method != http.MethodPatch {
		s.jsonError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		s.jsonError(w, http.StatusBadRequest, "title is required")
		return
	}
	if !s.store.rename(chatID, req.Title) {
		s.jsonError(w, http.StatusNotFound, "chat not found")
		return
	}
	log.Printf("renamed chat %s to %q", chatID, req.Title)
	s.writeOK(w)
}

// handleFeedback serves POST /api/chat/messages/{id}/feedback.
func (s *server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(w, r) {
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/api/chat/messages/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "feedback" || r.Method != http.MethodPost {
		s.jsonError(w, http.StatusNotFound, "not found")
		return
	}

	var req struct {
		Liked    bool `json:"liked"`
		Disliked bool `json:"disliked"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if !s.store.feedback(parts[0], req.Liked, req.Disliked) {
		s.jsonError(w, http.StatusNotFound, "message not found")
		return
	}
	s.writeOK(w)
}

// handleStream serves POST /api/chat/stream with an SSE reply.
func (s *server) handleStream(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(w, r) {
		return
	}
	if r.Method != http.MethodPost {
		s.jsonError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		ChatID  string `json:"chat_id"`
		Message string `json:"message"`
		Persist bool   `json:"persist"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		s.jsonError(w, http.StatusBadRequest, "message is required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.jsonError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	chatID := req.ChatID
	if req.Persist {
		if chatID == "" {
			chatID = s.store.createChat(titleFrom(req.Message))
			log.Printf("created chat %s", chatID)
		} else if !s.store.has(chatID) {
			s.jsonError(w, http.StatusNotFound, "chat not found")
			return
		}
		s.store.appendMessage(chatID, "user", req.Message)
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	if req.Persist {
		writeSSEEvent(w, "meta", map[string]string{"chat_id": chatID})
		flusher.Flush()
	}

	delay := time.Duration(s.scenario.Reply.DelayMS) * time.Millisecond
	if s.scenario.Reply.Thinking {
		writeSSEEvent(w, "thinking", map[string]string{"text": "considering..."})
		flusher.Flush()
		sleepCtx(r.Context(), delay)
	}

	reply := s.reply(req.Message)
	for _, chunk := range chunkText(reply, 24) {
		if r.Context().Err() != nil {
			return
		}
		writeSSEEvent(w, "text", map[string]string{"text": chunk})
		flusher.Flush()
		sleepCtx(r.Context(), delay)
	}

	if strings.Contains(strings.ToLower(req.Message), "tool") {
		callID := uuid.New().String()
		writeSSEEvent(w, "tool_use", map[string]string{
			"tool_call_id": callID,
			"name":         "echo_probe",
			"input":        req.Message,
		})
		flusher.Flush()
		sleepCtx(r.Context(), delay)
		writeSSEEvent(w, "tool_result", map[string]string{
			"tool_call_id": callID,
			"output":       "probe ok",
			"status":       "complete",
		})
		flusher.Flush()
	}

	messageID := uuid.New().String()
	if req.Persist {
		messageID = s.store.appendMessage(chatID, "assistant", reply)
	}
	writeSSEEvent(w, "done", map[string]string{
		"message_id": messageID,
		"chat_id":    chatID,
	})
	flusher.Flush()
}

func (s *server) reply(input string) string {
	if s.scenario.Reply.Style == "markdown" {
		return "Here is a **markdown** response:\n\n- First item\n- Second item with `code`\n- Third item\n\n> This is a blockquote.\n"
	}
	return fmt.Sprintf("Echo: **%s**", input)
}

// writeCollection encodes a collection in the scenario's response shape.
func (s *server) writeCollection(w http.ResponseWriter, key string, items any) {
	var payload any
	switch s.scenario.ResponseShape {
	case "bare":
		payload = items
	case "data":
		payload = map[string]any{"data": items}
	default:
		payload = map[string]any{"success": true, key: items}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(payload)
}

func (s *server) writeOK(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"success": true})
}

func (s *server) jsonError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{"success": false, "error": message})
}

// writeSSEEvent writes a single SSE event to the response writer.
func writeSSEEvent(w http.ResponseWriter, event string, data any) {
	dataJSON, err := json.Marshal(data)
	if err != nil {
		log.Printf("marshaling SSE data: %v", err)
		return
	}
	fmt.Fprintf(w, "event: %s\n", event)
	fmt.Fprintf(w, "data: %s\n\n", dataJSON)
}

func titleFrom(message string) string {
	title := strings.TrimSpace(message)
	if i := strings.IndexByte(title, '\n'); i >= 0 {
		title = title[:i]
	}
	if len(title) > 50 {
		title = strings.TrimSpace(title[:50])
	}
	return title
}

func chunkText(s string, size int) []string {
	var out []string
	runes := []rune(s)
	for len(runes) > 0 {
		n := size
		if n > len(runes) {
			n = len(runes)
		}
		out = append(out, string(runes[:n]))
		runes = runes[n:]
	}
	return out
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
