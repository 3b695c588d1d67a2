// ABOUTME: Wire record types for gateway chat and message payloads
// ABOUTME: Tolerates the snake_case and camelCase field spellings deployed gateways emit

package agentapi

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// flexTime unmarshals RFC 3339 strings or numeric epochs. Absent or
// malformed values stay zero; callers decide the fallback.
type flexTime struct {
	time.Time
}

func (t *flexTime) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return nil
	}
	if trimmed[0] == '"' {
		var raw string
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return nil
		}
		if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
			t.Time = parsed
		}
		return nil
	}
	var epoch float64
	if err := json.Unmarshal(trimmed, &epoch); err != nil {
		return nil
	}
	// Epochs past the year 33658 in seconds are milliseconds.
	if epoch >= 1e12 {
		t.Time = time.UnixMilli(int64(epoch))
	} else {
		t.Time = time.Unix(int64(epoch), 0)
	}
	return nil
}

func (t flexTime) or(fallback flexTime) time.Time {
	if !t.Time.IsZero() {
		return t.Time
	}
	return fallback.Time
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// ChatRecord is one conversation entry from the chat list endpoint.
type ChatRecord struct {
	ID        string
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (r *ChatRecord) UnmarshalJSON(data []byte) error {
	var w struct {
		ID          string   `json:"id"`
		ChatID      string   `json:"chat_id"`
		ChatIDAlt   string   `json:"chatId"`
		Title       string   `json:"title"`
		CreatedAt   flexTime `json:"created_at"`
		CreatedAlt  flexTime `json:"createdAt"`
		UpdatedAt   flexTime `json:"updated_at"`
		UpdatedAlt  flexTime `json:"updatedAt"`
		LastMessage flexTime `json:"last_message_at"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	r.ID = firstNonEmpty(w.ID, w.ChatID, w.ChatIDAlt)
	r.Title = w.Title
	r.CreatedAt = w.CreatedAt.or(w.CreatedAlt)
	r.UpdatedAt = w.UpdatedAt.or(w.UpdatedAlt)
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = w.LastMessage.Time
	}
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = r.CreatedAt
	}
	return nil
}

// ToolStepRecord is one tool invocation inside a message record.
type ToolStepRecord struct {
	ToolCallID string
	Name       string
	Input      string
	Output     string
	Status     string
}

func (r *ToolStepRecord) UnmarshalJSON(data []byte) error {
	var w struct {
		ToolCallID    string          `json:"tool_call_id"`
		ToolCallIDAlt string          `json:"toolCallId"`
		Name          string          `json:"name"`
		Tool          string          `json:"tool"`
		Input         json.RawMessage `json:"input"`
		Output        json.RawMessage `json:"output"`
		Status        string          `json:"status"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	r.ToolCallID = firstNonEmpty(w.ToolCallID, w.ToolCallIDAlt)
	r.Name = firstNonEmpty(w.Name, w.Tool)
	r.Input = rawToString(w.Input)
	r.Output = rawToString(w.Output)
	r.Status = w.Status
	return nil
}

// rawToString renders a JSON value as display text: strings unquoted,
// everything else as compact JSON.
func rawToString(raw json.RawMessage) string {
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

// KnowledgeSourceRecord is one retrieval citation inside an annotation.
type KnowledgeSourceRecord struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// AnnotationRecord is the structured extra a gateway attaches to a
// message. Its presence is what licenses synthesizing tool data; the
// console never invents one from message content.
type AnnotationRecord struct {
	Kind             string
	KnowledgeSources []KnowledgeSourceRecord
	Payload          map[string]any
}

func (r *AnnotationRecord) UnmarshalJSON(data []byte) error {
	var w struct {
		Kind       string                  `json:"kind"`
		Type       string                  `json:"type"`
		Sources    []KnowledgeSourceRecord `json:"knowledge_sources"`
		SourcesAlt []KnowledgeSourceRecord `json:"knowledgeSources"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	r.Kind = firstNonEmpty(w.Kind, w.Type)
	r.KnowledgeSources = w.Sources
	if len(r.KnowledgeSources) == 0 {
		r.KnowledgeSources = w.SourcesAlt
	}
	if err := json.Unmarshal(data, &r.Payload); err != nil {
		return err
	}
	return nil
}

// MessageRecord is one transcript entry as fetched from the gateway.
// CreatedAt stays zero when the record carried none; the history loader
// substitutes its own clock.
type MessageRecord struct {
	ID         string
	Role       string
	Content    string
	CreatedAt  time.Time
	Liked      bool
	Disliked   bool
	HasComment bool
	ToolSteps  []ToolStepRecord
	Annotation *AnnotationRecord
}

func (r *MessageRecord) UnmarshalJSON(data []byte) error {
	var w struct {
		ID            string            `json:"id"`
		MessageID     string            `json:"message_id"`
		Role          string            `json:"role"`
		Content       string            `json:"content"`
		CreatedAt     flexTime          `json:"created_at"`
		CreatedAlt    flexTime          `json:"createdAt"`
		Liked         bool              `json:"liked"`
		Disliked      bool              `json:"disliked"`
		HasComment    bool              `json:"has_comment"`
		HasCommentAlt bool              `json:"hasComment"`
		ToolSteps     []ToolStepRecord  `json:"tool_steps"`
		ToolStepsAlt  []ToolStepRecord  `json:"toolSteps"`
		Annotation    *AnnotationRecord `json:"annotation"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	r.ID = firstNonEmpty(w.ID, w.MessageID)
	r.Role = w.Role
	r.Content = w.Content
	r.CreatedAt = w.CreatedAt.or(w.CreatedAlt)
	r.Liked = w.Liked
	r.Disliked = w.Disliked
	r.HasComment = w.HasComment || w.HasCommentAlt
	r.ToolSteps = w.ToolSteps
	if len(r.ToolSteps) == 0 {
		r.ToolSteps = w.ToolStepsAlt
	}
	r.Annotation = w.Annotation
	return nil
}
