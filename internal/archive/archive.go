// ABOUTME: Local SQLite archive of chat transcripts captured by the console
// ABOUTME: Schema is created on open; WAL mode for concurrent readers

package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/2389/agent-scope/internal/chat"
)

// ErrNotFound is returned when a requested transcript does not exist.
var ErrNotFound = errors.New("transcript not found")

// Entry describes one archived conversation.
type Entry struct {
	ID         string
	Title      string
	AgentName  string
	ServiceURL string
	ArchivedAt time.Time
	Messages   int
}

// Archive stores transcript snapshots in a local SQLite database.
type Archive struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open creates or opens the archive at path, creating parent directories
// and the schema as needed.
func Open(path string, logger *slog.Logger) (*Archive, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "archive")

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating archive directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	a := &Archive{db: db, logger: logger}
	if err := a.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating archive schema: %w", err)
	}

	logger.Debug("archive opened", "path", path)
	return a, nil
}

func (a *Archive) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS conversations (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			agent_name TEXT NOT NULL,
			service_url TEXT NOT NULL DEFAULT '',
			archived_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS messages (
			conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			message_id TEXT NOT NULL DEFAULT '',
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			liked INTEGER NOT NULL DEFAULT 0,
			disliked INTEGER NOT NULL DEFAULT 0,
			has_comment INTEGER NOT NULL DEFAULT 0,
			tool_steps TEXT,
			knowledge TEXT,
			tool_data TEXT,
			PRIMARY KEY (conversation_id, position)
		);

		CREATE INDEX IF NOT EXISTS idx_conversations_archived_at
			ON conversations(archived_at DESC);
	`
	_, err := a.db.Exec(schema)
	return err
}

// Close releases the underlying database.
func (a *Archive) Close() error {
	return a.db.Close()
}

// SaveTranscript stores entry and its messages, replacing any previous
// snapshot with the same id. Message order is the transcript order.
func (a *Archive) SaveTranscript(ctx context.Context, entry Entry, msgs []chat.Message) error {
	if entry.ID == "" {
		return fmt.Errorf("transcript id is required")
	}
	archivedAt := entry.ArchivedAt
	if archivedAt.IsZero() {
		archivedAt = time.Now()
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning archive transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO conversations (id, title, agent_name, service_url, archived_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			agent_name = excluded.agent_name,
			service_url = excluded.service_url,
			archived_at = excluded.archived_at
	`, entry.ID, entry.Title, entry.AgentName, entry.ServiceURL, archivedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("upserting conversation: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE conversation_id = ?`, entry.ID); err != nil {
		return fmt.Errorf("clearing previous snapshot: %w", err)
	}

	for i, msg := range msgs {
		toolSteps, err := jsonOrNull(msg.ToolSteps, len(msg.ToolSteps) > 0)
		if err != nil {
			return fmt.Errorf("encoding tool steps: %w", err)
		}
		knowledge, err := jsonOrNull(msg.KnowledgeSources, len(msg.KnowledgeSources) > 0)
		if err != nil {
			return fmt.Errorf("encoding knowledge sources: %w", err)
		}
		toolData, err := jsonOrNull(msg.ToolData, msg.ToolData != nil)
		if err != nil {
			return fmt.Errorf("encoding tool data: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO messages (conversation_id, position, message_id, role, content,
				created_at, liked, disliked, has_comment, tool_steps, knowledge, tool_data)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, entry.ID, i, msg.ID, string(msg.Role), msg.Content,
			msg.CreatedAt.UTC().Format(time.RFC3339),
			boolToInt(msg.Liked), boolToInt(msg.Disliked), boolToInt(msg.HasComment),
			toolSteps, knowledge, toolData)
		if err != nil {
			return fmt.Errorf("inserting message %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing archive transaction: %w", err)
	}

	a.logger.Info("transcript archived", "id", entry.ID, "messages", len(msgs))
	return nil
}

// ListTranscripts returns archive entries, most recently archived first.
func (a *Archive) ListTranscripts(ctx context.Context) ([]Entry, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT c.id, c.title, c.agent_name, c.service_url, c.archived_at,
			(SELECT COUNT(*) FROM messages m WHERE m.conversation_id = c.id)
		FROM conversations c
		ORDER BY c.archived_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("listing transcripts: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var archivedAt string
		if err := rows.Scan(&e.ID, &e.Title, &e.AgentName, &e.ServiceURL, &archivedAt, &e.Messages); err != nil {
			return nil, fmt.Errorf("scanning transcript row: %w", err)
		}
		e.ArchivedAt = parseTime(archivedAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// GetTranscript returns one archived conversation and its messages in
// transcript order.
func (a *Archive) GetTranscript(ctx context.Context, id string) (Entry, []chat.Message, error) {
	var e Entry
	var archivedAt string
	err := a.db.QueryRowContext(ctx, `
		SELECT id, title, agent_name, service_url, archived_at
		FROM conversations WHERE id = ?
	`, id).Scan(&e.ID, &e.Title, &e.AgentName, &e.ServiceURL, &archivedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Entry{}, nil, fmt.Errorf("loading transcript %s: %w", id, err)
	}
	e.ArchivedAt = parseTime(archivedAt)

	rows, err := a.db.QueryContext(ctx, `
		SELECT message_id, role, content, created_at, liked, disliked, has_comment,
			tool_steps, knowledge, tool_data
		FROM messages WHERE conversation_id = ?
		ORDER BY position ASC
	`, id)
	if err != nil {
		return Entry{}, nil, fmt.Errorf("loading transcript messages: %w", err)
	}
	defer rows.Close()

	var msgs []chat.Message
	for rows.Next() {
		var m chat.Message
		var role, createdAt string
		var liked, disliked, hasComment int
		var toolSteps, knowledge, toolData sql.NullString
		if err := rows.Scan(&m.ID, &role, &m.Content, &createdAt,
			&liked, &disliked, &hasComment, &toolSteps, &knowledge, &toolData); err != nil {
			return Entry{}, nil, fmt.Errorf("scanning message row: %w", err)
		}
		m.Role = chat.Role(role)
		m.CreatedAt = parseTime(createdAt)
		m.Liked = liked != 0
		m.Disliked = disliked != 0
		m.HasComment = hasComment != 0
		if toolSteps.Valid {
			if err := json.Unmarshal([]byte(toolSteps.String), &m.ToolSteps); err != nil {
				return Entry{}, nil, fmt.Errorf("decoding tool steps: %w", err)
			}
		}
		if knowledge.Valid {
			if err := json.Unmarshal([]byte(knowledge.String), &m.KnowledgeSources); err != nil {
				return Entry{}, nil, fmt.Errorf("decoding knowledge sources: %w", err)
			}
		}
		if toolData.Valid {
			if err := json.Unmarshal([]byte(toolData.String), &m.ToolData); err != nil {
				return Entry{}, nil, fmt.Errorf("decoding tool data: %w", err)
			}
		}
		msgs = append(msgs, m)
	}

	e.Messages = len(msgs)
	return e, msgs, rows.Err()
}

// DeleteTranscript removes one archived conversation and its messages.
func (a *Archive) DeleteTranscript(ctx context.Context, id string) error {
	res, err := a.db.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting transcript %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func jsonOrNull(v any, present bool) (any, error) {
	if !present {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
