// ABOUTME: Conversation directory with cached listing and guarded mutations
// ABOUTME: Rename and delete are confirm-then-apply; the cache never guesses

package directory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/2389/agent-scope/internal/agentapi"
)

// ErrEmptyTitle is returned when a rename is attempted with a blank title.
// The gateway is never consulted for these.
var ErrEmptyTitle = errors.New("title must not be empty")

// ErrMutationInFlight is returned when a rename or delete is already
// running for the same conversation.
var ErrMutationInFlight = errors.New("mutation already in flight for this conversation")

// ErrUnknownConversation is returned for operations on an ID the cache
// does not hold.
var ErrUnknownConversation = errors.New("unknown conversation")

// Conversation is one directory entry. Title is stored as the gateway
// sent it; rendering the empty title is the presentation layer's job.
type Conversation struct {
	ID        string
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DisplayTitle returns the title or the placeholder for untitled chats.
func (c Conversation) DisplayTitle() string {
	if strings.TrimSpace(c.Title) == "" {
		return "Untitled"
	}
	return c.Title
}

// Gateway is the remote surface the directory needs.
type Gateway interface {
	ListChats(ctx context.Context) ([]agentapi.ChatRecord, error)
	RenameChat(ctx context.Context, chatID, title string) error
	DeleteChat(ctx context.Context, chatID string) error
}

// Service owns the conversation cache. The cache changes only through
// Refresh, Rename and Remove; a failed remote call leaves it untouched.
type Service struct {
	gw     Gateway
	logger *slog.Logger

	mu        sync.Mutex
	cache     []Conversation
	inFlight  map[string]bool
	openID    string
	onRemoved func(id string)
}

// New returns a directory service over gw. A nil logger falls back to
// slog.Default.
func New(gw Gateway, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		gw:       gw,
		logger:   logger.With("component", "directory"),
		inFlight: make(map[string]bool),
	}
}

// Refresh replaces the cache with the gateway's current listing, kept in
// fetch order. On error the previous cache stays.
func (s *Service) Refresh(ctx context.Context) error {
	records, err := s.gw.ListChats(ctx)
	if err != nil {
		return fmt.Errorf("refresh directory: %w", err)
	}

	seen := make(map[string]bool, len(records))
	fresh := make([]Conversation, 0, len(records))
	for _, rec := range records {
		if rec.ID == "" {
			s.logger.Warn("dropping chat record without id", "title", rec.Title)
			continue
		}
		if seen[rec.ID] {
			s.logger.Warn("dropping duplicate chat record", "id", rec.ID)
			continue
		}
		seen[rec.ID] = true
		fresh = append(fresh, Conversation{
			ID:        rec.ID,
			Title:     rec.Title,
			CreatedAt: rec.CreatedAt,
			UpdatedAt: rec.UpdatedAt,
		})
	}

	s.mu.Lock()
	s.cache = fresh
	s.mu.Unlock()

	s.logger.Debug("directory refreshed", "conversations", len(fresh))
	return nil
}

// List returns a copy of the cached conversations in fetch order.
func (s *Service) List() []Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Conversation(nil), s.cache...)
}

// Get returns the cached conversation with the given id.
func (s *Service) Get(id string) (Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.cache[i], nil
	}
	return Conversation{}, ErrUnknownConversation
}

// Rename sets a new title for id. Blank titles are rejected locally
// without a network call. The cached title and UpdatedAt change only
// after the gateway confirms; on failure the entry is exactly as before
// and the caller may retry immediately.
func (s *Service) Rename(ctx context.Context, id, title string) error {
	if strings.TrimSpace(title) == "" {
		return ErrEmptyTitle
	}
	if err := s.beginMutation(id); err != nil {
		return err
	}
	defer s.endMutation(id)

	if err := s.gw.RenameChat(ctx, id, title); err != nil {
		s.logger.Warn("rename failed", "id", id, "error", err)
		return fmt.Errorf("rename conversation %s: %w", id, err)
	}

	s.mu.Lock()
	if i := s.indexLocked(id); i >= 0 {
		s.cache[i].Title = title
		s.cache[i].UpdatedAt = time.Now()
	}
	s.mu.Unlock()

	s.logger.Info("conversation renamed", "id", id)
	return nil
}

// Remove deletes id from the gateway and then from the cache. There is
// no optimistic removal; a failed delete leaves the entry listed. When
// the removed conversation is the registered open one, the removal
// callback fires after the cache update.
func (s *Service) Remove(ctx context.Context, id string) error {
	if err := s.beginMutation(id); err != nil {
		return err
	}
	defer s.endMutation(id)

	if err := s.gw.DeleteChat(ctx, id); err != nil {
		s.logger.Warn("delete failed", "id", id, "error", err)
		return fmt.Errorf("delete conversation %s: %w", id, err)
	}

	var removedOpen func(string)
	s.mu.Lock()
	if i := s.indexLocked(id); i >= 0 {
		s.cache = append(s.cache[:i], s.cache[i+1:]...)
	}
	if s.openID == id {
		s.openID = ""
		removedOpen = s.onRemoved
	}
	s.mu.Unlock()

	s.logger.Info("conversation deleted", "id", id)
	if removedOpen != nil {
		removedOpen(id)
	}
	return nil
}

// MutationInFlight reports whether a rename or delete is currently
// running for id. The presentation layer uses this to disable the
// affordance instead of queueing a second call.
func (s *Service) MutationInFlight(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight[id]
}

// SetOpenConversation registers the conversation currently open in the
// session, or clears it with an empty id.
func (s *Service) SetOpenConversation(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.openID = id
}

// OnRemoved sets the callback invoked when the open conversation is
// deleted through this directory.
func (s *Service) OnRemoved(fn func(id string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onRemoved = fn
}

func (s *Service) beginMutation(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexLocked(id) < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownConversation, id)
	}
	if s.inFlight[id] {
		return ErrMutationInFlight
	}
	s.inFlight[id] = true
	return nil
}

func (s *Service) endMutation(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, id)
}

func (s *Service) indexLocked(id string) int {
	for i := range s.cache {
		if s.cache[i].ID == id {
			return i
		}
	}
	return -1
}
