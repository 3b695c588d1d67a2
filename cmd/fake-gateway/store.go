// ABOUTME: In-memory chat store backing the fake gateway
// ABOUTME: Mutex-guarded maps, wire records serialized with snake_case keys

package main

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type chatState struct {
	ID        string
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
	Messages  []storedMessage
}

type storedMessage struct {
	ID        string
	Role      string
	Content   string
	CreatedAt time.Time
	Liked     bool
	Disliked  bool
}

type memStore struct {
	mu    sync.Mutex
	chats map[string]*chatState
}

func newStore(sc *Scenario) *memStore {
	s := &memStore{chats: make(map[string]*chatState)}
	for _, cc := range sc.Chats {
		cs := &chatState{
			ID:        cc.ID,
			Title:     cc.Title,
			CreatedAt: cc.CreatedAt,
			UpdatedAt: cc.UpdatedAt,
		}
		if cs.ID == "" {
			cs.ID = uuid.New().String()
		}
		if cs.CreatedAt.IsZero() {
			cs.CreatedAt = time.Now()
		}
		if cs.UpdatedAt.IsZero() {
			cs.UpdatedAt = cs.CreatedAt
		}
		for i, mc := range cc.Messages {
			m := storedMessage{
				ID:        mc.ID,
				Role:      mc.Role,
				Content:   mc.Content,
				CreatedAt: mc.CreatedAt,
				Liked:     mc.Liked,
				Disliked:  mc.Disliked,
			}
			if m.ID == "" {
				m.ID = uuid.New().String()
			}
			if m.Role == "" {
				m.Role = "user"
			}
			if m.CreatedAt.IsZero() {
				m.CreatedAt = cs.CreatedAt.Add(time.Duration(i) * time.Minute)
			}
			cs.Messages = append(cs.Messages, m)
		}
		s.chats[cs.ID] = cs
	}
	return s
}

// wire records, snake_case like the real gateway

type chatRecord struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type messageRecord struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
	Liked     bool   `json:"liked"`
	Disliked  bool   `json:"disliked"`
}

func (s *memStore) listChats() []chatRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	states := make([]*chatState, 0, len(s.chats))
	for _, cs := range s.chats {
		states = append(states, cs)
	}
	sort.Slice(states, func(i, j int) bool {
		return states[i].UpdatedAt.After(states[j].UpdatedAt)
	})

	out := make([]chatRecord, 0, len(states))
	for _, cs := range states {
		out = append(out, chatRecord{
			ID:        cs.ID,
			Title:     cs.Title,
			CreatedAt: cs.CreatedAt.UTC().Format(time.RFC3339),
			UpdatedAt: cs.UpdatedAt.UTC().Format(time.RFC3339),
		})
	}
	return out
}

func (s *memStore) messages(chatID string) ([]messageRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cs, ok := s.chats[chatID]
	if !ok {
		return nil, false
	}
	out := make([]messageRecord, 0, len(cs.Messages))
	for _, m := range cs.Messages {
		out = append(out, messageRecord{
			ID:        m.ID,
			Role:      m.Role,
			Content:   m.Content,
			CreatedAt: m.CreatedAt.UTC().Format(time.RFC3339),
			Liked:     m.Liked,
			Disliked:  m.Disliked,
		})
	}
	return out, true
}

func (s *memStore) rename(chatID, title string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	cs, ok := s.chats[chatID]
	if !ok {
		return false
	}
	cs.Title = title
	cs.UpdatedAt = time.Now()
	return true
}

func (s *memStore) remove(chatID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.chats[chatID]; !ok {
		return false
	}
	delete(s.chats, chatID)
	return true
}

func (s *memStore) feedback(messageID string, liked, disliked bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, cs := range s.chats {
		for i := range cs.Messages {
			if cs.Messages[i].ID == messageID {
				cs.Messages[i].Liked = liked
				cs.Messages[i].Disliked = disliked
				return true
			}
		}
	}
	return false
}

// createChat makes a fresh conversation titled from the first message.
func (s *memStore) createChat(title string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.New().String()
	now := time.Now()
	s.chats[id] = &chatState{
		ID:        id,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return id
}

func (s *memStore) has(chatID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.chats[chatID]
	return ok
}

// appendMessage stores one message and returns its id.
func (s *memStore) appendMessage(chatID, role, content string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	cs, ok := s.chats[chatID]
	if !ok {
		return ""
	}
	m := storedMessage{
		ID:        uuid.New().String(),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	}
	cs.Messages = append(cs.Messages, m)
	cs.UpdatedAt = m.CreatedAt
	return m.ID
}
