package chat

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/mentorcrm/chat/internal/model/chat"
)

var (
	ErrInvalidMode     = errors.New("unknown conversation mode")
	ErrSessionNotFound = errors.New("session not found")
)

const titleLimit = 60

type conversation struct {
	mode     chat.Mode
	session  chat.Session
	messages []chat.Message
}

// Service encapsulates conversation state management.
type Service struct {
	mu       sync.RWMutex
	sessions map[string]*conversation
	now      func() time.Time
}

// NewService bootstraps the in-memory chat service.
func NewService() *Service {
	return &Service{
		sessions: make(map[string]*conversation),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CreateSession provisions an empty session in mode.
func (s *Service) CreateSession(_ context.Context, mode chat.Mode) (chat.Session, error) {
	if !mode.Valid() {
		return chat.Session{}, ErrInvalidMode
	}

	now := s.now()
	session := chat.Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	s.sessions[session.ID] = &conversation{
		mode:     mode,
		session:  session,
		messages: make([]chat.Message, 0, 16),
	}
	s.mu.Unlock()

	return session, nil
}

// SaveMessage appends a message to the session history. The first user
// message also becomes the session title.
func (s *Service) SaveMessage(_ context.Context, mode chat.Mode, sessionID string, message chat.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.lookup(mode, sessionID)
	if !ok {
		return ErrSessionNotFound
	}

	if message.Timestamp.IsZero() {
		message.Timestamp = s.now()
	}
	if conv.session.Title == "" && message.Role == chat.RoleUser {
		conv.session.Title = truncateTitle(message.Content)
	}

	conv.messages = append(conv.messages, message)
	conv.session.MessageCount = len(conv.messages)
	conv.session.UpdatedAt = message.Timestamp
	return nil
}

// GetSession retrieves a session by identifier.
func (s *Service) GetSession(_ context.Context, mode chat.Mode, sessionID string) (chat.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.lookup(mode, sessionID)
	if !ok {
		return chat.Session{}, ErrSessionNotFound
	}
	return conv.session, nil
}

// ListSessions returns the sessions of mode, most recently updated first.
func (s *Service) ListSessions(_ context.Context, mode chat.Mode) ([]chat.Session, error) {
	if !mode.Valid() {
		return nil, ErrInvalidMode
	}

	s.mu.RLock()
	out := make([]chat.Session, 0, len(s.sessions))
	for _, conv := range s.sessions {
		if conv.mode == mode {
			out = append(out, conv.session)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

// LoadTranscript returns stored messages for the provided session.
func (s *Service) LoadTranscript(_ context.Context, mode chat.Mode, sessionID string) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.lookup(mode, sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}

	copied := make([]chat.Message, len(conv.messages))
	copy(copied, conv.messages)
	return copied, nil
}

// DeleteSession removes a session and its transcript.
func (s *Service) DeleteSession(_ context.Context, mode chat.Mode, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.lookup(mode, sessionID); !ok {
		return ErrSessionNotFound
	}
	delete(s.sessions, sessionID)
	return nil
}

// lookup requires s.mu to be held.
func (s *Service) lookup(mode chat.Mode, sessionID string) (*conversation, bool) {
	conv, ok := s.sessions[sessionID]
	if !ok || conv.mode != mode {
		return nil, false
	}
	return conv, true
}

func truncateTitle(content string) string {
	title := strings.Join(strings.Fields(content), " ")
	if utf8.RuneCountInString(title) <= titleLimit {
		return title
	}
	runes := []rune(title)
	return string(runes[:titleLimit-1]) + "…"
}
