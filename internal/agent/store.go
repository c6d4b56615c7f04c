package agent

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/p-n-ai/tsea/internal/ai"
)

// ErrConversationNotFound is returned for an unknown conversation id.
var ErrConversationNotFound = errors.New("conversation not found")

// StoredMessage represents a single message in a conversation.
type StoredMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Model     string    `json:"model,omitempty"`
	Shape     string    `json:"shape,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Conversation is the chat between one user and one persona.
type Conversation struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Persona   ai.Persona      `json:"persona"`
	Messages  []StoredMessage `json:"messages"`
	StartedAt time.Time       `json:"started_at"`
	EndedAt   *time.Time      `json:"ended_at,omitempty"`
}

// ConversationStore persists conversations and their message history.
type ConversationStore interface {
	CreateConversation(ctx context.Context, conv Conversation) (string, error)
	GetConversation(ctx context.Context, id string) (*Conversation, error)
	// ActiveConversation returns the open conversation of a user with a persona.
	ActiveConversation(ctx context.Context, userID string, persona ai.Persona) (*Conversation, bool, error)
	AddMessage(ctx context.Context, conversationID string, msg StoredMessage) error
	EndConversation(ctx context.Context, id string) error
	// History returns the newest limit messages of the active conversation in
	// chronological order. A non-positive limit returns all of them.
	History(ctx context.Context, userID string, persona ai.Persona, limit int) ([]StoredMessage, error)
}

// MemoryStore is an in-memory implementation of ConversationStore.
type MemoryStore struct {
	conversations map[string]*Conversation
	mu            sync.RWMutex
}

// NewMemoryStore creates a new in-memory conversation store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		conversations: make(map[string]*Conversation),
	}
}

func (s *MemoryStore) CreateConversation(_ context.Context, conv Conversation) (string, error) {
	if conv.UserID == "" {
		return "", fmt.Errorf("user_id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	conv.ID = uuid.NewString()
	if conv.StartedAt.IsZero() {
		conv.StartedAt = time.Now()
	}
	conv.Messages = slices.Clone(conv.Messages)
	if conv.Messages == nil {
		conv.Messages = []StoredMessage{}
	}
	s.conversations[conv.ID] = &conv
	return conv.ID, nil
}

func (s *MemoryStore) GetConversation(_ context.Context, id string) (*Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrConversationNotFound, id)
	}
	return clone(conv), nil
}

func (s *MemoryStore) ActiveConversation(_ context.Context, userID string, persona ai.Persona) (*Conversation, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv := s.active(userID, persona)
	if conv == nil {
		return nil, false, nil
	}
	return clone(conv), true, nil
}

// active returns the newest open conversation. Callers hold mu.
func (s *MemoryStore) active(userID string, persona ai.Persona) *Conversation {
	var found *Conversation
	for _, conv := range s.conversations {
		if conv.UserID != userID || conv.Persona != persona || conv.EndedAt != nil {
			continue
		}
		if found == nil || conv.StartedAt.After(found.StartedAt) {
			found = conv
		}
	}
	return found
}

func (s *MemoryStore) AddMessage(_ context.Context, conversationID string, msg StoredMessage) error {
	if msg.Role == "" {
		return fmt.Errorf("message role is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrConversationNotFound, conversationID)
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	conv.Messages = append(conv.Messages, msg)
	return nil
}

func (s *MemoryStore) EndConversation(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrConversationNotFound, id)
	}
	now := time.Now()
	conv.EndedAt = &now
	return nil
}

func (s *MemoryStore) History(_ context.Context, userID string, persona ai.Persona, limit int) ([]StoredMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv := s.active(userID, persona)
	if conv == nil {
		return []StoredMessage{}, nil
	}
	return tail(conv.Messages, limit), nil
}

func clone(conv *Conversation) *Conversation {
	c := *conv
	c.Messages = slices.Clone(conv.Messages)
	return &c
}

func tail(msgs []StoredMessage, limit int) []StoredMessage {
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return append([]StoredMessage{}, msgs...)
}
