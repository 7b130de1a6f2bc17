package tutor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrConversationNotFound is returned for an unknown conversation ID.
var ErrConversationNotFound = errors.New("conversation not found")

// StoredMessage represents a single message in a conversation.
type StoredMessage struct {
	Role         string    `json:"role"`
	Content      string    `json:"content"`
	Model        string    `json:"model,omitempty"`
	InputTokens  int       `json:"input_tokens,omitempty"`
	OutputTokens int       `json:"output_tokens,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Conversation is a tutor chat about one subtopic.
type Conversation struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	SubtopicID  string          `json:"subtopic_id,omitempty"`
	State       string          `json:"state"`
	Messages    []StoredMessage `json:"messages"`
	Summary     string          `json:"summary,omitempty"`
	CompactedAt int             `json:"compacted_at,omitempty"` // number of messages included in Summary
	StartedAt   time.Time       `json:"started_at"`
	EndedAt     *time.Time      `json:"ended_at,omitempty"`
}

// ConversationStore persists conversation state and message history.
type ConversationStore interface {
	CreateConversation(ctx context.Context, conv Conversation) (string, error)
	GetConversation(ctx context.Context, id string) (*Conversation, error)
	GetActiveConversation(ctx context.Context, userID, subtopicID string) (*Conversation, bool)
	AddMessage(ctx context.Context, conversationID string, msg StoredMessage) error
	SetSummary(ctx context.Context, conversationID string, summary string, compactedAt int) error
	EndConversation(ctx context.Context, id string) error
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
	conv.StartedAt = time.Now()
	conv.Messages = append([]StoredMessage{}, conv.Messages...)
	s.conversations[conv.ID] = &conv
	return conv.ID, nil
}

// GetConversation returns a copy of the conversation.
func (s *MemoryStore) GetConversation(_ context.Context, id string) (*Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrConversationNotFound, id)
	}
	return copyConversation(conv), nil
}

func (s *MemoryStore) GetActiveConversation(_ context.Context, userID, subtopicID string) (*Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, conv := range s.conversations {
		if conv.UserID == userID && conv.SubtopicID == subtopicID && conv.EndedAt == nil {
			return copyConversation(conv), true
		}
	}
	return nil, false
}

func (s *MemoryStore) AddMessage(_ context.Context, conversationID string, msg StoredMessage) error {
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

func (s *MemoryStore) SetSummary(_ context.Context, conversationID string, summary string, compactedAt int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrConversationNotFound, conversationID)
	}
	conv.Summary = summary
	conv.CompactedAt = compactedAt
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

func copyConversation(c *Conversation) *Conversation {
	out := *c
	out.Messages = append([]StoredMessage{}, c.Messages...)
	return &out
}
