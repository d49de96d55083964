package conversation

import (
	"fmt"
	"sync"
	"time"

	"github.com/sentri/retail-security/internal/domain"
)

// MaxMessages is the number of messages kept per conversation; the oldest are dropped first
const MaxMessages = 50

// Store holds one bounded conversation per user
type Store struct {
	mu            sync.RWMutex
	conversations []*domain.Conversation
	nextID        int64
	now           func() time.Time
}

// NewStore creates an empty conversation store
func NewStore() *Store {
	return NewStoreWithClock(time.Now)
}

// NewStoreWithClock creates an empty conversation store using the given clock
func NewStoreWithClock(now func() time.Time) *Store {
	return &Store{nextID: 1, now: now}
}

// GetOrCreate returns the user's conversation, creating it on first use
func (s *Store) GetOrCreate(userID int64) domain.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c := s.findByUser(userID); c != nil {
		return snapshot(c)
	}

	c := &domain.Conversation{
		ID:        s.nextID,
		UserID:    userID,
		Messages:  make([]domain.Message, 0),
		CreatedAt: s.now(),
	}
	s.nextID++
	s.conversations = append(s.conversations, c)
	return snapshot(c)
}

// Get returns a conversation by id
func (s *Store) Get(conversationID int64) (domain.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c := s.findByID(conversationID)
	if c == nil {
		return domain.Conversation{}, notFound(conversationID)
	}
	return snapshot(c), nil
}

// FindByUser returns the user's conversation without creating one
func (s *Store) FindByUser(userID int64) (domain.Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c := s.findByUser(userID)
	if c == nil {
		return domain.Conversation{}, false
	}
	return snapshot(c), true
}

// AddMessage appends a message to a conversation. scan may be nil; it is
// referenced, not copied.
func (s *Store) AddMessage(conversationID int64, role domain.Role, content string, tool domain.ToolUsed, scan *domain.ScanRecord) (domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.findByID(conversationID)
	if c == nil {
		return domain.Message{}, notFound(conversationID)
	}

	msg := domain.Message{
		Role:       role,
		Content:    content,
		ToolUsed:   tool,
		ScanResult: scan,
		CreatedAt:  s.now(),
	}
	c.Messages = append(c.Messages, msg)
	if overflow := len(c.Messages) - MaxMessages; overflow > 0 {
		c.Messages = append([]domain.Message(nil), c.Messages[overflow:]...)
	}
	return msg, nil
}

// Clear removes every conversation and resets the id counter
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.conversations = nil
	s.nextID = 1
}

func (s *Store) findByUser(userID int64) *domain.Conversation {
	for _, c := range s.conversations {
		if c.UserID == userID {
			return c
		}
	}
	return nil
}

func (s *Store) findByID(id int64) *domain.Conversation {
	for _, c := range s.conversations {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// snapshot copies the message slice so callers never share backing arrays with the store
func snapshot(c *domain.Conversation) domain.Conversation {
	out := *c
	out.Messages = make([]domain.Message, len(c.Messages))
	copy(out.Messages, c.Messages)
	return out
}

func notFound(id int64) error {
	return fmt.Errorf("%w: id %d", domain.ErrConversationNotFound, id)
}
