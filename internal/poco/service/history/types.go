package history

import (
	"context"
	"time"
)

// Conversation is one stored chat thread.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Messages  int       `json:"messages"`
}

// Message is one stored chat turn.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists conversations and their messages. Implementations must be
// safe for concurrent use.
type Store interface {
	UpsertConversation(ctx context.Context, c *Conversation) error
	GetConversation(ctx context.Context, id string) (*Conversation, error)
	ListConversations(ctx context.Context) ([]*Conversation, error)
	AppendMessage(ctx context.Context, conversationID string, m *Message) error
	Messages(ctx context.Context, conversationID string, limit int) ([]*Message, error)
	Close() error
}
