package history

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
)

// DefaultLimit caps prior turns fed back into a dispatch.
const DefaultLimit = 20

const maxTitleRunes = 80

// Config is the chat history configuration. A nil Store disables history
// entirely; the caller opens a backing store only when a db path is set.
type Config struct {
	Store Store

	// Limit caps stored turns loaded per conversation.
	Limit int
}

type completedConfig struct {
	*Config
}

// CompletedConfig is the history configuration after defaulting.
type CompletedConfig struct {
	completedConfig
}

// Complete fills in derivable defaults.
func (c *Config) Complete() CompletedConfig {
	if c.Limit <= 0 {
		c.Limit = DefaultLimit
	}

	return CompletedConfig{completedConfig{c}}
}

// New builds the history module.
func (c CompletedConfig) New() (*Module, error) {
	return &Module{store: c.Store, limit: c.Limit}, nil
}

// Module records chat turns per conversation. Every method degrades to a
// no-op when no store is configured.
type Module struct {
	store Store
	limit int
}

// Enabled reports whether a conversation store is configured.
func (m *Module) Enabled() bool {
	return m.store != nil
}

// EnsureConversation resolves id to a stored conversation, creating one when
// id is empty or unknown. The returned id is empty when history is disabled.
func (m *Module) EnsureConversation(ctx context.Context, id, title string) (string, error) {
	if m.store == nil {
		return "", nil
	}

	if id == "" {
		id = uuid.New().String()
	}
	now := time.Now()
	c := &Conversation{
		ID:        id,
		Title:     clampTitle(title),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.store.UpsertConversation(ctx, c); err != nil {
		return "", fmt.Errorf("ensure conversation %s: %w", id, err)
	}

	return id, nil
}

// AppendMessage stores one turn. Unknown roles are stored as given.
func (m *Module) AppendMessage(ctx context.Context, conversationID, role, content string) error {
	if m.store == nil || conversationID == "" {
		return nil
	}

	return m.store.AppendMessage(ctx, conversationID, &Message{
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	})
}

// History returns the most recent stored turns of a conversation, oldest
// first, converted for the dispatch loop.
func (m *Module) History(ctx context.Context, conversationID string) ([]*schema.Message, error) {
	if m.store == nil || conversationID == "" {
		return nil, nil
	}

	stored, err := m.store.Messages(ctx, conversationID, m.limit)
	if err != nil {
		return nil, fmt.Errorf("load conversation %s: %w", conversationID, err)
	}

	out := make([]*schema.Message, 0, len(stored))
	for _, msg := range stored {
		switch schema.RoleType(msg.Role) {
		case schema.Assistant:
			out = append(out, schema.AssistantMessage(msg.Content, nil))
		case schema.System:
			out = append(out, schema.SystemMessage(msg.Content))
		default:
			out = append(out, schema.UserMessage(msg.Content))
		}
	}

	return out, nil
}

// Conversation returns one stored conversation.
func (m *Module) Conversation(ctx context.Context, id string) (*Conversation, error) {
	if m.store == nil {
		return nil, fmt.Errorf("history disabled")
	}

	return m.store.GetConversation(ctx, id)
}

// Messages returns the most recent stored turns of a conversation, oldest
// first.
func (m *Module) Messages(ctx context.Context, conversationID string) ([]*Message, error) {
	if m.store == nil {
		return nil, nil
	}

	return m.store.Messages(ctx, conversationID, m.limit)
}

// Conversations lists stored conversations, most recently active first.
func (m *Module) Conversations(ctx context.Context) ([]*Conversation, error) {
	if m.store == nil {
		return nil, nil
	}

	return m.store.ListConversations(ctx)
}

// Close releases the backing store.
func (m *Module) Close() error {
	if m.store == nil {
		return nil
	}

	return m.store.Close()
}

func clampTitle(s string) string {
	runes := []rune(s)
	if len(runes) <= maxTitleRunes {
		return s
	}

	return string(runes[:maxTitleRunes])
}
