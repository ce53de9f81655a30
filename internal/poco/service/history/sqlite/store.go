package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // Register SQLite3 driver

	"github.com/libreassistant/poco/internal/poco/pkg/errno"
	"github.com/libreassistant/poco/internal/poco/service/history"
)

const (
	tableConversations = "conversations"
	tableMessages      = "messages"
)

// Store implements history.Store on SQLite.
type Store struct {
	db *sql.DB
}

var _ history.Store = (*Store)(nil)

// Open creates or opens the conversation database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return &Store{db: db}, nil
}

func ensureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ` + tableConversations + ` (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS ` + tableMessages + ` (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			conversation_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_conversation ON ` + tableMessages + `(conversation_id)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("exec schema: %w", err)
		}
	}

	return nil
}

// UpsertConversation inserts the conversation or, when it already exists,
// bumps its updated_at while keeping title and created_at.
func (s *Store) UpsertConversation(ctx context.Context, c *history.Conversation) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO `+tableConversations+` (id, title, created_at, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at`,
		c.ID, c.Title, c.CreatedAt.UnixMilli(), c.UpdatedAt.UnixMilli())
	return err
}

func (s *Store) GetConversation(ctx context.Context, id string) (*history.Conversation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT c.id, c.title, c.created_at, c.updated_at, COUNT(m.id)
		 FROM `+tableConversations+` c
		 LEFT JOIN `+tableMessages+` m ON m.conversation_id = c.id
		 WHERE c.id = ?
		 GROUP BY c.id`, id)

	c, err := scanConversation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", errno.ErrConversationNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	return c, nil
}

func (s *Store) ListConversations(ctx context.Context) ([]*history.Conversation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT c.id, c.title, c.created_at, c.updated_at, COUNT(m.id)
		 FROM `+tableConversations+` c
		 LEFT JOIN `+tableMessages+` m ON m.conversation_id = c.id
		 GROUP BY c.id
		 ORDER BY c.updated_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*history.Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}

	return out, rows.Err()
}

// AppendMessage stores one turn and bumps the conversation's updated_at.
func (s *Store) AppendMessage(ctx context.Context, conversationID string, m *history.Message) error {
	at := m.CreatedAt.UnixMilli()
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO `+tableMessages+` (conversation_id, role, content, created_at) VALUES (?, ?, ?, ?)`,
		conversationID, m.Role, m.Content, at); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx,
		`UPDATE `+tableConversations+` SET updated_at = ? WHERE id = ?`, at, conversationID)
	return err
}

// Messages returns the latest limit turns of the conversation in
// chronological order. A non-positive limit returns everything.
func (s *Store) Messages(ctx context.Context, conversationID string, limit int) ([]*history.Message, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT role, content, created_at FROM (
			SELECT id, role, content, created_at FROM `+tableMessages+`
			WHERE conversation_id = ? ORDER BY id DESC LIMIT ?
		 ) ORDER BY id ASC`, conversationID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*history.Message
	for rows.Next() {
		var m history.Message
		var at int64
		if err := rows.Scan(&m.Role, &m.Content, &at); err != nil {
			return nil, err
		}
		m.CreatedAt = time.UnixMilli(at)
		out = append(out, &m)
	}

	return out, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanConversation(row rowScanner) (*history.Conversation, error) {
	var c history.Conversation
	var created, updated int64
	if err := row.Scan(&c.ID, &c.Title, &created, &updated, &c.Messages); err != nil {
		return nil, err
	}
	c.CreatedAt = time.UnixMilli(created)
	c.UpdatedAt = time.UnixMilli(updated)

	return &c, nil
}
