// Package store persists chat history to SQLite. It implements
// chat.MessageStore on top of the squirrel query builder.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/foundry-9/quilltap/chat"
	"github.com/foundry-9/quilltap/llm"
)

// Store handles persistence of chat messages.
// It implements chat.MessageStore.
type Store struct {
	db *sql.DB
}

// NewStore creates a new message store over an open database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

var _ chat.MessageStore = (*Store)(nil)

// AddMessage saves a message to the chat history. A missing ID is filled
// in with a fresh UUID. Uses INSERT OR IGNORE so a retried turn cannot
// duplicate a message that already landed.
func (s *Store) AddMessage(ctx context.Context, msg *chat.StoredMessage) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}

	query := sq.Insert("messages").
		Options("OR IGNORE").
		Columns("id", "chat_id", "role", "content", "tool_name", "created_at").
		Values(msg.ID, msg.ChatID, string(msg.Role), msg.Content, nullable(msg.ToolName), msg.CreatedAt.Unix())

	queryStr, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	_, err = s.db.ExecContext(ctx, queryStr, args...)
	return err
}

// UpdateMessage replaces the content of an existing message. It returns an
// error if no message with the given IDs exists.
func (s *Store) UpdateMessage(ctx context.Context, chatID, messageID, content string) error {
	query := sq.Update("messages").
		Set("content", content).
		Where(sq.Eq{"chat_id": chatID, "id": messageID})

	queryStr, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	res, err := s.db.ExecContext(ctx, queryStr, args...)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("message %s not found in chat %s", messageID, chatID)
	}
	return nil
}

// Messages returns all messages for a chat in insertion order.
func (s *Store) Messages(ctx context.Context, chatID string) ([]chat.StoredMessage, error) {
	query := sq.Select("id", "chat_id", "role", "content", "tool_name", "created_at").
		From("messages").
		Where(sq.Eq{"chat_id": chatID}).
		OrderBy("created_at ASC", "rowid ASC")

	queryStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, queryStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []chat.StoredMessage
	for rows.Next() {
		var (
			msg      chat.StoredMessage
			role     string
			toolName sql.NullString
			created  int64
		)
		if err := rows.Scan(&msg.ID, &msg.ChatID, &role, &msg.Content, &toolName, &created); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.Role = llm.MessageRole(role)
		msg.ToolName = toolName.String
		msg.CreatedAt = time.Unix(created, 0)
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// DeleteChat removes all messages belonging to a chat.
func (s *Store) DeleteChat(ctx context.Context, chatID string) error {
	query := sq.Delete("messages").Where(sq.Eq{"chat_id": chatID})

	queryStr, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	_, err = s.db.ExecContext(ctx, queryStr, args...)
	return err
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
