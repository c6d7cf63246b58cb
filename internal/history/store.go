// Package history persists the append-only chat transcript, degrading
// to in-memory-only conversation when the backing store is missing.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Sender identifies who authored a message.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// MessageType identifies how the client should render a message.
type MessageType string

const (
	TypeText            MessageType = "text"
	TypePlanCard        MessageType = "plan_card"
	TypeWorkoutPreview  MessageType = "workout_preview"
	TypeExercisePreview MessageType = "exercise_preview"
)

// ChatMessage is one entry in a user's transcript. Messages are
// append-only and never mutated after creation; ordering within a
// conversation is derived from CreatedAt, not write order.
type ChatMessage struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Sender    Sender          `json:"sender"`
	Type      MessageType     `json:"type"`
	Content   string          `json:"content"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewID generates a new UUIDv7, falling back to v4.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// Store appends and reads chat messages. The first backing-store
// failure flips the store into degraded mode for the rest of the
// session: appends become logged no-ops and reads return empty, so the
// conversation carries on purely in memory.
type Store struct {
	db        *sql.DB
	logger    *slog.Logger
	available atomic.Bool
}

// NewStore creates a chat history store using the given database
// connection. A migration failure does not fail construction; it puts
// the store into degraded mode immediately.
func NewStore(db *sql.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{db: db, logger: logger}
	s.available.Store(true)
	if db == nil {
		s.available.Store(false)
		logger.Warn("chat history has no backing store, running in memory only")
		return s
	}
	if err := s.migrate(); err != nil {
		s.degrade("migrate", err)
	}
	return s
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS chat_messages (
			id           TEXT PRIMARY KEY,
			user_id      TEXT NOT NULL,
			sender       TEXT NOT NULL,
			message_type TEXT NOT NULL,
			content      TEXT NOT NULL,
			message_data TEXT,
			created_at   TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_chat_messages_user
			ON chat_messages(user_id, created_at);
	`)
	return err
}

// Available reports whether persistence is still active this session.
func (s *Store) Available() bool {
	return s.available.Load()
}

func (s *Store) degrade(op string, err error) {
	if s.available.CompareAndSwap(true, false) {
		s.logger.Warn("chat history store unavailable, disabling persistence for this session",
			"op", op, "error", err)
	}
}

// Append persists a message. In degraded mode it is a logged no-op;
// persistence failures never surface to the conversation.
func (s *Store) Append(ctx context.Context, msg ChatMessage) {
	if !s.available.Load() {
		s.logger.Debug("skipping chat append, store degraded", "user", msg.UserID)
		return
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_messages (id, user_id, sender, message_type, content, message_data, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, msg.ID, msg.UserID, string(msg.Sender), string(msg.Type), msg.Content,
		nullableJSON(msg.Payload), msg.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		s.degrade("append", err)
	}
}

// Recent returns the user's messages from the last windowDays days,
// oldest first. Failures fall back to an empty transcript, which the
// engine treats as a fresh conversation.
func (s *Store) Recent(ctx context.Context, userID string, windowDays int) []ChatMessage {
	if !s.available.Load() {
		return nil
	}
	if windowDays <= 0 {
		windowDays = 7
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -windowDays).Format(time.RFC3339Nano)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, sender, message_type, content, message_data, created_at
		FROM chat_messages
		WHERE user_id = ? AND created_at >= ?
		ORDER BY created_at ASC
	`, userID, cutoff)
	if err != nil {
		s.degrade("recent", err)
		return nil
	}
	defer rows.Close()

	var messages []ChatMessage
	for rows.Next() {
		var m ChatMessage
		var payload sql.NullString
		var createdAt string
		if err := rows.Scan(&m.ID, &m.UserID, &m.Sender, &m.Type, &m.Content, &payload, &createdAt); err != nil {
			s.logger.Warn("failed to scan chat message", "error", err)
			continue
		}
		if payload.Valid && payload.String != "" {
			m.Payload = json.RawMessage(payload.String)
		}
		m.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		s.logger.Warn("failed to read chat history", "error", err)
	}
	return messages
}

// Clear deletes the user's persisted transcript.
func (s *Store) Clear(ctx context.Context, userID string) error {
	if !s.available.Load() {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM chat_messages WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("clear chat history: %w", err)
	}
	return nil
}

func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
