// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Provides conversation/message persistence with automatic schema creation

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS conversations (
			id             TEXT PRIMARY KEY,
			user_tag       TEXT,
			status         TEXT NOT NULL DEFAULT 'open',
			needs_agent    INTEGER NOT NULL DEFAULT 0,
			messages_count INTEGER NOT NULL DEFAULT 0,
			sales_count    INTEGER NOT NULL DEFAULT 0,
			support_count  INTEGER NOT NULL DEFAULT 0,
			general_count  INTEGER NOT NULL DEFAULT 0,
			low_conf_count INTEGER NOT NULL DEFAULT 0,
			last_category  TEXT,
			created_at     TEXT NOT NULL,

			CHECK (status IN ('open', 'needs_agent', 'assigned', 'closed'))
		);

		CREATE INDEX IF NOT EXISTS idx_conversations_status ON conversations(status);
		CREATE INDEX IF NOT EXISTS idx_conversations_created ON conversations(created_at);

		CREATE TABLE IF NOT EXISTS messages (
			id              TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL,
			role            TEXT NOT NULL,
			text            TEXT NOT NULL,
			created_at      TEXT NOT NULL,

			FOREIGN KEY (conversation_id) REFERENCES conversations(id),
			CHECK (role IN ('user', 'bot'))
		);

		CREATE INDEX IF NOT EXISTS idx_messages_conversation
			ON messages(conversation_id, created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	s.logger.Info("closing SQLite store")
	return s.db.Close()
}

// CreateConversation creates a new open conversation. userTag may be empty.
func (s *SQLiteStore) CreateConversation(ctx context.Context, userTag string) (*Conversation, error) {
	conv := &Conversation{
		ID:        uuid.NewString(),
		UserTag:   userTag,
		Status:    StatusOpen,
		CreatedAt: time.Now().UTC(),
	}

	query := `
		INSERT INTO conversations (id, user_tag, status, created_at)
		VALUES (?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		conv.ID,
		nullString(conv.UserTag),
		conv.Status,
		conv.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting conversation: %w", err)
	}

	s.logger.Debug("created conversation", "id", conv.ID, "user_tag", userTag)
	return conv, nil
}

// nullString returns nil for empty strings, otherwise the string itself
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

const conversationColumns = `id, user_tag, status, needs_agent, messages_count,
	sales_count, support_count, general_count, low_conf_count, last_category, created_at`

func scanConversation(row interface{ Scan(...any) error }) (*Conversation, error) {
	var conv Conversation
	var userTag, lastCategory sql.NullString
	var createdAtStr string

	err := row.Scan(
		&conv.ID,
		&userTag,
		&conv.Status,
		&conv.NeedsAgent,
		&conv.MessagesCount,
		&conv.SalesCount,
		&conv.SupportCount,
		&conv.GeneralCount,
		&conv.LowConfCount,
		&lastCategory,
		&createdAtStr,
	)
	if err != nil {
		return nil, err
	}

	conv.UserTag = userTag.String
	conv.LastCategory = lastCategory.String

	conv.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}

	return &conv, nil
}

// GetConversation retrieves a conversation by ID.
// Returns ErrNotFound if the conversation doesn't exist.
func (s *SQLiteStore) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations WHERE id = ?`

	conv, err := scanConversation(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying conversation: %w", err)
	}
	return conv, nil
}

// ListConversations retrieves conversations newest first.
// If limit is 0 or negative, a default limit of 50 is used.
func (s *SQLiteStore) ListConversations(ctx context.Context, limit int) ([]*Conversation, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 1000 {
		limit = 1000
	}

	query := `
		SELECT ` + conversationColumns + `
		FROM conversations
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("querying conversations: %w", err)
	}
	defer rows.Close()

	var convs []*Conversation
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning conversation row: %w", err)
		}
		convs = append(convs, conv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating conversation rows: %w", err)
	}

	return convs, nil
}

// AppendMessage saves a message and bumps the conversation's message counter.
// Returns ErrNotFound if the conversation doesn't exist.
func (s *SQLiteStore) AppendMessage(ctx context.Context, conversationID, role, text string) (*Message, error) {
	msg := &Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Role:           role,
		Text:           text,
		CreatedAt:      time.Now().UTC(),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE conversations SET messages_count = messages_count + 1 WHERE id = ?`,
		conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("bumping message count: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("getting rows affected: %w", err)
	}
	if affected == 0 {
		return nil, ErrNotFound
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO messages (id, conversation_id, role, text, created_at) VALUES (?, ?, ?, ?, ?)`,
		msg.ID,
		msg.ConversationID,
		msg.Role,
		msg.Text,
		msg.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting message: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing message: %w", err)
	}

	s.logger.Debug("appended message", "conversation_id", conversationID, "role", role)
	return msg, nil
}

// GetMessages retrieves a conversation's messages oldest first.
func (s *SQLiteStore) GetMessages(ctx context.Context, conversationID string) ([]*Message, error) {
	query := `
		SELECT id, conversation_id, role, text, created_at
		FROM messages
		WHERE conversation_id = ?
		ORDER BY created_at ASC, id ASC
	`

	rows, err := s.db.QueryContext(ctx, query, conversationID)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var msgs []*Message
	for rows.Next() {
		var msg Message
		var createdAtStr string

		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.Role, &msg.Text, &createdAtStr); err != nil {
			return nil, fmt.Errorf("scanning message row: %w", err)
		}

		msg.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAtStr)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}

		msgs = append(msgs, &msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating message rows: %w", err)
	}

	return msgs, nil
}

// ResetConversation deletes the history and returns the conversation to its
// initial open state. Returns ErrNotFound if the conversation doesn't exist.
func (s *SQLiteStore) ResetConversation(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE conversations
		SET messages_count = 0,
			sales_count = 0,
			support_count = 0,
			general_count = 0,
			low_conf_count = 0,
			needs_agent = 0,
			status = ?,
			last_category = NULL
		WHERE id = ?
	`, StatusOpen, id)
	if err != nil {
		return fmt.Errorf("resetting conversation: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE conversation_id = ?`, id); err != nil {
		return fmt.Errorf("deleting messages: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing reset: %w", err)
	}

	s.logger.Info("conversation reset", "id", id)
	return nil
}

// RecordTurnOutcome rolls one routed turn into the counters. A low-confidence
// turn also flags the conversation for a human agent.
// Returns ErrNotFound if the conversation doesn't exist.
func (s *SQLiteStore) RecordTurnOutcome(ctx context.Context, id, category string, lowConfidence bool) error {
	query := `
		UPDATE conversations
		SET sales_count   = sales_count   + (CASE WHEN ? = 'ventas'  THEN 1 ELSE 0 END),
			support_count = support_count + (CASE WHEN ? = 'soporte' THEN 1 ELSE 0 END),
			general_count = general_count + (CASE WHEN ? = 'general' THEN 1 ELSE 0 END),
			low_conf_count = low_conf_count + (CASE WHEN ? THEN 1 ELSE 0 END),
			needs_agent = (CASE WHEN ? THEN 1 ELSE needs_agent END),
			status = (CASE WHEN ? THEN 'needs_agent' ELSE status END),
			last_category = ?
		WHERE id = ?
	`

	result, err := s.db.ExecContext(ctx, query,
		category, category, category,
		lowConfidence, lowConfidence, lowConfidence,
		nullString(category),
		id,
	)
	if err != nil {
		return fmt.Errorf("recording turn outcome: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// SetStatus updates the conversation status. needsAgent is applied only when
// non-nil. Returns the updated conversation, or ErrNotFound.
func (s *SQLiteStore) SetStatus(ctx context.Context, id, status string, needsAgent *bool) (*Conversation, error) {
	if !ValidStatus(status) {
		return nil, fmt.Errorf("invalid status %q", status)
	}

	var err error
	if needsAgent != nil {
		_, err = s.db.ExecContext(ctx,
			`UPDATE conversations SET status = ?, needs_agent = ? WHERE id = ?`,
			status, *needsAgent, id)
	} else {
		_, err = s.db.ExecContext(ctx,
			`UPDATE conversations SET status = ? WHERE id = ?`,
			status, id)
	}
	if err != nil {
		return nil, fmt.Errorf("updating status: %w", err)
	}

	conv, err := s.GetConversation(ctx, id)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("status updated", "id", id, "status", status)
	return conv, nil
}

// GlobalMetrics aggregates counters across every conversation.
func (s *SQLiteStore) GlobalMetrics(ctx context.Context) (*Metrics, error) {
	query := `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'open'        THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'needs_agent' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'assigned'    THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'closed'      THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(sales_count), 0),
			COALESCE(SUM(support_count), 0),
			COALESCE(SUM(general_count), 0),
			COALESCE(SUM(low_conf_count), 0),
			COALESCE(SUM(messages_count), 0)
		FROM conversations
	`

	var m Metrics
	err := s.db.QueryRowContext(ctx, query).Scan(
		&m.TotalConversations,
		&m.Open,
		&m.NeedsAgent,
		&m.Assigned,
		&m.Closed,
		&m.Sales,
		&m.Support,
		&m.General,
		&m.LowConf,
		&m.Messages,
	)
	if err != nil {
		return nil, fmt.Errorf("querying metrics: %w", err)
	}

	return &m, nil
}
