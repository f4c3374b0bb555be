// Package sqlite provides a SQLite-backed conversation store.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	sqlitemigrate "github.com/louisbranch/council.space/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/council.space/internal/services/council/domain"
	"github.com/louisbranch/council.space/internal/services/council/storage"
	"github.com/louisbranch/council.space/internal/services/council/storage/sqlite/migrations"
)

// Store persists conversations in SQLite.
type Store struct {
	sqlDB    *sql.DB
	maxBytes int
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite conversation store and applies embedded migrations.
// maxResponseBytes caps every stored stage payload; zero uses the default.
func Open(path string, maxResponseBytes int) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	if maxResponseBytes == 0 {
		maxResponseBytes = storage.DefaultMaxResponseBytes
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB, maxBytes: maxResponseBytes}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// CreateConversation inserts one conversation record.
func (s *Store) CreateConversation(ctx context.Context, conversation storage.Conversation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if err := storage.ValidateConversationID(conversation.ID); err != nil {
		return err
	}

	title := strings.TrimSpace(conversation.Title)
	if title == "" {
		title = storage.DefaultTitle
	}
	createdAt := conversation.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	updatedAt := conversation.UpdatedAt.UTC()
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO conversations (id, title, created_at, updated_at)
		 VALUES (?, ?, ?, ?)`,
		conversation.ID,
		title,
		toMillis(createdAt),
		toMillis(updatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("conversation %s already exists", conversation.ID)
		}
		return fmt.Errorf("create conversation: %w", err)
	}
	return nil
}

// GetConversation returns one conversation with all its messages.
func (s *Store) GetConversation(ctx context.Context, id string) (storage.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return storage.Conversation{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Conversation{}, fmt.Errorf("storage is not configured")
	}
	if err := storage.ValidateConversationID(id); err != nil {
		return storage.Conversation{}, err
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, title, created_at, updated_at
		   FROM conversations
		  WHERE id = ?`,
		id,
	)

	var conversation storage.Conversation
	var createdAt, updatedAt int64
	if err := row.Scan(&conversation.ID, &conversation.Title, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Conversation{}, storage.ErrNotFound
		}
		return storage.Conversation{}, fmt.Errorf("get conversation: %w", err)
	}
	conversation.CreatedAt = fromMillis(createdAt)
	conversation.UpdatedAt = fromMillis(updatedAt)

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT role, content, stage1, stage2, stage3
		   FROM messages
		  WHERE conversation_id = ?
		  ORDER BY id ASC`,
		id,
	)
	if err != nil {
		return storage.Conversation{}, fmt.Errorf("get conversation messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var message storage.Message
		var stage1, stage2, stage3 sql.NullString
		if err := rows.Scan(&message.Role, &message.Content, &stage1, &stage2, &stage3); err != nil {
			return storage.Conversation{}, fmt.Errorf("get conversation messages: %w", err)
		}
		if stage1.Valid && stage1.String != "" {
			if err := json.Unmarshal([]byte(stage1.String), &message.Stage1); err != nil {
				return storage.Conversation{}, fmt.Errorf("decode stage1 payload: %w", err)
			}
		}
		if stage2.Valid && stage2.String != "" {
			if err := json.Unmarshal([]byte(stage2.String), &message.Stage2); err != nil {
				return storage.Conversation{}, fmt.Errorf("decode stage2 payload: %w", err)
			}
		}
		if stage3.Valid && stage3.String != "" {
			message.Stage3 = &domain.Synthesis{}
			if err := json.Unmarshal([]byte(stage3.String), message.Stage3); err != nil {
				return storage.Conversation{}, fmt.Errorf("decode stage3 payload: %w", err)
			}
		}
		conversation.Messages = append(conversation.Messages, message)
	}
	if err := rows.Err(); err != nil {
		return storage.Conversation{}, fmt.Errorf("get conversation messages: %w", err)
	}

	return conversation, nil
}

// ListConversations returns summaries of every conversation, most recently
// updated first.
func (s *Store) ListConversations(ctx context.Context) ([]storage.Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT c.id, c.title, c.created_at, c.updated_at,
		        (SELECT COUNT(*) FROM messages m WHERE m.conversation_id = c.id)
		   FROM conversations c
		  ORDER BY c.updated_at DESC, c.id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var summaries []storage.Summary
	for rows.Next() {
		var summary storage.Summary
		var createdAt, updatedAt int64
		if err := rows.Scan(&summary.ID, &summary.Title, &createdAt, &updatedAt, &summary.MessageCount); err != nil {
			return nil, fmt.Errorf("list conversations: %w", err)
		}
		summary.CreatedAt = fromMillis(createdAt)
		summary.UpdatedAt = fromMillis(updatedAt)
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return summaries, nil
}

// AppendUserMessage appends one user turn.
func (s *Store) AppendUserMessage(ctx context.Context, conversationID, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if err := storage.ValidateConversationID(conversationID); err != nil {
		return err
	}
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("message content is required")
	}

	return s.appendMessage(ctx, conversationID, storage.Message{
		Role:    storage.RoleUser,
		Content: content,
	})
}

// AppendRoundResult appends one assistant turn holding a settled round's
// stage payloads, size-capped. Round metadata never reaches this table.
func (s *Store) AppendRoundResult(ctx context.Context, conversationID string, result domain.RoundResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if err := storage.ValidateConversationID(conversationID); err != nil {
		return err
	}

	return s.appendMessage(ctx, conversationID, storage.AssistantMessage(result, s.maxBytes))
}

func (s *Store) appendMessage(ctx context.Context, conversationID string, message storage.Message) error {
	var stage1, stage2, stage3 sql.NullString
	if message.Stage1 != nil {
		encoded, err := json.Marshal(message.Stage1)
		if err != nil {
			return fmt.Errorf("encode stage1 payload: %w", err)
		}
		stage1 = sql.NullString{String: string(encoded), Valid: true}
	}
	if message.Stage2 != nil {
		encoded, err := json.Marshal(message.Stage2)
		if err != nil {
			return fmt.Errorf("encode stage2 payload: %w", err)
		}
		stage2 = sql.NullString{String: string(encoded), Valid: true}
	}
	if message.Stage3 != nil {
		encoded, err := json.Marshal(message.Stage3)
		if err != nil {
			return fmt.Errorf("encode stage3 payload: %w", err)
		}
		stage3 = sql.NullString{String: string(encoded), Valid: true}
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(
		ctx,
		`UPDATE conversations SET updated_at = ? WHERE id = ?`,
		toMillis(time.Now().UTC()),
		conversationID,
	)
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}

	_, err = tx.ExecContext(
		ctx,
		`INSERT INTO messages (conversation_id, role, content, stage1, stage2, stage3)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		conversationID,
		message.Role,
		message.Content,
		stage1,
		stage2,
		stage3,
	)
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

// UpdateTitle replaces a conversation's title.
func (s *Store) UpdateTitle(ctx context.Context, conversationID, title string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if err := storage.ValidateConversationID(conversationID); err != nil {
		return err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Errorf("title is required")
	}

	result, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE conversations SET title = ?, updated_at = ? WHERE id = ?`,
		title,
		toMillis(time.Now().UTC()),
		conversationID,
	)
	if err != nil {
		return fmt.Errorf("update title: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update title: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

var _ storage.Store = (*Store)(nil)
