// Package sqlite provides the durable ChatStore used in production.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/tjfontaine/chat-assistant/internal/core/domain"
	"github.com/tjfontaine/chat-assistant/internal/core/ports"
)

// Store is a SQLite implementation of ChatStore.
type Store struct {
	db *sql.DB
}

var _ ports.ChatStore = (*Store)(nil)

// dsnOptions ride on the DSN so every pooled connection gets them.
// _txlock=immediate makes each transaction take the write lock at
// BEGIN, so concurrent appenders queue on busy_timeout instead of
// failing a deferred lock upgrade mid-transaction.
const dsnOptions = "_txlock=immediate" +
	"&_pragma=journal_mode(WAL)" +
	"&_pragma=synchronous(NORMAL)" +
	"&_pragma=busy_timeout(5000)" +
	"&_pragma=foreign_keys(1)"

// New opens (or creates) the database at dbPath and ensures the schema.
func New(dbPath string) (*Store, error) {
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	db, err := sql.Open("sqlite", dbPath+sep+dsnOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS conversations (
			id TEXT PRIMARY KEY,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			media TEXT,
			created_at TIMESTAMP NOT NULL,
			FOREIGN KEY (conversation_id) REFERENCES conversations(id) ON DELETE CASCADE,
			UNIQUE (conversation_id, position)
		)`,
		`CREATE TABLE IF NOT EXISTS session_owners (
			conversation_id TEXT PRIMARY KEY,
			principal_id TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			FOREIGN KEY (conversation_id) REFERENCES conversations(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, position)`,
		`CREATE INDEX IF NOT EXISTS idx_session_owners_principal ON session_owners(principal_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}

	return nil
}

// InitConversation loads the record for sessionID, creating an empty
// row when none exists. INSERT OR IGNORE keeps concurrent first
// accesses from racing on the primary key.
func (s *Store) InitConversation(ctx context.Context, sessionID string) ([]domain.Message, error) {
	now := time.Now()
	if _, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO conversations (id, created_at, updated_at) VALUES (?, ?, ?)`,
		sessionID, now, now,
	); err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}

	return s.getMessages(ctx, sessionID)
}

func (s *Store) getMessages(ctx context.Context, sessionID string) ([]domain.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT role, content, media FROM messages
		 WHERE conversation_id = ?
		 ORDER BY position ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var role, content string
		var mediaJSON sql.NullString
		if err := rows.Scan(&role, &content, &mediaJSON); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}

		msg := domain.NewTextMessage(domain.Role(role), content)
		if mediaJSON.Valid && mediaJSON.String != "" {
			if err := json.Unmarshal([]byte(mediaJSON.String), &msg.Content.Media); err != nil {
				return nil, fmt.Errorf("failed to unmarshal media: %w", err)
			}
		}
		messages = append(messages, msg)
	}

	return messages, rows.Err()
}

// AppendMessages appends msgs inside a single transaction so one
// invoke round-trip (human message plus reply) commits atomically.
func (s *Store) AppendMessages(ctx context.Context, sessionID string, msgs []domain.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var next int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position), -1) + 1 FROM messages WHERE conversation_id = ?`,
		sessionID,
	).Scan(&next); err != nil {
		return fmt.Errorf("failed to determine message position: %w", err)
	}

	now := time.Now()
	for i, msg := range msgs {
		var mediaJSON any
		if len(msg.Content.Media) > 0 {
			raw, err := json.Marshal(msg.Content.Media)
			if err != nil {
				return fmt.Errorf("failed to marshal media: %w", err)
			}
			mediaJSON = string(raw)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO messages (id, conversation_id, position, role, content, media, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			uuid.NewString(), sessionID, next+i, string(msg.Role), msg.Content.Text, mediaJSON, now,
		); err != nil {
			return fmt.Errorf("failed to insert message: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE conversations SET updated_at = ? WHERE id = ?`,
		now, sessionID,
	); err != nil {
		return fmt.Errorf("failed to update conversation: %w", err)
	}

	return tx.Commit()
}

func (s *Store) GetOwner(ctx context.Context, sessionID string) (string, bool, error) {
	var principal string
	err := s.db.QueryRowContext(ctx,
		`SELECT principal_id FROM session_owners WHERE conversation_id = ?`,
		sessionID,
	).Scan(&principal)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get session owner: %w", err)
	}
	return principal, true, nil
}

// SetOwner records the ownership link once. The primary key on
// conversation_id plus INSERT OR IGNORE makes repeated calls for the
// same principal no-ops; a conflicting principal is rejected.
func (s *Store) SetOwner(ctx context.Context, sessionID, principal string) error {
	if _, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO session_owners (conversation_id, principal_id, created_at) VALUES (?, ?, ?)`,
		sessionID, principal, time.Now(),
	); err != nil {
		return fmt.Errorf("failed to set session owner: %w", err)
	}

	owner, ok, err := s.GetOwner(ctx, sessionID)
	if err != nil {
		return err
	}
	if !ok || owner != principal {
		return fmt.Errorf("session %s is owned by another principal", sessionID)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
