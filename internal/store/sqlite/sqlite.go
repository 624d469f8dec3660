package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"
	"github.com/vovakirdan/batepapo-server/internal/store"
)

// Schema creates the participants and messages tables. It is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS participants (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL UNIQUE,
	last_status INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	seq       INTEGER PRIMARY KEY AUTOINCREMENT,
	id        TEXT NOT NULL UNIQUE,
	sender    TEXT NOT NULL,
	recipient TEXT NOT NULL,
	text      TEXT NOT NULL,
	type      TEXT NOT NULL,
	time      TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_type ON messages(type);
`

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

var _ store.Store = (*SQLiteStore)(nil)

// New opens the database at dbPath and applies Schema.
// Use ":memory:" for an ephemeral store.
func New(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Single connection: serializes writes and keeps :memory: databases alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== ParticipantStore implementation ====

// CreateParticipant inserts a participant, mapping the unique name constraint to store.ErrDuplicate.
func (s *SQLiteStore) CreateParticipant(ctx context.Context, p *store.Participant) error {
	query := `
		INSERT INTO participants (id, name, last_status)
		VALUES (?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, p.ID, p.Name, p.LastStatus); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert participant %q: %w", p.Name, store.ErrDuplicate)
		}
		return fmt.Errorf("insert participant: %w", err)
	}
	return nil
}

// GetParticipant retrieves a participant by name.
func (s *SQLiteStore) GetParticipant(ctx context.Context, name string) (*store.Participant, error) {
	query := `
		SELECT id, name, last_status
		FROM participants
		WHERE name = ?
	`
	var p store.Participant
	err := s.db.QueryRowContext(ctx, query, name).Scan(&p.ID, &p.Name, &p.LastStatus)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("participant %q: %w", name, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query participant: %w", err)
	}
	return &p, nil
}

// ListParticipants returns every participant.
func (s *SQLiteStore) ListParticipants(ctx context.Context) ([]*store.Participant, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, last_status FROM participants`)
	if err != nil {
		return nil, fmt.Errorf("query participants: %w", err)
	}
	defer rows.Close()

	participants := make([]*store.Participant, 0)
	for rows.Next() {
		var p store.Participant
		if err := rows.Scan(&p.ID, &p.Name, &p.LastStatus); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		participants = append(participants, &p)
	}

	return participants, rows.Err()
}

// TouchParticipant updates last_status for name.
func (s *SQLiteStore) TouchParticipant(ctx context.Context, name string, lastStatus int64) error {
	result, err := s.db.ExecContext(ctx, `UPDATE participants SET last_status = ? WHERE name = ?`, lastStatus, name)
	if err != nil {
		return fmt.Errorf("update participant: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("participant %q: %w", name, store.ErrNotFound)
	}
	return nil
}

// DeleteParticipants removes the named participants with a single statement.
func (s *SQLiteStore) DeleteParticipants(ctx context.Context, names []string) (int64, error) {
	if len(names) == 0 {
		return 0, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(names)), ",")
	args := make([]any, len(names))
	for i, name := range names {
		args[i] = name
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM participants WHERE name IN (`+placeholders+`)`, args...)
	if err != nil {
		return 0, fmt.Errorf("delete participants: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	return affected, nil
}

// ==== MessageStore implementation ====

// SaveMessage appends a message; insertion order is kept by the seq column.
func (s *SQLiteStore) SaveMessage(ctx context.Context, msg *store.Message) error {
	query := `
		INSERT INTO messages (id, sender, recipient, text, type, time)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, msg.ID, msg.From, msg.To, msg.Text, msg.Type, msg.Time); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// ListMessages returns messages visible to q.Viewer, newest first.
func (s *SQLiteStore) ListMessages(ctx context.Context, q store.MessageQuery) ([]*store.Message, error) {
	query := `
		SELECT id, sender, recipient, text, type, time
		FROM messages
		WHERE type <> ?
		   OR sender = ?
		   OR recipient = ?
		ORDER BY seq DESC
	`
	args := []any{store.MessageTypePrivate, q.Viewer, q.Viewer}
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	messages := make([]*store.Message, 0)
	for rows.Next() {
		var msg store.Message
		if err := rows.Scan(&msg.ID, &msg.From, &msg.To, &msg.Text, &msg.Type, &msg.Time); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, &msg)
	}

	return messages, rows.Err()
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
