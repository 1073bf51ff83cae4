package message

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ncruces/go-sqlite3"

	"github.com/guilhermegouw/parley/internal/apperr"
	"github.com/guilhermegouw/parley/internal/session"
)

// appendQuery computes seq and created_at from the session's latest row in
// the same statement, so concurrent appends cannot tie.
const appendQuery = `
INSERT INTO messages (id, session_id, role, content, mode, model, seq, created_at)
SELECT ?, ?, ?, ?, ?, ?,
       COALESCE(MAX(seq), 0) + 1,
       MAX(?, COALESCE(MAX(created_at), 0) + 1)
FROM messages WHERE session_id = ?
RETURNING seq, created_at`

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-backed message store.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Append persists msg and fills in its Seq and CreatedAt.
func (s *SQLiteStore) Append(ctx context.Context, msg *Message) error {
	var seq, createdAt int64
	err := s.db.QueryRowContext(ctx, appendQuery,
		msg.ID, msg.SessionID, string(msg.Role), msg.Content, string(msg.Mode), msg.Model,
		msg.CreatedAt.UnixMilli(), msg.SessionID,
	).Scan(&seq, &createdAt)
	if err != nil {
		if errors.Is(err, sqlite3.CONSTRAINT_FOREIGNKEY) {
			return apperr.New(apperr.KindNotFound, "message.append",
				fmt.Errorf("session %s: %w", msg.SessionID, ErrSessionNotFound))
		}
		return apperr.Storage("message.append", fmt.Errorf("appending message: %w", err))
	}

	msg.Seq = seq
	msg.CreatedAt = time.UnixMilli(createdAt)
	return nil
}

// ListBySession returns a session's messages in append order.
func (s *SQLiteStore) ListBySession(ctx context.Context, sessionID string) ([]*Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, role, content, mode, model, seq, created_at
		 FROM messages WHERE session_id = ? ORDER BY seq ASC`, sessionID)
	if err != nil {
		return nil, apperr.Storage("message.list", fmt.Errorf("listing messages: %w", err))
	}
	defer rows.Close()

	msgs := []*Message{}
	for rows.Next() {
		var (
			m               Message
			role, mode      string
			createdAtMillis int64
		)
		if err := rows.Scan(&m.ID, &m.SessionID, &role, &m.Content, &mode, &m.Model, &m.Seq, &createdAtMillis); err != nil {
			return nil, apperr.Storage("message.list", fmt.Errorf("scanning message: %w", err))
		}
		m.Role = Role(role)
		m.Mode = session.Mode(mode)
		m.CreatedAt = time.UnixMilli(createdAtMillis)
		msgs = append(msgs, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("message.list", fmt.Errorf("listing messages: %w", err))
	}
	return msgs, nil
}

// DeleteBySession removes all messages for a session.
func (s *SQLiteStore) DeleteBySession(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE session_id = ?`, sessionID); err != nil {
		return apperr.Storage("message.delete", fmt.Errorf("deleting messages: %w", err))
	}
	return nil
}
