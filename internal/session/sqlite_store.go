package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/guilhermegouw/parley/internal/apperr"
)

const sessionColumns = `id, owner_id, title, mode, archived, created_at, updated_at`

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-backed session store.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Create persists a new session record.
func (s *SQLiteStore) Create(ctx context.Context, sess *Session) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (`+sessionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.OwnerID, sess.Title, string(sess.Mode), sess.Archived,
		sess.CreatedAt.UnixMilli(), sess.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return apperr.Storage("session.create", fmt.Errorf("creating session: %w", err))
	}
	return nil
}

// Get retrieves a session by ID.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)

	sess, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("session.get", id)
		}
		return nil, apperr.Storage("session.get", fmt.Errorf("getting session: %w", err))
	}
	return sess, nil
}

// ListByOwner returns the owner's sessions with the given archived flag,
// newest first.
func (s *SQLiteStore) ListByOwner(ctx context.Context, ownerID string, archived bool) ([]*Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions
		 WHERE owner_id = ? AND archived = ?
		 ORDER BY created_at DESC, id DESC`,
		ownerID, archived)
	if err != nil {
		return nil, apperr.Storage("session.list", fmt.Errorf("listing sessions: %w", err))
	}
	defer rows.Close()

	sessions := []*Session{}
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, apperr.Storage("session.list", fmt.Errorf("scanning session: %w", err))
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("session.list", fmt.Errorf("listing sessions: %w", err))
	}
	return sessions, nil
}

// Update applies the non-nil fields of u and returns the updated session.
func (s *SQLiteStore) Update(ctx context.Context, id string, u Update) (*Session, error) {
	if u.empty() {
		return s.Get(ctx, id)
	}

	sets := make([]string, 0, 4)
	args := make([]any, 0, 5)
	if u.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *u.Title)
	}
	if u.Archived != nil {
		sets = append(sets, "archived = ?")
		args = append(args, *u.Archived)
	}
	if u.Mode != nil {
		sets = append(sets, "mode = ?")
		args = append(args, string(*u.Mode))
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UnixMilli(), id)

	row := s.db.QueryRowContext(ctx,
		`UPDATE sessions SET `+strings.Join(sets, ", ")+` WHERE id = ? RETURNING `+sessionColumns,
		args...)

	sess, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("session.update", id)
		}
		return nil, apperr.Storage("session.update", fmt.Errorf("updating session: %w", err))
	}
	return sess, nil
}

// Delete removes a session. Messages go with it through the foreign key cascade.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return apperr.Storage("session.delete", fmt.Errorf("deleting session: %w", err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperr.Storage("session.delete", fmt.Errorf("deleting session: %w", err))
	}
	if n == 0 {
		return notFound("session.delete", id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*Session, error) {
	var (
		sess               Session
		mode               string
		createdAt, updated int64
	)
	if err := row.Scan(&sess.ID, &sess.OwnerID, &sess.Title, &mode, &sess.Archived, &createdAt, &updated); err != nil {
		return nil, err
	}
	sess.Mode = Mode(mode)
	sess.CreatedAt = time.UnixMilli(createdAt)
	sess.UpdatedAt = time.UnixMilli(updated)
	return &sess, nil
}
