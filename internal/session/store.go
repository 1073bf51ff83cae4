// Package session provides session management with persistence.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/guilhermegouw/parley/internal/apperr"
)

// ErrNotFound is returned when a session is not found.
var ErrNotFound = apperr.New(apperr.KindNotFound, "", errors.New("session not found"))

// Mode is a session-level classification that selects the downstream model.
type Mode string

// Mode constants.
const (
	ModeDefault     Mode = "default"
	ModeSpecialized Mode = "specialized"
)

// ParseMode validates a mode string. An empty string is the default mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeDefault:
		return ModeDefault, nil
	case ModeSpecialized:
		return ModeSpecialized, nil
	default:
		return "", apperr.Newf(apperr.KindValidation, "session.mode", "unknown mode %q", s)
	}
}

// CanTransitionTo reports whether a session in mode m may move to next.
// Modes only ever move towards specialized.
func (m Mode) CanTransitionTo(next Mode) bool {
	return m == next || (m == ModeDefault && next == ModeSpecialized)
}

// Session represents a conversation session.
type Session struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Title     string    `json:"title"`
	Mode      Mode      `json:"mode"`
	Archived  bool      `json:"archived"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DisplayTitle returns the title, or "Untitled" when none was set.
func (s *Session) DisplayTitle() string {
	if s.Title == "" {
		return "Untitled"
	}
	return s.Title
}

// Update holds the fields to change in Store.Update. Nil fields are left alone.
type Update struct {
	Title    *string
	Archived *bool
	Mode     *Mode
}

func (u Update) empty() bool {
	return u.Title == nil && u.Archived == nil && u.Mode == nil
}

// Store defines the interface for session persistence.
type Store interface {
	// Create persists a new session record.
	Create(ctx context.Context, s *Session) error

	// Get retrieves a session by ID.
	Get(ctx context.Context, id string) (*Session, error)

	// ListByOwner returns the owner's sessions with the given archived flag,
	// newest first.
	ListByOwner(ctx context.Context, ownerID string, archived bool) ([]*Session, error)

	// Update applies the non-nil fields of u and returns the updated session.
	Update(ctx context.Context, id string, u Update) (*Session, error)

	// Delete removes a session and its messages.
	Delete(ctx context.Context, id string) error
}

func notFound(op, id string) error {
	return apperr.New(apperr.KindNotFound, op, fmt.Errorf("session %s: %w", id, ErrNotFound))
}
