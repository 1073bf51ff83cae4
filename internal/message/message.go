// Package message provides the ordered per-session message log.
package message

import (
	"errors"
	"strings"
	"time"

	"github.com/guilhermegouw/parley/internal/apperr"
	"github.com/guilhermegouw/parley/internal/session"
)

// ErrSessionNotFound is returned when appending to a session that does not exist.
var ErrSessionNotFound = apperr.New(apperr.KindNotFound, "", errors.New("session not found"))

// Role represents the role of a message sender.
type Role string

// Role constants.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Message is one entry in a session's log. Messages are never mutated.
type Message struct {
	ID        string       `json:"id"`
	SessionID string       `json:"session_id"`
	Role      Role         `json:"role"`
	Content   string       `json:"content"`
	Mode      session.Mode `json:"mode"`
	Model     string       `json:"model,omitempty"`
	Seq       int64        `json:"seq"`
	CreatedAt time.Time    `json:"created_at"`
}

// IsBlank reports whether the message has no visible content.
func (m *Message) IsBlank() bool {
	return strings.TrimSpace(m.Content) == ""
}
