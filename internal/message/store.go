package message

import (
	"context"
)

// Store defines the interface for message persistence.
type Store interface {
	// Append persists msg. The store assigns Seq and raises CreatedAt so that
	// both strictly increase within the session. Appending to a missing
	// session fails with ErrSessionNotFound.
	Append(ctx context.Context, msg *Message) error

	// ListBySession returns a session's messages in append order.
	ListBySession(ctx context.Context, sessionID string) ([]*Message, error)

	// DeleteBySession removes all messages for a session.
	DeleteBySession(ctx context.Context, sessionID string) error
}
