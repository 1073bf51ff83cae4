package message

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/guilhermegouw/parley/internal/apperr"
)

// SessionLookup reports whether a session exists. It returns nil when it does.
type SessionLookup func(ctx context.Context, sessionID string) error

// MemoryStore is an in-process Store used when no database is configured.
type MemoryStore struct {
	mu       sync.Mutex
	lookup   SessionLookup
	sessions map[string][]Message
}

// NewMemoryStore creates an empty in-memory message store. When lookup is
// non-nil, appends to sessions it rejects fail.
func NewMemoryStore(lookup SessionLookup) *MemoryStore {
	return &MemoryStore{
		lookup:   lookup,
		sessions: make(map[string][]Message),
	}
}

// Append persists msg and fills in its Seq and CreatedAt.
func (m *MemoryStore) Append(ctx context.Context, msg *Message) error {
	if m.lookup != nil {
		if err := m.lookup(ctx, msg.SessionID); err != nil {
			if apperr.KindOf(err) == apperr.KindNotFound {
				return apperr.New(apperr.KindNotFound, "message.append",
					fmt.Errorf("session %s: %w", msg.SessionID, ErrSessionNotFound))
			}
			return apperr.Storage("message.append", err)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	log := m.sessions[msg.SessionID]
	msg.Seq = 1
	msg.CreatedAt = time.UnixMilli(msg.CreatedAt.UnixMilli())
	if n := len(log); n > 0 {
		last := log[n-1]
		msg.Seq = last.Seq + 1
		if !msg.CreatedAt.After(last.CreatedAt) {
			msg.CreatedAt = last.CreatedAt.Add(time.Millisecond)
		}
	}
	m.sessions[msg.SessionID] = append(log, *msg)
	return nil
}

// ListBySession returns a session's messages in append order.
func (m *MemoryStore) ListBySession(_ context.Context, sessionID string) ([]*Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	log := m.sessions[sessionID]
	msgs := make([]*Message, len(log))
	for i := range log {
		msg := log[i]
		msgs[i] = &msg
	}
	return msgs, nil
}

// DeleteBySession removes all messages for a session.
func (m *MemoryStore) DeleteBySession(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	return nil
}
