package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/guilhermegouw/parley/internal/apperr"
)

// MemoryStore is an in-process Store used when no database is configured.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]Session)}
}

// Create persists a new session record.
func (m *MemoryStore) Create(_ context.Context, sess *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[sess.ID]; ok {
		return apperr.Newf(apperr.KindStorage, "session.create", "session %s already exists", sess.ID)
	}
	m.sessions[sess.ID] = *sess
	return nil
}

// Get retrieves a session by ID.
func (m *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, ok := m.sessions[id]
	if !ok {
		return nil, notFound("session.get", id)
	}
	return &sess, nil
}

// ListByOwner returns the owner's sessions with the given archived flag,
// newest first.
func (m *MemoryStore) ListByOwner(_ context.Context, ownerID string, archived bool) ([]*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sessions := []*Session{}
	for _, sess := range m.sessions {
		if sess.OwnerID == ownerID && sess.Archived == archived {
			sess := sess
			sessions = append(sessions, &sess)
		}
	}

	sort.Slice(sessions, func(i, j int) bool {
		if !sessions[i].CreatedAt.Equal(sessions[j].CreatedAt) {
			return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
		}
		return sessions[i].ID > sessions[j].ID
	})
	return sessions, nil
}

// Update applies the non-nil fields of u and returns the updated session.
func (m *MemoryStore) Update(_ context.Context, id string, u Update) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[id]
	if !ok {
		return nil, notFound("session.update", id)
	}
	if u.empty() {
		return &sess, nil
	}

	if u.Title != nil {
		sess.Title = *u.Title
	}
	if u.Archived != nil {
		sess.Archived = *u.Archived
	}
	if u.Mode != nil {
		sess.Mode = *u.Mode
	}
	sess.UpdatedAt = time.UnixMilli(time.Now().UnixMilli())
	m.sessions[id] = sess

	return &sess, nil
}

// Delete removes a session. Callers remove its messages from the message store.
func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return notFound("session.delete", id)
	}
	delete(m.sessions, id)
	return nil
}
