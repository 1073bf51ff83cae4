package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/guilhermegouw/parley/internal/apperr"
	"github.com/guilhermegouw/parley/internal/events"
	"github.com/guilhermegouw/parley/internal/pubsub"
)

// Service manages sessions with pub/sub event publishing.
type Service struct {
	store  Store
	broker pubsub.Publisher[events.SessionEvent]
	logger *slog.Logger
}

// NewService creates a new session service. broker and logger may be nil.
func NewService(store Store, broker pubsub.Publisher[events.SessionEvent], logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  store,
		broker: broker,
		logger: logger.With("component", "session"),
	}
}

// Create creates an untitled, active session in the given mode.
func (s *Service) Create(ctx context.Context, ownerID string, mode Mode) (*Session, error) {
	if err := ValidateOwnerID(ownerID); err != nil {
		return nil, err
	}
	if _, err := ParseMode(string(mode)); err != nil {
		return nil, err
	}
	if mode == "" {
		mode = ModeDefault
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, apperr.Storage("session.create", fmt.Errorf("generating id: %w", err))
	}

	now := time.UnixMilli(time.Now().UnixMilli())
	sess := &Session{
		ID:        id.String(),
		OwnerID:   ownerID,
		Mode:      mode,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Create(ctx, sess); err != nil {
		return nil, err
	}

	s.logger.DebugContext(ctx, "session created", "session_id", sess.ID, "owner_id", ownerID, "mode", mode)
	s.publish(pubsub.EventCreated, events.SessionEventCreated, sess)
	return sess, nil
}

// Get retrieves a session by ID.
func (s *Service) Get(ctx context.Context, id string) (*Session, error) {
	return s.store.Get(ctx, id)
}

// List returns the owner's active or archived sessions, newest first.
func (s *Service) List(ctx context.Context, ownerID string, archived bool) ([]*Session, error) {
	return s.store.ListByOwner(ctx, ownerID, archived)
}

// Rename stores title as given. An empty title displays as "Untitled".
func (s *Service) Rename(ctx context.Context, id, title string) (*Session, error) {
	sess, err := s.store.Update(ctx, id, Update{Title: &title})
	if err != nil {
		return nil, err
	}
	s.publish(pubsub.EventUpdated, events.SessionEventRenamed, sess)
	return sess, nil
}

// SetArchived moves a session between the active and archived views.
// Setting the current value is a no-op.
func (s *Service) SetArchived(ctx context.Context, id string, archived bool) (*Session, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.Archived == archived {
		return sess, nil
	}

	sess, err = s.store.Update(ctx, id, Update{Archived: &archived})
	if err != nil {
		return nil, err
	}

	typ := events.SessionEventUnarchived
	if archived {
		typ = events.SessionEventArchived
	}
	s.publish(pubsub.EventUpdated, typ, sess)
	return sess, nil
}

// UpgradeMode persists a mode transition. Moving a specialized session back
// to default is a policy error.
func (s *Service) UpgradeMode(ctx context.Context, id string, mode Mode) (*Session, error) {
	if _, err := ParseMode(string(mode)); err != nil {
		return nil, err
	}

	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.Mode == mode {
		return sess, nil
	}
	if !sess.Mode.CanTransitionTo(mode) {
		return nil, apperr.Newf(apperr.KindPolicy, "session.upgrade_mode",
			"session %s cannot move from %s to %s", id, sess.Mode, mode)
	}

	sess, err = s.store.Update(ctx, id, Update{Mode: &mode})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "session mode upgraded", "session_id", id, "mode", mode)
	s.publish(pubsub.EventUpdated, events.SessionEventModeUpgraded, sess)
	return sess, nil
}

// Delete removes a session. The caller is responsible for its messages when
// the store does not cascade.
func (s *Service) Delete(ctx context.Context, id string) error {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.DebugContext(ctx, "session deleted", "session_id", id)
	if s.broker != nil {
		s.broker.Publish(pubsub.EventDeleted, events.NewSessionDeletedEvent(id, sess.OwnerID))
	}
	return nil
}

func (s *Service) publish(t pubsub.EventType, typ events.SessionEventType, sess *Session) {
	if s.broker == nil {
		return
	}
	e := events.NewSessionEvent(typ, sess.ID, sess.OwnerID)
	e.Title = sess.Title
	e.Mode = string(sess.Mode)
	e.Archived = sess.Archived
	s.broker.Publish(t, e)
}
