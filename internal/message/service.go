package message

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/guilhermegouw/parley/internal/apperr"
	"github.com/guilhermegouw/parley/internal/events"
	"github.com/guilhermegouw/parley/internal/pubsub"
	"github.com/guilhermegouw/parley/internal/session"
)

// Service manages the message log with pub/sub event publishing.
type Service struct {
	store  Store
	broker pubsub.Publisher[events.MessageEvent]
	logger *slog.Logger
}

// NewService creates a new message service. broker and logger may be nil.
func NewService(store Store, broker pubsub.Publisher[events.MessageEvent], logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  store,
		broker: broker,
		logger: logger.With("component", "message"),
	}
}

// AppendOption customizes a message before it is stored.
type AppendOption func(*Message)

// WithModel records the model that produced the message.
func WithModel(model string) AppendOption {
	return func(m *Message) { m.Model = model }
}

// Append trims content and stores it in the session's log. Blank content is
// ignored: Append returns nil, nil and nothing is stored.
func (s *Service) Append(
	ctx context.Context,
	sessionID string,
	role Role,
	content string,
	mode session.Mode,
	opts ...AppendOption,
) (*Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, nil
	}
	if !role.Valid() {
		return nil, apperr.Newf(apperr.KindValidation, "message.append", "unknown role %q", role)
	}

	msg := &Message{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		Mode:      mode,
		CreatedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(msg)
	}

	if err := s.store.Append(ctx, msg); err != nil {
		return nil, err
	}

	if s.broker != nil {
		s.broker.Publish(pubsub.EventCreated, events.NewMessageAddedEvent(
			msg.SessionID, msg.ID, string(msg.Role), string(msg.Mode), msg.Content, msg.Seq))
	}
	return msg, nil
}

// List returns the session's visible messages in chronological order.
// Stored messages with blank content are skipped.
func (s *Service) List(ctx context.Context, sessionID string) ([]*Message, error) {
	all, err := s.store.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	msgs := make([]*Message, 0, len(all))
	for _, m := range all {
		if m.IsBlank() {
			s.logger.DebugContext(ctx, "skipping blank message", "session_id", sessionID, "message_id", m.ID)
			continue
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

// DeleteBySession removes every message of a session.
func (s *Service) DeleteBySession(ctx context.Context, sessionID string) error {
	if err := s.store.DeleteBySession(ctx, sessionID); err != nil {
		return fmt.Errorf("clearing session %s: %w", sessionID, err)
	}
	return nil
}
