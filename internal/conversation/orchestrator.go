// Package conversation runs chat turns: it resolves the session, classifies
// the message, stores it, asks the generator for a reply and stores that.
package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/guilhermegouw/parley/internal/apperr"
	"github.com/guilhermegouw/parley/internal/config"
	"github.com/guilhermegouw/parley/internal/events"
	"github.com/guilhermegouw/parley/internal/logging"
	"github.com/guilhermegouw/parley/internal/message"
	"github.com/guilhermegouw/parley/internal/mode"
	"github.com/guilhermegouw/parley/internal/pubsub"
	"github.com/guilhermegouw/parley/internal/reply"
	"github.com/guilhermegouw/parley/internal/session"
)

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithClassifierTimeout bounds each classifier call.
func WithClassifierTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.classifierTimeout = d }
}

// WithGeneratorTimeout bounds each generator call.
func WithGeneratorTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.generatorTimeout = d }
}

// WithLogger sets the logger. Request-scoped loggers from the context take
// precedence when present.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithTurnBroker publishes a TurnEvent when each turn ends.
func WithTurnBroker(b pubsub.Publisher[events.TurnEvent]) Option {
	return func(o *Orchestrator) { o.turns = b }
}

// Orchestrator is the entry point for the presentation layer.
type Orchestrator struct {
	sessions   *session.Service
	messages   *message.Service
	classifier mode.Classifier
	generator  reply.Generator
	turns      pubsub.Publisher[events.TurnEvent]
	logger     *slog.Logger
	locks      *turnLocks

	classifierTimeout time.Duration
	generatorTimeout  time.Duration
}

// New creates an Orchestrator. A nil classifier leaves every session in the
// mode it was created with.
func New(
	sessions *session.Service,
	messages *message.Service,
	classifier mode.Classifier,
	generator reply.Generator,
	opts ...Option,
) *Orchestrator {
	o := &Orchestrator{
		sessions:          sessions,
		messages:          messages,
		classifier:        classifier,
		generator:         generator,
		locks:             newTurnLocks(),
		classifierTimeout: config.DefaultClassifierTimeout,
		generatorTimeout:  config.DefaultGeneratorTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	o.logger = o.logger.With("component", "conversation")
	return o
}

// Submit runs one turn. sessionID may be empty to start a new session.
// Storage failures are returned as errors; a failed generation is reported
// as a partial failure in the result.
func (o *Orchestrator) Submit(ctx context.Context, ownerID, sessionID, text string) (*TurnResult, error) {
	log := o.log(ctx)

	text = strings.TrimSpace(text)
	if text == "" {
		log.DebugContext(ctx, "rejected blank message", "session_id", sessionID)
		return &TurnResult{State: TurnRejected}, nil
	}
	if err := session.ValidateOwnerID(ownerID); err != nil {
		return nil, err
	}

	sess, err := o.resolveSession(ctx, ownerID, sessionID)
	if err != nil {
		return nil, err
	}

	// Turns on one session queue in arrival order from here on.
	release, err := o.locks.acquire(ctx, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("waiting for session %s: %w", sess.ID, err)
	}
	defer release()

	// Another turn may have upgraded or removed the session while we waited.
	if sess, err = o.sessions.Get(ctx, sess.ID); err != nil {
		return nil, err
	}

	sess, err = o.classify(ctx, sess, text)
	if err != nil {
		return nil, err
	}

	userMsg, err := o.messages.Append(ctx, sess.ID, message.RoleUser, text, sess.Mode)
	if err != nil {
		return nil, err
	}

	history, err := o.messages.List(ctx, sess.ID)
	if err != nil {
		return nil, err
	}

	result := &TurnResult{Session: sess, UserMessage: userMsg, Messages: history}

	rep, err := o.generate(ctx, sess.Mode, history)
	if err != nil {
		log.ErrorContext(ctx, "generation failed", "session_id", sess.ID, "mode", sess.Mode, "error", err)
		result.State = TurnPartialFailure
		result.Err = err
		o.publishTurn(events.NewTurnFailedEvent(sess.ID, ownerID, string(result.State), string(sess.Mode), err))
		return result, nil
	}

	assistantMsg, err := o.messages.Append(ctx, sess.ID, message.RoleAssistant, rep.Content, sess.Mode,
		message.WithModel(rep.Model))
	if err != nil {
		return nil, err
	}

	result.State = TurnCompleted
	result.AssistantMessage = assistantMsg
	result.Messages = append(result.Messages, assistantMsg)

	log.InfoContext(ctx, "turn completed", "session_id", sess.ID, "mode", sess.Mode, "model", rep.Model)
	o.publishTurn(events.NewTurnCompletedEvent(sess.ID, ownerID, string(result.State), string(sess.Mode)))
	return result, nil
}

func (o *Orchestrator) resolveSession(ctx context.Context, ownerID, sessionID string) (*session.Session, error) {
	if sessionID == "" {
		return o.sessions.Create(ctx, ownerID, session.ModeDefault)
	}
	return o.owned(ctx, ownerID, sessionID)
}

// classify upgrades the session when the classifier flags the message.
// Classifier failures leave the session untouched.
func (o *Orchestrator) classify(ctx context.Context, sess *session.Session, text string) (*session.Session, error) {
	if o.classifier == nil {
		return sess, nil
	}

	cctx, cancel := context.WithTimeout(ctx, o.classifierTimeout)
	res, err := o.classifier.Classify(cctx, text)
	cancel()
	if err != nil {
		o.log(ctx).WarnContext(ctx, "classification failed, keeping mode",
			"session_id", sess.ID, "mode", sess.Mode, "error", err)
		return sess, nil
	}

	if !res.Specialized || sess.Mode == session.ModeSpecialized {
		return sess, nil
	}

	o.log(ctx).DebugContext(ctx, "message classified as specialized", "session_id", sess.ID, "reason", res.Reason)
	return o.sessions.UpgradeMode(ctx, sess.ID, session.ModeSpecialized)
}

func (o *Orchestrator) generate(ctx context.Context, m session.Mode, history []*message.Message) (*reply.Reply, error) {
	gctx, cancel := context.WithTimeout(ctx, o.generatorTimeout)
	defer cancel()

	rep, err := o.generator.Generate(gctx, reply.Request{Mode: m, History: history})
	if err != nil {
		if apperr.KindOf(err) == "" {
			err = apperr.New(apperr.KindGeneration, "conversation.generate", err)
		}
		return nil, err
	}
	if rep == nil || strings.TrimSpace(rep.Content) == "" {
		return nil, apperr.Newf(apperr.KindGeneration, "conversation.generate", "empty reply")
	}
	return rep, nil
}

// owned loads a session and hides sessions that belong to someone else.
func (o *Orchestrator) owned(ctx context.Context, ownerID, sessionID string) (*session.Session, error) {
	sess, err := o.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.OwnerID != ownerID {
		return nil, apperr.Newf(apperr.KindNotFound, "conversation.session", "session %s not found", sessionID)
	}
	return sess, nil
}

// CreateSession starts an empty session in the given mode.
func (o *Orchestrator) CreateSession(ctx context.Context, ownerID string, m session.Mode) (*session.Session, error) {
	return o.sessions.Create(ctx, ownerID, m)
}

// ListSessions returns the owner's active or archived sessions, newest first.
func (o *Orchestrator) ListSessions(ctx context.Context, ownerID string, archived bool) ([]*session.Session, error) {
	if err := session.ValidateOwnerID(ownerID); err != nil {
		return nil, err
	}
	return o.sessions.List(ctx, ownerID, archived)
}

// SelectSession returns a session and its transcript.
func (o *Orchestrator) SelectSession(ctx context.Context, ownerID, sessionID string) (*Transcript, error) {
	sess, err := o.owned(ctx, ownerID, sessionID)
	if err != nil {
		return nil, err
	}
	msgs, err := o.messages.List(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &Transcript{Session: sess, Messages: msgs}, nil
}

// RenameSession sets a session title. An empty title is allowed.
func (o *Orchestrator) RenameSession(ctx context.Context, ownerID, sessionID, title string) (*session.Session, error) {
	if _, err := o.owned(ctx, ownerID, sessionID); err != nil {
		return nil, err
	}
	return o.sessions.Rename(ctx, sessionID, title)
}

// ArchiveSession moves a session to the archived view.
func (o *Orchestrator) ArchiveSession(ctx context.Context, ownerID, sessionID string) (*session.Session, error) {
	return o.setArchived(ctx, ownerID, sessionID, true)
}

// UnarchiveSession moves a session back to the active view.
func (o *Orchestrator) UnarchiveSession(ctx context.Context, ownerID, sessionID string) (*session.Session, error) {
	return o.setArchived(ctx, ownerID, sessionID, false)
}

func (o *Orchestrator) setArchived(ctx context.Context, ownerID, sessionID string, archived bool) (*session.Session, error) {
	if _, err := o.owned(ctx, ownerID, sessionID); err != nil {
		return nil, err
	}
	return o.sessions.SetArchived(ctx, sessionID, archived)
}

// DeleteSession removes a session and its messages. It waits for a turn in
// progress on the session to finish first.
func (o *Orchestrator) DeleteSession(ctx context.Context, ownerID, sessionID string) error {
	if _, err := o.owned(ctx, ownerID, sessionID); err != nil {
		return err
	}

	release, err := o.locks.acquire(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("waiting for session %s: %w", sessionID, err)
	}
	defer release()

	if err := o.sessions.Delete(ctx, sessionID); err != nil {
		return err
	}
	// Stores without a cascade keep the messages until told otherwise.
	if err := o.messages.DeleteBySession(ctx, sessionID); err != nil {
		return err
	}

	o.log(ctx).InfoContext(ctx, "session deleted", "session_id", sessionID)
	return nil
}

// ActiveTurns returns the number of sessions with a turn running or queued.
func (o *Orchestrator) ActiveTurns() int {
	return o.locks.active()
}

func (o *Orchestrator) publishTurn(e events.TurnEvent) {
	if o.turns == nil {
		return
	}
	t := pubsub.EventCompleted
	if e.State != string(TurnCompleted) {
		t = pubsub.EventFailed
	}
	o.turns.Publish(t, e)
}

func (o *Orchestrator) log(ctx context.Context) *slog.Logger {
	if logging.RequestID(ctx) == "" {
		return o.logger
	}
	return o.logger.With("request_id", logging.RequestID(ctx))
}
