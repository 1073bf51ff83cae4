package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/guilhermegouw/parley/internal/apperr"
	"github.com/guilhermegouw/parley/internal/db"
	"github.com/guilhermegouw/parley/internal/events"
	"github.com/guilhermegouw/parley/internal/message"
	"github.com/guilhermegouw/parley/internal/mode"
	"github.com/guilhermegouw/parley/internal/pubsub"
	"github.com/guilhermegouw/parley/internal/reply"
	"github.com/guilhermegouw/parley/internal/session"
)

const owner = "alice"

type harness struct {
	orch     *Orchestrator
	sessions *session.Service
	messages *message.Service
	hub      *pubsub.Hub
}

// newHarness wires an orchestrator over in-memory stores.
func newHarness(t *testing.T, classifier mode.Classifier, generator reply.Generator, opts ...Option) *harness {
	t.Helper()

	hub := pubsub.NewHub()
	t.Cleanup(hub.Shutdown)

	sessStore := session.NewMemoryStore()
	msgStore := message.NewMemoryStore(func(ctx context.Context, id string) error {
		_, err := sessStore.Get(ctx, id)
		return err
	})
	return build(hub, sessStore, msgStore, classifier, generator, opts...)
}

// newSQLiteHarness wires an orchestrator over a temporary database.
func newSQLiteHarness(t *testing.T, classifier mode.Classifier, generator reply.Generator) *harness {
	t.Helper()

	database, err := db.Open(context.Background(), t.TempDir()+"/test.db")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() }) //nolint:errcheck // Intentionally ignoring close error in test cleanup

	hub := pubsub.NewHub()
	t.Cleanup(hub.Shutdown)

	return build(hub, session.NewSQLiteStore(database.Conn()), message.NewSQLiteStore(database.Conn()),
		classifier, generator)
}

func build(
	hub *pubsub.Hub,
	sessStore session.Store,
	msgStore message.Store,
	classifier mode.Classifier,
	generator reply.Generator,
	opts ...Option,
) *harness {
	sessions := session.NewService(sessStore, hub.Session, nil)
	messages := message.NewService(msgStore, hub.Message, nil)
	opts = append([]Option{WithTurnBroker(hub.Turn)}, opts...)
	return &harness{
		orch:     New(sessions, messages, classifier, generator, opts...),
		sessions: sessions,
		messages: messages,
		hub:      hub,
	}
}

// keywordClassifier flags messages that contain "anxious".
var keywordClassifier = mode.ClassifierFunc(func(_ context.Context, text string) (mode.Result, error) {
	return mode.Result{Specialized: strings.Contains(text, "anxious")}, nil
})

var failingClassifier = mode.ClassifierFunc(func(context.Context, string) (mode.Result, error) {
	return mode.Result{}, errors.New("classifier unavailable")
})

// echoGenerator replies with the mode and the last message.
var echoGenerator = reply.GeneratorFunc(func(_ context.Context, req reply.Request) (*reply.Reply, error) {
	last := req.History[len(req.History)-1]
	return &reply.Reply{Content: fmt.Sprintf("[%s] %s", req.Mode, last.Content), Model: "echo"}, nil
})

var failingGenerator = reply.GeneratorFunc(func(context.Context, reply.Request) (*reply.Reply, error) {
	return nil, apperr.Newf(apperr.KindGeneration, "test", "provider down")
})

func TestSubmit_NewSession(t *testing.T) {
	h := newHarness(t, keywordClassifier, echoGenerator)
	ctx := context.Background()

	res, err := h.orch.Submit(ctx, owner, "", "hello")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if res.State != TurnCompleted {
		t.Fatalf("expected completed, got %s", res.State)
	}
	if res.Session.Mode != session.ModeDefault {
		t.Errorf("expected default mode, got %s", res.Session.Mode)
	}

	sessions, err := h.orch.ListSessions(ctx, owner, false)
	if err != nil {
		t.Fatalf("ListSessions() error = %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("expected 1 session, got %d", len(sessions))
	}

	tr, err := h.orch.SelectSession(ctx, owner, res.Session.ID)
	if err != nil {
		t.Fatalf("SelectSession() error = %v", err)
	}
	if len(tr.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(tr.Messages))
	}
	if tr.Messages[0].Role != message.RoleUser || tr.Messages[0].Content != "hello" {
		t.Errorf("unexpected user message: %+v", tr.Messages[0])
	}
	if tr.Messages[1].Role != message.RoleAssistant || tr.Messages[1].Content != "[default] hello" {
		t.Errorf("unexpected assistant message: %+v", tr.Messages[1])
	}
	if tr.Messages[1].Model != "echo" {
		t.Errorf("expected model 'echo', got %q", tr.Messages[1].Model)
	}
}

func TestSubmit_GenerationFailure(t *testing.T) {
	h := newHarness(t, keywordClassifier, failingGenerator)
	ctx := context.Background()

	res, err := h.orch.Submit(ctx, owner, "", "hello")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if res.State != TurnPartialFailure {
		t.Fatalf("expected partial failure, got %s", res.State)
	}
	if !errors.Is(res.Err, apperr.ErrGeneration) {
		t.Errorf("expected generation error, got %v", res.Err)
	}
	if res.AssistantMessage != nil {
		t.Error("no assistant message should be stored")
	}

	tr, err := h.orch.SelectSession(ctx, owner, res.Session.ID)
	if err != nil {
		t.Fatalf("SelectSession() error = %v", err)
	}
	if len(tr.Messages) != 1 || tr.Messages[0].Content != "hello" {
		t.Errorf("user message should remain: %+v", tr.Messages)
	}
}

func TestSubmit_ModeUpgrade(t *testing.T) {
	h := newHarness(t, keywordClassifier, echoGenerator)
	ctx := context.Background()

	first, err := h.orch.Submit(ctx, owner, "", "I feel anxious")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if first.Session.Mode != session.ModeSpecialized {
		t.Fatalf("expected specialized, got %s", first.Session.Mode)
	}
	if first.UserMessage.Mode != session.ModeSpecialized || first.AssistantMessage.Mode != session.ModeSpecialized {
		t.Error("both messages should be tagged specialized")
	}
	if first.AssistantMessage.Content != "[specialized] I feel anxious" {
		t.Errorf("reply should be generated in specialized mode, got %q", first.AssistantMessage.Content)
	}

	second, err := h.orch.Submit(ctx, owner, first.Session.ID, "what's the weather")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if second.Session.Mode != session.ModeSpecialized {
		t.Errorf("mode must not revert, got %s", second.Session.Mode)
	}
	if second.UserMessage.Mode != session.ModeSpecialized {
		t.Errorf("later messages keep specialized mode, got %s", second.UserMessage.Mode)
	}
	if len(second.Messages) != 4 {
		t.Errorf("expected 4 messages in transcript, got %d", len(second.Messages))
	}
}

func TestSubmit_ClassifierFailureKeepsMode(t *testing.T) {
	h := newHarness(t, failingClassifier, echoGenerator)

	res, err := h.orch.Submit(context.Background(), owner, "", "I feel anxious")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if res.State != TurnCompleted {
		t.Errorf("expected completed, got %s", res.State)
	}
	if res.Session.Mode != session.ModeDefault {
		t.Errorf("expected default mode, got %s", res.Session.Mode)
	}
}

func TestSubmit_ClassifierTimeout(t *testing.T) {
	slow := mode.ClassifierFunc(func(ctx context.Context, _ string) (mode.Result, error) {
		<-ctx.Done()
		return mode.Result{Specialized: true}, ctx.Err()
	})
	h := newHarness(t, slow, echoGenerator, WithClassifierTimeout(20*time.Millisecond))

	res, err := h.orch.Submit(context.Background(), owner, "", "I feel anxious")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if res.State != TurnCompleted || res.Session.Mode != session.ModeDefault {
		t.Errorf("unexpected result: state=%s mode=%s", res.State, res.Session.Mode)
	}
}

func TestSubmit_GeneratorTimeout(t *testing.T) {
	slow := reply.GeneratorFunc(func(ctx context.Context, _ reply.Request) (*reply.Reply, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	h := newHarness(t, nil, slow, WithGeneratorTimeout(20*time.Millisecond))

	res, err := h.orch.Submit(context.Background(), owner, "", "hello")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if res.State != TurnPartialFailure {
		t.Fatalf("expected partial failure, got %s", res.State)
	}
	if !errors.Is(res.Err, apperr.ErrGeneration) || !errors.Is(res.Err, context.DeadlineExceeded) {
		t.Errorf("expected generation error wrapping deadline, got %v", res.Err)
	}
}

func TestSubmit_EmptyReplyIsPartialFailure(t *testing.T) {
	blank := reply.GeneratorFunc(func(context.Context, reply.Request) (*reply.Reply, error) {
		return &reply.Reply{Content: "  "}, nil
	})
	h := newHarness(t, nil, blank)

	res, err := h.orch.Submit(context.Background(), owner, "", "hello")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if res.State != TurnPartialFailure {
		t.Errorf("expected partial failure, got %s", res.State)
	}
}

func TestSubmit_BlankInput(t *testing.T) {
	var generated atomic.Int32
	gen := reply.GeneratorFunc(func(ctx context.Context, req reply.Request) (*reply.Reply, error) {
		generated.Add(1)
		return echoGenerator(ctx, req)
	})
	h := newHarness(t, keywordClassifier, gen)
	ctx := context.Background()

	for _, input := range []string{"", "   ", "\n\t"} {
		res, err := h.orch.Submit(ctx, owner, "", input)
		if err != nil {
			t.Fatalf("Submit(%q) error = %v", input, err)
		}
		if res.State != TurnRejected {
			t.Errorf("Submit(%q) state = %s, want rejected", input, res.State)
		}
	}

	sessions, err := h.orch.ListSessions(ctx, owner, false)
	if err != nil {
		t.Fatalf("ListSessions() error = %v", err)
	}
	if len(sessions) != 0 {
		t.Errorf("no session should be created, got %d", len(sessions))
	}
	if generated.Load() != 0 {
		t.Error("generator should not be called")
	}

	// Blank input to an existing session leaves its log alone.
	res, err := h.orch.Submit(ctx, owner, "", "hello")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if _, err := h.orch.Submit(ctx, owner, res.Session.ID, "   "); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	tr, err := h.orch.SelectSession(ctx, owner, res.Session.ID)
	if err != nil {
		t.Fatalf("SelectSession() error = %v", err)
	}
	if len(tr.Messages) != 2 {
		t.Errorf("expected 2 messages, got %d", len(tr.Messages))
	}
}

func TestSubmit_UnknownOrForeignSession(t *testing.T) {
	h := newHarness(t, nil, echoGenerator)
	ctx := context.Background()

	if _, err := h.orch.Submit(ctx, owner, "missing", "hello"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}

	res, err := h.orch.Submit(ctx, owner, "", "hello")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if _, err := h.orch.Submit(ctx, "mallory", res.Session.ID, "hi"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found for another owner, got %v", err)
	}
	if _, err := h.orch.SelectSession(ctx, "mallory", res.Session.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found for another owner, got %v", err)
	}
}

func TestSubmit_RequiresOwner(t *testing.T) {
	h := newHarness(t, nil, echoGenerator)
	if _, err := h.orch.Submit(context.Background(), "", "", "hello"); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestDeleteSession(t *testing.T) {
	for name, h := range map[string]*harness{
		"memory": newHarness(t, nil, echoGenerator),
		"sqlite": newSQLiteHarness(t, nil, echoGenerator),
	} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			res, err := h.orch.Submit(ctx, owner, "", "one")
			if err != nil {
				t.Fatalf("Submit() error = %v", err)
			}
			id := res.Session.ID
			for _, text := range []string{"two", "three"} {
				if _, err := h.orch.Submit(ctx, owner, id, text); err != nil {
					t.Fatalf("Submit() error = %v", err)
				}
			}
			tr, err := h.orch.SelectSession(ctx, owner, id)
			if err != nil {
				t.Fatalf("SelectSession() error = %v", err)
			}
			if len(tr.Messages) != 6 {
				t.Fatalf("expected 6 messages, got %d", len(tr.Messages))
			}

			if err := h.orch.DeleteSession(ctx, owner, id); err != nil {
				t.Fatalf("DeleteSession() error = %v", err)
			}

			if _, err := h.orch.SelectSession(ctx, owner, id); !errors.Is(err, apperr.ErrNotFound) {
				t.Errorf("expected not found after delete, got %v", err)
			}
			msgs, err := h.messages.List(ctx, id)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(msgs) != 0 {
				t.Errorf("expected no messages after delete, got %d", len(msgs))
			}
			if err := h.orch.DeleteSession(ctx, owner, id); !errors.Is(err, apperr.ErrNotFound) {
				t.Errorf("second delete should be not found, got %v", err)
			}
		})
	}
}

func TestArchiveAndRename(t *testing.T) {
	h := newHarness(t, nil, echoGenerator)
	ctx := context.Background()

	a, err := h.orch.CreateSession(ctx, owner, session.ModeDefault)
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	b, err := h.orch.CreateSession(ctx, owner, session.ModeDefault)
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	if _, err := h.orch.ArchiveSession(ctx, owner, a.ID); err != nil {
		t.Fatalf("ArchiveSession() error = %v", err)
	}
	// Archiving twice is a no-op.
	if _, err := h.orch.ArchiveSession(ctx, owner, a.ID); err != nil {
		t.Fatalf("ArchiveSession() error = %v", err)
	}

	active, _ := h.orch.ListSessions(ctx, owner, false)  //nolint:errcheck // checked via length
	archived, _ := h.orch.ListSessions(ctx, owner, true) //nolint:errcheck // checked via length
	if len(active) != 1 || active[0].ID != b.ID {
		t.Errorf("unexpected active list: %v", active)
	}
	if len(archived) != 1 || archived[0].ID != a.ID {
		t.Errorf("unexpected archived list: %v", archived)
	}

	if _, err := h.orch.UnarchiveSession(ctx, owner, a.ID); err != nil {
		t.Fatalf("UnarchiveSession() error = %v", err)
	}
	active, _ = h.orch.ListSessions(ctx, owner, false) //nolint:errcheck // checked via length
	if len(active) != 2 || active[0].ID != b.ID {
		t.Errorf("expected both sessions newest first, got %v", active)
	}

	renamed, err := h.orch.RenameSession(ctx, owner, a.ID, "  Weekend plans ")
	if err != nil {
		t.Fatalf("RenameSession() error = %v", err)
	}
	if renamed.Title != "  Weekend plans " {
		t.Errorf("expected title stored as given, got %q", renamed.Title)
	}
	if _, err := h.orch.RenameSession(ctx, "mallory", a.ID, "x"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found for another owner, got %v", err)
	}
	if _, err := h.orch.ArchiveSession(ctx, owner, "missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestSubmit_ConcurrentSameSession(t *testing.T) {
	for name, h := range map[string]*harness{
		"memory": newHarness(t, keywordClassifier, echoGenerator),
		"sqlite": newSQLiteHarness(t, keywordClassifier, echoGenerator),
	} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			first, err := h.orch.Submit(ctx, owner, "", "start")
			if err != nil {
				t.Fatalf("Submit() error = %v", err)
			}
			id := first.Session.ID

			const n = 10
			g, gctx := errgroup.WithContext(ctx)
			for i := range n {
				g.Go(func() error {
					text := fmt.Sprintf("msg %d", i)
					if i == n/2 {
						text = "I feel anxious"
					}
					res, err := h.orch.Submit(gctx, owner, id, text)
					if err != nil {
						return err
					}
					if res.State != TurnCompleted {
						return fmt.Errorf("turn %d ended %s", i, res.State)
					}
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				t.Fatalf("concurrent submit: %v", err)
			}

			msgs, err := h.messages.List(ctx, id)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(msgs) != 2*(n+1) {
				t.Fatalf("expected %d messages, got %d", 2*(n+1), len(msgs))
			}

			for i, m := range msgs {
				if m.Seq != int64(i+1) {
					t.Errorf("message %d has seq %d", i, m.Seq)
				}
				if i > 0 && !m.CreatedAt.After(msgs[i-1].CreatedAt) {
					t.Errorf("created_at not strictly increasing at %d", i)
				}
				// Pairs never interleave: every user message is answered next.
				wantRole := message.RoleUser
				if i%2 == 1 {
					wantRole = message.RoleAssistant
				}
				if m.Role != wantRole {
					t.Fatalf("message %d role = %s, want %s", i, m.Role, wantRole)
				}
				if i%2 == 1 && !strings.HasSuffix(m.Content, msgs[i-1].Content) {
					t.Errorf("reply %q does not answer %q", m.Content, msgs[i-1].Content)
				}
				if i%2 == 1 && m.Mode != msgs[i-1].Mode {
					t.Errorf("reply mode %s differs from user message mode %s", m.Mode, msgs[i-1].Mode)
				}
			}

			sess, err := h.sessions.Get(ctx, id)
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if sess.Mode != session.ModeSpecialized {
				t.Errorf("expected specialized after concurrent upgrade, got %s", sess.Mode)
			}
			if h.orch.ActiveTurns() != 0 {
				t.Errorf("expected no active turns, got %d", h.orch.ActiveTurns())
			}
		})
	}
}

func TestSubmit_ConcurrentSessionsDoNotBlock(t *testing.T) {
	started := make(chan struct{}, 2)
	release := make(chan struct{})
	var once sync.Once
	gen := reply.GeneratorFunc(func(ctx context.Context, req reply.Request) (*reply.Reply, error) {
		started <- struct{}{}
		<-release
		return echoGenerator(ctx, req)
	})
	h := newHarness(t, nil, gen)
	ctx := context.Background()

	g, gctx := errgroup.WithContext(ctx)
	for range 2 {
		g.Go(func() error {
			_, err := h.orch.Submit(gctx, owner, "", "hello")
			return err
		})
	}

	// Both turns reach the generator while neither has finished.
	for range 2 {
		select {
		case <-started:
		case <-time.After(2 * time.Second):
			once.Do(func() { close(release) })
			t.Fatal("turns on different sessions blocked each other")
		}
	}
	once.Do(func() { close(release) })

	if err := g.Wait(); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
}

func TestSubmit_SlowClassificationKeepsArrivalOrder(t *testing.T) {
	classifying := make(chan struct{})
	release := make(chan struct{})
	classifier := mode.ClassifierFunc(func(_ context.Context, text string) (mode.Result, error) {
		if text == "first" {
			close(classifying)
			<-release
		}
		return mode.Result{}, nil
	})
	h := newHarness(t, classifier, echoGenerator)
	ctx := context.Background()

	sess, err := h.orch.CreateSession(ctx, owner, session.ModeDefault)
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := h.orch.Submit(gctx, owner, sess.ID, "first")
		return err
	})

	select {
	case <-classifying:
	case <-time.After(2 * time.Second):
		close(release)
		t.Fatal("first turn never reached the classifier")
	}

	g.Go(func() error {
		_, err := h.orch.Submit(gctx, owner, sess.ID, "second")
		return err
	})

	// Wait until the second turn is queued behind the first.
	deadline := time.Now().Add(2 * time.Second)
	for h.orch.locks.queued(sess.ID) < 2 {
		if time.Now().After(deadline) {
			close(release)
			t.Fatal("second turn never queued")
		}
		time.Sleep(time.Millisecond)
	}
	close(release)

	if err := g.Wait(); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	msgs, err := h.messages.List(ctx, sess.ID)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	var users []string
	for _, m := range msgs {
		if m.Role == message.RoleUser {
			users = append(users, m.Content)
		}
	}
	if len(users) != 2 || users[0] != "first" || users[1] != "second" {
		t.Errorf("user messages = %v, want [first second]", users)
	}
}

func TestSubmit_PublishesEvents(t *testing.T) {
	h := newHarness(t, keywordClassifier, echoGenerator)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	turns := h.hub.Turn.Subscribe(ctx)
	sessionsCh := h.hub.Session.Subscribe(ctx)
	messagesCh := h.hub.Message.Subscribe(ctx)

	if _, err := h.orch.Submit(ctx, owner, "", "I feel anxious"); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	created := receive(t, sessionsCh)
	if created.Payload.Type != events.SessionEventCreated {
		t.Errorf("expected created, got %s", created.Payload.Type)
	}
	upgraded := receive(t, sessionsCh)
	if upgraded.Payload.Type != events.SessionEventModeUpgraded {
		t.Errorf("expected mode_upgraded, got %s", upgraded.Payload.Type)
	}

	for _, role := range []string{"user", "assistant"} {
		e := receive(t, messagesCh)
		if e.Payload.Role != role || e.Payload.Mode != "specialized" {
			t.Errorf("unexpected message event: %+v", e.Payload)
		}
	}

	turn := receive(t, turns)
	if turn.Type != pubsub.EventCompleted || turn.Payload.State != string(TurnCompleted) {
		t.Errorf("unexpected turn event: %+v", turn)
	}
	if turn.Payload.OwnerID != owner {
		t.Errorf("expected owner %q, got %q", owner, turn.Payload.OwnerID)
	}
}

func TestSubmit_PublishesFailedTurn(t *testing.T) {
	h := newHarness(t, nil, failingGenerator)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	turns := h.hub.Turn.Subscribe(ctx)
	if _, err := h.orch.Submit(ctx, owner, "", "hello"); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	turn := receive(t, turns)
	if turn.Type != pubsub.EventFailed || turn.Payload.Error == "" {
		t.Errorf("unexpected turn event: %+v", turn)
	}
}

func receive[T any](t *testing.T, ch <-chan pubsub.Event[T]) pubsub.Event[T] {
	t.Helper()
	select {
	case e, ok := <-ch:
		if !ok {
			t.Fatal("channel closed")
		}
		return e
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
	var zero pubsub.Event[T]
	return zero
}
