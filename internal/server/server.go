// Package server exposes the conversation API over HTTP and streams events
// over a websocket.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/guilhermegouw/parley/internal/apperr"
	"github.com/guilhermegouw/parley/internal/conversation"
	"github.com/guilhermegouw/parley/internal/message"
	"github.com/guilhermegouw/parley/internal/pubsub"
	"github.com/guilhermegouw/parley/internal/session"
)

const maxBodyBytes = 1 << 20

// Server serves the HTTP API.
type Server struct {
	orch    *conversation.Orchestrator
	hub     *pubsub.Hub
	logger  *slog.Logger
	started time.Time
	router  chi.Router
}

// New creates a Server. A nil logger uses slog.Default().
func New(orch *conversation.Orchestrator, hub *pubsub.Hub, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		orch:    orch,
		hub:     hub,
		logger:  logger.With("component", "server"),
		started: time.Now(),
	}
	s.router = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(withLogging(s.logger))
	r.Use(middleware.Recoverer)

	r.Route("/api", func(api chi.Router) {
		api.Get("/health", s.handleHealth)
		api.Get("/status", s.handleStatus)

		api.Group(func(authed chi.Router) {
			authed.Use(requireUser)

			authed.Get("/events", s.handleEvents)
			authed.Post("/messages", s.handleSubmit)

			authed.Route("/sessions", func(sr chi.Router) {
				sr.Get("/", s.handleListSessions)
				sr.Post("/", s.handleCreateSession)

				sr.Route("/{sessionID}", func(one chi.Router) {
					one.Get("/", s.handleSelectSession)
					one.Patch("/", s.handleUpdateSession)
					one.Delete("/", s.handleDeleteSession)
					one.Post("/archive", s.handleArchive(true))
					one.Post("/unarchive", s.handleArchive(false))
					one.Post("/messages", s.handleSubmit)
				})
			})
		})
	})

	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully within shutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln, shutdownTimeout)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("shutting down")

		// Close event streams first; Shutdown does not wait for hijacked connections.
		if s.hub != nil {
			s.hub.Shutdown()
		}
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			return fmt.Errorf("shutting down http: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type statusResponse struct {
	Uptime      string                 `json:"uptime"`
	ActiveTurns int                    `json:"active_turns"`
	Brokers     []pubsub.BrokerMetrics `json:"brokers,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	resp := statusResponse{
		Uptime:      time.Since(s.started).Round(time.Second).String(),
		ActiveTurns: s.orch.ActiveTurns(),
	}
	if s.hub != nil {
		resp.Brokers = s.hub.AllMetrics()
	}
	respondJSON(w, http.StatusOK, resp)
}

type sessionView struct {
	*session.Session
	DisplayTitle string `json:"display_title"`
}

func viewSession(sess *session.Session) sessionView {
	return sessionView{Session: sess, DisplayTitle: sess.DisplayTitle()}
}

func viewSessions(sessions []*session.Session) []sessionView {
	out := make([]sessionView, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, viewSession(sess))
	}
	return out
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	archived := false
	if v := r.URL.Query().Get("archived"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "archived must be a boolean")
			return
		}
		archived = b
	}

	sessions, err := s.orch.ListSessions(r.Context(), ownerFrom(r), archived)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"sessions": viewSessions(sessions)})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Mode string `json:"mode"`
	}
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &payload); err != nil {
			respondErr(w, r, err)
			return
		}
	}
	m, err := session.ParseMode(payload.Mode)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	sess, err := s.orch.CreateSession(r.Context(), ownerFrom(r), m)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, viewSession(sess))
}

func (s *Server) handleSelectSession(w http.ResponseWriter, r *http.Request) {
	tr, err := s.orch.SelectSession(r.Context(), ownerFrom(r), chi.URLParam(r, "sessionID"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"session":  viewSession(tr.Session),
		"messages": tr.Messages,
	})
}

// handleUpdateSession renames and/or (un)archives a session.
func (s *Server) handleUpdateSession(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Title    *string `json:"title"`
		Archived *bool   `json:"archived"`
	}
	if err := decodeJSON(w, r, &payload); err != nil {
		respondErr(w, r, err)
		return
	}
	if payload.Title == nil && payload.Archived == nil {
		respondError(w, http.StatusBadRequest, "nothing to update")
		return
	}

	ctx, owner, id := r.Context(), ownerFrom(r), chi.URLParam(r, "sessionID")

	var (
		sess *session.Session
		err  error
	)
	if payload.Title != nil {
		if sess, err = s.orch.RenameSession(ctx, owner, id, *payload.Title); err != nil {
			respondErr(w, r, err)
			return
		}
	}
	if payload.Archived != nil {
		if *payload.Archived {
			sess, err = s.orch.ArchiveSession(ctx, owner, id)
		} else {
			sess, err = s.orch.UnarchiveSession(ctx, owner, id)
		}
		if err != nil {
			respondErr(w, r, err)
			return
		}
	}
	respondJSON(w, http.StatusOK, viewSession(sess))
}

func (s *Server) handleArchive(archived bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, owner, id := r.Context(), ownerFrom(r), chi.URLParam(r, "sessionID")

		var (
			sess *session.Session
			err  error
		)
		if archived {
			sess, err = s.orch.ArchiveSession(ctx, owner, id)
		} else {
			sess, err = s.orch.UnarchiveSession(ctx, owner, id)
		}
		if err != nil {
			respondErr(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, viewSession(sess))
	}
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.orch.DeleteSession(r.Context(), ownerFrom(r), chi.URLParam(r, "sessionID")); err != nil {
		respondErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type turnResponse struct {
	State            conversation.TurnState `json:"state"`
	Session          *sessionView           `json:"session,omitempty"`
	UserMessage      *message.Message       `json:"user_message,omitempty"`
	AssistantMessage *message.Message       `json:"assistant_message,omitempty"`
	Messages         []*message.Message     `json:"messages,omitempty"`
	Error            *errorBody             `json:"error,omitempty"`
}

// handleSubmit runs a turn. The session comes from the path, the body, or
// is created when neither names one.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		SessionID string `json:"session_id"`
		Text      string `json:"text"`
	}
	if err := decodeJSON(w, r, &payload); err != nil {
		respondErr(w, r, err)
		return
	}
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		sessionID = payload.SessionID
	}

	res, err := s.orch.Submit(r.Context(), ownerFrom(r), sessionID, payload.Text)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	resp := turnResponse{
		State:            res.State,
		UserMessage:      res.UserMessage,
		AssistantMessage: res.AssistantMessage,
		Messages:         res.Messages,
	}
	if res.Session != nil {
		v := viewSession(res.Session)
		resp.Session = &v
	}
	if res.Err != nil {
		resp.Error = &errorBody{Error: res.Err.Error(), Kind: string(apperr.KindOf(res.Err))}
	}
	respondJSON(w, http.StatusOK, resp)
}
