package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/guilhermegouw/parley/internal/events"
	"github.com/guilhermegouw/parley/internal/pubsub"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// frame is one event sent to a websocket client.
type frame struct {
	Stream    string           `json:"stream"`
	Type      pubsub.EventType `json:"type"`
	Payload   any              `json:"payload,omitempty"`
	Timestamp int64            `json:"timestamp"`
}

// ownedSessions tracks which sessions an event stream may see. Filters run
// on the publisher's goroutine, so access is locked.
type ownedSessions struct {
	mu  sync.RWMutex
	ids map[string]struct{}
}

func (o *ownedSessions) add(id string) {
	o.mu.Lock()
	o.ids[id] = struct{}{}
	o.mu.Unlock()
}

func (o *ownedSessions) remove(id string) {
	o.mu.Lock()
	delete(o.ids, id)
	o.mu.Unlock()
}

func (o *ownedSessions) has(id string) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	_, ok := o.ids[id]
	return ok
}

// handleEvents streams the caller's session, message and turn events.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		respondError(w, http.StatusServiceUnavailable, "event stream unavailable")
		return
	}
	owner := ownerFrom(r)
	log := requestLogger(r)

	owned := &ownedSessions{ids: make(map[string]struct{})}
	for _, archived := range []bool{false, true} {
		sessions, err := s.orch.ListSessions(r.Context(), owner, archived)
		if err != nil {
			respondErr(w, r, err)
			return
		}
		for _, sess := range sessions {
			owned.add(sess.ID)
		}
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WarnContext(r.Context(), "websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sessionCh := s.hub.Session.SubscribeFunc(ctx, func(e events.SessionEvent) bool {
		if e.OwnerID != owner {
			return false
		}
		// Track membership here so message events that follow are let through.
		if e.Type == events.SessionEventDeleted {
			owned.remove(e.SessionID)
		} else {
			owned.add(e.SessionID)
		}
		return true
	})
	messageCh := s.hub.Message.SubscribeFunc(ctx, func(e events.MessageEvent) bool {
		return owned.has(e.SessionID)
	})
	turnCh := s.hub.Turn.SubscribeFunc(ctx, func(e events.TurnEvent) bool {
		return e.OwnerID == owner
	})

	go readPump(conn, cancel)

	log.DebugContext(ctx, "event stream opened", "owner_id", owner)
	defer log.DebugContext(ctx, "event stream closed", "owner_id", owner)

	if err := writeFrame(conn, frame{Stream: "control", Type: "connected", Timestamp: time.Now().UnixMilli()}); err != nil {
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		var f frame
		select {
		case <-ctx.Done():
			return
		case e, ok := <-sessionCh:
			if !ok {
				closeStream(conn)
				return
			}
			f = frame{Stream: "session", Type: e.Type, Payload: e.Payload, Timestamp: e.Timestamp.UnixMilli()}
		case e, ok := <-messageCh:
			if !ok {
				closeStream(conn)
				return
			}
			f = frame{Stream: "message", Type: e.Type, Payload: e.Payload, Timestamp: e.Timestamp.UnixMilli()}
		case e, ok := <-turnCh:
			if !ok {
				closeStream(conn)
				return
			}
			f = frame{Stream: "turn", Type: e.Type, Payload: e.Payload, Timestamp: e.Timestamp.UnixMilli()}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck // the write below reports failures
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			continue
		}

		if err := writeFrame(conn, f); err != nil {
			log.DebugContext(ctx, "event stream write failed", "error", err)
			return
		}
	}
}

func writeFrame(conn *websocket.Conn, f frame) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck // WriteJSON reports failures
	return conn.WriteJSON(f)
}

// readPump discards client frames and cancels the stream once the client goes away.
func readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	_ = conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck // reads report failures
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func closeStream(conn *websocket.Conn) {
	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait)) //nolint:errcheck // best effort
}
