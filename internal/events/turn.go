package events

import "time"

// TurnEvent reports the terminal state of one submitted user message.
type TurnEvent struct {
	SessionID string    `json:"session_id"`
	OwnerID   string    `json:"owner_id"`
	State     string    `json:"state"`
	Mode      string    `json:"mode"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewTurnCompletedEvent creates an event for a turn that persisted both messages.
func NewTurnCompletedEvent(sessionID, ownerID, state, mode string) TurnEvent {
	return TurnEvent{
		SessionID: sessionID,
		OwnerID:   ownerID,
		State:     state,
		Mode:      mode,
		Timestamp: time.Now(),
	}
}

// NewTurnFailedEvent creates an event for a turn that ended without a reply.
func NewTurnFailedEvent(sessionID, ownerID, state, mode string, err error) TurnEvent {
	e := NewTurnCompletedEvent(sessionID, ownerID, state, mode)
	if err != nil {
		e.Error = err.Error()
	}
	return e
}
