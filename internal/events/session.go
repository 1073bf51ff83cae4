// Package events defines the payloads published on the pub/sub hub.
package events

import "time"

// SessionEventType represents session-specific event types.
type SessionEventType string

// Session event type constants.
const (
	SessionEventCreated      SessionEventType = "created"
	SessionEventRenamed      SessionEventType = "renamed"
	SessionEventArchived     SessionEventType = "archived"
	SessionEventUnarchived   SessionEventType = "unarchived"
	SessionEventModeUpgraded SessionEventType = "mode_upgraded"
	SessionEventDeleted      SessionEventType = "deleted"
)

// SessionEvent represents a session lifecycle event.
type SessionEvent struct {
	SessionID string           `json:"session_id"`
	OwnerID   string           `json:"owner_id"`
	Title     string           `json:"title,omitempty"`
	Mode      string           `json:"mode,omitempty"`
	Archived  bool             `json:"archived"`
	Type      SessionEventType `json:"type"`
	Timestamp time.Time        `json:"timestamp"`
}

// NewSessionEvent creates a session event of the given type.
func NewSessionEvent(typ SessionEventType, sessionID, ownerID string) SessionEvent {
	return SessionEvent{
		SessionID: sessionID,
		OwnerID:   ownerID,
		Type:      typ,
		Timestamp: time.Now(),
	}
}

// NewSessionDeletedEvent creates a session deleted event.
func NewSessionDeletedEvent(sessionID, ownerID string) SessionEvent {
	return NewSessionEvent(SessionEventDeleted, sessionID, ownerID)
}

// MessageEvent is published when a message is appended to a session log.
type MessageEvent struct {
	SessionID string    `json:"session_id"`
	MessageID string    `json:"message_id"`
	Role      string    `json:"role"`
	Mode      string    `json:"mode"`
	Text      string    `json:"text"`
	Seq       int64     `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMessageAddedEvent creates a message added event.
func NewMessageAddedEvent(sessionID, messageID, role, mode, text string, seq int64) MessageEvent {
	return MessageEvent{
		SessionID: sessionID,
		MessageID: messageID,
		Role:      role,
		Mode:      mode,
		Text:      text,
		Seq:       seq,
		Timestamp: time.Now(),
	}
}
