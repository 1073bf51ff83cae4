// Package pubsub provides a type-safe pub/sub broker implementation.
package pubsub

import "time"

// EventType represents the type of event.
type EventType string

// Event types shared by the session, message and turn streams.
const (
	EventCreated   EventType = "created"
	EventUpdated   EventType = "updated"
	EventDeleted   EventType = "deleted"
	EventCompleted EventType = "completed"
	EventFailed    EventType = "failed"
)

// Event wraps a payload with its type and publish time.
type Event[T any] struct { //nolint:govet // fieldalignment: preserving logical field order
	Type      EventType `json:"type"`
	Payload   T         `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher is the publishing side of a Broker.
type Publisher[T any] interface {
	Publish(EventType, T)
}
