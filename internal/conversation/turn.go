package conversation

import (
	"github.com/guilhermegouw/parley/internal/message"
	"github.com/guilhermegouw/parley/internal/session"
)

// TurnState is the terminal state of a submitted user message.
type TurnState string

// Turn states.
const (
	// TurnCompleted means both the user message and the reply were stored.
	TurnCompleted TurnState = "completed"
	// TurnPartialFailure means the user message was stored but no reply was produced.
	TurnPartialFailure TurnState = "partial_failure"
	// TurnRejected means the input was blank and nothing was stored.
	TurnRejected TurnState = "rejected"
)

// TurnResult describes how a turn ended.
type TurnResult struct {
	State            TurnState
	Session          *session.Session
	UserMessage      *message.Message
	AssistantMessage *message.Message
	// Messages is the session transcript after the turn.
	Messages []*message.Message
	// Err is the generation failure behind a partial failure.
	Err error
}

// Transcript is a session with its visible messages.
type Transcript struct {
	Session  *session.Session   `json:"session"`
	Messages []*message.Message `json:"messages"`
}
