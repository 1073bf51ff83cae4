// Package reply produces assistant replies for a session's history.
package reply

import (
	"context"
	"strings"

	"github.com/guilhermegouw/parley/internal/apperr"
	"github.com/guilhermegouw/parley/internal/message"
	"github.com/guilhermegouw/parley/internal/session"
)

// DefaultSystemPrompt is sent ahead of the history when none is configured.
const DefaultSystemPrompt = "You are a helpful, concise assistant."

// SpecializedSystemPrompt is appended for sessions in the specialized mode.
const SpecializedSystemPrompt = `The user may be going through something difficult. Listen carefully,
respond with warmth and without judgement, and ask gentle follow-up questions.
Suggest professional help when the user describes a risk to their safety.`

// Request is one generation call.
type Request struct {
	Mode    session.Mode
	History []*message.Message
}

// Reply is a generated assistant message.
type Reply struct {
	Content string `json:"content"`
	Model   string `json:"model,omitempty"`
}

// Generator answers the last user message of a history.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Reply, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, req Request) (*Reply, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, req Request) (*Reply, error) {
	return f(ctx, req)
}

func generationError(op string, err error) error {
	if apperr.KindOf(err) != "" {
		return err
	}
	return apperr.New(apperr.KindGeneration, op, err)
}

// newReply trims content and rejects blank replies.
func newReply(op, content, model string) (*Reply, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperr.Newf(apperr.KindGeneration, op, "empty reply from %s", modelOrUnknown(model))
	}
	return &Reply{Content: content, Model: model}, nil
}

func modelOrUnknown(model string) string {
	if model == "" {
		return "generator"
	}
	return model
}

func systemPrompt(base string, m session.Mode) string {
	if base == "" {
		base = DefaultSystemPrompt
	}
	if m == session.ModeSpecialized {
		return base + "\n\n" + SpecializedSystemPrompt
	}
	return base
}
