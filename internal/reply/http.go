package reply

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/tidwall/gjson"

	"github.com/guilhermegouw/parley/internal/session"
)

const maxResponseBytes = 4 << 20

// HTTPGenerator posts the conversation to a chat completion endpoint.
//
// Request:  {"model": "...", "mode": "...", "messages": [{"role", "content"}]}
// Response: {"choices": [{"message": {"content": "..."}}]} or the legacy {"reply": "..."}.
type HTTPGenerator struct {
	url          string
	apiKey       string
	client       *http.Client
	models       map[session.Mode]string
	systemPrompt string
}

// HTTPOption configures an HTTPGenerator.
type HTTPOption func(*HTTPGenerator)

// WithAPIKey sends key as a bearer token.
func WithAPIKey(key string) HTTPOption {
	return func(g *HTTPGenerator) { g.apiKey = key }
}

// WithModels sets the model name requested for each mode.
func WithModels(models map[session.Mode]string) HTTPOption {
	return func(g *HTTPGenerator) {
		for k, v := range models {
			g.models[k] = v
		}
	}
}

// WithSystemPrompt overrides the system message sent ahead of the history.
func WithSystemPrompt(prompt string) HTTPOption {
	return func(g *HTTPGenerator) { g.systemPrompt = prompt }
}

// NewHTTPGenerator creates a generator that posts to url. A nil client uses
// http.DefaultClient; deadlines come from the request context.
func NewHTTPGenerator(url string, client *http.Client, opts ...HTTPOption) *HTTPGenerator {
	if client == nil {
		client = http.DefaultClient
	}
	g := &HTTPGenerator{
		url:    url,
		client: client,
		models: map[session.Mode]string{
			session.ModeDefault:     "gpt-3.5-turbo",
			session.ModeSpecialized: "gpt-4",
		},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Mode     session.Mode  `json:"mode"`
	Messages []chatMessage `json:"messages"`
}

// Generate implements Generator.
func (g *HTTPGenerator) Generate(ctx context.Context, req Request) (*Reply, error) {
	model := g.models[req.Mode]

	payload := chatRequest{
		Model: model,
		Mode:  req.Mode,
		Messages: []chatMessage{{
			Role:    "system",
			Content: systemPrompt(g.systemPrompt, req.Mode),
		}},
	}
	for _, msg := range req.History {
		if msg.IsBlank() {
			continue
		}
		payload.Messages = append(payload.Messages, chatMessage{Role: string(msg.Role), Content: msg.Content})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, generationError("reply.http", fmt.Errorf("encoding request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return nil, generationError("reply.http", fmt.Errorf("creating request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, generationError("reply.http", fmt.Errorf("calling generator: %w", err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, generationError("reply.http", fmt.Errorf("reading response: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, generationError("reply.http", fmt.Errorf("generator returned status %d: %s",
			resp.StatusCode, gjson.GetBytes(data, "error.message").String()))
	}
	if !gjson.ValidBytes(data) {
		return nil, generationError("reply.http", fmt.Errorf("response is not JSON"))
	}

	content := gjson.GetBytes(data, "choices.0.message.content").String()
	if content == "" {
		content = gjson.GetBytes(data, "reply").String()
	}
	if m := gjson.GetBytes(data, "model").String(); m != "" {
		model = m
	}
	return newReply("reply.http", content, model)
}
