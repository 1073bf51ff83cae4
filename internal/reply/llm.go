package reply

import (
	"context"
	"fmt"

	"charm.land/fantasy"

	"github.com/guilhermegouw/parley/internal/message"
	"github.com/guilhermegouw/parley/internal/provider"
)

// LLMGenerator answers through fantasy models, one per mode tier.
type LLMGenerator struct {
	tiers        provider.Tiers
	systemPrompt string
}

// NewLLMGenerator creates a generator over the built model tiers.
func NewLLMGenerator(tiers provider.Tiers, systemPrompt string) *LLMGenerator {
	return &LLMGenerator{tiers: tiers, systemPrompt: systemPrompt}
}

// Generate implements Generator.
func (g *LLMGenerator) Generate(ctx context.Context, req Request) (*Reply, error) {
	m := g.tiers.ForMode(req.Mode)
	if m.Model == nil {
		return nil, generationError("reply.llm", fmt.Errorf("no model configured for %s mode", req.Mode))
	}

	call := fantasy.Call{
		Prompt: buildPrompt(systemPrompt(g.systemPrompt, req.Mode), req.History),
	}
	if m.ModelCfg.MaxTokens > 0 {
		maxTokens := m.ModelCfg.MaxTokens
		call.MaxOutputTokens = &maxTokens
	}
	if m.ModelCfg.Temperature != nil {
		temperature := *m.ModelCfg.Temperature
		call.Temperature = &temperature
	}

	resp, err := m.Model.Generate(ctx, call)
	if err != nil {
		return nil, generationError("reply.llm", fmt.Errorf("calling %s: %w", m.Name(), err))
	}
	return newReply("reply.llm", resp.Content.Text(), m.Name())
}

// buildPrompt converts the message log into fantasy messages.
func buildPrompt(system string, history []*message.Message) fantasy.Prompt {
	prompt := make(fantasy.Prompt, 0, len(history)+1)
	prompt = append(prompt, fantasy.NewSystemMessage(system))

	for _, msg := range history {
		if msg.IsBlank() {
			continue
		}
		switch msg.Role {
		case message.RoleUser:
			prompt = append(prompt, fantasy.NewUserMessage(msg.Content))
		case message.RoleAssistant:
			prompt = append(prompt, fantasy.Message{
				Role:    fantasy.MessageRoleAssistant,
				Content: []fantasy.MessagePart{fantasy.TextPart{Text: msg.Content}},
			})
		}
	}
	return prompt
}
