package mode

import (
	"context"
	"fmt"
	"strings"

	"charm.land/fantasy"
)

const classifierPrompt = `You route messages in a chat service. Decide whether the user's message
calls for the specialized mode: emotional support, mental health, personal
distress or a request for a therapeutic conversation. Everyday questions,
tasks and small talk do not.

Answer with a single JSON object and nothing else:
{"isSpecialized": true|false, "reason": "<short reason>"}`

// LLMClassifier asks a language model for a verdict.
type LLMClassifier struct {
	model fantasy.LanguageModel
}

// NewLLMClassifier creates a classifier backed by model.
func NewLLMClassifier(model fantasy.LanguageModel) *LLMClassifier {
	return &LLMClassifier{model: model}
}

// Classify implements Classifier.
func (c *LLMClassifier) Classify(ctx context.Context, text string) (Result, error) {
	maxTokens := int64(128)
	temperature := 0.0

	resp, err := c.model.Generate(ctx, fantasy.Call{
		Prompt: fantasy.Prompt{
			fantasy.NewSystemMessage(classifierPrompt),
			fantasy.NewUserMessage(text),
		},
		MaxOutputTokens: &maxTokens,
		Temperature:     &temperature,
	})
	if err != nil {
		return Result{}, classificationError("mode.llm", fmt.Errorf("calling model: %w", err))
	}

	obj, err := extractObject(resp.Content.Text())
	if err != nil {
		return Result{}, classificationError("mode.llm", err)
	}
	return parseVerdict([]byte(obj))
}

// extractObject returns the outermost {...} in s, tolerating prose or code
// fences around it.
func extractObject(s string) (string, error) {
	trimmed := strings.TrimSpace(s)
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start == -1 || end == -1 || end <= start {
		return "", fmt.Errorf("missing json object in model output")
	}
	return trimmed[start : end+1], nil
}
