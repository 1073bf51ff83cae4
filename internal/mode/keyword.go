package mode

import (
	"context"
	"strings"
	"unicode"
)

// DefaultKeywords trigger the specialized mode when no list is configured.
var DefaultKeywords = []string{
	"anxious", "anxiety", "depressed", "depression", "panic", "lonely",
	"hopeless", "overwhelmed", "stressed", "grief", "grieving", "therapy",
	"therapist", "self-harm", "suicidal", "worthless", "i feel",
}

// KeywordClassifier flags messages containing any of a set of phrases.
// It never fails.
type KeywordClassifier struct {
	keywords []string
}

// NewKeywordClassifier creates a heuristic classifier. An empty list uses
// DefaultKeywords.
func NewKeywordClassifier(keywords []string) *KeywordClassifier {
	if len(keywords) == 0 {
		keywords = DefaultKeywords
	}
	normalized := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = normalize(k); k != "" {
			normalized = append(normalized, k)
		}
	}
	return &KeywordClassifier{keywords: normalized}
}

// Classify implements Classifier.
func (k *KeywordClassifier) Classify(_ context.Context, text string) (Result, error) {
	padded := " " + normalize(text) + " "
	for _, kw := range k.keywords {
		if strings.Contains(padded, " "+kw+" ") {
			return Result{Specialized: true, Reason: "keyword: " + kw}, nil
		}
	}
	return Result{}, nil
}

// normalize lowercases text and collapses everything but letters, digits and
// hyphens into single spaces.
func normalize(s string) string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	})
	return strings.Join(fields, " ")
}
