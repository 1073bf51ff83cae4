// Package mode decides whether a user message puts its session into the
// specialized mode.
package mode

import (
	"context"
	"log/slog"

	"github.com/guilhermegouw/parley/internal/apperr"
)

// Result is a classifier verdict for one message.
type Result struct {
	Specialized bool   `json:"isSpecialized"`
	Reason      string `json:"reason,omitempty"`
}

// Classifier inspects a user message.
type Classifier interface {
	Classify(ctx context.Context, text string) (Result, error)
}

// ClassifierFunc adapts a function to the Classifier interface.
type ClassifierFunc func(ctx context.Context, text string) (Result, error)

// Classify calls f.
func (f ClassifierFunc) Classify(ctx context.Context, text string) (Result, error) {
	return f(ctx, text)
}

func classificationError(op string, err error) error {
	if apperr.KindOf(err) != "" {
		return err
	}
	return apperr.New(apperr.KindClassification, op, err)
}

// Fallback consults secondary when primary fails. The secondary's error, if
// any, is returned joined with the primary's.
type Fallback struct {
	primary   Classifier
	secondary Classifier
	logger    *slog.Logger
}

// NewFallback creates a Fallback classifier.
func NewFallback(primary, secondary Classifier, logger *slog.Logger) *Fallback {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fallback{primary: primary, secondary: secondary, logger: logger}
}

// Classify implements Classifier.
func (f *Fallback) Classify(ctx context.Context, text string) (Result, error) {
	res, err := f.primary.Classify(ctx, text)
	if err == nil {
		return res, nil
	}
	f.logger.WarnContext(ctx, "primary classifier failed, using fallback", "error", err)

	res, err2 := f.secondary.Classify(ctx, text)
	if err2 != nil {
		return Result{}, classificationError("mode.fallback", err2)
	}
	if res.Reason == "" {
		res.Reason = "fallback"
	}
	return res, nil
}
