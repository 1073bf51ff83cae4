// Package provider handles LLM provider instantiation and management.
package provider

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/charmbracelet/catwalk/pkg/catwalk"

	"charm.land/fantasy"
	"charm.land/fantasy/providers/anthropic"
	"charm.land/fantasy/providers/openai"

	"github.com/guilhermegouw/parley/internal/config"
	"github.com/guilhermegouw/parley/internal/session"
)

// Model wraps a fantasy language model with its metadata.
type Model struct {
	// Model is the fantasy language model interface.
	Model fantasy.LanguageModel
	// ModelCfg holds the user's selected configuration.
	ModelCfg config.SelectedModel
	// ProviderType is the catwalk type of the provider serving the model.
	ProviderType catwalk.Type
}

// Name returns the configured model ID.
func (m Model) Name() string {
	return m.ModelCfg.Model
}

// Tiers holds the models for each session mode.
type Tiers struct {
	Large Model
	Small Model
}

// ForMode returns the model that answers sessions in the given mode:
// specialized sessions get the large tier.
func (t Tiers) ForMode(m session.Mode) Model {
	if m == session.ModeSpecialized {
		return t.Large
	}
	return t.Small
}

// TierFor maps a session mode to its configured model tier.
func TierFor(m session.Mode) config.SelectedModelType {
	if m == session.ModeSpecialized {
		return config.SelectedModelTypeLarge
	}
	return config.SelectedModelTypeSmall
}

// Builder creates fantasy providers from configuration.
type Builder struct {
	cfg   *config.Config
	mu    sync.Mutex
	cache map[string]fantasy.Provider
}

// NewBuilder creates a new provider Builder.
func NewBuilder(cfg *config.Config) *Builder {
	return &Builder{
		cfg:   cfg,
		cache: make(map[string]fantasy.Provider),
	}
}

// BuildModels creates the large and small models from configuration.
func (b *Builder) BuildModels(ctx context.Context) (Tiers, error) {
	largeCfg, ok := b.cfg.Models[config.SelectedModelTypeLarge]
	if !ok {
		return Tiers{}, fmt.Errorf("large model not configured")
	}
	large, err := b.buildModel(ctx, largeCfg)
	if err != nil {
		return Tiers{}, fmt.Errorf("building large model: %w", err)
	}

	smallCfg, ok := b.cfg.Models[config.SelectedModelTypeSmall]
	if !ok {
		// Fall back to large model if small not configured.
		return Tiers{Large: large, Small: large}, nil
	}
	small, err := b.buildModel(ctx, smallCfg)
	if err != nil {
		return Tiers{}, fmt.Errorf("building small model: %w", err)
	}

	return Tiers{Large: large, Small: small}, nil
}

// buildModel creates a Model from a selected model configuration.
func (b *Builder) buildModel(ctx context.Context, modelCfg config.SelectedModel) (Model, error) {
	providerCfg, ok := b.cfg.Providers[modelCfg.Provider]
	if !ok {
		return Model{}, fmt.Errorf("provider %q not configured", modelCfg.Provider)
	}
	if providerCfg.Disable {
		return Model{}, fmt.Errorf("provider %q is disabled", modelCfg.Provider)
	}

	provider, err := b.getOrBuildProvider(providerCfg)
	if err != nil {
		return Model{}, err
	}

	lm, err := provider.LanguageModel(ctx, modelCfg.Model)
	if err != nil {
		return Model{}, fmt.Errorf("getting language model %q: %w", modelCfg.Model, err)
	}

	return Model{
		Model:        lm,
		ModelCfg:     modelCfg,
		ProviderType: providerCfg.Type,
	}, nil
}

// getOrBuildProvider returns a cached provider or builds a new one.
func (b *Builder) getOrBuildProvider(providerCfg *config.ProviderConfig) (fantasy.Provider, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if p, ok := b.cache[providerCfg.ID]; ok {
		return p, nil
	}

	p, err := buildProvider(providerCfg)
	if err != nil {
		return nil, err
	}

	b.cache[providerCfg.ID] = p
	return p, nil
}

// buildProvider creates a fantasy provider from configuration.
func buildProvider(providerCfg *config.ProviderConfig) (fantasy.Provider, error) {
	headers := maps.Clone(providerCfg.ExtraHeaders)

	//nolint:exhaustive // Only openai and anthropic are supported.
	switch providerCfg.Type {
	case catwalk.TypeOpenAI, catwalk.TypeOpenAICompat, catwalk.TypeOpenRouter:
		return buildOpenAIProvider(providerCfg.BaseURL, providerCfg.APIKey, headers)
	case catwalk.TypeAnthropic:
		return buildAnthropicProvider(providerCfg.BaseURL, providerCfg.APIKey, headers)
	default:
		return nil, fmt.Errorf("unsupported provider type: %q", providerCfg.Type)
	}
}

// buildOpenAIProvider creates an OpenAI fantasy provider.
func buildOpenAIProvider(baseURL, apiKey string, headers map[string]string) (fantasy.Provider, error) {
	var opts []openai.Option

	if apiKey != "" {
		opts = append(opts, openai.WithAPIKey(apiKey))
	}
	if len(headers) > 0 {
		opts = append(opts, openai.WithHeaders(headers))
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}

	return openai.New(opts...)
}

// buildAnthropicProvider creates an Anthropic fantasy provider.
func buildAnthropicProvider(baseURL, apiKey string, headers map[string]string) (fantasy.Provider, error) {
	var opts []anthropic.Option

	if apiKey != "" {
		opts = append(opts, anthropic.WithAPIKey(apiKey))
	}
	if len(headers) > 0 {
		opts = append(opts, anthropic.WithHeaders(headers))
	}
	if baseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(baseURL))
	}

	return anthropic.New(opts...)
}
