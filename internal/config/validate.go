package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/charmbracelet/catwalk/pkg/catwalk"
)

// ValidationError represents a single validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (ve ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ve.Field, ve.Message)
}

// ValidationWarning represents a validation warning (non-fatal).
type ValidationWarning struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (vw ValidationWarning) String() string {
	return fmt.Sprintf("%s: %s", vw.Field, vw.Message)
}

// ValidationResult holds the result of validating a configuration.
type ValidationResult struct {
	IsValid  bool                `json:"is_valid"`
	Errors   []ValidationError   `json:"errors,omitempty"`
	Warnings []ValidationWarning `json:"warnings,omitempty"`
}

func (vr *ValidationResult) fail(field, format string, args ...any) {
	vr.Errors = append(vr.Errors, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	vr.IsValid = false
}

func (vr *ValidationResult) warn(field, format string, args ...any) {
	vr.Warnings = append(vr.Warnings, ValidationWarning{Field: field, Message: fmt.Sprintf(format, args...)})
}

// Validate checks a configuration after defaults have been applied.
func Validate(cfg *Config) *ValidationResult {
	result := &ValidationResult{
		IsValid:  true,
		Errors:   []ValidationError{},
		Warnings: []ValidationWarning{},
	}

	switch cfg.Storage.Type {
	case StorageSQLite, StorageMemory:
	default:
		result.fail("storage.type", "unsupported storage %q, must be one of: sqlite, memory", cfg.Storage.Type)
	}

	switch cfg.Classifier.Type {
	case ClassifierHTTP:
		validateEndpoint(result, "classifier.url", cfg.Classifier.URL)
	case ClassifierLLM, ClassifierKeyword:
	default:
		result.fail("classifier.type", "unsupported classifier %q, must be one of: http, llm, keyword", cfg.Classifier.Type)
	}
	if cfg.Classifier.Timeout <= 0 {
		result.fail("classifier.timeout", "timeout must be positive")
	}

	switch cfg.Generator.Type {
	case GeneratorHTTP:
		validateEndpoint(result, "generator.url", cfg.Generator.URL)
	case GeneratorLLM:
	default:
		result.fail("generator.type", "unsupported generator %q, must be one of: http, llm", cfg.Generator.Type)
	}
	if cfg.Generator.Timeout <= 0 {
		result.fail("generator.timeout", "timeout must be positive")
	}

	usesProviders := cfg.Generator.Type == GeneratorLLM || cfg.Classifier.Type == ClassifierLLM
	for tier, m := range cfg.Models {
		field := "models." + string(tier)
		if tier != SelectedModelTypeLarge && tier != SelectedModelTypeSmall {
			result.warn(field, "unknown tier %q is ignored", tier)
		}
		if m.Model == "" {
			result.fail(field+".model", "model ID is required")
		}
		if !usesProviders {
			continue
		}
		p, ok := cfg.Providers[m.Provider]
		switch {
		case !ok:
			result.fail(field+".provider", "provider %q not configured", m.Provider)
		case p.Disable:
			result.fail(field+".provider", "provider %q is disabled", m.Provider)
		}
	}
	if _, ok := cfg.Models[SelectedModelTypeLarge]; !ok {
		result.fail("models.large", "large model is required")
	}

	for id, p := range cfg.Providers {
		field := "providers." + id
		if p.Type != "" && !isValidProviderType(p.Type) {
			result.fail(field+".type",
				"unsupported provider type %q, must be one of: anthropic, openai, openai-compat, google, azure, bedrock, vertexai, openrouter",
				p.Type)
		}
		if p.BaseURL != "" && !strings.Contains(p.BaseURL, "$") {
			if err := validateURL(p.BaseURL); err != nil {
				result.fail(field+".base_url", "%s", err)
			}
		}
		if usesProviders && p.APIKey == "" && !p.Disable {
			result.warn(field+".api_key", "no API key configured")
		}
	}

	return result
}

func validateEndpoint(result *ValidationResult, field, endpoint string) {
	if endpoint == "" {
		result.fail(field, "url is required")
		return
	}
	if err := validateURL(endpoint); err != nil {
		result.fail(field, "%s", err)
	}
}

// isValidProviderType checks if the provider type is supported.
func isValidProviderType(providerType catwalk.Type) bool {
	switch providerType {
	case catwalk.TypeAnthropic, catwalk.TypeOpenAI, catwalk.TypeOpenAICompat,
		catwalk.TypeGoogle, catwalk.TypeAzure, catwalk.TypeBedrock,
		catwalk.TypeVertexAI, catwalk.TypeOpenRouter:
		return true
	default:
		return false
	}
}

// validateURL validates that a string is a valid URL.
func validateURL(endpoint string) error {
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	if u.Scheme == "" {
		return fmt.Errorf("URL must include a scheme (http:// or https://)")
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}

	if u.Host == "" {
		return fmt.Errorf("URL must include a host")
	}

	return nil
}

// Error returns a combined error message from all validation errors.
func (vr *ValidationResult) Error() error {
	if len(vr.Errors) == 0 {
		return nil
	}

	msg := "validation failed:"
	for _, err := range vr.Errors {
		msg += "\n  - " + err.Error()
	}
	return fmt.Errorf("%s", msg)
}

// WarningStrings returns all warnings as strings.
func (vr *ValidationResult) WarningStrings() []string {
	warnings := make([]string, len(vr.Warnings))
	for i, w := range vr.Warnings {
		warnings[i] = w.String()
	}
	return warnings
}
