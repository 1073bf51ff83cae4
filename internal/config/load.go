package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/catwalk/pkg/catwalk"
	"github.com/joho/godotenv"
)

const (
	defaultAnthropicEndpoint = "https://api.anthropic.com"
	defaultOpenAIEndpoint    = "https://api.openai.com/v1"

	envPrefix = "PARLEY_"
)

// LoadDotEnv loads variables from .env files into the process environment.
// Variables that are already set win. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// Load reads configuration from path, or from the global config file when
// path is empty. A missing global file yields the defaults; a missing
// explicit path is an error. PARLEY_* environment variables override the file.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = GlobalConfigPath()
	}

	cfg := NewConfig()
	if err := loadFile(path, cfg); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading config %s: %w", path, err)
		}
	}
	cfg.path = path

	applyEnv(cfg, os.LookupEnv)
	applyDefaults(cfg)
	configureProviders(cfg, NewResolver())

	if res := Validate(cfg); !res.IsValid {
		return nil, res.Error()
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	//nolint:gosec // G304: Path is from trusted config locations, not user input.
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing json: %w", err)
	}
	return nil
}

// applyEnv applies PARLEY_* overrides. lookup is os.LookupEnv outside tests.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) {
	str := func(name string, dst *string) {
		if v, ok := lookup(envPrefix + name); ok && v != "" {
			*dst = v
		}
	}

	str("ADDR", &cfg.Server.Addr)
	str("STORAGE", &cfg.Storage.Type)
	str("DB_PATH", &cfg.Storage.Path)
	str("CLASSIFIER", &cfg.Classifier.Type)
	str("CLASSIFIER_URL", &cfg.Classifier.URL)
	str("GENERATOR", &cfg.Generator.Type)
	str("GENERATOR_URL", &cfg.Generator.URL)
	str("GENERATOR_API_KEY", &cfg.Generator.APIKey)

	if cfg.Options == nil {
		cfg.Options = &Options{}
	}
	str("DATA_DIR", &cfg.Options.DataDir)
	str("LOG_LEVEL", &cfg.Options.LogLevel)
	if v, ok := lookup(envPrefix + "DEBUG"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Options.Debug = b
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Options == nil {
		cfg.Options = &Options{}
	}
	if cfg.Options.LogLevel == "" {
		cfg.Options.LogLevel = DefaultLogLevel
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = DefaultAddr
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = Duration(DefaultShutdownTimeout)
	}
	if cfg.Storage.Type == "" {
		cfg.Storage.Type = StorageSQLite
	}
	if cfg.Classifier.Type == "" {
		cfg.Classifier.Type = ClassifierKeyword
		if cfg.Classifier.URL != "" {
			cfg.Classifier.Type = ClassifierHTTP
		}
	}
	if cfg.Classifier.Timeout == 0 {
		cfg.Classifier.Timeout = Duration(DefaultClassifierTimeout)
	}
	if cfg.Generator.Type == "" {
		cfg.Generator.Type = GeneratorLLM
		if cfg.Generator.URL != "" {
			cfg.Generator.Type = GeneratorHTTP
		}
	}
	if cfg.Generator.Timeout == 0 {
		cfg.Generator.Timeout = Duration(DefaultGeneratorTimeout)
	}
	if cfg.Models == nil {
		cfg.Models = make(map[SelectedModelType]SelectedModel)
	}
	if cfg.Providers == nil {
		cfg.Providers = make(map[string]*ProviderConfig)
	}
	if len(cfg.Models) == 0 {
		applyDefaultModels(cfg)
	}
}

// applyDefaultModels picks OpenAI models, keeping the specialized/default
// split between a larger and a cheaper model.
func applyDefaultModels(cfg *Config) {
	cfg.Models[SelectedModelTypeLarge] = SelectedModel{Provider: "openai", Model: "gpt-4o"}
	cfg.Models[SelectedModelTypeSmall] = SelectedModel{Provider: "openai", Model: "gpt-4o-mini"}

	if _, ok := cfg.Providers["openai"]; !ok {
		cfg.Providers["openai"] = &ProviderConfig{
			Name:   "OpenAI",
			Type:   catwalk.TypeOpenAI,
			APIKey: "$OPENAI_API_KEY",
		}
	}
}

func configureProviders(cfg *Config, resolver *Resolver) {
	for id, p := range cfg.Providers {
		if p == nil {
			delete(cfg.Providers, id)
			continue
		}
		p.ID = id
		if p.Name == "" {
			p.Name = id
		}
		if p.Type == "" {
			p.Type = catwalk.Type(id)
		}
		if p.ExtraHeaders == nil {
			p.ExtraHeaders = make(map[string]string)
		}

		// An unset variable leaves the key empty; the provider SDK may still
		// find credentials on its own.
		if p.APIKey != "" {
			resolved, err := resolver.Resolve(p.APIKey)
			if err != nil {
				resolved = ""
			}
			p.APIKey = resolved
		}
		if p.BaseURL != "" {
			if resolved, err := resolver.Resolve(p.BaseURL); err == nil {
				p.BaseURL = resolved
			}
		} else {
			p.BaseURL = getDefaultAPIEndpoint(p.Type)
		}
	}

	if cfg.Generator.APIKey != "" {
		if resolved, err := resolver.Resolve(cfg.Generator.APIKey); err == nil {
			cfg.Generator.APIKey = resolved
		}
	}
}

func getDefaultAPIEndpoint(providerType catwalk.Type) string {
	//nolint:exhaustive // Other provider types require user-configured endpoints.
	switch providerType {
	case catwalk.TypeAnthropic:
		return defaultAnthropicEndpoint
	case catwalk.TypeOpenAI, catwalk.TypeOpenAICompat, catwalk.TypeOpenRouter:
		return defaultOpenAIEndpoint
	default:
		return ""
	}
}

// Resolver expands $VAR and ${VAR} references in configuration values.
type Resolver struct {
	lookup func(string) (string, bool)
}

// NewResolver creates a resolver backed by the process environment.
func NewResolver() *Resolver {
	return &Resolver{lookup: os.LookupEnv}
}

// Resolve expands every variable reference in value. Referencing an unset
// variable is an error.
func (r *Resolver) Resolve(value string) (string, error) {
	if !strings.Contains(value, "$") {
		return value, nil
	}

	var missing []string
	out := os.Expand(value, func(name string) string {
		v, ok := r.lookup(name)
		if !ok {
			missing = append(missing, name)
		}
		return v
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("environment variable %s is not set", strings.Join(missing, ", "))
	}
	return out, nil
}
