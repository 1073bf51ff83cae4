// Package config provides configuration management for parley.
package config

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/catwalk/pkg/catwalk"
)

const (
	appName        = "parley"
	configFileName = "parley.json"
	dbFileName     = "parley.db"
)

// Backend and port implementation names.
const (
	StorageSQLite = "sqlite"
	StorageMemory = "memory"

	ClassifierHTTP    = "http"
	ClassifierLLM     = "llm"
	ClassifierKeyword = "keyword"

	GeneratorHTTP = "http"
	GeneratorLLM  = "llm"
)

// Defaults.
const (
	DefaultAddr              = ":8080"
	DefaultClassifierTimeout = 10 * time.Second
	DefaultGeneratorTimeout  = 60 * time.Second
	DefaultShutdownTimeout   = 10 * time.Second
	DefaultLogLevel          = "info"
)

// SelectedModelType represents the tier of model (large or small).
type SelectedModelType string

// Model type constants. Specialized sessions are answered by the large tier.
const (
	SelectedModelTypeLarge SelectedModelType = "large"
	SelectedModelTypeSmall SelectedModelType = "small"
)

// SelectedModel represents a selected model configuration for a tier.
type SelectedModel struct {
	Temperature *float64 `json:"temperature,omitempty"`
	Model       string   `json:"model"`
	Provider    string   `json:"provider"`
	MaxTokens   int64    `json:"max_tokens,omitempty"`
}

// ProviderConfig holds provider authentication and settings.
//
//nolint:govet // Field order is intentional for JSON readability.
type ProviderConfig struct {
	ExtraHeaders map[string]string `json:"extra_headers,omitempty"`
	ID           string            `json:"id,omitempty"`
	Name         string            `json:"name,omitempty"`
	Type         catwalk.Type      `json:"type,omitempty"`
	BaseURL      string            `json:"base_url,omitempty"`
	APIKey       string            `json:"api_key,omitempty"`
	Disable      bool              `json:"disable,omitempty"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr            string   `json:"addr,omitempty"`
	ShutdownTimeout Duration `json:"shutdown_timeout,omitempty"`
}

// StorageConfig selects where sessions and messages live.
type StorageConfig struct {
	Type string `json:"type,omitempty"`
	Path string `json:"path,omitempty"`
}

// ClassifierConfig configures the mode classifier.
type ClassifierConfig struct {
	Type     string   `json:"type,omitempty"`
	URL      string   `json:"url,omitempty"`
	Timeout  Duration `json:"timeout,omitempty"`
	Keywords []string `json:"keywords,omitempty"`
	// Fallback consults the keyword heuristic when the primary classifier fails.
	Fallback bool `json:"fallback,omitempty"`
}

// GeneratorConfig configures the reply generator.
type GeneratorConfig struct {
	Type         string   `json:"type,omitempty"`
	URL          string   `json:"url,omitempty"`
	APIKey       string   `json:"api_key,omitempty"`
	SystemPrompt string   `json:"system_prompt,omitempty"`
	Timeout      Duration `json:"timeout,omitempty"`
}

// Options holds optional configuration settings.
//
//nolint:govet // Field order is intentional for JSON readability.
type Options struct {
	DataDir  string `json:"data_directory,omitempty"`
	LogLevel string `json:"log_level,omitempty"`
	Debug    bool   `json:"debug,omitempty"`
}

// Config is the top-level configuration structure.
type Config struct {
	Server     ServerConfig                        `json:"server"`
	Storage    StorageConfig                       `json:"storage"`
	Classifier ClassifierConfig                    `json:"classifier"`
	Generator  GeneratorConfig                     `json:"generator"`
	Models     map[SelectedModelType]SelectedModel `json:"models,omitempty"`
	Providers  map[string]*ProviderConfig          `json:"providers,omitempty"`
	Options    *Options                            `json:"options,omitempty"`

	path string
}

// NewConfig creates a new Config with initialized maps.
func NewConfig() *Config {
	return &Config{
		Models:    make(map[SelectedModelType]SelectedModel),
		Providers: make(map[string]*ProviderConfig),
		Options:   &Options{},
	}
}

// Path returns the file the configuration was loaded from.
func (c *Config) Path() string {
	return c.path
}

// DataDir returns the data directory path from configuration.
func (c *Config) DataDir() string {
	if c.Options != nil && c.Options.DataDir != "" {
		return c.Options.DataDir
	}
	return filepath.Join(xdg.DataHome, appName)
}

// DBPath returns the SQLite database path.
func (c *Config) DBPath() string {
	if c.Storage.Path != "" {
		return c.Storage.Path
	}
	return filepath.Join(c.DataDir(), dbFileName)
}

// Model returns the model selected for a tier. The small tier falls back to
// the large one when it is not configured.
func (c *Config) Model(tier SelectedModelType) (SelectedModel, bool) {
	if m, ok := c.Models[tier]; ok {
		return m, true
	}
	if tier == SelectedModelTypeSmall {
		m, ok := c.Models[SelectedModelTypeLarge]
		return m, ok
	}
	return SelectedModel{}, false
}

// GlobalConfigPath returns the path to the global configuration file.
func GlobalConfigPath() string {
	return filepath.Join(xdg.ConfigHome, appName, configFileName)
}

// Duration is a time.Duration that reads and writes as a string like "10s".
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON accepts a duration string or a number of seconds.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		v, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("parsing duration %q: %w", s, err)
		}
		*d = Duration(v)
		return nil
	}

	var secs float64
	if err := json.Unmarshal(data, &secs); err != nil {
		return fmt.Errorf("duration must be a string or a number of seconds: %s", data)
	}
	*d = Duration(secs * float64(time.Second))
	return nil
}
