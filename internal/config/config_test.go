//nolint:goconst // Test file uses repeated string literals for clarity.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/catwalk/pkg/catwalk"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "parley.json")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `{}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Addr != DefaultAddr {
		t.Errorf("Addr = %q, want %q", cfg.Server.Addr, DefaultAddr)
	}
	if cfg.Storage.Type != StorageSQLite {
		t.Errorf("Storage.Type = %q, want sqlite", cfg.Storage.Type)
	}
	if cfg.Classifier.Type != ClassifierKeyword {
		t.Errorf("Classifier.Type = %q, want keyword", cfg.Classifier.Type)
	}
	if cfg.Classifier.Timeout.Std() != 10*time.Second {
		t.Errorf("Classifier.Timeout = %v, want 10s", cfg.Classifier.Timeout.Std())
	}
	if cfg.Generator.Timeout.Std() != 60*time.Second {
		t.Errorf("Generator.Timeout = %v, want 60s", cfg.Generator.Timeout.Std())
	}
	if cfg.Models[SelectedModelTypeLarge].Model == "" || cfg.Models[SelectedModelTypeSmall].Model == "" {
		t.Errorf("expected default model tiers, got %+v", cfg.Models)
	}
	if !strings.HasSuffix(cfg.DBPath(), "parley.db") {
		t.Errorf("DBPath() = %q, want parley.db in data dir", cfg.DBPath())
	}
	if cfg.Path() != path {
		t.Errorf("Path() = %q, want %q", cfg.Path(), path)
	}
}

func TestLoad_File(t *testing.T) {
	t.Setenv("TEST_PARLEY_KEY", "sk-test")

	path := writeConfig(t, `{
		"server": {"addr": "127.0.0.1:9000"},
		"storage": {"type": "memory"},
		"classifier": {"type": "http", "url": "http://localhost:5000/analyze", "timeout": "2s", "fallback": true},
		"generator": {"type": "llm", "timeout": 30},
		"models": {
			"large": {"provider": "anthropic", "model": "claude-sonnet-4", "max_tokens": 2048},
			"small": {"provider": "anthropic", "model": "claude-haiku-4"}
		},
		"providers": {
			"anthropic": {"api_key": "$TEST_PARLEY_KEY"}
		}
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Addr != "127.0.0.1:9000" {
		t.Errorf("Addr = %q", cfg.Server.Addr)
	}
	if cfg.Classifier.Timeout.Std() != 2*time.Second || !cfg.Classifier.Fallback {
		t.Errorf("unexpected classifier config: %+v", cfg.Classifier)
	}
	if cfg.Generator.Timeout.Std() != 30*time.Second {
		t.Errorf("Generator.Timeout = %v, want 30s", cfg.Generator.Timeout.Std())
	}

	p := cfg.Providers["anthropic"]
	if p == nil {
		t.Fatal("anthropic provider missing")
	}
	if p.APIKey != "sk-test" {
		t.Errorf("APIKey = %q, want resolved value", p.APIKey)
	}
	if p.Type != catwalk.TypeAnthropic || p.ID != "anthropic" {
		t.Errorf("unexpected provider: %+v", p)
	}
	if p.BaseURL != defaultAnthropicEndpoint {
		t.Errorf("BaseURL = %q, want default endpoint", p.BaseURL)
	}
	if _, ok := cfg.Providers["openai"]; ok {
		t.Error("default openai provider should not be added when models are configured")
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"bad json", `{`, "parsing json"},
		{"bad storage", `{"storage": {"type": "redis"}}`, "storage.type"},
		{"http classifier without url", `{"classifier": {"type": "http"}}`, "classifier.url"},
		{"bad generator url", `{"generator": {"type": "http", "url": "localhost:1"}}`, "generator.url"},
		{"bad duration", `{"generator": {"timeout": "soon"}}`, "parsing duration"},
		{"unknown provider", `{"models": {"large": {"provider": "nope", "model": "m"}}}`, "not configured"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}

	t.Run("missing explicit file", func(t *testing.T) {
		if _, err := Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
			t.Error("expected error for missing explicit config file")
		}
	})
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"PARLEY_ADDR":           ":9999",
		"PARLEY_STORAGE":        "memory",
		"PARLEY_CLASSIFIER_URL": "http://classifier",
		"PARLEY_LOG_LEVEL":      "debug",
		"PARLEY_DEBUG":          "true",
		"PARLEY_GENERATOR":      "",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := NewConfig()
	cfg.Generator.Type = GeneratorHTTP
	applyEnv(cfg, lookup)
	applyDefaults(cfg)

	if cfg.Server.Addr != ":9999" || cfg.Storage.Type != StorageMemory {
		t.Errorf("overrides not applied: %+v %+v", cfg.Server, cfg.Storage)
	}
	if cfg.Classifier.Type != ClassifierHTTP {
		t.Errorf("Classifier.Type = %q, want http when a url is set", cfg.Classifier.Type)
	}
	if cfg.Generator.Type != GeneratorHTTP {
		t.Errorf("empty override should be ignored, got %q", cfg.Generator.Type)
	}
	if cfg.Options.LogLevel != "debug" || !cfg.Options.Debug {
		t.Errorf("unexpected options: %+v", cfg.Options)
	}
}

func TestResolver(t *testing.T) {
	r := &Resolver{lookup: func(k string) (string, bool) {
		if k == "HOST" {
			return "example.com", true
		}
		return "", false
	}}

	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"plain", "plain", false},
		{"$HOST", "example.com", false},
		{"https://${HOST}/v1", "https://example.com/v1", false},
		{"$MISSING", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := r.Resolve(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Resolve() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Resolve() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConfig_Model(t *testing.T) {
	cfg := NewConfig()
	cfg.Models[SelectedModelTypeLarge] = SelectedModel{Provider: "openai", Model: "gpt-4o"}

	m, ok := cfg.Model(SelectedModelTypeSmall)
	if !ok || m.Model != "gpt-4o" {
		t.Errorf("small tier should fall back to large, got %+v, %v", m, ok)
	}
}

func TestDuration_JSON(t *testing.T) {
	var v struct {
		D Duration `json:"d"`
	}
	if err := json.Unmarshal([]byte(`{"d":"1m30s"}`), &v); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if v.D.Std() != 90*time.Second {
		t.Errorf("D = %v, want 1m30s", v.D.Std())
	}

	out, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(out) != `{"d":"1m30s"}` {
		t.Errorf("Marshal() = %s", out)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("PARLEY_DOTENV_TEST=from-file\n"), 0o600); err != nil {
		t.Fatalf("writing .env: %v", err)
	}
	t.Setenv("PARLEY_DOTENV_TEST", "")
	_ = os.Unsetenv("PARLEY_DOTENV_TEST") //nolint:errcheck // restored by t.Setenv cleanup

	if err := LoadDotEnv(envPath, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("LoadDotEnv() error = %v", err)
	}
	if got := os.Getenv("PARLEY_DOTENV_TEST"); got != "from-file" {
		t.Errorf("PARLEY_DOTENV_TEST = %q, want from-file", got)
	}
}
