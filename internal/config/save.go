package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// SetField updates a single field in the config file using JSON path
// notation. Only the given field changes; the rest of the file, including
// unresolved $VAR references, is left as written. value is stored as JSON
// when it parses as a JSON number, bool, object or array, otherwise as a string.
func SetField(path, key, value string) error {
	//nolint:gosec // G304: path is the config file chosen by the user.
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("reading config file: %w", err)
		}
		data = []byte("{}")
	}

	var out string
	if isRawJSON(value) {
		out, err = sjson.SetRaw(string(data), key, value)
	} else {
		out, err = sjson.Set(string(data), key, value)
	}
	if err != nil {
		return fmt.Errorf("setting config field %q: %w", key, err)
	}

	if !gjson.Valid(out) {
		return fmt.Errorf("setting config field %q: result is not valid JSON", key)
	}
	return writeFile(path, []byte(out))
}

// GetField reads a single field from the config file. The second result is
// false when the field is not present.
func GetField(path, key string) (string, bool, error) {
	//nolint:gosec // G304: path is the config file chosen by the user.
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("reading config file: %w", err)
	}

	res := gjson.GetBytes(data, key)
	if !res.Exists() {
		return "", false, nil
	}
	if res.Type == gjson.String {
		return res.Str, true, nil
	}
	return res.Raw, true, nil
}

// WriteDefault writes a starter config file to path unless one exists.
// It reports whether a file was written.
func WriteDefault(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}

	cfg := NewConfig()
	applyDefaults(cfg)
	cfg.Options.DataDir = ""

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return false, fmt.Errorf("marshaling config: %w", err)
	}
	if err := writeFile(path, data); err != nil {
		return false, err
	}
	return true, nil
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	//nolint:gosec // 0o600 is intentionally restrictive for security.
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

func isRawJSON(value string) bool {
	if !gjson.Valid(value) {
		return false
	}
	switch gjson.Parse(value).Type {
	case gjson.Number, gjson.True, gjson.False, gjson.Null, gjson.JSON:
		return true
	default:
		return false
	}
}
