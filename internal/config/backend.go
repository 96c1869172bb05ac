package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
)

// ConfigBackend is a flat store of non-secret settings keyed by dotted names.
// Lookup returns the textual form of a value; parsing it is up to the caller.
type ConfigBackend interface {
	Lookup(key string) (raw string, ok bool, err error)
	Store(key string, v any) error
}

func configFilePath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(".muzai", "config.json")
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "muzai", "config.json")
}

// settingsFile keeps settings in a single JSON object, e.g.
//
//	{"server.port": 8080, "proxy.default_model": "openai/gpt-4o"}
//
// Numbers keep their literal form so "8080" and 8080 read the same.
type settingsFile struct {
	path   string
	values map[string]any
}

func newFileBackend(path string) *settingsFile {
	f := &settingsFile{path: path, values: map[string]any{}}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		return f
	case err != nil:
		slog.Warn("config file unreadable, using defaults", "path", path, "error", err)
		return f
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&f.values); err != nil {
		slog.Warn("config file is not a JSON object, using defaults", "path", path, "error", err)
		f.values = map[string]any{}
	}
	return f
}

func (f *settingsFile) Lookup(key string) (string, bool, error) {
	v, ok := f.values[key]
	if !ok || v == nil {
		return "", false, nil
	}
	switch val := v.(type) {
	case string:
		return val, true, nil
	case json.Number:
		return val.String(), true, nil
	case bool:
		return strconv.FormatBool(val), true, nil
	default:
		return "", true, fmt.Errorf("%s must be a string or number, got %T", key, v)
	}
}

// Store sets key and rewrites the file. The file is replaced atomically so a
// concurrent Load never sees a partial write.
func (f *settingsFile) Store(key string, v any) error {
	f.values[key] = v

	data, err := json.MarshalIndent(f.values, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".config-*.json")
	if err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("writing config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return os.Rename(tmp.Name(), f.path)
}
