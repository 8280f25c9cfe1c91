// Package storage persists small JSON documents keyed by name. Two
// backends exist: a writable directory of <key>.json files and a
// read-only backend seeded from process configuration whose writes are
// accepted but discarded. Exactly one backend is constructed at startup
// and injected into consumers; call sites never learn which is active.
package storage

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Backend is the capability set shared by both variants.
//
// LoadJSON decodes the document for key into out. A missing or unreadable
// document leaves out untouched and returns nil, so callers pre-populate
// out with their default value. SaveJSON overwrites the whole document;
// on the read-only backend it is a successful no-op.
type Backend interface {
	LoadJSON(key string, out any) error
	SaveJSON(key string, v any) error
}

// FileBackend stores one JSON file per key under a directory.
type FileBackend struct {
	dir string
}

// NewFileBackend creates the directory if absent and returns the backend.
func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	return &FileBackend{dir: dir}, nil
}

func (f *FileBackend) path(key string) string {
	return filepath.Join(f.dir, key+".json")
}

func (f *FileBackend) LoadJSON(key string, out any) error {
	data, err := os.ReadFile(f.path(key))
	if err != nil {
		// Absent file means the default applies.
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		slog.Warn("state document unreadable; using default", slog.String("key", key), slog.Any("err", err))
		return nil
	}
	return nil
}

func (f *FileBackend) SaveJSON(key string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state %q: %w", key, err)
	}
	if err := os.WriteFile(f.path(key), data, 0o644); err != nil {
		return fmt.Errorf("write state %q: %w", key, err)
	}
	return nil
}

// EnvBackend serves documents baked in at process start. Writes succeed
// without effect, so feature code works identically on both backends.
type EnvBackend struct {
	seeds map[string]json.RawMessage
}

// NewEnvBackend takes raw JSON documents keyed by name. Unparseable seeds
// are dropped with a warning rather than failing startup.
func NewEnvBackend(seeds map[string]string) *EnvBackend {
	docs := make(map[string]json.RawMessage, len(seeds))
	for key, raw := range seeds {
		if raw == "" {
			continue
		}
		if !json.Valid([]byte(raw)) {
			slog.Warn("ignoring invalid seed document", slog.String("key", key))
			continue
		}
		docs[key] = json.RawMessage(raw)
	}
	return &EnvBackend{seeds: docs}
}

func (e *EnvBackend) LoadJSON(key string, out any) error {
	raw, ok := e.seeds[key]
	if !ok {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		slog.Warn("seed document unreadable; using default", slog.String("key", key), slog.Any("err", err))
	}
	return nil
}

func (e *EnvBackend) SaveJSON(key string, v any) error {
	slog.Debug("read-only backend dropping write", slog.String("key", key))
	return nil
}

// New selects the backend once at startup. kind is "file" or "env"; dir
// and seeds apply to their respective variants.
func New(kind, dir string, seeds map[string]string) (Backend, error) {
	switch kind {
	case "file":
		return NewFileBackend(dir)
	case "env":
		return NewEnvBackend(seeds), nil
	default:
		return nil, fmt.Errorf("unknown state backend %q (want file or env)", kind)
	}
}
