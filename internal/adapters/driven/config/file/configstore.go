package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/kbrag/internal/core/ports/driven"
)

var _ driven.ConfigStore = (*ConfigStore)(nil)

// ConfigFileName is the settings file inside the config directory.
const ConfigFileName = "config.toml"

// ConfigStore keeps settings in config.toml under flat dotted keys
// ("llm.model") and writes them back as nested TOML tables. Environment
// overrides shadow file values on read and are never written.
type ConfigStore struct {
	mu        sync.RWMutex
	path      string
	values    map[string]any
	overrides map[string]string
}

// Option configures a ConfigStore.
type Option func(*ConfigStore)

// WithEnv binds keys to environment variables. For each binding the first
// non-empty variable wins.
func WithEnv(lookup func(string) (string, bool), bindings []EnvBinding) Option {
	return func(s *ConfigStore) {
		for _, b := range bindings {
			for _, name := range b.Vars {
				if v, ok := lookup(name); ok && v != "" {
					s.overrides[b.Key] = v
					break
				}
			}
		}
	}
}

// NewConfigStore opens <configDir>/config.toml, creating configDir if needed.
// An empty configDir means ~/.kbrag. A missing file is an empty config.
func NewConfigStore(configDir string, opts ...Option) (*ConfigStore, error) {
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		configDir = filepath.Join(home, ".kbrag")
	}
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return nil, fmt.Errorf("create config directory: %w", err)
	}

	s := &ConfigStore{
		path:      filepath.Join(configDir, ConfigFileName),
		values:    make(map[string]any),
		overrides: make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the config file location.
func (s *ConfigStore) Path() string {
	return s.path
}

// Get returns the override for key if bound, else the file value.
func (s *ConfigStore) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if v, ok := s.overrides[key]; ok {
		return v, true
	}
	v, ok := s.values[key]
	return v, ok
}

// Overridden reports whether key is shadowed by an environment variable.
func (s *ConfigStore) Overridden(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.overrides[key]
	return ok
}

// GetString returns key if it holds a string.
func (s *ConfigStore) GetString(key string) string {
	v, _ := s.Get(key)
	str, _ := v.(string)
	return str
}

// GetInt returns key as an int. Floats are truncated and strings, which is
// how environment overrides arrive, are parsed.
func (s *ConfigStore) GetInt(key string) int {
	v, _ := s.Get(key)
	if str, ok := v.(string); ok {
		n, _ := strconv.Atoi(strings.TrimSpace(str))
		return n
	}
	f, _ := number(v)
	return int(f)
}

// GetFloat returns key as a float64.
func (s *ConfigStore) GetFloat(key string) float64 {
	v, _ := s.Get(key)
	if str, ok := v.(string); ok {
		f, _ := strconv.ParseFloat(strings.TrimSpace(str), 64)
		return f
	}
	f, _ := number(v)
	return f
}

// GetBool returns key as a bool. Strings use strconv.ParseBool.
func (s *ConfigStore) GetBool(key string) bool {
	v, _ := s.Get(key)
	switch b := v.(type) {
	case bool:
		return b
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		return err == nil && parsed
	default:
		return false
	}
}

// Set stores value and rewrites the file. On a write error the previous
// value is restored.
func (s *ConfigStore) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.values[key]
	s.values[key] = value
	if err := s.write(); err != nil {
		if had {
			s.values[key] = prev
		} else {
			delete(s.values, key)
		}
		return err
	}
	return nil
}

// Save rewrites the file from memory.
func (s *ConfigStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write()
}

// Load replaces the in-memory values with the file contents.
func (s *ConfigStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.values = make(map[string]any)
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", s.path, err)
	}

	var doc map[string]any
	if err := toml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parse %s: %w", s.path, err)
	}
	s.values = make(map[string]any)
	flatten("", doc, s.values)
	return nil
}

// write replaces the file atomically. The file may hold API keys, so it is
// readable by the owner only. Caller holds mu.
func (s *ConfigStore) write() error {
	raw, err := toml.Marshal(nest(s.values))
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".config-*.toml")
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write config: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return os.Rename(tmp.Name(), s.path)
}

// flatten turns {"llm": {"model": "x"}} into {"llm.model": "x"}.
func flatten(prefix string, in map[string]any, out map[string]any) {
	for k, v := range in {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if table, ok := v.(map[string]any); ok {
			flatten(key, table, out)
			continue
		}
		out[key] = v
	}
}

// nest is the inverse of flatten. A key whose prefix already holds a plain
// value stays flat, so nothing is lost.
func nest(flat map[string]any) map[string]any {
	keys := make([]string, 0, len(flat))
	for key := range flat {
		keys = append(keys, key)
	}
	// A leaf sorts before any key it prefixes.
	sort.Strings(keys)

	root := make(map[string]any)
	for _, key := range keys {
		v := flat[key]
		parts := strings.Split(key, ".")
		table := root
		for _, p := range parts[:len(parts)-1] {
			next, ok := table[p].(map[string]any)
			if !ok {
				if _, taken := table[p]; taken {
					table = nil
					break
				}
				next = make(map[string]any)
				table[p] = next
			}
			table = next
		}
		if table == nil {
			root[key] = v
			continue
		}
		table[parts[len(parts)-1]] = v
	}
	return root
}

// number reports v as a float64 for the numeric types TOML and callers produce.
func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
