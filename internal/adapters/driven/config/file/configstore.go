package file

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/filings-qa/internal/core/ports/driven"
)

// Ensure ConfigStore implements the interface.
var _ driven.ConfigStore = (*ConfigStore)(nil)

// ConfigStore edits the TOML config file key by key for 'filings settings'.
// LoadConfig remains the only reader that decodes the file into a Config;
// the store keeps whatever the file holds, including keys LoadConfig would
// reject, so a bad edit can be rolled back.
type ConfigStore struct {
	mu       sync.RWMutex
	filePath string
	data     map[string]any
}

// OpenConfigStore opens the config store backed by filePath, creating its
// directory when needed. A missing file starts empty.
func OpenConfigStore(filePath string) (*ConfigStore, error) {
	if err := os.MkdirAll(filepath.Dir(filePath), 0700); err != nil {
		return nil, err
	}

	s := &ConfigStore{
		filePath: filePath,
		data:     make(map[string]any),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Get returns the value stored under key.
func (s *ConfigStore) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	val, ok := s.data[key]
	return val, ok
}

// Set stores value under key and persists immediately.
func (s *ConfigStore) Set(key string, value any) error {
	return s.SetMany(map[string]any{key: value})
}

// SetMany stores every value and persists once. Nothing changes when one
// key would turn an existing section into a scalar or the reverse.
func (s *ConfigStore) SetMany(values map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[string]any, len(s.data)+len(values))
	for k, v := range s.data {
		next[k] = v
	}
	for k, v := range values {
		if err := checkKey(next, k); err != nil {
			return err
		}
		next[k] = v
	}

	if err := s.write(next); err != nil {
		return err
	}
	s.data = next
	return nil
}

// Delete removes key and persists immediately.
func (s *ConfigStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[key]; !ok {
		return nil
	}
	next := make(map[string]any, len(s.data))
	for k, v := range s.data {
		if k != key {
			next[k] = v
		}
	}
	if err := s.write(next); err != nil {
		return err
	}
	s.data = next
	return nil
}

// Keys lists the keys set in the file, sorted.
func (s *ConfigStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Path returns the configuration file path.
func (s *ConfigStore) Path() string {
	return s.filePath
}

// checkKey rejects keys that collide with the section layout of data.
func checkKey(data map[string]any, key string) error {
	if key == "" || strings.HasPrefix(key, ".") || strings.HasSuffix(key, ".") || strings.Contains(key, "..") {
		return fmt.Errorf("invalid settings key %q", key)
	}
	for k := range data {
		switch {
		case strings.HasPrefix(k, key+"."):
			return fmt.Errorf("settings key %q is a section, set one of its keys instead (e.g. %s)", key, k)
		case strings.HasPrefix(key, k+"."):
			return fmt.Errorf("settings key %q is below the value %q", key, k)
		}
	}
	return nil
}

// write saves data as TOML with owner-only permissions (caller must hold lock).
func (s *ConfigStore) write(data map[string]any) error {
	out, err := toml.Marshal(unflattenMap(data))
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	return os.WriteFile(s.filePath, out, 0600)
}

// load reads the file into dot-notation keys (caller must not hold lock).
func (s *ConfigStore) load() error {
	raw, err := os.ReadFile(s.filePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var loaded map[string]any
	if err := toml.Unmarshal(raw, &loaded); err != nil {
		return fmt.Errorf("parse %s: %w", s.filePath, err)
	}
	s.data = flattenMap(loaded, "")
	return nil
}

// flattenMap converts nested tables to dot-notation keys, so
// {"embedding": {"model": "m"}} becomes {"embedding.model": "m"}.
func flattenMap(m map[string]any, prefix string) map[string]any {
	result := make(map[string]any)
	for key, value := range m {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}
		if nested, ok := value.(map[string]any); ok {
			for k, v := range flattenMap(nested, fullKey) {
				result[k] = v
			}
			continue
		}
		result[fullKey] = value
	}
	return result
}

// unflattenMap is the inverse of flattenMap, so the saved file keeps its
// [section] tables and LoadConfig can decode it.
func unflattenMap(m map[string]any) map[string]any {
	result := make(map[string]any)
	for key, value := range m {
		parts := strings.Split(key, ".")
		node := result
		for _, part := range parts[:len(parts)-1] {
			child, ok := node[part].(map[string]any)
			if !ok {
				child = make(map[string]any)
				node[part] = child
			}
			node = child
		}
		node[parts[len(parts)-1]] = value
	}
	return result
}
