package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"reflect"
	"sort"
	"strings"
	"sync"
)

// Store is the key-value settings store backed by config.json.
// Every mutation is saved immediately. Safe for concurrent use.
type Store struct {
	baseDir string

	mu  sync.Mutex
	cfg *Config
}

// OpenStore loads the config in baseDir. If the file does not exist yet, the
// defaults are written so the user has a file to edit.
func OpenStore(baseDir string) (*Store, error) {
	s := &Store{baseDir: baseDir}

	_, statErr := os.Stat(Path(baseDir))
	cfg, err := Load(baseDir)
	if err != nil {
		return nil, err
	}
	s.cfg = cfg

	if errors.Is(statErr, os.ErrNotExist) {
		if err := s.Save(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return Path(s.baseDir)
}

// BaseDir returns the directory holding config.json.
func (s *Store) BaseDir() string {
	return s.baseDir
}

// Config returns a copy of the current configuration.
func (s *Store) Config() *Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Clone()
}

// Reload re-reads config.json, replacing the in-memory values.
func (s *Store) Reload() (*Config, error) {
	cfg, err := Load(s.baseDir)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
	return cfg.Clone(), nil
}

// Get returns the value stored under a JSON key, with defaults applied.
func (s *Store) Get(key string) (any, error) {
	if !IsKnownKey(key) {
		return nil, fmt.Errorf("unknown config key %q (known: %s)", key, strings.Join(Keys(), ", "))
	}

	s.mu.Lock()
	data, err := json.Marshal(s.cfg)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m[key], nil
}

// Set assigns value to a JSON key, validates the result and saves.
// The value must be JSON-compatible with the field (numbers for lengths, a
// string→string object for text_source_tags, and so on).
func (s *Store) Set(key string, value any) error {
	if !IsKnownKey(key) {
		return fmt.Errorf("unknown config key %q (known: %s)", key, strings.Join(Keys(), ", "))
	}

	data, err := json.Marshal(map[string]any{key: value})
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.cfg.Clone()
	if key == "text_source_tags" {
		// Replace rather than merge into the existing map.
		next.TextSourceTags = nil
	}
	if err := json.Unmarshal(data, next); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	if err := next.Validate(); err != nil {
		return err
	}

	s.cfg = next
	return s.saveLocked()
}

// AddSourceTag adds or replaces a user source tag and saves.
func (s *Store) AddSourceTag(process, label string) error {
	process = strings.TrimSpace(process)
	if process == "" {
		return fmt.Errorf("process name is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.cfg.Clone()
	tags := maps.Clone(next.TextSourceTags)
	if tags == nil {
		tags = make(map[string]string)
	}
	tags[process] = label
	next.TextSourceTags = tags

	s.cfg = next
	return s.saveLocked()
}

// Save writes the current configuration to disk.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

func (s *Store) saveLocked() error {
	if err := os.MkdirAll(s.baseDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(s.cfg, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	// Write to a temp file and rename so a reader (or the watcher) never sees
	// a half-written file.
	tmp := s.Path() + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := os.Rename(tmp, s.Path()); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace config: %w", err)
	}
	return nil
}

// Keys returns every settable JSON key, sorted.
func Keys() []string {
	t := reflect.TypeOf(Config{})
	keys := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("json")
		name, _, _ := strings.Cut(tag, ",")
		if name != "" && name != "-" {
			keys = append(keys, name)
		}
	}
	sort.Strings(keys)
	return keys
}

// IsKnownKey reports whether key names a Config field.
func IsKnownKey(key string) bool {
	for _, k := range Keys() {
		if k == key {
			return true
		}
	}
	return false
}
