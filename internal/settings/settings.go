// Package settings persists device-local settings: a flat key to string
// map kept in a TOML file next to the database. The sync configuration lives
// under the "devhub-sync" key as a JSON document.
package settings

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/devhub-tools/devhub/internal/types"
)

// SyncConfigKey is the settings entry holding the serialized SyncConfig.
const SyncConfigKey = "devhub-sync"

// Store reads and writes the settings file.
type Store struct {
	path   string
	logger *log.Logger

	mu sync.Mutex
}

// New returns a store for the settings file at path. The file is created on
// first write.
func New(path string, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.New(os.Stderr, "[settings] ", log.LstdFlags)
	}
	return &Store{path: path, logger: logger}
}

// Path returns the settings file path.
func (s *Store) Path() string { return s.path }

// Get returns the value stored under key and whether it was present.
func (s *Store) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.read()
	if err != nil {
		return "", false, err
	}
	v, ok := values[key]
	return v, ok, nil
}

// Set replaces the value stored under key.
func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.read()
	if err != nil {
		return err
	}
	values[key] = value
	return s.write(values)
}

// Delete removes key. Removing a missing key is a no-op.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.read()
	if err != nil {
		return err
	}
	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)
	return s.write(values)
}

// LoadSyncConfig returns the saved sync configuration. A missing or
// unreadable entry yields the default configuration.
func (s *Store) LoadSyncConfig() types.SyncConfig {
	raw, ok, err := s.Get(SyncConfigKey)
	if err != nil {
		s.logger.Printf("Warning: failed to read settings, using defaults: %v", err)
		return types.DefaultSyncConfig()
	}
	if !ok {
		return types.DefaultSyncConfig()
	}

	cfg := types.DefaultSyncConfig()
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		s.logger.Printf("Warning: corrupt %s entry, using defaults: %v", SyncConfigKey, err)
		return types.DefaultSyncConfig()
	}
	return cfg
}

// SaveSyncConfig replaces the saved sync configuration.
func (s *Store) SaveSyncConfig(cfg types.SyncConfig) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal sync config: %w", err)
	}
	if err := s.Set(SyncConfigKey, string(data)); err != nil {
		return fmt.Errorf("failed to save sync config: %w", err)
	}
	return nil
}

func (s *Store) read() (map[string]string, error) {
	values := map[string]string{}

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return values, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read settings file %s: %w", s.path, err)
	}
	if _, err := toml.Decode(string(data), &values); err != nil {
		return nil, fmt.Errorf("parse settings file %s: %w", s.path, err)
	}
	return values, nil
}

func (s *Store) write(values map[string]string) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(values); err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	// Write atomically via temp file
	tmpFile, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp")
	if err != nil {
		return fmt.Errorf("create temp settings file: %w", err)
	}
	name := tmpFile.Name()
	_, err = tmpFile.Write(buf.Bytes())
	if err1 := tmpFile.Close(); err1 != nil && err == nil {
		err = err1
	}
	if err != nil {
		os.Remove(name)
		return fmt.Errorf("write temp settings file: %w", err)
	}

	if err := os.Rename(name, s.path); err != nil {
		os.Remove(name)
		return fmt.Errorf("rename settings file: %w", err)
	}
	return nil
}
