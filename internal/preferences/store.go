// Package preferences persists the user's display preferences (the dark-mode
// flag) in a small YAML file.
package preferences

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/insightforge/backend/internal/models"
	"github.com/labstack/gommon/log"
	"gopkg.in/yaml.v3"
)

// Store loads preferences once and writes them back on every change.
type Store struct {
	mu    sync.RWMutex
	path  string
	prefs models.Preferences
}

// Open loads preferences from path. A missing file yields the defaults;
// the file is created on the first change.
func Open(path string) (*Store, error) {
	s := &Store{path: path}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read preferences: %w", err)
	}

	if err := yaml.Unmarshal(data, &s.prefs); err != nil {
		return nil, fmt.Errorf("failed to parse preferences: %w", err)
	}

	log.Debugf("[Preferences] Loaded from %s (darkMode=%v)", path, s.prefs.DarkMode)
	return s, nil
}

// Get returns the current preferences.
func (s *Store) Get() models.Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prefs
}

// SetDarkMode stores the flag and saves the file.
func (s *Store) SetDarkMode(dark bool) (models.Preferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setDarkModeLocked(dark)
}

// Toggle flips the dark-mode flag and saves the file.
func (s *Store) Toggle() (models.Preferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setDarkModeLocked(!s.prefs.DarkMode)
}

func (s *Store) setDarkModeLocked(dark bool) (models.Preferences, error) {
	next := s.prefs
	next.DarkMode = dark
	if err := s.save(next); err != nil {
		return s.prefs, err
	}
	s.prefs = next
	return s.prefs, nil
}

// save writes prefs atomically. Callers hold s.mu.
func (s *Store) save(prefs models.Preferences) error {
	data, err := yaml.Marshal(&prefs)
	if err != nil {
		return fmt.Errorf("failed to marshal preferences: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create preferences directory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write preferences: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write preferences: %w", err)
	}

	return nil
}
