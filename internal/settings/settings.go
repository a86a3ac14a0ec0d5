// Package settings persists the blocked application set between runs.
package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/user/app-blackhole/internal/core"
)

type file struct {
	BlockedApps []string `yaml:"blocked_apps"`
}

// Store reads and writes the blocked set.
type Store struct {
	mu   sync.Mutex
	path string
}

// NewStore creates a store backed by path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the file the store reads and writes.
func (s *Store) Path() string {
	return s.path
}

// Load returns the stored set. A missing file is an empty set.
func (s *Store) Load() (core.AppSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadUnsafe()
}

func (s *Store) loadUnsafe() (core.AppSet, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return core.NewAppSet(), nil
		}
		return core.AppSet{}, fmt.Errorf("failed to read settings: %w", err)
	}

	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return core.AppSet{}, fmt.Errorf("failed to parse settings %s: %w", s.path, err)
	}
	return core.NewAppSet(f.BlockedApps...), nil
}

// Save replaces the stored set.
func (s *Store) Save(apps core.AppSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveUnsafe(apps)
}

func (s *Store) saveUnsafe(apps core.AppSet) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	data, err := yaml.Marshal(file{BlockedApps: apps.Slice()})
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace settings: %w", err)
	}
	return nil
}

// Add adds ids to the stored set and returns the result.
func (s *Store) Add(ids ...string) (core.AppSet, error) {
	return s.modify(func(apps core.AppSet) core.AppSet { return apps.With(ids...) })
}

// Remove removes ids from the stored set and returns the result.
func (s *Store) Remove(ids ...string) (core.AppSet, error) {
	return s.modify(func(apps core.AppSet) core.AppSet { return apps.Without(ids...) })
}

func (s *Store) modify(fn func(core.AppSet) core.AppSet) (core.AppSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	apps, err := s.loadUnsafe()
	if err != nil {
		return core.AppSet{}, err
	}
	apps = fn(apps)
	if err := s.saveUnsafe(apps); err != nil {
		return core.AppSet{}, err
	}
	return apps, nil
}
