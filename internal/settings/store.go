// Package settings persists user preferences and watches them for changes.
package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Preferences are the user-editable agent settings.
type Preferences struct {
	// HideIndicator hides the status indicator.
	HideIndicator bool `yaml:"hide_indicator"`
}

// Store loads and saves Preferences.
type Store interface {
	Load() (Preferences, error)
	Save(p Preferences) error
}

// FileStore implements Store using a YAML file.
type FileStore struct {
	Path string
}

// NewFileStore creates a new YAML preference store.
func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

// Load reads the preference file. A missing or empty file yields defaults.
func (s *FileStore) Load() (Preferences, error) {
	var p Preferences
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return p, nil
		}
		return p, err
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Preferences{}, fmt.Errorf("parsing %s: %w", s.Path, err)
	}
	return p, nil
}

// Save writes the preference file atomically via a temp file and rename,
// so a watcher never observes a half-written file.
func (s *FileStore) Save(p Preferences) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".prefs-*.yaml")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.Path)
}
