package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

const recordFile = "session.yaml"

// FileStore keeps the identity record as YAML in a state directory.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore stores the record under dir, creating dir on first save.
func NewFileStore(dir string) *FileStore {
	return &FileStore{path: filepath.Join(dir, recordFile)}
}

// DefaultStateDir returns the per-user state directory.
func DefaultStateDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate config directory: %w", err)
	}
	return filepath.Join(base, "notes-ai"), nil
}

// Path is the record's location on disk.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Load() (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session record: %w", err)
	}

	var rec Record
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse session record: %w", err)
	}
	if rec.User.ID == "" {
		return nil, nil
	}
	return &rec, nil
}

// Save writes the record atomically with owner-only permissions.
func (s *FileStore) Save(rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := yaml.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode session record: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write session record: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace session record: %w", err)
	}
	return nil
}

func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove session record: %w", err)
	}
	return nil
}

var _ LocalStore = (*FileStore)(nil)
