package preferences

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/stwalsh4118/estatedesk/internal/models"
	"gopkg.in/yaml.v3"
)

// fileDocument is the on-disk YAML layout.
type fileDocument struct {
	Users map[string]models.Preferences `yaml:"users"`
}

// FileStore keeps every user's preferences in a single YAML document.
// Saves replace the file atomically.
type FileStore struct {
	path  string
	mu    sync.RWMutex
	users map[string]models.Preferences
}

// NewFileStore creates a store backed by path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Init loads the document. A missing file starts an empty store.
func (s *FileStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.users = make(map[string]models.Preferences)
			return nil
		}
		return fmt.Errorf("failed to read preferences file %s: %w", s.path, err)
	}

	var doc fileDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse preferences file %s: %w", s.path, err)
	}
	if doc.Users == nil {
		doc.Users = make(map[string]models.Preferences)
	}
	s.users = doc.Users
	return nil
}

func (s *FileStore) Load(_ context.Context, userID string) (models.Preferences, error) {
	if err := validateUserID(userID); err != nil {
		return models.Preferences{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.users == nil {
		return models.Preferences{}, ErrNotInitialized
	}

	prefs, ok := s.users[userID]
	if !ok {
		return models.DefaultPreferences(), nil
	}
	return prefs, nil
}

func (s *FileStore) Save(_ context.Context, userID string, prefs models.Preferences) error {
	if err := validateUserID(userID); err != nil {
		return err
	}
	if err := Validate(prefs); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.users == nil {
		return ErrNotInitialized
	}
	return s.put(userID, prefs)
}

func (s *FileStore) Update(_ context.Context, userID string, fn func(*models.Preferences)) (models.Preferences, error) {
	if err := validateUserID(userID); err != nil {
		return models.Preferences{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.users == nil {
		return models.Preferences{}, ErrNotInitialized
	}

	prefs, ok := s.users[userID]
	if !ok {
		prefs = models.DefaultPreferences()
	}
	fn(&prefs)
	if err := Validate(prefs); err != nil {
		return models.Preferences{}, err
	}
	if err := s.put(userID, prefs); err != nil {
		return models.Preferences{}, err
	}
	return prefs, nil
}

// put writes prefs for userID. Callers hold s.mu.
func (s *FileStore) put(userID string, prefs models.Preferences) error {
	next := make(map[string]models.Preferences, len(s.users)+1)
	for id, p := range s.users {
		next[id] = p
	}
	next[userID] = prefs

	if err := s.write(fileDocument{Users: next}); err != nil {
		return err
	}
	s.users = next
	return nil
}

// write replaces the document via a temp file in the same directory.
func (s *FileStore) write(doc fileDocument) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode preferences: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create preferences directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".preferences-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to create temp preferences file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write preferences: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp preferences file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace preferences file: %w", err)
	}
	return nil
}

// Close is a no-op; every Save is already durable.
func (s *FileStore) Close() error {
	return nil
}
