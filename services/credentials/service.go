package credentials

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"streamvault/models"
)

var (
	ErrNoCredentials      = errors.New("no stored credentials")
	ErrStorageDirRequired = errors.New("storage directory not provided")
)

// Service persists the last-successful backend host and its credentials.
// Saved only after a probe has verified the host; cleared on logout.
type Service struct {
	mu      sync.RWMutex
	path    string
	session *models.Session
}

// NewService creates a credential store backed by credentials.json in
// storageDir, loading any previously saved session.
func NewService(storageDir string) (*Service, error) {
	if strings.TrimSpace(storageDir) == "" {
		return nil, ErrStorageDirRequired
	}
	if err := os.MkdirAll(storageDir, 0o755); err != nil {
		return nil, fmt.Errorf("create credentials dir: %w", err)
	}

	svc := &Service{path: filepath.Join(storageDir, "credentials.json")}
	if err := svc.load(); err != nil {
		return nil, err
	}
	return svc, nil
}

// Load returns the stored session, or ErrNoCredentials if none is saved.
func (s *Service) Load() (models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.session == nil {
		return models.Session{}, ErrNoCredentials
	}
	return *s.session, nil
}

// Save persists the given session as the active one.
func (s *Service) Save(session models.Session) error {
	if !session.Valid() {
		return fmt.Errorf("incomplete session: host, username and password are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.session
	s.session = &session
	if err := s.saveLocked(); err != nil {
		s.session = prev
		return err
	}
	return nil
}

// Clear removes the stored session. Clearing an empty store is not an error.
func (s *Service) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.session = nil
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove credentials file: %w", err)
	}
	return nil
}

func (s *Service) load() error {
	file, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil // Nothing saved yet, start fresh
	}
	if err != nil {
		return fmt.Errorf("open credentials file: %w", err)
	}
	defer file.Close()

	var stored models.Session
	if err := json.NewDecoder(file).Decode(&stored); err != nil {
		return fmt.Errorf("decode credentials: %w", err)
	}
	if stored.Valid() {
		s.session = &stored
	}
	return nil
}

// saveLocked writes the session to disk. Must be called with mu held.
func (s *Service) saveLocked() error {
	// Write to temp file first, then rename (atomic write)
	tmp := s.path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create credentials temp file: %w", err)
	}

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s.session); err != nil {
		file.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("encode credentials: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("sync credentials: %w", err)
	}

	if err := file.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close credentials temp file: %w", err)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace credentials file: %w", err)
	}
	return nil
}
