// Package client is the application-side counterpart of the API: it keeps
// the session token, talks to the server, and maintains a local copy of the
// todo list with optimistic updates and derived views for presentation.
package client

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Session is the credential state carried between requests.
type Session struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}

// Storage persists a session across restarts.
type Storage interface {
	// Load returns the saved session, or (nil, nil) when none is saved.
	Load() (*Session, error)
	Save(session *Session) error
	Clear() error
}

// FileStorage keeps the session as a JSON file, by default under the user
// configuration directory.
type FileStorage struct {
	path string
}

// NewFileStorage places the session file in the platform configuration
// directory.
func NewFileStorage() (*FileStorage, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("locating config directory: %w", err)
	}
	return NewFileStorageAt(filepath.Join(configDir, "listkeeper", "session.json")), nil
}

// NewFileStorageAt uses an explicit session file path.
func NewFileStorageAt(path string) *FileStorage {
	return &FileStorage{path: path}
}

// Load implements Storage.
func (f *FileStorage) Load() (*Session, error) {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading session file: %w", err)
	}
	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("decoding session file: %w", err)
	}
	return &session, nil
}

// Save implements Storage. The session file is readable by the owner only.
func (f *FileStorage) Save(session *Session) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("creating session directory: %w", err)
	}
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	if err := os.WriteFile(f.path, data, 0o600); err != nil {
		return fmt.Errorf("writing session file: %w", err)
	}
	return nil
}

// Clear implements Storage.
func (f *FileStorage) Clear() error {
	err := os.Remove(f.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing session file: %w", err)
	}
	return nil
}

// MemoryStorage keeps the session for the lifetime of the process. Useful
// in tests and for callers that do not want credentials on disk.
type MemoryStorage struct {
	mu      sync.Mutex
	session *Session
}

// NewMemoryStorage creates an empty in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

// Load implements Storage.
func (m *MemoryStorage) Load() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil, nil
	}
	session := *m.session
	return &session, nil
}

// Save implements Storage.
func (m *MemoryStorage) Save(session *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *session
	m.session = &copied
	return nil
}

// Clear implements Storage.
func (m *MemoryStorage) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = nil
	return nil
}

// SessionStore is the explicit session context handed to the API client:
// restored from storage at startup, set on login or registration, torn
// down on logout.
type SessionStore struct {
	mu      sync.RWMutex
	storage Storage
	current *Session
}

// NewSessionStore creates a session store and restores any saved session.
func NewSessionStore(storage Storage) (*SessionStore, error) {
	session, err := storage.Load()
	if err != nil {
		return nil, err
	}
	return &SessionStore{storage: storage, current: session}, nil
}

// Current returns the active session, if any.
func (s *SessionStore) Current() (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return Session{}, false
	}
	return *s.current, true
}

// Token returns the active bearer token, if any.
func (s *SessionStore) Token() (string, bool) {
	session, ok := s.Current()
	if !ok {
		return "", false
	}
	return session.Token, true
}

// Set persists and activates a session.
func (s *SessionStore) Set(session Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.storage.Save(&session); err != nil {
		return err
	}
	s.current = &session
	return nil
}

// Clear drops the active session and its persisted copy.
func (s *SessionStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.storage.Clear(); err != nil {
		return err
	}
	s.current = nil
	return nil
}
