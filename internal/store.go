package internal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// CredentialStore is the durable home of the bearer token. Token returns ""
// when no credential is stored. ClearToken is idempotent.
type CredentialStore interface {
	Token() (string, error)
	SetToken(token string) error
	ClearToken() error
}

// credentialFile is the YAML layout of the file store
type credentialFile struct {
	Token     string    `yaml:"token,omitempty"`
	UpdatedAt time.Time `yaml:"updated_at,omitempty"`
}

// FileStore keeps the credential in a YAML file readable only by the owner
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a file-backed credential store. The file is created lazily.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path
func (s *FileStore) Path() string {
	return s.path
}

// Token returns the stored token, or "" when none is stored
func (s *FileStore) Token() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cf, err := s.load()
	if err != nil {
		return "", err
	}
	return cf.Token, nil
}

// SetToken stores a token, replacing any previous one
func (s *FileStore) SetToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return &StoreError{Path: s.path, Op: "write", Err: err}
	}
	data, err := yaml.Marshal(credentialFile{Token: token, UpdatedAt: time.Now().UTC()})
	if err != nil {
		return &StoreError{Path: s.path, Op: "write", Err: fmt.Errorf("failed to marshal credential: %w", err)}
	}
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return &StoreError{Path: s.path, Op: "write", Err: err}
	}
	return nil
}

// ClearToken removes the stored credential. Clearing an absent credential is not an error.
func (s *FileStore) ClearToken() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return &StoreError{Path: s.path, Op: "clear", Err: err}
	}
	return nil
}

func (s *FileStore) load() (credentialFile, error) {
	var cf credentialFile
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return cf, nil
	}
	if err != nil {
		return cf, &StoreError{Path: s.path, Op: "read", Err: err}
	}
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return cf, &StoreError{Path: s.path, Op: "read", Err: fmt.Errorf("failed to unmarshal credential: %w", err)}
	}
	return cf, nil
}

// MemoryStore is a process-local credential store
type MemoryStore struct {
	mu    sync.RWMutex
	token string
}

// NewMemoryStore creates a MemoryStore holding token (may be empty)
func NewMemoryStore(token string) *MemoryStore {
	return &MemoryStore{token: token}
}

func (s *MemoryStore) Token() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, nil
}

func (s *MemoryStore) SetToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

func (s *MemoryStore) ClearToken() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	return nil
}
