package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

const (
	appDirName    = "tutorinminutes"
	tokenFileName = "session.json"
	tokenFileMode = 0o600
	tokenDirMode  = 0o700
)

// session is the on-disk shape. The access token lives under "authToken".
type session struct {
	AuthToken    string `json:"authToken,omitempty"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// TokenStore persists the session tokens in a JSON file. Having an auth token
// is all that "logged in" means; it is never validated locally.
type TokenStore struct {
	mu   sync.Mutex
	path string
}

// NewTokenStore keeps tokens in the file at path.
func NewTokenStore(path string) *TokenStore {
	return &TokenStore{path: path}
}

// DefaultTokenStore keeps tokens under the user's config directory.
func DefaultTokenStore() (*TokenStore, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to locate config dir: %w", err)
	}
	return NewTokenStore(filepath.Join(dir, appDirName, tokenFileName)), nil
}

func (s *TokenStore) Path() string { return s.path }

// Token returns the stored auth token, or "" when there is none.
func (s *TokenStore) Token() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.read()
	return sess.AuthToken, err
}

// RefreshToken returns the stored refresh token, or "".
func (s *TokenStore) RefreshToken() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.read()
	return sess.RefreshToken, err
}

func (s *TokenStore) Save(authToken, refreshToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(session{AuthToken: authToken, RefreshToken: refreshToken}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), tokenDirMode); err != nil {
		return fmt.Errorf("failed to create session dir: %w", err)
	}
	if err := os.WriteFile(s.path, data, tokenFileMode); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}

// Clear removes the session file. A missing file is not an error.
func (s *TokenStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove session: %w", err)
	}
	return nil
}

func (s *TokenStore) read() (session, error) {
	var sess session
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return sess, nil
	}
	if err != nil {
		return sess, fmt.Errorf("failed to read session: %w", err)
	}
	if err := json.Unmarshal(data, &sess); err != nil {
		return session{}, fmt.Errorf("failed to parse session: %w", err)
	}
	return sess, nil
}
