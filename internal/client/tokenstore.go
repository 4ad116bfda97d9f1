package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// TokenStore persists the session token between CLI invocations.
type TokenStore interface {
	// Load returns "" without error when no token is stored.
	Load() (string, error)
	Save(token string) error
	Clear() error
}

type tokenFile struct {
	Token    string        `json:"token"`
	SavedAt  time.Time     `json:"saved_at"`
	Verified *verification `json:"verified,omitempty"`
}

// verification is the last successful remote check of the stored token.
type verification struct {
	Value json.RawMessage `json:"value"`
	Until time.Time       `json:"until"`
}

// FileTokenStore keeps the token in a 0600 JSON file. It also satisfies
// cache.Store for a single key, the stored token, so a guard's verification
// window carries over between CLI invocations.
type FileTokenStore struct {
	path string
	now  func() time.Time
}

func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{path: path, now: time.Now}
}

// WithClock replaces the store's time source.
func (s *FileTokenStore) WithClock(now func() time.Time) *FileTokenStore {
	s.now = now
	return s
}

// DefaultTokenPath is $XDG_CONFIG_HOME/blogctl/token.json, falling back to
// ~/.config/blogctl/token.json.
func DefaultTokenPath() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "blogctl", "token.json")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "blogctl", "token.json")
}

func (s *FileTokenStore) Load() (string, error) {
	tf, err := s.read()
	if err != nil {
		return "", err
	}
	return tf.Token, nil
}

func (s *FileTokenStore) Save(token string) error {
	return s.write(tokenFile{Token: token, SavedAt: s.now().UTC()})
}

func (s *FileTokenStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove token: %w", err)
	}
	return nil
}

// Get reports the cached verification for key while it is live and key is
// still the stored token.
func (s *FileTokenStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	tf, err := s.read()
	if err != nil {
		return nil, false, err
	}
	if tf.Token == "" || tf.Token != key || tf.Verified == nil {
		return nil, false, nil
	}
	if !s.now().Before(tf.Verified.Until) {
		return nil, false, nil
	}
	return tf.Verified.Value, true, nil
}

// Set records a verification for the stored token. Any other key is ignored.
func (s *FileTokenStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	tf, err := s.read()
	if err != nil {
		return err
	}
	if tf.Token == "" || tf.Token != key || ttl <= 0 {
		return nil
	}
	if !json.Valid(value) {
		return errors.New("verification value is not JSON")
	}
	tf.Verified = &verification{Value: value, Until: s.now().Add(ttl).UTC()}
	return s.write(tf)
}

// Delete drops the cached verification, keeping the token itself.
func (s *FileTokenStore) Delete(_ context.Context, keys ...string) error {
	tf, err := s.read()
	if err != nil {
		return err
	}
	if tf.Verified == nil {
		return nil
	}
	for _, key := range keys {
		if key == tf.Token {
			tf.Verified = nil
			return s.write(tf)
		}
	}
	return nil
}

func (s *FileTokenStore) read() (tokenFile, error) {
	var tf tokenFile
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return tf, nil
		}
		return tf, fmt.Errorf("read token: %w", err)
	}
	if err := json.Unmarshal(b, &tf); err != nil {
		return tf, fmt.Errorf("decode token file: %w", err)
	}
	return tf, nil
}

func (s *FileTokenStore) write(tf tokenFile) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	b, err := json.MarshalIndent(tf, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.path, b, 0o600); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	return nil
}
