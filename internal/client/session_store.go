package client

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/vncsmyrnk/pollregistry/internal/core/domain"
)

// SessionStore persists the session intent in a YAML file.
type SessionStore struct {
	path string
}

func NewSessionStore(path string) *SessionStore {
	return &SessionStore{path: path}
}

// Load returns the stored session, or a connect-seeking one when nothing has
// been stored yet.
func (s *SessionStore) Load() (domain.Session, error) {
	session := domain.Session{Intent: domain.IntentConnect}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return session, nil
	}
	if err != nil {
		return session, fmt.Errorf("failed to read session file: %w", err)
	}

	if err := yaml.Unmarshal(data, &session); err != nil {
		return domain.Session{Intent: domain.IntentConnect}, fmt.Errorf("failed to parse session file: %w", err)
	}
	if session.Intent != domain.IntentDisconnected {
		session.Intent = domain.IntentConnect
	}
	return session, nil
}

func (s *SessionStore) Save(session domain.Session) error {
	data, err := yaml.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("failed to create session directory: %w", err)
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return os.Rename(tmp, s.path)
}
