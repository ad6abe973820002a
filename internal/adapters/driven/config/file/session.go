package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/runit-cli/internal/core/domain"
	"github.com/custodia-labs/runit-cli/internal/core/ports/driven"
	"github.com/custodia-labs/runit-cli/internal/logger"
)

// Ensure SessionStore implements the interface.
var _ driven.SessionStore = (*SessionStore)(nil)

// SessionFileName is the name of the session file inside the config directory.
const SessionFileName = "session.toml"

// watchDebounce coalesces the burst of events produced by one save.
const watchDebounce = 50 * time.Millisecond

// SessionStore persists the signed-in session as TOML with 0600 permissions.
// The file is read on every call so a login or logout from another shell
// takes effect immediately.
type SessionStore struct {
	mu       sync.Mutex
	dir      string
	filePath string
}

// NewSessionStore creates a session store in configDir.
// If configDir is empty, defaults to ~/.runit.
func NewSessionStore(configDir string) (*SessionStore, error) {
	if configDir == "" {
		dir, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		configDir = dir
	}
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, err
	}
	return &SessionStore{
		dir:      configDir,
		filePath: filepath.Join(configDir, SessionFileName),
	}, nil
}

// Path returns the session file path.
func (s *SessionStore) Path() string {
	return s.filePath
}

// Token returns the stored bearer token.
func (s *SessionStore) Token(ctx context.Context) (string, error) {
	session, err := s.Load(ctx)
	if err != nil {
		return "", err
	}
	if session.IsExpired() {
		return "", domain.ErrAuthExpired
	}
	return session.Token, nil
}

// Load reads the stored session.
func (s *SessionStore) Load(_ context.Context) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

func (s *SessionStore) read() (*domain.Session, error) {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrAuthRequired
		}
		return nil, err
	}

	var session domain.Session
	if err := toml.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.filePath, err)
	}
	if session.Token == "" {
		return nil, domain.ErrAuthRequired
	}
	return &session, nil
}

// Save replaces the stored session.
// The file is written to a temporary name and renamed into place so readers
// never see a partial session.
func (s *SessionStore) Save(_ context.Context, session domain.Session) error {
	if session.Token == "" {
		return domain.ErrInvalidInput
	}

	data, err := toml.Marshal(session)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.dir, ".session-*.toml")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := tmp.Chmod(0600); err != nil {
		_ = tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, s.filePath)
}

// Clear removes the stored session. Clearing an empty store is not an error.
func (s *SessionStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.filePath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Watch calls onChange whenever the session file is written or removed,
// until ctx is cancelled. onChange receives nil when no session is stored.
// The directory is watched rather than the file because Save replaces it.
func (s *SessionStore) Watch(ctx context.Context, onChange func(*domain.Session)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(s.dir); err != nil {
		_ = watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()

		var timer *time.Timer
		fire := make(chan struct{}, 1)
		defer func() {
			if timer != nil {
				timer.Stop()
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != SessionFileName {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
					!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(watchDebounce, func() {
					select {
					case fire <- struct{}{}:
					default:
					}
				})

			case <-fire:
				session, err := s.Load(ctx)
				switch {
				case errors.Is(err, domain.ErrAuthRequired):
					onChange(nil)
				case err != nil:
					logger.Warn("reload session: %v", err)
				default:
					onChange(session)
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("session watcher: %v", err)
			}
		}
	}()

	return nil
}
