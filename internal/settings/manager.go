// ABOUTME: Settings manager with explicit load/save lifecycle and change watch
// ABOUTME: A missing file means defaults; saving always writes the full schema

package settings

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// Manager owns the settings file. Reads hand out copies; writes go
// through Update or the typed setters and persist immediately.
type Manager struct {
	path   string
	logger *slog.Logger

	mu       sync.RWMutex
	settings Settings
}

// NewManager loads settings from path, creating parent directories as
// needed. An empty path means DefaultPath. A missing file is not an
// error; the manager starts from defaults and the file appears on the
// first save. A nil logger falls back to slog.Default.
func NewManager(path string, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create settings directory: %w", err)
	}

	m := &Manager{
		path:     path,
		logger:   logger.With("component", "settings"),
		settings: Default(),
	}
	if err := m.reload(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	return m, nil
}

// Path returns the settings file location.
func (m *Manager) Path() string { return m.path }

// Get returns a copy of the current settings.
func (m *Manager) Get() Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings
}

// Update applies fn to a copy of the settings, validates the result and
// persists it. On any failure the in-memory settings are unchanged.
func (m *Manager) Update(fn func(*Settings)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.settings
	fn(&next)
	if err := next.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	if err := m.writeLocked(next); err != nil {
		return err
	}
	m.settings = next
	return nil
}

// SetServiceURL persists a new gateway URL.
func (m *Manager) SetServiceURL(url string) error {
	return m.Update(func(s *Settings) { s.ServiceURL = url })
}

// SetAuthToken persists a new bearer token.
func (m *Manager) SetAuthToken(token string) error {
	return m.Update(func(s *Settings) { s.AuthToken = token })
}

// SetPersistChats persists the persistence toggle.
func (m *Manager) SetPersistChats(on bool) error {
	return m.Update(func(s *Settings) { s.PersistChats = on })
}

// Watch reloads the file when it changes on disk and calls onChange with
// the new settings whenever they differ from the current ones. The watch
// stops when ctx is done. Saves made through this manager do not
// produce callbacks since they never differ from memory.
func (m *Manager) Watch(ctx context.Context, onChange func(Settings)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create settings watcher: %w", err)
	}
	// Watch the directory: editors replace files, which would drop a
	// watch set on the file itself.
	if err := watcher.Add(filepath.Dir(m.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch settings directory: %w", err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != m.path {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				before := m.Get()
				if err := m.reload(); err != nil {
					m.logger.Warn("settings reload failed", "error", err)
					continue
				}
				after := m.Get()
				if after != before {
					m.logger.Info("settings changed on disk")
					if onChange != nil {
						onChange(after)
					}
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				m.logger.Warn("settings watcher error", "error", err)
			}
		}
	}()
	return nil
}

// reload reads the file, expands ${VAR} references, validates and swaps
// the in-memory settings.
func (m *Manager) reload() error {
	data, err := os.ReadFile(m.path)
	if err != nil {
		return fmt.Errorf("read settings: %w", err)
	}

	loaded := Default()
	expanded := expandEnvVars(string(data))
	if err := yaml.Unmarshal([]byte(expanded), &loaded); err != nil {
		return fmt.Errorf("parse settings: %w", err)
	}
	loaded.applyDefaults()
	if err := loaded.Validate(); err != nil {
		return fmt.Errorf("invalid settings file: %w", err)
	}

	m.mu.Lock()
	m.settings = loaded
	m.mu.Unlock()
	return nil
}

// writeLocked persists s. Token material lives here, hence 0600. Note
// that a save writes resolved values: a ${VAR} reference in the file
// survives only until the next programmatic save.
func (m *Manager) writeLocked(s Settings) error {
	data, err := yaml.Marshal(&s)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := os.WriteFile(m.path, data, 0600); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}
