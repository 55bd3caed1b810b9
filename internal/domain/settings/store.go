// Package settings persists user preferences (settings.json).
package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/bytedance/sonic"

	"github.com/Smallzoamz/Bonchon-Studio/internal/domain/ledger"
	"github.com/Smallzoamz/Bonchon-Studio/internal/shared/types"
)

// DefaultTheme is used when no theme has been chosen
const DefaultTheme = "dark"

// ErrInvalidSettings is returned by Save for values that cannot be stored
var ErrInvalidSettings = errors.New("invalid settings")

// document mirrors types.Settings with pointers so absent keys can take defaults
type document struct {
	DownloadPath   *string `json:"downloadPath"`
	AutoStart      *bool   `json:"autoStart"`
	MinimizeToTray *bool   `json:"minimizeToTray"`
	Theme          *string `json:"theme"`
}

// Store holds the settings document in memory and rewrites it on every change
type Store struct {
	mu              sync.RWMutex
	path            string
	defaultDownload string
	current         types.Settings
}

// Defaults returns settings used before the user changes anything
func Defaults(defaultDownload string) types.Settings {
	return types.Settings{
		DownloadPath:   defaultDownload,
		AutoStart:      false,
		MinimizeToTray: true,
		Theme:          DefaultTheme,
	}
}

// Open loads settings from path, filling absent keys with defaults
func Open(path, defaultDownload string) (*Store, error) {
	s := &Store{
		path:            path,
		defaultDownload: defaultDownload,
		current:         Defaults(defaultDownload),
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}
	if len(data) == 0 {
		return s, nil
	}

	var doc document
	if err := sonic.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse settings %s: %w", path, err)
	}
	s.current = s.merge(doc)
	return s, nil
}

func (s *Store) merge(doc document) types.Settings {
	out := Defaults(s.defaultDownload)
	if doc.DownloadPath != nil && *doc.DownloadPath != "" {
		out.DownloadPath = *doc.DownloadPath
	}
	if doc.AutoStart != nil {
		out.AutoStart = *doc.AutoStart
	}
	if doc.MinimizeToTray != nil {
		out.MinimizeToTray = *doc.MinimizeToTray
	}
	if doc.Theme != nil && *doc.Theme != "" {
		out.Theme = *doc.Theme
	}
	return out
}

// Get returns the current settings
func (s *Store) Get() types.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// DownloadRoot returns the directory apps are installed under
func (s *Store) DownloadRoot() string {
	return s.Get().DownloadPath
}

// Save validates and persists next. Empty download path and theme fall back to defaults.
func (s *Store) Save(next types.Settings) (types.Settings, error) {
	if next.DownloadPath == "" {
		next.DownloadPath = s.defaultDownload
	}
	if next.Theme == "" {
		next.Theme = DefaultTheme
	}
	if !filepath.IsAbs(next.DownloadPath) {
		return types.Settings{}, fmt.Errorf("%w: download path must be absolute: %q", ErrInvalidSettings, next.DownloadPath)
	}
	next.DownloadPath = filepath.Clean(next.DownloadPath)

	data, err := sonic.MarshalIndent(next, "", "  ")
	if err != nil {
		return types.Settings{}, fmt.Errorf("failed to marshal settings: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ledger.WriteFileAtomic(s.path, data); err != nil {
		return types.Settings{}, err
	}
	s.current = next
	return next, nil
}
