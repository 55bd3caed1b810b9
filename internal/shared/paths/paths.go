// Package paths provides the launcher's on-disk layout.
package paths

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Smallzoamz/Bonchon-Studio/internal/shared/utils"
)

// Data files kept in the data directory
const (
	LedgerFile   = "installed-apps.json"
	SettingsFile = "settings.json"
	CatalogCache = "catalog-cache.json"
)

const (
	// AppDirName is the per-user data directory name
	AppDirName = "bonchon-launcher"
	// DownloadDirName is created under the user's Downloads folder
	DownloadDirName = "Bonchon-Apps"
)

// Layout resolves every launcher path from two roots
type Layout struct {
	DataDir     string
	DownloadDir string
}

// NewLayout fills empty roots with platform defaults
func NewLayout(dataDir, downloadDir string) Layout {
	if dataDir == "" {
		dataDir = DefaultDataDir()
	}
	if downloadDir == "" {
		downloadDir = DefaultDownloadDir()
	}
	return Layout{DataDir: dataDir, DownloadDir: downloadDir}
}

// Ledger returns the installed-apps document path
func (l Layout) Ledger() string {
	return filepath.Join(l.DataDir, LedgerFile)
}

// Settings returns the settings document path
func (l Layout) Settings() string {
	return filepath.Join(l.DataDir, SettingsFile)
}

// Cache returns the last-known-good catalog path
func (l Layout) Cache() string {
	return filepath.Join(l.DataDir, CatalogCache)
}

// InstallDir returns <download root>/<appID>
func InstallDir(root, appID string) (string, error) {
	if err := utils.ValidateAppID(appID); err != nil {
		return "", err
	}
	return filepath.Join(root, appID), nil
}

// DefaultDataDir returns the per-user config directory for the launcher
func DefaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, AppDirName)
	}
	return filepath.Join(os.TempDir(), AppDirName)
}

// DefaultDownloadDir returns ~/Downloads/Bonchon-Apps
func DefaultDownloadDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, "Downloads", DownloadDirName)
	}
	return filepath.Join(os.TempDir(), DownloadDirName)
}

// IsWithin reports whether path lies inside (or equals) root
func IsWithin(root, path string) bool {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !filepath.IsAbs(rel) && !hasParentPrefix(rel))
}

func hasParentPrefix(rel string) bool {
	return len(rel) >= 3 && rel[:2] == ".." && os.IsPathSeparator(rel[2])
}

// EnsureDir creates dir and its parents
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}
