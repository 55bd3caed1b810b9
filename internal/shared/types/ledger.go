package types

import "time"

// InstalledAppRecord is one ledger row
type InstalledAppRecord struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Version     string     `json:"version"`
	InstalledAt time.Time  `json:"installedAt"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`

	// Path is the launchable entry point (or the install root when none was found)
	Path string `json:"path"`

	// InstallDir is the directory removed on uninstall
	InstallDir string `json:"installDir,omitempty"`
	SizeBytes  int64  `json:"sizeBytes,omitempty"`
}

// Settings holds user preferences
type Settings struct {
	DownloadPath   string `json:"downloadPath"`
	AutoStart      bool   `json:"autoStart"`
	MinimizeToTray bool   `json:"minimizeToTray"`
	Theme          string `json:"theme"`
}
