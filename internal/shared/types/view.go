package types

// AppView joins a catalog entry with its install record for listing
type AppView struct {
	App             CatalogEntry        `json:"app"`
	Installed       *InstalledAppRecord `json:"installed,omitempty"`
	State           string              `json:"state"`
	UpdateAvailable bool                `json:"updateAvailable"`
}

// AppState is the live view of one app id
type AppState struct {
	AppID     string    `json:"appId"`
	State     string    `json:"state"`
	Operation Operation `json:"operation,omitempty"`
	JobID     string    `json:"jobId,omitempty"`
	Installed bool      `json:"installed"`
	LastEvent *Event    `json:"lastEvent,omitempty"`
}

// LauncherUpdate is the result of checking the launcher's own repository
type LauncherUpdate struct {
	CurrentVersion string `json:"currentVersion"`
	LatestVersion  string `json:"latestVersion,omitempty"`
	Available      bool   `json:"available"`
	DownloadURL    string `json:"downloadUrl,omitempty"`
	Notes          string `json:"notes,omitempty"`
	PublishedAt    string `json:"publishedAt,omitempty"`
}
