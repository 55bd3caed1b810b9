package types

import "strings"

// CatalogEntry describes an installable application
type CatalogEntry struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Icon        string `json:"icon,omitempty" yaml:"icon,omitempty"`
	Version     string `json:"version" yaml:"version"`
	DownloadURL string `json:"downloadUrl" yaml:"downloadUrl"`
	GithubRepo  string `json:"githubRepo,omitempty" yaml:"githubRepo,omitempty"`
	Size        string `json:"size,omitempty" yaml:"size,omitempty"`
	Category    string `json:"category,omitempty" yaml:"category,omitempty"`
	BgColor     string `json:"bgColor,omitempty" yaml:"bgColor,omitempty"`

	// Executable is an optional glob (relative to the install root) naming the entry point
	Executable string `json:"executable,omitempty" yaml:"executable,omitempty"`
}

// RepoRef splits GithubRepo into owner and repo. ok is false when the
// reference is not of the form "owner/repo".
func (e CatalogEntry) RepoRef() (owner, repo string, ok bool) {
	owner, repo, ok = strings.Cut(strings.Trim(e.GithubRepo, "/"), "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", false
	}
	return owner, repo, true
}

// Catalog is the document shape served at the catalog URL
type Catalog struct {
	Apps []CatalogEntry `json:"apps" yaml:"apps"`
}

// CatalogSource reports where the active catalog came from
type CatalogSource string

const (
	SourceRemote   CatalogSource = "remote"
	SourceCache    CatalogSource = "cache"
	SourceFallback CatalogSource = "fallback"
)

// Release is the latest published release of a repository
type Release struct {
	Version     string `json:"version"`
	DownloadURL string `json:"downloadUrl,omitempty"`
	AssetName   string `json:"assetName,omitempty"`
	PublishedAt string `json:"publishedAt,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

// UpdateInfo pairs an installed app with a newer catalog version
type UpdateInfo struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	CurrentVersion string `json:"currentVersion"`
	NewVersion     string `json:"newVersion"`
}
