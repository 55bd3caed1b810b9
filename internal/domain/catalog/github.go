package catalog

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/Smallzoamz/Bonchon-Studio/internal/logging"
	"github.com/Smallzoamz/Bonchon-Studio/internal/providers/http/client"
	"github.com/Smallzoamz/Bonchon-Studio/internal/shared/types"
	"github.com/Smallzoamz/Bonchon-Studio/internal/shared/utils"
)

// ReleaseResolver looks up the latest release of "owner/repo". A nil
// release with a nil error means the repository has no releases.
type ReleaseResolver interface {
	LatestRelease(ctx context.Context, repo string) (*types.Release, error)
}

// GitHubOptions configures a GitHub resolver
type GitHubOptions struct {
	APIURL            string
	Token             string
	UserAgent         string
	RequestsPerSecond float64
	ExecutableExt     string
	Logger            *logging.Logger
}

// GitHub resolves releases through the GitHub REST API
type GitHub struct {
	client *client.Client
	api    string
	exeExt string
	policy *bluemonday.Policy
	logger *logging.Logger
}

type githubAsset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
}

type githubRelease struct {
	TagName     string        `json:"tag_name"`
	Body        string        `json:"body"`
	PublishedAt string        `json:"published_at"`
	Assets      []githubAsset `json:"assets"`
}

// NewGitHub creates a GitHub release resolver
func NewGitHub(opts GitHubOptions) *GitHub {
	if opts.APIURL == "" {
		opts.APIURL = "https://api.github.com"
	}
	if opts.ExecutableExt == "" {
		opts.ExecutableExt = ".exe"
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}

	logger := opts.Logger.Component("github")
	c := client.New(client.Options{
		UserAgent:         opts.UserAgent,
		Timeout:           15 * time.Second,
		RetryCount:        1,
		RequestsPerSecond: opts.RequestsPerSecond,
		FollowRedirects:   true,
		Logger:            logger,
	})
	c.SetHeader("Accept", "application/vnd.github+json")
	if opts.Token != "" {
		c.SetBearerAuth(opts.Token)
	}

	return &GitHub{
		client: c,
		api:    strings.TrimRight(opts.APIURL, "/"),
		exeExt: strings.ToLower(opts.ExecutableExt),
		policy: bluemonday.StrictPolicy(),
		logger: logger,
	}
}

// LatestRelease fetches the latest published release of repo
func (g *GitHub) LatestRelease(ctx context.Context, repo string) (*types.Release, error) {
	if err := utils.ValidateRepo(repo); err != nil {
		return nil, err
	}
	owner, name, _ := strings.Cut(repo, "/")

	req, err := g.client.Request(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := req.
		SetPathParams(map[string]string{"owner": owner, "repo": name}).
		Get(g.api + "/repos/{owner}/{repo}/releases/latest")
	if err != nil {
		return nil, fmt.Errorf("release lookup failed: %w", err)
	}

	switch {
	case resp.StatusCode() == http.StatusNotFound:
		g.logger.Debug("No releases published", zap.String("repo", repo))
		return nil, nil
	case !resp.IsSuccess():
		return nil, fmt.Errorf("release lookup for %s: HTTP %d", repo, resp.StatusCode())
	}

	var raw githubRelease
	if err := sonic.Unmarshal(resp.Body(), &raw); err != nil {
		return nil, fmt.Errorf("invalid release document: %w", err)
	}
	if raw.TagName == "" {
		return nil, nil
	}

	release := &types.Release{
		Version:     strings.TrimPrefix(raw.TagName, "v"),
		PublishedAt: raw.PublishedAt,
		Notes:       strings.TrimSpace(html.UnescapeString(g.policy.Sanitize(raw.Body))),
	}
	if asset, ok := g.pickAsset(raw.Assets); ok {
		release.AssetName = asset.Name
		release.DownloadURL = asset.BrowserDownloadURL
	}
	return release, nil
}

// pickAsset prefers a zip or an executable, then any asset
func (g *GitHub) pickAsset(assets []githubAsset) (githubAsset, bool) {
	for _, a := range assets {
		name := strings.ToLower(a.Name)
		if strings.HasSuffix(name, ".zip") || strings.HasSuffix(name, g.exeExt) {
			return a, true
		}
	}
	if len(assets) > 0 {
		return assets[0], true
	}
	return githubAsset{}, false
}
