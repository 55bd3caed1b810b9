package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/Smallzoamz/Bonchon-Studio/internal/domain/ledger"
	"github.com/Smallzoamz/Bonchon-Studio/internal/infrastructure/monitoring"
	"github.com/Smallzoamz/Bonchon-Studio/internal/logging"
	"github.com/Smallzoamz/Bonchon-Studio/internal/providers/http/client"
	"github.com/Smallzoamz/Bonchon-Studio/internal/shared/types"
)

const syncConcurrency = 4

// ErrUnavailable is returned when the remote catalog could not be fetched
var ErrUnavailable = errors.New("catalog unavailable")

// Options configures a Store
type Options struct {
	URL       string
	CachePath string
	UserAgent string
	Timeout   time.Duration
	Resolver  ReleaseResolver
	Fallback  []types.CatalogEntry
	Logger    *logging.Logger
	Metrics   *monitoring.Metrics
}

// Store holds the active catalog
type Store struct {
	mu      sync.RWMutex
	entries []types.CatalogEntry
	source  types.CatalogSource
	loaded  time.Time

	client    *client.Client
	url       string
	cachePath string
	resolver  ReleaseResolver
	fallback  []types.CatalogEntry
	logger    *logging.Logger
	metrics   *monitoring.Metrics
}

// New creates a Store seeded with the fallback list
func New(opts Options) *Store {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Fallback == nil {
		opts.Fallback = Fallback()
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}

	logger := opts.Logger.Component("catalog")
	return &Store{
		entries: cloneEntries(opts.Fallback),
		source:  types.SourceFallback,
		client: client.New(client.Options{
			UserAgent:       opts.UserAgent,
			Timeout:         opts.Timeout,
			RetryCount:      2,
			FollowRedirects: true,
			Logger:          logger,
		}),
		url:       opts.URL,
		cachePath: opts.CachePath,
		resolver:  opts.Resolver,
		fallback:  cloneEntries(opts.Fallback),
		logger:    logger,
		metrics:   opts.Metrics,
	}
}

// Refresh reloads the catalog: remote first, then the cache, then the
// built-in list. The catalog is always usable afterwards; a non-nil error
// wraps ErrUnavailable and explains why the remote was not used.
func (s *Store) Refresh(ctx context.Context) (types.CatalogSource, error) {
	cat, remoteErr := s.fetchRemote(ctx)
	if remoteErr == nil {
		if err := s.writeCache(cat); err != nil {
			s.logger.Warn("Failed to write catalog cache", zap.Error(err))
		}
		s.set(cat.Apps, types.SourceRemote)
		s.logger.Info("Catalog loaded", zap.String("source", string(types.SourceRemote)), zap.Int("apps", len(cat.Apps)))
		return types.SourceRemote, nil
	}

	s.logger.Warn("Remote catalog unavailable", zap.String("url", s.url), zap.Error(remoteErr))
	unavailable := fmt.Errorf("%w: %w", ErrUnavailable, remoteErr)

	if cached, err := s.readCache(); err == nil {
		s.set(cached.Apps, types.SourceCache)
		s.logger.Info("Catalog loaded", zap.String("source", string(types.SourceCache)), zap.Int("apps", len(cached.Apps)))
		return types.SourceCache, unavailable
	} else if !os.IsNotExist(err) {
		s.logger.Warn("Catalog cache unreadable", zap.Error(err))
	}

	s.set(s.fallback, types.SourceFallback)
	s.logger.Info("Catalog loaded", zap.String("source", string(types.SourceFallback)), zap.Int("apps", len(s.fallback)))
	return types.SourceFallback, unavailable
}

// Sync resolves every entry with a repository reference to its latest
// release. A release overwrites the version and, when it has one, the
// download URL. Lookup failures leave the entry as it was. It returns the
// number of entries that changed.
func (s *Store) Sync(ctx context.Context) int {
	if s.resolver == nil {
		return 0
	}

	entries := s.Entries()
	releases := make([]*types.Release, len(entries))

	var wg sync.WaitGroup
	sem := make(chan struct{}, syncConcurrency)
	for i, entry := range entries {
		if entry.GithubRepo == "" {
			continue
		}
		wg.Add(1)
		go func(i int, repo string) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			defer func() { <-sem }()

			release, err := s.resolver.LatestRelease(ctx, repo)
			if err != nil {
				s.logger.Warn("Release sync failed", zap.String("repo", repo), zap.Error(err))
				return
			}
			releases[i] = release
		}(i, entry.GithubRepo)
	}
	wg.Wait()

	updates := make(map[string]*types.Release)
	for i, release := range releases {
		if release != nil && release.Version != "" {
			updates[entries[i].ID] = release
		}
	}
	return s.apply(updates)
}

func (s *Store) apply(updates map[string]*types.Release) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := 0
	for i := range s.entries {
		release, ok := updates[s.entries[i].ID]
		if !ok {
			continue
		}
		entry := &s.entries[i]
		before := *entry
		entry.Version = release.Version
		if release.DownloadURL != "" {
			entry.DownloadURL = release.DownloadURL
		}
		if *entry != before {
			changed++
			s.logger.Info("Catalog entry synced", zap.String("app_id", entry.ID), zap.String("version", entry.Version))
		}
	}
	return changed
}

// Entries returns a copy of the active catalog
func (s *Store) Entries() []types.CatalogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneEntries(s.entries)
}

// Get looks up an entry by app id
func (s *Store) Get(appID string) (types.CatalogEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.entries {
		if e.ID == appID {
			return e, true
		}
	}
	return types.CatalogEntry{}, false
}

// Source reports where the active catalog came from
func (s *Store) Source() types.CatalogSource {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.source
}

// LoadedAt returns when the active catalog was last replaced
func (s *Store) LoadedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

func (s *Store) set(entries []types.CatalogEntry, source types.CatalogSource) {
	s.mu.Lock()
	s.entries = cloneEntries(entries)
	s.source = source
	s.loaded = time.Now()
	s.mu.Unlock()
	s.metrics.RecordCatalogLoad(string(source))
}

func (s *Store) fetchRemote(ctx context.Context) (types.Catalog, error) {
	if s.url == "" {
		return types.Catalog{}, errors.New("no catalog url configured")
	}

	req, err := s.client.Request(ctx)
	if err != nil {
		return types.Catalog{}, err
	}
	resp, err := req.Get(s.url)
	if err != nil {
		return types.Catalog{}, fmt.Errorf("fetch failed: %w", err)
	}
	if !resp.IsSuccess() {
		return types.Catalog{}, fmt.Errorf("fetch failed: HTTP %d", resp.StatusCode())
	}
	return Decode(resp.Body())
}

func (s *Store) readCache() (types.Catalog, error) {
	if s.cachePath == "" {
		return types.Catalog{}, os.ErrNotExist
	}
	data, err := os.ReadFile(s.cachePath)
	if err != nil {
		return types.Catalog{}, err
	}
	return Decode(data)
}

func (s *Store) writeCache(cat types.Catalog) error {
	if s.cachePath == "" {
		return nil
	}
	data, err := sonic.MarshalIndent(cat, "", "  ")
	if err != nil {
		return err
	}
	return ledger.WriteFileAtomic(s.cachePath, data)
}

func cloneEntries(entries []types.CatalogEntry) []types.CatalogEntry {
	out := make([]types.CatalogEntry, len(entries))
	copy(out, entries)
	return out
}
