package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Smallzoamz/Bonchon-Studio/internal/infrastructure/monitoring"
	"github.com/Smallzoamz/Bonchon-Studio/internal/logging"
	"github.com/Smallzoamz/Bonchon-Studio/internal/providers/installer"
	"github.com/Smallzoamz/Bonchon-Studio/internal/providers/transfer"
	"github.com/Smallzoamz/Bonchon-Studio/internal/shared/id"
	"github.com/Smallzoamz/Bonchon-Studio/internal/shared/types"
	"github.com/Smallzoamz/Bonchon-Studio/internal/shared/utils"
)

var (
	ErrInProgress     = errors.New("operation already in progress")
	ErrUnknownApp     = errors.New("app not in catalog")
	ErrNotInstalled   = errors.New("app not installed")
	ErrUpToDate       = errors.New("app is up to date")
	ErrNoDownload     = errors.New("app has no download source")
	ErrNotActive      = errors.New("no operation running")
	ErrNotCancellable = errors.New("uninstall cannot be cancelled")
	ErrNotLaunchable  = errors.New("app has no launchable executable")
	ErrInvalidID      = errors.New("invalid app id")
	ErrClosed         = errors.New("orchestrator is shut down")
	ErrNotConfigured  = errors.New("launcher update check is not configured")
)

// Catalog is the read side of the catalog store
type Catalog interface {
	Get(appID string) (types.CatalogEntry, bool)
	Entries() []types.CatalogEntry
}

// Ledger persists install records
type Ledger interface {
	Get(appID string) (types.InstalledAppRecord, bool)
	List() []types.InstalledAppRecord
	Upsert(rec types.InstalledAppRecord) (types.InstalledAppRecord, error)
	Remove(appID string) error
}

// Transfers downloads artifacts
type Transfers interface {
	Start(ctx context.Context, appID, rawURL, destDir string, onProgress transfer.ProgressFunc) transfer.Outcome
	Cancel(appID string) bool
}

// Installer places artifacts
type Installer interface {
	Install(ctx context.Context, artifact, installRoot, appID, hint string, onProgress installer.ProgressFunc) (installer.Result, error)
}

// Uninstaller removes install directories
type Uninstaller interface {
	Uninstall(ctx context.Context, appID, installDir string) error
}

// Publisher receives lifecycle events
type Publisher interface {
	Publish(evt types.Event)
}

// ReleaseResolver looks up the latest release of a repository
type ReleaseResolver interface {
	LatestRelease(ctx context.Context, repo string) (*types.Release, error)
}

// Deps are the collaborators of an Orchestrator
type Deps struct {
	Catalog      Catalog
	Ledger       Ledger
	Transfers    Transfers
	Installer    Installer
	Uninstaller  Uninstaller
	Events       Publisher
	DownloadRoot func() string

	// Optional
	Releases        ReleaseResolver
	LauncherRepo    string
	LauncherVersion string
	Launch          func(path string) error
	Logger          *logging.Logger
}

// Orchestrator runs one job per app id
type Orchestrator struct {
	deps    Deps
	jobs    *jobTable
	base    context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.RWMutex
	closed  bool // Protected by mu
	logger  *logging.Logger
	metrics *monitoring.Metrics
}

// New creates an orchestrator
func New(deps Deps) *Orchestrator {
	if deps.Logger == nil {
		deps.Logger = logging.NewNop()
	}
	if deps.Launch == nil {
		deps.Launch = startDetached
	}
	base, stop := context.WithCancel(context.Background())
	return &Orchestrator{
		deps:   deps,
		jobs:   newJobTable(),
		base:   base,
		stop:   stop,
		logger: deps.Logger.Component("orchestrator"),
	}
}

// WithMetrics adds metrics tracking to the orchestrator
func (o *Orchestrator) WithMetrics(metrics *monitoring.Metrics) *Orchestrator {
	o.metrics = metrics
	return o
}

// RequestInstall downloads and installs the catalog entry for appID
func (o *Orchestrator) RequestInstall(appID string) (id.JobID, error) {
	entry, err := o.installable(appID)
	if err != nil {
		return "", err
	}
	return o.spawn(appID, types.OpInstall, func(j *job) { o.runInstall(j, entry, "") })
}

// RequestUpdate reinstalls appID when the catalog version differs from the installed one
func (o *Orchestrator) RequestUpdate(appID string) (id.JobID, error) {
	entry, err := o.installable(appID)
	if err != nil {
		return "", err
	}
	rec, ok := o.deps.Ledger.Get(appID)
	if !ok {
		return "", fmt.Errorf("%s: %w", appID, ErrNotInstalled)
	}
	if rec.Version == entry.Version {
		return "", fmt.Errorf("%s %s: %w", appID, rec.Version, ErrUpToDate)
	}
	dir, err := o.recordDir(rec)
	if err != nil {
		return "", err
	}
	return o.spawn(appID, types.OpUpdate, func(j *job) { o.runInstall(j, entry, dir) })
}

// RequestRepair reruns the full install flow for an installed app
func (o *Orchestrator) RequestRepair(appID string) (id.JobID, error) {
	entry, err := o.installable(appID)
	if err != nil {
		return "", err
	}
	rec, ok := o.deps.Ledger.Get(appID)
	if !ok {
		return "", fmt.Errorf("%s: %w", appID, ErrNotInstalled)
	}
	dir, err := o.recordDir(rec)
	if err != nil {
		return "", err
	}
	return o.spawn(appID, types.OpRepair, func(j *job) { o.runInstall(j, entry, dir) })
}

// RequestUninstall removes an installed app and its ledger record
func (o *Orchestrator) RequestUninstall(appID string) (id.JobID, error) {
	if err := utils.ValidateAppID(appID); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidID, err)
	}
	rec, ok := o.deps.Ledger.Get(appID)
	if !ok {
		return "", fmt.Errorf("%s: %w", appID, ErrNotInstalled)
	}
	return o.spawn(appID, types.OpUninstall, func(j *job) { o.runUninstall(j, rec) })
}

// Cancel stops the running install, update or repair for appID. The run
// settles with a cancelled event unless it had already passed its last
// cancellation point.
func (o *Orchestrator) Cancel(appID string) error {
	j, ok := o.jobs.get(appID)
	if !ok {
		return fmt.Errorf("%s: %w", appID, ErrNotActive)
	}
	if j.op == types.OpUninstall {
		return fmt.Errorf("%s: %w", appID, ErrNotCancellable)
	}

	j.cancelled.Store(true)
	j.cancel()
	o.deps.Transfers.Cancel(appID)
	o.logger.WithApp(appID).Info("Cancellation requested", zap.String("job_id", j.id.String()))
	return nil
}

// Active lists app ids with a running job
func (o *Orchestrator) Active() []string {
	return o.jobs.ids()
}

// Shutdown stops accepting requests and waits for running jobs. When ctx
// expires first, the remaining jobs are cancelled and awaited.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		o.stop()
		return nil
	case <-ctx.Done():
		o.logger.Warn("Cancelling running jobs", zap.Strings("apps", o.jobs.ids()))
		for _, j := range o.jobs.all() {
			j.cancelled.Store(true)
			o.deps.Transfers.Cancel(j.appID)
		}
		o.stop()
		<-done
		return ctx.Err()
	}
}

func (o *Orchestrator) installable(appID string) (types.CatalogEntry, error) {
	if err := utils.ValidateAppID(appID); err != nil {
		return types.CatalogEntry{}, fmt.Errorf("%w: %v", ErrInvalidID, err)
	}
	entry, ok := o.deps.Catalog.Get(appID)
	if !ok {
		return types.CatalogEntry{}, fmt.Errorf("%s: %w", appID, ErrUnknownApp)
	}
	if entry.DownloadURL == "" {
		return types.CatalogEntry{}, fmt.Errorf("%s: %w", appID, ErrNoDownload)
	}
	return entry, nil
}

// spawn claims appID and runs fn on a new goroutine
func (o *Orchestrator) spawn(appID string, op types.Operation, fn func(*job)) (id.JobID, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.closed {
		return "", ErrClosed
	}

	ctx, cancel := context.WithCancel(o.base)
	j := &job{
		id:      id.NewJobID(),
		appID:   appID,
		op:      op,
		started: time.Now(),
		ctx:     ctx,
		cancel:  cancel,
		state:   StateIdle,
	}
	if !o.jobs.claim(j) {
		cancel()
		return "", fmt.Errorf("%s: %w", appID, ErrInProgress)
	}

	j.timer = monitoring.NewTimer(o.metrics, string(op))
	o.logger.WithApp(appID).Info("Job started", zap.String("job_id", j.id.String()), zap.String("operation", string(op)))

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer cancel()
		fn(j)
	}()
	return j.id, nil
}
