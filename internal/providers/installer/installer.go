package installer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Smallzoamz/Bonchon-Studio/internal/infrastructure/monitoring"
	"github.com/Smallzoamz/Bonchon-Studio/internal/logging"
	"github.com/Smallzoamz/Bonchon-Studio/internal/shared/types"
)

const (
	DefaultTickInterval = 200 * time.Millisecond
	// syntheticCeiling is never reached by ticks; only completion reports past it
	syntheticCeiling = 95
	stagingPrefix    = ".staging-"
)

// ErrCancelled is returned when ctx is cancelled before Install settles
var ErrCancelled = errors.New("installation cancelled")

// Error is an installation failure tagged with its category
type Error struct {
	Kind types.ErrorKind
	Err  error
}

func (e *Error) Error() string { return e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the category of an Install error
func KindOf(err error) types.ErrorKind {
	var ie *Error
	if errors.As(err, &ie) {
		return ie.Kind
	}
	return types.ErrorFilesystem
}

// ProgressFunc receives synthetic extraction percentages
type ProgressFunc func(percent int)

// Result describes a settled installation
type Result struct {
	FinalPath   string
	InstallRoot string
	Kind        ArtifactKind
	Format      Format
	Files       int
	// Discovered is false when no executable matched and FinalPath is the root
	Discovered bool
}

// Options configures an Installer
type Options struct {
	ExecutableExt  string
	DiscoveryDepth int
	TickInterval   time.Duration
	Logger         *logging.Logger
	Metrics        *monitoring.Metrics
}

// Installer extracts artifacts and finds their executables
type Installer struct {
	exeExt  string
	finder  Finder
	tick    time.Duration
	logger  *logging.Logger
	metrics *monitoring.Metrics
}

// New creates an Installer
func New(opts Options) *Installer {
	if opts.ExecutableExt == "" {
		opts.ExecutableExt = ".exe"
	}
	if opts.DiscoveryDepth <= 0 {
		opts.DiscoveryDepth = DefaultDiscoveryDepth
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	return &Installer{
		exeExt:  opts.ExecutableExt,
		finder:  Finder{Ext: opts.ExecutableExt, MaxDepth: opts.DiscoveryDepth},
		tick:    opts.TickInterval,
		logger:  opts.Logger.Component("installer"),
		metrics: opts.Metrics,
	}
}

// Install places artifact under installRoot. Archives are extracted and
// removed; anything else is used as is. hint is an optional glob naming the
// executable relative to installRoot.
//
// Cancellation before or during extraction removes the artifact and any
// partial output. Cancellation after extraction leaves the extracted files
// but still returns ErrCancelled.
func (i *Installer) Install(ctx context.Context, artifact, installRoot, appID, hint string, onProgress ProgressFunc) (Result, error) {
	log := i.logger.WithApp(appID)

	if ctx.Err() != nil {
		os.Remove(artifact)
		return Result{}, ErrCancelled
	}
	if _, err := os.Stat(artifact); err != nil {
		return Result{}, &Error{Kind: types.ErrorFilesystem, Err: fmt.Errorf("artifact missing: %w", err)}
	}

	kind, format := Classify(artifact, i.exeExt)
	result := Result{InstallRoot: installRoot, Kind: kind, Format: format}

	if kind != KindArchive {
		log.Info("Artifact used in place", zap.String("kind", kind.String()), zap.String("path", artifact))
		result.FinalPath = artifact
		result.Discovered = true
		return result, nil
	}

	if onProgress == nil {
		onProgress = func(int) {}
	}
	onProgress(0)

	files, err := i.extractStaged(ctx, artifact, installRoot, format, onProgress)
	if errors.Is(err, ErrCancelled) {
		log.Info("Extraction cancelled")
		return Result{}, err
	}
	if err != nil {
		log.Warn("Extraction failed", zap.Error(err))
		os.Remove(artifact)
		return Result{}, err
	}
	result.Files = files

	if err := os.Remove(artifact); err != nil && !os.IsNotExist(err) {
		log.Warn("Failed to delete archive", zap.String("path", artifact), zap.Error(err))
	}
	onProgress(100)

	if ctx.Err() != nil {
		return result, ErrCancelled
	}

	exe, err := i.finder.Find(ctx, installRoot, hint)
	if ctx.Err() != nil {
		return result, ErrCancelled
	}
	if err != nil {
		log.Warn("Executable discovery failed", zap.Error(err))
	}

	if exe == "" {
		log.Warn("No executable found, using install directory", zap.String("root", installRoot))
		result.FinalPath = installRoot
		return result, nil
	}

	log.Info("Installation complete", zap.String("executable", exe), zap.Int("files", files))
	result.FinalPath = exe
	result.Discovered = true
	return result, nil
}

// extractStaged runs extraction on its own goroutine into a staging directory
// while ticking synthetic progress, then promotes the staged tree.
func (i *Installer) extractStaged(ctx context.Context, artifact, installRoot string, format Format, onProgress ProgressFunc) (int, error) {
	staging := filepath.Join(installRoot, stagingPrefix+uuid.NewString())
	if err := os.MkdirAll(staging, 0755); err != nil {
		return 0, &Error{Kind: types.ErrorFilesystem, Err: fmt.Errorf("failed to create staging directory: %w", err)}
	}
	defer os.RemoveAll(staging)

	type outcome struct {
		files int
		err   error
	}
	done := make(chan outcome, 1)
	started := time.Now()

	go func() {
		n, err := extract(ctx, artifact, staging, format)
		done <- outcome{files: n, err: err}
	}()

	ticker := time.NewTicker(i.tick)
	defer ticker.Stop()

	current := 0.0
	for {
		select {
		case out := <-done:
			i.metrics.ObserveExtraction(time.Since(started))
			if ctx.Err() != nil {
				os.Remove(artifact)
				return 0, ErrCancelled
			}
			if out.err != nil {
				return 0, &Error{Kind: types.ErrorExtraction, Err: fmt.Errorf("extraction failed: %w", out.err)}
			}
			if err := promote(staging, installRoot); err != nil {
				return 0, &Error{Kind: types.ErrorFilesystem, Err: err}
			}
			return out.files, nil

		case <-ticker.C:
			current = nextTick(current)
			onProgress(int(current))

		case <-ctx.Done():
			<-done
			os.Remove(artifact)
			return 0, ErrCancelled
		}
	}
}

// nextTick advances synthetic progress by a tenth of the remaining distance
// to the ceiling, at least one point, without reaching the ceiling.
func nextTick(current float64) float64 {
	step := (syntheticCeiling - current) * 0.1
	if step < 1 {
		step = 1
	}
	next := current + step
	if next > syntheticCeiling-1 {
		next = syntheticCeiling - 1
	}
	return next
}

// promote moves every top-level entry of staging into root, replacing
// entries of the same name from a previous installation.
func promote(staging, root string) error {
	entries, err := os.ReadDir(staging)
	if err != nil {
		return fmt.Errorf("failed to read staging directory: %w", err)
	}
	for _, entry := range entries {
		target := filepath.Join(root, entry.Name())
		if err := os.RemoveAll(target); err != nil {
			return fmt.Errorf("failed to replace %s: %w", entry.Name(), err)
		}
		if err := os.Rename(filepath.Join(staging, entry.Name()), target); err != nil {
			return fmt.Errorf("failed to place %s: %w", entry.Name(), err)
		}
	}
	return nil
}
