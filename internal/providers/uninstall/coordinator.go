package uninstall

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/Smallzoamz/Bonchon-Studio/internal/infrastructure/monitoring"
	"github.com/Smallzoamz/Bonchon-Studio/internal/logging"
)

const (
	DefaultSettleDelay = 1500 * time.Millisecond
	DefaultRetryDelay  = time.Second
	DefaultRetries     = 2
)

// ErrRemoveFailed is returned when every removal strategy failed
var ErrRemoveFailed = errors.New("failed to remove install directory")

// RemoveFunc deletes a directory tree
type RemoveFunc func(dir string) error

// FallbackFunc is the last-resort removal strategy
type FallbackFunc func(ctx context.Context, dir string) error

// Options configures a Coordinator
type Options struct {
	SettleDelay time.Duration
	Retries     int
	RetryDelay  time.Duration
	Killer      ProcessKiller
	Remove      RemoveFunc
	Fallback    FallbackFunc
	Logger      *logging.Logger
	Metrics     *monitoring.Metrics
}

// Coordinator removes install directories
type Coordinator struct {
	settle     time.Duration
	retries    int
	retryDelay time.Duration
	killer     ProcessKiller
	remove     RemoveFunc
	fallback   FallbackFunc
	logger     *logging.Logger
	metrics    *monitoring.Metrics
}

// New creates a Coordinator. Zero durations take the defaults; Retries is
// used as given and clamped at zero.
func New(opts Options) *Coordinator {
	if opts.SettleDelay <= 0 {
		opts.SettleDelay = DefaultSettleDelay
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.Killer == nil {
		opts.Killer = SystemKiller{}
	}
	if opts.Remove == nil {
		opts.Remove = os.RemoveAll
	}
	if opts.Fallback == nil {
		opts.Fallback = RunFallback
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	return &Coordinator{
		settle:     opts.SettleDelay,
		retries:    opts.Retries,
		retryDelay: opts.RetryDelay,
		killer:     opts.Killer,
		remove:     opts.Remove,
		fallback:   opts.Fallback,
		logger:     opts.Logger.Component("uninstall"),
		metrics:    opts.Metrics,
	}
}

// Uninstall terminates processes under installDir and deletes it. A missing
// directory is success. The returned error wraps ErrRemoveFailed and every
// attempt's failure when the directory could not be removed.
func (c *Coordinator) Uninstall(ctx context.Context, appID, installDir string) error {
	log := c.logger.WithApp(appID)

	if _, err := os.Stat(installDir); os.IsNotExist(err) {
		log.Info("Install directory already gone", zap.String("dir", installDir))
		return nil
	}

	if killed, err := c.killer.KillUnder(ctx, installDir); err != nil {
		log.Warn("Process termination incomplete", zap.Int("killed", killed), zap.Error(err))
	} else if killed > 0 {
		log.Info("Terminated running processes", zap.Int("killed", killed))
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(c.settle):
	}

	var result *multierror.Error

	attempt := 0
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.retryDelay), uint64(c.retries)),
		ctx,
	)
	err := backoff.Retry(func() error {
		attempt++
		err := c.remove(installDir)
		c.metrics.RecordRemoval("remove", err)
		if err != nil {
			log.Warn("Removal attempt failed", zap.Int("attempt", attempt), zap.Error(err))
			result = multierror.Append(result, fmt.Errorf("attempt %d: %w", attempt, err))
		}
		return err
	}, policy)
	if err == nil && gone(installDir) {
		log.Info("Install directory removed", zap.String("dir", installDir), zap.Int("attempts", attempt))
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	log.Warn("Falling back to platform removal", zap.String("dir", installDir))
	err = c.fallback(ctx, installDir)
	c.metrics.RecordRemoval("fallback", err)
	if err == nil && gone(installDir) {
		log.Info("Install directory removed by fallback", zap.String("dir", installDir))
		return nil
	}
	if err == nil {
		err = errors.New("directory still present")
	}
	result = multierror.Append(result, fmt.Errorf("fallback: %w", err))

	log.Error("Uninstall failed", zap.String("dir", installDir), zap.Error(result))
	return fmt.Errorf("%w: %s: %w", ErrRemoveFailed, installDir, result.ErrorOrNil())
}

// RunFallback removes dir with the platform's shell removal command
func RunFallback(ctx context.Context, dir string) error {
	out, err := fallbackCommand(ctx, dir).CombinedOutput()
	if err != nil {
		if msg := strings.TrimSpace(string(out)); msg != "" {
			return fmt.Errorf("%w: %s", err, msg)
		}
		return err
	}
	return nil
}

func gone(dir string) bool {
	_, err := os.Stat(dir)
	return os.IsNotExist(err)
}
