package uninstall

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Smallzoamz/Bonchon-Studio/internal/infrastructure/monitoring"
)

type fakeKiller struct {
	calls  atomic.Int32
	err    error
	onKill func()
}

func (k *fakeKiller) KillUnder(ctx context.Context, dir string) (int, error) {
	k.calls.Add(1)
	if k.onKill != nil {
		k.onKill()
	}
	return 1, k.err
}

// lockedDir simulates a directory held open by a running process
type lockedDir struct {
	locked   atomic.Bool
	attempts atomic.Int32
}

func (l *lockedDir) remove(dir string) error {
	l.attempts.Add(1)
	if l.locked.Load() {
		return errors.New("the process cannot access the file because it is being used")
	}
	return os.RemoveAll(dir)
}

func makeInstallDir(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "demo")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "bin"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bin", "demo.exe"), []byte("x"), 0755))
	return dir
}

func failingFallback(ctx context.Context, dir string) error {
	return errors.New("access denied")
}

func TestUninstallMissingDirectory(t *testing.T) {
	killer := &fakeKiller{}
	c := New(Options{Killer: killer, SettleDelay: time.Millisecond})

	err := c.Uninstall(context.Background(), "demo", filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	assert.Equal(t, int32(0), killer.calls.Load())
}

func TestUninstallLockReleasedWithinSettle(t *testing.T) {
	dir := makeInstallDir(t)
	lock := &lockedDir{}
	lock.locked.Store(true)

	killer := &fakeKiller{onKill: func() {
		go func() {
			time.Sleep(5 * time.Millisecond)
			lock.locked.Store(false)
		}()
	}}

	c := New(Options{
		Killer:      killer,
		Remove:      lock.remove,
		Fallback:    failingFallback,
		SettleDelay: 50 * time.Millisecond,
		Retries:     2,
		RetryDelay:  time.Millisecond,
	})

	require.NoError(t, c.Uninstall(context.Background(), "demo", dir))
	assert.NoDirExists(t, dir)
	assert.Equal(t, int32(1), killer.calls.Load())
	assert.Equal(t, int32(1), lock.attempts.Load())
}

func TestUninstallRetriesThenSucceeds(t *testing.T) {
	dir := makeInstallDir(t)
	lock := &lockedDir{}
	lock.locked.Store(true)

	remove := func(d string) error {
		if lock.attempts.Load() == 1 {
			lock.locked.Store(false)
		}
		return lock.remove(d)
	}

	c := New(Options{
		Killer:      &fakeKiller{},
		Remove:      remove,
		Fallback:    failingFallback,
		SettleDelay: time.Millisecond,
		Retries:     2,
		RetryDelay:  time.Millisecond,
	})

	require.NoError(t, c.Uninstall(context.Background(), "demo", dir))
	assert.Equal(t, int32(2), lock.attempts.Load())
	assert.NoDirExists(t, dir)
}

func TestUninstallFallbackRemoves(t *testing.T) {
	dir := makeInstallDir(t)
	lock := &lockedDir{}
	lock.locked.Store(true)

	fallbackCalled := false
	c := New(Options{
		Killer: &fakeKiller{},
		Remove: lock.remove,
		Fallback: func(ctx context.Context, d string) error {
			fallbackCalled = true
			return os.RemoveAll(d)
		},
		SettleDelay: time.Millisecond,
		Retries:     2,
		RetryDelay:  time.Millisecond,
	})

	require.NoError(t, c.Uninstall(context.Background(), "demo", dir))
	assert.True(t, fallbackCalled)
	assert.Equal(t, int32(3), lock.attempts.Load())
	assert.NoDirExists(t, dir)
}

func TestUninstallPermanentLockFails(t *testing.T) {
	dir := makeInstallDir(t)
	lock := &lockedDir{}
	lock.locked.Store(true)

	reg := prometheus.NewRegistry()
	metrics := monitoring.NewMetricsWith(reg)

	c := New(Options{
		Killer:      &fakeKiller{err: errors.New("access denied")},
		Remove:      lock.remove,
		Fallback:    failingFallback,
		SettleDelay: time.Millisecond,
		Retries:     2,
		RetryDelay:  time.Millisecond,
		Metrics:     metrics,
	})

	err := c.Uninstall(context.Background(), "demo", dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRemoveFailed)
	assert.Contains(t, err.Error(), "attempt 3")
	assert.Contains(t, err.Error(), "fallback: access denied")
	assert.DirExists(t, dir)
	assert.Equal(t, int32(3), lock.attempts.Load())

	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.RemovalAttempts.WithLabelValues("remove", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RemovalAttempts.WithLabelValues("fallback", "failure")))
}

func TestUninstallFallbackLeavesDirectory(t *testing.T) {
	dir := makeInstallDir(t)

	c := New(Options{
		Killer:      &fakeKiller{},
		Remove:      func(string) error { return errors.New("locked") },
		Fallback:    func(context.Context, string) error { return nil },
		SettleDelay: time.Millisecond,
		RetryDelay:  time.Millisecond,
	})

	err := c.Uninstall(context.Background(), "demo", dir)
	assert.ErrorIs(t, err, ErrRemoveFailed)
	assert.Contains(t, err.Error(), "directory still present")
}

func TestUninstallCancelledDuringSettle(t *testing.T) {
	dir := makeInstallDir(t)
	ctx, cancel := context.WithCancel(context.Background())

	c := New(Options{
		Killer:      &fakeKiller{onKill: cancel},
		SettleDelay: time.Minute,
	})

	err := c.Uninstall(ctx, "demo", dir)
	assert.ErrorIs(t, err, context.Canceled)
	assert.DirExists(t, dir)
}

func TestRunFallback(t *testing.T) {
	dir := makeInstallDir(t)
	require.NoError(t, RunFallback(context.Background(), dir))
	assert.NoDirExists(t, dir)
}

func TestSystemKillerIgnoresUnrelatedProcesses(t *testing.T) {
	killed, _ := SystemKiller{}.KillUnder(context.Background(), t.TempDir())
	assert.Equal(t, 0, killed)
}
