package orchestrator

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/Smallzoamz/Bonchon-Studio/internal/providers/installer"
	"github.com/Smallzoamz/Bonchon-Studio/internal/providers/transfer"
	"github.com/Smallzoamz/Bonchon-Studio/internal/shared/paths"
	"github.com/Smallzoamz/Bonchon-Studio/internal/shared/types"
	"github.com/Smallzoamz/Bonchon-Studio/internal/shared/utils"
)

// runInstall drives download, extraction and placement. An empty root
// installs into <download root>/<id>.
func (o *Orchestrator) runInstall(j *job, entry types.CatalogEntry, root string) {
	log := o.logger.WithApp(j.appID)

	if root == "" {
		var err error
		if root, err = paths.InstallDir(o.deps.DownloadRoot(), j.appID); err != nil {
			o.fail(j, types.ErrorState, err)
			return
		}
	}

	// later phases repeat the final byte counts so they never go backwards
	var total int64
	j.setState(StateDownloading)
	out := o.deps.Transfers.Start(j.ctx, j.appID, entry.DownloadURL, root, func(p transfer.Progress) {
		total = p.BytesTotal
		o.progress(j, types.Progress{
			Percent:          p.Percent,
			BytesDownloaded:  p.BytesDownloaded,
			BytesTotal:       p.BytesTotal,
			SpeedBytesPerSec: p.SpeedBytesPerSec,
			ElapsedSeconds:   p.ElapsedSeconds,
			Phase:            types.PhaseDownloading,
		})
	})
	switch out.Status {
	case transfer.StatusCancelled:
		o.cancelled(j)
		return
	case transfer.StatusFailed:
		o.fail(j, out.Kind, out.Err)
		return
	}
	if total < out.Bytes {
		total = out.Bytes
	}

	j.setState(StateExtracting)
	result, err := o.deps.Installer.Install(j.ctx, out.Path, root, j.appID, entry.Executable, func(percent int) {
		o.progress(j, types.Progress{
			Percent:         percent,
			BytesDownloaded: out.Bytes,
			BytesTotal:      total,
			ElapsedSeconds:  time.Since(j.started).Seconds(),
			Phase:           types.PhaseExtracting,
		})
	})
	if errors.Is(err, installer.ErrCancelled) {
		o.cancelled(j)
		return
	}
	if err != nil {
		o.fail(j, installer.KindOf(err), err)
		return
	}
	if j.cancelled.Load() || j.ctx.Err() != nil {
		o.cancelled(j)
		return
	}

	j.setState(StatePlacing)
	o.progress(j, types.Progress{
		Percent:         100,
		BytesDownloaded: out.Bytes,
		BytesTotal:      total,
		ElapsedSeconds:  time.Since(j.started).Seconds(),
		Phase:           types.PhaseInstalling,
	})

	size, err := installer.DirSize(j.ctx, root)
	if err != nil {
		log.Debug("Install size unavailable", zap.Error(err))
	}

	stored, err := o.deps.Ledger.Upsert(types.InstalledAppRecord{
		ID:         j.appID,
		Name:       entry.Name,
		Version:    entry.Version,
		Path:       result.FinalPath,
		InstallDir: root,
		SizeBytes:  size,
	})
	if err != nil {
		o.fail(j, types.ErrorFilesystem, fmt.Errorf("failed to record installation: %w", err))
		return
	}

	log.Debug("Install placed",
		zap.String("root", root),
		zap.Int("files", result.Files),
		zap.Bool("discovered", result.Discovered),
		zap.Int64("size_bytes", size))
	msg := fmt.Sprintf("%s %s installed", entry.Name, entry.Version)
	if !result.Discovered {
		msg += "; no executable found"
	}
	o.finish(j, types.Event{
		Type:      types.EventComplete,
		FinalPath: stored.Path,
		Message:   msg,
	}, "success")
}

func (o *Orchestrator) runUninstall(j *job, rec types.InstalledAppRecord) {
	j.setState(StateUninstalling)
	o.progress(j, types.Progress{Phase: types.PhaseUninstalling})

	dir, err := o.recordDir(rec)
	if err != nil {
		o.fail(j, types.ErrorState, err)
		return
	}

	if err := o.deps.Uninstaller.Uninstall(j.ctx, j.appID, dir); err != nil {
		o.fail(j, types.ErrorFilesystem, err)
		return
	}
	if err := o.deps.Ledger.Remove(j.appID); err != nil {
		o.fail(j, types.ErrorFilesystem, fmt.Errorf("failed to update ledger: %w", err))
		return
	}

	o.progress(j, types.Progress{Percent: 100, Phase: types.PhaseUninstalling})
	o.finish(j, types.Event{
		Type:      types.EventComplete,
		FinalPath: dir,
		Message:   fmt.Sprintf("%s uninstalled", rec.Name),
	}, "success")
}

// recordDir picks the install directory of an existing record. Records
// written without one fall back to <download root>/<id>. The download root
// itself is never a valid target.
func (o *Orchestrator) recordDir(rec types.InstalledAppRecord) (string, error) {
	root := o.deps.DownloadRoot()
	dir := rec.InstallDir
	if dir == "" {
		var err error
		if dir, err = paths.InstallDir(root, rec.ID); err != nil {
			return "", err
		}
	}
	dir = filepath.Clean(dir)
	if dir == filepath.Clean(root) || dir == filepath.Dir(dir) {
		return "", fmt.Errorf("refusing to remove %s", dir)
	}
	return dir, nil
}

// progress publishes a non-terminal event with formatted byte strings
func (o *Orchestrator) progress(j *job, p types.Progress) {
	if p.BytesDownloaded > 0 || p.BytesTotal > 0 {
		p.Downloaded = utils.FormatBytes(p.BytesDownloaded)
		p.Total = utils.FormatBytes(p.BytesTotal)
		p.Speed = utils.FormatSpeed(p.SpeedBytesPerSec)
	}
	o.deps.Events.Publish(types.Event{
		Type:      types.EventProgress,
		AppID:     j.appID,
		Operation: j.op,
		Progress:  &p,
	})
}

func (o *Orchestrator) cancelled(j *job) {
	o.finish(j, types.Event{Type: types.EventCancelled, Message: "cancelled by user"}, "cancelled")
}

func (o *Orchestrator) fail(j *job, kind types.ErrorKind, err error) {
	o.finish(j, types.Event{Type: types.EventError, Message: err.Error(), ErrorKind: kind}, "failure")
}

// finish publishes the run's single terminal event and frees the app id
func (o *Orchestrator) finish(j *job, evt types.Event, outcome string) {
	evt.AppID = j.appID
	evt.Operation = j.op

	o.jobs.release(j)
	o.deps.Events.Publish(evt)

	j.timer.Stop(outcome)
	elapsed := time.Since(j.started)

	fields := []zap.Field{
		zap.String("job_id", j.id.String()),
		zap.String("operation", string(j.op)),
		zap.String("outcome", outcome),
		zap.Duration("elapsed", elapsed),
	}
	log := o.logger.WithApp(j.appID)
	if evt.Type == types.EventError {
		log.Warn("Job failed", append(fields, zap.String("kind", string(evt.ErrorKind)), zap.String("error", evt.Message))...)
		return
	}
	log.Info("Job finished", fields...)
}
