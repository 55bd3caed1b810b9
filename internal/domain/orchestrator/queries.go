package orchestrator

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/Smallzoamz/Bonchon-Studio/internal/shared/types"
)

const stateInstalled = "installed"

type lastEventer interface {
	Last(appID string) (types.Event, bool)
}

// Updates lists installed apps whose catalog version differs from the
// installed version. Versions are compared as raw strings.
func (o *Orchestrator) Updates() []types.UpdateInfo {
	var updates []types.UpdateInfo
	for _, rec := range o.deps.Ledger.List() {
		entry, ok := o.deps.Catalog.Get(rec.ID)
		if !ok || entry.Version == rec.Version {
			continue
		}
		updates = append(updates, types.UpdateInfo{
			ID:             rec.ID,
			Name:           entry.Name,
			CurrentVersion: rec.Version,
			NewVersion:     entry.Version,
		})
	}
	return updates
}

// Apps joins every catalog entry with its install record and live state
func (o *Orchestrator) Apps() []types.AppView {
	entries := o.deps.Catalog.Entries()
	views := make([]types.AppView, 0, len(entries))
	for _, entry := range entries {
		view := types.AppView{App: entry, State: string(StateIdle)}
		if rec, ok := o.deps.Ledger.Get(entry.ID); ok {
			rec := rec
			view.Installed = &rec
			view.State = stateInstalled
			view.UpdateAvailable = entry.Version != rec.Version
		}
		if j, ok := o.jobs.get(entry.ID); ok {
			view.State = string(j.currentState())
		}
		views = append(views, view)
	}
	return views
}

// State reports the live state of appID
func (o *Orchestrator) State(appID string) types.AppState {
	st := types.AppState{AppID: appID, State: string(StateIdle)}
	if _, ok := o.deps.Ledger.Get(appID); ok {
		st.Installed = true
		st.State = stateInstalled
	}
	if j, ok := o.jobs.get(appID); ok {
		st.State = string(j.currentState())
		st.Operation = j.op
		st.JobID = j.id.String()
	}
	if le, ok := o.deps.Events.(lastEventer); ok {
		if evt, ok := le.Last(appID); ok {
			st.LastEvent = &evt
		}
	}
	return st
}

// Launch starts the recorded executable of an installed app
func (o *Orchestrator) Launch(appID string) error {
	rec, ok := o.deps.Ledger.Get(appID)
	if !ok {
		return fmt.Errorf("%s: %w", appID, ErrNotInstalled)
	}
	info, err := os.Stat(rec.Path)
	if err != nil {
		return fmt.Errorf("%s: %w", appID, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s: %w", appID, ErrNotLaunchable)
	}
	if err := o.deps.Launch(rec.Path); err != nil {
		return fmt.Errorf("failed to launch %s: %w", appID, err)
	}
	o.logger.WithApp(appID).Info("App launched", zap.String("path", rec.Path))
	return nil
}

// LauncherUpdate compares the running launcher version with the latest
// release of the launcher repository
func (o *Orchestrator) LauncherUpdate(ctx context.Context) (types.LauncherUpdate, error) {
	result := types.LauncherUpdate{CurrentVersion: o.deps.LauncherVersion}
	if o.deps.Releases == nil || o.deps.LauncherRepo == "" {
		return result, ErrNotConfigured
	}

	release, err := o.deps.Releases.LatestRelease(ctx, o.deps.LauncherRepo)
	if err != nil {
		return result, err
	}
	if release == nil {
		return result, nil
	}

	result.LatestVersion = release.Version
	result.Available = release.Version != o.deps.LauncherVersion
	result.DownloadURL = release.DownloadURL
	result.Notes = release.Notes
	result.PublishedAt = release.PublishedAt
	return result, nil
}
