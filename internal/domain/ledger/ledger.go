// Package ledger persists the set of installed applications.
//
// The ledger is a single JSON array (installed-apps.json) read fully into
// memory on open and rewritten fully on every change. It is the only source
// of truth for whether an app is installed.
package ledger

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bytedance/sonic"

	"github.com/Smallzoamz/Bonchon-Studio/internal/shared/types"
)

// Ledger is the installation ledger
type Ledger struct {
	mu      sync.RWMutex
	path    string
	records map[string]types.InstalledAppRecord
	order   []string
	now     func() time.Time
}

// Open loads the ledger at path. A missing file is an empty ledger.
func Open(path string) (*Ledger, error) {
	l := &Ledger{
		path:    path,
		records: make(map[string]types.InstalledAppRecord),
		now:     time.Now,
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}
	if len(data) == 0 {
		return l, nil
	}

	var rows []types.InstalledAppRecord
	if err := sonic.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse ledger %s: %w", path, err)
	}
	for _, rec := range rows {
		if rec.ID == "" {
			continue
		}
		if _, dup := l.records[rec.ID]; !dup {
			l.order = append(l.order, rec.ID)
		}
		l.records[rec.ID] = rec
	}
	return l, nil
}

// Get returns the record for appID
func (l *Ledger) Get(appID string) (types.InstalledAppRecord, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	rec, ok := l.records[appID]
	return rec, ok
}

// List returns all records in insertion order
func (l *Ledger) List() []types.InstalledAppRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]types.InstalledAppRecord, 0, len(l.order))
	for _, appID := range l.order {
		out = append(out, l.records[appID])
	}
	return out
}

// Upsert inserts or replaces the record for rec.ID. An existing record keeps
// its InstalledAt and gets UpdatedAt (now, unless the caller set one); a new
// record without InstalledAt is stamped with the current time. The stored
// record is returned.
func (l *Ledger) Upsert(rec types.InstalledAppRecord) (types.InstalledAppRecord, error) {
	if rec.ID == "" {
		return types.InstalledAppRecord{}, fmt.Errorf("app id is required")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	prev, existed := l.records[rec.ID]
	if existed {
		rec.InstalledAt = prev.InstalledAt
		if rec.UpdatedAt == nil {
			rec.UpdatedAt = &now
		}
	} else if rec.InstalledAt.IsZero() {
		rec.InstalledAt = now
	}

	l.records[rec.ID] = rec
	if !existed {
		l.order = append(l.order, rec.ID)
	}

	if err := l.flushLocked(); err != nil {
		if existed {
			l.records[rec.ID] = prev
		} else {
			delete(l.records, rec.ID)
			l.order = l.order[:len(l.order)-1]
		}
		return types.InstalledAppRecord{}, err
	}
	return rec, nil
}

// Remove deletes the record for appID. Removing an unknown id is a no-op.
func (l *Ledger) Remove(appID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	prev, ok := l.records[appID]
	if !ok {
		return nil
	}
	prevOrder := append([]string(nil), l.order...)

	delete(l.records, appID)
	for i, v := range l.order {
		if v == appID {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}

	if err := l.flushLocked(); err != nil {
		l.records[appID] = prev
		l.order = prevOrder
		return err
	}
	return nil
}

func (l *Ledger) flushLocked() error {
	rows := make([]types.InstalledAppRecord, 0, len(l.order))
	for _, appID := range l.order {
		rows = append(rows, l.records[appID])
	}
	data, err := sonic.MarshalIndent(rows, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal ledger: %w", err)
	}
	return WriteFileAtomic(l.path, data)
}

// WriteFileAtomic writes data next to path and renames it into place
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
