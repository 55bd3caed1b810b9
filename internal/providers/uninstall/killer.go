package uninstall

import (
	"context"
	"os"

	"github.com/hashicorp/go-multierror"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/Smallzoamz/Bonchon-Studio/internal/shared/paths"
)

// ProcessKiller terminates processes whose executable lives under dir
type ProcessKiller interface {
	KillUnder(ctx context.Context, dir string) (int, error)
}

// SystemKiller scans the process table with gopsutil
type SystemKiller struct{}

// KillUnder kills every process whose executable path is inside dir. It
// returns the number of processes signalled and any kill failures.
func (SystemKiller) KillUnder(ctx context.Context, dir string) (int, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return 0, err
	}

	self := int32(os.Getpid())
	killed := 0
	var result *multierror.Error

	for _, p := range procs {
		if p.Pid == self {
			continue
		}
		exe, err := p.ExeWithContext(ctx)
		if err != nil || exe == "" || !paths.IsWithin(dir, exe) {
			continue
		}
		if err := p.KillWithContext(ctx); err != nil {
			result = multierror.Append(result, err)
			continue
		}
		killed++
	}
	return killed, result.ErrorOrNil()
}
