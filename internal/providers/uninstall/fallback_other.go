//go:build !windows

package uninstall

import (
	"context"
	"os/exec"
)

func fallbackCommand(ctx context.Context, dir string) *exec.Cmd {
	return exec.CommandContext(ctx, "rm", "-rf", dir)
}
