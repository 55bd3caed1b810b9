package orchestrator

import (
	"os/exec"
	"path/filepath"
)

// startDetached starts path in its own directory without waiting for it
func startDetached(path string) error {
	cmd := exec.Command(path)
	cmd.Dir = filepath.Dir(path)
	if err := cmd.Start(); err != nil {
		return err
	}
	return cmd.Process.Release()
}
